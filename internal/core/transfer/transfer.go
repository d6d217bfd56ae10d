// Package transfer implements the TransferState tagged variant and the
// Transfer entity: immutable identity plus mutable state, with
// equality, canonical ordering, and CHANGED-event emission (spec §2
// #4-5, §4.3).
package transfer

import (
	"sync"
	"time"

	"github.com/arcsign/walletkit/internal/core/attribute"
	"github.com/arcsign/walletkit/internal/core/chain"
	"github.com/arcsign/walletkit/internal/core/feebasis"
	"github.com/arcsign/walletkit/internal/core/listener"
)

// Direction is SENT, RECEIVED, or RECOVERED (self-transfer).
type Direction string

const (
	Sent      Direction = "SENT"
	Received  Direction = "RECEIVED"
	Recovered Direction = "RECOVERED"
)

// StateKind is the tagged variant's discriminator.
type StateKind string

const (
	Created   StateKind = "CREATED"
	Signed    StateKind = "SIGNED"
	Submitted StateKind = "SUBMITTED"
	Included  StateKind = "INCLUDED"
	Errored   StateKind = "ERRORED"
	Deleted   StateKind = "DELETED"
)

// maxIncludedErrorBytes bounds the INCLUDED error string (spec §3: "a
// bounded error string <= N bytes, N >= 16").
const maxIncludedErrorBytes = 256

// SubmitError is UNKNOWN or POSIX(errno) (spec §3, §7).
type SubmitError struct {
	Unknown bool
	Errno   int
	Cause   error
}

func (e SubmitError) Error() string {
	if e.Unknown {
		return "submit error: unknown"
	}
	if e.Cause != nil {
		return "submit error: " + e.Cause.Error()
	}
	return "submit error: posix errno"
}

// State is the tagged TransferState variant (spec §2 #4). Only the
// fields relevant to Kind are meaningful; State is a plain value type
// so copies are always safe to make.
type State struct {
	Kind StateKind

	// INCLUDED fields.
	BlockNumber     uint64
	TransactionIndex uint64
	Timestamp       time.Time
	FeeBasis        feebasis.FeeBasis
	Success         bool
	ErrorMessage    string // bounded to maxIncludedErrorBytes

	// ERRORED field.
	SubmitError *SubmitError
}

// NewCreatedState returns the initial CREATED state.
func NewCreatedState() State { return State{Kind: Created} }

// NewIncludedState truncates errMsg to the bounded length (spec §3).
func NewIncludedState(blockNumber, txIndex uint64, ts time.Time, fb feebasis.FeeBasis, success bool, errMsg string) State {
	if len(errMsg) > maxIncludedErrorBytes {
		errMsg = errMsg[:maxIncludedErrorBytes]
	}
	return State{
		Kind:             Included,
		BlockNumber:      blockNumber,
		TransactionIndex: txIndex,
		Timestamp:        ts,
		FeeBasis:         fb,
		Success:          success,
		ErrorMessage:     errMsg,
	}
}

// NewErroredState wraps a submit error.
func NewErroredState(err SubmitError) State {
	return State{Kind: Errored, SubmitError: &err}
}

// Equal is structural equality over the tagged variant.
func (s State) Equal(o State) bool {
	if s.Kind != o.Kind {
		return false
	}
	switch s.Kind {
	case Included:
		return s.BlockNumber == o.BlockNumber &&
			s.TransactionIndex == o.TransactionIndex &&
			s.Timestamp.Equal(o.Timestamp) &&
			s.FeeBasis.Equal(o.FeeBasis) &&
			s.Success == o.Success &&
			s.ErrorMessage == o.ErrorMessage
	case Errored:
		if s.SubmitError == nil || o.SubmitError == nil {
			return s.SubmitError == o.SubmitError
		}
		return s.SubmitError.Unknown == o.SubmitError.Unknown && s.SubmitError.Errno == o.SubmitError.Errno
	default:
		return true
	}
}

// canTransition encodes the state graph from spec §8: CREATED -> SIGNED
// -> SUBMITTED -> {INCLUDED, ERRORED} -> DELETED, with the one
// backward exception ERRORED -> INCLUDED (late indexer recovery).
func canTransition(from, to StateKind) bool {
	if from == to {
		return true
	}
	switch from {
	case Created:
		return to == Signed || to == Deleted
	case Signed:
		return to == Submitted || to == Deleted
	case Submitted:
		return to == Included || to == Errored || to == Deleted
	case Included:
		return to == Deleted
	case Errored:
		return to == Included || to == Deleted // late recovery, spec §8
	case Deleted:
		return false
	}
	return false
}

// Transfer is the identity entity (spec §4.3). Identity fields are
// immutable after construction; State mutates under transferMu.
type Transfer struct {
	id string

	Tag          chain.Tag
	Source       chain.Address
	Target       chain.Address
	Unit         chain.Unit
	UnitForFee   chain.Unit
	FeeBasisEstimated feebasis.FeeBasis
	Amount       chain.Amount // always unsigned magnitude
	Direction    Direction

	walletID string
	bundle   *listener.Bundle

	mu         sync.Mutex
	attributes []*attribute.Attribute
	state      State
	hash       chain.Hash // empty until the chain handler assigns one
}

// New constructs a Transfer in state CREATED. Construction is always
// via this single entry point plus a handler-supplied hash (spec
// §4.3: "Construction is always via alloc_and_init ... plus a
// post-init callback that fills chain-specific payload").
func New(id string, tag chain.Tag, source, target chain.Address, unit, unitForFee chain.Unit, amount chain.Amount, direction Direction, feeBasisEstimated feebasis.FeeBasis, attrs []*attribute.Attribute, walletID string, bundle *listener.Bundle) *Transfer {
	t := &Transfer{
		id:                id,
		Tag:               tag,
		Source:            source,
		Target:            target,
		Unit:              unit,
		UnitForFee:        unitForFee,
		FeeBasisEstimated: feeBasisEstimated,
		Amount:            amount,
		Direction:         direction,
		attributes:        append([]*attribute.Attribute(nil), attrs...),
		state:             NewCreatedState(),
		walletID:          walletID,
		bundle:            bundle,
	}
	if bundle != nil && bundle.Transfer != nil {
		bundle.Transfer.TransferChanged(walletID, id, string(Created))
	}
	return t
}

func (t *Transfer) ID() string { return t.id }

// SetHash assigns the chain handler's computed hash. Called once,
// from the handler's post-init callback.
func (t *Transfer) SetHash(h chain.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hash = h
}

func (t *Transfer) Hash() chain.Hash {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hash
}

// State returns a copy of the current state.
func (t *Transfer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// SetState performs the locked copy-swap-release cycle from spec
// §4.3: "under transfer lock, copies old and new, swaps ... the
// callback is invoked while the transfer lock is held." Returns false
// (no-op) if the transition is not legal per the state graph, except
// that setting the same kind is always a legal no-op refresh.
func (t *Transfer) SetState(newState State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	old := t.state
	if !canTransition(old.Kind, newState.Kind) {
		return false
	}
	changed := !old.Equal(newState)
	t.state = newState

	if changed && t.bundle != nil && t.bundle.Transfer != nil {
		// Invoked with the transfer lock held, per spec §5: implementers
		// must not re-enter the transfer or acquire the wallet lock here.
		t.bundle.Transfer.TransferChanged(t.walletID, t.id, string(newState.Kind))
	}
	return true
}

// CompareAndSwapSubmitted is the announce/submit race guard from spec
// §9: "compare-and-swap on state.type, transitioning only from
// {SIGNED, CREATED} -> SUBMITTED" so a late submit announce never
// regresses an already-INCLUDED transfer.
func (t *Transfer) CompareAndSwapSubmitted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state.Kind != Created && t.state.Kind != Signed {
		return false
	}
	old := t.state
	t.state = State{Kind: Submitted}
	if t.bundle != nil && t.bundle.Transfer != nil && !old.Equal(t.state) {
		t.bundle.Transfer.TransferChanged(t.walletID, t.id, string(Submitted))
	}
	return true
}

// SetAttributes replaces the attribute sequence wholesale; partial
// updates are not supported (spec §4.3).
func (t *Transfer) SetAttributes(attrs []*attribute.Attribute) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attributes = append([]*attribute.Attribute(nil), attrs...)
}

func (t *Transfer) Attributes() []*attribute.Attribute {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*attribute.Attribute(nil), t.attributes...)
}

// AmountDirected returns +amount (RECEIVED), -amount (SENT), or zero
// (RECOVERED).
func (t *Transfer) AmountDirected() chain.Amount {
	switch t.Direction {
	case Received:
		return t.Amount
	case Sent:
		return t.Amount.Negate()
	default: // Recovered
		return chain.ZeroAmount(t.Amount.Unit())
	}
}

// AmountDirectedNet subtracts the fee from the directed amount for
// SENT/RECOVERED when unit-for-amount is compatible with
// unit-for-fee; otherwise identical to AmountDirected.
func (t *Transfer) AmountDirectedNet() chain.Amount {
	directed := t.AmountDirected()
	if t.Direction == Received {
		return directed
	}
	fee, ok := t.Fee()
	if !ok {
		return directed
	}
	return directed.Sub(fee)
}

// Fee is defined iff unit-for-amount is compatible with unit-for-fee;
// returns the confirmed fee when INCLUDED, else the estimated fee
// (spec §4.3). Returns ok=false when the units are incompatible (the
// ERC-20-paid-in-ETH case).
func (t *Transfer) Fee() (amount chain.Amount, ok bool) {
	if !t.Unit.Compatible(t.UnitForFee) {
		return chain.Amount{}, false
	}
	st := t.State()
	if st.Kind == Included {
		return st.FeeBasis.Fee(), true
	}
	return t.FeeBasisEstimated.Fee(), true
}

// IsEqual implements spec §4.3 equality: same object, or same chain
// tag and the chain handler's isEqual (injected by the handler layer
// as equalFn, since the core never reimplements per-chain hashing).
func (t *Transfer) IsEqual(o *Transfer, handlerIsEqual func(a, b *Transfer) bool) bool {
	if t == o {
		return true
	}
	if o == nil || t.Tag != o.Tag {
		return false
	}
	if handlerIsEqual == nil {
		return t.Hash().Equal(o.Hash())
	}
	return handlerIsEqual(t, o)
}

// Compare implements the total order from spec §4.3/§8 scenario S4:
// INCLUDED < non-INCLUDED; among INCLUDED compare (timestamp,
// blockNumber, txIndex); among non-INCLUDED compare by stable
// identity (here, the caller-assigned id string compared
// lexicographically, the Go stand-in for pointer identity).
func Compare(a, b *Transfer) int {
	if a == b {
		return 0
	}
	as, bs := a.State(), b.State()
	aIncluded := as.Kind == Included
	bIncluded := bs.Kind == Included

	switch {
	case aIncluded && !bIncluded:
		return -1
	case !aIncluded && bIncluded:
		return 1
	case aIncluded && bIncluded:
		if !as.Timestamp.Equal(bs.Timestamp) {
			if as.Timestamp.Before(bs.Timestamp) {
				return -1
			}
			return 1
		}
		if as.BlockNumber != bs.BlockNumber {
			if as.BlockNumber < bs.BlockNumber {
				return -1
			}
			return 1
		}
		if as.TransactionIndex != bs.TransactionIndex {
			if as.TransactionIndex < bs.TransactionIndex {
				return -1
			}
			return 1
		}
		return 0
	default:
		if a.id == b.id {
			return 0
		}
		if a.id < b.id {
			return -1
		}
		return 1
	}
}
