// Package handler implements the Handler Registry: a per-chain-tag
// lookup of Transfer/Wallet/Manager/FeeBasis function tables (spec §2
// #1, §4.1), grounded on the teacher's ProviderRegistry factory-map
// singleton pattern.
package handler

import (
	"context"
	"fmt"
	"sync"

	"github.com/arcsign/walletkit/internal/core/attribute"
	"github.com/arcsign/walletkit/internal/core/bundle"
	"github.com/arcsign/walletkit/internal/core/chain"
	"github.com/arcsign/walletkit/internal/core/feebasis"
	"github.com/arcsign/walletkit/internal/core/transfer"
)

// TransferVTable is the per-chain Transfer function table (spec §4.1).
type TransferVTable struct {
	GetHash   func(t *transfer.Transfer) (chain.Hash, error)
	Serialize func(t *transfer.Transfer, requireSignature bool) ([]byte, error)
	// BytesForFeeEstimate is optional; nil means "not supported".
	BytesForFeeEstimate func(t *transfer.Transfer) ([]byte, error)
	Encode              func(t *transfer.Transfer) ([]byte, error)
	Decode              func(data []byte) (*transfer.Transfer, error)
	IsEqual             func(a, b *transfer.Transfer) bool
}

// WalletVTable is the per-chain Wallet function table (spec §4.1).
type WalletVTable struct {
	GetAddress              func(w WalletHandle) chain.Address
	HasAddress              func(w WalletHandle, addr chain.Address) bool
	AttributeCount          func(w WalletHandle) int
	AttributeAt             func(w WalletHandle, i int) *attribute.Attribute
	ValidateTransferAttribute func(w WalletHandle, a *attribute.Attribute) error
	CreateTransfer          func(w WalletHandle, target chain.Address, amount chain.Amount, fb feebasis.FeeBasis, attrs []*attribute.Attribute) (*transfer.Transfer, error)
	GetAddressesForRecovery func(w WalletHandle) []chain.Address
	// AnnounceTransfer is optional.
	AnnounceTransfer func(w WalletHandle, t *transfer.Transfer)
	IsEqual          func(a, b *transfer.Transfer) bool
}

// WalletHandle is the opaque per-wallet context a WalletVTable
// function receives; concrete handlers type-assert it to their own
// state (e.g. an HD address cursor). Defined as an empty interface
// here, matching the "capability interface per component" choice from
// spec §9's design notes.
type WalletHandle interface{}

// ManagerVTable is the per-chain Manager function table (spec §4.1).
type ManagerVTable struct {
	EstimateLimit                func(ctx context.Context, target chain.Address, amount chain.Amount) (uint64, error)
	EstimateFeeBasis              func(ctx context.Context, target chain.Address, amount chain.Amount, networkFee *chain.Amount, attrs []*attribute.Attribute) (feebasis.FeeBasis, bool, error)
	SignTransactionWithSeed       func(t *transfer.Transfer, seed []byte) error
	SignTransactionWithKey        func(t *transfer.Transfer, key []byte) error
	RecoverTransfersFromTransactionBundle func(tb bundle.TransactionBundle) ([]*transfer.Transfer, error)
	RecoverTransfersFromTransferBundle    func(tb bundle.TransferBundle) (*transfer.Transfer, error)
	// RecoverFeeBasisFromFeeEstimate is optional.
	RecoverFeeBasisFromFeeEstimate func(costUnits uint64, attrs []*attribute.Attribute) (feebasis.FeeBasis, error)
	// Sweeper is optional; nil means the chain does not support sweeping.
	Sweeper *SweeperVTable
}

// SweeperVTable implements the supplemented sweeper capability (spec
// §7 names its error kinds; SPEC_FULL gives it a home on the manager
// vtable, grounded on the original C's
// cryptoWalletManagerCreateWalletSweeper family).
type SweeperVTable struct {
	ValidateSweep func(key []byte) error
	CreateSweepTransfer func(key []byte, target chain.Address) (*transfer.Transfer, error)
}

// FeeBasisVTable is the per-chain FeeBasis function table (spec §4.1).
type FeeBasisVTable struct {
	GetCostFactor      func(fb feebasis.FeeBasis) float64
	GetPricePerCostFactor func(fb feebasis.FeeBasis) chain.Amount
	GetFee             func(fb feebasis.FeeBasis) chain.Amount
	Encode             func(fb feebasis.FeeBasis) ([]byte, error)
	Decode             func(data []byte) (feebasis.FeeBasis, error)
	IsEqual            func(a, b feebasis.FeeBasis) bool
}

// Set bundles all four vtables registered for one chain tag.
type Set struct {
	Tag      chain.Tag
	Transfer TransferVTable
	Wallet   WalletVTable
	Manager  ManagerVTable
	FeeBasis FeeBasisVTable
}

// ErrNotSupported is returned by an optional vtable slot left nil.
var ErrNotSupported = fmt.Errorf("handler: operation not supported for this chain")

// Registry is the process-wide lookup from chain tag to handler set,
// grounded on the teacher's ProviderRegistry: a factory map behind a
// RWMutex, built once via sync.Once.
type Registry struct {
	mu   sync.RWMutex
	sets map[chain.Tag]*Set
}

var (
	global     *Registry
	globalOnce sync.Once
)

// Global returns the process-wide handler registry singleton.
func Global() *Registry {
	globalOnce.Do(func() {
		global = &Registry{sets: make(map[chain.Tag]*Set)}
	})
	return global
}

// Register installs the handler set for a chain tag. Registering the
// same tag twice is a programmer error.
func (r *Registry) Register(set *Set) error {
	if set == nil {
		return fmt.Errorf("handler: nil set")
	}
	if !set.Tag.Valid() {
		return fmt.Errorf("handler: unknown chain tag %q", set.Tag)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sets[set.Tag]; exists {
		return fmt.Errorf("handler: %s already registered", set.Tag)
	}
	r.sets[set.Tag] = set
	return nil
}

// Lookup returns the handler set for tag. Per spec §4.1, "Lookup with
// an unknown tag is a fatal invariant violation" — callers that pass
// an unregistered tag get a panic, not an error, because it indicates
// a bug in the caller (the chain tag enumeration is closed and every
// member must be registered at startup).
func (r *Registry) Lookup(tag chain.Tag) *Set {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.sets[tag]
	if !ok {
		panic(fmt.Sprintf("handler: lookup with unregistered chain tag %q", tag))
	}
	return set
}

// Registered reports whether tag has a handler set installed, without
// panicking — used by startup code to verify every expected tag is
// wired before the manager begins serving requests.
func (r *Registry) Registered(tag chain.Tag) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sets[tag]
	return ok
}
