// Package xrp implements the Ripple (XRP) chain handler, grounded on
// internal/services/address/ripple.go's hand-rolled Ripple base58
// derivation and golang.org/x/crypto/ed25519 for signing (Ripple
// supports both secp256k1 and ed25519 keys; this handler standardizes
// on ed25519, matching the DOMAIN STACK table's HBAR/XRP pairing).
package xrp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"golang.org/x/crypto/ed25519"

	"github.com/arcsign/walletkit/internal/core/attribute"
	"github.com/arcsign/walletkit/internal/core/bundle"
	"github.com/arcsign/walletkit/internal/core/chain"
	"github.com/arcsign/walletkit/internal/core/feebasis"
	"github.com/arcsign/walletkit/internal/core/handler"
	"github.com/arcsign/walletkit/internal/core/transfer"
	"github.com/arcsign/walletkit/internal/core/wallet"
	"github.com/arcsign/walletkit/internal/services/hdkey"
)

// xrpBaseFeeDrops is Ripple's network-recommended base transaction
// fee in drops (1 drop = 1e-6 XRP); a fixed fee, not a gas market
// (spec §4.2: "HBAR, XRP with fixed fee").
const xrpBaseFeeDrops = 12

// destinationTagKey is the well-known attribute key for XRP's
// destination tag, required by exchanges and other hosted wallets that
// share a single on-chain address across many customers.
const destinationTagKey = "DestinationTag"

type feePayload struct {
	Drops int64 `json:"drops"`
}

func (p *feePayload) Encode() []byte {
	b, _ := json.Marshal(p)
	return b
}

func (p *feePayload) Equal(o feebasis.Payload) bool {
	op, ok := o.(*feePayload)
	return ok && p.Drops == op.Drops
}

type txPayload struct {
	raw    []byte
	signed []byte
}

type wireTransfer struct {
	ID                string              `json:"id"`
	Source            string              `json:"source"`
	Target            string              `json:"target"`
	WalletID          string              `json:"walletId"`
	Direction         string              `json:"direction"`
	AmountValue       string              `json:"amountValue"`
	HashHex           string              `json:"hashHex"`
	DestinationTag    *string             `json:"destinationTag,omitempty"`
	FeeBasisEstimated []byte              `json:"feeBasisEstimated"`
}

type engine struct {
	hd *hdkey.HDKeyService

	mu       sync.Mutex
	payloads map[string]*txPayload
}

func unit() chain.Unit {
	return chain.Unit{Tag: chain.XRP, Symbol: "drop", Base: "XRP", Decimals: 6}
}

// NewSet constructs the XRP handler.Set.
func NewSet() *handler.Set {
	e := &engine{hd: hdkey.NewHDKeyService(), payloads: make(map[string]*txPayload)}
	return &handler.Set{
		Tag: chain.XRP,
		Transfer: handler.TransferVTable{
			GetHash:   e.getHash,
			Serialize: e.serialize,
			Encode:    e.encodeTransfer,
			Decode:    e.decodeTransfer,
			IsEqual:   e.transferIsEqual,
		},
		Wallet: handler.WalletVTable{
			GetAddress:                e.getAddress,
			HasAddress:                e.hasAddress,
			AttributeCount:            e.attributeCount,
			AttributeAt:               e.attributeAt,
			ValidateTransferAttribute: e.validateTransferAttribute,
			CreateTransfer:            e.createTransfer,
			GetAddressesForRecovery:   e.getAddressesForRecovery,
			IsEqual:                   e.transferIsEqual,
		},
		Manager: handler.ManagerVTable{
			EstimateLimit:                       func(ctx context.Context, target chain.Address, amount chain.Amount) (uint64, error) { return 0, handler.ErrNotSupported },
			EstimateFeeBasis:                     e.estimateFeeBasis,
			SignTransactionWithSeed:              e.signTransactionWithSeed,
			SignTransactionWithKey:                e.signTransactionWithKey,
			RecoverTransfersFromTransactionBundle: e.recoverTransfersFromTransactionBundle,
			RecoverTransfersFromTransferBundle:    e.recoverTransfersFromTransferBundle,
		},
		FeeBasis: handler.FeeBasisVTable{
			GetCostFactor:         func(fb feebasis.FeeBasis) float64 { return fb.CostFactor },
			GetPricePerCostFactor: func(fb feebasis.FeeBasis) chain.Amount { return fb.PricePerCostFactor },
			GetFee:                func(fb feebasis.FeeBasis) chain.Amount { return fb.Fee() },
			Encode:                feebasis.Encode,
			Decode:                e.decodeFeeBasis,
			IsEqual:               func(a, b feebasis.FeeBasis) bool { return a.Equal(b) },
		},
	}
}

func (e *engine) getAddress(w handler.WalletHandle) chain.Address {
	ww := w.(*wallet.Wallet)
	return chain.NewAddress(chain.XRP, ww.ID)
}

func (e *engine) hasAddress(w handler.WalletHandle, addr chain.Address) bool {
	return e.getAddress(w).Equal(addr)
}

// attributeCount/attributeAt advertise the single well-known
// DestinationTag attribute every XRP wallet exposes (spec §7's
// attribute-validation scenario, S5).
func (e *engine) attributeCount(w handler.WalletHandle) int { return 1 }

func (e *engine) attributeAt(w handler.WalletHandle, i int) *attribute.Attribute {
	if i != 0 {
		return nil
	}
	return attribute.New(destinationTagKey, nil, true)
}

// validateTransferAttribute implements spec §8 S5 exactly: a missing
// DestinationTag is REQUIRED_BUT_NOT_PROVIDED, a non-numeric value is
// MISMATCHED_TYPE, a numeric string is valid.
func (e *engine) validateTransferAttribute(w handler.WalletHandle, a *attribute.Attribute) error {
	if a == nil || a.Key() != destinationTagKey {
		return fmt.Errorf("xrp: %w: unrecognized attribute", attribute.ErrMismatchedType)
	}
	value, ok := a.Value()
	if !ok || value == "" {
		if a.Required() {
			return fmt.Errorf("xrp: %w: %s", attribute.ErrRequiredButNotProvided, destinationTagKey)
		}
		return nil
	}
	if _, err := strconv.ParseUint(value, 10, 32); err != nil {
		return fmt.Errorf("xrp: %w: %s must be a numeric destination tag, got %q", attribute.ErrMismatchedType, destinationTagKey, value)
	}
	return nil
}

func (e *engine) getAddressesForRecovery(w handler.WalletHandle) []chain.Address {
	ww := w.(*wallet.Wallet)
	return []chain.Address{chain.NewAddress(chain.XRP, ww.ID)}
}

func (e *engine) transferIsEqual(a, b *transfer.Transfer) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Hash().Equal(b.Hash())
}

func destinationTagOf(attrs []*attribute.Attribute) *string {
	for _, a := range attrs {
		if a.Key() == destinationTagKey {
			if v, ok := a.Value(); ok {
				return &v
			}
		}
	}
	return nil
}

func (e *engine) createTransfer(w handler.WalletHandle, target chain.Address, amount chain.Amount, fb feebasis.FeeBasis, attrs []*attribute.Attribute) (*transfer.Transfer, error) {
	for _, a := range attrs {
		if err := e.validateTransferAttribute(w, a); err != nil {
			return nil, err
		}
	}
	ww := w.(*wallet.Wallet)

	tag := destinationTagOf(attrs)
	raw := []byte(fmt.Sprintf("xrp-transfer:%s:%s:%s:%s", ww.ID, target.String(), amount.Value().String(), derefOrEmpty(tag)))
	h := sha256.Sum256(raw)
	id := hex.EncodeToString(h[:])

	t := transfer.New(
		id,
		chain.XRP,
		chain.NewAddress(chain.XRP, ww.ID),
		target,
		ww.Unit,
		ww.UnitForFee,
		amount,
		transfer.Sent,
		fb,
		attrs,
		ww.ID,
		ww.Bundle(),
	)
	t.SetHash(chain.NewHash(chain.XRP, h[:]))

	e.mu.Lock()
	e.payloads[t.ID()] = &txPayload{raw: raw}
	e.mu.Unlock()

	return t, nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (e *engine) getHash(t *transfer.Transfer) (chain.Hash, error) { return t.Hash(), nil }

func (e *engine) lookupPayload(t *transfer.Transfer) (*txPayload, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.payloads[t.ID()]
	return p, ok
}

func (e *engine) serialize(t *transfer.Transfer, requireSignature bool) ([]byte, error) {
	p, ok := e.lookupPayload(t)
	if !ok {
		return nil, fmt.Errorf("xrp: no transaction payload for transfer %s", t.ID())
	}
	if requireSignature {
		if p.signed == nil {
			return nil, fmt.Errorf("xrp: transfer %s is not yet signed", t.ID())
		}
		return p.signed, nil
	}
	return p.raw, nil
}

func (e *engine) encodeTransfer(t *transfer.Transfer) ([]byte, error) {
	fbBytes, err := feebasis.Encode(t.FeeBasisEstimated)
	if err != nil {
		return nil, fmt.Errorf("xrp: encode fee basis: %w", err)
	}
	w := wireTransfer{
		ID:                t.ID(),
		Source:            t.Source.String(),
		Target:            t.Target.String(),
		WalletID:          t.Source.String(),
		Direction:         string(t.Direction),
		AmountValue:       t.Amount.Value().String(),
		HashHex:           hex.EncodeToString(t.Hash().Bytes()),
		DestinationTag:    destinationTagOf(t.Attributes()),
		FeeBasisEstimated: fbBytes,
	}
	return json.Marshal(w)
}

// decodeTransfer rebuilds the transfer from every field of the JSON
// wire record encoded above (identity, addresses, direction, amount,
// hash, fee basis and destination tag), not from (wallet, hash, id)
// alone.
func (e *engine) decodeTransfer(data []byte) (*transfer.Transfer, error) {
	var w wireTransfer
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("xrp: decode transfer: %w", err)
	}
	amountValue, ok := new(big.Int).SetString(w.AmountValue, 10)
	if !ok {
		return nil, fmt.Errorf("xrp: decode transfer: invalid amount %q", w.AmountValue)
	}
	fb, _, err := feebasis.DecodeGeneric(w.FeeBasisEstimated)
	if err != nil {
		return nil, fmt.Errorf("xrp: decode transfer: %w", err)
	}
	var attrs []*attribute.Attribute
	if w.DestinationTag != nil {
		attrs = []*attribute.Attribute{attribute.New(destinationTagKey, w.DestinationTag, true)}
	}
	u := unit()
	t := transfer.New(
		w.ID,
		chain.XRP,
		chain.NewAddress(chain.XRP, w.Source),
		chain.NewAddress(chain.XRP, w.Target),
		u,
		u,
		chain.NewAmount(u, amountValue),
		transfer.Direction(w.Direction),
		fb,
		attrs,
		w.WalletID,
		nil,
	)
	hashBytes, err := hex.DecodeString(w.HashHex)
	if err != nil {
		return nil, fmt.Errorf("xrp: decode transfer: invalid hash %q", w.HashHex)
	}
	t.SetHash(chain.NewHash(chain.XRP, hashBytes))
	return t, nil
}

func (e *engine) estimateFeeBasis(ctx context.Context, target chain.Address, amount chain.Amount, networkFee *chain.Amount, attrs []*attribute.Attribute) (feebasis.FeeBasis, bool, error) {
	u := unit()
	payload := &feePayload{Drops: xrpBaseFeeDrops}
	fb := feebasis.New(chain.XRP, u, 1.0, chain.NewAmount(u, big.NewInt(xrpBaseFeeDrops)), payload)
	return fb, true, nil
}

func (e *engine) decodeFeeBasis(data []byte) (feebasis.FeeBasis, error) {
	fb, payloadBytes, err := feebasis.DecodeGeneric(data)
	if err != nil {
		return feebasis.FeeBasis{}, err
	}
	if len(payloadBytes) > 0 {
		var p feePayload
		if err := json.Unmarshal(payloadBytes, &p); err == nil {
			fb.Payload = &p
		}
	}
	return fb, nil
}

func (e *engine) deriveKey(seed []byte) (ed25519.PrivateKey, error) {
	master, err := e.hd.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("xrp: master key: %w", err)
	}
	child, err := e.hd.DerivePath(master, "m/44'/144'/0'/0/0")
	if err != nil {
		return nil, fmt.Errorf("xrp: derive path: %w", err)
	}
	raw, err := e.hd.GetPrivateKey(child)
	if err != nil {
		return nil, fmt.Errorf("xrp: private key: %w", err)
	}
	seed32 := sha256.Sum256(raw)
	return ed25519.NewKeyFromSeed(seed32[:]), nil
}

func (e *engine) signTransactionWithSeed(t *transfer.Transfer, seed []byte) error {
	key, err := e.deriveKey(seed)
	if err != nil {
		return err
	}
	return e.sign(t, key)
}

func (e *engine) signTransactionWithKey(t *transfer.Transfer, key []byte) error {
	if len(key) != ed25519.SeedSize {
		return fmt.Errorf("xrp: key must be a %d-byte ed25519 seed", ed25519.SeedSize)
	}
	return e.sign(t, ed25519.NewKeyFromSeed(key))
}

func (e *engine) sign(t *transfer.Transfer, key ed25519.PrivateKey) error {
	p, ok := e.lookupPayload(t)
	if !ok {
		return fmt.Errorf("xrp: no transaction payload for transfer %s", t.ID())
	}
	sig := ed25519.Sign(key, p.raw)

	e.mu.Lock()
	p.signed = append(append([]byte{}, p.raw...), sig...)
	e.mu.Unlock()
	return nil
}

func (e *engine) recoverTransfersFromTransferBundle(tb bundle.TransferBundle) (*transfer.Transfer, error) {
	u := unit()
	amountValue, ok := new(big.Int).SetString(tb.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("xrp: recover transfer: invalid amount %q", tb.Amount)
	}
	direction := transfer.Received
	feeBasis := feebasis.FeeBasis{}
	if tb.Fee != nil {
		direction = transfer.Sent
		if feeValue, ok := new(big.Int).SetString(*tb.Fee, 10); ok {
			feeBasis = feebasis.New(chain.XRP, u, 1.0, chain.NewAmount(u, feeValue), &feePayload{Drops: feeValue.Int64()})
		}
	}

	t := transfer.New(tb.Hash, chain.XRP, chain.NewAddress(chain.XRP, tb.From), chain.NewAddress(chain.XRP, tb.To), u, u, chain.NewAmount(u, amountValue), direction, feeBasis, tb.Attributes, "", nil)
	h := sha256.Sum256([]byte(tb.Hash))
	t.SetHash(chain.NewHash(chain.XRP, h[:]))

	if tb.Status == bundle.StatusConfirmed {
		t.SetState(transfer.State{Kind: transfer.Signed})
		t.SetState(transfer.State{Kind: transfer.Submitted})
		t.SetState(transfer.NewIncludedState(tb.BlockNumber, tb.BlockIndex, tb.BlockTimestamp, feeBasis, true, ""))
	}
	return t, nil
}

func (e *engine) recoverTransfersFromTransactionBundle(tb bundle.TransactionBundle) ([]*transfer.Transfer, error) {
	return nil, handler.ErrNotSupported
}
