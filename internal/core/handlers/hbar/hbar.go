// Package hbar implements the Hedera (HBAR) chain handler. Hedera has
// no precedent in the teacher's chainadapter (only Bitcoin and
// Ethereum are wired there), so this package goes straight to
// golang.org/x/crypto/ed25519 the way SPEC_FULL.md's DOMAIN STACK
// table calls for, rather than inventing a secp256k1 stand-in.
package hbar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
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

// hederaNetworkFeeTinybar is HBAR's fixed base transfer fee: Hedera's
// fee schedule prices a simple crypto transfer at a fixed tinybar
// amount rather than a market-driven gas price, so EstimateFeeBasis
// can answer synchronously (spec §4.2: "HBAR, XRP with fixed fee").
const hederaNetworkFeeTinybar = 100_000

type txPayload struct {
	raw    []byte
	signed []byte
}

// feePayload is HBAR's fixed-fee feebasis.Payload: a single tinybar
// amount, no cost-factor math needed.
type feePayload struct {
	Tinybar int64 `json:"tinybar"`
}

func (p *feePayload) Encode() []byte {
	b, _ := json.Marshal(p)
	return b
}

func (p *feePayload) Equal(o feebasis.Payload) bool {
	op, ok := o.(*feePayload)
	return ok && p.Tinybar == op.Tinybar
}

type wireTransfer struct {
	ID                 string `json:"id"`
	Source             string `json:"source"`
	Target             string `json:"target"`
	WalletID           string `json:"walletId"`
	Direction          string `json:"direction"`
	AmountValue        string `json:"amountValue"`
	HashHex            string `json:"hashHex"`
	FeeBasisEstimated  []byte `json:"feeBasisEstimated"`
}

type engine struct {
	hd *hdkey.HDKeyService

	mu       sync.Mutex
	payloads map[string]*txPayload
}

func unit() chain.Unit {
	return chain.Unit{Tag: chain.HBAR, Symbol: "tinybar", Base: "HBAR", Decimals: 8}
}

// NewSet constructs the HBAR handler.Set.
func NewSet() *handler.Set {
	e := &engine{hd: hdkey.NewHDKeyService(), payloads: make(map[string]*txPayload)}
	return &handler.Set{
		Tag: chain.HBAR,
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
			AttributeCount:            func(w handler.WalletHandle) int { return 0 },
			AttributeAt:               func(w handler.WalletHandle, i int) *attribute.Attribute { return nil },
			ValidateTransferAttribute: e.validateTransferAttribute,
			CreateTransfer:            e.createTransfer,
			GetAddressesForRecovery:   e.getAddressesForRecovery,
			IsEqual:                   e.transferIsEqual,
		},
		Manager: handler.ManagerVTable{
			EstimateLimit:                        func(ctx context.Context, target chain.Address, amount chain.Amount) (uint64, error) { return 0, handler.ErrNotSupported },
			EstimateFeeBasis:                      e.estimateFeeBasis,
			SignTransactionWithSeed:                e.signTransactionWithSeed,
			SignTransactionWithKey:                 e.signTransactionWithKey,
			RecoverTransfersFromTransactionBundle:  e.recoverTransfersFromTransactionBundle,
			RecoverTransfersFromTransferBundle:     e.recoverTransfersFromTransferBundle,
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
	return chain.NewAddress(chain.HBAR, ww.ID)
}

func (e *engine) hasAddress(w handler.WalletHandle, addr chain.Address) bool {
	return e.getAddress(w).Equal(addr)
}

func (e *engine) validateTransferAttribute(w handler.WalletHandle, a *attribute.Attribute) error {
	if a == nil {
		return nil
	}
	return fmt.Errorf("hbar: %w: %s is not a recognized attribute for HBAR", attribute.ErrMismatchedType, a.Key())
}

func (e *engine) getAddressesForRecovery(w handler.WalletHandle) []chain.Address {
	ww := w.(*wallet.Wallet)
	return []chain.Address{chain.NewAddress(chain.HBAR, ww.ID)}
}

func (e *engine) transferIsEqual(a, b *transfer.Transfer) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Hash().Equal(b.Hash())
}

func (e *engine) createTransfer(w handler.WalletHandle, target chain.Address, amount chain.Amount, fb feebasis.FeeBasis, attrs []*attribute.Attribute) (*transfer.Transfer, error) {
	if len(attrs) > 0 {
		return nil, fmt.Errorf("hbar: HBAR accepts no transfer attributes")
	}
	ww := w.(*wallet.Wallet)

	raw := []byte(fmt.Sprintf("hbar-transfer:%s:%s:%s", ww.ID, target.String(), amount.Value().String()))
	h := sha256.Sum256(raw)
	id := hex.EncodeToString(h[:])

	t := transfer.New(
		id,
		chain.HBAR,
		chain.NewAddress(chain.HBAR, ww.ID),
		target,
		ww.Unit,
		ww.UnitForFee,
		amount,
		transfer.Sent,
		fb,
		nil,
		ww.ID,
		ww.Bundle(),
	)
	t.SetHash(chain.NewHash(chain.HBAR, h[:]))

	e.mu.Lock()
	e.payloads[t.ID()] = &txPayload{raw: raw}
	e.mu.Unlock()

	return t, nil
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
		return nil, fmt.Errorf("hbar: no transaction payload for transfer %s", t.ID())
	}
	if requireSignature {
		if p.signed == nil {
			return nil, fmt.Errorf("hbar: transfer %s is not yet signed", t.ID())
		}
		return p.signed, nil
	}
	return p.raw, nil
}

func (e *engine) encodeTransfer(t *transfer.Transfer) ([]byte, error) {
	fbBytes, err := feebasis.Encode(t.FeeBasisEstimated)
	if err != nil {
		return nil, fmt.Errorf("hbar: encode fee basis: %w", err)
	}
	w := wireTransfer{
		ID:                t.ID(),
		Source:            t.Source.String(),
		Target:            t.Target.String(),
		WalletID:          t.Source.String(),
		Direction:         string(t.Direction),
		AmountValue:       t.Amount.Value().String(),
		HashHex:           hex.EncodeToString(t.Hash().Bytes()),
		FeeBasisEstimated: fbBytes,
	}
	return json.Marshal(w)
}

// decodeTransfer rebuilds the transfer from every field of the JSON
// wire record encoded above (identity, addresses, direction, amount,
// hash and fee basis), not from (wallet, hash, id) alone.
func (e *engine) decodeTransfer(data []byte) (*transfer.Transfer, error) {
	var w wireTransfer
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("hbar: decode transfer: %w", err)
	}
	amountValue, ok := new(big.Int).SetString(w.AmountValue, 10)
	if !ok {
		return nil, fmt.Errorf("hbar: decode transfer: invalid amount %q", w.AmountValue)
	}
	fb, _, err := feebasis.DecodeGeneric(w.FeeBasisEstimated)
	if err != nil {
		return nil, fmt.Errorf("hbar: decode transfer: %w", err)
	}
	u := unit()
	t := transfer.New(
		w.ID,
		chain.HBAR,
		chain.NewAddress(chain.HBAR, w.Source),
		chain.NewAddress(chain.HBAR, w.Target),
		u,
		u,
		chain.NewAmount(u, amountValue),
		transfer.Direction(w.Direction),
		fb,
		nil,
		w.WalletID,
		nil,
	)
	hashBytes, err := hex.DecodeString(w.HashHex)
	if err != nil {
		return nil, fmt.Errorf("hbar: decode transfer: invalid hash %q", w.HashHex)
	}
	t.SetHash(chain.NewHash(chain.HBAR, hashBytes))
	return t, nil
}

// estimateFeeBasis answers synchronously: Hedera prices a crypto
// transfer at a fixed tinybar fee from its published fee schedule, no
// mempool/gas-market lookup needed (spec §4.2).
func (e *engine) estimateFeeBasis(ctx context.Context, target chain.Address, amount chain.Amount, networkFee *chain.Amount, attrs []*attribute.Attribute) (feebasis.FeeBasis, bool, error) {
	u := unit()
	payload := &feePayload{Tinybar: hederaNetworkFeeTinybar}
	fb := feebasis.New(chain.HBAR, u, 1.0, chain.NewAmount(u, big.NewInt(hederaNetworkFeeTinybar)), payload)
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
		return nil, fmt.Errorf("hbar: master key: %w", err)
	}
	child, err := e.hd.DerivePath(master, "m/44'/3030'/0'/0/0")
	if err != nil {
		return nil, fmt.Errorf("hbar: derive path: %w", err)
	}
	raw, err := e.hd.GetPrivateKey(child)
	if err != nil {
		return nil, fmt.Errorf("hbar: private key: %w", err)
	}
	// Ed25519 needs a 32-byte seed, not a secp256k1 scalar; hash the
	// BIP32 child key down to the seed length the curve expects.
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
		return fmt.Errorf("hbar: key must be a %d-byte ed25519 seed", ed25519.SeedSize)
	}
	return e.sign(t, ed25519.NewKeyFromSeed(key))
}

func (e *engine) sign(t *transfer.Transfer, key ed25519.PrivateKey) error {
	p, ok := e.lookupPayload(t)
	if !ok {
		return fmt.Errorf("hbar: no transaction payload for transfer %s", t.ID())
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
		return nil, fmt.Errorf("hbar: recover transfer: invalid amount %q", tb.Amount)
	}
	direction := transfer.Received
	feeBasis := feebasis.FeeBasis{}
	if tb.Fee != nil {
		direction = transfer.Sent
		if feeValue, ok := new(big.Int).SetString(*tb.Fee, 10); ok {
			feeBasis = feebasis.New(chain.HBAR, u, 1.0, chain.NewAmount(u, feeValue), &feePayload{Tinybar: feeValue.Int64()})
		}
	}

	t := transfer.New(tb.Hash, chain.HBAR, chain.NewAddress(chain.HBAR, tb.From), chain.NewAddress(chain.HBAR, tb.To), u, u, chain.NewAmount(u, amountValue), direction, feeBasis, tb.Attributes, "", nil)
	h := sha256.Sum256([]byte(tb.Hash))
	t.SetHash(chain.NewHash(chain.HBAR, h[:]))

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
