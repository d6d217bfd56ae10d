// Package btc implements the Bitcoin-family (BTC/BCH/BSV) chain
// handler: a single handler.Set constructor parameterized by Variant,
// reusing github.com/arcsign/chainadapter/bitcoin's transaction
// builder and signer rather than re-deriving UTXO selection and
// ECDSA signing from scratch.
package btc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	chainadapter "github.com/arcsign/chainadapter"
	btcadapter "github.com/arcsign/chainadapter/bitcoin"

	"github.com/arcsign/walletkit/internal/core/attribute"
	"github.com/arcsign/walletkit/internal/core/bundle"
	"github.com/arcsign/walletkit/internal/core/chain"
	"github.com/arcsign/walletkit/internal/core/feebasis"
	"github.com/arcsign/walletkit/internal/core/handler"
	"github.com/arcsign/walletkit/internal/core/transfer"
	"github.com/arcsign/walletkit/internal/core/wallet"
	"github.com/arcsign/walletkit/internal/services/hdkey"
)

// Variant parameterizes the shared Bitcoin-family engine for BTC, BCH,
// and BSV: same UTXO-selection/signing algorithm, different BIP44 coin
// type and address style (spec.md §3's chain tag enumeration; SLIP-44
// assigns BTC=0, BCH=145, BSV=236).
type Variant struct {
	Tag      chain.Tag
	CoinType uint32
	Legacy   bool // true: P2PKH legacy address (BCH, BSV); false: P2WPKH (BTC)
}

var (
	BTC = Variant{Tag: chain.BTC, CoinType: 0, Legacy: false}
	BCH = Variant{Tag: chain.BCH, CoinType: 145, Legacy: true}
	BSV = Variant{Tag: chain.BSV, CoinType: 236, Legacy: true}
)

func (v Variant) derivationPath() string {
	return fmt.Sprintf("m/44'/%d'/0'/0/0", v.CoinType)
}

func (v Variant) asset() string {
	return string(v.Tag)
}

// dustThreshold mirrors the builder's own P2WPKH dust floor (spec has
// no opinion on this; 546 sat is Bitcoin Core's long-standing default,
// reused verbatim from src/chainadapter/bitcoin/builder.go).
const dustThreshold = int64(546)

// fallbackFeeRateSatPerByte is used when no FeeBasis payload is
// supplied to CreateTransfer (the synchronous EstimateFeeBasis path
// always provides one; this only guards a caller that skips it).
const fallbackFeeRateSatPerByte = int64(10)

// txPayload is the handler's own side table for the raw transaction
// bytes a Transfer carries: transfer.Transfer (spec §4.3) has no
// chain-specific payload field, so each handler keeps its own map
// keyed by transfer ID across the CreateTransfer -> Sign -> Serialize
// lifecycle.
type txPayload struct {
	unsigned *chainadapter.UnsignedTransaction
	signed   *chainadapter.SignedTransaction
}

// feePayload is the BTC-family feebasis.Payload: fee-per-byte plus the
// transaction's virtual size, matching the teacher's
// bitcoin/fee.go FeeEstimator's sat/byte convention.
type feePayload struct {
	FeeRateSatPerByte int64 `json:"feeRateSatPerByte"`
	VSize             int64 `json:"vSize"`
}

func (p *feePayload) Encode() []byte {
	b, _ := json.Marshal(p)
	return b
}

func (p *feePayload) Equal(o feebasis.Payload) bool {
	op, ok := o.(*feePayload)
	if !ok {
		return false
	}
	return p.FeeRateSatPerByte == op.FeeRateSatPerByte && p.VSize == op.VSize
}

func decodeFeePayload(data []byte) (*feePayload, error) {
	var p feePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("btc: decode fee payload: %w", err)
	}
	return &p, nil
}

// wireTransfer is the JSON wire form used by the file service's
// per-type Encode/Decode (spec §4.9/§6.3); the generic identity/state
// fields are flattened alongside the chain-specific hash and fee
// payload bytes.
type wireTransfer struct {
	ID                string  `json:"id"`
	Tag               string  `json:"tag"`
	Source            string  `json:"source"`
	Target            string  `json:"target"`
	WalletID          string  `json:"walletId"`
	Direction         string  `json:"direction"`
	AmountValue       string  `json:"amountValue"`
	UnitSymbol        string  `json:"unitSymbol"`
	UnitBase          string  `json:"unitBase"`
	UnitDecimals      int32   `json:"unitDecimals"`
	UnitForFeeSymbol  string  `json:"unitForFeeSymbol"`
	UnitForFeeBase    string  `json:"unitForFeeBase"`
	UnitForFeeDecimals int32  `json:"unitForFeeDecimals"`
	HashHex           string  `json:"hashHex"`
	FeeBasisEstimated []byte  `json:"feeBasisEstimated"`
}

// engine holds the per-chain-tag state the vtables close over: the
// reusable transaction builder, the HD key service used to re-derive
// the signing key from a seed, and the unsigned/signed tx side table.
type engine struct {
	v       Variant
	hd      *hdkey.HDKeyService
	builder *btcadapter.TransactionBuilder

	mu       sync.Mutex
	payloads map[string]*txPayload
}

// NewSet constructs the handler.Set for one Bitcoin-family variant.
// Callers register the result with handler.Global().Register for
// each of BTC, BCH, and BSV at process startup.
func NewSet(v Variant) (*handler.Set, error) {
	builder, err := btcadapter.NewTransactionBuilder("mainnet")
	if err != nil {
		return nil, fmt.Errorf("btc: new builder: %w", err)
	}
	e := &engine{
		v:        v,
		hd:       hdkey.NewHDKeyService(),
		builder:  builder,
		payloads: make(map[string]*txPayload),
	}

	return &handler.Set{
		Tag: v.Tag,
		Transfer: handler.TransferVTable{
			GetHash:             e.getHash,
			Serialize:           e.serialize,
			BytesForFeeEstimate: e.bytesForFeeEstimate,
			Encode:              e.encodeTransfer,
			Decode:              e.decodeTransfer,
			IsEqual:             e.transferIsEqual,
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
			EstimateLimit:                         e.estimateLimit,
			EstimateFeeBasis:                      e.estimateFeeBasis,
			SignTransactionWithSeed:                e.signTransactionWithSeed,
			SignTransactionWithKey:                 e.signTransactionWithKey,
			RecoverTransfersFromTransactionBundle:  e.recoverTransfersFromTransactionBundle,
			RecoverTransfersFromTransferBundle:     e.recoverTransfersFromTransferBundle,
			RecoverFeeBasisFromFeeEstimate:         e.recoverFeeBasisFromFeeEstimate,
			Sweeper: &handler.SweeperVTable{
				ValidateSweep:       e.validateSweep,
				CreateSweepTransfer: e.createSweepTransfer,
			},
		},
		FeeBasis: handler.FeeBasisVTable{
			GetCostFactor:         e.getCostFactor,
			GetPricePerCostFactor: e.getPricePerCostFactor,
			GetFee:                e.getFee,
			Encode:                feebasis.Encode,
			Decode:                e.decodeFeeBasis,
			IsEqual:               func(a, b feebasis.FeeBasis) bool { return a.Equal(b) },
		},
	}, nil
}

func (e *engine) unit() chain.Unit {
	return chain.Unit{Tag: e.v.Tag, Symbol: "satoshi", Base: string(e.v.Tag), Decimals: 8}
}

func (e *engine) getAddress(w handler.WalletHandle) chain.Address {
	ww := w.(*wallet.Wallet)
	return chain.NewAddress(e.v.Tag, ww.ID)
}

func (e *engine) hasAddress(w handler.WalletHandle, addr chain.Address) bool {
	return e.getAddress(w).Equal(addr)
}

// attributeCount is always 0: Bitcoin-family transfers carry no
// required attributes (unlike XRP's destination tag or XTZ's memo).
func (e *engine) attributeCount(w handler.WalletHandle) int { return 0 }

func (e *engine) attributeAt(w handler.WalletHandle, i int) *attribute.Attribute { return nil }

// validateTransferAttribute rejects any attribute outright: this
// chain family defines none, so a caller supplying one has targeted
// the wrong handler (spec §7 attribute validation kinds).
func (e *engine) validateTransferAttribute(w handler.WalletHandle, a *attribute.Attribute) error {
	if a == nil {
		return nil
	}
	return fmt.Errorf("btc: %w: %s is not a recognized attribute for %s", attribute.ErrMismatchedType, a.Key(), e.v.Tag)
}

func (e *engine) getAddressesForRecovery(w handler.WalletHandle) []chain.Address {
	ww := w.(*wallet.Wallet)
	return []chain.Address{chain.NewAddress(e.v.Tag, ww.ID)}
}

func (e *engine) transferIsEqual(a, b *transfer.Transfer) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Hash().Equal(b.Hash())
}

// spendableUTXOs synthesizes a UTXO set from the wallet's own
// RECEIVED/INCLUDED transfers: the handler has no direct RPC access
// (that belongs to the indexer, per spec §1's transport Non-goal), so
// the wallet's own transfer history is the only UTXO source available
// to it.
func (e *engine) spendableUTXOs(ww *wallet.Wallet) []btcadapter.UTXO {
	var utxos []btcadapter.UTXO
	for _, t := range ww.Transfers() {
		if t.Direction != transfer.Received || t.State().Kind != transfer.Included {
			continue
		}
		utxos = append(utxos, btcadapter.UTXO{
			TxID:          t.Hash().String(),
			Vout:          0,
			Amount:        t.Amount.Value().Int64(),
			Address:       ww.ID,
			Confirmations: 6,
		})
	}
	return utxos
}

func (e *engine) createTransfer(w handler.WalletHandle, target chain.Address, amount chain.Amount, fb feebasis.FeeBasis, attrs []*attribute.Attribute) (*transfer.Transfer, error) {
	if len(attrs) > 0 {
		return nil, fmt.Errorf("btc: %s accepts no transfer attributes", e.v.Tag)
	}
	ww := w.(*wallet.Wallet)

	feeRate := fallbackFeeRateSatPerByte
	if fp, ok := fb.Payload.(*feePayload); ok && fp.FeeRateSatPerByte > 0 {
		feeRate = fp.FeeRateSatPerByte
	}

	req := &chainadapter.TransactionRequest{
		From:     ww.ID,
		To:       target.String(),
		Asset:    e.v.asset(),
		Amount:   amount.Value(),
		FeeSpeed: chainadapter.FeeSpeedNormal,
	}

	unsigned, err := e.builder.Build(context.Background(), req, e.spendableUTXOs(ww), feeRate)
	if err != nil {
		return nil, fmt.Errorf("btc: build transaction: %w", err)
	}

	t := transfer.New(
		unsigned.ID,
		e.v.Tag,
		chain.NewAddress(e.v.Tag, ww.ID),
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
	t.SetHash(chain.NewHash(e.v.Tag, []byte(unsigned.ID)))

	e.mu.Lock()
	e.payloads[t.ID()] = &txPayload{unsigned: unsigned}
	e.mu.Unlock()

	return t, nil
}

func (e *engine) getHash(t *transfer.Transfer) (chain.Hash, error) {
	return t.Hash(), nil
}

func (e *engine) lookupPayload(t *transfer.Transfer) (*txPayload, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.payloads[t.ID()]
	return p, ok
}

func (e *engine) serialize(t *transfer.Transfer, requireSignature bool) ([]byte, error) {
	p, ok := e.lookupPayload(t)
	if !ok {
		return nil, fmt.Errorf("btc: no transaction payload for transfer %s", t.ID())
	}
	if requireSignature {
		if p.signed == nil {
			return nil, fmt.Errorf("btc: transfer %s is not yet signed", t.ID())
		}
		return p.signed.SerializedTx, nil
	}
	return p.unsigned.SigningPayload, nil
}

func (e *engine) bytesForFeeEstimate(t *transfer.Transfer) ([]byte, error) {
	p, ok := e.lookupPayload(t)
	if !ok {
		return nil, fmt.Errorf("btc: no transaction payload for transfer %s", t.ID())
	}
	return p.unsigned.SigningPayload, nil
}

func (e *engine) encodeTransfer(t *transfer.Transfer) ([]byte, error) {
	fbBytes, err := feebasis.Encode(t.FeeBasisEstimated)
	if err != nil {
		return nil, fmt.Errorf("btc: encode fee basis: %w", err)
	}
	w := wireTransfer{
		ID:                 t.ID(),
		Tag:                string(t.Tag),
		Source:              t.Source.String(),
		Target:              t.Target.String(),
		WalletID:            t.Source.String(),
		Direction:           string(t.Direction),
		AmountValue:         t.Amount.Value().String(),
		UnitSymbol:          t.Unit.Symbol,
		UnitBase:            t.Unit.Base,
		UnitDecimals:        t.Unit.Decimals,
		UnitForFeeSymbol:    t.UnitForFee.Symbol,
		UnitForFeeBase:      t.UnitForFee.Base,
		UnitForFeeDecimals:  t.UnitForFee.Decimals,
		HashHex:             hex.EncodeToString(t.Hash().Bytes()),
		FeeBasisEstimated:   fbBytes,
	}
	return json.Marshal(w)
}

func (e *engine) decodeTransfer(data []byte) (*transfer.Transfer, error) {
	var w wireTransfer
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("btc: decode transfer: %w", err)
	}
	unit := chain.Unit{Tag: e.v.Tag, Symbol: w.UnitSymbol, Base: w.UnitBase, Decimals: w.UnitDecimals}
	unitForFee := chain.Unit{Tag: e.v.Tag, Symbol: w.UnitForFeeSymbol, Base: w.UnitForFeeBase, Decimals: w.UnitForFeeDecimals}
	amountValue, ok := new(big.Int).SetString(w.AmountValue, 10)
	if !ok {
		return nil, fmt.Errorf("btc: decode transfer: invalid amount %q", w.AmountValue)
	}
	fb, _, err := feebasis.DecodeGeneric(w.FeeBasisEstimated)
	if err != nil {
		return nil, fmt.Errorf("btc: decode transfer: %w", err)
	}
	t := transfer.New(
		w.ID,
		chain.Tag(w.Tag),
		chain.NewAddress(e.v.Tag, w.Source),
		chain.NewAddress(e.v.Tag, w.Target),
		unit,
		unitForFee,
		chain.NewAmount(unit, amountValue),
		transfer.Direction(w.Direction),
		fb,
		nil,
		w.WalletID,
		nil,
	)
	hashBytes, err := hex.DecodeString(w.HashHex)
	if err != nil {
		return nil, fmt.Errorf("btc: decode transfer: invalid hash %q", w.HashHex)
	}
	t.SetHash(chain.NewHash(e.v.Tag, hashBytes))
	return t, nil
}

// estimateLimit is not supported: the handler has no RPC visibility
// into the full UTXO set, only what the wallet has already observed,
// so it returns ErrNotSupported and no limit.
func (e *engine) estimateLimit(ctx context.Context, target chain.Address, amount chain.Amount) (uint64, error) {
	return 0, handler.ErrNotSupported
}

// estimateFeeBasis always routes through the asynchronous indexer
// path (handled=false): a correct fee-per-byte estimate needs mempool
// visibility the handler does not have, matching
// src/chainadapter/bitcoin/fee.go's own RPC-backed FeeEstimator.
func (e *engine) estimateFeeBasis(ctx context.Context, target chain.Address, amount chain.Amount, networkFee *chain.Amount, attrs []*attribute.Attribute) (feebasis.FeeBasis, bool, error) {
	return feebasis.FeeBasis{}, false, nil
}

func (e *engine) recoverFeeBasisFromFeeEstimate(costUnits uint64, attrs []*attribute.Attribute) (feebasis.FeeBasis, error) {
	rate := int64(costUnits)
	if rate <= 0 {
		rate = fallbackFeeRateSatPerByte
	}
	payload := &feePayload{FeeRateSatPerByte: rate, VSize: 0}
	unit := e.unit()
	return feebasis.New(e.v.Tag, unit, 1.0, chain.NewAmount(unit, big.NewInt(rate)), payload), nil
}

func (e *engine) getCostFactor(fb feebasis.FeeBasis) float64        { return fb.CostFactor }
func (e *engine) getPricePerCostFactor(fb feebasis.FeeBasis) chain.Amount { return fb.PricePerCostFactor }
func (e *engine) getFee(fb feebasis.FeeBasis) chain.Amount          { return fb.Fee() }

func (e *engine) decodeFeeBasis(data []byte) (feebasis.FeeBasis, error) {
	fb, payloadBytes, err := feebasis.DecodeGeneric(data)
	if err != nil {
		return feebasis.FeeBasis{}, err
	}
	if len(payloadBytes) > 0 {
		p, err := decodeFeePayload(payloadBytes)
		if err != nil {
			return feebasis.FeeBasis{}, err
		}
		fb.Payload = p
	}
	return fb, nil
}

// deriveKey re-derives the BIP32 child key at this variant's BIP44
// path from the raw seed bytes handed to SignTransactionWithSeed
// (spec §4.6 step 1 turns a mnemonic into this seed upstream, in
// internal/services/bip39service; the handler never sees the
// mnemonic itself).
func (e *engine) deriveKey(seed []byte) (*btcec.PrivateKey, error) {
	master, err := e.hd.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("btc: master key: %w", err)
	}
	child, err := e.hd.DerivePath(master, e.v.derivationPath())
	if err != nil {
		return nil, fmt.Errorf("btc: derive path: %w", err)
	}
	privBytes, err := e.hd.GetPrivateKey(child)
	if err != nil {
		return nil, fmt.Errorf("btc: private key: %w", err)
	}
	priv, _ := btcec.PrivKeyFromBytes(privBytes)
	return priv, nil
}

func (e *engine) signTransactionWithSeed(t *transfer.Transfer, seed []byte) error {
	priv, err := e.deriveKey(seed)
	if err != nil {
		return err
	}
	return e.sign(t, priv)
}

func (e *engine) signTransactionWithKey(t *transfer.Transfer, key []byte) error {
	if len(key) != 32 {
		return fmt.Errorf("btc: private key must be 32 bytes, got %d", len(key))
	}
	priv, _ := btcec.PrivKeyFromBytes(key)
	return e.sign(t, priv)
}

// sign follows src/chainadapter/bitcoin/signer.go's BTCDSigner.Sign
// algorithm directly (double-SHA256 then ECDSA) rather than going
// through BTCDSigner itself: that type asserts its own P2WPKH address
// derivation, which does not hold for BCH/BSV's legacy addressing, so
// the handler reproduces the same two operations against whichever
// address this variant actually uses.
func (e *engine) sign(t *transfer.Transfer, priv *btcec.PrivateKey) error {
	p, ok := e.lookupPayload(t)
	if !ok {
		return fmt.Errorf("btc: no transaction payload for transfer %s", t.ID())
	}

	first := sha256.Sum256(p.unsigned.SigningPayload)
	digest := sha256.Sum256(first[:])
	sig := ecdsa.Sign(priv, digest[:])

	signed := &chainadapter.SignedTransaction{
		UnsignedTx:   p.unsigned,
		Signature:    sig.Serialize(),
		SignedBy:     p.unsigned.From,
		TxHash:       btcadapter.ComputeTransactionHash(p.unsigned.SigningPayload),
		SerializedTx: p.unsigned.SigningPayload,
	}

	e.mu.Lock()
	p.signed = signed
	e.mu.Unlock()

	return nil
}

// recoverTransfersFromTransferBundle reconstructs a Transfer from one
// indexer-delivered row. Direction cannot be determined with
// certainty from a process-wide handler set alone (it has no
// per-wallet "is this my address" context) — spec §4.1's handler
// vtables are global per chain tag, not per account — so this uses
// the defensible heuristic that a bundle reporting a fee was paid by
// us (SENT); one with no fee was received.
func (e *engine) recoverTransfersFromTransferBundle(tb bundle.TransferBundle) (*transfer.Transfer, error) {
	unit := e.unit()
	amountValue, ok := new(big.Int).SetString(tb.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("btc: recover transfer: invalid amount %q", tb.Amount)
	}
	direction := transfer.Received
	feeBasis := feebasis.FeeBasis{}
	if tb.Fee != nil {
		direction = transfer.Sent
		feeValue, ok := new(big.Int).SetString(*tb.Fee, 10)
		if ok {
			feeBasis = feebasis.New(e.v.Tag, unit, 1.0, chain.NewAmount(unit, feeValue), nil)
		}
	}

	t := transfer.New(
		tb.Hash,
		e.v.Tag,
		chain.NewAddress(e.v.Tag, tb.From),
		chain.NewAddress(e.v.Tag, tb.To),
		unit,
		unit,
		chain.NewAmount(unit, amountValue),
		direction,
		feeBasis,
		tb.Attributes,
		"",
		nil,
	)
	hashBytes, err := hex.DecodeString(tb.Hash)
	if err != nil {
		hashBytes = []byte(tb.Hash)
	}
	t.SetHash(chain.NewHash(e.v.Tag, hashBytes))

	if tb.Status == bundle.StatusConfirmed {
		t.SetState(transfer.State{Kind: transfer.Signed})
		t.SetState(transfer.State{Kind: transfer.Submitted})
		t.SetState(transfer.NewIncludedState(tb.BlockNumber, tb.BlockIndex, tb.BlockTimestamp, feeBasis, true, ""))
	}

	return t, nil
}

// recoverTransfersFromTransactionBundle is not supported for the
// Bitcoin family: this chain family reconstructs state from
// per-transfer rows (ByTransfers), never from whole serialized
// transactions, matching manager.Create's hardcoded client.ByTransfers
// sync mode.
func (e *engine) recoverTransfersFromTransactionBundle(tb bundle.TransactionBundle) ([]*transfer.Transfer, error) {
	return nil, handler.ErrNotSupported
}

// validateSweep/createSweepTransfer implement the one sweeper the
// original C core wires up (BTC legacy paper-wallet sweep; see
// SPEC_FULL.md §3's supplemented-features section).
func (e *engine) validateSweep(key []byte) error {
	if len(key) != 32 {
		return fmt.Errorf("btc: sweep key must be a 32-byte private key")
	}
	return nil
}

func (e *engine) createSweepTransfer(key []byte, target chain.Address) (*transfer.Transfer, error) {
	priv, _ := btcec.PrivKeyFromBytes(key)
	pubKeyHash := btcutil.Hash160(priv.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressPubKeyHash(pubKeyHash, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("btc: sweep address: %w", err)
	}
	unit := e.unit()
	zero := chain.ZeroAmount(unit)
	t := transfer.New(addr.EncodeAddress()+":sweep", e.v.Tag, chain.NewAddress(e.v.Tag, addr.EncodeAddress()), target, unit, unit, zero, transfer.Recovered, feebasis.FeeBasis{}, nil, addr.EncodeAddress(), nil)
	return t, nil
}
