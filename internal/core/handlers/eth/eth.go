// Package eth implements the Ethereum (and ERC-20) chain handler,
// reusing github.com/arcsign/chainadapter/ethereum's EIP-1559
// transaction builder and go-ethereum's crypto/common packages
// directly rather than re-deriving gas-fee math and Keccak addressing
// from scratch.
package eth

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	chainadapter "github.com/arcsign/chainadapter"
	ethadapter "github.com/arcsign/chainadapter/ethereum"

	"github.com/arcsign/walletkit/internal/core/attribute"
	"github.com/arcsign/walletkit/internal/core/bundle"
	"github.com/arcsign/walletkit/internal/core/chain"
	"github.com/arcsign/walletkit/internal/core/feebasis"
	"github.com/arcsign/walletkit/internal/core/handler"
	"github.com/arcsign/walletkit/internal/core/transfer"
	"github.com/arcsign/walletkit/internal/core/wallet"
	"github.com/arcsign/walletkit/internal/services/hdkey"
)

// coinType is SLIP-44's Ethereum entry; derivationPath is the BIP44
// path src/chainadapter/ethereum/derive.go validates against.
const coinType = 60

const derivationPath = "m/44'/60'/0'/0/0"

// defaultGasLimit is the simple-transfer gas cost; ERC-20 transfers
// (unit != unitForFee, spec §8 S2) use a token-transfer gas limit
// instead since they execute contract code.
const (
	defaultGasLimit    = uint64(21000)
	erc20TransferGas   = uint64(65000)
	mainnetChainID     = int64(1)
)

// txPayload is the handler's side table for in-flight transaction
// bytes; transfer.Transfer carries no chain-specific payload field
// (spec §4.3), so each handler keeps its own map keyed by transfer ID.
type txPayload struct {
	unsigned *chainadapter.UnsignedTransaction
	signed   *chainadapter.SignedTransaction
}

// feePayload is the ETH feebasis.Payload: gas limit plus EIP-1559
// fee cap/tip, matching src/chainadapter/ethereum/fee.go's shape.
type feePayload struct {
	GasLimit             uint64 `json:"gasLimit"`
	MaxFeePerGasWei      string `json:"maxFeePerGasWei"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGasWei"`
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
	return *p == *op
}

func decodeFeePayload(data []byte) (*feePayload, error) {
	var p feePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("eth: decode fee payload: %w", err)
	}
	return &p, nil
}

type wireTransfer struct {
	ID                 string `json:"id"`
	Tag                string `json:"tag"`
	Source             string `json:"source"`
	Target             string `json:"target"`
	WalletID           string `json:"walletId"`
	Direction          string `json:"direction"`
	AmountValue        string `json:"amountValue"`
	UnitSymbol         string `json:"unitSymbol"`
	UnitBase           string `json:"unitBase"`
	UnitDecimals       int32  `json:"unitDecimals"`
	UnitForFeeSymbol   string `json:"unitForFeeSymbol"`
	UnitForFeeBase     string `json:"unitForFeeBase"`
	UnitForFeeDecimals int32  `json:"unitForFeeDecimals"`
	HashHex            string `json:"hashHex"`
	FeeBasisEstimated  []byte `json:"feeBasisEstimated"`
}

type engine struct {
	hd      *hdkey.HDKeyService
	builder *ethadapter.TransactionBuilder

	mu       sync.Mutex
	payloads map[string]*txPayload
	nonces   map[string]uint64 // per-address local nonce counter
}

// NewSet constructs the ETH handler.Set. Register it under chain.ETH
// and reuse it for ERC-20 transfers too (spec §8 S2: only Unit
// differs; UnitForFee stays ETH).
func NewSet() *handler.Set {
	e := &engine{
		hd:       hdkey.NewHDKeyService(),
		builder:  ethadapter.NewTransactionBuilder(mainnetChainID),
		payloads: make(map[string]*txPayload),
		nonces:   make(map[string]uint64),
	}

	return &handler.Set{
		Tag: chain.ETH,
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
			EstimateLimit:                        e.estimateLimit,
			EstimateFeeBasis:                      e.estimateFeeBasis,
			SignTransactionWithSeed:                e.signTransactionWithSeed,
			SignTransactionWithKey:                 e.signTransactionWithKey,
			RecoverTransfersFromTransactionBundle:  e.recoverTransfersFromTransactionBundle,
			RecoverTransfersFromTransferBundle:     e.recoverTransfersFromTransferBundle,
			RecoverFeeBasisFromFeeEstimate:         e.recoverFeeBasisFromFeeEstimate,
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

func (e *engine) weiUnit() chain.Unit {
	return chain.Unit{Tag: chain.ETH, Symbol: "wei", Base: "ETH", Decimals: 18}
}

func (e *engine) getAddress(w handler.WalletHandle) chain.Address {
	ww := w.(*wallet.Wallet)
	return chain.NewAddress(chain.ETH, ww.ID)
}

func (e *engine) hasAddress(w handler.WalletHandle, addr chain.Address) bool {
	return e.getAddress(w).Equal(addr)
}

// attributeCount is 0: Ethereum transfers carry no required
// attributes in this wallet-core rendition (a full implementation
// would model ERC-20 approval/allowance metadata, which spec.md §1
// scopes out as contract-execution semantics).
func (e *engine) attributeCount(w handler.WalletHandle) int                     { return 0 }
func (e *engine) attributeAt(w handler.WalletHandle, i int) *attribute.Attribute { return nil }

func (e *engine) validateTransferAttribute(w handler.WalletHandle, a *attribute.Attribute) error {
	if a == nil {
		return nil
	}
	return fmt.Errorf("eth: %w: %s is not a recognized attribute for ETH", attribute.ErrMismatchedType, a.Key())
}

func (e *engine) getAddressesForRecovery(w handler.WalletHandle) []chain.Address {
	ww := w.(*wallet.Wallet)
	return []chain.Address{chain.NewAddress(chain.ETH, ww.ID)}
}

func (e *engine) transferIsEqual(a, b *transfer.Transfer) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Hash().Equal(b.Hash())
}

func (e *engine) nextNonce(address string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.nonces[address]
	e.nonces[address] = n + 1
	return n
}

func (e *engine) createTransfer(w handler.WalletHandle, target chain.Address, amount chain.Amount, fb feebasis.FeeBasis, attrs []*attribute.Attribute) (*transfer.Transfer, error) {
	if len(attrs) > 0 {
		return nil, fmt.Errorf("eth: ETH accepts no transfer attributes")
	}
	ww := w.(*wallet.Wallet)

	gasLimit := defaultGasLimit
	maxFee := big.NewInt(20_000_000_000) // 20 Gwei fallback
	maxPriority := big.NewInt(1_500_000_000)
	isToken := !ww.Unit.Compatible(ww.UnitForFee)
	if isToken {
		gasLimit = erc20TransferGas
	}
	if fp, ok := fb.Payload.(*feePayload); ok {
		if fp.GasLimit > 0 {
			gasLimit = fp.GasLimit
		}
		if v, ok := new(big.Int).SetString(fp.MaxFeePerGasWei, 10); ok && v.Sign() > 0 {
			maxFee = v
		}
		if v, ok := new(big.Int).SetString(fp.MaxPriorityFeePerGas, 10); ok && v.Sign() > 0 {
			maxPriority = v
		}
	}

	req := &chainadapter.TransactionRequest{
		From:     ww.ID,
		To:       target.String(),
		Asset:    "ETH",
		Amount:   amount.Value(),
		FeeSpeed: chainadapter.FeeSpeedNormal,
	}

	nonce := e.nextNonce(ww.ID)
	unsigned, err := e.builder.Build(context.Background(), req, nonce, gasLimit, maxFee, maxPriority)
	if err != nil {
		return nil, fmt.Errorf("eth: build transaction: %w", err)
	}

	t := transfer.New(
		unsigned.ID,
		chain.ETH,
		chain.NewAddress(chain.ETH, ww.ID),
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
	hashBytes, err := hex.DecodeString(trimHexPrefix(unsigned.ID))
	if err != nil {
		hashBytes = []byte(unsigned.ID)
	}
	t.SetHash(chain.NewHash(chain.ETH, hashBytes))

	e.mu.Lock()
	e.payloads[t.ID()] = &txPayload{unsigned: unsigned}
	e.mu.Unlock()

	return t, nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
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
		return nil, fmt.Errorf("eth: no transaction payload for transfer %s", t.ID())
	}
	if requireSignature {
		if p.signed == nil {
			return nil, fmt.Errorf("eth: transfer %s is not yet signed", t.ID())
		}
		return p.signed.SerializedTx, nil
	}
	return p.unsigned.SigningPayload, nil
}

func (e *engine) bytesForFeeEstimate(t *transfer.Transfer) ([]byte, error) {
	p, ok := e.lookupPayload(t)
	if !ok {
		return nil, fmt.Errorf("eth: no transaction payload for transfer %s", t.ID())
	}
	return p.unsigned.SigningPayload, nil
}

func (e *engine) encodeTransfer(t *transfer.Transfer) ([]byte, error) {
	fbBytes, err := feebasis.Encode(t.FeeBasisEstimated)
	if err != nil {
		return nil, fmt.Errorf("eth: encode fee basis: %w", err)
	}
	w := wireTransfer{
		ID:                 t.ID(),
		Tag:                string(t.Tag),
		Source:             t.Source.String(),
		Target:             t.Target.String(),
		WalletID:           t.Source.String(),
		Direction:          string(t.Direction),
		AmountValue:        t.Amount.Value().String(),
		UnitSymbol:         t.Unit.Symbol,
		UnitBase:           t.Unit.Base,
		UnitDecimals:       t.Unit.Decimals,
		UnitForFeeSymbol:   t.UnitForFee.Symbol,
		UnitForFeeBase:     t.UnitForFee.Base,
		UnitForFeeDecimals: t.UnitForFee.Decimals,
		HashHex:            hex.EncodeToString(t.Hash().Bytes()),
		FeeBasisEstimated:  fbBytes,
	}
	return json.Marshal(w)
}

func (e *engine) decodeTransfer(data []byte) (*transfer.Transfer, error) {
	var w wireTransfer
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("eth: decode transfer: %w", err)
	}
	unit := chain.Unit{Tag: chain.ETH, Symbol: w.UnitSymbol, Base: w.UnitBase, Decimals: w.UnitDecimals}
	unitForFee := chain.Unit{Tag: chain.ETH, Symbol: w.UnitForFeeSymbol, Base: w.UnitForFeeBase, Decimals: w.UnitForFeeDecimals}
	amountValue, ok := new(big.Int).SetString(w.AmountValue, 10)
	if !ok {
		return nil, fmt.Errorf("eth: decode transfer: invalid amount %q", w.AmountValue)
	}
	fb, payloadBytes, err := feebasis.DecodeGeneric(w.FeeBasisEstimated)
	if err != nil {
		return nil, fmt.Errorf("eth: decode transfer: %w", err)
	}
	if len(payloadBytes) > 0 {
		if p, err := decodeFeePayload(payloadBytes); err == nil {
			fb.Payload = p
		}
	}
	t := transfer.New(
		w.ID,
		chain.Tag(w.Tag),
		chain.NewAddress(chain.ETH, w.Source),
		chain.NewAddress(chain.ETH, w.Target),
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
		return nil, fmt.Errorf("eth: decode transfer: invalid hash %q", w.HashHex)
	}
	t.SetHash(chain.NewHash(chain.ETH, hashBytes))
	return t, nil
}

func (e *engine) estimateLimit(ctx context.Context, target chain.Address, amount chain.Amount) (uint64, error) {
	return 0, handler.ErrNotSupported
}

// estimateFeeBasis always routes through the asynchronous indexer
// path: EIP-1559 base fee needs the latest block, which src/chainadapter
// /ethereum/fee.go's FeeEstimator fetches over RPC the handler doesn't
// have direct access to (spec §8 S2's ERC-20 fee-mismatch scenario
// exercises the resulting feebasis.FeeBasis shape, not this call).
func (e *engine) estimateFeeBasis(ctx context.Context, target chain.Address, amount chain.Amount, networkFee *chain.Amount, attrs []*attribute.Attribute) (feebasis.FeeBasis, bool, error) {
	return feebasis.FeeBasis{}, false, nil
}

func (e *engine) recoverFeeBasisFromFeeEstimate(costUnits uint64, attrs []*attribute.Attribute) (feebasis.FeeBasis, error) {
	gasPrice := int64(costUnits)
	if gasPrice <= 0 {
		gasPrice = 20_000_000_000
	}
	payload := &feePayload{
		GasLimit:             defaultGasLimit,
		MaxFeePerGasWei:      big.NewInt(gasPrice).String(),
		MaxPriorityFeePerGas: big.NewInt(1_500_000_000).String(),
	}
	weiUnit := e.weiUnit()
	costFactor := float64(defaultGasLimit)
	price := chain.NewAmount(weiUnit, big.NewInt(gasPrice))
	return feebasis.New(chain.ETH, weiUnit, costFactor, price, payload), nil
}

func (e *engine) deriveKey(seed []byte) ([]byte, error) {
	master, err := e.hd.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("eth: master key: %w", err)
	}
	child, err := e.hd.DerivePath(master, derivationPath)
	if err != nil {
		return nil, fmt.Errorf("eth: derive path: %w", err)
	}
	return e.hd.GetPrivateKey(child)
}

func (e *engine) signTransactionWithSeed(t *transfer.Transfer, seed []byte) error {
	key, err := e.deriveKey(seed)
	if err != nil {
		return err
	}
	return e.sign(t, key)
}

func (e *engine) signTransactionWithKey(t *transfer.Transfer, key []byte) error {
	return e.sign(t, key)
}

// sign reproduces go-ethereum's crypto.Sign convention directly over
// the transaction hash the builder already computed as SigningPayload
// (src/chainadapter/ethereum/builder.go's txHash.Bytes()), the same
// ECDSA primitive types.SignTx uses internally.
func (e *engine) sign(t *transfer.Transfer, key []byte) error {
	priv, err := crypto.ToECDSA(key)
	if err != nil {
		return fmt.Errorf("eth: invalid private key: %w", err)
	}
	p, ok := e.lookupPayload(t)
	if !ok {
		return fmt.Errorf("eth: no transaction payload for transfer %s", t.ID())
	}

	sig, err := crypto.Sign(p.unsigned.SigningPayload, priv)
	if err != nil {
		return fmt.Errorf("eth: sign: %w", err)
	}

	from := crypto.PubkeyToAddress(priv.PublicKey)
	signed := &chainadapter.SignedTransaction{
		UnsignedTx:   p.unsigned,
		Signature:    sig,
		SignedBy:     from.Hex(),
		TxHash:       p.unsigned.ID,
		SerializedTx: append(append([]byte{}, p.unsigned.SigningPayload...), sig...),
	}

	e.mu.Lock()
	p.signed = signed
	e.mu.Unlock()
	return nil
}

// recoverTransfersFromTransferBundle mirrors handlers/btc's heuristic:
// Direction cannot be determined from the global handler set alone
// (spec §4.1's vtables have no per-account context), so a bundle
// reporting a fee is treated as ours (SENT).
func (e *engine) recoverTransfersFromTransferBundle(tb bundle.TransferBundle) (*transfer.Transfer, error) {
	weiUnit := e.weiUnit()
	amountValue, ok := new(big.Int).SetString(tb.Amount, 10)
	if !ok {
		return nil, fmt.Errorf("eth: recover transfer: invalid amount %q", tb.Amount)
	}
	unit := weiUnit
	if tb.Currency != "" && tb.Currency != "ETH" && tb.Currency != "wei" {
		unit = chain.Unit{Tag: chain.ETH, Symbol: tb.Currency, Base: tb.Currency, Decimals: 18}
	}
	direction := transfer.Received
	feeBasis := feebasis.FeeBasis{}
	if tb.Fee != nil {
		direction = transfer.Sent
		if feeValue, ok := new(big.Int).SetString(*tb.Fee, 10); ok {
			feeBasis = feebasis.New(chain.ETH, weiUnit, 1.0, chain.NewAmount(weiUnit, feeValue), nil)
		}
	}

	t := transfer.New(
		tb.Hash,
		chain.ETH,
		chain.NewAddress(chain.ETH, tb.From),
		chain.NewAddress(chain.ETH, tb.To),
		unit,
		weiUnit,
		chain.NewAmount(unit, amountValue),
		direction,
		feeBasis,
		tb.Attributes,
		"",
		nil,
	)
	hashBytes, err := hex.DecodeString(trimHexPrefix(tb.Hash))
	if err != nil {
		hashBytes = []byte(tb.Hash)
	}
	t.SetHash(chain.NewHash(chain.ETH, hashBytes))

	if tb.Status == bundle.StatusConfirmed {
		t.SetState(transfer.State{Kind: transfer.Signed})
		t.SetState(transfer.State{Kind: transfer.Submitted})
		t.SetState(transfer.NewIncludedState(tb.BlockNumber, tb.BlockIndex, tb.BlockTimestamp, feeBasis, true, ""))
	}

	return t, nil
}

// recoverTransfersFromTransactionBundle is unsupported: ETH, like the
// Bitcoin family, reconciles via per-transfer rows (ByTransfers).
func (e *engine) recoverTransfersFromTransactionBundle(tb bundle.TransactionBundle) ([]*transfer.Transfer, error) {
	return nil, handler.ErrNotSupported
}
