// Package feebasis implements FeeBasis: a polymorphic fee descriptor
// (cost factor x price) with a chain-specific payload, encode/decode,
// and equality.
package feebasis

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/arcsign/walletkit/internal/core/chain"
)

// Payload is the chain-specific data carried alongside the generic
// cost-factor/price pair. Each handler package implements one of
// these (BTC's fee-per-kb + vsize, ETH's gas limit + gas price, XRP's
// fixed drops, HBAR's fixed tinybar, XTZ's estimate/actual distinction).
type Payload interface {
	// Encode returns the payload's network-scoped byte encoding.
	Encode() []byte
	// Equal compares payloads byte-exact; mismatched concrete types
	// are never equal.
	Equal(Payload) bool
}

// FeeBasis is (chain tag, unit, cost factor, price per cost factor,
// chain-specific payload). fee() is always defined by the owning
// handler, even when the cost factor is zero.
type FeeBasis struct {
	Tag              chain.Tag
	Unit             chain.Unit
	CostFactor       float64
	PricePerCostFactor chain.Amount
	Payload          Payload
}

// New constructs a FeeBasis. Construction never fails: a zero cost
// factor is valid and yields a zero fee.
func New(tag chain.Tag, unit chain.Unit, costFactor float64, pricePerCostFactor chain.Amount, payload Payload) FeeBasis {
	return FeeBasis{
		Tag:                tag,
		Unit:               unit,
		CostFactor:         costFactor,
		PricePerCostFactor: pricePerCostFactor,
		Payload:            payload,
	}
}

// Fee derives the fee amount: price x cost factor, truncated toward
// zero to a whole smallest unit. Defined unconditionally, per spec §4.2.
func (f FeeBasis) Fee() chain.Amount {
	priceValue := new(big.Float).SetInt(f.PricePerCostFactor.Value())
	scaledFloat := new(big.Float).Mul(priceValue, big.NewFloat(f.CostFactor))
	scaled, _ := scaledFloat.Int(nil)
	return chain.NewAmount(f.Unit, scaled)
}

// Equal compares chain tag, unit compatibility, and the chain-specific
// payload byte-exact (spec §4.2).
func (f FeeBasis) Equal(o FeeBasis) bool {
	if f.Tag != o.Tag {
		return false
	}
	if !f.Unit.Compatible(o.Unit) {
		return false
	}
	if f.Payload == nil || o.Payload == nil {
		return f.Payload == o.Payload
	}
	return f.Payload.Equal(o.Payload)
}

// wireForm is the JSON encoding used by the file service and
// cross-process transport (spec §4.2 "Encode/decode are used by the
// file service and by cross-process transport").
type wireForm struct {
	Tag                chain.Tag `json:"tag"`
	UnitSymbol         string    `json:"unitSymbol"`
	UnitBase           string    `json:"unitBase"`
	UnitDecimals       int32     `json:"unitDecimals"`
	CostFactor         float64   `json:"costFactor"`
	PricePerCostFactor string    `json:"pricePerCostFactor"`
	PayloadBytes       []byte    `json:"payload"`
}

// Encode serializes the FeeBasis's generic fields; the chain-specific
// payload is embedded as an opaque byte string produced by its own
// Encode. Decoding the payload back into its concrete type is the
// owning handler's responsibility (it alone knows which Payload
// implementation its chain tag uses).
func Encode(f FeeBasis) ([]byte, error) {
	var payloadBytes []byte
	if f.Payload != nil {
		payloadBytes = f.Payload.Encode()
	}
	w := wireForm{
		Tag:                f.Tag,
		UnitSymbol:         f.Unit.Symbol,
		UnitBase:           f.Unit.Base,
		UnitDecimals:       f.Unit.Decimals,
		CostFactor:         f.CostFactor,
		PricePerCostFactor: f.PricePerCostFactor.Value().String(),
		PayloadBytes:       payloadBytes,
	}
	return json.Marshal(w)
}

// DecodeGeneric decodes everything except the chain-specific payload,
// returning the raw payload bytes for the caller's handler-specific
// decoder to finish the job.
func DecodeGeneric(data []byte) (FeeBasis, []byte, error) {
	var w wireForm
	if err := json.Unmarshal(data, &w); err != nil {
		return FeeBasis{}, nil, fmt.Errorf("feebasis: decode: %w", err)
	}
	unit := chain.Unit{Tag: w.Tag, Symbol: w.UnitSymbol, Base: w.UnitBase, Decimals: w.UnitDecimals}
	price, ok := new(big.Int).SetString(w.PricePerCostFactor, 10)
	if !ok {
		return FeeBasis{}, nil, fmt.Errorf("feebasis: decode: invalid price %q", w.PricePerCostFactor)
	}
	return FeeBasis{
		Tag:                w.Tag,
		Unit:               unit,
		CostFactor:         w.CostFactor,
		PricePerCostFactor: chain.NewAmount(unit, price),
	}, w.PayloadBytes, nil
}
