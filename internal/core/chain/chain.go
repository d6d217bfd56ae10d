// Package chain defines the value types shared by every wallet-core
// component: the closed chain-tag enumeration and the Hash, Address,
// Amount, and Unit types that carry it.
package chain

import (
	"bytes"
	"fmt"
	"math/big"
)

// Tag is the closed enumeration of chain families the core supports.
// A tag mismatch at any operation boundary is a programmer error, not a
// recoverable condition.
type Tag string

const (
	BTC  Tag = "BTC"
	BCH  Tag = "BCH"
	BSV  Tag = "BSV"
	ETH  Tag = "ETH"
	HBAR Tag = "HBAR"
	XRP  Tag = "XRP"
	XTZ  Tag = "XTZ"
)

// Tags lists every supported chain tag, in declaration order.
var Tags = []Tag{BTC, BCH, BSV, ETH, HBAR, XRP, XTZ}

// Valid reports whether t is one of the closed enumeration's members.
func (t Tag) Valid() bool {
	for _, v := range Tags {
		if t == v {
			return true
		}
	}
	return false
}

// IsBitcoinFamily reports whether t uses the P2P/UTXO Bitcoin engine
// (BTC, BCH, BSV) as opposed to the account-model chains.
func (t Tag) IsBitcoinFamily() bool {
	return t == BTC || t == BCH || t == BSV
}

// Hash is an opaque, chain-specific byte buffer with value equality.
// Every chain produces hashes of its own native length; the core never
// assumes a fixed size.
type Hash struct {
	tag   Tag
	bytes []byte
}

// NewHash copies b into a Hash tagged with tag.
func NewHash(tag Tag, b []byte) Hash {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Hash{tag: tag, bytes: cp}
}

func (h Hash) Tag() Tag      { return h.tag }
func (h Hash) Bytes() []byte { return h.bytes }
func (h Hash) IsEmpty() bool { return len(h.bytes) == 0 }

func (h Hash) String() string {
	return fmt.Sprintf("%x", h.bytes)
}

// Equal reports value equality: same tag, same bytes.
func (h Hash) Equal(o Hash) bool {
	return h.tag == o.tag && bytes.Equal(h.bytes, o.bytes)
}

// SizeTHash projects the hash onto a platform size_t-width value, used
// by hashed sets that key on chain.Hash (mirrors the original C core's
// hash_to_size_t contract).
func (h Hash) SizeTHash() uint64 {
	var acc uint64 = 14695981039346656037 // FNV offset basis
	for _, b := range h.bytes {
		acc ^= uint64(b)
		acc *= 1099511628211
	}
	return acc
}

// Address is a chain-specific parsed address with value equality and a
// canonical-string round trip. The core treats the string form as the
// only stable representation; parsing/validation is a handler concern.
type Address struct {
	tag   Tag
	value string
}

// NewAddress wraps a canonical address string for the given chain. The
// core does not validate the string itself — that is the handler's
// responsibility via its own parser.
func NewAddress(tag Tag, value string) Address {
	return Address{tag: tag, value: value}
}

func (a Address) Tag() Tag       { return a.tag }
func (a Address) String() string { return a.value }
func (a Address) IsEmpty() bool  { return a.value == "" }

func (a Address) Equal(o Address) bool {
	return a.tag == o.tag && a.value == o.value
}

// Unit is currency denomination metadata. Two units are compatible iff
// they share a base currency symbol (e.g. wei and gwei are both based
// on ETH; USDT is not based on ETH even though it moves over the
// Ethereum network).
type Unit struct {
	Tag    Tag
	Symbol string // e.g. "wei", "satoshi", "drop"
	Base   string // the base-currency symbol, e.g. "ETH", "BTC", "XRP"
	Decimals int32
}

// Compatible reports whether u and o share a base currency.
func (u Unit) Compatible(o Unit) bool {
	return u.Tag == o.Tag && u.Base == o.Base
}

// Amount is (unit, sign, magnitude). Arithmetic always returns a new
// Amount; comparisons account for sign.
type Amount struct {
	unit      Unit
	negative  bool
	magnitude *big.Int
}

// NewAmount constructs an Amount from a signed integer value in unit's
// smallest denomination.
func NewAmount(unit Unit, value *big.Int) Amount {
	mag := new(big.Int).Abs(value)
	return Amount{unit: unit, negative: value.Sign() < 0, magnitude: mag}
}

// ZeroAmount returns a zero-valued Amount in the given unit.
func ZeroAmount(unit Unit) Amount {
	return Amount{unit: unit, magnitude: big.NewInt(0)}
}

func (a Amount) Unit() Unit    { return a.unit }
func (a Amount) IsNegative() bool { return a.negative && a.magnitude.Sign() != 0 }
func (a Amount) IsZero() bool  { return a.magnitude.Sign() == 0 }

// Value returns the signed integer value in the amount's unit.
func (a Amount) Value() *big.Int {
	v := new(big.Int).Set(a.magnitude)
	if a.negative {
		v.Neg(v)
	}
	return v
}

// Negate returns -a.
func (a Amount) Negate() Amount {
	if a.IsZero() {
		return a
	}
	return Amount{unit: a.unit, negative: !a.negative, magnitude: a.magnitude}
}

// Add returns a+o. The units must be compatible; callers are expected
// to have checked Unit.Compatible beforehand (a chain handler never
// adds incompatible units).
func (a Amount) Add(o Amount) Amount {
	return NewAmount(a.unit, new(big.Int).Add(a.Value(), o.Value()))
}

// Sub returns a-o.
func (a Amount) Sub(o Amount) Amount {
	return NewAmount(a.unit, new(big.Int).Sub(a.Value(), o.Value()))
}

// Compare returns -1, 0, or 1 comparing signed values. Units are
// assumed compatible.
func (a Amount) Compare(o Amount) int {
	return a.Value().Cmp(o.Value())
}

func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.Value().String(), a.unit.Symbol)
}
