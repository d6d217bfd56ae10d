// Package bundle implements ClientTransferBundle and
// ClientTransactionBundle: the indexer-delivered value objects the QRY
// manager reconciles into wallet state (spec §2 #6, §3).
package bundle

import (
	"sort"
	"time"

	"github.com/arcsign/walletkit/internal/core/attribute"
)

// Status is the indexer-reported status of a bundle row.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusFailed    Status = "FAILED"
)

// TransferBundle is one indexer-delivered transfer row (spec §3).
type TransferBundle struct {
	Status          Status
	Hash            string
	UID             string
	From            string
	To              string
	Amount          string // decimal string in smallest unit, chain-scoped
	Currency        string
	Fee             *string // optional
	BlockTimestamp  time.Time
	BlockNumber     uint64
	Confirmations   int
	BlockIndex      uint64
	BlockHash       string
	Attributes      []*attribute.Attribute
}

// TransactionBundle is one indexer-delivered raw-transaction row
// (spec §3), used by chains whose handler reconstructs transfers from
// an entire serialized transaction rather than one transfer row.
type TransactionBundle struct {
	Status         Status
	SerializedBytes []byte
	Timestamp      time.Time
	BlockHeight    uint64
}

// orderKey returns the (blockNumber|blockHeight, blockIndex) ascending
// sort key (spec §3).
func (b TransferBundle) orderKey() (uint64, uint64) { return b.BlockNumber, b.BlockIndex }
func (b TransactionBundle) orderKey() (uint64, uint64) { return b.BlockHeight, 0 }

// CompareTransferBundles orders two transfer bundles by (block_number,
// block_index) ascending.
func CompareTransferBundles(a, b TransferBundle) int {
	an, ai := a.orderKey()
	bn, bi := b.orderKey()
	return compareKeys(an, ai, bn, bi)
}

// CompareTransactionBundles orders two transaction bundles by
// block_height ascending.
func CompareTransactionBundles(a, b TransactionBundle) int {
	an, ai := a.orderKey()
	bn, bi := b.orderKey()
	return compareKeys(an, ai, bn, bi)
}

func compareKeys(an, ai, bn, bi uint64) int {
	if an != bn {
		if an < bn {
			return -1
		}
		return 1
	}
	if ai != bi {
		if ai < bi {
			return -1
		}
		return 1
	}
	return 0
}

// SortTransferBundles sorts in place, ascending by (block_number,
// block_index), the order the QRY manager folds bundles into the
// wallet (spec §4.5).
func SortTransferBundles(bundles []TransferBundle) {
	sort.Slice(bundles, func(i, j int) bool {
		return CompareTransferBundles(bundles[i], bundles[j]) < 0
	})
}
