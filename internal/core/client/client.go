// Package client defines the indexer client contract the core consumes
// (spec §6.1) and the thin dispatcher that mux-routes sync/send to
// either the QRY or P2P path (spec §2 #10).
package client

import (
	"context"
	"fmt"

	"github.com/arcsign/walletkit/internal/core/bundle"
	"github.com/arcsign/walletkit/internal/core/chain"
)

// BlockHeightUnbound is the sentinel "all remaining" end value (spec
// §4.5, §6.1): 2^64 - 1.
const BlockHeightUnbound uint64 = 1<<64 - 1

// ByType selects whether a QRY round requests whole transactions or
// individual transfers (spec §4.5).
type ByType string

const (
	ByTransactions ByType = "TRANSACTIONS"
	ByTransfers    ByType = "TRANSFERS"
)

// Indexer is the contract an external indexer client implements (spec
// §6.1). Every operation is fire-and-forget: it returns immediately
// and the result arrives via the corresponding Announce* callback on
// Announcer, never as a return value. cbState round-trips verbatim and
// is opaque to both sides.
type Indexer interface {
	GetBlockNumber(ctx context.Context, cbState interface{})
	GetTransactions(ctx context.Context, cbState interface{}, addresses []chain.Address, beg, end uint64)
	GetTransfers(ctx context.Context, cbState interface{}, addresses []chain.Address, beg, end uint64)
	SubmitTransaction(ctx context.Context, cbState interface{}, raw []byte, hashHex string)
	EstimateTransactionFee(ctx context.Context, cbState interface{}, raw []byte, hashHex string)
}

// Announcer receives the asynchronous results of every Indexer
// operation (spec §6.1). cbState round-trips the value the
// corresponding Indexer call was given — QRY passes its round's rid so
// a stale round's announce can be told apart and discarded.
type Announcer interface {
	AnnounceBlockNumber(success bool, height uint64, blockHash string)
	AnnounceTransactions(cbState interface{}, success bool, bundles []bundle.TransactionBundle)
	AnnounceTransfers(cbState interface{}, success bool, bundles []bundle.TransferBundle)
	AnnounceSubmitTransfer(success bool)
	AnnounceEstimateTransactionFee(cbState interface{}, success bool, hash string, costUnits uint64, attrs []string)
}

// SyncPath is which transport a dispatch operation should use.
type SyncPath string

const (
	PathQRY SyncPath = "QRY"
	PathP2P SyncPath = "P2P"
)

// Syncer is the subset of QRY manager behavior the dispatcher routes
// to (spec §2 #10).
type Syncer interface {
	Sync(ctx context.Context)
	SyncToDepth(ctx context.Context, depth uint64)
}

// Sender is the subset of P2P/QRY send behavior the dispatcher routes
// to.
type Sender interface {
	Send(ctx context.Context, raw []byte, hashHex string) error
}

// Dispatcher mux-routes sync to canSync and send to canSend (spec
// §4.8's mode -> (canSync, canSend) table), grounded on the teacher's
// GetProviderWithFallback priority-routing idea simplified to the
// two-path QRY/P2P case the spec describes.
type Dispatcher struct {
	canSync  SyncPath
	canSend  SyncPath
	qrySync  Syncer
	qrySend  Sender
	p2pSync  Syncer
	p2pSend  Sender
}

// NewDispatcher wires the two available paths; either p2p argument may
// be nil when the chain has no P2P manager (non-Bitcoin-family chains
// per spec §2 #9).
func NewDispatcher(canSync, canSend SyncPath, qrySync Syncer, qrySend Sender, p2pSync Syncer, p2pSend Sender) *Dispatcher {
	return &Dispatcher{canSync: canSync, canSend: canSend, qrySync: qrySync, qrySend: qrySend, p2pSync: p2pSync, p2pSend: p2pSend}
}

// SetMode updates which path sync and send route through, per spec
// §4.8's setMode(mode) table.
func (d *Dispatcher) SetMode(canSync, canSend SyncPath) {
	d.canSync = canSync
	d.canSend = canSend
}

func (d *Dispatcher) Sync(ctx context.Context) error {
	switch d.canSync {
	case PathQRY:
		if d.qrySync == nil {
			return fmt.Errorf("client: QRY sync path not wired")
		}
		d.qrySync.Sync(ctx)
		return nil
	case PathP2P:
		if d.p2pSync == nil {
			return fmt.Errorf("client: P2P sync path not wired")
		}
		d.p2pSync.Sync(ctx)
		return nil
	default:
		return fmt.Errorf("client: unknown sync path %q", d.canSync)
	}
}

func (d *Dispatcher) SyncToDepth(ctx context.Context, depth uint64) error {
	switch d.canSync {
	case PathQRY:
		if d.qrySync == nil {
			return fmt.Errorf("client: QRY sync path not wired")
		}
		d.qrySync.SyncToDepth(ctx, depth)
		return nil
	case PathP2P:
		if d.p2pSync == nil {
			return fmt.Errorf("client: P2P sync path not wired")
		}
		d.p2pSync.SyncToDepth(ctx, depth)
		return nil
	default:
		return fmt.Errorf("client: unknown sync path %q", d.canSync)
	}
}

func (d *Dispatcher) Send(ctx context.Context, raw []byte, hashHex string) error {
	switch d.canSend {
	case PathQRY:
		if d.qrySend == nil {
			return fmt.Errorf("client: QRY send path not wired")
		}
		return d.qrySend.Send(ctx, raw, hashHex)
	case PathP2P:
		if d.p2pSend == nil {
			return fmt.Errorf("client: P2P send path not wired")
		}
		return d.p2pSend.Send(ctx, raw, hashHex)
	default:
		return fmt.Errorf("client: unknown send path %q", d.canSend)
	}
}
