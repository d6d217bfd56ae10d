// Package qry implements the QRY synchronizer: an address-driven pull
// loop that queries the indexer client for transactions/transfers and
// reconciles results into wallet state (spec §2 #8, §4.5).
package qry

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/arcsign/walletkit/internal/core/bundle"
	"github.com/arcsign/walletkit/internal/core/chain"
	"github.com/arcsign/walletkit/internal/core/client"
)

// blockNumberOffsetFloor and the 3-day overlap window are the exact
// constants recovered from original_source/BRCryptoClient.c (spec
// SPEC_FULL §3 "blockNumberOffset formula").
const (
	blockNumberOffsetFloor = 100
	overlapWindow          = 3 * 24 * time.Hour
)

// BlockNumberOffset computes max(100, 3 days / confirmationPeriod),
// the overlap re-scanned on every successful round to absorb reorgs
// and missed transfers (spec §4.5).
func BlockNumberOffset(confirmationPeriod time.Duration) uint64 {
	if confirmationPeriod <= 0 {
		return blockNumberOffsetFloor
	}
	computed := uint64(math.Ceil(overlapWindow.Seconds() / confirmationPeriod.Seconds()))
	if computed < blockNumberOffsetFloor {
		return blockNumberOffsetFloor
	}
	return computed
}

// Window is the sync window owned by the QRY manager (spec §3).
type Window struct {
	RequestID uint64
	Beg       uint64
	End       uint64
	Completed bool
	Success   bool
	Unbounded bool
}

// RecoveryAddresses supplies the current owned-address set for a
// wallet; implemented by the wallet/handler layer. The set can grow
// over time for HD wallets (spec §4.4 GetAddressesForRecovery).
type RecoveryAddresses func() []chain.Address

// RecoverTransferBundle and RecoverTransactionBundle are the
// manager's handler-dispatching recovery callbacks (spec §4.6's
// manager.recoverFromBundle), invoked once per bundle in ascending
// (block, index) order.
type RecoverTransferBundle func(tb bundle.TransferBundle)
type RecoverTransactionBundle func(tb bundle.TransactionBundle)

// Manager is the synchronizer (spec §4.5). One Manager exists per
// wallet manager network connection.
type Manager struct {
	indexer client.Indexer
	byType  client.ByType

	getRecoveryAddresses RecoveryAddresses
	recoverTransferBundle RecoverTransferBundle
	recoverTransactionBundle RecoverTransactionBundle

	blockNumberOffset uint64

	mu              sync.Mutex
	nextRequestID   uint64
	sync            Window
	networkHeight   uint64
	lastRequestedAddresses map[string]bool
}

// NewManager constructs a QRY manager. byType selects whether rounds
// request whole transactions or individual transfers, a per-chain
// choice (spec §4.5).
func NewManager(indexer client.Indexer, byType client.ByType, confirmationPeriod time.Duration, getRecoveryAddresses RecoveryAddresses, recoverTransferBundle RecoverTransferBundle, recoverTransactionBundle RecoverTransactionBundle) *Manager {
	return &Manager{
		indexer:                  indexer,
		byType:                   byType,
		getRecoveryAddresses:     getRecoveryAddresses,
		recoverTransferBundle:    recoverTransferBundle,
		recoverTransactionBundle: recoverTransactionBundle,
		blockNumberOffset:        BlockNumberOffset(confirmationPeriod),
		sync:                     Window{Completed: true, Success: true},
		lastRequestedAddresses:   make(map[string]bool),
	}
}

// Tick runs one periodic-timer iteration (spec §4.5 "Per periodic
// tick"). The caller's dispatch thread fires this CWM_CONFIRMATION_
// PERIOD_FACTOR (4) times per confirmation period, per SPEC_FULL §3.
func (m *Manager) Tick(ctx context.Context) {
	m.mu.Lock()

	// Step 1: fire getBlockNumber unconditionally.
	m.mu.Unlock()
	m.indexer.GetBlockNumber(ctx, nil)
	m.mu.Lock()

	// Step 2: advance beg on a completed, successful prior round.
	if m.sync.Completed && m.sync.Success {
		if m.sync.End > m.blockNumberOffset {
			m.sync.Beg = m.sync.End - m.blockNumberOffset
		} else {
			m.sync.Beg = 0
		}
	}

	// Step 3.
	if m.networkHeight > m.sync.Beg {
		m.sync.End = m.networkHeight
	} else {
		m.sync.End = m.sync.Beg
	}

	// Step 4: begin a new round only if the prior one finished and
	// there is a non-empty range to cover (spec §4.5 step 4).
	if m.sync.Completed && m.sync.Beg != m.sync.End {
		m.beginRoundLocked(ctx)
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
}

// beginRoundLocked allocates a new rid and fires the appropriate
// request for every recovery address. Caller must hold m.mu; it is
// released by the time the indexer call returns control since the
// indexer call itself is fire-and-forget.
func (m *Manager) beginRoundLocked(ctx context.Context) {
	m.sync.RequestID = m.nextRequestID
	m.nextRequestID++
	m.sync.Completed = false
	m.sync.Success = false

	addrs := m.getRecoveryAddresses()
	m.lastRequestedAddresses = addressSet(addrs)

	end := m.sync.End
	if m.sync.Unbounded {
		end = client.BlockHeightUnbound
	}
	rid := m.sync.RequestID
	beg := m.sync.Beg

	// The indexer call is fire-and-forget; release the lock before
	// calling out so Announce* can re-enter the manager without
	// deadlocking against this goroutine (spec §5: "indexer calls ...
	// return immediately, the result arrives as an announce").
	go func() {
		switch m.byType {
		case client.ByTransactions:
			m.indexer.GetTransactions(ctx, rid, addrs, beg, end)
		default:
			m.indexer.GetTransfers(ctx, rid, addrs, beg, end)
		}
	}()
}

func addressSet(addrs []chain.Address) map[string]bool {
	out := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		out[a.String()] = true
	}
	return out
}

// AnnounceBlockNumber implements client.Announcer.
func (m *Manager) AnnounceBlockNumber(success bool, height uint64, blockHash string) {
	if !success {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.networkHeight = height
}

// AnnounceTransfers implements client.Announcer (spec §4.5 "Per
// announce"). A stale rid (one that doesn't match the in-flight
// round) is discarded outright.
func (m *Manager) AnnounceTransfers(cbState interface{}, success bool, bundles []bundle.TransferBundle) {
	rid, _ := cbState.(uint64)
	m.mu.Lock()
	if rid != m.sync.RequestID {
		m.mu.Unlock()
		return // stale round, spec §4.5
	}
	if !success {
		m.sync.Completed = true
		m.sync.Success = false
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	sorted := append([]bundle.TransferBundle(nil), bundles...)
	sort.Slice(sorted, func(i, j int) bool { return bundle.CompareTransferBundles(sorted[i], sorted[j]) < 0 })
	for _, b := range sorted {
		if m.recoverTransferBundle != nil {
			m.recoverTransferBundle(b)
		}
	}

	m.closeOrExpandRound(context.Background())
}

// AnnounceTransactions is the whole-transaction-bundle counterpart.
func (m *Manager) AnnounceTransactions(cbState interface{}, success bool, bundles []bundle.TransactionBundle) {
	rid, _ := cbState.(uint64)
	m.mu.Lock()
	if rid != m.sync.RequestID {
		m.mu.Unlock()
		return
	}
	if !success {
		m.sync.Completed = true
		m.sync.Success = false
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	sorted := append([]bundle.TransactionBundle(nil), bundles...)
	sort.Slice(sorted, func(i, j int) bool { return bundle.CompareTransactionBundles(sorted[i], sorted[j]) < 0 })
	for _, b := range sorted {
		if m.recoverTransactionBundle != nil {
			m.recoverTransactionBundle(b)
		}
	}

	m.closeOrExpandRound(context.Background())
}

// closeOrExpandRound implements the address-growth convergence rule
// (spec §4.5, scenario S3): if the current address set grew beyond
// what was requested, issue a delta request under the same rid;
// otherwise mark the round complete and successful.
func (m *Manager) closeOrExpandRound(ctx context.Context) {
	m.mu.Lock()
	current := m.getRecoveryAddresses()
	currentSet := addressSet(current)

	var grown []chain.Address
	for _, a := range current {
		if !m.lastRequestedAddresses[a.String()] {
			grown = append(grown, a)
		}
	}

	if len(grown) == 0 {
		m.sync.Completed = true
		m.sync.Success = true
		m.mu.Unlock()
		return
	}

	m.lastRequestedAddresses = currentSet
	end := m.sync.End
	if m.sync.Unbounded {
		end = client.BlockHeightUnbound
	}
	rid := m.sync.RequestID
	beg := m.sync.Beg
	m.mu.Unlock()

	go func() {
		switch m.byType {
		case client.ByTransactions:
			m.indexer.GetTransactions(ctx, rid, grown, beg, end)
		default:
			m.indexer.GetTransfers(ctx, rid, grown, beg, end)
		}
	}()
}

// Window returns a snapshot of the current sync window, for tests and
// manager-level status reporting.
func (m *Manager) Window() Window {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sync
}

// Sync implements client.Syncer: forces the next Tick to begin a new
// round regardless of completion state, by marking the prior round
// complete-but-unsuccessful so beg does not advance past stale data.
func (m *Manager) Sync(ctx context.Context) {
	m.mu.Lock()
	m.sync.Completed = true
	m.sync.Success = false
	m.sync.Unbounded = true
	m.mu.Unlock()
	m.Tick(ctx)
}

// SyncToDepth resets beg to depth blocks behind the current end before
// the next tick (spec §6.4 sync depth tokens are resolved to a block
// count by the caller).
func (m *Manager) SyncToDepth(ctx context.Context, depth uint64) {
	m.mu.Lock()
	if m.sync.End > depth {
		m.sync.Beg = m.sync.End - depth
	} else {
		m.sync.Beg = 0
	}
	m.sync.Completed = true
	m.mu.Unlock()
	m.Tick(ctx)
}

// Stop retires the in-flight round so subsequent announces for it are
// discarded (spec §5 "Cancellation & timeouts": disconnect causes
// subsequent QRY announces to be discarded).
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sync.RequestID = m.nextRequestID
	m.nextRequestID++
	m.sync.Completed = true
}
