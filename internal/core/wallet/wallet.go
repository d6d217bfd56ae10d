// Package wallet implements Wallet: a per-currency ordered container
// of transfers with cached balance (spec §2 #7, §4.4).
package wallet

import (
	"fmt"
	"sync"

	"github.com/arcsign/walletkit/internal/core/chain"
	"github.com/arcsign/walletkit/internal/core/feebasis"
	"github.com/arcsign/walletkit/internal/core/listener"
	"github.com/arcsign/walletkit/internal/core/transfer"
)

// LifecycleState is CREATED or DELETED (spec §2 #7).
type LifecycleState string

const (
	StateCreated LifecycleState = "CREATED"
	StateDeleted LifecycleState = "DELETED"
)

// FileStore is the subset of the file service a wallet needs to
// persist transfers on every mutation (spec §2 #7: "save to file
// service" on add/remove).
type FileStore interface {
	SaveTransfer(walletID string, t *transfer.Transfer) error
	RemoveTransfer(walletID string, t *transfer.Transfer) error
}

// AnnounceHook is the wallet's optional handler-provided
// announceTransfer callback (spec §4.1 "Wallet ... announceTransfer?").
type AnnounceHook func(t *transfer.Transfer)

// Wallet is the ordered per-currency transfer container (spec §2 #7).
type Wallet struct {
	ID           string
	Tag          chain.Tag
	Unit         chain.Unit
	UnitForFee   chain.Unit
	DefaultFeeBasis feebasis.FeeBasis
	BalanceMin   *chain.Amount
	BalanceMax   *chain.Amount

	bundle       *listener.Bundle
	store        FileStore
	announce     AnnounceHook

	mu        sync.RWMutex
	transfers []*transfer.Transfer
	balance   chain.Amount
	state     LifecycleState

	// isEqual is supplied by the owning handler (spec §4.1's
	// Transfer.isEqual); the core never reimplements per-chain hash
	// comparison.
	isEqual func(a, b *transfer.Transfer) bool
}

// New constructs a Wallet in state CREATED.
func New(id string, tag chain.Tag, unit, unitForFee chain.Unit, defaultFeeBasis feebasis.FeeBasis, store FileStore, bundle *listener.Bundle, isEqual func(a, b *transfer.Transfer) bool) *Wallet {
	w := &Wallet{
		ID:              id,
		Tag:             tag,
		Unit:            unit,
		UnitForFee:      unitForFee,
		DefaultFeeBasis: defaultFeeBasis,
		bundle:          bundle,
		store:           store,
		state:           StateCreated,
		balance:         chain.ZeroAmount(unit),
		isEqual:         isEqual,
	}
	if bundle != nil && bundle.Wallet != nil {
		bundle.Wallet.WalletEvent(id, listener.WalletCreated, "")
	}
	return w
}

// SetAnnounceHook installs the optional per-handler announce callback.
func (w *Wallet) SetAnnounceHook(hook AnnounceHook) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.announce = hook
}

// Bundle returns the wallet's listener bundle, so a chain handler can
// construct new transfers that report into the same event pipeline as
// the wallet itself.
func (w *Wallet) Bundle() *listener.Bundle { return w.bundle }

// Balance returns the cached balance.
func (w *Wallet) Balance() chain.Amount {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balance
}

// Transfers returns a snapshot of the ordered transfer list.
func (w *Wallet) Transfers() []*transfer.Transfer {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*transfer.Transfer, len(w.transfers))
	copy(out, w.transfers)
	return out
}

// GetTransferByHash performs the linear scan spec §4.4 explicitly
// permits ("O(n) is acceptable — the spec permits an auxiliary hash
// index").
func (w *Wallet) GetTransferByHash(h chain.Hash) *transfer.Transfer {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, t := range w.transfers {
		if t.Hash().Equal(h) {
			return t
		}
	}
	return nil
}

// AddTransfer appends t if no equal-hash transfer exists already,
// persists it, and emits TRANSFER_ADDED then (conditionally)
// BALANCE_UPDATED (spec §4.4).
func (w *Wallet) AddTransfer(t *transfer.Transfer) error {
	w.mu.Lock()
	for _, existing := range w.transfers {
		if existing.IsEqual(t, w.isEqual) {
			w.mu.Unlock()
			return nil // idempotent, spec §4.6 step 3
		}
	}
	w.transfers = append(w.transfers, t)
	oldBalance := w.balance
	w.recomputeBalanceLocked()
	newBalance := w.balance
	announce := w.announce
	w.mu.Unlock()

	if w.store != nil {
		if err := w.store.SaveTransfer(w.ID, t); err != nil {
			return fmt.Errorf("wallet: save transfer: %w", err)
		}
	}
	w.emitWallet(listener.WalletTransferAdded, t.ID())
	if oldBalance.Compare(newBalance) != 0 {
		w.emitWallet(listener.WalletBalanceUpdated, newBalance.String())
	}
	if announce != nil {
		announce(t)
	}
	return nil
}

// RemoveTransfer is the symmetric counterpart: TRANSFER_DELETED then
// BALANCE_UPDATED if the balance changed (spec §4.4).
func (w *Wallet) RemoveTransfer(t *transfer.Transfer) error {
	w.mu.Lock()
	idx := -1
	for i, existing := range w.transfers {
		if existing.IsEqual(t, w.isEqual) {
			idx = i
			break
		}
	}
	if idx < 0 {
		w.mu.Unlock()
		return nil
	}
	w.transfers = append(w.transfers[:idx], w.transfers[idx+1:]...)
	oldBalance := w.balance
	w.recomputeBalanceLocked()
	newBalance := w.balance
	w.mu.Unlock()

	if w.store != nil {
		if err := w.store.RemoveTransfer(w.ID, t); err != nil {
			return fmt.Errorf("wallet: remove transfer: %w", err)
		}
	}
	w.emitWallet(listener.WalletTransferDeleted, t.ID())
	if oldBalance.Compare(newBalance) != 0 {
		w.emitWallet(listener.WalletBalanceUpdated, newBalance.String())
	}
	return nil
}

// recomputeBalanceLocked recomputes the cached balance as the sum over
// INCLUDED transfers of the directed net amount (spec §3: "sent:
// -(amount+fee); received: +amount; recovered: -fee"). Called with w.mu
// held.
func (w *Wallet) recomputeBalanceLocked() {
	total := chain.ZeroAmount(w.Unit)
	for _, t := range w.transfers {
		if t.State().Kind != transfer.Included {
			continue
		}
		total = total.Add(t.AmountDirectedNet())
	}
	w.balance = total
}

// RecomputeBalance triggers the spec's "recomputed on any add/remove/
// state-change to/from INCLUDED" rule when a caller changes a
// transfer's state out from under the wallet (e.g. the manager's
// submit-announce path). Callers must invoke this after any such
// transition.
func (w *Wallet) RecomputeBalance() {
	w.mu.Lock()
	old := w.balance
	w.recomputeBalanceLocked()
	newBalance := w.balance
	w.mu.Unlock()
	if old.Compare(newBalance) != 0 {
		w.emitWallet(listener.WalletBalanceUpdated, newBalance.String())
	}
}

func (w *Wallet) emitWallet(eventType listener.WalletEventType, detail string) {
	if w.bundle != nil && w.bundle.Wallet != nil {
		w.bundle.Wallet.WalletEvent(w.ID, eventType, detail)
	}
}
