// Package manager implements WalletManager, the root aggregate that
// binds account, network, file service, QRY, P2P, and wallet set (spec
// §2 #12, §4.8), generalized from internal/app.AppConfig's JSON
// configuration shape and the teacher's ProviderRegistry singleton/
// cache pattern.
package manager

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arcsign/walletkit/internal/core/attribute"
	"github.com/arcsign/walletkit/internal/core/bundle"
	"github.com/arcsign/walletkit/internal/core/chain"
	"github.com/arcsign/walletkit/internal/core/client"
	"github.com/arcsign/walletkit/internal/core/feebasis"
	"github.com/arcsign/walletkit/internal/core/filestore"
	"github.com/arcsign/walletkit/internal/core/handler"
	"github.com/arcsign/walletkit/internal/core/listener"
	"github.com/arcsign/walletkit/internal/core/p2p"
	"github.com/arcsign/walletkit/internal/core/qry"
	"github.com/arcsign/walletkit/internal/core/transfer"
	"github.com/arcsign/walletkit/internal/core/wallet"
)

// SyncMode is the public sync-mode token (spec §6.4).
type SyncMode string

const (
	APIOnly        SyncMode = "API_ONLY"
	APIWithP2PSend SyncMode = "API_WITH_P2P_SEND"
	P2PWithAPISync SyncMode = "P2P_WITH_API_SYNC"
	P2POnly        SyncMode = "P2P_ONLY"
)

// SyncDepth is the public sync-depth token (spec §6.4).
type SyncDepth string

const (
	FromLastConfirmedSend SyncDepth = "FROM_LAST_CONFIRMED_SEND"
	FromLastTrustedBlock  SyncDepth = "FROM_LAST_TRUSTED_BLOCK"
	FromCreation          SyncDepth = "FROM_CREATION"
)

// modeRouting implements spec §4.8's mode -> (canSync, canSend) table.
func modeRouting(mode SyncMode) (client.SyncPath, client.SyncPath) {
	switch mode {
	case APIOnly:
		return client.PathQRY, client.PathQRY
	case APIWithP2PSend:
		return client.PathQRY, client.PathP2P
	case P2PWithAPISync:
		return client.PathQRY, client.PathP2P
	case P2POnly:
		return client.PathP2P, client.PathP2P
	default:
		return client.PathQRY, client.PathQRY
	}
}

// LifecycleState is the manager's top-level state (spec §2 #12).
type LifecycleState string

const (
	StateCreated      LifecycleState = "CREATED"
	StateConnected    LifecycleState = "CONNECTED"
	StateSyncing      LifecycleState = "SYNCING"
	StateDisconnected LifecycleState = "DISCONNECTED"
	StateDeleted      LifecycleState = "DELETED"
)

// DisconnectReason is REQUESTED, UNKNOWN, or POSIX(errno) (spec §7).
type DisconnectReason struct {
	Requested bool
	Unknown   bool
	Cause     error
}

// Config is the per-manager configuration generalized from
// internal/app.AppConfig's JSON-serializable shape (SPEC_FULL §1).
type Config struct {
	Account             string        `json:"account"`
	Network             string        `json:"network"`
	Tag                 chain.Tag     `json:"tag"`
	Mode                SyncMode      `json:"mode"`
	StoragePath         string        `json:"storagePath"`
	ConfirmationPeriod  time.Duration `json:"confirmationPeriod"`
	Unit                chain.Unit    `json:"unit"`
	UnitForFee          chain.Unit    `json:"unitForFee"`
}

// Manager is the WalletManager root aggregate (spec §2 #12).
type Manager struct {
	cfg     Config
	handlers *handler.Set

	fileService *filestore.Service
	qryManager  *qry.Manager
	p2pManager  *p2p.Manager
	dispatcher  *client.Dispatcher

	events *listener.Handler
	bundle *listener.Bundle

	mu       sync.RWMutex
	state    LifecycleState
	disconnectReason *DisconnectReason
	primary  *wallet.Wallet
	wallets  map[string]*wallet.Wallet

	tickerStop chan struct{}
	tickerWG   sync.WaitGroup

	indexer client.Indexer

	submitMu      sync.Mutex
	pendingSubmit *transfer.Transfer

	feeMu               sync.Mutex
	nextFeeRequestID     uint64
	pendingFeeEstimates map[uint64]feeEstimateState
}

// feeEstimateState is the async half of EstimateFeeBasis: the cookie
// and callback waiting for the indexer's AnnounceEstimateTransactionFee
// (spec §4.7's async path).
type feeEstimateState struct {
	cookie interface{}
	unit   chain.Unit
	cb     FeeEstimateCallback
}

// FeeEstimateCallback receives the caller-chosen cookie verbatim
// alongside the resolved fee basis or error (spec §4.7).
type FeeEstimateCallback func(cookie interface{}, fb feebasis.FeeBasis, err error)

// Create resolves the handler set for cfg.Tag, builds the file
// service, sets up the event handler with the spec's periodic-dispatch
// interval, creates the primary wallet, and emits MANAGER_CREATED
// before any wallet event (spec §4.8).
func Create(cfg Config, handlers *handler.Set, indexer client.Indexer, p2pEngine p2p.Engine, auditLogPath string) (*Manager, error) {
	if handlers == nil {
		return nil, fmt.Errorf("manager: nil handler set")
	}
	if handlers.Tag != cfg.Tag {
		return nil, fmt.Errorf("manager: handler set tag %s does not match config tag %s", handlers.Tag, cfg.Tag)
	}

	m := &Manager{
		cfg:                 cfg,
		handlers:            handlers,
		wallets:             make(map[string]*wallet.Wallet),
		state:               StateCreated,
		indexer:             indexer,
		pendingFeeEstimates: make(map[uint64]feeEstimateState),
	}

	m.events = listener.NewHandler(auditLogPath)
	m.bundle = &listener.Bundle{
		Transfer: managerTransferListener{m},
		Wallet:   managerWalletListener{m},
		Manager:  managerManagerListener{m},
	}

	m.fileService = filestore.New(cfg.StoragePath, cfg.Account, cfg.Network, func(typeName, identifier string, err *filestore.Error) {
		m.events.Publish(listener.NewEvent("manager", "FILE_SERVICE_ERROR", typeName, err.Error()))
	})
	m.fileService.RegisterType("transfer", filestore.TypeHandler{
		Version: 1,
		Encode: func(e filestore.Entity) ([]byte, error) {
			te, ok := e.(transferEntity)
			if !ok {
				return nil, fmt.Errorf("manager: unexpected entity for transfer encode")
			}
			return handlers.Transfer.Encode(te.t)
		},
		Decode: func(data []byte) (filestore.Entity, error) {
			t, err := handlers.Transfer.Decode(data)
			if err != nil {
				return nil, err
			}
			return transferEntity{t, handlers}, nil
		},
	})

	m.qryManager = qry.NewManager(indexer, client.ByTransfers, cfg.ConfirmationPeriod, m.recoveryAddresses, m.recoverTransferBundle, m.recoverTransactionBundle)

	if cfg.Tag.IsBitcoinFamily() {
		m.p2pManager = p2p.NewManager(p2pEngine)
	}

	canSync, canSend := modeRouting(cfg.Mode)
	var p2pSync client.Syncer
	var p2pSend client.Sender
	if m.p2pManager != nil {
		p2pSync = m.p2pManager
		p2pSend = m.p2pManager
	}
	m.dispatcher = client.NewDispatcher(canSync, canSend, m.qryManager, qrySendAdapter{indexer}, p2pSync, p2pSend)

	m.emitManager(listener.ManagerCreated, cfg.Account)

	primary := wallet.New(cfg.Account, cfg.Tag, cfg.Unit, cfg.UnitForFee, feebasis.FeeBasis{Tag: cfg.Tag, Unit: cfg.UnitForFee}, fileStoreAdapter{m}, m.bundle, handlers.Wallet.IsEqual)
	m.primary = primary
	m.wallets[primary.ID] = primary

	m.startDispatchLoop()

	return m, nil
}

// qrySendAdapter adapts the indexer's fire-and-forget SubmitTransaction
// into a client.Sender: QRY-mode sends go to the indexer, not to P2P.
// The result arrives later via Manager.AnnounceSubmitTransfer.
type qrySendAdapter struct{ indexer client.Indexer }

func (a qrySendAdapter) Send(ctx context.Context, raw []byte, hashHex string) error {
	a.indexer.SubmitTransaction(ctx, nil, raw, hashHex)
	return nil
}

// fileStoreAdapter adapts Manager.fileService into wallet.FileStore.
type fileStoreAdapter struct{ m *Manager }

func (a fileStoreAdapter) SaveTransfer(walletID string, t *transfer.Transfer) error {
	return a.m.fileService.Save("transfer", transferEntity{t, a.m.handlers})
}

func (a fileStoreAdapter) RemoveTransfer(walletID string, t *transfer.Transfer) error {
	return a.m.fileService.Remove("transfer", transferEntity{t, a.m.handlers})
}

// transferEntity adapts *transfer.Transfer to filestore.Entity using
// the handler's hash-based identifier (spec §6.3).
type transferEntity struct {
	t        *transfer.Transfer
	handlers *handler.Set
}

func (e transferEntity) Identifier() string {
	h := e.t.Hash()
	s := h.String()
	if len(s) > 64 {
		s = s[:64]
	}
	for len(s) < 64 {
		s = "0" + s
	}
	return s
}

func (m *Manager) recoveryAddresses() []chain.Address {
	m.mu.RLock()
	primary := m.primary
	m.mu.RUnlock()
	if primary == nil || m.handlers.Wallet.GetAddressesForRecovery == nil {
		return nil
	}
	return m.handlers.Wallet.GetAddressesForRecovery(primary)
}

// recoverTransferBundle folds one indexer-delivered transfer row into
// the owning wallet via the handler's per-chain reconstruction (spec
// §4.6 "manager.recoverFromBundle").
func (m *Manager) recoverTransferBundle(tb bundle.TransferBundle) {
	if m.handlers.Manager.RecoverTransfersFromTransferBundle == nil {
		return
	}
	t, err := m.handlers.Manager.RecoverTransfersFromTransferBundle(tb)
	if err != nil || t == nil {
		return
	}
	m.addRecoveredTransfer(t)
}

// recoverTransactionBundle is the whole-transaction counterpart, for a
// handler that reconstructs every transfer touched by one raw
// transaction at once. Every current handler's
// RecoverTransfersFromTransactionBundle returns ErrNotSupported.
func (m *Manager) recoverTransactionBundle(tb bundle.TransactionBundle) {
	if m.handlers.Manager.RecoverTransfersFromTransactionBundle == nil {
		return
	}
	ts, err := m.handlers.Manager.RecoverTransfersFromTransactionBundle(tb)
	if err != nil {
		return
	}
	for _, t := range ts {
		m.addRecoveredTransfer(t)
	}
}

func (m *Manager) addRecoveredTransfer(t *transfer.Transfer) {
	w := m.walletForTag(t.Tag)
	if w == nil {
		return
	}
	if err := w.AddTransfer(t); err != nil {
		m.emitManager(listener.ManagerChanged, fmt.Sprintf("recover transfer: %v", err))
	}
}

func (m *Manager) walletForTag(tag chain.Tag) *wallet.Wallet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.primary != nil && m.primary.Tag == tag {
		return m.primary
	}
	for _, w := range m.wallets {
		if w.Tag == tag {
			return w
		}
	}
	return nil
}

// State returns the manager's current lifecycle state.
func (m *Manager) State() LifecycleState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) transition(to LifecycleState) {
	m.mu.Lock()
	old := m.state
	m.state = to
	m.mu.Unlock()
	if old != to {
		m.emitManager(listener.ManagerChanged, string(to))
	}
}

// Connect is valid from CREATED or DISCONNECTED; connects QRY
// unconditionally and P2P iff the mode uses it (spec §4.8).
func (m *Manager) Connect(ctx context.Context, peer string) error {
	m.mu.RLock()
	state := m.state
	m.mu.RUnlock()
	if state != StateCreated && state != StateDisconnected {
		return fmt.Errorf("manager: connect invalid from state %s", state)
	}

	if m.p2pManager != nil && usesP2P(m.cfg.Mode) {
		if err := m.p2pManager.Connect(ctx, peer); err != nil {
			return fmt.Errorf("manager: p2p connect: %w", err)
		}
	}
	m.transition(StateConnected)
	return nil
}

func usesP2P(mode SyncMode) bool {
	return mode == APIWithP2PSend || mode == P2PWithAPISync || mode == P2POnly
}

// Disconnect is valid from CREATED/CONNECTED/SYNCING, reason REQUESTED
// (spec §4.8).
func (m *Manager) Disconnect(ctx context.Context) error {
	m.mu.RLock()
	state := m.state
	m.mu.RUnlock()
	if state != StateCreated && state != StateConnected && state != StateSyncing {
		return fmt.Errorf("manager: disconnect invalid from state %s", state)
	}

	m.qryManager.Stop()
	if m.p2pManager != nil {
		_ = m.p2pManager.Disconnect(ctx)
	}
	m.mu.Lock()
	m.disconnectReason = &DisconnectReason{Requested: true}
	m.mu.Unlock()
	m.transition(StateDisconnected)
	return nil
}

// Sync is valid only from CONNECTED; routes to canSync (spec §4.8).
func (m *Manager) Sync(ctx context.Context) error {
	if m.State() != StateConnected {
		return fmt.Errorf("manager: sync invalid from state %s", m.State())
	}
	m.transition(StateSyncing)
	err := m.dispatcher.Sync(ctx)
	m.transition(StateConnected)
	return err
}

// SyncToDepth is Sync's depth-bounded counterpart.
func (m *Manager) SyncToDepth(ctx context.Context, depth uint64) error {
	if m.State() != StateConnected {
		return fmt.Errorf("manager: sync invalid from state %s", m.State())
	}
	m.transition(StateSyncing)
	err := m.dispatcher.SyncToDepth(ctx, depth)
	m.transition(StateConnected)
	return err
}

// SetMode changes the sync mode and re-derives the dispatcher's
// (canSync, canSend) routing (spec §4.8).
func (m *Manager) SetMode(mode SyncMode) {
	m.mu.Lock()
	m.cfg.Mode = mode
	m.mu.Unlock()
	canSync, canSend := modeRouting(mode)
	m.dispatcher.SetMode(canSync, canSend)
}

// Wipe deletes the durable store for (network, account) (spec §4.8
// "static operation").
func Wipe(storagePath, account, network string) error {
	return filestore.Wipe(storagePath, account, network)
}

// PrimaryWallet returns the manager's primary wallet.
func (m *Manager) PrimaryWallet() *wallet.Wallet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.primary
}

// Wallets returns every wallet the manager owns.
func (m *Manager) Wallets() []*wallet.Wallet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*wallet.Wallet, 0, len(m.wallets))
	for _, w := range m.wallets {
		out = append(out, w)
	}
	return out
}

// AddWallet registers an additional wallet (for ERC-20 tokens sharing
// the ETH network, for example) and emits WALLET_ADDED.
func (m *Manager) AddWallet(w *wallet.Wallet) {
	m.mu.Lock()
	m.wallets[w.ID] = w
	m.mu.Unlock()
	m.emitManager(listener.ManagerWalletAdded, w.ID)
}

func (m *Manager) emitManager(eventType listener.ManagerEventType, detail string) {
	m.events.Publish(listener.NewEvent("manager", string(eventType), m.cfg.Account, detail))
}

// startDispatchLoop fires the QRY tick at the spec's periodic-dispatch
// interval: 1000*confirmationPeriodSeconds/4 ms (spec §4.8), reusing
// the same CWM_CONFIRMATION_PERIOD_FACTOR=4 constant SPEC_FULL §3
// recovers from the original source.
func (m *Manager) startDispatchLoop() {
	interval := m.cfg.ConfirmationPeriod / confirmationPeriodFactor
	if interval <= 0 {
		interval = time.Second
	}
	m.tickerStop = make(chan struct{})
	m.tickerWG.Add(1)
	go func() {
		defer m.tickerWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if m.State() == StateConnected || m.State() == StateSyncing {
					m.qryManager.Tick(context.Background())
				}
			case <-m.tickerStop:
				return
			}
		}
	}()
}

const confirmationPeriodFactor = 4

// Stop halts the periodic dispatch loop and the event handler. Call
// when the manager is being torn down.
func (m *Manager) Stop() {
	close(m.tickerStop)
	m.tickerWG.Wait()
	m.events.Stop()
}

// Submit implements the spec §4.6 submit pipeline: sign with seed, move
// to SIGNED, add to the owning wallet (idempotent), dispatch the raw
// transaction via whichever path the current mode selects for sending,
// and emit TRANSFER_SUBMITTED. seed is zeroed before Submit returns,
// regardless of outcome.
func (m *Manager) Submit(ctx context.Context, w *wallet.Wallet, t *transfer.Transfer, seed []byte) error {
	defer zeroBytes(seed)

	if m.handlers.Manager.SignTransactionWithSeed == nil {
		return fmt.Errorf("manager: chain %s does not support seed signing", m.cfg.Tag)
	}
	if err := m.handlers.Manager.SignTransactionWithSeed(t, seed); err != nil {
		return fmt.Errorf("manager: sign: %w", err)
	}
	if !t.SetState(transfer.State{Kind: transfer.Signed}) {
		return fmt.Errorf("manager: transfer not in a signable state")
	}

	if err := w.AddTransfer(t); err != nil {
		return fmt.Errorf("manager: add transfer: %w", err)
	}

	raw, err := m.handlers.Transfer.Serialize(t, true)
	if err != nil {
		return fmt.Errorf("manager: serialize: %w", err)
	}

	m.submitMu.Lock()
	m.pendingSubmit = t
	m.submitMu.Unlock()

	if err := m.dispatcher.Send(ctx, raw, t.Hash().String()); err != nil {
		return fmt.Errorf("manager: dispatch: %w", err)
	}

	m.emitManager(listener.ManagerTransferSubmitted, t.ID())
	return nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// AnnounceBlockNumber implements client.Announcer, forwarding to QRY.
func (m *Manager) AnnounceBlockNumber(success bool, height uint64, blockHash string) {
	m.qryManager.AnnounceBlockNumber(success, height, blockHash)
}

// AnnounceTransactions implements client.Announcer, forwarding to QRY.
func (m *Manager) AnnounceTransactions(cbState interface{}, success bool, bundles []bundle.TransactionBundle) {
	m.qryManager.AnnounceTransactions(cbState, success, bundles)
}

// AnnounceTransfers implements client.Announcer, forwarding to QRY.
func (m *Manager) AnnounceTransfers(cbState interface{}, success bool, bundles []bundle.TransferBundle) {
	m.qryManager.AnnounceTransfers(cbState, success, bundles)
}

// AnnounceSubmitTransfer implements client.Announcer (spec §4.6/§9): a
// compare-and-swap guards against a late announce regressing a
// transfer the indexer already recovered as INCLUDED in the meantime.
// The interface carries no correlating identifier, so one manager
// tracks at most one in-flight submit at a time — documented as an
// Open Question resolution, since spec §6.1 leaves multi-submit
// correlation unspecified.
func (m *Manager) AnnounceSubmitTransfer(success bool) {
	m.submitMu.Lock()
	t := m.pendingSubmit
	m.pendingSubmit = nil
	m.submitMu.Unlock()
	if t == nil {
		return
	}
	if success {
		t.CompareAndSwapSubmitted()
		return
	}
	t.SetState(transfer.NewErroredState(transfer.SubmitError{Unknown: true}))
}

// EstimateFeeBasis implements spec §4.7's dual sync/async estimation
// path. If the handler resolves the fee basis without consulting the
// network (a fixed-fee chain like XRP/HBAR, or a chain with a cached
// price), cb fires before EstimateFeeBasis returns. Otherwise the
// indexer is asked for a raw cost estimate and cb fires later from
// AnnounceEstimateTransactionFee. cookie is opaque and round-trips
// verbatim, mirroring the indexer's own cbState contract (spec §6.1).
func (m *Manager) EstimateFeeBasis(ctx context.Context, target chain.Address, amount chain.Amount, attrs []*attribute.Attribute, cookie interface{}, cb FeeEstimateCallback) {
	fb, handled, err := m.handlers.Manager.EstimateFeeBasis(ctx, target, amount, nil, attrs)
	if handled {
		cb(cookie, fb, err)
		return
	}

	rid := atomic.AddUint64(&m.nextFeeRequestID, 1)
	m.feeMu.Lock()
	m.pendingFeeEstimates[rid] = feeEstimateState{cookie: cookie, unit: m.cfg.UnitForFee, cb: cb}
	m.feeMu.Unlock()

	var estimateBytes []byte
	if m.handlers.Transfer.BytesForFeeEstimate != nil {
		estimateBytes, _ = m.handlers.Transfer.BytesForFeeEstimate(nil)
	}
	m.indexer.EstimateTransactionFee(ctx, rid, estimateBytes, target.String())
}

// AnnounceEstimateTransactionFee implements client.Announcer: resolves
// the pending async EstimateFeeBasis call identified by cbState (the
// rid EstimateFeeBasis generated) with the handler's translation of
// the indexer's raw cost-unit estimate into a FeeBasis.
func (m *Manager) AnnounceEstimateTransactionFee(cbState interface{}, success bool, hash string, costUnits uint64, attrs []string) {
	rid, ok := cbState.(uint64)
	if !ok {
		return
	}
	m.feeMu.Lock()
	state, found := m.pendingFeeEstimates[rid]
	if found {
		delete(m.pendingFeeEstimates, rid)
	}
	m.feeMu.Unlock()
	if !found {
		return
	}

	if !success {
		state.cb(state.cookie, feebasis.FeeBasis{}, fmt.Errorf("manager: fee estimate failed for %s", hash))
		return
	}

	var fb feebasis.FeeBasis
	var err error
	if m.handlers.Manager.RecoverFeeBasisFromFeeEstimate != nil {
		attrObjs := make([]*attribute.Attribute, 0, len(attrs))
		for _, a := range attrs {
			attrObjs = append(attrObjs, attribute.New(a, nil, false))
		}
		fb, err = m.handlers.Manager.RecoverFeeBasisFromFeeEstimate(costUnits, attrObjs)
	} else {
		err = fmt.Errorf("manager: chain %s has no async fee-estimate recovery", m.cfg.Tag)
	}
	state.cb(state.cookie, fb, err)
}

// managerTransferListener/managerWalletListener/managerManagerListener
// adapt the manager's event publishing into the three nested listener
// interfaces (spec §4.10).
type managerTransferListener struct{ m *Manager }

func (l managerTransferListener) TransferChanged(walletID, transferID, newStateKind string) {
	l.m.events.Publish(listener.NewEvent("transfer", string(listener.TransferChanged), transferID, newStateKind))
}

type managerWalletListener struct{ m *Manager }

func (l managerWalletListener) WalletEvent(walletID string, eventType listener.WalletEventType, detail string) {
	l.m.events.Publish(listener.NewEvent("wallet", string(eventType), walletID, detail))
}

type managerManagerListener struct{ m *Manager }

func (l managerManagerListener) ManagerEvent(eventType listener.ManagerEventType, detail string) {
	l.m.events.Publish(listener.NewEvent("manager", string(eventType), l.m.cfg.Account, detail))
}

// Events exposes the manager's event handler so callers can Subscribe.
func (m *Manager) Events() *listener.Handler { return m.events }
