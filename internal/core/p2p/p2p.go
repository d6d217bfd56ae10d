// Package p2p is an opaque wrapper around an external peer-to-peer
// engine, used only for Bitcoin-family chains (spec §2 #9). The P2P
// protocol itself is out of scope (spec §1 Non-goals: "no backend
// transport"); this package only defines the thin contract the core
// depends on, mirroring src/chainadapter/rpc.RPCClient's "interface
// the core depends on, implementation external" shape.
package p2p

import "context"

// Engine is the contract an external P2P implementation satisfies.
// The core only ever calls these four operations; everything about
// peer discovery, block/header validation, and wire protocol is the
// engine's concern, never the core's (spec §1 Non-goals).
type Engine interface {
	Connect(ctx context.Context, peer string) error
	Disconnect(ctx context.Context) error
	Sync(ctx context.Context, fromDepth uint64) error
	Send(ctx context.Context, raw []byte, hashHex string) error
}

// Manager wraps an Engine with the connect/disconnect/sync/send
// surface the WalletManager lifecycle drives (spec §4.8). It is only
// constructed for BTC/BCH/BSV chain tags.
type Manager struct {
	engine Engine
}

// NewManager wraps engine. engine may be nil until a concrete
// implementation is wired in by the hosting application; Manager's
// methods report a "not wired" error rather than panicking, since
// P2P is explicitly a pluggable external collaborator.
func NewManager(engine Engine) *Manager {
	return &Manager{engine: engine}
}

func (m *Manager) Connect(ctx context.Context, peer string) error {
	if m.engine == nil {
		return errNotWired
	}
	return m.engine.Connect(ctx, peer)
}

func (m *Manager) Disconnect(ctx context.Context) error {
	if m.engine == nil {
		return errNotWired
	}
	return m.engine.Disconnect(ctx)
}

// Sync implements client.Syncer.
func (m *Manager) Sync(ctx context.Context) {
	if m.engine != nil {
		_ = m.engine.Sync(ctx, 0)
	}
}

// SyncToDepth implements client.Syncer.
func (m *Manager) SyncToDepth(ctx context.Context, depth uint64) {
	if m.engine != nil {
		_ = m.engine.Sync(ctx, depth)
	}
}

// Send implements client.Sender.
func (m *Manager) Send(ctx context.Context, raw []byte, hashHex string) error {
	if m.engine == nil {
		return errNotWired
	}
	return m.engine.Send(ctx, raw, hashHex)
}

type p2pError string

func (e p2pError) Error() string { return string(e) }

const errNotWired = p2pError("p2p: no engine wired for this manager")
