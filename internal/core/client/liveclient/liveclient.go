// Package liveclient adapts internal/services/chainadapter's live
// RPC-backed Service (itself built on src/chainadapter's
// bitcoin/ethereum adapters) into the core client package's Sender
// contract, so the BTC/ETH P2P send path has a real broadcaster
// instead of staying unwired teacher code.
package liveclient

import (
	"context"
	"fmt"
	"time"

	coreadapter "github.com/arcsign/chainadapter"
	svcchainadapter "github.com/arcsign/walletkit/internal/services/chainadapter"
)

// Sender implements client.Sender by broadcasting a raw, already-signed
// transaction through internal/services/chainadapter's chain-routed RPC
// client.
type Sender struct {
	svc         *svcchainadapter.Service
	chainID     string
	rpcEndpoint string
}

// NewSender constructs a Sender for one chain ID ("bitcoin",
// "bitcoin-testnet", "ethereum", ...); rpcEndpoint may be empty to use
// the service's built-in default.
func NewSender(svc *svcchainadapter.Service, chainID, rpcEndpoint string) *Sender {
	return &Sender{svc: svc, chainID: chainID, rpcEndpoint: rpcEndpoint}
}

// Send wraps the chain handler's serialized, signed bytes in the shape
// the adapter's Broadcast expects and submits them over RPC.
func (s *Sender) Send(ctx context.Context, raw []byte, hashHex string) error {
	signed := &coreadapter.SignedTransaction{
		TxHash:       hashHex,
		SerializedTx: raw,
		SignedAt:     time.Now(),
	}
	receipt, err := s.svc.BroadcastTransaction(ctx, s.chainID, signed, s.rpcEndpoint)
	if err != nil {
		return fmt.Errorf("liveclient: broadcast on %s: %w", s.chainID, err)
	}
	if receipt.TxHash == "" {
		return fmt.Errorf("liveclient: broadcast on %s returned no tx hash", s.chainID)
	}
	return nil
}
