// Command walletkitd is a demo CLI wiring a WalletManager end-to-end:
// it registers every chain handler, creates a manager, connects,
// syncs against a deterministic demo indexer, creates and submits a
// transfer, and prints every event the manager emits. It is the
// Go-native front door to internal/core, replacing cmd/arcsign's old
// Tauri-FFI-oriented flow (kept alongside, unmodified, as reference).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/arcsign/walletkit/internal/core/chain"
	"github.com/arcsign/walletkit/internal/core/client"
	"github.com/arcsign/walletkit/internal/core/feebasis"
	"github.com/arcsign/walletkit/internal/core/handler"
	"github.com/arcsign/walletkit/internal/core/handlers/btc"
	"github.com/arcsign/walletkit/internal/core/handlers/eth"
	"github.com/arcsign/walletkit/internal/core/handlers/hbar"
	"github.com/arcsign/walletkit/internal/core/handlers/xrp"
	"github.com/arcsign/walletkit/internal/core/handlers/xtz"
	"github.com/arcsign/walletkit/internal/core/listener"
	"github.com/arcsign/walletkit/internal/core/manager"
	"github.com/arcsign/walletkit/internal/services/bip39service"
)

// registerHandlers installs every chain tag's handler.Set into the
// global registry exactly once (spec §4.1's closed-enumeration
// requirement that every tag be registered before the manager serves
// requests).
func registerHandlers() error {
	reg := handler.Global()

	btcSet, err := btc.NewSet(btc.BTC)
	if err != nil {
		return fmt.Errorf("btc: %w", err)
	}
	bchSet, err := btc.NewSet(btc.BCH)
	if err != nil {
		return fmt.Errorf("bch: %w", err)
	}
	bsvSet, err := btc.NewSet(btc.BSV)
	if err != nil {
		return fmt.Errorf("bsv: %w", err)
	}

	sets := []*handler.Set{btcSet, bchSet, bsvSet, eth.NewSet(), hbar.NewSet(), xrp.NewSet(), xtz.NewSet()}
	for _, s := range sets {
		if err := reg.Register(s); err != nil {
			return err
		}
	}
	for _, tag := range chain.Tags {
		if !reg.Registered(tag) {
			return fmt.Errorf("walletkitd: chain tag %s has no registered handler", tag)
		}
	}
	return nil
}

// demoIndexer is a deterministic, in-memory stand-in for a real
// indexer client (spec §6.1's Indexer contract), used so the demo runs
// without a network dependency. It answers every call on a goroutine
// and announces back through whatever client.Announcer is attached
// (the manager itself), mirroring a real indexer's async contract.
type demoIndexer struct {
	announcer client.Announcer
	height    uint64
}

func (d *demoIndexer) GetBlockNumber(ctx context.Context, cbState interface{}) {
	go d.announcer.AnnounceBlockNumber(true, d.height, fmt.Sprintf("demo-block-%d", d.height))
}

func (d *demoIndexer) GetTransactions(ctx context.Context, cbState interface{}, addresses []chain.Address, beg, end uint64) {
	go d.announcer.AnnounceTransactions(cbState, true, nil)
}

func (d *demoIndexer) GetTransfers(ctx context.Context, cbState interface{}, addresses []chain.Address, beg, end uint64) {
	go d.announcer.AnnounceTransfers(cbState, true, nil)
}

func (d *demoIndexer) SubmitTransaction(ctx context.Context, cbState interface{}, raw []byte, hashHex string) {
	go d.announcer.AnnounceSubmitTransfer(true)
}

func (d *demoIndexer) EstimateTransactionFee(ctx context.Context, cbState interface{}, raw []byte, hashHex string) {
	go d.announcer.AnnounceEstimateTransactionFee(cbState, true, hashHex, 250, nil)
}

func main() {
	chainFlag := flag.String("chain", "BTC", "chain tag: BTC, BCH, BSV, ETH, HBAR, XRP, or XTZ")
	storagePath := flag.String("storage", "./walletkitd-data", "on-disk storage root for the file service")
	targetFlag := flag.String("target", "", "target address for the demo transfer")
	amountFlag := flag.String("amount", "0", "transfer amount, in the chain's smallest unit")
	flag.Parse()

	if err := registerHandlers(); err != nil {
		log.Fatalf("walletkitd: %v", err)
	}

	tag := chain.Tag(*chainFlag)
	if !tag.Valid() {
		log.Fatalf("walletkitd: unknown chain tag %q", *chainFlag)
	}
	handlers := handler.Global().Lookup(tag)

	bip39 := bip39service.NewBIP39Service()
	mnemonic, err := bip39.GenerateMnemonic(24)
	if err != nil {
		log.Fatalf("walletkitd: generate mnemonic: %v", err)
	}
	seed, err := bip39.MnemonicToSeed(mnemonic, "")
	if err != nil {
		log.Fatalf("walletkitd: mnemonic to seed: %v", err)
	}
	fmt.Printf("demo mnemonic (do not reuse): %s\n", mnemonic)

	unit := demoUnit(tag)
	cfg := manager.Config{
		Account:            "demo-account-" + string(tag),
		Network:            "mainnet",
		Tag:                tag,
		Mode:               manager.APIOnly,
		StoragePath:        *storagePath,
		ConfirmationPeriod: 10 * time.Minute,
		Unit:               unit,
		UnitForFee:         unit,
	}

	idx := &demoIndexer{height: 700_000}
	m, err := manager.Create(cfg, handlers, idx, nil, "")
	if err != nil {
		log.Fatalf("walletkitd: create manager: %v", err)
	}
	idx.announcer = m

	logEvent := func(e listener.Event) {
		fmt.Printf("[event] %s/%s subject=%s detail=%s\n", e.Kind, e.Type, e.Subject, e.Detail)
	}
	m.Events().Subscribe("transfer", logEvent)
	m.Events().Subscribe("wallet", logEvent)
	m.Events().Subscribe("manager", logEvent)

	ctx := context.Background()
	if err := m.Connect(ctx, ""); err != nil {
		log.Fatalf("walletkitd: connect: %v", err)
	}
	if err := m.Sync(ctx); err != nil {
		log.Fatalf("walletkitd: sync: %v", err)
	}

	if *targetFlag != "" {
		target := chain.NewAddress(tag, *targetFlag)
		amountValue, ok := new(big.Int).SetString(*amountFlag, 10)
		if !ok {
			log.Fatalf("walletkitd: invalid amount %q", *amountFlag)
		}
		amount := chain.NewAmount(unit, amountValue)

		type feeResult struct {
			fb  feebasis.FeeBasis
			err error
		}
		feeCh := make(chan feeResult, 1)
		m.EstimateFeeBasis(ctx, target, amount, nil, nil, func(cookie interface{}, fb feebasis.FeeBasis, err error) {
			feeCh <- feeResult{fb, err}
		})
		res := <-feeCh
		if res.err != nil {
			log.Fatalf("walletkitd: estimate fee basis: %v", res.err)
		}

		primary := m.PrimaryWallet()
		t, err := handlers.Wallet.CreateTransfer(primary, target, amount, res.fb, nil)
		if err != nil {
			log.Fatalf("walletkitd: create transfer: %v", err)
		}

		seedCopy := append([]byte(nil), seed...)
		if err := m.Submit(ctx, primary, t, seedCopy); err != nil {
			log.Fatalf("walletkitd: submit: %v", err)
		}
		fmt.Printf("submitted transfer %s to %s, amount %s\n", t.ID(), target.String(), amount.String())
	}

	time.Sleep(200 * time.Millisecond) // let the demo indexer's goroutines announce before exit
	m.Stop()
	os.Exit(0)
}

func demoUnit(tag chain.Tag) chain.Unit {
	switch tag {
	case chain.BTC:
		return chain.Unit{Tag: chain.BTC, Symbol: "sat", Base: "BTC", Decimals: 8}
	case chain.BCH:
		return chain.Unit{Tag: chain.BCH, Symbol: "sat", Base: "BCH", Decimals: 8}
	case chain.BSV:
		return chain.Unit{Tag: chain.BSV, Symbol: "sat", Base: "BSV", Decimals: 8}
	case chain.ETH:
		return chain.Unit{Tag: chain.ETH, Symbol: "wei", Base: "ETH", Decimals: 18}
	case chain.HBAR:
		return chain.Unit{Tag: chain.HBAR, Symbol: "tinybar", Base: "HBAR", Decimals: 8}
	case chain.XRP:
		return chain.Unit{Tag: chain.XRP, Symbol: "drop", Base: "XRP", Decimals: 6}
	case chain.XTZ:
		return chain.Unit{Tag: chain.XTZ, Symbol: "mutez", Base: "XTZ", Decimals: 6}
	default:
		return chain.Unit{Tag: tag, Symbol: string(tag), Base: string(tag), Decimals: 0}
	}
}
