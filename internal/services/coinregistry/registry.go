package coinregistry

import (
	"errors"
	"sort"
	"strings"

	"github.com/arcsign/walletkit/internal/models"
)

// Registry manages the collection of supported cryptocurrency coins.
//
// Narrowed (from the teacher's 44-entry top-market-cap table) to the
// closed chain-tag enumeration the wallet core handles: BTC, BCH, BSV,
// ETH (+ ERC-20 tokens, which share ETH's FormatterID and CoinType),
// HBAR, XRP, XTZ. The registry itself is a currency-metadata contract
// the core consumes, not a core component (spec.md §1 Non-goals).
type Registry struct {
	coins       []CoinMetadata
	symbolIndex map[string]int
}

// NewRegistry creates and initializes a new coin registry.
func NewRegistry() *Registry {
	r := &Registry{
		coins:       make([]CoinMetadata, 0),
		symbolIndex: make(map[string]int),
	}

	r.addCoin(CoinMetadata{
		Symbol:        "BTC",
		Name:          "Bitcoin",
		CoinType:      0,
		FormatterID:   "bitcoin",
		MarketCapRank: 1,
		KeyType:       KeyTypeSecp256k1,
		Category:      models.ChainCategoryUTXO,
	})
	r.addCoin(CoinMetadata{
		Symbol:        "BCH",
		Name:          "Bitcoin Cash",
		CoinType:      145,
		FormatterID:   "bitcoincash",
		MarketCapRank: 2,
		KeyType:       KeyTypeSecp256k1,
		Category:      models.ChainCategoryUTXO,
	})
	r.addCoin(CoinMetadata{
		Symbol:        "BSV",
		Name:          "Bitcoin SV",
		CoinType:      236,
		FormatterID:   "bitcoin", // BSV is wire-compatible with legacy BTC addressing
		MarketCapRank: 3,
		KeyType:       KeyTypeSecp256k1,
		Category:      models.ChainCategoryUTXO,
	})
	r.addCoin(CoinMetadata{
		Symbol:        "ETH",
		Name:          "Ethereum",
		CoinType:      60,
		FormatterID:   "ethereum",
		MarketCapRank: 4,
		KeyType:       KeyTypeSecp256k1,
		Category:      models.ChainCategoryEVMMainnet,
	})
	r.addCoin(CoinMetadata{
		Symbol:        "USDT",
		Name:          "Tether (ERC-20)",
		CoinType:      60,
		FormatterID:   "ethereum",
		MarketCapRank: 5,
		KeyType:       KeyTypeSecp256k1,
		Category:      models.ChainCategoryEVMMainnet,
	})
	r.addCoin(CoinMetadata{
		Symbol:        "HBAR",
		Name:          "Hedera",
		CoinType:      3030,
		FormatterID:   "hedera",
		MarketCapRank: 6,
		KeyType:       KeyTypeEd25519,
		Category:      models.ChainCategoryCustom,
	})
	r.addCoin(CoinMetadata{
		Symbol:        "XRP",
		Name:          "XRP",
		CoinType:      144,
		FormatterID:   "ripple",
		MarketCapRank: 7,
		KeyType:       KeyTypeSecp256k1,
		Category:      models.ChainCategoryCustom,
	})
	r.addCoin(CoinMetadata{
		Symbol:        "XTZ",
		Name:          "Tezos",
		CoinType:      1729,
		FormatterID:   "tezos",
		MarketCapRank: 8,
		KeyType:       KeyTypeEd25519,
		Category:      models.ChainCategoryCustom,
	})

	return r
}

// addCoin adds a coin to the registry.
func (r *Registry) addCoin(coin CoinMetadata) {
	r.coins = append(r.coins, coin)
	r.symbolIndex[coin.Symbol] = len(r.coins) - 1
}

// GetCoinBySymbol retrieves coin metadata by symbol (case-insensitive).
func (r *Registry) GetCoinBySymbol(symbol string) (*CoinMetadata, error) {
	symbol = strings.ToUpper(symbol)

	index, exists := r.symbolIndex[symbol]
	if !exists {
		return nil, errors.New("coin not found: " + symbol)
	}

	return &r.coins[index], nil
}

// GetAllCoinsSortedByMarketCap returns all coins sorted by market capitalization rank.
func (r *Registry) GetAllCoinsSortedByMarketCap() []CoinMetadata {
	sorted := make([]CoinMetadata, len(r.coins))
	copy(sorted, r.coins)

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MarketCapRank < sorted[j].MarketCapRank
	})

	return sorted
}
