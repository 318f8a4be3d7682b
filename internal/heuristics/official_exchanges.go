package heuristics

import "github.com/rawblock/address-risk-engine/pkg/models"

// GenesisAddress receives the coinbase output of block 0. It is never an
// exchange and short-circuits identification.
const GenesisAddress = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"

const curatedSource = "curated"

// Curated hot/cold wallets. The loaded exchange table is layered on top,
// so operators can correct an entry without a rebuild.
var curatedExchangeWallets = map[string][]string{
	"Binance": {
		"1NDyJtNTjmwk5xPNhjgAMu4HDHigtobu1s",
		"3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy",
		"bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh",
		"1LQoWist8KkaUXSPKZHNvEyfrEkPHzSsCd",
		"3Kzh9qAqVWQhEsfQz7zEQL1EuSx5tyNLNS",
		"bc1q9d0w2ut6cd7dl28yq6r86zz04x6ekcc740qgnj",
	},
	"Upbit": {
		"3Cjybp2r1tGgEUXG6oF1H1Q1r6t1Q1r6t1",
		"1FzWLkAahHooV3TzLvzv2YnuKFj3fx4m6B",
		"1Ej5N5L4QpDduz7HMwG2PJpxcnj3Y4ozzL",
	},
	"Coinbase": {
		"3QCzvfL4ZRvmJFiWWBVwxfdaNBT8EtxB5y",
		"3NukJ6fYZJ5Kk8bPjycAnruZkE5Q7UW7i8",
		"3Cbq7aT1tY8kMxWLbitaG7yT6bPbKChq64",
		"3QJmV3qfvL9SuYo34YihAf3sRCW3qSinyC",
	},
	"OKX":      {"37XuVSEpWW4trkfmvWzegTHQt7BdktSKUs"},
	"Bitfinex": {"3D2oetdNuZUqQHPJmcMDDHYoqkyNVsFk9r", "1Kr6QSydW9bFQG1mXiPNNu6WpJGmUa9i1g"},
	"Kraken":   {"14XcsWCCWq1BJLeexVFeDksbZJwZYDkL1D"},
	"Huobi":    {"1Cdid9KFAaatwczBwBttQcwXYCpvK8h7FK"},
	"Bithumb":  {"1DiYKei8qUYsiozLZzKYiRMxWYQJwUPeWa"},
	"KuCoin":   {"1PgQVLmst3Z314JrQn5TNiys8Hc38TcXJu"},
	"Gate.io":  {"3GZ7eYJb4s4yzBWqc2VFtAjhZ5VrUueQkM"},
}

// curatedOrder fixes first-owner precedence for addresses listed twice.
var curatedOrder = []string{
	"Binance", "Upbit", "Coinbase", "OKX", "Bitfinex",
	"Kraken", "Huobi", "Bithumb", "KuCoin", "Gate.io",
}

// OfficialExchangeBook merges the curated wallets with a loaded exchange
// table. Loaded entries win on conflict. The genesis address is never
// listed.
func OfficialExchangeBook(loaded models.AddressBook) models.AddressBook {
	book := make(models.AddressBook, len(loaded)+32)
	for _, name := range curatedOrder {
		for _, addr := range curatedExchangeWallets[name] {
			if _, taken := book[addr]; taken {
				continue
			}
			book[addr] = models.AddressLabel{Label: name, Type: "exchange", Source: curatedSource}
		}
	}
	for addr, label := range loaded {
		if addr == "" || label.Label == "" {
			continue
		}
		book[addr] = label
	}
	delete(book, GenesisAddress)
	return book
}
