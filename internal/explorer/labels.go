package explorer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rawblock/address-risk-engine/internal/heuristics"
	"github.com/rawblock/address-risk-engine/pkg/models"
)

const (
	DefaultBlockchairURL     = "https://api.blockchair.com"
	DefaultWalletExplorerURL = "https://www.walletexplorer.com"
)

// knownExchanges maps lowercase keywords to display names. Order matters:
// the first keyword found names the exchange.
var knownExchanges = []struct {
	keyword string
	name    string
}{
	{"binance", "Binance"},
	{"coinbase", "Coinbase"},
	{"upbit", "Upbit"},
	{"okx", "OKX"},
	{"bitfinex", "Bitfinex"},
	{"kraken", "Kraken"},
	{"huobi", "Huobi"},
	{"kucoin", "KuCoin"},
	{"gate.io", "Gate.io"},
	{"bybit", "Bybit"},
	{"ftx", "FTX"},
	{"gemini", "Gemini"},
	{"bithumb", "Bithumb"},
}

// majorExchanges raise a WalletExplorer hit to high confidence.
var majorExchanges = map[string]bool{"Binance": true, "Coinbase": true, "Upbit": true, "OKX": true}

// exchangeIn returns the first known exchange mentioned in text.
func exchangeIn(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, ex := range knownExchanges {
		if strings.Contains(lower, ex.keyword) {
			return ex.name, true
		}
	}
	return "", false
}

// Blockchair reads address tags from the Blockchair dashboard API.
type Blockchair struct {
	baseURL string
	http    httpGetter
}

// NewBlockchair creates a Blockchair label lookup.
func NewBlockchair(baseURL string, timeout time.Duration) *Blockchair {
	if baseURL == "" {
		baseURL = DefaultBlockchairURL
	}
	return &Blockchair{baseURL: strings.TrimRight(baseURL, "/"), http: newHTTPGetter(timeout)}
}

type blockchairEntry struct {
	Tags    []string `json:"tags"`
	Address struct {
		Tags []string `json:"tags"`
	} `json:"address"`
}

// LookupLabels reports exchange-related tags for address.
func (b *Blockchair) LookupLabels(ctx context.Context, address string) (heuristics.LabelResult, error) {
	endpoint := fmt.Sprintf("%s/bitcoin/dashboards/address/%s", b.baseURL, url.PathEscape(address))
	body, err := b.http.get(ctx, endpoint)
	if errors.Is(err, ErrAddressNotFound) {
		return heuristics.LabelResult{Source: "blockchair"}, nil
	}
	if err != nil {
		return heuristics.LabelResult{}, err
	}

	var doc struct {
		Data map[string]blockchairEntry `json:"data"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return heuristics.LabelResult{}, fmt.Errorf("%w: decode blockchair: %v", ErrFetchFailed, err)
	}

	res := heuristics.LabelResult{Source: "blockchair"}
	entry, ok := doc.Data[address]
	if !ok {
		return res, nil
	}
	for _, tag := range append(entry.Tags, entry.Address.Tags...) {
		name, known := exchangeIn(tag)
		if !known && !strings.Contains(strings.ToLower(tag), "exchange") {
			continue
		}
		res.Found = true
		res.Tags = append(res.Tags, tag)
		if res.Exchange == "" && known {
			res.Exchange = name
		}
	}
	if res.Found {
		res.Confidence = models.ConfidenceMedium
	}
	return res, nil
}

// WalletExplorer scans the WalletExplorer address page for exchange
// keywords. The site has no JSON API.
type WalletExplorer struct {
	baseURL string
	http    httpGetter
}

// NewWalletExplorer creates a WalletExplorer label lookup.
func NewWalletExplorer(baseURL string, timeout time.Duration) *WalletExplorer {
	if baseURL == "" {
		baseURL = DefaultWalletExplorerURL
	}
	g := newHTTPGetter(timeout)
	g.headers = map[string]string{
		"Accept":          "text/html,application/xhtml+xml",
		"Accept-Language": "en-US,en;q=0.5",
	}
	return &WalletExplorer{baseURL: strings.TrimRight(baseURL, "/"), http: g}
}

// LookupLabels reports exchange keywords found on the address page.
func (w *WalletExplorer) LookupLabels(ctx context.Context, address string) (heuristics.LabelResult, error) {
	endpoint := fmt.Sprintf("%s/address/%s", w.baseURL, url.PathEscape(address))
	body, err := w.http.get(ctx, endpoint)
	if errors.Is(err, ErrAddressNotFound) {
		return heuristics.LabelResult{Source: "walletexplorer"}, nil
	}
	if err != nil {
		return heuristics.LabelResult{}, err
	}

	page := strings.ToLower(string(body))
	res := heuristics.LabelResult{Source: "walletexplorer"}
	for _, ex := range knownExchanges {
		if strings.Contains(page, ex.keyword) {
			res.Tags = append(res.Tags, ex.keyword)
			if res.Exchange == "" {
				res.Exchange = ex.name
			}
		}
	}
	if strings.Contains(page, "exchange") {
		res.Tags = append(res.Tags, "exchange")
	}
	if len(res.Tags) == 0 {
		return res, nil
	}

	res.Found = true
	res.Confidence = models.ConfidenceMedium
	if majorExchanges[res.Exchange] {
		res.Confidence = models.ConfidenceHigh
	}
	return res, nil
}

// Chain queries lookups in order and returns the first positive answer.
type Chain struct {
	lookups []heuristics.LabelLookup
}

// NewChain creates a first-found lookup chain.
func NewChain(lookups ...heuristics.LabelLookup) *Chain {
	return &Chain{lookups: lookups}
}

// LookupLabels returns the first Found result. It fails only when every
// lookup failed; a mix of failures and clean misses is a miss.
func (c *Chain) LookupLabels(ctx context.Context, address string) (heuristics.LabelResult, error) {
	var errs []error
	for _, l := range c.lookups {
		if err := ctx.Err(); err != nil {
			return heuristics.LabelResult{}, err
		}
		res, err := l.LookupLabels(ctx, address)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if res.Found {
			return res, nil
		}
	}
	if len(errs) > 0 && len(errs) == len(c.lookups) {
		return heuristics.LabelResult{}, errors.Join(errs...)
	}
	return heuristics.LabelResult{}, nil
}
