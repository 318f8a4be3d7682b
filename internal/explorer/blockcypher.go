package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBlockCypherURL = "https://api.blockcypher.com/v1/btc/main"
	DefaultMempoolURL     = "https://mempool.space/api"
	defaultTxLimit        = 50
)

// BlockCypher fetches full address history from the BlockCypher API.
type BlockCypher struct {
	baseURL string
	token   string
	limit   int
	http    httpGetter
}

// NewBlockCypher creates a BlockCypher source. token may be empty (rate
// limited anonymous access).
func NewBlockCypher(baseURL, token string, limit int, timeout time.Duration) *BlockCypher {
	if baseURL == "" {
		baseURL = DefaultBlockCypherURL
	}
	if limit <= 0 {
		limit = defaultTxLimit
	}
	return &BlockCypher{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		limit:   limit,
		http:    newHTTPGetter(timeout),
	}
}

// Name identifies the source in logs and metrics.
func (b *BlockCypher) Name() string { return "blockcypher" }

// FetchTransactions returns the raw /addrs/{address}/full document.
func (b *BlockCypher) FetchTransactions(ctx context.Context, address string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(b.limit))
	if b.token != "" {
		q.Set("token", b.token)
	}
	endpoint := fmt.Sprintf("%s/addrs/%s/full?%s", b.baseURL, url.PathEscape(address), q.Encode())

	body, err := b.http.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: blockcypher returned invalid JSON", ErrFetchFailed)
	}
	return body, nil
}

// Mempool fetches address history from a mempool.space / Esplora API.
type Mempool struct {
	baseURL string
	http    httpGetter
}

// NewMempool creates an Esplora-compatible source.
func NewMempool(baseURL string, timeout time.Duration) *Mempool {
	if baseURL == "" {
		baseURL = DefaultMempoolURL
	}
	return &Mempool{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    newHTTPGetter(timeout),
	}
}

// Name identifies the source in logs and metrics.
func (m *Mempool) Name() string { return "mempool" }

// FetchTransactions returns the raw /address/{address}/txs array.
func (m *Mempool) FetchTransactions(ctx context.Context, address string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/address/%s/txs", m.baseURL, url.PathEscape(address))
	body, err := m.http.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: mempool returned invalid JSON", ErrFetchFailed)
	}
	return body, nil
}
