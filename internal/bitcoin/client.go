package bitcoin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/rpcclient"
	"go.uber.org/zap"

	"github.com/rawblock/address-risk-engine/internal/config"
	"github.com/rawblock/address-risk-engine/internal/explorer"
	"github.com/rawblock/address-risk-engine/internal/logger"
)

// rpcCaller is the subset of rpcclient.Client the node source needs.
type rpcCaller interface {
	RawRequest(method string, params []json.RawMessage) (json.RawMessage, error)
}

// NodeSource serves address history from a Bitcoin Core wallet. Each
// address is imported once as an addr() watch-only descriptor with a full
// rescan, then read back with listtransactions filtered by label.
type NodeSource struct {
	rpc        rpcCaller
	wallet     rpcCaller
	walletName string
	limit      int
	log        *logger.Logger

	mu       sync.Mutex
	imported map[string]bool
}

// Connect dials the node and makes sure the watch-only wallet is loaded.
func Connect(cfg config.BitcoinConfig, limit int, log *logger.Logger) (*NodeSource, error) {
	log = log.WithComponent("bitcoin")
	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.RPCHost,
		User:         cfg.RPCUser,
		Pass:         cfg.RPCPass,
		HTTPPostMode: true, // Bitcoin Core only supports HTTP POST mode
		DisableTLS:   true,
	}

	log.Info("Connecting to Bitcoin RPC", zap.String("host", cfg.RPCHost))
	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, err
	}

	height, err := client.GetBlockCount()
	if err != nil {
		client.Shutdown()
		return nil, err
	}
	log.Info("Connected to Bitcoin node", zap.Int64("height", height))

	walletCfg := *connCfg
	walletCfg.Host = cfg.RPCHost + "/wallet/" + cfg.Wallet
	walletClient, err := rpcclient.New(&walletCfg, nil)
	if err != nil {
		client.Shutdown()
		return nil, err
	}

	src := newNodeSource(client, walletClient, cfg.Wallet, limit, log)
	if err := src.InitializeWallet(); err != nil {
		log.Warn("Failed to initialize watch-only wallet", zap.Error(err))
	}
	return src, nil
}

func newNodeSource(rpc, wallet rpcCaller, walletName string, limit int, log *logger.Logger) *NodeSource {
	if limit <= 0 {
		limit = 50
	}
	return &NodeSource{
		rpc:        rpc,
		wallet:     wallet,
		walletName: walletName,
		limit:      limit,
		log:        log,
		imported:   make(map[string]bool),
	}
}

// Name identifies the source in logs and metrics.
func (n *NodeSource) Name() string { return "node" }

// InitializeWallet loads the watch-only descriptor wallet, creating it
// on first use.
func (n *NodeSource) InitializeWallet() error {
	raw, err := n.rpc.RawRequest("listwallets", nil)
	if err != nil {
		return err
	}
	var wallets []string
	if err := json.Unmarshal(raw, &wallets); err != nil {
		return err
	}
	for _, w := range wallets {
		if w == n.walletName {
			return nil
		}
	}

	if _, err := n.rpc.RawRequest("loadwallet", rawParams(n.walletName)); err == nil {
		return nil
	}
	// createwallet name disable_private_keys blank passphrase avoid_reuse descriptors load_on_startup
	_, err = n.rpc.RawRequest("createwallet", rawParams(n.walletName, true, false, "", false, true, true))
	return err
}

type descriptorRequest struct {
	Desc      string `json:"desc"`
	Active    bool   `json:"active"`
	Timestamp any    `json:"timestamp"` // "now" or 0 for a full rescan
	Label     string `json:"label"`
}

// importAddress adds addr(address) as a watch-only descriptor labelled
// with the address itself.
func (n *NodeSource) importAddress(address string) error {
	n.mu.Lock()
	done := n.imported[address]
	n.mu.Unlock()
	if done {
		return nil
	}

	resp, err := n.wallet.RawRequest("getdescriptorinfo", rawParams("addr("+address+")"))
	if err != nil {
		return err
	}
	var info struct {
		Descriptor string `json:"descriptor"`
	}
	if err := json.Unmarshal(resp, &info); err != nil {
		return err
	}

	req := []descriptorRequest{{Desc: info.Descriptor, Timestamp: 0, Label: address}}
	resp, err = n.wallet.RawRequest("importdescriptors", rawParams(req))
	if err != nil {
		return err
	}
	var results []struct {
		Success bool `json:"success"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp, &results); err == nil {
		for _, r := range results {
			if !r.Success && r.Error != nil {
				return fmt.Errorf("importdescriptors: %s", r.Error.Message)
			}
		}
	}

	n.mu.Lock()
	n.imported[address] = true
	n.mu.Unlock()
	return nil
}

// FetchTransactions imports the address if needed and returns its wallet
// history as a JSON array of listtransactions entries.
func (n *NodeSource) FetchTransactions(ctx context.Context, address string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := n.importAddress(address); err != nil {
		return nil, fmt.Errorf("%w: import %s: %v", explorer.ErrFetchFailed, address, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// listtransactions "label" count skip include_watchonly
	raw, err := n.wallet.RawRequest("listtransactions", rawParams(address, n.limit, 0, true))
	if err != nil {
		return nil, fmt.Errorf("%w: listtransactions: %v", explorer.ErrFetchFailed, err)
	}
	var entries []btcjson.ListTransactionsResult
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode listtransactions: %v", explorer.ErrFetchFailed, err)
	}

	own := entries[:0]
	for _, e := range entries {
		if e.Address == "" || strings.EqualFold(e.Address, address) {
			if e.Address == "" {
				e.Address = address
			}
			own = append(own, e)
		}
	}
	if len(own) == 0 {
		return nil, explorer.ErrAddressNotFound
	}

	out, err := json.Marshal(own)
	if err != nil {
		return nil, err
	}
	n.log.Debug("Node history fetched", zap.String("address", address), zap.Int("entries", len(own)))
	return out, nil
}

func rawParams(params ...any) []json.RawMessage {
	out := make([]json.RawMessage, len(params))
	for i, v := range params {
		b, err := json.Marshal(v)
		if err != nil {
			b = []byte("null")
		}
		out[i] = b
	}
	return out
}
