package monitor

import (
	"sort"
	"sync"
	"time"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Address Watchlist
//
// Concurrent-safe set of addresses the poller re-scores on every tick.
// sync.RWMutex lets the API list entries while the poller records
// fresh levels. Each entry remembers the last level it was scored at so
// the poller can report transitions.

// WatchedAddress holds metadata for a monitored address
type WatchedAddress struct {
	Address     string           `json:"address"`
	Label       string           `json:"label,omitempty"`
	AddedAt     time.Time        `json:"addedAt"`
	LastLevel   models.RiskLevel `json:"lastLevel,omitempty"`
	LastScore   int              `json:"lastScore"`
	LastChecked time.Time        `json:"lastChecked,omitempty"`
	LastError   string           `json:"lastError,omitempty"`
}

// Watchlist is the set of monitored addresses.
type Watchlist struct {
	mu        sync.RWMutex
	addresses map[string]WatchedAddress
	now       func() time.Time
}

// NewWatchlist creates a new empty watchlist
func NewWatchlist() *Watchlist {
	return &Watchlist{
		addresses: make(map[string]WatchedAddress),
		now:       time.Now,
	}
}

// Add registers an address for monitoring. Re-adding keeps the recorded
// level and only updates the label.
func (w *Watchlist) Add(addr, label string) WatchedAddress {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, exists := w.addresses[addr]
	if !exists {
		entry = WatchedAddress{Address: addr, AddedAt: w.now().UTC()}
	}
	entry.Label = label
	w.addresses[addr] = entry
	return entry
}

// Remove stops monitoring an address. It reports whether it was watched.
func (w *Watchlist) Remove(addr string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, exists := w.addresses[addr]
	delete(w.addresses, addr)
	return exists
}

// Get returns the watchlist entry for an address
func (w *Watchlist) Get(addr string) (WatchedAddress, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	entry, exists := w.addresses[addr]
	return entry, exists
}

// Record stores the outcome of a scoring pass and returns the level the
// address had before it. Unknown addresses are ignored.
func (w *Watchlist) Record(addr string, level models.RiskLevel, score int) (models.RiskLevel, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, exists := w.addresses[addr]
	if !exists {
		return "", false
	}
	previous := entry.LastLevel
	entry.LastLevel = level
	entry.LastScore = score
	entry.LastChecked = w.now().UTC()
	entry.LastError = ""
	w.addresses[addr] = entry
	return previous, true
}

// RecordError notes a failed scoring pass without touching the level.
func (w *Watchlist) RecordError(addr string, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if entry, exists := w.addresses[addr]; exists {
		entry.LastChecked = w.now().UTC()
		entry.LastError = err.Error()
		w.addresses[addr] = entry
	}
}

// Size returns the number of watched addresses
func (w *Watchlist) Size() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.addresses)
}

// List returns all watched addresses ordered by address.
func (w *Watchlist) List() []WatchedAddress {
	w.mu.RLock()
	defer w.mu.RUnlock()

	list := make([]WatchedAddress, 0, len(w.addresses))
	for _, entry := range w.addresses {
		list = append(list, entry)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Address < list[j].Address })
	return list
}
