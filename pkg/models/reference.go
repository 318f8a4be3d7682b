package models

// AddressLabel is the metadata attached to a reference-table address.
type AddressLabel struct {
	Label  string `json:"label"`            // Entity name, e.g. "Binance" or "Wasabi"
	Type   string `json:"type,omitempty"`   // e.g. "hot_wallet", "mixer", "bridge"
	Source string `json:"source,omitempty"` // Where the entry came from
}

// AddressBook maps an address to its label. Books are built once at start
// and shared read-only.
type AddressBook map[string]AddressLabel

// Lookup returns the label for addr, if listed.
func (b AddressBook) Lookup(addr string) (AddressLabel, bool) {
	if addr == "" {
		return AddressLabel{}, false
	}
	l, ok := b[addr]
	return l, ok
}

// ReferenceData bundles the static tables consumed by the detectors and
// the exchange identifier.
type ReferenceData struct {
	Denylist  AddressBook
	Mixers    AddressBook
	Bridges   AddressBook
	Exchanges AddressBook
	Scenarios []ScenarioTemplate
}
