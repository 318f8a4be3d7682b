package models

import "time"

// SatsPerBTC is the satoshi denomination of one bitcoin.
const SatsPerBTC = 100_000_000

// Transaction is the canonical record produced by the normalizer.
// An explorer transaction paying N destination addresses becomes N records
// that share the parent's timestamp, hash and fee.
type Transaction struct {
	Timestamp  time.Time `json:"timestamp"`            // Always UTC
	Amount     int64     `json:"amountSats"`           // Satoshis delivered to To
	From       string    `json:"from,omitempty"`       // First input address, empty if unknown
	To         string    `json:"to,omitempty"`         // Destination address, empty if unknown
	Fee        int64     `json:"feeSats"`              // Satoshis, 0 when the provider omits it
	TxHash     string    `json:"txHash,omitempty"`     // Evidence only
	NumInputs  int       `json:"numInputs,omitempty"`  // Parent fan-in, 0 when unknown
	NumOutputs int       `json:"numOutputs,omitempty"` // Parent fan-out, 0 when unknown
}

// AmountBTC returns the amount in whole bitcoin for display.
func (t Transaction) AmountBTC() float64 {
	return float64(t.Amount) / SatsPerBTC
}
