package models

import "encoding/json"

// Evidence is a detector-specific payload. Each detector picks the variant
// that fits its signal; renderers switch on EvidenceKind.
type Evidence interface {
	EvidenceKind() string
}

// IntervalEvidence is a gap between two consecutive transactions.
type IntervalEvidence struct {
	Seconds float64 `json:"seconds"`
	FromTx  string  `json:"fromTx,omitempty"`
	ToTx    string  `json:"toTx,omitempty"`
}

func (IntervalEvidence) EvidenceKind() string { return "interval" }

// AmountEvidence is a single flagged amount.
type AmountEvidence struct {
	Amount    int64   `json:"amount"` // sats
	TxHash    string  `json:"txHash,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
}

func (AmountEvidence) EvidenceKind() string { return "amount" }

// AddressEvidence is a flagged counterparty address.
type AddressEvidence struct {
	Address string `json:"address"`
	Count   int    `json:"count,omitempty"`
	Label   string `json:"label,omitempty"`
	Source  string `json:"source,omitempty"`
}

func (AddressEvidence) EvidenceKind() string { return "address" }

// IndicatorEvidence names a sub-signal and the points it contributed.
type IndicatorEvidence struct {
	Indicator string `json:"indicator"`
	Detail    string `json:"detail,omitempty"`
	Points    int    `json:"points"`
}

func (IndicatorEvidence) EvidenceKind() string { return "indicator" }

// DetectorResult is the (score, evidence) pair every detector returns.
type DetectorResult struct {
	Name     string     `json:"name"`
	Score    int        `json:"score"`
	Evidence []Evidence `json:"evidence"`
}

// Flagged reports whether the detector contributed any risk.
func (r DetectorResult) Flagged() bool {
	return r.Score > 0
}

type taggedEvidence struct {
	Kind string   `json:"kind"`
	Data Evidence `json:"data"`
}

// MarshalJSON tags each evidence item with its kind so that consumers can
// render the heterogeneous list without knowing the detector.
func (r DetectorResult) MarshalJSON() ([]byte, error) {
	items := make([]taggedEvidence, 0, len(r.Evidence))
	for _, ev := range r.Evidence {
		items = append(items, taggedEvidence{Kind: ev.EvidenceKind(), Data: ev})
	}
	return json.Marshal(struct {
		Name     string           `json:"name"`
		Score    int              `json:"score"`
		Evidence []taggedEvidence `json:"evidence"`
	}{r.Name, r.Score, items})
}

// UnmarshalJSON restores evidence written by MarshalJSON. Items of an
// unknown kind are skipped.
func (r *DetectorResult) UnmarshalJSON(data []byte) error {
	var doc struct {
		Name     string `json:"name"`
		Score    int    `json:"score"`
		Evidence []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"evidence"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	r.Name = doc.Name
	r.Score = doc.Score
	r.Evidence = make([]Evidence, 0, len(doc.Evidence))
	for _, item := range doc.Evidence {
		ev, err := decodeEvidence(item.Kind, item.Data)
		if err != nil {
			return err
		}
		if ev != nil {
			r.Evidence = append(r.Evidence, ev)
		}
	}
	return nil
}

func decodeEvidence(kind string, data json.RawMessage) (Evidence, error) {
	switch kind {
	case "interval":
		var ev IntervalEvidence
		err := json.Unmarshal(data, &ev)
		return ev, err
	case "amount":
		var ev AmountEvidence
		err := json.Unmarshal(data, &ev)
		return ev, err
	case "address":
		var ev AddressEvidence
		err := json.Unmarshal(data, &ev)
		return ev, err
	case "indicator":
		var ev IndicatorEvidence
		err := json.Unmarshal(data, &ev)
		return ev, err
	}
	return nil, nil
}
