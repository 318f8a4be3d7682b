package ingest

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/shopspring/decimal"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

var satsPerBTC = decimal.NewFromInt(models.SatsPerBTC)

// timeLayouts are tried in order for string timestamps. Layouts without a
// zone are interpreted as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func nested(m map[string]any, keys ...string) any {
	var cur any = m
	for _, k := range keys {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = obj[k]
	}
	return cur
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func intOr(v any, fallback int) int {
	if n, ok := asSats(v); ok && n >= 0 {
		return int(n)
	}
	return fallback
}

func absInt(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// asSats reads a value already denominated in satoshis. Fractional values
// are rounded to the nearest satoshi.
func asSats(v any) (int64, bool) {
	d, ok := asDecimal(v)
	if !ok {
		return 0, false
	}
	return d.Round(0).IntPart(), true
}

// btcToSats converts a BTC-denominated value to satoshis exactly once,
// without float rounding drift.
func btcToSats(v any) (int64, bool) {
	d, ok := asDecimal(v)
	if !ok {
		return 0, false
	}
	return d.Mul(satsPerBTC).Round(0).IntPart(), true
}

func asDecimal(v any) (decimal.Decimal, bool) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	case float64:
		return decimal.NewFromFloat(t), true
	default:
		return decimal.Zero, false
	}
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func firstTimestamp(m map[string]any, keys ...string) (time.Time, bool) {
	for _, k := range keys {
		if ts, ok := timestampFrom(m[k]); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

// timestampFrom accepts epoch seconds (number or numeric string) and
// ISO-8601 strings with or without a zone.
func timestampFrom(v any) (time.Time, bool) {
	switch t := v.(type) {
	case json.Number:
		return epochFrom(t.String())
	case float64:
		return epochFloat(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		if ts, ok := epochFrom(s); ok {
			return ts, true
		}
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// maxEpochSeconds is 9999-12-31T23:59:59Z, the last instant RFC 3339 can
// represent.
const maxEpochSeconds = 253402300799

func epochFrom(s string) (time.Time, bool) {
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		if secs <= 0 || secs > maxEpochSeconds {
			return time.Time{}, false
		}
		return time.Unix(secs, 0).UTC(), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, false
	}
	return epochFloat(f)
}

func epochFloat(f float64) (time.Time, bool) {
	if math.IsNaN(f) || f <= 0 || f > maxEpochSeconds {
		return time.Time{}, false
	}
	return time.Unix(int64(f), 0).UTC(), true
}

// canonicalHash lower-cases well-formed transaction ids. Anything else is
// kept verbatim; the hash is only ever used as evidence.
func canonicalHash(h string) string {
	if len(h) != chainhash.MaxHashStringSize {
		return h
	}
	hash, err := chainhash.NewHashFromStr(h)
	if err != nil {
		return h
	}
	return hash.String()
}
