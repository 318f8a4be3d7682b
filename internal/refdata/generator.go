package refdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Scenario Template Generator
//
// Derives one template per actor group from per-address activity stats of
// labelled addresses (e.g. denylisted wallets grouped by attribution):
//
//   tx_count_min              mean tx count, rounded
//   avg_interval_max          mean interval, rounded
//   reused_address_ratio_min  mean reuse ratio, 2 decimals
//   high_fee_flag             majority vote

// LabelledStats is the activity of one address attributed to a group.
type LabelledStats struct {
	Group string
	Stats models.ActivityStats
}

// ParseLabelledStats reads CSV rows with a header naming at least
// group, tx_count, avg_interval, reused_ratio and high_fee. Rows with a
// missing or non-numeric value are skipped.
func ParseLabelledStats(r io.Reader) ([]LabelledStats, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, need := range []string{"group", "tx_count", "avg_interval", "reused_ratio", "high_fee"} {
		if _, ok := col[need]; !ok {
			return nil, fmt.Errorf("missing column %q", need)
		}
	}

	field := func(rec []string, name string) string {
		if i := col[name]; i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	var out []LabelledStats
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		group := field(rec, "group")
		txCount, err1 := strconv.ParseFloat(field(rec, "tx_count"), 64)
		interval, err2 := strconv.ParseFloat(field(rec, "avg_interval"), 64)
		reused, err3 := strconv.ParseFloat(field(rec, "reused_ratio"), 64)
		fee, err4 := strconv.ParseBool(strings.ToLower(field(rec, "high_fee")))
		if group == "" || err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			continue
		}
		out = append(out, LabelledStats{
			Group: group,
			Stats: models.ActivityStats{
				TxCount:            int(math.Round(txCount)),
				AvgInterval:        interval,
				ReusedAddressRatio: reused,
				HighFeeFlag:        fee,
			},
		})
	}
	return out, nil
}

// GenerateScenarios aggregates labelled stats into templates, ordered by ID.
func GenerateScenarios(samples []LabelledStats) []models.ScenarioTemplate {
	type agg struct {
		n, fees             int
		tx, interval, reuse float64
	}
	groups := make(map[string]*agg)
	for _, s := range samples {
		a, ok := groups[s.Group]
		if !ok {
			a = &agg{}
			groups[s.Group] = a
		}
		a.n++
		a.tx += float64(s.Stats.TxCount)
		a.interval += s.Stats.AvgInterval
		a.reuse += s.Stats.ReusedAddressRatio
		if s.Stats.HighFeeFlag {
			a.fees++
		}
	}

	templates := make([]models.ScenarioTemplate, 0, len(groups))
	for group, a := range groups {
		n := float64(a.n)
		txMin := int(math.Round(a.tx / n))
		intervalMax := math.Round(a.interval / n)
		reuseMin := math.Round(a.reuse/n*100) / 100
		highFee := float64(a.fees)/n > 0.5

		templates = append(templates, models.ScenarioTemplate{
			ID:          strings.ToUpper(strings.ReplaceAll(group, " ", "_")) + "-AUTO",
			Actor:       group,
			Description: "Auto-generated from labelled activity for " + group,
			Pattern: models.ScenarioPattern{
				TxCountMin:            &txMin,
				AvgIntervalMax:        &intervalMax,
				ReusedAddressRatioMin: &reuseMin,
				HighFeeFlag:           &highFee,
			},
		})
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })
	return templates
}
