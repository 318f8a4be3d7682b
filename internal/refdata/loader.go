package refdata

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rawblock/address-risk-engine/internal/config"
	"github.com/rawblock/address-risk-engine/internal/logger"
	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Reference Table Loader
//
// Static tables are read once at start and shared read-only. A missing or
// malformed file is logged and yields an empty table; the detectors that
// depend on it then score zero instead of failing the process.
//
// Address tables are comma-separated, '#' starts a comment:
//
//   address[,label[,type[,features...],source]]
//
// which covers the plain denylist (one address per line) as well as the
// exchange file (address,exchange,type,features,source).

// Table kinds, used as default labels and in log lines.
const (
	KindDenylist = "denylist"
	KindMixer    = "mixer"
	KindBridge   = "bridge"
	KindExchange = "exchange"
)

// Loader reads reference tables from disk.
type Loader struct {
	log *logger.Logger
}

// NewLoader creates a loader that reports problems to log.
func NewLoader(log *logger.Logger) *Loader {
	return &Loader{log: log.WithComponent("refdata")}
}

// Load reads every table named in cfg.
func (l *Loader) Load(cfg config.RefDataConfig) models.ReferenceData {
	ref := models.ReferenceData{
		Denylist:  l.AddressBook(cfg.Denylist, KindDenylist),
		Mixers:    l.AddressBook(cfg.Mixers, KindMixer),
		Bridges:   l.AddressBook(cfg.Bridges, KindBridge),
		Exchanges: l.AddressBook(cfg.Exchanges, KindExchange),
		Scenarios: l.Scenarios(cfg.Scenarios),
	}

	l.log.Info("Reference data loaded",
		zap.Int("denylist", len(ref.Denylist)),
		zap.Int("mixers", len(ref.Mixers)),
		zap.Int("bridges", len(ref.Bridges)),
		zap.Int("exchanges", len(ref.Exchanges)),
		zap.Int("scenarios", len(ref.Scenarios)))
	return ref
}

// AddressBook loads one address table. Failures degrade to an empty book.
func (l *Loader) AddressBook(path, kind string) models.AddressBook {
	if path == "" {
		return models.AddressBook{}
	}
	f, err := os.Open(path)
	if err != nil {
		l.log.Warn("Reference table unavailable, continuing with an empty set",
			zap.String("kind", kind), zap.String("path", path), zap.Error(err))
		return models.AddressBook{}
	}
	defer f.Close()

	book, err := ParseAddressBook(f, kind, filepath.Base(path))
	if err != nil {
		l.log.Warn("Reference table unreadable, continuing with an empty set",
			zap.String("kind", kind), zap.String("path", path), zap.Error(err))
		return models.AddressBook{}
	}
	return book
}

// ParseAddressBook parses address table lines. source is used when a line
// does not name its own.
func ParseAddressBook(r io.Reader, kind, source string) (models.AddressBook, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	book := make(models.AddressBook)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s table: %w", kind, err)
		}

		addr := strings.TrimSpace(rec[0])
		if addr == "" {
			continue
		}
		if _, dup := book[addr]; dup {
			// first owner wins
			continue
		}

		label := models.AddressLabel{Label: kind, Source: source}
		if len(rec) > 1 && strings.TrimSpace(rec[1]) != "" {
			label.Label = strings.TrimSpace(rec[1])
		}
		if len(rec) > 2 {
			label.Type = strings.TrimSpace(rec[2])
		}
		if len(rec) > 3 {
			if s := strings.TrimSpace(rec[len(rec)-1]); s != "" {
				label.Source = s
			}
		}
		book[addr] = label
	}
	return book, nil
}

// Scenarios loads threat-actor templates from a JSON or YAML array.
// Failures degrade to an empty list.
func (l *Loader) Scenarios(path string) []models.ScenarioTemplate {
	if path == "" {
		return []models.ScenarioTemplate{}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		l.log.Warn("Scenario templates unavailable, matching disabled",
			zap.String("path", path), zap.Error(err))
		return []models.ScenarioTemplate{}
	}

	templates, err := ParseScenarios(raw, filepath.Ext(path))
	if err != nil {
		l.log.Warn("Scenario templates unreadable, matching disabled",
			zap.String("path", path), zap.Error(err))
		return []models.ScenarioTemplate{}
	}
	return templates
}

// ParseScenarios decodes a template array. ext selects YAML for ".yaml"
// and ".yml"; anything else is read as JSON.
func ParseScenarios(raw []byte, ext string) ([]models.ScenarioTemplate, error) {
	var templates []models.ScenarioTemplate
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &templates); err != nil {
			return nil, fmt.Errorf("decode scenario yaml: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(raw))
		if err := dec.Decode(&templates); err != nil {
			return nil, fmt.Errorf("decode scenario json: %w", err)
		}
	}
	if templates == nil {
		templates = []models.ScenarioTemplate{}
	}
	return templates, nil
}
