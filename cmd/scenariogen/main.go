package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/rawblock/address-risk-engine/internal/logger"
	"github.com/rawblock/address-risk-engine/internal/refdata"
)

// scenariogen derives scenario templates from a CSV of labelled address
// stats and writes them as JSON or YAML (chosen by the output extension).
func main() {
	in := flag.String("in", "", "labelled stats CSV (group,tx_count,avg_interval,reused_ratio,high_fee)")
	out := flag.String("out", "data/scenarios.json", "output file (.json, .yaml or .yml)")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	log, err := logger.NewLogger(*level)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if *in == "" {
		log.Fatal("-in is required")
	}

	f, err := os.Open(*in)
	if err != nil {
		log.Fatal("Failed to open input", zap.String("path", *in), zap.Error(err))
	}
	samples, err := refdata.ParseLabelledStats(f)
	f.Close()
	if err != nil {
		log.Fatal("Failed to parse labelled stats", zap.Error(err))
	}

	templates := refdata.GenerateScenarios(samples)

	var data []byte
	switch strings.ToLower(filepath.Ext(*out)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(templates)
	default:
		data, err = json.MarshalIndent(templates, "", "  ")
	}
	if err != nil {
		log.Fatal("Failed to encode templates", zap.Error(err))
	}

	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Fatal("Failed to write templates", zap.String("path", *out), zap.Error(err))
	}
	log.Info("Scenario templates written",
		zap.String("path", *out),
		zap.Int("samples", len(samples)),
		zap.Int("templates", len(templates)))
}
