package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rawblock/address-risk-engine/internal/logger"
	"github.com/rawblock/address-risk-engine/pkg/models"
)

// schemaSQL is compiled into the binary so schema init works in a runtime
// image that does not ship the source tree.
//
//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when an archived record does not exist.
var ErrNotFound = errors.New("record not found")

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// ReportSummary is one row of the report listing.
type ReportSummary struct {
	ID           string           `json:"id"`
	Address      string           `json:"address"`
	GeneratedAt  time.Time        `json:"generatedAt"`
	TxCount      int              `json:"txCount"`
	TotalScore   int              `json:"totalScore"`
	DisplayScore int              `json:"displayScore"`
	RiskLevel    models.RiskLevel `json:"riskLevel"`
	Exchange     string           `json:"exchange,omitempty"`
}

// Connect initializes the connection pool to PostgreSQL using pgx
func Connect(ctx context.Context, connStr string, log *logger.Logger) (*PostgresStore, error) {
	log = log.WithComponent("store")
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping failed: %w", err)
	}

	log.Info("Successfully connected to PostgreSQL")
	return &PostgresStore{pool: pool, log: log}, nil
}

// Close gracefully closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema executes the embedded schema.sql DDL statements.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema migrations: %w", err)
	}
	s.log.Info("Risk archive schema initialized")
	return nil
}

// SaveRiskReport archives a complete report. The full document is kept
// as JSONB; the indexed columns mirror its summary.
func (s *PostgresStore) SaveRiskReport(ctx context.Context, report models.RiskReport) error {
	doc, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	sql := `
		INSERT INTO risk_reports
			(id, address, generated_at, tx_count, total_score, display_score, risk_level, exchange, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING;
	`
	_, err = s.pool.Exec(ctx, sql,
		report.ID,
		report.Address,
		report.GeneratedAt,
		report.TxCount,
		report.Summary.TotalScore,
		report.Summary.DisplayScore,
		string(report.Summary.RiskLevel),
		nullableString(reportExchange(report)),
		doc,
	)
	if err != nil {
		return fmt.Errorf("failed to insert risk report: %w", err)
	}
	return nil
}

// SaveIdentification upserts the latest verdict for an address.
func (s *PostgresStore) SaveIdentification(ctx context.Context, id models.Identification) error {
	doc, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("encode identification: %w", err)
	}

	sql := `
		INSERT INTO identifications (address, exchange, confidence, method, identification)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO UPDATE SET
			exchange = EXCLUDED.exchange,
			confidence = EXCLUDED.confidence,
			method = EXCLUDED.method,
			identification = EXCLUDED.identification,
			updated_at = NOW();
	`
	_, err = s.pool.Exec(ctx, sql,
		id.Address,
		nullableString(id.Result.Exchange),
		string(id.Result.Confidence),
		string(id.Result.Method),
		doc,
	)
	return err
}

// ListReports returns one page of report summaries, newest first, and
// the total number of archived reports.
func (s *PostgresStore) ListReports(ctx context.Context, page, limit int) ([]ReportSummary, int, error) {
	limit, offset := pageBounds(page, limit)

	var totalCount int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM risk_reports`).Scan(&totalCount); err != nil {
		return nil, 0, err
	}

	dataSQL := `
		SELECT id::text, address, generated_at, tx_count, total_score, display_score, risk_level, exchange
		FROM risk_reports
		ORDER BY generated_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.pool.Query(ctx, dataSQL, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	summaries := make([]ReportSummary, 0, limit)
	for rows.Next() {
		var r ReportSummary
		var level string
		var exchange *string
		if err := rows.Scan(&r.ID, &r.Address, &r.GeneratedAt, &r.TxCount,
			&r.TotalScore, &r.DisplayScore, &level, &exchange); err != nil {
			return nil, 0, err
		}
		r.RiskLevel = models.RiskLevel(level)
		if exchange != nil {
			r.Exchange = *exchange
		}
		summaries = append(summaries, r)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return summaries, totalCount, nil
}

// GetReport loads an archived report by ID.
func (s *PostgresStore) GetReport(ctx context.Context, id string) (models.RiskReport, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT report FROM risk_reports WHERE id::text = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.RiskReport{}, ErrNotFound
	}
	if err != nil {
		return models.RiskReport{}, err
	}
	return decodeReport(doc)
}

// LatestLevel returns the risk level of the newest report for address.
func (s *PostgresStore) LatestLevel(ctx context.Context, address string) (models.RiskLevel, error) {
	var level string
	err := s.pool.QueryRow(ctx,
		`SELECT risk_level FROM risk_reports WHERE address = $1 ORDER BY generated_at DESC LIMIT 1`,
		address).Scan(&level)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		s.log.Debug("Latest level lookup failed", zap.String("address", address), zap.Error(err))
		return "", err
	}
	return models.RiskLevel(level), nil
}

// decodeReport restores an archived report, evidence kinds included.
func decodeReport(doc []byte) (models.RiskReport, error) {
	var report models.RiskReport
	if err := json.Unmarshal(doc, &report); err != nil {
		return models.RiskReport{}, fmt.Errorf("decode report: %w", err)
	}
	return report, nil
}

func pageBounds(page, limit int) (int, int) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

func reportExchange(r models.RiskReport) string {
	if r.Identification == nil {
		return ""
	}
	return r.Identification.Result.Exchange
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
