package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/rawblock/address-risk-engine/internal/config"
	"github.com/rawblock/address-risk-engine/internal/logger"
	"github.com/rawblock/address-risk-engine/pkg/models"
)

// publisherConn is the subset of *nats.Conn the publisher uses.
type publisherConn interface {
	Publish(subject string, data []byte) error
	Close()
}

// ReportMessage is the payload published for every completed report.
type ReportMessage struct {
	ID           string            `json:"id"`
	Address      string            `json:"address"`
	TotalScore   int               `json:"totalScore"`
	DisplayScore int               `json:"displayScore"`
	RiskLevel    models.RiskLevel  `json:"riskLevel"`
	Exchange     string            `json:"exchange,omitempty"`
	Report       models.RiskReport `json:"report"`
}

// NATSPublisher publishes completed risk reports on core NATS.
type NATSPublisher struct {
	conn    publisherConn
	subject string
	logger  *logger.Logger
}

// NewNATSPublisher connects to the NATS server.
func NewNATSPublisher(ctx context.Context, cfg config.NATSConfig, log *logger.Logger) (*NATSPublisher, error) {
	log = log.WithComponent("nats")
	log.Info("Connecting to NATS server", zap.String("url", cfg.URL))

	opts := []nats.Option{
		nats.Name("address-risk-engine"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		log.Error("Failed to connect to NATS", zap.Error(err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return newPublisher(conn, cfg.SubjectPrefix, log), nil
}

func newPublisher(conn publisherConn, prefix string, log *logger.Logger) *NATSPublisher {
	if prefix == "" {
		prefix = "risk"
	}
	return &NATSPublisher{
		conn:    conn,
		subject: fmt.Sprintf("%s.reports", prefix),
		logger:  log,
	}
}

// Subject returns the subject reports are published on.
func (p *NATSPublisher) Subject() string { return p.subject }

// PublishReport publishes one report.
func (p *NATSPublisher) PublishReport(ctx context.Context, report models.RiskReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := ReportMessage{
		ID:           report.ID,
		Address:      report.Address,
		TotalScore:   report.Summary.TotalScore,
		DisplayScore: report.Summary.DisplayScore,
		RiskLevel:    report.Summary.RiskLevel,
		Report:       report,
	}
	if report.Identification != nil {
		msg.Exchange = report.Identification.Result.Exchange
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}

	p.logger.Debug("Report published",
		zap.String("subject", p.subject),
		zap.String("id", report.ID))
	return nil
}

// Close closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
