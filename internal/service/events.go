package service

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/rawblock/address-risk-engine/pkg/models"
)

// Stream event types.
const (
	EventReport      = "report"
	EventLevelChange = "risk_level_change"
)

// Event is the message pushed to live stream subscribers.
type Event struct {
	Type          string             `json:"type"`
	Address       string             `json:"address"`
	Level         models.RiskLevel   `json:"level"`
	PreviousLevel models.RiskLevel   `json:"previousLevel,omitempty"`
	Report        *models.RiskReport `json:"report,omitempty"`
}

// Stream broadcasts an event when a broadcaster is attached.
func (a *Analyzer) Stream(ev Event) {
	if a.broadcaster == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		a.log.Warn("Failed to encode stream event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	a.broadcaster.Broadcast(data)
}
