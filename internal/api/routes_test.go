package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawblock/address-risk-engine/internal/config"
	"github.com/rawblock/address-risk-engine/internal/db"
	"github.com/rawblock/address-risk-engine/internal/explorer"
	"github.com/rawblock/address-risk-engine/internal/logger"
	"github.com/rawblock/address-risk-engine/internal/monitor"
	"github.com/rawblock/address-risk-engine/internal/service"
	"github.com/rawblock/address-risk-engine/pkg/models"
)

const testAddress = "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeEngine struct {
	analyzeErr  error
	rawAddress  string
	rawBody     string
	identifyTxs bool
	minSim      *float64
}

func (f *fakeEngine) Analyze(_ context.Context, address string) (models.RiskReport, error) {
	if f.analyzeErr != nil {
		return models.RiskReport{}, f.analyzeErr
	}
	return models.RiskReport{ID: "r-1", Address: address, Summary: models.ScoreSummary{RiskLevel: models.RiskLow}}, nil
}

func (f *fakeEngine) AnalyzeRaw(_ context.Context, address string, raw []byte) (models.RiskReport, error) {
	f.rawAddress = address
	f.rawBody = string(raw)
	return models.RiskReport{ID: "r-raw", Address: address, TxCount: 2}, nil
}

func (f *fakeEngine) Identify(_ context.Context, address string, withTransactions bool) (models.Identification, error) {
	f.identifyTxs = withTransactions
	return models.Identification{Address: address, Result: models.IdentificationResult{Exchange: "Binance"}}, nil
}

func (f *fakeEngine) MatchScenarios(_ models.ActivityStats, minSimilarity *float64) []models.ScenarioMatch {
	f.minSim = minSimilarity
	return []models.ScenarioMatch{{ID: "burst", Similarity: 88}}
}

func (f *fakeEngine) Scenarios() []models.ScenarioTemplate {
	return []models.ScenarioTemplate{{ID: "burst"}}
}

type fakeArchive struct{}

func (fakeArchive) ListReports(_ context.Context, page, limit int) ([]db.ReportSummary, int, error) {
	return []db.ReportSummary{{ID: "r-1"}}, 7, nil
}

func (fakeArchive) GetReport(_ context.Context, id string) (models.RiskReport, error) {
	if id != "r-1" {
		return models.RiskReport{}, db.ErrNotFound
	}
	return models.RiskReport{ID: id}, nil
}

type countingGauge struct{ last int }

func (g *countingGauge) SetWatched(n int) { g.last = n }

func newTestRouter(engine Engine, archive ReportArchive, watchlist *monitor.Watchlist, cfg config.ServerConfig) *gin.Engine {
	h := NewAPIHandler(engine, archive, watchlist, &countingGauge{}, logger.NewNop())
	return SetupRouter(cfg, h, nil, nil, nil)
}

func do(r http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeAddress_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusOK},
		{"no history", service.ErrNoData, http.StatusNotFound},
		{"explorer down", fmt.Errorf("fetch x: %w", explorer.ErrFetchFailed), http.StatusBadGateway},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unexpected", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeEngine{analyzeErr: tt.err}, nil, nil, config.ServerConfig{})
			rec := do(r, http.MethodGet, "/api/v1/analyze/"+testAddress, "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAnalyzeRaw(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestRouter(engine, nil, nil, config.ServerConfig{})

	rec := do(r, http.MethodPost, "/api/v1/analyze", `{"address":"`+testAddress+`","transactions":{"txs":[]}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testAddress, engine.rawAddress)
	assert.JSONEq(t, `{"txs":[]}`, engine.rawBody)

	rec = do(r, http.MethodPost, "/api/v1/analyze", `{"address":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIdentifyAndScenarios(t *testing.T) {
	engine := &fakeEngine{}
	r := newTestRouter(engine, nil, nil, config.ServerConfig{})

	rec := do(r, http.MethodGet, "/api/v1/identify/"+testAddress+"?withTransactions=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, engine.identifyTxs)
	assert.Contains(t, rec.Body.String(), "Binance")

	rec = do(r, http.MethodPost, "/api/v1/scenarios/match", `{"stats":{"tx_count":12},"minSimilarity":40}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, engine.minSim)
	assert.Equal(t, 40.0, *engine.minSim)

	var body struct {
		Matches []models.ScenarioMatch `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Matches, 1)
	assert.Equal(t, "burst", body.Matches[0].ID)
}

func TestReports(t *testing.T) {
	withoutDB := newTestRouter(&fakeEngine{}, nil, nil, config.ServerConfig{})
	assert.Equal(t, http.StatusServiceUnavailable, do(withoutDB, http.MethodGet, "/api/v1/reports", "").Code)

	r := newTestRouter(&fakeEngine{}, fakeArchive{}, nil, config.ServerConfig{})
	rec := do(r, http.MethodGet, "/api/v1/reports?page=2&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalCount":7`)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/reports/r-1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/v1/reports/missing", "").Code)
}

func TestWatchlistRoutes(t *testing.T) {
	w := monitor.NewWatchlist()
	r := newTestRouter(&fakeEngine{}, nil, w, config.ServerConfig{})

	rec := do(r, http.MethodPost, "/api/v1/watchlist", `{"address":"`+testAddress+`","label":"hot wallet"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, w.Size())

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/api/v1/watchlist", `{"address":"nope"}`).Code)

	rec = do(r, http.MethodGet, "/api/v1/watchlist", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hot wallet")

	assert.Equal(t, http.StatusOK, do(r, http.MethodDelete, "/api/v1/watchlist/"+testAddress, "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/api/v1/watchlist/"+testAddress, "").Code)
}

func TestAuthAndCORS(t *testing.T) {
	cfg := config.ServerConfig{AuthToken: "s3cret", AllowedOrigins: []string{"https://app.example"}}
	r := newTestRouter(&fakeEngine{}, nil, nil, cfg)
	path := "/api/v1/analyze/" + testAddress

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, path, "").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, path, "", "Authorization", "Token s3cret").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, path, "", "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, path, "", "Authorization", "Bearer s3cret").Code)

	health := do(r, http.MethodGet, "/api/v1/health", "", "Origin", "https://app.example")
	assert.Equal(t, http.StatusOK, health.Code)
	assert.Equal(t, "https://app.example", health.Header().Get("Access-Control-Allow-Origin"))

	other := do(r, http.MethodGet, "/api/v1/health", "", "Origin", "https://evil.example")
	assert.Empty(t, other.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodOptions, path, "").Code)
}
