package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"mercator-hq/saturn/pkg/compliance"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/telemetry/metrics"
)

// Health tracks the oracle endpoint's observed health.
type Health struct {
	IsHealthy             bool
	LastCheck             time.Time
	ConsecutiveFailures   int
	LastSuccessfulRequest time.Time
	TotalRequests         int64
	FailedRequests        int64
	LastError             error
}

// HTTPOracle implements Oracle over a JSON HTTP API.
// It provides connection pooling, per-call timeouts, and health tracking.
// The bounded retry with a simplified prompt is driven by callers; the HTTP
// layer itself performs exactly one attempt per call.
type HTTPOracle struct {
	cfg     config.OracleConfig
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.OracleMetrics

	health   Health
	healthMu sync.RWMutex
}

// NewHTTPOracle creates an oracle client from the given configuration.
// The metrics collector may be nil.
func NewHTTPOracle(cfg config.OracleConfig, om *metrics.OracleMetrics) (*HTTPOracle, error) {
	if cfg.BaseURL == "" {
		return nil, compliance.NewValidationError("oracle.base_url", "base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConns,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	o := &HTTPOracle{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger:  slog.Default().With("component", "oracle.http"),
		metrics: om,
		health: Health{
			IsHealthy:             true, // Start optimistic
			LastCheck:             time.Now(),
			LastSuccessfulRequest: time.Now(),
		},
	}

	o.logger.Info("oracle client initialized",
		"base_url", cfg.BaseURL,
		"timeout", cfg.Timeout,
	)

	return o, nil
}

// JudgeCompliance sends a compliance-judgment prompt to the oracle.
func (o *HTTPOracle) JudgeCompliance(ctx context.Context, req *JudgmentRequest) (*Judgment, error) {
	start := time.Now()

	raw, err := o.post(ctx, "/v1/judgments", req)
	if err != nil {
		o.metrics.RecordCall("judgment", "unavailable", time.Since(start))
		return nil, err
	}

	judgment, err := parseJudgment(raw)
	if err != nil {
		o.metrics.RecordCall("judgment", "malformed", time.Since(start))
		return nil, err
	}

	o.metrics.RecordCall("judgment", "ok", time.Since(start))
	o.logger.Debug("judgment received",
		"transaction_id", req.TransactionID,
		"is_compliant", judgment.IsCompliant,
		"confidence", judgment.Confidence,
	)

	return judgment, nil
}

// ClassifyFeedback sends a feedback-classification prompt to the oracle.
func (o *HTTPOracle) ClassifyFeedback(ctx context.Context, req *ClassificationRequest) (*Classification, error) {
	start := time.Now()

	raw, err := o.post(ctx, "/v1/classifications", req)
	if err != nil {
		o.metrics.RecordCall("classification", "unavailable", time.Since(start))
		return nil, err
	}

	classification, err := parseClassification(raw)
	if err != nil {
		o.metrics.RecordCall("classification", "malformed", time.Since(start))
		return nil, err
	}

	o.metrics.RecordCall("classification", "ok", time.Since(start))
	return classification, nil
}

// GetHealth returns the oracle endpoint's observed health.
func (o *HTTPOracle) GetHealth() Health {
	o.healthMu.RLock()
	defer o.healthMu.RUnlock()
	return o.health
}

// Close releases idle connections.
func (o *HTTPOracle) Close() error {
	o.client.CloseIdleConnections()
	o.logger.Info("oracle client closed")
	return nil
}

// post sends a JSON body and returns the raw response bytes.
// All transport and non-2xx failures map to OracleUnavailableError.
func (o *HTTPOracle) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	url := o.cfg.BaseURL + path

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, compliance.NewOracleUnavailableError(url, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, compliance.NewOracleUnavailableError(url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.cfg.APIKey != "" {
		req.Header.Set("x-api-key", o.cfg.APIKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		o.updateHealth(false, err)
		return nil, compliance.NewOracleUnavailableError(url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		o.updateHealth(false, err)
		return nil, compliance.NewOracleUnavailableError(url, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
		o.updateHealth(false, statusErr)
		return nil, compliance.NewOracleUnavailableError(url, statusErr)
	}

	o.updateHealth(true, nil)
	return raw, nil
}

// updateHealth updates the oracle's health status after a request.
func (o *HTTPOracle) updateHealth(success bool, err error) {
	o.healthMu.Lock()
	defer o.healthMu.Unlock()

	o.health.LastCheck = time.Now()
	o.health.TotalRequests++

	if success {
		o.health.IsHealthy = true
		o.health.ConsecutiveFailures = 0
		o.health.LastError = nil
		o.health.LastSuccessfulRequest = time.Now()
		return
	}

	o.health.FailedRequests++
	o.health.ConsecutiveFailures++
	o.health.LastError = err

	// Mark unhealthy after 3 consecutive failures
	if o.health.ConsecutiveFailures >= 3 && o.health.IsHealthy {
		o.health.IsHealthy = false
		o.logger.Warn("oracle marked unhealthy",
			"consecutive_failures", o.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
