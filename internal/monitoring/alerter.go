package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/carblue/pricing-cli/internal/config"
	"github.com/carblue/pricing-cli/internal/engine"
	"github.com/carblue/pricing-cli/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailureRate AlertType = "row_failure_rate"
	AlertLossShare   AlertType = "loss_share"
	AlertFallbacks   AlertType = "bracket_fallbacks"
)

// minRowsForRates keeps tiny batches from tripping the rate alerts.
const minRowsForRates = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a BatchSnapshot against configured thresholds and sends
// alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *BatchSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if a.cfg.FailureRateThreshold > 0 && snap.Total >= minRowsForRates && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Row failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d rows in batch %s)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.Failed, snap.Total, snap.BatchID,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.Failed,
				"total":        snap.Total,
				"marketplace":  snap.Marketplace,
			},
			Timestamp: now,
		})
	}

	if a.cfg.LossShareThreshold > 0 && snap.Priced >= minRowsForRates && snap.LossShare > a.cfg.LossShareThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertLossShare,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%.1f%% of priced rows are below the minimum margin (%d of %d on %s)",
				snap.LossShare*100, snap.Loss, snap.Priced, snap.Marketplace,
			),
			Details: map[string]any{
				"loss_share":  snap.LossShare,
				"threshold":   a.cfg.LossShareThreshold,
				"loss":        snap.Loss,
				"priced":      snap.Priced,
				"marketplace": snap.Marketplace,
			},
			Timestamp: now,
		})
	}

	if a.cfg.FallbackThreshold > 0 && snap.Fallbacks > a.cfg.FallbackThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFallbacks,
			Severity: "low",
			Message: fmt.Sprintf(
				"%d fee lookups fell past the last bracket of fee tables %s",
				snap.Fallbacks, snap.FeeVersion,
			),
			Details: map[string]any{
				"fallbacks":   snap.Fallbacks,
				"threshold":   a.cfg.FallbackThreshold,
				"fee_version": snap.FeeVersion,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// Check evaluates a finished batch and delivers any alerts. It returns the
// number of alerts sent.
func (a *Alerter) Check(ctx context.Context, b *engine.Batch) int {
	log := zap.L().With(zap.String("component", "monitoring.alerter"), zap.String("batch", b.ID))
	alerts := a.Evaluate(Snapshot(b))
	if len(alerts) == 0 {
		log.Debug("monitoring: no alerts triggered")
		return 0
	}
	for _, al := range alerts {
		log.Warn("monitoring: "+al.Message, zap.String("type", string(al.Type)))
	}
	sent := a.SendAlerts(ctx, alerts)
	log.Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
	return sent
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL, retrying throttled
// and gateway failures.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	return resilience.Do(ctx, resilience.WebhookPolicy(a.cfg.WebhookAttempts), func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
		if err != nil {
			return eris.Wrap(err, "monitoring: create webhook request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			return eris.Wrap(err, "monitoring: webhook request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if err := resilience.StatusError(resp.StatusCode); err != nil {
			return eris.Wrap(err, "monitoring: webhook returned")
		}
		return nil
	})
}
