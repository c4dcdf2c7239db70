package monitoring

import (
	"time"

	"github.com/carblue/pricing-cli/internal/engine"
	"github.com/carblue/pricing-cli/internal/model"
)

// BatchSnapshot is the health view of one priced batch.
type BatchSnapshot struct {
	BatchID     string `json:"batch_id"`
	Marketplace string `json:"marketplace"`
	FeeVersion  string `json:"fee_version"`

	Total     int `json:"total"`
	Priced    int `json:"priced"`
	Failed    int `json:"failed"`
	Healthy   int `json:"healthy"`
	Warning   int `json:"warning"`
	Loss      int `json:"loss"`
	Fallbacks int `json:"fallbacks"`

	FailRate  float64 `json:"fail_rate"`
	LossShare float64 `json:"loss_share"`

	Elapsed     time.Duration `json:"elapsed"`
	CollectedAt time.Time     `json:"collected_at"`
}

// Snapshot summarizes b. Rates are zero when their denominator is.
func Snapshot(b *engine.Batch) *BatchSnapshot {
	snap := &BatchSnapshot{
		BatchID:     b.ID,
		Marketplace: b.Marketplace,
		FeeVersion:  b.FeeVersion,
		Priced:      len(b.Rows),
		Failed:      len(b.Failures),
		Elapsed:     b.Elapsed,
		CollectedAt: time.Now().UTC(),
	}
	snap.Total = snap.Priced + snap.Failed

	for _, r := range b.Rows {
		switch r.Status {
		case model.StatusHealthy:
			snap.Healthy++
		case model.StatusWarning:
			snap.Warning++
		case model.StatusLoss:
			snap.Loss++
		}
		snap.Fallbacks += len(r.Fallbacks)
	}

	if snap.Total > 0 {
		snap.FailRate = float64(snap.Failed) / float64(snap.Total)
	}
	if snap.Priced > 0 {
		snap.LossShare = float64(snap.Loss) / float64(snap.Priced)
	}
	return snap
}
