package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

const persistMaxRetries = 3

// BuildSnapshotRecord flattens the pipeline outputs into one durable
// snapshot row. The hot columns are denormalized for dashboard queries;
// the full document rides along as JSON.
func BuildSnapshotRecord(client core.ClientToProcess, week core.WeekBounds, metrics *core.AggregatedMetrics, wow *core.WowResult, kpi *core.KpiResult, content *core.GeneratedContent, generatedAt time.Time) *core.SnapshotRecord {
	rec := &core.SnapshotRecord{
		ID:               uuid.NewString(),
		ClientID:         client.ID,
		WeekStart:        week.Start,
		WeekEnd:          week.End,
		Year:             week.Year,
		WeekNumber:       week.WeekNumber,
		TotalSpend:       metrics.TotalSpend,
		TotalImpressions: metrics.TotalImpressions,
		TotalClicks:      metrics.TotalClicks,
		TotalConversions: metrics.TotalConversions,
		TotalLeads:       metrics.TotalLeads,
		TotalRevenue:     metrics.TotalRevenue,
		AvgCtr:           metrics.AvgCtr,
		AvgCpc:           metrics.AvgCpc,
		AvgCpm:           metrics.AvgCpm,
		AvgCpa:           metrics.AvgCpa,
		AvgRoas:          metrics.AvgRoas,
		SpendWowChange:   wow.Spend.ChangePercent,
		ConvWowChange:    wow.Conversions.ChangePercent,
		RoasWowChange:    wow.Roas.ChangePercent,
		SummaryText:      content.SummaryText,
		Highlights:       content.Highlights,
		Concerns:         content.Concerns,
		Recommendations:  content.Recommendations,
		Document:         content.Document,
		GeneratedAt:      generatedAt.UTC(),
	}

	if client.Action == core.ActionUpdate && client.ExistingSnapshotID != "" {
		rec.ID = client.ExistingSnapshotID
	}

	if e, ok := kpi.StatusFor(core.MetricSpend); ok {
		rec.KpiSpendStatus = statusPtr(e.Status)
	}
	if e, ok := kpi.StatusFor(core.MetricConversions); ok {
		rec.KpiConvStatus = statusPtr(e.Status)
	}
	if e, ok := kpi.StatusFor(core.MetricRoas); ok {
		rec.KpiRoasStatus = statusPtr(e.Status)
	}

	return rec
}

func statusPtr(s core.KpiStatus) *string {
	v := string(s)
	return &v
}

// PersistSnapshot writes the record through the snapshot store with
// exponential backoff, up to three retries (1s, 2s, 4s). The write is a
// whole-row insert or update decided at discovery time; a failure after
// the final retry is returned in the result and ends the client's
// pipeline.
func PersistSnapshot(ctx context.Context, store core.SnapshotStore, rec *core.SnapshotRecord, action core.WriteAction) core.PersistenceResult {
	return persistSnapshot(ctx, store, rec, action, defaultBackoff())
}

func defaultBackoff() retry.Backoff {
	return retry.WithMaxRetries(persistMaxRetries, retry.NewExponential(time.Second))
}

func persistSnapshot(ctx context.Context, store core.SnapshotStore, rec *core.SnapshotRecord, action core.WriteAction, b retry.Backoff) core.PersistenceResult {
	write := store.InsertSnapshot
	if action == core.ActionUpdate {
		write = store.UpdateSnapshot
	}

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		if werr := write(ctx, rec); werr != nil {
			return retry.RetryableError(werr)
		}
		return nil
	})
	if err != nil {
		return core.PersistenceResult{Action: action, Err: err}
	}

	return core.PersistenceResult{Success: true, SnapshotID: rec.ID, Action: action}
}
