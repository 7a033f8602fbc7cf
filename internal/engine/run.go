package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adpulse-labs/adpulse/internal/audit"
	"github.com/adpulse-labs/adpulse/internal/pipeline"
	"github.com/adpulse-labs/adpulse/pkg/core"
)

// Skip reasons recorded in the audit log.
const (
	skipAlreadyExists = "ALREADY_EXISTS"
	skipNoData        = "NO_DATA"
)

// Run executes one snapshot batch. Parameter validation failures abort
// before any client is touched; after that every client is isolated, and
// a failure in one never stops the others. The returned error is non-nil
// only for validation and infrastructure failures.
func (e *Engine) Run(ctx context.Context, params core.BatchParams) (*core.BatchResult, error) {
	start := time.Now()

	if err := pipeline.ValidateParams(params); err != nil {
		return nil, err
	}
	week := core.WeekBoundsFor(params.WeekStart)

	clients, err := pipeline.DiscoverClients(ctx, e.store, e.store, params)
	if err != nil {
		return nil, err
	}

	result := &core.BatchResult{
		WeekStart: week.Start.Format("2006-01-02"),
		WeekEnd:   week.End.Format("2006-01-02"),
	}
	if len(clients) == 0 {
		e.logger.Info("no clients to process", slog.String("week", week.Label()))
		result.DurationMS = time.Since(start).Milliseconds()
		return result, nil
	}

	batchID := audit.GenerateBatchID(week.Start, start)
	e.logger.Info("batch started",
		slog.String("batchId", batchID),
		slog.String("week", week.Label()),
		slog.Int("clients", len(clients)),
		slog.Bool("force", params.Force))
	e.audit.BatchStart(ctx, batchID, week.Start, len(clients), params.Force)

	results := make([]core.ClientResult, len(clients))
	g := new(errgroup.Group)
	g.SetLimit(max(1, params.Concurrency))
	for i, c := range clients {
		g.Go(func() error {
			results[i] = e.processClient(ctx, batchID, c, week)
			return nil
		})
	}
	// Workers never return errors; failures land in their result slot.
	_ = g.Wait()

	result.Tally(results)
	result.DurationMS = time.Since(start).Milliseconds()
	if params.IncludeResults {
		result.Results = results
	}

	e.audit.BatchComplete(ctx, batchID, result)
	e.logger.Info("batch complete",
		slog.String("batchId", batchID),
		slog.Int("success", result.Success),
		slog.Int("partial", result.Partial),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped),
		slog.Int64("durationMs", result.DurationMS))

	return result, nil
}

// processClient runs one client through the full pipeline. Every exit
// path produces a ClientResult; errors and panics are converted to a
// failed result so sibling clients keep running.
func (e *Engine) processClient(ctx context.Context, batchID string, client core.ClientToProcess, week core.WeekBounds) (result core.ClientResult) {
	start := time.Now()
	result = core.ClientResult{
		ClientID:   client.ID,
		ClientName: client.Name,
	}
	defer func() {
		if r := recover(); r != nil {
			result.Status = core.StatusFailed
			result.Error = fmt.Sprintf("panic: %v", r)
			e.audit.SnapshotFailed(ctx, client.ID, "PROCESSING", result.Error, week.Start)
			e.logger.Error("client processing panicked",
				slog.String("clientId", client.ID), slog.Any("panic", r))
		}
		result.DurationMS = time.Since(start).Milliseconds()
	}()

	log := e.logger.With(slog.String("clientId", client.ID), slog.String("week", week.Label()))

	if client.Action == core.ActionSkip {
		log.Info("snapshot exists, skipping")
		e.audit.SnapshotSkipped(ctx, client.ID, skipAlreadyExists, week.Start)
		result.Status = core.StatusSkipped
		result.SnapshotID = client.ExistingSnapshotID
		return result
	}

	e.audit.ClientStart(ctx, batchID, client.ID, client.Action)

	data, err := pipeline.ExtractClientData(ctx, e.store, client.ID, week, pipeline.ExpectedDays)
	if err != nil {
		return e.failClient(ctx, log, result, client, week, "EXTRACT", err)
	}
	flags := append([]core.Flag(nil), data.Flags...)

	if len(data.CurrentWeek) == 0 {
		log.Info("no metric data for week, skipping", slog.Any("flags", flags))
		e.audit.SnapshotSkipped(ctx, client.ID, skipNoData, week.Start)
		result.Status = core.StatusSkipped
		result.Flags = flags
		return result
	}

	current := pipeline.AggregateMetrics(data.CurrentWeek)
	previous := pipeline.EmptyAggregation()
	hasPrevious := len(data.PreviousWeek) > 0
	if hasPrevious {
		previous = pipeline.AggregateMetrics(data.PreviousWeek)
	}

	wow := pipeline.EmptyWowResult()
	if hasPrevious {
		wow = pipeline.CalculateAllWowChanges(current, previous)
	}

	kpi, err := pipeline.CalculateKpiStatus(ctx, e.store, client.ID, week, current)
	if err != nil {
		return e.failClient(ctx, log, result, client, week, "KPI", err)
	}
	flags = append(flags, kpi.Flags...)

	now := time.Now().UTC()
	anomalies := pipeline.DetectAnomalies(pipeline.AnomalyInput{
		Wow:             wow,
		Kpi:             kpi,
		Metrics:         current,
		Completeness:    data.Completeness,
		DaysWithData:    data.DaysWithData,
		ExpectedDays:    data.ExpectedDays,
		HasPreviousData: hasPrevious,
		DetectedAt:      now,
	})

	content := pipeline.GenerateContent(pipeline.ContentInput{
		Client:           client.Client,
		Week:             week,
		Metrics:          current,
		Wow:              wow,
		Kpi:              kpi,
		Anomalies:        anomalies,
		Completeness:     data.Completeness,
		DaysWithData:     data.DaysWithData,
		ExpectedDays:     data.ExpectedDays,
		AccountsIncluded: len(data.Accounts),
		AccountsTotal:    len(data.Accounts),
		Flags:            flags,
		GeneratedAt:      now,
	})

	rec := pipeline.BuildSnapshotRecord(client, week, current, wow, kpi, content, now)
	persisted := pipeline.PersistSnapshot(ctx, e.store, rec, client.Action)
	if !persisted.Success {
		return e.failClient(ctx, log, result, client, week, "PERSISTENCE", persisted.Err)
	}
	result.SnapshotID = persisted.SnapshotID
	e.audit.SnapshotWritten(ctx, client.ID, persisted.SnapshotID, persisted.Action, week.Start)

	for _, a := range anomalies {
		e.audit.AnomalyDetected(ctx, client.ID, persisted.SnapshotID, a)
	}

	rag := pipeline.PropagateToRag(ctx, e.store, core.RagDocumentInput{
		SnapshotID:  persisted.SnapshotID,
		ClientID:    client.ID,
		ClientName:  client.Name,
		WeekStart:   week.Start,
		WeekEnd:     week.End,
		Year:        week.Year,
		WeekNumber:  week.WeekNumber,
		SummaryText: content.SummaryText,
	})
	switch {
	case rag.Err != nil:
		// The snapshot row is already durable; a retrieval-corpus failure
		// is logged and the next run repairs it.
		log.Warn("retrieval propagation failed", slog.String("error", rag.Err.Error()))
	default:
		result.RagDocumentID = rag.RagDocumentID
		if rag.Action != core.ActionSkip {
			e.audit.RagWritten(ctx, client.ID, rag.RagDocumentID, persisted.SnapshotID, rag.Action)
		}
	}

	result.Flags = flags
	result.Anomalies = len(anomalies)
	result.Status = core.StatusSuccess
	if len(flags) > 0 {
		result.Status = core.StatusPartial
	}

	log.Info("client processed",
		slog.String("status", string(result.Status)),
		slog.String("snapshotId", result.SnapshotID),
		slog.Int("anomalies", result.Anomalies))
	return result
}

func (e *Engine) failClient(ctx context.Context, log *slog.Logger, result core.ClientResult, client core.ClientToProcess, week core.WeekBounds, step string, err error) core.ClientResult {
	log.Error("client processing failed", slog.String("step", step), slog.String("error", err.Error()))
	e.audit.SnapshotFailed(ctx, client.ID, step, err.Error(), week.Start)
	result.Status = core.StatusFailed
	result.Error = err.Error()
	return result
}
