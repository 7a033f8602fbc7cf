// Package audit records batch lifecycle milestones in the append-only
// audit log. Audit writes are best effort: a failed append is logged and
// swallowed so observability problems never take down a batch.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

const (
	batchTable    = "batch_runs"
	snapshotTable = "weekly_snapshots"
	ragTable      = "rag_documents"
)

// Logger appends milestone entries through an AuditSink.
type Logger struct {
	sink   core.AuditSink
	log    *slog.Logger
	userID string
}

// New builds a Logger. userID identifies the actor recorded on every
// entry; batch runs use the invoking service account.
func New(sink core.AuditSink, log *slog.Logger, userID string) *Logger {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Logger{sink: sink, log: log, userID: userID}
}

// GenerateBatchID derives a readable batch identifier from the target
// week and the wall clock, e.g. "batch_20240108_153012".
func GenerateBatchID(weekStart, now time.Time) string {
	return fmt.Sprintf("batch_%s_%s", weekStart.Format("20060102"), now.UTC().Format("150405"))
}

// BatchStart records the START_BATCH milestone.
func (l *Logger) BatchStart(ctx context.Context, batchID string, weekStart time.Time, clientCount int, force bool) {
	l.append(ctx, &core.AuditLogEntry{
		TableName: batchTable,
		RecordID:  batchID,
		Action:    core.AuditInsert,
		NewValues: map[string]any{
			"event":       string(core.EventStartBatch),
			"weekStart":   weekStart.Format("2006-01-02"),
			"clientCount": clientCount,
			"force":       force,
		},
	})
}

// ClientStart records the CLIENT_START milestone.
func (l *Logger) ClientStart(ctx context.Context, batchID, clientID string, action core.WriteAction) {
	l.append(ctx, &core.AuditLogEntry{
		TableName: batchTable,
		RecordID:  batchID,
		Action:    core.AuditInsert,
		ClientID:  clientID,
		NewValues: map[string]any{
			"event":  string(core.EventClientStart),
			"action": string(action),
		},
	})
}

// SnapshotWritten records SNAPSHOT_CREATED or SNAPSHOT_UPDATED depending
// on the write action.
func (l *Logger) SnapshotWritten(ctx context.Context, clientID, snapshotID string, action core.WriteAction, weekStart time.Time) {
	event := core.EventSnapshotCreated
	auditAction := core.AuditInsert
	if action == core.ActionUpdate {
		event = core.EventSnapshotUpdated
		auditAction = core.AuditUpdate
	}
	l.append(ctx, &core.AuditLogEntry{
		TableName: snapshotTable,
		RecordID:  snapshotID,
		Action:    auditAction,
		ClientID:  clientID,
		NewValues: map[string]any{
			"event":     string(event),
			"weekStart": weekStart.Format("2006-01-02"),
		},
	})
}

// SnapshotSkipped records the SNAPSHOT_SKIPPED milestone with the reason
// the client produced no write.
func (l *Logger) SnapshotSkipped(ctx context.Context, clientID, reason string, weekStart time.Time) {
	l.append(ctx, &core.AuditLogEntry{
		TableName: snapshotTable,
		Action:    core.AuditInsert,
		ClientID:  clientID,
		NewValues: map[string]any{
			"event":     string(core.EventSnapshotSkipped),
			"reason":    reason,
			"weekStart": weekStart.Format("2006-01-02"),
		},
	})
}

// SnapshotFailed records the SNAPSHOT_FAILED milestone with the step
// that failed and the error text.
func (l *Logger) SnapshotFailed(ctx context.Context, clientID, step, errMsg string, weekStart time.Time) {
	l.append(ctx, &core.AuditLogEntry{
		TableName: snapshotTable,
		Action:    core.AuditInsert,
		ClientID:  clientID,
		NewValues: map[string]any{
			"event":     string(core.EventSnapshotFailed),
			"step":      step,
			"error":     errMsg,
			"weekStart": weekStart.Format("2006-01-02"),
		},
	})
}

// RagWritten records RAG_CREATED or RAG_UPDATED for a propagated
// retrieval document. Skipped propagations produce no audit entry.
func (l *Logger) RagWritten(ctx context.Context, clientID, ragDocumentID, snapshotID string, action core.WriteAction) {
	event := core.EventRagCreated
	auditAction := core.AuditInsert
	if action == core.ActionUpdate {
		event = core.EventRagUpdated
		auditAction = core.AuditUpdate
	}
	l.append(ctx, &core.AuditLogEntry{
		TableName: ragTable,
		RecordID:  ragDocumentID,
		Action:    auditAction,
		ClientID:  clientID,
		NewValues: map[string]any{
			"event":      string(event),
			"snapshotId": snapshotID,
		},
	})
}

// AnomalyDetected records one ANOMALY_DETECTED milestone per anomaly.
func (l *Logger) AnomalyDetected(ctx context.Context, clientID, snapshotID string, a core.Anomaly) {
	l.append(ctx, &core.AuditLogEntry{
		TableName: snapshotTable,
		RecordID:  snapshotID,
		Action:    core.AuditInsert,
		ClientID:  clientID,
		NewValues: map[string]any{
			"event":    string(core.EventAnomalyDetected),
			"type":     a.Type,
			"severity": string(a.Severity),
			"metric":   string(a.Metric),
			"message":  a.Message,
		},
	})
}

// BatchComplete records the BATCH_COMPLETE milestone with the final
// per-status tallies.
func (l *Logger) BatchComplete(ctx context.Context, batchID string, result *core.BatchResult) {
	l.append(ctx, &core.AuditLogEntry{
		TableName: batchTable,
		RecordID:  batchID,
		Action:    core.AuditUpdate,
		NewValues: map[string]any{
			"event":      string(core.EventBatchComplete),
			"processed":  result.Processed,
			"success":    result.Success,
			"partial":    result.Partial,
			"failed":     result.Failed,
			"skipped":    result.Skipped,
			"durationMs": result.DurationMS,
		},
	})
}

func (l *Logger) append(ctx context.Context, entry *core.AuditLogEntry) {
	if l == nil || l.sink == nil {
		return
	}
	entry.ID = uuid.NewString()
	entry.UserID = l.userID
	entry.CreatedAt = time.Now().UTC()
	if err := l.sink.AppendAudit(ctx, entry); err != nil {
		l.log.Warn("audit append failed",
			slog.String("table", entry.TableName),
			slog.String("error", err.Error()))
	}
}
