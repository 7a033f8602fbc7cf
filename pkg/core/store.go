package core

import (
	"context"
	"time"
)

// MetricsSource is the read port for clients, accounts, and daily metric
// rows. Populated by external sync jobs; the engine only reads it.
type MetricsSource interface {
	ListActiveClients(ctx context.Context) ([]*Client, error)
	GetClient(ctx context.Context, id string) (*Client, error)
	ListActiveAccounts(ctx context.Context, clientID string) ([]*Account, error)
	ListDailyMetrics(ctx context.Context, accountIDs []string, start, end time.Time) ([]DailyMetricRow, error)
}

// KpiReader is the read port for client KPI definitions.
type KpiReader interface {
	// ListActiveKpis returns KPI definitions whose period fully covers
	// [periodStart, periodEnd].
	ListActiveKpis(ctx context.Context, clientID string, periodStart, periodEnd time.Time) ([]*KpiDefinition, error)
}

// SnapshotStore is the write port for weekly snapshot rows. Uniqueness is
// enforced by the (clientID, weekStart) key.
type SnapshotStore interface {
	// FindSnapshotID returns the snapshot row ID for (clientID, weekStart),
	// or "" when none exists.
	FindSnapshotID(ctx context.Context, clientID string, weekStart time.Time) (string, error)
	InsertSnapshot(ctx context.Context, rec *SnapshotRecord) error
	UpdateSnapshot(ctx context.Context, rec *SnapshotRecord) error
}

// RagStore is the write port for the retrieval corpus. Updates always
// null the embedding column so the downstream embedding worker
// regenerates it.
type RagStore interface {
	// FindRagDocument returns the stored (id, contentHash) for
	// (sourceType, sourceID), or nil when none exists.
	FindRagDocument(ctx context.Context, sourceType, sourceID string) (*RagDocumentRef, error)
	InsertRagDocument(ctx context.Context, doc *RagDocument) error
	UpdateRagDocument(ctx context.Context, id, content, contentHash string) error
}

// AuditSink is the append-only audit log port.
type AuditSink interface {
	AppendAudit(ctx context.Context, entry *AuditLogEntry) error
}

// IngestWriter is the write port external sync jobs use to land source
// data. The snapshot pipeline itself never calls it; tests and the
// ingestion tooling do.
type IngestWriter interface {
	UpsertClient(ctx context.Context, c *Client) error
	UpsertAccount(ctx context.Context, a *Account) error
	InsertDailyMetrics(ctx context.Context, rows []DailyMetricRow) error
	UpsertKpi(ctx context.Context, k *KpiDefinition) error
}

// Store is the full backing-store contract: every narrow port plus
// lifecycle management. The engine constructs one Store and hands the
// narrow interfaces down to the pipeline stages.
type Store interface {
	MetricsSource
	KpiReader
	SnapshotStore
	RagStore
	AuditSink
	IngestWriter

	Open(dsn string) error
	Close() error
	Migrate() error
}
