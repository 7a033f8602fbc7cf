package core

import "time"

// Severity ranks anomalies. Sort order is critical < warning < info.
type Severity string

// Anomaly severities.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank returns the sort weight of a severity (critical first).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Anomaly is a statistically notable condition detected for one week.
// Ephemeral: embedded in the snapshot document and audit log, never an
// independent persisted entity.
type Anomaly struct {
	Type       string     `json:"type"`
	Severity   Severity   `json:"severity"`
	Metric     MetricKind `json:"metric,omitempty"`
	Message    string     `json:"message"`
	DetectedAt time.Time  `json:"detected_at"`
}

// GeneratedContent is the content generator's deterministic output:
// report lists, the narrative summary indexed by the retrieval corpus,
// and the structured snapshot document for programmatic consumers.
type GeneratedContent struct {
	Highlights      []string
	Concerns        []string
	Recommendations []string
	SummaryText     string
	Document        *SnapshotDocument
}

// SnapshotDocument is the canonical structured projection of one weekly
// snapshot. It embeds every upstream result verbatim and must agree with
// SummaryText on every number both restate.
type SnapshotDocument struct {
	Version         string                        `json:"version"`
	GeneratedAt     time.Time                     `json:"generated_at"`
	Week            DocumentWeek                  `json:"week"`
	Client          DocumentClient                `json:"client"`
	DataQuality     DataQuality                   `json:"data_quality"`
	Performance     PerformanceBlock              `json:"performance"`
	Calculated      CalculatedBlock               `json:"calculated_metrics"`
	WeekOverWeek    WowResult                     `json:"week_over_week"`
	KpiStatus       map[MetricKind]KpiStatusEntry `json:"kpi_status"`
	Anomalies       []Anomaly                     `json:"anomalies"`
	Highlights      []string                      `json:"highlights"`
	Concerns        []string                      `json:"concerns"`
	Recommendations []string                      `json:"recommendations"`
}

// DocumentWeek identifies the reported week.
type DocumentWeek struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Year   int    `json:"year"`
	Number int    `json:"number"`
}

// DocumentClient identifies the reported client.
type DocumentClient struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// DataQuality describes how complete the week's source data was.
type DataQuality struct {
	Completeness     float64 `json:"completeness"`
	DaysWithData     int     `json:"days_with_data"`
	ExpectedDays     int     `json:"expected_days"`
	AccountsIncluded int     `json:"accounts_included"`
	AccountsTotal    int     `json:"accounts_total"`
	Flags            []Flag  `json:"flags"`
}

// MoneyValue is a currency-stamped amount.
type MoneyValue struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// CountValue is a plain counter.
type CountValue struct {
	Value int64 `json:"value"`
}

// NullableMoney is a currency-stamped amount that may be absent.
type NullableMoney struct {
	Value    *float64 `json:"value"`
	Currency string   `json:"currency"`
}

// NullableValue is a plain number that may be absent.
type NullableValue struct {
	Value *float64 `json:"value"`
}

// PerformanceBlock is the summed-counter section of the document.
type PerformanceBlock struct {
	Spend       MoneyValue `json:"spend"`
	Impressions CountValue `json:"impressions"`
	Clicks      CountValue `json:"clicks"`
	Conversions CountValue `json:"conversions"`
	Leads       CountValue `json:"leads"`
	Revenue     MoneyValue `json:"revenue"`
}

// CalculatedBlock is the derived-rate section of the document.
type CalculatedBlock struct {
	Ctr  NullableValue `json:"ctr"`
	Cpc  NullableMoney `json:"cpc"`
	Cpm  NullableMoney `json:"cpm"`
	Cpa  NullableMoney `json:"cpa"`
	Roas NullableValue `json:"roas"`
}

// SnapshotRecord is the durable unit of work: one row per
// (clientID, weekStart). Either inserted whole or regenerated whole,
// never partially updated.
type SnapshotRecord struct {
	ID               string
	ClientID         string
	WeekStart        time.Time
	WeekEnd          time.Time
	Year             int
	WeekNumber       int
	TotalSpend       float64
	TotalImpressions int64
	TotalClicks      int64
	TotalConversions int64
	TotalLeads       int64
	TotalRevenue     float64
	AvgCtr           *float64
	AvgCpc           *float64
	AvgCpm           *float64
	AvgCpa           *float64
	AvgRoas          *float64
	SpendWowChange   *float64
	ConvWowChange    *float64
	RoasWowChange    *float64
	KpiSpendStatus   *string
	KpiConvStatus    *string
	KpiRoasStatus    *string
	SummaryText      string
	Highlights       []string
	Concerns         []string
	Recommendations  []string
	Document         *SnapshotDocument
	GeneratedAt      time.Time
}

// PersistenceResult reports the outcome of writing a snapshot record.
type PersistenceResult struct {
	Success    bool
	SnapshotID string
	Action     WriteAction
	Err        error
}

// RagSourceTypeWeeklySnapshot keys snapshot-derived retrieval documents.
const RagSourceTypeWeeklySnapshot = "weekly_snapshot"

// RagDocumentInput is what the RAG propagator needs to upsert one
// retrieval document for a persisted snapshot.
type RagDocumentInput struct {
	SnapshotID  string
	ClientID    string
	ClientName  string
	WeekStart   time.Time
	WeekEnd     time.Time
	Year        int
	WeekNumber  int
	SummaryText string
}

// RagDocument is a retrieval-corpus row. The embedding column is owned by
// a downstream embedding worker; the engine only ever writes it as NULL.
type RagDocument struct {
	ID           string
	SourceType   string
	SourceID     string
	ClientID     string
	Title        string
	Content      string
	ContentHash  string
	DocumentDate time.Time
	PeriodStart  time.Time
	PeriodEnd    time.Time
	Tags         []string
	IsActive     bool
}

// RagDocumentRef is the existence-check projection of a stored document.
type RagDocumentRef struct {
	ID          string
	ContentHash string
}

// RagResult reports the outcome of propagating a snapshot to the
// retrieval corpus.
type RagResult struct {
	Success       bool
	RagDocumentID string
	Action        WriteAction
	Err           error
}

// AuditAction is the row-level action recorded by an audit entry.
type AuditAction string

// Audit actions.
const (
	AuditInsert AuditAction = "INSERT"
	AuditUpdate AuditAction = "UPDATE"
	AuditDelete AuditAction = "DELETE"
)

// AuditEvent names a lifecycle milestone recorded in the audit log.
type AuditEvent string

// Audit milestone events.
const (
	EventStartBatch      AuditEvent = "START_BATCH"
	EventClientStart     AuditEvent = "CLIENT_START"
	EventSnapshotCreated AuditEvent = "SNAPSHOT_CREATED"
	EventSnapshotUpdated AuditEvent = "SNAPSHOT_UPDATED"
	EventSnapshotSkipped AuditEvent = "SNAPSHOT_SKIPPED"
	EventSnapshotFailed  AuditEvent = "SNAPSHOT_FAILED"
	EventRagCreated      AuditEvent = "RAG_CREATED"
	EventRagUpdated      AuditEvent = "RAG_UPDATED"
	EventAnomalyDetected AuditEvent = "ANOMALY_DETECTED"
	EventBatchComplete   AuditEvent = "BATCH_COMPLETE"
)

// AuditLogEntry is one append-only audit row. Entries are never mutated
// or deleted.
type AuditLogEntry struct {
	ID        string
	TableName string
	RecordID  string
	Action    AuditAction
	ClientID  string
	UserID    string
	OldValues map[string]any
	NewValues map[string]any
	CreatedAt time.Time
}
