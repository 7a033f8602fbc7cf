package core

import (
	"fmt"
	"time"
)

// BatchParams holds the validated input for one snapshot batch invocation.
type BatchParams struct {
	// WeekStart is the Monday of the target week (UTC midnight).
	WeekStart time.Time
	// ClientID optionally restricts the batch to a single client.
	ClientID string
	// Force regenerates snapshots that already exist for the target week.
	Force bool
	// Concurrency bounds the per-client worker pool. Zero or one means
	// strictly sequential processing.
	Concurrency int
	// IncludeResults adds per-client detail to the batch output.
	IncludeResults bool
}

// ValidationError is a fatal parameter error. It aborts the batch before
// any client is touched and is the only error class that maps to a
// non-zero process exit code.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewValidationError creates a ValidationError with the given code.
func NewValidationError(code, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WriteAction classifies what the pipeline will do with a client's
// snapshot row. Fixed at discovery time for the lifetime of one run.
type WriteAction string

// Write action constants.
const (
	ActionInsert WriteAction = "INSERT"
	ActionUpdate WriteAction = "UPDATE"
	ActionSkip   WriteAction = "SKIP"
)

// Client is an advertising client as stored in the backing store.
type Client struct {
	ID       string
	Name     string
	Slug     string
	Status   string
	Currency string
}

// ClientToProcess is a discovered client annotated with the write action
// decided by the validator.
type ClientToProcess struct {
	Client
	Action WriteAction
	// ExistingSnapshotID carries the snapshot row to overwrite when
	// Action is ActionUpdate.
	ExistingSnapshotID string
}

// Account is an ad-platform account belonging to a client. Immutable for
// the duration of a run.
type Account struct {
	ID                string
	ClientID          string
	PlatformID        string
	ExternalAccountID string
	Name              string
	Currency          string
	Status            string
}

// DailyMetricRow is one account-day of raw counters. Absent values are
// stored as zero; a missing day is the absence of the row itself.
type DailyMetricRow struct {
	ID           string
	AccountID    string
	Date         time.Time
	CampaignID   string
	CampaignName string
	Spend        float64
	Impressions  int64
	Clicks       int64
	Reach        int64
	Conversions  int64
	Leads        int64
	Purchases    int64
	Revenue      float64
	VideoViews   int64
	Engagements  int64
}

// Flag marks a non-fatal data-quality or KPI condition raised during a
// client's pipeline run. Flags never block persistence; they downgrade
// the client result to "partial".
type Flag string

// Data-quality and KPI flags.
const (
	FlagNoActiveAccounts Flag = "NO_ACTIVE_ACCOUNTS"
	FlagInsufficientData Flag = "INSUFFICIENT_DATA"
	FlagNoPreviousData   Flag = "NO_PREVIOUS_DATA"
	FlagNoKpisDefined    Flag = "NO_KPIS_DEFINED"
	FlagUnknownMetric    Flag = "UNKNOWN_METRIC"
	FlagInvalidKpiTarget Flag = "INVALID_KPI_TARGET"
)

// ExtractedData is the raw material for one client's snapshot. Owned by a
// single pipeline run and discarded once aggregated.
type ExtractedData struct {
	ClientID     string
	Accounts     []*Account
	CurrentWeek  []DailyMetricRow
	PreviousWeek []DailyMetricRow
	DaysWithData int
	ExpectedDays int
	Completeness float64
	Flags        []Flag
}

// WeekBounds holds the resolved date window for a batch: the target week,
// the comparison week, and the ISO week identity of the target.
type WeekBounds struct {
	Start      time.Time
	End        time.Time
	PrevStart  time.Time
	PrevEnd    time.Time
	Year       int
	WeekNumber int
}

// WeekBoundsFor computes the full week window from a Monday week start.
func WeekBoundsFor(weekStart time.Time) WeekBounds {
	year, week := weekStart.ISOWeek()
	return WeekBounds{
		Start:      weekStart,
		End:        weekStart.AddDate(0, 0, 6),
		PrevStart:  weekStart.AddDate(0, 0, -7),
		PrevEnd:    weekStart.AddDate(0, 0, -1),
		Year:       year,
		WeekNumber: week,
	}
}

// Label returns the ISO week label, e.g. "2024-W02".
func (w WeekBounds) Label() string {
	return fmt.Sprintf("%d-W%02d", w.Year, w.WeekNumber)
}

// ClientStatus is the terminal state of one client's pipeline run.
type ClientStatus string

// Client processing statuses.
const (
	StatusSuccess ClientStatus = "success"
	StatusPartial ClientStatus = "partial"
	StatusFailed  ClientStatus = "failed"
	StatusSkipped ClientStatus = "skipped"
)

// ClientResult summarizes one client's pipeline run. In-memory only;
// reflected into the audit log and the batch output, never persisted as
// an entity itself.
type ClientResult struct {
	ClientID      string       `json:"clientId"`
	ClientName    string       `json:"clientName"`
	Status        ClientStatus `json:"status"`
	SnapshotID    string       `json:"snapshotId,omitempty"`
	RagDocumentID string       `json:"ragDocumentId,omitempty"`
	Flags         []Flag       `json:"flags,omitempty"`
	Anomalies     int          `json:"anomaliesCount"`
	DurationMS    int64        `json:"durationMs"`
	Error         string       `json:"error,omitempty"`
}

// BatchResult is the final output of one batch invocation, emitted as
// JSON on stdout.
type BatchResult struct {
	WeekStart  string         `json:"weekStart"`
	WeekEnd    string         `json:"weekEnd"`
	Processed  int            `json:"processed"`
	Success    int            `json:"success"`
	Partial    int            `json:"partial"`
	Failed     int            `json:"failed"`
	Skipped    int            `json:"skipped"`
	DurationMS int64          `json:"durationMs"`
	Results    []ClientResult `json:"results,omitempty"`
}

// Tally recomputes the per-status counters from Results.
func (b *BatchResult) Tally(results []ClientResult) {
	b.Processed = len(results)
	b.Success, b.Partial, b.Failed, b.Skipped = 0, 0, 0, 0
	for _, r := range results {
		switch r.Status {
		case StatusSuccess:
			b.Success++
		case StatusPartial:
			b.Partial++
		case StatusFailed:
			b.Failed++
		case StatusSkipped:
			b.Skipped++
		}
	}
}
