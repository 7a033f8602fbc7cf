package core

import "time"

// KpiDefinition is a client-scoped performance target for a period.
// Defined externally (account managers maintain them); read-only to the
// engine. MetricName is kept as the raw stored string so the KPI engine
// can flag unknown metrics instead of dropping them at scan time.
type KpiDefinition struct {
	ID                string
	ClientID          string
	MetricName        string
	TargetValue       float64
	TargetUnit        string
	PeriodStart       time.Time
	PeriodEnd         time.Time
	WarningThreshold  float64
	CriticalThreshold float64
}

// KpiStatus classifies achievement against a (prorated) target.
type KpiStatus string

// KPI status values, best to worst.
const (
	KpiExceeded KpiStatus = "exceeded"
	KpiOnTrack  KpiStatus = "on_track"
	KpiWarning  KpiStatus = "warning"
	KpiCritical KpiStatus = "critical"
)

// KpiStatusEntry is the evaluated state of one KPI for the target week.
// Computed fresh on every run; persisted only inside the snapshot.
type KpiStatusEntry struct {
	Target                float64   `json:"target"`
	ProratedTarget        float64   `json:"prorated_target"`
	Actual                *float64  `json:"actual"`
	AchievementPercent    *float64  `json:"achievement_percent"`
	Status                KpiStatus `json:"status"`
	PeriodProgressPercent float64   `json:"period_progress_percent"`
}

// KpiResult is the KPI engine's output for one client: evaluated entries
// keyed by metric kind, plus any flags raised along the way.
type KpiResult struct {
	Status map[MetricKind]KpiStatusEntry `json:"status"`
	Flags  []Flag                        `json:"-"`
}

// EmptyKpiResult returns a result for a client with no KPI definitions.
func EmptyKpiResult() *KpiResult {
	return &KpiResult{
		Status: map[MetricKind]KpiStatusEntry{},
		Flags:  []Flag{FlagNoKpisDefined},
	}
}

// StatusFor returns the evaluated entry for a metric, if present.
func (r *KpiResult) StatusFor(k MetricKind) (KpiStatusEntry, bool) {
	e, ok := r.Status[k]
	return e, ok
}
