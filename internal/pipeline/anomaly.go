package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

// Anomaly detection thresholds, in percent unless noted.
const (
	spendSpikeThreshold     = 50.0
	spendDropThreshold      = -50.0
	roasDeclineThreshold    = -30.0
	minSpendForRoasAlert    = 100.0 // absolute spend floor
	cpaIncreaseThreshold    = 50.0
	conversionDropThreshold = -40.0
	proportionalSpendDrop   = -10.0
	completenessAlertLevel  = 0.7 // ratio, not percent
)

// Anomaly type names.
const (
	AnomalySpendSpike     = "spend_spike"
	AnomalySpendDrop      = "spend_drop"
	AnomalyRoasDecline    = "roas_decline"
	AnomalyCpaIncrease    = "cpa_increase"
	AnomalyConversionDrop = "conversion_drop"
	AnomalyIncompleteData = "incomplete_data"
	AnomalyKpiCritical    = "kpi_critical"
)

// AnomalyInput carries everything the detector inspects for one client
// week. The detection timestamp is injected so identical inputs always
// produce identical anomalies.
type AnomalyInput struct {
	Wow             *core.WowResult
	Kpi             *core.KpiResult
	Metrics         *core.AggregatedMetrics
	Completeness    float64
	DaysWithData    int
	ExpectedDays    int
	HasPreviousData bool
	DetectedAt      time.Time
}

// DetectAnomalies applies fixed threshold rules over the week-over-week
// changes, KPI statuses, and data completeness. Week-over-week rules are
// suppressed when there is no previous week to compare against. The
// result is sorted by severity, critical first, with detection order
// preserved within a severity.
func DetectAnomalies(in AnomalyInput) []core.Anomaly {
	var anomalies []core.Anomaly

	if in.HasPreviousData {
		anomalies = append(anomalies, DetectSpendAnomalies(in)...)
		anomalies = append(anomalies, DetectPerformanceAnomalies(in)...)
	}
	anomalies = append(anomalies, DetectDataQualityAnomalies(in)...)
	anomalies = append(anomalies, DetectKpiAnomalies(in)...)

	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Severity.Rank() < anomalies[j].Severity.Rank()
	})
	return anomalies
}

// DetectSpendAnomalies flags abrupt spend movements in either direction.
func DetectSpendAnomalies(in AnomalyInput) []core.Anomaly {
	spendPct := in.Wow.Spend.Percent()

	switch {
	case spendPct > spendSpikeThreshold:
		return []core.Anomaly{{
			Type:       AnomalySpendSpike,
			Severity:   core.SeverityWarning,
			Metric:     core.MetricSpend,
			Message:    fmt.Sprintf("Spend up %.1f%% versus the previous week", spendPct),
			DetectedAt: in.DetectedAt,
		}}
	case spendPct < spendDropThreshold:
		return []core.Anomaly{{
			Type:       AnomalySpendDrop,
			Severity:   core.SeverityInfo,
			Metric:     core.MetricSpend,
			Message:    fmt.Sprintf("Spend down %.1f%% versus the previous week", -spendPct),
			DetectedAt: in.DetectedAt,
		}}
	}
	return nil
}

// DetectPerformanceAnomalies flags efficiency regressions: a sharp ROAS
// decline on meaningful spend, a steep CPA increase while conversions
// still flow, and a conversion collapse that spend movement cannot
// explain.
func DetectPerformanceAnomalies(in AnomalyInput) []core.Anomaly {
	var anomalies []core.Anomaly

	roasPct := in.Wow.Roas.Percent()
	if roasPct < roasDeclineThreshold && in.Metrics.TotalSpend > minSpendForRoasAlert {
		anomalies = append(anomalies, core.Anomaly{
			Type:       AnomalyRoasDecline,
			Severity:   core.SeverityCritical,
			Metric:     core.MetricRoas,
			Message:    fmt.Sprintf("ROAS declined sharply by %.1f%%", -roasPct),
			DetectedAt: in.DetectedAt,
		})
	}

	cpaPct := in.Wow.Cpa.Percent()
	if cpaPct > cpaIncreaseThreshold && in.Metrics.TotalConversions > 0 {
		anomalies = append(anomalies, core.Anomaly{
			Type:       AnomalyCpaIncrease,
			Severity:   core.SeverityWarning,
			Metric:     core.MetricCpa,
			Message:    fmt.Sprintf("Cost per conversion up %.1f%% versus the previous week", cpaPct),
			DetectedAt: in.DetectedAt,
		})
	}

	convPct := in.Wow.Conversions.Percent()
	spendPct := in.Wow.Spend.Percent()
	if convPct < conversionDropThreshold && spendPct >= proportionalSpendDrop {
		anomalies = append(anomalies, core.Anomaly{
			Type:       AnomalyConversionDrop,
			Severity:   core.SeverityCritical,
			Metric:     core.MetricConversions,
			Message:    fmt.Sprintf("Conversions down %.1f%% without a matching spend reduction", -convPct),
			DetectedAt: in.DetectedAt,
		})
	}

	return anomalies
}

// DetectDataQualityAnomalies flags weeks with too many missing source
// days to trust the aggregates.
func DetectDataQualityAnomalies(in AnomalyInput) []core.Anomaly {
	if in.Completeness >= completenessAlertLevel {
		return nil
	}
	return []core.Anomaly{{
		Type:     AnomalyIncompleteData,
		Severity: core.SeverityWarning,
		Message: fmt.Sprintf("Source data available for only %d of %d days",
			in.DaysWithData, in.ExpectedDays),
		DetectedAt: in.DetectedAt,
	}}
}

// DetectKpiAnomalies surfaces every KPI in critical status, in stable
// metric-name order.
func DetectKpiAnomalies(in AnomalyInput) []core.Anomaly {
	if in.Kpi == nil {
		return nil
	}

	var anomalies []core.Anomaly
	for _, kind := range sortedKpiKinds(in.Kpi.Status) {
		entry := in.Kpi.Status[kind]
		if entry.Status != core.KpiCritical {
			continue
		}
		achievement := 0.0
		if entry.AchievementPercent != nil {
			achievement = *entry.AchievementPercent
		}
		anomalies = append(anomalies, core.Anomaly{
			Type:       AnomalyKpiCritical,
			Severity:   core.SeverityCritical,
			Metric:     kind,
			Message:    fmt.Sprintf("KPI %s at %.1f%% of its prorated target", kind, achievement),
			DetectedAt: in.DetectedAt,
		})
	}
	return anomalies
}
