package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

// CalculateKpiStatus evaluates every KPI whose period covers the target
// week against the week's aggregated metrics. Cumulative targets are
// prorated to the elapsed share of the KPI period; rate targets are
// compared as-is. Unknown metric names and zero targets raise flags and
// are skipped; when two KPIs bind the same metric the later one wins.
func CalculateKpiStatus(ctx context.Context, kpis core.KpiReader, clientID string, week core.WeekBounds, metrics *core.AggregatedMetrics) (*core.KpiResult, error) {
	defs, err := kpis.ListActiveKpis(ctx, clientID, week.Start, week.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load KPIs for client %s: %w", clientID, err)
	}
	if len(defs) == 0 {
		return core.EmptyKpiResult(), nil
	}

	result := &core.KpiResult{Status: make(map[core.MetricKind]core.KpiStatusEntry, len(defs))}
	for _, def := range defs {
		kind, ok := core.ParseMetricKind(def.MetricName)
		if !ok {
			result.Flags = append(result.Flags, core.FlagUnknownMetric)
			continue
		}
		if def.TargetValue == 0 {
			result.Flags = append(result.Flags, core.FlagInvalidKpiTarget)
			continue
		}

		prorated, progress := ProratedTarget(def, kind, week.End)
		actual := metrics.Value(kind)

		entry := core.KpiStatusEntry{
			Target:                def.TargetValue,
			ProratedTarget:        prorated,
			Actual:                actual,
			Status:                ClassifyKpiStatus(kind, actual, prorated, def.WarningThreshold, def.CriticalThreshold),
			PeriodProgressPercent: round2(progress * 100),
		}
		if actual != nil && prorated > 0 {
			entry.AchievementPercent = core.Float(round2(*actual / prorated * 100))
		}
		result.Status[kind] = entry
	}

	return result, nil
}

// ProratedTarget scales a cumulative KPI target to the share of its
// period elapsed at the end of the target week. Rate targets are never
// prorated. Day counts are inclusive on both ends; the elapsed share is
// capped at the full period.
func ProratedTarget(def *core.KpiDefinition, kind core.MetricKind, weekEnd time.Time) (float64, float64) {
	total := inclusiveDays(def.PeriodStart, def.PeriodEnd)
	if total <= 0 {
		return def.TargetValue, 1
	}

	elapsed := inclusiveDays(def.PeriodStart, weekEnd)
	if elapsed > total {
		elapsed = total
	}
	if elapsed < 0 {
		elapsed = 0
	}
	progress := float64(elapsed) / float64(total)

	if kind.IsRate() {
		return def.TargetValue, progress
	}
	return round2(def.TargetValue * progress), progress
}

// ClassifyKpiStatus maps an actual value against a prorated target. For
// higher-is-better metrics achievement below the per-KPI warning and
// critical thresholds downgrades the status; the thresholds are used as
// stored, so a zero threshold never downgrades past on_track. For cost
// metrics the ladder inverts and overshooting the target is what
// degrades. A missing actual or a non-positive target is reported as
// warning since nothing can be concluded from it.
func ClassifyKpiStatus(kind core.MetricKind, actual *float64, proratedTarget, warnThreshold, critThreshold float64) core.KpiStatus {
	if actual == nil || proratedTarget <= 0 {
		return core.KpiWarning
	}

	if kind.LowerIsBetter() {
		// Cost metric: at or under target is winning.
		ratio := *actual / proratedTarget
		switch {
		case ratio <= 1.0:
			return core.KpiExceeded
		case ratio <= 1.2:
			return core.KpiOnTrack
		case ratio <= 1.5:
			return core.KpiWarning
		default:
			return core.KpiCritical
		}
	}

	achievement := *actual / proratedTarget * 100
	switch {
	case achievement >= 100:
		return core.KpiExceeded
	case achievement >= warnThreshold:
		return core.KpiOnTrack
	case achievement >= critThreshold:
		return core.KpiWarning
	default:
		return core.KpiCritical
	}
}

// sortedKpiKinds returns the evaluated metric kinds in stable name order
// so downstream output is deterministic.
func sortedKpiKinds(status map[core.MetricKind]core.KpiStatusEntry) []core.MetricKind {
	kinds := make([]core.MetricKind, 0, len(status))
	for k := range status {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
