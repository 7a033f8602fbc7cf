package pipeline

import (
	"math"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

// Direction thresholds: a change within ±1% is reported as stable.
const stableBandPercent = 1.0

// CalculateWowChange compares one metric against the previous week.
// A missing or zero previous value yields +100% when the current value
// is positive and 0% otherwise, so new activity reads as growth rather
// than a division error. For lower-is-better metrics the Improvement
// field records whether the movement was favorable.
func CalculateWowChange(current, previous *float64, lowerIsBetter bool) core.WowChange {
	curr := 0.0
	if current != nil {
		curr = *current
	}

	var pct float64
	switch {
	case previous == nil || *previous == 0:
		if curr > 0 {
			pct = 100
		}
	default:
		pct = round2((curr - *previous) / *previous * 100)
	}

	change := core.WowChange{
		ChangePercent: core.Float(pct),
		Direction:     directionOf(pct),
		PreviousValue: previous,
	}
	if lowerIsBetter {
		improvement := change.Direction == core.DirectionDown
		change.Improvement = &improvement
	}
	return change
}

func directionOf(pct float64) core.Direction {
	switch {
	case pct > stableBandPercent:
		return core.DirectionUp
	case pct < -stableBandPercent:
		return core.DirectionDown
	default:
		return core.DirectionStable
	}
}

// DetermineTrend composes an overall weekly trend from the ROAS and
// conversion movements. ROAS dominates: a clear ROAS gain with growing
// conversions is improving, while a ROAS drop or a steep conversion
// drop is declining.
func DetermineTrend(roas, conversions core.WowChange) core.Trend {
	roasPct := roas.Percent()
	convPct := conversions.Percent()

	switch {
	case roasPct > 10 && convPct > 0:
		return core.TrendImproving
	case roasPct < -10 || convPct < -20:
		return core.TrendDeclining
	default:
		return core.TrendStable
	}
}

// CalculateAllWowChanges computes the full week-over-week block from two
// weekly aggregates.
func CalculateAllWowChanges(current, previous *core.AggregatedMetrics) *core.WowResult {
	r := &core.WowResult{
		Spend:       CalculateWowChange(core.Float(current.TotalSpend), core.Float(previous.TotalSpend), false),
		Impressions: CalculateWowChange(countPtr(current.TotalImpressions), countPtr(previous.TotalImpressions), false),
		Clicks:      CalculateWowChange(countPtr(current.TotalClicks), countPtr(previous.TotalClicks), false),
		Conversions: CalculateWowChange(countPtr(current.TotalConversions), countPtr(previous.TotalConversions), false),
		Revenue:     CalculateWowChange(core.Float(current.TotalRevenue), core.Float(previous.TotalRevenue), false),
		Roas:        CalculateWowChange(current.AvgRoas, previous.AvgRoas, false),
		Cpa:         CalculateWowChange(current.AvgCpa, previous.AvgCpa, true),
	}
	r.Trend = DetermineTrend(r.Roas, r.Conversions)
	return r
}

// EmptyWowResult returns the no-comparison block used when the previous
// week has no data at all: every change percent nil, every direction
// stable.
func EmptyWowResult() *core.WowResult {
	empty := core.WowChange{Direction: core.DirectionStable}
	return &core.WowResult{
		Spend:       empty,
		Impressions: empty,
		Clicks:      empty,
		Conversions: empty,
		Revenue:     empty,
		Roas:        empty,
		Cpa:         empty,
		Trend:       core.TrendStable,
	}
}

func countPtr(v int64) *float64 {
	return core.Float(float64(v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
