package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

func anomalyInput() AnomalyInput {
	return AnomalyInput{
		Wow:             EmptyWowResult(),
		Kpi:             &core.KpiResult{Status: map[core.MetricKind]core.KpiStatusEntry{}},
		Metrics:         &core.AggregatedMetrics{},
		Completeness:    1,
		DaysWithData:    7,
		ExpectedDays:    7,
		HasPreviousData: true,
		DetectedAt:      time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC),
	}
}

func withChange(w *core.WowResult, set func(*core.WowResult)) *core.WowResult {
	set(w)
	return w
}

func TestDetectSpendAnomalies(t *testing.T) {
	t.Run("spike just over threshold", func(t *testing.T) {
		in := anomalyInput()
		in.Wow = withChange(in.Wow, func(w *core.WowResult) {
			w.Spend = core.WowChange{ChangePercent: core.Float(50.1)}
		})
		got := DetectAnomalies(in)
		require.Len(t, got, 1)
		assert.Equal(t, AnomalySpendSpike, got[0].Type)
		assert.Equal(t, core.SeverityWarning, got[0].Severity)
	})

	t.Run("exactly at threshold is quiet", func(t *testing.T) {
		in := anomalyInput()
		in.Wow = withChange(in.Wow, func(w *core.WowResult) {
			w.Spend = core.WowChange{ChangePercent: core.Float(50)}
		})
		assert.Empty(t, DetectAnomalies(in))
	})

	t.Run("drop is informational", func(t *testing.T) {
		in := anomalyInput()
		in.Wow = withChange(in.Wow, func(w *core.WowResult) {
			w.Spend = core.WowChange{ChangePercent: core.Float(-60)}
		})
		got := DetectAnomalies(in)
		require.Len(t, got, 1)
		assert.Equal(t, AnomalySpendDrop, got[0].Type)
		assert.Equal(t, core.SeverityInfo, got[0].Severity)
	})
}

func TestDetectPerformanceAnomalies(t *testing.T) {
	t.Run("roas decline needs meaningful spend", func(t *testing.T) {
		in := anomalyInput()
		in.Wow.Roas = core.WowChange{ChangePercent: core.Float(-40)}

		in.Metrics.TotalSpend = 50
		assert.Empty(t, DetectAnomalies(in))

		in.Metrics.TotalSpend = 500
		got := DetectAnomalies(in)
		require.Len(t, got, 1)
		assert.Equal(t, AnomalyRoasDecline, got[0].Type)
		assert.Equal(t, core.SeverityCritical, got[0].Severity)
	})

	t.Run("cpa increase needs live conversions", func(t *testing.T) {
		in := anomalyInput()
		in.Wow.Cpa = core.WowChange{ChangePercent: core.Float(80)}

		assert.Empty(t, DetectAnomalies(in))

		in.Metrics.TotalConversions = 5
		got := DetectAnomalies(in)
		require.Len(t, got, 1)
		assert.Equal(t, AnomalyCpaIncrease, got[0].Type)
	})

	t.Run("conversion drop suppressed when spend dropped proportionally", func(t *testing.T) {
		in := anomalyInput()
		in.Wow.Conversions = core.WowChange{ChangePercent: core.Float(-50)}
		in.Wow.Spend = core.WowChange{ChangePercent: core.Float(-45)}
		assert.Empty(t, DetectAnomalies(in))

		in.Wow.Spend = core.WowChange{ChangePercent: core.Float(-5)}
		got := DetectAnomalies(in)
		require.Len(t, got, 1)
		assert.Equal(t, AnomalyConversionDrop, got[0].Type)
		assert.Equal(t, core.SeverityCritical, got[0].Severity)
	})
}

func TestDetectAnomaliesWithoutPreviousData(t *testing.T) {
	// A first week with heavy totals must not alarm against an empty
	// comparison week.
	in := anomalyInput()
	in.HasPreviousData = false
	in.Wow.Spend = core.WowChange{ChangePercent: core.Float(100)}
	in.Wow.Conversions = core.WowChange{ChangePercent: core.Float(-100)}
	assert.Empty(t, DetectAnomalies(in))
}

func TestDetectDataQualityAnomalies(t *testing.T) {
	in := anomalyInput()
	in.Completeness = 4.0 / 7
	in.DaysWithData = 4
	got := DetectAnomalies(in)
	require.Len(t, got, 1)
	assert.Equal(t, AnomalyIncompleteData, got[0].Type)
	assert.Contains(t, got[0].Message, "4 of 7 days")
}

func TestDetectKpiAnomalies(t *testing.T) {
	in := anomalyInput()
	in.Kpi.Status[core.MetricRoas] = core.KpiStatusEntry{
		Status:             core.KpiCritical,
		AchievementPercent: core.Float(30),
	}
	in.Kpi.Status[core.MetricSpend] = core.KpiStatusEntry{Status: core.KpiOnTrack}

	got := DetectAnomalies(in)
	require.Len(t, got, 1)
	assert.Equal(t, AnomalyKpiCritical, got[0].Type)
	assert.Equal(t, core.MetricRoas, got[0].Metric)
	assert.Contains(t, got[0].Message, "30.0%")
}

func TestDetectAnomaliesSeverityOrdering(t *testing.T) {
	in := anomalyInput()
	in.Wow.Spend = core.WowChange{ChangePercent: core.Float(-60)} // info
	in.Wow.Roas = core.WowChange{ChangePercent: core.Float(-40)}  // critical with the spend below
	in.Wow.Cpa = core.WowChange{ChangePercent: core.Float(80)}    // warning
	in.Metrics.TotalSpend = 500
	in.Metrics.TotalConversions = 5
	in.Completeness = 0.5
	in.DaysWithData = 3

	got := DetectAnomalies(in)
	require.Len(t, got, 4)
	severities := make([]core.Severity, len(got))
	for i, a := range got {
		severities[i] = a.Severity
	}
	assert.Equal(t, []core.Severity{
		core.SeverityCritical, core.SeverityWarning, core.SeverityWarning, core.SeverityInfo,
	}, severities)
}

func TestDetectAnomaliesDeterministic(t *testing.T) {
	in := anomalyInput()
	in.Kpi.Status[core.MetricRoas] = core.KpiStatusEntry{Status: core.KpiCritical, AchievementPercent: core.Float(20)}
	in.Kpi.Status[core.MetricCpa] = core.KpiStatusEntry{Status: core.KpiCritical, AchievementPercent: core.Float(10)}
	in.Kpi.Status[core.MetricSpend] = core.KpiStatusEntry{Status: core.KpiCritical, AchievementPercent: core.Float(5)}

	first := DetectAnomalies(in)
	for range 20 {
		assert.Equal(t, first, DetectAnomalies(in))
	}
}
