package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

func TestCalculateWowChange(t *testing.T) {
	tests := []struct {
		name     string
		current  *float64
		previous *float64
		wantPct  float64
		wantDir  core.Direction
	}{
		{"growth", core.Float(150), core.Float(100), 50, core.DirectionUp},
		{"decline", core.Float(50), core.Float(100), -50, core.DirectionDown},
		{"within stable band", core.Float(100.5), core.Float(100), 0.5, core.DirectionStable},
		{"exactly at band edge", core.Float(101), core.Float(100), 1, core.DirectionStable},
		{"zero previous with activity", core.Float(75), core.Float(0), 100, core.DirectionUp},
		{"zero previous without activity", core.Float(0), core.Float(0), 0, core.DirectionStable},
		{"nil previous with activity", core.Float(75), nil, 100, core.DirectionUp},
		{"nil current treated as zero", nil, core.Float(100), -100, core.DirectionDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := CalculateWowChange(tt.current, tt.previous, false)
			require.NotNil(t, c.ChangePercent)
			assert.InDelta(t, tt.wantPct, *c.ChangePercent, 1e-9)
			assert.Equal(t, tt.wantDir, c.Direction)
			assert.Nil(t, c.Improvement)
		})
	}
}

func TestCalculateWowChangeRounding(t *testing.T) {
	c := CalculateWowChange(core.Float(1), core.Float(3), false)
	require.NotNil(t, c.ChangePercent)
	assert.Equal(t, -66.67, *c.ChangePercent)
}

func TestCalculateWowChangeLowerIsBetter(t *testing.T) {
	t.Run("falling cost is an improvement", func(t *testing.T) {
		c := CalculateWowChange(core.Float(8), core.Float(10), true)
		require.NotNil(t, c.Improvement)
		assert.True(t, *c.Improvement)
	})

	t.Run("rising cost is not", func(t *testing.T) {
		c := CalculateWowChange(core.Float(12), core.Float(10), true)
		require.NotNil(t, c.Improvement)
		assert.False(t, *c.Improvement)
	})
}

func TestDetermineTrend(t *testing.T) {
	change := func(pct float64) core.WowChange {
		return core.WowChange{ChangePercent: core.Float(pct)}
	}

	tests := []struct {
		name string
		roas core.WowChange
		conv core.WowChange
		want core.Trend
	}{
		{"roas and conversions up", change(15), change(5), core.TrendImproving},
		{"roas up but conversions flat", change(15), change(0), core.TrendStable},
		{"roas up but conversions falling", change(15), change(-5), core.TrendStable},
		{"roas down", change(-15), change(5), core.TrendDeclining},
		{"conversions collapsing", change(0), change(-25), core.TrendDeclining},
		{"both mild", change(5), change(5), core.TrendStable},
		{"no comparison data", core.WowChange{}, core.WowChange{}, core.TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetermineTrend(tt.roas, tt.conv))
		})
	}
}

func TestCalculateAllWowChanges(t *testing.T) {
	current := AggregateMetrics([]core.DailyMetricRow{
		{Spend: 200, Impressions: 20000, Clicks: 400, Conversions: 20, Revenue: 1000},
	})
	previous := AggregateMetrics([]core.DailyMetricRow{
		{Spend: 100, Impressions: 10000, Clicks: 200, Conversions: 10, Revenue: 400},
	})

	r := CalculateAllWowChanges(current, previous)

	assert.InDelta(t, 100, r.Spend.Percent(), 1e-9)
	assert.InDelta(t, 100, r.Conversions.Percent(), 1e-9)
	assert.InDelta(t, 25, r.Roas.Percent(), 1e-9) // 5.0 vs 4.0
	assert.Equal(t, core.TrendImproving, r.Trend)
	require.NotNil(t, r.Cpa.Improvement)
	assert.False(t, *r.Cpa.Improvement) // cpa flat at 10 counts as not improved
}

func TestEmptyWowResult(t *testing.T) {
	r := EmptyWowResult()
	assert.Nil(t, r.Spend.ChangePercent)
	assert.Nil(t, r.Roas.ChangePercent)
	assert.Equal(t, core.DirectionStable, r.Conversions.Direction)
	assert.Equal(t, core.TrendStable, r.Trend)
	assert.Zero(t, r.Spend.Percent())
}
