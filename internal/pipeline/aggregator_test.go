package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

func TestAggregateMetrics(t *testing.T) {
	rows := []core.DailyMetricRow{
		{Spend: 100, Impressions: 10000, Clicks: 200, Conversions: 10, Revenue: 400, Leads: 2},
		{Spend: 50, Impressions: 5000, Clicks: 100, Conversions: 5, Revenue: 200, Leads: 1},
	}

	m := AggregateMetrics(rows)

	assert.Equal(t, 150.0, m.TotalSpend)
	assert.Equal(t, int64(15000), m.TotalImpressions)
	assert.Equal(t, int64(300), m.TotalClicks)
	assert.Equal(t, int64(15), m.TotalConversions)
	assert.Equal(t, int64(3), m.TotalLeads)
	assert.Equal(t, 600.0, m.TotalRevenue)

	require.NotNil(t, m.AvgCtr)
	assert.InDelta(t, 2.0, *m.AvgCtr, 1e-9) // 300/15000*100
	require.NotNil(t, m.AvgCpc)
	assert.InDelta(t, 0.5, *m.AvgCpc, 1e-9)
	require.NotNil(t, m.AvgCpm)
	assert.InDelta(t, 10.0, *m.AvgCpm, 1e-9)
	require.NotNil(t, m.AvgCpa)
	assert.InDelta(t, 10.0, *m.AvgCpa, 1e-9)
	require.NotNil(t, m.AvgRoas)
	assert.InDelta(t, 4.0, *m.AvgRoas, 1e-9)
}

func TestAggregateMetricsZeroDenominators(t *testing.T) {
	t.Run("spend without conversions leaves cpa and roas nil", func(t *testing.T) {
		m := AggregateMetrics([]core.DailyMetricRow{{Spend: 100, Impressions: 1000}})
		assert.Nil(t, m.AvgCpa)
		require.NotNil(t, m.AvgRoas) // spend is positive, so roas computes to 0
		assert.Zero(t, *m.AvgRoas)
		require.NotNil(t, m.AvgCtr)
		assert.Zero(t, *m.AvgCtr)
	})

	t.Run("no rows at all", func(t *testing.T) {
		m := AggregateMetrics(nil)
		assert.Zero(t, m.TotalSpend)
		assert.Nil(t, m.AvgCtr)
		assert.Nil(t, m.AvgCpc)
		assert.Nil(t, m.AvgCpm)
		assert.Nil(t, m.AvgCpa)
		assert.Nil(t, m.AvgRoas)
	})

	t.Run("zero spend leaves roas nil even with revenue", func(t *testing.T) {
		m := AggregateMetrics([]core.DailyMetricRow{{Revenue: 500}})
		assert.Nil(t, m.AvgRoas)
	})
}
