package pipeline

import "github.com/adpulse-labs/adpulse/pkg/core"

// AggregateMetrics folds daily metric rows into weekly totals and
// derives the rate metrics. Absent counters are zero, so summation needs
// no null handling; the rates are nil whenever their denominator is not
// positive.
func AggregateMetrics(rows []core.DailyMetricRow) *core.AggregatedMetrics {
	m := &core.AggregatedMetrics{}
	for _, r := range rows {
		m.TotalSpend += r.Spend
		m.TotalImpressions += r.Impressions
		m.TotalClicks += r.Clicks
		m.TotalReach += r.Reach
		m.TotalConversions += r.Conversions
		m.TotalLeads += r.Leads
		m.TotalPurchases += r.Purchases
		m.TotalRevenue += r.Revenue
		m.TotalVideoViews += r.VideoViews
		m.TotalEngagements += r.Engagements
	}

	m.AvgCtr = CalculateCtr(m.TotalClicks, m.TotalImpressions)
	m.AvgCpc = CalculateCpc(m.TotalSpend, m.TotalClicks)
	m.AvgCpm = CalculateCpm(m.TotalSpend, m.TotalImpressions)
	m.AvgCpa = CalculateCpa(m.TotalSpend, m.TotalConversions)
	m.AvgRoas = CalculateRoas(m.TotalRevenue, m.TotalSpend)

	return m
}

// EmptyAggregation returns the zero-week aggregate: all counters zero,
// all rates nil.
func EmptyAggregation() *core.AggregatedMetrics {
	return &core.AggregatedMetrics{}
}

// CalculateCtr returns clicks/impressions as a percentage, nil when
// there were no impressions.
func CalculateCtr(clicks, impressions int64) *float64 {
	if impressions <= 0 {
		return nil
	}
	return core.Float(float64(clicks) / float64(impressions) * 100)
}

// CalculateCpc returns spend per click, nil when there were no clicks.
func CalculateCpc(spend float64, clicks int64) *float64 {
	if clicks <= 0 {
		return nil
	}
	return core.Float(spend / float64(clicks))
}

// CalculateCpm returns spend per thousand impressions, nil when there
// were no impressions.
func CalculateCpm(spend float64, impressions int64) *float64 {
	if impressions <= 0 {
		return nil
	}
	return core.Float(spend / float64(impressions) * 1000)
}

// CalculateCpa returns spend per conversion, nil when there were no
// conversions.
func CalculateCpa(spend float64, conversions int64) *float64 {
	if conversions <= 0 {
		return nil
	}
	return core.Float(spend / float64(conversions))
}

// CalculateRoas returns revenue per unit of spend, nil when there was no
// spend.
func CalculateRoas(revenue, spend float64) *float64 {
	if spend <= 0 {
		return nil
	}
	return core.Float(revenue / spend)
}
