package core

// MetricKind enumerates every metric a KPI definition can bind to. An
// unknown metric name fails to parse instead of silently mapping to a
// missing value.
type MetricKind string

// Known metric kinds. The first group is cumulative (summed counters,
// prorated against partial KPI periods); the second is rates (derived
// ratios, never prorated).
const (
	MetricSpend       MetricKind = "spend"
	MetricImpressions MetricKind = "impressions"
	MetricClicks      MetricKind = "clicks"
	MetricConversions MetricKind = "conversions"
	MetricLeads       MetricKind = "leads"
	MetricPurchases   MetricKind = "purchases"
	MetricRevenue     MetricKind = "revenue"

	MetricRoas MetricKind = "roas"
	MetricCpa  MetricKind = "cpa"
	MetricCtr  MetricKind = "ctr"
	MetricCpc  MetricKind = "cpc"
	MetricCpm  MetricKind = "cpm"
)

// ParseMetricKind maps a KPI metric name to a MetricKind. The second
// return is false for names the engine does not know.
func ParseMetricKind(name string) (MetricKind, bool) {
	switch k := MetricKind(name); k {
	case MetricSpend, MetricImpressions, MetricClicks, MetricConversions,
		MetricLeads, MetricPurchases, MetricRevenue,
		MetricRoas, MetricCpa, MetricCtr, MetricCpc, MetricCpm:
		return k, true
	}
	return "", false
}

// IsRate reports whether the metric is a derived ratio. Rate targets are
// never prorated to the elapsed KPI period.
func (k MetricKind) IsRate() bool {
	switch k {
	case MetricRoas, MetricCpa, MetricCtr, MetricCpc, MetricCpm:
		return true
	}
	return false
}

// LowerIsBetter reports whether a smaller value of this metric is an
// improvement (cost metrics).
func (k MetricKind) LowerIsBetter() bool {
	return k == MetricCpa
}

// AggregatedMetrics holds one week's summed counters plus the derived
// rates. The rates are pure functions of the counters and are nil when
// their denominator is not positive; they are never stored independently.
type AggregatedMetrics struct {
	TotalSpend       float64
	TotalImpressions int64
	TotalClicks      int64
	TotalReach       int64
	TotalConversions int64
	TotalLeads       int64
	TotalPurchases   int64
	TotalRevenue     float64
	TotalVideoViews  int64
	TotalEngagements int64

	AvgCtr  *float64
	AvgCpc  *float64
	AvgCpm  *float64
	AvgCpa  *float64
	AvgRoas *float64
}

// Value returns the aggregated value bound to the given metric kind.
// Cumulative counters are always present; rates may be nil.
func (m *AggregatedMetrics) Value(k MetricKind) *float64 {
	switch k {
	case MetricSpend:
		return Float(m.TotalSpend)
	case MetricImpressions:
		return Float(float64(m.TotalImpressions))
	case MetricClicks:
		return Float(float64(m.TotalClicks))
	case MetricConversions:
		return Float(float64(m.TotalConversions))
	case MetricLeads:
		return Float(float64(m.TotalLeads))
	case MetricPurchases:
		return Float(float64(m.TotalPurchases))
	case MetricRevenue:
		return Float(m.TotalRevenue)
	case MetricRoas:
		return m.AvgRoas
	case MetricCpa:
		return m.AvgCpa
	case MetricCtr:
		return m.AvgCtr
	case MetricCpc:
		return m.AvgCpc
	case MetricCpm:
		return m.AvgCpm
	}
	return nil
}

// Float returns a pointer to v. Convenience for nullable metric fields.
func Float(v float64) *float64 {
	return &v
}

// Direction is the sign of a week-over-week change.
type Direction string

// Change directions.
const (
	DirectionUp     Direction = "up"
	DirectionDown   Direction = "down"
	DirectionStable Direction = "stable"
)

// WowChange is the week-over-week movement of a single metric.
// ChangePercent is nil when no previous-week data exists to compare
// against. Improvement is only set for lower-is-better metrics.
type WowChange struct {
	ChangePercent *float64  `json:"change_percent"`
	Direction     Direction `json:"direction"`
	PreviousValue *float64  `json:"previous_value"`
	Improvement   *bool     `json:"is_improvement,omitempty"`
}

// Percent returns the change percent, treating nil as zero.
func (c WowChange) Percent() float64 {
	if c.ChangePercent == nil {
		return 0
	}
	return *c.ChangePercent
}

// Trend classifies the overall week-over-week direction of a client.
type Trend string

// Trend values.
const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// WowResult bundles the per-metric week-over-week changes and the
// composed trend.
type WowResult struct {
	Spend       WowChange `json:"spend"`
	Impressions WowChange `json:"impressions"`
	Clicks      WowChange `json:"clicks"`
	Conversions WowChange `json:"conversions"`
	Revenue     WowChange `json:"revenue"`
	Roas        WowChange `json:"roas"`
	Cpa         WowChange `json:"cpa"`
	Trend       Trend     `json:"trend"`
}
