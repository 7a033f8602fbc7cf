package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

// DocumentVersion stamps the structured snapshot document schema.
const DocumentVersion = "1.0"

// ContentInput bundles everything the content generator needs for one
// client week. GeneratedAt is injected so regeneration over identical
// inputs yields identical output apart from the timestamp fields.
type ContentInput struct {
	Client           core.Client
	Week             core.WeekBounds
	Metrics          *core.AggregatedMetrics
	Wow              *core.WowResult
	Kpi              *core.KpiResult
	Anomalies        []core.Anomaly
	Completeness     float64
	DaysWithData     int
	ExpectedDays     int
	AccountsIncluded int
	AccountsTotal    int
	Flags            []core.Flag
	GeneratedAt      time.Time
}

// GenerateContent produces the full deterministic content set for a
// snapshot: highlight, concern, and recommendation lists, the narrative
// summary, and the structured document. Pure; no randomness, no model
// calls.
func GenerateContent(in ContentInput) *core.GeneratedContent {
	highlights := GenerateHighlights(in)
	concerns := GenerateConcerns(in)
	recommendations := GenerateRecommendations(in)

	return &core.GeneratedContent{
		Highlights:      highlights,
		Concerns:        concerns,
		Recommendations: recommendations,
		SummaryText:     BuildSummaryText(in, highlights, concerns, recommendations),
		Document:        BuildSnapshotDocument(in, highlights, concerns, recommendations),
	}
}

// GenerateHighlights lists the week's wins: exceeded KPIs and strong
// positive movements.
func GenerateHighlights(in ContentInput) []string {
	var highlights []string

	for _, kind := range sortedKpiKinds(in.Kpi.Status) {
		entry := in.Kpi.Status[kind]
		if entry.Status != core.KpiExceeded || entry.Actual == nil {
			continue
		}
		achievement := 0.0
		if entry.AchievementPercent != nil {
			achievement = *entry.AchievementPercent
		}
		highlights = append(highlights, fmt.Sprintf("KPI %s exceeded: %s against a target of %s (%.0f%%)",
			kind, formatMetric(kind, *entry.Actual, in.Client.Currency),
			formatMetric(kind, entry.ProratedTarget, in.Client.Currency), achievement))
	}

	roasPct := in.Wow.Roas.Percent()
	if roasPct > 20 && in.Metrics.AvgRoas != nil && *in.Metrics.AvgRoas > 1 {
		prev := "n/a"
		if in.Wow.Roas.PreviousValue != nil {
			prev = fmt.Sprintf("%.2f", *in.Wow.Roas.PreviousValue)
		}
		highlights = append(highlights, fmt.Sprintf("ROAS improved %.1f%% week over week (%s to %.2f)",
			roasPct, prev, *in.Metrics.AvgRoas))
	}

	if convPct := in.Wow.Conversions.Percent(); convPct > 20 {
		highlights = append(highlights, fmt.Sprintf("Conversions up %.1f%% to %d",
			convPct, in.Metrics.TotalConversions))
	}

	if cpaPct := in.Wow.Cpa.Percent(); cpaPct < -15 && in.Metrics.AvgCpa != nil {
		highlights = append(highlights, fmt.Sprintf("Cost per conversion improved %.1f%% to %s",
			-cpaPct, formatMoney(*in.Metrics.AvgCpa, in.Client.Currency)))
	}

	return highlights
}

// GenerateConcerns lists the week's problems: every warning or critical
// anomaly, missing source days, and the absence of KPI definitions.
func GenerateConcerns(in ContentInput) []string {
	var concerns []string

	for _, a := range in.Anomalies {
		if a.Severity == core.SeverityWarning || a.Severity == core.SeverityCritical {
			concerns = append(concerns, a.Message)
		}
	}

	if in.Completeness < 1.0 {
		concerns = append(concerns, fmt.Sprintf("Source data missing for %d of %d days",
			in.ExpectedDays-in.DaysWithData, in.ExpectedDays))
	}

	for _, f := range in.Flags {
		if f == core.FlagNoKpisDefined {
			concerns = append(concerns, "No KPI targets defined for this period")
		}
	}

	return concerns
}

// GenerateRecommendations derives next actions from critical KPIs and
// efficiency movements.
func GenerateRecommendations(in ContentInput) []string {
	var recs []string

	for _, kind := range sortedKpiKinds(in.Kpi.Status) {
		if in.Kpi.Status[kind].Status == core.KpiCritical {
			recs = append(recs, fmt.Sprintf("Urgent review needed for %s: far below the prorated target", kind))
		}
	}

	if in.Wow.Cpa.Percent() > 30 {
		recs = append(recs, "Cost per conversion is rising sharply; review audiences and creatives")
	}

	if in.Wow.Spend.Percent() > 40 && in.Wow.Conversions.Percent() < 10 {
		recs = append(recs, "Spend is scaling much faster than conversions; review budget allocation efficiency")
	}

	return recs
}

// BuildSummaryText renders the plain-text narrative report indexed by
// the retrieval corpus. Every number it states is restated verbatim in
// the structured document.
func BuildSummaryText(in ContentInput, highlights, concerns, recommendations []string) string {
	var b strings.Builder
	rule := strings.Repeat("=", 56)
	cur := in.Client.Currency

	fmt.Fprintf(&b, "WEEKLY PERFORMANCE REPORT %s\n", in.Week.Label())
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Client: %s\n", in.Client.Name)
	fmt.Fprintf(&b, "Period: %s to %s\n\n",
		in.Week.Start.Format("2006-01-02"), in.Week.End.Format("2006-01-02"))

	fmt.Fprintf(&b, "PERFORMANCE\n")
	fmt.Fprintf(&b, "  Spend:       %s%s\n", formatMoney(in.Metrics.TotalSpend, cur), wowSuffix(in.Wow.Spend))
	fmt.Fprintf(&b, "  Impressions: %s%s\n", formatCount(in.Metrics.TotalImpressions), wowSuffix(in.Wow.Impressions))
	fmt.Fprintf(&b, "  Clicks:      %s%s\n", formatCount(in.Metrics.TotalClicks), wowSuffix(in.Wow.Clicks))
	fmt.Fprintf(&b, "  Conversions: %s%s\n", formatCount(in.Metrics.TotalConversions), wowSuffix(in.Wow.Conversions))
	fmt.Fprintf(&b, "  Revenue:     %s%s\n", formatMoney(in.Metrics.TotalRevenue, cur), wowSuffix(in.Wow.Revenue))

	fmt.Fprintf(&b, "\nEFFICIENCY\n")
	fmt.Fprintf(&b, "  CTR:  %s\n", formatRatePct(in.Metrics.AvgCtr))
	fmt.Fprintf(&b, "  CPC:  %s\n", formatNullableMoney(in.Metrics.AvgCpc, cur))
	fmt.Fprintf(&b, "  CPM:  %s\n", formatNullableMoney(in.Metrics.AvgCpm, cur))
	fmt.Fprintf(&b, "  CPA:  %s%s\n", formatNullableMoney(in.Metrics.AvgCpa, cur), wowSuffix(in.Wow.Cpa))
	fmt.Fprintf(&b, "  ROAS: %s%s\n", formatRateX(in.Metrics.AvgRoas), wowSuffix(in.Wow.Roas))
	fmt.Fprintf(&b, "  Trend: %s\n", in.Wow.Trend)

	if len(in.Kpi.Status) > 0 {
		fmt.Fprintf(&b, "\nKPI STATUS\n")
		for _, kind := range sortedKpiKinds(in.Kpi.Status) {
			entry := in.Kpi.Status[kind]
			achievement := "n/a"
			if entry.AchievementPercent != nil {
				achievement = fmt.Sprintf("%.0f%%", *entry.AchievementPercent)
			}
			fmt.Fprintf(&b, "  %-12s %s of prorated target %s [%s]\n",
				string(kind)+":", achievement,
				formatMetric(kind, entry.ProratedTarget, cur), entry.Status)
		}
	}

	writeSection(&b, "HIGHLIGHTS", "+", highlights)
	writeSection(&b, "CONCERNS", "!", concerns)
	writeSection(&b, "RECOMMENDATIONS", ">", recommendations)

	fmt.Fprintf(&b, "\nDATA QUALITY\n")
	fmt.Fprintf(&b, "  Completeness: %.0f%% (%d of %d days)\n",
		in.Completeness*100, in.DaysWithData, in.ExpectedDays)
	fmt.Fprintf(&b, "\nGenerated at %s\n", in.GeneratedAt.UTC().Format(time.RFC3339))

	return b.String()
}

func writeSection(b *strings.Builder, title, bullet string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s\n", title)
	for _, line := range lines {
		fmt.Fprintf(b, "  %s %s\n", bullet, line)
	}
}

// BuildSnapshotDocument assembles the structured projection of the
// snapshot from the same inputs the summary text was rendered from.
func BuildSnapshotDocument(in ContentInput, highlights, concerns, recommendations []string) *core.SnapshotDocument {
	cur := in.Client.Currency
	return &core.SnapshotDocument{
		Version:     DocumentVersion,
		GeneratedAt: in.GeneratedAt.UTC(),
		Week: core.DocumentWeek{
			Start:  in.Week.Start.Format("2006-01-02"),
			End:    in.Week.End.Format("2006-01-02"),
			Year:   in.Week.Year,
			Number: in.Week.WeekNumber,
		},
		Client: core.DocumentClient{
			ID:   in.Client.ID,
			Name: in.Client.Name,
			Slug: in.Client.Slug,
		},
		DataQuality: core.DataQuality{
			Completeness:     in.Completeness,
			DaysWithData:     in.DaysWithData,
			ExpectedDays:     in.ExpectedDays,
			AccountsIncluded: in.AccountsIncluded,
			AccountsTotal:    in.AccountsTotal,
			Flags:            in.Flags,
		},
		Performance: core.PerformanceBlock{
			Spend:       core.MoneyValue{Value: in.Metrics.TotalSpend, Currency: cur},
			Impressions: core.CountValue{Value: in.Metrics.TotalImpressions},
			Clicks:      core.CountValue{Value: in.Metrics.TotalClicks},
			Conversions: core.CountValue{Value: in.Metrics.TotalConversions},
			Leads:       core.CountValue{Value: in.Metrics.TotalLeads},
			Revenue:     core.MoneyValue{Value: in.Metrics.TotalRevenue, Currency: cur},
		},
		Calculated: core.CalculatedBlock{
			Ctr:  core.NullableValue{Value: in.Metrics.AvgCtr},
			Cpc:  core.NullableMoney{Value: in.Metrics.AvgCpc, Currency: cur},
			Cpm:  core.NullableMoney{Value: in.Metrics.AvgCpm, Currency: cur},
			Cpa:  core.NullableMoney{Value: in.Metrics.AvgCpa, Currency: cur},
			Roas: core.NullableValue{Value: in.Metrics.AvgRoas},
		},
		WeekOverWeek:    *in.Wow,
		KpiStatus:       in.Kpi.Status,
		Anomalies:       in.Anomalies,
		Highlights:      highlights,
		Concerns:        concerns,
		Recommendations: recommendations,
	}
}

func wowSuffix(c core.WowChange) string {
	if c.ChangePercent == nil {
		return ""
	}
	return fmt.Sprintf("  (%+.1f%% WoW)", *c.ChangePercent)
}

func formatMoney(v float64, currency string) string {
	return fmt.Sprintf("%.2f %s", v, currency)
}

func formatNullableMoney(v *float64, currency string) string {
	if v == nil {
		return "n/a"
	}
	return formatMoney(*v, currency)
}

func formatCount(v int64) string {
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(v)/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.1fK", float64(v)/1_000)
	default:
		return fmt.Sprintf("%d", v)
	}
}

func formatRatePct(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *v)
}

func formatRateX(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2fx", *v)
}

// formatMetric renders a value in the unit natural to its metric kind.
func formatMetric(kind core.MetricKind, v float64, currency string) string {
	switch kind {
	case core.MetricSpend, core.MetricRevenue, core.MetricCpa, core.MetricCpc, core.MetricCpm:
		return formatMoney(v, currency)
	case core.MetricCtr:
		return fmt.Sprintf("%.2f%%", v)
	case core.MetricRoas:
		return fmt.Sprintf("%.2fx", v)
	default:
		return formatCount(int64(v))
	}
}
