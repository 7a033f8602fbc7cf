package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

// ExpectedDays is the number of calendar days a full reporting week has.
// Completeness is always measured against the full week, including weeks
// still in progress.
const ExpectedDays = 7

// Completeness below this ratio raises the insufficient-data flag.
const insufficientDataThreshold = 0.5

// ExtractClientData pulls the raw material for one client's snapshot:
// active accounts plus daily metric rows for the target week and the
// comparison week. expectedDays is the denominator for completeness and
// is supplied by the caller. Missing accounts or sparse data raise
// flags; they never abort the stage.
func ExtractClientData(ctx context.Context, src core.MetricsSource, clientID string, week core.WeekBounds, expectedDays int) (*core.ExtractedData, error) {
	if expectedDays <= 0 {
		expectedDays = ExpectedDays
	}
	data := &core.ExtractedData{
		ClientID:     clientID,
		ExpectedDays: expectedDays,
	}

	accounts, err := src.ListActiveAccounts(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts for client %s: %w", clientID, err)
	}
	data.Accounts = accounts

	if len(accounts) == 0 {
		data.Flags = append(data.Flags, core.FlagNoActiveAccounts)
		return data, nil
	}

	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.ID
	}

	current, err := src.ListDailyMetrics(ctx, ids, week.Start, week.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load current week metrics for client %s: %w", clientID, err)
	}
	previous, err := src.ListDailyMetrics(ctx, ids, week.PrevStart, week.PrevEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous week metrics for client %s: %w", clientID, err)
	}

	data.CurrentWeek = current
	data.PreviousWeek = previous
	data.DaysWithData = countDistinctDays(current)
	data.Completeness = clamp01(float64(data.DaysWithData) / float64(expectedDays))

	if data.Completeness < insufficientDataThreshold {
		data.Flags = append(data.Flags, core.FlagInsufficientData)
	}
	if len(previous) == 0 {
		data.Flags = append(data.Flags, core.FlagNoPreviousData)
	}

	return data, nil
}

// countDistinctDays counts calendar days covered by at least one metric
// row. Multiple accounts or campaigns reporting the same day count once.
func countDistinctDays(rows []core.DailyMetricRow) int {
	seen := make(map[string]struct{}, ExpectedDays)
	for _, r := range rows {
		seen[r.Date.Format("2006-01-02")] = struct{}{}
	}
	return len(seen)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// inclusiveDays counts whole calendar days in [start, end], both ends
// included. Inputs are expected at UTC midnight.
func inclusiveDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}
