package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

// FindSnapshotID returns the snapshot row ID for (clientID, weekStart),
// or "" when none exists.
func (s *SQLStore) FindSnapshotID(ctx context.Context, clientID string, weekStart time.Time) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id FROM weekly_snapshots
		WHERE client_id = ? AND week_start = ?`), clientID, fmtDate(weekStart)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up snapshot for client %s: %w", clientID, err)
	}
	return id, nil
}

// InsertSnapshot writes a new snapshot row.
func (s *SQLStore) InsertSnapshot(ctx context.Context, rec *core.SnapshotRecord) error {
	cols, err := marshalSnapshotJSON(rec)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO weekly_snapshots (
			id, client_id, week_start, week_end, year, week_number,
			total_spend, total_impressions, total_clicks, total_conversions,
			total_leads, total_revenue,
			avg_ctr, avg_cpc, avg_cpm, avg_cpa, avg_roas,
			spend_wow_change, conv_wow_change, roas_wow_change,
			kpi_spend_status, kpi_conv_status, kpi_roas_status,
			summary_text, highlights, concerns, recommendations,
			snapshot_json, generated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		rec.ID, rec.ClientID, fmtDate(rec.WeekStart), fmtDate(rec.WeekEnd), rec.Year, rec.WeekNumber,
		rec.TotalSpend, rec.TotalImpressions, rec.TotalClicks, rec.TotalConversions,
		rec.TotalLeads, rec.TotalRevenue,
		nullFloat(rec.AvgCtr), nullFloat(rec.AvgCpc), nullFloat(rec.AvgCpm),
		nullFloat(rec.AvgCpa), nullFloat(rec.AvgRoas),
		nullFloat(rec.SpendWowChange), nullFloat(rec.ConvWowChange), nullFloat(rec.RoasWowChange),
		nullString(rec.KpiSpendStatus), nullString(rec.KpiConvStatus), nullString(rec.KpiRoasStatus),
		rec.SummaryText, cols.highlights, cols.concerns, cols.recommendations,
		cols.document, fmtTime(rec.GeneratedAt))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot for client %s: %w", rec.ClientID, err)
	}
	return nil
}

// UpdateSnapshot overwrites an existing snapshot row in full. Partial
// updates are never issued; a regenerated snapshot replaces every
// column.
func (s *SQLStore) UpdateSnapshot(ctx context.Context, rec *core.SnapshotRecord) error {
	cols, err := marshalSnapshotJSON(rec)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE weekly_snapshots SET
			week_end = ?, year = ?, week_number = ?,
			total_spend = ?, total_impressions = ?, total_clicks = ?, total_conversions = ?,
			total_leads = ?, total_revenue = ?,
			avg_ctr = ?, avg_cpc = ?, avg_cpm = ?, avg_cpa = ?, avg_roas = ?,
			spend_wow_change = ?, conv_wow_change = ?, roas_wow_change = ?,
			kpi_spend_status = ?, kpi_conv_status = ?, kpi_roas_status = ?,
			summary_text = ?, highlights = ?, concerns = ?, recommendations = ?,
			snapshot_json = ?, generated_at = ?
		WHERE id = ?`),
		fmtDate(rec.WeekEnd), rec.Year, rec.WeekNumber,
		rec.TotalSpend, rec.TotalImpressions, rec.TotalClicks, rec.TotalConversions,
		rec.TotalLeads, rec.TotalRevenue,
		nullFloat(rec.AvgCtr), nullFloat(rec.AvgCpc), nullFloat(rec.AvgCpm),
		nullFloat(rec.AvgCpa), nullFloat(rec.AvgRoas),
		nullFloat(rec.SpendWowChange), nullFloat(rec.ConvWowChange), nullFloat(rec.RoasWowChange),
		nullString(rec.KpiSpendStatus), nullString(rec.KpiConvStatus), nullString(rec.KpiRoasStatus),
		rec.SummaryText, cols.highlights, cols.concerns, cols.recommendations,
		cols.document, fmtTime(rec.GeneratedAt),
		rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update snapshot %s: %w", rec.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("snapshot %s does not exist", rec.ID)
	}
	return nil
}

// GetSnapshot returns a persisted snapshot row by ID, or nil when it
// does not exist.
func (s *SQLStore) GetSnapshot(ctx context.Context, id string) (*core.SnapshotRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, client_id, week_start, week_end, year, week_number,
		       total_spend, total_impressions, total_clicks, total_conversions,
		       total_leads, total_revenue,
		       avg_ctr, avg_cpc, avg_cpm, avg_cpa, avg_roas,
		       spend_wow_change, conv_wow_change, roas_wow_change,
		       kpi_spend_status, kpi_conv_status, kpi_roas_status,
		       summary_text, highlights, concerns, recommendations,
		       snapshot_json, generated_at
		FROM weekly_snapshots
		WHERE id = ?`), id)

	var (
		rec                                    core.SnapshotRecord
		rawWeekStart, rawWeekEnd, rawGenerated string
		rawHighlights, rawConcerns, rawRecs    string
		rawDocument                            string
		ctr, cpc, cpm, cpa, roas               sql.NullFloat64
		spendWow, convWow, roasWow             sql.NullFloat64
		kpiSpend, kpiConv, kpiRoas             sql.NullString
	)
	err := row.Scan(&rec.ID, &rec.ClientID, &rawWeekStart, &rawWeekEnd, &rec.Year, &rec.WeekNumber,
		&rec.TotalSpend, &rec.TotalImpressions, &rec.TotalClicks, &rec.TotalConversions,
		&rec.TotalLeads, &rec.TotalRevenue,
		&ctr, &cpc, &cpm, &cpa, &roas,
		&spendWow, &convWow, &roasWow,
		&kpiSpend, &kpiConv, &kpiRoas,
		&rec.SummaryText, &rawHighlights, &rawConcerns, &rawRecs,
		&rawDocument, &rawGenerated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot %s: %w", id, err)
	}

	rec.AvgCtr, rec.AvgCpc, rec.AvgCpm = floatPtr(ctr), floatPtr(cpc), floatPtr(cpm)
	rec.AvgCpa, rec.AvgRoas = floatPtr(cpa), floatPtr(roas)
	rec.SpendWowChange, rec.ConvWowChange, rec.RoasWowChange = floatPtr(spendWow), floatPtr(convWow), floatPtr(roasWow)
	rec.KpiSpendStatus, rec.KpiConvStatus, rec.KpiRoasStatus = stringPtr(kpiSpend), stringPtr(kpiConv), stringPtr(kpiRoas)

	if rec.WeekStart, err = parseDate(rawWeekStart); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot week start %q: %w", rawWeekStart, err)
	}
	if rec.WeekEnd, err = parseDate(rawWeekEnd); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot week end %q: %w", rawWeekEnd, err)
	}
	if rec.GeneratedAt, err = parseTime(rawGenerated); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot timestamp %q: %w", rawGenerated, err)
	}
	if err := json.Unmarshal([]byte(rawHighlights), &rec.Highlights); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot highlights: %w", err)
	}
	if err := json.Unmarshal([]byte(rawConcerns), &rec.Concerns); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot concerns: %w", err)
	}
	if err := json.Unmarshal([]byte(rawRecs), &rec.Recommendations); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot recommendations: %w", err)
	}
	if err := json.Unmarshal([]byte(rawDocument), &rec.Document); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot document: %w", err)
	}
	return &rec, nil
}

type snapshotJSONColumns struct {
	highlights      string
	concerns        string
	recommendations string
	document        string
}

func marshalSnapshotJSON(rec *core.SnapshotRecord) (snapshotJSONColumns, error) {
	var cols snapshotJSONColumns

	for _, f := range []struct {
		dst  *string
		src  any
		name string
	}{
		{&cols.highlights, emptyIfNil(rec.Highlights), "highlights"},
		{&cols.concerns, emptyIfNil(rec.Concerns), "concerns"},
		{&cols.recommendations, emptyIfNil(rec.Recommendations), "recommendations"},
		{&cols.document, rec.Document, "document"},
	} {
		raw, err := json.Marshal(f.src)
		if err != nil {
			return cols, fmt.Errorf("failed to encode snapshot %s: %w", f.name, err)
		}
		*f.dst = string(raw)
	}
	return cols, nil
}

// emptyIfNil keeps nil string slices serialized as [] rather than null.
func emptyIfNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
