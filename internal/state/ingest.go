package state

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

// UpsertClient inserts or replaces a client row by ID.
func (s *SQLStore) UpsertClient(ctx context.Context, c *core.Client) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO clients (id, name, slug, status, currency)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			slug = excluded.slug,
			status = excluded.status,
			currency = excluded.currency`),
		c.ID, c.Name, c.Slug, c.Status, c.Currency)
	if err != nil {
		return fmt.Errorf("failed to upsert client %s: %w", c.ID, err)
	}
	return nil
}

// UpsertAccount inserts or replaces an account row by ID.
func (s *SQLStore) UpsertAccount(ctx context.Context, a *core.Account) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO accounts (id, client_id, platform_id, external_account_id, name, currency, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			client_id = excluded.client_id,
			platform_id = excluded.platform_id,
			external_account_id = excluded.external_account_id,
			name = excluded.name,
			currency = excluded.currency,
			status = excluded.status`),
		a.ID, a.ClientID, a.PlatformID, a.ExternalAccountID, a.Name, a.Currency, a.Status)
	if err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", a.ID, err)
	}
	return nil
}

// InsertDailyMetrics writes a batch of metric rows in one transaction.
// Rows without an ID get one assigned.
func (s *SQLStore) InsertDailyMetrics(ctx context.Context, rows []core.DailyMetricRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin metrics transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
		INSERT INTO daily_metrics (
			id, account_id, date, campaign_id, campaign_name,
			spend, impressions, clicks, reach, conversions,
			leads, purchases, revenue, video_views, engagements
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("failed to prepare metrics insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := stmt.ExecContext(ctx, id, r.AccountID, fmtDate(r.Date), r.CampaignID, r.CampaignName,
			r.Spend, r.Impressions, r.Clicks, r.Reach, r.Conversions,
			r.Leads, r.Purchases, r.Revenue, r.VideoViews, r.Engagements); err != nil {
			return fmt.Errorf("failed to insert metric row for account %s: %w", r.AccountID, err)
		}
	}

	return tx.Commit()
}

// UpsertKpi inserts or replaces a KPI definition by ID.
func (s *SQLStore) UpsertKpi(ctx context.Context, k *core.KpiDefinition) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO kpis (
			id, client_id, metric_name, target_value, target_unit,
			period_start, period_end, warning_threshold, critical_threshold
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			client_id = excluded.client_id,
			metric_name = excluded.metric_name,
			target_value = excluded.target_value,
			target_unit = excluded.target_unit,
			period_start = excluded.period_start,
			period_end = excluded.period_end,
			warning_threshold = excluded.warning_threshold,
			critical_threshold = excluded.critical_threshold`),
		k.ID, k.ClientID, k.MetricName, k.TargetValue, k.TargetUnit,
		fmtDate(k.PeriodStart), fmtDate(k.PeriodEnd), k.WarningThreshold, k.CriticalThreshold)
	if err != nil {
		return fmt.Errorf("failed to upsert KPI %s: %w", k.ID, err)
	}
	return nil
}
