package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

// ListActiveClients returns every active client ordered by name.
func (s *SQLStore) ListActiveClients(ctx context.Context) ([]*core.Client, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, name, slug, status, currency
		FROM clients
		WHERE status = 'active'
		ORDER BY name`))
	if err != nil {
		return nil, fmt.Errorf("failed to query active clients: %w", err)
	}
	defer rows.Close()

	var clients []*core.Client
	for rows.Next() {
		var c core.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Status, &c.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan client row: %w", err)
		}
		clients = append(clients, &c)
	}
	return clients, rows.Err()
}

// GetClient returns one client by ID, or nil when it does not exist.
func (s *SQLStore) GetClient(ctx context.Context, id string) (*core.Client, error) {
	var c core.Client
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, name, slug, status, currency
		FROM clients
		WHERE id = ?`), id).
		Scan(&c.ID, &c.Name, &c.Slug, &c.Status, &c.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query client %s: %w", id, err)
	}
	return &c, nil
}

// ListActiveAccounts returns a client's active ad accounts.
func (s *SQLStore) ListActiveAccounts(ctx context.Context, clientID string) ([]*core.Account, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, client_id, platform_id, external_account_id, name, currency, status
		FROM accounts
		WHERE client_id = ? AND status = 'active'
		ORDER BY name`), clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts for client %s: %w", clientID, err)
	}
	defer rows.Close()

	var accounts []*core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.ClientID, &a.PlatformID, &a.ExternalAccountID,
			&a.Name, &a.Currency, &a.Status); err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		accounts = append(accounts, &a)
	}
	return accounts, rows.Err()
}

// ListDailyMetrics returns every metric row for the given accounts whose
// date falls in [start, end].
func (s *SQLStore) ListDailyMetrics(ctx context.Context, accountIDs []string, start, end time.Time) ([]core.DailyMetricRow, error) {
	if len(accountIDs) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(accountIDs)+2)
	for _, id := range accountIDs {
		args = append(args, id)
	}
	args = append(args, fmtDate(start), fmtDate(end))

	query := fmt.Sprintf(`
		SELECT id, account_id, date, campaign_id, campaign_name,
		       spend, impressions, clicks, reach, conversions,
		       leads, purchases, revenue, video_views, engagements
		FROM daily_metrics
		WHERE account_id IN (%s) AND date >= ? AND date <= ?
		ORDER BY date, account_id`, placeholders(len(accountIDs)))

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily metrics: %w", err)
	}
	defer rows.Close()

	var metrics []core.DailyMetricRow
	for rows.Next() {
		var (
			r       core.DailyMetricRow
			rawDate string
		)
		if err := rows.Scan(&r.ID, &r.AccountID, &rawDate, &r.CampaignID, &r.CampaignName,
			&r.Spend, &r.Impressions, &r.Clicks, &r.Reach, &r.Conversions,
			&r.Leads, &r.Purchases, &r.Revenue, &r.VideoViews, &r.Engagements); err != nil {
			return nil, fmt.Errorf("failed to scan metric row: %w", err)
		}
		if r.Date, err = parseDate(rawDate); err != nil {
			return nil, fmt.Errorf("failed to parse metric date %q: %w", rawDate, err)
		}
		metrics = append(metrics, r)
	}
	return metrics, rows.Err()
}

// ListActiveKpis returns the client's KPI definitions whose period fully
// covers [periodStart, periodEnd].
func (s *SQLStore) ListActiveKpis(ctx context.Context, clientID string, periodStart, periodEnd time.Time) ([]*core.KpiDefinition, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, client_id, metric_name, target_value, target_unit,
		       period_start, period_end, warning_threshold, critical_threshold
		FROM kpis
		WHERE client_id = ? AND period_start <= ? AND period_end >= ?
		ORDER BY period_start, id`), clientID, fmtDate(periodStart), fmtDate(periodEnd))
	if err != nil {
		return nil, fmt.Errorf("failed to query KPIs for client %s: %w", clientID, err)
	}
	defer rows.Close()

	var kpis []*core.KpiDefinition
	for rows.Next() {
		var (
			k                core.KpiDefinition
			rawStart, rawEnd string
		)
		if err := rows.Scan(&k.ID, &k.ClientID, &k.MetricName, &k.TargetValue, &k.TargetUnit,
			&rawStart, &rawEnd, &k.WarningThreshold, &k.CriticalThreshold); err != nil {
			return nil, fmt.Errorf("failed to scan KPI row: %w", err)
		}
		if k.PeriodStart, err = parseDate(rawStart); err != nil {
			return nil, fmt.Errorf("failed to parse KPI period start %q: %w", rawStart, err)
		}
		if k.PeriodEnd, err = parseDate(rawEnd); err != nil {
			return nil, fmt.Errorf("failed to parse KPI period end %q: %w", rawEnd, err)
		}
		kpis = append(kpis, &k)
	}
	return kpis, rows.Err()
}
