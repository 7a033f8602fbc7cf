package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

func date(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s := NewSQLiteStore(nil)
	require.NoError(t, s.Open(":memory:"))
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())
	return s
}

func seedClient(t *testing.T, s *SQLStore, id, name, status string) {
	t.Helper()
	require.NoError(t, s.UpsertClient(context.Background(), &core.Client{
		ID: id, Name: name, Slug: name, Status: status, Currency: "USD",
	}))
}

func TestClientQueries(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	seedClient(t, s, "c1", "beta", "active")
	seedClient(t, s, "c2", "alpha", "active")
	seedClient(t, s, "c3", "gamma", "archived")

	t.Run("active clients ordered by name", func(t *testing.T) {
		clients, err := s.ListActiveClients(ctx)
		require.NoError(t, err)
		require.Len(t, clients, 2)
		assert.Equal(t, "alpha", clients[0].Name)
		assert.Equal(t, "beta", clients[1].Name)
	})

	t.Run("get existing client", func(t *testing.T) {
		c, err := s.GetClient(ctx, "c3")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "archived", c.Status)
	})

	t.Run("get missing client returns nil", func(t *testing.T) {
		c, err := s.GetClient(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("upsert overwrites", func(t *testing.T) {
		seedClient(t, s, "c1", "beta-renamed", "active")
		c, err := s.GetClient(ctx, "c1")
		require.NoError(t, err)
		assert.Equal(t, "beta-renamed", c.Name)
	})
}

func TestAccountAndMetricQueries(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedClient(t, s, "c1", "acme", "active")

	require.NoError(t, s.UpsertAccount(ctx, &core.Account{ID: "a1", ClientID: "c1", Name: "meta", Status: "active"}))
	require.NoError(t, s.UpsertAccount(ctx, &core.Account{ID: "a2", ClientID: "c1", Name: "google", Status: "paused"}))

	accounts, err := s.ListActiveAccounts(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "a1", accounts[0].ID)

	rows := []core.DailyMetricRow{
		{AccountID: "a1", Date: date("2024-01-08"), Spend: 100, Impressions: 1000, Clicks: 50, Conversions: 5, Revenue: 400},
		{AccountID: "a1", Date: date("2024-01-09"), Spend: 120, Impressions: 1100, Clicks: 60, Conversions: 6, Revenue: 500},
		{AccountID: "a1", Date: date("2024-01-15"), Spend: 90},
	}
	require.NoError(t, s.InsertDailyMetrics(ctx, rows))

	t.Run("range filter is inclusive", func(t *testing.T) {
		got, err := s.ListDailyMetrics(ctx, []string{"a1"}, date("2024-01-08"), date("2024-01-14"))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, date("2024-01-08"), got[0].Date)
		assert.Equal(t, 100.0, got[0].Spend)
		assert.Equal(t, int64(1000), got[0].Impressions)
	})

	t.Run("empty account list returns nothing", func(t *testing.T) {
		got, err := s.ListDailyMetrics(ctx, nil, date("2024-01-08"), date("2024-01-14"))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestKpiQueries(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedClient(t, s, "c1", "acme", "active")

	monthly := &core.KpiDefinition{
		ID: "k1", ClientID: "c1", MetricName: "conversions", TargetValue: 310,
		PeriodStart: date("2024-01-01"), PeriodEnd: date("2024-01-31"),
		WarningThreshold: 80, CriticalThreshold: 50,
	}
	stale := &core.KpiDefinition{
		ID: "k2", ClientID: "c1", MetricName: "spend", TargetValue: 100,
		PeriodStart: date("2023-12-01"), PeriodEnd: date("2023-12-31"),
	}
	require.NoError(t, s.UpsertKpi(ctx, monthly))
	require.NoError(t, s.UpsertKpi(ctx, stale))

	got, err := s.ListActiveKpis(ctx, "c1", date("2024-01-08"), date("2024-01-14"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "k1", got[0].ID)
	assert.Equal(t, "conversions", got[0].MetricName)
	assert.Equal(t, date("2024-01-01"), got[0].PeriodStart)
	assert.Equal(t, 80.0, got[0].WarningThreshold)
}

func snapshotFixture(id, clientID string, weekStart time.Time) *core.SnapshotRecord {
	return &core.SnapshotRecord{
		ID:               id,
		ClientID:         clientID,
		WeekStart:        weekStart,
		WeekEnd:          weekStart.AddDate(0, 0, 6),
		Year:             2024,
		WeekNumber:       2,
		TotalSpend:       700,
		TotalImpressions: 70000,
		TotalClicks:      1400,
		TotalConversions: 70,
		TotalRevenue:     3500,
		AvgRoas:          core.Float(5),
		SpendWowChange:   core.Float(7.69),
		KpiRoasStatus:    strPtr("on_track"),
		SummaryText:      "summary",
		Highlights:       []string{"good week"},
		Concerns:         []string{},
		Recommendations:  []string{},
		Document: &core.SnapshotDocument{
			Version: "1.0",
			Week:    core.DocumentWeek{Start: "2024-01-08", End: "2024-01-14", Year: 2024, Number: 2},
		},
		GeneratedAt: time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC),
	}
}

func strPtr(s string) *string { return &s }

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	seedClient(t, s, "c1", "acme", "active")
	weekStart := date("2024-01-08")

	rec := snapshotFixture("snap-1", "c1", weekStart)
	require.NoError(t, s.InsertSnapshot(ctx, rec))

	t.Run("find by client and week", func(t *testing.T) {
		id, err := s.FindSnapshotID(ctx, "c1", weekStart)
		require.NoError(t, err)
		assert.Equal(t, "snap-1", id)

		id, err = s.FindSnapshotID(ctx, "c1", date("2024-01-15"))
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("read back full row", func(t *testing.T) {
		got, err := s.GetSnapshot(ctx, "snap-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, weekStart, got.WeekStart)
		assert.Equal(t, 700.0, got.TotalSpend)
		require.NotNil(t, got.AvgRoas)
		assert.Equal(t, 5.0, *got.AvgRoas)
		assert.Nil(t, got.AvgCpa)
		require.NotNil(t, got.KpiRoasStatus)
		assert.Equal(t, "on_track", *got.KpiRoasStatus)
		assert.Nil(t, got.KpiSpendStatus)
		assert.Equal(t, []string{"good week"}, got.Highlights)
		assert.Empty(t, got.Concerns)
		require.NotNil(t, got.Document)
		assert.Equal(t, 2, got.Document.Week.Number)
		assert.Equal(t, rec.GeneratedAt, got.GeneratedAt)
	})

	t.Run("duplicate insert violates uniqueness", func(t *testing.T) {
		dup := snapshotFixture("snap-dup", "c1", weekStart)
		assert.Error(t, s.InsertSnapshot(ctx, dup))
	})

	t.Run("update overwrites in place", func(t *testing.T) {
		updated := snapshotFixture("snap-1", "c1", weekStart)
		updated.TotalSpend = 900
		updated.Highlights = []string{"revised"}
		require.NoError(t, s.UpdateSnapshot(ctx, updated))

		got, err := s.GetSnapshot(ctx, "snap-1")
		require.NoError(t, err)
		assert.Equal(t, 900.0, got.TotalSpend)
		assert.Equal(t, []string{"revised"}, got.Highlights)
	})

	t.Run("update of missing row errors", func(t *testing.T) {
		ghost := snapshotFixture("ghost", "c1", date("2024-02-05"))
		assert.Error(t, s.UpdateSnapshot(ctx, ghost))
	})
}

func TestRagDocumentRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	doc := &core.RagDocument{
		ID:           "rag-1",
		SourceType:   core.RagSourceTypeWeeklySnapshot,
		SourceID:     "snap-1",
		ClientID:     "c1",
		Title:        "Weekly performance report 2024-W02 - acme",
		Content:      "summary",
		ContentHash:  "hash-1",
		DocumentDate: date("2024-01-14"),
		PeriodStart:  date("2024-01-08"),
		PeriodEnd:    date("2024-01-14"),
		Tags:         []string{"weekly", "performance", "2024", "W02"},
		IsActive:     true,
	}
	require.NoError(t, s.InsertRagDocument(ctx, doc))

	t.Run("find by source", func(t *testing.T) {
		ref, err := s.FindRagDocument(ctx, core.RagSourceTypeWeeklySnapshot, "snap-1")
		require.NoError(t, err)
		require.NotNil(t, ref)
		assert.Equal(t, "rag-1", ref.ID)
		assert.Equal(t, "hash-1", ref.ContentHash)
	})

	t.Run("missing source returns nil", func(t *testing.T) {
		ref, err := s.FindRagDocument(ctx, core.RagSourceTypeWeeklySnapshot, "other")
		require.NoError(t, err)
		assert.Nil(t, ref)
	})

	t.Run("update rewrites content and hash", func(t *testing.T) {
		require.NoError(t, s.UpdateRagDocument(ctx, "rag-1", "new summary", "hash-2"))
		ref, err := s.FindRagDocument(ctx, core.RagSourceTypeWeeklySnapshot, "snap-1")
		require.NoError(t, err)
		assert.Equal(t, "hash-2", ref.ContentHash)
	})

	t.Run("update of missing document errors", func(t *testing.T) {
		assert.Error(t, s.UpdateRagDocument(ctx, "ghost", "x", "y"))
	})

	t.Run("same source key is unique", func(t *testing.T) {
		dup := *doc
		dup.ID = "rag-2"
		assert.Error(t, s.InsertRagDocument(ctx, &dup))
	})
}

func TestAppendAudit(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	entry := &core.AuditLogEntry{
		TableName: "weekly_snapshots",
		RecordID:  "snap-1",
		Action:    core.AuditInsert,
		ClientID:  "c1",
		UserID:    "system",
		NewValues: map[string]any{"event": "SNAPSHOT_CREATED"},
	}
	require.NoError(t, s.AppendAudit(ctx, entry))

	t.Run("nil value maps stored as null", func(t *testing.T) {
		require.NoError(t, s.AppendAudit(ctx, &core.AuditLogEntry{
			TableName: "batch_runs",
			Action:    core.AuditInsert,
		}))
	})

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM audit_log").Scan(&count))
	assert.Equal(t, 2, count)

	var newValues string
	require.NoError(t, s.db.QueryRow(
		"SELECT new_values FROM audit_log WHERE record_id = 'snap-1'").Scan(&newValues))
	assert.JSONEq(t, `{"event":"SNAPSHOT_CREATED"}`, newValues)
}
