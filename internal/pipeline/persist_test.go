package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adpulse-labs/adpulse/pkg/core"
)

func testBackoff() retry.Backoff {
	return retry.WithMaxRetries(persistMaxRetries, retry.NewConstant(time.Millisecond))
}

func snapshotRecordFixture(t *testing.T, action core.WriteAction, existingID string) (*core.SnapshotRecord, core.ClientToProcess) {
	t.Helper()
	client := core.ClientToProcess{
		Client:             core.Client{ID: "c1", Name: "Acme", Currency: "USD"},
		Action:             action,
		ExistingSnapshotID: existingID,
	}
	in := contentInput()
	in.Client = client.Client
	content := GenerateContent(in)
	rec := BuildSnapshotRecord(client, in.Week, in.Metrics, in.Wow, in.Kpi, content, in.GeneratedAt)
	return rec, client
}

func TestBuildSnapshotRecord(t *testing.T) {
	rec, _ := snapshotRecordFixture(t, core.ActionInsert, "")

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "c1", rec.ClientID)
	assert.Equal(t, 2024, rec.Year)
	assert.Equal(t, 2, rec.WeekNumber)
	assert.Equal(t, 700.0, rec.TotalSpend)
	require.NotNil(t, rec.AvgRoas)
	assert.InDelta(t, 5.0, *rec.AvgRoas, 1e-9)
	require.NotNil(t, rec.SpendWowChange)
	assert.InDelta(t, 7.69, *rec.SpendWowChange, 1e-9)
	assert.Nil(t, rec.KpiSpendStatus) // no KPI defined for spend
	require.NotNil(t, rec.Document)
	assert.NotEmpty(t, rec.SummaryText)
}

func TestBuildSnapshotRecordReusesExistingID(t *testing.T) {
	rec, _ := snapshotRecordFixture(t, core.ActionUpdate, "snap-7")
	assert.Equal(t, "snap-7", rec.ID)
}

func TestBuildSnapshotRecordKpiStatusColumns(t *testing.T) {
	client := core.ClientToProcess{Client: core.Client{ID: "c1", Currency: "USD"}, Action: core.ActionInsert}
	in := contentInput()
	in.Kpi.Status[core.MetricSpend] = core.KpiStatusEntry{Status: core.KpiOnTrack}
	in.Kpi.Status[core.MetricRoas] = core.KpiStatusEntry{Status: core.KpiCritical}
	content := GenerateContent(in)

	rec := BuildSnapshotRecord(client, in.Week, in.Metrics, in.Wow, in.Kpi, content, in.GeneratedAt)
	require.NotNil(t, rec.KpiSpendStatus)
	assert.Equal(t, "on_track", *rec.KpiSpendStatus)
	require.NotNil(t, rec.KpiRoasStatus)
	assert.Equal(t, "critical", *rec.KpiRoasStatus)
	assert.Nil(t, rec.KpiConvStatus)
}

func TestPersistSnapshotInsert(t *testing.T) {
	store := &fakeSnapshotStore{}
	rec, _ := snapshotRecordFixture(t, core.ActionInsert, "")

	got := persistSnapshot(context.Background(), store, rec, core.ActionInsert, testBackoff())
	require.True(t, got.Success)
	assert.Equal(t, rec.ID, got.SnapshotID)
	assert.Equal(t, core.ActionInsert, got.Action)
	assert.Len(t, store.inserted, 1)
	assert.Empty(t, store.updated)
}

func TestPersistSnapshotUpdate(t *testing.T) {
	store := &fakeSnapshotStore{}
	rec, _ := snapshotRecordFixture(t, core.ActionUpdate, "snap-7")

	got := persistSnapshot(context.Background(), store, rec, core.ActionUpdate, testBackoff())
	require.True(t, got.Success)
	assert.Equal(t, "snap-7", got.SnapshotID)
	assert.Len(t, store.updated, 1)
	assert.Empty(t, store.inserted)
}

func TestPersistSnapshotRetriesTransientFailures(t *testing.T) {
	store := &fakeSnapshotStore{failures: 2}
	rec, _ := snapshotRecordFixture(t, core.ActionInsert, "")

	got := persistSnapshot(context.Background(), store, rec, core.ActionInsert, testBackoff())
	require.True(t, got.Success)
	assert.Len(t, store.inserted, 1)
}

func TestPersistSnapshotGivesUpAfterMaxRetries(t *testing.T) {
	store := &fakeSnapshotStore{failures: 10}
	rec, _ := snapshotRecordFixture(t, core.ActionInsert, "")

	got := persistSnapshot(context.Background(), store, rec, core.ActionInsert, testBackoff())
	require.False(t, got.Success)
	require.Error(t, got.Err)
	assert.Empty(t, store.inserted)
	// initial attempt plus three retries
	assert.Equal(t, 10-4, store.failures)
}
