package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Javert5555/gitlab-monitor-sub000/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "report.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testReport(id string, project int, at time.Time) *model.ScanReport {
	return &model.ScanReport{
		ID:        id,
		ProjectID: project,
		CheckResults: []model.CheckResult{
			{ID: "CICD-SEC-1", Name: "Insufficient Flow Control Mechanisms", Findings: []model.Finding{
				{Item: "main/master protection", Status: model.StatusFail, Severity: model.SeverityHigh, Details: "main is not protected"},
			}},
		},
		ScannerFindings: []model.Finding{},
		GeneratedAt:     at,
	}
}

func TestSaveAndGet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r := testReport("a", 42, at)
	require.NoError(t, db.Save(ctx, r, model.ScanSummary{TotalRisks: 1, High: 1}))

	got, err := db.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, r.ProjectID, got.ProjectID)
	assert.True(t, at.Equal(got.GeneratedAt))
	assert.Equal(t, r.CheckResults, got.CheckResults)

	_, err = db.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNoReport)
}

func TestHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.Save(ctx, testReport("old", 42, base), model.ScanSummary{TotalRisks: 3}))
	require.NoError(t, db.Save(ctx, testReport("new", 42, base.Add(time.Hour)), model.ScanSummary{TotalRisks: 1, High: 1}))
	require.NoError(t, db.Save(ctx, testReport("other", 7, base.Add(2*time.Hour)), model.ScanSummary{}))

	entries, err := db.History(ctx, 42, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "new", entries[0].ID)
	assert.Equal(t, model.ScanSummary{TotalRisks: 1, High: 1}, entries[0].Summary)
	assert.Equal(t, "old", entries[1].ID)

	entries, err = db.History(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "other", entries[0].ID)
}

func TestSaveNil(t *testing.T) {
	db := openTestDB(t)
	assert.Error(t, db.Save(context.Background(), nil, model.ScanSummary{}))
}
