package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodestar-data/tableau-harvester/pkg/apperrors"
	"github.com/lodestar-data/tableau-harvester/pkg/models"
	"github.com/lodestar-data/tableau-harvester/pkg/testhelpers"
)

func TestRunRepositoryLifecycle(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	testhelpers.TruncateRuns(t, testDB.DB)

	repo := NewRunRepository(testDB.DB)
	ctx := context.Background()

	run := &models.HarvestRun{}
	require.NoError(t, repo.Create(ctx, run))
	require.NotEqual(t, run.ID.String(), "00000000-0000-0000-0000-000000000000")
	require.False(t, run.StartedAt.IsZero())

	run.RecordsEmitted = 42
	run.Warnings = map[string][]string{"tableau-metadata": {"partial page"}}
	run.Succeeded = true
	require.NoError(t, repo.Complete(ctx, run))

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)
	assert.Equal(t, 42, latest.RecordsEmitted)
	assert.Equal(t, []string{"partial page"}, latest.Warnings["tableau-metadata"])
	assert.True(t, latest.Succeeded)
	require.NotNil(t, latest.FinishedAt)
}

func TestRunRepositoryLatestEmpty(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	testhelpers.TruncateRuns(t, testDB.DB)

	repo := NewRunRepository(testDB.DB)

	_, err := repo.Latest(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRunRepositoryGetRecentOrdersNewestFirst(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	testhelpers.TruncateRuns(t, testDB.DB)

	repo := NewRunRepository(testDB.DB)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	var ids []string
	for i := 0; i < 3; i++ {
		run := &models.HarvestRun{StartedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.Create(ctx, run))
		ids = append(ids, run.ID.String())
	}

	runs, err := repo.GetRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID.String())
	assert.Equal(t, ids[1], runs[1].ID.String())
}

func TestRunRepositoryCompleteUnknownRun(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	testhelpers.TruncateRuns(t, testDB.DB)

	repo := NewRunRepository(testDB.DB)

	run := &models.HarvestRun{ID: uuid.New()}
	err := repo.Complete(context.Background(), run)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
