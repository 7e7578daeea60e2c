package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pixperk/peterson/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReport(startedAt time.Time) *types.Report {
	return &types.Report{
		RunID:        uuid.NewString(),
		StartedAt:    startedAt,
		Target:       1000,
		Counter:      2000,
		Expected:     2000,
		Acquisitions: [2]int{1000, 1000},
		Yields:       [2]int{17, 23},
		Elapsed:      42 * time.Millisecond,
	}
}

func TestNewBoltDBStorage(t *testing.T) {
	store, err := NewBoltDBStorage(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	reports, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestSaveAndGet(t *testing.T) {
	store, err := NewBoltDBStorage(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	report := newReport(time.Now().Round(0).UTC())
	require.NoError(t, store.Save(report))

	got, err := store.Get(report.RunID)
	require.NoError(t, err)

	assert.Equal(t, report.RunID, got.RunID)
	assert.Equal(t, report.Counter, got.Counter)
	assert.Equal(t, report.Acquisitions, got.Acquisitions)
	assert.Equal(t, report.Yields, got.Yields)
	assert.Equal(t, report.Elapsed, got.Elapsed)
	assert.True(t, report.StartedAt.Equal(got.StartedAt))
	assert.True(t, got.Passed())
}

func TestGetMissingRun(t *testing.T) {
	store, err := NewBoltDBStorage(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Get("no-such-run")
	assert.ErrorIs(t, err, types.ErrRunNotFound)
}

func TestSaveRequiresRunID(t *testing.T) {
	store, err := NewBoltDBStorage(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	err = store.Save(&types.Report{})
	assert.Error(t, err)
}

// TestListOrdersByStart tests that history comes back oldest first
func TestListOrdersByStart(t *testing.T) {
	store, err := NewBoltDBStorage(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	third := newReport(base.Add(2 * time.Minute))
	first := newReport(base)
	second := newReport(base.Add(time.Minute))

	for _, r := range []*types.Report{third, first, second} {
		require.NoError(t, store.Save(r))
	}

	reports, err := store.List()
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, first.RunID, reports[0].RunID)
	assert.Equal(t, second.RunID, reports[1].RunID)
	assert.Equal(t, third.RunID, reports[2].RunID)
}

func TestStoragePersistence(t *testing.T) {
	dir := t.TempDir()

	store1, err := NewBoltDBStorage(dir)
	require.NoError(t, err)

	report := newReport(time.Now().Round(0))
	report.Counter = 1999 //a failing run is history too
	require.NoError(t, store1.Save(report))
	require.NoError(t, store1.Close())

	//reopen and verify the report survived
	store2, err := NewBoltDBStorage(dir)
	require.NoError(t, err)
	defer store2.Close()

	got, err := store2.Get(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, 1999, got.Counter)
	assert.False(t, got.Passed())
}
