package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/pixperk/peterson/pkg/storage"
	"github.com/pixperk/peterson/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(dataDir string) options {
	return options{
		target:         5000,
		runs:           3,
		checkOccupancy: true,
		dataDir:        dataDir,
		logLevel:       "error",
	}
}

// TestRunSavesHistory tests that every run lands in the history store
func TestRunSavesHistory(t *testing.T) {
	dir := t.TempDir()

	err := run(context.Background(), testOptions(dir), hclog.NewNullLogger())
	require.NoError(t, err)

	history, err := storage.NewBoltDBStorage(dir)
	require.NoError(t, err)
	defer history.Close()

	reports, err := history.List()
	require.NoError(t, err)
	require.Len(t, reports, 3)

	for _, r := range reports {
		assert.Equal(t, 10000, r.Counter)
		assert.True(t, r.Passed())
	}
}

func TestRunRejectsZeroRuns(t *testing.T) {
	opts := testOptions("")
	opts.runs = 0

	err := run(context.Background(), opts, hclog.NewNullLogger())
	assert.Error(t, err)
}

func TestRunRejectsNegativeTarget(t *testing.T) {
	opts := testOptions("")
	opts.target = -5

	err := run(context.Background(), opts, hclog.NewNullLogger())
	assert.ErrorIs(t, err, types.ErrInvalidTarget)
}

func TestRunInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, testOptions(""), hclog.NewNullLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions(dir)
	opts.runs = 2

	require.NoError(t, run(context.Background(), opts, hclog.NewNullLogger()))

	var buf bytes.Buffer
	require.NoError(t, list(&buf, dir))

	out := buf.String()
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "num: 10000/10000")
}

func TestListRequiresDataDir(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, list(&buf, ""))
}
