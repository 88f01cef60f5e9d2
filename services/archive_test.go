package services

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sion-backend/models"
)

func readAll(t *testing.T, path string) []models.TickResult {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []models.TickResult
	require.NoError(t, ReadArchive(f, func(res models.TickResult) error {
		out = append(out, res)
		return nil
	}))
	return out
}

func TestTickArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a := NewTickArchive(dir, "ticks")
	a.now = func() time.Time { return time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC) }

	for tick := 1; tick <= 3; tick++ {
		res := sampleResult()
		res.Tick = tick
		require.NoError(t, a.Write(res))
	}
	require.NoError(t, a.Close())

	files, err := ListArchiveFiles(dir, "ticks")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "ticks-2026-03-01-10.jsonl.zst", filepath.Base(files[0]))

	got := readAll(t, files[0])
	require.Len(t, got, 3)
	assert.Equal(t, 3, got[2].Tick)
	assert.Equal(t, "sim-1", got[0].SimulationID)
	require.NotNil(t, got[0].Actions[0].Direction)
	assert.Equal(t, models.Forward, *got[0].Actions[0].Direction)
}

func TestTickArchiveRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	a := NewTickArchive(dir, "ticks")
	now := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	a.now = func() time.Time { return now }

	require.NoError(t, a.Write(sampleResult()))
	now = now.Add(2 * time.Minute)
	require.NoError(t, a.Write(sampleResult()))
	require.NoError(t, a.Close())

	files, err := ListArchiveFiles(dir, "ticks")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "ticks-2026-03-01-11.jsonl.zst", filepath.Base(files[1]))
	assert.Len(t, readAll(t, files[0]), 1)
	assert.Len(t, readAll(t, files[1]), 1)
}

func TestListArchiveFilesIgnoresOthers(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other-2026-01-01-00.jsonl.zst"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "ticks-dir"), 0o755))

	files, err := ListArchiveFiles(dir, "ticks")
	require.NoError(t, err)
	assert.Empty(t, files)
}
