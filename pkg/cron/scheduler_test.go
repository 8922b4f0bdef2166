package cron

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-"), 0600))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestSweepTempFiles(t *testing.T) {
	dir := t.TempDir()
	stale := writeAged(t, dir, "epd-123.pdf", 3*time.Hour)
	fresh := writeAged(t, dir, "epd-456.pdf", time.Minute)
	other := writeAged(t, dir, "report.pdf", 3*time.Hour)

	removed, err := SweepTempFiles(dir, time.Hour, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
}

func TestSweepTempFiles_Disabled(t *testing.T) {
	dir := t.TempDir()
	path := writeAged(t, dir, "epd-1.pdf", 100*time.Hour)

	removed, err := SweepTempFiles(dir, 0, time.Now())
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.FileExists(t, path)
}

type countingPruner struct {
	calls  atomic.Int32
	cutoff time.Time
}

func (p *countingPruner) Prune(_ context.Context, cutoff time.Time) (int, error) {
	p.calls.Add(1)
	p.cutoff = cutoff
	return 2, nil
}

func TestScheduler_Jobs(t *testing.T) {
	t.Run("temp sweep only", func(t *testing.T) {
		s := NewScheduler(Config{TempDir: t.TempDir(), TempMaxAge: time.Hour}, nil, nil)
		require.NoError(t, s.Start())
		defer s.Stop()
		assert.Len(t, s.cron.Entries(), 1)
	})

	t.Run("with archive retention", func(t *testing.T) {
		pruner := &countingPruner{}
		s := NewScheduler(Config{TempDir: t.TempDir(), TempMaxAge: time.Hour, Retention: 24 * time.Hour}, pruner, nil)
		require.NoError(t, s.Start())
		defer s.Stop()
		assert.Len(t, s.cron.Entries(), 2)

		s.pruneArchive()
		assert.Equal(t, int32(1), pruner.calls.Load())
		assert.WithinDuration(t, time.Now().Add(-24*time.Hour), pruner.cutoff, time.Minute)
	})
}
