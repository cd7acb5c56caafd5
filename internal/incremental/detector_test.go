package incremental

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/phest/internal/fingerprint"
)

// clock hands out increasing instants so each check has a distinct start.
type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func writeFile(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(filepath.Base(path)), 0o600))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func setup(t *testing.T, names ...string) (*Detector, *fingerprint.MemoryStore, *clock, []string) {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for _, n := range names {
		p := filepath.Join(dir, n)
		writeFile(t, p, epoch.Add(-time.Hour))
		paths = append(paths, p)
	}
	store := fingerprint.NewMemoryStore()
	c := &clock{t: epoch}
	return NewDetector(store, WithClock(c.now), WithConcurrency(2)), store, c, paths
}

func check(t *testing.T, d *Detector, store fingerprint.Store, watch []string) Result {
	t.Helper()
	ctx := context.Background()
	prev, err := store.Load(ctx, "blog")
	require.NoError(t, err)
	res, err := d.CheckAndUpdate(ctx, "blog", prev, watch)
	require.NoError(t, err)
	return res
}

func TestFirstCheckThenIdempotent(t *testing.T) {
	d, store, _, watch := setup(t, "a.txt", "b.txt")

	first := check(t, d, store, watch)
	assert.True(t, first.NeedsRebuild)
	assert.True(t, first.Persisted)
	assert.True(t, first.HashChanged)
	require.NotNil(t, first.Fingerprint)
	assert.Equal(t, HashPaths(watch), first.Fingerprint.PathHash)
	assert.Equal(t, epoch.Add(time.Second), first.Fingerprint.LastBuildTime, "build time is the check start")

	second := check(t, d, store, watch)
	assert.False(t, second.NeedsRebuild)
	assert.False(t, second.Persisted)
	assert.Empty(t, second.Changed)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.Equal(t, 1, store.Calls().Save, "only the first check writes")
}

func TestUnchangedWatchListIsUpToDate(t *testing.T) {
	d, store, _, watch := setup(t, "a.txt", "b.txt", "c.txt")
	require.NoError(t, store.Save(context.Background(), "blog", fingerprint.Fingerprint{
		PathHash:      HashPaths(watch),
		LastBuildTime: epoch,
	}))

	res := check(t, d, store, watch)
	assert.False(t, res.NeedsRebuild)
	assert.Equal(t, 1, store.Calls().Save, "no write when nothing changed")
}

func TestModifiedFileForcesRebuild(t *testing.T) {
	d, store, _, watch := setup(t, "a.txt", "b.txt")
	check(t, d, store, watch)

	writeFile(t, watch[1], epoch.Add(time.Hour))

	res := check(t, d, store, watch)
	assert.True(t, res.NeedsRebuild)
	assert.False(t, res.HashChanged)
	assert.Equal(t, []string{watch[1]}, res.Changed)
}

func TestMtimeEqualToBuildTimeIsNotNew(t *testing.T) {
	d, store, _, watch := setup(t, "a.txt")
	require.NoError(t, store.Save(context.Background(), "blog", fingerprint.Fingerprint{
		PathHash:      HashPaths(watch),
		LastBuildTime: epoch,
	}))
	writeFile(t, watch[0], epoch)

	assert.False(t, check(t, d, store, watch).NeedsRebuild)
}

func TestWatchListShapeForcesRebuild(t *testing.T) {
	tests := []struct {
		name     string
		baseline func(w []string) []string
		next     func(w []string) []string
	}{
		{"path added", func(w []string) []string { return w[:1] }, func(w []string) []string { return w }},
		{"path removed", func(w []string) []string { return w }, func(w []string) []string { return w[:1] }},
		{"reordered", func(w []string) []string { return w }, func(w []string) []string { return []string{w[1], w[0]} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, store, _, watch := setup(t, "a.txt", "b.txt")
			check(t, d, store, tt.baseline(watch))

			res := check(t, d, store, tt.next(watch))
			assert.True(t, res.NeedsRebuild)
			assert.True(t, res.HashChanged)
			assert.Empty(t, res.Changed, "no mtime is newer than the last build")
		})
	}
}

func TestMissingFileCountsAsChanged(t *testing.T) {
	var buf bytes.Buffer
	store := fingerprint.NewMemoryStore()
	c := &clock{t: epoch}
	d := NewDetector(store, WithClock(c.now), WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))

	dir := t.TempDir()
	present := filepath.Join(dir, "a.txt")
	writeFile(t, present, epoch.Add(-time.Hour))
	missing := filepath.Join(dir, "gone.txt")
	watch := []string{present, missing}

	first := check(t, d, store, watch)
	assert.True(t, first.NeedsRebuild)
	assert.Equal(t, []string{missing}, first.Missing)

	second := check(t, d, store, watch)
	assert.True(t, second.NeedsRebuild, "a file that cannot be verified keeps forcing rebuilds")
	assert.Equal(t, []string{missing}, second.Missing)
	assert.Equal(t, []string{missing}, second.Changed)
	assert.Contains(t, buf.String(), "gone.txt")
}

func TestEmptyWatchList(t *testing.T) {
	d, store, _, _ := setup(t)

	first := check(t, d, store, nil)
	assert.True(t, first.NeedsRebuild, "no prior fingerprint forces an initial build")
	assert.Equal(t, HashPaths(nil), first.Hash)

	assert.False(t, check(t, d, store, nil).NeedsRebuild)
}

func TestDecisionUsesPreviousFingerprint(t *testing.T) {
	d, store, _, watch := setup(t, "a.txt")
	first := check(t, d, store, watch)

	// an mtime between the old and new build time is still new relative to prev
	writeFile(t, watch[0], first.Fingerprint.LastBuildTime.Add(-time.Millisecond))
	prev := &fingerprint.Fingerprint{PathHash: first.Hash, LastBuildTime: epoch.Add(-2 * time.Second)}
	res, err := d.CheckAndUpdate(context.Background(), "blog", prev, watch)
	require.NoError(t, err)
	assert.True(t, res.NeedsRebuild)
}

func TestSaveFailurePropagates(t *testing.T) {
	d, store, _, watch := setup(t, "a.txt")
	store.SaveErr = errors.New("disk full")

	res, err := d.CheckAndUpdate(context.Background(), "blog", nil, watch)
	require.EqualError(t, err, "disk full")
	assert.True(t, res.NeedsRebuild)
	assert.False(t, res.Persisted)
	assert.Nil(t, res.Fingerprint)
}

func TestHashKeepsRegistrationOrderUnderParallelStat(t *testing.T) {
	dir := t.TempDir()
	watch := make([]string, 64)
	for i := range watch {
		// descending names so lexical and registration order differ
		p := filepath.Join(dir, fmt.Sprintf("page-%02d.md", 63-i))
		writeFile(t, p, epoch.Add(-time.Hour))
		watch[i] = p
	}

	d := NewDetector(fingerprint.NewMemoryStore(), WithConcurrency(16))
	for range 5 {
		res, err := d.CheckAndUpdate(context.Background(), "blog", nil, watch)
		require.NoError(t, err)
		assert.Equal(t, HashPaths(watch), res.Hash)
	}
}

func TestWorksWithFSStore(t *testing.T) {
	store, err := fingerprint.NewFSStore(filepath.Join(t.TempDir(), "buildstatus"))
	require.NoError(t, err)
	dir := t.TempDir()
	watch := []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.txt")}
	for _, p := range watch {
		writeFile(t, p, epoch.Add(-time.Hour))
	}
	c := &clock{t: epoch}
	d := NewDetector(store, WithClock(c.now))

	assert.True(t, check(t, d, store, watch).NeedsRebuild)
	assert.False(t, check(t, d, store, watch).NeedsRebuild)
}
