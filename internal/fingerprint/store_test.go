package fingerprint

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/phest/internal/foundation/errors"
)

const (
	hashA = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	hashB = "2c26b46b68ffc68ff99b453c1d30413413422d706483bfa0f98a5e886266e7ae"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFSStore(filepath.Join(t.TempDir(), "buildstatus"))
	require.NoError(t, err)
	db, err := NewSQLiteStore(filepath.Join(t.TempDir(), "fingerprints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return map[string]Store{
		"fs":     fs,
		"sqlite": db,
		"memory": NewMemoryStore(),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	// whole seconds survive every filesystem's mtime resolution
	built := time.Unix(1_700_000_000, 0)

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			fp, err := store.Load(ctx, "blog")
			require.NoError(t, err)
			assert.Nil(t, fp, "absent record loads as nil")

			require.NoError(t, store.Save(ctx, "blog", Fingerprint{PathHash: hashA, LastBuildTime: built}))
			fp, err = store.Load(ctx, "blog")
			require.NoError(t, err)
			require.NotNil(t, fp)
			assert.Equal(t, hashA, fp.PathHash)
			assert.True(t, fp.LastBuildTime.Equal(built), "got %v", fp.LastBuildTime)

			later := built.Add(time.Hour)
			require.NoError(t, store.Save(ctx, "blog", Fingerprint{PathHash: hashB, LastBuildTime: later}))
			fp, err = store.Load(ctx, "blog")
			require.NoError(t, err)
			assert.Equal(t, hashB, fp.PathHash)
			assert.True(t, fp.LastBuildTime.Equal(later))

			other, err := store.Load(ctx, "docs")
			require.NoError(t, err)
			assert.Nil(t, other, "records are keyed by site")
		})
	}
}

func TestStoresRejectInvalidSite(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	db, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer db.Close()

	for _, site := range []string{"", ".", "..", "../etc", "a/b", `a\b`} {
		for name, store := range map[string]Store{"fs": fs, "sqlite": db} {
			_, err := store.Load(ctx, site)
			assert.ErrorIs(t, err, ErrInvalidSite, "%s load %q", name, site)
			err = store.Save(ctx, site, Fingerprint{PathHash: hashA})
			assert.ErrorIs(t, err, ErrInvalidSite, "%s save %q", name, site)
		}
	}
}

func TestFSStoreLayout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)

	built := time.Unix(1_650_000_000, 0)
	require.NoError(t, store.Save(context.Background(), "blog", Fingerprint{PathHash: hashA, LastBuildTime: built}))

	path := filepath.Join(dir, "blog.dat")
	assert.Equal(t, path, store.Path("blog"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, hashA, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(built), "mtime carries the build time")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFSStoreReadsLegacyMD5Record(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blog.dat"), []byte("d41d8cd98f00b204e9800998ecf8427e\n"), 0o600))

	store, err := NewFSStore(dir)
	require.NoError(t, err)
	fp, err := store.Load(context.Background(), "blog")
	require.NoError(t, err)
	require.NotNil(t, fp)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", fp.PathHash)
}

func TestFSStoreCorruptRecord(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, path string)
	}{
		{"garbage content", func(t *testing.T, path string) {
			require.NoError(t, os.WriteFile(path, []byte("not a hash"), 0o600))
		}},
		{"empty file", func(t *testing.T, path string) {
			require.NoError(t, os.WriteFile(path, nil, 0o600))
		}},
		{"directory", func(t *testing.T, path string) {
			require.NoError(t, os.Mkdir(path, 0o750))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, filepath.Join(dir, "blog.dat"))
			store, err := NewFSStore(dir)
			require.NoError(t, err)

			fp, err := store.Load(context.Background(), "blog")
			assert.Nil(t, fp)
			require.ErrorIs(t, err, ErrCorruptFingerprint)
			assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFingerprint))
		})
	}
}

func TestFSStoreSaveFailurePropagates(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)
	// #nosec G302 - read-only directory needed to force the write failure
	require.NoError(t, os.Chmod(dir, 0o500))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o750) })
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	err = store.Save(context.Background(), "blog", Fingerprint{PathHash: hashA, LastBuildTime: time.Now()})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFingerprint))
}

func TestLookupDegradesErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	store := NewMemoryStore()
	store.LoadErr = errors.New("disk on fire")

	assert.Nil(t, Lookup(context.Background(), store, "blog", logger))
	assert.True(t, strings.Contains(buf.String(), "disk on fire"), buf.String())
	assert.Equal(t, 1, store.Calls().Load)
}

func TestLookupReturnsRecord(t *testing.T) {
	store := NewMemoryStore()
	want := Fingerprint{PathHash: hashA, LastBuildTime: time.Unix(10, 0)}
	require.NoError(t, store.Save(context.Background(), "blog", want))

	got := Lookup(context.Background(), store, "blog", nil)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestMemoryStoreSaveErr(t *testing.T) {
	store := NewMemoryStore()
	store.SaveErr = errors.New("read-only")
	err := store.Save(context.Background(), "blog", Fingerprint{PathHash: hashA})
	require.EqualError(t, err, "read-only")

	fp, err := store.Load(context.Background(), "blog")
	require.NoError(t, err)
	assert.Nil(t, fp)
	assert.Equal(t, MemoryCalls{Load: 1, Save: 1}, store.Calls())
}
