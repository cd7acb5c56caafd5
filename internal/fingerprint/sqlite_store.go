package fingerprint

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/phest/internal/foundation/errors"
)

// SQLiteStore keeps all sites' fingerprints in one SQLite table.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and initializes) the database at dbPath.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.FileSystemError("open sqlite database").WithCause(err).WithContext("path", dbPath).Build()
	}
	// one connection keeps ":memory:" databases alive across calls
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, ferrors.FileSystemError("initialize fingerprint schema").WithCause(err).WithContext("path", dbPath).Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS fingerprints (
		site TEXT PRIMARY KEY,
		path_hash TEXT NOT NULL,
		last_build_time INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load reads the site's row.
func (s *SQLiteStore) Load(ctx context.Context, site string) (*Fingerprint, error) {
	if err := ValidateSite(site); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hash string
	var nanos int64
	err := s.db.QueryRowContext(ctx,
		"SELECT path_hash, last_build_time FROM fingerprints WHERE site = ?", site,
	).Scan(&hash, &nanos)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, ferrors.FingerprintError("query fingerprint").WithCause(err).WithContext("site", site).Build()
	}
	if !validHash(hash) {
		return nil, corrupt(site, "invalid path_hash column")
	}
	return &Fingerprint{PathHash: hash, LastBuildTime: time.Unix(0, nanos)}, nil
}

// Save upserts the site's row in a single statement.
func (s *SQLiteStore) Save(ctx context.Context, site string, fp Fingerprint) error {
	if err := ValidateSite(site); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fingerprints (site, path_hash, last_build_time) VALUES (?, ?, ?)
		ON CONFLICT(site) DO UPDATE SET
			path_hash = excluded.path_hash,
			last_build_time = excluded.last_build_time`,
		site, fp.PathHash, fp.LastBuildTime.UnixNano(),
	)
	if err != nil {
		return ferrors.FingerprintError("write fingerprint").WithCause(err).WithContext("site", site).Build()
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
