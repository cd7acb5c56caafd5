// Package fingerprint persists the per-site build fingerprint: the hash of the
// last watch list and the time of the last detected rebuild.
package fingerprint

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/phest/internal/foundation/errors"
	"git.home.luguber.info/inful/phest/internal/logfields"
)

var (
	// ErrCorruptFingerprint marks a stored record that cannot be decoded.
	ErrCorruptFingerprint = errors.New("corrupt fingerprint record")
	// ErrInvalidSite marks a site name that cannot key a record.
	ErrInvalidSite = errors.New("invalid site name")
)

// Fingerprint summarizes the watch list at the last detected rebuild.
type Fingerprint struct {
	PathHash      string    `json:"path_hash"`
	LastBuildTime time.Time `json:"last_build_time"`
}

// Store reads and writes one fingerprint per site.
type Store interface {
	// Load returns nil, nil when the site has no record yet. Unreadable or
	// corrupt records return an error; see Lookup for the degrading variant.
	Load(ctx context.Context, site string) (*Fingerprint, error)

	// Save overwrites the site's record. A reader never observes a partial write.
	Save(ctx context.Context, site string, fp Fingerprint) error

	Close() error
}

// Lookup loads the site's fingerprint and treats any read failure as "no
// fingerprint", which forces a full rebuild instead of failing the build.
func Lookup(ctx context.Context, store Store, site string, logger *slog.Logger) *Fingerprint {
	if logger == nil {
		logger = slog.Default()
	}
	fp, err := store.Load(ctx, site)
	if err != nil {
		logger.Warn("Ignoring unreadable fingerprint; next check rebuilds",
			logfields.Site(site), logfields.Error(err))
		return nil
	}
	if fp == nil {
		logger.Debug("No fingerprint recorded", logfields.Site(site))
	}
	return fp
}

// ValidateSite rejects names that are empty or would escape a store directory.
func ValidateSite(site string) error {
	if site == "" || site == "." || site == ".." ||
		strings.ContainsAny(site, "/\\\x00") {
		return ferrors.ValidationError("invalid site name").
			WithCause(ErrInvalidSite).
			WithContext("site", site).
			Build()
	}
	return nil
}

// validHash accepts the hex digests written by phest (sha256) and by older
// installations (md5).
func validHash(h string) bool {
	if len(h) != 64 && len(h) != 32 {
		return false
	}
	_, err := hex.DecodeString(h)
	return err == nil
}

func corrupt(site, detail string) error {
	return ferrors.FingerprintError("fingerprint record is corrupt").
		WithCause(ErrCorruptFingerprint).
		WithContext("site", site).
		WithContext("detail", detail).
		Build()
}
