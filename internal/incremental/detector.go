package incremental

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/phest/internal/fingerprint"
	"git.home.luguber.info/inful/phest/internal/logfields"
	"git.home.luguber.info/inful/phest/internal/metrics"
)

// Result describes one change check.
type Result struct {
	// NeedsRebuild is decided against the fingerprint passed in.
	NeedsRebuild bool
	// Fingerprint is the fingerprint in effect after the check: the newly
	// persisted one on rebuild, otherwise the previous one.
	Fingerprint *fingerprint.Fingerprint
	// Hash of the current watch list.
	Hash string
	// Changed lists watched paths modified after the last build, in
	// watch list order.
	Changed []string
	// Missing lists watched paths that could not be stat'ed.
	Missing []string
	// HashChanged reports that the watch list itself differs.
	HashChanged bool
	// Persisted reports that a new fingerprint was written.
	Persisted bool
}

// Detector runs change checks against a fingerprint store.
type Detector struct {
	store       fingerprint.Store
	logger      *slog.Logger
	recorder    metrics.Recorder
	now         func() time.Time
	concurrency int
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(d *Detector) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// WithConcurrency bounds the number of parallel stat calls. Values below
// one select runtime.NumCPU().
func WithConcurrency(n int) Option {
	return func(d *Detector) {
		d.concurrency = n
	}
}

// NewDetector creates a detector persisting to store.
func NewDetector(store fingerprint.Store, opts ...Option) *Detector {
	d := &Detector{
		store:    store,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.concurrency < 1 {
		d.concurrency = runtime.NumCPU()
	}
	return d
}

type statResult struct {
	changed bool
	missing bool
}

// CheckAndUpdate decides whether site needs a rebuild given prev (nil when
// no fingerprint exists) and the watch list. On rebuild the new fingerprint
// (current hash, check start time) is saved as the last step. Only a store
// write failure returns an error; the Result is still filled in that case.
func (d *Detector) CheckAndUpdate(ctx context.Context, site string, prev *fingerprint.Fingerprint, watch []string) (Result, error) {
	start := d.now()

	var since time.Time
	if prev != nil {
		since = prev.LastBuildTime
	}

	stats := d.statAll(ctx, watch, since)

	res := Result{
		Fingerprint: prev,
		Hash:        HashPaths(watch),
	}
	for i, st := range stats {
		switch {
		case st.missing:
			res.Missing = append(res.Missing, watch[i])
			res.Changed = append(res.Changed, watch[i])
		case st.changed:
			res.Changed = append(res.Changed, watch[i])
		}
	}
	res.HashChanged = prev == nil || prev.PathHash != res.Hash
	res.NeedsRebuild = res.HashChanged || len(res.Changed) > 0

	d.recorder.SetWatchedFiles(len(watch))
	d.recorder.AddMissingWatched(len(res.Missing))
	for _, p := range res.Missing {
		d.logger.Warn("Watched file is missing; treating as changed", logfields.Site(site), logfields.Path(p))
	}

	decision := metrics.DecisionUpToDate
	if res.NeedsRebuild {
		decision = metrics.DecisionRebuild
	}
	defer func() {
		d.recorder.IncChangeCheck(decision)
		d.recorder.ObserveChangeCheckDuration(d.now().Sub(start))
	}()

	if !res.NeedsRebuild {
		d.logger.Debug("Site is up to date", logfields.Site(site), logfields.Hash(res.Hash))
		return res, nil
	}

	d.logger.Info("Rebuild required",
		logfields.Site(site),
		logfields.Hash(res.Hash),
		slog.Int("changed", len(res.Changed)),
		slog.Bool("hash_changed", res.HashChanged))

	next := fingerprint.Fingerprint{PathHash: res.Hash, LastBuildTime: start}
	if err := d.store.Save(ctx, site, next); err != nil {
		d.recorder.IncFingerprintWrite(false)
		d.logger.Error("Failed to persist fingerprint", logfields.Site(site), logfields.Error(err))
		return res, err
	}
	d.recorder.IncFingerprintWrite(true)
	res.Fingerprint = &next
	res.Persisted = true
	return res, nil
}

// statAll stats every path with bounded parallelism. Results keep watch
// list order.
func (d *Detector) statAll(ctx context.Context, watch []string, since time.Time) []statResult {
	out := make([]statResult, len(watch))
	if len(watch) == 0 {
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, p := range watch {
		g.Go(func() error {
			if gctx.Err() != nil {
				// cancelled: report as changed so the caller rebuilds
				out[i] = statResult{changed: true}
				return nil
			}
			info, err := os.Stat(p)
			if err != nil {
				out[i] = statResult{missing: true}
				return nil
			}
			out[i] = statResult{changed: info.ModTime().After(since)}
			return nil
		})
	}
	_ = g.Wait() // workers never fail
	return out
}
