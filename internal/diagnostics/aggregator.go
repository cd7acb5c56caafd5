// Package diagnostics collects build messages into registered, typed sections
// and projects them into a stable display order.
package diagnostics

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	ferrors "git.home.luguber.info/inful/phest/internal/foundation/errors"
	"git.home.luguber.info/inful/phest/internal/logfields"
	"git.home.luguber.info/inful/phest/internal/metrics"
	"git.home.luguber.info/inful/phest/internal/util/ordered"
)

var (
	// ErrUnknownSection is returned by Append for keys that were never registered.
	ErrUnknownSection = errors.New("section is not registered")
	// ErrInvalidSection is returned by Register for an empty key or unknown type.
	ErrInvalidSection = errors.New("invalid section")
)

// Aggregator holds the registered sections of one build. It is not safe for
// concurrent use.
type Aggregator struct {
	sections *ordered.Map[string, *Section]
	logger   *slog.Logger
	recorder metrics.Recorder
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger that receives usage warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(a *Aggregator) {
		if r != nil {
			a.recorder = r
		}
	}
}

// New creates an empty aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		sections: ordered.New[string, *Section](),
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register creates the section key, or replaces it if it already exists.
// A replaced section keeps its display position and starts with no messages.
func (a *Aggregator) Register(key, title string, opts ...SectionOption) error {
	s := &Section{Key: key, Title: title, Type: TypeSuccess}
	for _, opt := range opts {
		opt(s)
	}
	if key == "" || !s.Type.IsValid() {
		err := ferrors.DiagnosticsError("register section").
			WithCause(ErrInvalidSection).
			WithContext("section", key).
			WithContext("type", string(s.Type)).
			Build()
		a.logger.Warn("Ignoring invalid section registration",
			logfields.Section(key), slog.String("type", string(s.Type)))
		return err
	}
	if !a.sections.Set(key, s) {
		a.logger.Debug("Section re-registered", logfields.Section(key))
	}
	return nil
}

// Append adds message to section key. Unknown keys drop the message, log a
// warning and return an error wrapping ErrUnknownSection.
func (a *Aggregator) Append(key, message string) error {
	s, ok := a.sections.Get(key)
	if !ok {
		a.logger.Warn("Dropping message for unregistered section",
			logfields.Section(key), slog.String("message", message))
		return ferrors.DiagnosticsError("append message").
			WithCause(ErrUnknownSection).
			WithContext("section", key).
			Build()
	}
	s.Messages = append(s.Messages, message)
	a.recorder.IncDiagnostic(string(s.Type))
	return nil
}

// Appendf is Append with fmt.Sprintf formatting.
func (a *Aggregator) Appendf(key, format string, args ...any) error {
	return a.Append(key, fmt.Sprintf(format, args...))
}

// HasError reports whether any danger section has at least one message.
func (a *Aggregator) HasError() bool {
	found := false
	a.sections.Each(func(_ string, s *Section) bool {
		if s.Type == TypeDanger && len(s.Messages) > 0 {
			found = true
			return false
		}
		return true
	})
	return found
}

// Has reports whether key is registered.
func (a *Aggregator) Has(key string) bool {
	return a.sections.Has(key)
}

// Section returns a copy of the stored section.
func (a *Aggregator) Section(key string) (Section, bool) {
	s, ok := a.sections.Get(key)
	if !ok {
		return Section{}, false
	}
	out := *s
	out.Messages = append([]string(nil), s.Messages...)
	return out, true
}

// Keys returns the registered keys in registration order.
func (a *Aggregator) Keys() []string {
	return a.sections.Keys()
}

// View groups non-empty sections by type in the order success, danger,
// primary, info, keeping registration order within a group. Sorted sections
// are sorted in the returned copy only.
func (a *Aggregator) View() []SectionView {
	var out []SectionView
	for _, t := range displayOrder {
		a.sections.Each(func(_ string, s *Section) bool {
			if s.Type != t || len(s.Messages) == 0 {
				return true
			}
			msgs := append([]string(nil), s.Messages...)
			if s.Sort {
				sort.Strings(msgs)
			}
			out = append(out, SectionView{Key: s.Key, Title: s.Title, Type: s.Type, Messages: msgs})
			return true
		})
	}
	return out
}
