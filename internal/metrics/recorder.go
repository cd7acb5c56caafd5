package metrics

import "time"

// Decision labels the outcome of a change check.
type Decision string

const (
	DecisionRebuild  Decision = "rebuild"
	DecisionUpToDate Decision = "up_to_date"
)

// PluginResult labels the outcome of a plugin resolution.
type PluginResult string

const (
	PluginLoaded   PluginResult = "loaded"
	PluginCached   PluginResult = "cached"
	PluginNotFound PluginResult = "not_found"
	PluginFailed   PluginResult = "failed"
)

// Recorder defines observability hooks for change detection, plugin resolution
// and diagnostics.
type Recorder interface {
	IncChangeCheck(decision Decision)
	ObserveChangeCheckDuration(d time.Duration)
	SetWatchedFiles(n int)
	AddMissingWatched(n int)
	IncFingerprintWrite(success bool)
	IncPluginResolution(result PluginResult)
	IncDiagnostic(messageType string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncChangeCheck(Decision)                  {}
func (NoopRecorder) ObserveChangeCheckDuration(time.Duration) {}
func (NoopRecorder) SetWatchedFiles(int)                      {}
func (NoopRecorder) AddMissingWatched(int)                    {}
func (NoopRecorder) IncFingerprintWrite(bool)                 {}
func (NoopRecorder) IncPluginResolution(PluginResult)         {}
func (NoopRecorder) IncDiagnostic(string)                     {}
