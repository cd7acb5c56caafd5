package metrics

import (
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "phest"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	changeChecks      *prom.CounterVec
	checkDuration     prom.Histogram
	watchedFiles      prom.Gauge
	missingWatched    prom.Counter
	fingerprintWrites *prom.CounterVec
	pluginResolutions *prom.CounterVec
	diagnostics       *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		changeChecks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "change_checks_total",
			Help:      "Change checks by decision",
		}, []string{"decision"}),
		checkDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "change_check_duration_seconds",
			Help:      "Duration of change checks including the fingerprint write",
			Buckets:   prom.DefBuckets,
		}),
		watchedFiles: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "watched_files",
			Help:      "Watch list length of the last change check",
		}),
		missingWatched: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "missing_watched_files_total",
			Help:      "Watched paths whose timestamp could not be verified",
		}),
		fingerprintWrites: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "fingerprint_writes_total",
			Help:      "Fingerprint writes by result",
		}, []string{"result"}),
		pluginResolutions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "plugin_resolutions_total",
			Help:      "Plugin resolutions by result",
		}, []string{"result"}),
		diagnostics: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostic_messages_total",
			Help:      "Diagnostic messages appended by section type",
		}, []string{"type"}),
	}
	reg.MustRegister(pr.changeChecks, pr.checkDuration, pr.watchedFiles, pr.missingWatched,
		pr.fingerprintWrites, pr.pluginResolutions, pr.diagnostics)
	return pr
}

func (p *PrometheusRecorder) IncChangeCheck(decision Decision) {
	if p == nil {
		return
	}
	p.changeChecks.WithLabelValues(string(decision)).Inc()
}

func (p *PrometheusRecorder) ObserveChangeCheckDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.checkDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetWatchedFiles(n int) {
	if p == nil {
		return
	}
	p.watchedFiles.Set(float64(n))
}

func (p *PrometheusRecorder) AddMissingWatched(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.missingWatched.Add(float64(n))
}

func (p *PrometheusRecorder) IncFingerprintWrite(success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.fingerprintWrites.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) IncPluginResolution(result PluginResult) {
	if p == nil {
		return
	}
	p.pluginResolutions.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncDiagnostic(messageType string) {
	if p == nil {
		return
	}
	p.diagnostics.WithLabelValues(messageType).Inc()
}

// WriteTextfile writes every metric gathered from g to path in the text
// exposition format, for the node-exporter textfile collector.
func WriteTextfile(path string, g prom.Gatherer) error {
	if err := prom.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
