// Package metrics exports run outcomes in the Prometheus text format, either
// as a node_exporter textfile or over HTTP in serve mode.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"

	"github.com/raoulx24/media-backup/internal/logging"
)

const namespace = "media_backup"

// RunStats is the subset of a run result the gauges are fed from.
type RunStats struct {
	Service     string
	Start       time.Time
	End         time.Time
	Success     bool
	ArchiveSize int64
	Retained    int
	Pruned      map[string]int           // by artifact kind
	Steps       map[string]time.Duration // by step name
}

type Metrics struct {
	reg     *prometheus.Registry
	service string

	restoreOnce sync.Once
	restoreErr  error

	LastStart    prometheus.Gauge
	LastEnd      prometheus.Gauge
	LastSuccess  prometheus.Gauge
	LastStatus   prometheus.Gauge
	ArchiveBytes prometheus.Gauge
	Retained     prometheus.Gauge
	Pruned       *prometheus.GaugeVec
	StepSeconds  *prometheus.GaugeVec
	Runs         *prometheus.CounterVec
}

func New(service string) *Metrics {
	reg := prometheus.NewRegistry()
	labels := prometheus.Labels{"service": service}
	f := promauto.With(reg)

	gauge := func(name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: name, Help: help, ConstLabels: labels,
		})
	}

	return &Metrics{
		reg:          reg,
		service:      service,
		LastStart:    gauge("last_run_start_timestamp_seconds", "Unix time the last run started."),
		LastEnd:      gauge("last_run_end_timestamp_seconds", "Unix time the last run finished."),
		LastSuccess:  gauge("last_success_timestamp_seconds", "Unix time of the last successful run."),
		LastStatus:   gauge("last_run_success", "1 if the last run succeeded, 0 otherwise."),
		ArchiveBytes: gauge("last_archive_size_bytes", "Size of the archive produced by the last run."),
		Retained:     gauge("retained_archives", "Archives left on disk after pruning."),
		Pruned: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "pruned_artifacts", Help: "Artifacts deleted by the last run.", ConstLabels: labels,
		}, []string{"kind"}),
		StepSeconds: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "step_duration_seconds", Help: "Duration of each step of the last run.", ConstLabels: labels,
		}, []string{"step"}),
		Runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_total", Help: "Runs by outcome.", ConstLabels: labels,
		}, []string{"status"}),
	}
}

// Observe records the outcome of one run.
func (m *Metrics) Observe(s RunStats) {
	m.LastStart.Set(float64(s.Start.Unix()))
	m.LastEnd.Set(float64(s.End.Unix()))

	if s.Success {
		m.LastStatus.Set(1)
		m.LastSuccess.Set(float64(s.End.Unix()))
		m.ArchiveBytes.Set(float64(s.ArchiveSize))
		m.Runs.WithLabelValues("success").Inc()
	} else {
		m.LastStatus.Set(0)
		m.Runs.WithLabelValues("failure").Inc()
	}

	m.Retained.Set(float64(s.Retained))

	m.Pruned.Reset()
	for kind, n := range s.Pruned {
		m.Pruned.WithLabelValues(kind).Set(float64(n))
	}
	m.StepSeconds.Reset()
	for step, d := range s.Steps {
		m.StepSeconds.WithLabelValues(step).Set(d.Seconds())
	}
}

// Restore seeds the metrics from a textfile written by an earlier process:
// the last success time, the last archive size and the run counters. Only the
// first call reads the file. A missing file is not an error.
func (m *Metrics) Restore(path string) error {
	m.restoreOnce.Do(func() {
		m.restoreErr = m.restore(path)
	})
	return m.restoreErr
}

func (m *Metrics) restore(path string) error {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	parser := expfmt.NewTextParser(model.UTF8Validation)
	families, err := parser.TextToMetricFamilies(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	for _, pm := range m.own(families, "last_success_timestamp_seconds") {
		m.LastSuccess.Set(pm.GetGauge().GetValue())
	}
	for _, pm := range m.own(families, "last_archive_size_bytes") {
		m.ArchiveBytes.Set(pm.GetGauge().GetValue())
	}
	for _, pm := range m.own(families, "runs_total") {
		if status := label(pm, "status"); status != "" {
			m.Runs.WithLabelValues(status).Add(pm.GetCounter().GetValue())
		}
	}
	return nil
}

// own returns the samples of name that belong to this service.
func (m *Metrics) own(families map[string]*dto.MetricFamily, name string) []*dto.Metric {
	var out []*dto.Metric
	for _, pm := range families[namespace+"_"+name].GetMetric() {
		if label(pm, "service") == m.service {
			out = append(out, pm)
		}
	}
	return out
}

func label(pm *dto.Metric, name string) string {
	for _, lp := range pm.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// WriteTextfile writes all metrics to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics listener started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
