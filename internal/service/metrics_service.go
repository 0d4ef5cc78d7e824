package service

import (
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Rejection reasons recorded by the enrollment engine.
const (
	RejectDuplicate     = "duplicate"
	RejectCreditCeiling = "credit_ceiling"
	RejectInvalidMarks  = "invalid_marks"
)

// MetricsService encapsulates Prometheus instrumentation on a private registry. Every method
// is safe on a nil receiver so services can run without metrics.
type MetricsService struct {
	registry       *prometheus.Registry
	enrollments    prometheus.Counter
	rejections     *prometheus.CounterVec
	withdrawals    prometheus.Counter
	marksRecorded  prometheus.Counter
	importRows     *prometheus.CounterVec
	exports        *prometheus.CounterVec
	backupBytes    prometheus.Gauge
	backupDuration prometheus.Histogram
	lockWait       prometheus.Histogram
}

// MetricSample is one flattened series value for display.
type MetricSample struct {
	Name   string
	Labels string
	Value  float64
}

// NewMetricsService registers the records collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	enrollments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ccrm_enrollments_total",
		Help: "Enrollments accepted by the enrollment engine",
	})

	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ccrm_enrollment_rejections_total",
		Help: "Enrollment and grading requests rejected by business rules",
	}, []string{"reason"})

	withdrawals := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ccrm_withdrawals_total",
		Help: "Enrollments withdrawn",
	})

	marksRecorded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ccrm_marks_recorded_total",
		Help: "Marks written to enrollments",
	})

	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ccrm_import_rows_total",
		Help: "CSV rows processed by imports",
	}, []string{"entity", "outcome"})

	exports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ccrm_exports_total",
		Help: "Files written by exports",
	}, []string{"kind"})

	backupBytes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ccrm_last_backup_bytes",
		Help: "Size of the most recent backup copy",
	})

	backupDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ccrm_backup_duration_seconds",
		Help:    "Duration of backup runs",
		Buckets: prometheus.DefBuckets,
	})

	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ccrm_enrollment_lock_wait_seconds",
		Help:    "Time spent waiting for a student's enrollment lock",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(enrollments, rejections, withdrawals, marksRecorded, importRows, exports, backupBytes, backupDuration, lockWait, goroutines)

	return &MetricsService{
		registry:       registry,
		enrollments:    enrollments,
		rejections:     rejections,
		withdrawals:    withdrawals,
		marksRecorded:  marksRecorded,
		importRows:     importRows,
		exports:        exports,
		backupBytes:    backupBytes,
		backupDuration: backupDuration,
		lockWait:       lockWait,
	}
}

// RecordEnrollment counts an accepted enrollment.
func (m *MetricsService) RecordEnrollment() {
	if m == nil {
		return
	}
	m.enrollments.Inc()
}

// RecordRejection counts a business-rule rejection.
func (m *MetricsService) RecordRejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// RecordWithdrawal counts a withdrawal.
func (m *MetricsService) RecordWithdrawal() {
	if m == nil {
		return
	}
	m.withdrawals.Inc()
}

// RecordMarks counts a marks write.
func (m *MetricsService) RecordMarks() {
	if m == nil {
		return
	}
	m.marksRecorded.Inc()
}

// ObserveLockWait records how long enrollment waited for the per-student lock.
func (m *MetricsService) ObserveLockWait(d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.Observe(d.Seconds())
}

// RecordImportRows adds imported and failed row counts for an entity.
func (m *MetricsService) RecordImportRows(entity string, imported, failed int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(entity, "imported").Add(float64(imported))
	m.importRows.WithLabelValues(entity, "failed").Add(float64(failed))
}

// RecordExport counts a written export file.
func (m *MetricsService) RecordExport(kind string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(kind).Inc()
}

// ObserveBackup records the size and duration of a backup run.
func (m *MetricsService) ObserveBackup(bytes int64, d time.Duration) {
	if m == nil {
		return
	}
	m.backupBytes.Set(float64(bytes))
	m.backupDuration.Observe(d.Seconds())
}

// Snapshot flattens the ccrm_* counters and gauges into display rows sorted by name.
func (m *MetricsService) Snapshot() ([]MetricSample, error) {
	if m == nil {
		return nil, nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	samples := make([]MetricSample, 0)
	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), "ccrm_") {
			continue
		}
		for _, metric := range family.GetMetric() {
			sample := MetricSample{Name: family.GetName(), Labels: labelString(metric.GetLabel())}
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				sample.Value = metric.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				sample.Value = metric.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				sample.Name += "_count"
				sample.Value = float64(metric.GetHistogram().GetSampleCount())
			default:
				continue
			}
			samples = append(samples, sample)
		}
	}
	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}
		return samples[i].Labels < samples[j].Labels
	})
	return samples, nil
}

func labelString(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
