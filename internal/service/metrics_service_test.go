package service

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCounters(t *testing.T) {
	m := NewMetricsService()
	m.RecordEnrollment()
	m.RecordEnrollment()
	m.RecordRejection(RejectCreditCeiling)
	m.RecordWithdrawal()
	m.RecordMarks()
	m.ObserveLockWait(time.Millisecond)
	m.RecordImportRows(EntityCourses, 4, 1)
	m.RecordExport("courses_csv")
	m.ObserveBackup(2048, time.Second)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.enrollments))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.rejections.WithLabelValues(RejectCreditCeiling)))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.importRows.WithLabelValues(EntityCourses, "imported")))
	assert.Equal(t, float64(2048), testutil.ToFloat64(m.backupBytes))
	assert.Equal(t, 1, testutil.CollectAndCount(m.lockWait))
}

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.RecordEnrollment()
	m.RecordRejection(RejectDuplicate)
	m.ObserveBackup(10, time.Millisecond)

	samples, err := m.Snapshot()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, s := range samples {
		values[s.Name+s.Labels] = s.Value
		assert.NotEqual(t, "goroutines_total", s.Name)
	}
	assert.Equal(t, float64(1), values["ccrm_enrollments_total"])
	assert.Equal(t, float64(1), values[`ccrm_enrollment_rejections_total{reason="duplicate"}`])
	assert.Equal(t, float64(10), values["ccrm_last_backup_bytes"])
	assert.Equal(t, float64(1), values["ccrm_backup_duration_seconds_count"])

	for i := 1; i < len(samples); i++ {
		assert.LessOrEqual(t, samples[i-1].Name, samples[i].Name)
	}
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.RecordEnrollment()
		m.RecordRejection(RejectDuplicate)
		m.RecordWithdrawal()
		m.RecordMarks()
		m.ObserveLockWait(time.Millisecond)
		m.RecordImportRows(EntityStudents, 1, 0)
		m.RecordExport("x")
		m.ObserveBackup(1, time.Second)
	})
	samples, err := m.Snapshot()
	assert.NoError(t, err)
	assert.Nil(t, samples)
}
