package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maintenance-backend/internal/projection"
)

func TestRecorder_Observe(t *testing.T) {
	r := New()
	r.ObserveSchedule(projection.Schedule{
		Upcoming: make([]projection.ScheduleItem, 3),
		Overdue:  make([]projection.ScheduleItem, 1),
	})
	r.ObserveStatusCounts(map[projection.Status]int{
		projection.StatusGood:    7,
		projection.StatusDueSoon: 2,
		projection.StatusOverdue: 1,
	})
	r.ReadingAccepted()
	r.ReadingRejected()
	r.ReadingRejected()
	r.AlertsDispatched(4)

	assert.Equal(t, 3.0, testutil.ToFloat64(r.upcoming))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.overdue))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.components.WithLabelValues("Good")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.readingsRejected))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.alertsDispatched))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.ObserveSchedule(projection.Schedule{Overdue: make([]projection.ScheduleItem, 2)})

	require.NoError(t, r.WriteTextfile("", time.Now()), "empty path is disabled")

	path := filepath.Join(t.TempDir(), "maintenance.prom")
	require.NoError(t, r.WriteTextfile(path, time.Unix(1700000000, 0)))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "maint_overdue_components 2")
	assert.Contains(t, string(content), "maint_last_run_timestamp_seconds 1.7e+09")
}
