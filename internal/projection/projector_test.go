package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProject(t *testing.T) {
	today := time.Date(2026, 10, 16, 14, 0, 0, 0, time.UTC)

	t.Run("known rate projects a date", func(t *testing.T) {
		p := Project(1000, 1250, Rate{HoursPerDay: 10, Known: true}, today)
		assert.True(t, p.Available)
		assert.Equal(t, 250.0, p.HoursRemaining)
		assert.Equal(t, 25, p.DaysUntilDue)
		assert.Equal(t, "2026-11-10", p.String())
	})

	t.Run("partial days round up", func(t *testing.T) {
		p := Project(1000, 1001, Rate{HoursPerDay: 10, Known: true}, today)
		assert.Equal(t, 1, p.DaysUntilDue)
	})

	t.Run("overdue projects into the past", func(t *testing.T) {
		p := Project(1100, 1000, Rate{HoursPerDay: 20, Known: true}, today)
		assert.True(t, p.Available)
		assert.Equal(t, -100.0, p.HoursRemaining)
		assert.Equal(t, -5, p.DaysUntilDue)
		assert.Equal(t, "2026-10-11", p.String())
	})

	t.Run("unknown rate is not available", func(t *testing.T) {
		p := Project(1000, 1250, Rate{}, today)
		assert.False(t, p.Available)
		assert.Equal(t, 250.0, p.HoursRemaining)
		assert.Equal(t, NotAvailable, p.String())
	})

	t.Run("zero rate is not available even when marked known", func(t *testing.T) {
		p := Project(1100, 1000, Rate{HoursPerDay: 0, Known: true}, today)
		assert.False(t, p.Available)
		assert.Equal(t, NotAvailable, p.String())
	})
}

func TestProject_MonotonicInHoursRemaining(t *testing.T) {
	today := time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)
	rate := Rate{HoursPerDay: 7.3, Known: true}

	prev := Project(0, -200, rate, today).DaysUntilDue
	for due := -199.5; due <= 2000; due += 0.5 {
		days := Project(0, due, rate, today).DaysUntilDue
		assert.GreaterOrEqual(t, days, prev, "days until due decreased at %.1f remaining hours", due)
		prev = days
	}
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		remaining float64
		expected  Status
	}{
		{-50, StatusOverdue},
		{0, StatusOverdue},
		{0.5, StatusDueSoon},
		{100, StatusDueSoon},
		{100.5, StatusGood},
		{101, StatusGood},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, Classify(tc.remaining), "remaining=%v", tc.remaining)
	}
}
