package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"maintenance-backend/config"
	"maintenance-backend/internal/db"
	"maintenance-backend/internal/model"
	"maintenance-backend/internal/projection"
	"maintenance-backend/internal/store"
)

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func newTestDB(t *testing.T) *gorm.DB {
	cfg := config.Default().Database
	cfg.DSN = ":memory:"
	cfg.MaxOpenConns = 1
	cfg.LogLevel = "silent"

	gormDB, err := db.Init(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(gormDB) })
	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

func newTestService(t *testing.T) *Service {
	return NewService(store.NewGormStore(newTestDB(t))).WithClock(func() time.Time { return fixedNow })
}

func manualUnit(t *testing.T, s *Service, name string, meter, rate float64) *model.EquipmentUnit {
	unit := &model.EquipmentUnit{Name: name, HourMeter: meter, AverageHoursPerDay: rate}
	require.NoError(t, s.CreateEquipment(context.Background(), unit))
	return unit
}

func addComponent(t *testing.T, s *Service, equipmentID int64, name string, interval, last float64) *model.Component {
	c := &model.Component{EquipmentID: equipmentID, Name: name, Category: model.CategoryMidlife, MaintenanceInterval: interval, LastMaintenanceHour: last}
	require.NoError(t, s.CreateComponent(context.Background(), c))
	return c
}

func TestService_RecordReading(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	unit := &model.EquipmentUnit{Name: "HT-01", UseAutoCalculation: true}
	require.NoError(t, s.CreateEquipment(ctx, unit))

	_, err := s.RecordReading(ctx, unit.ID, day(1), 100)
	require.NoError(t, err)
	got, err := s.GetEquipment(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.HourMeter)
	assert.Zero(t, got.AverageHoursPerDay, "a single reading gives no rate")

	_, err = s.RecordReading(ctx, unit.ID, day(6), 200)
	require.NoError(t, err)
	got, err = s.GetEquipment(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, 200.0, got.HourMeter)
	assert.Equal(t, 20.0, got.AverageHoursPerDay)
	assert.True(t, got.LastUpdated.Equal(fixedNow))

	testCases := []struct {
		name  string
		date  time.Time
		hours float64
	}{
		{name: "below current meter", date: day(7), hours: 150},
		{name: "implausible daily usage", date: day(8), hours: 300},
		{name: "negative hours", date: day(8), hours: -1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.RecordReading(ctx, unit.ID, tc.date, tc.hours)
			assert.ErrorIs(t, err, projection.ErrValidation)
		})
	}

	readings, err := s.ListReadings(ctx, unit.ID)
	require.NoError(t, err)
	assert.Len(t, readings, 2)
	got, err = s.GetEquipment(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, 200.0, got.HourMeter)

	_, err = s.RecordReading(ctx, 999, day(8), 10)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_CreateEquipmentLogsInitialReading(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	unit := manualUnit(t, s, "  EX-02 ", 1500, 18)
	assert.Equal(t, "EX-02", unit.Name)

	readings, err := s.ListReadings(ctx, unit.ID)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 1500.0, readings[0].Hours)

	err = s.CreateEquipment(ctx, &model.EquipmentUnit{Name: "bad", AverageHoursPerDay: 30})
	assert.ErrorIs(t, err, projection.ErrValidation)
	err = s.CreateEquipment(ctx, &model.EquipmentUnit{Name: " "})
	assert.ErrorIs(t, err, projection.ErrValidation)
}

func TestService_CreateEquipmentIsAtomic(t *testing.T) {
	gormDB := newTestDB(t)
	err := gormDB.Callback().Create().Before("gorm:create").Register("fail_readings", func(tx *gorm.DB) {
		if tx.Statement.Table == "hour_meter_readings" {
			tx.AddError(errors.New("backend write failed"))
		}
	})
	require.NoError(t, err)
	s := NewService(store.NewGormStore(gormDB)).WithClock(func() time.Time { return fixedNow })
	ctx := context.Background()

	err = s.CreateEquipment(ctx, &model.EquipmentUnit{Name: "HT-05", HourMeter: 5000, AverageHoursPerDay: 20})
	assert.ErrorContains(t, err, "backend write failed")

	units, err := s.ListEquipment(ctx)
	require.NoError(t, err)
	assert.Empty(t, units)
}

func TestService_EquipmentStatus(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	unit := manualUnit(t, s, "HT-01", 1000, 20)
	addComponent(t, s, unit.ID, "Engine", 500, 600)
	addComponent(t, s, unit.ID, "Pump", 300, 600)

	report, err := s.EquipmentStatus(ctx, unit.ID)
	require.NoError(t, err)
	assert.Equal(t, projection.Rate{HoursPerDay: 20, Known: true}, report.Rate)
	require.Len(t, report.Components, 2)

	engine := report.Components[0]
	assert.Equal(t, projection.StatusDueSoon, engine.Status)
	assert.Equal(t, "2024-03-15", engine.DueDate)

	pump := report.Components[1]
	assert.Equal(t, projection.StatusOverdue, pump.Status)
	assert.Equal(t, -100.0, pump.Projection.HoursRemaining)

	require.Len(t, report.Periodic, len(projection.PeriodicIntervals))
	assert.Equal(t, 1250.0, report.Periodic[0].NextDueHour)
	assert.Equal(t, projection.StatusGood, report.Periodic[0].Status)
}

func TestService_EquipmentStatusManualZeroIsUnknown(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	unit := manualUnit(t, s, "HT-01", 1000, 0)
	addComponent(t, s, unit.ID, "Engine", 500, 600)

	report, err := s.EquipmentStatus(ctx, unit.ID)
	require.NoError(t, err)
	assert.False(t, report.Rate.Known)
	assert.Equal(t, projection.NotAvailable, report.Components[0].DueDate)
	assert.Equal(t, projection.StatusDueSoon, report.Components[0].Status)
}

func TestService_PerformMaintenance(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	unit := manualUnit(t, s, "HT-01", 1000, 20)
	c := addComponent(t, s, unit.ID, "Engine", 500, 600)

	record, err := s.PerformMaintenance(ctx, c.ID, PerformRequest{Notes: "oil and filters"})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, record.HourMeter)
	assert.Equal(t, 1500.0, record.NextMaintenanceHour)
	assert.Equal(t, DefaultMaintenanceType, record.MaintenanceType)
	assert.True(t, record.Date.Equal(day(10)))

	got, err := s.ListComponents(ctx, unit.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1000.0, got[0].LastMaintenanceHour)
	assert.Equal(t, 1500.0, got[0].NextMaintenanceHour)

	beyond, before := 1200.0, 800.0
	_, err = s.PerformMaintenance(ctx, c.ID, PerformRequest{HourMeter: &beyond})
	assert.ErrorIs(t, err, projection.ErrValidation)
	_, err = s.PerformMaintenance(ctx, c.ID, PerformRequest{HourMeter: &before})
	assert.ErrorIs(t, err, projection.ErrValidation)

	history, err := s.History(ctx, store.RecordFilter{ComponentID: c.ID})
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestService_PerformPeriodicService(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	unit := manualUnit(t, s, "HT-01", 1000, 20)

	_, err := s.PerformPeriodicService(ctx, unit.ID, 300, PerformRequest{})
	assert.ErrorIs(t, err, projection.ErrValidation)

	record, err := s.PerformPeriodicService(ctx, unit.ID, 500, PerformRequest{})
	require.NoError(t, err)
	assert.Equal(t, "pm-500", record.MaintenanceType)
	assert.Nil(t, record.ComponentID)
	assert.Equal(t, 1500.0, record.NextMaintenanceHour)

	earlier := 900.0
	_, err = s.PerformPeriodicService(ctx, unit.ID, 500, PerformRequest{HourMeter: &earlier})
	assert.ErrorIs(t, err, projection.ErrValidation)

	report, err := s.EquipmentStatus(ctx, unit.ID)
	require.NoError(t, err)
	for _, check := range report.Periodic {
		if check.Interval == 500 {
			assert.True(t, check.HasRecord)
			assert.Equal(t, 1500.0, check.NextDueHour)
		}
	}
}

func TestService_FleetSchedule(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	a := manualUnit(t, s, "HT-01", 1000, 20)
	b := manualUnit(t, s, "HT-02", 50, 10)
	addComponent(t, s, a.ID, "Engine", 500, 600) // due 1100, 100 left
	addComponent(t, s, a.ID, "Pump", 300, 600)   // due 900, 100 over
	addComponent(t, s, a.ID, "Frame", 1400, 600) // due 2000, out of window
	addComponent(t, s, b.ID, "Engine", 500, 0)   // due 500, 450 left

	sched, err := s.FleetSchedule(ctx)
	require.NoError(t, err)
	require.Len(t, sched.Upcoming, 2)
	assert.Equal(t, "HT-01", sched.Upcoming[0].EquipmentName)
	assert.Equal(t, 450.0, sched.Upcoming[1].HoursRemaining)
	require.Len(t, sched.Overdue, 1)
	assert.Equal(t, "Pump", sched.Overdue[0].Component)

	counts, err := s.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[projection.StatusOverdue])
	assert.Equal(t, 1, counts[projection.StatusDueSoon])
	assert.Equal(t, 2, counts[projection.StatusGood])
}

func TestService_ComponentFromSetting(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	unit := manualUnit(t, s, "HT-01", 1000, 20)

	setting := &model.MaintenanceSetting{Name: "Final Drive", Category: model.CategoryMidlife, Interval: 6000}
	require.NoError(t, s.CreateSetting(ctx, setting))
	assert.ErrorIs(t, s.CreateSetting(ctx, &model.MaintenanceSetting{Name: "x", Category: "weekly", Interval: 10}), projection.ErrValidation)

	c, err := s.CreateComponentFromSetting(ctx, setting.ID, unit.ID, ComponentOverrides{Name: "Final Drive LH", LastMaintenanceHour: 400})
	require.NoError(t, err)
	assert.Equal(t, "Final Drive LH", c.Name)
	assert.Equal(t, 6400.0, c.NextMaintenanceHour)

	_, err = s.CreateComponentFromSetting(ctx, 999, unit.ID, ComponentOverrides{})
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.CreateComponentFromSetting(ctx, setting.ID, 999, ComponentOverrides{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_ParetoReport(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	unit := manualUnit(t, s, "HT-01", 1000, 20)

	for _, b := range []model.Breakdown{
		{EquipmentID: unit.ID, Area: "Engine", Date: day(1), DurationHours: 5},
		{EquipmentID: unit.ID, Area: "Hydraulics", Date: day(2), DurationHours: 8},
		{EquipmentID: unit.ID, Area: "Engine", Date: day(3), DurationHours: 4},
		{EquipmentID: unit.ID, Area: "Tyres", Date: day(9), DurationHours: 20},
	} {
		b := b
		require.NoError(t, s.RecordBreakdown(ctx, &b))
	}
	assert.ErrorIs(t, s.RecordBreakdown(ctx, &model.Breakdown{EquipmentID: 999, Area: "Engine"}), store.ErrNotFound)

	rows, err := s.ParetoReport(ctx, projection.DimensionArea, day(1), day(3))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Engine", rows[0].Label)
	assert.Equal(t, 9.0, rows[0].Duration)
	assert.InDelta(t, 52.94, rows[0].CumulativePercent, 0.01)
	assert.InDelta(t, 100.0, rows[1].CumulativePercent, 1e-9)

	_, err = s.ParetoReport(ctx, projection.DimensionArea, day(3), day(1))
	assert.ErrorIs(t, err, projection.ErrValidation)
}
