package notification

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"

	"maintenance-backend/config"
	"maintenance-backend/internal/projection"
)

// Dispatcher accepts per-unit alerts.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert Alert) error
}

// SweepResult summarizes one alert sweep.
type SweepResult struct {
	Candidates int
	Suppressed int
	Dispatched int
}

// Sweeper turns a schedule into alerts, skipping components already alerted for the
// same status within the cooldown.
type Sweeper struct {
	dispatcher     Dispatcher
	seen           *cache.Cache
	stateFile      string
	includeDueSoon bool
}

// NewSweeper creates a sweeper from the alerts configuration.
func NewSweeper(d Dispatcher, cfg config.AlertsConfig) *Sweeper {
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = 24 * time.Hour
	}
	return &Sweeper{
		dispatcher:     d,
		seen:           cache.New(cooldown, 2*cooldown),
		stateFile:      cfg.StateFile,
		includeDueSoon: cfg.IncludeDueSoon,
	}
}

func alertKey(item projection.ScheduleItem) string {
	return fmt.Sprintf("component:%d:%s", item.ComponentID, item.Status)
}

// LoadState restores the cooldown entries of previous runs. A missing file is not an error.
func (s *Sweeper) LoadState() error {
	if s.stateFile == "" {
		return nil
	}
	err := s.seen.LoadFile(s.stateFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load alert state %s: %w", s.stateFile, err)
	}
	s.seen.DeleteExpired()
	return nil
}

// SaveState persists the cooldown entries for the next run.
func (s *Sweeper) SaveState() error {
	if s.stateFile == "" {
		return nil
	}
	s.seen.DeleteExpired()
	if err := s.seen.SaveFile(s.stateFile); err != nil {
		return fmt.Errorf("failed to save alert state %s: %w", s.stateFile, err)
	}
	return nil
}

// Sweep dispatches one alert per unit with overdue components, and due-soon ones if enabled.
// Components enter the cooldown only once their alert has reached a subscriber.
func (s *Sweeper) Sweep(ctx context.Context, sched projection.Schedule) (SweepResult, error) {
	var res SweepResult
	alerts := make(map[int64]*Alert)

	consider := func(item projection.ScheduleItem) {
		res.Candidates++
		key := alertKey(item)
		if _, found := s.seen.Get(key); found {
			res.Suppressed++
			return
		}
		a, ok := alerts[item.EquipmentID]
		if !ok {
			a = &Alert{EquipmentID: item.EquipmentID, EquipmentName: item.EquipmentName}
			alerts[item.EquipmentID] = a
		}
		a.Items = append(a.Items, item)
	}

	for _, item := range sched.Overdue {
		consider(item)
	}
	if s.includeDueSoon {
		for _, item := range sched.Upcoming {
			if item.Status == projection.StatusDueSoon {
				consider(item)
			}
		}
	}

	ids := make([]int64, 0, len(alerts))
	for id := range alerts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		a := alerts[id]
		a.delivered = s.markSeen(a.Items)
		if err := s.dispatcher.Dispatch(ctx, *a); err != nil {
			log.WithError(err).WithField("dispatched", res.Dispatched).Warn("alert sweep interrupted")
			return res, fmt.Errorf("failed to dispatch alert for equipment %d: %w", id, err)
		}
		res.Dispatched++
	}

	log.WithFields(log.Fields{
		"candidates": res.Candidates,
		"suppressed": res.Suppressed,
		"dispatched": res.Dispatched,
	}).Info("alert sweep finished")
	return res, nil
}

func (s *Sweeper) markSeen(items []projection.ScheduleItem) func() {
	return func() {
		for _, item := range items {
			s.seen.SetDefault(alertKey(item), string(item.Status))
		}
	}
}
