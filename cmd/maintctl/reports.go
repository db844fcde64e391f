package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"golang.org/x/time/rate"

	"maintenance-backend/internal/export"
	"maintenance-backend/internal/maintenance"
	"maintenance-backend/internal/notification"
	"maintenance-backend/internal/parse"
	"maintenance-backend/internal/projection"
	"maintenance-backend/internal/reconcile"
	"maintenance-backend/internal/store"
)

func runService(ctx context.Context, a *app, args []string) error {
	action, args, err := verb("service", args, "component", "periodic", "history")
	if err != nil {
		return err
	}
	fl := newFlagSet("service " + action)
	id := fl.Int64("id", 0, "component ID")
	equipment := fl.Int64("equipment", 0, "equipment ID")
	interval := fl.Float64("interval", 0, fmt.Sprintf("periodic interval, one of %v", projection.PeriodicIntervals))
	date := fl.String("date", "", "service date (default today)")
	hours := fl.String("hours", "", "hour meter at the service (default the unit's current meter)")
	notes := fl.String("notes", "", "notes")
	kind := fl.String("type", "", "maintenance type (history filter, or recorded type for component services)")
	since := fl.String("since", "", "history: only services on or after this date")
	if err := fl.Parse(args); err != nil {
		return err
	}

	if action == "history" {
		from, err := optionalDate(*since)
		if err != nil {
			return err
		}
		filter := store.RecordFilter{EquipmentID: *equipment, ComponentID: *id, MaintenanceType: *kind}
		if from != nil {
			filter.Since = *from
		}
		records, err := a.svc.History(ctx, filter)
		if err != nil {
			return err
		}
		printHistory(a.out, records)
		return nil
	}

	req := maintenance.PerformRequest{Notes: *notes, MaintenanceType: *kind}
	if *date != "" {
		if req.Date, err = parse.ParseReadingDate(*date); err != nil {
			return err
		}
	}
	if *hours != "" {
		h, err := parse.ParseHours(*hours)
		if err != nil {
			return err
		}
		req.HourMeter = &h
	}

	if action == "component" {
		if err := requireID("id", *id); err != nil {
			return err
		}
		record, err := a.svc.PerformMaintenance(ctx, *id, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s serviced at %.1f h, next maintenance at %.1f h\n", record.ComponentName, record.HourMeter, record.NextMaintenanceHour)
		return nil
	}

	if err := requireID("equipment", *equipment); err != nil {
		return err
	}
	record, err := a.svc.PerformPeriodicService(ctx, *equipment, *interval, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s recorded at %.1f h, next due at %.1f h\n", record.MaintenanceType, record.HourMeter, record.NextMaintenanceHour)
	return nil
}

func runStatus(ctx context.Context, a *app, args []string) error {
	fl := newFlagSet("status")
	id := fl.Int64("id", 0, "equipment ID")
	asJSON := fl.Bool("json", false, "print JSON")
	if err := fl.Parse(args); err != nil {
		return err
	}
	if err := requireID("id", *id); err != nil {
		return err
	}
	report, err := a.svc.EquipmentStatus(ctx, *id)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(a.out, report)
	}
	printStatus(a.out, report)
	return nil
}

// fleetSchedule builds the schedule and refreshes the fleet gauges.
func (a *app) fleetSchedule(ctx context.Context) (projection.Schedule, error) {
	sched, err := a.svc.FleetSchedule(ctx)
	if err != nil {
		return projection.Schedule{}, err
	}
	counts, err := a.svc.StatusCounts(ctx)
	if err != nil {
		return projection.Schedule{}, err
	}
	a.metrics.ObserveSchedule(sched)
	a.metrics.ObserveStatusCounts(counts)
	return sched, nil
}

func runSchedule(ctx context.Context, a *app, args []string) error {
	fl := newFlagSet("schedule")
	asJSON := fl.Bool("json", false, "print JSON")
	if err := fl.Parse(args); err != nil {
		return err
	}
	sched, err := a.fleetSchedule(ctx)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(a.out, sched)
	}
	printSchedule(a.out, sched)
	return nil
}

type paretoFlags struct {
	by, from, to *string
}

func (p paretoFlags) resolve() (projection.Dimension, time.Time, time.Time, error) {
	dim, err := projection.ParseDimension(*p.by)
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}
	var from, to time.Time
	if f, err := optionalDate(*p.from); err != nil {
		return "", time.Time{}, time.Time{}, err
	} else if f != nil {
		from = *f
	}
	if t, err := optionalDate(*p.to); err != nil {
		return "", time.Time{}, time.Time{}, err
	} else if t != nil {
		to = *t
	}
	return dim, from, to, nil
}

func runPareto(ctx context.Context, a *app, args []string) error {
	fl := newFlagSet("pareto")
	pf := paretoFlags{
		by:   fl.String("by", string(projection.DimensionArea), "area or sub_component (aliases: subcomponent, sub-component)"),
		from: fl.String("from", "", "first breakdown date"),
		to:   fl.String("to", "", "last breakdown date"),
	}
	if err := fl.Parse(args); err != nil {
		return err
	}
	dim, from, to, err := pf.resolve()
	if err != nil {
		return err
	}
	rows, err := a.svc.ParetoReport(ctx, dim, from, to)
	if err != nil {
		return err
	}
	printPareto(a.out, dim, rows)
	return nil
}

func runReconcile(ctx context.Context, a *app, args []string) error {
	if err := newFlagSet("reconcile").Parse(args); err != nil {
		return err
	}
	res, err := reconcile.NewService(a.store).RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d units checked, %d rewritten, %d failed\n", res.Checked, res.Rewritten, res.Failed)
	if res.Failed > 0 {
		return fmt.Errorf("%d units could not be reconciled", res.Failed)
	}
	return nil
}

func runAlerts(ctx context.Context, a *app, args []string) error {
	fl := newFlagSet("alerts")
	dryRun := fl.Bool("dry-run", false, "log alerts instead of pushing them")
	if err := fl.Parse(args); err != nil {
		return err
	}

	push := a.cfg.Push
	if !*dryRun && (push.PublicKey == "" || push.PrivateKey == "") {
		return errors.New("VAPID keys must be configured to push alerts; use -dry-run to preview")
	}
	sched, err := a.fleetSchedule(ctx)
	if err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Limit(a.cfg.Alerts.RateLimitPerSec), a.cfg.Alerts.Burst)
	pool := notification.NewWorkerPool(a.cfg.WorkerPool.Size, a.store, &webpush.Options{
		VAPIDPublicKey:  push.PublicKey,
		VAPIDPrivateKey: push.PrivateKey,
		Subscriber:      push.Subject,
		TTL:             push.TTL,
	}, limiter)
	if *dryRun {
		pool.WithSender(&notification.LogSender{})
	}

	sweeper := notification.NewSweeper(pool, a.cfg.Alerts)
	if err := sweeper.LoadState(); err != nil {
		return err
	}

	pool.Start(ctx)
	res, sweepErr := sweeper.Sweep(ctx, sched)
	pool.Close()
	pool.Wait()

	a.metrics.AlertsDispatched(res.Dispatched)
	stats := pool.Stats()
	fmt.Fprintf(a.out, "%d alerts dispatched, %d suppressed by cooldown; %d sent, %d failed, %d expired subscriptions removed\n",
		res.Dispatched, res.Suppressed, stats.Sent, stats.Failed, stats.Expired)

	if !*dryRun {
		if err := sweeper.SaveState(); err != nil {
			return err
		}
	}
	return sweepErr
}

func runExport(ctx context.Context, a *app, args []string) error {
	fl := newFlagSet("export")
	report := fl.String("report", "schedule", "schedule, pareto, history or status")
	output := fl.String("o", "", "output file, .xlsx or .csv")
	id := fl.Int64("id", 0, "equipment ID (status, history)")
	pf := paretoFlags{
		by:   fl.String("by", string(projection.DimensionArea), "pareto: area or sub_component (aliases: subcomponent, sub-component)"),
		from: fl.String("from", "", "pareto: first breakdown date"),
		to:   fl.String("to", "", "pareto: last breakdown date"),
	}
	if err := fl.Parse(args); err != nil {
		return err
	}
	if *output == "" {
		return errors.New("-o is required")
	}

	var tables []export.Table
	switch *report {
	case "schedule":
		sched, err := a.fleetSchedule(ctx)
		if err != nil {
			return err
		}
		tables = export.ScheduleTables(sched)
	case "pareto":
		dim, from, to, err := pf.resolve()
		if err != nil {
			return err
		}
		rows, err := a.svc.ParetoReport(ctx, dim, from, to)
		if err != nil {
			return err
		}
		tables = []export.Table{export.ParetoTable(dim, rows)}
	case "history":
		records, err := a.svc.History(ctx, store.RecordFilter{EquipmentID: *id})
		if err != nil {
			return err
		}
		tables = []export.Table{export.HistoryTable(records)}
	case "status":
		if err := requireID("id", *id); err != nil {
			return err
		}
		r, err := a.svc.EquipmentStatus(ctx, *id)
		if err != nil {
			return err
		}
		tables = []export.Table{export.StatusTable(r.Unit, r.Components, r.Periodic)}
	default:
		return fmt.Errorf("unknown report %q", *report)
	}

	f, err := os.Create(*output)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(*output)) {
	case ".xlsx":
		err = export.WriteXLSX(f, tables...)
	case ".csv":
		err = export.WriteCSV(f, export.Merge(*report, tables...))
	default:
		err = fmt.Errorf("unsupported export format %q, use .xlsx or .csv", filepath.Ext(*output))
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(*output)
		return err
	}
	fmt.Fprintf(a.out, "%s report written to %s\n", *report, *output)
	return nil
}
