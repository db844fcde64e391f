package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"maintenance-backend/internal/maintenance"
	"maintenance-backend/internal/model"
	"maintenance-backend/internal/parse"
	"maintenance-backend/internal/projection"
)

// setFlags returns the names of the flags given on the command line.
func setFlags(fl *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fl.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// dateFlag parses an optional date flag, defaulting to today.
func dateFlag(a *app, raw string) (time.Time, error) {
	if raw == "" {
		return a.svc.Today(), nil
	}
	return parse.ParseReadingDate(raw)
}

func optionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := parse.ParseReadingDate(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func requireID(name string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("-%s is required", name)
	}
	return nil
}

// --- equipment ---

func runEquipment(ctx context.Context, a *app, args []string) error {
	action, args, err := verb("equipment", args, "add", "list", "show", "update", "delete")
	if err != nil {
		return err
	}
	fl := newFlagSet("equipment " + action)
	id := fl.Int64("id", 0, "equipment ID")
	name := fl.String("name", "", "unit name")
	kind := fl.String("type", "", "equipment type, e.g. haul truck")
	mdl := fl.String("model", "", "model")
	serial := fl.String("serial", "", "serial number")
	manufacturer := fl.String("manufacturer", "", "manufacturer")
	hours := fl.String("hours", "0", "starting hour meter (add only)")
	auto := fl.Bool("auto", true, "estimate hours per day from readings")
	rate := fl.Float64("rate", 0, "manual hours per day, used with -auto=false; 0 means unknown")
	if err := fl.Parse(args); err != nil {
		return err
	}

	switch action {
	case "add":
		meter, err := parse.ParseHours(*hours)
		if err != nil {
			return err
		}
		unit := &model.EquipmentUnit{
			Name: *name, Type: *kind, Model: *mdl, SerialNumber: *serial, Manufacturer: *manufacturer,
			HourMeter: meter, UseAutoCalculation: *auto, AverageHoursPerDay: *rate,
		}
		if err := a.svc.CreateEquipment(ctx, unit); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "equipment %d created\n", unit.ID)
		return nil

	case "list":
		units, err := a.svc.ListEquipment(ctx)
		if err != nil {
			return err
		}
		printEquipment(a.out, units)
		return nil

	case "show":
		if err := requireID("id", *id); err != nil {
			return err
		}
		unit, err := a.svc.GetEquipment(ctx, *id)
		if err != nil {
			return err
		}
		return printJSON(a.out, unit)

	case "update":
		if err := requireID("id", *id); err != nil {
			return err
		}
		unit, err := a.svc.GetEquipment(ctx, *id)
		if err != nil {
			return err
		}
		set := setFlags(fl)
		if set["name"] {
			unit.Name = *name
		}
		if set["type"] {
			unit.Type = *kind
		}
		if set["model"] {
			unit.Model = *mdl
		}
		if set["serial"] {
			unit.SerialNumber = *serial
		}
		if set["manufacturer"] {
			unit.Manufacturer = *manufacturer
		}
		if set["auto"] {
			unit.UseAutoCalculation = *auto
		}
		if set["rate"] {
			unit.AverageHoursPerDay = *rate
		}
		if set["hours"] {
			return errors.New("the hour meter only changes through readings")
		}
		if err := a.svc.UpdateEquipment(ctx, unit); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "equipment %d updated\n", unit.ID)
		return nil

	default: // delete
		if err := requireID("id", *id); err != nil {
			return err
		}
		if err := a.svc.DeleteEquipment(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "equipment %d deleted\n", *id)
		return nil
	}
}

// --- readings ---

func (a *app) recordReading(ctx context.Context, equipmentID int64, date time.Time, hours float64) error {
	_, err := a.svc.RecordReading(ctx, equipmentID, date, hours)
	switch {
	case err == nil:
		a.metrics.ReadingAccepted()
	case errors.Is(err, projection.ErrValidation):
		a.metrics.ReadingRejected()
	}
	return err
}

func runReading(ctx context.Context, a *app, args []string) error {
	action, args, err := verb("reading", args, "add", "list")
	if err != nil {
		return err
	}
	fl := newFlagSet("reading " + action)
	id := fl.Int64("id", 0, "equipment ID")
	date := fl.String("date", "", "reading date (default today)")
	hours := fl.String("hours", "", "hour meter value")
	if err := fl.Parse(args); err != nil {
		return err
	}
	if err := requireID("id", *id); err != nil {
		return err
	}

	if action == "list" {
		readings, err := a.svc.ListReadings(ctx, *id)
		if err != nil {
			return err
		}
		printReadings(a.out, readings)
		return nil
	}

	day, err := dateFlag(a, *date)
	if err != nil {
		return err
	}
	value, err := parse.ParseHours(*hours)
	if err != nil {
		return err
	}
	if err := a.recordReading(ctx, *id, day, value); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "reading of %.1f h on %s recorded for equipment %d\n", value, day.Format(projection.DateLayout), *id)
	return nil
}

func runImportReadings(ctx context.Context, a *app, args []string) error {
	fl := newFlagSet("import-readings")
	file := fl.String("file", "", "CSV file with equipment,date,hours rows (- for stdin)")
	if err := fl.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	in := os.Stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	records, rowErrs, err := parse.ReadReadings(in)
	if err != nil {
		return err
	}

	units, err := a.svc.ListEquipment(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]int64, len(units))
	for _, u := range units {
		byName[strings.ToLower(u.Name)] = u.ID
	}

	for _, rowErr := range rowErrs {
		fmt.Fprintln(os.Stderr, rowErr)
	}
	failed := len(rowErrs)
	imported := 0
	for _, rec := range records {
		id, ok := byName[strings.ToLower(rec.Equipment)]
		if !ok {
			if n, err := strconv.ParseInt(rec.Equipment, 10, 64); err == nil {
				id, ok = n, true
			}
		}
		if !ok {
			fmt.Fprintf(os.Stderr, "line %d: unknown equipment %q\n", rec.Line, rec.Equipment)
			failed++
			continue
		}
		if err := a.recordReading(ctx, id, rec.Date, rec.Hours); err != nil {
			fmt.Fprintf(os.Stderr, "line %d: %v\n", rec.Line, err)
			failed++
			continue
		}
		imported++
	}

	log.WithFields(log.Fields{"imported": imported, "failed": failed}).Info("reading import finished")
	fmt.Fprintf(a.out, "%d readings imported, %d rejected\n", imported, failed)
	if failed > 0 {
		return fmt.Errorf("%d rows were not imported", failed)
	}
	return nil
}

// --- components ---

func runComponent(ctx context.Context, a *app, args []string) error {
	action, args, err := verb("component", args, "add", "from-setting", "list", "update", "delete")
	if err != nil {
		return err
	}
	fl := newFlagSet("component " + action)
	id := fl.Int64("id", 0, "component ID")
	equipment := fl.Int64("equipment", 0, "equipment ID")
	setting := fl.Int64("setting", 0, "maintenance setting ID (from-setting)")
	name := fl.String("name", "", "component name")
	category := fl.String("category", model.CategoryMajorOverhaul, "major_overhaul or midlife")
	interval := fl.Float64("interval", 0, "maintenance interval in hours")
	last := fl.String("last", "0", "hour meter at the last service")
	serial := fl.String("serial", "", "serial number")
	installed := fl.String("installed", "", "installation date")
	if err := fl.Parse(args); err != nil {
		return err
	}

	lastHour, err := parse.ParseHours(*last)
	if err != nil {
		return err
	}
	installedAt, err := optionalDate(*installed)
	if err != nil {
		return err
	}

	switch action {
	case "add":
		if err := requireID("equipment", *equipment); err != nil {
			return err
		}
		c := &model.Component{
			EquipmentID: *equipment, Name: *name, Category: *category, SerialNumber: *serial,
			MaintenanceInterval: *interval, InstallationDate: installedAt, LastMaintenanceHour: lastHour,
		}
		if err := a.svc.CreateComponent(ctx, c); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "component %d created, next maintenance at %.1f h\n", c.ID, c.NextMaintenanceHour)
		return nil

	case "from-setting":
		if err := requireID("setting", *setting); err != nil {
			return err
		}
		if err := requireID("equipment", *equipment); err != nil {
			return err
		}
		c, err := a.svc.CreateComponentFromSetting(ctx, *setting, *equipment, maintenance.ComponentOverrides{
			Name: *name, SerialNumber: *serial, InstallationDate: installedAt, LastMaintenanceHour: lastHour,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "component %d created from setting %d, next maintenance at %.1f h\n", c.ID, *setting, c.NextMaintenanceHour)
		return nil

	case "list":
		components, err := a.svc.ListComponents(ctx, *equipment)
		if err != nil {
			return err
		}
		printComponents(a.out, components)
		return nil

	case "update":
		if err := requireID("id", *id); err != nil {
			return err
		}
		c, err := a.store.GetComponent(ctx, *id)
		if err != nil {
			return err
		}
		set := setFlags(fl)
		if set["name"] {
			c.Name = *name
		}
		if set["category"] {
			c.Category = *category
		}
		if set["interval"] {
			c.MaintenanceInterval = *interval
		}
		if set["last"] {
			c.LastMaintenanceHour = lastHour
		}
		if set["serial"] {
			c.SerialNumber = *serial
		}
		if set["installed"] {
			c.InstallationDate = installedAt
		}
		if err := a.svc.UpdateComponent(ctx, c); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "component %d updated, next maintenance at %.1f h\n", c.ID, c.NextMaintenanceHour)
		return nil

	default: // delete
		if err := requireID("id", *id); err != nil {
			return err
		}
		if err := a.svc.DeleteComponent(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "component %d deleted\n", *id)
		return nil
	}
}

// --- settings ---

func runSetting(ctx context.Context, a *app, args []string) error {
	action, args, err := verb("setting", args, "add", "list", "delete")
	if err != nil {
		return err
	}
	fl := newFlagSet("setting " + action)
	id := fl.Int64("id", 0, "setting ID")
	name := fl.String("name", "", "component name")
	category := fl.String("category", model.CategoryMajorOverhaul, "major_overhaul or midlife")
	interval := fl.Float64("interval", 0, "maintenance interval in hours")
	if err := fl.Parse(args); err != nil {
		return err
	}

	switch action {
	case "add":
		s := &model.MaintenanceSetting{Name: *name, Category: *category, Interval: *interval}
		if err := a.svc.CreateSetting(ctx, s); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "setting %d created\n", s.ID)
	case "list":
		settings, err := a.svc.ListSettings(ctx)
		if err != nil {
			return err
		}
		printSettings(a.out, settings)
	default:
		if err := requireID("id", *id); err != nil {
			return err
		}
		if err := a.svc.DeleteSetting(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "setting %d deleted\n", *id)
	}
	return nil
}

// --- breakdowns ---

func runBreakdown(ctx context.Context, a *app, args []string) error {
	action, args, err := verb("breakdown", args, "add")
	if err != nil {
		return err
	}
	fl := newFlagSet("breakdown " + action)
	equipment := fl.Int64("equipment", 0, "equipment ID")
	area := fl.String("area", "", "affected area, e.g. Engine")
	sub := fl.String("sub", "", "affected sub-component")
	date := fl.String("date", "", "breakdown date (default today)")
	duration := fl.String("duration", "", "repair duration in hours")
	desc := fl.String("desc", "", "description")
	if err := fl.Parse(args); err != nil {
		return err
	}
	if err := requireID("equipment", *equipment); err != nil {
		return err
	}
	day, err := dateFlag(a, *date)
	if err != nil {
		return err
	}
	hours, err := parse.ParseHours(*duration)
	if err != nil {
		return err
	}

	b := &model.Breakdown{EquipmentID: *equipment, Area: *area, SubComponent: *sub, Date: day, DurationHours: hours, Description: *desc}
	if err := a.svc.RecordBreakdown(ctx, b); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "breakdown %d recorded\n", b.ID)
	return nil
}
