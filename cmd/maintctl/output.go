package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"maintenance-backend/internal/maintenance"
	"maintenance-backend/internal/model"
	"maintenance-backend/internal/projection"
)

func newTable(w io.Writer, header string) *tabwriter.Writer {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	return tw
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func rateLabel(unit model.EquipmentUnit) string {
	if unit.UseAutoCalculation {
		return fmt.Sprintf("%.1f (auto)", unit.AverageHoursPerDay)
	}
	return fmt.Sprintf("%.1f (manual)", unit.AverageHoursPerDay)
}

func printEquipment(w io.Writer, units []model.EquipmentUnit) {
	tw := newTable(w, "ID\tNAME\tTYPE\tMODEL\tHOUR METER\tHOURS/DAY\tLAST UPDATED")
	for _, u := range units {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f\t%s\t%s\n", u.ID, u.Name, u.Type, u.Model, u.HourMeter, rateLabel(u), u.LastUpdated.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func printReadings(w io.Writer, readings []model.HourMeterReading) {
	tw := newTable(w, "ID\tDATE\tHOURS")
	for _, r := range readings {
		fmt.Fprintf(tw, "%d\t%s\t%.1f\n", r.ID, r.ReadingDate.Format(projection.DateLayout), r.Hours)
	}
	tw.Flush()
}

func printComponents(w io.Writer, components []model.Component) {
	tw := newTable(w, "ID\tEQUIPMENT\tNAME\tCATEGORY\tINTERVAL\tLAST\tNEXT")
	for _, c := range components {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%.0f\t%.1f\t%.1f\n", c.ID, c.EquipmentID, c.Name, c.Category, c.MaintenanceInterval, c.LastMaintenanceHour, c.NextMaintenanceHour)
	}
	tw.Flush()
}

func printSettings(w io.Writer, settings []model.MaintenanceSetting) {
	tw := newTable(w, "ID\tNAME\tCATEGORY\tINTERVAL")
	for _, s := range settings {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.0f\n", s.ID, s.Name, s.Category, s.Interval)
	}
	tw.Flush()
}

func printHistory(w io.Writer, records []model.MaintenanceRecord) {
	tw := newTable(w, "DATE\tEQUIPMENT\tITEM\tTYPE\tHOUR METER\tNEXT\tNOTES")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%.1f\t%.1f\t%s\n", r.Date.Format(projection.DateLayout), r.EquipmentID, r.ComponentName, r.MaintenanceType, r.HourMeter, r.NextMaintenanceHour, r.Notes)
	}
	tw.Flush()
}

func printStatus(w io.Writer, r *maintenance.EquipmentReport) {
	rate := projection.NotAvailable
	if r.Rate.Known {
		rate = fmt.Sprintf("%.1f h/day", r.Rate.HoursPerDay)
	}
	fmt.Fprintf(w, "%s (id %d)  hour meter %.1f  usage %s\n\n", r.Unit.Name, r.Unit.ID, r.Unit.HourMeter, rate)

	tw := newTable(w, "ITEM\tCATEGORY\tLAST\tNEXT\tREMAINING\tSTATUS\tPROJECTED")
	for _, c := range r.Components {
		fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.1f\t%.1f\t%s\t%s\n", c.Component.Name, c.Component.Category, c.Component.LastMaintenanceHour, c.Component.NextMaintenanceHour, c.Projection.HoursRemaining, c.Status, c.DueDate)
	}
	for _, p := range r.Periodic {
		last := "-"
		if p.HasRecord {
			last = fmt.Sprintf("%.1f", p.LastServiceHour)
		}
		fmt.Fprintf(tw, "%s\tperiodic\t%s\t%.1f\t%.1f\t%s\t%s\n", p.MaintenanceType, last, p.NextDueHour, p.Projection.HoursRemaining, p.Status, p.DueDate)
	}
	tw.Flush()
}

func printSchedule(w io.Writer, s projection.Schedule) {
	fmt.Fprintf(w, "OVERDUE (%d)\n", len(s.Overdue))
	tw := newTable(w, "EQUIPMENT\tCOMPONENT\tTYPE\tCURRENT\tDUE AT\tOVERDUE BY")
	for _, i := range s.Overdue {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%.1f\t%.1f\n", i.EquipmentName, i.Component, i.Type, i.CurrentHours, i.NextMaintenanceHour, i.OverdueBy())
	}
	tw.Flush()

	fmt.Fprintf(w, "\nUPCOMING within %.0f h (%d)\n", projection.UpcomingWindow, len(s.Upcoming))
	tw = newTable(w, "EQUIPMENT\tCOMPONENT\tTYPE\tCURRENT\tDUE AT\tREMAINING\tSTATUS")
	for _, i := range s.Upcoming {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f\t%.1f\t%.1f\t%s\n", i.EquipmentName, i.Component, i.Type, i.CurrentHours, i.NextMaintenanceHour, i.HoursRemaining, i.Status)
	}
	tw.Flush()
}

func printPareto(w io.Writer, dim projection.Dimension, rows []projection.ParetoRow) {
	tw := newTable(w, fmt.Sprintf("%s\tDURATION (H)\tCUMULATIVE %%", dim))
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\n", r.Label, r.Duration, r.CumulativePercent)
	}
	tw.Flush()
}
