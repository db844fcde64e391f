// Package export renders reports as spreadsheet tables.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"maintenance-backend/internal/model"
	"maintenance-backend/internal/projection"
)

// Table is one sheet of an export.
type Table struct {
	Sheet   string
	Headers []string
	Rows    [][]any
}

// ScheduleTables lists the upcoming and overdue components on separate sheets.
func ScheduleTables(s projection.Schedule) []Table {
	headers := []string{"Equipment", "Component", "Type", "Current Hours", "Next Maintenance", "Hours Remaining", "Status"}
	upcoming := Table{Sheet: "Upcoming", Headers: headers}
	for _, item := range s.Upcoming {
		upcoming.Rows = append(upcoming.Rows, scheduleRow(item))
	}
	overdue := Table{Sheet: "Overdue", Headers: headers}
	for _, item := range s.Overdue {
		overdue.Rows = append(overdue.Rows, scheduleRow(item))
	}
	return []Table{upcoming, overdue}
}

func scheduleRow(item projection.ScheduleItem) []any {
	return []any{item.EquipmentName, item.Component, item.Type, item.CurrentHours, item.NextMaintenanceHour, item.HoursRemaining, string(item.Status)}
}

// ParetoTable lists the ranked downtime causes.
func ParetoTable(dim projection.Dimension, rows []projection.ParetoRow) Table {
	t := Table{Sheet: "Pareto", Headers: []string{string(dim), "Duration (h)", "Cumulative %"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Label, r.Duration, round(r.CumulativePercent, 2)})
	}
	return t
}

// HistoryTable lists performed services.
func HistoryTable(records []model.MaintenanceRecord) Table {
	t := Table{Sheet: "History", Headers: []string{"Date", "Equipment ID", "Component", "Type", "Hour Meter", "Next Maintenance", "Notes"}}
	for _, r := range records {
		t.Rows = append(t.Rows, []any{r.Date, r.EquipmentID, r.ComponentName, r.MaintenanceType, r.HourMeter, r.NextMaintenanceHour, r.Notes})
	}
	return t
}

// StatusTable lists the components and periodic intervals of one unit.
func StatusTable(unit model.EquipmentUnit, components []projection.ComponentStatus, periodic []projection.PeriodicCheck) Table {
	t := Table{Sheet: sheetName(unit.Name), Headers: []string{"Item", "Category", "Last Service", "Next Due", "Hours Remaining", "Status", "Projected Date"}}
	for _, c := range components {
		t.Rows = append(t.Rows, []any{c.Component.Name, c.Component.Category, c.Component.LastMaintenanceHour, c.Component.NextMaintenanceHour, c.Projection.HoursRemaining, string(c.Status), c.DueDate})
	}
	for _, p := range periodic {
		t.Rows = append(t.Rows, []any{p.MaintenanceType, "periodic", p.LastServiceHour, p.NextDueHour, p.Projection.HoursRemaining, string(p.Status), p.DueDate})
	}
	return t
}

// Merge concatenates tables sharing the first table's headers into one, for formats
// that hold a single table.
func Merge(sheet string, tables ...Table) Table {
	if len(tables) == 1 {
		return tables[0]
	}
	merged := Table{Sheet: sheet}
	for i, t := range tables {
		if i == 0 {
			merged.Headers = t.Headers
		}
		merged.Rows = append(merged.Rows, t.Rows...)
	}
	return merged
}

// sheetName trims a name to the 31 characters a worksheet name may hold.
func sheetName(name string) string {
	r := []rune(name)
	if len(r) == 0 {
		return "Status"
	}
	if len(r) > 31 {
		r = r[:31]
	}
	return string(r)
}

func round(v float64, places int) float64 {
	p, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	return p
}

func cell(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.Format(projection.DateLayout)
	case *time.Time:
		if x == nil {
			return ""
		}
		return x.Format(projection.DateLayout)
	}
	return v
}

// WriteXLSX writes every table to its own worksheet.
func WriteXLSX(w io.Writer, tables ...Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("no tables to export")
	}
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.Sheet); err != nil {
				return fmt.Errorf("failed to name sheet %q: %w", t.Sheet, err)
			}
		} else if _, err := f.NewSheet(t.Sheet); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", t.Sheet, err)
		}
		if err := writeSheet(f, t, bold); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func writeSheet(f *excelize.File, t Table, headerStyle int) error {
	header := make([]any, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(t.Sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", t.Sheet, err)
	}
	if len(t.Headers) > 0 {
		last, err := excelize.CoordinatesToCellName(len(t.Headers), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(t.Sheet, "A1", last, headerStyle); err != nil {
			return err
		}
	}

	for i, row := range t.Rows {
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = cell(v)
		}
		start, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Sheet, start, &values); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", i+1, t.Sheet, err)
		}
	}
	return nil
}

// WriteCSV writes a single table.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return err
	}
	for _, row := range t.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = csvValue(cell(v))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		return fmt.Sprint(x)
	}
}
