package projection

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"maintenance-backend/internal/model"
)

// Dimension selects the breakdown attribute Pareto rows are grouped by.
type Dimension string

const (
	DimensionArea         Dimension = "area"
	DimensionSubComponent Dimension = "sub_component"
)

const unspecifiedLabel = "Unspecified"

// ParseDimension accepts "area" or "sub_component" (also "subcomponent" and "sub-component").
func ParseDimension(s string) (Dimension, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "area":
		return DimensionArea, nil
	case "sub_component", "subcomponent", "sub-component":
		return DimensionSubComponent, nil
	}
	return "", fmt.Errorf("%w: unknown pareto dimension %q", ErrMalformedInput, s)
}

// ParetoEntry is one duration tagged with a category.
type ParetoEntry struct {
	Label    string
	Duration float64
}

// ParetoRow is one bar of a Pareto chart.
type ParetoRow struct {
	Label             string  `json:"label"`
	Duration          float64 `json:"duration"`
	CumulativePercent float64 `json:"cumulativePercent"`
}

// Pareto groups entries by label, sorts the sums descending and attaches the running
// cumulative percentage of the grand total. Equal sums keep first-seen order.
// A zero grand total is replaced by 1, so every percentage is 0.
func Pareto(entries []ParetoEntry) ([]ParetoRow, error) {
	rows := []ParetoRow{}
	index := make(map[string]int)
	var total float64
	for _, e := range entries {
		if math.IsNaN(e.Duration) || math.IsInf(e.Duration, 0) || e.Duration < 0 {
			return nil, fmt.Errorf("%w: duration for %q must be a non-negative number, got %v", ErrMalformedInput, e.Label, e.Duration)
		}
		i, ok := index[e.Label]
		if !ok {
			i = len(rows)
			index[e.Label] = i
			rows = append(rows, ParetoRow{Label: e.Label})
		}
		rows[i].Duration += e.Duration
		total += e.Duration
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Duration > rows[j].Duration
	})

	if total == 0 {
		total = 1
	}
	var cumulative float64
	for i := range rows {
		cumulative += rows[i].Duration
		rows[i].CumulativePercent = cumulative / total * 100
	}
	return rows, nil
}

// BreakdownEntries tags each breakdown's repair duration with the chosen dimension.
func BreakdownEntries(breakdowns []model.Breakdown, dim Dimension) ([]ParetoEntry, error) {
	entries := make([]ParetoEntry, 0, len(breakdowns))
	for _, b := range breakdowns {
		var label string
		switch dim {
		case DimensionArea:
			label = b.Area
		case DimensionSubComponent:
			label = b.SubComponent
		default:
			return nil, fmt.Errorf("%w: unknown pareto dimension %q", ErrMalformedInput, dim)
		}
		label = strings.TrimSpace(label)
		if label == "" {
			label = unspecifiedLabel
		}
		entries = append(entries, ParetoEntry{Label: label, Duration: b.DurationHours})
	}
	return entries, nil
}
