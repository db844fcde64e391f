package projection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maintenance-backend/internal/model"
)

func TestPareto(t *testing.T) {
	rows, err := Pareto([]ParetoEntry{{Label: "A", Duration: 30}, {Label: "B", Duration: 70}})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "B", rows[0].Label)
	assert.Equal(t, 70.0, rows[0].Duration)
	assert.InDelta(t, 70.0, rows[0].CumulativePercent, 1e-9)
	assert.Equal(t, "A", rows[1].Label)
	assert.Equal(t, 30.0, rows[1].Duration)
	assert.InDelta(t, 100.0, rows[1].CumulativePercent, 1e-9)
}

func TestPareto_GroupsAndKeepsFirstSeenOrderOnTies(t *testing.T) {
	rows, err := Pareto([]ParetoEntry{
		{Label: "Hydraulics", Duration: 5},
		{Label: "Engine", Duration: 10},
		{Label: "Hydraulics", Duration: 5},
		{Label: "Electrical", Duration: 2},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Hydraulics", "Engine", "Electrical"}, []string{rows[0].Label, rows[1].Label, rows[2].Label})
	assert.Equal(t, 10.0, rows[0].Duration)
	assert.InDelta(t, 100.0, rows[2].CumulativePercent, 1e-9)
}

func TestPareto_ZeroDurations(t *testing.T) {
	rows, err := Pareto([]ParetoEntry{{Label: "A", Duration: 0}, {Label: "B", Duration: 0}})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.False(t, math.IsNaN(r.CumulativePercent))
		assert.Equal(t, 0.0, r.CumulativePercent)
	}

	rows, err = Pareto(nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPareto_RejectsNegativeDurations(t *testing.T) {
	_, err := Pareto([]ParetoEntry{{Label: "A", Duration: -1}})
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestBreakdownEntries(t *testing.T) {
	breakdowns := []model.Breakdown{
		{Area: "Engine", SubComponent: "Turbo", DurationHours: 4},
		{Area: "Engine", SubComponent: "", DurationHours: 2},
	}

	entries, err := BreakdownEntries(breakdowns, DimensionArea)
	require.NoError(t, err)
	assert.Equal(t, []ParetoEntry{{Label: "Engine", Duration: 4}, {Label: "Engine", Duration: 2}}, entries)

	entries, err = BreakdownEntries(breakdowns, DimensionSubComponent)
	require.NoError(t, err)
	assert.Equal(t, "Turbo", entries[0].Label)
	assert.Equal(t, unspecifiedLabel, entries[1].Label)

	_, err = BreakdownEntries(breakdowns, Dimension("shift"))
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestParseDimension(t *testing.T) {
	d, err := ParseDimension(" Area ")
	require.NoError(t, err)
	assert.Equal(t, DimensionArea, d)

	for _, alias := range []string{"sub_component", "subcomponent", "sub-component"} {
		d, err = ParseDimension(alias)
		require.NoError(t, err, alias)
		assert.Equal(t, DimensionSubComponent, d)
	}

	_, err = ParseDimension("operator")
	assert.Error(t, err)
}
