package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"maintenance-backend/internal/model"
)

func TestValidateReading(t *testing.T) {
	history := []model.HourMeterReading{reading(1, 0, 100), reading(2, 10, 300)}

	testCases := []struct {
		name    string
		current float64
		history []model.HourMeterReading
		date    time.Time
		hours   float64
		wantErr bool
	}{
		{
			name:    "regression below current is rejected regardless of date",
			current: 100,
			date:    day0.AddDate(1, 0, 0),
			hours:   50,
			wantErr: true,
		},
		{
			name:    "first reading equal to current is accepted",
			current: 100,
			date:    day0,
			hours:   100,
		},
		{
			name:    "plausible next reading is accepted",
			current: 300,
			history: history,
			date:    day0.AddDate(0, 0, 12),
			hours:   340,
		},
		{
			name:    "more than twenty four hours per day is rejected",
			current: 300,
			history: history,
			date:    day0.AddDate(0, 0, 12),
			hours:   349,
			wantErr: true,
		},
		{
			name:    "same day increase above twenty four hours is rejected",
			current: 300,
			history: history,
			date:    day0.AddDate(0, 0, 10),
			hours:   325,
			wantErr: true,
		},
		{
			name:    "backdated reading above a later reading is rejected",
			current: 300,
			history: history,
			date:    day0.AddDate(0, 0, 5),
			hours:   310,
			wantErr: true,
		},
		{
			name:    "backdated reading equal to later reading is accepted",
			current: 300,
			history: history,
			date:    day0.AddDate(0, 0, 9),
			hours:   300,
		},
		{
			name:    "negative hours are rejected",
			current: 0,
			date:    day0,
			hours:   -1,
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateReading(tc.current, tc.history, tc.date, tc.hours)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				var ve *ValidationError
				assert.ErrorAs(t, err, &ve)
				assert.NotEmpty(t, ve.Reason)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
