package glowmarkt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Period
		wantErr bool
	}{
		{name: "half hour", input: "half-hour", want: PeriodHalfHour},
		{name: "hour", input: "hour", want: PeriodHour},
		{name: "day", input: "day", want: PeriodDay},
		{name: "week", input: "week", want: PeriodWeek},
		{name: "unknown", input: "fortnight", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "wrong case", input: "Hour", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeriod(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriodCodes(t *testing.T) {
	tests := []struct {
		period   Period
		code     string
		duration time.Duration
		str      string
	}{
		{PeriodHalfHour, "PT30M", 30 * time.Minute, "half-hour"},
		{PeriodHour, "PT1H", time.Hour, "hour"},
		{PeriodDay, "P1D", 24 * time.Hour, "day"},
		{PeriodWeek, "P1W", 7 * 24 * time.Hour, "week"},
	}

	for _, tt := range tests {
		t.Run(tt.str, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.period.Code())
			assert.Equal(t, tt.duration, tt.period.Duration())
			assert.Equal(t, tt.str, tt.period.String())
		})
	}
}

func TestPeriodZeroValueIsHalfHour(t *testing.T) {
	var p Period
	assert.Equal(t, PeriodHalfHour, p)
	assert.Equal(t, "PT30M", p.Code())
}
