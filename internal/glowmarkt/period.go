package glowmarkt

import (
	"fmt"
	"time"
)

// Period is the fixed aggregation granularity of a readings request. The
// zero value is PeriodHalfHour, the finest granularity the API offers.
type Period int

const (
	PeriodHalfHour Period = iota
	PeriodHour
	PeriodDay
	PeriodWeek
)

// ParsePeriod converts the user-facing period name into a Period.
func ParsePeriod(s string) (Period, error) {
	switch s {
	case "half-hour":
		return PeriodHalfHour, nil
	case "hour":
		return PeriodHour, nil
	case "day":
		return PeriodDay, nil
	case "week":
		return PeriodWeek, nil
	default:
		return 0, fmt.Errorf("invalid period %q: want half-hour, hour, day or week", s)
	}
}

func (p Period) String() string {
	switch p {
	case PeriodHour:
		return "hour"
	case PeriodDay:
		return "day"
	case PeriodWeek:
		return "week"
	default:
		return "half-hour"
	}
}

// Code returns the ISO 8601 duration code the readings endpoint expects.
func (p Period) Code() string {
	switch p {
	case PeriodHour:
		return "PT1H"
	case PeriodDay:
		return "P1D"
	case PeriodWeek:
		return "P1W"
	default:
		return "PT30M"
	}
}

// Duration returns the fixed interval length, used to derive a reading's end
// timestamp from its start.
func (p Period) Duration() time.Duration {
	switch p {
	case PeriodHour:
		return time.Hour
	case PeriodDay:
		return 24 * time.Hour
	case PeriodWeek:
		return 7 * 24 * time.Hour
	default:
		return 30 * time.Minute
	}
}
