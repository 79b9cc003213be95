package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// naiveLayout matches the zone-less timestamps the metering API itself uses;
// values are taken as UTC.
const naiveLayout = "2006-01-02T15:04:05"

// parseDate interprets a user-supplied date argument: an RFC 3339 timestamp,
// a zone-less timestamp taken as UTC, or a negative minute offset from now
// ("-1440" is 24 hours ago).
func parseDate(s string, now time.Time) (time.Time, error) {
	if strings.HasPrefix(s, "-") {
		minutes, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: want RFC 3339 or a negative minute offset", s)
		}
		return now.Add(time.Duration(minutes) * time.Minute), nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(naiveLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: want RFC 3339 or a negative minute offset", s)
}
