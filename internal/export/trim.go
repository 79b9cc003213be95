package export

import "github.com/glowflux/glowflux/internal/influx"

// TrimTrailingZeros removes buckets from the end of the range where every
// field of every measurement is exactly zero, stopping at the first bucket
// holding any non-zero value. Interior all-zero buckets stay: a quiet
// half hour mid-range is data, a zero run at the end is just the meter not
// having reported yet. Returns the number of buckets removed.
func (b *Buckets) TrimTrailingZeros() int {
	timestamps := b.Timestamps()
	trimmed := 0
	for i := len(timestamps) - 1; i >= 0; i-- {
		key := timestamps[i].UnixNano()
		if !allZero(b.points[key]) {
			break
		}
		delete(b.points, key)
		trimmed++
	}
	return trimmed
}

func allZero(measurements []*influx.Measurement) bool {
	for _, m := range measurements {
		for _, value := range m.Fields {
			if value != 0 {
				return false
			}
		}
	}
	return true
}
