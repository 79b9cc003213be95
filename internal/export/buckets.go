package export

import (
	"sort"
	"time"

	"github.com/glowflux/glowflux/internal/influx"
)

// Buckets groups measurements by timestamp so a run can emit them in
// chronological order whatever order resources were fetched in. Within a
// bucket, measurements keep arrival order.
type Buckets struct {
	points map[int64][]*influx.Measurement
}

// NewBuckets returns an empty collection.
func NewBuckets() *Buckets {
	return &Buckets{points: make(map[int64][]*influx.Measurement)}
}

// Add files a measurement under its timestamp.
func (b *Buckets) Add(m *influx.Measurement) {
	key := m.Time.UnixNano()
	b.points[key] = append(b.points[key], m)
}

// Timestamps returns every bucket's timestamp in ascending order.
func (b *Buckets) Timestamps() []time.Time {
	keys := make([]int64, 0, len(b.points))
	for key := range b.points {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	timestamps := make([]time.Time, len(keys))
	for i, key := range keys {
		timestamps[i] = time.Unix(0, key).UTC()
	}
	return timestamps
}

// At returns the measurements filed under ts, nil when the bucket does not
// exist.
func (b *Buckets) At(ts time.Time) []*influx.Measurement {
	return b.points[ts.UnixNano()]
}

// Len returns the number of non-empty buckets.
func (b *Buckets) Len() int {
	return len(b.points)
}
