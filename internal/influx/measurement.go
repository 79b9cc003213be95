// Package influx turns readings into InfluxDB line protocol: a measurement
// model, tag derivation from the metering entity graph, and writers that
// stream encoded lines to stdout or an InfluxDB write endpoint.
package influx

import (
	"time"

	"github.com/glowflux/glowflux/internal/glowmarkt"
)

// Measurement is one point in a named series: a timestamp, a tag set and one
// or more numeric fields.
type Measurement struct {
	Name   string
	Time   time.Time
	Tags   map[string]string
	Fields map[string]float64
}

// NewMeasurement builds a point at the given timestamp. The tag map is
// copied, so callers may keep extending their own copy afterwards.
func NewMeasurement(name string, at time.Time, tags map[string]string) *Measurement {
	m := &Measurement{
		Name:   name,
		Time:   at.UTC(),
		Tags:   make(map[string]string, len(tags)),
		Fields: make(map[string]float64, 1),
	}
	for k, v := range tags {
		m.Tags[k] = v
	}
	return m
}

// AddField sets one field, overwriting any previous value under the same
// name.
func (m *Measurement) AddField(name string, value float64) {
	m.Fields[name] = value
}

// TagsForDevice derives the tag set shared by every point exported for a
// device: the device id, its primary hardware id and any named hardware ids
// the API reports (MPAN, serial numbers and the like).
func TagsForDevice(device *glowmarkt.Device) map[string]string {
	tags := make(map[string]string, 2+len(device.HardwareIDs))
	tags["device"] = device.ID
	tags["hardwareId"] = device.HardwareID
	for name, id := range device.HardwareIDs {
		tags[name] = id
	}
	return tags
}

// TagsForResource extends a device tag set with the resource id and, when
// the resource carries one, its classifier. The input map is copied, never
// mutated.
func TagsForResource(deviceTags map[string]string, resource *glowmarkt.Resource) map[string]string {
	tags := make(map[string]string, len(deviceTags)+2)
	for k, v := range deviceTags {
		tags[k] = v
	}
	tags["resource"] = resource.ID
	if resource.Classifier != "" {
		tags["classifier"] = resource.Classifier
	}
	return tags
}

// FieldForClassifier maps a resource classifier to the field name its values
// are written under. The mapping is fixed: consumption classifiers write
// "consumption", cost classifiers write "cost" and anything unrecognised
// falls back to "value" so new classifiers surface in the output rather
// than being dropped.
func FieldForClassifier(classifier string) string {
	switch classifier {
	case "electricity.consumption", "gas.consumption":
		return "consumption"
	case "electricity.consumption.cost", "electricity.cost", "gas.consumption.cost":
		return "cost"
	default:
		return "value"
	}
}
