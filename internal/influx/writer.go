package influx

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/influxdata/line-protocol/v2/lineprotocol"
	"github.com/sirupsen/logrus"
)

// Writer streams measurements to an io.Writer as line protocol, one line per
// measurement with second-precision timestamps.
type Writer struct {
	w      *bufio.Writer
	enc    lineprotocol.Encoder
	logger logrus.FieldLogger
}

// NewWriter wraps w in a buffered line protocol writer. Call Flush once all
// measurements are written.
func NewWriter(w io.Writer, logger logrus.FieldLogger) *Writer {
	writer := &Writer{
		w:      bufio.NewWriter(w),
		logger: logger,
	}
	writer.enc.SetPrecision(lineprotocol.Second)
	writer.enc.SetLax(false)
	return writer
}

// Write encodes one measurement and appends it to the output stream.
func (w *Writer) Write(m *Measurement) error {
	line, err := encodeMeasurement(&w.enc, m, w.logger)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(line); err != nil {
		return fmt.Errorf("failed to write line: %w", err)
	}
	// The encoder separates lines rather than terminating them, so the
	// newline is ours to add.
	if err := w.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write line: %w", err)
	}
	return nil
}

// Flush drains buffered lines to the underlying writer. The context is
// unused here; it exists so stream and HTTP writers share one interface.
func (w *Writer) Flush(_ context.Context) error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}

// encodeMeasurement renders one measurement as a single protocol line. The
// strict encoder requires tags sorted by key, so keys are sorted here; tags
// with an empty key or value are dropped rather than failing the line.
func encodeMeasurement(enc *lineprotocol.Encoder, m *Measurement, logger logrus.FieldLogger) ([]byte, error) {
	if len(m.Fields) == 0 {
		return nil, fmt.Errorf("measurement %s has no fields", m.Name)
	}

	enc.Reset()
	enc.StartLine(m.Name)

	tagKeys := make([]string, 0, len(m.Tags))
	for k, v := range m.Tags {
		if k == "" || v == "" {
			logger.WithFields(logrus.Fields{
				"measurement": m.Name,
				"tag":         k,
			}).Debug("Dropping empty tag")
			continue
		}
		tagKeys = append(tagKeys, k)
	}
	sort.Strings(tagKeys)
	for _, k := range tagKeys {
		enc.AddTag(k, m.Tags[k])
	}

	fieldNames := make([]string, 0, len(m.Fields))
	for name := range m.Fields {
		fieldNames = append(fieldNames, name)
	}
	sort.Strings(fieldNames)
	for _, name := range fieldNames {
		value, ok := lineprotocol.NewValue(m.Fields[name])
		if !ok {
			return nil, fmt.Errorf("field %s in measurement %s has unsupported value %v", name, m.Name, m.Fields[name])
		}
		enc.AddField(name, value)
	}

	enc.EndLine(m.Time)
	if err := enc.Err(); err != nil {
		enc.ClearErr()
		return nil, fmt.Errorf("failed to encode measurement %s: %w", m.Name, err)
	}
	return enc.Bytes(), nil
}
