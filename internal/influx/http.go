package influx

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/influxdata/line-protocol/v2/lineprotocol"
	"github.com/sirupsen/logrus"
)

// HTTPConfig carries the settings for an InfluxDB write endpoint. Setting
// Org selects the v2 API; otherwise the v1 compatibility endpoint is used
// with Bucket as the database name. A URL that already carries a path is
// used verbatim as the write endpoint instead of having the standard write
// path appended.
type HTTPConfig struct {
	URL      string // server base URL, e.g. http://localhost:8086
	Org      string // v2 organisation
	Bucket   string // v2 bucket, or v1 database name
	Token    string // v2 API token
	Username string // v1 basic auth
	Password string
	Timeout  time.Duration
}

// HTTPWriter buffers encoded lines and ships them to an InfluxDB write
// endpoint in a single request when Flush is called. A run is small enough
// that one batch per run keeps the write atomic from the server's view.
type HTTPWriter struct {
	client     *http.Client
	writeURL   string
	authHeader string
	enc        lineprotocol.Encoder
	buf        bytes.Buffer
	lines      int
	logger     logrus.FieldLogger
}

const defaultWriteTimeout = 30 * time.Second

// NewHTTPWriter builds a writer for the configured endpoint.
func NewHTTPWriter(cfg HTTPConfig, logger logrus.FieldLogger) (*HTTPWriter, error) {
	writeURL, authHeader, err := composeWriteURL(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultWriteTimeout
	}
	w := &HTTPWriter{
		client:     &http.Client{Timeout: cfg.Timeout},
		writeURL:   writeURL,
		authHeader: authHeader,
		logger:     logger,
	}
	w.enc.SetPrecision(lineprotocol.Second)
	w.enc.SetLax(false)
	return w, nil
}

// composeWriteURL renders the full write URL for the configured API
// generation: /api/v2/write with org and bucket parameters when an
// organisation is set, the v1 /write endpoint with a db parameter
// otherwise. The write path is only appended to a bare host URL; a URL that
// already carries a path is taken verbatim so proxied or rewritten endpoints
// stay intact. The returned header value carries the matching credentials.
func composeWriteURL(cfg HTTPConfig) (string, string, error) {
	if cfg.URL == "" {
		return "", "", fmt.Errorf("influx url is required")
	}
	if cfg.Bucket == "" {
		return "", "", fmt.Errorf("influx bucket is required")
	}
	writeURL, err := url.Parse(cfg.URL)
	if err != nil {
		return "", "", fmt.Errorf("invalid influx url: %w", err)
	}

	var authHeader string
	query := writeURL.Query()
	query.Set("precision", "s")

	if cfg.Org != "" {
		if writeURL.Path == "" || writeURL.Path == "/" {
			writeURL, err = writeURL.Parse("api/v2/write")
			if err != nil {
				return "", "", fmt.Errorf("invalid influx url: %w", err)
			}
		}
		query.Set("org", cfg.Org)
		query.Set("bucket", cfg.Bucket)
		if cfg.Token != "" {
			authHeader = "Token " + cfg.Token
		}
	} else {
		if writeURL.Path == "" || writeURL.Path == "/" {
			writeURL, err = writeURL.Parse("write")
			if err != nil {
				return "", "", fmt.Errorf("invalid influx url: %w", err)
			}
		}
		query.Set("db", cfg.Bucket)
		if cfg.Username != "" && cfg.Password != "" {
			credentials := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
			authHeader = "Basic " + credentials
		}
	}

	writeURL.RawQuery = query.Encode()
	return writeURL.String(), authHeader, nil
}

// Write encodes one measurement into the pending batch.
func (w *HTTPWriter) Write(m *Measurement) error {
	line, err := encodeMeasurement(&w.enc, m, w.logger)
	if err != nil {
		return err
	}
	w.buf.Write(line)
	w.buf.WriteByte('\n')
	w.lines++
	return nil
}

// Flush posts the pending batch. Flushing an empty batch is a no-op, so a
// run that produced no lines never touches the server.
func (w *HTTPWriter) Flush(ctx context.Context) error {
	if w.lines == 0 {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.writeURL, bytes.NewReader(w.buf.Bytes()))
	if err != nil {
		return fmt.Errorf("failed to create write request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if w.authHeader != "" {
		req.Header.Set("Authorization", w.authHeader)
	}

	w.logger.WithField("lines", w.lines).Debug("Posting batch to InfluxDB")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("influx write failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("influx write returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	w.buf.Reset()
	w.lines = 0
	return nil
}
