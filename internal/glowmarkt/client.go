// Package glowmarkt implements a client for the Glowmarkt/Bright smart
// metering API: token auth, the device/resource entity graph and
// interval-aggregated readings.
package glowmarkt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jpillora/backoff"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultBaseURL is the public Glowmarkt API endpoint.
	DefaultBaseURL = "https://api.glowmarkt.com/api/v0-1"

	// DefaultApplicationID is the application id published with the Bright
	// API documentation. The API requires one on every request.
	DefaultApplicationID = "b0f1b774-a586-4f72-9edd-27ead8aa7a8d"
)

// timeLayout is the timestamp format the readings endpoint accepts. The API
// interprets these as UTC and rejects zone suffixes.
const timeLayout = "2006-01-02T15:04:05"

const defaultTimeout = 30 * time.Second

// Config carries the transport settings for a Client.
type Config struct {
	BaseURL       string
	ApplicationID string
	Token         string        // pre-issued bearer token, may be empty
	Timeout       time.Duration // per-request timeout, 0 for the default
	Retries       int           // extra attempts after a transport or 5xx failure
}

// Client talks to the Glowmarkt API. Methods block until the exchange
// completes or ctx is done.
type Client struct {
	baseURL string
	appID   string
	token   string
	http    *http.Client
	retries int
	logger  logrus.FieldLogger
}

// New builds a Client from cfg, filling in the public endpoint and
// application id where cfg leaves them empty.
func New(cfg Config, logger logrus.FieldLogger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.ApplicationID == "" {
		cfg.ApplicationID = DefaultApplicationID
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		appID:   cfg.ApplicationID,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		retries: cfg.Retries,
		logger:  logger,
	}
}

// Token returns the bearer token the client currently holds.
func (c *Client) Token() string {
	return c.token
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Valid bool        `json:"valid"`
	Token string      `json:"token"`
	Exp   int64       `json:"exp"`
	Error *apiMessage `json:"error"`
}

type validateResponse struct {
	Valid bool        `json:"valid"`
	Exp   int64       `json:"exp"`
	Error *apiMessage `json:"error"`
}

type apiMessage struct {
	Message string `json:"message"`
}

// Authenticate exchanges the credentials for a bearer token and stores it on
// the client for subsequent calls.
func (c *Client) Authenticate(ctx context.Context, username, password string) error {
	var resp authResponse
	if err := c.call(ctx, http.MethodPost, "auth", nil, authRequest{Username: username, Password: password}, &resp); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%w: %s", ErrNotAuthenticated, resp.Error.Message)
	}
	if !resp.Valid || resp.Token == "" {
		return ErrNotAuthenticated
	}
	c.token = resp.Token
	c.logger.WithField("expires", time.Unix(resp.Exp, 0).UTC().Format(time.RFC3339)).
		Debug("Obtained API token")
	return nil
}

// Validate checks the stored token against the API. A missing, rejected or
// expired token yields ErrNotAuthenticated.
func (c *Client) Validate(ctx context.Context) error {
	if c.token == "" {
		return ErrNotAuthenticated
	}
	var resp validateResponse
	if err := c.call(ctx, http.MethodGet, "auth", nil, nil, &resp); err != nil {
		return fmt.Errorf("token validation failed: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("%w: %s", ErrNotAuthenticated, resp.Error.Message)
	}
	if !resp.Valid {
		return ErrNotAuthenticated
	}
	return nil
}

// Devices retrieves every device registered to the account, keyed by
// device id.
func (c *Client) Devices(ctx context.Context) (map[string]Device, error) {
	var list []Device
	if err := c.call(ctx, http.MethodGet, "device", nil, nil, &list); err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	devices := make(map[string]Device, len(list))
	for _, d := range list {
		devices[d.ID] = d
	}
	return devices, nil
}

// Device retrieves a single device. An id the API does not know yields
// ErrUnknownEntity.
func (c *Client) Device(ctx context.Context, id string) (*Device, error) {
	var device Device
	if err := c.call(ctx, http.MethodGet, "device/"+url.PathEscape(id), nil, nil, &device); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("device %q: %w", id, ErrUnknownEntity)
		}
		return nil, fmt.Errorf("failed to fetch device %s: %w", id, err)
	}
	return &device, nil
}

// DeviceTypes retrieves the device type catalogue, keyed by type id.
func (c *Client) DeviceTypes(ctx context.Context) (map[string]DeviceType, error) {
	var list []DeviceType
	if err := c.call(ctx, http.MethodGet, "devicetype", nil, nil, &list); err != nil {
		return nil, fmt.Errorf("failed to list device types: %w", err)
	}
	types := make(map[string]DeviceType, len(list))
	for _, t := range list {
		types[t.ID] = t
	}
	return types, nil
}

// Resources retrieves every resource visible to the account, keyed by
// resource id.
func (c *Client) Resources(ctx context.Context) (map[string]Resource, error) {
	var list []Resource
	if err := c.call(ctx, http.MethodGet, "resource", nil, nil, &list); err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	resources := make(map[string]Resource, len(list))
	for _, r := range list {
		resources[r.ID] = r
	}
	return resources, nil
}

// Resource retrieves a single resource. An id the API does not know yields
// ErrUnknownEntity.
func (c *Client) Resource(ctx context.Context, id string) (*Resource, error) {
	var resource Resource
	if err := c.call(ctx, http.MethodGet, "resource/"+url.PathEscape(id), nil, nil, &resource); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("resource %q: %w", id, ErrUnknownEntity)
		}
		return nil, fmt.Errorf("failed to fetch resource %s: %w", id, err)
	}
	return &resource, nil
}

// ResourceTypes retrieves the resource type catalogue, keyed by type id.
func (c *Client) ResourceTypes(ctx context.Context) (map[string]ResourceType, error) {
	var list []ResourceType
	if err := c.call(ctx, http.MethodGet, "resourcetype", nil, nil, &list); err != nil {
		return nil, fmt.Errorf("failed to list resource types: %w", err)
	}
	types := make(map[string]ResourceType, len(list))
	for _, t := range list {
		types[t.ID] = t
	}
	return types, nil
}

// VirtualEntities retrieves the account's virtual entities, keyed by
// entity id.
func (c *Client) VirtualEntities(ctx context.Context) (map[string]VirtualEntity, error) {
	var list []VirtualEntity
	if err := c.call(ctx, http.MethodGet, "virtualentity", nil, nil, &list); err != nil {
		return nil, fmt.Errorf("failed to list virtual entities: %w", err)
	}
	entities := make(map[string]VirtualEntity, len(list))
	for _, v := range list {
		entities[v.ID] = v
	}
	return entities, nil
}

type readingsResponse struct {
	Data [][]float64 `json:"data"`
}

// Readings retrieves interval-aggregated readings for one resource. The
// window runs from start to end inclusive and the API aggregates each
// interval with the fixed "sum" function. Timestamps come back as interval
// starts; End is derived from the period length.
func (c *Client) Readings(ctx context.Context, resourceID string, start, end time.Time, period Period) ([]Reading, error) {
	if start.After(end) {
		return nil, fmt.Errorf("invalid readings window: start %s is after end %s",
			start.UTC().Format(timeLayout), end.UTC().Format(timeLayout))
	}

	query := url.Values{}
	query.Set("from", start.UTC().Format(timeLayout))
	query.Set("to", end.UTC().Format(timeLayout))
	query.Set("period", period.Code())
	query.Set("offset", "0")
	query.Set("function", "sum")

	var resp readingsResponse
	if err := c.call(ctx, http.MethodGet, "resource/"+url.PathEscape(resourceID)+"/readings", query, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch readings for resource %s: %w", resourceID, err)
	}

	readings := make([]Reading, 0, len(resp.Data))
	for _, pair := range resp.Data {
		if len(pair) != 2 {
			return nil, &APIError{Message: fmt.Sprintf("malformed reading tuple of length %d", len(pair))}
		}
		at := time.Unix(int64(pair[0]), 0).UTC()
		readings = append(readings, Reading{
			Start: at,
			End:   at.Add(period.Duration()),
			Value: pair[1],
		})
	}
	return readings, nil
}

// call performs one API exchange: build the request with the applicationId
// and token headers, retry transport failures and 5xx responses with
// exponential backoff, then decode the JSON body into out.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	boff := &backoff.Backoff{
		Min:    250 * time.Millisecond,
		Max:    5 * time.Second,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.logger.WithFields(logrus.Fields{
				"path":    path,
				"attempt": attempt,
			}).Debug("Retrying API request")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(boff.Duration()):
			}
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("applicationId", c.appID)
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("token", c.token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = &APIError{Message: err.Error()}
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = &APIError{Message: err.Error()}
			continue
		}

		switch {
		case resp.StatusCode >= http.StatusInternalServerError:
			lastErr = &APIError{Status: resp.StatusCode, Message: bodyExcerpt(data)}
			continue
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return fmt.Errorf("%w: api returned status %d", ErrNotAuthenticated, resp.StatusCode)
		case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
			return &APIError{Status: resp.StatusCode, Message: bodyExcerpt(data)}
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("failed to decode response: %v", err)}
		}
		return nil
	}
	return lastErr
}

func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// bodyExcerpt trims a response body down to something safe to embed in an
// error message, cutting on a rune boundary.
func bodyExcerpt(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	if s == "" {
		s = "(empty body)"
	}
	return s
}
