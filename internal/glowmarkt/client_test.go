package glowmarkt

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(Config{
		BaseURL:       server.URL,
		ApplicationID: "test-app",
		Token:         "test-token",
	}, testLogger())
}

func TestClientSendsRequiredHeaders(t *testing.T) {
	var gotAppID, gotToken, gotContentType string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAppID = r.Header.Get("applicationId")
		gotToken = r.Header.Get("token")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`[]`))
	})

	_, err := client.Devices(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test-app", gotAppID)
	assert.Equal(t, "test-token", gotToken)
	assert.Equal(t, "application/json", gotContentType)
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   error
		wantToken string
	}{
		{
			name:      "valid credentials",
			status:    http.StatusOK,
			body:      `{"valid":true,"token":"issued-token","exp":1700000000}`,
			wantToken: "issued-token",
		},
		{
			name:    "rejected credentials",
			status:  http.StatusUnauthorized,
			body:    `{"valid":false}`,
			wantErr: ErrNotAuthenticated,
		},
		{
			name:    "invalid flag without error payload",
			status:  http.StatusOK,
			body:    `{"valid":false}`,
			wantErr: ErrNotAuthenticated,
		},
		{
			name:    "error payload",
			status:  http.StatusOK,
			body:    `{"valid":false,"error":{"message":"account locked"}}`,
			wantErr: ErrNotAuthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/auth", r.URL.Path)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			client.token = ""

			err := client.Authenticate(context.Background(), "user@example.com", "secret")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, client.Token())
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("without token", func(t *testing.T) {
		client := New(Config{BaseURL: "http://127.0.0.1:0"}, testLogger())
		assert.ErrorIs(t, client.Validate(context.Background()), ErrNotAuthenticated)
	})

	t.Run("valid token", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			w.Write([]byte(`{"valid":true,"exp":1700000000}`))
		})
		assert.NoError(t, client.Validate(context.Background()))
	})

	t.Run("expired token", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"valid":false,"error":{"message":"token expired"}}`))
		})
		assert.ErrorIs(t, client.Validate(context.Background()), ErrNotAuthenticated)
	})
}

func TestDevicesKeyedByID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/device", r.URL.Path)
		w.Write([]byte(`[
			{"deviceId":"dev-b","hardwareId":"hw-b"},
			{"deviceId":"dev-a","hardwareId":"hw-a"}
		]`))
	})

	devices, err := client.Devices(context.Background())
	require.NoError(t, err)

	require.Len(t, devices, 2)
	assert.Equal(t, "hw-a", devices["dev-a"].HardwareID)
	assert.Equal(t, "hw-b", devices["dev-b"].HardwareID)
}

func TestDeviceNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, err := client.Device(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestResourceNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	_, err := client.Resource(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownEntity)
}

func TestReadings(t *testing.T) {
	var gotQuery map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/resource/res-1/readings", r.URL.Path)
		gotQuery = map[string]string{}
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}
		w.Write([]byte(`{"data":[[1658599200,0.025],[1658601000,0.5]]}`))
	})

	start := time.Date(2022, 7, 23, 18, 0, 0, 0, time.UTC)
	end := time.Date(2022, 7, 23, 19, 0, 0, 0, time.UTC)
	readings, err := client.Readings(context.Background(), "res-1", start, end, PeriodHalfHour)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"from":     "2022-07-23T18:00:00",
		"to":       "2022-07-23T19:00:00",
		"period":   "PT30M",
		"offset":   "0",
		"function": "sum",
	}, gotQuery)

	require.Len(t, readings, 2)
	assert.Equal(t, time.Unix(1658599200, 0).UTC(), readings[0].Start)
	assert.Equal(t, time.Unix(1658599200, 0).UTC().Add(30*time.Minute), readings[0].End)
	assert.Equal(t, 0.025, readings[0].Value)
	assert.Equal(t, 0.5, readings[1].Value)
}

func TestReadingsConvertsWindowToUTC(t *testing.T) {
	var gotFrom string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotFrom = r.URL.Query().Get("from")
		w.Write([]byte(`{"data":[]}`))
	})

	zone := time.FixedZone("CET", 60*60)
	start := time.Date(2022, 7, 23, 19, 0, 0, 0, zone) // 18:00 UTC
	_, err := client.Readings(context.Background(), "res-1", start, start.Add(time.Hour), PeriodHour)
	require.NoError(t, err)

	assert.Equal(t, "2022-07-23T18:00:00", gotFrom)
}

func TestReadingsRejectsInvertedWindow(t *testing.T) {
	client := New(Config{BaseURL: "http://127.0.0.1:0"}, testLogger())

	now := time.Now()
	_, err := client.Readings(context.Background(), "res-1", now, now.Add(-time.Hour), PeriodHour)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after end")
}

func TestReadingsRejectsMalformedTuples(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[[1658599200]]}`))
	})

	_, err := client.Readings(context.Background(), "res-1", time.Unix(0, 0), time.Unix(3600, 0), PeriodHour)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "malformed reading tuple")
}

func TestCallRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(server.Close)

	client := New(Config{BaseURL: server.URL, Retries: 3}, testLogger())

	_, err := client.Devices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCallDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	t.Cleanup(server.Close)

	client := New(Config{BaseURL: server.URL, Retries: 3}, testLogger())

	_, err := client.Devices(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCallGivesUpAfterRetryBudget(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := New(Config{BaseURL: server.URL, Retries: 1}, testLogger())

	_, err := client.Devices(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, int32(2), calls.Load())
}

func TestUnauthorizedMapsToErrNotAuthenticated(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})

	_, err := client.Resources(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestCallHonorsContextCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	})
	client.retries = 5

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Devices(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBodyExcerpt(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "empty body", body: "", want: "(empty body)"},
		{name: "whitespace only", body: " \n\t", want: "(empty body)"},
		{name: "short body passes through", body: `{"error":"boom"}`, want: `{"error":"boom"}`},
		{name: "long body truncated", body: strings.Repeat("x", 201), want: strings.Repeat("x", 200) + "..."},
		{name: "multibyte rune not split", body: strings.Repeat("€", 100), want: strings.Repeat("€", 66) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := bodyExcerpt([]byte(tt.body))
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
