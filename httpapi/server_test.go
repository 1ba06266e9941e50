package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digineo/pingwatch"
	"github.com/digineo/pingwatch/events"
	"github.com/digineo/pingwatch/monitor"
)

type fakeController struct {
	calls [][]string
	err   error
	infos []pingwatch.TargetInfo
}

func (f *fakeController) record(targets []string) error {
	f.calls = append(f.calls, targets)
	return f.err
}

func (f *fakeController) Start(targets []string) error { return f.record(targets) }
func (f *fakeController) Pause(targets []string) error { return f.record(targets) }
func (f *fakeController) StopAllExcept(keep []string) error { return f.record(keep) }
func (f *fakeController) Targets() []pingwatch.TargetInfo { return f.infos }

type fakeExporter map[string]*monitor.Metrics

func (f fakeExporter) Export() map[string]*monitor.Metrics { return f }

func do(e http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestControl(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "start ok",
			path:           "/v1/start",
			body:           `{"targets":["10.0.0.1","::1"]}`,
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "stop all except nothing",
			path:           "/v1/stop-all-except",
			body:           `{}`,
			expectedStatus: http.StatusNoContent,
		},
		{
			name:           "400 invalid JSON",
			path:           "/v1/pause",
			body:           `{invalid`,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid request body"}`,
		},
		{
			name: "422 partial failure",
			path: "/v1/pause",
			body: `{"targets":["10.0.0.1","10.0.0.2"]}`,
			err: pingwatch.BatchError{
				{Target: "10.0.0.1", Err: pingwatch.ErrNotRunning},
				{Target: "10.0.0.2", Err: fmt.Errorf("%w after 5s", pingwatch.ErrStopTimeout)},
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody: `{
				"error": "target 10.0.0.1: no task found; target 10.0.0.2: timed out waiting for termination after 5s",
				"details": [
					{"target":"10.0.0.1","kind":"not_running","error":"no task found"},
					{"target":"10.0.0.2","kind":"stop_timeout","error":"timed out waiting for termination after 5s"}
				]
			}`,
		},
		{
			name:           "503 closed",
			path:           "/v1/start",
			body:           `{"targets":["10.0.0.1"]}`,
			err:            pingwatch.ErrClosed,
			expectedStatus: http.StatusServiceUnavailable,
		},
		{
			name:           "500 unknown failure",
			path:           "/v1/start",
			body:           `{"targets":["10.0.0.1"]}`,
			err:            assert.AnError,
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"an internal server error has occurred"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{err: tt.err}
			e := New(NewServer(ctrl, nil, nil, log.NewNopLogger()))

			rec := do(e, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, rec.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, rec.Body.String())
			}
			if tt.expectedStatus == http.StatusNoContent {
				assert.Empty(t, rec.Body.String())
			}
		})
	}
}

func TestControlForwardsTargets(t *testing.T) {
	ctrl := &fakeController{}
	e := New(NewServer(ctrl, nil, nil, log.NewNopLogger()))

	do(e, http.MethodPost, "/v1/start", `{"targets":["10.0.0.1"]}`)
	do(e, http.MethodPost, "/v1/stop-all-except", `{"targets":["10.0.0.1","::1"]}`)

	require.Len(t, ctrl.calls, 2)
	assert.Equal(t, []string{"10.0.0.1"}, ctrl.calls[0])
	assert.Equal(t, []string{"10.0.0.1", "::1"}, ctrl.calls[1])
}

func TestTargets(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ctrl := &fakeController{infos: []pingwatch.TargetInfo{
		{Host: "10.0.0.1", Session: 7, State: pingwatch.Running, Started: started, Attempts: 3},
	}}
	e := New(NewServer(ctrl, nil, nil, log.NewNopLogger()))

	rec := do(e, http.MethodGet, "/v1/targets", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{
		"host": "10.0.0.1",
		"session": 7,
		"state": "running",
		"started": "2026-01-02T03:04:05Z",
		"attempts": 3
	}]`, rec.Body.String())
}

func TestMetrics(t *testing.T) {
	ctrl := &fakeController{}

	e := New(NewServer(ctrl, nil, nil, log.NewNopLogger()))
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/metrics", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/events", "").Code)

	metrics := fakeExporter{"10.0.0.1": {PacketsSent: 4, PacketsLost: 1, Loss: 0.25}}
	e = New(NewServer(ctrl, metrics, nil, log.NewNopLogger()))
	rec := do(e, http.MethodGet, "/v1/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]monitor.Metrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 4, got["10.0.0.1"].PacketsSent)
	assert.InDelta(t, 0.25, got["10.0.0.1"].Loss, 1e-9)
}

func TestEvents(t *testing.T) {
	hub := events.NewHub(4)
	srv := httptest.NewServer(New(NewServer(&fakeController{}, nil, hub, log.NewNopLogger())))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events", nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)

	hub.Emit(pingwatch.Result{Host: "::1", Time: time.UnixMilli(1000), RTT: 3 * time.Millisecond})

	scanner := bufio.NewScanner(res.Body)
	require.True(t, scanner.Scan())
	assert.Equal(t, "event: ping-result", scanner.Text())
	require.True(t, scanner.Scan())
	assert.JSONEq(t, `{"host":"::1","timestamp":1000,"duration":3,"status":"success"}`,
		strings.TrimPrefix(scanner.Text(), "data: "))

	// disconnecting removes the subscriber
	cancel()
	assert.Eventually(t, func() bool { return hub.Len() == 0 }, time.Second, 5*time.Millisecond)
}
