package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bobarin/dramacast/internal/models"
)

type stubWorker struct {
	status models.WorkerStatus
}

func (s *stubWorker) Snapshot() models.WorkerStatus { return s.status }

type stubQueue struct {
	rows []models.Row
	err  error
}

func (s *stubQueue) Rows(ctx context.Context) ([]models.Row, error) { return s.rows, s.err }

type stubHistory struct {
	outcomes []models.Outcome
	gotLimit int
	err      error
}

func (s *stubHistory) RecentOutcomes(ctx context.Context, limit int) ([]models.Outcome, error) {
	s.gotLimit = limit
	return s.outcomes, s.err
}

func newTestServer(t *testing.T, h *Handler, cfg RouterConfig) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(h, cfg))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthzIsPublic(t *testing.T) {
	h := NewHandler(&stubWorker{}, &stubQueue{}, &stubHistory{}, nil)
	srv := newTestServer(t, h, RouterConfig{BackendAPIKey: "sekrit"})

	resp := get(t, srv.URL+"/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestAPIKeyGuardsV1Routes(t *testing.T) {
	h := NewHandler(&stubWorker{status: models.WorkerStatus{State: models.WorkerIdle}}, &stubQueue{}, &stubHistory{}, nil)
	srv := newTestServer(t, h, RouterConfig{BackendAPIKey: "sekrit"})

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
	}{
		{"no key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusForbidden},
		{"x-api-key", map[string]string{"X-API-Key": "sekrit"}, http.StatusOK},
		{"bearer", map[string]string{"Authorization": "Bearer sekrit"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, srv.URL+"/v1/status", tt.headers)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestNoKeyConfiguredSkipsAuth(t *testing.T) {
	h := NewHandler(&stubWorker{status: models.WorkerStatus{State: models.WorkerIdle}}, &stubQueue{}, &stubHistory{}, nil)
	srv := newTestServer(t, h, RouterConfig{})

	resp := get(t, srv.URL+"/v1/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 without auth configured", resp.StatusCode)
	}
}

func TestGetStatusReturnsSnapshot(t *testing.T) {
	h := NewHandler(&stubWorker{status: models.WorkerStatus{
		State:    models.WorkerRunning,
		RunID:    "ab12cd34",
		RowNum:   4,
		RowTitle: "Anupamaa Twist",
	}}, &stubQueue{}, &stubHistory{}, nil)
	srv := newTestServer(t, h, RouterConfig{})

	resp := get(t, srv.URL+"/v1/status", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var status models.WorkerStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.State != models.WorkerRunning || status.RowNum != 4 || status.RowTitle != "Anupamaa Twist" {
		t.Errorf("status = %+v", status)
	}
}

func TestGetQueueCountsPending(t *testing.T) {
	q := &stubQueue{rows: []models.Row{
		{Num: 2, Title: "One", Status: ""},
		{Num: 3, Title: "Two", Status: "Pending"},
		{Num: 4, Title: "Three", Status: "Completed"},
		{Num: 5, Title: "Four", Status: "Processing"},
	}}
	h := NewHandler(&stubWorker{}, q, &stubHistory{}, nil)
	srv := newTestServer(t, h, RouterConfig{})

	resp := get(t, srv.URL+"/v1/queue", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body models.QueueResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Rows) != 4 || body.Pending != 2 {
		t.Errorf("rows = %d, pending = %d, want 4 and 2", len(body.Rows), body.Pending)
	}
}

func TestGetQueueSheetFailure(t *testing.T) {
	h := NewHandler(&stubWorker{}, &stubQueue{err: errors.New("it broke")}, &stubHistory{}, nil)
	srv := newTestServer(t, h, RouterConfig{})

	resp := get(t, srv.URL+"/v1/queue", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", resp.StatusCode)
	}
}

func TestGetHistoryLimit(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantLimit  int
	}{
		{"default", "", http.StatusOK, 20},
		{"explicit", "?limit=5", http.StatusOK, 5},
		{"capped", "?limit=500", http.StatusOK, 100},
		{"zero", "?limit=0", http.StatusBadRequest, 0},
		{"garbage", "?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hist := &stubHistory{outcomes: []models.Outcome{{RowNum: 2, Status: models.StatusCompleted}}}
			h := NewHandler(&stubWorker{}, &stubQueue{}, hist, nil)
			srv := newTestServer(t, h, RouterConfig{})

			resp := get(t, srv.URL+"/v1/history"+tt.query, nil)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if hist.gotLimit != tt.wantLimit {
				t.Errorf("limit passed = %d, want %d", hist.gotLimit, tt.wantLimit)
			}

			var body models.HistoryResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(body.Outcomes) != 1 {
				t.Errorf("outcomes = %+v", body.Outcomes)
			}
		})
	}
}

func TestTriggerRun(t *testing.T) {
	woken := false
	h := NewHandler(&stubWorker{}, &stubQueue{}, &stubHistory{}, func() bool {
		woken = true
		return true
	})
	srv := newTestServer(t, h, RouterConfig{})

	resp, err := http.Post(srv.URL+"/v1/run", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if !woken {
		t.Error("wake was not called")
	}
}

func TestTriggerRunBusy(t *testing.T) {
	h := NewHandler(&stubWorker{}, &stubQueue{}, &stubHistory{}, func() bool { return false })
	srv := newTestServer(t, h, RouterConfig{})

	resp, err := http.Post(srv.URL+"/v1/run", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
}
