package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/skalski/evermult/pkg/batch"
	"github.com/skalski/evermult/pkg/engine"
	"github.com/skalski/evermult/pkg/storage"
	"github.com/skalski/evermult/pkg/timerecord"
)

type stubSource struct {
	records []timerecord.TimeRecord
}

func (s *stubSource) FetchDay(ctx context.Context, userID string, day timerecord.Date) ([]timerecord.TimeRecord, error) {
	return s.records, nil
}

type stubMutator struct{ patches int }

func (s *stubMutator) PatchRecord(ctx context.Context, recordID string, upd timerecord.Update) (timerecord.TimeRecord, error) {
	s.patches++
	return timerecord.TimeRecord{ID: recordID, Task: timerecord.Ref{ID: upd.TaskID}}, nil
}

func (s *stubMutator) DeleteRecord(ctx context.Context, recordID string) error { return nil }

func (s *stubMutator) CreateTaskTime(ctx context.Context, taskID string, entry timerecord.NewEntry) (timerecord.TimeRecord, error) {
	return timerecord.TimeRecord{ID: "new", Task: timerecord.Ref{ID: taskID}}, nil
}

func testServer(t *testing.T) (*Server, *stubMutator) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	src := &stubSource{records: []timerecord.TimeRecord{
		{ID: "r1", Seconds: 7200, Task: timerecord.Ref{ID: "t1"}, User: timerecord.Ref{ID: "u1"}},
	}}
	mut := &stubMutator{}
	runner := &batch.Runner{Source: src, Mutator: mut, DB: db}

	srv := &Server{
		DB:     db,
		Runner: runner,
		Config: func() batch.RunConfig {
			return batch.RunConfig{Users: []string{"u1"}, Multiplier: 1.5, Capability: engine.CapNativePatch}
		},
		Schedule: func() (int, int) { return 1, 0 },
	}
	return srv, mut
}

func TestHandleStatus(t *testing.T) {
	srv, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.handleStatus(rec, req)

	var status Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Multiplier != 1.5 || len(status.Users) != 1 || status.RunHour != 1 {
		t.Errorf("status: %+v", status)
	}
	if status.Yesterday != timerecord.Yesterday().String() {
		t.Errorf("yesterday: %q", status.Yesterday)
	}
}

func TestHandleRunNow(t *testing.T) {
	srv, mut := testServer(t)
	body := strings.NewReader(`{"date":"2024-05-01"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/run-now", body)
	rec := httptest.NewRecorder()
	srv.handleRunNow(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp RunNowResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Date != "2024-05-01" || len(resp.Results) != 1 {
		t.Fatalf("response: %+v", resp)
	}
	r := resp.Results[0]
	if r.Status != "ok" || r.Transformed != 1 || r.OriginalHours != 2.0 || r.NewHours != 3.0 {
		t.Errorf("result: %+v", r)
	}
	if mut.patches != 1 {
		t.Errorf("patches = %d", mut.patches)
	}

	// The same date again hits the in-process guard.
	req = httptest.NewRequest(http.MethodPost, "/api/run-now", strings.NewReader(`{"date":"2024-05-01"}`))
	rec = httptest.NewRecorder()
	srv.handleRunNow(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for repeated date, got %d", rec.Code)
	}
}

func TestHandleRunNowDryRunOverride(t *testing.T) {
	srv, mut := testServer(t)
	body := strings.NewReader(`{"date":"2024-05-02","dry_run":true}`)
	req := httptest.NewRequest(http.MethodPost, "/api/run-now", body)
	rec := httptest.NewRecorder()
	srv.handleRunNow(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp RunNowResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	if !resp.DryRun {
		t.Error("dry_run flag not honored")
	}
	if mut.patches != 0 {
		t.Error("dry run mutated records")
	}
}

func TestHandleRunNowBadDate(t *testing.T) {
	srv, _ := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/run-now", strings.NewReader(`{"date":"yesterday"}`))
	rec := httptest.NewRecorder()
	srv.handleRunNow(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestBasicAuth(t *testing.T) {
	srv, _ := testServer(t)
	srv.Username = "admin"
	srv.Password = "secret"

	handler := srv.basicAuth(srv.handleStatus)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with credentials, got %d", rec.Code)
	}
}
