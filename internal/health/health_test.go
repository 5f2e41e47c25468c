package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// readyz runs a readiness request against h and decodes the response.
func readyz(t *testing.T, h *Handler) (int, result) {
	t.Helper()
	req := httptest.NewRequest("GET", "/readyz", nil)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return rec.Code, body
}

func okChecker(name string) Checker {
	return Checker{Name: name, Check: func(_ context.Context) error { return nil }}
}

func failChecker(name, msg string) Checker {
	return Checker{Name: name, Check: func(_ context.Context) error { return errors.New(msg) }}
}

func TestHealthz_AlwaysOK(t *testing.T) {
	t.Parallel()

	h := New(failChecker("database", "down"))
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Healthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 even with failing checkers", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestReadyz_Outcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checkers   []Checker
		wantStatus int
		wantBody   string
		wantChecks map[string]string
	}{
		{
			name:       "no checkers",
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name:       "all pass",
			checkers:   []Checker{okChecker("database"), okChecker("knowledge")},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
			wantChecks: map[string]string{"database": "ok", "knowledge": "ok"},
		},
		{
			name:       "one collaborator down",
			checkers:   []Checker{failChecker("database", "connection refused"), okChecker("knowledge")},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "fail",
			wantChecks: map[string]string{"database": "fail: connection refused", "knowledge": "ok"},
		},
		{
			name:       "everything down",
			checkers:   []Checker{failChecker("database", "timeout"), failChecker("knowledge", "pool closed")},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "fail",
			wantChecks: map[string]string{"database": "fail: timeout", "knowledge": "fail: pool closed"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			code, body := readyz(t, New(tc.checkers...))
			if code != tc.wantStatus {
				t.Errorf("status = %d, want %d", code, tc.wantStatus)
			}
			if body.Status != tc.wantBody {
				t.Errorf("body status = %q, want %q", body.Status, tc.wantBody)
			}
			for name, want := range tc.wantChecks {
				if got := body.Checks[name]; got != want {
					t.Errorf("check %q = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestReadyz_ChecksRunConcurrently(t *testing.T) {
	t.Parallel()

	// Each probe waits for the other to start. Sequential execution would
	// stall on the first probe and fail it by timeout.
	dbStarted := make(chan struct{})
	kbStarted := make(chan struct{})
	await := func(mine chan struct{}, other <-chan struct{}) error {
		close(mine)
		select {
		case <-other:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("peer probe never started")
		}
	}

	h := New(
		Checker{Name: "database", Check: func(_ context.Context) error { return await(dbStarted, kbStarted) }},
		Checker{Name: "knowledge", Check: func(_ context.Context) error { return await(kbStarted, dbStarted) }},
	)

	code, body := readyz(t, h)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200; checks = %v", code, body.Checks)
	}
}

func TestReadyz_RespectsRequestCancellation(t *testing.T) {
	t.Parallel()

	h := New(Checker{Name: "database", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestRegister_MountsProbeRoutes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	New(okChecker("database")).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}
