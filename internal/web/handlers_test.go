package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jandubois/clusterwatch/internal/db"
	"github.com/jandubois/clusterwatch/internal/probe"
	"github.com/jandubois/clusterwatch/internal/report"
)

type fakeRounds struct {
	latest   *report.Report
	busy     bool
	ran      int
	roundErr error
}

func (f *fakeRounds) Latest() *report.Report { return f.latest }

func (f *fakeRounds) TryRunRound(ctx context.Context) (*report.Report, bool) {
	if f.busy {
		return nil, false
	}
	f.ran++
	f.roundErr = ctx.Err()
	f.latest = testReport(probe.SeverityWarning)
	return f.latest, true
}

func (f *fakeRounds) Specs() []probe.Spec {
	return []probe.Spec{{ID: "radius", Domain: probe.DomainProtocol, Kind: "radius", Secret: "testing123"}}
}

type fakeHistory struct {
	reports []*report.Report
	err     error
	limit   int
}

func (f *fakeHistory) LatestReport(ctx context.Context) (*report.Report, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.reports) == 0 {
		return nil, db.ErrNoReports
	}
	return f.reports[0], nil
}

func (f *fakeHistory) RecentReports(ctx context.Context, limit int) ([]*report.Report, error) {
	f.limit = limit
	if limit < len(f.reports) {
		return f.reports[:limit], f.err
	}
	return f.reports, f.err
}

func testReport(sev probe.Severity) *report.Report {
	return report.Aggregate([]probe.Finding{{ProbeID: "kamailio", Domain: probe.DomainService, Severity: sev}}, time.Now(), "node1")
}

func do(t *testing.T, h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	rounds := &fakeRounds{}
	h := NewServer(Options{Rounds: rounds, AuthToken: "test-token", Version: "1.0.0"}).Handler()

	w := do(t, h, "GET", "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var resp map[string]any
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", resp["status"])
	}
	if _, ok := resp["overall_severity"]; ok {
		t.Error("expected no severity before the first round")
	}

	rounds.latest = testReport(probe.SeverityCritical)
	w = do(t, h, "GET", "/api/health", "")
	json.NewDecoder(w.Body).Decode(&resp)
	if resp["overall_severity"] != "critical" {
		t.Errorf("expected overall critical, got %v", resp["overall_severity"])
	}
}

func TestAuth(t *testing.T) {
	h := NewServer(Options{Rounds: &fakeRounds{latest: testReport(probe.SeverityOK)}, AuthToken: "test-token"}).Handler()

	tests := []struct {
		token string
		want  int
	}{
		{"", http.StatusUnauthorized},
		{"wrong", http.StatusUnauthorized},
		{"test-token", http.StatusOK},
	}
	for _, tt := range tests {
		if w := do(t, h, "GET", "/api/report", tt.token); w.Code != tt.want {
			t.Errorf("token %q: expected %d, got %d", tt.token, tt.want, w.Code)
		}
	}

	open := NewServer(Options{Rounds: &fakeRounds{latest: testReport(probe.SeverityOK)}}).Handler()
	if w := do(t, open, "GET", "/api/report", ""); w.Code != http.StatusOK {
		t.Errorf("expected open access without a token, got %d", w.Code)
	}
}

func TestLatestReport(t *testing.T) {
	rounds := &fakeRounds{}
	history := &fakeHistory{}
	h := NewServer(Options{Rounds: rounds, History: history}).Handler()

	if w := do(t, h, "GET", "/api/report", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 before any round, got %d", w.Code)
	}

	history.reports = []*report.Report{testReport(probe.SeverityWarning)}
	w := do(t, h, "GET", "/api/report", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected journal fallback, got %d", w.Code)
	}
	var body map[string]any
	json.NewDecoder(w.Body).Decode(&body)
	if body["id"] != history.reports[0].ID || body["overall_severity"] != "warning" {
		t.Errorf("unexpected body %v", body)
	}
	history.err = errors.New("database is locked")
	if w := do(t, h, "GET", "/api/report", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 on journal error, got %d", w.Code)
	}
}

func TestRecentReports(t *testing.T) {
	history := &fakeHistory{reports: []*report.Report{
		testReport(probe.SeverityOK), testReport(probe.SeverityOK), testReport(probe.SeverityOK),
	}}
	h := NewServer(Options{Rounds: &fakeRounds{}, History: history}).Handler()

	w := do(t, h, "GET", "/api/reports?limit=2", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got []map[string]any
	json.NewDecoder(w.Body).Decode(&got)
	if len(got) != 2 || history.limit != 2 {
		t.Errorf("expected 2 reports, got %d (limit %d)", len(got), history.limit)
	}

	if w := do(t, h, "GET", "/api/reports?limit=abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad limit, got %d", w.Code)
	}

	history.err = errors.New("disk I/O error")
	if w := do(t, h, "GET", "/api/reports", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 on journal error, got %d", w.Code)
	}

	noJournal := NewServer(Options{Rounds: &fakeRounds{}}).Handler()
	if w := do(t, noJournal, "GET", "/api/reports", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a journal, got %d", w.Code)
	}
}

func TestRunRound(t *testing.T) {
	rounds := &fakeRounds{}
	h := NewServer(Options{Rounds: rounds}).Handler()

	if w := do(t, h, "GET", "/api/run", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", w.Code)
	}

	w := do(t, h, "POST", "/api/run", "")
	if w.Code != http.StatusOK || rounds.ran != 1 {
		t.Fatalf("expected a round to run, got %d (ran %d)", w.Code, rounds.ran)
	}

	rounds.busy = true
	if w := do(t, h, "POST", "/api/run", ""); w.Code != http.StatusConflict {
		t.Errorf("expected 409 while busy, got %d", w.Code)
	}
}

func TestRunRoundOutlivesClient(t *testing.T) {
	rounds := &fakeRounds{}
	h := NewServer(Options{Rounds: rounds}).Handler()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("POST", "/api/run", nil).WithContext(ctx)
	h.ServeHTTP(httptest.NewRecorder(), req)

	if rounds.ran != 1 {
		t.Fatalf("expected a round to run, ran %d", rounds.ran)
	}
	if rounds.roundErr != nil {
		t.Errorf("expected the round context to survive the client, got %v", rounds.roundErr)
	}
}

func TestListProbesHidesSecrets(t *testing.T) {
	h := NewServer(Options{Rounds: &fakeRounds{}}).Handler()
	w := do(t, h, "GET", "/api/probes", "")
	if strings.Contains(w.Body.String(), "testing123") {
		t.Errorf("secret leaked in probe listing: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"radius"`) {
		t.Errorf("expected probe in listing: %s", w.Body.String())
	}
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("clusterwatch_rounds_total 1\n"))
	})
	h := NewServer(Options{Rounds: &fakeRounds{}, Metrics: metrics, AuthToken: "test-token"}).Handler()

	w := do(t, h, "GET", "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "clusterwatch_rounds_total") {
		t.Errorf("expected metrics without auth, got %d %q", w.Code, w.Body.String())
	}
}
