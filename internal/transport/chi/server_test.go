package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tripwise/internal/domain"
	domdest "github.com/kailas-cloud/tripwise/internal/domain/destination"
	dompipe "github.com/kailas-cloud/tripwise/internal/domain/pipeline"
	"github.com/kailas-cloud/tripwise/internal/domain/quality"
	"github.com/kailas-cloud/tripwise/internal/domain/search/request"
	"github.com/kailas-cloud/tripwise/internal/domain/search/response"
	destinationuc "github.com/kailas-cloud/tripwise/internal/usecase/destination"
	healthuc "github.com/kailas-cloud/tripwise/internal/usecase/health"
)

// --- Mocks ---

type mockSearcher struct {
	got   request.Request
	panic bool
}

func (m *mockSearcher) Search(_ context.Context, req request.Request) response.Response {
	if m.panic {
		panic("boom")
	}
	m.got = req
	resp := response.Empty(http.StatusOK, response.MessageOK)
	resp.Destination = &domdest.Destination{ID: "pushkar-india", Name: "Pushkar"}
	return resp
}

type mockDestinations struct {
	err     error
	added   []string
	updated []string
}

func (m *mockDestinations) Add(_ context.Context, name, country string) (destinationuc.Result, error) {
	if m.err != nil {
		return destinationuc.Result{}, m.err
	}
	m.added = append(m.added, name+"|"+country)
	d := domdest.Destination{ID: domdest.Slug(name, country), Name: name, Country: country}
	return destinationuc.Result{Destination: d, RecordID: "r1", Stored: true}, nil
}

func (m *mockDestinations) Update(_ context.Context, id string) (destinationuc.Result, error) {
	if m.err != nil {
		return destinationuc.Result{}, m.err
	}
	m.updated = append(m.updated, id)
	return destinationuc.Result{Destination: domdest.Destination{ID: id}, Stored: true}, nil
}

func (m *mockDestinations) Get(_ context.Context, id string) (domdest.Destination, error) {
	if m.err != nil {
		return domdest.Destination{}, m.err
	}
	return domdest.Destination{ID: id, Name: "Pushkar"}, nil
}

type mockQuality struct {
	err error
}

func (m *mockQuality) SubmitFeedback(
	_ context.Context, id string, rating int, category quality.Category, comment string,
) (quality.Feedback, error) {
	f, err := quality.NewFeedback(id, rating, category, comment)
	if err != nil {
		return quality.Feedback{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	f.ID = "fb1"
	return f, m.err
}

func (m *mockQuality) FeedbackSummary(_ context.Context, id string) (quality.Summary, error) {
	return quality.Summary{DestinationID: id, Count: 2, Overall: 4.5}, m.err
}

func (m *mockQuality) GenerateReport(context.Context) (quality.Report, error) {
	return quality.Report{TotalRecords: 3}, m.err
}

type mockPipeline struct {
	triggered []dompipe.Trigger
	running   bool
}

func (m *mockPipeline) Trigger(trigger dompipe.Trigger) dompipe.RunStats {
	m.triggered = append(m.triggered, trigger)
	return dompipe.RunStats{RunID: "run1", IsRunning: true, Trigger: trigger, Phase: dompipe.PhaseUpdate}
}

func (m *mockPipeline) Status() dompipe.RunStats {
	return dompipe.RunStats{IsRunning: m.running}
}

type mockRuns struct {
	limit int
	err   error
}

func (m *mockRuns) ListRuns(_ context.Context, limit int) ([]dompipe.RunStats, error) {
	m.limit = limit
	return nil, m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func (m *mockHealth) SystemStatus(context.Context) healthuc.SystemStatus {
	return healthuc.SystemStatus{TotalRecords: 7, DataQuality: healthuc.QualityGood, PipelineStatus: healthuc.PipelineIdle}
}

type fixture struct {
	search  *mockSearcher
	dests   *mockDestinations
	quality *mockQuality
	pipe    *mockPipeline
	runs    *mockRuns
	health  *mockHealth
	handler http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		search:  &mockSearcher{},
		dests:   &mockDestinations{},
		quality: &mockQuality{},
		pipe:    &mockPipeline{},
		runs:    &mockRuns{},
		health:  &mockHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{}}},
	}
	srv := NewServer(f.search, f.dests, f.quality, f.pipe, f.runs, f.health, zap.NewNop())
	f.handler = NewRouter(srv, zap.NewNop(), nil)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// --- Tests ---

func TestSearch_OK(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/search",
		`{"query":"quiet lake town","context":{"legalConcerns":["alcohol"]},"limit":3}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[response.Response](t, rec)
	if resp.Destination == nil || resp.Destination.Name != "Pushkar" {
		t.Errorf("unexpected destination %+v", resp.Destination)
	}
	if f.search.got.Limit() != 3 || f.search.got.Context().LegalConcerns[0] != "alcohol" {
		t.Errorf("request not propagated: %+v", f.search.got)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/search", `{"query":"  "}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	resp := decode[response.Response](t, rec)
	if resp.Status.Code != http.StatusBadRequest || resp.Status.Message != response.MessageError {
		t.Errorf("unexpected status %+v", resp.Status)
	}
}

func TestSearch_BadJSON(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/search", `{`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if decode[ErrorResponse](t, rec).Code != CodeBadRequest {
		t.Error("expected bad_request code")
	}
}

func TestSearch_PanicRecovered(t *testing.T) {
	f := newFixture()
	f.search.panic = true
	rec := f.do(t, http.MethodPost, "/search", `{"query":"lake"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if decode[ErrorResponse](t, rec).Code != CodeInternalError {
		t.Error("expected internal_error code")
	}
}

func TestAddDestination_Created(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/destinations", `{"name":"Hoi An","country":"Vietnam"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	res := decode[destinationuc.Result](t, rec)
	if res.Destination.ID != "hoi-an-vietnam" || !res.Stored {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestAddDestination_MissingName(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/destinations", `{"country":"Vietnam"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(f.dests.added) != 0 {
		t.Error("service must not be called")
	}
}

func TestAddDestination_PersistenceError(t *testing.T) {
	f := newFixture()
	f.dests.err = fmt.Errorf("store: %w: %w", domain.ErrPersistence, errors.New("redis down"))
	rec := f.do(t, http.MethodPost, "/destinations", `{"name":"Hoi An"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	body := decode[ErrorResponse](t, rec)
	if strings.Contains(body.Message, "redis") {
		t.Errorf("internal detail leaked: %q", body.Message)
	}
}

func TestGetDestination_NotFound(t *testing.T) {
	f := newFixture()
	f.dests.err = fmt.Errorf("get x: %w", domain.ErrNotFound)
	rec := f.do(t, http.MethodGet, "/destinations/atlantis-nowhere", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if decode[ErrorResponse](t, rec).Code != CodeNotFound {
		t.Error("expected not_found code")
	}
}

func TestRefreshDestination(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/destinations/pushkar-india/refresh", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(f.dests.updated) != 1 || f.dests.updated[0] != "pushkar-india" {
		t.Errorf("unexpected updates %v", f.dests.updated)
	}
}

func TestRefreshDestination_Unconfigured(t *testing.T) {
	f := newFixture()
	f.dests.err = fmt.Errorf("embed: %w", domain.ErrUnconfigured)
	rec := f.do(t, http.MethodPost, "/destinations/pushkar-india/refresh", "")

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if decode[ErrorResponse](t, rec).Code != CodeUnavailable {
		t.Error("expected unavailable code")
	}
}

func TestSubmitFeedback(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/destinations/pushkar-india/feedback",
		`{"rating":5,"category":"accuracy","comment":"spot on"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	fb := decode[quality.Feedback](t, rec)
	if fb.DestinationID != "pushkar-india" || fb.Rating != 5 {
		t.Errorf("unexpected feedback %+v", fb)
	}
}

func TestSubmitFeedback_InvalidRating(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/destinations/pushkar-india/feedback", `{"rating":9,"category":"accuracy"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(decode[ErrorResponse](t, rec).Message, "rating") {
		t.Error("expected the validation reason in the message")
	}
}

func TestFeedbackSummary(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/destinations/pushkar-india/feedback", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decode[quality.Summary](t, rec).Overall != 4.5 {
		t.Error("unexpected summary")
	}
}

func TestRunPipeline(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/pipeline/run", "")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(f.pipe.triggered) != 1 || f.pipe.triggered[0] != dompipe.TriggerManual {
		t.Errorf("unexpected triggers %v", f.pipe.triggered)
	}
	if !decode[dompipe.RunStats](t, rec).IsRunning {
		t.Error("expected running status")
	}
}

func TestListRuns(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/pipeline/runs?limit=5", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.runs.limit != 5 {
		t.Errorf("expected limit 5, got %d", f.runs.limit)
	}
	if decode[RunsResponse](t, rec).Items == nil {
		t.Error("items must be non-nil")
	}
}

func TestListRuns_DefaultLimit(t *testing.T) {
	f := newFixture()
	f.do(t, http.MethodGet, "/pipeline/runs", "")

	if f.runs.limit != defaultRunsLimit {
		t.Errorf("expected default limit, got %d", f.runs.limit)
	}
}

func TestListRuns_InvalidLimit(t *testing.T) {
	f := newFixture()
	for _, q := range []string{"abc", "0", "1000"} {
		rec := f.do(t, http.MethodGet, "/pipeline/runs?limit="+q, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestSystemStatus(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/status", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if decode[healthuc.SystemStatus](t, rec).TotalRecords != 7 {
		t.Error("unexpected status body")
	}
}

func TestQualityReport_Error(t *testing.T) {
	f := newFixture()
	f.quality.err = fmt.Errorf("report: %w", domain.ErrPersistence)
	rec := f.do(t, http.MethodGet, "/quality/report", "")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		status healthuc.Status
		want   int
	}{
		{"healthy", healthuc.Healthy, http.StatusOK},
		{"degraded", healthuc.Degraded, http.StatusOK},
		{"unhealthy", healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.health.report = healthuc.Report{
				Status: tt.status,
				Checks: map[string]healthuc.CheckResult{"embedding": healthuc.CheckUnconfigured},
			}
			rec := f.do(t, http.MethodGet, "/health", "")

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			body := decode[HealthResponse](t, rec)
			if body.Status != string(tt.status) || body.Checks["embedding"] != "unconfigured" {
				t.Errorf("unexpected body %+v", body)
			}
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/nope", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Error("expected JSON body")
	}
}
