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
	"time"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cellarpress/sommelier/internal/domain"
	healthuc "github.com/cellarpress/sommelier/internal/usecase/health"
	searchuc "github.com/cellarpress/sommelier/internal/usecase/search"
)

// --- Mocks ---

type mockSearcher struct {
	result *domain.SearchResult
	err    error
	gotReq searchuc.Request
}

func (m *mockSearcher) Search(_ context.Context, req searchuc.Request) (*domain.SearchResult, error) {
	m.gotReq = req
	return m.result, m.err
}

type mockLister struct {
	texts []string
	err   error
}

func (m *mockLister) List(_ context.Context) ([]string, error) { return m.texts, m.err }

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

func newTestServer(search *mockSearcher, lister *mockLister, health *mockHealth) *httptest.Server {
	if search == nil {
		search = &mockSearcher{result: &domain.SearchResult{}}
	}
	if lister == nil {
		lister = &mockLister{}
	}
	if health == nil {
		health = &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK},
		}}
	}

	r := chirouter.NewRouter()
	NewServer(search, lister, health, zap.NewNop()).RegisterRoutes(r)
	return httptest.NewServer(r)
}

func postSearch(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url+"/search", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /search: %v", err)
	}
	return resp
}

// --- Tests ---

func TestSearchEndpoint(t *testing.T) {
	sim := 0.87
	search := &mockSearcher{result: &domain.SearchResult{
		Results:        []domain.Review{{ID: 3, Title: "Château Margaux 2015", Points: 98, Similarity: &sim}},
		Classification: domain.QueryClassification{Type: domain.TypeSemantic},
		Timings: domain.Timings{
			{Stage: domain.StageDB, Duration: 12 * time.Millisecond},
			{Stage: domain.StageTotal, Duration: 30 * time.Millisecond},
		},
	}}
	ts := newTestServer(search, nil, nil)
	defer ts.Close()

	resp := postSearch(t, ts.URL, `{"query":"elegant bordeaux","top_k":3,"min_similarity":0.2}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Results) != 1 || body.Results[0].Title != "Château Margaux 2015" {
		t.Fatalf("results = %+v", body.Results)
	}
	if body.Results[0].Similarity == nil || *body.Results[0].Similarity != sim {
		t.Fatalf("similarity missing from response")
	}
	if len(body.TimingsMS) != 2 || body.TimingsMS[0].Stage != domain.StageDB {
		t.Fatalf("timings = %+v", body.TimingsMS)
	}
	if body.TimingsMS[1].DurationMS != 30 {
		t.Fatalf("total ms = %v, want 30", body.TimingsMS[1].DurationMS)
	}

	if search.gotReq.Query != "elegant bordeaux" {
		t.Fatalf("query = %q", search.gotReq.Query)
	}
	if search.gotReq.TopK != 3 || search.gotReq.MinSimilarity != 0.2 {
		t.Fatalf("overrides not passed: %+v", search.gotReq)
	}
}

func TestSearchEndpointExtractsImageURLs(t *testing.T) {
	search := &mockSearcher{result: &domain.SearchResult{}}
	ts := newTestServer(search, nil, nil)
	defer ts.Close()

	resp := postSearch(t, ts.URL,
		`{"query":"what is this https://example.com/label.jpg bottle"}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if search.gotReq.Query != "what is this bottle" {
		t.Fatalf("cleaned query = %q", search.gotReq.Query)
	}
	if len(search.gotReq.ImageRefs) != 1 || search.gotReq.ImageRefs[0] != "https://example.com/label.jpg" {
		t.Fatalf("image refs = %v", search.gotReq.ImageRefs)
	}
}

func TestSearchEndpointExplicitRefsFirst(t *testing.T) {
	search := &mockSearcher{result: &domain.SearchResult{}}
	ts := newTestServer(search, nil, nil)
	defer ts.Close()

	resp := postSearch(t, ts.URL,
		`{"query":"compare with https://example.com/b.png","image_refs":["https://example.com/a.jpg"]}`)
	defer resp.Body.Close()

	want := []string{"https://example.com/a.jpg", "https://example.com/b.png"}
	if len(search.gotReq.ImageRefs) != 2 ||
		search.gotReq.ImageRefs[0] != want[0] || search.gotReq.ImageRefs[1] != want[1] {
		t.Fatalf("image refs = %v, want %v", search.gotReq.ImageRefs, want)
	}
}

func TestSearchEndpointInvalidBody(t *testing.T) {
	ts := newTestServer(nil, nil, nil)
	defer ts.Close()

	resp := postSearch(t, ts.URL, `{not json`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSearchEndpointErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"empty query", domain.ErrEmptyQuery, http.StatusBadRequest, "empty_query"},
		{
			"wrapped empty query",
			fmt.Errorf("%w: %w", domain.ErrSearchFailed, domain.ErrEmptyQuery),
			http.StatusBadRequest,
			"empty_query",
		},
		{
			"classifier failure",
			fmt.Errorf("%w: %w", domain.ErrSearchFailed, domain.ErrClassifierError),
			http.StatusBadGateway,
			"classifier_error",
		},
		{
			"embedding failure",
			fmt.Errorf("%w: %w", domain.ErrSearchFailed, domain.ErrEmbeddingProviderError),
			http.StatusBadGateway,
			"embedding_provider_error",
		},
		{
			"vision failure",
			fmt.Errorf("%w: %w", domain.ErrSearchFailed, domain.ErrVisionProviderError),
			http.StatusBadGateway,
			"vision_provider_error",
		},
		{
			"memory failure",
			fmt.Errorf("%w: %w", domain.ErrSearchFailed, domain.ErrMemoryUnavailable),
			http.StatusServiceUnavailable,
			"memory_unavailable",
		},
		{"unknown failure", errors.New("pg broke"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(&mockSearcher{err: tc.err}, nil, nil)
			defer ts.Close()

			resp := postSearch(t, ts.URL, `{"query":"anything"}`)
			defer resp.Body.Close()

			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			var body ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", body.Code, tc.wantCode)
			}
			if tc.wantStatus == http.StatusInternalServerError && strings.Contains(body.Message, "pg broke") {
				t.Fatalf("internal detail leaked to client: %q", body.Message)
			}
		})
	}
}

func TestMemoriesEndpoint(t *testing.T) {
	ts := newTestServer(nil, &mockLister{texts: []string{"prefers pinot noir", "budget under $30"}}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/memories")
	if err != nil {
		t.Fatalf("GET /memories: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body MemoriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Memories) != 2 || body.Memories[0] != "prefers pinot noir" {
		t.Fatalf("memories = %v", body.Memories)
	}
}

func TestMemoriesEndpointUnavailable(t *testing.T) {
	ts := newTestServer(nil, &mockLister{err: fmt.Errorf("%w: conn refused", domain.ErrMemoryUnavailable)}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/memories")
	if err != nil {
		t.Fatalf("GET /memories: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name       string
		report     healthuc.Report
		wantStatus int
	}{
		{
			"healthy",
			healthuc.Report{
				Status: healthuc.Healthy,
				Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK, "memory": healthuc.CheckOK},
			},
			http.StatusOK,
		},
		{
			"degraded",
			healthuc.Report{
				Status: healthuc.Degraded,
				Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckOK, "memory": healthuc.CheckError},
			},
			http.StatusServiceUnavailable,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(nil, nil, &mockHealth{report: tc.report})
			defer ts.Close()

			resp, err := http.Get(ts.URL + "/healthz")
			if err != nil {
				t.Fatalf("GET /healthz: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
			var body HealthResponse
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if body.Status != string(tc.report.Status) {
				t.Fatalf("status = %q, want %q", body.Status, tc.report.Status)
			}
			if len(body.Checks) != len(tc.report.Checks) {
				t.Fatalf("checks = %v", body.Checks)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(nil, nil, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSearchEndpointEmptyResults(t *testing.T) {
	ts := newTestServer(&mockSearcher{result: &domain.SearchResult{
		Classification: domain.QueryClassification{Type: domain.TypeKeyword},
	}}, nil, nil)
	defer ts.Close()

	resp := postSearch(t, ts.URL, `{"query":"wines over 99 points under $5"}`)
	defer resp.Body.Close()

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if string(body["results"]) != "[]" {
		t.Fatalf("results = %s, want []", body["results"])
	}
}
