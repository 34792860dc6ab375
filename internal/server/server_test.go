package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mwiater/emailwriter/internal/appconfig"
	"github.com/mwiater/emailwriter/internal/benchmark"
	"github.com/mwiater/emailwriter/internal/generator"
	"github.com/mwiater/emailwriter/internal/metrics"
)

func newTestServer(t *testing.T, cfg appconfig.Config, gens map[string]generator.Generator) (*httptest.Server, *metrics.Tracker) {
	t.Helper()
	tracker := metrics.NewTracker()
	s := NewWithGenerators(&cfg, gens, tracker)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, tracker
}

func defaultGenerators() map[string]generator.Generator {
	return map[string]generator.Generator{
		generator.KindBlocking: &generator.MockGenerator{Label: "blocking", Reply: "blocking reply"},
		generator.KindAsync:    &generator.MockGenerator{Label: "async", Reply: "async reply"},
	}
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, r io.Reader) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, appconfig.Default(), defaultGenerators())

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("got %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestGenerate(t *testing.T) {
	srv, tracker := newTestServer(t, appconfig.Default(), defaultGenerators())

	t.Run("default generator", func(t *testing.T) {
		resp := post(t, srv.URL+"/api/email/generate", `{"emailContent":"Are we still on for lunch?","tone":"friendly"}`)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status: %d", resp.StatusCode)
		}
		got := decode[generateResponse](t, resp.Body)
		if got.Reply != "async reply" || got.Generator != "async" {
			t.Errorf("response: %+v", got)
		}
	})

	t.Run("explicit generator", func(t *testing.T) {
		resp := post(t, srv.URL+"/api/email/generate", `{"emailContent":"hi","generator":"blocking"}`)
		got := decode[generateResponse](t, resp.Body)
		if got.Generator != "blocking" {
			t.Errorf("generator: %q", got.Generator)
		}
	})

	snap := tracker.Snapshot()
	if snap.TotalRequestsProcessed != 2 {
		t.Errorf("tracker: %+v", snap)
	}
}

func TestGenerateValidation(t *testing.T) {
	srv, _ := newTestServer(t, appconfig.Default(), defaultGenerators())

	tests := []struct {
		name   string
		body   string
		status int
		errMsg string
	}{
		{"invalid json", `{not json`, http.StatusBadRequest, "invalid JSON"},
		{"unknown field", `{"emailContent":"hi","subject":"x"}`, http.StatusBadRequest, "invalid JSON"},
		{"missing content", `{"tone":"formal"}`, http.StatusBadRequest, "emailContent is required"},
		{"unknown generator", `{"emailContent":"hi","generator":"fax"}`, http.StatusBadRequest, "unknown generator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/api/email/generate", tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status: got %d, want %d", resp.StatusCode, tt.status)
			}
			got := decode[ErrResp](t, resp.Body)
			if got.OK || !strings.Contains(got.Error, tt.errMsg) {
				t.Errorf("error body: %+v", got)
			}
			if got.RequestID == "" {
				t.Error("error body missing request id")
			}
		})
	}
}

func TestGenerateRemoteFailure(t *testing.T) {
	gens := defaultGenerators()
	gens[generator.KindAsync] = &generator.MockGenerator{Label: "async", Err: errors.New("quota exceeded")}
	srv, tracker := newTestServer(t, appconfig.Default(), gens)

	resp := post(t, srv.URL+"/api/email/generate", `{"emailContent":"hi"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status: got %d, want 502", resp.StatusCode)
	}
	got := decode[ErrResp](t, resp.Body)
	if !strings.Contains(got.Error, "quota exceeded") {
		t.Errorf("error: %q", got.Error)
	}
	if tracker.Snapshot().TotalRequestsProcessed != 0 {
		t.Error("failed calls must not be recorded")
	}
}

func TestGenerateRemoteFailureHidesAPIKey(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	apiURL := closed.URL + "/v1beta/models/m:generateContent"
	closed.Close()

	const secret = "SECRET-KEY-123"
	gens := defaultGenerators()
	gens[generator.KindAsync] = generator.NewBlocking(apiURL, secret, "m", time.Second, nil)
	srv, _ := newTestServer(t, appconfig.Default(), gens)

	resp := post(t, srv.URL+"/api/email/generate", `{"emailContent":"hi"}`)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status: got %d, want 502", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if bytes.Contains(body, []byte(secret)) {
		t.Errorf("API key leaked in response: %s", body)
	}
}

func TestEmailMetrics(t *testing.T) {
	srv, tracker := newTestServer(t, appconfig.Default(), defaultGenerators())
	tracker.Record("async", 40*time.Millisecond)
	tracker.Record("async", 60*time.Millisecond)

	resp, err := http.Get(srv.URL + "/api/email/metrics")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	snap := decode[metrics.Snapshot](t, resp.Body)
	if snap.TotalRequestsProcessed != 2 || snap.AverageProcessingTimeMs != 50 {
		t.Errorf("snapshot: %+v", snap)
	}
}

func TestBenchmarkCompare(t *testing.T) {
	gens := defaultGenerators()
	srv, _ := newTestServer(t, appconfig.Default(), gens)

	resp := post(t, srv.URL+"/api/benchmark/compare?iterations=4", `{"emailContent":"hi","tone":"formal"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	res := decode[benchmark.Result](t, resp.Body)
	if res.RequestCount != 4 || res.Mode != benchmark.ModeSequential {
		t.Errorf("result: %+v", res)
	}
	if res.StrategyA != "blocking" || res.StrategyB != "async" {
		t.Errorf("strategies: %q %q", res.StrategyA, res.StrategyB)
	}
	if calls := gens[generator.KindBlocking].(*generator.MockGenerator).Calls(); calls != 4 {
		t.Errorf("blocking calls: %d", calls)
	}
}

func TestBenchmarkConcurrentDefaultsCount(t *testing.T) {
	cfg := appconfig.Default()
	cfg.Benchmark.DefaultCount = 3
	gens := defaultGenerators()
	srv, _ := newTestServer(t, cfg, gens)

	resp := post(t, srv.URL+"/api/benchmark/concurrent", `{"emailContent":"hi"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	res := decode[benchmark.Result](t, resp.Body)
	if res.RequestCount != 3 || res.PoolSize != 3 || res.Mode != benchmark.ModeConcurrent {
		t.Errorf("result: %+v", res)
	}
	if calls := gens[generator.KindAsync].(*generator.MockGenerator).Calls(); calls != 3 {
		t.Errorf("async calls: %d", calls)
	}
}

func TestBenchmarkConcurrentPoolSizeParam(t *testing.T) {
	srv, _ := newTestServer(t, appconfig.Default(), defaultGenerators())

	resp := post(t, srv.URL+"/api/benchmark/concurrent?concurrentRequests=6&poolSize=2", `{"emailContent":"hi"}`)
	res := decode[benchmark.Result](t, resp.Body)
	if res.PoolSize != 2 || res.RequestCount != 6 {
		t.Errorf("result: %+v", res)
	}
}

func TestBenchmarkErrors(t *testing.T) {
	gens := defaultGenerators()
	gens[generator.KindAsync] = &generator.MockGenerator{Label: "async", Err: errors.New("down")}
	srv, _ := newTestServer(t, appconfig.Default(), gens)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"zero iterations", "/api/benchmark/compare?iterations=0", `{"emailContent":"hi"}`, http.StatusBadRequest},
		{"negative requests", "/api/benchmark/concurrent?concurrentRequests=-2", `{"emailContent":"hi"}`, http.StatusBadRequest},
		{"non-integer", "/api/benchmark/compare?iterations=ten", `{"emailContent":"hi"}`, http.StatusBadRequest},
		{"unknown baseline", "/api/benchmark/compare?baseline=fax", `{"emailContent":"hi"}`, http.StatusBadRequest},
		{"missing content", "/api/benchmark/compare", `{}`, http.StatusBadRequest},
		{"remote failure", "/api/benchmark/compare?iterations=2", `{"emailContent":"hi"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+tt.path, tt.body)
			if resp.StatusCode != tt.status {
				t.Errorf("status: got %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestBenchmarkTimeoutMapsTo504(t *testing.T) {
	cfg := appconfig.Default()
	cfg.Benchmark.PhaseTimeoutSeconds = 1
	gens := defaultGenerators()
	gens[generator.KindBlocking] = &generator.MockGenerator{Label: "blocking", Delay: time.Minute}
	srv, _ := newTestServer(t, cfg, gens)

	resp := post(t, srv.URL+"/api/benchmark/concurrent?concurrentRequests=2", `{"emailContent":"hi"}`)
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("status: got %d, want 504", resp.StatusCode)
	}
}

func TestPrometheusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, appconfig.Default(), defaultGenerators())

	before := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("GET", "/healthz", "200"))
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	after := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("GET", "/healthz", "200"))
	if after != before+1 {
		t.Errorf("counter: got %f, want %f", after, before+1)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte("emailwriter_requests_total")) {
		t.Error("metrics output missing emailwriter_requests_total")
	}
}

func TestRequestsTotalBoundsUnknownPaths(t *testing.T) {
	srv, _ := newTestServer(t, appconfig.Default(), defaultGenerators())

	unmatched := metrics.RequestsTotal.WithLabelValues("unmatched", "unmatched", "404")
	before := testutil.ToFloat64(unmatched)
	series := testutil.CollectAndCount(metrics.RequestsTotal)
	for _, path := range []string{"/does-not-exist", "/random/abc123"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("GET %s: status %d", path, resp.StatusCode)
		}
	}
	if got := testutil.ToFloat64(unmatched); got != before+2 {
		t.Errorf("unmatched series: got %f, want %f", got, before+2)
	}
	if got := testutil.CollectAndCount(metrics.RequestsTotal); got != series {
		t.Errorf("unknown paths created new series: %d before, %d after", series, got)
	}
}

func TestGenerateBodyTooLarge(t *testing.T) {
	cfg := appconfig.Default()
	h := NewWithGenerators(&cfg, defaultGenerators(), nil).Handler()

	body := `{"emailContent":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/email/generate", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status: got %d, want 413", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	cfg := appconfig.Default()
	h := NewWithGenerators(&cfg, defaultGenerators(), nil).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/email/generate", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status: got %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("allow methods: %q", got)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	cfg := appconfig.Default()
	h := NewWithGenerators(&cfg, defaultGenerators(), nil).Handler()

	const id = "9b2f3a52-2d43-4a57-9e43-4f4c0f7f5d10"
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", id)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != id {
		t.Errorf("request id: got %q, want %q", got, id)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got == "not-a-uuid" || got == "" {
		t.Errorf("invalid incoming id should be replaced, got %q", got)
	}
}

func TestServeGracefulShutdown(t *testing.T) {
	cfg := appconfig.Default()
	s := NewWithGenerators(&cfg, defaultGenerators(), nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
