package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mwiater/emailwriter/internal/benchmark"
	"github.com/mwiater/emailwriter/internal/generator"
	"github.com/mwiater/emailwriter/internal/logging"
	"github.com/mwiater/emailwriter/internal/metrics"
)

type generateRequest struct {
	EmailContent string `json:"emailContent"`
	Tone         string `json:"tone,omitempty"`
	Generator    string `json:"generator,omitempty"`
}

type generateResponse struct {
	Reply     string `json:"reply"`
	Generator string `json:"generator"`
	ElapsedMs int64  `json:"elapsedMs"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body generateRequest
	if err := decodeJSON(r, &body); err != nil {
		writeDecodeError(w, r, err)
		return
	}

	req := generator.EmailRequest{EmailContent: body.EmailContent, Tone: body.Tone}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	g, err := s.generatorFor(firstNonEmpty(body.Generator, s.cfg.Benchmark.Candidate, generator.KindAsync))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	reply, err := g.Generate(r.Context(), req)
	elapsed := time.Since(start)
	if err != nil {
		logging.LogEvent("generate via %s failed: %v", g.Name(), err)
		writeError(w, r, statusFor(err), fmt.Sprintf("generate failed: %v", err))
		return
	}

	s.tracker.Record(g.Name(), elapsed)
	metrics.GenerateDuration.WithLabelValues(g.Name()).Observe(elapsed.Seconds())

	writeJSON(w, http.StatusOK, generateResponse{
		Reply:     reply,
		Generator: g.Name(),
		ElapsedMs: elapsed.Milliseconds(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Snapshot())
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	s.handleBenchmark(w, r, benchmark.ModeSequential, "iterations")
}

func (s *Server) handleConcurrent(w http.ResponseWriter, r *http.Request) {
	s.handleBenchmark(w, r, benchmark.ModeConcurrent, "concurrentRequests")
}

func (s *Server) handleBenchmark(w http.ResponseWriter, r *http.Request, mode benchmark.Mode, countParam string) {
	q := r.URL.Query()

	count, err := intParam(q.Get(countParam))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("%s: %v", countParam, err))
		return
	}
	if !q.Has(countParam) {
		count = s.cfg.BenchmarkCount(0)
	}

	poolSize := s.cfg.Benchmark.PoolSize
	if q.Has("poolSize") {
		if poolSize, err = intParam(q.Get("poolSize")); err != nil {
			writeError(w, r, http.StatusBadRequest, fmt.Sprintf("poolSize: %v", err))
			return
		}
	}

	baseline, err := s.generatorFor(firstNonEmpty(q.Get("baseline"), s.cfg.Benchmark.Baseline, generator.KindBlocking))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	candidate, err := s.generatorFor(firstNonEmpty(q.Get("candidate"), s.cfg.Benchmark.Candidate, generator.KindAsync))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var req generator.EmailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	logging.LogEvent("%s benchmark request from %s", mode, r.RemoteAddr)
	s.benchMu.Lock()
	defer s.benchMu.Unlock()

	runner := benchmark.Runner{
		PoolSize:     poolSize,
		PhaseTimeout: s.cfg.PhaseTimeout(),
		Tracker:      s.tracker,
	}

	var res benchmark.Result
	if mode == benchmark.ModeSequential {
		res, err = runner.RunSequential(r.Context(), req, count, baseline, candidate)
	} else {
		res, err = runner.RunConcurrent(r.Context(), req, count, baseline, candidate)
	}
	if err != nil {
		writeError(w, r, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	return n, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			return v
		}
	}
	return ""
}
