// internal/cli/benchmark.go
package emailwriter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwiater/emailwriter/internal/benchmark"
	"github.com/mwiater/emailwriter/internal/generator"
	"github.com/mwiater/emailwriter/internal/logging"
	"github.com/mwiater/emailwriter/internal/metrics"
	"github.com/mwiater/emailwriter/internal/tui"
)

// sampleEmail is benchmarked when --content is not given.
const sampleEmail = `Hi,

Could we move Thursday's project sync to Friday afternoon? I'd also like to go over the Q3 budget numbers before we meet.

Thanks,
Sam`

var (
	benchContent      string
	benchTone         string
	benchBaseline     string
	benchCandidate    string
	benchOutput       string
	benchNoSave       bool
	benchFormat       string
	benchIterations   int
	benchRequests     int
	benchPoolSize     int
	benchPhaseTimeout time.Duration
)

// benchmarkCmd groups the strategy comparisons.
var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Compare a blocking generator against a non-blocking one",
	Long: `Benchmark runs the same email request against a baseline strategy (A) and a
candidate strategy (B) and reports total and average time per strategy and the
improvement of B over A.`,
}

var benchmarkCompareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run each strategy sequentially, one call at a time",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBenchmark(cmd, benchmark.ModeSequential, "iterations", benchIterations)
	},
}

var benchmarkConcurrentCmd = &cobra.Command{
	Use:   "concurrent",
	Short: "Fan each strategy out over a worker pool and wait for every call",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBenchmark(cmd, benchmark.ModeConcurrent, "requests", benchRequests)
	},
}

// runBenchmark resolves the strategies and runs one comparison. Without the
// count flag the configured default is used; an explicit non-positive count is
// rejected by the runner.
func runBenchmark(cmd *cobra.Command, mode benchmark.Mode, countFlag string, count int) error {
	cfg := GetConfig()
	if cfg == nil {
		return errNoConfig
	}

	format := strings.ToLower(benchFormat)
	switch format {
	case "table", "json", "yaml", "yml":
	default:
		return fmt.Errorf("unsupported format %q (want table, json or yaml)", benchFormat)
	}

	if !cmd.Flags().Changed(countFlag) {
		count = cfg.BenchmarkCount(0)
	}

	baseline, err := generator.New(firstSet(benchBaseline, cfg.Benchmark.Baseline, generator.KindBlocking), cfg)
	if err != nil {
		return err
	}
	candidate, err := generator.New(firstSet(benchCandidate, cfg.Benchmark.Candidate, generator.KindAsync), cfg)
	if err != nil {
		return err
	}

	content := benchContent
	if content == "" {
		content = sampleEmail
	}
	req := generator.EmailRequest{EmailContent: content, Tone: benchTone}
	if err := req.Validate(); err != nil {
		return err
	}

	poolSize := cfg.Benchmark.PoolSize
	if cmd.Flags().Changed("pool-size") {
		poolSize = benchPoolSize
	}
	phaseTimeout := cfg.PhaseTimeout()
	if cmd.Flags().Changed("phase-timeout") {
		phaseTimeout = benchPhaseTimeout
	}

	tracker := metrics.NewTracker()
	title := fmt.Sprintf("%s benchmark: %s vs %s, %d requests", mode, baseline.Name(), candidate.Name(), count)
	run := func(ctx context.Context, onPhase func(benchmark.PhaseEvent)) (benchmark.Result, error) {
		runner := benchmark.Runner{
			PoolSize:     poolSize,
			PhaseTimeout: phaseTimeout,
			OnPhase:      onPhase,
			Tracker:      tracker,
		}
		if mode == benchmark.ModeSequential {
			return runner.RunSequential(ctx, req, count, baseline, candidate)
		}
		return runner.RunConcurrent(ctx, req, count, baseline, candidate)
	}

	// Progress goes to stderr when stdout carries machine-readable output.
	progressOut := cmd.OutOrStdout()
	if format != "table" {
		progressOut = cmd.ErrOrStderr()
	}
	res, err := tui.RunWithProgress(cmd.Context(), progressOut, title, run)
	if err != nil {
		return err
	}

	if format == "table" {
		err = benchmark.Render(cmd.OutOrStdout(), res)
	} else {
		err = benchmark.Encode(cmd.OutOrStdout(), res, format)
	}
	if err != nil {
		return err
	}

	snap := tracker.Snapshot()
	logging.LogEvent("benchmark finished: %d successful calls, avg %.2f ms", snap.TotalRequestsProcessed, snap.AverageProcessingTimeMs)

	if benchNoSave {
		return nil
	}
	dir := benchOutput
	if dir == "" {
		dir = cfg.OutputDir()
	}
	path, err := benchmark.WriteResults(dir, res)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Results written to %s\n", path)
	return nil
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func init() {
	flags := benchmarkCmd.PersistentFlags()
	flags.StringVar(&benchContent, "content", "", "email text to reply to (default: a built-in sample)")
	flags.StringVarP(&benchTone, "tone", "t", "", "desired tone of the reply")
	flags.StringVar(&benchBaseline, "baseline", "", "strategy A: blocking, async, openai or mock (default from config)")
	flags.StringVar(&benchCandidate, "candidate", "", "strategy B: blocking, async, openai or mock (default from config)")
	flags.StringVarP(&benchOutput, "output", "o", "", "directory for the JSON result file (default from config)")
	flags.BoolVar(&benchNoSave, "no-save", false, "do not write a result file")
	flags.StringVar(&benchFormat, "format", "table", "output format: table, json or yaml")
	flags.DurationVar(&benchPhaseTimeout, "phase-timeout", 0, "deadline for each phase, 0 for none (default from config)")

	benchmarkCompareCmd.Flags().IntVarP(&benchIterations, "iterations", "n", 0, "calls per strategy (default from config)")

	benchmarkConcurrentCmd.Flags().IntVarP(&benchRequests, "requests", "n", 0, "concurrent calls per strategy (default from config)")
	benchmarkConcurrentCmd.Flags().IntVar(&benchPoolSize, "pool-size", 0, "worker pool size, 0 for one worker per request (default from config)")

	benchmarkCmd.AddCommand(benchmarkCompareCmd, benchmarkConcurrentCmd)
	rootCmd.AddCommand(benchmarkCmd)
}
