package appconfig

import (
	"fmt"
	"io"

	"github.com/k0kubun/pp"
)

// ShowConfig prints the current configuration summary. The API key is never printed.
// With verbose set, the full redacted struct is dumped as well.
func ShowConfig(out io.Writer, file string, cfg Config, verbose bool) {
	if file == "" {
		fmt.Fprintln(out, "No config file loaded (using defaults).")
	} else {
		fmt.Fprintf(out, "Config file: %s\n\n", file)
	}

	apiKey := "(not set)"
	if cfg.APIKey() != "" {
		apiKey = "(set)"
	}

	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "  Debug:           %v\n", cfg.Debug)
	fmt.Fprintf(out, "  Mock Mode:       %v\n", cfg.Mock)
	fmt.Fprintf(out, "  Listen Addr:     %s\n", cfg.ListenAddr())
	fmt.Fprintf(out, "  Log File:        %s\n", cfg.LogFilePath())
	fmt.Fprintf(out, "  Request Timeout: %s\n", cfg.RequestTimeout())
	fmt.Fprintf(out, "  Gemini URL:      %s\n", cfg.Gemini.APIURL)
	fmt.Fprintf(out, "  Gemini Model:    %s\n", cfg.Gemini.Model)
	fmt.Fprintf(out, "  Gemini API Key:  %s\n", apiKey)
	fmt.Fprintf(out, "  Baseline:        %s\n", cfg.Benchmark.Baseline)
	fmt.Fprintf(out, "  Candidate:       %s\n", cfg.Benchmark.Candidate)
	fmt.Fprintf(out, "  Default Count:   %d\n", cfg.BenchmarkCount(0))
	if cfg.Benchmark.PoolSize > 0 {
		fmt.Fprintf(out, "  Pool Size:       %d\n", cfg.Benchmark.PoolSize)
	} else {
		fmt.Fprintln(out, "  Pool Size:       one worker per request")
	}
	if d := cfg.PhaseTimeout(); d > 0 {
		fmt.Fprintf(out, "  Phase Timeout:   %s\n", d)
	}
	fmt.Fprintf(out, "  Output Dir:      %s\n", cfg.OutputDir())

	if verbose {
		fmt.Fprintln(out)
		coloring := pp.ColoringEnabled
		pp.ColoringEnabled = false
		pp.Fprintln(out, cfg.Redacted())
		pp.ColoringEnabled = coloring
	}
}
