package benchmark

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/mwiater/emailwriter/internal/logging"
)

// Encode writes res to w as indented "json" or as "yaml".
func Encode(w io.Writer, res Result, format string) error {
	switch strings.ToLower(format) {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(res)
	case "yaml", "yml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(res); err != nil {
			return err
		}
		return encoder.Close()
	default:
		return fmt.Errorf("unsupported format %q (want json or yaml)", format)
	}
}

// WriteResults writes res as indented JSON under dir and returns the file path.
func WriteResults(dir string, res Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating results directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s-%d-%d.json",
		res.Mode,
		Slugify(res.StrategyA+"-"+res.StrategyB),
		res.RequestCount,
		res.StartedAt.Unix(),
	)
	fileName := filepath.Join(dir, name)

	file, err := os.Create(fileName)
	if err != nil {
		return "", fmt.Errorf("error creating result file: %w", err)
	}

	if err := Encode(file, res, "json"); err != nil {
		file.Close()
		os.Remove(fileName)
		return "", fmt.Errorf("error writing results to file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(fileName)
		return "", fmt.Errorf("error closing result file: %w", err)
	}

	logging.LogEvent("Benchmark results written to %s", fileName)
	return fileName, nil
}

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9_]+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify converts a string into a "slug" format,
// including replacing colons (:) with underscores (_).
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, ":", "_")
	s = slugInvalid.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	return strings.Trim(s, "-_")
}
