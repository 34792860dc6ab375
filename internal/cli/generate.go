// internal/cli/generate.go
package emailwriter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwiater/emailwriter/internal/generator"
	"github.com/mwiater/emailwriter/internal/logging"
	"github.com/mwiater/emailwriter/internal/util"
)

var (
	generateContent   string
	generateFile      string
	generateTone      string
	generateGenerator string
	generateJSON      bool
	generateWrap      int
)

type generateOutput struct {
	Reply     string `json:"reply"`
	Generator string `json:"generator"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// generateCmd produces one reply for an email.
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a reply to an email",
	Long: `Generate a reply to an email using the selected generator strategy.
The email is taken from --content, from --file, or from stdin when --file is "-".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg == nil {
			return errNoConfig
		}

		content, err := readEmailContent(cmd.InOrStdin())
		if err != nil {
			return err
		}
		req := generator.EmailRequest{EmailContent: content, Tone: generateTone}
		if err := req.Validate(); err != nil {
			return err
		}

		kind := generateGenerator
		if kind == "" {
			kind = cfg.Benchmark.Candidate
		}
		gen, err := generator.New(kind, cfg)
		if err != nil {
			return err
		}

		start := time.Now()
		reply, err := gen.Generate(cmd.Context(), req)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)
		logging.LogDebug("generate: %s replied in %s", gen.Name(), elapsed)

		out := cmd.OutOrStdout()
		if generateJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(generateOutput{Reply: reply, Generator: gen.Name(), ElapsedMs: elapsed.Milliseconds()})
		}
		fmt.Fprintln(out, util.WrapToWidth(reply, generateWrap))
		return nil
	},
}

func readEmailContent(stdin io.Reader) (string, error) {
	if generateContent != "" && generateFile != "" {
		return "", fmt.Errorf("use either --content or --file, not both")
	}
	switch generateFile {
	case "":
		return generateContent, nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return util.NormalizeNewlines(string(data)), nil
	default:
		data, err := os.ReadFile(generateFile)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", generateFile, err)
		}
		return util.NormalizeNewlines(string(data)), nil
	}
}

func init() {
	generateCmd.Flags().StringVar(&generateContent, "content", "", "email text to reply to")
	generateCmd.Flags().StringVarP(&generateFile, "file", "f", "", `file holding the email ("-" reads stdin)`)
	generateCmd.Flags().StringVarP(&generateTone, "tone", "t", "", "desired tone of the reply")
	generateCmd.Flags().StringVarP(&generateGenerator, "generator", "g", "", "generator strategy: blocking, async, openai or mock (default from config)")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "print the reply as JSON")
	generateCmd.Flags().IntVarP(&generateWrap, "wrap", "w", 0, "wrap the printed reply at this many columns, 0 for none")

	rootCmd.AddCommand(generateCmd)
}
