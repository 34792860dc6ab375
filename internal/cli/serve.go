// internal/cli/serve.go
package emailwriter

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/emailwriter/internal/logging"
	"github.com/mwiater/emailwriter/internal/metrics"
	"github.com/mwiater/emailwriter/internal/server"
)

// serveCmd starts the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for email generation and benchmarks",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg == nil {
			return errNoConfig
		}

		srv, err := server.New(cfg, metrics.NewTracker())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logging.LogEvent("serve: mock=%v baseline=%s candidate=%s", cfg.Mock, cfg.Benchmark.Baseline, cfg.Benchmark.Candidate)
		return srv.Run(ctx)
	},
}

func init() {
	serveCmd.Flags().String("host", "", "interface to listen on")
	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (default 8080)")
	_ = viper.BindPFlag("host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
}
