// internal/cli/show.go
package emailwriter

import (
	"github.com/spf13/cobra"

	"github.com/mwiater/emailwriter/internal/appconfig"
)

// showCmd represents the 'show' command group for displaying resources.
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Group commands for displaying resources",
	Long:  `The 'show' command groups subcommands that display resources or information related to emailwriter.`,
}

var showConfigVerbose bool

var showConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show config settings",
	Long:  `Show config settings ensuring that the JSON configs are loaded properly and overridden by flags and EMAILWRITER_* environment variables accordingly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		if cfg == nil {
			return errNoConfig
		}
		appconfig.ShowConfig(cmd.OutOrStdout(), cfg.ConfigPath, *cfg, showConfigVerbose)
		return nil
	},
}

func init() {
	showConfigCmd.Flags().BoolVarP(&showConfigVerbose, "verbose", "v", false, "dump the full (redacted) configuration")
	showCmd.AddCommand(showConfigCmd)
	rootCmd.AddCommand(showCmd)
}
