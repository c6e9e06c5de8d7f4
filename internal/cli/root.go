package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	errs "github.com/ksyq12/sitectl/internal/errors"
	"github.com/ksyq12/sitectl/internal/logger"
	"github.com/ksyq12/sitectl/internal/output"
)

var (
	jsonOutput bool
	verbose    bool
	configPath string
	simulate   bool
	version    = "dev"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sitectl",
	Short: "Nginx + PHP-FPM site lifecycle manager",
	Long: `sitectl provisions, enables, disables, reconfigures and removes
nginx + PHP-FPM sites, keeping the document root, the nginx config, the
PHP-FPM pool and the site registry consistent with one another.

Every change to the active nginx config set is checked with "nginx -t" and
applied with a reload. With simulate enabled (the default until configured
otherwise) files are written but no external command is run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(verbose)
		reported = false
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// SetVersion sets the version string for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging for debugging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/sitectl/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&simulate, "simulate", false, "Write files but do not run nginx or systemctl (overrides config)")
}

// printError reports an error that no command has reported yet.
func printError(err error) {
	if reported {
		return
	}
	if jsonOutput {
		_ = output.JSON(CommandResult{
			Success: false,
			Message: err.Error(),
			Code:    string(errs.CodeOf(err)),
		})
		return
	}
	var se *errs.SiteError
	if errors.As(err, &se) && se.Code == errs.ErrCodeInconsistent {
		fmt.Fprintf(os.Stderr, "Error: %v\nThe site needs attention: run 'sitectl show %s' to inspect it.\n", err, se.Hostname)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
