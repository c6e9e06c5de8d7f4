package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ksyq12/sitectl/internal/output"
)

var (
	logsAccess bool
	logsError  bool
	logsFollow bool
	logsLines  int
)

var logsCmd = &cobra.Command{
	Use:   "logs <hostname>",
	Short: "View logs for a site",
	Long: `View the nginx access and error logs of a site.

By default, shows both access and error logs.
Use --access or --error to show only one log type.

Examples:
  sitectl logs example.com           # Show both logs
  sitectl logs example.com --access  # Show only access log
  sitectl logs example.com --error   # Show only error log
  sitectl logs example.com -f        # Follow logs in real-time
  sitectl logs example.com -n 50     # Show last 50 lines`,
	Args: cobra.ExactArgs(1),
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVar(&logsAccess, "access", false, "Show access log only")
	logsCmd.Flags().BoolVar(&logsError, "error", false, "Show error log only")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 20, "Number of lines to show")

	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	hostname, err := validateHostname(args[0])
	if err != nil {
		return err
	}
	if logsLines < 0 {
		return fmt.Errorf("--lines must not be negative")
	}
	ctx := contextOf(cmd)

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	site, err := s.mgr.Get(ctx, hostname)
	if err != nil {
		return err
	}
	ps := s.mgr.Resolve(hostname, site.RuntimeVersion)

	showAccess, showError := true, true
	if logsAccess && !logsError {
		showError = false
	} else if logsError && !logsAccess {
		showAccess = false
	}

	var logFiles []string
	if showAccess {
		if _, err := os.Stat(ps.AccessLog()); err == nil {
			logFiles = append(logFiles, ps.AccessLog())
		} else {
			output.Warn("Access log not found: %s", ps.AccessLog())
		}
	}
	if showError {
		if _, err := os.Stat(ps.ErrorLog()); err == nil {
			logFiles = append(logFiles, ps.ErrorLog())
		} else {
			output.Warn("Error log not found: %s", ps.ErrorLog())
		}
	}
	if len(logFiles) == 0 {
		return fmt.Errorf("no log files found for %s", hostname)
	}

	tailPath, err := deps.CommandRunner.LookPath("tail")
	if err != nil {
		return fmt.Errorf("tail command not found")
	}

	tailArgs := []string{}
	if logsFollow {
		tailArgs = append(tailArgs, "-f")
	}
	tailArgs = append(tailArgs, "-n", strconv.Itoa(logsLines))
	tailArgs = append(tailArgs, logFiles...)

	if len(logFiles) == 1 {
		output.Info("Showing logs from: %s", logFiles[0])
	} else {
		output.Info("Showing logs from:")
		for _, f := range logFiles {
			output.Print("  - %s", f)
		}
	}
	output.Print("")

	if err := deps.CommandRunner.RunInteractive(tailPath, tailArgs...); err != nil {
		// 130 and 143 are SIGINT and SIGTERM, the normal way to stop -f.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if code := exitErr.ExitCode(); code == 130 || code == 143 {
				return nil
			}
		}
		return fmt.Errorf("failed to read logs: %w", err)
	}
	return nil
}
