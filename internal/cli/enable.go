package cli

import (
	"github.com/spf13/cobra"

	"github.com/ksyq12/sitectl/internal/lifecycle"
)

var enableCmd = &cobra.Command{
	Use:   "enable <hostname>",
	Short: "Enable a site",
	Long: `Enable a site by linking its nginx config into the active set.

The active set is checked with "nginx -t" and nginx is reloaded. If either
step fails the link is removed again and the site stays disabled.

Examples:
  sitectl enable example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runEnable,
}

func init() {
	rootCmd.AddCommand(enableCmd)
}

func runEnable(cmd *cobra.Command, args []string) error {
	hostname, err := validateHostname(args[0])
	if err != nil {
		return err
	}
	ctx := contextOf(cmd)

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.requireRoot(); err != nil {
		return err
	}

	progress("Enabling %s...", hostname)
	res, err := s.mgr.Enable(ctx, hostname)
	return report(lifecycle.OpEnable, hostname, res, err, "Site %s enabled", hostname)
}
