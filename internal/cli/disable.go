package cli

import (
	"github.com/spf13/cobra"

	"github.com/ksyq12/sitectl/internal/lifecycle"
)

var disableCmd = &cobra.Command{
	Use:   "disable <hostname>",
	Short: "Disable a site",
	Long: `Disable a site by removing its link from the active nginx config set.

The remaining set is checked with "nginx -t" and nginx is reloaded. The
link is not restored when either step fails; the site is then reported as
inconsistent and needs attention.

Examples:
  sitectl disable example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runDisable,
}

func init() {
	rootCmd.AddCommand(disableCmd)
}

func runDisable(cmd *cobra.Command, args []string) error {
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

	progress("Disabling %s...", hostname)
	res, err := s.mgr.Disable(ctx, hostname)
	return report(lifecycle.OpDisable, hostname, res, err, "Site %s disabled", hostname)
}
