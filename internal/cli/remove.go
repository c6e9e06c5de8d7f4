package cli

import (
	"github.com/spf13/cobra"

	"github.com/ksyq12/sitectl/internal/input"
	"github.com/ksyq12/sitectl/internal/lifecycle"
	"github.com/ksyq12/sitectl/internal/output"
)

var forceRemove bool

var removeCmd = &cobra.Command{
	Use:     "remove <hostname>",
	Aliases: []string{"rm", "delete"},
	Short:   "Remove a site and all of its files",
	Long: `Remove a site: disable it if needed, delete its document root, nginx
config, PHP-FPM pool, socket and logs, then drop it from the registry.

If any file cannot be removed the registry record is kept so the removal
can be retried.

Examples:
  sitectl remove example.com
  sitectl rm example.com --force`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	removeCmd.Flags().BoolVarP(&forceRemove, "force", "f", false, "Remove without confirmation")

	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
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

	site, err := s.mgr.Get(ctx, hostname)
	if err != nil {
		return err
	}

	if !forceRemove {
		output.Print("Remove %s and delete %s? [y/N]: ", hostname, site.DocumentRoot)
		if !input.Confirm(deps.StdinReader) {
			output.Info("Removal cancelled")
			return nil
		}
	}

	progress("Removing %s...", hostname)
	res, err := s.mgr.Destroy(ctx, hostname)
	return report(lifecycle.OpDestroy, hostname, res, err, "Site %s removed", hostname)
}
