package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ksyq12/sitectl/internal/output"
	"github.com/ksyq12/sitectl/internal/registry"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all sites",
	Long: `List all registered sites.

Examples:
  sitectl list
  sitectl ls
  sitectl list --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	sites, err := s.mgr.List(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		if sites == nil {
			sites = []*registry.Site{}
		}
		return output.JSON(sites)
	}

	if len(sites) == 0 {
		output.Info("No sites configured")
		return nil
	}

	headers := []string{"HOSTNAME", "PHP", "ENABLED", "EXTENSIONS", "DOCUMENT ROOT"}
	rows := make([][]string, 0, len(sites))
	for _, site := range sites {
		rows = append(rows, []string{
			site.Hostname,
			site.RuntimeVersion,
			yesNo(site.Enabled),
			strings.Join(site.Extensions, ","),
			site.DocumentRoot,
		})
	}
	output.Table(headers, rows)
	return nil
}
