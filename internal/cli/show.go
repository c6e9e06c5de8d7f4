package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ksyq12/sitectl/internal/lifecycle"
	"github.com/ksyq12/sitectl/internal/output"
	"github.com/ksyq12/sitectl/internal/registry"
)

var showCmd = &cobra.Command{
	Use:   "show <hostname>",
	Short: "Show details of a site",
	Long: `Show a site's registry record and compare it with the files on disk.

Examples:
  sitectl show example.com
  sitectl show example.com --json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

type showDetail struct {
	Site   *registry.Site    `json:"site"`
	Status *lifecycle.Status `json:"status"`
}

func runShow(cmd *cobra.Command, args []string) error {
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

	site, err := s.mgr.Get(ctx, hostname)
	if err != nil {
		return err
	}
	status, err := s.mgr.Check(ctx, hostname)
	if err != nil {
		return err
	}

	if jsonOutput {
		return output.JSON(showDetail{Site: site, Status: status})
	}

	output.Print("")
	output.Fields([][2]string{
		{"Hostname", site.Hostname},
		{"PHP", site.RuntimeVersion},
		{"Enabled", yesNo(site.Enabled)},
		{"Extensions", strings.Join(site.Extensions, ", ")},
		{"Notes", site.Notes},
		{"Created", site.CreatedAt.Format("2006-01-02 15:04:05")},
		{"Updated", site.UpdatedAt.Format("2006-01-02 15:04:05")},
	})
	output.Print("")

	rows := make([][]string, 0, len(status.Artifacts))
	for _, a := range status.Artifacts {
		rows = append(rows, []string{a.Name, yesNo(a.Exists), a.Path})
	}
	output.Table([]string{"ARTIFACT", "EXISTS", "PATH"}, rows)
	output.Print("")

	if status.Consistent {
		output.Success("Site is consistent")
		return nil
	}
	for _, p := range status.Problems {
		output.Warn("%s", p)
	}
	return nil
}
