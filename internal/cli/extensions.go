package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ksyq12/sitectl/internal/output"
)

var extensionsSet []string

var extensionsCmd = &cobra.Command{
	Use:     "extensions <hostname>",
	Aliases: []string{"ext"},
	Short:   "Show or set the PHP extensions recorded for a site",
	Long: `Show the PHP extensions recorded for a site next to the ones its PHP
version provides, or replace the recorded list with --set.

The list is informational; it does not change the PHP installation.

Examples:
  sitectl extensions example.com
  sitectl extensions example.com --set gd,intl,redis`,
	Args: cobra.ExactArgs(1),
	RunE: runExtensions,
}

func init() {
	extensionsCmd.Flags().StringSliceVar(&extensionsSet, "set", nil, "Replace the recorded extensions")

	rootCmd.AddCommand(extensionsCmd)
}

type extensionsDetail struct {
	Hostname  string   `json:"hostname"`
	PHP       string   `json:"php"`
	Enabled   []string `json:"enabled"`
	Available []string `json:"available"`
}

func runExtensions(cmd *cobra.Command, args []string) error {
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

	if extensionsSet != nil {
		if site, err = s.mgr.UpdateExtensions(ctx, hostname, extensionsSet); err != nil {
			return err
		}
		if !jsonOutput {
			output.Success("Extensions of %s updated", hostname)
		}
	}

	detail := extensionsDetail{
		Hostname:  hostname,
		PHP:       site.RuntimeVersion,
		Enabled:   site.Extensions,
		Available: s.detector().Extensions(ctx, site.RuntimeVersion),
	}
	if detail.Enabled == nil {
		detail.Enabled = []string{}
	}
	if jsonOutput {
		return output.JSON(detail)
	}

	output.Fields([][2]string{
		{"Recorded", strings.Join(detail.Enabled, ", ")},
		{"Available (PHP " + detail.PHP + ")", strings.Join(detail.Available, ", ")},
	})
	return nil
}
