package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ksyq12/sitectl/internal/output"
)

var versionsExtensions bool

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List available PHP versions",
	Long: `List the PHP versions sites can use and mark the default for new sites.

Versions are detected from /etc/php, then taken from the runtime_versions
config key, then from the pool directories, then from a built-in list.

Examples:
  sitectl versions
  sitectl versions --extensions`,
	Args: cobra.NoArgs,
	RunE: runVersions,
}

func init() {
	versionsCmd.Flags().BoolVar(&versionsExtensions, "extensions", false, "Also list the extensions of each version")

	rootCmd.AddCommand(versionsCmd)
}

type runtimeVersion struct {
	Version    string   `json:"version"`
	Default    bool     `json:"default"`
	Extensions []string `json:"extensions,omitempty"`
}

func runVersions(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	det := s.detector()
	def := det.Default(ctx)

	var items []runtimeVersion
	for _, v := range det.Versions() {
		item := runtimeVersion{Version: v, Default: v == def}
		if versionsExtensions {
			item.Extensions = det.Extensions(ctx, v)
		}
		items = append(items, item)
	}

	if jsonOutput {
		return output.JSON(items)
	}

	headers := []string{"VERSION", "DEFAULT"}
	if versionsExtensions {
		headers = append(headers, "EXTENSIONS")
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		row := []string{item.Version, yesNo(item.Default)}
		if versionsExtensions {
			row = append(row, strings.Join(item.Extensions, ","))
		}
		rows = append(rows, row)
	}
	output.Table(headers, rows)
	return nil
}
