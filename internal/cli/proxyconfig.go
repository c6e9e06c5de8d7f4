package cli

import (
	"github.com/spf13/cobra"

	"github.com/ksyq12/sitectl/internal/fileutil"
	"github.com/ksyq12/sitectl/internal/lifecycle"
	"github.com/ksyq12/sitectl/internal/output"
)

var proxyConfigFile string

var proxyConfigCmd = &cobra.Command{
	Use:   "proxy-config <hostname>",
	Short: "Print or replace a site's nginx config",
	Long: `Print a site's nginx server block, or replace it with --file.

The new config is written atomically (the previous one is kept as .bak),
checked with "nginx -t" and applied with a reload. A rejected config is not
reverted; fix it and run the command again.

Examples:
  sitectl proxy-config example.com
  sitectl proxy-config example.com --file ./example.conf
  cat example.conf | sitectl proxy-config example.com --file -`,
	Args: cobra.ExactArgs(1),
	RunE: runProxyConfig,
}

func init() {
	proxyConfigCmd.Flags().StringVar(&proxyConfigFile, "file", "", `New config file ("-" reads stdin)`)

	rootCmd.AddCommand(proxyConfigCmd)
}

type configContent struct {
	Hostname string `json:"hostname"`
	Path     string `json:"path"`
	Content  string `json:"content"`
}

func runProxyConfig(cmd *cobra.Command, args []string) error {
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
	path := s.mgr.Resolve(hostname, site.RuntimeVersion).ProxyConfig

	if proxyConfigFile == "" {
		content, err := fileutil.ReadFile(path)
		if err != nil {
			return err
		}
		if jsonOutput {
			return output.JSON(configContent{Hostname: hostname, Path: path, Content: content})
		}
		output.Raw(content)
		return nil
	}

	if err := s.requireRoot(); err != nil {
		return err
	}
	content, err := readContent(proxyConfigFile)
	if err != nil {
		return err
	}

	progress("Updating nginx config of %s...", hostname)
	res, err := s.mgr.Reconfigure(ctx, hostname, content)
	return report(lifecycle.OpReconfigure, hostname, res, err, "Nginx config of %s updated", hostname)
}
