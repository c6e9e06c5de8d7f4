package cli

import (
	"github.com/spf13/cobra"

	errs "github.com/ksyq12/sitectl/internal/errors"
	"github.com/ksyq12/sitectl/internal/output"
	"github.com/ksyq12/sitectl/internal/paths"
)

var pathsPHP string

var pathsCmd = &cobra.Command{
	Use:   "paths <hostname>",
	Short: "Print the file locations of a site",
	Long: `Print every path a site owns. The site does not have to exist.

The PHP version comes from --php, else from the registry, else the default.

Examples:
  sitectl paths example.com
  sitectl paths example.com --php 8.3 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runPaths,
}

func init() {
	pathsCmd.Flags().StringVar(&pathsPHP, "php", "", "PHP version")

	rootCmd.AddCommand(pathsCmd)
}

type pathsDetail struct {
	Hostname string `json:"hostname"`
	PHP      string `json:"php"`
	paths.PathSet
	AccessLog string `json:"access_log"`
	ErrorLog  string `json:"error_log"`
}

func runPaths(cmd *cobra.Command, args []string) error {
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

	version := pathsPHP
	if version == "" {
		site, err := s.mgr.Get(ctx, hostname)
		switch {
		case err == nil:
			version = site.RuntimeVersion
		case errs.Is(err, errs.ErrSiteNotFound):
			version = s.detector().Default(ctx)
		default:
			return err
		}
	}
	if err := validateVersion(version); err != nil {
		return err
	}

	ps := s.mgr.Resolve(hostname, version)
	detail := pathsDetail{
		Hostname:  hostname,
		PHP:       version,
		PathSet:   ps,
		AccessLog: ps.AccessLog(),
		ErrorLog:  ps.ErrorLog(),
	}
	if jsonOutput {
		return output.JSON(detail)
	}

	output.Fields([][2]string{
		{"PHP", version},
		{"Document root", ps.DocumentRoot},
		{"Nginx config", ps.ProxyConfig},
		{"Enabled link", ps.ActivationLink},
		{"PHP-FPM pool", ps.PoolConfig},
		{"PHP-FPM socket", ps.Socket},
		{"Access log", detail.AccessLog},
		{"Error log", detail.ErrorLog},
	})
	return nil
}
