package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ksyq12/sitectl/internal/fileutil"
	"github.com/ksyq12/sitectl/internal/lifecycle"
	"github.com/ksyq12/sitectl/internal/output"
	"github.com/ksyq12/sitectl/internal/template"
)

var (
	poolConfigFile string
	poolConfigPHP  string
)

var poolConfigCmd = &cobra.Command{
	Use:   "pool-config <hostname>",
	Short: "Print or replace a site's PHP-FPM pool, or switch its PHP version",
	Long: `Print a site's PHP-FPM pool config, replace it with --file, or move the
site to another PHP version with --php.

When switching versions the pool is written for the new version, the
socket path in the nginx config is rewritten, and nginx and both PHP-FPM
services are reloaded. Without --file the new pool is rendered from the
pool template. A failure after the switch leaves the site inconsistent and
is not rolled back.

Examples:
  sitectl pool-config example.com
  sitectl pool-config example.com --file ./pool.conf
  sitectl pool-config example.com --php 8.3`,
	Args: cobra.ExactArgs(1),
	RunE: runPoolConfig,
}

func init() {
	poolConfigCmd.Flags().StringVar(&poolConfigFile, "file", "", `New pool config file ("-" reads stdin)`)
	poolConfigCmd.Flags().StringVar(&poolConfigPHP, "php", "", "Switch the site to this PHP version")

	rootCmd.AddCommand(poolConfigCmd)
}

func runPoolConfig(cmd *cobra.Command, args []string) error {
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

	if poolConfigFile == "" && poolConfigPHP == "" {
		path := s.mgr.Resolve(hostname, site.RuntimeVersion).PoolConfig
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

	version := site.RuntimeVersion
	if poolConfigPHP != "" {
		if err := validateVersion(poolConfigPHP); err != nil {
			return err
		}
		version = poolConfigPHP
	}

	if err := s.requireRoot(); err != nil {
		return err
	}

	var content string
	if poolConfigFile != "" {
		if content, err = readContent(poolConfigFile); err != nil {
			return err
		}
	} else {
		tpl, err := template.Load(template.KindPool, s.cfg.Templates.Pool)
		if err != nil {
			return fmt.Errorf("failed to load pool template: %w", err)
		}
		ps := s.mgr.Resolve(hostname, version)
		content = template.RenderPoolConfig(
			template.PoolSite{Hostname: hostname, Socket: ps.Socket},
			s.cfg.WebUser, s.cfg.WebGroup, tpl,
		) + "\n"
	}

	if version != site.RuntimeVersion {
		progress("Switching %s from PHP %s to %s...", hostname, site.RuntimeVersion, version)
	} else {
		progress("Updating PHP-FPM pool of %s...", hostname)
	}
	res, err := s.mgr.ChangeRuntime(ctx, hostname, content, version)
	return report(lifecycle.OpChangeRuntime, hostname, res, err, "PHP-FPM pool of %s updated (PHP %s)", hostname, version)
}
