package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ksyq12/sitectl/internal/executor"
	"github.com/ksyq12/sitectl/internal/lifecycle"
	"github.com/ksyq12/sitectl/internal/output"
	"github.com/ksyq12/sitectl/internal/registry"
	"github.com/ksyq12/sitectl/internal/runtimes"
)

var (
	addPHP   string
	addExt   []string
	addNotes string
)

// defaultExtensionCount is how many of runtimes.CommonExtensions a new site
// lists when --ext is not given.
const defaultExtensionCount = 3

var addCmd = &cobra.Command{
	Use:   "add <hostname>",
	Short: "Provision and enable a new site",
	Long: `Provision a new site and enable it.

Creates the document root with a default index.php, the nginx server block
and the PHP-FPM pool, registers the site, then links it into the active
nginx config set, runs "nginx -t" and reloads nginx.

If activation fails the site stays provisioned but disabled and the command
exits non-zero; fix the cause and run "sitectl enable".

Examples:
  sitectl add example.com
  sitectl add example.com --php 8.2
  sitectl add shop.example.com --php 8.3 --ext intl,gd,redis --notes "staging shop"`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addPHP, "php", "", "PHP version (default: detected default)")
	addCmd.Flags().StringSliceVar(&addExt, "ext", nil, "PHP extensions to record for the site")
	addCmd.Flags().StringVar(&addNotes, "notes", "", "Free-form notes")

	rootCmd.AddCommand(addCmd)
}

type addResult struct {
	Success         bool            `json:"success"`
	Site            *registry.Site  `json:"site,omitempty"`
	Provisioned     bool            `json:"provisioned"`
	Active          bool            `json:"active"`
	Activation      executor.Result `json:"activation"`
	ActivationError string          `json:"activation_error,omitempty"`
}

func runAdd(cmd *cobra.Command, args []string) error {
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

	det := s.detector()
	version := addPHP
	if version == "" {
		version = det.Default(ctx)
	}
	if err := validateVersion(version); err != nil {
		return err
	}
	if !contains(det.Versions(), version) {
		output.Warn("PHP %s was not detected on this host", version)
	}

	extensions := addExt
	if len(extensions) == 0 {
		extensions = runtimes.CommonExtensions[:defaultExtensionCount]
	}

	progress("Provisioning %s with PHP %s...", hostname, version)
	res, err := s.mgr.Provision(ctx, lifecycle.ProvisionRequest{
		Hostname:       hostname,
		RuntimeVersion: version,
		Extensions:     extensions,
		Notes:          addNotes,
	})
	if err != nil {
		return report(lifecycle.OpProvision, hostname, executor.Result{}, err, "")
	}

	var activationErr error
	if !res.Active() {
		activationErr = fmt.Errorf("site %s provisioned but not active: %w", hostname, res.ActivationErr)
	}

	if jsonOutput {
		out := addResult{
			Success:     res.Active(),
			Site:        res.Site,
			Provisioned: res.Provisioned,
			Active:      res.Active(),
			Activation:  res.Activation,
		}
		if res.ActivationErr != nil {
			out.ActivationError = res.ActivationErr.Error()
		}
		reported = true
		if err := output.JSON(out); err != nil {
			return err
		}
		return activationErr
	}

	if activationErr != nil {
		output.Warn("Site %s provisioned", hostname)
		return activationErr
	}
	output.Success("Site %s provisioned and enabled", hostname)
	ps := s.mgr.Resolve(hostname, version)
	output.Fields([][2]string{
		{"Document root", ps.DocumentRoot},
		{"Nginx config", ps.ProxyConfig},
		{"PHP-FPM pool", ps.PoolConfig},
	})
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
