package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ksyq12/sitectl/internal/config"
	"github.com/ksyq12/sitectl/internal/output"
	"github.com/ksyq12/sitectl/internal/registry"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system status and diagnose issues",
	Long: `Run diagnostic checks on the host and on every registered site.

Checks:
  - nginx and service manager installation
  - nginx config syntax
  - PHP versions available
  - Configuration file
  - Consistency of each site between the registry and the disk

Examples:
  sitectl doctor
  sitectl doctor --json`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// CheckResult represents a single diagnostic check result
type CheckResult struct {
	Status  string `json:"status"` // output.StatusOK, StatusWarning or StatusError
	Message string `json:"message"`
}

// SiteCheck is the diagnosis of one registered site
type SiteCheck struct {
	Hostname string   `json:"hostname"`
	Enabled  bool     `json:"enabled"`
	Status   string   `json:"status"`
	Problems []string `json:"problems,omitempty"`
}

// DoctorReport contains all diagnostic results
type DoctorReport struct {
	System        []CheckResult `json:"system"`
	Configuration []CheckResult `json:"configuration"`
	Sites         []SiteCheck   `json:"sites"`
	Healthy       bool          `json:"healthy"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	report, err := s.diagnose(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		return output.JSON(report)
	}
	displayDoctorResults(report)
	return nil
}

// diagnose runs the host checks and one consistency check per site
// concurrently. Only a registry failure aborts the run.
func (s *session) diagnose(ctx context.Context) (*DoctorReport, error) {
	sites, err := s.mgr.List(ctx)
	if err != nil {
		return nil, err
	}

	system := make([]CheckResult, 4)
	configuration := make([]CheckResult, 1)
	siteChecks := make([]SiteCheck, len(sites))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.exec.Options().MaxConcurrent)

	g.Go(func() error {
		system[0] = s.checkBinary("nginx", s.exec.Options().ProxyBin)
		return nil
	})
	g.Go(func() error {
		system[1] = s.checkBinary("Service manager", s.exec.Options().ServiceManagerBin)
		return nil
	})
	g.Go(func() error {
		system[2] = s.checkProxySyntax(gctx)
		return nil
	})
	g.Go(func() error {
		system[3] = s.checkRuntimes(gctx)
		return nil
	})
	g.Go(func() error {
		configuration[0] = checkConfigFile()
		return nil
	})
	for i, site := range sites {
		g.Go(func() error {
			siteChecks[i] = s.checkSite(gctx, site)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &DoctorReport{
		System:        system,
		Configuration: configuration,
		Sites:         siteChecks,
		Healthy:       true,
	}
	for _, c := range append(append([]CheckResult{}, system...), configuration...) {
		if c.Status == output.StatusError {
			report.Healthy = false
		}
	}
	for _, sc := range siteChecks {
		if sc.Status != output.StatusOK {
			report.Healthy = false
		}
	}
	return report, nil
}

func (s *session) checkBinary(label, bin string) CheckResult {
	path, err := deps.Runner.LookPath(bin)
	if err == nil {
		return CheckResult{output.StatusOK, fmt.Sprintf("%s installed (%s)", label, path)}
	}
	if s.cfg.Simulate {
		return CheckResult{output.StatusWarning, fmt.Sprintf("%s not installed (simulated)", label)}
	}
	return CheckResult{output.StatusError, fmt.Sprintf("%s not installed (%s)", label, bin)}
}

func (s *session) checkProxySyntax(ctx context.Context) CheckResult {
	res := s.exec.Validate(ctx)
	if res.Success {
		return CheckResult{output.StatusOK, "nginx config syntax OK"}
	}
	return CheckResult{output.StatusError, "nginx config syntax error: " + res.Message()}
}

func (s *session) checkRuntimes(ctx context.Context) CheckResult {
	det := s.detector()
	versions := det.Versions()
	return CheckResult{
		output.StatusOK,
		fmt.Sprintf("PHP versions: %s (default %s)", strings.Join(versions, ", "), det.Default(ctx)),
	}
}

func checkConfigFile() CheckResult {
	path := configPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return CheckResult{output.StatusWarning, "Could not determine config path"}
		}
		path = p
	}
	if _, err := os.Stat(path); err != nil {
		return CheckResult{output.StatusWarning, fmt.Sprintf("Config file not found (%s), using defaults", path)}
	}
	return CheckResult{output.StatusOK, fmt.Sprintf("Config file exists (%s)", path)}
}

func (s *session) checkSite(ctx context.Context, site *registry.Site) SiteCheck {
	sc := SiteCheck{Hostname: site.Hostname, Enabled: site.Enabled, Status: output.StatusOK}
	st, err := s.mgr.Check(ctx, site.Hostname)
	if err != nil {
		sc.Status = output.StatusError
		sc.Problems = []string{err.Error()}
		return sc
	}
	if !st.Consistent {
		sc.Status = output.StatusWarning
		sc.Problems = st.Problems
	}
	return sc
}

func displayDoctorResults(report *DoctorReport) {
	output.Print("Checking system requirements...")
	for _, check := range report.System {
		output.Status(check.Status, "%s", check.Message)
	}
	output.Print("")

	output.Print("Checking configuration...")
	for _, check := range report.Configuration {
		output.Status(check.Status, "%s", check.Message)
	}
	output.Print("")

	if len(report.Sites) == 0 {
		output.Print("No sites registered")
		return
	}
	output.Print("Checking sites...")
	for _, sc := range report.Sites {
		state := "disabled"
		if sc.Enabled {
			state = "enabled"
		}
		if len(sc.Problems) == 0 {
			output.Status(sc.Status, "%s - %s, consistent", sc.Hostname, state)
			continue
		}
		output.Status(sc.Status, "%s - %s", sc.Hostname, strings.Join(sc.Problems, "; "))
	}
}
