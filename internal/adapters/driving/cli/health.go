package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	healthProbes []string
	healthSave   bool
	healthJSON   bool
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Verify the store answers queries as expected",
	Long: `Pings the embedding service and runs probe queries through the live
retrieval path. A probe passes when its best hit reaches the
similarity threshold.

Probes given with --probe are used directly; without the flag the
probes saved in the config directory are used. Run probes for content
you just cleared to confirm it is really gone: every probe should
fail afterwards.`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	healthCmd.Flags().StringArrayVarP(&healthProbes, "probe", "p", nil, "probe query (repeatable)")
	healthCmd.Flags().BoolVar(&healthSave, "save", false, "save the given probes for future checks")
	healthCmd.Flags().BoolVar(&healthJSON, "json", false, "output the health report as JSON")
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if err := ensureServices(cmd); err != nil {
		return err
	}
	if memoryService == nil {
		return errNotConfigured
	}

	probes := healthProbes
	if healthSave && probeStore != nil {
		for _, probe := range probes {
			if err := probeStore.Add(probe); err != nil {
				return fmt.Errorf("saving probe: %w", err)
			}
		}
	}
	if len(probes) == 0 && probeStore != nil {
		stored, err := probeStore.Load()
		if err != nil {
			return fmt.Errorf("loading saved probes: %w", err)
		}
		probes = stored
	}

	report, err := memoryService.HealthCheck(cmd.Context(), probes)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if healthJSON {
		return outputJSON(cmd, report)
	}

	if report.EmbedderOK {
		cmd.Println("Embedder: ok")
	} else {
		cmd.Println("Embedder: unreachable")
	}

	if len(report.Probes) == 0 {
		cmd.Println("No probes to run.")
		return nil
	}

	cmd.Printf("Probes (threshold %.2f):\n", report.Threshold)
	for _, probe := range report.Probes {
		status := "failed"
		if probe.Passed {
			status = "passed"
		}
		cmd.Printf("  %-6s %q (top score %.3f", status, probe.Probe, probe.TopScore)
		if probe.Matched != "" {
			cmd.Printf(", matched %s", probe.Matched)
		}
		cmd.Println(")")
	}
	return nil
}
