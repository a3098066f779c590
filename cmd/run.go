package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jandubois/clinicprobe/internal/probe"
	"github.com/jandubois/clinicprobe/internal/probes"
	"github.com/jandubois/clinicprobe/internal/probes/filerelocation"
	"github.com/jandubois/clinicprobe/internal/probes/healthupload"
	"github.com/jandubois/clinicprobe/internal/probes/patientsummary"
	"github.com/jandubois/clinicprobe/internal/runner"
	"github.com/jandubois/clinicprobe/internal/trigger"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run several probes once the local cache is ready",
	Long: `Run opens the local patient cache, waits for --delay, then runs the
selected probes concurrently and prints one JSON result per probe.

Without --probe, runs health-upload and patient-summary, plus
file-relocation when --patient-id is given.`,
	RunE: runProbes,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringSlice("probe", nil, "Probe to run (repeatable): "+strings.Join(probes.Names(), ", "))
	runCmd.Flags().Duration("delay", 0, "Wait this long after the cache is ready")
	runCmd.Flags().Int("max-concurrent", 3, "Maximum concurrent probe executions")
	runCmd.Flags().Bool("strict", false, "Exit non-zero when any probe fails")
	addRelocationFlags(runCmd)
}

func runProbes(cmd *cobra.Command, args []string) error {
	selected, _ := cmd.Flags().GetStringSlice("probe")
	strict, _ := cmd.Flags().GetBool("strict")
	patientID, _ := cmd.Flags().GetString("patient-id")
	pairs, _ := cmd.Flags().GetStringArray("path")

	if len(selected) == 0 {
		selected = []string{healthupload.Name, patientsummary.Name}
		if patientID != "" {
			selected = append(selected, filerelocation.Name)
		}
	}
	for _, name := range selected {
		if !slices.Contains(probes.Names(), name) {
			return fmt.Errorf("unknown probe %q (available: %s)", name, strings.Join(probes.Names(), ", "))
		}
	}

	tempPaths, err := filerelocation.ParsePaths(pairs)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	ready := make(chan struct{})
	src, closeSrc := openPatientSource(ctx)
	defer closeSrc()
	close(ready)

	client := newClient()
	var tasks []runner.Task
	for _, name := range selected {
		var run func(ctx context.Context) *probe.Result
		switch name {
		case healthupload.Name:
			run = func(ctx context.Context) *probe.Result {
				return healthupload.Run(ctx, client, sink.With("probe", name))
			}
		case patientsummary.Name:
			run = func(ctx context.Context) *probe.Result {
				return patientsummary.Run(ctx, src, cfg.StoreKey, sink.With("probe", name))
			}
		case filerelocation.Name:
			run = func(ctx context.Context) *probe.Result {
				return filerelocation.Run(ctx, client, patientID, tempPaths, sink.With("probe", name))
			}
		}
		tasks = append(tasks, runner.Task{Name: name, Run: run})
	}

	executor := runner.NewExecutor(cfg.MaxConcurrent, sink)
	executor.SetResultWriter(runner.NewJSONResultWriter(cmd.OutOrStdout()))

	var results []*probe.Result
	var execErr error
	if err := trigger.Once(ctx, ready, cfg.Delay, func(ctx context.Context) {
		results, execErr = executor.ExecuteAll(ctx, tasks)
	}); err != nil {
		return err
	}
	if execErr != nil {
		return execErr
	}

	if strict {
		var failed []string
		for i, result := range results {
			if result.Failed() {
				failed = append(failed, tasks[i].Name)
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("probes failed: %s", strings.Join(failed, ", "))
		}
	}
	return nil
}
