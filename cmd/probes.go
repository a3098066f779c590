package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jandubois/clinicprobe/internal/clinic"
	"github.com/jandubois/clinicprobe/internal/probe"
	"github.com/jandubois/clinicprobe/internal/probes"
	"github.com/jandubois/clinicprobe/internal/probes/filerelocation"
	"github.com/jandubois/clinicprobe/internal/probes/healthupload"
	"github.com/jandubois/clinicprobe/internal/probes/patientsummary"
	"github.com/jandubois/clinicprobe/internal/store"
	"github.com/jandubois/clinicprobe/internal/trigger"
)

// patient-summary probe
var patientSummaryCmd = &cobra.Command{
	Use:   patientsummary.Name,
	Short: "Summarize the locally cached patient list",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		src, closeSrc := openPatientSource(ctx)
		defer closeSrc()

		// the cache is ready once opened; the delay lets a writer settle
		var outErr error
		if err := trigger.Once(ctx, trigger.Ready(), cfg.Delay, func(ctx context.Context) {
			outErr = outputResult(cmd, patientsummary.Run(ctx, src, cfg.StoreKey, sink))
		}); err != nil {
			return err
		}
		return outErr
	},
}

// file-relocation probe
var fileRelocationCmd = &cobra.Command{
	Use:   filerelocation.Name,
	Short: "Ask the service to move uploaded files to their permanent location",
	RunE: func(cmd *cobra.Command, args []string) error {
		patientID, _ := cmd.Flags().GetString("patient-id")
		pairs, _ := cmd.Flags().GetStringArray("path")

		tempPaths, err := filerelocation.ParsePaths(pairs)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		return outputResult(cmd, filerelocation.Run(ctx, newClient(), patientID, tempPaths, sink))
	},
}

// health-upload probe
var healthUploadCmd = &cobra.Command{
	Use:   healthupload.Name,
	Short: "Check service health, then send an empty upload",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		return outputResult(cmd, healthupload.Run(ctx, newClient(), sink))
	},
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version and exit")
	rootCmd.Flags().Bool("describe", false, "Output built-in probe descriptions as JSON array")

	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Fprintf(cmd.OutOrStdout(), "clinicprobe version %s\n", Version)
			return
		}
		if describe, _ := cmd.Flags().GetBool("describe"); describe {
			printDescriptions(cmd)
			return
		}
		cmd.Help()
	}

	patientSummaryCmd.GroupID = probeGroupID
	fileRelocationCmd.GroupID = probeGroupID
	healthUploadCmd.GroupID = probeGroupID
	rootCmd.AddCommand(patientSummaryCmd)
	rootCmd.AddCommand(fileRelocationCmd)
	rootCmd.AddCommand(healthUploadCmd)

	// patient-summary flags
	patientSummaryCmd.Flags().Duration("delay", 0, "Wait this long before reading the cache")

	// file-relocation flags
	addRelocationFlags(fileRelocationCmd)
	fileRelocationCmd.MarkFlagRequired("patient-id")
}

func addRelocationFlags(cmd *cobra.Command) {
	cmd.Flags().String("patient-id", "", "Patient identifier")
	cmd.Flags().StringArray("path", nil, "Temporary file path as category=path (repeatable)")
}

// newClient builds a service client from the loaded configuration.
func newClient() *clinic.Client {
	return clinic.New(cfg.BaseURL, clinic.Options{
		Endpoints: cfg.Endpoints,
		Timeout:   cfg.Timeout,
		UserAgent: "clinicprobe/" + Version,
	})
}

// openPatientSource opens the cache read-only. A missing cache yields a nil
// source, which the summary probe treats as empty; any other open error is
// surfaced through the probe on first read.
func openPatientSource(ctx context.Context) (patientsummary.Source, func()) {
	st, err := store.OpenReadOnly(ctx, cfg.StorePath)
	if err != nil {
		if store.IsNotExist(err) {
			sink.Debug("patient cache not found", "path", cfg.StorePath)
			return nil, func() {}
		}
		return unavailableSource{err: err}, func() {}
	}
	return st, func() { st.Close() }
}

// unavailableSource reports the error that prevented opening the cache.
type unavailableSource struct {
	err error
}

func (u unavailableSource) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, u.err
}

func printDescriptions(cmd *cobra.Command) {
	descs := probes.GetAllDescriptions()
	json.NewEncoder(cmd.OutOrStdout()).Encode(descs)
}

func outputResult(cmd *cobra.Command, result *probe.Result) error {
	if err := json.NewEncoder(cmd.OutOrStdout()).Encode(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
