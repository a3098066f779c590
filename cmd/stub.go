package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jandubois/clinicprobe/internal/config"
	"github.com/jandubois/clinicprobe/internal/stub"
)

var stubCmd = &cobra.Command{
	Use:   "serve-stub",
	Short: "Serve stand-in health, upload and relocation endpoints",
	Long: `serve-stub runs a minimal stand-in for the patient-management service
so the probes can be exercised without the real application. Relocation
requests are answered with computed paths; no files are moved.`,
	RunE: runStub,
}

func init() {
	rootCmd.AddCommand(stubCmd)

	stubCmd.Flags().Int("port", 8080, "Port to listen on")
	stubCmd.Flags().Bool("unhealthy", false, "Answer the health endpoint with 503")
}

func runStub(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	port, _ := cmd.Flags().GetInt("port")
	unhealthy, _ := cmd.Flags().GetBool("unhealthy")

	server := stub.NewServer(&config.StubConfig{
		Port:      port,
		Unhealthy: unhealthy,
		Endpoints: cfg.Endpoints,
	})

	sink.Info("starting stub server", "port", port, "unhealthy", unhealthy)
	return server.Run(ctx)
}
