package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jandubois/clinicprobe/internal/config"
	"github.com/jandubois/clinicprobe/internal/logging"
)

// Version is set at build time via -ldflags "-X github.com/jandubois/clinicprobe/cmd.Version=..."
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "clinicprobe",
	Short: "Smoke-test probes for the patient-management service",
	Long: `clinicprobe runs one-shot diagnostic probes against a running
patient-management service and its local patient cache, and logs what it sees.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

const probeGroupID = "probes"

// cfg and sink are populated by setup before any command runs.
var (
	cfg  *config.ProbeConfig
	sink *slog.Logger
)

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: probeGroupID, Title: "Probes:"})
	rootCmd.PersistentFlags().String("config", "", "YAML config file (or CLINICPROBE_CONFIG)")
	rootCmd.PersistentFlags().String("base-url", "", "Base URL of the service (or CLINICPROBE_BASE_URL)")
	rootCmd.PersistentFlags().StringP("store", "s", "", "Local patient cache path (or CLINICPROBE_STORE)")
	rootCmd.PersistentFlags().String("store-key", "", "Key holding the cached patient list (or CLINICPROBE_STORE_KEY)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Per-request timeout (0 for none)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored log output")
}

func setup(cmd *cobra.Command, args []string) error {
	// --version, --describe and help read no configuration
	if cmd == cmd.Root() {
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	path, _ := cmd.Flags().GetString("config")
	loaded, err := config.Load(path)
	if err != nil {
		return err
	}
	applyFlags(cmd, loaded)

	if err := loaded.Validate(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(loaded.LogLevel)
	if err != nil {
		return err
	}

	cfg = loaded
	sink = logging.New(cmd.ErrOrStderr(), level, loaded.NoColor)
	slog.SetDefault(sink)
	return nil
}

// applyFlags overrides configuration with explicitly set flags.
func applyFlags(cmd *cobra.Command, c *config.ProbeConfig) {
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		c.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("store") {
		c.StorePath, _ = flags.GetString("store")
	}
	if flags.Changed("store-key") {
		c.StoreKey, _ = flags.GetString("store-key")
	}
	if flags.Changed("timeout") {
		c.Timeout, _ = flags.GetDuration("timeout")
	}
	if flags.Changed("log-level") {
		c.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("no-color") {
		c.NoColor, _ = flags.GetBool("no-color")
	}
	if flags.Lookup("delay") != nil && flags.Changed("delay") {
		c.Delay, _ = flags.GetDuration("delay")
	}
	if flags.Lookup("max-concurrent") != nil && flags.Changed("max-concurrent") {
		c.MaxConcurrent, _ = flags.GetInt("max-concurrent")
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			slog.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
