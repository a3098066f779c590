package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	units "github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/jandubois/clinicprobe/internal/patient"
	"github.com/jandubois/clinicprobe/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and seed the local patient cache",
	Long: `The store commands manage the local cache the summary probe reads.
The probes themselves never write to it.`,
}

var storeLoadCmd = &cobra.Command{
	Use:   "load <file|->",
	Short: "Store a JSON patient list from a file or stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var data []byte
		var err error
		if args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("read patient list: %w", err)
		}

		records, err := patient.DecodeList(data)
		if err != nil {
			return err
		}

		st, err := store.Open(cmd.Context(), cfg.StorePath)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Put(cmd.Context(), cfg.StoreKey, data); err != nil {
			return err
		}
		sink.Info("patient list stored",
			"path", cfg.StorePath,
			"key", cfg.StoreKey,
			"records", len(records),
			"size", units.HumanSize(float64(len(data))),
		)
		return nil
	},
}

var storeShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the raw value stored under the patient key",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.OpenReadOnly(cmd.Context(), cfg.StorePath)
		if err != nil {
			return err
		}
		defer st.Close()

		value, ok, err := st.Get(cmd.Context(), cfg.StoreKey)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("key %q not found in %s", cfg.StoreKey, cfg.StorePath)
		}
		_, err = cmd.OutOrStdout().Write(append(value, '\n'))
		return err
	},
}

var storeKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List stored keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.OpenReadOnly(cmd.Context(), cfg.StorePath)
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := st.Keys(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tSIZE\tUPDATED")
		for _, e := range entries {
			updated := "-"
			if e.UpdatedAt.Valid {
				updated = e.UpdatedAt.Time.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Key, units.HumanSize(float64(e.Size)), updated)
		}
		return tw.Flush()
	},
}

var storeDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the patient key from the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.StorePath)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Delete(cmd.Context(), cfg.StoreKey); err != nil {
			return err
		}
		sink.Info("patient key deleted", "path", cfg.StorePath, "key", cfg.StoreKey)
		return nil
	},
}

var storeResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop and recreate the cache schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.StorePath)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Reset(cmd.Context()); err != nil {
			return err
		}
		sink.Info("patient cache reset", "path", cfg.StorePath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeLoadCmd)
	storeCmd.AddCommand(storeShowCmd)
	storeCmd.AddCommand(storeKeysCmd)
	storeCmd.AddCommand(storeDeleteCmd)
	storeCmd.AddCommand(storeResetCmd)
}
