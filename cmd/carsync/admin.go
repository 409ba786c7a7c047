package main

import (
	"fmt"
	"text/tabwriter"

	"carsync/internal/config"
	"carsync/internal/domain"
	"carsync/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newInitSchemaCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init-schema",
		Short: "Create the lookup tables and the vehicle table when missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.checkConfig(); err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.EnsureSchema(cmd.Context()); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
			a.log.Info("schema ready", zap.String("driver", a.cfg.DBDriver), zap.String("vehicle_table", a.cfg.VehicleTable))
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show lookup table sizes and vehicles still missing each key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.checkConfig(); err != nil {
				return err
			}
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			cov, err := store.Coverage(cmd.Context())
			if err != nil {
				return fmt.Errorf("coverage: %w", err)
			}
			printCoverage(a, cov)
			return nil
		},
	}
}

func printCoverage(a *app, cov domain.Coverage) {
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "vehicles\t%d\n\n", cov.Vehicles)
	fmt.Fprintln(tw, "dimension\tlookup rows\tmissing\tfilled")
	for _, dim := range domain.Dimensions() {
		missing := cov.Missing[dim.Kind]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", dim, cov.Lookups[dim.Kind], missing, filled(cov.Vehicles, missing))
	}
	_ = tw.Flush()
}

func filled(total, missing int64) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(total-missing)*100/float64(total))
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			issues := config.Validate(a.cfg, storage.ListKinds())
			for _, iss := range issues {
				fmt.Fprintf(a.out, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid")
			}
			fmt.Fprintln(a.out, "configuration is valid")
			return nil
		},
	}
}
