package main

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/services"
)

func newSettingsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change user preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				settings, err := services.NewSettingsService(dbCtx).Get(ctx)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return outputJSON(cmd.OutOrStdout(), settings)
				}
				t := newTable(cmd.OutOrStdout())
				t.AppendHeader(table.Row{"Key", "Value"})
				for _, k := range slices.Sorted(maps.Keys(settings)) {
					t.AppendRow(table.Row{k, settings[k]})
				}
				t.Render()
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")

	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				settings, err := services.NewSettingsService(dbCtx).Get(ctx)
				if err != nil {
					return err
				}
				value, ok := settings[args[0]]
				if !ok {
					return fmt.Errorf("setting not found: %s", args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				return services.NewSettingsService(dbCtx).Set(ctx, args[0], args[1])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				if err := services.NewSettingsService(dbCtx).Replace(ctx, database.DefaultSettings); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Settings restored to defaults")
				return nil
			})
		},
	})

	return cmd
}
