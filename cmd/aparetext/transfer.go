package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/services"
)

func newExportCmd() *cobra.Command {
	var (
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every snippet to JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := transferFormat(format, output)
			if err != nil {
				return err
			}

			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				data, err := services.NewSnippetService(dbCtx).Export(ctx)
				if err != nil {
					return err
				}

				if output == "" || output == "-" {
					return services.WriteExport(cmd.OutOrStdout(), data, f)
				}

				file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
				if err != nil {
					return err
				}
				if err := services.WriteExport(file, data, f); err != nil {
					_ = file.Close()
					return err
				}
				if err := file.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d snippets to %s\n", len(data.Snippets), output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&format, "format", "", "Format: json or yaml (default from file extension, else json)")

	return cmd
}

func newImportCmd() *cobra.Command {
	var (
		replace bool
		format  string
	)

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import snippets from a JSON or YAML export",
		Long: `Import snippets from an export file. Snippets whose id already exists are
skipped. With --replace, stored snippets sharing an abbreviation with an
imported one are deleted first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := transferFormat(format, path)
			if err != nil {
				return err
			}

			var r io.Reader = cmd.InOrStdin()
			if path != "-" {
				file, err := os.Open(path)
				if err != nil {
					return err
				}
				defer file.Close()
				r = file
			}
			data, err := services.ReadExport(r, f)
			if err != nil {
				return err
			}

			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				result, err := services.NewSnippetService(dbCtx, services.WithLogger(logger)).Import(ctx, data, replace)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d snippets, skipped %d\n", result.Imported, result.Skipped)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "Replace stored snippets with matching abbreviations")
	cmd.Flags().StringVar(&format, "format", "", "Format: json or yaml (default from file extension, else json)")

	return cmd
}

func transferFormat(flag, path string) (services.Format, error) {
	if flag != "" {
		return services.ParseFormat(flag)
	}
	if path == "" || path == "-" {
		return services.FormatJSON, nil
	}
	return services.FormatFromPath(path), nil
}
