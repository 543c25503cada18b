package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/services"
)

func newInitCmd() *cobra.Command {
	var (
		examples bool
		reset    bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and default settings",
		Long: `Create the database and default settings.

With --reset every snippet, version and usage log entry is removed first.
Settings are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				if reset {
					if !force {
						reader := bufio.NewReader(os.Stdin)
						fmt.Fprintf(cmd.ErrOrStderr(), "Remove all snippets, versions and usage logs from %s? (y/N) ", dbCtx.Path)
						answer, err := reader.ReadString('\n')
						if err != nil {
							return err
						}
						if strings.TrimSpace(strings.ToLower(answer)) != "y" {
							fmt.Fprintln(cmd.OutOrStdout(), "Reset cancelled")
							return nil
						}
					}
					if err := database.ClearDatabase(dbCtx); err != nil {
						return err
					}
					logger.Info("database reset", "path", dbCtx.Path)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Database ready at %s\n", dbCtx.Path)
				if !examples {
					return nil
				}

				n, err := services.NewSnippetService(dbCtx, services.WithLogger(logger)).SeedExamples(ctx)
				if err != nil {
					return err
				}
				if n == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Store is not empty, example snippets skipped")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d example snippets\n", n)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&examples, "examples", false, "Add example snippets when the store is empty")
	cmd.Flags().BoolVar(&reset, "reset", false, "Remove all snippets, versions and usage logs first")
	cmd.Flags().BoolVar(&force, "force", false, "Skip the reset confirmation prompt")

	return cmd
}
