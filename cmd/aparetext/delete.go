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

func newDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id|abbreviation>",
		Short: "Delete a snippet and its versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				svc := services.NewSnippetService(dbCtx, services.WithLogger(logger))
				target, err := resolveSnippet(ctx, svc, args[0])
				if err != nil {
					return err
				}

				if !force {
					reader := bufio.NewReader(os.Stdin)
					fmt.Fprintf(cmd.ErrOrStderr(), "Delete snippet '%s' and all its versions? (y/N) ", target.Name)
					answer, err := reader.ReadString('\n')
					if err != nil {
						return err
					}
					if strings.TrimSpace(strings.ToLower(answer)) != "y" {
						fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
						return nil
					}
				}

				deleted, err := svc.Delete(ctx, target.ID)
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("snippet not found: %s", target.ID)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted '%s'\n", target.Name)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")

	return cmd
}
