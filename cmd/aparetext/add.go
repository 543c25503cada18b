package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/services"
	"github.com/aparetext/aparetext/internal/snippet"
)

func newAddCmd() *cobra.Command {
	var flags contentFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a snippet",
		Long: `Create a snippet. The plain text template comes from --content, --file or
stdin. Variables found in the template are declared as text variables unless
--var declares them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := snippet.New().Content
			if err := flags.apply(cmd, &c, true); err != nil {
				return err
			}
			if !flags.hasBody(cmd) {
				text, err := readContent(cmd)
				if err != nil {
					return err
				}
				c.ContentText = text
			}
			detectVariables(&c)

			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				svc := services.NewSnippetService(dbCtx, services.WithLogger(logger))
				created, err := svc.Create(ctx, c)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), created.ID)
				return nil
			})
		},
	}

	flags.register(cmd)

	return cmd
}
