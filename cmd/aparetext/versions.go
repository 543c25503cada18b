package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/services"
	"github.com/aparetext/aparetext/internal/snippet"
)

func newVersionsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "versions <id|abbreviation> [version]",
		Short: "List saved versions of a snippet, newest first",
		Long: `List saved versions of a snippet, newest first.

With a version id or number, show that version in full.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				svc := services.NewSnippetService(dbCtx)
				target, err := resolveSnippet(ctx, svc, args[0])
				if err != nil {
					return err
				}
				if len(args) == 2 {
					return showVersion(ctx, cmd, svc, target.ID, args[1], format)
				}
				versions, err := svc.ListVersions(ctx, target.ID)
				if err != nil {
					return err
				}

				if format == formatJSON {
					if versions == nil {
						versions = []snippet.Version{}
					}
					return outputJSON(cmd.OutOrStdout(), versions)
				}
				if len(versions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No versions yet")
					return nil
				}
				outputVersionTable(cmd, versions)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")

	return cmd
}

func outputVersionTable(cmd *cobra.Command, versions []snippet.Version) {
	t := newTable(cmd.OutOrStdout())
	width := max(getTerminalWidth()-70, 15)

	t.AppendHeader(table.Row{"Version", "ID", "Created", "Reason", "Content"})
	for _, v := range versions {
		t.AppendRow(table.Row{
			v.VersionNumber,
			v.ID,
			v.CreatedAt.Local().Format(time.DateTime),
			runewidth.Truncate(v.ChangeReason, 24, "..."),
			preview(v.Body(), width),
		})
	}
	t.Render()
}

func showVersion(ctx context.Context, cmd *cobra.Command, svc *services.SnippetService, snippetID, ref, format string) error {
	v, err := svc.GetVersion(ctx, snippetID, ref)
	if err != nil {
		return err
	}
	if v == nil {
		return fmt.Errorf("version not found: %s", ref)
	}
	if format == formatJSON {
		return outputJSON(cmd.OutOrStdout(), v)
	}

	t := newTable(cmd.OutOrStdout())
	t.AppendRows([]table.Row{
		{"Version", v.VersionNumber},
		{"ID", v.ID},
		{"Name", v.Name},
		{"Abbreviation", v.Abbreviation},
		{"Reason", v.ChangeReason},
		{"Created", v.CreatedAt.Local().Format(time.DateTime)},
	})
	t.Render()
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), v.Body())
	return nil
}

func newRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <id|abbreviation> <version>",
		Short: "Restore a snippet to a saved version",
		Long:  "Restore a snippet to a saved version, given by id or number. The current state is saved as a new version first.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				svc := services.NewSnippetService(dbCtx, services.WithLogger(logger))
				target, err := resolveSnippet(ctx, svc, args[0])
				if err != nil {
					return err
				}
				restored, err := svc.RestoreVersion(ctx, target.ID, args[1])
				if err != nil {
					return err
				}
				if restored == nil {
					return fmt.Errorf("version not found: %s", args[1])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored '%s' to version %s\n", restored.Name, args[1])
				return nil
			})
		},
	}

	return cmd
}

func newDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <id|abbreviation> <from-version> [to-version]",
		Short: "Show changes between versions as a JSON merge patch",
		Long: `Show what changed between two versions as an RFC 7386 JSON merge patch.
Versions are given by id or number. Without a target version the patch
leads to the current snippet.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			to := ""
			if len(args) == 3 {
				to = args[2]
			}
			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				svc := services.NewSnippetService(dbCtx)
				target, err := resolveSnippet(ctx, svc, args[0])
				if err != nil {
					return err
				}
				patch, err := svc.DiffVersions(ctx, target.ID, args[1], to)
				if err != nil {
					return err
				}
				if patch == nil {
					return errors.New("version not found")
				}
				var v any
				if err := json.Unmarshal(patch, &v); err != nil {
					return err
				}
				return outputJSON(cmd.OutOrStdout(), v)
			})
		},
	}

	return cmd
}
