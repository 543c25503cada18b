package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/scope"
	"github.com/aparetext/aparetext/internal/services"
	"github.com/aparetext/aparetext/internal/snippet"
)

func newListCmd() *cobra.Command {
	var (
		includeDisabled bool
		format          string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List snippets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				list, err := services.NewSnippetService(dbCtx).ListAll(ctx, !includeDisabled)
				if err != nil {
					return err
				}
				return outputSnippets(cmd, list, format)
			})
		},
	}

	cmd.Flags().BoolVar(&includeDisabled, "all", false, "Include disabled snippets")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")

	return cmd
}

func newSearchCmd() *cobra.Command {
	var (
		tags            []string
		scopeType       string
		includeDisabled bool
		format          string
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search snippets by name, abbreviation or tags",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			if scopeType != "" {
				if _, err := scope.ParseType(scopeType); err != nil {
					return err
				}
			}
			opts := services.SearchOptions{
				Tags:            snippet.ParseTags(strings.Join(tags, ",")),
				ScopeType:       scopeType,
				IncludeDisabled: includeDisabled,
			}
			if len(args) == 1 {
				opts.Query = args[0]
			}

			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				results, err := services.NewSnippetService(dbCtx).Search(ctx, opts)
				if err != nil {
					return err
				}
				return outputSnippets(cmd, results, format)
			})
		},
	}

	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Only snippets with one of these tags")
	cmd.Flags().StringVar(&scopeType, "scope", "", "Only snippets with this scope type: global, apps, or domains")
	cmd.Flags().BoolVar(&includeDisabled, "all", false, "Include disabled snippets")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")

	return cmd
}

func outputSnippets(cmd *cobra.Command, list []snippet.Snippet, format string) error {
	if format == formatJSON {
		if list == nil {
			list = []snippet.Snippet{}
		}
		return outputJSON(cmd.OutOrStdout(), list)
	}
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No snippets found")
		return nil
	}
	outputSnippetTable(cmd.OutOrStdout(), list)
	return nil
}

func newShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <id|abbreviation>",
		Short: "Show a snippet with its variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				svc := services.NewSnippetService(dbCtx)
				found, err := resolveSnippet(ctx, svc, args[0])
				if err != nil {
					return err
				}
				activity, err := svc.Activity(ctx, found.ID)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return outputJSON(cmd.OutOrStdout(), struct {
						*snippet.Snippet
						Activity services.Activity `json:"activity"`
					}{found, activity})
				}
				outputSnippetDetail(cmd, found, activity)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")

	return cmd
}

func outputSnippetDetail(cmd *cobra.Command, s *snippet.Snippet, activity services.Activity) {
	width := max(getTerminalWidth()-20, 20)

	t := newTable(cmd.OutOrStdout())
	t.AppendRows([]table.Row{
		{"ID", s.ID},
		{"Name", wrapString(s.Name, width)},
		{"Abbreviation", s.Abbreviation},
		{"Type", s.Type},
		{"Category", s.Category},
		{"Tags", snippet.JoinTags(s.Tags)},
		{"Scope", wrapString(scope.FormatScope(s.Scope()), width)},
		{"Enabled", s.Enabled},
		{"Rich", s.IsRich},
		{"Uses", s.UsageCount},
		{"Logged uses", activity.LoggedUses},
		{"Versions", activity.Versions},
		{"Created", s.CreatedAt.Local().Format(time.DateTime)},
		{"Updated", s.UpdatedAt.Local().Format(time.DateTime)},
	})
	t.Render()

	if len(s.Variables) > 0 {
		vt := newTable(cmd.OutOrStdout())
		vt.AppendHeader(table.Row{"Variable", "Type", "Required", "Default", "Options"})
		for _, v := range s.Variables {
			vt.AppendRow(table.Row{v.Key, v.Type, v.Required, v.DefaultValue, strings.Join(v.Options, ", ")})
		}
		vt.Render()
	}

	if s.Type == snippet.TypeImage {
		fmt.Fprintf(cmd.OutOrStdout(), "\n[image, %d bytes encoded]\n", len(s.ImageData))
		return
	}
	fmt.Fprintln(cmd.OutOrStdout())
	fmt.Fprintln(cmd.OutOrStdout(), s.Body())
}
