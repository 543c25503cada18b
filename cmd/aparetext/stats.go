package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aparetext/aparetext/internal/analytics"
	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/services"
)

func newStatsCmd() *cobra.Command {
	var (
		snippetRef string
		format     string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show usage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				snippetID := ""
				if snippetRef != "" {
					target, err := resolveSnippet(ctx, services.NewSnippetService(dbCtx), snippetRef)
					if err != nil {
						return err
					}
					snippetID = target.ID
				}

				report, err := analytics.NewAnalyzer(dbCtx).Compute(ctx, snippetID)
				if err != nil {
					return err
				}
				if format == formatJSON {
					return outputJSON(cmd.OutOrStdout(), report)
				}
				outputStats(cmd.OutOrStdout(), report)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&snippetRef, "snippet", "s", "", "Limit usage figures to one snippet")
	cmd.Flags().StringVar(&format, "format", formatTable, "Output format: table or json")

	return cmd
}

func outputStats(w io.Writer, r *analytics.Report) {
	t := newTable(w)
	t.SetTitle("Overview")
	t.AppendRows([]table.Row{
		{"Snippets", fmt.Sprintf("%d (%d enabled)", r.TotalSnippets, r.EnabledSnippets)},
		{"Uses", r.TotalUses},
		{"Last 7 days", r.RecentActivity},
	})
	if r.Productivity != nil {
		t.AppendRows([]table.Row{
			{"Uses per day", fmt.Sprintf("%.2f", r.Productivity.AvgDailyUses)},
			{"Busiest hour", fmt.Sprintf("%02d:00", r.Productivity.MostActiveHour)},
			{"Busiest day", r.Productivity.MostActiveDay},
		})
	}
	if r.VersionStats != nil {
		t.AppendRows([]table.Row{
			{"Versions", r.VersionStats.TotalVersions},
			{"Versions per snippet", fmt.Sprintf("%.2f", r.VersionStats.AvgVersionsPerSnippet)},
		})
	}
	t.Render()

	if len(r.TopSnippets) > 0 {
		tt := newTable(w)
		tt.SetTitle("Most used")
		tt.AppendHeader(table.Row{"Abbr", "Name", "Category", "Uses"})
		for _, s := range r.TopSnippets {
			tt.AppendRow(table.Row{s.Abbreviation, wrapString(s.Name, 40), s.Category, s.UsageCount})
		}
		tt.Render()
	}

	renderCounts(w, "By source", r.BySource)
	renderCounts(w, "By application", r.ByApp)
	renderCounts(w, "By domain", r.ByDomain)
	renderCounts(w, "By category", r.CategoryStats)
}

// renderCounts prints a two-column table sorted by count, then key.
func renderCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := slices.Sorted(maps.Keys(counts))
	slices.SortStableFunc(keys, func(a, b string) int { return counts[b] - counts[a] })

	t := newTable(w)
	t.SetTitle(title)
	for _, k := range keys {
		t.AppendRow(table.Row{k, counts[k]})
	}
	t.Render()
}
