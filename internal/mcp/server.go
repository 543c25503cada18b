package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aparetext/aparetext/internal/analytics"
	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/scope"
	"github.com/aparetext/aparetext/internal/services"
	"github.com/aparetext/aparetext/internal/snippet"
	"github.com/aparetext/aparetext/internal/template"
	"github.com/aparetext/aparetext/internal/usecase"
)

// Server exposes the snippet store as MCP tools over stdio.
type Server struct {
	server   *mcp.Server
	snippets *services.SnippetService
	expander *usecase.Expander
	analyzer *analytics.Analyzer
	logger   *slog.Logger
}

// NewServer creates the MCP server. The caller owns dbCtx. The logger must
// not write to stdout, which carries the protocol.
func NewServer(dbCtx *database.Context, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "aparetext",
		Version: version,
	}, nil)

	s := &Server{
		server:   mcpServer,
		snippets: services.NewSnippetService(dbCtx, services.WithLogger(logger)),
		expander: usecase.NewExpander(dbCtx, template.NewParser(), services.WithLogger(logger)),
		analyzer: analytics.NewAnalyzer(dbCtx),
		logger:   logger,
	}

	s.registerTools()

	return s
}

// Run serves over stdio until the client disconnects or ctx ends.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("mcp server starting")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "snippet_search",
		Description: "Search snippets by name, abbreviation or tags",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "snippet_get",
		Description: "Get a snippet by id or abbreviation",
	}, s.handleGet)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "snippet_expand",
		Description: "Expand a snippet template with variable values",
	}, s.handleExpand)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "snippet_versions",
		Description: "List the saved versions of a snippet",
	}, s.handleVersions)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "snippet_stats",
		Description: "Summarize snippet usage",
	}, s.handleStats)
}

type SearchInput struct {
	Query           string   `json:"query,omitempty" jsonschema:"Text matched against name, abbreviation and tags"`
	Tags            []string `json:"tags,omitempty" jsonschema:"Keep only snippets carrying one of these tags"`
	IncludeDisabled bool     `json:"include_disabled,omitempty" jsonschema:"Also return disabled snippets"`
}

type SearchOutput struct {
	Snippets []SnippetSummary `json:"snippets"`
}

type SnippetSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Abbreviation string   `json:"abbreviation,omitempty"`
	Category     string   `json:"category,omitempty"`
	Tags         []string `json:"tags"`
	Enabled      bool     `json:"enabled"`
	UsageCount   int64    `json:"usage_count"`
}

type GetInput struct {
	ID           string `json:"id,omitempty" jsonschema:"Snippet id"`
	Abbreviation string `json:"abbreviation,omitempty" jsonschema:"Snippet abbreviation, used when id is empty"`
}

type VariableInfo struct {
	Key          string   `json:"key"`
	Label        string   `json:"label,omitempty"`
	Type         string   `json:"type"`
	DefaultValue string   `json:"default_value,omitempty"`
	Required     bool     `json:"required"`
	Options      []string `json:"options,omitempty"`
}

type GetOutput struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Abbreviation string         `json:"abbreviation,omitempty"`
	Content      string         `json:"content"`
	IsRich       bool           `json:"is_rich"`
	Scope        string         `json:"scope"`
	Variables    []VariableInfo `json:"variables"`
	UsageCount   int64          `json:"usage_count"`
	LoggedUses   int64          `json:"logged_uses"`
	VersionCount int64          `json:"version_count"`
	UpdatedAt    string         `json:"updated_at"`
}

type ExpandInput struct {
	ID           string         `json:"id,omitempty" jsonschema:"Snippet id"`
	Abbreviation string         `json:"abbreviation,omitempty" jsonschema:"Snippet abbreviation, used when id is empty"`
	Variables    map[string]any `json:"variables,omitempty" jsonschema:"Values for the template variables"`
	TargetApp    string         `json:"target_app,omitempty" jsonschema:"Application the text is inserted into"`
	TargetDomain string         `json:"target_domain,omitempty" jsonschema:"Web domain the text is inserted into"`
}

type ExpandOutput struct {
	Content        string `json:"content"`
	CursorPosition int    `json:"cursor_position"`
	IsRich         bool   `json:"is_rich"`
}

type VersionsInput struct {
	ID string `json:"id" jsonschema:"Snippet id"`
}

type VersionEntry struct {
	ID            string `json:"id"`
	VersionNumber int64  `json:"version_number"`
	Name          string `json:"name"`
	ChangeReason  string `json:"change_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type VersionsOutput struct {
	Versions []VersionEntry `json:"versions"`
}

type StatsInput struct {
	SnippetID string `json:"snippet_id,omitempty" jsonschema:"Limit usage figures to one snippet"`
}

type StatsOutput struct {
	TotalUses       int                    `json:"total_uses"`
	TotalSnippets   int64                  `json:"total_snippets"`
	EnabledSnippets int64                  `json:"enabled_snippets"`
	RecentActivity  int                    `json:"recent_activity"`
	BySource        map[string]int         `json:"by_source"`
	ByApp           map[string]int         `json:"by_app"`
	ByDomain        map[string]int         `json:"by_domain"`
	TopSnippets     []analytics.TopSnippet `json:"top_snippets,omitempty"`
	AvgDailyUses    float64                `json:"avg_daily_uses"`
	MostActiveDay   string                 `json:"most_active_day,omitempty"`
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	results, err := s.snippets.Search(ctx, services.SearchOptions{
		Query:           input.Query,
		Tags:            input.Tags,
		IncludeDisabled: input.IncludeDisabled,
	})
	if err != nil {
		return nil, SearchOutput{}, fmt.Errorf("failed to search snippets: %w", err)
	}

	out := SearchOutput{Snippets: make([]SnippetSummary, 0, len(results))}
	for _, r := range results {
		out.Snippets = append(out.Snippets, SnippetSummary{
			ID:           r.ID,
			Name:         r.Name,
			Abbreviation: r.Abbreviation,
			Category:     r.Category,
			Tags:         r.Tags,
			Enabled:      r.Enabled,
			UsageCount:   r.UsageCount,
		})
	}
	return nil, out, nil
}

func (s *Server) lookup(ctx context.Context, id, abbreviation string) (*snippet.Snippet, error) {
	var (
		found *snippet.Snippet
		err   error
	)
	switch {
	case id != "":
		found, err = s.snippets.Get(ctx, id)
	case abbreviation != "":
		found, err = s.snippets.GetByAbbreviation(ctx, abbreviation)
	default:
		return nil, errors.New("id or abbreviation is required")
	}
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("snippet not found: %s%s", id, abbreviation)
	}
	return found, nil
}

func (s *Server) handleGet(ctx context.Context, req *mcp.CallToolRequest, input GetInput) (*mcp.CallToolResult, GetOutput, error) {
	found, err := s.lookup(ctx, input.ID, input.Abbreviation)
	if err != nil {
		return nil, GetOutput{}, err
	}
	activity, err := s.snippets.Activity(ctx, found.ID)
	if err != nil {
		return nil, GetOutput{}, err
	}

	vars := make([]VariableInfo, 0, len(found.Variables))
	for _, v := range found.Variables {
		vars = append(vars, VariableInfo{
			Key:          v.Key,
			Label:        v.Label,
			Type:         string(v.Type),
			DefaultValue: v.DefaultValue,
			Required:     v.Required,
			Options:      v.Options,
		})
	}

	return nil, GetOutput{
		ID:           found.ID,
		Name:         found.Name,
		Abbreviation: found.Abbreviation,
		Content:      found.Body(),
		IsRich:       found.IsRich,
		Scope:        scope.FormatScope(found.Scope()),
		Variables:    vars,
		UsageCount:   found.UsageCount,
		LoggedUses:   activity.LoggedUses,
		VersionCount: activity.Versions,
		UpdatedAt:    found.UpdatedAt.Format(time.RFC3339),
	}, nil
}

func (s *Server) handleExpand(ctx context.Context, req *mcp.CallToolRequest, input ExpandInput) (*mcp.CallToolResult, ExpandOutput, error) {
	in := usecase.ExpandInput{
		Values:       input.Variables,
		TargetApp:    input.TargetApp,
		TargetDomain: input.TargetDomain,
	}

	var (
		result *usecase.ExpandResult
		err    error
	)
	switch {
	case input.ID != "":
		result, err = s.expander.ExpandByID(ctx, input.ID, in)
	case input.Abbreviation != "":
		result, err = s.expander.Expand(ctx, input.Abbreviation, in)
	default:
		err = errors.New("id or abbreviation is required")
	}
	if err != nil {
		return nil, ExpandOutput{}, fmt.Errorf("failed to expand snippet: %w", err)
	}

	return nil, ExpandOutput{
		Content:        result.Content,
		CursorPosition: result.Cursor,
		IsRich:         result.IsRich,
	}, nil
}

func (s *Server) handleVersions(ctx context.Context, req *mcp.CallToolRequest, input VersionsInput) (*mcp.CallToolResult, VersionsOutput, error) {
	versions, err := s.snippets.ListVersions(ctx, input.ID)
	if err != nil {
		return nil, VersionsOutput{}, fmt.Errorf("failed to list versions: %w", err)
	}

	out := VersionsOutput{Versions: make([]VersionEntry, 0, len(versions))}
	for _, v := range versions {
		out.Versions = append(out.Versions, VersionEntry{
			ID:            v.ID,
			VersionNumber: v.VersionNumber,
			Name:          v.Name,
			ChangeReason:  v.ChangeReason,
			CreatedAt:     v.CreatedAt.Format(time.RFC3339),
		})
	}
	return nil, out, nil
}

func (s *Server) handleStats(ctx context.Context, req *mcp.CallToolRequest, input StatsInput) (*mcp.CallToolResult, StatsOutput, error) {
	report, err := s.analyzer.Compute(ctx, input.SnippetID)
	if err != nil {
		return nil, StatsOutput{}, fmt.Errorf("failed to compute stats: %w", err)
	}

	out := StatsOutput{
		TotalUses:       report.TotalUses,
		TotalSnippets:   report.TotalSnippets,
		EnabledSnippets: report.EnabledSnippets,
		RecentActivity:  report.RecentActivity,
		BySource:        report.BySource,
		ByApp:           report.ByApp,
		ByDomain:        report.ByDomain,
		TopSnippets:     report.TopSnippets,
	}
	if report.Productivity != nil {
		out.AvgDailyUses = report.Productivity.AvgDailyUses
		out.MostActiveDay = report.Productivity.MostActiveDay
	}
	return nil, out, nil
}
