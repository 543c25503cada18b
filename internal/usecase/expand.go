package usecase

import (
	"context"
	"fmt"

	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/scope"
	"github.com/aparetext/aparetext/internal/services"
	"github.com/aparetext/aparetext/internal/snippet"
	"github.com/aparetext/aparetext/internal/template"
)

// Expander turns a stored snippet into final text and records the usage.
type Expander struct {
	snippets *services.SnippetService
	parser   *template.Parser
}

func NewExpander(dbCtx *database.Context, parser *template.Parser, opts ...services.Option) *Expander {
	if parser == nil {
		parser = template.NewParser()
	}
	return &Expander{
		snippets: services.NewSnippetService(dbCtx, opts...),
		parser:   parser,
	}
}

// ExpandInput describes one expansion request.
type ExpandInput struct {
	Values       map[string]any
	Source       snippet.Source
	TargetApp    string
	TargetDomain string
}

// ExpandResult is the expanded text and where the caret goes. Cursor is a
// character offset, or -1 when the snippet has no cursor marker.
type ExpandResult struct {
	SnippetID string `json:"snippet_id"`
	Content   string `json:"content"`
	Cursor    int    `json:"cursor_position"`
	IsRich    bool   `json:"is_rich"`
}

// Expand looks up an enabled snippet by abbreviation. It returns
// services.ErrNotFound when no snippet matches or its scope excludes the
// target app or domain.
func (u *Expander) Expand(ctx context.Context, abbreviation string, input ExpandInput) (*ExpandResult, error) {
	s, err := u.snippets.GetByAbbreviation(ctx, abbreviation)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: abbreviation %q", services.ErrNotFound, abbreviation)
	}
	return u.expand(ctx, s, input)
}

// ExpandByID expands the snippet with id. Disabled snippets are not expanded.
func (u *Expander) ExpandByID(ctx context.Context, id string, input ExpandInput) (*ExpandResult, error) {
	s, err := u.snippets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil || !s.Enabled {
		return nil, fmt.Errorf("%w: id %q", services.ErrNotFound, id)
	}
	return u.expand(ctx, s, input)
}

func (u *Expander) expand(ctx context.Context, s *snippet.Snippet, input ExpandInput) (*ExpandResult, error) {
	if !scope.Allows(s.Scope(), input.TargetApp, input.TargetDomain) {
		return nil, fmt.Errorf("%w: %s is not active for %s", services.ErrNotFound, s.ID, target(input))
	}

	content, cursor := u.parser.ParseWithCursorPosition(s.Body(), input.Values)

	if err := u.snippets.LogUsage(ctx, s.ID, services.UsageEvent{
		Source:       input.Source,
		TargetApp:    input.TargetApp,
		TargetDomain: input.TargetDomain,
	}); err != nil {
		return nil, err
	}

	return &ExpandResult{
		SnippetID: s.ID,
		Content:   content,
		Cursor:    cursor,
		IsRich:    s.IsRich,
	}, nil
}

func target(input ExpandInput) string {
	if input.TargetDomain != "" {
		return input.TargetDomain
	}
	return input.TargetApp
}
