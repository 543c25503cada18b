package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/aparetext/aparetext/internal/database"
	sqldb "github.com/aparetext/aparetext/internal/database/sqlc"
	"github.com/aparetext/aparetext/internal/snippet"
)

// ErrNotFound is returned by callers that must surface a missing snippet as
// an error. Store lookups themselves return nil results instead.
var ErrNotFound = errors.New("snippet not found")

// DefaultChangeReason tags version snapshots taken by Update when the
// caller does not supply a reason.
const DefaultChangeReason = "update"

// Option configures a SnippetService.
type Option func(*SnippetService)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SnippetService) {
		s.now = now
	}
}

// WithLogger sets the logger used for write operations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *SnippetService) {
		s.logger = logger
	}
}

// SnippetService implements snippet storage with automatic version history.
type SnippetService struct {
	ctx    *database.Context
	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

// NewSnippetService creates a new SnippetService.
func NewSnippetService(ctx *database.Context, opts ...Option) *SnippetService {
	s := &SnippetService{
		ctx:    ctx,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates content and persists it with its variables. The stored
// snippet carries a generated id and fresh timestamps.
func (s *SnippetService) Create(ctx context.Context, content snippet.Content) (*snippet.Snippet, error) {
	content.Normalize()
	if err := content.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := snippet.Snippet{
		ID:        s.newID(),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var created *snippet.Snippet
	err := s.withTx(ctx, func(txCtx context.Context, q *sqldb.Queries) error {
		if err := s.insert(txCtx, q, record); err != nil {
			return err
		}
		var err error
		created, err = database.LoadSnippet(txCtx, q, record.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("snippet created", "id", created.ID, "abbreviation", created.Abbreviation)
	return created, nil
}

// Get returns the snippet with id, or nil when it does not exist.
func (s *SnippetService) Get(ctx context.Context, id string) (*snippet.Snippet, error) {
	q, err := s.queries()
	if err != nil {
		return nil, err
	}
	return database.LoadSnippet(ctx, q, id)
}

// ListAll returns snippets in insertion order.
func (s *SnippetService) ListAll(ctx context.Context, enabledOnly bool) ([]snippet.Snippet, error) {
	q, err := s.queries()
	if err != nil {
		return nil, err
	}
	rows, err := q.ListSnippets(ctx, enabledOnly)
	if err != nil {
		return nil, err
	}
	return database.LoadSnippets(ctx, q, rows)
}

// Update snapshots the current state as a new version, then overwrites
// every mutable field and replaces all variables. A snapshot is taken on
// every call, even when content is unchanged. It returns nil when id does
// not exist.
func (s *SnippetService) Update(ctx context.Context, id string, content snippet.Content, reason string) (*snippet.Snippet, error) {
	content.Normalize()
	if err := content.Validate(); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = DefaultChangeReason
	}

	var updated *snippet.Snippet
	err := s.withTx(ctx, func(txCtx context.Context, q *sqldb.Queries) error {
		current, err := database.LoadSnippet(txCtx, q, id)
		if err != nil || current == nil {
			return err
		}
		if _, err := s.snapshot(txCtx, q, *current, reason); err != nil {
			return err
		}
		if err := s.overwrite(txCtx, q, *current, content, false); err != nil {
			return err
		}
		updated, err = database.LoadSnippet(txCtx, q, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if updated != nil {
		s.logger.Debug("snippet updated", "id", id, "reason", reason)
	}
	return updated, nil
}

// Delete removes a snippet with its variables and versions. Usage log rows
// are kept. It reports false when id does not exist.
func (s *SnippetService) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(txCtx context.Context, q *sqldb.Queries) error {
		var err error
		deleted, err = deleteSnippet(txCtx, q, id)
		return err
	})
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.Debug("snippet deleted", "id", id)
	}
	return deleted, nil
}

func deleteSnippet(ctx context.Context, q *sqldb.Queries, id string) (bool, error) {
	if _, err := q.DeleteVersionVariablesBySnippet(ctx, id); err != nil {
		return false, err
	}
	if _, err := q.DeleteVersionsBySnippet(ctx, id); err != nil {
		return false, err
	}
	if _, err := q.DeleteSnippetVariables(ctx, id); err != nil {
		return false, err
	}
	affected, err := q.DeleteSnippet(ctx, id)
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// SearchOptions narrows a text search.
type SearchOptions struct {
	Query string
	// Tags keeps only results carrying at least one of these tags exactly.
	Tags      []string
	ScopeType string
	// IncludeDisabled widens the search to disabled snippets.
	IncludeDisabled bool
}

// Search matches the query case-insensitively against name, abbreviation
// and the stored comma-joined tag string. An empty query matches every
// candidate.
func (s *SnippetService) Search(ctx context.Context, opts SearchOptions) ([]snippet.Snippet, error) {
	candidates, err := database.NewSnippetRepository(s.ctx).ListFiltered(ctx, !opts.IncludeDisabled, opts.ScopeType)
	if err != nil {
		return nil, err
	}

	fold := cases.Fold()
	needle := fold.String(opts.Query)
	results := make([]snippet.Snippet, 0, len(candidates))
	for _, candidate := range candidates {
		if !matchesText(fold, needle, candidate) {
			continue
		}
		if len(opts.Tags) > 0 && !hasAnyTag(candidate, opts.Tags) {
			continue
		}
		results = append(results, candidate)
	}
	return results, nil
}

func matchesText(fold cases.Caser, needle string, s snippet.Snippet) bool {
	fields := []string{s.Name, s.Abbreviation, snippet.JoinTags(s.Tags)}
	for _, field := range fields {
		if strings.Contains(fold.String(field), needle) {
			return true
		}
	}
	return false
}

func hasAnyTag(s snippet.Snippet, tags []string) bool {
	for _, tag := range tags {
		if s.HasTag(tag) {
			return true
		}
	}
	return false
}

// GetByAbbreviation returns the enabled snippet with the exact
// abbreviation, or nil.
func (s *SnippetService) GetByAbbreviation(ctx context.Context, abbreviation string) (*snippet.Snippet, error) {
	return database.NewSnippetRepository(s.ctx).FindByAbbreviation(ctx, abbreviation)
}

// IncrementUsage bumps the usage counter. Unknown ids are ignored.
func (s *SnippetService) IncrementUsage(ctx context.Context, id string) error {
	q, err := s.queries()
	if err != nil {
		return err
	}
	_, err = q.IncrementUsage(ctx, id)
	return err
}

// UsageEvent describes where a snippet was expanded.
type UsageEvent struct {
	Source       snippet.Source
	TargetApp    string
	TargetDomain string
}

// LogUsage appends a usage log entry, then increments the usage counter.
// The two writes commit independently.
func (s *SnippetService) LogUsage(ctx context.Context, id string, event UsageEvent) error {
	source, err := snippet.ParseSource(string(event.Source))
	if err != nil {
		return err
	}

	q, err := s.queries()
	if err != nil {
		return err
	}
	if _, err := q.InsertUsageLog(ctx, sqldb.InsertUsageLogParams{
		SnippetID:    id,
		Timestamp:    s.now().UTC(),
		Source:       optionalParam(string(source)),
		TargetApp:    optionalParam(event.TargetApp),
		TargetDomain: optionalParam(event.TargetDomain),
	}); err != nil {
		return fmt.Errorf("failed to log usage: %w", err)
	}
	return s.IncrementUsage(ctx, id)
}

// Activity summarizes the history kept for one snippet.
type Activity struct {
	Versions   int64 `json:"versions"`
	LoggedUses int64 `json:"logged_uses"`
}

// Activity counts the saved versions and usage log entries of a snippet.
// LoggedUses can trail UsageCount when a counter bump was lost, and it
// survives deletion of the snippet.
func (s *SnippetService) Activity(ctx context.Context, id string) (Activity, error) {
	versions, err := database.NewVersionRepository(s.ctx).CountBySnippet(ctx, id)
	if err != nil {
		return Activity{}, fmt.Errorf("failed to count versions: %w", err)
	}
	uses, err := database.NewUsageRepository(s.ctx).CountBySnippet(ctx, id)
	if err != nil {
		return Activity{}, fmt.Errorf("failed to count usage: %w", err)
	}
	return Activity{Versions: versions, LoggedUses: uses}, nil
}

// insert writes a snippet row and its variables. Variables without an id
// receive a generated one.
func (s *SnippetService) insert(ctx context.Context, q *sqldb.Queries, record snippet.Snippet) error {
	row, err := database.SnippetRowFromDomain(record)
	if err != nil {
		return err
	}
	if err := q.InsertSnippet(ctx, row); err != nil {
		return err
	}
	return s.writeVariables(ctx, q, record.ID, record.Variables, false)
}

// overwrite replaces the mutable fields and variables of current with
// content, keeping usage_count and created_at.
func (s *SnippetService) overwrite(ctx context.Context, q *sqldb.Queries, current snippet.Snippet, content snippet.Content, freshIDs bool) error {
	next := current
	next.Content = content
	next.UpdatedAt = s.now().UTC()

	row, err := database.SnippetRowFromDomain(next)
	if err != nil {
		return err
	}
	if _, err := q.UpdateSnippet(ctx, row); err != nil {
		return err
	}
	if _, err := q.DeleteSnippetVariables(ctx, current.ID); err != nil {
		return err
	}
	return s.writeVariables(ctx, q, current.ID, content.Variables, freshIDs)
}

func (s *SnippetService) writeVariables(ctx context.Context, q *sqldb.Queries, snippetID string, vars []snippet.Variable, freshIDs bool) error {
	for i, v := range vars {
		id := v.ID
		if id == "" || freshIDs {
			id = s.newID()
		}
		row, err := database.VariableRow(id, snippetID, i, v)
		if err != nil {
			return err
		}
		if err := q.InsertSnippetVariable(ctx, row); err != nil {
			return fmt.Errorf("failed to insert variable %s: %w", v.Key, err)
		}
	}
	return nil
}

func (s *SnippetService) withTx(ctx context.Context, fn func(context.Context, *sqldb.Queries) error) error {
	if s.ctx == nil || s.ctx.DB == nil {
		return fmt.Errorf("snippet service: missing database context")
	}

	tx, err := s.ctx.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	queries := sqldb.New(tx)

	if err := fn(ctx, queries); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return nil
}

func (s *SnippetService) queries() (*sqldb.Queries, error) {
	if s.ctx == nil {
		return nil, fmt.Errorf("snippet service: missing database context")
	}
	if s.ctx.Queries == nil {
		if s.ctx.DB == nil {
			return nil, fmt.Errorf("snippet service: database handle not initialised")
		}
		s.ctx.Queries = sqldb.New(s.ctx.DB)
	}
	return s.ctx.Queries, nil
}
