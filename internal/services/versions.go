package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/aparetext/aparetext/internal/database"
	sqldb "github.com/aparetext/aparetext/internal/database/sqlc"
	"github.com/aparetext/aparetext/internal/snippet"
)

// ListVersions returns the history of a snippet, most recent first.
func (s *SnippetService) ListVersions(ctx context.Context, snippetID string) ([]snippet.Version, error) {
	return database.NewVersionRepository(s.ctx).ListBySnippet(ctx, snippetID)
}

// GetVersion returns one version of a snippet, or nil. ref is a version id
// or a version number.
func (s *SnippetService) GetVersion(ctx context.Context, snippetID, ref string) (*snippet.Version, error) {
	repo := database.NewVersionRepository(s.ctx)
	v, err := repo.FindByID(ctx, snippetID, ref)
	if err != nil || v != nil {
		return v, err
	}
	number, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || number < 1 {
		return nil, nil
	}
	return repo.FindBySnippetAndNumber(ctx, snippetID, number)
}

// versionID maps a version number to its id. Anything else is returned
// unchanged.
func (s *SnippetService) versionID(ctx context.Context, snippetID, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	v, err := s.GetVersion(ctx, snippetID, ref)
	if err != nil {
		return "", err
	}
	if v == nil {
		return ref, nil
	}
	return v.ID, nil
}

// RestoreVersion snapshots the current state, then copies the content and
// variables of the target version onto the live snippet. versionID may also
// be a version number. It returns nil when either the snippet or the version
// does not exist.
func (s *SnippetService) RestoreVersion(ctx context.Context, snippetID, versionID string) (*snippet.Snippet, error) {
	versionID, err := s.versionID(ctx, snippetID, versionID)
	if err != nil {
		return nil, err
	}

	var restored *snippet.Snippet
	var number int64
	err = s.withTx(ctx, func(txCtx context.Context, q *sqldb.Queries) error {
		current, err := database.LoadSnippet(txCtx, q, snippetID)
		if err != nil || current == nil {
			return err
		}
		target, err := database.LoadVersion(txCtx, q, snippetID, versionID)
		if err != nil || target == nil {
			return err
		}
		number = target.VersionNumber

		reason := fmt.Sprintf("restored to version %d", target.VersionNumber)
		if _, err := s.snapshot(txCtx, q, *current, reason); err != nil {
			return err
		}

		// Version variables keep their own identities, so the live copies get new ids.
		if err := s.overwrite(txCtx, q, *current, target.Content, true); err != nil {
			return err
		}
		restored, err = database.LoadSnippet(txCtx, q, snippetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if restored != nil {
		s.logger.Debug("snippet restored", "id", snippetID, "version", number)
	}
	return restored, nil
}

// snapshot stores current as the next version of its snippet.
func (s *SnippetService) snapshot(ctx context.Context, q *sqldb.Queries, current snippet.Snippet, reason string) (int64, error) {
	maxVersion, err := q.MaxVersionForSnippet(ctx, current.ID)
	if err != nil {
		return 0, err
	}
	number := maxVersion + 1

	row, err := database.VersionRowFromSnippet(s.newID(), current, number, reason, s.now())
	if err != nil {
		return 0, err
	}
	if err := q.InsertSnippetVersion(ctx, row); err != nil {
		return 0, fmt.Errorf("failed to insert version %d: %w", number, err)
	}
	for i, v := range current.Variables {
		varRow, err := database.VersionVariableRow(s.newID(), row.ID, i, v)
		if err != nil {
			return 0, err
		}
		if err := q.InsertVersionVariable(ctx, varRow); err != nil {
			return 0, err
		}
	}
	return number, nil
}

// DiffVersions returns an RFC 7386 merge patch turning the content of
// fromVersionID into the content of toVersionID. An empty toVersionID
// compares against the live snippet. Version numbers are accepted in place
// of ids. It returns nil when any side is missing.
func (s *SnippetService) DiffVersions(ctx context.Context, snippetID, fromVersionID, toVersionID string) (json.RawMessage, error) {
	fromVersionID, err := s.versionID(ctx, snippetID, fromVersionID)
	if err != nil {
		return nil, err
	}
	toVersionID, err = s.versionID(ctx, snippetID, toVersionID)
	if err != nil {
		return nil, err
	}

	q, err := s.queries()
	if err != nil {
		return nil, err
	}

	from, err := database.LoadVersion(ctx, q, snippetID, fromVersionID)
	if err != nil || from == nil {
		return nil, err
	}

	var to snippet.Content
	if toVersionID == "" {
		current, err := database.LoadSnippet(ctx, q, snippetID)
		if err != nil || current == nil {
			return nil, err
		}
		to = current.Content
	} else {
		target, err := database.LoadVersion(ctx, q, snippetID, toVersionID)
		if err != nil || target == nil {
			return nil, err
		}
		to = target.Content
	}

	original, err := json.Marshal(diffable(from.Content))
	if err != nil {
		return nil, err
	}
	modified, err := json.Marshal(diffable(to))
	if err != nil {
		return nil, err
	}
	patch, err := jsonpatch.CreateMergePatch(original, modified)
	if err != nil {
		return nil, fmt.Errorf("failed to diff versions: %w", err)
	}
	return json.RawMessage(patch), nil
}

// diffable strips variable ids, which differ between copies of the same
// variable.
func diffable(c snippet.Content) snippet.Content {
	vars := make([]snippet.Variable, len(c.Variables))
	for i, v := range c.Variables {
		v.ID = ""
		vars[i] = v
	}
	c.Variables = vars
	return c
}

func optionalParam(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
