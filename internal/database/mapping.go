package database

import (
	"database/sql"
	"time"

	sqldb "github.com/aparetext/aparetext/internal/database/sqlc"
	"github.com/aparetext/aparetext/internal/scope"
	"github.com/aparetext/aparetext/internal/snippet"
)

// contentColumns is the column set shared by snippets and snippet_versions.
type contentColumns struct {
	Name         string
	Abbreviation sql.NullString
	SnippetType  string
	Tags         sql.NullString
	Category     sql.NullString
	ContentText  sql.NullString
	ContentHtml  sql.NullString
	IsRich       int64
	ImageData    sql.NullString
	Thumbnail    sql.NullString
	ScopeType    string
	ScopeValues  sql.NullString
	CaretMarker  string
	Enabled      int64
}

func encodeContent(c snippet.Content) (contentColumns, error) {
	scopeValues, err := encodeList(c.ScopeValues)
	if err != nil {
		return contentColumns{}, err
	}
	caret := c.CaretMarker
	if caret == "" {
		caret = snippet.DefaultCaretMarker
	}
	return contentColumns{
		Name:         c.Name,
		Abbreviation: nullString(c.Abbreviation),
		SnippetType:  string(c.Type),
		Tags:         nullString(snippet.JoinTags(c.Tags)),
		Category:     nullString(c.Category),
		ContentText:  nullString(c.ContentText),
		ContentHtml:  nullString(c.ContentHTML),
		IsRich:       boolToInt64(c.IsRich),
		ImageData:    nullString(c.ImageData),
		Thumbnail:    nullString(c.Thumbnail),
		ScopeType:    string(c.ScopeType),
		ScopeValues:  scopeValues,
		CaretMarker:  caret,
		Enabled:      boolToInt64(c.Enabled),
	}, nil
}

func decodeContent(cols contentColumns) (snippet.Content, error) {
	scopeValues, err := decodeList(cols.ScopeValues)
	if err != nil {
		return snippet.Content{}, err
	}
	return snippet.Content{
		Name:         cols.Name,
		Abbreviation: optionalString(cols.Abbreviation),
		Type:         snippet.Type(cols.SnippetType),
		Tags:         snippet.ParseTags(optionalString(cols.Tags)),
		Category:     optionalString(cols.Category),
		ContentText:  optionalString(cols.ContentText),
		ContentHTML:  optionalString(cols.ContentHtml),
		IsRich:       cols.IsRich != 0,
		ImageData:    optionalString(cols.ImageData),
		Thumbnail:    optionalString(cols.Thumbnail),
		ScopeType:    scope.ScopeType(cols.ScopeType),
		ScopeValues:  scopeValues,
		CaretMarker:  cols.CaretMarker,
		Enabled:      cols.Enabled != 0,
		Variables:    []snippet.Variable{},
	}, nil
}

// SnippetRowFromDomain converts a snippet into its row form.
func SnippetRowFromDomain(s snippet.Snippet) (sqldb.Snippet, error) {
	cols, err := encodeContent(s.Content)
	if err != nil {
		return sqldb.Snippet{}, err
	}
	return sqldb.Snippet{
		ID:           s.ID,
		Name:         cols.Name,
		Abbreviation: cols.Abbreviation,
		SnippetType:  cols.SnippetType,
		Tags:         cols.Tags,
		Category:     cols.Category,
		ContentText:  cols.ContentText,
		ContentHtml:  cols.ContentHtml,
		IsRich:       cols.IsRich,
		ImageData:    cols.ImageData,
		Thumbnail:    cols.Thumbnail,
		ScopeType:    cols.ScopeType,
		ScopeValues:  cols.ScopeValues,
		CaretMarker:  cols.CaretMarker,
		UsageCount:   s.UsageCount,
		Enabled:      cols.Enabled,
		CreatedAt:    utc(s.CreatedAt),
		UpdatedAt:    utc(s.UpdatedAt),
	}, nil
}

// SnippetFromRow converts a snippet row and its variable rows into a snippet.
func SnippetFromRow(row sqldb.Snippet, vars []sqldb.SnippetVariable) (snippet.Snippet, error) {
	content, err := decodeContent(contentColumns{
		Name:         row.Name,
		Abbreviation: row.Abbreviation,
		SnippetType:  row.SnippetType,
		Tags:         row.Tags,
		Category:     row.Category,
		ContentText:  row.ContentText,
		ContentHtml:  row.ContentHtml,
		IsRich:       row.IsRich,
		ImageData:    row.ImageData,
		Thumbnail:    row.Thumbnail,
		ScopeType:    row.ScopeType,
		ScopeValues:  row.ScopeValues,
		CaretMarker:  row.CaretMarker,
		Enabled:      row.Enabled,
	})
	if err != nil {
		return snippet.Snippet{}, err
	}
	for _, v := range vars {
		variable, err := variableFromColumns(variableColumns{
			ID:           v.ID,
			OwnerID:      v.SnippetID,
			Position:     v.Position,
			Key:          v.Key,
			Label:        v.Label,
			Type:         v.Type,
			Placeholder:  v.Placeholder,
			DefaultValue: v.DefaultValue,
			Required:     v.Required,
			Regex:        v.Regex,
			Options:      v.Options,
		})
		if err != nil {
			return snippet.Snippet{}, err
		}
		content.Variables = append(content.Variables, variable)
	}
	return snippet.Snippet{
		ID:         row.ID,
		Content:    content,
		UsageCount: row.UsageCount,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}, nil
}

// VersionRowFromSnippet builds the snapshot row capturing s as version number.
func VersionRowFromSnippet(id string, s snippet.Snippet, number int64, reason string, createdAt time.Time) (sqldb.SnippetVersion, error) {
	cols, err := encodeContent(s.Content)
	if err != nil {
		return sqldb.SnippetVersion{}, err
	}
	return sqldb.SnippetVersion{
		ID:            id,
		SnippetID:     s.ID,
		VersionNumber: number,
		Name:          cols.Name,
		Abbreviation:  cols.Abbreviation,
		SnippetType:   cols.SnippetType,
		Tags:          cols.Tags,
		Category:      cols.Category,
		ContentText:   cols.ContentText,
		ContentHtml:   cols.ContentHtml,
		IsRich:        cols.IsRich,
		ImageData:     cols.ImageData,
		Thumbnail:     cols.Thumbnail,
		ScopeType:     cols.ScopeType,
		ScopeValues:   cols.ScopeValues,
		CaretMarker:   cols.CaretMarker,
		Enabled:       cols.Enabled,
		ChangeReason:  nullString(reason),
		CreatedAt:     utc(createdAt),
	}, nil
}

// VersionFromRow converts a version row and its variable rows into a version.
func VersionFromRow(row sqldb.SnippetVersion, vars []sqldb.SnippetVersionVariable) (snippet.Version, error) {
	content, err := decodeContent(contentColumns{
		Name:         row.Name,
		Abbreviation: row.Abbreviation,
		SnippetType:  row.SnippetType,
		Tags:         row.Tags,
		Category:     row.Category,
		ContentText:  row.ContentText,
		ContentHtml:  row.ContentHtml,
		IsRich:       row.IsRich,
		ImageData:    row.ImageData,
		Thumbnail:    row.Thumbnail,
		ScopeType:    row.ScopeType,
		ScopeValues:  row.ScopeValues,
		CaretMarker:  row.CaretMarker,
		Enabled:      row.Enabled,
	})
	if err != nil {
		return snippet.Version{}, err
	}
	for _, v := range vars {
		variable, err := variableFromColumns(variableColumns{
			ID:           v.ID,
			OwnerID:      v.VersionID,
			Position:     v.Position,
			Key:          v.Key,
			Label:        v.Label,
			Type:         v.Type,
			Placeholder:  v.Placeholder,
			DefaultValue: v.DefaultValue,
			Required:     v.Required,
			Regex:        v.Regex,
			Options:      v.Options,
		})
		if err != nil {
			return snippet.Version{}, err
		}
		content.Variables = append(content.Variables, variable)
	}
	return snippet.Version{
		ID:            row.ID,
		SnippetID:     row.SnippetID,
		VersionNumber: row.VersionNumber,
		Content:       content,
		ChangeReason:  optionalString(row.ChangeReason),
		CreatedAt:     row.CreatedAt.UTC(),
	}, nil
}

// variableColumns is the column set shared by both variable tables.
type variableColumns struct {
	ID           string
	OwnerID      string
	Position     int64
	Key          string
	Label        sql.NullString
	Type         string
	Placeholder  sql.NullString
	DefaultValue sql.NullString
	Required     int64
	Regex        sql.NullString
	Options      sql.NullString
}

func variableFromColumns(cols variableColumns) (snippet.Variable, error) {
	options, err := decodeList(cols.Options)
	if err != nil {
		return snippet.Variable{}, err
	}
	if len(options) == 0 {
		options = nil
	}
	return snippet.Variable{
		ID:           cols.ID,
		Key:          cols.Key,
		Label:        optionalString(cols.Label),
		Type:         snippet.VariableType(cols.Type),
		Placeholder:  optionalString(cols.Placeholder),
		DefaultValue: optionalString(cols.DefaultValue),
		Required:     cols.Required != 0,
		Regex:        optionalString(cols.Regex),
		Options:      options,
	}, nil
}

func encodeVariable(id, ownerID string, position int, v snippet.Variable) (variableColumns, error) {
	options, err := encodeList(v.Options)
	if err != nil {
		return variableColumns{}, err
	}
	varType := v.Type
	if varType == "" {
		varType = snippet.VariableText
	}
	return variableColumns{
		ID:           id,
		OwnerID:      ownerID,
		Position:     int64(position),
		Key:          v.Key,
		Label:        nullString(v.Label),
		Type:         string(varType),
		Placeholder:  nullString(v.Placeholder),
		DefaultValue: nullString(v.DefaultValue),
		Required:     boolToInt64(v.Required),
		Regex:        nullString(v.Regex),
		Options:      options,
	}, nil
}

// VariableRow builds a snippet_variables row.
func VariableRow(id, snippetID string, position int, v snippet.Variable) (sqldb.SnippetVariable, error) {
	cols, err := encodeVariable(id, snippetID, position, v)
	if err != nil {
		return sqldb.SnippetVariable{}, err
	}
	return sqldb.SnippetVariable{
		ID:           cols.ID,
		SnippetID:    cols.OwnerID,
		Position:     cols.Position,
		Key:          cols.Key,
		Label:        cols.Label,
		Type:         cols.Type,
		Placeholder:  cols.Placeholder,
		DefaultValue: cols.DefaultValue,
		Required:     cols.Required,
		Regex:        cols.Regex,
		Options:      cols.Options,
	}, nil
}

// VersionVariableRow builds a snippet_version_variables row.
func VersionVariableRow(id, versionID string, position int, v snippet.Variable) (sqldb.SnippetVersionVariable, error) {
	cols, err := encodeVariable(id, versionID, position, v)
	if err != nil {
		return sqldb.SnippetVersionVariable{}, err
	}
	return sqldb.SnippetVersionVariable{
		ID:           cols.ID,
		VersionID:    cols.OwnerID,
		Position:     cols.Position,
		Key:          cols.Key,
		Label:        cols.Label,
		Type:         cols.Type,
		Placeholder:  cols.Placeholder,
		DefaultValue: cols.DefaultValue,
		Required:     cols.Required,
		Regex:        cols.Regex,
		Options:      cols.Options,
	}, nil
}

// UsageEntryFromRow converts a usage_log row.
func UsageEntryFromRow(row sqldb.UsageLog) snippet.UsageLogEntry {
	return snippet.UsageLogEntry{
		ID:           row.ID,
		SnippetID:    row.SnippetID,
		Timestamp:    row.Timestamp.UTC(),
		Source:       snippet.Source(optionalString(row.Source)),
		TargetApp:    optionalString(row.TargetApp),
		TargetDomain: optionalString(row.TargetDomain),
	}
}
