package sqldb

import (
	"database/sql"
	"time"
)

type Snippet struct {
	ID           string
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
	UsageCount   int64
	Enabled      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type SnippetVariable struct {
	ID           string
	SnippetID    string
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

type SnippetVersion struct {
	ID            string
	SnippetID     string
	VersionNumber int64
	Name          string
	Abbreviation  sql.NullString
	SnippetType   string
	Tags          sql.NullString
	Category      sql.NullString
	ContentText   sql.NullString
	ContentHtml   sql.NullString
	IsRich        int64
	ImageData     sql.NullString
	Thumbnail     sql.NullString
	ScopeType     string
	ScopeValues   sql.NullString
	CaretMarker   string
	Enabled       int64
	ChangeReason  sql.NullString
	CreatedAt     time.Time
}

type SnippetVersionVariable struct {
	ID           string
	VersionID    string
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

type UsageLog struct {
	ID           int64
	SnippetID    string
	Timestamp    time.Time
	Source       sql.NullString
	TargetApp    sql.NullString
	TargetDomain sql.NullString
}

type Setting struct {
	Key   string
	Value sql.NullString
}
