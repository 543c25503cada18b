// Package snippet provides the data types for snippets, their variables,
// version snapshots and usage log entries.
package snippet

import (
	"strings"
	"time"

	"github.com/aparetext/aparetext/internal/scope"
)

// DefaultCaretMarker is the cursor token used when a snippet does not set one.
const DefaultCaretMarker = "{{|}}"

// Type distinguishes text snippets from image snippets.
type Type string

const (
	TypeText  Type = "text"
	TypeImage Type = "image"
)

// VariableType is the input kind a client renders for a variable.
type VariableType string

const (
	VariableText     VariableType = "text"
	VariableEmail    VariableType = "email"
	VariableNumber   VariableType = "number"
	VariableSelect   VariableType = "select"
	VariableDate     VariableType = "date"
	VariableCheckbox VariableType = "checkbox"
)

// Source identifies the client that expanded a snippet.
type Source string

const (
	SourceDesktop   Source = "desktop"
	SourceExtension Source = "extension"
	SourceWeb       Source = "web"
)

// Variable is a named placeholder owned by a snippet or a version.
type Variable struct {
	ID           string       `json:"id" yaml:"id"`
	Key          string       `json:"key" yaml:"key"`
	Label        string       `json:"label,omitempty" yaml:"label,omitempty"`
	Type         VariableType `json:"type" yaml:"type"`
	Placeholder  string       `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	DefaultValue string       `json:"default_value,omitempty" yaml:"default_value,omitempty"`
	Required     bool         `json:"required" yaml:"required"`
	Regex        string       `json:"regex,omitempty" yaml:"regex,omitempty"`
	Options      []string     `json:"options,omitempty" yaml:"options,omitempty"`
}

// Content holds every field captured by a version snapshot.
type Content struct {
	Name         string          `json:"name" yaml:"name"`
	Abbreviation string          `json:"abbreviation,omitempty" yaml:"abbreviation,omitempty"`
	Type         Type            `json:"snippet_type" yaml:"snippet_type"`
	Tags         []string        `json:"tags" yaml:"tags"`
	Category     string          `json:"category,omitempty" yaml:"category,omitempty"`
	ContentText  string          `json:"content_text,omitempty" yaml:"content_text,omitempty"`
	ContentHTML  string          `json:"content_html,omitempty" yaml:"content_html,omitempty"`
	IsRich       bool            `json:"is_rich" yaml:"is_rich"`
	ImageData    string          `json:"image_data,omitempty" yaml:"image_data,omitempty"`
	Thumbnail    string          `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
	ScopeType    scope.ScopeType `json:"scope_type" yaml:"scope_type"`
	ScopeValues  []string        `json:"scope_values" yaml:"scope_values"`
	CaretMarker  string          `json:"caret_marker" yaml:"caret_marker"`
	Enabled      bool            `json:"enabled" yaml:"enabled"`
	Variables    []Variable      `json:"variables" yaml:"variables"`
}

// Snippet is a reusable content unit.
type Snippet struct {
	ID         string `json:"id" yaml:"id"`
	Content    `yaml:",inline"`
	UsageCount int64     `json:"usage_count" yaml:"usage_count"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
}

// Version is an immutable snapshot of a snippet.
type Version struct {
	ID            string `json:"id" yaml:"id"`
	SnippetID     string `json:"snippet_id" yaml:"snippet_id"`
	VersionNumber int64  `json:"version_number" yaml:"version_number"`
	Content       `yaml:",inline"`
	ChangeReason  string    `json:"change_reason,omitempty" yaml:"change_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
}

// UsageLogEntry records one expansion.
type UsageLogEntry struct {
	ID           int64     `json:"id"`
	SnippetID    string    `json:"snippet_id"`
	Timestamp    time.Time `json:"timestamp"`
	Source       Source    `json:"source,omitempty"`
	TargetApp    string    `json:"target_app,omitempty"`
	TargetDomain string    `json:"target_domain,omitempty"`
}

// New returns a snippet carrying the defaults of a freshly created one.
// Decoding a request into the result keeps the defaults for absent fields.
func New() Snippet {
	return Snippet{Content: Content{
		Type:        TypeText,
		Tags:        []string{},
		ScopeType:   scope.ScopeGlobal,
		ScopeValues: []string{},
		CaretMarker: DefaultCaretMarker,
		Enabled:     true,
		Variables:   []Variable{},
	}}
}

// Scope returns the activation scope of the content.
func (c Content) Scope() scope.Scope {
	return scope.Scope{Type: c.ScopeType, Values: c.ScopeValues}
}

// Body returns the text to expand: the HTML body for rich snippets,
// the plain body otherwise.
func (c Content) Body() string {
	if c.IsRich {
		return c.ContentHTML
	}
	return c.ContentText
}

// HasTag reports whether tag is one of the content's tags.
func (c Content) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Normalize fills empty enum fields with their defaults and trims tags.
func (c *Content) Normalize() {
	if c.Type == "" {
		c.Type = TypeText
	}
	if c.ScopeType == "" {
		c.ScopeType = scope.ScopeGlobal
	}
	if c.CaretMarker == "" {
		c.CaretMarker = DefaultCaretMarker
	}
	c.Tags = cleanTags(c.Tags)
	if c.ScopeValues == nil {
		c.ScopeValues = []string{}
	}
	if c.Variables == nil {
		c.Variables = []Variable{}
	}
	for i := range c.Variables {
		if c.Variables[i].Type == "" {
			c.Variables[i].Type = VariableText
		}
	}
}

// ParseTags splits a comma-separated tag string, dropping blanks.
func ParseTags(csv string) []string {
	if csv == "" {
		return []string{}
	}
	return cleanTags(strings.Split(csv, ","))
}

// JoinTags renders tags in their stored comma-separated form.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
