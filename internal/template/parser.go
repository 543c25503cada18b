// Package template expands snippet templates: variables, the cursor marker,
// date/time/clipboard functions and escaped braces.
package template

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ncruces/go-strftime"
	"github.com/rs/xid"
)

// CursorMarker is the token marking where the caret lands after expansion.
const CursorMarker = "{{|}}"

const (
	defaultDateFormat = "%Y-%m-%d"
	defaultTimeFormat = "%H:%M:%S"
)

var (
	variablePattern = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_]*)\}\}`)
	cursorPattern   = regexp.MustCompile(`\{\{\|\}\}`)
	functionPattern = regexp.MustCompile(`\{\{(date|clipboard|time)(:[^}]+)?\}\}`)
	payloadPattern  = regexp.MustCompile(`\{\{([^}]+)\}\}`)
	identPattern    = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

var reserved = map[string]struct{}{
	"date":      {},
	"clipboard": {},
	"time":      {},
}

// ErrInvalidTemplate is wrapped by every error returned from Validate.
var ErrInvalidTemplate = errors.New("invalid template")

// Info summarises a template without expanding it.
type Info struct {
	Variables     []string `json:"variables"`
	HasCursor     bool     `json:"has_cursor"`
	FunctionsUsed []string `json:"functions_used"`
	IsValid       bool     `json:"is_valid"`
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock overrides the time source used by the date and time functions.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		p.now = now
	}
}

// Parser expands templates. The zero value is not usable; call NewParser.
type Parser struct {
	mu        sync.RWMutex
	clipboard *string
	now       func() time.Time
}

// NewParser creates a Parser with no clipboard value set.
func NewParser(opts ...Option) *Parser {
	p := &Parser{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetClipboard sets the value substituted for {{clipboard}}.
func (p *Parser) SetClipboard(value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clipboard = &value
}

// ClearClipboard unsets the clipboard value so {{clipboard}} is left as is.
func (p *Parser) ClearClipboard() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clipboard = nil
}

// ExtractVariables returns the unique variable names in first-occurrence
// order, excluding the reserved function names.
func ExtractVariables(tpl string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, m := range variablePattern.FindAllStringSubmatch(tpl, -1) {
		name := m[1]
		if _, ok := reserved[name]; ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// HasCursorMarker reports whether tpl contains the cursor marker.
func HasCursorMarker(tpl string) bool {
	return strings.Contains(tpl, CursorMarker)
}

// Parse expands tpl in four ordered passes: functions, variables, cursor
// removal (when removeCursor is set) and finally unescaping of \{{.
//
// Unescaping runs last, so the contents of an escaped token are still seen by
// the function and variable passes.
func (p *Parser) Parse(tpl string, values map[string]any, removeCursor bool) string {
	result := p.processFunctions(tpl)
	result = replaceVariables(result, values)
	if removeCursor {
		result = cursorPattern.ReplaceAllLiteralString(result, "")
	}
	return strings.ReplaceAll(result, `\{{`, "{{")
}

// ParseWithCursorPosition expands tpl and returns the character offset of
// the first cursor marker in the output, or -1 when there is none.
func (p *Parser) ParseWithCursorPosition(tpl string, values map[string]any) (string, int) {
	sentinel := "\x00cursor:" + xid.New().String() + "\x00"
	marked := cursorPattern.ReplaceAllLiteralString(tpl, sentinel)

	result := p.Parse(marked, values, false)

	idx := strings.Index(result, sentinel)
	if idx < 0 {
		return result, -1
	}
	pos := utf8.RuneCountInString(result[:idx])
	return strings.ReplaceAll(result, sentinel, ""), pos
}

// Validate checks brace balance and that every {{...}} payload is a known
// function, the cursor marker or a valid identifier. Only the first problem
// is reported.
func Validate(tpl string) error {
	opening := strings.Count(tpl, "{{")
	closing := strings.Count(tpl, "}}")
	if opening != closing {
		return fmt.Errorf("%w: unbalanced braces: %d opening, %d closing", ErrInvalidTemplate, opening, closing)
	}

	for _, m := range payloadPattern.FindAllStringSubmatch(tpl, -1) {
		payload := m[1]
		name, _, _ := strings.Cut(payload, ":")
		if _, ok := reserved[name]; ok {
			continue
		}
		if payload == "|" {
			continue
		}
		if !identPattern.MatchString(payload) {
			return fmt.Errorf("%w: invalid variable name: %s", ErrInvalidTemplate, payload)
		}
	}
	return nil
}

// GetInfo reports variables, cursor presence, functions used and validity.
func GetInfo(tpl string) Info {
	return Info{
		Variables:     ExtractVariables(tpl),
		HasCursor:     HasCursorMarker(tpl),
		FunctionsUsed: extractFunctions(tpl),
		IsValid:       Validate(tpl) == nil,
	}
}

func extractFunctions(tpl string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, m := range functionPattern.FindAllStringSubmatch(tpl, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

func (p *Parser) processFunctions(tpl string) string {
	return replaceSubmatches(functionPattern, tpl, func(groups []string) string {
		name, arg := groups[1], groups[2]
		switch name {
		case "date":
			return p.formatNow(groups[0], arg, defaultDateFormat)
		case "time":
			return p.formatNow(groups[0], arg, defaultTimeFormat)
		case "clipboard":
			p.mu.RLock()
			defer p.mu.RUnlock()
			if p.clipboard != nil {
				return *p.clipboard
			}
		}
		return groups[0]
	})
}

func (p *Parser) formatNow(token, arg, fallback string) string {
	layout := fallback
	if arg != "" {
		layout = strings.TrimLeft(arg, ":")
	}
	if !validFormat(layout) {
		return token
	}
	return strftime.Format(layout, p.now())
}

func replaceVariables(tpl string, values map[string]any) string {
	return replaceSubmatches(variablePattern, tpl, func(groups []string) string {
		name := groups[1]
		if _, ok := reserved[name]; ok {
			return groups[0]
		}
		value, ok := values[name]
		if !ok {
			return groups[0]
		}
		return stringify(value)
	})
}

// stringify renders a variable value. Booleans render as True/False.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(v)
	}
}

// replaceSubmatches is ReplaceAllStringFunc with access to capture groups.
// Unmatched optional groups are passed as empty strings.
func replaceSubmatches(re *regexp.Regexp, s string, fn func(groups []string) string) string {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	last := 0
	for _, loc := range matches {
		groups := make([]string, len(loc)/2)
		for i := range groups {
			if loc[2*i] >= 0 {
				groups[i] = s[loc[2*i]:loc[2*i+1]]
			}
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(fn(groups))
		last = loc[1]
	}
	b.WriteString(s[last:])
	return b.String()
}
