package snippet

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aparetext/aparetext/internal/scope"
)

const (
	maxNameLength         = 200
	maxAbbreviationLength = 50
	maxVariableKeyLength  = 50
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid snippet")

var variableKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_]*[A-Za-z0-9][A-Za-z0-9_]*$`)

// ValidationError reports the field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Validate checks the content invariants. It returns the first failure.
func (c Content) Validate() error {
	if n := utf8.RuneCountInString(c.Name); n == 0 || n > maxNameLength {
		return invalid("name", "must be between 1 and %d characters", maxNameLength)
	}
	if utf8.RuneCountInString(c.Abbreviation) > maxAbbreviationLength {
		return invalid("abbreviation", "must be at most %d characters", maxAbbreviationLength)
	}
	if strings.IndexFunc(c.Abbreviation, unicode.IsSpace) >= 0 {
		return invalid("abbreviation", "cannot contain spaces")
	}

	switch c.Type {
	case TypeText:
		if c.ContentText == "" && c.ContentHTML == "" {
			return invalid("content_text", "text snippets must have either content_text or content_html")
		}
	case TypeImage:
		if c.ImageData == "" {
			return invalid("image_data", "image snippets require image data")
		}
		if !strings.HasPrefix(c.ImageData, "data:image/") {
			return invalid("image_data", "image data must be a data:image/ URL")
		}
	default:
		return invalid("snippet_type", "unknown snippet type %q", c.Type)
	}

	if _, err := scope.ParseType(string(c.ScopeType)); err != nil || c.ScopeType == "" {
		return invalid("scope_type", "unknown scope type %q", c.ScopeType)
	}
	if err := scope.Validate(c.Scope()); err != nil {
		return invalid("scope_values", "%s", err.Error())
	}

	seen := make(map[string]struct{}, len(c.Variables))
	for _, v := range c.Variables {
		if err := v.Validate(); err != nil {
			return err
		}
		if _, dup := seen[v.Key]; dup {
			return invalid("variables", "duplicate variable key %q", v.Key)
		}
		seen[v.Key] = struct{}{}
	}
	return nil
}

// Validate checks the variable invariants.
func (v Variable) Validate() error {
	if n := utf8.RuneCountInString(v.Key); n == 0 || n > maxVariableKeyLength {
		return invalid("variables.key", "must be between 1 and %d characters", maxVariableKeyLength)
	}
	if !variableKeyPattern.MatchString(v.Key) {
		return invalid("variables.key", "key %q must be alphanumeric with underscores only", v.Key)
	}

	switch v.Type {
	case VariableText, VariableEmail, VariableNumber, VariableDate, VariableCheckbox:
	case VariableSelect:
		if len(v.Options) == 0 {
			return invalid("variables.options", "options are required when type is 'select' (key %q)", v.Key)
		}
	default:
		return invalid("variables.type", "unknown variable type %q", v.Type)
	}

	if v.Regex != "" {
		if _, err := regexp.Compile(v.Regex); err != nil {
			return invalid("variables.regex", "invalid regex pattern: %s", v.Regex)
		}
	}
	return nil
}

// ParseSource validates a usage source. An empty source is allowed.
func ParseSource(value string) (Source, error) {
	switch s := Source(value); s {
	case "", SourceDesktop, SourceExtension, SourceWeb:
		return s, nil
	default:
		return "", invalid("source", "unknown source %q (valid values: desktop, extension, web)", value)
	}
}
