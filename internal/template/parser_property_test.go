//go:build property
// +build property

package template

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestParserProperties checks invariants of the expansion pipeline.
func TestParserProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	ident := gen.RegexMatch(`^[a-z_][a-z0-9_]{0,8}$`)
	text := gen.RegexMatch(`^[a-zA-Z0-9 .,]{0,20}$`)

	properties.Property("extracted variables are unique and never reserved", prop.ForAll(
		func(names []string) bool {
			var b strings.Builder
			for i, n := range names {
				b.WriteString("{{" + n + "}}")
				if i%3 == 0 {
					b.WriteString("{{date}}{{time}}{{clipboard}}")
				}
			}
			seen := map[string]bool{}
			for _, v := range ExtractVariables(b.String()) {
				if seen[v] {
					return false
				}
				if _, ok := reserved[v]; ok {
					return false
				}
				seen[v] = true
			}
			return true
		},
		gen.SliceOf(ident),
	))

	properties.Property("cursor position splits the output", prop.ForAll(
		func(before, after string) bool {
			p := NewParser()
			out, pos := p.ParseWithCursorPosition(before+CursorMarker+after, nil)
			runes := []rune(out)
			return out == before+after && pos == len([]rune(before)) && string(runes[:pos]) == before
		},
		text, text,
	))

	properties.Property("templates without braces are unchanged", prop.ForAll(
		func(s string) bool {
			p := NewParser()
			return p.Parse(s, map[string]any{"x": "y"}, true) == s && Validate(s) == nil
		},
		text,
	))

	properties.Property("identifier tokens validate", prop.ForAll(
		func(name string) bool {
			return Validate("{{"+name+"}}") == nil
		},
		ident,
	))

	properties.Property("substituted variables leave no token behind", prop.ForAll(
		func(name, value string) bool {
			if _, ok := reserved[name]; ok {
				return true
			}
			p := NewParser()
			return p.Parse("<{{"+name+"}}>", map[string]any{name: value}, false) == "<"+value+">"
		},
		ident, text,
	))

	properties.TestingRun(t)
}
