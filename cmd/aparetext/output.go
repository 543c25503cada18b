package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/aparetext/aparetext/internal/scope"
	"github.com/aparetext/aparetext/internal/snippet"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

func checkFormat(format string) error {
	switch format {
	case formatTable, formatJSON:
		return nil
	default:
		return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
	}
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func getTerminalWidth() int {
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// wrapString wraps s to maxWidth display columns, accounting for wide runes.
func wrapString(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return s
	}

	s = strings.TrimSpace(s)
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}

	var result strings.Builder
	var currentLine strings.Builder
	currentWidth := 0

	for _, r := range s {
		charWidth := runewidth.RuneWidth(r)
		if currentWidth+charWidth > maxWidth && currentWidth > 0 {
			result.WriteString(currentLine.String())
			result.WriteString("\n")
			currentLine.Reset()
			currentWidth = 0
		}
		currentLine.WriteRune(r)
		currentWidth += charWidth
	}
	if currentLine.Len() > 0 {
		result.WriteString(currentLine.String())
	}

	return result.String()
}

// preview flattens content to a single line for table cells.
func preview(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return runewidth.Truncate(s, width, "...")
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

// snippetColumnWidths splits the terminal between the name and preview
// columns. Abbreviation, scope and usage are sized from the data.
func snippetColumnWidths(termWidth int, snippets []snippet.Snippet) (name, body int) {
	const fixed = 6 * 3
	abbrWidth, scopeWidth := 6, 5
	for _, s := range snippets {
		abbrWidth = max(abbrWidth, runewidth.StringWidth(s.Abbreviation))
		scopeWidth = max(scopeWidth, runewidth.StringWidth(scope.FormatScope(s.Scope())))
	}
	available := termWidth - fixed - min(abbrWidth, 20) - min(scopeWidth, 30) - 5 - 8
	name = max(available*2/5, 10)
	body = max(available-name, 15)
	return name, body
}

func outputSnippetTable(w io.Writer, snippets []snippet.Snippet) {
	t := newTable(w)
	nameWidth, bodyWidth := snippetColumnWidths(getTerminalWidth(), snippets)

	t.AppendHeader(table.Row{"ID", "Abbr", "Name", "Scope", "Uses", "Content"})
	for _, s := range snippets {
		name := s.Name
		if !s.Enabled {
			name += " (disabled)"
		}
		t.AppendRow(table.Row{
			shortID(s.ID),
			wrapString(s.Abbreviation, 20),
			wrapString(name, nameWidth),
			runewidth.Truncate(scope.FormatScope(s.Scope()), 30, "..."),
			s.UsageCount,
			preview(s.Body(), bodyWidth),
		})
	}
	t.Render()
}

// shortID keeps table rows narrow; JSON output always carries full ids.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
