package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aparetext/aparetext/internal/database"
	sqldb "github.com/aparetext/aparetext/internal/database/sqlc"
	"github.com/aparetext/aparetext/internal/snippet"
)

// ExportVersion is the envelope version written by Export.
const ExportVersion = "1.0.0"

// ErrInvalidExport is returned when an import document lacks the envelope.
var ErrInvalidExport = errors.New("invalid export file format")

// Format is a serialization format for export files.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name. An empty name means JSON.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q (valid values: json, yaml)", name)
	}
}

// FormatFromPath picks the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ExportData is a full snapshot of the snippets, without versions or logs.
type ExportData struct {
	Version    string            `json:"version" yaml:"version"`
	ExportedAt time.Time         `json:"exported_at" yaml:"exported_at"`
	Snippets   []snippet.Snippet `json:"snippets" yaml:"snippets"`
}

// ImportResult counts the outcome of an import.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Export returns every snippet with its variables.
func (s *SnippetService) Export(ctx context.Context) (*ExportData, error) {
	all, err := s.ListAll(ctx, false)
	if err != nil {
		return nil, err
	}
	return &ExportData{
		Version:    ExportVersion,
		ExportedAt: s.now().UTC(),
		Snippets:   all,
	}, nil
}

// Import stores the snippets of data in one transaction. Records whose id
// already exists are skipped. With replace, existing snippets sharing an
// abbreviation with an incoming record are deleted first. Every record is
// validated before anything is written.
func (s *SnippetService) Import(ctx context.Context, data *ExportData, replace bool) (ImportResult, error) {
	if data == nil || data.Version == "" {
		return ImportResult{}, ErrInvalidExport
	}

	now := s.now().UTC()
	records := make([]snippet.Snippet, 0, len(data.Snippets))
	for i, record := range data.Snippets {
		record.Normalize()
		if err := record.Validate(); err != nil {
			return ImportResult{}, fmt.Errorf("snippet %d (%s): %w", i, record.Name, err)
		}
		if record.ID == "" {
			record.ID = s.newID()
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		if record.UpdatedAt.IsZero() {
			record.UpdatedAt = record.CreatedAt
		}
		records = append(records, record)
	}

	var result ImportResult
	err := s.withTx(ctx, func(txCtx context.Context, q *sqldb.Queries) error {
		if replace {
			if err := deleteByAbbreviation(txCtx, q, records); err != nil {
				return err
			}
		}
		for _, record := range records {
			exists, err := q.SnippetExists(txCtx, record.ID)
			if err != nil {
				return err
			}
			if exists {
				result.Skipped++
				continue
			}
			if err := s.insert(txCtx, q, record); err != nil {
				return fmt.Errorf("failed to import snippet %s: %w", record.ID, err)
			}
			result.Imported++
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	s.logger.Info("snippets imported", "imported", result.Imported, "skipped", result.Skipped, "replace", replace)
	return result, nil
}

func deleteByAbbreviation(ctx context.Context, q *sqldb.Queries, records []snippet.Snippet) error {
	for _, record := range records {
		if record.Abbreviation == "" {
			continue
		}
		ids, err := q.ListSnippetIDsByAbbreviation(ctx, record.Abbreviation)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := deleteSnippet(ctx, q, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteExport encodes data to w.
func WriteExport(w io.Writer, data *ExportData, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return err
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(data)
	}
}

// ReadExport decodes an export document. Fields absent from a snippet
// record take the defaults of a new snippet.
func ReadExport(r io.Reader, format Format) (*ExportData, error) {
	switch format {
	case FormatYAML:
		return readYAMLExport(r)
	default:
		return readJSONExport(r)
	}
}

func readJSONExport(r io.Reader) (*ExportData, error) {
	var raw struct {
		Version    string            `json:"version"`
		ExportedAt time.Time         `json:"exported_at"`
		Snippets   []json.RawMessage `json:"snippets"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	if raw.Version == "" || raw.Snippets == nil {
		return nil, ErrInvalidExport
	}

	data := &ExportData{Version: raw.Version, ExportedAt: raw.ExportedAt}
	for i, item := range raw.Snippets {
		record := snippet.New()
		if err := json.Unmarshal(item, &record); err != nil {
			return nil, fmt.Errorf("failed to decode snippet %d: %w", i, err)
		}
		data.Snippets = append(data.Snippets, record)
	}
	return data, nil
}

func readYAMLExport(r io.Reader) (*ExportData, error) {
	var raw struct {
		Version    string      `yaml:"version"`
		ExportedAt time.Time   `yaml:"exported_at"`
		Snippets   []yaml.Node `yaml:"snippets"`
	}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	if raw.Version == "" || raw.Snippets == nil {
		return nil, ErrInvalidExport
	}

	data := &ExportData{Version: raw.Version, ExportedAt: raw.ExportedAt}
	for i := range raw.Snippets {
		record := snippet.New()
		if err := raw.Snippets[i].Decode(&record); err != nil {
			return nil, fmt.Errorf("failed to decode snippet %d: %w", i, err)
		}
		data.Snippets = append(data.Snippets, record)
	}
	return data, nil
}

// SeedExamples stores the onboarding snippets when the store is empty and
// returns how many were created.
func (s *SnippetService) SeedExamples(ctx context.Context) (int, error) {
	total, _, err := database.NewSnippetRepository(s.ctx).Counts(ctx)
	if err != nil {
		return 0, err
	}
	if total > 0 {
		return 0, nil
	}

	for i, example := range exampleSnippets() {
		if _, err := s.Create(ctx, example); err != nil {
			return i, fmt.Errorf("failed to seed %s: %w", example.Abbreviation, err)
		}
	}
	return len(exampleSnippets()), nil
}
