package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aparetext/aparetext/internal/services"
	"github.com/aparetext/aparetext/internal/snippet"
)

// resolveSnippet finds a snippet by full id, abbreviation or unique id
// prefix, in that order.
func resolveSnippet(ctx context.Context, svc *services.SnippetService, ref string) (*snippet.Snippet, error) {
	found, err := svc.Get(ctx, ref)
	if err != nil || found != nil {
		return found, err
	}
	found, err = svc.GetByAbbreviation(ctx, ref)
	if err != nil || found != nil {
		return found, err
	}

	all, err := svc.ListAll(ctx, false)
	if err != nil {
		return nil, err
	}
	var matches []snippet.Snippet
	for _, s := range all {
		if strings.HasPrefix(s.ID, ref) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("snippet not found: %s", ref)
	case 1:
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous snippet id prefix %q matches %d snippets", ref, len(matches))
	}
}
