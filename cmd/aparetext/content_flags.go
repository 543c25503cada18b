package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aparetext/aparetext/internal/scope"
	"github.com/aparetext/aparetext/internal/snippet"
	"github.com/aparetext/aparetext/internal/template"
)

// contentFlags are shared by add and edit. Edit applies only the flags the
// user set.
type contentFlags struct {
	name         string
	abbreviation string
	text         string
	file         string
	html         string
	htmlFile     string
	image        string
	tags         []string
	category     string
	scopeType    string
	apps         []string
	domains      []string
	vars         []string
	caret        string
	disabled     bool
}

func (f *contentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Snippet name")
	cmd.Flags().StringVarP(&f.abbreviation, "abbr", "a", "", "Abbreviation that triggers the expansion")
	cmd.Flags().StringVarP(&f.text, "content", "c", "", "Plain text template")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Read the plain text template from file")
	cmd.Flags().StringVar(&f.html, "html", "", "Rich HTML template (marks the snippet as rich)")
	cmd.Flags().StringVar(&f.htmlFile, "html-file", "", "Read the rich HTML template from file")
	cmd.Flags().StringVar(&f.image, "image", "", "Image file for an image snippet")
	cmd.Flags().StringSliceVarP(&f.tags, "tag", "t", nil, "Tag (repeatable or comma-separated)")
	cmd.Flags().StringVar(&f.category, "category", "", "Category")
	cmd.Flags().StringVar(&f.scopeType, "scope", "", "Scope type: global, apps, or domains")
	cmd.Flags().StringSliceVar(&f.apps, "app", nil, "Application the snippet is limited to (repeatable)")
	cmd.Flags().StringSliceVar(&f.domains, "domain", nil, "Web domain the snippet is limited to (repeatable)")
	cmd.Flags().StringArrayVar(&f.vars, "var", nil, "Variable as key[!][:type[:opt|opt]][=default] (repeatable; ! marks it required)")
	cmd.Flags().StringVar(&f.caret, "caret", "", "Cursor marker token")
	cmd.Flags().BoolVar(&f.disabled, "disabled", false, "Store the snippet disabled")
}

func changed(cmd *cobra.Command, names ...string) bool {
	for _, name := range names {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// apply copies the set flags onto c. With all set, every flag is applied,
// including unset ones carrying their zero value.
func (f *contentFlags) apply(cmd *cobra.Command, c *snippet.Content, all bool) error {
	set := func(names ...string) bool { return all || changed(cmd, names...) }

	if set("name") {
		c.Name = f.name
	}
	if set("abbr") {
		c.Abbreviation = f.abbreviation
	}
	if set("category") {
		c.Category = f.category
	}
	if set("tag") {
		c.Tags = snippet.ParseTags(strings.Join(f.tags, ","))
	}
	if set("caret") && f.caret != "" {
		c.CaretMarker = f.caret
	}
	if set("disabled") {
		c.Enabled = !f.disabled
	}

	if changed(cmd, "scope", "app", "domain") {
		sc, err := scope.ResolveScope(scope.ScopeOptions{Type: f.scopeType, Apps: f.apps, Domains: f.domains})
		if err != nil {
			return err
		}
		c.ScopeType = sc.Type
		c.ScopeValues = sc.Values
	}

	if changed(cmd, "content") {
		c.ContentText = f.text
	}
	if changed(cmd, "file") {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return err
		}
		c.ContentText = string(data)
	}
	if changed(cmd, "html") {
		c.ContentHTML = f.html
		c.IsRich = true
	}
	if changed(cmd, "html-file") {
		data, err := os.ReadFile(f.htmlFile)
		if err != nil {
			return err
		}
		c.ContentHTML = string(data)
		c.IsRich = true
	}
	if changed(cmd, "image") {
		dataURL, err := imageDataURL(f.image)
		if err != nil {
			return err
		}
		c.Type = snippet.TypeImage
		c.ImageData = dataURL
	}

	if changed(cmd, "var") {
		vars, err := parseVariables(f.vars)
		if err != nil {
			return err
		}
		c.Variables = vars
	}
	return nil
}

var contentFlagNames = []string{
	"name", "abbr", "content", "file", "html", "html-file", "image", "tag",
	"category", "scope", "app", "domain", "var", "caret", "disabled",
}

func (f *contentFlags) anySet(cmd *cobra.Command) bool {
	return changed(cmd, contentFlagNames...)
}

func (f *contentFlags) hasBody(cmd *cobra.Command) bool {
	return changed(cmd, "content", "file", "html", "html-file", "image")
}

// detectVariables declares a text variable for every placeholder in the
// body that is not declared yet.
func detectVariables(c *snippet.Content) {
	declared := make(map[string]struct{}, len(c.Variables))
	for _, v := range c.Variables {
		declared[v.Key] = struct{}{}
	}
	for _, key := range template.ExtractVariables(c.Body()) {
		if _, ok := declared[key]; ok {
			continue
		}
		c.Variables = append(c.Variables, snippet.Variable{Key: key, Type: snippet.VariableText})
	}
}

// parseVariables reads key[!][:type[:opt|opt]][=default] declarations.
func parseVariables(raws []string) ([]snippet.Variable, error) {
	vars := make([]snippet.Variable, 0, len(raws))
	for _, raw := range raws {
		decl, def, _ := strings.Cut(raw, "=")
		parts := strings.SplitN(decl, ":", 3)

		v := snippet.Variable{Key: strings.TrimSpace(parts[0]), Type: snippet.VariableText, DefaultValue: def}
		if strings.HasSuffix(v.Key, "!") {
			v.Key = strings.TrimSuffix(v.Key, "!")
			v.Required = true
		}
		if len(parts) > 1 && parts[1] != "" {
			v.Type = snippet.VariableType(strings.TrimSpace(parts[1]))
		}
		if len(parts) > 2 {
			for _, opt := range strings.Split(parts[2], "|") {
				if opt = strings.TrimSpace(opt); opt != "" {
					v.Options = append(v.Options, opt)
				}
			}
		}
		if err := v.Validate(); err != nil {
			return nil, fmt.Errorf("--var %q: %w", raw, err)
		}
		vars = append(vars, v)
	}
	return vars, nil
}

func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%s is not a recognised image file", path)
	}
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func readContent(cmd *cobra.Command) (string, error) {
	stat, err := os.Stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) != 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "Enter content (Ctrl-D when done):")
	}

	bytes, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
