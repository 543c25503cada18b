package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/services"
	"github.com/aparetext/aparetext/internal/snippet"
	"github.com/aparetext/aparetext/internal/template"
	"github.com/aparetext/aparetext/internal/usecase"
)

func newExpandCmd() *cobra.Command {
	var (
		vars   []string
		app    string
		domain string
		source string
		format string
		ask    bool
	)

	cmd := &cobra.Command{
		Use:   "expand <abbreviation>",
		Short: "Expand a snippet and print the result",
		Long: `Expand the enabled snippet with the given abbreviation. Variables without a
--var value take their declared default; with --ask, missing values are read
from the terminal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != formatJSON {
				return fmt.Errorf("invalid format: %s (valid values: text, json)", format)
			}
			values, err := parseAssignments(vars)
			if err != nil {
				return err
			}
			src, err := snippet.ParseSource(source)
			if err != nil {
				return err
			}

			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				svc := services.NewSnippetService(dbCtx)
				target, err := svc.GetByAbbreviation(ctx, args[0])
				if err != nil {
					return err
				}
				if target != nil {
					if err := fillValues(cmd, target.Variables, values, ask); err != nil {
						return err
					}
				}

				expander := usecase.NewExpander(dbCtx, template.NewParser(), services.WithLogger(logger))
				result, err := expander.Expand(ctx, args[0], usecase.ExpandInput{
					Values:       values,
					Source:       src,
					TargetApp:    app,
					TargetDomain: domain,
				})
				if err != nil {
					return err
				}

				if format == formatJSON {
					return outputJSON(cmd.OutOrStdout(), result)
				}
				fmt.Fprint(cmd.OutOrStdout(), result.Content)
				if term.IsTerminal(int(os.Stdout.Fd())) {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				return nil
			})
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "Variable value as key=value (repeatable)")
	cmd.Flags().StringVar(&app, "app", "", "Target application, checked against the snippet scope")
	cmd.Flags().StringVar(&domain, "domain", "", "Target web domain, checked against the snippet scope")
	cmd.Flags().StringVar(&source, "source", string(snippet.SourceDesktop), "Usage source: desktop, extension, or web")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&ask, "ask", false, "Prompt for variables without a value")

	return cmd
}

func parseAssignments(raws []string) (map[string]any, error) {
	values := make(map[string]any, len(raws))
	for _, raw := range raws {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid --var %q (expected key=value)", raw)
		}
		values[strings.TrimSpace(key)] = value
	}
	return values, nil
}

func fillValues(cmd *cobra.Command, vars []snippet.Variable, values map[string]any, ask bool) error {
	var reader *bufio.Reader
	for _, v := range vars {
		if _, ok := values[v.Key]; ok {
			continue
		}
		if !ask {
			if v.DefaultValue != "" {
				values[v.Key] = v.DefaultValue
			}
			continue
		}

		if reader == nil {
			reader = bufio.NewReader(os.Stdin)
		}
		label := v.Label
		if label == "" {
			label = v.Key
		}
		prompt := label
		if len(v.Options) > 0 {
			prompt += " [" + strings.Join(v.Options, "/") + "]"
		}
		if v.DefaultValue != "" {
			prompt += " (" + v.DefaultValue + ")"
		}
		fmt.Fprint(cmd.ErrOrStderr(), prompt+": ")

		answer, err := reader.ReadString('\n')
		if err != nil && answer == "" {
			return err
		}
		answer = strings.TrimRight(answer, "\r\n")
		if answer == "" {
			answer = v.DefaultValue
		}
		if answer == "" && v.Required {
			return fmt.Errorf("variable %s is required", v.Key)
		}
		values[v.Key] = answer
	}
	return nil
}
