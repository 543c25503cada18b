package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aparetext/aparetext/internal/database"
	"github.com/aparetext/aparetext/internal/services"
	"github.com/aparetext/aparetext/internal/snippet"
)

func newEditCmd() *cobra.Command {
	var (
		flags  contentFlags
		reason string
		enable bool
	)

	cmd := &cobra.Command{
		Use:   "edit <id|abbreviation>",
		Short: "Update a snippet",
		Long: `Update a snippet. Every update stores the previous state as a new version.
Without content flags the template is opened in $EDITOR.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				svc := services.NewSnippetService(dbCtx, services.WithLogger(logger))
				current, err := resolveSnippet(ctx, svc, args[0])
				if err != nil {
					return err
				}

				next := current.Content
				if err := flags.apply(cmd, &next, false); err != nil {
					return err
				}
				if cmd.Flags().Changed("enable") {
					next.Enabled = enable
				}

				if !flags.anySet(cmd) && !cmd.Flags().Changed("enable") {
					body, changed, err := editInEditor(cmd, next.Body())
					if err != nil {
						return err
					}
					if !changed {
						fmt.Fprintln(cmd.OutOrStdout(), "No changes made")
						return nil
					}
					setBody(&next, body)
				}
				if flags.hasBody(cmd) && !cmd.Flags().Changed("var") {
					detectVariables(&next)
				}

				updated, err := svc.Update(ctx, current.ID, next, reason)
				if err != nil {
					return err
				}
				if updated == nil {
					return fmt.Errorf("snippet not found: %s", current.ID)
				}

				fmt.Fprintln(cmd.OutOrStdout(), "Snippet updated")
				return nil
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Change reason stored with the previous version")
	cmd.Flags().BoolVar(&enable, "enable", false, "Enable (or with --enable=false, disable) the snippet")

	return cmd
}

func setBody(c *snippet.Content, body string) {
	if c.IsRich {
		c.ContentHTML = body
		return
	}
	c.ContentText = body
}

// editInEditor opens body in $EDITOR and reports whether it changed.
func editInEditor(cmd *cobra.Command, body string) (string, bool, error) {
	tempDir, err := os.MkdirTemp("", "aparetext-edit-")
	if err != nil {
		return "", false, err
	}
	defer os.RemoveAll(tempDir)

	tempFile := filepath.Join(tempDir, "snippet.txt")
	if err := os.WriteFile(tempFile, []byte(body), 0600); err != nil {
		return "", false, err
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, tempFile)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = cmd.OutOrStdout()
	editorCmd.Stderr = cmd.ErrOrStderr()
	if err := editorCmd.Run(); err != nil {
		return "", false, fmt.Errorf("editor exited with error: %w", err)
	}

	edited, err := os.ReadFile(tempFile)
	if err != nil {
		return "", false, err
	}
	return string(edited), sha256.Sum256(edited) != sha256.Sum256([]byte(body)), nil
}
