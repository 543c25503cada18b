package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/aparetext/aparetext/internal/backup"
	"github.com/aparetext/aparetext/internal/database"
)

func newBackupCmd() *cobra.Command {
	var (
		output string
		keep   int
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up the database",
		Long:  "Write a consistent copy of the database with a SHA-256 checksum file next to it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd, func(ctx context.Context, dbCtx *database.Context) error {
				info, err := backup.Create(ctx, dbCtx, output)
				if err != nil {
					return err
				}
				logger.Info("backup created", "path", info.Path, "size", info.Size)
				fmt.Fprintln(cmd.OutOrStdout(), info.Path)

				if cmd.Flags().Changed("keep") && output == "" {
					removed, err := backup.Prune("", keep)
					if err != nil {
						return err
					}
					if removed > 0 {
						fmt.Fprintf(cmd.ErrOrStderr(), "Removed %d old backups\n", removed)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Backup file (default in the data directory)")
	cmd.Flags().IntVar(&keep, "keep", 0, "After backing up, keep only this many backups in the data directory")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List backups in the data directory, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backups, err := backup.List("")
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No backups found")
				return nil
			}
			t := newTable(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Path", "Size", "Created", "SHA-256"})
			for _, b := range backups {
				hash := b.Hash
				if len(hash) > 12 {
					hash = hash[:12]
				}
				t.AppendRow(table.Row{b.Path, humanize.Bytes(uint64(b.Size)), b.CreatedAt.Local().Format(time.DateTime), hash})
			}
			t.Render()
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "verify <file>",
		Short: "Check a backup against its checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := backup.Verify(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", backup.ErrChecksumMismatch, args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore <file>",
		Short: "Replace the database with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			dbCtx, err := backup.Restore(ctx, args[0], cfg.Database.Path)
			if err != nil {
				return err
			}
			defer func() {
				_ = database.CloseDatabase(dbCtx)
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", dbCtx.Path, args[0])
			return nil
		},
	})

	return cmd
}
