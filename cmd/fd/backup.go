package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alfredjeanlab/formdesk/internal/config"
	"github.com/alfredjeanlab/formdesk/internal/store"
	formsync "github.com/alfredjeanlab/formdesk/internal/sync"
	"github.com/spf13/cobra"
)

// Backup commands open the configured store directly, like the server.
var backupCmd = &cobra.Command{
	Use:     "backup",
	Short:   "Export and import form definitions as JSONL",
	GroupID: "system",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var backupExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every form to a JSONL file or stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, st store.Store) error {
			out := cmd.OutOrStdout()
			if path, _ := cmd.Flags().GetString("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return formsync.ExportJSONL(ctx, st, out)
		})
	},
}

var backupImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Restore forms from a JSONL export (- reads stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		return withStore(func(ctx context.Context, st store.Store) error {
			n, err := formsync.ImportJSONL(ctx, st, in, actor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d forms\n", n)
			return nil
		})
	},
}

var backupPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Export once to the configured S3 destination",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		return withStore(func(ctx context.Context, st store.Store) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			dests := syncDestinations(ctx, cfg, logger)
			if len(dests) == 0 {
				return fmt.Errorf("no export destination configured (set FORMDESK_SYNC_S3_BUCKET)")
			}
			return formsync.NewScheduler(st, dests, 0, logger).SyncNow(ctx)
		})
	},
}

func withStore(fn func(ctx context.Context, st store.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(context.Background(), st)
}

func init() {
	backupExportCmd.Flags().StringP("output", "o", "", "file to write (default stdout)")
	backupCmd.AddCommand(backupExportCmd, backupImportCmd, backupPushCmd)
}
