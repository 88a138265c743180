package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"cadbridge/internal/config"
	"cadbridge/internal/storage"
)

func newHistoryCmd(configPath *string) *cobra.Command {
	var (
		limit   int
		session string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent tool calls from the journal",
		Example: `  cadbridge history --limit 20
  cadbridge history --session 3f0c9a4e-...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return errors.New("the journal is disabled in the config")
			}

			ctx := cmd.Context()
			db, err := storage.Open(ctx, cfg.Journal.Driver, cfg.Journal.DSN)
			if err != nil {
				return err
			}
			defer db.Close()
			store := storage.NewJournalStore(db)

			var entries []storage.Entry
			if session != "" {
				entries, err = store.BySession(ctx, session, limit)
			} else {
				entries, err = store.Recent(ctx, limit)
			}
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tTOOL\tDURATION\tSTATUS\tSESSION")
			for _, e := range entries {
				status := "ok"
				if e.Failed() {
					status = "error: " + e.Error
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.StartedAt.Local().Format(time.DateTime), e.Tool,
					e.Duration().Round(time.Millisecond), status, shortID(e.SessionID))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show")
	cmd.Flags().StringVar(&session, "session", "", "only entries of this sketch session, oldest first")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
