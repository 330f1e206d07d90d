package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"fidctail/internal/archive"
	"fidctail/internal/config"
	"fidctail/internal/sources"
)

const historyPayloadWidth = 80

type historyView struct {
	ID         int64           `json:"id"`
	SessionID  string          `json:"session_id"`
	Source     string          `json:"source"`
	Cursor     string          `json:"cursor,omitempty"`
	Page       uint64          `json:"page"`
	ReceivedAt time.Time       `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var source string
	var limit int
	var asJSON bool
	var pruneOlderThan time.Duration

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show entries recorded in the local archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if source != "" && !sources.Valid(source) {
				return fmt.Errorf("unknown source %q (run `fidctail sources` for the list)", source)
			}

			store, err := openHistoryArchive(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if pruneOlderThan > 0 {
				removed, err := store.Prune(cmd.Context(), time.Now().Add(-pruneOlderThan))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d archived entries older than %s\n", removed, pruneOlderThan)
				return nil
			}

			entries, err := store.Recent(cmd.Context(), source, limit)
			if err != nil {
				return err
			}
			if asJSON {
				views := make([]historyView, 0, len(entries))
				for _, e := range entries {
					views = append(views, historyView{
						ID:         e.ID,
						SessionID:  e.SessionID,
						Source:     e.Source,
						Cursor:     e.Cursor,
						Page:       e.Page,
						ReceivedAt: e.ReceivedAt,
						Payload:    e.Payload,
					})
				}
				return writeJSON(cmd, views)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No archived entries")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.ReceivedAt.Local().Format("2006-01-02 15:04:05"),
					e.Source,
					strconv.FormatUint(e.Page, 10),
					summarizePayload(e.Payload, historyPayloadWidth),
				})
			}
			fmt.Fprintln(out, renderTable([]tableColumn{
				{header: "Received"},
				{header: "Source"},
				{header: "Page", align: alignRight},
				{header: "Payload"},
			}, rows))
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Only show entries from this source")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().DurationVar(&pruneOlderThan, "prune-older-than", 0, "Delete archived entries older than this age instead of listing")
	return cmd
}

func openHistoryArchive(cfg *config.Config) (*archive.Store, error) {
	if !cfg.Archive.Enabled {
		if _, err := os.Stat(cfg.Archive.Path); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("archive is disabled and %s does not exist; set [archive] enabled = true and run `fidctail tail`", cfg.Archive.Path)
		}
	}
	store, err := archive.Open(cfg.Archive.Path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return store, nil
}

// summarizePayload compacts payload onto one line and truncates it to width
// runes.
func summarizePayload(payload json.RawMessage, width int) string {
	var buf bytes.Buffer
	line := string(payload)
	if err := json.Compact(&buf, payload); err == nil {
		line = buf.String()
	}
	runes := []rune(line)
	if width > 1 && len(runes) > width {
		return string(runes[:width-1]) + "…"
	}
	return line
}
