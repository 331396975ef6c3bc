package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/diogo/grok-ask/internal/history"
	"github.com/diogo/grok-ask/pkg/client"
	"github.com/diogo/grok-ask/pkg/models"
)

const defaultHistoryCount = 20

func newHistoryCmd(a *app) *cobra.Command {
	var count int

	list := func(cmd *cobra.Command, args []string) error {
		entries, err := history.NewReader(a.cfg.HistoryFile).ReadAll()
		if err != nil {
			return a.fail(fmt.Errorf("failed to read history: %w", err))
		}
		if len(entries) == 0 {
			a.render.RenderInfo("No history entries")
			return nil
		}

		start := 0
		if count > 0 && len(entries) > count {
			start = len(entries) - count
		}

		a.render.RenderTitle("Recent Queries")
		for i := start; i < len(entries); i++ {
			a.printEntrySummary(i+1, entries[i])
		}
		return nil
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "View query history",
		Long:  `View and manage your query history.`,
		RunE:  list,
	}
	historyCmd.PersistentFlags().IntVarP(&count, "limit", "n", defaultHistoryCount, "Number of entries to show (0 for all)")

	historyCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recent queries",
		RunE:  list,
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "search <text>",
		Short: "Search history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := history.NewReader(a.cfg.HistoryFile).Search(args[0])
			if err != nil {
				return a.fail(fmt.Errorf("failed to search history: %w", err))
			}
			if len(entries) == 0 {
				a.render.RenderInfo("No matching entries found")
				return nil
			}

			a.render.RenderTitle(fmt.Sprintf("Search Results: %d matches", len(entries)))
			for i, entry := range entries {
				a.printEntrySummary(i+1, entry)
			}
			return nil
		},
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "show <index|id>",
		Short: "Show details of a history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := a.lookupEntry(args[0])
			if err != nil {
				return a.fail(err)
			}

			a.render.RenderTitle("History Entry")
			a.render.RenderKeyValue("ID", entry.ID, 11)
			a.render.RenderKeyValue("Timestamp", entry.Timestamp.Format("2006-01-02 15:04:05"), 11)
			a.render.RenderKeyValue("Query", entry.Query, 11)
			a.render.RenderKeyValue("Mode", entry.Mode, 11)
			if entry.Model != "" {
				a.render.RenderKeyValue("Model", entry.Model, 11)
			}
			if entry.Status != "" {
				a.render.RenderKeyValue("Status", entry.Status, 11)
			}
			if entry.ResponseID != "" {
				a.render.RenderKeyValue("Response ID", entry.ResponseID, 11)
			}
			if entry.Response != "" {
				a.render.NewLine()
				return a.render.RenderMarkdown(entry.Response)
			}
			return nil
		},
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Clear all history",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := history.NewReader(a.cfg.HistoryFile).Clear(); err != nil {
				return a.fail(fmt.Errorf("failed to clear history: %w", err))
			}
			a.render.RenderSuccess("History cleared")
			return nil
		},
	})

	return historyCmd
}

// lookupEntry resolves a 1-based index or an entry id prefix.
func (a *app) lookupEntry(ref string) (models.HistoryEntry, error) {
	reader := history.NewReader(a.cfg.HistoryFile)

	if idx, err := strconv.Atoi(ref); err == nil {
		entries, err := reader.ReadAll()
		if err != nil {
			return models.HistoryEntry{}, fmt.Errorf("failed to read history: %w", err)
		}
		if idx < 1 || idx > len(entries) {
			return models.HistoryEntry{}, &client.ClientError{
				Kind:   client.KindInvalidRequest,
				Detail: fmt.Sprintf("index out of range: %d (entries: %d)", idx, len(entries)),
			}
		}
		return entries[idx-1], nil
	}

	entry, err := reader.Find(ref)
	if errors.Is(err, history.ErrNotFound) {
		return entry, &client.ClientError{Kind: client.KindInvalidRequest, Detail: fmt.Sprintf("no history entry matches %q", ref), Err: err}
	}
	return entry, err
}

func (a *app) printEntrySummary(n int, entry models.HistoryEntry) {
	out := a.render.Out()
	fmt.Fprintf(out, "[%d] %s\n", n, entry.Timestamp.Format("2006-01-02 15:04"))
	fmt.Fprintf(out, "    %s\n", history.Truncate(entry.Query, 100))
	if entry.Mode != "" {
		fmt.Fprintf(out, "    Mode: %s", entry.Mode)
		if entry.ResponseID != "" {
			fmt.Fprintf(out, ", Response: %s", entry.ResponseID)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out)
}
