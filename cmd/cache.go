/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/peredoc/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the chunk translation memory",
	Long: `List, inspect, invalidate and clear the SQLite translation memory.

Entries are stored per chunk and scoped by provider and model, so a chunk
translated once is never sent to the same model again. Invalidate an entry
to have its chunk translated afresh on the next run.`,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List translation memory entries, most recently used first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, db *store.Store) error {
			entries, err := db.ListMemory(ctx)
			if err != nil {
				return fmt.Errorf("failed to list entries: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("Translation memory is empty.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPAIR\tSCOPE\tHITS\tLAST USED\tSTATUS\tCHUNK")
			for _, e := range entries {
				status := "active"
				if e.Invalidated {
					status = "invalid"
				}
				fmt.Fprintf(w, "%s\t%s→%s\t%s\t%d\t%s\t%s\t%s\n",
					e.ID, e.SourceLang, e.TargetLang, e.ServiceUsed, e.UsageCount,
					e.LastUsed.Format("2006-01-02 15:04"), status, preview(e.SourceText, 40))
			}
			return w.Flush()
		})
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show translation memory counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, db *store.Store) error {
			stats, err := db.Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', 0)
			fmt.Fprintf(w, "Chunks cached:\t%d\n", stats.TotalEntries)
			fmt.Fprintf(w, "Active:\t%d\n", stats.ActiveEntries)
			fmt.Fprintf(w, "Invalidated:\t%d\n", stats.InvalidEntries)
			fmt.Fprintf(w, "Cache hits:\t%d\n", stats.TotalUsage)
			return w.Flush()
		})
	},
}

// entryCommand builds a subcommand acting on one memory entry by ID.
func entryCommand(use, short, done string, act func(*store.Store, context.Context, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db *store.Store) error {
				if err := act(db, ctx, args[0]); err != nil {
					return fmt.Errorf("failed to %s entry: %w", use, err)
				}
				fmt.Printf("%s entry: %s\n", done, args[0])
				return nil
			})
		},
	}
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every entry from translation memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, db *store.Store) error {
			n, err := db.ClearMemory(ctx)
			if err != nil {
				return fmt.Errorf("failed to clear translation memory: %w", err)
			}
			fmt.Printf("Cleared %d entries from translation memory.\n", n)
			return nil
		})
	},
}

// preview flattens whitespace and shortens s to at most n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(entryCommand("delete", "Delete a translation memory entry by ID", "Deleted", (*store.Store).DeleteMemory))
	cacheCmd.AddCommand(entryCommand("invalidate", "Mark an entry invalid so its chunk is translated again", "Invalidated", (*store.Store).InvalidateMemory))
	cacheCmd.AddCommand(cacheClearCmd)
}
