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
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/doctran/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the translation memory",
	Long: `List, inspect and clear the SQLite translation memory. Every translated
text is remembered per language pair and reused on later runs unless
--no-cache is given. Invalidated entries stay listed but are never reused.`,
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List translation memory entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, db *store.Store) error {
			entries, err := db.ListMemory(ctx)
			if err != nil {
				return fmt.Errorf("failed to list entries: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("Translation memory is empty.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPAIR\tSERVICE\tUSED\tLAST USED\tSTATE\tTEXT")
			for _, e := range entries {
				state := "active"
				if e.Invalidated {
					state = "invalid"
				}
				fmt.Fprintf(w, "%s\t%s->%s\t%s\t%d\t%s\t%s\t%s\n",
					e.ID, e.SourceLang, e.TargetLang, e.ServiceUsed, e.UsageCount,
					e.LastUsed.Format("2006-01-02 15:04"), state, snippet(e.SourceText, 40))
			}
			return w.Flush()
		})
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show translation memory statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, db *store.Store) error {
			stats, err := db.Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Entries:\t%d\n", stats.TotalEntries)
			fmt.Fprintf(w, "Active:\t%d\n", stats.ActiveEntries)
			fmt.Fprintf(w, "Invalid:\t%d\n", stats.InvalidEntries)
			fmt.Fprintf(w, "Reuses:\t%d\n", stats.TotalUsage)
			return w.Flush()
		})
	},
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate <id>...",
	Short: "Stop reusing translation memory entries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, db *store.Store) error {
			for _, id := range args {
				if err := db.InvalidateMemory(ctx, id); err != nil {
					return fmt.Errorf("failed to invalidate %s: %w", id, err)
				}
				fmt.Printf("Invalidated %s\n", id)
			}
			return nil
		})
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete translation memory entries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, db *store.Store) error {
			for _, id := range args {
				if err := db.DeleteMemory(ctx, id); err != nil {
					return fmt.Errorf("failed to delete %s: %w", id, err)
				}
				fmt.Printf("Deleted %s\n", id)
			}
			return nil
		})
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every translation memory entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, db *store.Store) error {
			n, err := db.ClearMemory(ctx)
			if err != nil {
				return fmt.Errorf("failed to clear translation memory: %w", err)
			}
			fmt.Printf("Removed %d entries.\n", n)
			return nil
		})
	},
}

// snippet shortens s to at most n runes for table output.
func snippet(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheListCmd, cacheStatsCmd, cacheInvalidateCmd, cacheDeleteCmd, cacheClearCmd)
}
