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

	"github.com/valpere/peredoc/internal/orchestrator"
	"github.com/valpere/peredoc/internal/store"
)

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "Inspect the batch log",
	Long:  `List translation batches and show the per-file results recorded for each.`,
}

var batchesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List batches, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, db *store.Store) error {
			batches, err := db.ListBatches(ctx)
			if err != nil {
				return fmt.Errorf("failed to list batches: %w", err)
			}
			if len(batches) == 0 {
				fmt.Println("No batches recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tPAIR\tPROVIDER\tCREATED")
			for _, b := range batches {
				fmt.Fprintf(w, "%s\t%s\t%s→%s\t%s\t%s\n",
					b.ID, b.Label, b.SourceLang, b.TargetLang, b.Provider,
					b.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		})
	},
}

var batchesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the file results of a batch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, db *store.Store) error {
			b, err := db.GetBatch(ctx, args[0])
			if err != nil {
				return err
			}
			files, err := db.BatchFiles(ctx, b.ID)
			if err != nil {
				return fmt.Errorf("failed to load batch files: %w", err)
			}

			fmt.Printf("Batch %s (%s) %s→%s via %s\n", b.ID, b.Label, b.SourceLang, b.TargetLang, b.Provider)
			fmt.Printf("Input: %s  Output: %s\n\n", b.InputRoot, b.OutputRoot)

			results := make([]orchestrator.Result, len(files))
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FILE\tSTATE\tCHUNKS\tERROR")
			for i, f := range files {
				results[i] = orchestrator.Result{State: orchestrator.FileState(f.State)}
				errText := ""
				if f.ErrorKind != "" {
					errText = fmt.Sprintf("[%s] %s", f.ErrorKind, f.Message)
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", f.File, f.State, f.Chunks, errText)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			s := orchestrator.Summarize(results)
			fmt.Printf("\n%d written, %d failed of %d recorded\n", s.Written, s.Failed, s.Total)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(batchesCmd)

	batchesCmd.AddCommand(batchesListCmd)
	batchesCmd.AddCommand(batchesShowCmd)
}
