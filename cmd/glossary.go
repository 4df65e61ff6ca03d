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

	"github.com/valpere/peredoc/internal/glossary"
	"github.com/valpere/peredoc/internal/store"
)

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Manage the terminology glossary",
	Long: `Add, list, delete, import and export terminology glossary entries.

Glossary entries ensure that specific source terms are always translated
to the same target term, which matters for product names, API identifiers
and domain vocabulary. Stored terms of the language pair are merged with
the --glossary file on every translate run.`,
}

var (
	glossarySource string
	glossaryTarget string
)

var glossaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List glossary entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, db *store.Store) error {
			// Empty filters list everything.
			entries, err := db.ListGlossaryTerms(ctx, glossarySource, glossaryTarget)
			if err != nil {
				return fmt.Errorf("failed to list glossary: %w", err)
			}

			if len(entries) == 0 {
				fmt.Println("Glossary is empty.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSOURCE LANG\tTARGET LANG\tSOURCE TERM\tTARGET TERM")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.ID, e.SourceLang, e.TargetLang, e.SourceTerm, e.TargetTerm)
			}
			return w.Flush()
		})
	},
}

var glossaryAddCmd = &cobra.Command{
	Use:   "add <source-term> <target-term>",
	Short: "Add or update a glossary entry",
	Long: `Add a glossary entry mapping a source-language term to a target-language term.

Example:
  peredoc glossary add "pull request" "запит на злиття" --source en --target uk`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLangPair(); err != nil {
			return err
		}
		return withStore(func(ctx context.Context, db *store.Store) error {
			if err := db.AddGlossaryTerm(ctx, glossarySource, glossaryTarget, args[0], args[1]); err != nil {
				return fmt.Errorf("failed to add glossary entry: %w", err)
			}
			fmt.Printf("Added: [%s→%s] %q → %q\n", glossarySource, glossaryTarget, args[0], args[1])
			return nil
		})
	},
}

var glossaryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a glossary entry by ID",
	Long:  `Delete a glossary entry by its ID (shown in "peredoc glossary list").`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, db *store.Store) error {
			if err := db.DeleteGlossaryTerm(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete glossary entry: %w", err)
			}
			fmt.Printf("Deleted glossary entry: %s\n", args[0])
			return nil
		})
	},
}

var glossaryImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a YAML or JSON glossary file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLangPair(); err != nil {
			return err
		}
		g, err := glossary.Load(args[0])
		if err != nil {
			return err
		}
		return withStore(func(ctx context.Context, db *store.Store) error {
			n, err := db.ImportGlossaryTerms(ctx, glossarySource, glossaryTarget, g.Map())
			if err != nil {
				return fmt.Errorf("failed to import glossary: %w", err)
			}
			fmt.Printf("Imported %d terms [%s→%s] from %s\n", n, glossarySource, glossaryTarget, args[0])
			return nil
		})
	},
}

var glossaryExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the terms of a language pair as YAML",
	Long: `Export the stored terms of a language pair as a flat YAML mapping, to the
given file or to stdout. The result can be passed to "translate --glossary".`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLangPair(); err != nil {
			return err
		}
		return withStore(func(ctx context.Context, db *store.Store) error {
			terms, err := db.GetGlossaryTerms(ctx, glossarySource, glossaryTarget)
			if err != nil {
				return fmt.Errorf("failed to load glossary: %w", err)
			}
			data, err := glossary.New(terms).Marshal()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(args[0], data, 0644); err != nil {
				return fmt.Errorf("failed to write glossary: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Exported %d terms to %s\n", len(terms), args[0])
			return nil
		})
	},
}

func requireLangPair() error {
	if glossarySource == "" {
		return fmt.Errorf("--source language flag is required")
	}
	if glossaryTarget == "" {
		return fmt.Errorf("--target language flag is required")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(glossaryCmd)

	glossaryCmd.PersistentFlags().StringVarP(&glossarySource, "source", "s", "", "Source language code (e.g. en)")
	glossaryCmd.PersistentFlags().StringVarP(&glossaryTarget, "target", "t", "", "Target language code (e.g. uk)")

	glossaryCmd.AddCommand(glossaryListCmd)
	glossaryCmd.AddCommand(glossaryAddCmd)
	glossaryCmd.AddCommand(glossaryDeleteCmd)
	glossaryCmd.AddCommand(glossaryImportCmd)
	glossaryCmd.AddCommand(glossaryExportCmd)
}
