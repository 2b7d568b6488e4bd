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
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/doctran/internal/langcode"
	"github.com/valpere/doctran/internal/store"
)

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Manage the terminology glossary",
	Long: `Add, import, list and delete glossary entries.

Glossary entries make sure a source term is always translated to the same
target term in every batch sent for that language pair.`,
}

var glossarySource, glossaryTarget string

// glossaryPair normalises the --source and --target flags.
func glossaryPair() (string, string, error) {
	source, err := langcode.ParseTarget(glossarySource)
	if err != nil {
		return "", "", fmt.Errorf("--source: %w", err)
	}
	target, err := langcode.ParseTarget(glossaryTarget)
	if err != nil {
		return "", "", fmt.Errorf("--target: %w", err)
	}
	return source, target, nil
}

var glossaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List glossary entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		var source, target string
		var err error
		if glossarySource != "" {
			if source, err = langcode.ParseTarget(glossarySource); err != nil {
				return err
			}
		}
		if glossaryTarget != "" {
			if target, err = langcode.ParseTarget(glossaryTarget); err != nil {
				return err
			}
		}

		return withStore(cmd, func(ctx context.Context, db *store.Store) error {
			entries, err := db.ListGlossaryTerms(ctx, source, target)
			if err != nil {
				return fmt.Errorf("failed to list glossary: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("Glossary is empty.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tPAIR\tSOURCE TERM\tTARGET TERM")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s->%s\t%s\t%s\n", e.ID, e.SourceLang, e.TargetLang, e.SourceTerm, e.TargetTerm)
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
  doctran glossary add "Kyiv" "Київ" --source en --target uk`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, target, err := glossaryPair()
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, db *store.Store) error {
			if err := db.AddGlossaryTerm(ctx, source, target, args[0], args[1]); err != nil {
				return fmt.Errorf("failed to add glossary entry: %w", err)
			}
			fmt.Printf("Added [%s->%s] %q -> %q\n", source, target, args[0], args[1])
			return nil
		})
	},
}

var glossaryImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import glossary entries from a CSV file",
	Long: `Import source_term,target_term rows from a CSV file. A header row whose
first cell is "source" or "source_term" is skipped.

Example:
  doctran glossary import terms.csv --source en --target de`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, target, err := glossaryPair()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		return withStore(cmd, func(ctx context.Context, db *store.Store) error {
			n, err := importGlossary(ctx, db, f, source, target)
			fmt.Printf("Imported %d entries for %s->%s\n", n, source, target)
			return err
		})
	},
}

func importGlossary(ctx context.Context, db *store.Store, r io.Reader, source, target string) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	n := 0
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if line == 1 && len(rec) > 0 {
			if h := strings.ToLower(rec[0]); h == "source" || h == "source_term" {
				continue
			}
		}
		if len(rec) < 2 || strings.TrimSpace(rec[0]) == "" || strings.TrimSpace(rec[1]) == "" {
			return n, fmt.Errorf("line %d: want source_term,target_term", line)
		}
		if err := db.AddGlossaryTerm(ctx, source, target, rec[0], rec[1]); err != nil {
			return n, fmt.Errorf("line %d: %w", line, err)
		}
		n++
	}
}

var glossaryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a glossary entry by ID",
	Long: `Delete a glossary entry by its ID (shown in "doctran glossary list").

Example:
  doctran glossary delete gl_1234567890123456789`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, db *store.Store) error {
			if err := db.DeleteGlossaryTerm(ctx, args[0]); err != nil {
				return fmt.Errorf("failed to delete glossary entry: %w", err)
			}
			fmt.Printf("Deleted glossary entry %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(glossaryCmd)

	glossaryCmd.PersistentFlags().StringVarP(&glossarySource, "source", "s", "", "Source language code (e.g. en)")
	glossaryCmd.PersistentFlags().StringVarP(&glossaryTarget, "target", "t", "", "Target language code (e.g. uk)")

	glossaryCmd.AddCommand(glossaryListCmd, glossaryAddCmd, glossaryImportCmd, glossaryDeleteCmd)
}
