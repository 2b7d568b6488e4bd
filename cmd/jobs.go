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
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var jobsLimit int

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect the job history",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		jobs, err := db.ListJobs(cmd.Context(), jobsLimit)
		if err != nil {
			return fmt.Errorf("failed to list jobs: %w", err)
		}
		if len(jobs) == 0 {
			fmt.Println("No jobs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tKIND\tLANGS\tBATCHES\tFAILED\tUPDATED\tSOURCE")
		for _, j := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s->%s\t%d\t%d\t%s\t%s\n",
				j.ID, j.Status, j.Kind, j.SourceLang, j.TargetLang,
				j.Batches, j.FailedBatches, j.UpdatedAt.Format("2006-01-02 15:04"), j.SourcePath)
		}
		return w.Flush()
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer db.Close()

		j, ok, err := db.GetJob(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get job: %w", err)
		}
		if !ok {
			return fmt.Errorf("job %s not found", args[0])
		}

		fmt.Printf("ID:       %s\n", j.ID)
		fmt.Printf("Status:   %s\n", j.Status)
		fmt.Printf("Source:   %s\n", j.SourcePath)
		fmt.Printf("Output:   %s\n", j.OutputPath)
		fmt.Printf("Kind:     %s\n", j.Kind)
		fmt.Printf("Language: %s -> %s\n", j.SourceLang, j.TargetLang)
		fmt.Printf("Texts:    %d\n", j.Nodes)
		fmt.Printf("Batches:  %d (%d failed)\n", j.Batches, j.FailedBatches)
		fmt.Printf("Created:  %s\n", j.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("Updated:  %s\n", j.UpdatedAt.Format("2006-01-02 15:04:05"))
		if j.Error != "" {
			fmt.Printf("Error:    %s\n", j.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsListCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "Maximum jobs to show")
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
}
