package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bouyassine11/AnalytIQ/internal/jobs"
	"github.com/bouyassine11/AnalytIQ/internal/utils"
)

var (
	jobsUser string
	jobsJSON bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect analysis jobs in the configured store",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a user's jobs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeStore, err := openStore(cmd.Context(), currentConfig())
		if err != nil {
			return err
		}
		defer closeStore()
		list, err := st.ListByUser(cmd.Context(), jobsUser, jobs.ListLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "(no jobs)")
			return nil
		}
		for _, j := range list {
			fmt.Fprintf(out, "- %s: %s (%s, uploaded %s)\n", j.ID, j.Filename, j.Status, j.UploadedAt.Local().Format(time.RFC3339))
		}
		return nil
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a job's status and report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, closeStore, err := openStore(cmd.Context(), currentConfig())
		if err != nil {
			return err
		}
		defer closeStore()
		j, err := st.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if j.UserID != jobsUser {
			return jobs.ErrNotFound
		}
		out := cmd.OutOrStdout()
		if jobsJSON {
			b, err := utils.PrettyJSON(j)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintf(out, "Job: %s\nFile: %s\nStatus: %s\nUploaded: %s\n", j.ID, j.Filename, j.Status, j.UploadedAt.Local().Format(time.RFC3339))
		switch j.Status {
		case jobs.StatusFailed:
			fmt.Fprintf(out, "Error: %s\n", j.Error)
		case jobs.StatusCompleted:
			fmt.Fprintf(out, "Completed: %s\n\n", j.CompletedAt.Local().Format(time.RFC3339))
			fmt.Fprintln(out, j.Result.Markdown())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.PersistentFlags().StringVar(&jobsUser, "user", "local", "job owner")
	jobsShowCmd.Flags().BoolVar(&jobsJSON, "json", false, "print the stored job record as JSON")
}
