package main

import (
	"fmt"

	"github.com/alfredjeanlab/formdesk/internal/client"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/spf13/cobra"
)

var submissionCmd = &cobra.Command{
	Use:     "submission",
	Aliases: []string{"submissions"},
	Short:   "Browse submitted tickets",
	GroupID: "tickets",
}

var submissionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List submissions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &client.ListSubmissionsRequest{}
		tt, _ := cmd.Flags().GetString("type")
		req.TicketType = model.TicketType(tt)
		req.CreatedBy, _ = cmd.Flags().GetString("created-by")
		req.Sort, _ = cmd.Flags().GetString("sort")
		req.Limit, _ = cmd.Flags().GetInt("limit")
		req.Offset, _ = cmd.Flags().GetInt("offset")

		resp, err := formsClient.ListSubmissions(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("listing submissions: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		if len(resp.Submissions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no submissions")
			return nil
		}
		return printSubmissionList(cmd.OutOrStdout(), resp.Submissions, resp.Total)
	},
}

var submissionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a submission's answers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sub, err := formsClient.GetSubmission(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("getting submission: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), sub)
		}
		printSubmission(cmd.OutOrStdout(), sub)
		return nil
	},
}

func init() {
	submissionListCmd.Flags().String("type", "", "filter by ticket type")
	submissionListCmd.Flags().String("created-by", "", "filter by submitter")
	submissionListCmd.Flags().String("sort", "-created_at", "sort field; prefix - for descending")
	submissionListCmd.Flags().Int("limit", 20, "maximum results")
	submissionListCmd.Flags().Int("offset", 0, "results to skip")

	submissionCmd.AddCommand(submissionListCmd, submissionShowCmd)
}
