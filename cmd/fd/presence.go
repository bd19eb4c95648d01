package main

import (
	"fmt"

	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/spf13/cobra"
)

var presenceCmd = &cobra.Command{
	Use:     "presence <ticket-type>",
	Short:   "Show who is editing a form",
	GroupID: "forms",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		editors, err := formsClient.Presence(cmd.Context(), model.TicketType(args[0]))
		if err != nil {
			return fmt.Errorf("getting presence: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), editors)
		}
		if len(editors) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "nobody is editing")
			return nil
		}
		return printPresence(cmd.OutOrStdout(), editors)
	},
}
