package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/alfredjeanlab/formdesk/internal/client"
	"github.com/alfredjeanlab/formdesk/internal/formfile"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/spf13/cobra"
)

var formCmd = &cobra.Command{
	Use:     "form",
	Short:   "List, show, apply and delete form definitions",
	GroupID: "forms",
}

var formListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured forms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		forms, err := formsClient.ListForms(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing forms: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), forms)
		}
		if len(forms) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no forms configured")
			return nil
		}
		return printFormList(cmd.OutOrStdout(), forms)
	},
}

var formShowCmd = &cobra.Command{
	Use:   "show <ticket-type>",
	Short: "Show a form's sections and fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := reader.GetForm(cmd.Context(), model.TicketType(args[0]))
		if err != nil {
			return fmt.Errorf("getting form: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), f)
		}
		printForm(cmd.OutOrStdout(), f)
		return nil
	},
}

var formImportCmd = &cobra.Command{
	Use:     "import <file>",
	Aliases: []string{"apply"},
	Short:   "Create or replace a form from a YAML or JSONC definition",
	Long: `Create or replace a form from a definition file.

The ticket type comes from the file unless --type is given. With
--if-match the save fails when the stored form has moved past that version.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := formfile.ReadFile(args[0])
		if err != nil {
			return err
		}
		if tt, _ := cmd.Flags().GetString("type"); tt != "" {
			f.TicketType = model.TicketType(tt)
		}
		if !f.TicketType.IsValid() {
			return fmt.Errorf("%s: ticket_type is required (or pass --type)", args[0])
		}
		ifMatch, _ := cmd.Flags().GetInt("if-match")

		saved, err := formsClient.PutForm(cmd.Context(), f, ifMatch)
		if client.IsConflict(err) {
			return fmt.Errorf("form %s changed since version %d; fetch it again and retry", f.TicketType, ifMatch)
		}
		if err != nil {
			return fmt.Errorf("importing form: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), saved)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "form %s saved at version %d\n", saved.TicketType, saved.Version)
		return nil
	},
}

var formExportCmd = &cobra.Command{
	Use:   "export <ticket-type>",
	Short: "Write a form definition to a file or stdout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := formsClient.GetForm(cmd.Context(), model.TicketType(args[0]))
		if err != nil {
			return fmt.Errorf("getting form: %w", err)
		}
		if out, _ := cmd.Flags().GetString("output"); out != "" {
			if err := formfile.WriteFile(out, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (version %d)\n", out, f.Version)
			return nil
		}
		format := formfile.FormatYAML
		if jsonOutput {
			format = formfile.FormatJSON
		}
		data, err := formfile.Marshal(f, format)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var formDeleteCmd = &cobra.Command{
	Use:   "delete <ticket-type>",
	Short: "Delete a form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tt := model.TicketType(args[0])
		if err := formsClient.DeleteForm(cmd.Context(), tt); err != nil {
			return fmt.Errorf("deleting form: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "form %s deleted\n", tt)
		return nil
	},
}

var formEventsCmd = &cobra.Command{
	Use:   "events <ticket-type>",
	Short: "Show the edit history of a form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		evts, err := formsClient.GetEvents(cmd.Context(), model.TicketType(args[0]))
		if err != nil {
			return fmt.Errorf("getting events: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), evts)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTOPIC\tACTOR\tAT")
		for _, e := range evts {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", e.ID, e.Topic, e.Actor, e.CreatedAt.Format(timeFormat))
		}
		return w.Flush()
	},
}

func init() {
	formImportCmd.Flags().String("type", "", "ticket type (overrides the file)")
	formImportCmd.Flags().Int("if-match", 0, "expected current version (0 = overwrite)")
	formExportCmd.Flags().StringP("output", "o", "", "write to this .yaml, .yml, .json or .jsonc file")

	formCmd.AddCommand(formListCmd, formShowCmd, formImportCmd, formExportCmd, formDeleteCmd, formEventsCmd)
}
