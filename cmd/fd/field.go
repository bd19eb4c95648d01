package main

import (
	"fmt"
	"io"

	"github.com/alfredjeanlab/formdesk/internal/client"
	"github.com/alfredjeanlab/formdesk/internal/form"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/spf13/cobra"
)

var fieldCmd = &cobra.Command{
	Use:     "field",
	Short:   "Add, edit, remove and reorder form fields",
	GroupID: "forms",
}

var fieldAddCmd = &cobra.Command{
	Use:   "add <ticket-type> <label>",
	Short: "Add a field to a form",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		fld := model.FormField{Label: args[1]}
		fld.ID, _ = flags.GetString("id")
		typ, _ := flags.GetString("type")
		fld.Type = model.FieldType(typ)
		fld.Description, _ = flags.GetString("description")
		fld.Required, _ = flags.GetBool("required")
		fld.Options, _ = flags.GetStringArray("option")
		fld.SectionID, _ = flags.GetString("section")
		fld.GoToSection, _ = flags.GetString("go-to")
		if routes, _ := flags.GetStringToString("route"); len(routes) > 0 {
			fld.OptionSectionMapping = routes
		}

		m, err := formsClient.AddField(cmd.Context(), model.TicketType(args[0]), fld, positionFlag(cmd), ifMatchFlag(cmd))
		if err != nil {
			return mutationError("adding field", err)
		}
		id := fld.ID
		if m.Field != nil {
			id = m.Field.ID
		}
		return printMutation(cmd.OutOrStdout(), m, fmt.Sprintf("field %s added", id))
	},
}

var fieldUpdateCmd = &cobra.Command{
	Use:   "update <ticket-type> <field-id>",
	Short: "Change a field's attributes",
	Long: `Change a field's attributes. Only the flags given are changed.

Changing a field's type or options detaches show-if rules that no longer
make sense; those sections become hidden by default.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		var p form.FieldPatch
		if flags.Changed("type") {
			typ, _ := flags.GetString("type")
			t := model.FieldType(typ)
			p.Type = &t
		}
		if flags.Changed("label") {
			v, _ := flags.GetString("label")
			p.Label = &v
		}
		if flags.Changed("description") {
			v, _ := flags.GetString("description")
			p.Description = &v
		}
		if flags.Changed("required") {
			v, _ := flags.GetBool("required")
			p.Required = &v
		}
		if flags.Changed("option") {
			v, _ := flags.GetStringArray("option")
			p.Options = &v
		}
		if flags.Changed("section") {
			v, _ := flags.GetString("section")
			p.SectionID = &v
		}
		if flags.Changed("go-to") {
			v, _ := flags.GetString("go-to")
			p.GoToSection = &v
		}
		if flags.Changed("route") {
			v, _ := flags.GetStringToString("route")
			p.OptionSectionMapping = &v
		}

		m, err := formsClient.UpdateField(cmd.Context(), model.TicketType(args[0]), args[1], p, ifMatchFlag(cmd))
		if err != nil {
			return mutationError("updating field", err)
		}
		return printMutation(cmd.OutOrStdout(), m, fmt.Sprintf("field %s updated", args[1]))
	},
}

var fieldRemoveCmd = &cobra.Command{
	Use:   "remove <ticket-type> <field-id>",
	Short: "Remove a field",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := formsClient.RemoveField(cmd.Context(), model.TicketType(args[0]), args[1], ifMatchFlag(cmd))
		if err != nil {
			return mutationError("removing field", err)
		}
		return printMutation(cmd.OutOrStdout(), m, fmt.Sprintf("field %s removed", args[1]))
	},
}

var fieldReorderCmd = &cobra.Command{
	Use:   "reorder <ticket-type> <from-index> <to-index>",
	Short: "Move a field to another position within its section",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := reorderRequest(cmd, args[1], args[2])
		if err != nil {
			return err
		}
		req.SectionID, _ = cmd.Flags().GetString("section")

		m, err := formsClient.ReorderFields(cmd.Context(), model.TicketType(args[0]), req, ifMatchFlag(cmd))
		if err != nil {
			return mutationError("reordering fields", err)
		}
		return printReorder(cmd.OutOrStdout(), m, fmt.Sprintf("field moved from %d to %d", req.DragIndex, req.HoverIndex))
	},
}

var fieldMoveCmd = &cobra.Command{
	Use:   "move <ticket-type> <field-id>",
	Short: "Move a field into another section",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &client.MoveFieldRequest{}
		req.FromSectionID, _ = cmd.Flags().GetString("from")
		req.ToSectionID, _ = cmd.Flags().GetString("to")
		req.TargetIndex = positionFlag(cmd)

		m, err := formsClient.MoveField(cmd.Context(), model.TicketType(args[0]), args[1], req, ifMatchFlag(cmd))
		if err != nil {
			return mutationError("moving field", err)
		}
		return printMutation(cmd.OutOrStdout(), m, fmt.Sprintf("field %s moved to %s", args[1], sectionName(req.ToSectionID)))
	},
}

func addFieldFlags(cmd *cobra.Command) {
	cmd.Flags().String("type", string(model.FieldText), "field type")
	cmd.Flags().String("description", "", "help text shown under the label")
	cmd.Flags().Bool("required", false, "require an answer")
	cmd.Flags().StringArray("option", nil, "option for dropdown, multiple choice or checkboxes (repeatable)")
	cmd.Flags().String("section", "", "section id (empty = outside any section)")
	cmd.Flags().String("go-to", "", "section to reveal once the field is answered")
	cmd.Flags().StringToString("route", nil, "reveal a section when an option is picked (option=section-id)")
}

func init() {
	addFieldFlags(fieldAddCmd)
	fieldAddCmd.Flags().String("id", "", "field id (generated when empty)")
	fieldAddCmd.Flags().Int("position", -1, "index within the section (-1 = append)")

	addFieldFlags(fieldUpdateCmd)
	fieldUpdateCmd.Flags().String("label", "", "field label")

	fieldReorderCmd.Flags().String("section", "", "section whose fields are reordered")
	addDragFlags(fieldReorderCmd)

	fieldMoveCmd.Flags().String("from", "", "current section id")
	fieldMoveCmd.Flags().String("to", "", "destination section id")
	fieldMoveCmd.Flags().Int("position", -1, "index in the destination section (-1 = append)")

	for _, c := range []*cobra.Command{fieldAddCmd, fieldUpdateCmd, fieldRemoveCmd, fieldReorderCmd, fieldMoveCmd} {
		addIfMatchFlag(c)
	}
	fieldCmd.AddCommand(fieldAddCmd, fieldUpdateCmd, fieldRemoveCmd, fieldReorderCmd, fieldMoveCmd)
}

// printMutation prints the saved form as JSON, or a one-line summary.
func printMutation(w io.Writer, m *client.Mutation, summary string) error {
	if jsonOutput {
		return printJSON(w, m)
	}
	fmt.Fprintf(w, "%s (form %s now at version %d)\n", summary, m.Form.TicketType, m.Form.Version)
	return nil
}

// printReorder reports a reorder that did not cross the hovered item's
// midpoint as a no-op.
func printReorder(w io.Writer, m *client.Mutation, summary string) error {
	if !m.Moved && !jsonOutput {
		fmt.Fprintf(w, "nothing moved; form %s still at version %d\n", m.Form.TicketType, m.Form.Version)
		return nil
	}
	return printMutation(w, m, summary)
}
