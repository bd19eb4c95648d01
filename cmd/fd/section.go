package main

import (
	"fmt"

	"github.com/alfredjeanlab/formdesk/internal/form"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/spf13/cobra"
)

var sectionCmd = &cobra.Command{
	Use:     "section",
	Short:   "Add, edit, remove and reorder form sections",
	GroupID: "forms",
}

var sectionAddCmd = &cobra.Command{
	Use:   "add <ticket-type> <title>",
	Short: "Add a section to a form",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		s := model.FormSection{Title: args[1]}
		s.ID, _ = flags.GetString("id")
		s.Description, _ = flags.GetString("description")
		s.ShowIfFieldID, _ = flags.GetString("show-if-field")
		s.ShowIfValue, _ = flags.GetString("show-if-value")
		s.ShowIfValues, _ = flags.GetStringArray("show-if-any")
		s.HideByDefault, _ = flags.GetBool("hide-by-default")

		m, err := formsClient.AddSection(cmd.Context(), model.TicketType(args[0]), s, positionFlag(cmd), ifMatchFlag(cmd))
		if err != nil {
			return mutationError("adding section", err)
		}
		id := s.ID
		if m.Section != nil {
			id = m.Section.ID
		}
		return printMutation(cmd.OutOrStdout(), m, fmt.Sprintf("section %s added", id))
	},
}

var sectionUpdateCmd = &cobra.Command{
	Use:   "update <ticket-type> <section-id>",
	Short: "Change a section's title or show-if rule",
	Long: `Change a section's attributes. Only the flags given are changed.

--clear-rule removes the show-if rule; the section then follows
--hide-by-default.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		var p form.SectionPatch
		if flags.Changed("title") {
			v, _ := flags.GetString("title")
			p.Title = &v
		}
		if flags.Changed("description") {
			v, _ := flags.GetString("description")
			p.Description = &v
		}
		if clear, _ := flags.GetBool("clear-rule"); clear {
			empty := ""
			p.ShowIfFieldID = &empty
		} else if flags.Changed("show-if-field") {
			v, _ := flags.GetString("show-if-field")
			p.ShowIfFieldID = &v
		}
		if flags.Changed("show-if-value") {
			v, _ := flags.GetString("show-if-value")
			p.ShowIfValue = &v
		}
		if flags.Changed("show-if-any") {
			v, _ := flags.GetStringArray("show-if-any")
			p.ShowIfValues = &v
		}
		if flags.Changed("hide-by-default") {
			v, _ := flags.GetBool("hide-by-default")
			p.HideByDefault = &v
		}

		m, err := formsClient.UpdateSection(cmd.Context(), model.TicketType(args[0]), args[1], p, ifMatchFlag(cmd))
		if err != nil {
			return mutationError("updating section", err)
		}
		return printMutation(cmd.OutOrStdout(), m, fmt.Sprintf("section %s updated", args[1]))
	},
}

var sectionRemoveCmd = &cobra.Command{
	Use:   "remove <ticket-type> <section-id>",
	Short: "Remove a section and its fields",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := formsClient.RemoveSection(cmd.Context(), model.TicketType(args[0]), args[1], ifMatchFlag(cmd))
		if err != nil {
			return mutationError("removing section", err)
		}
		return printMutation(cmd.OutOrStdout(), m, fmt.Sprintf("section %s removed", args[1]))
	},
}

var sectionReorderCmd = &cobra.Command{
	Use:   "reorder <ticket-type> <from-index> <to-index>",
	Short: "Move a section to another position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := reorderRequest(cmd, args[1], args[2])
		if err != nil {
			return err
		}
		m, err := formsClient.ReorderSections(cmd.Context(), model.TicketType(args[0]), req, ifMatchFlag(cmd))
		if err != nil {
			return mutationError("reordering sections", err)
		}
		return printReorder(cmd.OutOrStdout(), m, fmt.Sprintf("section moved from %d to %d", req.DragIndex, req.HoverIndex))
	},
}

func addSectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("description", "", "text shown under the title")
	cmd.Flags().String("show-if-field", "", "show only when this field's answer matches")
	cmd.Flags().String("show-if-value", "", "answer that shows the section")
	cmd.Flags().StringArray("show-if-any", nil, "any of these answers shows the section (repeatable)")
	cmd.Flags().Bool("hide-by-default", false, "hide until a routing field reveals the section")
}

func init() {
	addSectionFlags(sectionAddCmd)
	sectionAddCmd.Flags().String("id", "", "section id (generated when empty)")
	sectionAddCmd.Flags().Int("position", -1, "index among sections (-1 = append)")

	addSectionFlags(sectionUpdateCmd)
	sectionUpdateCmd.Flags().String("title", "", "section title")
	sectionUpdateCmd.Flags().Bool("clear-rule", false, "remove the show-if rule")

	addDragFlags(sectionReorderCmd)

	for _, c := range []*cobra.Command{sectionAddCmd, sectionUpdateCmd, sectionRemoveCmd, sectionReorderCmd} {
		addIfMatchFlag(c)
	}
	sectionCmd.AddCommand(sectionAddCmd, sectionUpdateCmd, sectionRemoveCmd, sectionReorderCmd)
}
