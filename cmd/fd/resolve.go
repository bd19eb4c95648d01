package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alfredjeanlab/formdesk/internal/form"
	"github.com/alfredjeanlab/formdesk/internal/formfile"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <ticket-type|file>",
	Short: "Show which sections a set of answers reveals",
	Long: `Show the layout a submitter sees for the given answers.

Given a .yaml, .yml, .json or .jsonc definition file the layout is resolved
locally without contacting a server. Checkboxes answers are comma-joined:
--set features=export,sso`,
	GroupID: "tickets",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sets, _ := cmd.Flags().GetStringArray("set")
		values, err := parseAnswers(sets)
		if err != nil {
			return err
		}

		var l *form.Layout
		if isDefinitionFile(args[0]) {
			l, err = resolveLocal(args[0], values)
		} else {
			l, err = reader.Resolve(cmd.Context(), model.TicketType(args[0]), values)
		}
		if err != nil {
			return fmt.Errorf("resolving form: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), l)
		}
		printLayout(cmd.OutOrStdout(), l)
		return nil
	},
}

var submitCmd = &cobra.Command{
	Use:     "submit <ticket-type>",
	Short:   "Submit a ticket",
	GroupID: "tickets",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sets, _ := cmd.Flags().GetStringArray("set")
		answers, err := parseAnswers(sets)
		if err != nil {
			return err
		}
		sub, err := formsClient.Submit(cmd.Context(), model.TicketType(args[0]), answers)
		if err != nil {
			return fmt.Errorf("submitting: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), sub)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "submitted %s (form version %d)\n", sub.ID, sub.FormVersion)
		return nil
	},
}

// isDefinitionFile reports whether arg names an existing definition file
// rather than a ticket type.
func isDefinitionFile(arg string) bool {
	if _, err := formfile.FormatFromPath(arg); err != nil {
		return false
	}
	info, err := os.Stat(arg)
	return err == nil && !info.IsDir()
}

func resolveLocal(path string, values map[string]string) (*form.Layout, error) {
	f, err := formfile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := model.ValidateForm(f); err != nil {
		return nil, err
	}
	l := form.BuildLayout(f, values)
	return &l, nil
}

// parseAnswers turns field=value pairs into an answer map.
func parseAnswers(pairs []string) (map[string]string, error) {
	answers := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid answer %q (want field=value)", p)
		}
		answers[k] = v
	}
	return answers, nil
}

func init() {
	resolveCmd.Flags().StringArray("set", nil, "answer as field=value (repeatable)")
	submitCmd.Flags().StringArray("set", nil, "answer as field=value (repeatable)")
}
