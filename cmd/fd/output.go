package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/alfredjeanlab/formdesk/internal/form"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/alfredjeanlab/formdesk/internal/presence"
	"github.com/alfredjeanlab/formdesk/internal/ui"
)

const timeFormat = "2006-01-02 15:04:05"

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printFormList(w io.Writer, forms []model.FormSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tTITLE\tFIELDS\tSECTIONS\tVERSION\tUPDATED")
	for _, f := range forms {
		updated := ""
		if !f.UpdatedAt.IsZero() {
			updated = f.UpdatedAt.Format(timeFormat)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", f.TicketType, f.Title, f.Fields, f.Sections, f.Version, updated)
	}
	return tw.Flush()
}

// printForm prints every section and field of f. Sections hidden when
// nothing has been answered are muted.
func printForm(w io.Writer, f *model.Form) {
	fmt.Fprintf(w, "%s  %s\n", ui.RenderAccent(f.TicketType.String()), f.Title)
	fmt.Fprintf(w, "Version %d", f.Version)
	if f.UpdatedBy != "" {
		fmt.Fprintf(w, ", updated by %s", f.UpdatedBy)
	}
	if !f.UpdatedAt.IsZero() {
		fmt.Fprintf(w, " at %s", f.UpdatedAt.Format(timeFormat))
	}
	fmt.Fprintln(w)

	printFields(w, f.FieldsIn(""), "")

	initial := form.ResolveVisibleSections(f.Sections, f.Fields, nil)
	for _, s := range f.SortedSections() {
		fmt.Fprintf(w, "\n%s %s\n", ui.SectionHeading(s.Title, initial.Has(s.ID)), ui.RenderMuted("["+s.ID+"]"))
		if rule := describeRule(s); rule != "" {
			fmt.Fprintf(w, "  %s\n", ui.RenderMuted(rule))
		}
		printFields(w, f.FieldsIn(s.ID), "  ")
	}
}

// printLayout prints what a submitter sees for the answers given.
func printLayout(w io.Writer, l *form.Layout) {
	fmt.Fprintf(w, "%s  %s (version %d)\n", ui.RenderAccent(l.TicketType.String()), l.Title, l.Version)
	printFields(w, l.Fields, "")
	for _, s := range l.Sections {
		fmt.Fprintf(w, "\n%s %s\n", ui.SectionHeading(s.Title, true), ui.RenderMuted("["+s.ID+"]"))
		printFields(w, s.Fields, "  ")
	}
	fmt.Fprintf(w, "\nVisible sections: %s\n", strings.Join(l.VisibleSections, ", "))
}

func printFields(w io.Writer, fields []model.FormField, indent string) {
	for _, fld := range fields {
		label := fld.Label
		if fld.Required {
			label += ui.RequiredMarker()
		}
		fmt.Fprintf(w, "%s%d. %s %s %s\n", indent, fld.Order+1, label, ui.RenderMuted("("+fld.Type.String()+")"), ui.RenderMuted("["+fld.ID+"]"))
		if len(fld.Options) > 0 {
			fmt.Fprintf(w, "%s   options: %s\n", indent, strings.Join(fld.Options, " | "))
		}
		if fld.GoToSection != "" {
			fmt.Fprintf(w, "%s   then: %s\n", indent, fld.GoToSection)
		}
		if len(fld.OptionSectionMapping) > 0 {
			opts := make([]string, 0, len(fld.OptionSectionMapping))
			for opt := range fld.OptionSectionMapping {
				opts = append(opts, opt)
			}
			sort.Strings(opts)
			for _, opt := range opts {
				fmt.Fprintf(w, "%s   %q -> %s\n", indent, opt, fld.OptionSectionMapping[opt])
			}
		}
	}
}

func describeRule(s model.FormSection) string {
	switch {
	case s.ShowIfFieldID != "" && len(s.ShowIfValues) > 0:
		return fmt.Sprintf("shown when %s is one of %s", s.ShowIfFieldID, strings.Join(s.ShowIfValues, ", "))
	case s.ShowIfFieldID != "":
		return fmt.Sprintf("shown when %s = %q", s.ShowIfFieldID, s.ShowIfValue)
	case s.HideByDefault:
		return "hidden until another field routes here"
	}
	return ""
}

func printSubmissionList(w io.Writer, subs []*model.Submission, total int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tVERSION\tCREATED BY\tCREATED")
	for _, s := range subs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", s.ID, s.TicketType, s.FormVersion, s.CreatedBy, s.CreatedAt.Format(timeFormat))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if total > len(subs) {
		fmt.Fprintf(w, "\nShowing %d of %d submissions\n", len(subs), total)
	}
	return nil
}

func printSubmission(w io.Writer, s *model.Submission) {
	fmt.Fprintf(w, "ID:          %s\n", s.ID)
	fmt.Fprintf(w, "Type:        %s (version %d)\n", s.TicketType, s.FormVersion)
	if s.CreatedBy != "" {
		fmt.Fprintf(w, "Created By:  %s\n", s.CreatedBy)
	}
	fmt.Fprintf(w, "Created At:  %s\n", s.CreatedAt.Format(timeFormat))
	fmt.Fprintf(w, "Sections:    %s\n", strings.Join(s.VisibleSections, ", "))
	if len(s.Attachments) > 0 {
		fmt.Fprintf(w, "Attachments: %s\n", strings.Join(s.Attachments, ", "))
	}

	keys := make([]string, 0, len(s.Answers))
	for k := range s.Answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, "Answers:")
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, s.Answers[k])
	}
}

func printPresence(w io.Writer, entries []presence.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTOR\tLAST ACTION\tTARGET\tEDITS\tIDLE")
	for _, e := range entries {
		idle := fmt.Sprintf("%.0fs", e.IdleSecs)
		if e.Gone {
			idle = "gone"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", e.Actor, e.LastAction, e.LastTarget, e.Edits, idle)
	}
	return tw.Flush()
}
