package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/formdesk/internal/client"
	"github.com/alfredjeanlab/formdesk/internal/form"
	"github.com/spf13/cobra"
)

func addIfMatchFlag(cmd *cobra.Command) {
	cmd.Flags().Int("if-match", 0, "fail unless the form is at this version (0 = last write wins)")
}

func ifMatchFlag(cmd *cobra.Command) int {
	v, _ := cmd.Flags().GetInt("if-match")
	return v
}

// positionFlag returns nil when --position is negative, meaning append.
func positionFlag(cmd *cobra.Command) *int {
	v, _ := cmd.Flags().GetInt("position")
	if v < 0 {
		return nil
	}
	return &v
}

func addDragFlags(cmd *cobra.Command) {
	cmd.Flags().String("hover-rect", "", "top,bottom of the hovered item; the move commits only past its midpoint")
	cmd.Flags().Float64("pointer-y", 0, "pointer position, used with --hover-rect")
}

// reorderRequest builds a reorder from positional indices and the drag flags.
func reorderRequest(cmd *cobra.Command, from, to string) (*client.ReorderRequest, error) {
	drag, err := strconv.Atoi(from)
	if err != nil {
		return nil, fmt.Errorf("invalid from-index %q", from)
	}
	hover, err := strconv.Atoi(to)
	if err != nil {
		return nil, fmt.Errorf("invalid to-index %q", to)
	}
	req := &client.ReorderRequest{DragIndex: drag, HoverIndex: hover}

	if s, _ := cmd.Flags().GetString("hover-rect"); s != "" {
		rect, err := parseRect(s)
		if err != nil {
			return nil, err
		}
		req.HoverRect = &rect
		req.PointerY, _ = cmd.Flags().GetFloat64("pointer-y")
	}
	return req, nil
}

func parseRect(s string) (form.Rect, error) {
	top, bottom, ok := strings.Cut(s, ",")
	if !ok {
		return form.Rect{}, fmt.Errorf("invalid --hover-rect %q (want top,bottom)", s)
	}
	t, err := strconv.ParseFloat(strings.TrimSpace(top), 64)
	if err != nil {
		return form.Rect{}, fmt.Errorf("invalid --hover-rect top %q", top)
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(bottom), 64)
	if err != nil {
		return form.Rect{}, fmt.Errorf("invalid --hover-rect bottom %q", bottom)
	}
	if b < t {
		return form.Rect{}, fmt.Errorf("invalid --hover-rect %q: bottom above top", s)
	}
	return form.Rect{Top: t, Bottom: b}, nil
}

// mutationError adds a retry hint to version conflicts.
func mutationError(action string, err error) error {
	if client.IsConflict(err) {
		return fmt.Errorf("%s: %w (fetch the form again and retry)", action, err)
	}
	return fmt.Errorf("%s: %w", action, err)
}

func sectionName(id string) string {
	if id == "" {
		return "the top of the form"
	}
	return id
}
