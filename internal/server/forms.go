package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/formdesk/internal/events"
	"github.com/alfredjeanlab/formdesk/internal/form"
	"github.com/alfredjeanlab/formdesk/internal/idgen"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/alfredjeanlab/formdesk/internal/presence"
	"github.com/alfredjeanlab/formdesk/internal/store"
)

// change describes one committed edit: what presence records and what is
// published once the form is saved.
type change struct {
	action string // presence action, e.g. "field.added"
	target string // field or section id
	topic  string
	event  func(f *model.Form) any
}

// mutate applies edit to a copy of the current form, validates the result
// and saves it. A nil change from edit means nothing moved and nothing is
// saved. ifMatch > 0 requires the form to be at that version; otherwise
// a save racing another replica is retried once against the fresh form.
func (s *FormServer) mutate(ctx context.Context, tt model.TicketType, actor string, ifMatch int, edit func(ed *form.Editor) (*change, error)) (*model.Form, bool, error) {
	for attempt := 0; ; attempt++ {
		f, err := s.Cache.Get(ctx, tt)
		if err != nil {
			return nil, false, err
		}
		base := f.Version
		if ifMatch > 0 && base != ifMatch {
			return nil, false, fmt.Errorf("%w: form is at version %d", store.ErrVersionConflict, base)
		}

		ch, err := edit(form.NewEditor(f))
		if err != nil {
			return nil, false, err
		}
		if ch == nil {
			return f, false, nil
		}
		if err := model.ValidateForm(f); err != nil {
			return nil, false, err
		}

		f.UpdatedBy = actor
		err = s.store.SaveForm(ctx, f, base)
		if errors.Is(err, store.ErrVersionConflict) {
			s.Cache.Invalidate(tt)
			if ifMatch == 0 && attempt == 0 {
				continue
			}
		}
		if err != nil {
			return nil, false, err
		}

		s.Cache.Put(f)
		s.recordAndPublish(ctx, ch.topic, string(tt), actor, ch.event(f))
		s.Presence.Record(presence.Activity{TicketType: tt, Actor: actor, Action: ch.action, Target: ch.target})
		return f, true, nil
	}
}

func (s *FormServer) listForms(ctx context.Context) ([]model.FormSummary, error) {
	forms, err := s.store.ListForms(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.FormSummary, 0, len(forms))
	for _, f := range forms {
		out = append(out, f.Summary())
	}
	return out, nil
}

// putForm replaces the whole definition of tt. Orders are renumbered
// densely before validation so hand-written definitions may leave gaps.
func (s *FormServer) putForm(ctx context.Context, tt model.TicketType, in *model.Form, ifMatch int, actor string) (*model.Form, error) {
	if in.TicketType != "" && in.TicketType != tt {
		return nil, inputError(fmt.Sprintf("ticket_type %q does not match path %q", in.TicketType, tt))
	}
	in.TicketType = tt
	if in.Fields == nil {
		in.Fields = []model.FormField{}
	}
	if in.Sections == nil {
		in.Sections = []model.FormSection{}
	}
	form.NewEditor(in).Normalize()
	if err := model.ValidateForm(in); err != nil {
		return nil, err
	}

	in.UpdatedBy = actor
	if err := s.store.SaveForm(ctx, in, ifMatch); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			s.Cache.Invalidate(tt)
		}
		return nil, err
	}
	s.Cache.Put(in)

	s.recordAndPublish(ctx, events.TopicFormSaved, string(tt), actor, events.FormSaved{
		TicketType: tt,
		Version:    in.Version,
		Fields:     len(in.Fields),
		Sections:   len(in.Sections),
	})
	s.Presence.Record(presence.Activity{TicketType: tt, Actor: actor, Action: "form.saved"})
	return in, nil
}

func (s *FormServer) deleteForm(ctx context.Context, tt model.TicketType, actor string) error {
	if err := s.store.DeleteForm(ctx, tt); err != nil {
		return err
	}
	s.Cache.Invalidate(tt)
	s.recordAndPublish(ctx, events.TopicFormDeleted, string(tt), actor, events.FormDeleted{TicketType: tt})
	return nil
}

// addFieldInput is the body of POST /v1/forms/{type}/fields.
type addFieldInput struct {
	model.FormField
	// Position is the index within the field's section; nil appends.
	Position *int `json:"position,omitempty"`
}

func (s *FormServer) addField(ctx context.Context, tt model.TicketType, actor string, ifMatch int, in addFieldInput) (*model.Form, string, error) {
	if !in.Type.IsValid() {
		return nil, "", inputError(fmt.Sprintf("invalid field type %q", in.Type))
	}
	var id string
	f, _, err := s.mutate(ctx, tt, actor, ifMatch, func(ed *form.Editor) (*change, error) {
		fld, err := ed.AddField(in.FormField, position(in.Position))
		if err != nil {
			return nil, err
		}
		id = fld.ID
		return &change{action: "field.added", target: id, topic: events.TopicFieldAdded, event: func(f *model.Form) any {
			return events.FieldAdded{TicketType: tt, Version: f.Version, Field: f.Field(id)}
		}}, nil
	})
	return f, id, err
}

func (s *FormServer) updateField(ctx context.Context, tt model.TicketType, actor string, ifMatch int, id string, p form.FieldPatch) (*model.Form, error) {
	if p.Type != nil && !p.Type.IsValid() {
		return nil, inputError(fmt.Sprintf("invalid field type %q", *p.Type))
	}
	f, _, err := s.mutate(ctx, tt, actor, ifMatch, func(ed *form.Editor) (*change, error) {
		if _, err := ed.UpdateField(id, p); err != nil {
			return nil, err
		}
		return &change{action: "field.updated", target: id, topic: events.TopicFieldUpdated, event: func(f *model.Form) any {
			return events.FieldUpdated{TicketType: tt, Version: f.Version, Field: f.Field(id), Changes: patchChanges(p)}
		}}, nil
	})
	return f, err
}

func (s *FormServer) removeField(ctx context.Context, tt model.TicketType, actor string, ifMatch int, id string) (*model.Form, error) {
	f, _, err := s.mutate(ctx, tt, actor, ifMatch, func(ed *form.Editor) (*change, error) {
		var detached []string
		for _, sec := range ed.Form().Sections {
			if sec.ShowIfFieldID == id {
				detached = append(detached, sec.ID)
			}
		}
		if err := ed.RemoveField(id); err != nil {
			return nil, err
		}
		return &change{action: "field.removed", target: id, topic: events.TopicFieldRemoved, event: func(f *model.Form) any {
			return events.FieldRemoved{TicketType: tt, Version: f.Version, FieldID: id, DetachedSections: detached}
		}}, nil
	})
	return f, err
}

// reorderInput is the body of the reorder endpoints. With HoverRect set the
// move only commits once the pointer crosses the hovered item's midpoint;
// with Ticks (or Cancelled) the whole gesture is replayed.
type reorderInput struct {
	SectionID  string           `json:"section_id,omitempty"`
	DragIndex  int              `json:"drag_index"`
	HoverIndex int              `json:"hover_index"`
	HoverRect  *form.Rect       `json:"hover_rect,omitempty"`
	PointerY   float64          `json:"pointer_y,omitempty"`
	Ticks      []form.HoverTick `json:"ticks,omitempty"`
	Cancelled  bool             `json:"cancelled,omitempty"`
}

func (in reorderInput) gesture() (form.Gesture, bool) {
	if len(in.Ticks) == 0 && !in.Cancelled {
		return form.Gesture{}, false
	}
	return form.Gesture{DragIndex: in.DragIndex, Ticks: in.Ticks, Cancelled: in.Cancelled}, true
}

// target returns the index the dragged item lands on and whether the
// hover commits a move.
func (in reorderInput) target() (int, bool) {
	if in.HoverRect == nil {
		return in.HoverIndex, in.HoverIndex != in.DragIndex
	}
	return form.HoverTarget(in.DragIndex, in.HoverIndex, *in.HoverRect, in.PointerY)
}

func (s *FormServer) reorderFields(ctx context.Context, tt model.TicketType, actor string, ifMatch int, in reorderInput) (*model.Form, bool, error) {
	return s.mutate(ctx, tt, actor, ifMatch, func(ed *form.Editor) (*change, error) {
		if in.SectionID != "" && ed.Form().Section(in.SectionID) == nil {
			return nil, fmt.Errorf("%w: %q", form.ErrSectionNotFound, in.SectionID)
		}
		ids := ed.FieldIDs(in.SectionID)
		if in.DragIndex < 0 || in.DragIndex >= len(ids) {
			return nil, fmt.Errorf("%w: drag_index %d", form.ErrIndexOutOfRange, in.DragIndex)
		}
		id := ids[in.DragIndex]

		if g, ok := in.gesture(); ok {
			moved, err := ed.ApplyFieldGesture(in.SectionID, g)
			if err != nil || !moved {
				return nil, err
			}
		} else {
			to, ok := in.target()
			if !ok {
				return nil, nil
			}
			if err := ed.MoveFieldWithinSection(in.DragIndex, to, in.SectionID); err != nil {
				return nil, err
			}
		}
		return &change{action: "field.moved", target: id, topic: events.TopicFieldMoved, event: func(f *model.Form) any {
			return events.FieldMoved{TicketType: tt, Version: f.Version, FieldID: id,
				FromSectionID: in.SectionID, ToSectionID: in.SectionID, Order: f.Field(id).Order}
		}}, nil
	})
}

// moveFieldInput is the body of POST /v1/forms/{type}/fields/{id}/move.
type moveFieldInput struct {
	FromSectionID string `json:"from_section_id"`
	ToSectionID   string `json:"to_section_id"`
	// TargetIndex is the index in the destination section; nil appends.
	TargetIndex *int `json:"target_index,omitempty"`
}

func (s *FormServer) moveField(ctx context.Context, tt model.TicketType, actor string, ifMatch int, id string, in moveFieldInput) (*model.Form, error) {
	f, _, err := s.mutate(ctx, tt, actor, ifMatch, func(ed *form.Editor) (*change, error) {
		if err := ed.MoveFieldBetweenSections(id, in.FromSectionID, in.ToSectionID, in.TargetIndex); err != nil {
			return nil, err
		}
		return &change{action: "field.moved", target: id, topic: events.TopicFieldMoved, event: func(f *model.Form) any {
			return events.FieldMoved{TicketType: tt, Version: f.Version, FieldID: id,
				FromSectionID: in.FromSectionID, ToSectionID: in.ToSectionID, Order: f.Field(id).Order}
		}}, nil
	})
	return f, err
}

// addSectionInput is the body of POST /v1/forms/{type}/sections.
type addSectionInput struct {
	model.FormSection
	Position *int `json:"position,omitempty"`
}

func (s *FormServer) addSection(ctx context.Context, tt model.TicketType, actor string, ifMatch int, in addSectionInput) (*model.Form, string, error) {
	var id string
	f, _, err := s.mutate(ctx, tt, actor, ifMatch, func(ed *form.Editor) (*change, error) {
		sec, err := ed.AddSection(in.FormSection, position(in.Position))
		if err != nil {
			return nil, err
		}
		id = sec.ID
		return &change{action: "section.added", target: id, topic: events.TopicSectionAdded, event: func(f *model.Form) any {
			return events.SectionAdded{TicketType: tt, Version: f.Version, Section: f.Section(id)}
		}}, nil
	})
	return f, id, err
}

func (s *FormServer) updateSection(ctx context.Context, tt model.TicketType, actor string, ifMatch int, id string, p form.SectionPatch) (*model.Form, error) {
	f, _, err := s.mutate(ctx, tt, actor, ifMatch, func(ed *form.Editor) (*change, error) {
		if _, err := ed.UpdateSection(id, p); err != nil {
			return nil, err
		}
		return &change{action: "section.updated", target: id, topic: events.TopicSectionUpdated, event: func(f *model.Form) any {
			return events.SectionUpdated{TicketType: tt, Version: f.Version, Section: f.Section(id), Changes: patchChanges(p)}
		}}, nil
	})
	return f, err
}

func (s *FormServer) removeSection(ctx context.Context, tt model.TicketType, actor string, ifMatch int, id string) (*model.Form, error) {
	f, _, err := s.mutate(ctx, tt, actor, ifMatch, func(ed *form.Editor) (*change, error) {
		removed, err := ed.RemoveSection(id)
		if err != nil {
			return nil, err
		}
		return &change{action: "section.removed", target: id, topic: events.TopicSectionRemoved, event: func(f *model.Form) any {
			return events.SectionRemoved{TicketType: tt, Version: f.Version, SectionID: id, RemovedFields: removed}
		}}, nil
	})
	return f, err
}

func (s *FormServer) reorderSections(ctx context.Context, tt model.TicketType, actor string, ifMatch int, in reorderInput) (*model.Form, bool, error) {
	return s.mutate(ctx, tt, actor, ifMatch, func(ed *form.Editor) (*change, error) {
		ids := ed.SectionIDs()
		if in.DragIndex < 0 || in.DragIndex >= len(ids) {
			return nil, fmt.Errorf("%w: drag_index %d", form.ErrIndexOutOfRange, in.DragIndex)
		}
		id := ids[in.DragIndex]

		if g, ok := in.gesture(); ok {
			moved, err := ed.ApplySectionGesture(g)
			if err != nil || !moved {
				return nil, err
			}
		} else {
			to, ok := in.target()
			if !ok {
				return nil, nil
			}
			if err := ed.MoveSection(in.DragIndex, to); err != nil {
				return nil, err
			}
		}
		return &change{action: "section.moved", target: id, topic: events.TopicSectionMoved, event: func(f *model.Form) any {
			return events.SectionMoved{TicketType: tt, Version: f.Version, SectionID: id, Order: f.Section(id).Order}
		}}, nil
	})
}

// resolve returns the layout rendered for values.
func (s *FormServer) resolve(ctx context.Context, tt model.TicketType, values map[string]string) (form.Layout, error) {
	f, err := s.Cache.Get(ctx, tt)
	if err != nil {
		return form.Layout{}, err
	}
	return form.BuildLayout(f, values), nil
}

// submit validates answers against the layout they render and stores the
// submission. Answers to fields that are not rendered are dropped. The form
// is returned alongside so callers can localize validation errors.
func (s *FormServer) submit(ctx context.Context, tt model.TicketType, actor string, answers map[string]string) (*model.Submission, *model.Form, error) {
	f, err := s.Cache.Get(ctx, tt)
	if err != nil {
		return nil, nil, err
	}
	layout := form.BuildLayout(f, answers)
	rendered := layout.RenderedFields()
	if err := model.ValidateAnswers(f, rendered, answers); err != nil {
		return nil, f, err
	}

	var ve model.ValidationError
	kept := make(map[string]string)
	var attachments []string
	for _, fld := range rendered {
		v, ok := answers[fld.ID]
		if !ok || !fld.Type.AcceptsInput() {
			continue
		}
		kept[fld.ID] = v
		if fld.Type != model.FieldFileUpload {
			continue
		}
		for _, key := range model.SplitChoices(v) {
			_, err := s.store.GetUpload(ctx, key)
			if errors.Is(err, sql.ErrNoRows) {
				ve.Errors = append(ve.Errors, model.FieldError{Field: fld.ID, Code: model.CodeNotFound, Message: fmt.Sprintf("upload %q not found", key)})
				continue
			}
			if err != nil {
				return nil, f, fmt.Errorf("look up upload: %w", err)
			}
			attachments = append(attachments, key)
		}
	}
	if ve.HasErrors() {
		return nil, f, &ve
	}

	id, err := idgen.Submission()
	if err != nil {
		return nil, f, err
	}
	sub := &model.Submission{
		ID:              id,
		TicketType:      tt,
		FormVersion:     f.Version,
		Answers:         kept,
		Attachments:     attachments,
		VisibleSections: layout.VisibleSections,
		CreatedBy:       actor,
	}
	if err := s.store.CreateSubmission(ctx, sub); err != nil {
		return nil, f, fmt.Errorf("create submission: %w", err)
	}
	s.recordAndPublish(ctx, events.TopicSubmissionCreated, sub.ID, actor, events.SubmissionCreated{Submission: sub})
	return sub, f, nil
}

// position maps an optional index to the editor's convention, where a
// negative position appends.
func position(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}

// patchChanges lists the attributes a patch sets, keyed by JSON name.
func patchChanges(p any) map[string]any {
	data, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// parseVersion reads an If-Match style version, with or without quotes.
// An empty value means no precondition.
func parseVersion(v string) (int, error) {
	v = strings.Trim(strings.TrimSpace(v), `"`)
	if v == "" || v == "*" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, inputError(fmt.Sprintf("invalid version %q", v))
	}
	return n, nil
}
