package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/alfredjeanlab/formdesk/internal/events"
	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/alfredjeanlab/formdesk/internal/presence"
)

// formResponse is the body of field and section mutations.
type formResponse struct {
	Form    model.Form         `json:"form"`
	Field   *model.FormField   `json:"field"`
	Section *model.FormSection `json:"section"`
	Moved   bool               `json:"moved"`
}

func TestHealth(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(t, e.handler, "GET", "/v1/health", nil)
	requireStatus(t, rec, http.StatusOK)
}

func TestFormLifecycle(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(t, e.handler, "PUT", "/v1/forms/bug", bugForm(), ActorHeader, "alice")
	requireStatus(t, rec, http.StatusOK)
	if etag := rec.Header().Get("ETag"); etag != `"1"` {
		t.Fatalf("ETag = %q, want \"1\"", etag)
	}
	var saved model.Form
	decodeBody(t, rec, &saved)
	if saved.Version != 1 || saved.UpdatedBy != "alice" {
		t.Fatalf("saved = %+v", saved)
	}

	rec = doJSON(t, e.handler, "GET", "/v1/forms", nil)
	requireStatus(t, rec, http.StatusOK)
	var list struct {
		Forms []model.FormSummary `json:"forms"`
		Total int                 `json:"total"`
	}
	decodeBody(t, rec, &list)
	if list.Total != 1 || list.Forms[0].TicketType != "bug" {
		t.Fatalf("list = %+v", list)
	}

	rec = doJSON(t, e.handler, "PUT", "/v1/forms/bug", bugForm(), "If-Match", `"1"`)
	requireStatus(t, rec, http.StatusOK)
	if etag := rec.Header().Get("ETag"); etag != `"2"` {
		t.Fatalf("ETag = %q, want \"2\"", etag)
	}

	rec = doJSON(t, e.handler, "PUT", "/v1/forms/bug", bugForm(), "If-Match", `"1"`)
	requireStatus(t, rec, http.StatusConflict)

	rec = doJSON(t, e.handler, "GET", "/v1/forms/bug/events", nil)
	requireStatus(t, rec, http.StatusOK)
	var evts struct {
		Events []model.Event `json:"events"`
	}
	decodeBody(t, rec, &evts)
	if len(evts.Events) != 2 || evts.Events[0].Topic != events.TopicFormSaved {
		t.Fatalf("events = %+v", evts.Events)
	}

	rec = doJSON(t, e.handler, "DELETE", "/v1/forms/bug", nil)
	requireStatus(t, rec, http.StatusNoContent)

	rec = doJSON(t, e.handler, "GET", "/v1/forms/bug", nil)
	requireStatus(t, rec, http.StatusNotFound)
	var errBody map[string]string
	decodeBody(t, rec, &errBody)
	if errBody["error"] != `no form configured for ticket type "bug"` {
		t.Fatalf("error = %q", errBody["error"])
	}

	if topics := e.pub.Topics(); !slices.Contains(topics, events.TopicFormDeleted) {
		t.Errorf("published %v, want %s", topics, events.TopicFormDeleted)
	}
}

func TestPutForm_Rejects(t *testing.T) {
	e := newTestServer(t)

	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"mismatched ticket type", "/v1/forms/support", bugForm(), http.StatusBadRequest},
		{"untitled section", "/v1/forms/bug", &model.Form{Sections: []model.FormSection{{ID: "S0"}}}, http.StatusBadRequest},
		{"bad version", "/v1/forms/bug", bugForm(), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var headers []string
			if tt.name == "bad version" {
				headers = []string{"If-Match", "abc"}
			}
			rec := doJSON(t, e.handler, "PUT", tt.path, tt.body, headers...)
			requireStatus(t, rec, tt.want)
		})
	}

	rec := doJSON(t, e.handler, "PUT", "/v1/forms/bug", &model.Form{Sections: []model.FormSection{{ID: "S0"}}})
	var body struct {
		Details []model.FieldError `json:"details"`
	}
	decodeBody(t, rec, &body)
	if len(body.Details) != 1 || body.Details[0].Field != "sections[S0].title" {
		t.Fatalf("details = %+v", body.Details)
	}
}

func TestPutForm_NormalizesOrders(t *testing.T) {
	e := newTestServer(t)
	in := &model.Form{
		Fields: []model.FormField{
			{ID: "b", Type: model.FieldText, Label: "B", Order: 9},
			{ID: "a", Type: model.FieldText, Label: "A", Order: 3},
		},
	}
	rec := doJSON(t, e.handler, "PUT", "/v1/forms/support", in)
	requireStatus(t, rec, http.StatusOK)
	var f model.Form
	decodeBody(t, rec, &f)
	if f.Field("a").Order != 0 || f.Field("b").Order != 1 {
		t.Fatalf("orders a=%d b=%d", f.Field("a").Order, f.Field("b").Order)
	}
}

func TestAddField(t *testing.T) {
	e := newTestServer(t)
	e.seed(t, bugForm())

	rec := doJSON(t, e.handler, "POST", "/v1/forms/bug/fields",
		map[string]any{"type": "text", "label": "Environment", "section_id": "S1", "position": 0},
		ActorHeader, "alice")
	requireStatus(t, rec, http.StatusCreated)
	if etag := rec.Header().Get("ETag"); etag != `"2"` {
		t.Fatalf("ETag = %q", etag)
	}
	var resp formResponse
	decodeBody(t, rec, &resp)
	if resp.Field == nil || resp.Field.ID == "" || resp.Field.Order != 0 {
		t.Fatalf("field = %+v", resp.Field)
	}
	if resp.Form.Field("steps").Order != 1 || resp.Form.Field("expected").Order != 2 {
		t.Fatalf("siblings not shifted: %+v", resp.Form.FieldsIn("S1"))
	}
	if topics := e.pub.Topics(); !slices.Contains(topics, events.TopicFieldAdded) {
		t.Errorf("published %v", topics)
	}
	editors := e.srv.Presence.Editors("bug", 0)
	if len(editors) != 1 || editors[0].LastAction != "field.added" || editors[0].LastTarget != resp.Field.ID {
		t.Errorf("presence = %+v", editors)
	}

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"invalid type", map[string]any{"type": "slider", "label": "X"}, http.StatusBadRequest},
		{"unknown section", map[string]any{"type": "text", "label": "X", "section_id": "S9"}, http.StatusNotFound},
		{"duplicate id", map[string]any{"id": "summary", "type": "text", "label": "X"}, http.StatusBadRequest},
		{"missing label", map[string]any{"type": "text"}, http.StatusBadRequest},
		{"options required", map[string]any{"type": "dropdown", "label": "X"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, e.handler, "POST", "/v1/forms/bug/fields", tt.body)
			requireStatus(t, rec, tt.want)
		})
	}

	rec = doJSON(t, e.handler, "POST", "/v1/forms/appeal/fields", map[string]any{"type": "text", "label": "X"})
	requireStatus(t, rec, http.StatusNotFound)
}

func TestAddField_IfMatch(t *testing.T) {
	e := newTestServer(t)
	e.seed(t, bugForm())

	body := map[string]any{"type": "text", "label": "Environment"}
	rec := doJSON(t, e.handler, "POST", "/v1/forms/bug/fields", body, "If-Match", `"7"`)
	requireStatus(t, rec, http.StatusConflict)

	rec = doJSON(t, e.handler, "POST", "/v1/forms/bug/fields", body, "If-Match", `"1"`)
	requireStatus(t, rec, http.StatusCreated)
}

func TestUpdateField(t *testing.T) {
	e := newTestServer(t)
	e.seed(t, bugForm())

	rec := doJSON(t, e.handler, "PATCH", "/v1/forms/bug/fields/summary", map[string]any{"label": "Title", "required": false})
	requireStatus(t, rec, http.StatusOK)
	var resp formResponse
	decodeBody(t, rec, &resp)
	if resp.Field.Label != "Title" || resp.Field.Required {
		t.Fatalf("field = %+v", resp.Field)
	}

	rec = doJSON(t, e.handler, "PATCH", "/v1/forms/bug/fields/nope", map[string]any{"label": "X"})
	requireStatus(t, rec, http.StatusNotFound)

	rec = doJSON(t, e.handler, "PATCH", "/v1/forms/bug/fields/summary", map[string]any{"type": "slider"})
	requireStatus(t, rec, http.StatusBadRequest)
}

func TestRemoveField_DetachesRules(t *testing.T) {
	e := newTestServer(t)
	e.seed(t, bugForm())

	rec := doJSON(t, e.handler, "DELETE", "/v1/forms/bug/fields/kind", nil)
	requireStatus(t, rec, http.StatusOK)
	var resp formResponse
	decodeBody(t, rec, &resp)
	if resp.Form.Field("kind") != nil {
		t.Fatal("kind still present")
	}
	s1 := resp.Form.Section("S1")
	if s1.ShowIfFieldID != "" || s1.ShowIfValue != "" || !s1.HideByDefault {
		t.Fatalf("S1 rule not detached: %+v", s1)
	}

	rec = doJSON(t, e.handler, "DELETE", "/v1/forms/bug/fields/kind", nil)
	requireStatus(t, rec, http.StatusNotFound)
}

func TestRemoveSection_RemovesFields(t *testing.T) {
	e := newTestServer(t)
	e.seed(t, bugForm())

	rec := doJSON(t, e.handler, "DELETE", "/v1/forms/bug/sections/S1", nil)
	requireStatus(t, rec, http.StatusOK)
	var resp formResponse
	decodeBody(t, rec, &resp)
	if resp.Form.Section("S1") != nil || resp.Form.Field("steps") != nil || resp.Form.Field("expected") != nil {
		t.Fatalf("S1 not removed with its fields: %+v", resp.Form)
	}
	if resp.Form.Section("S2").Order != 1 {
		t.Errorf("S2 order = %d, want 1", resp.Form.Section("S2").Order)
	}
}

func TestReorderFields_Midpoint(t *testing.T) {
	e := newTestServer(t)
	e.seed(t, bugForm())

	rect := map[string]float64{"top": 100, "bottom": 140}

	// Dragging down above the hovered field's midpoint does not commit.
	rec := doJSON(t, e.handler, "POST", "/v1/forms/bug/fields/reorder", map[string]any{
		"section_id": "S1", "drag_index": 0, "hover_index": 1, "hover_rect": rect, "pointer_y": 110,
	})
	requireStatus(t, rec, http.StatusOK)
	var resp formResponse
	decodeBody(t, rec, &resp)
	if resp.Moved || resp.Form.Version != 1 {
		t.Fatalf("moved=%v version=%d, want no move", resp.Moved, resp.Form.Version)
	}

	rec = doJSON(t, e.handler, "POST", "/v1/forms/bug/fields/reorder", map[string]any{
		"section_id": "S1", "drag_index": 0, "hover_index": 1, "hover_rect": rect, "pointer_y": 130,
	})
	requireStatus(t, rec, http.StatusOK)
	resp = formResponse{}
	decodeBody(t, rec, &resp)
	if !resp.Moved || resp.Form.Version != 2 {
		t.Fatalf("moved=%v version=%d, want a move", resp.Moved, resp.Form.Version)
	}
	if resp.Form.Field("expected").Order != 0 || resp.Form.Field("steps").Order != 1 {
		t.Fatalf("orders: %+v", resp.Form.FieldsIn("S1"))
	}
}

func TestReorderFields_Gestures(t *testing.T) {
	e := newTestServer(t)
	e.seed(t, bugForm())

	rec := doJSON(t, e.handler, "POST", "/v1/forms/bug/fields/reorder", map[string]any{
		"section_id": "S1", "drag_index": 0, "ticks": []map[string]any{{"hover_index": 1}}, "cancelled": true,
	})
	requireStatus(t, rec, http.StatusOK)
	var resp formResponse
	decodeBody(t, rec, &resp)
	if resp.Moved {
		t.Fatal("cancelled gesture should not move")
	}

	rec = doJSON(t, e.handler, "POST", "/v1/forms/bug/fields/reorder", map[string]any{
		"section_id": "S1", "drag_index": 0, "ticks": []map[string]any{{"hover_index": 1}},
	})
	requireStatus(t, rec, http.StatusOK)
	resp = formResponse{}
	decodeBody(t, rec, &resp)
	if !resp.Moved || resp.Form.Field("steps").Order != 1 {
		t.Fatalf("moved=%v fields=%+v", resp.Moved, resp.Form.FieldsIn("S1"))
	}
}

func TestReorderFields_Rejects(t *testing.T) {
	e := newTestServer(t)
	e.seed(t, bugForm())

	rec := doJSON(t, e.handler, "POST", "/v1/forms/bug/fields/reorder", map[string]any{"section_id": "S1", "drag_index": 5, "hover_index": 0})
	requireStatus(t, rec, http.StatusBadRequest)

	rec = doJSON(t, e.handler, "POST", "/v1/forms/bug/fields/reorder", map[string]any{"section_id": "S9", "drag_index": 0, "hover_index": 1})
	requireStatus(t, rec, http.StatusNotFound)
}

func TestMoveField(t *testing.T) {
	e := newTestServer(t)
	e.seed(t, bugForm())

	rec := doJSON(t, e.handler, "POST", "/v1/forms/bug/fields/summary/move",
		map[string]any{"from_section_id": "S0", "to_section_id": "S1", "target_index": 0})
	requireStatus(t, rec, http.StatusOK)
	var resp formResponse
	decodeBody(t, rec, &resp)
	got := resp.Form.Field("summary")
	if got.SectionID != "S1" || got.Order != 0 || resp.Form.Field("steps").Order != 1 {
		t.Fatalf("summary=%+v S1=%+v", got, resp.Form.FieldsIn("S1"))
	}

	// Replaying the same move finds the field elsewhere.
	rec = doJSON(t, e.handler, "POST", "/v1/forms/bug/fields/summary/move",
		map[string]any{"from_section_id": "S0", "to_section_id": "S1", "target_index": 0})
	requireStatus(t, rec, http.StatusConflict)
}

func TestSections(t *testing.T) {
	e := newTestServer(t)
	e.seed(t, bugForm())

	rec := doJSON(t, e.handler, "POST", "/v1/forms/bug/sections", map[string]any{"title": "Environment"})
	requireStatus(t, rec, http.StatusCreated)
	var resp formResponse
	decodeBody(t, rec, &resp)
	if resp.Section == nil || resp.Section.ID == "" || resp.Section.Order != 3 {
		t.Fatalf("section = %+v", resp.Section)
	}

	rec = doJSON(t, e.handler, "POST", "/v1/forms/bug/sections", map[string]any{"title": "X", "show_if_field_id": "nope", "show_if_value": "y"})
	requireStatus(t, rec, http.StatusNotFound)

	rec = doJSON(t, e.handler, "PATCH", "/v1/forms/bug/sections/S1", map[string]any{"title": "Details"})
	requireStatus(t, rec, http.StatusOK)
	resp = formResponse{}
	decodeBody(t, rec, &resp)
	if resp.Section.Title != "Details" || resp.Section.ShowIfFieldID != "kind" {
		t.Fatalf("section = %+v", resp.Section)
	}

	rec = doJSON(t, e.handler, "POST", "/v1/forms/bug/sections/reorder", map[string]any{"drag_index": 2, "hover_index": 0})
	requireStatus(t, rec, http.StatusOK)
	resp = formResponse{}
	decodeBody(t, rec, &resp)
	if !resp.Moved || resp.Form.Section("S2").Order != 0 || resp.Form.Section("S0").Order != 1 {
		t.Fatalf("moved=%v sections=%+v", resp.Moved, resp.Form.Sections)
	}

	rec = doJSON(t, e.handler, "DELETE", "/v1/forms/bug/sections/S9", nil)
	requireStatus(t, rec, http.StatusNotFound)
}

func TestPresence(t *testing.T) {
	e := newTestServer(t)
	e.seed(t, bugForm())

	rec := doJSON(t, e.handler, "POST", "/v1/forms/bug/presence", nil)
	requireStatus(t, rec, http.StatusBadRequest)

	rec = doJSON(t, e.handler, "POST", "/v1/forms/bug/presence", nil, ActorHeader, "alice")
	requireStatus(t, rec, http.StatusOK)
	var resp struct {
		Editors []presence.Entry `json:"editors"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Editors) != 1 || resp.Editors[0].Actor != "alice" {
		t.Fatalf("editors = %+v", resp.Editors)
	}

	rec = doJSON(t, e.handler, "POST", "/v1/forms/appeal/presence", nil, ActorHeader, "alice")
	requireStatus(t, rec, http.StatusNotFound)

	rec = doJSON(t, e.handler, "POST", "/v1/forms/bug/presence", map[string]bool{"leave": true}, ActorHeader, "alice")
	requireStatus(t, rec, http.StatusNoContent)

	rec = doJSON(t, e.handler, "GET", "/v1/forms/bug/presence", nil)
	requireStatus(t, rec, http.StatusOK)
	resp.Editors = nil
	decodeBody(t, rec, &resp)
	if len(resp.Editors) != 0 {
		t.Fatalf("editors after leave = %+v", resp.Editors)
	}

	rec = doJSON(t, e.handler, "GET", "/v1/forms/bug/presence?stale=soon", nil)
	requireStatus(t, rec, http.StatusBadRequest)
}

func TestSubmissionsEndpoints(t *testing.T) {
	e := newTestServer(t)
	e.seed(t, bugForm())

	rec := doJSON(t, e.handler, "POST", "/v1/public/forms/bug/submissions",
		map[string]any{"answers": map[string]string{"kind": "bug", "summary": "Crash", "steps": "Open it"}},
		ActorHeader, "carol")
	requireStatus(t, rec, http.StatusCreated)
	var sub model.Submission
	decodeBody(t, rec, &sub)

	rec = doJSON(t, e.handler, "GET", "/v1/submissions?ticket_type=bug&created_by=carol", nil)
	requireStatus(t, rec, http.StatusOK)
	var list struct {
		Submissions []model.Submission `json:"submissions"`
		Total       int                `json:"total"`
	}
	decodeBody(t, rec, &list)
	if list.Total != 1 || list.Submissions[0].ID != sub.ID {
		t.Fatalf("list = %+v", list)
	}

	rec = doJSON(t, e.handler, "GET", "/v1/submissions/"+sub.ID, nil)
	requireStatus(t, rec, http.StatusOK)

	rec = doJSON(t, e.handler, "GET", "/v1/submissions/sub-missing", nil)
	requireStatus(t, rec, http.StatusNotFound)
}

// pngBytes is a PNG signature followed by padding; enough to sniff.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

func multipartUpload(t *testing.T, handler http.Handler, path, uploadType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if uploadType != "" {
		_ = mw.WriteField("upload_type", uploadType)
	}
	fw, err := mw.CreateFormFile("file", "shot.png")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = fw.Write(data)
	_ = mw.Close()

	req := httptest.NewRequest("POST", path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(ActorHeader, "alice")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestMediaUpload(t *testing.T) {
	e := newTestServer(t)

	rec := multipartUpload(t, e.handler, "/v1/media", "avatar", pngBytes)
	requireStatus(t, rec, http.StatusCreated)
	var u model.Upload
	decodeBody(t, rec, &u)
	if u.ContentType != "image/png" || u.UploadType != model.UploadAvatar || u.CreatedBy != "alice" {
		t.Fatalf("upload = %+v", u)
	}

	rec = doJSON(t, e.handler, "GET", u.URL, nil)
	requireStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), pngBytes) {
		t.Error("served bytes differ from upload")
	}

	rec = doJSON(t, e.handler, "GET", mediaObjectsPath+"/avatar/missing.png", nil)
	requireStatus(t, rec, http.StatusNotFound)

	if topics := e.pub.Topics(); !slices.Contains(topics, events.TopicUploadCreated) {
		t.Errorf("published %v", topics)
	}
}

func TestMediaUpload_Rejects(t *testing.T) {
	e := newTestServer(t)

	tests := []struct {
		name       string
		uploadType string
		data       []byte
		want       int
	}{
		{"unknown type", "poster", pngBytes, http.StatusBadRequest},
		{"empty file", "avatar", nil, http.StatusBadRequest},
		{"not an image", "avatar", []byte("just some text"), http.StatusUnsupportedMediaType},
		{"too large", "avatar", append(append([]byte(nil), pngBytes...), make([]byte, 2<<20)...), http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := multipartUpload(t, e.handler, "/v1/media", tt.uploadType, tt.data)
			requireStatus(t, rec, tt.want)
		})
	}

	rec := doJSON(t, e.handler, "POST", "/v1/media", map[string]string{"file": "x"})
	requireStatus(t, rec, http.StatusBadRequest)
}
