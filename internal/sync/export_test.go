package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/alfredjeanlab/formdesk/internal/model"
)

func testForm(tt model.TicketType) *model.Form {
	return &model.Form{
		TicketType: tt,
		Version:    2,
		Sections:   []model.FormSection{{ID: "S0", Title: "General"}},
		Fields: []model.FormField{
			{ID: "summary", Type: model.FieldText, Label: "Summary", SectionID: "S0"},
		},
	}
}

func TestExportJSONL_Empty(t *testing.T) {
	ms := newMockStore()
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), ms, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected 1 line (header only), got %d", len(lines))
	}

	var h header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != FormatVersion || h.Type != "header" || h.FormCount != 0 {
		t.Fatalf("unexpected header: %+v", h)
	}
}

func TestExportJSONL_SortedForms(t *testing.T) {
	ms := newMockStore()
	ms.forms["support"] = testForm("support")
	ms.forms["bug"] = testForm("bug")
	ms.forms["appeal"] = testForm("appeal")

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), ms, &buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}

	var got []model.TicketType
	for _, line := range lines[1:] {
		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if rec.Type != "form" {
			t.Fatalf("expected form record, got %q", rec.Type)
		}
		var f model.Form
		if err := json.Unmarshal(rec.Data, &f); err != nil {
			t.Fatalf("unmarshal form: %v", err)
		}
		got = append(got, f.TicketType)
	}
	if got[0] != "appeal" || got[1] != "bug" || got[2] != "support" {
		t.Fatalf("forms not sorted: %v", got)
	}
}

func TestReadJSONL_RoundTrip(t *testing.T) {
	ms := newMockStore()
	ms.forms["bug"] = testForm("bug")

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), ms, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}
	// Unknown record types from newer exports are skipped.
	buf.WriteString(`{"type":"submission","data":{}}` + "\n")

	forms, err := ReadJSONL(&buf)
	if err != nil {
		t.Fatalf("ReadJSONL: %v", err)
	}
	if len(forms) != 1 || forms[0].Field("summary") == nil {
		t.Fatalf("got %+v", forms)
	}
}

func TestReadJSONL_Errors(t *testing.T) {
	for name, input := range map[string]string{
		"empty":        "",
		"no header":    `{"type":"form","data":{}}`,
		"bad version":  `{"type":"header","version":"9","form_count":0}`,
		"truncated":    `{"type":"header","version":"1","form_count":2}` + "\n" + `{"type":"form","data":{"ticket_type":"bug"}}`,
		"garbage line": `{"type":"header","version":"1","form_count":1}` + "\n" + `nope`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadJSONL(strings.NewReader(input)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestImportJSONL(t *testing.T) {
	src := newMockStore()
	src.forms["bug"] = testForm("bug")
	src.forms["support"] = testForm("support")
	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), src, &buf); err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := newMockStore()
	n, err := ImportJSONL(context.Background(), dst, bytes.NewReader(buf.Bytes()), "restore")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 || len(dst.forms) != 2 {
		t.Fatalf("expected 2 forms restored, got n=%d stored=%d", n, len(dst.forms))
	}
	if dst.forms["bug"].UpdatedBy != "restore" {
		t.Errorf("expected updated_by=restore, got %q", dst.forms["bug"].UpdatedBy)
	}

	// A failing save rolls back the whole import.
	failing := newMockStore()
	failing.failOn = "support"
	if _, err := ImportJSONL(context.Background(), failing, bytes.NewReader(buf.Bytes()), "restore"); err == nil {
		t.Fatal("expected error")
	}
	if len(failing.forms) != 0 {
		t.Fatalf("expected rollback, %d forms stored", len(failing.forms))
	}
}

func TestImportJSONL_RejectsInvalidForms(t *testing.T) {
	bad := testForm("bug")
	bad.Fields[0].SectionID = "missing"
	data, _ := json.Marshal(bad)

	input := `{"type":"header","version":"1","form_count":1}` + "\n" +
		`{"type":"form","data":` + string(data) + `}` + "\n"

	ms := newMockStore()
	if _, err := ImportJSONL(context.Background(), ms, strings.NewReader(input), "x"); err == nil {
		t.Fatal("expected validation error")
	}
	if len(ms.forms) != 0 {
		t.Fatal("nothing should be stored")
	}
}

func nonEmptyLines(s string) []string {
	var result []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			result = append(result, line)
		}
	}
	return result
}
