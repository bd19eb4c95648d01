package sync

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/alfredjeanlab/formdesk/internal/store"
)

// FormatVersion is written in every export header.
const FormatVersion = "1"

// header is the first JSONL record written by ExportJSONL.
type header struct {
	Version   string    `json:"version"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	FormCount int       `json:"form_count"`
}

// record wraps a single JSONL line with a type discriminator.
type record struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ExportJSONL writes every form definition from the store as JSONL to w,
// sorted by ticket type.
func ExportJSONL(ctx context.Context, s store.Store, w io.Writer) error {
	forms, err := s.ListForms(ctx)
	if err != nil {
		return fmt.Errorf("list forms: %w", err)
	}
	sort.Slice(forms, func(i, j int) bool {
		return forms[i].TicketType < forms[j].TicketType
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{
		Version:   FormatVersion,
		Type:      "header",
		Timestamp: time.Now().UTC(),
		FormCount: len(forms),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}

	for _, f := range forms {
		data, err := json.Marshal(f)
		if err != nil {
			return fmt.Errorf("encode form %s: %w", f.TicketType, err)
		}
		if err := enc.Encode(record{Type: "form", Data: data}); err != nil {
			return fmt.Errorf("encode form %s: %w", f.TicketType, err)
		}
	}
	return nil
}

// ReadJSONL parses an export. Records of unknown type are skipped so newer
// exports stay readable.
func ReadJSONL(r io.Reader) ([]*model.Form, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		forms     []*model.Form
		sawHeader bool
		line      int
		wantForms int
	)
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		if !sawHeader {
			var h header
			if err := json.Unmarshal(sc.Bytes(), &h); err != nil || h.Type != "header" {
				return nil, fmt.Errorf("line %d: missing export header", line)
			}
			if h.Version != FormatVersion {
				return nil, fmt.Errorf("unsupported export version %q", h.Version)
			}
			sawHeader = true
			wantForms = h.FormCount
			continue
		}

		var rec record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Type != "form" {
			continue
		}
		var f model.Form
		if err := json.Unmarshal(rec.Data, &f); err != nil {
			return nil, fmt.Errorf("line %d: decode form: %w", line, err)
		}
		forms = append(forms, &f)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	if !sawHeader {
		return nil, fmt.Errorf("empty export")
	}
	if len(forms) != wantForms {
		return nil, fmt.Errorf("export is truncated: header promises %d forms, found %d", wantForms, len(forms))
	}
	return forms, nil
}

// ImportJSONL restores every form in an export in one transaction. Each form
// is validated first; stored forms of the same ticket type are overwritten.
// It returns the number of forms restored.
func ImportJSONL(ctx context.Context, s store.Store, r io.Reader, actor string) (int, error) {
	forms, err := ReadJSONL(r)
	if err != nil {
		return 0, err
	}
	for _, f := range forms {
		if err := model.ValidateForm(f); err != nil {
			return 0, fmt.Errorf("form %s: %w", f.TicketType, err)
		}
	}

	err = s.RunInTransaction(ctx, func(tx store.Store) error {
		for _, f := range forms {
			f.UpdatedBy = actor
			if err := tx.SaveForm(ctx, f, 0); err != nil {
				return fmt.Errorf("save form %s: %w", f.TicketType, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(forms), nil
}
