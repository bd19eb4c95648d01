// Package formfile reads and writes form definitions on disk. Definitions
// are authored as YAML or as JSONC (JSON with comments and trailing commas).
package formfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/alfredjeanlab/formdesk/internal/model"
)

// Format is a definition file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json", ".jsonc":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported definition file %q (want .yaml, .yml, .json or .jsonc)", path)
}

// Parse decodes a form definition. JSON input may carry // and /* */
// comments and trailing commas. Unknown keys are rejected so typos in
// hand-written files surface early.
func Parse(data []byte, format Format) (*model.Form, error) {
	var f model.Form
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parsing form definition: %w", err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("parsing form definition: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if f.Fields == nil {
		f.Fields = []model.FormField{}
	}
	if f.Sections == nil {
		f.Sections = []model.FormSection{}
	}
	return &f, nil
}

// ReadFile reads and parses a definition file, choosing the format from
// its extension.
func ReadFile(path string) (*model.Form, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Marshal encodes f as a definition file. Server-managed metadata
// (timestamps, author) is left out of YAML output.
func Marshal(f *model.Form, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return nil, fmt.Errorf("encoding form: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encoding form: %w", err)
		}
		return buf.Bytes(), nil
	case FormatJSON:
		data, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding form: %w", err)
		}
		return append(data, '\n'), nil
	}
	return nil, fmt.Errorf("unknown format %q", format)
}

// WriteFile encodes f in the format implied by path and writes it.
func WriteFile(path string, f *model.Form) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	data, err := Marshal(f, format)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
