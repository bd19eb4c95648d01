// Package i18n localizes the messages shown to people filling in ticket
// forms. Admin-facing errors stay in English.
package i18n

import (
	"embed"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/alfredjeanlab/formdesk/internal/model"
)

//go:embed locales/*.toml
var localesFS embed.FS

// Catalog holds the compiled message bundle.
type Catalog struct {
	bundle  *i18n.Bundle
	matcher language.Matcher
}

// New loads the embedded message files. English is the fallback.
func New() (*Catalog, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := localesFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}
	for _, e := range entries {
		if _, err := bundle.LoadMessageFileFS(localesFS, "locales/"+e.Name()); err != nil {
			return nil, fmt.Errorf("load locale file %s: %w", e.Name(), err)
		}
	}

	// The matcher falls back to its first tag.
	supported := []language.Tag{language.English}
	for _, tag := range bundle.LanguageTags() {
		if tag != language.English {
			supported = append(supported, tag)
		}
	}
	return &Catalog{bundle: bundle, matcher: language.NewMatcher(supported)}, nil
}

// Languages returns the supported language tags.
func (c *Catalog) Languages() []string {
	tags := c.bundle.LanguageTags()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

// Match picks the supported language for an Accept-Language header value,
// suitable for a Content-Language response header.
func (c *Catalog) Match(acceptLanguage string) string {
	tag, _ := language.MatchStrings(c.matcher, acceptLanguage)
	base, _ := tag.Base()
	return base.String()
}

// Localizer translates messages for one request.
type Localizer struct {
	loc *i18n.Localizer
}

// For returns a localizer for an Accept-Language header value.
func (c *Catalog) For(acceptLanguage string) *Localizer {
	return &Localizer{loc: i18n.NewLocalizer(c.bundle, acceptLanguage)}
}

func (l *Localizer) message(id string, count int, data map[string]any) (string, bool) {
	cfg := &i18n.LocalizeConfig{MessageID: id, TemplateData: data}
	if count >= 0 {
		cfg.PluralCount = count
	}
	s, err := l.loc.Localize(cfg)
	if err != nil {
		return "", false
	}
	return s, true
}

// FormNotConfigured is the message for a ticket type without a form.
func (l *Localizer) FormNotConfigured(ticketType model.TicketType) string {
	if s, ok := l.message("form_not_configured", -1, map[string]any{"TicketType": ticketType}); ok {
		return s
	}
	return fmt.Sprintf("no form configured for ticket type %q", ticketType)
}

// ValidationSummary is the headline for a failed submission.
func (l *Localizer) ValidationSummary(count int) string {
	if s, ok := l.message("validation_failed", count, map[string]any{"Count": count}); ok {
		return s
	}
	return "validation failed"
}

// Answers returns a copy of ve whose messages are localized for the person
// filling in f. Errors without a translation keep their original message.
func (l *Localizer) Answers(f *model.Form, ve *model.ValidationError) *model.ValidationError {
	out := &model.ValidationError{Errors: make([]model.FieldError, len(ve.Errors))}
	for i, fe := range ve.Errors {
		out.Errors[i] = fe
		if msg, ok := l.answerMessage(f, fe); ok {
			out.Errors[i].Message = msg
		}
	}
	return out
}

func (l *Localizer) answerMessage(f *model.Form, fe model.FieldError) (string, bool) {
	data := map[string]any{"Field": fe.Field, "Label": fe.Field}
	var fld *model.FormField
	if f != nil {
		fld = f.Field(fe.Field)
	}
	if fld != nil {
		if fld.Label != "" {
			data["Label"] = fld.Label
		}
		data["Options"] = strings.Join(fld.Options, ", ")
	}

	var id string
	switch fe.Code {
	case model.CodeRequired:
		id = "answer_required"
	case model.CodeInvalidOption:
		id = "answer_invalid_option"
	case model.CodeInvalid:
		if fld == nil || fld.Type != model.FieldCheckbox {
			return "", false
		}
		id = "answer_invalid_checkbox"
	case model.CodeUnknownField:
		id = "answer_unknown_field"
	case model.CodeNotAnswerable:
		id = "answer_not_answerable"
	default:
		return "", false
	}
	return l.message(id, -1, data)
}
