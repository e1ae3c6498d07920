// Package i18n localizes user-facing strings: report headings, notices and
// API error messages. A localizer travels in the context so report and
// handler code pick the request's language without threading it explicitly.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

type ctxKey struct{}

var bundle *i18n.Bundle

// Init builds the translation bundle with the given default language and
// loads every embedded locale file into it.
func Init(defaultLang string) error {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return fmt.Errorf("parse language %q: %w", defaultLang, err)
	}

	b := i18n.NewBundle(tag)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if _, err := b.LoadMessageFileFS(localeFS, "locales/"+e.Name()); err != nil {
			return fmt.Errorf("load locale %s: %w", e.Name(), err)
		}
	}

	bundle = b
	slog.Debug("translation bundle ready", "locales", len(entries), "default", defaultLang)
	return nil
}

// NewLocalizer creates a localizer for the given language. Unknown tags
// fall back to the bundle's default language.
func NewLocalizer(lang string) *i18n.Localizer {
	return i18n.NewLocalizer(bundle, lang)
}

// WithLocalizer attaches a localizer to the context.
func WithLocalizer(ctx context.Context, loc *i18n.Localizer) context.Context {
	return context.WithValue(ctx, ctxKey{}, loc)
}

// T translates a message ID using the context's localizer. A missing
// translation comes back as the ID itself.
func T(ctx context.Context, msgID string) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID})
}

// Td translates a message ID, filling the message template with data.
func Td(ctx context.Context, msgID string, data map[string]any) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID, TemplateData: data})
}

func localize(ctx context.Context, cfg *i18n.LocalizeConfig) string {
	loc, ok := ctx.Value(ctxKey{}).(*i18n.Localizer)
	if !ok {
		// Contexts without a localizer (startup, tests) read as English.
		loc = i18n.NewLocalizer(bundle, "en")
	}
	s, err := loc.Localize(cfg)
	if err != nil {
		slog.Warn("missing translation", "id", cfg.MessageID, "error", err)
		return cfg.MessageID
	}
	return s
}
