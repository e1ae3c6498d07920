package i18n

import (
	"context"
	"strings"
	"testing"
)

func initTest(t *testing.T) {
	t.Helper()
	if err := Init("en"); err != nil {
		t.Fatalf("Init: %v", err)
	}
}

func TestT(t *testing.T) {
	initTest(t)

	tests := []struct {
		name string
		lang string
		id   string
		want string
	}{
		{"english", "en", "Unanswered", "Unanswered"},
		{"spanish", "es", "Unanswered", "No respondida"},
		{"spanish score", "es", "Score", "Puntuación"},
		{"unknown lang falls back", "de", "Unanswered", "Unanswered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithLocalizer(context.Background(), NewLocalizer(tt.lang))
			if got := T(ctx, tt.id); got != tt.want {
				t.Errorf("T(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestTMissingMessageReturnsID(t *testing.T) {
	initTest(t)
	ctx := WithLocalizer(context.Background(), NewLocalizer("en"))
	if got := T(ctx, "NoSuchMessage"); got != "NoSuchMessage" {
		t.Errorf("missing message should return the ID, got %q", got)
	}
}

func TestTWithoutLocalizerInContext(t *testing.T) {
	initTest(t)
	if got := T(context.Background(), "Unanswered"); got != "Unanswered" {
		t.Errorf("expected English fallback, got %q", got)
	}
}

func TestTd(t *testing.T) {
	initTest(t)
	ctx := WithLocalizer(context.Background(), NewLocalizer("en"))
	got := Td(ctx, "ResultsSaved", map[string]any{"Path": "out/report.md"})
	if !strings.Contains(got, "out/report.md") {
		t.Errorf("Td should interpolate the path, got %q", got)
	}
}

func TestInitInvalidLanguage(t *testing.T) {
	if err := Init("no a lang!!"); err == nil {
		t.Error("expected error for invalid language tag")
	}
}
