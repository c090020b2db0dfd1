package intern

import (
	"errors"
	"strings"
	"testing"

	qcerrors "github.com/wippyai/qcvm-bridge/errors"
)

func TestUnescape(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no escapes", "plain text", "plain text"},
		{"newline", "a\\nb", "a\nb"},
		{"backslash", "a\\\\b", "a\\b"},
		{"escaped backslash before n", "a\\\\nb", "a\\nb"},
		{"unknown escape kept", "a\\tb", "a\\tb"},
		{"mixed", "\\n\\\\\\n", "\n\\\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Unescape(tt.input, MaxInfoString)
			if err != nil {
				t.Fatalf("Unescape(%q) failed: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Unescape(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestUnescape_TrailingBackslash(t *testing.T) {
	for _, input := range []string{"abc\\", "\\", "a\\\\\\"} {
		_, err := Unescape(input, MaxInfoString)
		if !errors.Is(err, &qcerrors.Error{Phase: qcerrors.PhaseIntern, Kind: qcerrors.KindMalformedInput}) {
			t.Errorf("Unescape(%q) error = %v, want malformed input", input, err)
		}
	}
}

func TestUnescape_LengthBoundary(t *testing.T) {
	atMax := "\\n" + strings.Repeat("x", MaxInfoString-2)
	if len(atMax) != MaxInfoString {
		t.Fatalf("test input has length %d", len(atMax))
	}
	got, err := Unescape(atMax, MaxInfoString)
	if err != nil {
		t.Fatalf("input at max length failed: %v", err)
	}
	if len(got) != MaxInfoString-1 || got[0] != '\n' {
		t.Errorf("unexpected decode of boundary input (len %d)", len(got))
	}

	over := atMax + "x"
	if _, err := Unescape(over, MaxInfoString); qcerrors.KindOf(err) != qcerrors.KindMalformedInput {
		t.Errorf("input one byte over max: err = %v", err)
	}

	plain := strings.Repeat("y", MaxInfoString*2)
	if got, err := Unescape(plain, MaxInfoString); err != nil || got != plain {
		t.Error("text without escapes passes through regardless of length")
	}
}
