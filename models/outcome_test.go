package models

import (
	"errors"
	"testing"
	"time"
)

func TestNewOutcome_PayloadSize(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"absent", "", 0},
		{"ascii", "hello", 5},
		{"multibyte counts bytes", "héllo", 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOutcome(OutcomeParams{Content: tt.content, Succeeded: true})
			if o.PayloadSize != tt.want {
				t.Errorf("PayloadSize = %d, want %d", o.PayloadSize, tt.want)
			}
			if o.PayloadSize != len(o.Content) {
				t.Errorf("PayloadSize %d != len(Content) %d", o.PayloadSize, len(o.Content))
			}
		})
	}
}

func TestNewOutcome_CopiesAttributes(t *testing.T) {
	attrs := Attributes{AttrMarkdown: true}
	o := NewOutcome(OutcomeParams{Attributes: attrs})

	attrs[AttrMarkdown] = false
	attrs[AttrCleanText] = true

	if !o.Attributes.Flag(AttrMarkdown) {
		t.Error("outcome attributes changed after caller mutated its map")
	}
	if o.Attributes.Flag(AttrCleanText) {
		t.Error("outcome picked up a key added after construction")
	}
}

func TestNewOutcome_ElapsedNeverNegative(t *testing.T) {
	o := NewOutcome(OutcomeParams{Elapsed: -time.Second})
	if o.ElapsedSeconds != 0 {
		t.Errorf("ElapsedSeconds = %v, want 0", o.ElapsedSeconds)
	}
}

func TestFailedOutcome(t *testing.T) {
	o := FailedOutcome("https://example.com", "lightweight", 1500*time.Millisecond, 503, errors.New("boom"))
	if o.Succeeded {
		t.Error("failed outcome reports success")
	}
	if o.HasContent() || o.PayloadSize != 0 {
		t.Errorf("failed outcome has content (size %d)", o.PayloadSize)
	}
	if o.ErrorMessage != "boom" {
		t.Errorf("ErrorMessage = %q, want %q", o.ErrorMessage, "boom")
	}
	if o.StatusCode != 503 {
		t.Errorf("StatusCode = %d, want 503", o.StatusCode)
	}
	if o.ElapsedSeconds != 1.5 {
		t.Errorf("ElapsedSeconds = %v, want 1.5", o.ElapsedSeconds)
	}
}

func TestAttributes_Flag(t *testing.T) {
	a := Attributes{"yes": true, "no": false, "str": "true"}
	if !a.Flag("yes") {
		t.Error(`Flag("yes") = false`)
	}
	if a.Flag("no") || a.Flag("str") || a.Flag("missing") {
		t.Error("non-true values reported as set")
	}
	var nilAttrs Attributes
	if nilAttrs.Flag("yes") {
		t.Error("nil attributes reported a flag")
	}
}

func TestCodeOf(t *testing.T) {
	err := NewDuelError(ErrCodeInvalidURL, "bad url", nil)
	wrapped := errors.Join(errors.New("context"), err)
	if got := CodeOf(wrapped); got != ErrCodeInvalidURL {
		t.Errorf("CodeOf = %q, want %q", got, ErrCodeInvalidURL)
	}
	if got := CodeOf(errors.New("plain")); got != ErrCodeInternal {
		t.Errorf("CodeOf(plain) = %q, want %q", got, ErrCodeInternal)
	}
}
