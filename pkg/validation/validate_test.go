package validation

import (
	"errors"
	"strings"
	"testing"

	"baatcheet/pkg/models"
)

func TestValidateSubmitRequiresRecipient(t *testing.T) {
	SetRules(Rules{})
	err := ValidateSubmit("", models.Message{Text: "hi"})
	if !errors.Is(err, ErrMissingRecipient) {
		t.Fatalf("err = %v, want ErrMissingRecipient", err)
	}
}

func TestValidateSubmitRequiresContent(t *testing.T) {
	SetRules(Rules{})
	if err := ValidateSubmit("bob", models.Message{}); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
	// any one content kind is enough
	for _, m := range []models.Message{
		{Text: "hi"},
		{VoiceURL: "https://cdn/x.ogg", VoiceDuration: 2},
		{Attachments: []models.Attachment{{FileURL: "https://cdn/doc.pdf"}}},
	} {
		if err := ValidateSubmit("bob", m); err != nil {
			t.Fatalf("ValidateSubmit(%+v): %v", m, err)
		}
	}
}

func TestValidateSubmitBounds(t *testing.T) {
	SetRules(Rules{MaxTextLen: 10, MaxAttachments: 1, MaxVoiceDuration: 60})
	defer SetRules(Rules{})

	if err := ValidateSubmit("bob", models.Message{Text: strings.Repeat("a", 11)}); err == nil {
		t.Fatal("oversized text accepted")
	}
	if err := ValidateSubmit("bob", models.Message{Attachments: []models.Attachment{
		{FileURL: "u1"}, {FileURL: "u2"},
	}}); err == nil {
		t.Fatal("too many attachments accepted")
	}
	if err := ValidateSubmit("bob", models.Message{VoiceURL: "u", VoiceDuration: 61}); err == nil {
		t.Fatal("overlong voice note accepted")
	}
	if err := ValidateSubmit("bob", models.Message{Text: "short"}); err != nil {
		t.Fatalf("in-bounds message rejected: %v", err)
	}
}

func TestValidateSubmitAttachmentURLRequired(t *testing.T) {
	SetRules(Rules{})
	err := ValidateSubmit("bob", models.Message{Attachments: []models.Attachment{{FileName: "x"}}})
	if err == nil {
		t.Fatal("attachment without fileUrl accepted")
	}
}
