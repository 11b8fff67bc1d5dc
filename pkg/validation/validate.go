// Package validation rejects malformed message intents before anything
// touches storage.
package validation

import (
	"errors"
	"fmt"

	"baatcheet/pkg/models"
)

var (
	// ErrMissingRecipient is returned when a message names no recipient.
	ErrMissingRecipient = errors.New("recipient required")
	// ErrEmptyMessage is returned when a message carries neither text,
	// voice, nor attachments.
	ErrEmptyMessage = errors.New("message has no content")
)

// Rules bounds message fields. Zero values disable a rule.
type Rules struct {
	MaxTextLen       int
	MaxAttachments   int
	MaxVoiceDuration float64 // seconds
}

var rules Rules

// SetRules installs the active rule set. Called once at startup.
func SetRules(r Rules) { rules = r }

// ValidateSubmit checks a message intent at intake. Failures here mean no
// persistence is attempted and no side effects occur.
func ValidateSubmit(to string, m models.Message) error {
	if to == "" {
		return ErrMissingRecipient
	}
	if !m.HasContent() {
		return ErrEmptyMessage
	}
	if rules.MaxTextLen > 0 && len(m.Text) > rules.MaxTextLen {
		return fmt.Errorf("text exceeds %d bytes", rules.MaxTextLen)
	}
	if rules.MaxAttachments > 0 && len(m.Attachments) > rules.MaxAttachments {
		return fmt.Errorf("too many attachments (max %d)", rules.MaxAttachments)
	}
	if rules.MaxVoiceDuration > 0 && m.VoiceDuration > rules.MaxVoiceDuration {
		return fmt.Errorf("voice note exceeds %.0fs", rules.MaxVoiceDuration)
	}
	for _, a := range m.Attachments {
		if a.FileURL == "" {
			return fmt.Errorf("attachment missing fileUrl")
		}
	}
	return nil
}
