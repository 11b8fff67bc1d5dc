package models

// Message belongs to exactly one conversation. Immutable after creation
// except for SeenAt, which is set at most once by the receipt tracker.
//
// The ID is creation-sequenced and lexicographically chronological, so it
// doubles as the storage order key and the pagination cursor.
type Message struct {
	ID           string `json:"id"`
	Conversation string `json:"conversation"`
	From         string `json:"from"`
	To           string `json:"to"`
	Text         string `json:"text,omitempty"`
	VoiceURL     string `json:"voiceUrl,omitempty"`
	// VoiceDuration in seconds
	VoiceDuration float64      `json:"voiceDuration,omitempty"`
	Attachments   []Attachment `json:"attachments,omitempty"`
	// ReplyTo is a denormalized snapshot taken at send time. Later changes
	// to the original message do not propagate here.
	ReplyTo *ReplyRef `json:"replyTo,omitempty"`
	// DeliveredAt is set at creation; SeenAt at most once (ns timestamps).
	DeliveredAt int64 `json:"deliveredAt,omitempty"`
	SeenAt      int64 `json:"seenAt,omitempty"`
	CreatedTS   int64 `json:"created_ts,omitempty"`
}

// Attachment references a file held by the external object store.
type Attachment struct {
	FileName     string `json:"fileName,omitempty"`
	FileURL      string `json:"fileUrl"`
	FileType     string `json:"fileType,omitempty"`
	FileSize     int64  `json:"fileSize,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// ReplyRef is the copy-on-reply snapshot of the replied-to message.
type ReplyRef struct {
	MessageID string `json:"messageId"`
	Text      string `json:"text,omitempty"`
	VoiceURL  string `json:"voiceUrl,omitempty"`
	From      string `json:"from"`
	FromName  string `json:"fromName,omitempty"`
}

// HasContent reports whether the message carries at least one of text,
// voice, or attachments. Empty messages are rejected at intake.
func (m Message) HasContent() bool {
	return m.Text != "" || m.VoiceURL != "" || len(m.Attachments) > 0
}
