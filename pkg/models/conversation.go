package models

// Conversation groups all messages between exactly two users. For any
// unordered pair of user IDs at most one conversation exists; the store
// enforces this on the sorted participant pair. Never deleted.
type Conversation struct {
	ID           string    `json:"id"`
	Participants [2]string `json:"participants"`
	// LastMessage points at the most recent message; eventually consistent
	// with the message log (a failed pointer update is caught up by the
	// next send, never by re-delivery).
	LastMessage string `json:"lastMessage,omitempty"`
	CreatedTS   int64  `json:"created_ts,omitempty"`
	UpdatedTS   int64  `json:"updated_ts,omitempty"`
}

// Other returns the participant that is not the given user.
func (c Conversation) Other(userID string) string {
	if c.Participants[0] == userID {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// Has reports whether the user participates in the conversation.
func (c Conversation) Has(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}
