package models

// Outbound live-channel payload shapes. Field names are the wire contract;
// changing them breaks deployed clients.

// PresenceOnline announces a user's first live connection.
type PresenceOnline struct {
	UserID string     `json:"userId"`
	User   PublicUser `json:"user"`
}

// PresenceOffline announces that a user's last connection closed.
type PresenceOffline struct {
	UserID   string `json:"userId"`
	LastSeen int64  `json:"lastSeen"`
}

// PresenceAllUsers is the roster snapshot sent to a newly connected client
// and in reply to users:request.
type PresenceAllUsers struct {
	Users []RosterEntry `json:"users"`
}

// TypingEvent relays a typing indicator to the named peer.
type TypingEvent struct {
	From string `json:"from"`
}

// MessageEvent wraps a full message for message:new and message:sent.
type MessageEvent struct {
	Message *Message `json:"message"`
}

// SeenEvent notifies that a message was marked seen (message:seen and
// message:seen:echo).
type SeenEvent struct {
	MessageID string `json:"messageId"`
}
