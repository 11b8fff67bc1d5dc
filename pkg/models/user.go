package models

// User is the stored profile record. Credentials are never held here;
// account creation and password handling live outside this service.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	About     string `json:"about,omitempty"`
	Bio       string `json:"bio,omitempty"`
	Phone     string `json:"phone,omitempty"`
	// Online is the cold (persisted) presence flag; the connection registry
	// is authoritative while the process is up.
	Online bool `json:"online,omitempty"`
	// LastSeen is a unix-nano timestamp; zero means never seen or currently online.
	LastSeen int64 `json:"lastSeen,omitempty"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_ts,omitempty"`
}

// PublicUser is the profile shape broadcast to other users. It carries only
// displayable fields.
type PublicUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Public strips the user down to broadcast-safe fields.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, AvatarURL: u.AvatarURL}
}

// RosterEntry is one row of a presence snapshot: the profile plus presence
// reconciled against the live registry.
type RosterEntry struct {
	UserID string     `json:"userId"`
	User   RosterUser `json:"user"`
}

// RosterUser is PublicUser plus presence fields.
type RosterUser struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Online    bool   `json:"online"`
	LastSeen  int64  `json:"lastSeen,omitempty"`
}
