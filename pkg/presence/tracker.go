package presence

import (
	"time"

	"baatcheet/pkg/logger"
	"baatcheet/pkg/metrics"
	"baatcheet/pkg/models"
)

// UserStore is the slice of persistent user storage the tracker needs.
type UserStore interface {
	ListUsers(limit int) ([]models.User, error)
	UpdatePresence(id string, online bool, lastSeen int64) error
}

// Broadcaster fans an event out to every live connection of every user.
type Broadcaster interface {
	ToAll(event string, data any)
}

// Tracker turns registry edge transitions into persisted presence changes
// and broadcasts. Only the first connection and the last disconnection
// touch storage or the wire; intermediate connects from extra tabs or
// devices are absorbed by the registry.
type Tracker struct {
	reg         *Registry
	users       UserStore
	sender      Broadcaster
	rosterLimit int
}

// NewTracker wires the tracker to its registry, store and broadcast sink.
func NewTracker(reg *Registry, users UserStore, sender Broadcaster, rosterLimit int) *Tracker {
	return &Tracker{reg: reg, users: users, sender: sender, rosterLimit: rosterLimit}
}

// HandleConnect registers the connection. On the first-connection edge it
// persists {online:true, lastSeen:null} and broadcasts presence:online to
// everyone currently connected. A failed persistence write is logged and
// never rolls back the registry entry.
func (t *Tracker) HandleConnect(user models.User, connID string) {
	first := t.reg.AddConnection(user.ID, connID)
	logger.Info("user_connected", "user", user.ID, "conn", connID, "first", first)
	if !first {
		return
	}
	metrics.PresenceTransitions.WithLabelValues("online").Inc()
	if err := t.users.UpdatePresence(user.ID, true, 0); err != nil {
		logger.Warn("presence_persist_failed", "user", user.ID, "state", "online", "error", err)
	}
	t.sender.ToAll("presence:online", models.PresenceOnline{
		UserID: user.ID,
		User:   user.Public(),
	})
}

// HandleDisconnect removes the connection. On the last-disconnection edge
// it persists {online:false, lastSeen:now} and broadcasts presence:offline.
// Runs for graceful and abrupt closes alike.
func (t *Tracker) HandleDisconnect(userID, connID string) {
	offline := t.reg.RemoveConnection(userID, connID)
	logger.Info("user_disconnected", "user", userID, "conn", connID, "offline", offline)
	if !offline {
		return
	}
	metrics.PresenceTransitions.WithLabelValues("offline").Inc()
	lastSeen := time.Now().UTC().UnixNano()
	if err := t.users.UpdatePresence(userID, false, lastSeen); err != nil {
		logger.Warn("presence_persist_failed", "user", userID, "state", "offline", "error", err)
	}
	t.sender.ToAll("presence:offline", models.PresenceOffline{
		UserID:   userID,
		LastSeen: lastSeen,
	})
}

// Roster produces the full known-user snapshot for a client. The online
// flag comes from the registry's current key set, never from storage, so a
// user with a live connection is never reported offline even when the
// persisted flag is stale; lastSeen comes from storage.
func (t *Tracker) Roster() (models.PresenceAllUsers, error) {
	users, err := t.users.ListUsers(t.rosterLimit)
	if err != nil {
		return models.PresenceAllUsers{}, err
	}
	out := models.PresenceAllUsers{Users: make([]models.RosterEntry, 0, len(users))}
	for _, u := range users {
		out.Users = append(out.Users, models.RosterEntry{
			UserID: u.ID,
			User: models.RosterUser{
				ID:        u.ID,
				Name:      u.Name,
				Email:     u.Email,
				AvatarURL: u.AvatarURL,
				Online:    t.reg.IsOnline(u.ID),
				LastSeen:  u.LastSeen,
			},
		})
	}
	return out, nil
}

// Registry exposes the underlying registry for read-only presence checks.
func (t *Tracker) Registry() *Registry { return t.reg }
