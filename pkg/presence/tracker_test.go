package presence

import (
	"errors"
	"testing"

	"baatcheet/pkg/models"
)

type fakeUserStore struct {
	users   []models.User
	listErr error
	updates []presenceUpdate
	updErr  error
}

type presenceUpdate struct {
	id       string
	online   bool
	lastSeen int64
}

func (f *fakeUserStore) ListUsers(limit int) ([]models.User, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.users, nil
}

func (f *fakeUserStore) UpdatePresence(id string, online bool, lastSeen int64) error {
	f.updates = append(f.updates, presenceUpdate{id, online, lastSeen})
	return f.updErr
}

type fakeBroadcaster struct {
	events []string
	data   []any
}

func (f *fakeBroadcaster) ToAll(event string, data any) {
	f.events = append(f.events, event)
	f.data = append(f.data, data)
}

func TestHandleConnectDebounce(t *testing.T) {
	us := &fakeUserStore{}
	bc := &fakeBroadcaster{}
	tr := NewTracker(NewRegistry(), us, bc, 100)
	u := models.User{ID: "u1", Name: "Uma"}

	tr.HandleConnect(u, "c1")
	tr.HandleConnect(u, "c2")

	if len(bc.events) != 1 || bc.events[0] != "presence:online" {
		t.Fatalf("broadcasts = %v, want one presence:online", bc.events)
	}
	ev, ok := bc.data[0].(models.PresenceOnline)
	if !ok || ev.UserID != "u1" || ev.User.Name != "Uma" {
		t.Fatalf("presence:online payload = %+v", bc.data[0])
	}
	if len(us.updates) != 1 || !us.updates[0].online || us.updates[0].lastSeen != 0 {
		t.Fatalf("persisted updates = %+v", us.updates)
	}
}

func TestHandleDisconnectDebounce(t *testing.T) {
	us := &fakeUserStore{}
	bc := &fakeBroadcaster{}
	tr := NewTracker(NewRegistry(), us, bc, 100)
	u := models.User{ID: "u1"}

	tr.HandleConnect(u, "c1")
	tr.HandleConnect(u, "c2")
	bc.events = nil
	bc.data = nil
	us.updates = nil

	tr.HandleDisconnect("u1", "c1")
	if len(bc.events) != 0 {
		t.Fatalf("broadcast on non-final disconnect: %v", bc.events)
	}

	tr.HandleDisconnect("u1", "c2")
	if len(bc.events) != 1 || bc.events[0] != "presence:offline" {
		t.Fatalf("broadcasts = %v, want one presence:offline", bc.events)
	}
	ev, ok := bc.data[0].(models.PresenceOffline)
	if !ok || ev.UserID != "u1" || ev.LastSeen == 0 {
		t.Fatalf("presence:offline payload = %+v", bc.data[0])
	}
	if len(us.updates) != 1 || us.updates[0].online || us.updates[0].lastSeen != ev.LastSeen {
		t.Fatalf("persisted updates = %+v", us.updates)
	}
}

func TestHandleConnectPersistFailureStillBroadcasts(t *testing.T) {
	us := &fakeUserStore{updErr: errors.New("disk full")}
	bc := &fakeBroadcaster{}
	tr := NewTracker(NewRegistry(), us, bc, 100)

	tr.HandleConnect(models.User{ID: "u1"}, "c1")
	if len(bc.events) != 1 {
		t.Fatalf("broadcasts = %v, want presence:online despite persist failure", bc.events)
	}
	if !tr.Registry().IsOnline("u1") {
		t.Fatal("registry entry rolled back on persist failure")
	}
}

func TestRosterReconcilesLivePresence(t *testing.T) {
	us := &fakeUserStore{users: []models.User{
		{ID: "u1", Name: "Uma", Online: false, LastSeen: 42}, // stale offline flag
		{ID: "u2", Name: "Vik", Online: true, LastSeen: 7},   // stale online flag
	}}
	bc := &fakeBroadcaster{}
	tr := NewTracker(NewRegistry(), us, bc, 100)
	tr.Registry().AddConnection("u1", "c1")

	roster, err := tr.Roster()
	if err != nil {
		t.Fatalf("Roster: %v", err)
	}
	if len(roster.Users) != 2 {
		t.Fatalf("roster has %d entries", len(roster.Users))
	}
	byID := map[string]models.RosterUser{}
	for _, e := range roster.Users {
		byID[e.UserID] = e.User
	}
	if !byID["u1"].Online {
		t.Fatal("connected user reported offline")
	}
	if byID["u2"].Online {
		t.Fatal("disconnected user reported online from stale storage")
	}
	if byID["u1"].LastSeen != 42 {
		t.Fatalf("lastSeen not taken from storage: %d", byID["u1"].LastSeen)
	}
}

func TestRosterPropagatesListError(t *testing.T) {
	us := &fakeUserStore{listErr: errors.New("boom")}
	tr := NewTracker(NewRegistry(), us, &fakeBroadcaster{}, 100)
	if _, err := tr.Roster(); err == nil {
		t.Fatal("expected error from Roster")
	}
}
