package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"baatcheet/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestFindOrCreateConversationConverges(t *testing.T) {
	s := openTestStore(t)

	c1, err := s.FindOrCreateConversation("alice", "bob")
	if err != nil {
		t.Fatalf("FindOrCreateConversation: %v", err)
	}
	// reverse order must resolve to the same conversation
	c2, err := s.FindOrCreateConversation("bob", "alice")
	if err != nil {
		t.Fatalf("FindOrCreateConversation reversed: %v", err)
	}
	if c1.ID != c2.ID {
		t.Fatalf("pair resolved to two conversations: %s vs %s", c1.ID, c2.ID)
	}
	if c1.Participants[0] > c1.Participants[1] {
		t.Fatalf("participants not sorted: %v", c1.Participants)
	}
	if !c1.Has("alice") || !c1.Has("bob") || c1.Has("carol") {
		t.Fatalf("participant membership wrong: %v", c1.Participants)
	}
	if got := c1.Other("alice"); got != "bob" {
		t.Fatalf("Other(alice) = %q, want bob", got)
	}
}

func TestFindOrCreateConversationValidation(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.FindOrCreateConversation("", "bob"); err == nil {
		t.Fatal("expected error for empty participant")
	}
}

func TestSaveMessageAssignsOrderedIDs(t *testing.T) {
	s := openTestStore(t)
	conv, err := s.FindOrCreateConversation("alice", "bob")
	if err != nil {
		t.Fatalf("FindOrCreateConversation: %v", err)
	}

	prev := ""
	for i := 0; i < 5; i++ {
		m := models.Message{Conversation: conv.ID, From: "alice", To: "bob", Text: fmt.Sprintf("msg %d", i)}
		if err := s.SaveMessage(&m); err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
		if m.ID == "" || m.CreatedTS == 0 || m.DeliveredAt == 0 {
			t.Fatalf("SaveMessage did not fill defaults: %+v", m)
		}
		if m.ID <= prev {
			t.Fatalf("message IDs not ascending: %q after %q", m.ID, prev)
		}
		prev = m.ID
	}
}

func TestListMessagesBeforeReconstructsHistory(t *testing.T) {
	s := openTestStore(t)
	conv, err := s.FindOrCreateConversation("alice", "bob")
	if err != nil {
		t.Fatalf("FindOrCreateConversation: %v", err)
	}

	const total = 25
	want := make([]string, 0, total)
	for i := 0; i < total; i++ {
		m := models.Message{Conversation: conv.ID, From: "alice", To: "bob", Text: fmt.Sprintf("msg %d", i)}
		if err := s.SaveMessage(&m); err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
		want = append(want, m.ID)
	}

	// walk backwards page by page, then stitch pages together
	var got []string
	cursor := ""
	for {
		page, next, err := s.ListMessagesBefore(conv.ID, cursor, 10)
		if err != nil {
			t.Fatalf("ListMessagesBefore: %v", err)
		}
		for i := 1; i < len(page); i++ {
			if page[i-1].ID >= page[i].ID {
				t.Fatalf("page not chronological: %q before %q", page[i-1].ID, page[i].ID)
			}
		}
		ids := make([]string, 0, len(page))
		for _, m := range page {
			ids = append(ids, m.ID)
		}
		got = append(ids, got...)
		if next == "" {
			break
		}
		cursor = next
	}
	if len(got) != total {
		t.Fatalf("reconstructed %d messages, want %d", len(got), total)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("message %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestListMessagesBeforeShortPageNoCursor(t *testing.T) {
	s := openTestStore(t)
	conv, err := s.FindOrCreateConversation("alice", "bob")
	if err != nil {
		t.Fatalf("FindOrCreateConversation: %v", err)
	}
	for i := 0; i < 3; i++ {
		m := models.Message{Conversation: conv.ID, From: "alice", To: "bob", Text: "x"}
		if err := s.SaveMessage(&m); err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
	}
	page, next, err := s.ListMessagesBefore(conv.ID, "", 10)
	if err != nil {
		t.Fatalf("ListMessagesBefore: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("got %d messages, want 3", len(page))
	}
	if next != "" {
		t.Fatalf("short page returned cursor %q", next)
	}
}

func TestListMessagesBeforeEmptyConversation(t *testing.T) {
	s := openTestStore(t)
	page, next, err := s.ListMessagesBefore("nope", "", 10)
	if err != nil {
		t.Fatalf("ListMessagesBefore: %v", err)
	}
	if len(page) != 0 || next != "" {
		t.Fatalf("expected empty page, got %d messages cursor %q", len(page), next)
	}
}

func TestMarkSeenFirstWins(t *testing.T) {
	s := openTestStore(t)
	conv, err := s.FindOrCreateConversation("alice", "bob")
	if err != nil {
		t.Fatalf("FindOrCreateConversation: %v", err)
	}
	m := models.Message{Conversation: conv.ID, From: "alice", To: "bob", Text: "hi"}
	if err := s.SaveMessage(&m); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	got, changed, err := s.MarkSeen(m.ID, 111)
	if err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if !changed || got.SeenAt != 111 {
		t.Fatalf("first MarkSeen: changed=%v seenAt=%d", changed, got.SeenAt)
	}

	got, changed, err = s.MarkSeen(m.ID, 222)
	if err != nil {
		t.Fatalf("MarkSeen repeat: %v", err)
	}
	if changed || got.SeenAt != 111 {
		t.Fatalf("repeat MarkSeen moved the timestamp: changed=%v seenAt=%d", changed, got.SeenAt)
	}

	if _, _, err := s.MarkSeen("missing", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("MarkSeen missing: err=%v, want ErrNotFound", err)
	}
}

func TestMarkSeenConcurrentSingleWinner(t *testing.T) {
	s := openTestStore(t)
	conv, err := s.FindOrCreateConversation("alice", "bob")
	if err != nil {
		t.Fatalf("FindOrCreateConversation: %v", err)
	}
	m := models.Message{Conversation: conv.ID, From: "alice", To: "bob", Text: "hi"}
	if err := s.SaveMessage(&m); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	// every device races to mark at its own timestamp; exactly one may win
	const callers = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	changedAt := make([]int64, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			ts := int64(100 + i)
			if _, changed, err := s.MarkSeen(m.ID, ts); err != nil {
				t.Errorf("MarkSeen: %v", err)
			} else if changed {
				changedAt[i] = ts
			}
		}(i)
	}
	close(start)
	wg.Wait()

	var winner int64
	wins := 0
	for _, ts := range changedAt {
		if ts != 0 {
			wins++
			winner = ts
		}
	}
	if wins != 1 {
		t.Fatalf("%d callers reported changed=true, want exactly 1", wins)
	}
	got, err := s.GetMessage(m.ID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got.SeenAt != winner {
		t.Fatalf("seenAt=%d does not match the winning caller's %d", got.SeenAt, winner)
	}
}

func TestUpdateLastMessageAndListByUser(t *testing.T) {
	s := openTestStore(t)
	c1, _ := s.FindOrCreateConversation("alice", "bob")
	c2, _ := s.FindOrCreateConversation("alice", "carol")

	if err := s.UpdateLastMessage(c1.ID, "m1", 100); err != nil {
		t.Fatalf("UpdateLastMessage: %v", err)
	}
	if err := s.UpdateLastMessage(c2.ID, "m2", 200); err != nil {
		t.Fatalf("UpdateLastMessage: %v", err)
	}

	convs, err := s.ListConversationsByUser("alice", 0)
	if err != nil {
		t.Fatalf("ListConversationsByUser: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("got %d conversations, want 2", len(convs))
	}
	// most recent activity first
	if convs[0].ID != c2.ID || convs[0].LastMessage != "m2" {
		t.Fatalf("ordering wrong: first is %s (last=%s)", convs[0].ID, convs[0].LastMessage)
	}

	convs, err = s.ListConversationsByUser("bob", 0)
	if err != nil {
		t.Fatalf("ListConversationsByUser: %v", err)
	}
	if len(convs) != 1 || convs[0].ID != c1.ID {
		t.Fatalf("bob's conversations wrong: %+v", convs)
	}
}

func TestUserRoundTripAndPresence(t *testing.T) {
	s := openTestStore(t)
	if err := s.SaveUser(models.User{ID: "u1", Name: "Uma"}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	if err := s.SaveUser(models.User{}); err == nil {
		t.Fatal("expected error for user without ID")
	}

	u, err := s.FindUser("u1")
	if err != nil {
		t.Fatalf("FindUser: %v", err)
	}
	if u.Name != "Uma" {
		t.Fatalf("FindUser name = %q", u.Name)
	}
	if _, err := s.FindUser("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("FindUser missing: err=%v, want ErrNotFound", err)
	}

	if err := s.UpdatePresence("u1", false, 999); err != nil {
		t.Fatalf("UpdatePresence: %v", err)
	}
	u, _ = s.FindUser("u1")
	if u.Online || u.LastSeen != 999 {
		t.Fatalf("presence not persisted: online=%v lastSeen=%d", u.Online, u.LastSeen)
	}

	users, err := s.ListUsers(0)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("ListUsers returned %d users", len(users))
	}
}
