package ws

import (
	"fmt"
	"sync"
	"testing"

	"baatcheet/pkg/models"
	"baatcheet/pkg/presence"
)

func testClient(id string, user models.User) *Client {
	return newClient(id, user, nil, nil)
}

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case b := <-c.send:
			out = append(out, b)
		default:
			return out
		}
	}
}

func TestToUserReachesEveryConnection(t *testing.T) {
	reg := presence.NewRegistry()
	h := NewHub(reg)
	alice := models.User{ID: "alice"}

	c1 := testClient("c1", alice)
	c2 := testClient("c2", alice)
	c3 := testClient("c3", models.User{ID: "bob"})
	for _, c := range []*Client{c1, c2, c3} {
		h.add(c)
		reg.AddConnection(c.user.ID, c.ID)
	}

	h.ToUser("alice", "message:new", models.MessageEvent{Message: &models.Message{ID: "m1"}})

	if got := len(drain(c1)); got != 1 {
		t.Fatalf("c1 got %d frames", got)
	}
	if got := len(drain(c2)); got != 1 {
		t.Fatalf("c2 got %d frames", got)
	}
	if got := len(drain(c3)); got != 0 {
		t.Fatalf("bob's connection got %d frames", got)
	}
}

func TestToConnTargetsOneConnection(t *testing.T) {
	reg := presence.NewRegistry()
	h := NewHub(reg)
	alice := models.User{ID: "alice"}

	c1 := testClient("c1", alice)
	c2 := testClient("c2", alice)
	h.add(c1)
	h.add(c2)
	reg.AddConnection("alice", "c1")
	reg.AddConnection("alice", "c2")

	h.ToConn("c1", "message:sent", models.MessageEvent{Message: &models.Message{ID: "m1"}})

	if got := len(drain(c1)); got != 1 {
		t.Fatalf("origin got %d frames", got)
	}
	if got := len(drain(c2)); got != 0 {
		t.Fatalf("sibling device got %d frames", got)
	}
	// unknown conn is a no-op
	h.ToConn("missing", "message:sent", nil)
}

func TestToAllBroadcasts(t *testing.T) {
	reg := presence.NewRegistry()
	h := NewHub(reg)
	c1 := testClient("c1", models.User{ID: "alice"})
	c2 := testClient("c2", models.User{ID: "bob"})
	h.add(c1)
	h.add(c2)

	h.ToAll("presence:online", models.PresenceOnline{UserID: "carol"})

	if len(drain(c1)) != 1 || len(drain(c2)) != 1 {
		t.Fatal("broadcast missed a connection")
	}
}

func TestSlowConsumerDropsFrames(t *testing.T) {
	reg := presence.NewRegistry()
	h := NewHub(reg)
	c := testClient("c1", models.User{ID: "alice"})
	h.add(c)
	reg.AddConnection("alice", "c1")

	// nobody reading: the buffer fills and extra frames drop silently
	for i := 0; i < sendBuffer+10; i++ {
		h.ToUser("alice", "typing:start", models.TypingEvent{From: "bob"})
	}
	if got := len(drain(c)); got != sendBuffer {
		t.Fatalf("buffered %d frames, want %d", got, sendBuffer)
	}
}

func TestBroadcastDuringCloseDoesNotPanic(t *testing.T) {
	reg := presence.NewRegistry()
	h := NewHub(reg)
	for i := 0; i < 8; i++ {
		c := testClient(fmt.Sprintf("c%d", i), models.User{ID: "alice"})
		h.add(c)
		reg.AddConnection("alice", c.ID)
	}

	// fan-out racing teardown must drop frames, never hit a closed channel
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 200; j++ {
				h.ToAll("presence:online", models.PresenceOnline{UserID: "bob"})
				h.ToUser("alice", "typing:start", models.TypingEvent{From: "bob"})
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		h.CloseAll()
	}()
	close(start)
	wg.Wait()

	h.ToAll("presence:offline", models.PresenceOffline{UserID: "bob"})
}

func TestEnqueueAfterCloseIsDropped(t *testing.T) {
	c := testClient("c1", models.User{ID: "alice"})
	c.close()
	c.close()
	c.enqueue([]byte(`{}`))
	if connState(c.state.Load()) != stateClosed {
		t.Fatal("client not marked closed")
	}
}

func TestCloseAllEmptiesHub(t *testing.T) {
	reg := presence.NewRegistry()
	h := NewHub(reg)
	c := testClient("c1", models.User{ID: "alice"})
	h.add(c)

	h.CloseAll()
	h.ToConn("c1", "x", nil)

	// channel closed: a receive yields immediately with ok=false
	if _, ok := <-c.send; ok {
		t.Fatal("send channel not closed")
	}
	if connState(c.state.Load()) != stateClosed {
		t.Fatal("client not marked closed")
	}
}
