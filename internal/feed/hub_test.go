package feed

import (
	"context"
	"testing"
	"time"

	"app/internal/listview"
	"app/internal/model"

	"github.com/rs/zerolog"
)

type emptyFetcher struct{}

func (emptyFetcher) FetchPage(ctx context.Context, page int) (*listview.Page, error) {
	return &listview.Page{}, nil
}

func newTestClient(hub *Hub, userID string) *Client {
	return &Client{
		userID: userID,
		send:   make(chan outMessage, 8),
		hub:    hub,
		view:   listview.New(emptyFetcher{}),
		logger: zerolog.Nop(),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestPublishReachesOnlyOwnersSessions(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	owner := newTestClient(hub, "user-1")
	otherSession := newTestClient(hub, "user-1")
	stranger := newTestClient(hub, "user-2")
	hub.register <- owner
	hub.register <- otherSession
	hub.register <- stranger

	b := &model.Billable{ID: "b-1", UserID: "user-1", Client: "Acme Corp", Hours: 1.0}
	hub.Publish("user-1", model.BillableChange{Type: model.ChangeInsert, ID: b.ID, Billable: b})

	for _, c := range []*Client{owner, otherSession} {
		select {
		case msg := <-c.send:
			if msg.Type != "change" || msg.Change.ID != "b-1" {
				t.Fatalf("unexpected message %+v", msg)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("owner session never received the change")
		}
	}

	select {
	case msg := <-stranger.send:
		t.Fatalf("another user's session received %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeliverUpdatesSessionView(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	c := newTestClient(hub, "user-1")
	if _, err := c.view.LoadFirst(context.Background()); err != nil {
		t.Fatal(err)
	}
	hub.register <- c

	b := &model.Billable{ID: "b-1", UserID: "user-1", Client: "Acme Corp", Hours: 2.0}
	hub.Publish("user-1", model.BillableChange{Type: model.ChangeInsert, ID: b.ID, Billable: b})

	waitFor(t, func() bool {
		snap := c.view.Snapshot()
		return len(snap.Items) == 1 && snap.Items[0].ID == "b-1"
	})

	hub.Publish("user-1", model.BillableChange{Type: model.ChangeDelete, ID: "b-1"})
	waitFor(t, func() bool {
		return len(c.view.Snapshot().Items) == 0
	})
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	c := newTestClient(hub, "user-1")
	hub.register <- c
	hub.unregister <- c

	select {
	case _, ok := <-c.send:
		if ok {
			t.Fatal("send channel delivered a message instead of closing")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel not closed on unregister")
	}

	// Publishing after the session is gone must not panic or block.
	hub.Publish("user-1", model.BillableChange{Type: model.ChangeDelete, ID: "b-9"})
}
