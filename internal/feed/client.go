package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"app/internal/listview"
	"app/internal/model"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4096
)

// Client is one websocket session. It owns a list controller for the
// connected user and translates inbound actions into controller calls,
// answering each with a fresh snapshot.
type Client struct {
	userID string
	conn   *websocket.Conn
	send   chan outMessage
	hub    *Hub
	view   *listview.Controller
	logger zerolog.Logger
}

type inMessage struct {
	Action string `json:"action"`
}

type outMessage struct {
	Type     string                `json:"type"`
	Snapshot *listview.Snapshot    `json:"snapshot,omitempty"`
	Change   *model.BillableChange `json:"change,omitempty"`
}

// ServeWS upgrades the request, registers the session with the hub, loads
// the first page, and runs the read/write pumps until the peer goes away.
func ServeWS(hub *Hub, upgrader websocket.Upgrader, fetcher listview.Fetcher, logger zerolog.Logger, w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	c := &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan outMessage, 32),
		hub:    hub,
		view:   listview.New(fetcher),
		logger: logger.With().Str("component", "feed").Str("user_id", userID).Logger(),
	}

	hub.register <- c

	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Load the first page before any action arrives so the session starts
	// with a populated view.
	if _, err := c.view.LoadFirst(context.Background()); err != nil {
		c.logger.Error().Err(err).Msg("initial page load failed")
	}
	c.pushSnapshot()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket closed unexpectedly")
			}
			return
		}

		var msg inMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn().Err(err).Msg("malformed feed message")
			continue
		}
		c.handleAction(msg.Action)
	}
}

func (c *Client) handleAction(action string) {
	ctx := context.Background()

	switch action {
	case "load_more":
		if _, err := c.view.LoadMore(ctx); err != nil {
			c.logger.Error().Err(err).Msg("load more failed")
		}
	case "refresh":
		if err := c.view.Refresh(ctx); err != nil {
			c.logger.Error().Err(err).Msg("refresh failed")
		}
	case "retry":
		if _, err := c.view.LoadFirst(ctx); err != nil {
			c.logger.Error().Err(err).Msg("retry failed")
		}
	default:
		c.logger.Warn().Str("action", action).Msg("unknown feed action")
		return
	}
	c.pushSnapshot()
}

func (c *Client) pushSnapshot() {
	snap := c.view.Snapshot()
	select {
	case c.send <- outMessage{Type: "snapshot", Snapshot: &snap}:
	default:
		c.logger.Warn().Msg("dropping snapshot for slow session")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn().Err(err).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
