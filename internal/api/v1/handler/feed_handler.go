package handler

import (
	"context"
	"net/http"

	"app/internal/feed"
	"app/internal/listview"
	"app/internal/service"
	"app/internal/util"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// FeedHandler upgrades dashboard sessions to websockets. Each session gets
// its own list controller fed by the user's change events.
type FeedHandler struct {
	hub             *feed.Hub
	billableService service.BillableService
	jwtSecret       string
	upgrader        websocket.Upgrader
	logger          zerolog.Logger
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(hub *feed.Hub, billableService service.BillableService, jwtSecret string, allowedOrigin string, logger zerolog.Logger) *FeedHandler {
	return &FeedHandler{
		hub:             hub,
		billableService: billableService,
		jwtSecret:       jwtSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowedOrigin == "" || allowedOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == allowedOrigin
			},
		},
		logger: logger,
	}
}

// RegisterRoutes mounts the websocket endpoint. Browsers cannot set headers
// on websocket requests, so the JWT arrives as a query parameter and is
// validated here instead of by the auth middleware.
func (h *FeedHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/ws", http.HandlerFunc(h.serveWS))
}

// pageFetcher adapts the billable service to the list controller's fetch
// interface for one user.
type pageFetcher struct {
	svc    service.BillableService
	userID string
}

func (f pageFetcher) FetchPage(ctx context.Context, page int) (*listview.Page, error) {
	items, total, err := f.svc.ListBillables(ctx, f.userID, page, service.DefaultPageSize)
	if err != nil {
		return nil, err
	}
	return &listview.Page{Items: items, TotalCount: total}, nil
}

// serveWS godoc
// @Summary Open the live billables feed
// @Description Upgrades to a websocket that streams the user's list snapshots and change events. Accepts load_more, refresh, and retry actions.
// @Tags feed
// @Param token query string true "JWT"
// @Success 101 {string} string "switching protocols"
// @Failure 401 {string} string "unauthorized"
// @Router /ws [get]
func (h *FeedHandler) serveWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := util.ValidateJWT(token, h.jwtSecret)
	if err != nil {
		h.logger.Warn().Err(err).Msg("rejected websocket token")
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	userID := claims.Subject
	if userID == "" {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	fetcher := pageFetcher{svc: h.billableService, userID: userID}
	feed.ServeWS(h.hub, h.upgrader, fetcher, h.logger, w, r, userID)
}
