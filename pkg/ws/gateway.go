package ws

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"baatcheet/pkg/auth"
	"baatcheet/pkg/chat"
	"baatcheet/pkg/logger"
	"baatcheet/pkg/models"
	"baatcheet/pkg/presence"
	"baatcheet/pkg/store"
	"baatcheet/pkg/utils"
)

// UserFinder resolves the authenticated uid to a stored profile.
type UserFinder interface {
	FindUser(id string) (*models.User, error)
}

// Gateway accepts live connections, authenticates them and wires their
// events into the presence tracker, delivery pipeline and receipt tracker.
type Gateway struct {
	hub      *Hub
	tracker  *presence.Tracker
	pipeline *chat.Pipeline
	receipts *chat.Receipts
	verifier *auth.Verifier
	users    UserFinder

	frameLimit int64
	upgrader   websocket.Upgrader
}

// New wires the gateway. allowedOrigins mirrors the REST CORS list; an
// empty list rejects cross-origin upgrades.
func New(hub *Hub, tracker *presence.Tracker, pipeline *chat.Pipeline, receipts *chat.Receipts, verifier *auth.Verifier, users UserFinder, frameLimit int64, allowedOrigins []string) *Gateway {
	g := &Gateway{
		hub:        hub,
		tracker:    tracker,
		pipeline:   pipeline,
		receipts:   receipts,
		verifier:   verifier,
		users:      users,
		frameLimit: frameLimit,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, a := range allowedOrigins {
				if a == "*" || a == origin {
					return true
				}
			}
			return false
		},
	}
	return g
}

// Hub exposes the fan-out sink for wiring into the pipeline and tracker.
func (g *Gateway) Hub() *Hub { return g.hub }

// Shutdown closes every open connection.
func (g *Gateway) Shutdown() {
	g.hub.CloseAll()
}

// HandleWS runs one connection through its lifecycle:
// CONNECTING -> AUTHENTICATING -> ACTIVE -> CLOSED. Both the token check
// and the user lookup must succeed before the connection registers; any
// failure is a terminal rejection with no registry mutation.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r)
	if token == "" {
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	uid, err := g.verifier.Verify(token)
	if err != nil {
		logger.Warn("ws_auth_failed", "remote", r.RemoteAddr)
		utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	user, err := g.users.FindUser(uid)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Warn("ws_unknown_user", "user", uid)
			utils.JSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		logger.Error("ws_user_lookup_failed", "user", uid, "error", err)
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("ws_upgrade_failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := newClient(utils.GenID(), *user, conn, g)
	g.hub.add(c)
	g.tracker.HandleConnect(*user, c.ID)
	c.state.Store(int32(stateActive))
	logger.Info("ws_connected", "conn", c.ID, "user", user.ID, "name", user.Name)

	go c.writePump()
	// every fresh connection gets the reconciled roster immediately
	c.sendRoster()
	go c.readPump()
}
