package ws

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"chathub/contract"
	"chathub/domain"
	"chathub/repositories"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the HTTP middleware in front.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler accepts WebSocket connections at /ws/chat?token=... and walks
// each one through the connection states: a connection that fails
// authentication is refused before it ever becomes active.
type Handler struct {
	log        *slog.Logger
	auth       contract.Authenticator
	users      repositories.IUserRepository
	registry   contract.IRegistry
	presence   contract.Presence
	protocol   *Protocol
	sendBuffer int
}

func NewHandler(log *slog.Logger, auth contract.Authenticator, users repositories.IUserRepository,
	registry contract.IRegistry, presence contract.Presence, protocol *Protocol, sendBuffer int) *Handler {
	return &Handler{
		log:        log,
		auth:       auth,
		users:      users,
		registry:   registry,
		presence:   presence,
		protocol:   protocol,
		sendBuffer: sendBuffer,
	}
}

// ServeWS upgrades the HTTP request and serves the connection until the
// transport dies. Blocks for the lifetime of the connection.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}
	identity, err := h.auth.Authenticate(token)
	if err != nil {
		h.log.Warn("Handshake refused", "error", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	socket, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Upgrade failed", "error", err)
		return
	}

	conn := newConn(h.log, socket, identity.UserID, identity.DisplayName, h.sendBuffer)

	// The display name rides along in every stored message; keep the
	// profile current on each connect.
	if err := h.users.SaveProfile(identity.UserID, identity.DisplayName); err != nil {
		h.log.Warn("Profile refresh failed", "userId", identity.UserID, "error", err)
	}

	// Single slot per user on this node: a reconnect displaces the
	// previous session, which is closed outside the registry lock.
	if evicted, replaced := h.registry.Register(identity.UserID, conn); replaced {
		h.log.Info("Evicting previous session", "userId", identity.UserID)
		evicted.Close()
	}
	conn.setState(StateActive)

	if err := h.presence.MarkOnline(r.Context(), identity.UserID); err != nil {
		h.log.Warn("Presence mark online failed", "userId", identity.UserID, "error", err)
	}

	_ = conn.Send(domain.ConnectionEstablishedFrame(identity.UserID))
	h.log.Info("Connection established", "userId", identity.UserID,
		"displayName", identity.DisplayName, "online", h.registry.Len())

	go conn.writePump()
	conn.readPump(h.protocol)

	h.protocol.OnClose(conn)
}
