package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"chathub/contract"
)

// NewRouter assembles the node's full HTTP surface: health, the WebSocket
// upgrade endpoint, and the authenticated history/unread API.
func NewRouter(log *slog.Logger, auth contract.Authenticator, chat contract.IChatService,
	serveWS http.HandlerFunc, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", Health)
	r.Get("/ws/chat", serveWS)

	handlers := NewHandlers(log, chat)
	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticated(log, auth))
		r.Get("/conversations", handlers.ListConversations)
		r.Get("/conversations/{conversationID}/messages", handlers.ListMessages)
		r.Post("/conversations/{conversationID}/read", handlers.MarkRead)
		r.Get("/unread", handlers.UnreadTotal)
	})

	return r
}
