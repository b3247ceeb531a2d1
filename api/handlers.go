// Package api exposes the history and unread-count surface over HTTP. It
// is the pull side of the system: everything here reads or administers
// state the live WebSocket path produced.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"chathub/contract"
	"chathub/domain"
)

type Handlers struct {
	log  *slog.Logger
	chat contract.IChatService
}

func NewHandlers(log *slog.Logger, chat contract.IChatService) *Handlers {
	return &Handlers{log: log, chat: chat}
}

type messageDTO struct {
	MessageID      string     `json:"messageId"`
	ConversationID string     `json:"conversationId"`
	SenderID       string     `json:"senderId"`
	SenderName     string     `json:"senderName"`
	RecipientID    string     `json:"recipientId"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"createdAt"`
	IsRead         bool       `json:"isRead"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
}

type conversationDTO struct {
	ConversationID string    `json:"conversationId"`
	Participants   []string  `json:"participants"`
	LastMessage    string    `json:"lastMessage"`
	LastSenderID   string    `json:"lastSenderId"`
	LastAt         time.Time `json:"lastAt"`
	Unread         int       `json:"unread"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ListMessages handles GET /api/conversations/{conversationID}/messages.
// Pages newest-first; pass the returned cursor back to fetch the next
// page.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	identity, _ := CallerIdentity(r)
	conversationID := chi.URLParam(r, "conversationID")

	if _, err := domain.OtherParticipant(conversationID, identity.UserID); err != nil {
		http.Error(w, "not a participant of this conversation", http.StatusForbidden)
		return
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	messages, next, err := h.chat.ListMessages(conversationID, cursor)
	if err != nil {
		h.log.Error("Listing messages failed", "conversationId", conversationID, "error", err)
		http.Error(w, "could not list messages", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": lo.Map(messages, func(m domain.Message, _ int) messageDTO {
			return toMessageDTO(m)
		}),
		"nextCursor": next,
	})
}

// MarkRead handles POST /api/conversations/{conversationID}/read.
func (h *Handlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, _ := CallerIdentity(r)
	conversationID := chi.URLParam(r, "conversationID")

	updated, err := h.chat.MarkRead(r.Context(), conversationID, identity.UserID)
	if err != nil {
		http.Error(w, "could not mark the conversation as read", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

// UnreadTotal handles GET /api/unread.
func (h *Handlers) UnreadTotal(w http.ResponseWriter, r *http.Request) {
	identity, _ := CallerIdentity(r)

	total, err := h.chat.UnreadTotal(identity.UserID)
	if err != nil {
		h.log.Error("Unread total failed", "userId", identity.UserID, "error", err)
		http.Error(w, "could not compute unread total", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": total})
}

// ListConversations handles GET /api/conversations, most recently active
// first, with the caller's unread count per conversation.
func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	identity, _ := CallerIdentity(r)

	conversations, err := h.chat.ListConversations(identity.UserID)
	if err != nil {
		h.log.Error("Listing conversations failed", "userId", identity.UserID, "error", err)
		http.Error(w, "could not list conversations", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": lo.Map(conversations, func(c domain.Conversation, _ int) conversationDTO {
			return conversationDTO{
				ConversationID: c.ID,
				Participants:   c.Participants[:],
				LastMessage:    c.LastMessage.Content,
				LastSenderID:   c.LastMessage.SenderID,
				LastAt:         c.LastMessage.At,
				Unread:         c.Unread(identity.UserID),
				UpdatedAt:      c.UpdatedAt,
			}
		}),
	})
}

func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func toMessageDTO(m domain.Message) messageDTO {
	return messageDTO{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		RecipientID:    m.RecipientID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		IsRead:         m.IsRead,
		ReadAt:         m.ReadAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
