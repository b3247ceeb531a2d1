package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chathub/auth"
	"chathub/domain"
	"chathub/repositories"
	"chathub/services"
)

type apiStack struct {
	server *httptest.Server
	tokens auth.TokenService
	chat   *services.ChatService
}

func newAPIStack(t *testing.T) *apiStack {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := slog.Default()
	users := repositories.NewUserRepository(db)
	messages := repositories.NewMessageRepository(db, log, nil)
	chat := services.NewChatService(log, messages, users, 2000)
	tokens := auth.NewTokenService("api_test_secret_key_long_enough!", time.Hour)

	require.NoError(t, users.SaveProfile("alice", "Alice"))
	require.NoError(t, users.SaveProfile("bob", "Bob"))

	notUsed := func(w http.ResponseWriter, r *http.Request) {}
	router := NewRouter(log, tokens, chat, notUsed, []string{"*"})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &apiStack{server: server, tokens: tokens, chat: chat}
}

func (s *apiStack) get(t *testing.T, path, userID string) *http.Response {
	t.Helper()
	return s.do(t, http.MethodGet, path, userID)
}

func (s *apiStack) do(t *testing.T, method, path, userID string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.server.URL+path, nil)
	require.NoError(t, err)
	if userID != "" {
		token, err := s.tokens.GenerateToken(userID, "name-"+userID)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func Test_API_Requires_Bearer_Token(t *testing.T) {
	req := require.New(t)
	stack := newAPIStack(t)

	resp := stack.get(t, "/api/unread", "")
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func Test_API_History_And_Unread_Flow(t *testing.T) {
	req := require.New(t)
	stack := newAPIStack(t)
	ctx := context.Background()

	_, err := stack.chat.SaveMessage(ctx, "alice", "bob", "one", "")
	req.NoError(err)
	_, err = stack.chat.SaveMessage(ctx, "alice", "bob", "two", "")
	req.NoError(err)
	conversationID := domain.ConversationID("alice", "bob")

	// Bob sees two unread
	resp := stack.get(t, "/api/unread", "bob")
	req.Equal(http.StatusOK, resp.StatusCode)
	var unread struct {
		Total int `json:"total"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&unread))
	req.Equal(2, unread.Total)

	// History comes back newest first
	resp = stack.get(t, "/api/conversations/"+conversationID+"/messages", "bob")
	req.Equal(http.StatusOK, resp.StatusCode)
	var page struct {
		Messages []messageDTO `json:"messages"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&page))
	req.Len(page.Messages, 2)
	req.Equal("two", page.Messages[0].Content)
	req.Equal("one", page.Messages[1].Content)
	req.False(page.Messages[0].IsRead)

	// Conversations list shows the unread count
	resp = stack.get(t, "/api/conversations", "bob")
	req.Equal(http.StatusOK, resp.StatusCode)
	var convs struct {
		Conversations []conversationDTO `json:"conversations"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&convs))
	req.Len(convs.Conversations, 1)
	req.Equal(2, convs.Conversations[0].Unread)

	// Marking read zeroes the counter
	resp = stack.do(t, http.MethodPost, "/api/conversations/"+conversationID+"/read", "bob")
	req.Equal(http.StatusOK, resp.StatusCode)
	var marked struct {
		Updated int `json:"updated"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&marked))
	req.Equal(2, marked.Updated)

	resp = stack.get(t, "/api/unread", "bob")
	var after struct {
		Total int `json:"total"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&after))
	req.Zero(after.Total)
}

func Test_API_Rejects_Foreign_Conversation(t *testing.T) {
	req := require.New(t)
	stack := newAPIStack(t)

	conversationID := domain.ConversationID("alice", "bob")
	resp := stack.get(t, "/api/conversations/"+conversationID+"/messages", "mallory")
	req.Equal(http.StatusForbidden, resp.StatusCode)
}
