package repositories

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chathub/domain"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newMessage(senderID, recipientID, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:             uuid.NewString(),
		ConversationID: domain.ConversationID(senderID, recipientID),
		SenderID:       senderID,
		SenderName:     "name-" + senderID,
		RecipientID:    recipientID,
		Content:        content,
		CreatedAt:      at,
	}
}

func Test_Store_And_Get_Sorted_Messages(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	at := time.Now().UTC()

	// Given three messages between the same pair, alternating direction
	first := newMessage("alice", "bob", "hello", at)
	second := newMessage("bob", "alice", "hi back", at.Add(time.Minute))
	third := newMessage("alice", "bob", "how are you", at.Add(2*time.Minute))
	for _, m := range []domain.Message{first, second, third} {
		_, err := repository.StoreMessage(m)
		req.NoError(err)
	}

	// When fetching either direction's conversation
	conversationID := domain.ConversationID("bob", "alice")
	fetched, _, err := repository.GetMessages(conversationID, nil)
	req.NoError(err)

	// Then both directions land in one conversation, newest first
	req.Len(fetched, 3)
	req.Equal(third.ID, fetched[0].ID)
	req.Equal(second.ID, fetched[1].ID)
	req.Equal(first.ID, fetched[2].ID)
	req.Equal("how are you", fetched[0].Content)
	req.False(fetched[0].IsRead)
}

func Test_Store_Is_Idempotent_On_Client_Message_ID(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)

	original := newMessage("alice", "bob", "first attempt", time.Now().UTC())
	original.ClientMsgID = "client-key-1"
	stored, err := repository.StoreMessage(original)
	req.NoError(err)
	req.Equal(original.ID, stored.ID)

	// When the client retries with the same key and different content
	retry := newMessage("alice", "bob", "second attempt", time.Now().UTC())
	retry.ClientMsgID = "client-key-1"
	replayed, err := repository.StoreMessage(retry)
	req.NoError(err)

	// Then the original record comes back unchanged
	req.Equal(original.ID, replayed.ID)
	req.Equal("first attempt", replayed.Content)

	// And exactly one message exists for that key
	messages, _, err := repository.GetMessages(original.ConversationID, nil)
	req.NoError(err)
	req.Len(messages, 1)

	// And the retry did not bump the unread counter twice
	conv, err := repository.GetConversation(original.ConversationID)
	req.NoError(err)
	req.Equal(1, conv.Unread("bob"))
}

func Test_Conversation_Unread_Counters(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	at := time.Now().UTC()
	conversationID := domain.ConversationID("alice", "bob")

	// Given five unread messages from alice to bob
	for i := range 5 {
		_, err := repository.StoreMessage(newMessage("alice", "bob",
			fmt.Sprintf("message %d", i), at.Add(time.Duration(i)*time.Second)))
		req.NoError(err)
	}

	conv, err := repository.GetConversation(conversationID)
	req.NoError(err)
	req.Equal(5, conv.Unread("bob"))
	req.Equal(0, conv.Unread("alice"))
	req.Equal("message 4", conv.LastMessage.Content)

	// When bob marks the conversation as read
	flipped, err := repository.MarkRead(conversationID, "bob")
	req.NoError(err)
	req.Equal(5, flipped)

	// Then the counter is reset and the messages carry a read timestamp
	conv, err = repository.GetConversation(conversationID)
	req.NoError(err)
	req.Equal(0, conv.Unread("bob"))

	messages, _, err := repository.GetMessages(conversationID, nil)
	req.NoError(err)
	for _, m := range messages {
		req.True(m.IsRead)
		req.NotNil(m.ReadAt)
	}

	// And marking again is a no-op
	flipped, err = repository.MarkRead(conversationID, "bob")
	req.NoError(err)
	req.Zero(flipped)
}

func Test_MarkRead_Leaves_Own_Messages_Alone(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	at := time.Now().UTC()
	conversationID := domain.ConversationID("alice", "bob")

	_, err := repository.StoreMessage(newMessage("alice", "bob", "to bob", at))
	req.NoError(err)
	_, err = repository.StoreMessage(newMessage("bob", "alice", "to alice", at.Add(time.Second)))
	req.NoError(err)

	// When bob reads: only the message addressed to him flips
	flipped, err := repository.MarkRead(conversationID, "bob")
	req.NoError(err)
	req.Equal(1, flipped)

	conv, err := repository.GetConversation(conversationID)
	req.NoError(err)
	req.Equal(0, conv.Unread("bob"))
	req.Equal(1, conv.Unread("alice"))
}

func Test_MessageRepository_Pagination(t *testing.T) {
	req := require.New(t)
	limit := 4
	repo := NewMessageRepository(openTestDB(t), slog.Default(), &limit)
	now := time.Now().UTC()
	conversationID := domain.ConversationID("alice", "bob")

	for i := 1; i <= 10; i++ {
		_, err := repo.StoreMessage(newMessage("alice", "bob",
			fmt.Sprintf("Message %d", i), now.Add(time.Duration(i)*time.Minute)))
		req.NoError(err)
	}

	// --- PAGE 1 ---
	msgs1, cursor1, err := repo.GetMessages(conversationID, nil)
	req.NoError(err)
	req.Len(msgs1, 4)
	req.Equal("Message 10", msgs1[0].Content)
	req.Equal("Message 7", msgs1[3].Content)
	req.NotEmpty(cursor1)

	// --- PAGE 2 ---
	msgs2, cursor2, err := repo.GetMessages(conversationID, cursor1)
	req.NoError(err)
	req.Len(msgs2, 4)
	req.Equal("Message 6", msgs2[0].Content)
	req.Equal("Message 3", msgs2[3].Content)

	// --- PAGE 3 ---
	msgs3, cursor3, err := repo.GetMessages(conversationID, cursor2)
	req.NoError(err)
	req.Len(msgs3, 2)
	req.Equal("Message 2", msgs3[0].Content)
	req.Equal("Message 1", msgs3[1].Content)

	// Nothing left after the last page
	msgs4, _, err := repo.GetMessages(conversationID, cursor3)
	req.NoError(err)
	req.Empty(msgs4)
}

func Test_UnreadTotal_Across_Conversations(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	at := time.Now().UTC()

	// Given bob has unread messages in two conversations
	for i := range 3 {
		_, err := repository.StoreMessage(newMessage("alice", "bob",
			fmt.Sprintf("from alice %d", i), at.Add(time.Duration(i)*time.Second)))
		req.NoError(err)
	}
	for i := range 2 {
		_, err := repository.StoreMessage(newMessage("clara", "bob",
			fmt.Sprintf("from clara %d", i), at.Add(time.Duration(i)*time.Second)))
		req.NoError(err)
	}
	// And one he sent himself
	_, err := repository.StoreMessage(newMessage("bob", "alice", "outgoing", at))
	req.NoError(err)

	total, err := repository.UnreadTotal("bob")
	req.NoError(err)
	req.Equal(5, total)

	total, err = repository.UnreadTotal("alice")
	req.NoError(err)
	req.Equal(1, total)

	total, err = repository.UnreadTotal("nobody")
	req.NoError(err)
	req.Zero(total)
}

func Test_GetConversations_Most_Recent_First(t *testing.T) {
	req := require.New(t)
	repository := NewMessageRepository(openTestDB(t), slog.Default(), nil)
	at := time.Now().UTC()

	_, err := repository.StoreMessage(newMessage("alice", "bob", "older", at))
	req.NoError(err)
	time.Sleep(5 * time.Millisecond)
	_, err = repository.StoreMessage(newMessage("clara", "bob", "newer", at.Add(time.Second)))
	req.NoError(err)

	conversations, err := repository.GetConversations("bob")
	req.NoError(err)
	req.Len(conversations, 2)
	req.Equal(domain.ConversationID("clara", "bob"), conversations[0].ID)
	req.Equal(domain.ConversationID("alice", "bob"), conversations[1].ID)
	req.Equal("newer", conversations[0].LastMessage.Content)
}
