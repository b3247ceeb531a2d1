package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"

	"chathub/domain"
)

type IMessageRepository interface {
	StoreMessage(message domain.Message) (domain.Message, error)
	GetMessages(conversationID string, cursor *string) ([]domain.Message, *string, error)
	MarkRead(conversationID, readerID string) (int, error)
	UnreadTotal(userID string) (int, error)
	GetConversation(conversationID string) (domain.Conversation, error)
	GetConversations(userID string) ([]domain.Conversation, error)
}

var ErrConversationNotFound = errors.New("conversation not found")

// Transactions are retried a few times on SSI conflicts before giving up;
// contention is per-conversation so retries resolve quickly.
const maxTxnRetries = 3

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

type diskMessage struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	SenderID       string     `json:"senderId"`
	SenderName     string     `json:"senderName"`
	RecipientID    string     `json:"recipientId"`
	Content        string     `json:"content"`
	CreatedAt      time.Time  `json:"createdAt"`
	IsRead         bool       `json:"isRead"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
	ClientMsgID    string     `json:"clientMessageId,omitempty"`
}

type diskLastMessage struct {
	MessageID string    `json:"messageId"`
	Content   string    `json:"content"`
	SenderID  string    `json:"senderId"`
	At        time.Time `json:"at"`
}

type diskConversation struct {
	ID           string          `json:"id"`
	Participants [2]string       `json:"participants"`
	LastMessage  diskLastMessage `json:"lastMessage"`
	UnreadCounts map[string]int  `json:"unreadCounts"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// Key layout. The message key embeds a 19-digit zero padded timestamp so a
// plain prefix scan walks a conversation chronologically; the message id
// disambiguates two messages landing on the same nanosecond.
//
//	msg:{conversationId}:{%019d unixnano}:{messageId}  -> diskMessage
//	midx:{clientMessageId}                             -> message key
//	conv:{conversationId}                              -> diskConversation
//	uconv:{userId}:{conversationId}                    -> conversationId
func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", m.ConversationID, m.CreatedAt.UnixNano(), m.ID))
}

func dedupKey(clientMsgID string) []byte {
	return []byte("midx:" + clientMsgID)
}

func conversationKey(conversationID string) []byte {
	return []byte("conv:" + conversationID)
}

func userConversationKey(userID, conversationID string) []byte {
	return []byte("uconv:" + userID + ":" + conversationID)
}

// StoreMessage persists a message together with its conversation bookkeeping
// in a single transaction: the insert, the idempotency index, the
// last-message summary and the recipient's unread counter all commit or
// none do. When the client message id was already seen, the previously
// stored message is returned untouched.
func (r MessageRepository) StoreMessage(message domain.Message) (domain.Message, error) {
	var stored domain.Message

	err := r.update(func(txn *badger.Txn) error {
		if message.ClientMsgID != "" {
			existing, found, err := r.findByDedupKey(txn, message.ClientMsgID)
			if err != nil {
				return err
			}
			if found {
				r.log.Warn("Duplicate message ignored", "clientMessageId", message.ClientMsgID)
				stored = existing
				return nil
			}
		}

		data, err := json.Marshal(fromDomainMessage(message))
		if err != nil {
			return err
		}
		key := messageKey(message)
		if err = txn.Set(key, data); err != nil {
			return err
		}
		if message.ClientMsgID != "" {
			if err = txn.Set(dedupKey(message.ClientMsgID), key); err != nil {
				return err
			}
		}
		if err = r.upsertConversation(txn, message); err != nil {
			return err
		}
		stored = message
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	return stored, nil
}

func (r MessageRepository) findByDedupKey(txn *badger.Txn, clientMsgID string) (domain.Message, bool, error) {
	item, err := txn.Get(dedupKey(clientMsgID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Message{}, false, nil
	}
	if err != nil {
		return domain.Message{}, false, err
	}

	var msgKey []byte
	if err = item.Value(func(val []byte) error {
		msgKey = append([]byte(nil), val...)
		return nil
	}); err != nil {
		return domain.Message{}, false, err
	}

	msgItem, err := txn.Get(msgKey)
	if err != nil {
		return domain.Message{}, false, fmt.Errorf("dangling dedup index %q: %w", clientMsgID, err)
	}
	var dm diskMessage
	if err = msgItem.Value(func(val []byte) error {
		return json.Unmarshal(val, &dm)
	}); err != nil {
		return domain.Message{}, false, err
	}
	return toDomainMessage(dm), true, nil
}

func (r MessageRepository) upsertConversation(txn *badger.Txn, message domain.Message) error {
	now := time.Now().UTC()
	summary := diskLastMessage{
		MessageID: message.ID,
		Content:   message.Content,
		SenderID:  message.SenderID,
		At:        message.CreatedAt,
	}

	var conv diskConversation
	item, err := txn.Get(conversationKey(message.ConversationID))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		conv = diskConversation{
			ID:           message.ConversationID,
			Participants: [2]string{message.SenderID, message.RecipientID},
			LastMessage:  summary,
			UnreadCounts: map[string]int{
				message.SenderID:    0,
				message.RecipientID: 1,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
	case err != nil:
		return err
	default:
		if err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &conv)
		}); err != nil {
			return err
		}
		conv.LastMessage = summary
		conv.UnreadCounts[message.RecipientID]++
		conv.UpdatedAt = now
	}

	data, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	if err = txn.Set(conversationKey(message.ConversationID), data); err != nil {
		return err
	}
	// Both participants can find the conversation again without scanning.
	if err = txn.Set(userConversationKey(message.SenderID, conv.ID), []byte(conv.ID)); err != nil {
		return err
	}
	return txn.Set(userConversationKey(message.RecipientID, conv.ID), []byte(conv.ID))
}

// GetMessages retrieves one page of a conversation, newest first, using a
// reverse prefix scan. The padded timestamp in the key gives the ordering
// for free; the returned cursor is the key suffix of the last entry and
// feeds the next call.
func (r MessageRepository) GetMessages(conversationID string, cursor *string) ([]domain.Message, *string, error) {
	var diskMessages []diskMessage
	var lastKey string

	err := r.db.View(func(txn *badger.Txn) error {
		prefixStr := "msg:" + conversationID + ":"
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past any possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		default:
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)

		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if r.limitMessages != nil && len(diskMessages) == *r.limitMessages {
				r.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *r.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				var dm diskMessage
				if err := json.Unmarshal(value, &dm); err != nil {
					return err
				}
				diskMessages = append(diskMessages, dm)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	messages := lo.Map(diskMessages, func(dm diskMessage, _ int) domain.Message {
		return toDomainMessage(dm)
	})
	return messages, &lastKey, nil
}

// MarkRead flips every unread message addressed to readerID in the
// conversation and zeroes the reader's unread counter, all in one
// transaction. Returns how many messages changed; zero means there was
// nothing to do.
func (r MessageRepository) MarkRead(conversationID, readerID string) (int, error) {
	var flipped int

	err := r.update(func(txn *badger.Txn) error {
		flipped = 0
		now := time.Now().UTC()
		prefix := []byte("msg:" + conversationID + ":")

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		type pending struct {
			key  []byte
			data []byte
		}
		var updates []pending

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var dm diskMessage
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &dm)
			}); err != nil {
				return err
			}
			if dm.RecipientID != readerID || dm.IsRead {
				continue
			}
			dm.IsRead = true
			dm.ReadAt = &now
			data, err := json.Marshal(dm)
			if err != nil {
				return err
			}
			updates = append(updates, pending{key: item.KeyCopy(nil), data: data})
		}

		for _, u := range updates {
			if err := txn.Set(u.key, u.data); err != nil {
				return err
			}
		}
		flipped = len(updates)

		if flipped == 0 {
			return nil
		}
		return r.resetUnreadCount(txn, conversationID, readerID)
	})
	if err != nil {
		return 0, err
	}
	return flipped, nil
}

func (r MessageRepository) resetUnreadCount(txn *badger.Txn, conversationID, readerID string) error {
	item, err := txn.Get(conversationKey(conversationID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		// Messages without an aggregate should not happen; nothing to reset.
		r.log.Warn("Conversation missing while resetting unread count", "conversationId", conversationID)
		return nil
	}
	if err != nil {
		return err
	}
	var conv diskConversation
	if err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &conv)
	}); err != nil {
		return err
	}
	conv.UnreadCounts[readerID] = 0
	data, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return txn.Set(conversationKey(conversationID), data)
}

// UnreadTotal sums the user's unread counter across all their
// conversations.
func (r MessageRepository) UnreadTotal(userID string) (int, error) {
	var total int
	err := r.db.View(func(txn *badger.Txn) error {
		convs, err := r.conversationsFor(txn, userID)
		if err != nil {
			return err
		}
		for _, conv := range convs {
			total += conv.UnreadCounts[userID]
		}
		return nil
	})
	return total, err
}

func (r MessageRepository) GetConversation(conversationID string) (domain.Conversation, error) {
	var conv diskConversation
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(conversationKey(conversationID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrConversationNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &conv)
		})
	})
	if err != nil {
		return domain.Conversation{}, err
	}
	return toDomainConversation(conv), nil
}

// GetConversations lists the user's conversations, most recently active
// first.
func (r MessageRepository) GetConversations(userID string) ([]domain.Conversation, error) {
	var disk []diskConversation
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		disk, err = r.conversationsFor(txn, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	conversations := lo.Map(disk, func(dc diskConversation, _ int) domain.Conversation {
		return toDomainConversation(dc)
	})
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	return conversations, nil
}

func (r MessageRepository) conversationsFor(txn *badger.Txn, userID string) ([]diskConversation, error) {
	prefix := []byte("uconv:" + userID + ":")
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var convIDs []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := it.Item().Value(func(val []byte) error {
			convIDs = append(convIDs, string(val))
			return nil
		}); err != nil {
			return nil, err
		}
	}

	var convs []diskConversation
	for _, id := range convIDs {
		item, err := txn.Get(conversationKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var conv diskConversation
		if err = item.Value(func(val []byte) error {
			return json.Unmarshal(val, &conv)
		}); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

func (r MessageRepository) update(fn func(txn *badger.Txn) error) error {
	var err error
	for range maxTxnRetries {
		err = r.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		r.log.Debug("Transaction conflict, retrying")
	}
	return err
}

func fromDomainMessage(m domain.Message) diskMessage {
	return diskMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		RecipientID:    m.RecipientID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
		IsRead:         m.IsRead,
		ReadAt:         m.ReadAt,
		ClientMsgID:    m.ClientMsgID,
	}
}

func toDomainMessage(dm diskMessage) domain.Message {
	return domain.Message{
		ID:             dm.ID,
		ConversationID: dm.ConversationID,
		SenderID:       dm.SenderID,
		SenderName:     dm.SenderName,
		RecipientID:    dm.RecipientID,
		Content:        dm.Content,
		CreatedAt:      dm.CreatedAt,
		IsRead:         dm.IsRead,
		ReadAt:         dm.ReadAt,
		ClientMsgID:    dm.ClientMsgID,
	}
}

func toDomainConversation(dc diskConversation) domain.Conversation {
	return domain.Conversation{
		ID:           dc.ID,
		Participants: dc.Participants,
		LastMessage: domain.LastMessage{
			MessageID: dc.LastMessage.MessageID,
			Content:   dc.LastMessage.Content,
			SenderID:  dc.LastMessage.SenderID,
			At:        dc.LastMessage.At,
		},
		UnreadCounts: dc.UnreadCounts,
		CreatedAt:    dc.CreatedAt,
		UpdatedAt:    dc.UpdatedAt,
	}
}
