package repositories

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"chathub/domain"
)

// FriendshipRepository answers the single question the chat core asks of
// the friend-relationship collaborator: are these two users friends. The
// request/accept workflow that writes these pairs lives outside this
// module.
type FriendshipRepository struct {
	db *badger.DB
}

func NewFriendshipRepository(db *badger.DB) FriendshipRepository {
	return FriendshipRepository{db: db}
}

// The pair key reuses the conversation id derivation so the relation is
// symmetric by construction.
func friendshipKey(userID, otherID string) []byte {
	return []byte("frnd:" + domain.ConversationID(userID, otherID))
}

func (f FriendshipRepository) AreFriends(_ context.Context, userID, otherID string) (bool, error) {
	var found bool
	err := f.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(friendshipKey(userID, otherID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return found, err
}

// AddFriendship persists an established relation. Exposed for the external
// workflow and for test seeding.
func (f FriendshipRepository) AddFriendship(userID, otherID string) error {
	return f.db.Update(func(txn *badger.Txn) error {
		return txn.Set(friendshipKey(userID, otherID), []byte{1})
	})
}

// RemoveFriendship deletes the relation; further sends between the pair are
// refused.
func (f FriendshipRepository) RemoveFriendship(userID, otherID string) error {
	return f.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(friendshipKey(userID, otherID))
	})
}
