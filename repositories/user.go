package repositories

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IUserRepository interface {
	SaveProfile(userID, displayName string) error
	GetDisplayName(userID string) (string, error)
}

var ErrUserNotFound = errors.New("user not found")

// UserRepository keeps the minimal profile the chat core needs: the display
// name denormalized into every stored message. The full account record
// belongs to the authentication collaborator.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db}
}

type diskProfile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SaveProfile records or refreshes a user's display name. Called on every
// successful connection handshake so the store tracks renames.
func (u UserRepository) SaveProfile(userID, displayName string) error {
	data, err := json.Marshal(diskProfile{
		ID:          userID,
		DisplayName: displayName,
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return u.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("user:"+userID), data)
	})
}

func (u UserRepository) GetDisplayName(userID string) (string, error) {
	var profile diskProfile
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("user:" + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &profile)
		})
	})
	if err != nil {
		return "", err
	}
	return profile.DisplayName, nil
}
