package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_Friendship_Is_Symmetric(t *testing.T) {
	req := require.New(t)
	repository := NewFriendshipRepository(openTestDB(t))
	ctx := context.Background()

	ok, err := repository.AreFriends(ctx, "alice", "bob")
	req.NoError(err)
	req.False(ok)

	req.NoError(repository.AddFriendship("alice", "bob"))

	// Both directions answer yes
	ok, err = repository.AreFriends(ctx, "alice", "bob")
	req.NoError(err)
	req.True(ok)
	ok, err = repository.AreFriends(ctx, "bob", "alice")
	req.NoError(err)
	req.True(ok)

	req.NoError(repository.RemoveFriendship("bob", "alice"))
	ok, err = repository.AreFriends(ctx, "alice", "bob")
	req.NoError(err)
	req.False(ok)
}

func Test_User_Profile_Roundtrip(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openTestDB(t))

	_, err := repository.GetDisplayName("ghost")
	req.ErrorIs(err, ErrUserNotFound)

	req.NoError(repository.SaveProfile("u1", "Alice"))
	name, err := repository.GetDisplayName("u1")
	req.NoError(err)
	req.Equal("Alice", name)

	// Renames overwrite
	req.NoError(repository.SaveProfile("u1", "Alicia"))
	name, err = repository.GetDisplayName("u1")
	req.NoError(err)
	req.Equal("Alicia", name)
}
