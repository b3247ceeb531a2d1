package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Generate_And_Authenticate_Token(t *testing.T) {
	req := require.New(t)
	service := NewTokenService("unit_test_secret_key_long_enough", time.Hour)

	// Given a signed token for a user
	token, err := service.GenerateToken("user-42", "Alice")
	req.NoError(err)
	req.NotEmpty(token)

	// When validating it
	identity, err := service.Authenticate(token)

	// Then the certified identity comes back
	req.NoError(err)
	req.Equal("user-42", identity.UserID)
	req.Equal("Alice", identity.DisplayName)
}

func Test_Authenticate_Rejects_Garbage(t *testing.T) {
	req := require.New(t)
	service := NewTokenService("unit_test_secret_key_long_enough", time.Hour)

	_, err := service.Authenticate("not-a-jwt")
	req.Error(err)
}

func Test_Authenticate_Rejects_Wrong_Key(t *testing.T) {
	req := require.New(t)
	issuer := NewTokenService("first_secret_key_for_signing_here", time.Hour)
	verifier := NewTokenService("second_secret_key_for_checking_it", time.Hour)

	token, err := issuer.GenerateToken("user-42", "Alice")
	req.NoError(err)

	_, err = verifier.Authenticate(token)
	req.Error(err)
}

func Test_Authenticate_Rejects_Expired_Token(t *testing.T) {
	req := require.New(t)
	service := NewTokenService("unit_test_secret_key_long_enough", -time.Minute)

	token, err := service.GenerateToken("user-42", "Alice")
	req.NoError(err)

	_, err = service.Authenticate(token)
	req.Error(err)
}
