package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chathub/contract"
)

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	jwt.RegisteredClaims
}

// TokenService signs and validates the tokens presented at connection setup.
// Issuance itself (login, refresh, revocation) lives outside this module;
// the chat core only consumes the resulting identity.
type TokenService struct {
	key           []byte
	tokenDuration time.Duration
}

func NewTokenService(secret string, tokenDuration time.Duration) TokenService {
	return TokenService{key: []byte(secret), tokenDuration: tokenDuration}
}

// GenerateToken creates a signed JWT for a specific user.
func (s TokenService) GenerateToken(userID, displayName string) (string, error) {
	expirationTime := time.Now().Add(s.tokenDuration)

	claims := &CustomClaims{
		UserID:      userID,
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "chathub",
		},
	}

	// HS256 (HMAC with SHA256), signed with the server's secret key.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

// Authenticate parses and validates the signature and expiration of a JWT
// string and returns the identity it certifies.
func (s TokenService) Authenticate(tokenString string) (contract.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.key, nil
	})
	if err != nil {
		return contract.Identity{}, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return contract.Identity{}, jwt.ErrSignatureInvalid
	}
	return contract.Identity{UserID: claims.UserID, DisplayName: claims.DisplayName}, nil
}
