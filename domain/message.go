// Package domain contains core concepts of the chat system.
// This file defines Message entities and the conversation identity rules.
// No runtime, network, or storage logic should be added here.
package domain

import (
	"strings"
	"time"

	"chathub/errors"
)

// Message represents an immutable chat message exchanged between two users.
// SenderName is denormalized at write time so history reads never need a
// user lookup.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	SenderName     string
	RecipientID    string
	Content        string
	CreatedAt      time.Time
	IsRead         bool
	ReadAt         *time.Time
	ClientMsgID    string
}

// ConversationID derives the identifier of the conversation between two
// users. The two ids are sorted lexicographically before joining so both
// directions of a pair map to the same conversation.
func ConversationID(userA, userB string) string {
	if userA < userB {
		return userA + "_" + userB
	}
	return userB + "_" + userA
}

// SplitConversationID returns the two participants encoded in a
// conversation id.
func SplitConversationID(conversationID string) (string, string, error) {
	parts := strings.SplitN(conversationID, "_", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.ErrConversationID
	}
	return parts[0], parts[1], nil
}

// OtherParticipant resolves the peer of userID inside a conversation.
func OtherParticipant(conversationID, userID string) (string, error) {
	a, b, err := SplitConversationID(conversationID)
	if err != nil {
		return "", err
	}
	switch userID {
	case a:
		return b, nil
	case b:
		return a, nil
	default:
		return "", errors.ErrNotParticipant
	}
}
