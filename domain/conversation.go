package domain

import "time"

// LastMessage is the denormalized summary of the most recent message of a
// conversation, kept on the aggregate so conversation lists never scan the
// message log.
type LastMessage struct {
	MessageID string
	Content   string
	SenderID  string
	At        time.Time
}

// Conversation is the durable aggregate for one unordered pair of users.
// UnreadCounts always holds exactly one entry per participant.
type Conversation struct {
	ID           string
	Participants [2]string
	LastMessage  LastMessage
	UnreadCounts map[string]int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Unread returns the pending count for one participant.
func (c Conversation) Unread(userID string) int {
	return c.UnreadCounts[userID]
}
