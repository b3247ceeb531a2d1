package errors

import "fmt"

var (
	ErrEmptyContent     = fmt.Errorf("message content is empty")
	ErrContentTooLong   = fmt.Errorf("message content exceeds the maximum length")
	ErrMissingRecipient = fmt.Errorf("recipient is missing")
	ErrUnknownSender    = fmt.Errorf("sender does not exist")
	ErrSessionClosed    = fmt.Errorf("session is closed")
	ErrNotParticipant   = fmt.Errorf("user is not a participant of the conversation")
	ErrConversationID   = fmt.Errorf("malformed conversation id")
	ErrWorkerPanic      = fmt.Errorf("worker panic")
)
