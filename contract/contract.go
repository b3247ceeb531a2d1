package contract

import (
	"context"
	"reflect"

	"chathub/domain"
)

// Session is one live client connection, owned by the node that accepted it.
// Send must be safe for concurrent use; writes to the underlying socket are
// serialized behind it.
type Session interface {
	UserID() string
	DisplayName() string
	Send(frame domain.Frame) error
	Close()
}

// IRegistry is the per-node map from user id to that user's single active
// session on this node.
type IRegistry interface {
	Register(userID string, sess Session) (evicted Session, replaced bool)
	Unregister(userID string, sess Session)
	Lookup(userID string) (Session, bool)
	IsOnline(userID string) bool
	Users() []string
	Len() int
}

// Delivery is one event received from the fan-out bus, addressed to a user
// who may or may not be connected to this node.
type Delivery struct {
	UserID string
	Frame  domain.Frame
}

// Bus fans events out to every node hosting chat connections. Publish is
// fire-and-forget with at-most-once semantics; a node subscribes exactly
// once to the full user-channel space.
type Bus interface {
	Publish(ctx context.Context, userID string, frame domain.Frame) error
	Subscribe(ctx context.Context) (<-chan Delivery, error)
}

// Presence is the cluster-shared, TTL-bounded online status. Advisory only.
type Presence interface {
	MarkOnline(ctx context.Context, userID string) error
	MarkOffline(ctx context.Context, userID string) error
	IsOnline(ctx context.Context, userID string) (bool, error)
}

// FriendChecker is the consumed surface of the friend-relationship
// collaborator.
type FriendChecker interface {
	AreFriends(ctx context.Context, userID, otherID string) (bool, error)
}

// Identity is what the authentication collaborator hands over at connection
// setup.
type Identity struct {
	UserID      string
	DisplayName string
}

// Authenticator validates connection-setup credentials.
type Authenticator interface {
	Authenticate(token string) (Identity, error)
}

// IChatService is the message store surface shared by the live WebSocket
// path and the history/unread HTTP path.
type IChatService interface {
	SaveMessage(ctx context.Context, senderID, recipientID, content, clientMsgID string) (domain.Message, error)
	ListMessages(conversationID string, cursor *string) ([]domain.Message, *string, error)
	MarkRead(ctx context.Context, conversationID, readerID string) (int, error)
	UnreadTotal(userID string) (int, error)
	ListConversations(userID string) ([]domain.Conversation, error)
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

type WorkerName string

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// initialization or lifecycle events, avoiding the need for manual naming
// in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
