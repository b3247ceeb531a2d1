package domain

import "time"

// FrameType tags every frame exchanged over a chat connection.
type FrameType string

const (
	// Client to server.
	FramePing        FrameType = "PING"
	FrameSendMessage FrameType = "SEND_MESSAGE"
	FrameTypingStart FrameType = "TYPING_START"
	FrameTypingStop  FrameType = "TYPING_STOP"
	FrameMessageRead FrameType = "MESSAGE_READ"

	// Server to client.
	FrameConnectionEstablished FrameType = "CONNECTION_ESTABLISHED"
	FrameNewMessage            FrameType = "NEW_MESSAGE"
	FrameMessageDelivered      FrameType = "MESSAGE_DELIVERED"
	FrameUserTyping            FrameType = "USER_TYPING"
	FrameMessageReadReceipt    FrameType = "MESSAGE_READ_RECEIPT"
	FramePong                  FrameType = "PONG"
	FrameError                 FrameType = "ERROR"
)

// Error codes carried in ERROR frame payloads.
const (
	CodeInvalidParams  = "INVALID_PARAMS"
	CodeNotFriends     = "NOT_FRIENDS"
	CodeContentTooLong = "CONTENT_TOO_LONG"
	CodeSendFailed     = "SEND_FAILED"
	CodeParseError     = "PARSE_ERROR"
	CodeUnknownType    = "UNKNOWN_TYPE"
)

// Frame is the logical wire unit of the chat protocol. Payload keys depend
// on the type; absent fields are omitted rather than sent as null.
type Frame struct {
	Type      FrameType      `json:"type"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

func newFrame(t FrameType, payload map[string]any) Frame {
	return Frame{Type: t, Payload: payload, Timestamp: time.Now().UTC()}
}

func ConnectionEstablishedFrame(userID string) Frame {
	return newFrame(FrameConnectionEstablished, map[string]any{
		"userId":  userID,
		"message": "connection established",
	})
}

func NewMessageFrame(m Message) Frame {
	return newFrame(FrameNewMessage, map[string]any{
		"messageId":      m.ID,
		"conversationId": m.ConversationID,
		"senderId":       m.SenderID,
		"senderName":     m.SenderName,
		"content":        m.Content,
		"timestamp":      m.CreatedAt.Format(time.RFC3339Nano),
	})
}

func MessageDeliveredFrame(messageID, clientMsgID string) Frame {
	payload := map[string]any{"messageId": messageID}
	if clientMsgID != "" {
		payload["clientMessageId"] = clientMsgID
	}
	return newFrame(FrameMessageDelivered, payload)
}

func UserTypingFrame(userID, displayName string, isTyping bool) Frame {
	return newFrame(FrameUserTyping, map[string]any{
		"userId":   userID,
		"userName": displayName,
		"isTyping": isTyping,
	})
}

func MessageReadReceiptFrame(conversationID, messageID, readBy string) Frame {
	payload := map[string]any{
		"conversationId": conversationID,
		"readBy":         readBy,
		"readAt":         time.Now().UTC().Format(time.RFC3339Nano),
	}
	if messageID != "" {
		payload["messageId"] = messageID
	}
	return newFrame(FrameMessageReadReceipt, payload)
}

func PongFrame() Frame {
	return newFrame(FramePong, map[string]any{"message": "pong"})
}

func ErrorFrame(code, message string) Frame {
	return newFrame(FrameError, map[string]any{
		"code":    code,
		"message": message,
	})
}
