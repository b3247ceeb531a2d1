package ws

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"chathub/contract"
	"chathub/domain"
	"chathub/errors"
)

// Protocol interprets inbound frames for active connections and
// orchestrates the store, the friend collaborator, the fan-out bus, and
// presence. One instance serves every connection on the node; all state
// lives in the session.
type Protocol struct {
	log      *slog.Logger
	chat     contract.IChatService
	friends  contract.FriendChecker
	bus      contract.Bus
	registry contract.IRegistry
	presence contract.Presence
	validate *validator.Validate
}

func NewProtocol(log *slog.Logger, chat contract.IChatService, friends contract.FriendChecker,
	bus contract.Bus, registry contract.IRegistry, presence contract.Presence) *Protocol {
	return &Protocol{
		log:      log,
		chat:     chat,
		friends:  friends,
		bus:      bus,
		registry: registry,
		presence: presence,
		validate: validator.New(),
	}
}

type sendMessagePayload struct {
	RecipientID string `json:"recipientId" validate:"required"`
	Content     string `json:"content" validate:"required"`
	ClientMsgID string `json:"clientMessageId"`
}

type typingPayload struct {
	RecipientID string `json:"recipientId" validate:"required"`
}

type messageReadPayload struct {
	ConversationID string `json:"conversationId" validate:"required"`
	MessageID      string `json:"messageId"`
}

// HandleFrame dispatches one inbound frame on behalf of an active session.
// Bad input answers with an ERROR frame and never tears the connection
// down.
func (p *Protocol) HandleFrame(sess contract.Session, frame domain.Frame) {
	ctx := context.Background()

	switch frame.Type {
	case domain.FramePing:
		_ = sess.Send(domain.PongFrame())
	case domain.FrameSendMessage:
		p.handleSendMessage(ctx, sess, frame)
	case domain.FrameTypingStart:
		p.handleTyping(ctx, sess, frame, true)
	case domain.FrameTypingStop:
		p.handleTyping(ctx, sess, frame, false)
	case domain.FrameMessageRead:
		p.handleMessageRead(ctx, sess, frame)
	default:
		p.log.Warn("Unknown frame type", "userId", sess.UserID(), "type", frame.Type)
		_ = sess.Send(domain.ErrorFrame(domain.CodeUnknownType, "unknown frame type"))
	}
}

func (p *Protocol) handleSendMessage(ctx context.Context, sess contract.Session, frame domain.Frame) {
	var payload sendMessagePayload
	if err := p.decode(frame, &payload); err != nil {
		_ = sess.Send(domain.ErrorFrame(domain.CodeInvalidParams, "recipientId and content are required"))
		return
	}

	friends, err := p.friends.AreFriends(ctx, sess.UserID(), payload.RecipientID)
	if err != nil {
		p.log.Error("Friend lookup failed", "userId", sess.UserID(), "error", err)
		_ = sess.Send(domain.ErrorFrame(domain.CodeSendFailed, "could not send the message"))
		return
	}
	if !friends {
		_ = sess.Send(domain.ErrorFrame(domain.CodeNotFriends, "messages can only be sent to friends"))
		return
	}

	message, err := p.chat.SaveMessage(ctx, sess.UserID(), payload.RecipientID, payload.Content, payload.ClientMsgID)
	if err != nil {
		_ = sess.Send(saveErrorFrame(err))
		return
	}

	// Durability confirmed; the ack does not imply recipient receipt.
	_ = sess.Send(domain.MessageDeliveredFrame(message.ID, payload.ClientMsgID))

	// Best-effort fan-out. A broker failure is logged and swallowed: the
	// message is already durable and recoverable through history.
	if err := p.bus.Publish(ctx, message.RecipientID, domain.NewMessageFrame(message)); err != nil {
		p.log.Error("Bus publish failed", "messageId", message.ID, "error", err)
	}
}

func saveErrorFrame(err error) domain.Frame {
	switch {
	case stderrors.Is(err, errors.ErrContentTooLong):
		return domain.ErrorFrame(domain.CodeContentTooLong, "message content exceeds 2000 characters")
	case stderrors.Is(err, errors.ErrEmptyContent), stderrors.Is(err, errors.ErrMissingRecipient):
		return domain.ErrorFrame(domain.CodeInvalidParams, "recipientId and content are required")
	default:
		return domain.ErrorFrame(domain.CodeSendFailed, "could not send the message")
	}
}

func (p *Protocol) handleTyping(ctx context.Context, sess contract.Session, frame domain.Frame, isTyping bool) {
	var payload typingPayload
	if err := p.decode(frame, &payload); err != nil {
		// Typing is fire-and-forget in both directions; nothing to answer.
		return
	}
	typing := domain.UserTypingFrame(sess.UserID(), sess.DisplayName(), isTyping)
	if err := p.bus.Publish(ctx, payload.RecipientID, typing); err != nil {
		p.log.Debug("Typing publish failed", "userId", sess.UserID(), "error", err)
	}
}

func (p *Protocol) handleMessageRead(ctx context.Context, sess contract.Session, frame domain.Frame) {
	var payload messageReadPayload
	if err := p.decode(frame, &payload); err != nil {
		_ = sess.Send(domain.ErrorFrame(domain.CodeInvalidParams, "conversationId is required"))
		return
	}

	if _, err := p.chat.MarkRead(ctx, payload.ConversationID, sess.UserID()); err != nil {
		p.log.Warn("Mark read failed", "userId", sess.UserID(), "conversationId", payload.ConversationID, "error", err)
		_ = sess.Send(domain.ErrorFrame(domain.CodeInvalidParams, "could not mark the conversation as read"))
		return
	}

	other, err := domain.OtherParticipant(payload.ConversationID, sess.UserID())
	if err != nil {
		return
	}
	receipt := domain.MessageReadReceiptFrame(payload.ConversationID, payload.MessageID, sess.UserID())
	if err := p.bus.Publish(ctx, other, receipt); err != nil {
		p.log.Debug("Read receipt publish failed", "conversationId", payload.ConversationID, "error", err)
	}
}

// OnClose runs the cleanup shared by the normal close path and every error
// path. Unregister is instance-matched and presence removal is idempotent,
// so racing a reconnect is harmless.
func (p *Protocol) OnClose(sess contract.Session) {
	p.registry.Unregister(sess.UserID(), sess)
	if err := p.presence.MarkOffline(context.Background(), sess.UserID()); err != nil {
		p.log.Warn("Presence cleanup failed", "userId", sess.UserID(), "error", err)
	}
	p.log.Info("Connection closed", "userId", sess.UserID(), "online", p.registry.Len())
}

// decode maps a frame payload onto a typed struct and validates it. The
// payload travels as a loose key-value map; round-tripping through JSON
// keeps the struct tags authoritative.
func (p *Protocol) decode(frame domain.Frame, out any) error {
	data, err := json.Marshal(frame.Payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return err
	}
	return p.validate.Struct(out)
}
