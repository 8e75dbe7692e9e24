package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/campuscloset/marketplace/internal/domain"
	"github.com/google/uuid"
)

func validateMessageBody(body string) error {
	n := utf8.RuneCountInString(body)
	if n < domain.MinMessageLength || n > domain.MaxMessageLength {
		return domain.NewValidationError("body", fmt.Sprintf("must be between %d and %d characters", domain.MinMessageLength, domain.MaxMessageLength))
	}
	return nil
}

// Recipient resolves the user a message would be addressed to.
func (s *Service) Recipient(ctx context.Context, id domain.Identity, receiverID uuid.UUID) (*domain.User, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, receiverID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrRecipientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recipient: %w", err)
	}
	return user, nil
}

// SendMessage delivers a direct message from the caller to receiverID.
func (s *Service) SendMessage(ctx context.Context, id domain.Identity, receiverID uuid.UUID, body string) (*domain.Message, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if err := validateMessageBody(body); err != nil {
		return nil, err
	}

	receiver, err := s.Recipient(ctx, id, receiverID)
	if err != nil {
		return nil, err
	}

	msg, err := s.messages.Create(ctx, domain.Message{
		ID:           uuid.New(),
		SenderID:     id.UserID,
		ReceiverID:   receiver.ID,
		Body:         body,
		SentAt:       s.clock.Now().UTC(),
		SenderName:   id.Name,
		ReceiverName: receiver.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	s.metrics.MessageSent()
	slog.InfoContext(ctx, "Message sent", "message_id", msg.ID, "sender_id", id.UserID, "receiver_id", receiver.ID)
	return msg, nil
}

// Inbox returns messages addressed to the caller, newest first.
func (s *Service) Inbox(ctx context.Context, id domain.Identity) ([]*domain.Message, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListByReceiver(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox: %w", err)
	}
	return msgs, nil
}

// Sent returns messages the caller has sent, newest first.
func (s *Service) Sent(ctx context.Context, id domain.Identity) ([]*domain.Message, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListBySender(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sent messages: %w", err)
	}
	return msgs, nil
}

// GetMessage returns a message the caller sent or received. Messages between
// other users are reported as domain.ErrMessageNotFound.
func (s *Service) GetMessage(ctx context.Context, id domain.Identity, messageID uuid.UUID) (*domain.Message, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !msg.Involves(id.UserID) {
		slog.WarnContext(ctx, "Message access denied", "message_id", messageID, "user_id", id.UserID)
		return nil, domain.ErrMessageNotFound
	}
	return msg, nil
}
