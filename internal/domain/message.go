package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	MinMessageLength = 1
	MaxMessageLength = 1000
)

type Message struct {
	ID         uuid.UUID
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Body       string
	SentAt     time.Time

	// Display names, filled by repository reads.
	SenderName   string
	ReceiverName string
}

// Involves reports whether userID is the sender or the receiver.
func (m *Message) Involves(userID uuid.UUID) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

type MessageRepository interface {
	Create(ctx context.Context, m Message) (*Message, error)
	GetByID(ctx context.Context, messageID uuid.UUID) (*Message, error)
	// ListByReceiver returns messages newest first.
	ListByReceiver(ctx context.Context, receiverID uuid.UUID) ([]*Message, error)
	// ListBySender returns messages newest first.
	ListBySender(ctx context.Context, senderID uuid.UUID) ([]*Message, error)
}
