package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/campuscloset/marketplace/internal/domain"
	"github.com/campuscloset/marketplace/internal/platform/crypto"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const messageSelect = `
	SELECT m.id, m.sender_id, m.receiver_id, m.body, m.sent_at, s.name, r.name
	FROM messages m
	JOIN users s ON s.id = m.sender_id
	JOIN users r ON r.id = m.receiver_id`

// MessageRepo stores message bodies through a crypto.Service, so bodies are
// encrypted at rest when a key is configured.
type MessageRepo struct {
	pool   *pgxpool.Pool
	crypto crypto.Service
}

func NewMessageRepo(pool *pgxpool.Pool, cryptoSvc crypto.Service) *MessageRepo {
	if cryptoSvc == nil {
		cryptoSvc = crypto.NoopService{}
	}
	return &MessageRepo{pool: pool, crypto: cryptoSvc}
}

func (r *MessageRepo) scanMessage(row pgx.Row) (*domain.Message, error) {
	var (
		m      domain.Message
		stored string
	)
	if err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &stored, &m.SentAt, &m.SenderName, &m.ReceiverName); err != nil {
		return nil, err
	}
	body, err := r.crypto.Decrypt(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt message %s: %w", m.ID, err)
	}
	m.Body = body
	m.SentAt = m.SentAt.UTC()
	return &m, nil
}

func (r *MessageRepo) Create(ctx context.Context, m domain.Message) (*domain.Message, error) {
	stored, err := r.crypto.Encrypt(m.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt message: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, body, sent_at)
		VALUES ($1, $2, $3, $4, $5)`, m.ID, m.SenderID, m.ReceiverID, stored, m.SentAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	return &m, nil
}

func (r *MessageRepo) GetByID(ctx context.Context, messageID uuid.UUID) (*domain.Message, error) {
	m, err := r.scanMessage(r.pool.QueryRow(ctx, messageSelect+` WHERE m.id = $1`, messageID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) ListByReceiver(ctx context.Context, receiverID uuid.UUID) ([]*domain.Message, error) {
	return r.query(ctx, messageSelect+` WHERE m.receiver_id = $1 ORDER BY m.sent_at DESC, m.id`, receiverID)
}

func (r *MessageRepo) ListBySender(ctx context.Context, senderID uuid.UUID) ([]*domain.Message, error) {
	return r.query(ctx, messageSelect+` WHERE m.sender_id = $1 ORDER BY m.sent_at DESC, m.id`, senderID)
}

func (r *MessageRepo) query(ctx context.Context, sql string, args ...any) ([]*domain.Message, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Message, error) {
		return r.scanMessage(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan messages: %w", err)
	}
	return msgs, nil
}
