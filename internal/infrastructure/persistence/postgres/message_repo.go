package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tutorhub/tutorhub/internal/domain/message"
	"github.com/tutorhub/tutorhub/internal/domain/shared"
)

// MessageRepository implements message.Repository for PostgreSQL.
type MessageRepository struct {
	conn *Connection
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(conn *Connection) *MessageRepository {
	return &MessageRepository{conn: conn}
}

// Create creates a new message.
func (r *MessageRepository) Create(ctx context.Context, m *message.Message) error {
	query := `
		INSERT INTO messages (id, offering_id, user_id, content, attachments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	attachmentsJSON, err := marshalAttachments(m.Attachments)
	if err != nil {
		return err
	}

	_, err = r.conn.Exec(ctx, query,
		m.ID,
		m.OfferingID,
		m.UserID,
		m.Content,
		attachmentsJSON,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// GetByID returns a message by ID.
func (r *MessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*message.Message, error) {
	query := `
		SELECT id, offering_id, user_id, content, attachments, created_at
		FROM messages
		WHERE id = $1
	`

	return r.scanMessage(r.conn.QueryRow(ctx, query, id))
}

// ListByOffering returns an offering's messages oldest-first.
func (r *MessageRepository) ListByOffering(ctx context.Context, offeringID uuid.UUID) ([]*message.Message, error) {
	query := `
		SELECT id, offering_id, user_id, content, attachments, created_at
		FROM messages
		WHERE offering_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.conn.Query(ctx, query, offeringID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*message.Message
	for rows.Next() {
		m, err := r.scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return messages, nil
}

// Delete removes a message.
func (r *MessageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.conn.Exec(ctx, "DELETE FROM messages WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.WrapError("message", "Delete", shared.ErrNotFound)
	}
	return nil
}

func (r *MessageRepository) scanMessage(row pgx.Row) (*message.Message, error) {
	var m message.Message
	var attachmentsJSON []byte

	err := row.Scan(
		&m.ID,
		&m.OfferingID,
		&m.UserID,
		&m.Content,
		&attachmentsJSON,
		&m.CreatedAt,
	)
	if IsNoRows(err) {
		return nil, shared.WrapError("message", "Get", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}

	m.Attachments, err = unmarshalAttachments(attachmentsJSON)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
