package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/teamstream-hq/teamstream/internal/models"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

const messageColumns = `id, tenant_id, channel_id, dm_thread_id, sender_id, parent_message_id, body, edited_at, deleted_at, created_at`

// containerColumn maps the tagged container kind to its messages column.
// Exactly one of channel_id / dm_thread_id is set per row; the schema
// enforces that with a CHECK constraint.
func containerColumn(kind models.ContainerKind) string {
	if kind == models.ContainerDm {
		return "dm_thread_id"
	}
	return "channel_id"
}

func (s *MessageStore) Create(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef, senderID uuid.UUID, body string, parentID *int64) (*models.Message, error) {
	// Messages use bigserial, so we don't pass an ID. RETURNING gives it back.
	query := fmt.Sprintf(`
		INSERT INTO messages (tenant_id, %s, sender_id, parent_message_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING `+messageColumns, containerColumn(ref.Kind))

	var msg models.Message
	err := s.pool.QueryRow(ctx, query, tenantID, ref.ID, senderID, parentID, body).Scan(
		&msg.ID,
		&msg.TenantID,
		&msg.ChannelID,
		&msg.DmThreadID,
		&msg.SenderID,
		&msg.ParentMessageID,
		&msg.Body,
		&msg.EditedAt,
		&msg.DeletedAt,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &msg, nil
}

func (s *MessageStore) GetByID(ctx context.Context, tenantID uuid.UUID, messageID int64) (*models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE id = $1 AND tenant_id = $2`

	var msg models.Message
	err := s.pool.QueryRow(ctx, query, messageID, tenantID).Scan(
		&msg.ID,
		&msg.TenantID,
		&msg.ChannelID,
		&msg.DmThreadID,
		&msg.SenderID,
		&msg.ParentMessageID,
		&msg.Body,
		&msg.EditedAt,
		&msg.DeletedAt,
		&msg.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &msg, nil
}

func (s *MessageStore) List(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef, before int64, limit int) ([]models.Message, error) {
	// Cursor-based pagination:
	//   before=0  → first page (newest messages).
	//   before=42 → messages older than ID 42.
	//
	// ORDER BY id DESC, not created_at DESC: bigserial IDs are
	// monotonically increasing, same order as time but cheaper to sort.
	col := containerColumn(ref.Kind)

	var query string
	var args []any

	if before > 0 {
		query = fmt.Sprintf(`
			SELECT `+messageColumns+`
			FROM messages
			WHERE tenant_id = $1 AND %s = $2 AND id < $3
			ORDER BY id DESC
			LIMIT $4`, col)
		args = []any{tenantID, ref.ID, before, limit}
	} else {
		query = fmt.Sprintf(`
			SELECT `+messageColumns+`
			FROM messages
			WHERE tenant_id = $1 AND %s = $2
			ORDER BY id DESC
			LIMIT $3`, col)
		args = []any{tenantID, ref.ID, limit}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (s *MessageStore) UpdateBody(ctx context.Context, tenantID uuid.UUID, messageID int64, body string) (*models.Message, error) {
	query := `
		UPDATE messages
		SET body = $3, edited_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + messageColumns

	var msg models.Message
	err := s.pool.QueryRow(ctx, query, messageID, tenantID, body).Scan(
		&msg.ID,
		&msg.TenantID,
		&msg.ChannelID,
		&msg.DmThreadID,
		&msg.SenderID,
		&msg.ParentMessageID,
		&msg.Body,
		&msg.EditedAt,
		&msg.DeletedAt,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update message: %w", err)
	}
	return &msg, nil
}

func (s *MessageStore) SoftDelete(ctx context.Context, tenantID uuid.UUID, messageID int64) error {
	// The row survives — replies and pins keep resolving — but the body
	// is blanked so deleted content is gone from the database, not just
	// hidden behind a flag.
	query := `
		UPDATE messages
		SET body = '', deleted_at = now()
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`

	_, err := s.pool.Exec(ctx, query, messageID, tenantID)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func (s *MessageStore) ThreadSummaries(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef) ([]models.ThreadSummary, error) {
	query := fmt.Sprintf(`
		SELECT parent_message_id, COUNT(*), MAX(created_at)
		FROM messages
		WHERE tenant_id = $1 AND %s = $2 AND parent_message_id IS NOT NULL
		GROUP BY parent_message_id
		ORDER BY parent_message_id DESC`, containerColumn(ref.Kind))

	rows, err := s.pool.Query(ctx, query, tenantID, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("thread summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.ThreadSummary, 0)
	for rows.Next() {
		var ts models.ThreadSummary
		if err := rows.Scan(&ts.ParentMessageID, &ts.ReplyCount, &ts.LastReplyAt); err != nil {
			return nil, fmt.Errorf("scan thread summary: %w", err)
		}
		summaries = append(summaries, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thread summaries: %w", err)
	}

	return summaries, nil
}

func (s *MessageStore) ListReplies(ctx context.Context, tenantID uuid.UUID, parentID int64) ([]models.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE tenant_id = $1 AND parent_message_id = $2
		ORDER BY id ASC`

	rows, err := s.pool.Query(ctx, query, tenantID, parentID)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (s *MessageStore) FirstIDAfter(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef, after int64) (int64, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MIN(id), 0)
		FROM messages
		WHERE tenant_id = $1 AND %s = $2 AND id > $3`, containerColumn(ref.Kind))

	var id int64
	err := s.pool.QueryRow(ctx, query, tenantID, ref.ID, after).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("first unread id: %w", err)
	}
	return id, nil
}

func scanMessages(rows pgx.Rows) ([]models.Message, error) {
	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.TenantID,
			&msg.ChannelID,
			&msg.DmThreadID,
			&msg.SenderID,
			&msg.ParentMessageID,
			&msg.Body,
			&msg.EditedAt,
			&msg.DeletedAt,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}
