package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/teamstream-hq/teamstream/internal/models"
)

type ReactionStore struct {
	pool *pgxpool.Pool
}

func NewReactionStore(pool *pgxpool.Pool) *ReactionStore {
	return &ReactionStore{pool: pool}
}

func (s *ReactionStore) Add(ctx context.Context, tenantID uuid.UUID, messageID int64, userID uuid.UUID, emoji string) error {
	// Same idempotency pattern as channel_members: reacting twice with
	// the same emoji is a silent no-op, not a constraint error.
	query := `
		INSERT INTO reactions (tenant_id, message_id, user_id, emoji, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (message_id, user_id, emoji) DO NOTHING`

	_, err := s.pool.Exec(ctx, query, tenantID, messageID, userID, emoji)
	if err != nil {
		return fmt.Errorf("add reaction: %w", err)
	}
	return nil
}

func (s *ReactionStore) Remove(ctx context.Context, tenantID uuid.UUID, messageID int64, userID uuid.UUID, emoji string) error {
	query := `
		DELETE FROM reactions
		WHERE tenant_id = $1 AND message_id = $2 AND user_id = $3 AND emoji = $4`

	_, err := s.pool.Exec(ctx, query, tenantID, messageID, userID, emoji)
	if err != nil {
		return fmt.Errorf("remove reaction: %w", err)
	}
	return nil
}

func (s *ReactionStore) ListByMessage(ctx context.Context, tenantID uuid.UUID, messageID int64) ([]models.Reaction, error) {
	query := `
		SELECT tenant_id, message_id, user_id, emoji, created_at
		FROM reactions
		WHERE tenant_id = $1 AND message_id = $2
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, tenantID, messageID)
	if err != nil {
		return nil, fmt.Errorf("list reactions: %w", err)
	}
	defer rows.Close()

	reactions := make([]models.Reaction, 0)
	for rows.Next() {
		var r models.Reaction
		if err := rows.Scan(&r.TenantID, &r.MessageID, &r.UserID, &r.Emoji, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reaction: %w", err)
		}
		reactions = append(reactions, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reactions: %w", err)
	}

	return reactions, nil
}
