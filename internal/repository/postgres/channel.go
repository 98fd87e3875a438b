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

type ChannelStore struct {
	pool *pgxpool.Pool
}

func NewChannelStore(pool *pgxpool.Pool) *ChannelStore {
	return &ChannelStore{pool: pool}
}

// Create inserts the channel and the creator's owner membership in one
// transaction. A failed membership insert rolls the channel back, so the
// at-least-one-member invariant holds for every committed row.
func (s *ChannelStore) Create(ctx context.Context, tenantID uuid.UUID, name string, isPrivate bool, createdBy uuid.UUID) (*models.Channel, error) {
	channelQuery := `
		INSERT INTO channels (id, tenant_id, name, is_private, created_by, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, now())
		RETURNING id, tenant_id, name, is_private, created_by, created_at`
	memberQuery := `
		INSERT INTO channel_members (tenant_id, channel_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, now())`

	var ch models.Channel
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, channelQuery, tenantID, name, isPrivate, createdBy).Scan(
			&ch.ID,
			&ch.TenantID,
			&ch.Name,
			&ch.IsPrivate,
			&ch.CreatedBy,
			&ch.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert channel: %w", err)
		}
		if _, err := tx.Exec(ctx, memberQuery, tenantID, ch.ID, createdBy, models.ChannelRoleOwner); err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *ChannelStore) GetByID(ctx context.Context, tenantID uuid.UUID, channelID uuid.UUID) (*models.Channel, error) {
	query := `
		SELECT id, tenant_id, name, is_private, created_by, created_at
		FROM channels
		WHERE id = $1 AND tenant_id = $2`

	var ch models.Channel
	err := s.pool.QueryRow(ctx, query, channelID, tenantID).Scan(
		&ch.ID,
		&ch.TenantID,
		&ch.Name,
		&ch.IsPrivate,
		&ch.CreatedBy,
		&ch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get channel: %w", err)
	}
	return &ch, nil
}

func (s *ChannelStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Channel, error) {
	query := `
		SELECT id, tenant_id, name, is_private, created_by, created_at
		FROM channels
		WHERE tenant_id = $1
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	return scanChannels(rows)
}

func (s *ChannelStore) ListByMember(ctx context.Context, tenantID uuid.UUID, userID uuid.UUID) ([]models.Channel, error) {
	query := `
		SELECT c.id, c.tenant_id, c.name, c.is_private, c.created_by, c.created_at
		FROM channels c
		JOIN channel_members m ON m.channel_id = c.id AND m.tenant_id = c.tenant_id
		WHERE c.tenant_id = $1 AND m.user_id = $2
		ORDER BY c.created_at DESC`

	rows, err := s.pool.Query(ctx, query, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("list member channels: %w", err)
	}
	defer rows.Close()

	return scanChannels(rows)
}

func scanChannels(rows pgx.Rows) ([]models.Channel, error) {
	channels := make([]models.Channel, 0)
	for rows.Next() {
		var ch models.Channel
		if err := rows.Scan(
			&ch.ID,
			&ch.TenantID,
			&ch.Name,
			&ch.IsPrivate,
			&ch.CreatedBy,
			&ch.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}

	return channels, nil
}
