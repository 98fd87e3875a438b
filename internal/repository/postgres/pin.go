package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/teamstream-hq/teamstream/internal/apperr"
	"github.com/teamstream-hq/teamstream/internal/models"
)

type PinStore struct {
	pool *pgxpool.Pool
}

func NewPinStore(pool *pgxpool.Pool) *PinStore {
	return &PinStore{pool: pool}
}

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

func (s *PinStore) Create(ctx context.Context, tenantID, channelID uuid.UUID, messageID int64, pinnedBy uuid.UUID) (*models.Pin, error) {
	// No ON CONFLICT here, unlike memberships: a duplicate pin is a real
	// condition the caller needs to hear about, not an idempotent no-op.
	// If two requests race to pin the same message, the unique constraint
	// on (channel_id, message_id) decides the winner and the loser gets
	// a Conflict.
	query := `
		INSERT INTO pins (tenant_id, channel_id, message_id, pinned_by, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING tenant_id, channel_id, message_id, pinned_by, created_at`

	var p models.Pin
	err := s.pool.QueryRow(ctx, query, tenantID, channelID, messageID, pinnedBy).Scan(
		&p.TenantID,
		&p.ChannelID,
		&p.MessageID,
		&p.PinnedBy,
		&p.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, apperr.Conflict("Message is already pinned")
		}
		return nil, fmt.Errorf("insert pin: %w", err)
	}
	return &p, nil
}

func (s *PinStore) Delete(ctx context.Context, tenantID, channelID uuid.UUID, messageID int64) error {
	query := `
		DELETE FROM pins
		WHERE tenant_id = $1 AND channel_id = $2 AND message_id = $3`

	_, err := s.pool.Exec(ctx, query, tenantID, channelID, messageID)
	if err != nil {
		return fmt.Errorf("delete pin: %w", err)
	}
	return nil
}

func (s *PinStore) ListByChannel(ctx context.Context, tenantID, channelID uuid.UUID) ([]models.Pin, error) {
	query := `
		SELECT tenant_id, channel_id, message_id, pinned_by, created_at
		FROM pins
		WHERE tenant_id = $1 AND channel_id = $2
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, tenantID, channelID)
	if err != nil {
		return nil, fmt.Errorf("list pins: %w", err)
	}
	defer rows.Close()

	pins := make([]models.Pin, 0)
	for rows.Next() {
		var p models.Pin
		if err := rows.Scan(&p.TenantID, &p.ChannelID, &p.MessageID, &p.PinnedBy, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pin: %w", err)
		}
		pins = append(pins, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pins: %w", err)
	}

	return pins, nil
}
