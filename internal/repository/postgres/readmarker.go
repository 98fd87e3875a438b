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

type ReadMarkerStore struct {
	pool *pgxpool.Pool
}

func NewReadMarkerStore(pool *pgxpool.Pool) *ReadMarkerStore {
	return &ReadMarkerStore{pool: pool}
}

func (s *ReadMarkerStore) Upsert(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef, userID uuid.UUID, lastReadID int64) error {
	// One row per (user, container). Overwrite on conflict rather than
	// MAX(): marking a container unread again moves the cursor backward,
	// which is a deliberate client action.
	query := `
		INSERT INTO read_markers (tenant_id, target_kind, target_id, user_id, last_read_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (target_kind, target_id, user_id)
		DO UPDATE SET last_read_id = EXCLUDED.last_read_id, updated_at = now()`

	_, err := s.pool.Exec(ctx, query, tenantID, string(ref.Kind), ref.ID, userID, lastReadID)
	if err != nil {
		return fmt.Errorf("upsert read marker: %w", err)
	}
	return nil
}

func (s *ReadMarkerStore) Get(ctx context.Context, tenantID uuid.UUID, ref models.ContainerRef, userID uuid.UUID) (int64, error) {
	query := `
		SELECT last_read_id
		FROM read_markers
		WHERE tenant_id = $1 AND target_kind = $2 AND target_id = $3 AND user_id = $4`

	var lastRead int64
	err := s.pool.QueryRow(ctx, query, tenantID, string(ref.Kind), ref.ID, userID).Scan(&lastRead)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Never read here: cursor 0 means "everything is unread".
			return 0, nil
		}
		return 0, fmt.Errorf("get read marker: %w", err)
	}
	return lastRead, nil
}
