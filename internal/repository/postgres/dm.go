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

type DmStore struct {
	pool *pgxpool.Pool
}

func NewDmStore(pool *pgxpool.Pool) *DmStore {
	return &DmStore{pool: pool}
}

// CreateThread inserts the thread and both participants' membership rows
// in one transaction, so a half-formed thread (one member, or none) never
// becomes visible.
func (s *DmStore) CreateThread(ctx context.Context, tenantID, userA, userB uuid.UUID) (*models.DmThread, error) {
	threadQuery := `
		INSERT INTO dm_threads (id, tenant_id, created_at)
		VALUES (uuid_generate_v4(), $1, now())
		RETURNING id, tenant_id, created_at`
	memberQuery := `
		INSERT INTO dm_members (tenant_id, thread_id, user_id, created_at)
		VALUES ($1, $2, $3, now())`

	var t models.DmThread
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, threadQuery, tenantID).Scan(&t.ID, &t.TenantID, &t.CreatedAt); err != nil {
			return fmt.Errorf("insert dm thread: %w", err)
		}
		for _, userID := range []uuid.UUID{userA, userB} {
			if _, err := tx.Exec(ctx, memberQuery, tenantID, t.ID, userID); err != nil {
				return fmt.Errorf("insert dm member: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *DmStore) GetThread(ctx context.Context, tenantID, threadID uuid.UUID) (*models.DmThread, error) {
	query := `
		SELECT id, tenant_id, created_at
		FROM dm_threads
		WHERE id = $1 AND tenant_id = $2`

	var t models.DmThread
	err := s.pool.QueryRow(ctx, query, threadID, tenantID).Scan(&t.ID, &t.TenantID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get dm thread: %w", err)
	}
	return &t, nil
}

func (s *DmStore) FindThreadBetween(ctx context.Context, tenantID, userA, userB uuid.UUID) (*models.DmThread, error) {
	// A two-person thread between A and B: both are members, and nobody
	// else is. The HAVING clause excludes group threads that happen to
	// contain both users.
	query := `
		SELECT t.id, t.tenant_id, t.created_at
		FROM dm_threads t
		WHERE t.tenant_id = $1
		  AND EXISTS (SELECT 1 FROM dm_members WHERE thread_id = t.id AND user_id = $2)
		  AND EXISTS (SELECT 1 FROM dm_members WHERE thread_id = t.id AND user_id = $3)
		  AND (SELECT COUNT(*) FROM dm_members WHERE thread_id = t.id) = 2
		LIMIT 1`

	var t models.DmThread
	err := s.pool.QueryRow(ctx, query, tenantID, userA, userB).Scan(&t.ID, &t.TenantID, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find dm thread: %w", err)
	}
	return &t, nil
}

func (s *DmStore) ListThreadsByMember(ctx context.Context, tenantID, userID uuid.UUID) ([]models.DmThread, error) {
	query := `
		SELECT t.id, t.tenant_id, t.created_at
		FROM dm_threads t
		JOIN dm_members m ON m.thread_id = t.id AND m.tenant_id = t.tenant_id
		WHERE t.tenant_id = $1 AND m.user_id = $2
		ORDER BY t.created_at DESC`

	rows, err := s.pool.Query(ctx, query, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("list dm threads: %w", err)
	}
	defer rows.Close()

	threads := make([]models.DmThread, 0)
	for rows.Next() {
		var t models.DmThread
		if err := rows.Scan(&t.ID, &t.TenantID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dm thread: %w", err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dm threads: %w", err)
	}

	return threads, nil
}

func (s *DmStore) IsMember(ctx context.Context, tenantID, threadID, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM dm_members
			WHERE tenant_id = $1 AND thread_id = $2 AND user_id = $3
		)`

	var exists bool
	err := s.pool.QueryRow(ctx, query, tenantID, threadID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check dm membership: %w", err)
	}
	return exists, nil
}

func (s *DmStore) ListMembers(ctx context.Context, tenantID, threadID uuid.UUID) ([]models.DmMember, error) {
	query := `
		SELECT tenant_id, thread_id, user_id, created_at
		FROM dm_members
		WHERE tenant_id = $1 AND thread_id = $2`

	rows, err := s.pool.Query(ctx, query, tenantID, threadID)
	if err != nil {
		return nil, fmt.Errorf("list dm members: %w", err)
	}
	defer rows.Close()

	members := make([]models.DmMember, 0)
	for rows.Next() {
		var m models.DmMember
		if err := rows.Scan(&m.TenantID, &m.ThreadID, &m.UserID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dm member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dm members: %w", err)
	}

	return members, nil
}
