package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/teamstream-hq/teamstream/internal/models"
)

type MembershipStore struct {
	pool *pgxpool.Pool
}

func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

func (s *MembershipStore) AddMember(ctx context.Context, tenantID, channelID, userID uuid.UUID, role string) error {
	// ON CONFLICT DO NOTHING: "join channel" is idempotent. Calling it
	// twice shouldn't return a primary-key violation — it should just
	// succeed silently the second time.
	query := `
		INSERT INTO channel_members (tenant_id, channel_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (channel_id, user_id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query, tenantID, channelID, userID, role)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (s *MembershipStore) RemoveMember(ctx context.Context, tenantID, channelID, userID uuid.UUID) error {
	// DELETE is naturally idempotent: zero rows deleted is not an error.
	query := `
		DELETE FROM channel_members
		WHERE tenant_id = $1 AND channel_id = $2 AND user_id = $3`

	_, err := s.pool.Exec(ctx, query, tenantID, channelID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

func (s *MembershipStore) ListMembers(ctx context.Context, tenantID, channelID uuid.UUID) ([]models.ChannelMember, error) {
	query := `
		SELECT tenant_id, channel_id, user_id, role, created_at
		FROM channel_members
		WHERE tenant_id = $1 AND channel_id = $2`

	rows, err := s.pool.Query(ctx, query, tenantID, channelID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := make([]models.ChannelMember, 0)
	for rows.Next() {
		var m models.ChannelMember
		if err := rows.Scan(&m.TenantID, &m.ChannelID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	return members, nil
}

func (s *MembershipStore) IsMember(ctx context.Context, tenantID, channelID, userID uuid.UUID) (bool, error) {
	// SELECT EXISTS stops at the first match — this is the hot-path check
	// the guards run before every read and write, so O(1) matters.
	query := `
		SELECT EXISTS (
			SELECT 1 FROM channel_members
			WHERE tenant_id = $1 AND channel_id = $2 AND user_id = $3
		)`

	var exists bool
	err := s.pool.QueryRow(ctx, query, tenantID, channelID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

func (s *MembershipStore) CountMembers(ctx context.Context, tenantID, channelID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM channel_members
		WHERE tenant_id = $1 AND channel_id = $2`

	var count int
	err := s.pool.QueryRow(ctx, query, tenantID, channelID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return count, nil
}
