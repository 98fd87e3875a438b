package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/teamstream-hq/teamstream/internal/models"
)

// TenantStore persists workspaces. Tenants are the root of every scoping
// rule in the other stores, so this is the one store whose queries carry
// no tenant_id predicate — there is nothing above a tenant to scope by.
type TenantStore struct {
	pool *pgxpool.Pool
}

func NewTenantStore(pool *pgxpool.Pool) *TenantStore {
	return &TenantStore{pool: pool}
}

// Create inserts a workspace. Only signup calls this — a tenant exists
// exactly because a founding user signed up into it.
func (s *TenantStore) Create(ctx context.Context, name string) (*models.Tenant, error) {
	query := `
		INSERT INTO tenants (id, name, created_at)
		VALUES (uuid_generate_v4(), $1, now())
		RETURNING id, name, created_at`

	var t models.Tenant
	err := s.pool.QueryRow(ctx, query, name).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert tenant: %w", err)
	}
	return &t, nil
}
