package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/auth"
)

const getAPIKeyByHashSQL = `SELECT id, key_hash, user_id, name, admin
	FROM api_keys WHERE key_hash = $1 AND active = TRUE`

const upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, user_id, name, admin, active)
	VALUES ($1, $2, $3, $4, $5, TRUE)
	ON CONFLICT (id) DO UPDATE SET
		key_hash = EXCLUDED.key_hash,
		user_id = EXCLUDED.user_id,
		name = EXCLUDED.name,
		admin = EXCLUDED.admin,
		active = TRUE`

var _ auth.Repository = (*APIKeyRepository)(nil)

// APIKeyRepository provides API key lookups backed by PostgreSQL.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash looks up an active API key by its HMAC-SHA256 hash.
// Returns auth.ErrNotFound when no matching key exists.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*auth.APIKeyInfo, error) {
	rows, err := r.pool.Query(ctx, getAPIKeyByHashSQL, hash)
	if err != nil {
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}

	info, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (auth.APIKeyInfo, error) {
		var k auth.APIKeyInfo
		err := row.Scan(&k.ID, &k.KeyHash, &k.UserID, &k.Name, &k.Admin)
		return k, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, fmt.Errorf("finding api key by hash: %w", err)
	}
	return &info, nil
}

// Upsert inserts or replaces an API key record. Used by the seed tool.
func (r *APIKeyRepository) Upsert(ctx context.Context, info auth.APIKeyInfo) error {
	_, err := r.pool.Exec(ctx, upsertAPIKeySQL,
		info.ID, info.KeyHash, info.UserID, info.Name, info.Admin,
	)
	if err != nil {
		return fmt.Errorf("upserting api key %q: %w", info.ID, err)
	}
	return nil
}
