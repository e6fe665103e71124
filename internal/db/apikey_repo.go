package db

import (
	"context"
	"time"

	"meetpoint/internal/types"
)

// APIKeyRepository provides data access for the api_keys table. Keys are
// stored as a bcrypt hash plus a short indexed prefix; plaintext secrets
// never touch the database.
type APIKeyRepository struct {
	db DBTX
}

// NewAPIKeyRepository creates an APIKeyRepository backed by the given
// database connection (pool or transaction).
func NewAPIKeyRepository(db DBTX) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create inserts a new API key record.
func (r *APIKeyRepository) Create(ctx context.Context, k *types.APIKey) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO api_keys (id, user_id, key_prefix, key_hash, note, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		k.ID, k.UserID, k.KeyPrefix, k.KeyHash, k.Note, k.CreatedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create api key", err)
	}
	return nil
}

// FindByPrefix returns all non-revoked keys matching the visible prefix.
// The caller compares the bcrypt hash of each candidate; prefix collisions
// are possible, a match is not.
func (r *APIKeyRepository) FindByPrefix(ctx context.Context, prefix string) ([]*types.APIKey, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, user_id, key_prefix, key_hash, note, revoked_at, last_used_at, created_at
		 FROM api_keys
		 WHERE key_prefix = $1 AND revoked_at IS NULL`,
		prefix,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to look up api keys", err)
	}
	defer rows.Close()

	var keys []*types.APIKey
	for rows.Next() {
		var k types.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.KeyPrefix, &k.KeyHash, &k.Note, &k.RevokedAt, &k.LastUsedAt, &k.CreatedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan api key row", err)
		}
		keys = append(keys, &k)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to read api key rows", err)
	}
	return keys, nil
}

// TouchLastUsed records that a key authenticated a request. Best-effort;
// failures are not surfaced to the request path.
func (r *APIKeyRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE api_keys SET last_used_at = $2 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to touch api key", err)
	}
	return nil
}
