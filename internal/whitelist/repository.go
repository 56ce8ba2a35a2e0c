package whitelist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort defines the database access the service needs. It mirrors
// the file store's operations plus a cheap membership probe.
type RepositoryPort interface {
	ListRole(ctx context.Context, role string) ([]string, error)
	ListAll(ctx context.Context) (map[string][]string, error)
	Add(ctx context.Context, role, id string, meta Meta) (reactivated bool, err error)
	Remove(ctx context.Context, role, id string, meta Meta) error
	IsWhitelisted(ctx context.Context, role, id string) (bool, error)
}

// Repository provides PostgreSQL backed persistence over player_whitelist.
// Rows are never deleted: Remove flips is_active so the audit trail keeps
// the full history of a player's whitelist membership.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListRole returns the active identifiers for role in insertion order.
func (r *Repository) ListRole(ctx context.Context, role string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT steam_uid FROM player_whitelist WHERE whitelist_type = $1 AND is_active ORDER BY id`, role)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrSourceUnavailable, role, err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrSourceUnavailable, err)
		}
		ids = append(ids, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrSourceUnavailable, err)
	}
	return ids, nil
}

// ListAll returns every active membership grouped by role.
func (r *Repository) ListAll(ctx context.Context) (map[string][]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT whitelist_type, steam_uid FROM player_whitelist WHERE is_active ORDER BY whitelist_type, id`)
	if err != nil {
		return nil, fmt.Errorf("%w: list all: %v", ErrSourceUnavailable, err)
	}
	defer rows.Close()
	out := make(map[string][]string)
	for rows.Next() {
		var role, uid string
		if err := rows.Scan(&role, &uid); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrSourceUnavailable, err)
		}
		out[role] = append(out[role], uid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrSourceUnavailable, err)
	}
	return out, nil
}

// Add upserts on the (steam_uid, whitelist_type) natural key. A soft
// deleted row is reactivated in place; an active row conflicts and
// reports ErrAlreadyWhitelisted. The returned flag distinguishes a fresh
// insert from a reactivation so the caller can audit the difference.
//
// The contract hangs on two SQL details: the `WHERE is_active = FALSE`
// guard makes DO UPDATE a no-op for an active row, so the statement
// returns no row at all (pgx.ErrNoRows -> ErrAlreadyWhitelisted) and a
// duplicate can never be inserted; `xmax <> 0` is non-zero only when the
// row was updated rather than freshly inserted, which is what flags a
// reactivation.
func (r *Repository) Add(ctx context.Context, role, id string, meta Meta) (bool, error) {
	const query = `
		INSERT INTO player_whitelist (steam_uid, player_name, whitelist_type, added_by, notes, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, now(), now())
		ON CONFLICT (steam_uid, whitelist_type) DO UPDATE
		SET is_active = TRUE,
			player_name = EXCLUDED.player_name,
			added_by = EXCLUDED.added_by,
			notes = EXCLUDED.notes,
			updated_at = now()
		WHERE player_whitelist.is_active = FALSE
		RETURNING (xmax <> 0) AS reactivated`
	var reactivated bool
	err := r.pool.QueryRow(ctx, query, id, meta.PlayerName, role, meta.Actor, meta.Notes).Scan(&reactivated)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("%w: %s under %s", ErrAlreadyWhitelisted, id, role)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			// whitelist_type FK: the role is known to the registry but not
			// seeded in whitelist_types.
			return false, fmt.Errorf("%w: %s not seeded in whitelist_types", ErrInvalidRole, role)
		}
		return false, fmt.Errorf("%w: upsert: %v", ErrSourceUnavailable, err)
	}
	return reactivated, nil
}

// Remove soft-deletes the membership. Removing an inactive or absent pair
// reports ErrNotWhitelisted.
func (r *Repository) Remove(ctx context.Context, role, id string, meta Meta) error {
	tag, err := r.pool.Exec(ctx, `UPDATE player_whitelist SET is_active = FALSE, updated_at = now() WHERE steam_uid = $1 AND whitelist_type = $2 AND is_active`, id, role)
	if err != nil {
		return fmt.Errorf("%w: soft delete: %v", ErrSourceUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s under %s", ErrNotWhitelisted, id, role)
	}
	return nil
}

// IsWhitelisted probes the natural key for an active row.
func (r *Repository) IsWhitelisted(ctx context.Context, role, id string) (bool, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM player_whitelist WHERE steam_uid = $1 AND whitelist_type = $2 AND is_active`, id, role).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("%w: membership probe: %v", ErrSourceUnavailable, err)
	}
	return count > 0, nil
}
