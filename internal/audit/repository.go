package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/commerce-admin/internal/platform/db"
)

// Repository reads the audit trail.
type Repository interface {
	Timeline(ctx context.Context, w Window) ([]Entry, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Timeline returns entries inside w ordered by time.
func (r *PGRepository) Timeline(ctx context.Context, w Window) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.occurred_at, a.actor_id, COALESCE(u.email, ''), a.action, a.entity, a.entity_id, a.meta
		FROM audit_logs a
		LEFT JOIN users u ON u.id = a.actor_id
		WHERE a.occurred_at >= $1 AND a.occurred_at < $2
		ORDER BY a.occurred_at, a.id`, w.From, w.To)
	if err != nil {
		return nil, db.TranslateError(err)
	}
	var (
		out  []Entry
		e    Entry
		meta []byte
	)
	_, err = pgx.ForEachRow(rows, []any{&e.ID, &e.At, &e.ActorID, &e.ActorEmail, &e.Action, &e.Entity, &e.EntityID, &meta}, func() error {
		entry := e
		entry.Meta = nil
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &entry.Meta); err != nil {
				return fmt.Errorf("audit %d meta: %w", e.ID, err)
			}
		}
		out = append(out, entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("audit: scan: %w", err)
	}
	return out, nil
}

var _ Repository = (*PGRepository)(nil)
