package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	mediasvc "github.com/keito-ux/advent-calendar-bolt/internal/services/media"
)

type MediaRepo struct {
	pool *pgxpool.Pool
}

func NewMediaRepo(pool *pgxpool.Pool) *MediaRepo {
	return &MediaRepo{pool: pool}
}

func (r *MediaRepo) CreateMedia(ctx context.Context, media model.Media) (model.Media, error) {
	if r.pool == nil {
		return model.Media{}, fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO media (id, owner_id, kind, object_key, created_at)
VALUES ($1, $2, $3, $4, $5)
`, media.ID, media.OwnerID, string(media.Kind), media.ObjectKey, media.CreatedAt); err != nil {
		return model.Media{}, fmt.Errorf("insert media: %w", err)
	}
	return media, nil
}

// EnqueueDeletions drops the media rows and queues their objects for the
// cleanup job in one transaction.
func (r *MediaRepo) EnqueueDeletions(ctx context.Context, objectKeys []string) error {
	if len(objectKeys) == 0 {
		return nil
	}
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	return WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM media WHERE object_key = ANY($1)`, objectKeys); err != nil {
			return fmt.Errorf("delete media rows: %w", err)
		}

		batch := &pgx.Batch{}
		for _, key := range objectKeys {
			batch.Queue(`INSERT INTO media_deletions (object_key, enqueued_at) VALUES ($1, NOW())`, key)
		}
		results := tx.SendBatch(ctx, batch)
		for i := range objectKeys {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("enqueue deletion #%d: %w", i, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("close deletion batch: %w", err)
		}
		return nil
	})
}

// ListDeletions returns the oldest queued deletions with fewer than
// maxAttempts failures.
func (r *MediaRepo) ListDeletions(ctx context.Context, limit, maxAttempts int) ([]mediasvc.Deletion, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, object_key, attempts
FROM media_deletions
WHERE attempts < $2
ORDER BY id ASC
LIMIT $1
`, limit, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("query media deletions: %w", err)
	}
	defer rows.Close()

	out := []mediasvc.Deletion{}
	for rows.Next() {
		var d mediasvc.Deletion
		if err := rows.Scan(&d.ID, &d.ObjectKey, &d.Attempts); err != nil {
			return nil, fmt.Errorf("scan media deletion: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate media deletions: %w", err)
	}
	return out, nil
}

func (r *MediaRepo) CompleteDeletion(ctx context.Context, id int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM media_deletions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("complete media deletion: %w", err)
	}
	return nil
}

func (r *MediaRepo) FailDeletion(ctx context.Context, id int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if _, err := r.pool.Exec(ctx, `UPDATE media_deletions SET attempts = attempts + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("fail media deletion: %w", err)
	}
	return nil
}
