package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	"github.com/keito-ux/advent-calendar-bolt/internal/services/tips"
)

type TipRepo struct {
	pool *pgxpool.Pool
}

func NewTipRepo(pool *pgxpool.Pool) *TipRepo {
	return &TipRepo{pool: pool}
}

const tipColumns = `id, artist_id, scene_id, amount_cents, currency, tipper_name, message, external_payment_id, created_at`

func scanTip(row pgx.Row) (model.Tip, error) {
	var tip model.Tip
	err := row.Scan(
		&tip.ID,
		&tip.ArtistID,
		&tip.SceneID,
		&tip.Amount.AmountCents,
		&tip.Amount.Currency,
		&tip.TipperName,
		&tip.Message,
		&tip.ExternalPayment,
		&tip.CreatedAt,
	)
	return tip, err
}

// InsertTip stores a tip. A missing artist or scene surfaces as
// tips.ErrArtistNotFound through the foreign keys.
func (r *TipRepo) InsertTip(ctx context.Context, tip model.Tip) (model.Tip, error) {
	if r.pool == nil {
		return model.Tip{}, fmt.Errorf("postgres pool is nil")
	}

	saved, err := scanTip(r.pool.QueryRow(ctx, `
INSERT INTO tips (`+tipColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+tipColumns+`
`,
		tip.ID,
		tip.ArtistID,
		tip.SceneID,
		tip.Amount.AmountCents,
		tip.Amount.Currency,
		tip.TipperName,
		tip.Message,
		tip.ExternalPayment,
		tip.CreatedAt,
	))
	if err != nil {
		if isForeignKeyViolation(err, "") {
			return model.Tip{}, tips.ErrArtistNotFound
		}
		return model.Tip{}, fmt.Errorf("insert tip: %w", err)
	}
	return saved, nil
}

func (r *TipRepo) ListTipsByArtist(ctx context.Context, artistID uuid.UUID) ([]model.Tip, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+tipColumns+`
FROM tips
WHERE artist_id = $1
ORDER BY created_at DESC
`, artistID)
	if err != nil {
		return nil, fmt.Errorf("query tips: %w", err)
	}
	defer rows.Close()

	out := []model.Tip{}
	for rows.Next() {
		tip, err := scanTip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tip: %w", err)
		}
		out = append(out, tip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tips: %w", err)
	}
	return out, nil
}
