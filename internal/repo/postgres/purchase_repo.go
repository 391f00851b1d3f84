package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
)

type PurchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

const purchaseColumns = `id, user_id, calendar_id, day_number, amount_cents, currency, status, payment_method, created_at`

func scanPurchase(row pgx.Row) (model.PurchaseRecord, error) {
	var (
		rec    model.PurchaseRecord
		status string
		method string
	)
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.CalendarID,
		&rec.DayNumber,
		&rec.Amount.AmountCents,
		&rec.Amount.Currency,
		&status,
		&method,
		&rec.CreatedAt,
	)
	rec.Status = enums.PurchaseStatus(status)
	rec.PaymentMethod = enums.PaymentMethod(method)
	return rec, err
}

// InsertPurchase appends a record. Records are never updated afterwards.
func (r *PurchaseRepo) InsertPurchase(ctx context.Context, rec model.PurchaseRecord) (model.PurchaseRecord, error) {
	if r.pool == nil {
		return model.PurchaseRecord{}, fmt.Errorf("postgres pool is nil")
	}

	saved, err := scanPurchase(r.pool.QueryRow(ctx, `
INSERT INTO calendar_purchases (
	id,
	user_id,
	calendar_id,
	day_number,
	amount_cents,
	currency,
	status,
	payment_method,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING `+purchaseColumns+`
`,
		rec.ID,
		rec.UserID,
		rec.CalendarID,
		rec.DayNumber,
		rec.Amount.AmountCents,
		rec.Amount.Currency,
		string(rec.Status),
		string(rec.PaymentMethod),
		rec.CreatedAt,
	))
	if err != nil {
		return model.PurchaseRecord{}, fmt.Errorf("insert purchase: %w", err)
	}
	return saved, nil
}

// ListForViewer returns the viewer's completed purchases on one calendar.
func (r *PurchaseRepo) ListForViewer(ctx context.Context, userID, calendarID uuid.UUID) ([]model.PurchaseRecord, error) {
	return r.list(ctx, `
SELECT `+purchaseColumns+`
FROM calendar_purchases
WHERE user_id = $1 AND calendar_id = $2 AND status = 'completed'
ORDER BY created_at ASC
`, userID, calendarID)
}

func (r *PurchaseRepo) ListCompletedByUser(ctx context.Context, userID uuid.UUID) ([]model.PurchaseRecord, error) {
	return r.list(ctx, `
SELECT `+purchaseColumns+`
FROM calendar_purchases
WHERE user_id = $1 AND status = 'completed'
ORDER BY created_at DESC
`, userID)
}

// EarningsByCreator sums completed purchases per calendar owned by the
// creator. Calendars without sales are omitted.
func (r *PurchaseRepo) EarningsByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.CalendarEarnings, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT p.calendar_id, c.currency, COALESCE(SUM(p.amount_cents), 0), COUNT(*)
FROM calendar_purchases p
JOIN calendars c ON c.id = p.calendar_id
WHERE c.creator_id = $1 AND p.status = 'completed'
GROUP BY p.calendar_id, c.currency
`, creatorID)
	if err != nil {
		return nil, fmt.Errorf("query earnings: %w", err)
	}
	defer rows.Close()

	out := []model.CalendarEarnings{}
	for rows.Next() {
		var e model.CalendarEarnings
		if err := rows.Scan(&e.CalendarID, &e.Currency, &e.TotalCents, &e.PurchaseCount); err != nil {
			return nil, fmt.Errorf("scan earnings: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate earnings: %w", err)
	}
	return out, nil
}

func (r *PurchaseRepo) list(ctx context.Context, query string, args ...any) ([]model.PurchaseRecord, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	out := []model.PurchaseRecord{}
	for rows.Next() {
		rec, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}
	return out, nil
}
