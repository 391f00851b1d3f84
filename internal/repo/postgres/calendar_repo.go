package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	"github.com/keito-ux/advent-calendar-bolt/internal/services/calendars"
)

type CalendarRepo struct {
	pool *pgxpool.Pool
}

func NewCalendarRepo(pool *pgxpool.Pool) *CalendarRepo {
	return &CalendarRepo{pool: pool}
}

const calendarColumns = `id, creator_id, title, description, username, theme, COALESCE(background_image, ''),
	is_public, price_cents, currency, share_code, season, created_at, updated_at`

const dayColumns = `id, calendar_id, day_number, title, message, COALESCE(image_url, ''),
	price_cents, currency, created_at, updated_at`

func scanCalendar(row pgx.Row) (model.Calendar, error) {
	var (
		cal   model.Calendar
		theme string
	)
	err := row.Scan(
		&cal.ID,
		&cal.CreatorID,
		&cal.Title,
		&cal.Description,
		&cal.Username,
		&theme,
		&cal.BackgroundImage,
		&cal.IsPublic,
		&cal.Price.AmountCents,
		&cal.Price.Currency,
		&cal.ShareCode,
		&cal.Season,
		&cal.CreatedAt,
		&cal.UpdatedAt,
	)
	cal.Theme = enums.Theme(theme)
	return cal, err
}

func scanDay(row pgx.Row) (model.CalendarDay, error) {
	var day model.CalendarDay
	err := row.Scan(
		&day.ID,
		&day.CalendarID,
		&day.DayNumber,
		&day.Title,
		&day.Message,
		&day.ImageURL,
		&day.Price.AmountCents,
		&day.Price.Currency,
		&day.CreatedAt,
		&day.UpdatedAt,
	)
	return day, err
}

func (r *CalendarRepo) CreateCalendar(ctx context.Context, cal model.Calendar) (model.Calendar, error) {
	if r.pool == nil {
		return model.Calendar{}, fmt.Errorf("postgres pool is nil")
	}

	created, err := scanCalendar(r.pool.QueryRow(ctx, `
INSERT INTO calendars (
	id,
	creator_id,
	title,
	description,
	username,
	theme,
	background_image,
	is_public,
	price_cents,
	currency,
	share_code,
	season,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, $12, $13, $14)
RETURNING `+calendarColumns+`
`,
		cal.ID,
		cal.CreatorID,
		cal.Title,
		cal.Description,
		cal.Username,
		string(cal.Theme),
		cal.BackgroundImage,
		cal.IsPublic,
		cal.Price.AmountCents,
		cal.Price.Currency,
		cal.ShareCode,
		cal.Season,
		cal.CreatedAt,
		cal.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err, "calendars_share_code_key") {
			return model.Calendar{}, calendars.ErrShareCodeTaken
		}
		return model.Calendar{}, fmt.Errorf("insert calendar: %w", err)
	}
	return created, nil
}

// UpdateCalendar rewrites the mutable columns. Creator, share code and season
// never change.
func (r *CalendarRepo) UpdateCalendar(ctx context.Context, cal model.Calendar) (model.Calendar, error) {
	if r.pool == nil {
		return model.Calendar{}, fmt.Errorf("postgres pool is nil")
	}

	updated, err := scanCalendar(r.pool.QueryRow(ctx, `
UPDATE calendars SET
	title = $2,
	description = $3,
	theme = $4,
	background_image = NULLIF($5, ''),
	is_public = $6,
	price_cents = $7,
	currency = $8,
	updated_at = $9
WHERE id = $1
RETURNING `+calendarColumns+`
`,
		cal.ID,
		cal.Title,
		cal.Description,
		string(cal.Theme),
		cal.BackgroundImage,
		cal.IsPublic,
		cal.Price.AmountCents,
		cal.Price.Currency,
		cal.UpdatedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Calendar{}, calendars.ErrNotFound
		}
		return model.Calendar{}, fmt.Errorf("update calendar: %w", err)
	}
	return updated, nil
}

// DeleteCalendar removes the calendar; days and purchases cascade.
func (r *CalendarRepo) DeleteCalendar(ctx context.Context, id uuid.UUID) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `DELETE FROM calendars WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return calendars.ErrNotFound
	}
	return nil
}

func (r *CalendarRepo) GetCalendar(ctx context.Context, id uuid.UUID) (model.Calendar, error) {
	return r.getOne(ctx, `
SELECT `+calendarColumns+`
FROM calendars
WHERE id = $1
`, id)
}

func (r *CalendarRepo) GetCalendarByShareCode(ctx context.Context, shareCode string) (model.Calendar, error) {
	return r.getOne(ctx, `
SELECT `+calendarColumns+`
FROM calendars
WHERE share_code = $1
`, shareCode)
}

func (r *CalendarRepo) ListCalendarsByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.Calendar, error) {
	return r.list(ctx, `
SELECT `+calendarColumns+`
FROM calendars
WHERE creator_id = $1
ORDER BY created_at DESC
`, creatorID)
}

// ListPublicCalendarsByCreators backs creator search results.
func (r *CalendarRepo) ListPublicCalendarsByCreators(ctx context.Context, creatorIDs []uuid.UUID) ([]model.Calendar, error) {
	if len(creatorIDs) == 0 {
		return []model.Calendar{}, nil
	}
	return r.list(ctx, `
SELECT `+calendarColumns+`
FROM calendars
WHERE creator_id = ANY($1) AND is_public
ORDER BY created_at DESC
`, creatorIDs)
}

// SearchPublicCalendars matches title or username case-insensitively, newest
// first. An empty query lists the newest public calendars.
func (r *CalendarRepo) SearchPublicCalendars(ctx context.Context, query string, limit int) ([]model.Calendar, error) {
	query = strings.TrimSpace(query)
	return r.list(ctx, `
SELECT `+calendarColumns+`
FROM calendars
WHERE is_public
AND (
	$1::text = ''
	OR title ILIKE '%' || $1::text || '%'
	OR username ILIKE '%' || $1::text || '%'
)
ORDER BY created_at DESC
LIMIT $2
`, escapeLike(query), limit)
}

func (r *CalendarRepo) ListRecentCalendars(ctx context.Context, limit int) ([]model.Calendar, error) {
	return r.list(ctx, `
SELECT `+calendarColumns+`
FROM calendars
ORDER BY created_at DESC
LIMIT $1
`, limit)
}

func (r *CalendarRepo) CalendarStats(ctx context.Context) (calendars.Stats, error) {
	if r.pool == nil {
		return calendars.Stats{}, fmt.Errorf("postgres pool is nil")
	}

	var stats calendars.Stats
	err := r.pool.QueryRow(ctx, `
SELECT
	(SELECT COUNT(*) FROM users),
	(SELECT COUNT(DISTINCT creator_id) FROM calendars),
	(SELECT COUNT(*) FROM calendars),
	(SELECT COUNT(*) FROM calendars WHERE is_public),
	(SELECT COUNT(*) FROM calendar_purchases WHERE status = 'completed'),
	(SELECT COUNT(*) FROM tips)
`).Scan(&stats.Users, &stats.Creators, &stats.Calendars, &stats.PublicCalendars, &stats.Purchases, &stats.Tips)
	if err != nil {
		return calendars.Stats{}, fmt.Errorf("calendar stats: %w", err)
	}
	return stats, nil
}

func (r *CalendarRepo) ListDays(ctx context.Context, calendarID uuid.UUID) ([]model.CalendarDay, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+dayColumns+`
FROM calendar_days
WHERE calendar_id = $1
ORDER BY day_number ASC
`, calendarID)
	if err != nil {
		return nil, fmt.Errorf("query days: %w", err)
	}
	defer rows.Close()

	out := []model.CalendarDay{}
	for rows.Next() {
		day, err := scanDay(rows)
		if err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		out = append(out, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate days: %w", err)
	}
	return out, nil
}

func (r *CalendarRepo) GetDay(ctx context.Context, calendarID uuid.UUID, dayNumber int) (model.CalendarDay, error) {
	if r.pool == nil {
		return model.CalendarDay{}, fmt.Errorf("postgres pool is nil")
	}

	day, err := scanDay(r.pool.QueryRow(ctx, `
SELECT `+dayColumns+`
FROM calendar_days
WHERE calendar_id = $1 AND day_number = $2
`, calendarID, dayNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.CalendarDay{}, calendars.ErrDayNotFound
		}
		return model.CalendarDay{}, fmt.Errorf("get day: %w", err)
	}
	return day, nil
}

// UpsertDay writes a day keyed by (calendar, day number). The id of an
// existing row is kept.
func (r *CalendarRepo) UpsertDay(ctx context.Context, day model.CalendarDay) (model.CalendarDay, error) {
	if r.pool == nil {
		return model.CalendarDay{}, fmt.Errorf("postgres pool is nil")
	}

	saved, err := scanDay(r.pool.QueryRow(ctx, `
INSERT INTO calendar_days (
	id,
	calendar_id,
	day_number,
	title,
	message,
	image_url,
	price_cents,
	currency,
	created_at,
	updated_at
) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10)
ON CONFLICT (calendar_id, day_number) DO UPDATE SET
	title = EXCLUDED.title,
	message = EXCLUDED.message,
	image_url = EXCLUDED.image_url,
	price_cents = EXCLUDED.price_cents,
	currency = EXCLUDED.currency,
	updated_at = EXCLUDED.updated_at
RETURNING `+dayColumns+`
`,
		day.ID,
		day.CalendarID,
		day.DayNumber,
		day.Title,
		day.Message,
		day.ImageURL,
		day.Price.AmountCents,
		day.Price.Currency,
		day.CreatedAt,
		day.UpdatedAt,
	))
	if err != nil {
		return model.CalendarDay{}, fmt.Errorf("upsert day: %w", err)
	}
	return saved, nil
}

func (r *CalendarRepo) getOne(ctx context.Context, query string, args ...any) (model.Calendar, error) {
	if r.pool == nil {
		return model.Calendar{}, fmt.Errorf("postgres pool is nil")
	}

	cal, err := scanCalendar(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Calendar{}, calendars.ErrNotFound
		}
		return model.Calendar{}, fmt.Errorf("get calendar: %w", err)
	}
	return cal, nil
}

func (r *CalendarRepo) list(ctx context.Context, query string, args ...any) ([]model.Calendar, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query calendars: %w", err)
	}
	defer rows.Close()

	out := []model.Calendar{}
	for rows.Next() {
		cal, err := scanCalendar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar: %w", err)
		}
		out = append(out, cal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calendars: %w", err)
	}
	return out, nil
}
