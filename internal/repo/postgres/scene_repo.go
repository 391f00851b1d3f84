package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	"github.com/keito-ux/advent-calendar-bolt/internal/services/scenes"
)

type SceneRepo struct {
	pool *pgxpool.Pool
}

func NewSceneRepo(pool *pgxpool.Pool) *SceneRepo {
	return &SceneRepo{pool: pool}
}

const sceneColumns = `id, day_number, title, image_url, artist_id, unlock_date, is_unlocked, created_at`

func scanScene(row pgx.Row) (model.Scene, error) {
	var scene model.Scene
	err := row.Scan(
		&scene.ID,
		&scene.DayNumber,
		&scene.Title,
		&scene.ImageURL,
		&scene.ArtistID,
		&scene.UnlockDate,
		&scene.IsUnlocked,
		&scene.CreatedAt,
	)
	return scene, err
}

func (r *SceneRepo) ListScenes(ctx context.Context) ([]model.Scene, error) {
	return r.listScenes(ctx, `
SELECT `+sceneColumns+`
FROM scenes
ORDER BY day_number ASC
`)
}

func (r *SceneRepo) ListScenesByArtist(ctx context.Context, artistID uuid.UUID) ([]model.Scene, error) {
	return r.listScenes(ctx, `
SELECT `+sceneColumns+`
FROM scenes
WHERE artist_id = $1
ORDER BY day_number ASC
`, artistID)
}

func (r *SceneRepo) GetSceneByDay(ctx context.Context, dayNumber int) (model.Scene, error) {
	if r.pool == nil {
		return model.Scene{}, fmt.Errorf("postgres pool is nil")
	}

	scene, err := scanScene(r.pool.QueryRow(ctx, `
SELECT `+sceneColumns+`
FROM scenes
WHERE day_number = $1
`, dayNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Scene{}, scenes.ErrNotFound
		}
		return model.Scene{}, fmt.Errorf("get scene: %w", err)
	}
	return scene, nil
}

func (r *SceneRepo) CreateScene(ctx context.Context, scene model.Scene) (model.Scene, error) {
	if r.pool == nil {
		return model.Scene{}, fmt.Errorf("postgres pool is nil")
	}

	created, err := scanScene(r.pool.QueryRow(ctx, `
INSERT INTO scenes (id, day_number, title, image_url, artist_id, unlock_date, is_unlocked, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+sceneColumns+`
`,
		scene.ID,
		scene.DayNumber,
		scene.Title,
		scene.ImageURL,
		scene.ArtistID,
		scene.UnlockDate,
		scene.IsUnlocked,
		scene.CreatedAt,
	))
	if err != nil {
		switch {
		case isUniqueViolation(err, "scenes_day_number_key"):
			return model.Scene{}, scenes.ErrDayTaken
		case isForeignKeyViolation(err, ""):
			return model.Scene{}, scenes.ErrArtistNotFound
		default:
			return model.Scene{}, fmt.Errorf("insert scene: %w", err)
		}
	}
	return created, nil
}

func (r *SceneRepo) MarkSceneUnlocked(ctx context.Context, dayNumber int) (model.Scene, error) {
	if r.pool == nil {
		return model.Scene{}, fmt.Errorf("postgres pool is nil")
	}

	scene, err := scanScene(r.pool.QueryRow(ctx, `
UPDATE scenes SET is_unlocked = TRUE
WHERE day_number = $1
RETURNING `+sceneColumns+`
`, dayNumber))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Scene{}, scenes.ErrNotFound
		}
		return model.Scene{}, fmt.Errorf("unlock scene: %w", err)
	}
	return scene, nil
}

func (r *SceneRepo) ListTranslations(ctx context.Context, sceneID uuid.UUID) ([]model.Translation, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, scene_id, language_code, text, audio_url, created_at
FROM translations
WHERE scene_id = $1
ORDER BY language_code ASC
`, sceneID)
	if err != nil {
		return nil, fmt.Errorf("query translations: %w", err)
	}
	defer rows.Close()

	out := []model.Translation{}
	for rows.Next() {
		var (
			tr   model.Translation
			lang string
		)
		if err := rows.Scan(&tr.ID, &tr.SceneID, &lang, &tr.TextContent, &tr.AudioURL, &tr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		tr.Language = enums.Language(lang)
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %w", err)
	}
	return out, nil
}

// UpsertTranslation replaces the text for a (scene, language) pair.
func (r *SceneRepo) UpsertTranslation(ctx context.Context, tr model.Translation) (model.Translation, error) {
	if r.pool == nil {
		return model.Translation{}, fmt.Errorf("postgres pool is nil")
	}

	var (
		saved model.Translation
		lang  string
	)
	err := r.pool.QueryRow(ctx, `
INSERT INTO translations (id, scene_id, language_code, text, audio_url, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (scene_id, language_code) DO UPDATE SET
	text = EXCLUDED.text,
	audio_url = EXCLUDED.audio_url
RETURNING id, scene_id, language_code, text, audio_url, created_at
`, tr.ID, tr.SceneID, string(tr.Language), tr.TextContent, tr.AudioURL, tr.CreatedAt).Scan(
		&saved.ID,
		&saved.SceneID,
		&lang,
		&saved.TextContent,
		&saved.AudioURL,
		&saved.CreatedAt,
	)
	if err != nil {
		return model.Translation{}, fmt.Errorf("upsert translation: %w", err)
	}
	saved.Language = enums.Language(lang)
	return saved, nil
}

func (r *SceneRepo) GetArtist(ctx context.Context, id uuid.UUID) (model.Artist, error) {
	if r.pool == nil {
		return model.Artist{}, fmt.Errorf("postgres pool is nil")
	}

	var artist model.Artist
	err := r.pool.QueryRow(ctx, `
SELECT id, name, bio, COALESCE(profile_image_url, ''), country, created_at
FROM artists
WHERE id = $1
`, id).Scan(&artist.ID, &artist.Name, &artist.Bio, &artist.ProfileImageURL, &artist.Country, &artist.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Artist{}, scenes.ErrArtistNotFound
		}
		return model.Artist{}, fmt.Errorf("get artist: %w", err)
	}
	return artist, nil
}

func (r *SceneRepo) CreateArtist(ctx context.Context, artist model.Artist) (model.Artist, error) {
	if r.pool == nil {
		return model.Artist{}, fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO artists (id, name, bio, profile_image_url, country, created_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
`, artist.ID, artist.Name, artist.Bio, artist.ProfileImageURL, artist.Country, artist.CreatedAt); err != nil {
		return model.Artist{}, fmt.Errorf("insert artist: %w", err)
	}
	return artist, nil
}

func (r *SceneRepo) listScenes(ctx context.Context, query string, args ...any) ([]model.Scene, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scenes: %w", err)
	}
	defer rows.Close()

	out := []model.Scene{}
	for rows.Next() {
		scene, err := scanScene(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		out = append(out, scene)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenes: %w", err)
	}
	return out, nil
}
