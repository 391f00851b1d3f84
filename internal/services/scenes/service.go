package scenes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/rules"
	"github.com/keito-ux/advent-calendar-bolt/internal/pkg/validate"
	mediasvc "github.com/keito-ux/advent-calendar-bolt/internal/services/media"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("scene not found")
	ErrArtistNotFound  = errors.New("artist not found")
	ErrDayTaken        = errors.New("scene already exists for this day")
	ErrLocked          = errors.New("scene is still locked")
	ErrDependenciesNil = errors.New("scene dependencies are not configured")
)

const (
	maxTitleRunes = 120
	maxBioRunes   = 2000
	maxTextRunes  = 10000
)

type Store interface {
	ListScenes(ctx context.Context) ([]model.Scene, error)
	GetSceneByDay(ctx context.Context, dayNumber int) (model.Scene, error)
	CreateScene(ctx context.Context, scene model.Scene) (model.Scene, error)
	MarkSceneUnlocked(ctx context.Context, dayNumber int) (model.Scene, error)
	ListScenesByArtist(ctx context.Context, artistID uuid.UUID) ([]model.Scene, error)
	ListTranslations(ctx context.Context, sceneID uuid.UUID) ([]model.Translation, error)
	UpsertTranslation(ctx context.Context, tr model.Translation) (model.Translation, error)
	GetArtist(ctx context.Context, id uuid.UUID) (model.Artist, error)
	CreateArtist(ctx context.Context, artist model.Artist) (model.Artist, error)
}

type TipReader interface {
	ListForArtist(ctx context.Context, artistID uuid.UUID) ([]model.Tip, error)
}

type Media interface {
	Upload(ctx context.Context, ownerID uuid.UUID, kind enums.MediaKind, in mediasvc.Upload) (model.Media, error)
	Release(ctx context.Context, urls ...string) error
}

type Tracker interface {
	Track(ctx context.Context, userID *uuid.UUID, name string, props map[string]any)
}

// SceneSlot is a scene with its effective lock state.
type SceneSlot struct {
	Scene    model.Scene
	Unlocked bool
}

type Detail struct {
	Scene        model.Scene
	Artist       *model.Artist
	Translation  *model.Translation
	Translations []model.Translation
}

type ArtistProfile struct {
	Artist model.Artist
	Scenes []SceneSlot
	Tips   []model.Tip
	Totals []model.Price
}

type CreateInput struct {
	DayNumber int
	Title     string
	ArtistID  *uuid.UUID
	Image     mediasvc.Upload
}

type ArtistInput struct {
	Name            string
	Bio             string
	ProfileImageURL string
	Country         string
}

type Service struct {
	store   Store
	tips    TipReader
	media   Media
	tracker Tracker
	policy  rules.UnlockPolicy
	now     func() time.Time
}

func NewService(store Store, tips TipReader, media Media, policy rules.UnlockPolicy) *Service {
	return &Service{
		store:  store,
		tips:   tips,
		media:  media,
		policy: policy,
		now:    time.Now,
	}
}

func (s *Service) AttachTracker(tracker Tracker) {
	s.tracker = tracker
}

// List returns stored scenes ordered by day. A scene counts as unlocked when
// its flag is set or its date has been reached.
func (s *Service) List(ctx context.Context) ([]SceneSlot, error) {
	if s.store == nil {
		return nil, ErrDependenciesNil
	}

	scenes, err := s.store.ListScenes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scenes: %w", err)
	}

	now := s.now()
	out := make([]SceneSlot, 0, len(scenes))
	for _, scene := range scenes {
		out = append(out, SceneSlot{Scene: scene, Unlocked: s.unlocked(scene, now)})
	}
	return out, nil
}

// Detail loads an unlocked scene with its artist and the translation that
// best matches acceptLanguage.
func (s *Service) Detail(ctx context.Context, dayNumber int, acceptLanguage string) (Detail, error) {
	if err := rules.ValidateDayNumber(dayNumber); err != nil {
		return Detail{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if s.store == nil {
		return Detail{}, ErrDependenciesNil
	}

	scene, err := s.store.GetSceneByDay(ctx, dayNumber)
	if err != nil {
		return Detail{}, err
	}
	if !s.unlocked(scene, s.now()) {
		return Detail{}, ErrLocked
	}

	translations, err := s.store.ListTranslations(ctx, scene.ID)
	if err != nil {
		return Detail{}, fmt.Errorf("list translations: %w", err)
	}

	out := Detail{
		Scene:        scene,
		Translations: translations,
		Translation:  PickTranslation(translations, acceptLanguage),
	}

	if scene.ArtistID != nil {
		artist, err := s.store.GetArtist(ctx, *scene.ArtistID)
		switch {
		case err == nil:
			out.Artist = &artist
		case errors.Is(err, ErrArtistNotFound):
		default:
			return Detail{}, fmt.Errorf("get artist: %w", err)
		}
	}

	return out, nil
}

// Unlock sets the stored flag once the date for the day has been reached.
func (s *Service) Unlock(ctx context.Context, viewerID *uuid.UUID, dayNumber int) (model.Scene, error) {
	if err := rules.ValidateDayNumber(dayNumber); err != nil {
		return model.Scene{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if s.store == nil {
		return model.Scene{}, ErrDependenciesNil
	}

	scene, err := s.store.GetSceneByDay(ctx, dayNumber)
	if err != nil {
		return model.Scene{}, err
	}
	if scene.IsUnlocked {
		return scene, nil
	}
	if !s.policy.DayUnlocked(dayNumber, scene.UnlockDate.Year(), s.now()) {
		return model.Scene{}, ErrLocked
	}

	updated, err := s.store.MarkSceneUnlocked(ctx, dayNumber)
	if err != nil {
		return model.Scene{}, fmt.Errorf("unlock scene: %w", err)
	}
	if s.tracker != nil {
		s.tracker.Track(ctx, viewerID, "scene_unlocked", map[string]any{"day_number": dayNumber})
	}
	return updated, nil
}

// Create uploads the scene image and stores a scene for a free day.
func (s *Service) Create(ctx context.Context, adminID uuid.UUID, in CreateInput) (model.Scene, error) {
	if err := rules.ValidateDayNumber(in.DayNumber); err != nil {
		return model.Scene{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	title := strings.TrimSpace(in.Title)
	if !validate.Required(title) || !validate.MaxRunes(title, maxTitleRunes) {
		return model.Scene{}, ErrValidation
	}
	if s.store == nil || s.media == nil {
		return model.Scene{}, ErrDependenciesNil
	}
	if in.ArtistID != nil {
		if _, err := s.store.GetArtist(ctx, *in.ArtistID); err != nil {
			return model.Scene{}, err
		}
	}

	media, err := s.media.Upload(ctx, adminID, enums.MediaKindScene, in.Image)
	if err != nil {
		return model.Scene{}, fmt.Errorf("upload scene image: %w", err)
	}

	now := s.now().UTC()
	season := rules.SeasonFor(now, s.policy.Location)
	scene := model.Scene{
		ID:         uuid.New(),
		DayNumber:  in.DayNumber,
		Title:      title,
		ImageURL:   media.URL,
		ArtistID:   in.ArtistID,
		UnlockDate: rules.UnlockDate(in.DayNumber, season, s.policy.Location),
		CreatedAt:  now,
	}

	created, err := s.store.CreateScene(ctx, scene)
	if err != nil {
		_ = s.media.Release(ctx, media.URL)
		return model.Scene{}, err
	}
	return created, nil
}

func (s *Service) SetTranslation(ctx context.Context, dayNumber int, lang enums.Language, text string, audioURL *string) (model.Translation, error) {
	if !lang.Valid() {
		return model.Translation{}, fmt.Errorf("unsupported language %q: %w", lang, ErrValidation)
	}
	text = strings.TrimSpace(text)
	if !validate.Required(text) || !validate.MaxRunes(text, maxTextRunes) {
		return model.Translation{}, ErrValidation
	}
	if s.store == nil {
		return model.Translation{}, ErrDependenciesNil
	}

	scene, err := s.store.GetSceneByDay(ctx, dayNumber)
	if err != nil {
		return model.Translation{}, err
	}

	var audio *string
	if audioURL != nil {
		if trimmed := strings.TrimSpace(*audioURL); trimmed != "" {
			audio = &trimmed
		}
	}

	return s.store.UpsertTranslation(ctx, model.Translation{
		ID:          uuid.New(),
		SceneID:     scene.ID,
		Language:    lang,
		TextContent: text,
		AudioURL:    audio,
		CreatedAt:   s.now().UTC(),
	})
}

func (s *Service) CreateArtist(ctx context.Context, in ArtistInput) (model.Artist, error) {
	name := strings.TrimSpace(in.Name)
	bio := strings.TrimSpace(in.Bio)
	if !validate.Required(name) || !validate.MaxRunes(name, maxTitleRunes) || !validate.MaxRunes(bio, maxBioRunes) {
		return model.Artist{}, ErrValidation
	}
	if s.store == nil {
		return model.Artist{}, ErrDependenciesNil
	}

	return s.store.CreateArtist(ctx, model.Artist{
		ID:              uuid.New(),
		Name:            name,
		Bio:             bio,
		ProfileImageURL: strings.TrimSpace(in.ProfileImageURL),
		Country:         strings.TrimSpace(in.Country),
		CreatedAt:       s.now().UTC(),
	})
}

// Artist returns the artist with their scenes, tips (newest first), and tip
// totals per currency.
func (s *Service) Artist(ctx context.Context, id uuid.UUID) (ArtistProfile, error) {
	if id == uuid.Nil {
		return ArtistProfile{}, ErrArtistNotFound
	}
	if s.store == nil || s.tips == nil {
		return ArtistProfile{}, ErrDependenciesNil
	}

	artist, err := s.store.GetArtist(ctx, id)
	if err != nil {
		return ArtistProfile{}, err
	}
	scenes, err := s.store.ListScenesByArtist(ctx, id)
	if err != nil {
		return ArtistProfile{}, fmt.Errorf("list artist scenes: %w", err)
	}
	tips, err := s.tips.ListForArtist(ctx, id)
	if err != nil {
		return ArtistProfile{}, fmt.Errorf("list artist tips: %w", err)
	}

	now := s.now()
	slots := make([]SceneSlot, 0, len(scenes))
	for _, scene := range scenes {
		slots = append(slots, SceneSlot{Scene: scene, Unlocked: s.unlocked(scene, now)})
	}

	return ArtistProfile{
		Artist: artist,
		Scenes: slots,
		Tips:   tips,
		Totals: TipTotals(tips),
	}, nil
}

func (s *Service) unlocked(scene model.Scene, now time.Time) bool {
	if scene.IsUnlocked {
		return true
	}
	return s.policy.DayUnlocked(scene.DayNumber, scene.UnlockDate.Year(), now)
}

// TipTotals sums tips per currency in first-seen order.
func TipTotals(tips []model.Tip) []model.Price {
	index := map[string]int{}
	out := []model.Price{}
	for _, tip := range tips {
		currency := model.NormalizeCurrency(tip.Amount.Currency)
		i, ok := index[currency]
		if !ok {
			i = len(out)
			index[currency] = i
			out = append(out, model.Price{Currency: currency})
		}
		out[i].AmountCents += tip.Amount.AmountCents
	}
	return out
}
