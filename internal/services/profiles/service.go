package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	"github.com/keito-ux/advent-calendar-bolt/internal/pkg/validate"
	mediasvc "github.com/keito-ux/advent-calendar-bolt/internal/services/media"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("profile not found")
	ErrUsernameTaken = errors.New("username already taken")
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type Store interface {
	GetProfile(ctx context.Context, id uuid.UUID) (model.Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, patch Patch) (model.Profile, error)
	SearchCreators(ctx context.Context, query SearchQuery) ([]model.Profile, error)
}

type PublicCalendars interface {
	ListPublicCalendarsByCreators(ctx context.Context, creatorIDs []uuid.UUID) ([]model.Calendar, error)
}

type AvatarUploader interface {
	Upload(ctx context.Context, ownerID uuid.UUID, kind enums.MediaKind, in mediasvc.Upload) (model.Media, error)
	Release(ctx context.Context, urls ...string) error
}

// Patch fields left nil are unchanged.
type Patch struct {
	Username  *string
	AvatarURL *string
}

// SearchQuery matches creators by username substring, exact email, or id
// prefix. Only profiles owning at least one public calendar are returned.
type SearchQuery struct {
	Text  string
	Limit int
}

type Creator struct {
	Profile   model.Profile
	Calendars []model.Calendar
}

type Service struct {
	store     Store
	calendars PublicCalendars
	avatars   AvatarUploader
}

func NewService(store Store, calendars PublicCalendars, avatars AvatarUploader) *Service {
	return &Service{
		store:     store,
		calendars: calendars,
		avatars:   avatars,
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (model.Profile, error) {
	if id == uuid.Nil {
		return model.Profile{}, ErrValidation
	}
	if s.store == nil {
		return model.Profile{}, fmt.Errorf("profile store is nil")
	}
	return s.store.GetProfile(ctx, id)
}

func (s *Service) UpdateUsername(ctx context.Context, id uuid.UUID, username string) (model.Profile, error) {
	username = strings.TrimSpace(username)
	if id == uuid.Nil || !validate.Username(username) {
		return model.Profile{}, ErrValidation
	}
	if s.store == nil {
		return model.Profile{}, fmt.Errorf("profile store is nil")
	}

	profile, err := s.store.UpdateProfile(ctx, id, Patch{Username: &username})
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrNotFound) {
			return model.Profile{}, err
		}
		return model.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return profile, nil
}

// SetAvatar uploads a new avatar and queues the previous one for deletion.
func (s *Service) SetAvatar(ctx context.Context, id uuid.UUID, in mediasvc.Upload) (model.Profile, error) {
	if s.store == nil || s.avatars == nil {
		return model.Profile{}, fmt.Errorf("profile dependencies are not configured")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return model.Profile{}, err
	}

	media, err := s.avatars.Upload(ctx, id, enums.MediaKindAvatar, in)
	if err != nil {
		return model.Profile{}, fmt.Errorf("upload avatar: %w", err)
	}

	profile, err := s.store.UpdateProfile(ctx, id, Patch{AvatarURL: &media.URL})
	if err != nil {
		_ = s.avatars.Release(ctx, media.URL)
		return model.Profile{}, fmt.Errorf("update avatar: %w", err)
	}

	if current.AvatarURL != "" {
		_ = s.avatars.Release(ctx, current.AvatarURL)
	}
	return profile, nil
}

func (s *Service) Search(ctx context.Context, text string, limit int) ([]Creator, error) {
	if s.store == nil || s.calendars == nil {
		return nil, fmt.Errorf("profile dependencies are not configured")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	profiles, err := s.store.SearchCreators(ctx, SearchQuery{Text: strings.TrimSpace(text), Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("search creators: %w", err)
	}
	if len(profiles) == 0 {
		return []Creator{}, nil
	}

	ids := make([]uuid.UUID, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	calendars, err := s.calendars.ListPublicCalendarsByCreators(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list public calendars: %w", err)
	}

	byCreator := make(map[uuid.UUID][]model.Calendar, len(profiles))
	for _, cal := range calendars {
		if !cal.IsPublic {
			continue
		}
		byCreator[cal.CreatorID] = append(byCreator[cal.CreatorID], cal)
	}

	out := make([]Creator, 0, len(profiles))
	for _, p := range profiles {
		cals := byCreator[p.ID]
		if len(cals) == 0 {
			continue
		}
		out = append(out, Creator{Profile: p, Calendars: cals})
	}
	return out, nil
}
