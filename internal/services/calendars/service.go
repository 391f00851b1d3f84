package calendars

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/rules"
	"github.com/keito-ux/advent-calendar-bolt/internal/pkg/validate"
	mediasvc "github.com/keito-ux/advent-calendar-bolt/internal/services/media"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("calendar not found")
	ErrDayNotFound     = errors.New("calendar day not found")
	ErrForbidden       = errors.New("calendar belongs to another user")
	ErrShareCodeTaken  = errors.New("share code already in use")
	ErrDependenciesNil = errors.New("calendar dependencies are not configured")
)

const (
	maxTitleRunes       = 120
	maxDescriptionRunes = 2000
	maxMessageRunes     = 5000
	shareCodeAttempts   = 3
	defaultSearchLimit  = 50
)

type Store interface {
	CreateCalendar(ctx context.Context, cal model.Calendar) (model.Calendar, error)
	UpdateCalendar(ctx context.Context, cal model.Calendar) (model.Calendar, error)
	DeleteCalendar(ctx context.Context, id uuid.UUID) error
	GetCalendar(ctx context.Context, id uuid.UUID) (model.Calendar, error)
	GetCalendarByShareCode(ctx context.Context, shareCode string) (model.Calendar, error)
	ListCalendarsByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.Calendar, error)
	SearchPublicCalendars(ctx context.Context, query string, limit int) ([]model.Calendar, error)
	ListRecentCalendars(ctx context.Context, limit int) ([]model.Calendar, error)
	CalendarStats(ctx context.Context) (Stats, error)
	ListDays(ctx context.Context, calendarID uuid.UUID) ([]model.CalendarDay, error)
	GetDay(ctx context.Context, calendarID uuid.UUID, dayNumber int) (model.CalendarDay, error)
	UpsertDay(ctx context.Context, day model.CalendarDay) (model.CalendarDay, error)
}

type PurchaseReader interface {
	ListForViewer(ctx context.Context, userID, calendarID uuid.UUID) ([]model.PurchaseRecord, error)
	EarningsByCreator(ctx context.Context, creatorID uuid.UUID) ([]model.CalendarEarnings, error)
}

type Cache interface {
	GetCalendar(ctx context.Context, shareCode string) (model.Calendar, bool, error)
	SetCalendar(ctx context.Context, cal model.Calendar, ttl time.Duration) error
	DeleteCalendar(ctx context.Context, shareCode string) error
}

type Media interface {
	Upload(ctx context.Context, ownerID uuid.UUID, kind enums.MediaKind, in mediasvc.Upload) (model.Media, error)
	Release(ctx context.Context, urls ...string) error
}

type ProfileLookup interface {
	GetProfile(ctx context.Context, id uuid.UUID) (model.Profile, error)
}

type Dependencies struct {
	Store     Store
	Purchases PurchaseReader
	Cache     Cache
	Media     Media
	Profiles  ProfileLookup
	Logger    *zap.Logger
}

type Config struct {
	Policy          rules.UnlockPolicy
	DefaultTitle    string
	DefaultCurrency string
	CacheTTL        time.Duration
	SearchLimit     int
}

// Stats are site-wide totals for the admin overview.
type Stats struct {
	Users           int
	Creators        int
	Calendars       int
	PublicCalendars int
	Purchases       int
	Tips            int
}

type CreateInput struct {
	Title       string
	Description string
	Username    string
	Theme       enums.Theme
	IsPublic    *bool
	PriceCents  int64
	Currency    string
}

// UpdateInput fields left nil are unchanged.
type UpdateInput struct {
	Title       *string
	Description *string
	Theme       *enums.Theme
	IsPublic    *bool
	PriceCents  *int64
	Currency    *string
}

type DayInput struct {
	Title      *string
	Message    *string
	PriceCents *int64
	Currency   *string
}

type OwnedCalendar struct {
	Calendar model.Calendar
	Earnings model.CalendarEarnings
}

type Service struct {
	store     Store
	purchases PurchaseReader
	cache     Cache
	media     Media
	profiles  ProfileLookup
	logger    *zap.Logger
	cfg       Config
	now       func() time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if strings.TrimSpace(cfg.DefaultTitle) == "" {
		cfg.DefaultTitle = "My Advent Calendar"
	}
	cfg.DefaultCurrency = model.NormalizeCurrency(cfg.DefaultCurrency)
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:     deps.Store,
		purchases: deps.Purchases,
		cache:     deps.Cache,
		media:     deps.Media,
		profiles:  deps.Profiles,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *Service) Create(ctx context.Context, creatorID uuid.UUID, in CreateInput) (model.Calendar, error) {
	if creatorID == uuid.Nil {
		return model.Calendar{}, ErrValidation
	}
	if s.store == nil {
		return model.Calendar{}, ErrDependenciesNil
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = s.cfg.DefaultTitle
	}
	description := strings.TrimSpace(in.Description)
	if !validate.MaxRunes(title, maxTitleRunes) || !validate.MaxRunes(description, maxDescriptionRunes) {
		return model.Calendar{}, ErrValidation
	}

	theme := in.Theme
	if theme == "" {
		theme = enums.ThemeDefault
	}
	if !theme.Valid() {
		return model.Calendar{}, fmt.Errorf("unknown theme %q: %w", theme, ErrValidation)
	}

	price := model.NewPrice(in.PriceCents, s.currencyOr(in.Currency))
	if err := rules.ValidatePrice(price); err != nil {
		return model.Calendar{}, err
	}

	username := strings.TrimSpace(in.Username)
	if username == "" && s.profiles != nil {
		if profile, err := s.profiles.GetProfile(ctx, creatorID); err == nil {
			username = profile.Username
		}
	}

	isPublic := true
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}

	now := s.now().UTC()
	cal := model.Calendar{
		ID:          uuid.New(),
		CreatorID:   creatorID,
		Title:       title,
		Description: description,
		Username:    username,
		Theme:       theme,
		IsPublic:    isPublic,
		Price:       price,
		Season:      rules.SeasonFor(now, s.cfg.Policy.Location),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for attempt := 0; attempt < shareCodeAttempts; attempt++ {
		code, err := newShareCode()
		if err != nil {
			return model.Calendar{}, fmt.Errorf("generate share code: %w", err)
		}
		cal.ShareCode = code

		created, err := s.store.CreateCalendar(ctx, cal)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, ErrShareCodeTaken) {
			return model.Calendar{}, fmt.Errorf("create calendar: %w", err)
		}
	}

	return model.Calendar{}, fmt.Errorf("create calendar: %w", ErrShareCodeTaken)
}

func (s *Service) Update(ctx context.Context, creatorID, id uuid.UUID, in UpdateInput) (model.Calendar, error) {
	cal, err := s.owned(ctx, creatorID, id)
	if err != nil {
		return model.Calendar{}, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" || !validate.MaxRunes(title, maxTitleRunes) {
			return model.Calendar{}, ErrValidation
		}
		cal.Title = title
	}
	if in.Description != nil {
		description := strings.TrimSpace(*in.Description)
		if !validate.MaxRunes(description, maxDescriptionRunes) {
			return model.Calendar{}, ErrValidation
		}
		cal.Description = description
	}
	if in.Theme != nil {
		if !in.Theme.Valid() {
			return model.Calendar{}, fmt.Errorf("unknown theme %q: %w", *in.Theme, ErrValidation)
		}
		cal.Theme = *in.Theme
	}
	if in.IsPublic != nil {
		cal.IsPublic = *in.IsPublic
	}
	if in.PriceCents != nil || in.Currency != nil {
		price := cal.Price
		if in.PriceCents != nil {
			price.AmountCents = *in.PriceCents
		}
		if in.Currency != nil {
			price.Currency = model.NormalizeCurrency(*in.Currency)
		}
		if err := rules.ValidatePrice(price); err != nil {
			return model.Calendar{}, err
		}
		cal.Price = price
	}
	cal.UpdatedAt = s.now().UTC()

	updated, err := s.store.UpdateCalendar(ctx, cal)
	if err != nil {
		return model.Calendar{}, fmt.Errorf("update calendar: %w", err)
	}
	s.invalidate(ctx, updated.ShareCode)
	return updated, nil
}

// Delete removes the calendar with its days and purchases and queues every
// uploaded image for storage cleanup.
func (s *Service) Delete(ctx context.Context, creatorID, id uuid.UUID) error {
	cal, err := s.owned(ctx, creatorID, id)
	if err != nil {
		return err
	}

	days, err := s.store.ListDays(ctx, cal.ID)
	if err != nil {
		return fmt.Errorf("list days: %w", err)
	}

	if err := s.store.DeleteCalendar(ctx, cal.ID); err != nil {
		return fmt.Errorf("delete calendar: %w", err)
	}
	s.invalidate(ctx, cal.ShareCode)

	urls := make([]string, 0, len(days)+1)
	if cal.BackgroundImage != "" {
		urls = append(urls, cal.BackgroundImage)
	}
	for _, day := range days {
		if day.ImageURL != "" {
			urls = append(urls, day.ImageURL)
		}
	}
	if len(urls) > 0 && s.media != nil {
		if err := s.media.Release(ctx, urls...); err != nil {
			s.logger.Warn("release calendar images failed", zap.Error(err), zap.String("calendar_id", cal.ID.String()))
		}
	}
	return nil
}

// Editor returns a calendar and all its stored days for its owner.
func (s *Service) Editor(ctx context.Context, creatorID, id uuid.UUID) (model.Calendar, []model.CalendarDay, error) {
	cal, err := s.owned(ctx, creatorID, id)
	if err != nil {
		return model.Calendar{}, nil, err
	}
	days, err := s.store.ListDays(ctx, cal.ID)
	if err != nil {
		return model.Calendar{}, nil, fmt.Errorf("list days: %w", err)
	}
	return cal, days, nil
}

func (s *Service) UpsertDay(ctx context.Context, creatorID, calendarID uuid.UUID, dayNumber int, in DayInput) (model.CalendarDay, error) {
	if err := rules.ValidateDayNumber(dayNumber); err != nil {
		return model.CalendarDay{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	cal, err := s.owned(ctx, creatorID, calendarID)
	if err != nil {
		return model.CalendarDay{}, err
	}

	day, err := s.dayOrBlank(ctx, cal, dayNumber)
	if err != nil {
		return model.CalendarDay{}, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if !validate.MaxRunes(title, maxTitleRunes) {
			return model.CalendarDay{}, ErrValidation
		}
		day.Title = title
	}
	if in.Message != nil {
		message := strings.TrimSpace(*in.Message)
		if !validate.MaxRunes(message, maxMessageRunes) {
			return model.CalendarDay{}, ErrValidation
		}
		day.Message = message
	}
	if in.PriceCents != nil {
		day.Price.AmountCents = *in.PriceCents
	}
	if in.Currency != nil {
		day.Price.Currency = model.NormalizeCurrency(*in.Currency)
	}
	if err := rules.ValidatePrice(day.Price); err != nil {
		return model.CalendarDay{}, err
	}
	day.UpdatedAt = s.now().UTC()

	saved, err := s.store.UpsertDay(ctx, day)
	if err != nil {
		return model.CalendarDay{}, fmt.Errorf("upsert day: %w", err)
	}
	return saved, nil
}

// SetDayImage uploads an image for a day, creating the day when missing. The
// previous image is queued for deletion.
func (s *Service) SetDayImage(ctx context.Context, creatorID, calendarID uuid.UUID, dayNumber int, upload mediasvc.Upload) (model.CalendarDay, error) {
	if err := rules.ValidateDayNumber(dayNumber); err != nil {
		return model.CalendarDay{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if s.media == nil {
		return model.CalendarDay{}, ErrDependenciesNil
	}
	cal, err := s.owned(ctx, creatorID, calendarID)
	if err != nil {
		return model.CalendarDay{}, err
	}

	day, err := s.dayOrBlank(ctx, cal, dayNumber)
	if err != nil {
		return model.CalendarDay{}, err
	}
	previous := day.ImageURL

	media, err := s.media.Upload(ctx, creatorID, enums.MediaKindDayImage, upload)
	if err != nil {
		return model.CalendarDay{}, fmt.Errorf("upload day image: %w", err)
	}

	day.ImageURL = media.URL
	day.UpdatedAt = s.now().UTC()
	saved, err := s.store.UpsertDay(ctx, day)
	if err != nil {
		_ = s.media.Release(ctx, media.URL)
		return model.CalendarDay{}, fmt.Errorf("save day image: %w", err)
	}

	if previous != "" {
		if err := s.media.Release(ctx, previous); err != nil {
			s.logger.Warn("release previous day image failed", zap.Error(err))
		}
	}
	return saved, nil
}

func (s *Service) SetBackground(ctx context.Context, creatorID, calendarID uuid.UUID, upload mediasvc.Upload) (model.Calendar, error) {
	if s.media == nil {
		return model.Calendar{}, ErrDependenciesNil
	}
	cal, err := s.owned(ctx, creatorID, calendarID)
	if err != nil {
		return model.Calendar{}, err
	}
	previous := cal.BackgroundImage

	media, err := s.media.Upload(ctx, creatorID, enums.MediaKindBackground, upload)
	if err != nil {
		return model.Calendar{}, fmt.Errorf("upload background: %w", err)
	}

	cal.BackgroundImage = media.URL
	cal.UpdatedAt = s.now().UTC()
	updated, err := s.store.UpdateCalendar(ctx, cal)
	if err != nil {
		_ = s.media.Release(ctx, media.URL)
		return model.Calendar{}, fmt.Errorf("save background: %w", err)
	}
	s.invalidate(ctx, updated.ShareCode)

	if previous != "" {
		if err := s.media.Release(ctx, previous); err != nil {
			s.logger.Warn("release previous background failed", zap.Error(err))
		}
	}
	return updated, nil
}

func (s *Service) ListMine(ctx context.Context, creatorID uuid.UUID) ([]OwnedCalendar, error) {
	if creatorID == uuid.Nil {
		return nil, ErrValidation
	}
	if s.store == nil || s.purchases == nil {
		return nil, ErrDependenciesNil
	}

	calendars, err := s.store.ListCalendarsByCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	earnings, err := s.purchases.EarningsByCreator(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("load earnings: %w", err)
	}

	byCalendar := make(map[uuid.UUID]model.CalendarEarnings, len(earnings))
	for _, e := range earnings {
		byCalendar[e.CalendarID] = e
	}

	out := make([]OwnedCalendar, 0, len(calendars))
	for _, cal := range calendars {
		e, ok := byCalendar[cal.ID]
		if !ok {
			e = model.CalendarEarnings{CalendarID: cal.ID, Currency: cal.Price.Currency}
		}
		out = append(out, OwnedCalendar{Calendar: cal, Earnings: e})
	}
	return out, nil
}

// GetByShareCode resolves a calendar header, reading through the cache.
func (s *Service) GetByShareCode(ctx context.Context, shareCode string) (model.Calendar, error) {
	shareCode = strings.TrimSpace(shareCode)
	if !validShareCode(shareCode) {
		return model.Calendar{}, ErrNotFound
	}
	if s.store == nil {
		return model.Calendar{}, ErrDependenciesNil
	}

	if s.cache != nil {
		cal, ok, err := s.cache.GetCalendar(ctx, shareCode)
		if err != nil {
			s.logger.Warn("calendar cache read failed", zap.Error(err))
		} else if ok {
			return cal, nil
		}
	}

	cal, err := s.store.GetCalendarByShareCode(ctx, shareCode)
	if err != nil {
		return model.Calendar{}, err
	}

	if s.cache != nil {
		if err := s.cache.SetCalendar(ctx, cal, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("calendar cache write failed", zap.Error(err))
		}
	}
	return cal, nil
}

// Day returns the stored day or nil when nothing has been published for it.
func (s *Service) Day(ctx context.Context, calendarID uuid.UUID, dayNumber int) (*model.CalendarDay, error) {
	if s.store == nil {
		return nil, ErrDependenciesNil
	}
	day, err := s.store.GetDay(ctx, calendarID, dayNumber)
	if err != nil {
		if errors.Is(err, ErrDayNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get day: %w", err)
	}
	return &day, nil
}

func (s *Service) owned(ctx context.Context, creatorID, id uuid.UUID) (model.Calendar, error) {
	if creatorID == uuid.Nil || id == uuid.Nil {
		return model.Calendar{}, ErrValidation
	}
	if s.store == nil {
		return model.Calendar{}, ErrDependenciesNil
	}

	cal, err := s.store.GetCalendar(ctx, id)
	if err != nil {
		return model.Calendar{}, err
	}
	if !cal.IsOwnedBy(&creatorID) {
		return model.Calendar{}, ErrForbidden
	}
	return cal, nil
}

func (s *Service) dayOrBlank(ctx context.Context, cal model.Calendar, dayNumber int) (model.CalendarDay, error) {
	day, err := s.store.GetDay(ctx, cal.ID, dayNumber)
	if err == nil {
		return day, nil
	}
	if !errors.Is(err, ErrDayNotFound) {
		return model.CalendarDay{}, fmt.Errorf("get day: %w", err)
	}

	now := s.now().UTC()
	return model.CalendarDay{
		ID:         uuid.New(),
		CalendarID: cal.ID,
		DayNumber:  dayNumber,
		Price:      model.NewPrice(0, cal.Price.Currency),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *Service) invalidate(ctx context.Context, shareCode string) {
	if s.cache == nil || shareCode == "" {
		return
	}
	if err := s.cache.DeleteCalendar(ctx, shareCode); err != nil {
		s.logger.Warn("calendar cache invalidation failed", zap.Error(err), zap.String("share_code", shareCode))
	}
}

func (s *Service) currencyOr(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return s.cfg.DefaultCurrency
	}
	return model.NormalizeCurrency(raw)
}
