package calendars

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/rules"
)

// DaySlot is one door of the shared calendar. Content is set only when State
// is unlocked.
type DaySlot struct {
	DayNumber          int
	State              rules.AccessState
	TemporallyUnlocked bool
	CanAccess          bool
	Price              model.Price
	UnlockAt           time.Time
	Content            *model.CalendarDay
}

type SharedView struct {
	Calendar     model.Calendar
	IsOwner      bool
	NeedsPayment bool
	Days         [model.LastDay]DaySlot
}

type Overview struct {
	Stats  Stats
	Recent []model.Calendar
}

// View evaluates both gates for every day of the calendar behind shareCode.
// Private calendars are reachable by anyone holding the code.
func (s *Service) View(ctx context.Context, shareCode string, viewerID *uuid.UUID) (SharedView, error) {
	if s.purchases == nil {
		return SharedView{}, ErrDependenciesNil
	}

	cal, err := s.GetByShareCode(ctx, shareCode)
	if err != nil {
		return SharedView{}, err
	}

	days, err := s.store.ListDays(ctx, cal.ID)
	if err != nil {
		return SharedView{}, fmt.Errorf("list days: %w", err)
	}
	byNumber := make(map[int]*model.CalendarDay, len(days))
	for i := range days {
		day := &days[i]
		if err := rules.CheckDay(cal, day); err != nil {
			return SharedView{}, err
		}
		byNumber[day.DayNumber] = day
	}

	var purchases []model.PurchaseRecord
	if viewerID != nil && *viewerID != uuid.Nil {
		purchases, err = s.purchases.ListForViewer(ctx, *viewerID, cal.ID)
		if err != nil {
			return SharedView{}, fmt.Errorf("list purchases: %w", err)
		}
	}

	now := s.now()
	season := s.cfg.Policy.SeasonOf(cal, now)

	view := SharedView{
		Calendar:     cal,
		IsOwner:      cal.IsOwnedBy(viewerID),
		NeedsPayment: rules.NeedsWholeCalendarPayment(cal, viewerID, rules.HasWholeCalendarPurchase(cal, viewerID, purchases)),
	}

	for n := model.FirstDay; n <= model.LastDay; n++ {
		day := byNumber[n]
		temporal := s.cfg.Policy.DayUnlocked(n, season, now)
		access := rules.CanAccessDay(cal, day, viewerID, purchases)

		slot := DaySlot{
			DayNumber:          n,
			State:              rules.DayState(temporal, access),
			TemporallyUnlocked: temporal,
			CanAccess:          access,
			Price:              model.NewPrice(0, cal.Price.Currency),
			UnlockAt:           rules.UnlockDate(n, season, s.cfg.Policy.Location),
		}
		if day != nil {
			slot.Price = day.Price
		}
		if slot.State == rules.AccessUnlocked && day != nil {
			content := *day
			slot.Content = &content
		}
		view.Days[n-1] = slot
	}

	return view, nil
}

func (s *Service) SearchPublic(ctx context.Context, query string) ([]model.Calendar, error) {
	if s.store == nil {
		return nil, ErrDependenciesNil
	}
	query = strings.TrimSpace(query)
	if len([]rune(query)) > maxTitleRunes {
		return nil, ErrValidation
	}

	calendars, err := s.store.SearchPublicCalendars(ctx, query, s.cfg.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search calendars: %w", err)
	}
	return calendars, nil
}

func (s *Service) Overview(ctx context.Context, recent int) (Overview, error) {
	if s.store == nil {
		return Overview{}, ErrDependenciesNil
	}
	if recent <= 0 || recent > 100 {
		recent = 10
	}

	stats, err := s.store.CalendarStats(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("calendar stats: %w", err)
	}
	calendars, err := s.store.ListRecentCalendars(ctx, recent)
	if err != nil {
		return Overview{}, fmt.Errorf("recent calendars: %w", err)
	}
	return Overview{Stats: stats, Recent: calendars}, nil
}
