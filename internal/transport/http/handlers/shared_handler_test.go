package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/rules"
	redrepo "github.com/keito-ux/advent-calendar-bolt/internal/repo/redis"
	authsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/auth"
	calendarsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/calendars"
	purchasesvc "github.com/keito-ux/advent-calendar-bolt/internal/services/purchases"
	"github.com/keito-ux/advent-calendar-bolt/internal/services/rate"
	"github.com/keito-ux/advent-calendar-bolt/internal/transport/http/dto"
	httperrors "github.com/keito-ux/advent-calendar-bolt/internal/transport/http/errors"
)

const testUserHeader = "X-Test-User"

func TestSharedViewNeverLeaksPaidContent(t *testing.T) {
	env := newSharedEnv(t, nil)
	viewer := uuid.New()

	rr := env.do(http.MethodGet, "/v1/shared/"+env.cal.ShareCode, nil, &viewer)
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d (%s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	var payload dto.SharedCalendarResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Days) != model.LastDay {
		t.Fatalf("unexpected day count: got %d want %d", len(payload.Days), model.LastDay)
	}
	if payload.IsOwner {
		t.Fatalf("viewer must not be reported as owner")
	}

	paid := payload.Days[2]
	if paid.CanAccess || paid.Content != nil || paid.State == "unlocked" {
		t.Fatalf("paid day leaked: %+v", paid)
	}
	if paid.Price.AmountCents != 500 {
		t.Fatalf("unexpected day price: got %d want 500", paid.Price.AmountCents)
	}
	for _, day := range payload.Days {
		if day.Content != nil && day.State != "unlocked" {
			t.Fatalf("day %d has content in state %s", day.DayNumber, day.State)
		}
	}
}

func TestSharedViewUnknownCode(t *testing.T) {
	env := newSharedEnv(t, nil)

	rr := env.do(http.MethodGet, "/v1/shared/nosuchcode", nil, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNotFound)
	}
}

func TestSharedPurchaseUnlocksDay(t *testing.T) {
	env := newSharedEnv(t, nil)
	viewer := uuid.New()

	rr := env.do(http.MethodPost, "/v1/shared/"+env.cal.ShareCode+"/purchase", dto.PurchaseRequest{DayNumber: intPtr(3)}, &viewer)
	if rr.Code != http.StatusCreated {
		t.Fatalf("unexpected status: got %d want %d (%s)", rr.Code, http.StatusCreated, rr.Body.String())
	}

	var rec dto.PurchaseResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &rec); err != nil {
		t.Fatalf("decode purchase: %v", err)
	}
	if rec.Status != string(enums.PurchaseStatusCompleted) || rec.Amount.AmountCents != 500 {
		t.Fatalf("unexpected purchase: %+v", rec)
	}

	rr = env.do(http.MethodGet, "/v1/shared/"+env.cal.ShareCode, nil, &viewer)
	var view dto.SharedCalendarResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if !view.Days[2].CanAccess {
		t.Fatalf("purchased day 3 should be accessible")
	}
	if view.Days[3].CanAccess {
		t.Fatalf("day 4 was not purchased")
	}
}

func TestSharedPurchaseRequiresAuth(t *testing.T) {
	env := newSharedEnv(t, nil)

	rr := env.do(http.MethodPost, "/v1/shared/"+env.cal.ShareCode+"/purchase", dto.PurchaseRequest{}, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
	if len(env.purchases.records) != 0 {
		t.Fatalf("no purchase should be stored")
	}
}

func TestSharedPurchaseRejectsOwnerAndFreeTargets(t *testing.T) {
	env := newSharedEnv(t, nil)

	owner := env.cal.CreatorID
	rr := env.do(http.MethodPost, "/v1/shared/"+env.cal.ShareCode+"/purchase", dto.PurchaseRequest{DayNumber: intPtr(3)}, &owner)
	if rr.Code != http.StatusConflict {
		t.Fatalf("owner purchase: got %d want %d", rr.Code, http.StatusConflict)
	}

	// the calendar itself is free
	viewer := uuid.New()
	rr = env.do(http.MethodPost, "/v1/shared/"+env.cal.ShareCode+"/purchase", dto.PurchaseRequest{}, &viewer)
	if rr.Code != http.StatusConflict {
		t.Fatalf("free calendar purchase: got %d want %d", rr.Code, http.StatusConflict)
	}

	rr = env.do(http.MethodPost, "/v1/shared/"+env.cal.ShareCode+"/purchase", dto.PurchaseRequest{DayNumber: intPtr(26)}, &viewer)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("day 26 purchase: got %d want %d", rr.Code, http.StatusBadRequest)
	}

	rr = env.do(http.MethodPost, "/v1/shared/"+env.cal.ShareCode+"/purchase", dto.PurchaseRequest{DayNumber: intPtr(9)}, &viewer)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unpublished day purchase: got %d want %d", rr.Code, http.StatusNotFound)
	}

	if len(env.purchases.records) != 0 {
		t.Fatalf("rejected purchases must not be stored, got %d", len(env.purchases.records))
	}
}

func TestSharedPurchaseRejectsUnopenedDay(t *testing.T) {
	env := newSharedEnv(t, nil)
	viewer := uuid.New()
	path := "/v1/shared/" + env.upcoming.ShareCode + "/purchase"

	rr := env.do(http.MethodPost, path, dto.PurchaseRequest{DayNumber: intPtr(1)}, &viewer)
	if rr.Code != http.StatusConflict {
		t.Fatalf("unopened day purchase: got %d want %d (%s)", rr.Code, http.StatusConflict, rr.Body.String())
	}
	var apiErr httperrors.APIError
	if err := json.Unmarshal(rr.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if apiErr.Code != "DAY_LOCKED" {
		t.Fatalf("unexpected error code: %s", apiErr.Code)
	}
	if len(env.purchases.records) != 0 {
		t.Fatalf("locked day purchase must not be stored, got %d", len(env.purchases.records))
	}

	// the whole calendar stays purchasable ahead of time
	rr = env.do(http.MethodPost, path, dto.PurchaseRequest{}, &viewer)
	if rr.Code != http.StatusCreated {
		t.Fatalf("whole calendar purchase: got %d want %d (%s)", rr.Code, http.StatusCreated, rr.Body.String())
	}
}

func TestSharedPurchaseRateLimited(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	redisClient := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer func() { _ = redisClient.Close() }()

	limiter := rate.NewLimiter(redrepo.NewRateRepo(redisClient), "purchase", 1, 0)
	env := newSharedEnv(t, limiter)
	viewer := uuid.New()

	path := "/v1/shared/" + env.cal.ShareCode + "/purchase"
	if rr := env.do(http.MethodPost, path, dto.PurchaseRequest{DayNumber: intPtr(3)}, &viewer); rr.Code != http.StatusCreated {
		t.Fatalf("first purchase: got %d want %d", rr.Code, http.StatusCreated)
	}

	rr := env.do(http.MethodPost, path, dto.PurchaseRequest{DayNumber: intPtr(3)}, &viewer)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second purchase: got %d want %d", rr.Code, http.StatusTooManyRequests)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("Retry-After header is missing")
	}
	if env.rate.counts["purchase"] != 1 {
		t.Fatalf("rate observer not called: %+v", env.rate.counts)
	}
	if len(env.purchases.records) != 1 {
		t.Fatalf("limited purchase must not be stored, got %d records", len(env.purchases.records))
	}
}

type sharedEnv struct {
	t         *testing.T
	router    chi.Router
	cal       model.Calendar
	upcoming  model.Calendar
	purchases *handlerPurchaseStore
	rate      *countingRateObserver
}

func newSharedEnv(t *testing.T, limiter purchasesvc.RateLimiter) *sharedEnv {
	t.Helper()

	store := newHandlerCalendarStore()
	cal := model.Calendar{
		ID:        uuid.New(),
		CreatorID: uuid.New(),
		Title:     "Office advent",
		Theme:     enums.ThemeWinter,
		Price:     model.NewPrice(0, "USD"),
		ShareCode: "office2020",
		Season:    2020,
	}
	// A season far ahead keeps every door shut.
	upcoming := model.Calendar{
		ID:        uuid.New(),
		CreatorID: uuid.New(),
		Title:     "Next year",
		Theme:     enums.ThemeCozy,
		Price:     model.NewPrice(1000, "USD"),
		ShareCode: "future9999",
		Season:    9999,
	}
	store.calendars[cal.ID] = cal
	store.calendars[upcoming.ID] = upcoming
	store.days[cal.ID] = map[int]model.CalendarDay{
		3: {ID: uuid.New(), CalendarID: cal.ID, DayNumber: 3, Title: "Paid", Message: "secret", Price: model.NewPrice(500, "USD")},
		4: {ID: uuid.New(), CalendarID: cal.ID, DayNumber: 4, Title: "Also paid", Message: "hidden", Price: model.NewPrice(300, "USD")},
	}
	store.days[upcoming.ID] = map[int]model.CalendarDay{
		1: {ID: uuid.New(), CalendarID: upcoming.ID, DayNumber: 1, Title: "Soon", Price: model.NewPrice(200, "USD")},
	}

	policy := rules.UnlockPolicy{YearBounded: true}
	purchases := &handlerPurchaseStore{}
	calendars := calendarsvc.NewService(calendarsvc.Dependencies{
		Store:     store,
		Purchases: purchases,
	}, calendarsvc.Config{Policy: policy})

	purchaseService := purchasesvc.NewService(purchases, calendars, policy)
	if limiter != nil {
		purchaseService.AttachRateLimiter(limiter)
	}

	observer := &countingRateObserver{counts: map[string]int{}}
	handler := NewSharedHandler(calendars, purchaseService)
	handler.AttachRateObserver(observer)

	r := chi.NewRouter()
	r.Use(testIdentity)
	r.Get("/v1/shared/{code}", handler.View)
	r.Post("/v1/shared/{code}/purchase", handler.Purchase)

	return &sharedEnv{t: t, router: r, cal: cal, upcoming: upcoming, purchases: purchases, rate: observer}
}

func (e *sharedEnv) do(method, path string, body any, userID *uuid.UUID) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != nil {
		req.Header.Set(testUserHeader, userID.String())
	}

	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// testIdentity stands in for the bearer-token middleware.
func testIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get(testUserHeader); raw != "" {
			id, err := uuid.Parse(raw)
			if err == nil {
				r = r.WithContext(authsvc.WithIdentity(r.Context(), authsvc.Identity{
					UserID: id,
					SID:    "test-session",
					Role:   enums.RoleUser,
				}))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func intPtr(v int) *int {
	return &v
}

type countingRateObserver struct {
	counts map[string]int
}

func (o *countingRateObserver) ObserveRateLimited(scope string) {
	o.counts[scope]++
}

type handlerCalendarStore struct {
	calendars map[uuid.UUID]model.Calendar
	days      map[uuid.UUID]map[int]model.CalendarDay
}

func newHandlerCalendarStore() *handlerCalendarStore {
	return &handlerCalendarStore{
		calendars: map[uuid.UUID]model.Calendar{},
		days:      map[uuid.UUID]map[int]model.CalendarDay{},
	}
}

func (s *handlerCalendarStore) CreateCalendar(_ context.Context, cal model.Calendar) (model.Calendar, error) {
	s.calendars[cal.ID] = cal
	return cal, nil
}

func (s *handlerCalendarStore) UpdateCalendar(_ context.Context, cal model.Calendar) (model.Calendar, error) {
	if _, ok := s.calendars[cal.ID]; !ok {
		return model.Calendar{}, calendarsvc.ErrNotFound
	}
	s.calendars[cal.ID] = cal
	return cal, nil
}

func (s *handlerCalendarStore) DeleteCalendar(_ context.Context, id uuid.UUID) error {
	delete(s.calendars, id)
	return nil
}

func (s *handlerCalendarStore) GetCalendar(_ context.Context, id uuid.UUID) (model.Calendar, error) {
	cal, ok := s.calendars[id]
	if !ok {
		return model.Calendar{}, calendarsvc.ErrNotFound
	}
	return cal, nil
}

func (s *handlerCalendarStore) GetCalendarByShareCode(_ context.Context, code string) (model.Calendar, error) {
	for _, cal := range s.calendars {
		if cal.ShareCode == code {
			return cal, nil
		}
	}
	return model.Calendar{}, calendarsvc.ErrNotFound
}

func (s *handlerCalendarStore) ListCalendarsByCreator(_ context.Context, creatorID uuid.UUID) ([]model.Calendar, error) {
	out := []model.Calendar{}
	for _, cal := range s.calendars {
		if cal.CreatorID == creatorID {
			out = append(out, cal)
		}
	}
	return out, nil
}

func (s *handlerCalendarStore) SearchPublicCalendars(context.Context, string, int) ([]model.Calendar, error) {
	return nil, nil
}

func (s *handlerCalendarStore) ListRecentCalendars(context.Context, int) ([]model.Calendar, error) {
	return nil, nil
}

func (s *handlerCalendarStore) CalendarStats(context.Context) (calendarsvc.Stats, error) {
	return calendarsvc.Stats{Calendars: len(s.calendars)}, nil
}

func (s *handlerCalendarStore) ListDays(_ context.Context, calendarID uuid.UUID) ([]model.CalendarDay, error) {
	out := []model.CalendarDay{}
	for _, day := range s.days[calendarID] {
		out = append(out, day)
	}
	return out, nil
}

func (s *handlerCalendarStore) GetDay(_ context.Context, calendarID uuid.UUID, n int) (model.CalendarDay, error) {
	day, ok := s.days[calendarID][n]
	if !ok {
		return model.CalendarDay{}, calendarsvc.ErrDayNotFound
	}
	return day, nil
}

func (s *handlerCalendarStore) UpsertDay(_ context.Context, day model.CalendarDay) (model.CalendarDay, error) {
	if s.days[day.CalendarID] == nil {
		s.days[day.CalendarID] = map[int]model.CalendarDay{}
	}
	s.days[day.CalendarID][day.DayNumber] = day
	return day, nil
}

// handlerPurchaseStore backs both the purchase writer and the calendar
// service's purchase reader.
type handlerPurchaseStore struct {
	mu      sync.Mutex
	records []model.PurchaseRecord
}

func (s *handlerPurchaseStore) InsertPurchase(_ context.Context, rec model.PurchaseRecord) (model.PurchaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *handlerPurchaseStore) ListCompletedByUser(_ context.Context, userID uuid.UUID) ([]model.PurchaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.PurchaseRecord{}
	for _, rec := range s.records {
		if rec.UserID == userID && rec.Status == enums.PurchaseStatusCompleted {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *handlerPurchaseStore) ListForViewer(_ context.Context, userID, calendarID uuid.UUID) ([]model.PurchaseRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.PurchaseRecord{}
	for _, rec := range s.records {
		if rec.UserID == userID && rec.CalendarID == calendarID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *handlerPurchaseStore) EarningsByCreator(context.Context, uuid.UUID) ([]model.CalendarEarnings, error) {
	return nil, nil
}
