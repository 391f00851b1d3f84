package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/rules"
	authsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/auth"
	calendarsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/calendars"
	sharesvc "github.com/keito-ux/advent-calendar-bolt/internal/services/share"
	"github.com/keito-ux/advent-calendar-bolt/internal/transport/http/dto"
	httperrors "github.com/keito-ux/advent-calendar-bolt/internal/transport/http/errors"
)

type CalendarHandler struct {
	calendars *calendarsvc.Service
	share     *sharesvc.Service
}

func NewCalendarHandler(calendars *calendarsvc.Service, share *sharesvc.Service) *CalendarHandler {
	return &CalendarHandler{calendars: calendars, share: share}
}

func (h *CalendarHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.calendars == nil {
		writeInternal(w, "CALENDAR_SERVICE_UNAVAILABLE", "calendar service is unavailable")
		return
	}

	var req dto.CreateCalendarRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	cal, err := h.calendars.Create(r.Context(), identity.UserID, calendarsvc.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Username:    req.Username,
		Theme:       enums.Theme(req.Theme),
		IsPublic:    req.IsPublic,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
	})
	if err != nil {
		handleCalendarError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, mapCalendar(cal))
}

func (h *CalendarHandler) Mine(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.calendars == nil {
		writeInternal(w, "CALENDAR_SERVICE_UNAVAILABLE", "calendar service is unavailable")
		return
	}

	owned, err := h.calendars.ListMine(r.Context(), identity.UserID)
	if err != nil {
		handleCalendarError(w, err)
		return
	}

	items := make([]dto.OwnedCalendarResponse, 0, len(owned))
	for _, item := range owned {
		items = append(items, dto.OwnedCalendarResponse{
			Calendar: mapCalendar(item.Calendar),
			Earnings: dto.EarningsResponse{
				TotalCents:    item.Earnings.TotalCents,
				Currency:      item.Earnings.Currency,
				PurchaseCount: item.Earnings.PurchaseCount,
			},
		})
	}
	httperrors.Write(w, http.StatusOK, dto.MyCalendarsResponse{Items: items})
}

// Editor returns the full calendar with every stored day, locked or not, to
// its owner.
func (h *CalendarHandler) Editor(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.calendars == nil {
		writeInternal(w, "CALENDAR_SERVICE_UNAVAILABLE", "calendar service is unavailable")
		return
	}
	id, ok := pathUUID(r, "calendarID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid calendar id")
		return
	}

	cal, days, err := h.calendars.Editor(r.Context(), identity.UserID, id)
	if err != nil {
		handleCalendarError(w, err)
		return
	}

	out := dto.CalendarEditorResponse{
		Calendar: mapCalendar(cal),
		Days:     make([]dto.DayResponse, 0, len(days)),
	}
	for _, day := range days {
		out.Days = append(out.Days, mapDay(day))
	}
	httperrors.Write(w, http.StatusOK, out)
}

func (h *CalendarHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.calendars == nil {
		writeInternal(w, "CALENDAR_SERVICE_UNAVAILABLE", "calendar service is unavailable")
		return
	}
	id, ok := pathUUID(r, "calendarID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid calendar id")
		return
	}

	var req dto.UpdateCalendarRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	in := calendarsvc.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
	}
	if req.Theme != nil {
		theme := enums.Theme(*req.Theme)
		in.Theme = &theme
	}

	cal, err := h.calendars.Update(r.Context(), identity.UserID, id, in)
	if err != nil {
		handleCalendarError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, mapCalendar(cal))
}

func (h *CalendarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.calendars == nil {
		writeInternal(w, "CALENDAR_SERVICE_UNAVAILABLE", "calendar service is unavailable")
		return
	}
	id, ok := pathUUID(r, "calendarID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid calendar id")
		return
	}

	if err := h.calendars.Delete(r.Context(), identity.UserID, id); err != nil {
		handleCalendarError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
}

func (h *CalendarHandler) UpsertDay(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.calendars == nil {
		writeInternal(w, "CALENDAR_SERVICE_UNAVAILABLE", "calendar service is unavailable")
		return
	}
	id, ok := pathUUID(r, "calendarID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid calendar id")
		return
	}
	dayNumber, ok := pathInt(r, "day")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid day number")
		return
	}

	var req dto.UpsertDayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	day, err := h.calendars.UpsertDay(r.Context(), identity.UserID, id, dayNumber, calendarsvc.DayInput{
		Title:      req.Title,
		Message:    req.Message,
		PriceCents: req.PriceCents,
		Currency:   req.Currency,
	})
	if err != nil {
		handleCalendarError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, mapDay(day))
}

func (h *CalendarHandler) DayImage(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.calendars == nil {
		writeInternal(w, "CALENDAR_SERVICE_UNAVAILABLE", "calendar service is unavailable")
		return
	}
	id, ok := pathUUID(r, "calendarID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid calendar id")
		return
	}
	dayNumber, ok := pathInt(r, "day")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid day number")
		return
	}

	upload, closeFile, err := readUpload(w, r)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "multipart field \"file\" is required")
		return
	}
	defer closeFile()

	day, err := h.calendars.SetDayImage(r.Context(), identity.UserID, id, dayNumber, upload)
	if err != nil {
		if writeMediaError(w, err) {
			return
		}
		handleCalendarError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, mapDay(day))
}

func (h *CalendarHandler) Background(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.calendars == nil {
		writeInternal(w, "CALENDAR_SERVICE_UNAVAILABLE", "calendar service is unavailable")
		return
	}
	id, ok := pathUUID(r, "calendarID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid calendar id")
		return
	}

	upload, closeFile, err := readUpload(w, r)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "multipart field \"file\" is required")
		return
	}
	defer closeFile()

	cal, err := h.calendars.SetBackground(r.Context(), identity.UserID, id, upload)
	if err != nil {
		if writeMediaError(w, err) {
			return
		}
		handleCalendarError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, mapCalendar(cal))
}

func (h *CalendarHandler) ShareLink(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.calendars == nil || h.share == nil {
		writeInternal(w, "CALENDAR_SERVICE_UNAVAILABLE", "calendar service is unavailable")
		return
	}
	id, ok := pathUUID(r, "calendarID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid calendar id")
		return
	}

	cal, _, err := h.calendars.Editor(r.Context(), identity.UserID, id)
	if err != nil {
		handleCalendarError(w, err)
		return
	}

	link, err := h.share.Link(cal)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to build share link")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ShareLinkResponse{
		URL:       link,
		ShareCode: cal.ShareCode,
		QRCodeURL: "/v1/shared/" + cal.ShareCode + "/qr.png",
	})
}

// QRCode renders the share link of the calendar behind {code} as a PNG.
func (h *CalendarHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	if h.calendars == nil || h.share == nil {
		writeInternal(w, "CALENDAR_SERVICE_UNAVAILABLE", "calendar service is unavailable")
		return
	}

	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "size must be an integer")
			return
		}
		size = n
	}

	cal, err := h.calendars.GetByShareCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		handleCalendarError(w, err)
		return
	}

	png, err := h.share.QRCode(cal, size)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to render qr code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *CalendarHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h.calendars == nil {
		writeInternal(w, "CALENDAR_SERVICE_UNAVAILABLE", "calendar service is unavailable")
		return
	}

	cals, err := h.calendars.SearchPublic(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handleCalendarError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.CalendarListResponse{Items: mapCalendars(cals)})
}

func handleCalendarError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, calendarsvc.ErrValidation), errors.Is(err, rules.ErrInconsistentInput):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid calendar request")
	case errors.Is(err, rules.ErrInvalidPrice):
		writeBadRequest(w, "INVALID_PRICE", "price must not be negative")
	case errors.Is(err, calendarsvc.ErrNotFound):
		writeNotFound(w, "CALENDAR_NOT_FOUND", "calendar not found")
	case errors.Is(err, calendarsvc.ErrDayNotFound):
		writeNotFound(w, "DAY_NOT_FOUND", "calendar day not found")
	case errors.Is(err, calendarsvc.ErrForbidden):
		writeForbidden(w, "FORBIDDEN", "calendar belongs to another user")
	case errors.Is(err, calendarsvc.ErrShareCodeTaken):
		writeConflict(w, "SHARE_CODE_TAKEN", "could not allocate a share code, retry")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
