package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/rules"
	authsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/auth"
	calendarsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/calendars"
	purchasesvc "github.com/keito-ux/advent-calendar-bolt/internal/services/purchases"
	"github.com/keito-ux/advent-calendar-bolt/internal/transport/http/dto"
	httperrors "github.com/keito-ux/advent-calendar-bolt/internal/transport/http/errors"
)

// SharedHandler serves the public calendar page reached through a share code.
type SharedHandler struct {
	calendars *calendarsvc.Service
	purchases *purchasesvc.Service
	rate      RateObserver
}

func NewSharedHandler(calendars *calendarsvc.Service, purchases *purchasesvc.Service) *SharedHandler {
	return &SharedHandler{calendars: calendars, purchases: purchases}
}

func (h *SharedHandler) AttachRateObserver(observer RateObserver) {
	h.rate = observer
}

// View works for anonymous callers; a bearer token only adds ownership and
// purchases to the evaluation.
func (h *SharedHandler) View(w http.ResponseWriter, r *http.Request) {
	if h.calendars == nil {
		writeInternal(w, "CALENDAR_SERVICE_UNAVAILABLE", "calendar service is unavailable")
		return
	}

	view, err := h.calendars.View(r.Context(), chi.URLParam(r, "code"), authsvc.ViewerFromContext(r.Context()))
	if err != nil {
		handleCalendarError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "private, no-store")
	httperrors.Write(w, http.StatusOK, mapSharedView(view))
}

func (h *SharedHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "sign in to purchase")
		return
	}
	if h.purchases == nil {
		writeInternal(w, "PURCHASE_SERVICE_UNAVAILABLE", "purchase service is unavailable")
		return
	}

	var req dto.PurchaseRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	rec, err := h.purchases.Purchase(r.Context(), identity.UserID, chi.URLParam(r, "code"), req.DayNumber)
	if err != nil {
		if writeTooFast(w, err, h.rate) {
			return
		}
		handlePurchaseError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, mapPurchase(rec))
}

func handlePurchaseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, purchasesvc.ErrUnauthorized):
		writeUnauthorized(w, "UNAUTHORIZED", "sign in to purchase")
	case errors.Is(err, purchasesvc.ErrSelfPurchase):
		writeConflict(w, "OWN_CALENDAR", "you already own this calendar")
	case errors.Is(err, rules.ErrInvalidPrice):
		writeConflict(w, "NOTHING_TO_BUY", "this item is free")
	case errors.Is(err, purchasesvc.ErrValidation), errors.Is(err, rules.ErrInconsistentInput):
		writeBadRequest(w, "VALIDATION_ERROR", "day must be between 1 and 25")
	case errors.Is(err, purchasesvc.ErrDayLocked):
		writeConflict(w, "DAY_LOCKED", "this day has not opened yet")
	case errors.Is(err, purchasesvc.ErrDayNotFound):
		writeNotFound(w, "DAY_NOT_FOUND", "calendar day not found")
	case errors.Is(err, purchasesvc.ErrPersistence):
		writeInternal(w, "PURCHASE_NOT_RECORDED", "purchase could not be recorded, nothing was charged")
	default:
		handleCalendarError(w, err)
	}
}
