package handlers

import (
	"errors"
	"net/http"
	"strconv"

	authsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/auth"
	profilesvc "github.com/keito-ux/advent-calendar-bolt/internal/services/profiles"
	purchasesvc "github.com/keito-ux/advent-calendar-bolt/internal/services/purchases"
	"github.com/keito-ux/advent-calendar-bolt/internal/transport/http/dto"
	httperrors "github.com/keito-ux/advent-calendar-bolt/internal/transport/http/errors"
)

type MeHandler struct {
	profiles  *profilesvc.Service
	purchases *purchasesvc.Service
}

func NewMeHandler(profiles *profilesvc.Service, purchases *purchasesvc.Service) *MeHandler {
	return &MeHandler{profiles: profiles, purchases: purchases}
}

func (h *MeHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	profile, err := h.profiles.Get(r.Context(), identity.UserID)
	if err != nil {
		handleProfileError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MeResponse{
		Profile: mapProfile(profile, true),
		Role:    string(identity.Role),
	})
}

func (h *MeHandler) Update(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	var req dto.UpdateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	profile, err := h.profiles.UpdateUsername(r.Context(), identity.UserID, req.Username)
	if err != nil {
		handleProfileError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MeResponse{
		Profile: mapProfile(profile, true),
		Role:    string(identity.Role),
	})
}

func (h *MeHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	upload, closeFile, err := readUpload(w, r)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "multipart field \"file\" is required")
		return
	}
	defer closeFile()

	profile, err := h.profiles.SetAvatar(r.Context(), identity.UserID, upload)
	if err != nil {
		if writeMediaError(w, err) {
			return
		}
		handleProfileError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.MeResponse{
		Profile: mapProfile(profile, true),
		Role:    string(identity.Role),
	})
}

func (h *MeHandler) Purchases(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.purchases == nil {
		writeInternal(w, "PURCHASE_SERVICE_UNAVAILABLE", "purchase service is unavailable")
		return
	}

	records, err := h.purchases.ListCompleted(r.Context(), identity.UserID)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list purchases")
		return
	}

	items := make([]dto.PurchaseResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, mapPurchase(rec))
	}
	httperrors.Write(w, http.StatusOK, dto.PurchaseListResponse{Items: items})
}

type UsersHandler struct {
	profiles *profilesvc.Service
}

func NewUsersHandler(profiles *profilesvc.Service) *UsersHandler {
	return &UsersHandler{profiles: profiles}
}

// Search finds creators with at least one public calendar.
func (h *UsersHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		limit = n
	}

	creators, err := h.profiles.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		handleProfileError(w, err)
		return
	}

	items := make([]dto.CreatorResponse, 0, len(creators))
	for _, c := range creators {
		items = append(items, dto.CreatorResponse{
			Profile:   mapProfile(c.Profile, false),
			Calendars: mapCalendars(c.Calendars),
		})
	}
	httperrors.Write(w, http.StatusOK, dto.CreatorSearchResponse{Items: items})
}

func handleProfileError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, profilesvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "username must be 3-32 letters, digits, dots, dashes or underscores")
	case errors.Is(err, profilesvc.ErrNotFound):
		writeNotFound(w, "PROFILE_NOT_FOUND", "profile not found")
	case errors.Is(err, profilesvc.ErrUsernameTaken):
		writeConflict(w, "USERNAME_TAKEN", "username is already taken")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}
