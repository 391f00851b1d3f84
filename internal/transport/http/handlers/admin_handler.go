package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	authsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/auth"
	calendarsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/calendars"
	scenesvc "github.com/keito-ux/advent-calendar-bolt/internal/services/scenes"
	"github.com/keito-ux/advent-calendar-bolt/internal/transport/http/dto"
	httperrors "github.com/keito-ux/advent-calendar-bolt/internal/transport/http/errors"
)

// AdminHandler is mounted behind the admin role check.
type AdminHandler struct {
	calendars *calendarsvc.Service
	scenes    *scenesvc.Service
}

func NewAdminHandler(calendars *calendarsvc.Service, scenes *scenesvc.Service) *AdminHandler {
	return &AdminHandler{calendars: calendars, scenes: scenes}
}

func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	if h.calendars == nil {
		writeInternal(w, "CALENDAR_SERVICE_UNAVAILABLE", "calendar service is unavailable")
		return
	}

	recent := 0
	if raw := r.URL.Query().Get("recent"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "VALIDATION_ERROR", "recent must be an integer")
			return
		}
		recent = n
	}

	overview, err := h.calendars.Overview(r.Context(), recent)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load overview")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.AdminOverviewResponse{
		Stats: dto.AdminStatsResponse{
			Users:           overview.Stats.Users,
			Creators:        overview.Stats.Creators,
			Calendars:       overview.Stats.Calendars,
			PublicCalendars: overview.Stats.PublicCalendars,
			Purchases:       overview.Stats.Purchases,
			Tips:            overview.Stats.Tips,
		},
		Recent: mapCalendars(overview.Recent),
	})
}

// CreateScene takes a multipart form with day_number, title, optional
// artist_id and the image in "file".
func (h *AdminHandler) CreateScene(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.scenes == nil {
		writeInternal(w, "SCENE_SERVICE_UNAVAILABLE", "scene service is unavailable")
		return
	}

	upload, closeFile, err := readUpload(w, r)
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "multipart field \"file\" is required")
		return
	}
	defer closeFile()

	dayNumber, err := strconv.Atoi(r.FormValue("day_number"))
	if err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "day_number must be an integer")
		return
	}
	artistID, ok := parseOptionalUUID(r.FormValue("artist_id"))
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid artist_id")
		return
	}

	scene, err := h.scenes.Create(r.Context(), identity.UserID, scenesvc.CreateInput{
		DayNumber: dayNumber,
		Title:     r.FormValue("title"),
		ArtistID:  artistID,
		Image:     upload,
	})
	if err != nil {
		if writeMediaError(w, err) {
			return
		}
		handleSceneError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, mapScene(scene, scene.IsUnlocked))
}

func (h *AdminHandler) CreateArtist(w http.ResponseWriter, r *http.Request) {
	if h.scenes == nil {
		writeInternal(w, "SCENE_SERVICE_UNAVAILABLE", "scene service is unavailable")
		return
	}

	var req dto.CreateArtistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	artist, err := h.scenes.CreateArtist(r.Context(), scenesvc.ArtistInput{
		Name:            req.Name,
		Bio:             req.Bio,
		ProfileImageURL: req.ProfileImageURL,
		Country:         req.Country,
	})
	if err != nil {
		handleSceneError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, mapArtist(artist))
}

func (h *AdminHandler) SetTranslation(w http.ResponseWriter, r *http.Request) {
	if h.scenes == nil {
		writeInternal(w, "SCENE_SERVICE_UNAVAILABLE", "scene service is unavailable")
		return
	}
	dayNumber, ok := pathInt(r, "day")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid day number")
		return
	}

	var req dto.TranslationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	tr, err := h.scenes.SetTranslation(r.Context(), dayNumber, enums.Language(chi.URLParam(r, "lang")), req.TextContent, req.AudioURL)
	if err != nil {
		if errors.Is(err, scenesvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "text is required and language must be en, ja or uk")
			return
		}
		handleSceneError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, mapTranslation(tr))
}
