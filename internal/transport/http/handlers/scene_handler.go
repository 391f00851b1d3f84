package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	authsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/auth"
	scenesvc "github.com/keito-ux/advent-calendar-bolt/internal/services/scenes"
	tipsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/tips"
	"github.com/keito-ux/advent-calendar-bolt/internal/transport/http/dto"
	httperrors "github.com/keito-ux/advent-calendar-bolt/internal/transport/http/errors"
)

// SceneHandler serves the site-wide scene calendar, artist pages and tips.
type SceneHandler struct {
	scenes *scenesvc.Service
	tips   *tipsvc.Service
	rate   RateObserver
}

func NewSceneHandler(scenes *scenesvc.Service, tips *tipsvc.Service) *SceneHandler {
	return &SceneHandler{scenes: scenes, tips: tips}
}

func (h *SceneHandler) AttachRateObserver(observer RateObserver) {
	h.rate = observer
}

func (h *SceneHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.scenes == nil {
		writeInternal(w, "SCENE_SERVICE_UNAVAILABLE", "scene service is unavailable")
		return
	}

	slots, err := h.scenes.List(r.Context())
	if err != nil {
		handleSceneError(w, err)
		return
	}

	items := make([]dto.SceneResponse, 0, len(slots))
	for _, slot := range slots {
		items = append(items, mapScene(slot.Scene, slot.Unlocked))
	}
	httperrors.Write(w, http.StatusOK, dto.SceneListResponse{Items: items})
}

func (h *SceneHandler) Detail(w http.ResponseWriter, r *http.Request) {
	if h.scenes == nil {
		writeInternal(w, "SCENE_SERVICE_UNAVAILABLE", "scene service is unavailable")
		return
	}
	dayNumber, ok := pathInt(r, "day")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid day number")
		return
	}

	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = r.Header.Get("Accept-Language")
	}

	detail, err := h.scenes.Detail(r.Context(), dayNumber, lang)
	if err != nil {
		handleSceneError(w, err)
		return
	}

	out := dto.SceneDetailResponse{
		Scene:        mapScene(detail.Scene, true),
		Translations: make([]dto.TranslationResponse, 0, len(detail.Translations)),
	}
	if detail.Artist != nil {
		artist := mapArtist(*detail.Artist)
		out.Artist = &artist
	}
	if detail.Translation != nil {
		tr := mapTranslation(*detail.Translation)
		out.Translation = &tr
	}
	for _, tr := range detail.Translations {
		out.Translations = append(out.Translations, mapTranslation(tr))
	}
	httperrors.Write(w, http.StatusOK, out)
}

func (h *SceneHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	if h.scenes == nil {
		writeInternal(w, "SCENE_SERVICE_UNAVAILABLE", "scene service is unavailable")
		return
	}
	dayNumber, ok := pathInt(r, "day")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid day number")
		return
	}

	scene, err := h.scenes.Unlock(r.Context(), authsvc.ViewerFromContext(r.Context()), dayNumber)
	if err != nil {
		handleSceneError(w, err)
		return
	}

	httperrors.Write(w, http.StatusOK, mapScene(scene, true))
}

func (h *SceneHandler) Artist(w http.ResponseWriter, r *http.Request) {
	if h.scenes == nil {
		writeInternal(w, "SCENE_SERVICE_UNAVAILABLE", "scene service is unavailable")
		return
	}
	id, ok := pathUUID(r, "artistID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid artist id")
		return
	}

	profile, err := h.scenes.Artist(r.Context(), id)
	if err != nil {
		handleSceneError(w, err)
		return
	}

	out := dto.ArtistProfileResponse{
		Artist: mapArtist(profile.Artist),
		Scenes: make([]dto.SceneResponse, 0, len(profile.Scenes)),
		Tips:   make([]dto.TipResponse, 0, len(profile.Tips)),
		Totals: make([]dto.PriceDTO, 0, len(profile.Totals)),
	}
	for _, slot := range profile.Scenes {
		out.Scenes = append(out.Scenes, mapScene(slot.Scene, slot.Unlocked))
	}
	for _, tip := range profile.Tips {
		out.Tips = append(out.Tips, mapTip(tip))
	}
	for _, total := range profile.Totals {
		out.Totals = append(out.Totals, mapPrice(total))
	}
	httperrors.Write(w, http.StatusOK, out)
}

// Tip records a tip for an artist. Signing in is optional.
func (h *SceneHandler) Tip(w http.ResponseWriter, r *http.Request) {
	if h.tips == nil {
		writeInternal(w, "TIP_SERVICE_UNAVAILABLE", "tip service is unavailable")
		return
	}
	artistID, ok := pathUUID(r, "artistID")
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid artist id")
		return
	}

	var req dto.TipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	viewer := authsvc.ViewerFromContext(r.Context())
	clientKey := "ip:" + clientIPFromRequest(r)
	if viewer != nil {
		clientKey = "user:" + viewer.String()
	}

	tip, err := h.tips.Send(r.Context(), tipsvc.SendInput{
		ArtistID:    artistID,
		SceneID:     req.SceneID,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		TipperName:  req.TipperName,
		Message:     req.Message,
		ClientKey:   clientKey,
		UserID:      viewer,
	})
	if err != nil {
		if writeTooFast(w, err, h.rate) {
			return
		}
		handleTipError(w, err)
		return
	}

	httperrors.Write(w, http.StatusCreated, mapTip(tip))
}

func (h *SceneHandler) TipPresets(w http.ResponseWriter, _ *http.Request) {
	if h.tips == nil {
		writeInternal(w, "TIP_SERVICE_UNAVAILABLE", "tip service is unavailable")
		return
	}
	httperrors.Write(w, http.StatusOK, dto.TipPresetsResponse{AmountsCents: h.tips.Presets()})
}

func handleSceneError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scenesvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid scene request")
	case errors.Is(err, scenesvc.ErrNotFound):
		writeNotFound(w, "SCENE_NOT_FOUND", "scene not found")
	case errors.Is(err, scenesvc.ErrArtistNotFound):
		writeNotFound(w, "ARTIST_NOT_FOUND", "artist not found")
	case errors.Is(err, scenesvc.ErrLocked):
		writeForbidden(w, "SCENE_LOCKED", "this scene has not been unlocked yet")
	case errors.Is(err, scenesvc.ErrDayTaken):
		writeConflict(w, "SCENE_EXISTS", "a scene already exists for this day")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

func handleTipError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tipsvc.ErrInvalidAmount):
		writeBadRequest(w, "INVALID_AMOUNT", "tip amount is out of range")
	case errors.Is(err, tipsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "name or message is too long")
	case errors.Is(err, tipsvc.ErrArtistNotFound):
		writeNotFound(w, "ARTIST_NOT_FOUND", "artist not found")
	default:
		writeInternal(w, "INTERNAL_ERROR", "internal server error")
	}
}

// parseOptionalUUID returns nil for an empty string.
func parseOptionalUUID(raw string) (*uuid.UUID, bool) {
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, false
	}
	return &id, true
}
