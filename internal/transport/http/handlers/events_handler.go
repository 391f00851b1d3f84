package handlers

import (
	"errors"
	"net/http"

	analyticsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/analytics"
	authsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/auth"
	"github.com/keito-ux/advent-calendar-bolt/internal/transport/http/dto"
	httperrors "github.com/keito-ux/advent-calendar-bolt/internal/transport/http/errors"
)

const maxEventsRequestSize = 256 << 10

// EventsHandler accepts analytics from anonymous and signed-in visitors.
type EventsHandler struct {
	service *analyticsvc.Service
}

func NewEventsHandler(service *analyticsvc.Service) *EventsHandler {
	return &EventsHandler{service: service}
}

func (h *EventsHandler) Batch(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "EVENTS_SERVICE_UNAVAILABLE", "events service is unavailable")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxEventsRequestSize)
	var req dto.EventsBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	batch := make([]analyticsvc.BatchEvent, len(req.Events))
	for i, event := range req.Events {
		batch[i] = analyticsvc.BatchEvent{Name: event.Name, TS: event.TS, Props: event.Props}
	}

	err := h.service.IngestBatch(r.Context(), authsvc.ViewerFromContext(r.Context()), batch)
	switch {
	case err == nil:
		httperrors.Write(w, http.StatusAccepted, dto.EventsBatchResponse{Accepted: len(batch)})
	case errors.Is(err, analyticsvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "events must be a non-empty batch of named events")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to ingest events")
	}
}
