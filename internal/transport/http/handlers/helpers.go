package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mediasvc "github.com/keito-ux/advent-calendar-bolt/internal/services/media"
	"github.com/keito-ux/advent-calendar-bolt/internal/services/rate"
	httperrors "github.com/keito-ux/advent-calendar-bolt/internal/transport/http/errors"
)

// uploads are capped a little above the media limit so multipart overhead
// does not reject a file the media service would accept
const maxUploadRequestSize = mediasvc.MaxUploadBytes + 1<<20

// RateObserver counts requests turned away by a rate limiter.
type RateObserver interface {
	ObserveRateLimited(scope string)
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeForbidden(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusForbidden, httperrors.APIError{Code: code, Message: message})
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusNotFound, httperrors.APIError{Code: code, Message: message})
}

func writeConflict(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusConflict, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

// writeTooFast answers 429 when err carries a rate.TooFastError and reports
// whether it did.
func writeTooFast(w http.ResponseWriter, err error, observer RateObserver) bool {
	tf, ok := rate.IsTooFast(err)
	if !ok {
		return false
	}
	if observer != nil {
		observer.ObserveRateLimited(tf.Scope)
	}
	w.Header().Set("Retry-After", strconv.FormatInt(tf.RetryAfter(), 10))
	httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
		Code:          "TOO_FAST",
		Message:       "too many requests, slow down",
		RetryAfterSec: tf.RetryAfter(),
	})
	return true
}

// writeMediaError maps upload failures and reports whether err was one.
func writeMediaError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, mediasvc.ErrTooLarge):
		httperrors.Write(w, http.StatusRequestEntityTooLarge, httperrors.APIError{
			Code:    "FILE_TOO_LARGE",
			Message: "file exceeds the upload limit",
		})
	case errors.Is(err, mediasvc.ErrUnsupportedType):
		httperrors.Write(w, http.StatusUnsupportedMediaType, httperrors.APIError{
			Code:    "UNSUPPORTED_MEDIA_TYPE",
			Message: "only images are accepted",
		})
	case errors.Is(err, mediasvc.ErrValidation):
		writeBadRequest(w, "VALIDATION_ERROR", "invalid upload")
	default:
		return false
	}
	return true
}

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, name)))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func pathInt(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, name)))
	if err != nil {
		return 0, false
	}
	return n, true
}

// readUpload parses a multipart request and returns the "file" part. The
// caller closes the returned closer.
func readUpload(w http.ResponseWriter, r *http.Request) (mediasvc.Upload, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadRequestSize)
	if err := r.ParseMultipartForm(maxUploadRequestSize); err != nil {
		return mediasvc.Upload{}, nil, err
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return mediasvc.Upload{}, nil, err
	}
	if header == nil || header.Size <= 0 {
		_ = file.Close()
		return mediasvc.Upload{}, nil, errors.New("file is empty")
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return mediasvc.Upload{
		FileName:    header.Filename,
		ContentType: contentType,
		Body:        file,
		Size:        header.Size,
	}, func() { _ = file.Close() }, nil
}

func clientIPFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if value := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); value != "" {
		parts := strings.Split(value, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if value := strings.TrimSpace(r.Header.Get("X-Real-IP")); value != "" {
		return value
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
