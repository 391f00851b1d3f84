package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/keito-ux/advent-calendar-bolt/internal/services/auth"
	"github.com/keito-ux/advent-calendar-bolt/internal/transport/http/dto"
	httperrors "github.com/keito-ux/advent-calendar-bolt/internal/transport/http/errors"
)

// TOTPHandler enrolls admins into the one-time code step-up.
type TOTPHandler struct {
	factor *authsvc.SecondFactor
}

func NewTOTPHandler(factor *authsvc.SecondFactor) *TOTPHandler {
	return &TOTPHandler{factor: factor}
}

func (h *TOTPHandler) Setup(w http.ResponseWriter, r *http.Request) {
	if h.factor == nil {
		writeInternal(w, "TOTP_UNAVAILABLE", "one-time codes are unavailable")
		return
	}
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "missing identity")
		return
	}

	setup, err := h.factor.Setup(r.Context(), identity.UserID, "")
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to start one-time code setup")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.TOTPSetupResponse{
		Secret:        setup.Secret,
		OTPAuthURL:    setup.OTPAuthURL,
		QRCodeDataURL: setup.QRCodeDataURL,
		ExpiresAt:     setup.ExpiresAt,
	})
}

func (h *TOTPHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if h.factor == nil {
		writeInternal(w, "TOTP_UNAVAILABLE", "one-time codes are unavailable")
		return
	}
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "missing identity")
		return
	}

	var req dto.TOTPConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	err := h.factor.Confirm(r.Context(), identity.UserID, req.Code)
	switch {
	case err == nil:
		httperrors.Write(w, http.StatusOK, dto.OKResponse{OK: true})
	case errors.Is(err, authsvc.ErrTOTPSetupNotFound):
		writeNotFound(w, "TOTP_SETUP_NOT_FOUND", "start one-time code setup first")
	case errors.Is(err, authsvc.ErrInvalidTOTP):
		writeBadRequest(w, "INVALID_TOTP", "invalid one-time code")
	default:
		writeInternal(w, "INTERNAL_ERROR", "failed to confirm one-time code")
	}
}
