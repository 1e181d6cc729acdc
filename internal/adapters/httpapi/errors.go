package httpapi

import (
	"errors"
	"net/http"

	"shipyard/internal/archive"
	"shipyard/internal/core"
	"shipyard/pkg/domain"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domain.ErrUnknownTemplate, http.StatusNotFound, "unknown_template"},
	{domain.ErrNotPlaced, http.StatusNotFound, "not_placed"},
	{domain.ErrInstanceNotFound, http.StatusNotFound, "instance_not_found"},
	{archive.ErrNotFound, http.StatusNotFound, "archive_not_found"},
	{domain.ErrInventoryExhausted, http.StatusConflict, "inventory_exhausted"},
	{domain.ErrCapacityExceeded, http.StatusConflict, "capacity_exceeded"},
	{domain.ErrDecisionRequired, http.StatusConflict, "confirmation_required"},
	{domain.ErrReplaceCancelled, http.StatusConflict, "replace_cancelled"},
	{domain.ErrAlreadyTuned, http.StatusConflict, "already_tuned"},
	{domain.ErrNotTuned, http.StatusConflict, "not_tuned"},
	{domain.ErrInsufficientSurge, http.StatusConflict, "insufficient_surge"},
	{archive.ErrExists, http.StatusConflict, "archive_exists"},
	{domain.ErrUnsupportedVersion, http.StatusBadRequest, "unsupported_version"},
	{domain.ErrInvalidGrid, http.StatusBadRequest, "invalid_grid"},
	{domain.ErrMalformedDocument, http.StatusBadRequest, "malformed_document"},
	{domain.ErrCellOutOfRange, http.StatusBadRequest, "cell_out_of_range"},
	{domain.ErrInvalidRoomCap, http.StatusBadRequest, "invalid_room_cap"},
	{archive.ErrInvalidName, http.StatusBadRequest, "invalid_archive_name"},
}

// statusFor maps a service error to an HTTP status and a stable code.
func statusFor(err error) (int, string) {
	var violation core.RuleViolationError
	if errors.As(err, &violation) {
		return http.StatusUnprocessableEntity, "rule_violation"
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error("request failed", "error", err)
		writeError(w, status, code, "internal error")
		return
	}
	body := map[string]any{"error": err.Error(), "code": code}
	var violation core.RuleViolationError
	if errors.As(err, &violation) {
		body["violations"] = violation.Result.Violations
	}
	writeJSON(w, status, body)
}
