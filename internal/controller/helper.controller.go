package controller

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/melodex/server/internal/hub"
	"github.com/melodex/server/internal/playback"
	"github.com/melodex/server/internal/repository/track"
	"github.com/melodex/server/internal/service"
	"github.com/melodex/server/pkg/rest"
	"github.com/melodex/server/pkg/wsrouter"
)

func (c controller) generateTimeBasedId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// errorStatus maps an error to the HTTP status and the message shown to the user.
func errorStatus(err error) (int, string) {
	var validationErrors validation.Errors
	switch {
	case errors.As(err, &validationErrors):
		return http.StatusBadRequest, validationErrors.Error()
	case errors.Is(err, service.ErrUnsupportedSource),
		errors.Is(err, playback.ErrUnknownAction),
		errors.Is(err, wsrouter.ErrMalformedMessage),
		errors.Is(err, wsrouter.ErrUnknownMessageType),
		errors.Is(err, wsrouter.ErrInvalidPayload),
		errors.Is(err, errMissingRoomId):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrIdentityRequired),
		errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden, "only the room creator can do this"
	case errors.Is(err, service.ErrNotRoomMember),
		errors.Is(err, hub.ErrNotMember):
		return http.StatusForbidden, "not a member of the room"
	case errors.Is(err, track.ErrRoomNotFound):
		return http.StatusNotFound, "room not found"
	case errors.Is(err, track.ErrTrackNotFound):
		return http.StatusNotFound, "track not found"
	case errors.Is(err, track.ErrParticipantNotFound):
		return http.StatusNotFound, "participant not found"
	case errors.Is(err, service.ErrPlaylistLimitReached):
		return http.StatusConflict, "playlist limit reached"
	case errors.Is(err, service.ErrMetadataUnavailable):
		return http.StatusBadGateway, "could not fetch track details"
	default:
		return http.StatusInternalServerError, "an error occurred"
	}
}

func (c controller) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		c.logger.ErrorContext(r.Context(), "request failed", "error", err)
	} else {
		c.logger.InfoContext(r.Context(), "request rejected", "status", status, "error", err)
	}

	var validationErrors validation.Errors
	if errors.As(err, &validationErrors) {
		rest.WriteJSON(w, status, rest.Envelope{"message": "invalid request", "errors": validationErrors})
		return
	}

	rest.WriteJSON(w, status, rest.Envelope{"message": message})
}
