package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/service"
	"github.com/melodex/server/pkg/rest"
)

const (
	roomIdParam  = "room-id"
	trackIdParam = "track-id"
)

// decode reads and validates a request body, writing the error response itself.
func (c controller) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := rest.ReadJSON(r, dst); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read body", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"message": err.Error()})
		return false
	}

	if validationErrors, ok := c.validate.Validate(dst); !ok {
		c.logger.InfoContext(r.Context(), "invalid body", "errors", validationErrors)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"message": "invalid request", "errors": validationErrors})
		return false
	}

	return true
}

type createRoomRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if !c.decode(w, r, &req) {
		return
	}

	resp, err := c.roomService.CreateRoom(r.Context(), &service.CreateRoomParams{
		Auth: c.getAuthFromCtx(r.Context()),
		Name: req.Name,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"room": resp.Room})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	state, err := c.roomService.GetRoom(r.Context(), chi.URLParam(r, roomIdParam))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, state)
}

type joinRoomRequest struct {
	Name      string `json:"name" validate:"max=32"`
	AvatarUrl string `json:"avatarUrl" validate:"omitempty,url"`
}

func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRoomRequest
	if !c.decode(w, r, &req) {
		return
	}

	resp, err := c.roomService.JoinRoom(r.Context(), &service.JoinRoomParams{
		Auth:      c.getAuthFromCtx(r.Context()),
		RoomId:    chi.URLParam(r, roomIdParam),
		Name:      req.Name,
		AvatarUrl: req.AvatarUrl,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"participant": resp.Participant})
}

func (c controller) listParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := c.roomService.ListParticipants(r.Context(), chi.URLParam(r, roomIdParam))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"participants": participants})
}

type addTrackRequest struct {
	Url string `json:"url" validate:"required,max=2048"`
}

func (c controller) addTrack(w http.ResponseWriter, r *http.Request) {
	var req addTrackRequest
	if !c.decode(w, r, &req) {
		return
	}

	resp, err := c.roomService.AddTrack(r.Context(), &service.AddTrackParams{
		Auth:   c.getAuthFromCtx(r.Context()),
		RoomId: chi.URLParam(r, roomIdParam),
		Url:    req.Url,
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"stream": resp.Track, "message": "Music added successfully"})
}

func (c controller) listTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := c.roomService.ListTracks(r.Context(), chi.URLParam(r, roomIdParam))
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"streams": tracks})
}

type guestVoteRequest struct {
	ParticipantData *struct {
		Id   string `json:"id" validate:"required,uuid4"`
		Name string `json:"name" validate:"required"`
	} `json:"participantData"`
}

func (c controller) toggleVote(w http.ResponseWriter, r *http.Request) {
	identity := c.getAuthFromCtx(r.Context()).Identity
	if !identity.IsUser() {
		var req guestVoteRequest
		if !c.decode(w, r, &req) {
			return
		}
		if req.ParticipantData != nil {
			identity = domain.GuestIdentity(req.ParticipantData.Id)
		}
	}

	resp, err := c.roomService.ToggleVote(r.Context(), &service.ToggleVoteParams{
		Identity: identity,
		RoomId:   chi.URLParam(r, roomIdParam),
		TrackId:  chi.URLParam(r, trackIdParam),
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	message := "Upvote removed"
	if resp.Added {
		message = "Upvote added"
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"upvotes": resp.Upvotes, "message": message})
}

func (c controller) markPlayed(w http.ResponseWriter, r *http.Request) {
	song, err := c.roomService.MarkPlayed(r.Context(), &service.MarkPlayedParams{
		Auth:    c.getAuthFromCtx(r.Context()),
		RoomId:  chi.URLParam(r, roomIdParam),
		TrackId: chi.URLParam(r, trackIdParam),
	})
	if err != nil {
		c.writeError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"song": song})
}
