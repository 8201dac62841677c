package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/hub"
	"github.com/melodex/server/internal/playback"
	"github.com/melodex/server/internal/service"
	"github.com/melodex/server/pkg/validator"
	"github.com/melodex/server/pkg/wsrouter"
)

type iRoomService interface {
	Authenticate(*service.AuthenticateParams) (service.AuthenticateResponse, error)
	// room
	CreateRoom(context.Context, *service.CreateRoomParams) (service.CreateRoomResponse, error)
	GetRoom(ctx context.Context, roomId string) (service.RoomState, error)
	// participant
	JoinRoom(context.Context, *service.JoinRoomParams) (service.JoinRoomResponse, error)
	ListParticipants(ctx context.Context, roomId string) ([]domain.Participant, error)
	AuthorizeJoin(context.Context, *service.AuthorizeJoinParams) error
	AnnounceParticipant(context.Context, *service.AnnounceParticipantParams) (domain.Participant, error)
	// track
	AddTrack(context.Context, *service.AddTrackParams) (service.AddTrackResponse, error)
	ListTracks(ctx context.Context, roomId string) ([]domain.Track, error)
	GetTrack(context.Context, *service.GetTrackParams) (domain.Track, error)
	MarkPlayed(context.Context, *service.MarkPlayedParams) (domain.Track, error)
	// vote
	ToggleVote(context.Context, *service.ToggleVoteParams) (service.ToggleVoteResponse, error)
	// player
	UpdatePlayback(context.Context, *service.UpdatePlaybackParams) (playback.Update, error)
	UpdateMute(context.Context, *service.UpdateMuteParams) (playback.MuteUpdate, error)
	ChangeCurrentTrack(context.Context, *service.ChangeCurrentTrackParams) (service.ChangeCurrentTrackResponse, error)
	GetPlaybackSnapshot(ctx context.Context, roomId string) (service.PlaybackSnapshot, error)
}

type iHub interface {
	Register(context.Context, *hub.Session) error
	Unregister(ctx context.Context, sessionId string) error
	Join(ctx context.Context, sessionId, roomId string) error
	IsMember(ctx context.Context, sessionId, roomId string) (bool, error)
	SendTo(ctx context.Context, sessionId string, data []byte) error
	Publish(context.Context, *hub.Event) error
}

type controller struct {
	roomService iRoomService
	hub         iHub
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	logger      *slog.Logger
	wsRouter    *wsrouter.WSRouter
}

func NewController(roomService iRoomService, hub iHub, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		hub:         hub,
		validate:    validator.NewValidator(),
		logger:      logger,
	}
	c.wsRouter = c.getWSRouter()

	return c
}
