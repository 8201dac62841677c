package service

import (
	"context"
	"errors"
	"time"

	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/repository/player"
	"github.com/melodex/server/internal/repository/track"
	"github.com/melodex/server/pkg/mediadata"
)

var (
	ErrPermissionDenied     = errors.New("permission denied")
	ErrIdentityRequired     = errors.New("identity required")
	ErrNotRoomMember        = errors.New("not a member of the room")
	ErrUnsupportedSource    = errors.New("unsupported track source")
	ErrPlaylistLimitReached = errors.New("playlist limit reached")
	ErrMetadataUnavailable  = errors.New("track metadata unavailable")
)

type iTrackRepo interface {
	// room
	CreateRoom(context.Context, *track.CreateRoomParams) error
	GetRoom(ctx context.Context, roomId string) (domain.Room, error)
	// participant
	CreateParticipant(context.Context, *track.CreateParticipantParams) (domain.Participant, error)
	UpsertUserParticipant(context.Context, *track.UpsertUserParticipantParams) (domain.Participant, error)
	GetParticipant(ctx context.Context, roomId, participantId string) (domain.Participant, error)
	ListParticipants(ctx context.Context, roomId string) ([]domain.Participant, error)
	// track
	CreateTrack(context.Context, *track.CreateTrackParams) (domain.Track, error)
	GetTrack(ctx context.Context, roomId, trackId string) (domain.Track, error)
	ListTracks(ctx context.Context, roomId string) ([]domain.Track, error)
	CountPendingTracks(ctx context.Context, roomId string) (int, error)
	MarkPlayed(ctx context.Context, roomId, trackId string) (domain.Track, error)
	// vote
	ToggleVote(context.Context, *track.ToggleVoteParams) (track.ToggleVoteResult, error)
}

type iPlayerRepo interface {
	GetPlayer(ctx context.Context, roomId string) (player.Player, error)
	UpdatePlayerState(context.Context, *player.UpdatePlayerStateParams) error
	UpdatePlayerMuted(context.Context, *player.UpdatePlayerMutedParams) error
	SetCurrentTrack(context.Context, *player.SetCurrentTrackParams) error
}

type iMetadataClient interface {
	Get(ctx context.Context, rawUrl string) (*mediadata.Metadata, error)
}

type iGenerator interface {
	GenerateRoomId() (string, error)
}

type service struct {
	trackRepo         iTrackRepo
	playerRepo        iPlayerRepo
	metadata          iMetadataClient
	generator         iGenerator
	secret            []byte
	baseUrl           string
	wsUrl             string
	playlistLimit     int
	heartbeatInterval time.Duration
	now               func() time.Time
}

type Config struct {
	Secret            string
	BaseUrl           string
	WsUrl             string
	PlaylistLimit     int
	HeartbeatInterval time.Duration
}

func New(trackRepo iTrackRepo, playerRepo iPlayerRepo, metadata iMetadataClient, cfg *Config) *service {
	return &service{
		trackRepo:         trackRepo,
		playerRepo:        playerRepo,
		metadata:          metadata,
		generator:         nanoidGenerator{},
		secret:            []byte(cfg.Secret),
		baseUrl:           cfg.BaseUrl,
		wsUrl:             cfg.WsUrl,
		playlistLimit:     cfg.PlaylistLimit,
		heartbeatInterval: cfg.HeartbeatInterval,
		now:               time.Now,
	}
}
