package service

import (
	"time"

	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/playback"
)

type Room struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	CreatorId string    `json:"creatorId"`
	CreatedAt time.Time `json:"createdAt"`
	InviteUrl string    `json:"inviteUrl"`
	WsUrl     string    `json:"wsUrl"`
}

type Player struct {
	CurrentTrackId string         `json:"currentTrackId"`
	State          playback.State `json:"state"`
	CurrentTime    float64        `json:"currentTime"`
	IsMuted        bool           `json:"isMuted"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	// HeartbeatInterval is how often the creator's client re-sends its position.
	HeartbeatInterval float64 `json:"heartbeatInterval"`
}

type RoomState struct {
	Room         Room                 `json:"room"`
	Participants []domain.Participant `json:"participants"`
	CurrentTrack *domain.Track        `json:"currentTrack"`
	Queue        []domain.Track       `json:"queue"`
	Player       Player               `json:"player"`
}

func (s service) mapRoom(room domain.Room) Room {
	return Room{
		Id:        room.Id,
		Name:      room.Name,
		CreatorId: room.CreatorId,
		CreatedAt: room.CreatedAt,
		InviteUrl: s.inviteUrl(room.Id),
		WsUrl:     s.wsUrl,
	}
}
