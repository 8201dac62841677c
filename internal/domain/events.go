package domain

// Real-time event names. Inbound names are emitted by clients, the rest by the server.
const (
	EventJoinRoom           = "joinRoom"
	EventParticipantJoined  = "participantJoined"
	EventNewSong            = "newSong"
	EventSongAdded          = "songAdded"
	EventVoteUpdate         = "voteUpdate"
	EventVoteUpdated        = "voteUpdated"
	EventCurrentSongChanged = "currentSongChanged"
	EventPlaybackUpdate     = "playbackUpdate"
	EventMuteUpdate         = "muteUpdate"
	EventError              = "error"
)

type ParticipantJoinedPayload struct {
	RoomId    string `json:"roomId"`
	Id        string `json:"id"`
	Name      string `json:"name"`
	AvatarUrl string `json:"avatarUrl"`
}

func (p ParticipantJoinedPayload) GetRoomId() string { return p.RoomId }

type Song struct {
	Stream Track `json:"stream"`
}

// SongPayload is carried by newSong and songAdded.
type SongPayload struct {
	RoomId string `json:"roomId"`
	Song   Song   `json:"song"`
}

// VotePayload is carried by voteUpdate and voteUpdated.
type VotePayload struct {
	RoomId   string `json:"roomId"`
	StreamId string `json:"streamId"`
	Upvotes  []Vote `json:"upvotes"`
}

// CurrentSongPayload carries the new current track, nil once the queue ran out.
type CurrentSongPayload struct {
	RoomId      string `json:"roomId"`
	CurrentSong *Track `json:"currentSong"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
