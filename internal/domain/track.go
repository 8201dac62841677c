package domain

import (
	"encoding/json"
	"time"
)

type Track struct {
	Id          string    `json:"id"`
	RoomId      string    `json:"roomId"`
	Url         string    `json:"url"`
	ExtractedId string    `json:"extractedId"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Thumbnail   string    `json:"thumbnail"`
	Duration    int       `json:"duration"`
	UserId      *string   `json:"userId"`
	Played      bool      `json:"played"`
	CreatedAt   time.Time `json:"createdAt"`
	// Seq orders tracks created within the same clock tick.
	Seq     int64  `json:"-"`
	Upvotes []Vote `json:"upvotes"`
}

func (t Track) VoteCount() int {
	return len(t.Upvotes)
}

// HasVoted reports whether identity currently holds a vote on the track.
func (t Track) HasVoted(identity Identity) bool {
	for _, v := range t.Upvotes {
		if v.Voter == identity {
			return true
		}
	}
	return false
}

type Vote struct {
	Id        string
	TrackId   string
	Voter     Identity
	Value     int
	CreatedAt time.Time
}

type voteJSON struct {
	Id            string    `json:"id"`
	UserId        *string   `json:"userId"`
	ParticipantId *string   `json:"participantId"`
	StreamId      string    `json:"streamId"`
	Value         int       `json:"value"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (v Vote) MarshalJSON() ([]byte, error) {
	userId, participantId := v.Voter.Columns()
	return json.Marshal(voteJSON{
		Id:            v.Id,
		UserId:        userId,
		ParticipantId: participantId,
		StreamId:      v.TrackId,
		Value:         v.Value,
		CreatedAt:     v.CreatedAt,
	})
}

func (v *Vote) UnmarshalJSON(data []byte) error {
	var raw voteJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	voter, err := IdentityFromColumns(raw.UserId, raw.ParticipantId)
	if err != nil {
		return err
	}

	*v = Vote{
		Id:        raw.Id,
		TrackId:   raw.StreamId,
		Voter:     voter,
		Value:     raw.Value,
		CreatedAt: raw.CreatedAt,
	}

	return nil
}
