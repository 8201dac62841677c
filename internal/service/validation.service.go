package service

import (
	"errors"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/melodex/server/pkg/mediadata"
)

var RoomIdRule = []validation.Rule{
	validation.Required,
	validation.Match(regexp.MustCompile("^[a-z0-9]{10}$")),
}

var RoomNameRule = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, 64),
}

var ParticipantNameRule = []validation.Rule{
	validation.Required,
	validation.RuneLength(1, 32),
}

var AvatarUrlRule = []validation.Rule{
	is.URL,
}

var ParticipantIdRule = []validation.Rule{
	validation.Required,
	is.UUIDv4,
}

var TrackIdRule = []validation.Rule{
	validation.Required,
	is.UUIDv4,
}

var TrackUrlRule = []validation.Rule{
	validation.Required,
	validation.Length(1, 2048),
	validation.By(func(value interface{}) error {
		s, _ := value.(string)
		if !mediadata.YoutubeRegex.MatchString(s) && !mediadata.SpotifyRegex.MatchString(s) {
			return errors.New("must be a YouTube or Spotify url")
		}
		return nil
	}),
}

var CurrentTimeRule = []validation.Rule{
	validation.Min(0.0),
}

func validateParticipantId(participantId string) error {
	return validation.Validate(participantId, ParticipantIdRule...)
}
