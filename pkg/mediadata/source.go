package mediadata

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

type Source string

const (
	SourceYoutube Source = "Youtube"
	SourceSpotify Source = "Spotify"
)

var ErrUnsupportedUrl = errors.New("unsupported media url")

var (
	YoutubeRegex = regexp.MustCompile(`^(https?://)?(www\.|m\.)?(youtube\.com/(watch\?v=|shorts/)|youtu\.be/)`)
	SpotifyRegex = regexp.MustCompile(`^(https?://)?(open\.spotify\.com/(track|playlist|album|artist)|spotify:)`)

	youtubeIdRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{6,64}$`)
	spotifyIdRegex = regexp.MustCompile(`^[a-zA-Z0-9]{6,64}$`)
)

// Parse detects the source of rawUrl and extracts the id the source uses for the media.
func Parse(rawUrl string) (Source, string, error) {
	rawUrl = strings.TrimSpace(rawUrl)

	switch {
	case YoutubeRegex.MatchString(rawUrl):
		id, err := youtubeId(rawUrl)
		return SourceYoutube, id, err
	case SpotifyRegex.MatchString(rawUrl):
		id, err := spotifyId(rawUrl)
		return SourceSpotify, id, err
	default:
		return "", "", ErrUnsupportedUrl
	}
}

func withScheme(rawUrl string) string {
	if strings.HasPrefix(rawUrl, "http://") || strings.HasPrefix(rawUrl, "https://") {
		return rawUrl
	}

	return "https://" + rawUrl
}

func youtubeId(rawUrl string) (string, error) {
	u, err := url.Parse(withScheme(rawUrl))
	if err != nil {
		return "", ErrUnsupportedUrl
	}

	var id string
	switch {
	case strings.HasSuffix(u.Hostname(), "youtu.be"):
		id = strings.Trim(u.Path, "/")
	case strings.HasPrefix(u.Path, "/shorts/"):
		id = strings.Trim(strings.TrimPrefix(u.Path, "/shorts/"), "/")
	default:
		id = u.Query().Get("v")
	}

	if !youtubeIdRegex.MatchString(id) {
		return "", ErrUnsupportedUrl
	}

	return id, nil
}

func spotifyId(rawUrl string) (string, error) {
	var id string
	if strings.HasPrefix(rawUrl, "spotify:") {
		parts := strings.Split(rawUrl, ":")
		id = parts[len(parts)-1]
	} else {
		u, err := url.Parse(withScheme(rawUrl))
		if err != nil {
			return "", ErrUnsupportedUrl
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		id = parts[len(parts)-1]
	}

	if !spotifyIdRegex.MatchString(id) {
		return "", ErrUnsupportedUrl
	}

	return id, nil
}
