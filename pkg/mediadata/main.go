package mediadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrVideoNotFound      = errors.New("video not found")
	ErrVideoNotEmbeddable = errors.New("video is not embeddable")
)

const (
	defaultYoutubeApiUrl    = "https://www.googleapis.com/youtube/v3"
	defaultYoutubeOEmbedUrl = "https://www.youtube.com/oembed"
	defaultYoutubePageUrl   = "https://youtu.be"
	defaultSpotifyOEmbedUrl = "https://open.spotify.com/oembed"
)

type Metadata struct {
	Source          Source `json:"source"`
	ExternalId      string `json:"external_id"`
	Title           string `json:"title"`
	AuthorName      string `json:"author_name"`
	ThumbnailUrl    string `json:"thumbnail_url"`
	DurationSeconds int    `json:"duration_seconds"`
}

type Config struct {
	// Data API lookups (and therefore durations) are skipped when empty.
	YoutubeApiKey    string
	YoutubeApiUrl    string
	YoutubeOEmbedUrl string
	YoutubePageUrl   string
	SpotifyOEmbedUrl string
	Timeout          time.Duration
}

type Client struct {
	httpClient       *http.Client
	youtubeApiKey    string
	youtubeApiUrl    string
	youtubeOEmbedUrl string
	youtubePageUrl   string
	spotifyOEmbedUrl string
}

func orDefault(value, def string) string {
	if value == "" {
		return def
	}

	return value
}

func New(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		httpClient:       &http.Client{Timeout: timeout},
		youtubeApiKey:    cfg.YoutubeApiKey,
		youtubeApiUrl:    orDefault(cfg.YoutubeApiUrl, defaultYoutubeApiUrl),
		youtubeOEmbedUrl: orDefault(cfg.YoutubeOEmbedUrl, defaultYoutubeOEmbedUrl),
		youtubePageUrl:   orDefault(cfg.YoutubePageUrl, defaultYoutubePageUrl),
		spotifyOEmbedUrl: orDefault(cfg.SpotifyOEmbedUrl, defaultSpotifyOEmbedUrl),
	}
}

// Get resolves title, thumbnail and duration for a YouTube or Spotify url.
func (c *Client) Get(ctx context.Context, rawUrl string) (*Metadata, error) {
	source, id, err := Parse(rawUrl)
	if err != nil {
		return nil, err
	}

	switch source {
	case SourceYoutube:
		return c.getYoutube(ctx, id)
	default:
		return c.getSpotify(ctx, rawUrl, id)
	}
}

func (c *Client) getYoutube(ctx context.Context, videoId string) (*Metadata, error) {
	if c.youtubeApiKey != "" {
		md, err := c.getFromDataApi(ctx, videoId)
		if err != nil {
			return nil, fmt.Errorf("failed to get video data from api: %w", err)
		}

		return md, nil
	}

	md, err := c.getVideoWithEmbed(ctx, videoId)
	if err != nil {
		if !errors.Is(err, ErrVideoNotEmbeddable) {
			return nil, fmt.Errorf("failed to get video data with embed: %w", err)
		}

		md, err = c.getFromPage(ctx, videoId)
		if err != nil {
			return nil, fmt.Errorf("failed to get video data from page: %w", err)
		}
	}

	return md, nil
}
