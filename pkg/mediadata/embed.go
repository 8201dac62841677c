package mediadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

type oEmbedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

func (c *Client) fetchOEmbed(ctx context.Context, endpoint, target string) (*oEmbedResponse, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("url", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		switch resp.StatusCode {
		case http.StatusBadRequest, http.StatusNotFound:
			return nil, ErrVideoNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, ErrVideoNotEmbeddable
		default:
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
	}

	var result oEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode oembed response: %w", err)
	}

	return &result, nil
}

func (c *Client) getVideoWithEmbed(ctx context.Context, videoId string) (*Metadata, error) {
	res, err := c.fetchOEmbed(ctx, c.youtubeOEmbedUrl, "https://www.youtube.com/watch?v="+videoId)
	if err != nil {
		return nil, err
	}

	return &Metadata{
		Source:       SourceYoutube,
		ExternalId:   videoId,
		Title:        res.Title,
		AuthorName:   res.AuthorName,
		ThumbnailUrl: res.ThumbnailUrl,
	}, nil
}

// Spotify exposes no duration without OAuth, so it stays zero.
func (c *Client) getSpotify(ctx context.Context, rawUrl, id string) (*Metadata, error) {
	res, err := c.fetchOEmbed(ctx, c.spotifyOEmbedUrl, rawUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to get spotify data with embed: %w", err)
	}

	return &Metadata{
		Source:       SourceSpotify,
		ExternalId:   id,
		Title:        res.Title,
		AuthorName:   res.AuthorName,
		ThumbnailUrl: res.ThumbnailUrl,
	}, nil
}
