package mediadata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		url    string
		source Source
		id     string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", SourceYoutube, "dQw4w9WgXcQ"},
		{"youtube.com/watch?v=dQw4w9WgXcQ&t=10", SourceYoutube, "dQw4w9WgXcQ"},
		{"https://youtu.be/abc123", SourceYoutube, "abc123"},
		{"https://www.youtube.com/shorts/abcdefghijk", SourceYoutube, "abcdefghijk"},
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", SourceSpotify, "4uLU6hMCjMI75M1A2tKUQC"},
		{"spotify:track:4uLU6hMCjMI75M1A2tKUQC", SourceSpotify, "4uLU6hMCjMI75M1A2tKUQC"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			source, id, err := Parse(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.source, source)
			assert.Equal(t, tt.id, id)
		})
	}

	for _, bad := range []string{"", "https://vimeo.com/123", "https://youtube.com/watch?v=", "https://youtu.be/a"} {
		_, _, err := Parse(bad)
		assert.ErrorIs(t, err, ErrUnsupportedUrl, bad)
	}
}

func TestParseDuration(t *testing.T) {
	tests := map[string]int{
		"PT4M13S":    253,
		"PT1H":       3600,
		"PT45S":      45,
		"P1DT2H3M4S": 93784,
	}
	for in, want := range tests {
		got, err := ParseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "PT", "4M13S", "PTxS"} {
		_, err := ParseDuration(bad)
		assert.Error(t, err, bad)
	}
}

func newTestServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("url") {
		case "https://www.youtube.com/watch?v=private1":
			w.WriteHeader(http.StatusUnauthorized)
		case "https://www.youtube.com/watch?v=missing1":
			w.WriteHeader(http.StatusBadRequest)
		default:
			fmt.Fprint(w, `{"title":"Song","author_name":"Band","thumbnail_url":"https://img/1.jpg"}`)
		}
	})
	mux.HandleFunc("/page/private1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Hidden Song - YouTube</title><link itemprop="name" content="Hidden Band"></head></html>`)
	})
	mux.HandleFunc("/api/videos", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "secret" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("id") == "missing1" {
			fmt.Fprint(w, `{"items":[]}`)
			return
		}
		fmt.Fprint(w, `{"items":[{"snippet":{"title":"Api Song","channelTitle":"Api Band","thumbnails":{"high":{"url":"https://img/high.jpg"}}},"contentDetails":{"duration":"PT3M20S"}}]}`)
	})

	s := httptest.NewServer(mux)
	t.Cleanup(s.Close)

	return s
}

func TestGetWithEmbed(t *testing.T) {
	s := newTestServer(t)
	c := New(&Config{
		YoutubeOEmbedUrl: s.URL + "/oembed",
		YoutubePageUrl:   s.URL + "/page",
		SpotifyOEmbedUrl: s.URL + "/oembed",
	})
	ctx := context.Background()

	md, err := c.Get(ctx, "https://youtu.be/abc123")
	require.NoError(t, err)
	assert.Equal(t, &Metadata{
		Source:       SourceYoutube,
		ExternalId:   "abc123",
		Title:        "Song",
		AuthorName:   "Band",
		ThumbnailUrl: "https://img/1.jpg",
	}, md)

	md, err = c.Get(ctx, "https://youtu.be/private1")
	require.NoError(t, err)
	assert.Equal(t, "Hidden Song", md.Title)
	assert.Equal(t, "Hidden Band", md.AuthorName)

	_, err = c.Get(ctx, "https://youtu.be/missing1")
	assert.ErrorIs(t, err, ErrVideoNotFound)

	md, err = c.Get(ctx, "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC")
	require.NoError(t, err)
	assert.Equal(t, SourceSpotify, md.Source)
	assert.Equal(t, "Song", md.Title)
	assert.Zero(t, md.DurationSeconds)
}

func TestGetWithDataApi(t *testing.T) {
	s := newTestServer(t)
	c := New(&Config{
		YoutubeApiKey: "secret",
		YoutubeApiUrl: s.URL + "/api",
	})
	ctx := context.Background()

	md, err := c.Get(ctx, "https://www.youtube.com/watch?v=abc123")
	require.NoError(t, err)
	assert.Equal(t, "Api Song", md.Title)
	assert.Equal(t, "Api Band", md.AuthorName)
	assert.Equal(t, "https://img/high.jpg", md.ThumbnailUrl)
	assert.Equal(t, 200, md.DurationSeconds)

	_, err = c.Get(ctx, "https://www.youtube.com/watch?v=missing1")
	assert.ErrorIs(t, err, ErrVideoNotFound)
}
