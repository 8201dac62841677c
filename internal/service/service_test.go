package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/internal/playback"
	"github.com/melodex/server/internal/repository/player/inmemory"
	"github.com/melodex/server/internal/repository/track"
	"github.com/melodex/server/internal/repository/track/sqldb"
	"github.com/melodex/server/pkg/mediadata"
)

type stubMetadata struct {
	err error
}

func (m stubMetadata) Get(ctx context.Context, rawUrl string) (*mediadata.Metadata, error) {
	if m.err != nil {
		return nil, m.err
	}

	source, id, err := mediadata.Parse(rawUrl)
	if err != nil {
		return nil, err
	}

	return &mediadata.Metadata{
		Source:          source,
		ExternalId:      id,
		Title:           "title " + id,
		ThumbnailUrl:    "https://img/" + id,
		DurationSeconds: 200,
	}, nil
}

type fixedGenerator struct {
	ids []string
}

func (g *fixedGenerator) GenerateRoomId() (string, error) {
	if len(g.ids) == 0 {
		return "", errors.New("no ids left")
	}
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id, nil
}

type clock struct {
	at time.Time
}

func (c *clock) now() time.Time {
	c.at = c.at.Add(time.Millisecond)
	return c.at
}

func newTestService(t *testing.T) *service {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqldb.Open(ctx, sqldb.SQLite, filepath.Join(t.TempDir(), "tracks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, sqldb.Migrate(db, sqldb.SQLite))

	s := New(sqldb.NewRepo(db, sqldb.SQLite, logger), inmemory.NewRepo(logger), stubMetadata{}, &Config{
		Secret:            "secret",
		BaseUrl:           "https://melodex.test/",
		WsUrl:             "wss://ws.melodex.test/api/v1/ws",
		PlaylistLimit:     3,
		HeartbeatInterval: time.Second,
	})
	c := &clock{at: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
	s.now = c.now

	return s
}

func userAuth(userId string) AuthenticateResponse {
	return AuthenticateResponse{Identity: domain.UserIdentity(userId), Name: userId}
}

func guestAuth(participantId string) AuthenticateResponse {
	return AuthenticateResponse{Identity: domain.GuestIdentity(participantId)}
}

func createRoom(t *testing.T, s *service, userId string) Room {
	t.Helper()
	resp, err := s.CreateRoom(context.Background(), &CreateRoomParams{
		Auth: userAuth(userId),
		Name: "friday",
	})
	require.NoError(t, err)
	return resp.Room
}

func joinGuest(t *testing.T, s *service, roomId, name string) domain.Participant {
	t.Helper()
	resp, err := s.JoinRoom(context.Background(), &JoinRoomParams{RoomId: roomId, Name: name})
	require.NoError(t, err)
	return resp.Participant
}

func addTrack(t *testing.T, s *service, roomId string, auth AuthenticateResponse, url string) domain.Track {
	t.Helper()
	resp, err := s.AddTrack(context.Background(), &AddTrackParams{Auth: auth, RoomId: roomId, Url: url})
	require.NoError(t, err)
	return resp.Track
}

func TestToken(t *testing.T) {
	s := newTestService(t)

	token, err := s.GenerateToken("u1", "Uma")
	require.NoError(t, err)

	auth, err := s.Authenticate(&AuthenticateParams{Token: token})
	require.NoError(t, err)
	assert.Equal(t, domain.UserIdentity("u1"), auth.Identity)
	assert.Equal(t, "Uma", auth.Name)

	_, err = s.Authenticate(&AuthenticateParams{Token: token + "x"})
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := New(nil, nil, nil, &Config{Secret: "other"})
	_, err = other.Authenticate(&AuthenticateParams{Token: token})
	assert.ErrorIs(t, err, ErrInvalidToken)

	guest := "3f1c1bd4-4b8a-4f7e-9d55-0b6f2a1c9e10"
	auth, err = s.Authenticate(&AuthenticateParams{ParticipantId: guest})
	require.NoError(t, err)
	assert.Equal(t, domain.GuestIdentity(guest), auth.Identity)

	_, err = s.Authenticate(&AuthenticateParams{ParticipantId: "nope"})
	assert.Error(t, err)

	auth, err = s.Authenticate(&AuthenticateParams{})
	require.NoError(t, err)
	assert.True(t, auth.Identity.IsZero())
}

func TestCreateRoom(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	room := createRoom(t, s, "u1")
	assert.Len(t, room.Id, 10)
	assert.Equal(t, "friday", room.Name)
	assert.Equal(t, "u1", room.CreatorId)
	assert.Equal(t, "https://melodex.test/room/"+room.Id, room.InviteUrl)
	assert.Equal(t, "wss://ws.melodex.test/api/v1/ws", room.WsUrl)

	participants, err := s.ListParticipants(ctx, room.Id)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, domain.RoleCreator, participants[0].Role)
	assert.Equal(t, "u1", *participants[0].UserId)

	_, err = s.CreateRoom(ctx, &CreateRoomParams{Auth: guestAuth("p1"), Name: "x"})
	assert.ErrorIs(t, err, ErrIdentityRequired)

	_, err = s.CreateRoom(ctx, &CreateRoomParams{Auth: userAuth("u1")})
	var verr validation.Errors
	assert.ErrorAs(t, err, &verr)
}

func TestCreateRoomRetriesIdCollision(t *testing.T) {
	s := newTestService(t)
	s.generator = &fixedGenerator{ids: []string{"aaaaaaaaaa", "aaaaaaaaaa", "bbbbbbbbbb"}}

	first := createRoom(t, s, "u1")
	second := createRoom(t, s, "u2")
	assert.Equal(t, "aaaaaaaaaa", first.Id)
	assert.Equal(t, "bbbbbbbbbb", second.Id)
}

func TestJoinRoom(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	room := createRoom(t, s, "u1")

	guest := joinGuest(t, s, room.Id, "Alex")
	assert.True(t, guest.IsGuest())
	assert.Equal(t, domain.RoleSubcreator, guest.Role)
	assert.Equal(t, room.Id, guest.RoomId)

	first, err := s.JoinRoom(ctx, &JoinRoomParams{Auth: userAuth("u2"), RoomId: room.Id})
	require.NoError(t, err)
	assert.Equal(t, "u2", first.Participant.Name)
	second, err := s.JoinRoom(ctx, &JoinRoomParams{Auth: userAuth("u2"), RoomId: room.Id, Name: "again"})
	require.NoError(t, err)
	assert.Equal(t, first.Participant.Id, second.Participant.Id)

	creator, err := s.JoinRoom(ctx, &JoinRoomParams{Auth: userAuth("u1"), RoomId: room.Id})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCreator, creator.Participant.Role)

	participants, err := s.ListParticipants(ctx, room.Id)
	require.NoError(t, err)
	assert.Len(t, participants, 3)

	_, err = s.JoinRoom(ctx, &JoinRoomParams{RoomId: room.Id})
	var verr validation.Errors
	assert.ErrorAs(t, err, &verr)

	_, err = s.JoinRoom(ctx, &JoinRoomParams{RoomId: "zzzzzzzzzz", Name: "Alex"})
	assert.ErrorIs(t, err, track.ErrRoomNotFound)
}

func TestAuthorizeJoinAndAnnounce(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	room := createRoom(t, s, "u1")
	other := createRoom(t, s, "u9")
	guest := joinGuest(t, s, room.Id, "Alex")

	assert.NoError(t, s.AuthorizeJoin(ctx, &AuthorizeJoinParams{RoomId: room.Id, Identity: guest.Identity()}))
	assert.NoError(t, s.AuthorizeJoin(ctx, &AuthorizeJoinParams{RoomId: room.Id, Identity: domain.UserIdentity("u5")}))
	assert.ErrorIs(t, s.AuthorizeJoin(ctx, &AuthorizeJoinParams{RoomId: other.Id, Identity: guest.Identity()}), ErrNotRoomMember)
	assert.ErrorIs(t, s.AuthorizeJoin(ctx, &AuthorizeJoinParams{RoomId: room.Id}), ErrIdentityRequired)
	assert.ErrorIs(t, s.AuthorizeJoin(ctx, &AuthorizeJoinParams{RoomId: "bad", Identity: guest.Identity()}), track.ErrRoomNotFound)

	announced, err := s.AnnounceParticipant(ctx, &AnnounceParticipantParams{
		RoomId: room.Id, ParticipantId: guest.Id, Identity: guest.Identity(),
	})
	require.NoError(t, err)
	assert.Equal(t, guest.Name, announced.Name)

	impostor := joinGuest(t, s, room.Id, "Sam")
	_, err = s.AnnounceParticipant(ctx, &AnnounceParticipantParams{
		RoomId: room.Id, ParticipantId: guest.Id, Identity: impostor.Identity(),
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestAddTrack(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	room := createRoom(t, s, "u1")
	guest := joinGuest(t, s, room.Id, "Alex")

	created := addTrack(t, s, room.Id, guestAuth(guest.Id), "https://youtu.be/abc123")
	assert.Equal(t, "abc123", created.ExtractedId)
	assert.Equal(t, "Youtube", created.Type)
	assert.Nil(t, created.UserId)
	assert.Empty(t, created.Upvotes)

	byUser := addTrack(t, s, room.Id, userAuth("u1"), "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC")
	assert.Equal(t, "Spotify", byUser.Type)
	require.NotNil(t, byUser.UserId)
	assert.Equal(t, "u1", *byUser.UserId)

	_, err := s.AddTrack(ctx, &AddTrackParams{RoomId: room.Id, Url: "https://vimeo.com/1"})
	var verr validation.Errors
	assert.ErrorAs(t, err, &verr)

	_, err = s.AddTrack(ctx, &AddTrackParams{RoomId: room.Id, Url: "https://youtu.be/abc123"})
	assert.ErrorIs(t, err, ErrIdentityRequired)

	_, err = s.AddTrack(ctx, &AddTrackParams{Auth: userAuth("u3"), RoomId: "zzzzzzzzzz", Url: "https://youtu.be/abc123"})
	assert.ErrorIs(t, err, track.ErrRoomNotFound)

	outsider := joinGuest(t, s, createRoom(t, s, "u2").Id, "Out")
	_, err = s.AddTrack(ctx, &AddTrackParams{Auth: guestAuth(outsider.Id), RoomId: room.Id, Url: "https://youtu.be/abc123"})
	assert.ErrorIs(t, err, ErrNotRoomMember)

	addTrack(t, s, room.Id, userAuth("u1"), "https://youtu.be/def456")
	_, err = s.AddTrack(ctx, &AddTrackParams{Auth: userAuth("u1"), RoomId: room.Id, Url: "https://youtu.be/ghi789"})
	assert.ErrorIs(t, err, ErrPlaylistLimitReached)
}

func TestAddTrackMetadataFailure(t *testing.T) {
	s := newTestService(t)
	room := createRoom(t, s, "u1")
	s.metadata = stubMetadata{err: mediadata.ErrVideoNotFound}

	_, err := s.AddTrack(context.Background(), &AddTrackParams{Auth: userAuth("u1"), RoomId: room.Id, Url: "https://youtu.be/abc123"})
	assert.ErrorIs(t, err, ErrMetadataUnavailable)
	assert.ErrorIs(t, err, mediadata.ErrVideoNotFound)

	tracks, err := s.ListTracks(context.Background(), room.Id)
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

// Room R1 by U1, guest G1 "Alex" adds T1, toggles a vote on and off, U1 adds T2.
func TestVoteScenario(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	room := createRoom(t, s, "u1")
	g1 := joinGuest(t, s, room.Id, "Alex")

	t1 := addTrack(t, s, room.Id, guestAuth(g1.Id), "https://youtu.be/abc123")
	assert.Empty(t, t1.Upvotes)

	voted, err := s.ToggleVote(ctx, &ToggleVoteParams{Identity: g1.Identity(), RoomId: room.Id, TrackId: t1.Id})
	require.NoError(t, err)
	assert.True(t, voted.Added)
	require.Len(t, voted.Upvotes, 1)
	assert.Equal(t, domain.GuestIdentity(g1.Id), voted.Upvotes[0].Voter)

	unvoted, err := s.ToggleVote(ctx, &ToggleVoteParams{Identity: g1.Identity(), RoomId: room.Id, TrackId: t1.Id})
	require.NoError(t, err)
	assert.False(t, unvoted.Added)
	assert.Empty(t, unvoted.Upvotes)

	t2 := addTrack(t, s, room.Id, userAuth("u1"), "https://youtu.be/def456")

	tracks, err := s.ListTracks(ctx, room.Id)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, []string{t1.Id, t2.Id}, []string{tracks[0].Id, tracks[1].Id})

	_, err = s.ToggleVote(ctx, &ToggleVoteParams{Identity: domain.UserIdentity("u7"), RoomId: room.Id, TrackId: t2.Id})
	require.NoError(t, err)

	tracks, err = s.ListTracks(ctx, room.Id)
	require.NoError(t, err)
	assert.Equal(t, []string{t2.Id, t1.Id}, []string{tracks[0].Id, tracks[1].Id})
}

func TestToggleVoteErrors(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	room := createRoom(t, s, "u1")
	t1 := addTrack(t, s, room.Id, userAuth("u1"), "https://youtu.be/abc123")

	_, err := s.ToggleVote(ctx, &ToggleVoteParams{RoomId: room.Id, TrackId: t1.Id})
	assert.ErrorIs(t, err, ErrIdentityRequired)

	_, err = s.ToggleVote(ctx, &ToggleVoteParams{
		Identity: domain.GuestIdentity("3f1c1bd4-4b8a-4f7e-9d55-0b6f2a1c9e10"), RoomId: room.Id, TrackId: t1.Id,
	})
	assert.ErrorIs(t, err, ErrNotRoomMember)

	_, err = s.ToggleVote(ctx, &ToggleVoteParams{
		Identity: domain.UserIdentity("u1"), RoomId: room.Id, TrackId: "6c0b8a8e-96f4-4b8e-8c1e-0d5b3f0e2a11",
	})
	assert.ErrorIs(t, err, track.ErrTrackNotFound)
}

func TestPlaybackAuthority(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	room := createRoom(t, s, "u1")
	guest := joinGuest(t, s, room.Id, "Alex")

	_, err := s.UpdatePlayback(ctx, &UpdatePlaybackParams{Identity: guest.Identity(), RoomId: room.Id, State: "play"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = s.UpdateMute(ctx, &UpdateMuteParams{Identity: domain.UserIdentity("u2"), RoomId: room.Id, IsMuted: true})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	_, err = s.ChangeCurrentTrack(ctx, &ChangeCurrentTrackParams{Identity: guest.Identity(), RoomId: room.Id})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = s.UpdatePlayback(ctx, &UpdatePlaybackParams{Identity: domain.UserIdentity("u1"), RoomId: room.Id, State: "stop"})
	var verr validation.Errors
	assert.ErrorAs(t, err, &verr)

	_, err = s.UpdatePlayback(ctx, &UpdatePlaybackParams{Identity: domain.UserIdentity("u1"), RoomId: room.Id, State: "seek", CurrentTime: -1})
	assert.ErrorAs(t, err, &verr)
}

func TestPlayback(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	room := createRoom(t, s, "u1")
	creator := domain.UserIdentity("u1")
	t1 := addTrack(t, s, room.Id, userAuth("u1"), "https://youtu.be/abc123")
	t2 := addTrack(t, s, room.Id, userAuth("u1"), "https://youtu.be/def456")

	snapshot, err := s.GetPlaybackSnapshot(ctx, room.Id)
	require.NoError(t, err)
	assert.Equal(t, playback.StateUnstarted, snapshot.Player.State)
	assert.Nil(t, snapshot.CurrentTrack)
	assert.Equal(t, 1.0, snapshot.Player.HeartbeatInterval)

	changed, err := s.ChangeCurrentTrack(ctx, &ChangeCurrentTrackParams{Identity: creator, RoomId: room.Id, TrackId: t1.Id})
	require.NoError(t, err)
	require.NotNil(t, changed.CurrentTrack)
	assert.Equal(t, t1.Id, changed.CurrentTrack.Id)
	assert.Nil(t, changed.Previous)

	update, err := s.UpdatePlayback(ctx, &UpdatePlaybackParams{Identity: creator, RoomId: room.Id, State: "play", CurrentTime: 12})
	require.NoError(t, err)
	assert.Equal(t, playback.Update{RoomId: room.Id, Action: playback.ActionPlay, CurrentTime: 12}, update)

	mute, err := s.UpdateMute(ctx, &UpdateMuteParams{Identity: creator, RoomId: room.Id, IsMuted: true})
	require.NoError(t, err)
	assert.True(t, mute.IsMuted)

	snapshot, err = s.GetPlaybackSnapshot(ctx, room.Id)
	require.NoError(t, err)
	assert.Equal(t, playback.StatePlaying, snapshot.Player.State)
	assert.GreaterOrEqual(t, snapshot.Player.CurrentTime, 12.0)
	assert.True(t, snapshot.Player.IsMuted)
	require.NotNil(t, snapshot.CurrentTrack)
	assert.Equal(t, t1.Id, snapshot.CurrentTrack.Id)

	state, err := s.GetRoom(ctx, room.Id)
	require.NoError(t, err)
	require.NotNil(t, state.CurrentTrack)
	assert.Equal(t, t1.Id, state.CurrentTrack.Id)
	require.Len(t, state.Queue, 1)
	assert.Equal(t, t2.Id, state.Queue[0].Id)

	changed, err = s.ChangeCurrentTrack(ctx, &ChangeCurrentTrackParams{Identity: creator, RoomId: room.Id, TrackId: t2.Id})
	require.NoError(t, err)
	require.NotNil(t, changed.Previous)
	assert.Equal(t, t1.Id, changed.Previous.Id)
	assert.True(t, changed.Previous.Played)

	state, err = s.GetRoom(ctx, room.Id)
	require.NoError(t, err)
	assert.Equal(t, t2.Id, state.CurrentTrack.Id)
	assert.Empty(t, state.Queue)
	assert.Equal(t, playback.StateUnstarted, state.Player.State)

	changed, err = s.ChangeCurrentTrack(ctx, &ChangeCurrentTrackParams{Identity: creator, RoomId: room.Id})
	require.NoError(t, err)
	assert.Nil(t, changed.CurrentTrack)

	played, err := s.MarkPlayed(ctx, &MarkPlayedParams{Auth: userAuth("u1"), RoomId: room.Id, TrackId: t2.Id})
	require.NoError(t, err)
	assert.True(t, played.Played)
}

func TestMuteKeepsPlaybackPosition(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	room := createRoom(t, s, "u1")
	creator := domain.UserIdentity("u1")

	t0 := time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)
	at := t0
	s.now = func() time.Time { return at }

	_, err := s.UpdatePlayback(ctx, &UpdatePlaybackParams{Identity: creator, RoomId: room.Id, State: "play", CurrentTime: 10})
	require.NoError(t, err)

	at = t0.Add(900 * time.Millisecond)
	_, err = s.UpdateMute(ctx, &UpdateMuteParams{Identity: creator, RoomId: room.Id, IsMuted: true})
	require.NoError(t, err)

	at = t0.Add(time.Second)
	snapshot, err := s.GetPlaybackSnapshot(ctx, room.Id)
	require.NoError(t, err)
	assert.InDelta(t, 11.0, snapshot.Player.CurrentTime, 0.001)
	assert.True(t, snapshot.Player.IsMuted)

	state, err := s.GetRoom(ctx, room.Id)
	require.NoError(t, err)
	assert.InDelta(t, 11.0, state.Player.CurrentTime, 0.001)
}

func TestGetRoomNotFound(t *testing.T) {
	s := newTestService(t)

	_, err := s.GetRoom(context.Background(), "zzzzzzzzzz")
	assert.ErrorIs(t, err, track.ErrRoomNotFound)

	_, err = s.GetRoom(context.Background(), "../etc")
	assert.ErrorIs(t, err, track.ErrRoomNotFound)
}
