package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	user := UserIdentity("u1")
	guest := GuestIdentity("p1")

	assert.True(t, user.IsUser())
	assert.False(t, user.IsGuest())
	assert.True(t, guest.IsGuest())
	assert.True(t, UserIdentity("").IsZero())
	assert.NotEqual(t, user, UserIdentity("p1"))
	assert.NotEqual(t, GuestIdentity("u1"), user)

	u, p := user.Columns()
	require.NotNil(t, u)
	assert.Nil(t, p)
	back, err := IdentityFromColumns(u, p)
	require.NoError(t, err)
	assert.Equal(t, user, back)

	id := "x"
	_, err = IdentityFromColumns(&id, &id)
	assert.ErrorIs(t, err, ErrInvalidIdentity)
	_, err = IdentityFromColumns(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestVoteJSON(t *testing.T) {
	vote := Vote{Id: "v1", TrackId: "t1", Voter: GuestIdentity("p1"), Value: 1}

	data, err := json.Marshal(vote)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "p1", fields["participantId"])
	assert.Nil(t, fields["userId"])
	assert.Equal(t, "t1", fields["streamId"])

	var decoded Vote
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, vote.Voter, decoded.Voter)

	err = json.Unmarshal([]byte(`{"id":"v2","userId":"u","participantId":"p","streamId":"t1"}`), &decoded)
	assert.ErrorIs(t, err, ErrInvalidIdentity)
}

func TestRoomIsCreator(t *testing.T) {
	room := Room{Id: "r1", CreatorId: "u1"}

	assert.True(t, room.IsCreator(UserIdentity("u1")))
	assert.False(t, room.IsCreator(UserIdentity("u2")))
	assert.False(t, room.IsCreator(GuestIdentity("u1")))
	assert.False(t, room.IsCreator(Identity{}))

	track := Track{Upvotes: []Vote{{Voter: GuestIdentity("p1")}}}
	assert.True(t, track.HasVoted(GuestIdentity("p1")))
	assert.False(t, track.HasVoted(UserIdentity("p1")))
}
