package controller

import (
	"github.com/melodex/server/internal/domain"
	"github.com/melodex/server/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.OnError(c.sendError)
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())

	wsrouter.Handle(mux, domain.EventJoinRoom, c.handleJoinRoom)

	// every message below names a room the session must have joined
	mux.Use(c.roomMemberWSMw())

	wsrouter.Handle(mux, domain.EventParticipantJoined, c.handleParticipantJoined)
	wsrouter.Handle(mux, domain.EventNewSong, c.handleNewSong)
	wsrouter.Handle(mux, domain.EventVoteUpdate, c.handleVoteUpdate)

	// creator only
	wsrouter.Handle(mux, domain.EventCurrentSongChanged, c.handleCurrentSongChanged)
	wsrouter.Handle(mux, domain.EventPlaybackUpdate, c.handlePlaybackUpdate)
	wsrouter.Handle(mux, domain.EventMuteUpdate, c.handleMuteUpdate)

	return mux
}
