// Package state implements the single-writer state actor that owns the job
// store, and the client facade every other component uses to talk to it.
//
// The Actor is the only goroutine that ever touches internal/store: every
// read and every write is serialized through its mailbox. This is what lets
// the rest of the program treat "the database" as a single, always-
// consistent in-process service instead of a shared mutable resource that
// needs its own locking discipline at every call site.
package state

import (
	"github.com/rs/zerolog"

	"github.com/omarelawady/godownload/internal/store"
)

// Actor owns the job store and drains its mailbox until the mailbox channel
// is closed, at which point it exits cleanly.
type Actor struct {
	store *store.Store
	inbox chan request
	log   zerolog.Logger
}

// NewActor creates an actor over store. inbox is unbounded in the sense that
// matters here: the actor is always draining it, so a Go channel with a
// small buffer behaves as an effectively unbounded mailbox for this
// single-consumer workload.
func NewActor(st *store.Store, log zerolog.Logger) *Actor {
	return &Actor{
		store: st,
		inbox: make(chan request, 256),
		log:   log.With().Str("component", "state-actor").Logger(),
	}
}

// Client returns a facade bound to this actor's mailbox.
func (a *Actor) Client() *Client {
	return &Client{inbox: a.inbox}
}

// Run drains the mailbox until the channel is closed, applying each request to the store in order and replying exactly once per
// request, regardless of whether that reply is ever read.
func (a *Actor) Run() {
	a.log.Info().Msg("state actor starting")
	for req := range a.inbox {
		a.handle(req)
	}
	a.log.Info().Msg("state actor exiting: mailbox closed")
}

func (a *Actor) handle(req request) {
	var r reply
	switch req.op {
	case opUpdate:
		r.err = a.store.Upsert(req.info)
	case opUpdateState:
		r.err = a.store.SetState(req.name, req.state)
	case opDelete:
		r.err = a.store.Delete(req.name)
	case opGet:
		r.info, r.err = a.store.Get(req.name)
	case opList:
		r.list, r.err = a.store.List()
	}
	if r.err != nil {
		a.log.Debug().Err(r.err).Int("op", int(req.op)).Msg("state operation failed")
	}
	// The caller may have already abandoned the request (e.g. timed out);
	// the reply channel has capacity 1, so this send never blocks, and we
	// don't care whether anyone is listening.
	req.reply <- r
}
