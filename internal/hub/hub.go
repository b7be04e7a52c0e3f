// Package hub owns the set of live lobbies, keyed by game code. It is an
// actor like the lobbies it manages; all map access happens on its loop.
package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"go.uber.org/zap"

	"colornamer/internal/game"
	"colornamer/internal/lobby"
	"colornamer/internal/store"
)

type HubMsg interface{ isHubMsg() }

// EnsureLobby returns the lobby for a code, creating the lobby and its
// session document when absent. Used by the create path only.
type EnsureLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// GetLobby returns the lobby for a code, or nil. It never creates a session:
// an unknown code must surface as "no such game". A code whose document
// survives in a durable store (say, across a restart) gets a lobby
// reattached over it.
type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type RemoveLobby struct {
	Code string
}

// SweepAll fans an idle sweep out to every lobby.
type SweepAll struct {
	Now int64
}

// CountLobbies reports the number of live sessions, for the status endpoint.
type CountLobbies struct {
	Reply chan int
}

type ShutdownHub struct{}

func (EnsureLobby) isHubMsg()  {}
func (GetLobby) isHubMsg()     {}
func (RemoveLobby) isHubMsg()  {}
func (SweepAll) isHubMsg()     {}
func (CountLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

// Options carries the collaborators every lobby is built with.
type Options struct {
	Store          store.Store
	Validator      lobby.ClueValidator
	Logger         *zap.Logger
	PlayerTimeout  time.Duration
	SessionTimeout time.Duration
}

type Hub struct {
	inbox    chan HubMsg
	lobbies  map[string]*lobby.Lobby
	removals chan string
	opts     Options
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PlayerTimeout == 0 {
		opts.PlayerTimeout = 2 * time.Minute
	}
	if opts.SessionTimeout == 0 {
		opts.SessionTimeout = 30 * time.Minute
	}

	h := &Hub{
		inbox:    make(chan HubMsg, 64),
		lobbies:  make(map[string]*lobby.Lobby),
		removals: make(chan string, 64),
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case code := <-h.removals:
			delete(h.lobbies, code)

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureLobby:
				msg.Reply <- h.ensure(msg.Code)

			case GetLobby:
				msg.Reply <- h.get(msg.Code) // May be nil

			case RemoveLobby:
				delete(h.lobbies, msg.Code)

			case SweepAll:
				for _, lb := range h.lobbies {
					lb.Inbox() <- lobby.Sweep{
						Now:            msg.Now,
						PlayerTimeout:  h.opts.PlayerTimeout,
						SessionTimeout: h.opts.SessionTimeout,
					}
				}

			case CountLobbies:
				msg.Reply <- len(h.lobbies)

			case ShutdownHub:
				for _, lb := range h.lobbies {
					lb.Inbox() <- lobby.Shutdown{}
				}
				clear(h.lobbies)
				h.cancel()
			}
		}
	}
}

func (h *Hub) ensure(code string) *lobby.Lobby {
	if lb := h.lobbies[code]; lb != nil {
		return lb
	}

	// Seed the document first so a sweep can never observe a lobby whose
	// session was still being created. Create only on a definite miss: a
	// transient store failure must never overwrite a live session.
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()
	if _, err := h.opts.Store.Get(ctx, code); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.opts.Logger.Error("session lookup failed", zap.String("game", code), zap.Error(err))
			return nil
		}
		doc := game.NewState(code, time.Now().UnixMilli())
		if err := h.opts.Store.Put(ctx, code, doc); err != nil {
			h.opts.Logger.Error("create session failed", zap.String("game", code), zap.Error(err))
			return nil
		}
	}

	return h.register(code)
}

// get resolves a code without ever seeding a document. A map miss falls back
// to the store so sessions persisted by a durable backend stay reachable
// after a restart.
func (h *Hub) get(code string) *lobby.Lobby {
	if lb := h.lobbies[code]; lb != nil {
		return lb
	}

	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()
	if _, err := h.opts.Store.Get(ctx, code); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.opts.Logger.Error("session lookup failed", zap.String("game", code), zap.Error(err))
		}
		return nil
	}

	return h.register(code)
}

func (h *Hub) register(code string) *lobby.Lobby {
	lb := lobby.NewLobby(h.ctx, code, h.opts.Store, h.opts.Validator, h.opts.Logger, h.removals)
	h.lobbies[code] = lb
	return lb
}

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateCode returns a 6-character game code.
func GenerateCode() (string, error) {
	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}
