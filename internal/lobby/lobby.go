// Package lobby runs one goroutine per game session. The actor serializes
// every intent against the session document: read the latest copy from the
// store, run the state machine, persist, then fan out. That single mutation
// path is what keeps concurrent client actions from interleaving partial
// writes, regardless of which store backend is wired in.
package lobby

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"colornamer/internal/color"
	"colornamer/internal/game"
	"colornamer/internal/store"
	"colornamer/internal/types"
)

// ClueValidator is the external clue policy. The lobby calls it before the
// state machine sees a clue; it does not implement the word rules itself.
type ClueValidator interface {
	Validate(clue string) error
}

type Msg interface{ isLobbyMsg() }

// Attach registers a connection's outbox and immediately sends it the current
// snapshot.
type Attach struct {
	ConnID string
	Outbox chan types.ServerMessage
}

func (Attach) isLobbyMsg() {}

// Detach unregisters a connection. A non-empty PlayerID marks transport loss
// for that player (disconnect without explicit leave).
type Detach struct {
	ConnID   string
	PlayerID string
}

func (Detach) isLobbyMsg() {}

// Intent is a client command. WireType echoes back on the confirmation.
type Intent struct {
	ConnID   string
	WireType string
	Cmd      game.Command
}

func (Intent) isLobbyMsg() {}

// Query asks for the current snapshot to be sent to one connection.
type Query struct{ ConnID string }

func (Query) isLobbyMsg() {}

// Sweep marks long-silent players disconnected and retires the session when
// it is empty or idle past the session timeout.
type Sweep struct {
	Now            int64
	PlayerTimeout  time.Duration
	SessionTimeout time.Duration
}

func (Sweep) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

// GetView reflects internal state without data races. Test-only.
type GetView struct {
	Reply chan View
}

func (GetView) isLobbyMsg() {}

type View struct {
	Version    int
	NumClients int
	State      game.State
}

const storeTimeout = 5 * time.Second

type Lobby struct {
	id        string
	inbox     chan Msg
	store     store.Store
	validator ClueValidator
	logger    *zap.Logger
	removals  chan<- string

	version int
	clients map[string]chan types.ServerMessage

	// Overridable for deterministic tests.
	nowFn  func() int64
	seedFn func() int64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewLobby starts the session actor. removals receives the session id when
// the lobby retires itself so the hub can drop its reference.
func NewLobby(parent context.Context, id string, st store.Store, v ClueValidator, logger *zap.Logger, removals chan<- string) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		id:        id,
		inbox:     make(chan Msg, 64),
		store:     st,
		validator: v,
		logger:    logger.With(zap.String("game", id)),
		removals:  removals,
		clients:   make(map[string]chan types.ServerMessage),
		nowFn:     func() int64 { return time.Now().UnixMilli() },
		seedFn:    newSeedFn(),
		ctx:       ctx,
		cancel:    cancel,
	}

	go l.loop()
	return l
}

func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Attach:
				l.clients[msg.ConnID] = msg.Outbox
				l.sendSnapshot(msg.ConnID)

			case Detach:
				delete(l.clients, msg.ConnID)
				if msg.PlayerID != "" {
					l.handleIntent(Intent{Cmd: game.Command{
						Type:     game.CmdDisconnect,
						PlayerID: msg.PlayerID,
					}})
				}

			case Intent:
				l.handleIntent(msg)

			case Query:
				l.sendSnapshot(msg.ConnID)

			case Sweep:
				l.handleSweep(msg)

			case GetView:
				state, _ := l.load()
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      state,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) handleIntent(msg Intent) {
	cmd := msg.Cmd
	if cmd.Now == 0 {
		cmd.Now = l.nowFn()
	}
	if cmd.Seed == 0 && (cmd.Type == game.CmdStart || cmd.Type == game.CmdNextRound) {
		cmd.Seed = l.seedFn()
	}

	// Clue policy is external to the state machine; reject before Apply so an
	// invalid clue never touches the document.
	if cmd.Type == game.CmdSetColor && cmd.Clue != "" && l.validator != nil {
		if err := l.validator.Validate(cmd.Clue); err != nil {
			l.sendError(msg.ConnID, err)
			return
		}
	}

	state, err := l.load()
	if err != nil {
		l.sendError(msg.ConnID, err)
		return
	}

	events, next, err := game.Apply(state, cmd)
	if err != nil {
		l.sendError(msg.ConnID, err)
		return
	}

	ctx, cancel := context.WithTimeout(l.ctx, storeTimeout)
	err = l.store.Put(ctx, l.id, next)
	cancel()
	if err != nil {
		// Nothing was broadcast and the old document stands; the client can
		// retry.
		l.logger.Error("persist failed", zap.Error(err))
		l.sendError(msg.ConnID, err)
		return
	}

	l.appendUpdate(cmd, msg.Cmd.PlayerID)

	if game.ContainsEvent(events, game.EvtSessionEmptied) {
		l.retire()
		return
	}

	if len(events) > 0 {
		l.version++
		l.broadcast(next)
	}

	if msg.ConnID != "" {
		if game.ContainsEvent(events, game.EvtPlayerReconnected) {
			l.sendTo(msg.ConnID, types.ServerMessage{
				Type:     types.MsgReconnected,
				GameID:   l.id,
				PlayerID: cmd.PlayerID,
			})
		}
		if msg.WireType != "" {
			l.sendTo(msg.ConnID, types.ServerMessage{
				Type:        types.MsgConfirmation,
				MessageType: msg.WireType,
				Timestamp:   cmd.Now,
			})
		}
	}
}

func (l *Lobby) handleSweep(msg Sweep) {
	state, err := l.load()
	if err != nil {
		// Document already gone; nothing left to sweep.
		l.retire()
		return
	}

	cmd := game.Command{
		Type:       game.CmdSweepIdle,
		Now:        msg.Now,
		IdleCutoff: msg.Now - msg.PlayerTimeout.Milliseconds(),
	}
	events, next, err := game.Apply(state, cmd)
	if err != nil {
		l.logger.Error("sweep failed", zap.Error(err))
		return
	}

	if len(events) > 0 {
		ctx, cancel := context.WithTimeout(l.ctx, storeTimeout)
		err = l.store.Put(ctx, l.id, next)
		cancel()
		if err != nil {
			l.logger.Error("persist failed", zap.Error(err))
			return
		}
		l.version++
		l.broadcast(next)
	}

	if sessionExpired(next, msg) {
		l.logger.Info("retiring idle session",
			zap.Int("players", len(next.Players)),
			zap.Int64("lastActivity", next.LastActivity))
		l.retire()
	}
}

func sessionExpired(s game.State, msg Sweep) bool {
	if len(s.Players) == 0 {
		return true
	}
	for _, p := range s.Players {
		if p.Connected {
			return false
		}
	}
	return msg.Now-s.LastActivity > msg.SessionTimeout.Milliseconds()
}

func (l *Lobby) load() (game.State, error) {
	ctx, cancel := context.WithTimeout(l.ctx, storeTimeout)
	defer cancel()
	return l.store.Get(ctx, l.id)
}

func (l *Lobby) appendUpdate(cmd game.Command, playerID string) {
	ctx, cancel := context.WithTimeout(l.ctx, storeTimeout)
	defer cancel()
	err := l.store.AppendUpdate(ctx, l.id, store.Update{
		Timestamp: cmd.Now,
		Type:      string(cmd.Type),
		PlayerID:  playerID,
	})
	if err != nil {
		// Diagnostic log only; never fail the action for it.
		l.logger.Warn("update log append failed", zap.Error(err))
	}
}

func (l *Lobby) sendSnapshot(connID string) {
	state, err := l.load()
	if err != nil {
		l.sendError(connID, err)
		return
	}
	l.sendTo(connID, snapshotMessage(l.id, l.version, state))
}

// paletteSize is how many picker-facing color choices ride on each snapshot
// during the picking phase.
const paletteSize = 12

func snapshotMessage(id string, version int, state game.State) types.ServerMessage {
	msg := types.ServerMessage{
		Type:      types.MsgGameUpdate,
		GameID:    id,
		Version:   version,
		GameState: &state,
		Results:   game.Results(state),
	}
	if state.Phase == game.PhasePicking {
		// Derived from the round seed, so every client sees the same choices
		// and a reconnect reproduces them.
		msg.Palette = color.GeneratePalette(state.RoundSeed, paletteSize)
	}
	return msg
}

func (l *Lobby) broadcast(state game.State) {
	msg := snapshotMessage(l.id, l.version, state)
	for id, ch := range l.clients {
		select {
		case ch <- msg:
			// ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(l.clients, id)
		}
	}
}

func (l *Lobby) sendTo(connID string, msg types.ServerMessage) {
	ch, ok := l.clients[connID]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		close(ch)
		delete(l.clients, connID)
	}
}

func (l *Lobby) sendError(connID string, err error) {
	if connID == "" {
		return
	}
	msg := err.Error()
	if errors.Is(err, store.ErrNotFound) {
		msg = game.ErrGameNotFound.Error()
	}
	l.sendTo(connID, types.ServerMessage{Type: types.MsgError, Message: msg})
}

// newSeedFn returns a palette seed source matching the original's
// Math.floor(Math.random()*2^31) range. Round seeds only need to be fresh,
// not cryptographic.
func newSeedFn() func() int64 {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func() int64 { return int64(r.Int31()) }
}

// retire deletes the document, tells the hub to forget this lobby, and stops
// the loop.
func (l *Lobby) retire() {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	if err := l.store.Delete(ctx, l.id); err != nil {
		l.logger.Warn("session delete failed", zap.Error(err))
	}
	cancel()

	select {
	case l.removals <- l.id:
	default:
	}
	l.shutdown()
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch)
		delete(l.clients, id)
	}
	l.cancel()
}
