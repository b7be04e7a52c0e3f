// Package game is the authoritative session state machine. All mutation goes
// through Apply, which takes a state and a command and returns events, the
// next state and an error; it never reads the clock or any entropy source, so
// seeds and timestamps travel inside the command.
package game

import (
	"errors"

	"colornamer/internal/color"
)

var ErrWrongPhase = errors.New("action not valid in current phase")
var ErrNotHost = errors.New("only the host may do that")
var ErrNotPicker = errors.New("only the current picker may do that")
var ErrPickerCannotGuess = errors.New("the picker does not guess")
var ErrNeedMorePlayers = errors.New("at least 2 players required")
var ErrUnknownPlayer = errors.New("unknown player")
var ErrGameStarted = errors.New("game already started")
var ErrGameNotFound = errors.New("no such game")
var ErrMissingColor = errors.New("missing color")
var ErrColorOutOfRange = errors.New("color out of range")
var ErrMissingName = errors.New("missing name")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhasePicking  Phase = "picking"
	PhaseGuessing Phase = "guessing"
	PhaseReveal   Phase = "reveal"
)

// Player is one roster entry. Order is the fixed join-sequence index; ID is
// stable across reconnects and is the join/leave/ownership key.
type Player struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AvatarColor string `json:"avatarColor"`
	Score       int    `json:"score"`
	Order       int    `json:"order"`
	Connected   bool   `json:"connected"`
	LastSeen    int64  `json:"lastSeen"`
}

// State is the per-session document. PickerIndex is always < len(Players)
// when the roster is non-empty; Guesses is cleared at the start of every
// round; Target is nil except during/after reveal.
type State struct {
	ID           string                 `json:"id"`
	Phase        Phase                  `json:"phase"`
	HostID       string                 `json:"hostId"`
	Players      []Player               `json:"players"`
	PickerIndex  int                    `json:"pickerIndex"`
	RoundNumber  int                    `json:"roundNumber"`
	RoundSeed    int64                  `json:"roundSeed"`
	Clue         string                 `json:"clue"`
	PickedColor  *color.Color           `json:"pickedColor"`
	Target       *color.Color           `json:"target"`
	Guesses      map[string]color.Color `json:"guesses"`
	LastActivity int64                  `json:"lastActivity"`
}

type CommandType string

const (
	CmdJoin        CommandType = "Join"
	CmdLeave       CommandType = "Leave"
	CmdStart       CommandType = "Start"
	CmdSetColor    CommandType = "SetColor"
	CmdSubmitGuess CommandType = "SubmitGuess"
	CmdNextRound   CommandType = "NextRound"
	CmdReconnect   CommandType = "Reconnect"
	CmdHeartbeat   CommandType = "Heartbeat"
	CmdDisconnect  CommandType = "Disconnect"
	CmdSweepIdle   CommandType = "SweepIdle"
)

// Command carries a client intent plus whatever ambient inputs the pure
// transition needs: Now is the wall clock in unix ms, Seed is a fresh palette
// seed for Start/NextRound, IdleCutoff is the SweepIdle liveness threshold.
type Command struct {
	Type       CommandType
	PlayerID   string
	Name       string
	Color      *color.Color
	Clue       string
	Seed       int64
	Now        int64
	IdleCutoff int64
}

type EventType string

const (
	EvtPlayerJoined       EventType = "PlayerJoined"
	EvtPlayerLeft         EventType = "PlayerLeft"
	EvtPlayerReconnected  EventType = "PlayerReconnected"
	EvtPlayerDisconnected EventType = "PlayerDisconnected"
	EvtGameStarted        EventType = "GameStarted"
	EvtColorPicked        EventType = "ColorPicked"
	EvtClueGiven          EventType = "ClueGiven"
	EvtGuessRecorded      EventType = "GuessRecorded"
	EvtRoundRevealed      EventType = "RoundRevealed"
	EvtRoundAdvanced      EventType = "RoundAdvanced"
	EvtTurnSkipped        EventType = "TurnSkipped"
	EvtSessionEmptied     EventType = "SessionEmptied"
)

type Event struct {
	Type     EventType
	PlayerID string
}
