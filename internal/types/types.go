// Package types defines the JSON wire protocol between clients and the server.
package types

import (
	"colornamer/internal/color"
	"colornamer/internal/game"
	"colornamer/internal/scoring"
)

// Client -> server message types.
const (
	MsgJoinGame     = "JOIN_GAME"
	MsgLeaveGame    = "LEAVE_GAME"
	MsgStartGame    = "START_GAME"
	MsgSetColor     = "SET_COLOR"
	MsgSubmitGuess  = "SUBMIT_GUESS"
	MsgNextRound    = "NEXT_ROUND"
	MsgReconnect    = "RECONNECT"
	MsgHeartbeat    = "HEARTBEAT"
	MsgGetGameState = "GET_GAME_STATE"
)

// Server -> client message types.
const (
	MsgConnected    = "CONNECTED"
	MsgReconnected  = "RECONNECTED"
	MsgGameUpdate   = "GAME_UPDATE"
	MsgError        = "ERROR"
	MsgConfirmation = "CONFIRMATION"
)

type ClientMessage struct {
	Type     string       `json:"type"`
	Name     string       `json:"name,omitempty"`
	GameID   string       `json:"gameId,omitempty"`
	PlayerID string       `json:"playerId,omitempty"`
	Color    *color.Color `json:"color,omitempty"`
	Clue     string       `json:"clue,omitempty"`
}

// ServerMessage is every server->client payload. GameState, Results and the
// round palette ride on GAME_UPDATE; Message on ERROR; MessageType/Timestamp
// on CONFIRMATION.
type ServerMessage struct {
	Type        string                `json:"type"`
	GameID      string                `json:"gameId,omitempty"`
	PlayerID    string                `json:"playerId,omitempty"`
	Version     int                   `json:"version,omitempty"`
	GameState   *game.State           `json:"gameState,omitempty"`
	Results     []scoring.RoundResult `json:"results,omitempty"`
	Palette     []color.Color         `json:"palette,omitempty"`
	Message     string                `json:"message,omitempty"`
	MessageType string                `json:"messageType,omitempty"`
	Timestamp   int64                 `json:"timestamp,omitempty"`
}
