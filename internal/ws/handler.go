// Package ws bridges websocket connections to lobby actors: JSON in, intents
// to the lobby, server messages back out.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"colornamer/internal/game"
	"colornamer/internal/hub"
	"colornamer/internal/lobby"
	"colornamer/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	// Clients heartbeat well inside this; a silent socket is a dead one.
	readTimeout = 90 * time.Second
)

func Handler(h *hub.Hub, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("id")

		reply := make(chan *lobby.Lobby, 1)
		if code == "" {
			// Fresh session: connecting without a code creates one.
			generated, err := hub.GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			code = generated
			h.Inbox() <- hub.EnsureLobby{Code: code, Reply: reply}
		} else {
			// A named code must already exist; never silently create under it.
			h.Inbox() <- hub.GetLobby{Code: code, Reply: reply}
		}
		lb := <-reply
		if lb == nil {
			http.Error(w, game.ErrGameNotFound.Error(), http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			logger.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		playerID := uuid.NewString()

		// The handshake identity; RECONNECT may replace it below.
		writeMessage(r.Context(), conn, types.ServerMessage{
			Type:     types.MsgConnected,
			GameID:   code,
			PlayerID: playerID,
		})

		out := make(chan types.ServerMessage, 16)
		lb.Inbox() <- lobby.Attach{ConnID: connID, Outbox: out}
		defer func() {
			lb.Inbox() <- lobby.Detach{ConnID: connID, PlayerID: playerID}
		}()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				writeMessage(ctx, conn, msg)
				cancel()
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Transport loss; lobby.Detach in the defer marks the player
				// disconnected.
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeMessage(r.Context(), conn, types.ServerMessage{
					Type: types.MsgError, Message: "bad json",
				})
				continue
			}

			if cm.Type == types.MsgGetGameState {
				lb.Inbox() <- lobby.Query{ConnID: connID}
				continue
			}

			if cm.Type == types.MsgReconnect && cm.PlayerID != "" {
				playerID = cm.PlayerID
			}

			cmd, ok := toCommand(cm, playerID)
			if !ok {
				writeMessage(r.Context(), conn, types.ServerMessage{
					Type: types.MsgError, Message: "unknown type",
				})
				continue
			}

			lb.Inbox() <- lobby.Intent{ConnID: connID, WireType: cm.Type, Cmd: cmd}
		}
	}
}

func toCommand(m types.ClientMessage, playerID string) (game.Command, bool) {
	switch m.Type {
	case types.MsgJoinGame:
		return game.Command{Type: game.CmdJoin, PlayerID: playerID, Name: m.Name}, true
	case types.MsgLeaveGame:
		return game.Command{Type: game.CmdLeave, PlayerID: playerID}, true
	case types.MsgStartGame:
		return game.Command{Type: game.CmdStart, PlayerID: playerID}, true
	case types.MsgSetColor:
		return game.Command{Type: game.CmdSetColor, PlayerID: playerID, Color: m.Color, Clue: m.Clue}, true
	case types.MsgSubmitGuess:
		return game.Command{Type: game.CmdSubmitGuess, PlayerID: playerID, Color: m.Color}, true
	case types.MsgNextRound:
		return game.Command{Type: game.CmdNextRound, PlayerID: playerID}, true
	case types.MsgReconnect:
		return game.Command{Type: game.CmdReconnect, PlayerID: playerID, Name: m.Name, Color: m.Color}, true
	case types.MsgHeartbeat:
		return game.Command{Type: game.CmdHeartbeat, PlayerID: playerID}, true
	default:
		return game.Command{}, false
	}
}

func writeMessage(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	_ = conn.Write(ctx, websocket.MessageText, payload)
}
