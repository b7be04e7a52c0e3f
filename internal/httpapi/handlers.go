package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"colornamer/internal/hub"
	"colornamer/internal/lobby"
)

// CreateGame mints a fresh game code and spins up its lobby.
func CreateGame(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var code string
		for {
			c, err := hub.GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			reply := make(chan *lobby.Lobby, 1)
			h.Inbox() <- hub.GetLobby{Code: c, Reply: reply}
			if <-reply == nil {
				code = c
				break
			}
			// collision on code, regenerate
		}

		reply := make(chan *lobby.Lobby, 1)
		h.Inbox() <- hub.EnsureLobby{Code: code, Reply: reply}
		if <-reply == nil {
			http.Error(w, "failed to create game", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Status reports live game count and uptime.
func Status(h *hub.Hub, startTime time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan int, 1)
		h.Inbox() <- hub.CountLobbies{Reply: reply}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Status string  `json:"status"`
			Games  int     `json:"games"`
			Uptime float64 `json:"uptime"`
		}{
			Status: "ok",
			Games:  <-reply,
			Uptime: time.Since(startTime).Seconds(),
		})
	}
}
