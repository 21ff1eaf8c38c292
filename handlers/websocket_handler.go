package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/matchplay/tournament-engine/schedule"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the API is served cross-origin behind the cors middleware
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebsocketHandler struct {
	hub *schedule.Hub
}

func NewWebsocketHandler(hub *schedule.Hub) *WebsocketHandler {
	return &WebsocketHandler{hub: hub}
}

// ServeTournament subscribes the caller to live updates of one tournament.
func (h *WebsocketHandler) ServeTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	client := &schedule.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: schedule.RoomForTournament(tournamentID),
	}
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
