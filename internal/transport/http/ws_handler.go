package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"classquest/internal/app"
)

// WSHandler streams class ranking snapshots over a websocket. Clients get the
// current ranking on connect and a fresh one whenever a score lands for the
// class.
type WSHandler struct {
	rankings *app.RankingService
	events   *app.Broadcaster
	upgrader websocket.Upgrader
}

func NewWSHandler(rankings *app.RankingService, events *app.Broadcaster) *WSHandler {
	return &WSHandler{
		rankings: rankings,
		events:   events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServeRanking upgrades the request and pushes ranking snapshots until the
// client disconnects. All writes happen on this goroutine; the read pump only
// detects the close.
func (h *WSHandler) ServeRanking(w http.ResponseWriter, r *http.Request) {
	classID, ok := pathInt(w, r, "id")
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	signals, cancel := h.events.Subscribe(classID)
	defer cancel()

	if err := h.writeRanking(conn, r, classID); err != nil {
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case _, ok := <-signals:
			if !ok {
				return
			}
			if err := h.writeRanking(conn, r, classID); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}
}

func (h *WSHandler) writeRanking(conn *websocket.Conn, r *http.Request, classID int) error {
	ranking := h.rankings.ClassRanking(r.Context(), classID)
	payload, err := json.Marshal(ranking)
	if err != nil {
		return err
	}
	return conn.WriteJSON(outboundMessage{Type: "ranking", Payload: payload})
}
