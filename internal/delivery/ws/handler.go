package ws

import (
	"net/http"

	"github.com/awais2281/rizqa-ai/internal/models"
	"github.com/awais2281/rizqa-ai/internal/ports"
)

var rooms = map[string]bool{
	models.RoomModel:          true,
	models.RoomTranscriptions: true,
}

// WSHandler subscribes the client to ?room=model|transcriptions. Model
// subscribers get the current status right away.
func WSHandler(hub *Hub, status ports.ModelManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		roomID := r.URL.Query().Get("room")
		if roomID == "" {
			roomID = models.RoomModel
		}
		if !rooms[roomID] {
			http.Error(w, "unknown room", http.StatusBadRequest)
			return
		}

		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		hub.Register(roomID, conn)
		defer hub.Unregister(roomID, conn)

		if roomID == models.RoomModel && status != nil {
			hub.Publish(roomID, models.Event{Type: models.EventStatus, Payload: status.Status()})
		}

		// clients only listen; reading detects disconnects
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
