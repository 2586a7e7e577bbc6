package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"medicare-now/internal/middleware"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler godoc
// @Summary      Live feed de lecturas (websocket)
// @Description  Mandar {"action":"subscribe","topics":["health_data/<uid>"]}; el token puede ir en ?access_token=
// @Tags         realtime
// @Param        access_token  query  string  false  "Session token"
// @Success      101
// @Failure      401  {string}  string
// @Router       /realtime [get]
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || claims.UserID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade ya respondió con el error.
			h.log.Debug("websocket upgrade failed", map[string]any{"err": err})
			return
		}

		c := h.register(claims.UserID)
		h.log.Debug("client connected", map[string]any{"user_id": claims.UserID})

		go h.writePump(c, ws)
		h.readPump(r, c, ws)
	}
}

func (h *Hub) readPump(r *http.Request, c *client, ws *websocket.Conn) {
	defer func() {
		h.unregister(c)
		_ = ws.Close()
		h.log.Debug("client disconnected", map[string]any{"user_id": c.userID})
	}()

	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := r.Context()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendTo(c, Event{Type: EventError, Error: "invalid message", At: h.now()})
			continue
		}
		h.handle(ctx, c, msg)
	}
}

func (h *Hub) writePump(c *client, ws *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
