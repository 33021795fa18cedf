package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/observability"
	"github.com/ayusman/mudra/internal/session"
)

const (
	eventBuffer = 32
	writeWait   = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// EventsHandler streams session events to WebSocket clients.
type EventsHandler struct {
	session Session
	log     zerolog.Logger
}

// NewEventsHandler creates a new EventsHandler over s.
func NewEventsHandler(s Session) *EventsHandler {
	return &EventsHandler{session: s, log: observability.Logger("events")}
}

// ServeHTTP upgrades the connection, sends the current snapshot, then relays
// every event until either side goes away.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events, unsubscribe := h.session.Subscribe(eventBuffer)
	defer unsubscribe()

	snap := h.session.Snapshot()
	if err := h.write(conn, session.Event{Type: session.EventSnapshot, At: time.Now(), Snapshot: &snap}); err != nil {
		return
	}

	// Clients only talk to the REST endpoints; reading detects the close.
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
		case ev, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session stopped"),
					time.Now().Add(writeWait))
				return
			}
			if err := h.write(conn, ev); err != nil {
				h.log.Debug().Err(err).Msg("websocket write failed")
				return
			}
		}
	}
}

func (h *EventsHandler) write(conn *websocket.Conn, ev session.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}
