package handlers

import (
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ngenohkevin/prize_admin/internal/countdown"
)

const writeWait = 10 * time.Second

// tickMessage is one websocket frame of a live countdown
type tickMessage struct {
	Text  string `json:"text"`
	Valid bool   `json:"valid"`
	countdown.Decomposed
}

// Countdown renders the countdown fragment a polling display swaps in
func (h *Handler) Countdown(w http.ResponseWriter, r *http.Request) {
	target := countdown.ParseTarget(r.URL.Query().Get("target"))
	mode := countdown.ParseMode(r.URL.Query().Get("mode"))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	io.WriteString(w, countdown.Render(target, h.Clock.Now(), mode))
}

// CountdownStream pushes a countdown over a websocket for as long as the
// client stays connected. The refresh cycle is cancelled on disconnect.
func (h *Handler) CountdownStream(w http.ResponseWriter, r *http.Request) {
	target := countdown.ParseTarget(r.URL.Query().Get("target"))
	mode := countdown.ParseMode(r.URL.Query().Get("mode"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Countdown websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Latest tick wins; a slow client skips ticks instead of queueing them.
	ticks := make(chan countdown.Tick, 1)
	handle := countdown.Start(target, func(t countdown.Tick) {
		select {
		case ticks <- t:
		default:
			select {
			case <-ticks:
			default:
			}
			ticks <- t
		}
	}, mode.Interval(), countdown.WithClock(h.Clock), countdown.WithMode(mode))
	defer handle.Cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-h.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case t := <-ticks:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(tickMessage{Text: t.Text, Valid: t.Valid, Decomposed: t.Value}); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("Countdown websocket write failed: %v", err)
				}
				return
			}
		}
	}
}
