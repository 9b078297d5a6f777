package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sorenkv/glance/internal/core/domain"
	"github.com/sorenkv/glance/internal/core/port"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: only for dev
	CheckOrigin: func(r *http.Request) bool { return true },
}

// CandidateFeed streams one direction's candidates over a websocket:
// everything published so far first, then live publishes, in order.
func (h *Handler) CandidateFeed(w http.ResponseWriter, r *http.Request) {
	id := domain.CallID(chi.URLParam(r, "callID"))
	dir := domain.Direction(r.URL.Query().Get("direction"))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	feed, err := h.RelayService.Subscribe(ctx, id, identityFrom(r), dir)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}
	defer conn.Close()

	l := log.With().Str("call_id", id.String()).Str("direction", string(dir)).Logger()
	l.Debug().Msg("Candidate feed opened")

	go readUntilClosed(conn, cancel)

	for c := range feed {
		if err := conn.WriteJSON(c); err != nil {
			l.Debug().Err(err).Msg("Candidate feed write failed")
			return
		}
	}

	// feed closed: call ended or client went away
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "call ended"))
	l.Debug().Msg("Candidate feed closed")
}

// CallEvents streams the call's lifecycle events (answer written, call
// ended) to a participant; this backs the caller's answer watch.
func (h *Handler) CallEvents(w http.ResponseWriter, r *http.Request) {
	id := domain.CallID(chi.URLParam(r, "callID"))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, err := h.CallService.Watch(ctx, id, identityFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}
	defer conn.Close()

	l := log.With().Str("call_id", id.String()).Logger()
	l.Debug().Msg("Call events feed opened")

	go readUntilClosed(conn, cancel)

	for ev := range events {
		payload := callEventPayload{Type: string(ev.Type), Answer: ev.Answer}
		if err := conn.WriteJSON(payload); err != nil {
			l.Debug().Err(err).Msg("Call events write failed")
			return
		}
		if ev.Type == port.CallEnded {
			break
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "call ended"))
	l.Debug().Msg("Call events feed closed")
}

// readUntilClosed drains client frames so we notice the peer hanging up the
// socket, then cancels the subscription context.
func readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("Unexpected close error")
			}
			return
		}
	}
}
