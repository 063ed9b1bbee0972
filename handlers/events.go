package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mrsmoothy/events"
	"mrsmoothy/middleware"
	"mrsmoothy/models"
)

// Events streams the session's cart and sign-in changes as server-sent
// events. The first event carries the current cart so a header badge can
// render without a separate fetch.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := middleware.SessionID(ctx)
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	ch, stop := h.bus.Channel(sid, 16)
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, h.snapshotEvent(ctx, sid)); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		h.logger.Warn("event stream cannot flush", zap.Error(err))
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func (h *Handler) snapshotEvent(ctx context.Context, sid string) events.Event {
	c := models.Cart{}
	if token := h.state.Token(ctx, sid); token != "" {
		if sc, err := h.server.Get(ctx, token); err == nil {
			c = sc
		}
	} else {
		c = h.guest.Read(ctx, sid)
	}
	ev := cartEvent(sid, c)
	ev.Time = time.Now().UTC()
	return ev
}

func writeEvent(w http.ResponseWriter, ev events.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Topic, b)
	return err
}
