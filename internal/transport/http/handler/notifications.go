package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lostfound-api/internal/application/notification"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/sse"
)

const heartbeatInterval = 25 * time.Second

type streamSource interface {
	Subscribe(userID string) (<-chan sse.Event, func())
}

// NotificationHandler handles the notification inbox and its live stream.
type NotificationHandler struct {
	svc       notification.Service
	streams   streamSource
	heartbeat time.Duration
}

func NewNotificationHandler(svc notification.Service, streams streamSource) *NotificationHandler {
	return &NotificationHandler{svc: svc, streams: streams, heartbeat: heartbeatInterval}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	f := domain.NotificationFilter{Limit: parseLimit(r), Cursor: r.URL.Query().Get("cursor")}
	code, err := optionalInt(r, "type")
	if err != nil {
		httpError(w, err)
		return
	}
	if code != nil {
		t, err := domain.ParseNotificationType(*code)
		if err != nil {
			httpError(w, err)
			return
		}
		f.Type = &t
	}
	ns, next, err := h.svc.List(r.Context(), c, f)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, page(ns, next))
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	n, err := h.svc.UnreadCount(r.Context(), c)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, map[string]int{"count": n})
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	n, err := h.svc.MarkAsRead(r.Context(), c, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, n)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	n, err := h.svc.MarkAllRead(r.Context(), c)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, map[string]int{"updated": n})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), c, chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, nil)
}

// Stream pushes new notifications of the caller as server-sent events until
// the client disconnects.
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, unsubscribe := h.streams.Subscribe(c.UserID)
	defer unsubscribe()

	_, _ = fmt.Fprint(w, ": ok\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(ev.Data)
			if err != nil {
				slog.Warn("sse encode failed", "user_id", c.UserID, "event", ev.Type, "err", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
