package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type notificationJSON struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Severity    string    `json:"severity"`
	CreatedAt   time.Time `json:"createdAt"`
	RemainingMs int64     `json:"remainingMs"`
	Offset      int       `json:"offset"`
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	ns := s.queue.List()
	out := make([]notificationJSON, 0, len(ns))
	for i, v := range toastViews(ns, now) {
		out = append(out, notificationJSON{
			ID:          v.ID,
			Text:        v.Text,
			Severity:    string(v.Severity),
			CreatedAt:   ns[i].CreatedAt,
			RemainingMs: v.RemainingMs,
			Offset:      v.Offset,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	json.NewEncoder(w).Encode(map[string]interface{}{"notifications": out})
}

func (s *Server) handleDismissNotification(w http.ResponseWriter, r *http.Request) {
	s.queue.Dismiss(chi.URLParam(r, "id"))
	s.finishNotificationAction(w, r)
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	s.queue.Clear()
	s.finishNotificationAction(w, r)
}

// finishNotificationAction answers script callers with 204 and plain form
// posts with a redirect back to the page they came from.
func (s *Server) finishNotificationAction(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, localPath(r.Referer(), "/"), http.StatusSeeOther)
}
