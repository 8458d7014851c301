package web

import (
	"net/http"
	"strconv"
	"time"

	"repcount/internal/adapters/storage"
	"repcount/internal/domain/outbox"
)

type outboxEntryResponse struct {
	ID              string    `json:"id"`
	ActionType      string    `json:"action_type"`
	Status          string    `json:"status"`
	Attempts        int       `json:"attempts"`
	MaxAttempts     int       `json:"max_attempts"`
	LastAttemptedAt time.Time `json:"last_attempted_at,omitzero"`
	NextAttemptAt   time.Time `json:"next_attempt_at,omitzero"`
	CreatedAt       time.Time `json:"created_at"`
	ErrorMessage    string    `json:"error_message,omitempty"`
}

// handleListOutbox handles GET /api/outbox
// Query: status=failed (default) or status=pending, limit 1..100
func handleListOutbox(w http.ResponseWriter, r *http.Request) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	status := r.URL.Query().Get("status")
	switch status {
	case "":
		status = outbox.StatusFailed
	case outbox.StatusFailed, outbox.StatusPending:
	default:
		badRequest(w, "status must be failed or pending")
		return
	}
	entries, err := stores.OutboxStore.ListForGym(ctx, sess.GymID, status, limit)
	if err != nil {
		internalError(w, err)
		return
	}

	out := make([]outboxEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, outboxEntryResponse{
			ID:              e.ID,
			ActionType:      e.ActionType,
			Status:          e.Status,
			Attempts:        e.Attempts,
			MaxAttempts:     e.MaxAttempts,
			LastAttemptedAt: e.LastAttemptedAt,
			NextAttemptAt:   e.NextAttemptAt,
			CreatedAt:       e.CreatedAt,
			ErrorMessage:    e.ErrorMessage,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// gymOutboxEntry loads an entry the caller's gym owns; others look missing.
func gymOutboxEntry(w http.ResponseWriter, r *http.Request) (outbox.Entry, bool) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return outbox.Entry{}, false
	}
	e, err := stores.OutboxStore.GetByID(r.Context(), r.PathValue("id"))
	if err == nil && e.GymID != sess.GymID {
		err = storage.ErrNotFound
	}
	if err != nil {
		writeError(w, err)
		return outbox.Entry{}, false
	}
	if outboxProcessor == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "outbox processor not running"})
		return outbox.Entry{}, false
	}
	return e, true
}

// handleRetryOutbox handles POST /api/outbox/{id}/retry
func handleRetryOutbox(w http.ResponseWriter, r *http.Request) {
	e, ok := gymOutboxEntry(w, r)
	if !ok {
		return
	}
	if err := outboxProcessor.ProcessSingle(r.Context(), e.ID); err != nil {
		badRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "retry triggered"})
}

// handleAbandonOutbox handles POST /api/outbox/{id}/abandon
func handleAbandonOutbox(w http.ResponseWriter, r *http.Request) {
	e, ok := gymOutboxEntry(w, r)
	if !ok {
		return
	}
	if err := outboxProcessor.AbandonEntry(r.Context(), e.ID); err != nil {
		badRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
}
