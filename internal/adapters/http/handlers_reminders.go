package web

import (
	"net/http"

	"repcount/internal/application/orchestrators"
	"repcount/internal/application/projections"
	"repcount/internal/domain/reminder"
)

func dueReminderDeps() projections.GetDueRemindersDeps {
	return projections.GetDueRemindersDeps{
		MemberStore:      stores.MemberStore,
		GymStore:         stores.GymStore,
		CheckInStore:     stores.AttendanceStore,
		ReminderLogStore: stores.ReminderLogStore,
	}
}

// handleListReminders handles GET /api/reminders
// Query: include_sent=true keeps reminders already sent today, flagged sent.
func handleListReminders(w http.ResponseWriter, r *http.Request) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return
	}
	result, err := projections.QueryGetDueReminders(r.Context(), projections.GetDueRemindersQuery{
		GymID:       sess.GymID,
		Today:       today(),
		IncludeSent: r.URL.Query().Get("include_sent") == "true",
	}, dueReminderDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type markSentRequest struct {
	MemberID string        `json:"member_id"`
	Kind     reminder.Kind `json:"kind"`
}

type markSentResponse struct {
	MemberID    string        `json:"member_id"`
	Kind        reminder.Kind `json:"kind"`
	SentOn      string        `json:"sent_on"`
	AlreadySent bool          `json:"already_sent"`
}

// handleMarkReminderSent handles POST /api/reminders/sent after the owner
// has sent the WhatsApp message.
func handleMarkReminderSent(w http.ResponseWriter, r *http.Request) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return
	}
	var req markSentRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	result, err := orchestrators.ExecuteMarkReminderSent(r.Context(), orchestrators.MarkReminderSentInput{
		GymID:    sess.GymID,
		MemberID: req.MemberID,
		Kind:     req.Kind,
	}, orchestrators.MarkReminderSentDeps{
		MemberStore:      stores.MemberStore,
		ReminderLogStore: stores.ReminderLogStore,
		Now:              timeNow,
		GenerateID:       generateID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	status := http.StatusCreated
	if result.AlreadySent {
		status = http.StatusOK
	}
	writeJSON(w, status, markSentResponse{
		MemberID:    result.Entry.MemberID,
		Kind:        result.Entry.Kind,
		SentOn:      result.Entry.SentOn.String(),
		AlreadySent: result.AlreadySent,
	})
}

// handleReminderLink handles GET /api/reminders/link?member_id=&kind=
// and redirects to the prefilled wa.me chat. Without kind the policy picks one.
func handleReminderLink(w http.ResponseWriter, r *http.Request) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	memberID := q.Get("member_id")
	if memberID == "" {
		badRequest(w, "member_id is required")
		return
	}
	kind := reminder.Kind(q.Get("kind"))
	if kind != "" && !kind.Valid() {
		badRequest(w, reminder.ErrUnknownKind.Error())
		return
	}

	due, err := projections.QueryGetReminder(r.Context(), projections.GetReminderQuery{
		GymID:    sess.GymID,
		MemberID: memberID,
		Kind:     kind,
		Today:    today(),
	}, projections.GetReminderDeps{
		MemberStore:  stores.MemberStore,
		GymStore:     stores.GymStore,
		CheckInStore: stores.AttendanceStore,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, due.Link, http.StatusFound)
}

// handleQueueDigest handles POST /api/reminders/digest, queuing today's
// owner digest now instead of waiting for the worker.
func handleQueueDigest(w http.ResponseWriter, r *http.Request) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return
	}
	result, err := orchestrators.ExecuteQueueReminderDigest(r.Context(), orchestrators.QueueReminderDigestInput{
		GymID: sess.GymID,
		Today: today(),
	}, orchestrators.QueueReminderDigestDeps{
		GymStore:    stores.GymStore,
		Reminders:   dueReminderDeps(),
		OutboxStore: stores.OutboxStore,
		Now:         timeNow,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reminders":      result.Reminders,
		"queued":         len(result.Queued),
		"already_queued": result.AlreadyQueued,
	})
}
