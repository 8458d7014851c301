package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"repcount/internal/adapters/http/middleware"
	"repcount/internal/adapters/storage"
	"repcount/internal/application/orchestrators"
	"repcount/internal/application/projections"
	"repcount/internal/domain/account"
	"repcount/internal/domain/attendance"
	"repcount/internal/domain/gym"
	"repcount/internal/domain/lifecycle"
	"repcount/internal/domain/reminder"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// today is the gym-local (IST) calendar day handlers pass inward.
func today() lifecycle.Date {
	return lifecycle.DateOf(timeNow())
}

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response_encode_failed", "error", err.Error())
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// writeError maps application errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, orchestrators.ErrInvalidInput),
		errors.Is(err, lifecycle.ErrMalformedInput),
		errors.Is(err, account.ErrPasswordTooShort),
		errors.Is(err, orchestrators.ErrCurrentPasswordWrong),
		errors.Is(err, orchestrators.ErrNewPasswordSame):
		status = http.StatusBadRequest
	case errors.Is(err, orchestrators.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, orchestrators.ErrAccountLocked),
		errors.Is(err, orchestrators.ErrMemberArchived),
		errors.Is(err, orchestrators.ErrMembershipExpired):
		status = http.StatusForbidden
	case errors.Is(err, storage.ErrNotFound),
		errors.Is(err, projections.ErrNoReminderDue):
		status = http.StatusNotFound
	case errors.Is(err, orchestrators.ErrDuplicatePhone),
		errors.Is(err, orchestrators.ErrSlugTaken),
		errors.Is(err, orchestrators.ErrEmailAlreadyExists),
		errors.Is(err, attendance.ErrAlreadyCheckedIn),
		errors.Is(err, storage.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, reminder.ErrIncompleteContext):
		// A template rendered without a field it needs is a wiring bug, not bad input.
		slog.Error("template_context_incomplete", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
		return
	default:
		internalError(w, err)
		return
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// ownerSession returns the caller's owner session. Gate has already
// rejected everyone else on /api/, so a miss here is a 401.
func ownerSession(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok || !sess.IsOwner() {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "not authenticated"})
		return middleware.Session{}, false
	}
	return sess, true
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCSRFToken handles GET /csrf. The token also rides on every
// response in the X-CSRF-Token header.
func handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]string{"token": middleware.CSRFToken(r)})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Role string `json:"role"`
	Home string `json:"home"`
}

// handleLogin handles POST /login with a JSON body or a form post.
func handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := strictDecode(r, &req); err != nil {
			badRequest(w, "invalid JSON")
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			badRequest(w, "invalid form submission")
			return
		}
		req = loginRequest{Email: r.FormValue("email"), Password: r.FormValue("password")}
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, orchestrators.LoginDeps{
		AccountStore: stores.AccountStore,
		Now:          timeNow,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := sessions.Create(result.AccountID, result.GymID, result.Email, result.Role)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token)
	writeJSON(w, http.StatusOK, loginResponse{Role: result.Role, Home: account.HomePathFor(result.Role)})
}

// handleLogout handles POST /logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// handleChangePassword handles POST /account/password for any signed-in user.
func handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "not authenticated"})
		return
	}
	var req changePasswordRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	err := orchestrators.ExecuteChangePassword(r.Context(), orchestrators.ChangePasswordInput{
		AccountID:       sess.AccountID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	}, orchestrators.ChangePasswordDeps{AccountStore: stores.AccountStore, Now: timeNow})
	if err != nil {
		writeError(w, err)
		return
	}
	var keep string
	if c, err := r.Cookie(middleware.SessionCookieName); err == nil {
		keep = c.Value
	}
	if n := sessions.DeleteForAccount(sess.AccountID, keep); n > 0 {
		slog.Info("auth_event", "event", "sessions_revoked", "account_id", sess.AccountID, "count", n)
	}
	w.WriteHeader(http.StatusNoContent)
}

type gymRequest struct {
	Name           string `json:"name"`
	OwnerEmail     string `json:"owner_email"`
	TelegramChatID int64  `json:"telegram_chat_id"`
	UPIID          string `json:"upi_id"`
	AppLink        string `json:"app_link"`
}

type gymResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	OwnerEmail     string `json:"owner_email"`
	TelegramChatID int64  `json:"telegram_chat_id,omitempty"`
	UPIID          string `json:"upi_id,omitempty"`
	AppLink        string `json:"app_link,omitempty"`
}

func newGymResponse(g gym.Gym) gymResponse {
	return gymResponse{
		ID:             g.ID,
		Name:           g.Name,
		Slug:           g.Slug,
		OwnerEmail:     g.OwnerEmail,
		TelegramChatID: g.TelegramChatID,
		UPIID:          g.UPIID,
		AppLink:        g.AppLink,
	}
}

// handleGetGym handles GET /api/gym
func handleGetGym(w http.ResponseWriter, r *http.Request) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return
	}
	g, err := stores.GymStore.GetByID(r.Context(), sess.GymID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newGymResponse(g))
}

// handleUpdateGym handles PUT /api/gym
func handleUpdateGym(w http.ResponseWriter, r *http.Request) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return
	}
	var req gymRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	g, err := orchestrators.ExecuteUpdateGym(r.Context(), orchestrators.UpdateGymInput{
		GymID: sess.GymID,
		GymSettings: orchestrators.GymSettings{
			Name:           req.Name,
			OwnerEmail:     req.OwnerEmail,
			TelegramChatID: req.TelegramChatID,
			UPIID:          req.UPIID,
			AppLink:        req.AppLink,
		},
	}, orchestrators.UpdateGymDeps{GymStore: stores.GymStore})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newGymResponse(g))
}

// handlePerf handles GET /api/perf with the last hour of request and query timings.
func handlePerf(w http.ResponseWriter, r *http.Request) {
	if _, ok := ownerSession(w, r); !ok {
		return
	}
	if perfCollector == nil {
		writeJSON(w, http.StatusOK, struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(timeNow().Add(-time.Hour), 10))
}
