package web

import (
	"net/http"

	"repcount/internal/adapters/http/middleware"
	"repcount/internal/domain/account"
)

// registerRoutes maps every endpoint. /api/ and /owner are owner-only and
// /member needs a session; middleware.Gate enforces both before these
// handlers run.
func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /csrf", handleCSRFToken)

	// Home pages, as returned by account.HomePathFor
	mux.Handle("GET /owner", middleware.RequireRole(account.RoleOwner)(http.HandlerFunc(handleDashboard)))
	mux.Handle("GET /member", middleware.RequireRole(account.RoleMember)(http.HandlerFunc(handleMemberCard)))

	// Auth
	mux.HandleFunc("POST /login", handleLogin)
	mux.HandleFunc("POST /logout", handleLogout)
	mux.HandleFunc("POST /account/password", handleChangePassword)

	// Members
	mux.HandleFunc("GET /api/members", handleListMembers)
	mux.HandleFunc("POST /api/members", handleRegisterMember)
	mux.HandleFunc("GET /api/members/{id}", handleGetMember)
	mux.HandleFunc("POST /api/members/{id}/renew", handleRenewMember)
	mux.HandleFunc("POST /api/members/{id}/archive", handleArchiveMember)
	mux.HandleFunc("POST /api/members/{id}/restore", handleRestoreMember)
	mux.HandleFunc("POST /api/members/{id}/account", handleCreateMemberAccount)
	mux.HandleFunc("POST /api/checkin", handleCheckIn)
	mux.HandleFunc("GET /api/inactive", handleInactiveMembers)
	mux.HandleFunc("GET /api/dashboard", handleDashboard)

	// Reminders
	mux.HandleFunc("GET /api/reminders", handleListReminders)
	mux.HandleFunc("POST /api/reminders/sent", handleMarkReminderSent)
	mux.HandleFunc("GET /api/reminders/link", handleReminderLink)
	mux.HandleFunc("POST /api/reminders/digest", handleQueueDigest)

	// Gym settings
	mux.HandleFunc("GET /api/gym", handleGetGym)
	mux.HandleFunc("PUT /api/gym", handleUpdateGym)

	// Operations
	mux.HandleFunc("GET /api/outbox", handleListOutbox)
	mux.HandleFunc("POST /api/outbox/{id}/retry", handleRetryOutbox)
	mux.HandleFunc("POST /api/outbox/{id}/abandon", handleAbandonOutbox)
	mux.HandleFunc("GET /api/perf", handlePerf)

	// Member self-service
	mux.HandleFunc("GET /member/card", handleMemberCard)
}
