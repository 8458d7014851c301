package web

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"repcount/internal/adapters/http/middleware"
	"repcount/internal/adapters/storage"
	"repcount/internal/application/listutil"
	"repcount/internal/application/orchestrators"
	"repcount/internal/application/projections"
	"repcount/internal/domain/account"
	"repcount/internal/domain/lifecycle"
	"repcount/internal/domain/payment"
)

type registerMemberRequest struct {
	Name       string          `json:"name"`
	Phone      string          `json:"phone"`
	Email      string          `json:"email"`
	Plan       string          `json:"plan"`
	Fee        decimal.Decimal `json:"fee"`
	JoinedOn   lifecycle.Date  `json:"joined_on"`
	BirthDate  lifecycle.Date  `json:"birth_date"`
	PaidMethod string          `json:"paid_method"`
}

type memberResponse struct {
	Member  projections.MemberView   `json:"member"`
	Payment *projections.PaymentView `json:"payment,omitempty"`
}

func newMemberResponse(view projections.MemberView, p *payment.Payment) memberResponse {
	resp := memberResponse{Member: view}
	if p != nil {
		pv := projections.NewPaymentView(*p)
		resp.Payment = &pv
	}
	return resp
}

// handleListMembers handles GET /api/members
// Query: page, per_page, sort, dir, q, status, archived
func handleListMembers(w http.ResponseWriter, r *http.Request) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return
	}
	params := listutil.ParseListParams(r.URL.Query(), projections.MemberListSortColumns, projections.MemberListFilterKeys)
	result, err := projections.QueryGetMemberList(r.Context(), projections.GetMemberListQuery{
		GymID:  sess.GymID,
		Today:  today(),
		Params: params,
	}, projections.GetMemberListDeps{MemberStore: stores.MemberStore})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleRegisterMember handles POST /api/members
func handleRegisterMember(w http.ResponseWriter, r *http.Request) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return
	}
	var req registerMemberRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	result, err := orchestrators.ExecuteRegisterMember(r.Context(), orchestrators.RegisterMemberInput{
		GymID:      sess.GymID,
		Name:       req.Name,
		Phone:      req.Phone,
		Email:      req.Email,
		Plan:       req.Plan,
		Fee:        req.Fee,
		JoinedOn:   req.JoinedOn,
		BirthDate:  req.BirthDate,
		PaidMethod: req.PaidMethod,
	}, orchestrators.RegisterMemberDeps{
		MemberStore:  stores.MemberStore,
		PaymentStore: stores.PaymentStore,
		Now:          timeNow,
		GenerateID:   generateID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newMemberResponse(projections.NewMemberView(result.Member, today()), result.Payment))
}

// handleGetMember handles GET /api/members/{id} with the full card.
func handleGetMember(w http.ResponseWriter, r *http.Request) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return
	}
	card, err := projections.QueryGetMemberCard(r.Context(), projections.GetMemberCardQuery{
		MemberID: r.PathValue("id"),
		GymID:    sess.GymID,
		Today:    today(),
	}, memberCardDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

type renewRequest struct {
	Months int             `json:"months"`
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
	Note   string          `json:"note"`
}

// handleRenewMember handles POST /api/members/{id}/renew
func handleRenewMember(w http.ResponseWriter, r *http.Request) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return
	}
	var req renewRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	result, err := orchestrators.ExecuteRenewMembership(r.Context(), orchestrators.RenewMembershipInput{
		GymID:    sess.GymID,
		MemberID: r.PathValue("id"),
		Months:   req.Months,
		Amount:   req.Amount,
		Method:   req.Method,
		Note:     req.Note,
	}, orchestrators.RenewMembershipDeps{
		MemberStore:  stores.MemberStore,
		PaymentStore: stores.PaymentStore,
		Now:          timeNow,
		GenerateID:   generateID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMemberResponse(projections.NewMemberView(result.Member, today()), result.Payment))
}

// handleArchiveMember handles POST /api/members/{id}/archive
func handleArchiveMember(w http.ResponseWriter, r *http.Request) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return
	}
	err := orchestrators.ExecuteArchiveMember(r.Context(), orchestrators.ArchiveMemberInput{
		GymID:    sess.GymID,
		MemberID: r.PathValue("id"),
	}, orchestrators.ArchiveMemberDeps{MemberStore: stores.MemberStore})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRestoreMember handles POST /api/members/{id}/restore
func handleRestoreMember(w http.ResponseWriter, r *http.Request) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return
	}
	err := orchestrators.ExecuteRestoreMember(r.Context(), orchestrators.RestoreMemberInput{
		GymID:    sess.GymID,
		MemberID: r.PathValue("id"),
	}, orchestrators.RestoreMemberDeps{MemberStore: stores.MemberStore})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type memberAccountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleCreateMemberAccount handles POST /api/members/{id}/account, giving
// a member a login for their card.
func handleCreateMemberAccount(w http.ResponseWriter, r *http.Request) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return
	}
	var req memberAccountRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	m, err := stores.MemberStore.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if m.GymID != sess.GymID {
		writeError(w, storage.ErrNotFound)
		return
	}
	a, err := orchestrators.ExecuteCreateAccount(r.Context(), orchestrators.CreateAccountInput{
		GymID:    sess.GymID,
		Email:    req.Email,
		Password: req.Password,
		Role:     account.RoleMember,
		MemberID: m.ID,
	}, orchestrators.CreateAccountDeps{
		AccountStore: stores.AccountStore,
		MemberStore:  stores.MemberStore,
		Now:          timeNow,
		GenerateID:   generateID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"account_id": a.ID, "email": a.Email})
}

type checkInRequest struct {
	Code   string `json:"code"`
	Method string `json:"method"`
}

type checkInResponse struct {
	CheckInID  string           `json:"check_in_id"`
	MemberID   string           `json:"member_id"`
	MemberName string           `json:"member_name"`
	Date       lifecycle.Date   `json:"date"`
	Status     lifecycle.Status `json:"status"`
	DaysLeft   int              `json:"days_left"`
}

// handleCheckIn handles POST /api/checkin from the front-desk scanner or
// a manual entry by member ID or phone.
func handleCheckIn(w http.ResponseWriter, r *http.Request) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return
	}
	var req checkInRequest
	if err := strictDecode(r, &req); err != nil {
		badRequest(w, "invalid JSON")
		return
	}
	result, err := orchestrators.ExecuteCheckInMember(r.Context(), orchestrators.CheckInMemberInput{
		GymID:  sess.GymID,
		Code:   req.Code,
		Method: req.Method,
	}, orchestrators.CheckInMemberDeps{
		MemberStore:     stores.MemberStore,
		AttendanceStore: stores.AttendanceStore,
		Now:             timeNow,
		GenerateID:      generateID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkInResponse{
		CheckInID:  result.CheckIn.ID,
		MemberID:   result.CheckIn.MemberID,
		MemberName: result.MemberName,
		Date:       result.CheckIn.Date,
		Status:     result.Status,
		DaysLeft:   result.DaysLeft,
	})
}

// defaultInactiveDays is used when /api/inactive has no days parameter.
const defaultInactiveDays = 7

// handleInactiveMembers handles GET /api/inactive?days=N
func handleInactiveMembers(w http.ResponseWriter, r *http.Request) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return
	}
	days := defaultInactiveDays
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 365 {
			badRequest(w, "days must be between 1 and 365")
			return
		}
		days = n
	}
	results, err := projections.QueryGetInactiveMembers(r.Context(), projections.GetInactiveMembersQuery{
		GymID:                sess.GymID,
		Today:                today(),
		DaysSinceLastCheckIn: days,
	}, projections.GetInactiveMembersDeps{
		MemberStore:  stores.MemberStore,
		CheckInStore: stores.AttendanceStore,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// handleDashboard handles GET /api/dashboard
func handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := ownerSession(w, r)
	if !ok {
		return
	}
	dash, err := projections.QueryGetDashboard(r.Context(), projections.GetDashboardQuery{
		GymID: sess.GymID,
		Today: today(),
	}, projections.GetDashboardDeps{
		MemberStore:  stores.MemberStore,
		CheckInStore: stores.AttendanceStore,
		PaymentStore: stores.PaymentStore,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func memberCardDeps() projections.GetMemberCardDeps {
	return projections.GetMemberCardDeps{
		MemberStore:  stores.MemberStore,
		GymStore:     stores.GymStore,
		CheckInStore: stores.AttendanceStore,
		PaymentStore: stores.PaymentStore,
	}
}

// handleMemberCard handles GET /member/card for the signed-in member.
// Owners may preview a member's card with ?member_id=.
func handleMemberCard(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "not authenticated"})
		return
	}
	query := projections.GetMemberCardQuery{GymID: sess.GymID, Today: today()}
	if sess.IsOwner() {
		query.MemberID = r.URL.Query().Get("member_id")
		if query.MemberID == "" {
			badRequest(w, "member_id is required")
			return
		}
	} else {
		query.AccountID = sess.AccountID
	}
	card, err := projections.QueryGetMemberCard(r.Context(), query, memberCardDeps())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}
