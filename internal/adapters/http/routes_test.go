package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"repcount/internal/adapters/http/middleware"
	"repcount/internal/adapters/http/perf"
	"repcount/internal/domain/account"
)

// TestNewMux_LoginThenAPI drives the whole middleware chain with a real cookie.
func TestNewMux_LoginThenAPI(t *testing.T) {
	s := newTestStores(t)
	seedLogin(t, s, "a-owner", "g1", "owner@fitzone.in", account.RoleOwner, "correct-horse")
	prevRate := RateLimitPerSecond
	RateLimitPerSecond = 1000
	t.Cleanup(func() { RateLimitPerSecond = prevRate })

	collector := perf.NewCollector(100)
	h := NewMux(s, collector)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous dashboard status = %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"owner@fitzone.in","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", rr.Code, rr.Body.String())
	}
	cookie := rr.Result().Cookies()[0]

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rr.Code)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}

	req = httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/owner" {
		t.Errorf("signed-in GET /login = %d -> %q", rr.Code, rr.Header().Get("Location"))
	}

	if collector.TotalRecorded() < 3 {
		t.Errorf("TotalRecorded = %d, want at least 3", collector.TotalRecorded())
	}
}

// newTestMux builds the full chain with rate limiting out of the way.
func newTestMux(t *testing.T) (*Stores, http.Handler) {
	t.Helper()
	s := newTestStores(t)
	prevRate := RateLimitPerSecond
	RateLimitPerSecond = 1000
	t.Cleanup(func() { RateLimitPerSecond = prevRate })
	return s, NewMux(s, nil)
}

// send runs req through h with every cookie in jar attached.
func send(h http.Handler, req *http.Request, jar []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range jar {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

// TestNewMux_CSRFTokenRoundTrip signs in with a browser form and archives
// a member with a bodiless post, both carrying the token from GET /csrf.
func TestNewMux_CSRFTokenRoundTrip(t *testing.T) {
	s, h := newTestMux(t)
	seedLogin(t, s, "a-owner", "g1", "owner@fitzone.in", account.RoleOwner, "correct-horse")

	rr := send(h, httptest.NewRequest(http.MethodGet, "/csrf", nil), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /csrf status = %d", rr.Code)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil || body.Token == "" {
		t.Fatalf("GET /csrf body: token %q, err %v", body.Token, err)
	}
	if rr.Header().Get(middleware.CSRFHeader) == "" {
		t.Error("GET /csrf response has no X-CSRF-Token header")
	}
	jar := rr.Result().Cookies()
	if len(jar) == 0 {
		t.Fatal("GET /csrf set no cookie")
	}

	form := url.Values{"email": {"owner@fitzone.in"}, "password": {"correct-horse"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(middleware.CSRFHeader, body.Token)
	rr = send(h, req, jar)
	if rr.Code != http.StatusOK {
		t.Fatalf("form login status = %d, body = %s", rr.Code, rr.Body.String())
	}
	jar = append(jar, rr.Result().Cookies()...)

	req = httptest.NewRequest(http.MethodPost, "/api/members/m1/archive", nil)
	rr = send(h, req, jar)
	if rr.Code != http.StatusForbidden {
		t.Errorf("archive without token status = %d, want 403", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/members/m1/archive", nil)
	req.Header.Set(middleware.CSRFHeader, body.Token)
	rr = send(h, req, jar)
	if rr.Code != http.StatusNoContent {
		t.Errorf("archive with token status = %d, body = %s", rr.Code, rr.Body.String())
	}
}

func TestNewMux_HomePages(t *testing.T) {
	s, h := newTestMux(t)
	seedLogin(t, s, "a-owner", "g1", "owner@fitzone.in", account.RoleOwner, "correct-horse")

	rr := send(h, httptest.NewRequest(http.MethodGet, "/owner", nil), nil)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
		t.Errorf("anonymous /owner = %d -> %q", rr.Code, rr.Header().Get("Location"))
	}

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"owner@fitzone.in","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = send(h, req, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d", rr.Code)
	}
	var login struct {
		Home string `json:"home"`
	}
	json.NewDecoder(rr.Body).Decode(&login)
	jar := rr.Result().Cookies()

	rr = send(h, httptest.NewRequest(http.MethodGet, login.Home, nil), jar)
	if rr.Code != http.StatusOK {
		t.Errorf("GET %s as owner = %d, want 200", login.Home, rr.Code)
	}
	rr = send(h, httptest.NewRequest(http.MethodGet, "/member", nil), jar)
	if rr.Code != http.StatusForbidden {
		t.Errorf("GET /member as owner = %d, want 403", rr.Code)
	}
}

func TestNewMux_Healthz(t *testing.T) {
	s := newTestStores(t)
	h := NewMux(s, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("healthz = %d %s", rr.Code, rr.Body.String())
	}
}

func TestHandlePerf(t *testing.T) {
	newTestStores(t)
	perfCollector = perf.NewCollector(10)
	t.Cleanup(func() { perfCollector = nil })
	perfCollector.Record(perf.Entry{Kind: perf.KindRequest, Path: "GET /api/dashboard", StatusCode: 200, DurationMs: 3, Timestamp: testClock})

	rr := serve(authRequest(http.MethodGet, "/api/perf", nil, ownerSess))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"GET /api/dashboard"`) {
		t.Errorf("perf = %d %s", rr.Code, rr.Body.String())
	}
	if rr := serve(authRequest(http.MethodGet, "/api/perf", nil, middleware.Session{})); rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous perf status = %d", rr.Code)
	}
}
