package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/baharkarakas/tpay-mfs/internal/auth"
	"github.com/baharkarakas/tpay-mfs/internal/models"
)

func okHandler(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

func TestAuth(t *testing.T) {
	tm := auth.NewTokenManager("a", "r", "tpay-test", time.Hour, time.Hour)
	pair, err := tm.GeneratePair("acc-1", "agent")
	if err != nil {
		t.Fatal(err)
	}

	var seen UserCtx
	h := NewAuthMiddleware(tm).Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromCtx(r.Context())
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"refresh token", "Bearer " + pair.RefreshToken, http.StatusUnauthorized},
		{"garbage", "Bearer x.y.z", http.StatusUnauthorized},
		{"access token", "bearer " + pair.AccessToken, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("code=%d want=%d body=%s", rr.Code, tc.want, rr.Body.String())
			}
		})
	}
	if seen.UserID != "acc-1" || seen.Role != models.RoleAgent {
		t.Fatalf("ctx user=%+v", seen)
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(models.RoleAdmin)(http.HandlerFunc(okHandler))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous code=%d", rr.Code)
	}

	for role, want := range map[models.Role]int{models.RoleUser: http.StatusForbidden, models.RoleAdmin: http.StatusOK} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithUser(req.Context(), UserCtx{UserID: "u", Role: role}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != want {
			t.Fatalf("role %s code=%d want=%d", role, rr.Code, want)
		}
	}
}

func TestLimiterRefills(t *testing.T) {
	now := time.Unix(0, 0)
	l := newLimiter(2)
	l.now = func() time.Time { return now }

	if !l.allow("a") || !l.allow("a") {
		t.Fatal("burst denied")
	}
	if l.allow("a") {
		t.Fatal("third request within a second allowed")
	}
	if !l.allow("b") {
		t.Fatal("clients share a bucket")
	}
	now = now.Add(500 * time.Millisecond)
	if !l.allow("a") {
		t.Fatal("no refill after half a second")
	}
}

func TestRateLimitResponds429(t *testing.T) {
	h := RateLimit(1)(http.HandlerFunc(okHandler))
	codes := []int{}
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes=%v", codes)
	}
}

func TestRequestID(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = RequestIDFrom(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if got == "" || rr.Header().Get(RequestIDHeader) != got {
		t.Fatalf("minted id=%q header=%q", got, rr.Header().Get(RequestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "abc-123" {
		t.Fatalf("inbound id not reused: %q", got)
	}
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("code=%d", rr.Code)
	}
}
