package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/hitoshi/teamcal/internal/auth"
	"github.com/hitoshi/teamcal/internal/metrics"
	"github.com/hitoshi/teamcal/internal/middleware"
	"github.com/hitoshi/teamcal/internal/model"
	"github.com/hitoshi/teamcal/internal/repository"
)

type routerFixture struct {
	handler  http.Handler
	signer   *auth.CookieSigner
	sessions *repository.MemorySessionStore
	members  *repository.InMemoryMemberRepo
}

type stubAvailabilityService struct {
	events []*gcal.Event
	err    error
}

func (s *stubAvailabilityService) Query(ctx context.Context, session *model.Session, memberID int64, query model.AvailabilityQuery) ([]*gcal.Event, error) {
	if session == nil || session.User == nil {
		return nil, model.NewUnauthorizedError()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	signer := auth.NewCookieSigner("router-test-secret")
	sessions := repository.NewMemorySessionStore(time.Hour)
	t.Cleanup(sessions.Stop)
	members := repository.NewInMemoryMemberRepo(nil)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	authService := &mockAuthService{
		loginURLFunc: func(state string) string {
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
		handleCallbackFunc: func(ctx context.Context, code string) (*model.Session, error) {
			session := &model.Session{
				ID: "router-session",
				User: &model.SessionUser{
					Email: "user@example.com",
					Token: &model.OAuthToken{AccessToken: "t"},
				},
			}
			if err := sessions.Create(ctx, session); err != nil {
				return nil, err
			}
			return session, nil
		},
		logoutFunc: func(ctx context.Context, sessionID string) error {
			return sessions.DeleteByID(ctx, sessionID)
		},
	}

	router := NewRouter(&RouterDeps{
		Logger:            logger,
		SessionFinder:     sessions,
		CookieVerifier:    signer,
		CORSAllowedOrigin: "http://localhost:5173",
		SecurityHeaders:   true,
		AuthHandler:       NewAuthHandler(authService, signer, testAuthConfig()),
		MemberHandler:     NewMemberHandler(members),
		AvailabilityHandler: NewAvailabilityHandler(&stubAvailabilityService{
			events: []*gcal.Event{{Id: "event-1"}},
		}, false),
		HealthHandler: NewHealthHandler(nil),
		Collector:     reg,
		Metrics:       collector,
	})

	return &routerFixture{
		handler:  router,
		signer:   signer,
		sessions: sessions,
		members:  members,
	}
}

func (f *routerFixture) authedSession(t *testing.T) *http.Cookie {
	t.Helper()
	session := &model.Session{
		ID: "fixture-session",
		User: &model.SessionUser{
			Email: "user@example.com",
			Token: &model.OAuthToken{AccessToken: "t"},
		},
	}
	if err := f.sessions.Create(context.Background(), session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return &http.Cookie{Name: middleware.SessionCookieName, Value: f.signer.Sign(session.ID)}
}

// TestRouter_AuthFlow はOAuthフローとセッションCookieの往復を検証する。
func TestRouter_AuthFlow(t *testing.T) {
	f := newRouterFixture(t)

	// 1. ログイン開始
	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("login: expected 307, got %d", rec.Code)
	}
	var stateCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == oauthStateCookie {
			stateCookie = c
		}
	}
	if stateCookie == nil {
		t.Fatal("login: expected state cookie")
	}

	// 2. コールバック
	req = httptest.NewRequest(http.MethodGet, "/auth/callback?code=c&state="+stateCookie.Value, nil)
	req.AddCookie(stateCookie)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("callback: expected 307, got %d", rec.Code)
	}
	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.Value != "" {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("callback: expected session cookie")
	}

	// 3. /api/me でユーザー確認
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(sessionCookie)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "user@example.com") {
		t.Errorf("me: expected user payload, got %s", rec.Body.String())
	}

	// 4. ログアウト
	req = httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(sessionCookie)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}

	// 5. ログアウト後の/api/meはnull
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(sessionCookie)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["user"] != nil {
		t.Errorf("expected null user after logout, got %v", body["user"])
	}
}

// TestRouter_MemberEndpoints はメンバーAPIのルーティングを検証する。
func TestRouter_MemberEndpoints(t *testing.T) {
	f := newRouterFixture(t)
	cookie := f.authedSession(t)

	req := httptest.NewRequest(http.MethodPost, "/api/members", strings.NewReader(`{"name":"Alice","email":"alice@example.com","calendarId":"alice@example.com"}`))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/members", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "alice@example.com") {
		t.Errorf("list: expected created member, got %s", rec.Body.String())
	}
}

// TestRouter_AvailabilityEndpoint は空き状況APIのルーティングを検証する。
func TestRouter_AvailabilityEndpoint(t *testing.T) {
	f := newRouterFixture(t)
	cookie := f.authedSession(t)

	target := "/api/availability/1?timezone=Asia/Tokyo&start=2026-09-01T00:00:00%2B09:00&end=2026-09-08T00:00:00%2B09:00"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "event-1") {
		t.Errorf("expected events in response, got %s", rec.Body.String())
	}
}

// TestRouter_AvailabilityUnauthorized は未認証の空き状況照会が401となることを検証する。
func TestRouter_AvailabilityUnauthorized(t *testing.T) {
	f := newRouterFixture(t)

	target := "/api/availability/1?timezone=UTC&start=s&end=e"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

// TestRouter_OperationalEndpoints はヘルスチェックとメトリクスのルーティングを検証する。
func TestRouter_OperationalEndpoints(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}
}

// TestRouter_RateLimitScopedToAPI はレート制限が/api配下にのみ適用されることを検証する。
func TestRouter_RateLimitScopedToAPI(t *testing.T) {
	signer := auth.NewCookieSigner("router-test-secret")
	sessions := repository.NewMemorySessionStore(time.Hour)
	t.Cleanup(sessions.Stop)

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Requests:        1,
		Window:          time.Minute,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(limiter.Stop)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	router := NewRouter(&RouterDeps{
		Logger:              logger,
		SessionFinder:       sessions,
		CookieVerifier:      signer,
		CORSAllowedOrigin:   "http://localhost:5173",
		RateLimiter:         limiter,
		AuthHandler:         NewAuthHandler(&mockAuthService{}, signer, testAuthConfig()),
		MemberHandler:       NewMemberHandler(repository.NewInMemoryMemberRepo(nil)),
		AvailabilityHandler: NewAvailabilityHandler(&stubAvailabilityService{}, false),
		HealthHandler:       NewHealthHandler(nil),
		Collector:           reg,
		Metrics:             metrics.NewCollector(reg),
	})

	// /api配下は2回目で429となる
	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("api request %d: expected %d, got %d", i+1, want, rec.Code)
		}
	}

	// /api外は制限を受けない
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("health request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

// TestRouter_SecurityAndCORS はミドルウェアがルーター全体に適用されることを検証する。
func TestRouter_SecurityAndCORS(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected security headers, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected CORS header, got %q", got)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected request ID header")
	}

	// プリフライト
	req = httptest.NewRequest(http.MethodOptions, "/api/members", nil)
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight: expected 204, got %d", rec.Code)
	}
}
