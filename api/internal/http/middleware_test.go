package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwtpkg "github.com/KhushalAcharya29/real-estate-app/pkg/jwt"
)

func TestRequireRole(t *testing.T) {
	env := setupRouter(t)
	_, clientCookies := env.register(t, "Carl", "carl@x.io", "client")
	_, agentCookies := env.register(t, "Alice", "alice@x.io", "agent")

	rr := env.do(t, http.MethodGet, "/api/v1/properties/agent/my-properties", nil, clientCookies...)
	if rr.Code != http.StatusForbidden || parseMessage(t, rr.Body.String()) != msgForbidden {
		t.Fatalf("expected 403 for client, got %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodGet, "/api/v1/properties/agent/my-properties", nil, agentCookies...)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for agent, got %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodGet, "/api/v1/properties/agent/my-properties", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", rr.Code)
	}
}

func TestRequireRoleWithoutAuthContext(t *testing.T) {
	env := setupRouter(t)
	h := env.router.requireRole("agent")(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		t.Fatal("handler must not run")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	env := setupRouter(t, func(d *Dependencies) { d.HSTS = true })

	rr := env.do(t, http.MethodGet, "/", nil)
	expect := map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "SAMEORIGIN",
		"Referrer-Policy":           "no-referrer",
		"Strict-Transport-Security": "max-age=15552000; includeSubDomains",
	}
	for k, v := range expect {
		if got := rr.Header().Get(k); got != v {
			t.Fatalf("header %s = %q, want %q", k, got, v)
		}
	}
}

func TestCORS(t *testing.T) {
	env := setupRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" ||
		rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("unexpected CORS headers: %v", rr.Header())
	}
	if !strings.Contains(rr.Header().Get("Access-Control-Allow-Methods"), "PATCH") {
		t.Fatalf("expected PATCH in allowed methods")
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "http://evil.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for disallowed preflight, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.test")
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("disallowed simple request must not be granted CORS: %d %v", rr.Code, rr.Header())
	}
}

func TestRecoverPanics(t *testing.T) {
	env := setupRouter(t)
	h := env.router.recoverPanics(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError || parseMessage(t, rr.Body.String()) != msgInternal {
		t.Fatalf("expected 500, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestBodyLimit(t *testing.T) {
	env := setupRouter(t, func(d *Dependencies) { d.MaxBodyBytes = 64 })

	body := `{"name":"` + strings.Repeat("a", 200) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusRequestEntityTooLarge || parseMessage(t, rr.Body.String()) != msgBodyTooLarge {
		t.Fatalf("expected 413, got %d %s", rr.Code, rr.Body.String())
	}

	// unknown length still trips the reader limit
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	req.ContentLength = -1
	rr = httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for chunked body, got %d", rr.Code)
	}
}

func TestGlobalRateLimit(t *testing.T) {
	env := setupRouter(t)
	env.limiter.allowFn = func(key string, limit int, window time.Duration) rateDecision {
		return rateDecision{allowed: false, count: limit, windowEnd: time.Now().Add(30 * time.Second)}
	}

	rr := env.do(t, http.MethodGet, "/api/v1/properties", nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("X-RateLimit-Limit") != "100" || rr.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("unexpected headers %v", rr.Header())
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After")
	}
	env.limiter.mu.Lock()
	calls := append([]rateLimitCall(nil), env.limiter.calls...)
	env.limiter.mu.Unlock()
	if len(calls) != 1 || !strings.HasPrefix(calls[0].key, "global|ip:") {
		t.Fatalf("unexpected limiter calls %+v", calls)
	}

	rr = env.do(t, http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("health probe must bypass limits, got %d", rr.Code)
	}
}

func TestMemoryRateLimiter(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	for i := 1; i <= 3; i++ {
		d := rl.Allow("k", 3, time.Minute)
		if !d.allowed || d.count != i {
			t.Fatalf("request %d: unexpected decision %+v", i, d)
		}
	}
	if d := rl.Allow("k", 3, time.Minute); d.allowed {
		t.Fatalf("expected fourth request to be rejected")
	}
	if d := rl.Allow("other", 3, time.Minute); !d.allowed {
		t.Fatalf("keys must be independent")
	}
	if d := rl.Allow("k", 0, time.Minute); !d.allowed {
		t.Fatalf("zero limit disables limiting")
	}

	mem := rl.(*memoryRateLimiter)
	mem.cleanup(time.Now().Add(2 * time.Minute))
	mem.mu.Lock()
	n := len(mem.entries)
	mem.mu.Unlock()
	if n != 0 {
		t.Fatalf("expected expired windows swept, got %d", n)
	}
}

func TestCookieManagerForcesSecureForSameSiteNone(t *testing.T) {
	cm := newCookieManager(CookieConfig{SameSite: http.SameSiteNoneMode, AccessTTL: time.Minute, RefreshTTL: time.Hour})
	rr := httptest.NewRecorder()
	now := time.Now()
	cm.attach(rr, jwtpkg.Pair{
		AccessToken:      "a",
		RefreshToken:     "r",
		AccessExpiresAt:  now.Add(time.Minute),
		RefreshExpiresAt: now.Add(time.Hour),
	})
	cookies := rr.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	for _, c := range cookies {
		if !c.Secure || c.SameSite != http.SameSiteNoneMode || !c.HttpOnly {
			t.Fatalf("unexpected attributes %+v", c)
		}
	}
	if cookies[0].MaxAge != 60 || cookies[1].MaxAge != 3600 {
		t.Fatalf("unexpected max-age %d/%d", cookies[0].MaxAge, cookies[1].MaxAge)
	}

	defaults := newCookieManager(CookieConfig{})
	if defaults.sameSite != http.SameSiteLaxMode || defaults.secure {
		t.Fatalf("expected lax insecure defaults, got %+v", defaults)
	}
}
