package httpx

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KhushalAcharya29/real-estate-app/api/internal/domain"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/service/auth"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/service/interest"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/service/property"
	"github.com/KhushalAcharya29/real-estate-app/api/internal/ws"
)

const (
	apiPrefix              = "/api/v1"
	rateWindowDefault      = time.Minute
	rateWindowRealtime     = 30 * time.Second
	rateLimitRegister      = 5
	rateLimitLogin         = 12
	rateLimitRefresh       = 30
	rateLimitUserWrite     = 60
	rateLimitFeed          = 30
	healthCheckTimeout     = 2 * time.Second
	defaultSSEHeartbeat    = 15 * time.Second
	defaultGlobalRateLimit = 100
)

// HealthCheck reports the health of one backing component.
type HealthCheck struct {
	Name  string
	Check func(context.Context) error
}

// Dependencies collects everything the router needs.
type Dependencies struct {
	Logger       *slog.Logger
	Auth         auth.Service
	Properties   property.Service
	Interests    interest.Service
	Feed         *ws.Hub
	Limiter      RateLimiter
	Cookies      CookieConfig
	CORSOrigins  []string
	RateLimit    int
	MaxBodyBytes int64
	HSTS         bool
	Health       []HealthCheck
	Registerer   prometheus.Registerer
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux          *http.ServeMux
	handler      http.Handler
	logger       *slog.Logger
	auth         auth.Service
	properties   property.Service
	interests    interest.Service
	feed         *ws.Hub
	cookies      cookieManager
	upgrader     websocket.Upgrader
	limiter      RateLimiter
	metrics      *routerMetrics
	corsOrigins  []string
	rateLimit    int
	maxBody      int64
	hsts         bool
	health       []HealthCheck
	sseHeartbeat time.Duration
}

// NewRouter assembles routes and the global interceptor pipeline.
func NewRouter(deps Dependencies) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		mux:          http.NewServeMux(),
		logger:       logger,
		auth:         deps.Auth,
		properties:   deps.Properties,
		interests:    deps.Interests,
		feed:         deps.Feed,
		cookies:      newCookieManager(deps.Cookies),
		limiter:      deps.Limiter,
		metrics:      newRouterMetrics(deps.Registerer),
		corsOrigins:  normalizeOrigins(deps.CORSOrigins),
		rateLimit:    deps.RateLimit,
		maxBody:      deps.MaxBodyBytes,
		hsts:         deps.HSTS,
		health:       deps.Health,
		sseHeartbeat: defaultSSEHeartbeat,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	if r.rateLimit == 0 {
		r.rateLimit = defaultGlobalRateLimit
	}
	r.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(req *http.Request) bool {
			origin := req.Header.Get("Origin")
			return origin == "" || r.originAllowed(origin)
		},
	}
	r.register()
	r.handler = chain(r.mux,
		r.audit,
		r.recoverPanics,
		r.securityHeaders,
		r.cors,
		r.globalRateLimit,
		r.limitBody,
	)
	return r
}

// ServeHTTP runs the request through the interceptor pipeline.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	agent := []func(http.Handler) http.Handler{r.requireAuth, r.requireRole(domain.RoleAgent)}
	client := []func(http.Handler) http.Handler{r.requireAuth, r.requireRole(domain.RoleClient)}
	userWrite := r.withRateLimit("user_write", rateLimitUserWrite, rateWindowDefault, rateLimitKeyUser)

	r.handle("GET /{$}", http.HandlerFunc(r.handleRoot))
	r.handle("GET /healthz", http.HandlerFunc(r.handleHealthz))
	r.handle("GET /metrics", promhttp.Handler())

	r.handle("POST "+apiPrefix+"/auth/register", chain(http.HandlerFunc(r.handleRegister),
		r.withRateLimit("register", rateLimitRegister, rateWindowDefault, rateLimitKeyIP)))
	r.handle("POST "+apiPrefix+"/auth/login", chain(http.HandlerFunc(r.handleLogin),
		r.withRateLimit("login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP)))
	r.handle("POST "+apiPrefix+"/auth/logout", http.HandlerFunc(r.handleLogout))
	r.handle("POST "+apiPrefix+"/auth/refresh", chain(http.HandlerFunc(r.handleRefresh),
		r.withRateLimit("refresh", rateLimitRefresh, rateWindowDefault, rateLimitKeyIP)))
	r.handle("GET "+apiPrefix+"/auth/me", chain(http.HandlerFunc(r.handleMe), r.requireAuth))

	r.handle("GET "+apiPrefix+"/properties", http.HandlerFunc(r.handleListProperties))
	r.handle("GET "+apiPrefix+"/properties/{id}", http.HandlerFunc(r.handleGetProperty))
	r.handle("GET "+apiPrefix+"/properties/agent/my-properties", chain(http.HandlerFunc(r.handleMyProperties), agent...))
	r.handle("POST "+apiPrefix+"/properties/agent", chain(http.HandlerFunc(r.handleCreateProperty), append(agent, userWrite)...))
	r.handle("PATCH "+apiPrefix+"/properties/agent/{id}", chain(http.HandlerFunc(r.handleUpdateProperty), append(agent, userWrite)...))
	r.handle("DELETE "+apiPrefix+"/properties/agent/{id}", chain(http.HandlerFunc(r.handleDeleteProperty), append(agent, userWrite)...))

	r.handle("POST "+apiPrefix+"/interests", chain(http.HandlerFunc(r.handleExpressInterest), append(client, userWrite)...))
	r.handle("GET "+apiPrefix+"/interests", chain(http.HandlerFunc(r.handleMyInterests), client...))
	r.handle("DELETE "+apiPrefix+"/interests/{propertyId}", chain(http.HandlerFunc(r.handleRemoveInterest), append(client, userWrite)...))
	r.handle("GET "+apiPrefix+"/interests/property/{propertyId}/clients", chain(http.HandlerFunc(r.handleInterestedClients), agent...))

	feedLimit := r.withRateLimit("feed", rateLimitFeed, rateWindowRealtime, rateLimitKeyUser)
	r.handle("GET "+apiPrefix+"/interests/feed", chain(http.HandlerFunc(r.handleFeedWS), append(agent, feedLimit)...))
	r.handle("GET "+apiPrefix+"/interests/feed/sse", chain(http.HandlerFunc(r.handleFeedSSE), append(agent, feedLimit)...))

	r.mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
}

type routeSetter interface {
	SetRoute(string)
}

// handle registers h and reports its pattern to the audit recorder.
func (r *Router) handle(pattern string, h http.Handler) {
	r.mux.Handle(pattern, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if setter, ok := w.(routeSetter); ok {
			setter.SetRoute(pattern)
		}
		h.ServeHTTP(w, req)
	}))
}

func (r *Router) handleRoot(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Real Estate API Running"})
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	components := make(map[string]any)
	status := "ok"
	for _, hc := range r.health {
		if hc.Check == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		err := hc.Check(ctx)
		cancel()
		if err != nil {
			status = "degraded"
			components[hc.Name] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
			continue
		}
		components[hc.Name] = map[string]any{"status": "up"}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		route := recorder.route
		if route == "" {
			route = "unmatched"
		}
		r.metrics.request(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"route", route,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = info.Role
			fields = append(fields, "user_id", info.UserID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
	route  string
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) SetRoute(route string) {
	sr.route = route
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		sr.status = http.StatusSwitchingProtocols
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin != "" {
			out = append(out, origin)
		}
	}
	return out
}
