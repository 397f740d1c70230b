package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/giantswarm/youtube-oauth/domain"
	"github.com/giantswarm/youtube-oauth/instrumentation"
	"github.com/giantswarm/youtube-oauth/security"
	"github.com/giantswarm/youtube-oauth/server"
	"github.com/giantswarm/youtube-oauth/youtube"
)

const (
	defaultSearchResults   = 10
	defaultPlaylistResults = 25

	// maxRequestBodySize caps JSON request bodies (1 MiB)
	maxRequestBodySize = 1 << 20

	rateLimiterTypeIP = "ip"
)

// Frontend redirect statuses
const (
	callbackStatusSuccess = "success"
	callbackStatusError   = "error"
)

// QuotaReporter exposes the daily quota counters. quota.Limiter implements it.
type QuotaReporter interface {
	GetCurrentUsage(ctx context.Context) (int64, error)
	GetRemainingQuota(ctx context.Context) (int64, error)
	Limit() int64
}

// Handler serves the authentication endpoints and the YouTube API.
type Handler struct {
	server      *server.Server
	tokens      *server.TokenService
	youtube     *youtube.Service
	quota       QuotaReporter
	sessions    *SessionManager
	config      *Config
	logger      *slog.Logger
	tracer      trace.Tracer
	clientIP    func(*http.Request) string
	rateLimiter *security.RateLimiter
}

// NewHandler creates a new HTTP handler. Call Close to release the rate
// limiter.
func NewHandler(
	srv *server.Server,
	tokens *server.TokenService,
	yt *youtube.Service,
	quota QuotaReporter,
	config *Config,
	logger *slog.Logger,
) (*Handler, error) {
	if srv == nil {
		return nil, fmt.Errorf("server is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service is required")
	}
	if yt == nil {
		return nil, fmt.Errorf("youtube service is required")
	}
	if quota == nil {
		return nil, fmt.Errorf("quota reporter is required")
	}
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	applyDefaults(config)

	h := &Handler{
		server:   srv,
		tokens:   tokens,
		youtube:  yt,
		quota:    quota,
		sessions: NewSessionManager(config.Session.CookieName, tokens.SessionTTL(), config.Session.CookieSecure),
		config:   config,
		logger:   logger,
		tracer:   srv.Instrumentation().Tracer("http"),
		clientIP: security.ClientIPFunc(config.RateLimit.TrustProxy, config.RateLimit.TrustedProxyCount),
	}

	if config.RateLimit.RequestsPerSecond > 0 {
		h.rateLimiter = security.NewRateLimiter(security.RateLimitConfig{
			RequestsPerSecond: config.RateLimit.RequestsPerSecond,
			Burst:             config.RateLimit.Burst,
			Logger:            logger,
		})
	}

	return h, nil
}

// Close stops background goroutines.
func (h *Handler) Close() {
	if h.rateLimiter != nil {
		h.rateLimiter.Stop()
	}
}

// Routes returns the full middleware chain around every endpoint.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	h.handle(mux, "GET /health", "health", h.ServeHealth)

	h.handle(mux, "GET /v1/auth", "authorization", h.ServeAuthorization)
	h.handle(mux, "GET /v1/auth/google/callback", "callback", h.ServeCallback)
	h.handle(mux, "POST /v1/auth/refresh", "refresh", h.ServeRefresh)
	h.handle(mux, "POST /v1/auth/logout", "logout", h.ServeLogout)
	h.handle(mux, "GET /v1/auth/session", "session", h.ServeSession)
	h.handle(mux, "GET /v1/quota", "quota", h.ServeQuota)

	h.handle(mux, "GET /api/youtube/v1/search", "youtube_search", h.ServeSearch)
	h.handle(mux, "GET /api/youtube/v1/search/music", "youtube_search_music", h.ServeSearchMusic)
	h.handle(mux, "GET /api/youtube/v1/playlists", "youtube_playlists_list", h.ServeListPlaylists)
	h.handle(mux, "POST /api/youtube/v1/playlists", "youtube_playlists_create", h.ServeCreatePlaylist)
	h.handle(mux, "GET /api/youtube/v1/playlists/{id}/videos", "youtube_playlist_videos", h.ServeListPlaylistVideos)
	h.handle(mux, "POST /api/youtube/v1/playlists/{id}/videos", "youtube_playlist_add_videos", h.ServeAddVideos)

	var next http.Handler = mux
	if h.rateLimiter != nil {
		next = h.rateLimiter.Middleware(h.clientIP, h.onRateLimited)(next)
	}
	next = security.SecurityHeadersMiddleware(h.config.BaseURL)(next)
	return security.RequestIDMiddleware(next)
}

func (h *Handler) handle(mux *http.ServeMux, pattern, route string, fn http.HandlerFunc) {
	mux.Handle(pattern, h.instrument(route, fn))
}

// instrument wraps a route with a span and the request metrics.
func (h *Handler) instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		ctx, span := h.tracer.Start(r.Context(), "http."+route)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r.WithContext(ctx))

		instrumentation.AddHTTPAttributes(span, r.Method, route, rec.status)
		if rec.status >= http.StatusInternalServerError {
			instrumentation.SetSpanError(span, http.StatusText(rec.status))
		}
		h.recordHTTPMetrics(ctx, route, r.Method, rec.status, startTime)
		h.logger.Debug("Request served",
			"route", route,
			"status", rec.status,
			"request_id", security.GetRequestID(ctx))
	})
}

func (h *Handler) recordHTTPMetrics(ctx context.Context, route, method string, status int, startTime time.Time) {
	duration := time.Since(startTime).Seconds() * 1000 // convert to milliseconds
	h.server.Instrumentation().Metrics().RecordHTTPRequest(ctx, method, route, status, duration)
}

func (h *Handler) onRateLimited(r *http.Request, clientIP string) {
	h.logger.Warn("Rate limit exceeded", "ip", clientIP, "path", r.URL.Path)
	h.server.Auditor.LogRateLimitExceeded(clientIP)
	h.server.Instrumentation().Metrics().RecordRateLimitExceeded(r.Context(), rateLimiterTypeIP)
}

// ServeHealth reports liveness
func (h *Handler) ServeHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// ServeAuthorization starts the PKCE flow and redirects to Google.
func (h *Handler) ServeAuthorization(w http.ResponseWriter, r *http.Request) {
	authURL, err := h.server.Initiate(r.Context())
	if err != nil {
		h.logger.Error("Failed to start authorization flow", "error", err)
		h.writeError(w, err)
		return
	}

	h.server.Auditor.LogAuthorizationStarted(h.clientIP(r))
	http.Redirect(w, r, authURL, http.StatusFound)
}

// ServeCallback completes the authorization, opens a session and sends the
// browser back to the frontend with the outcome.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientIP := h.clientIP(r)
	query := r.URL.Query()

	if errorParam := query.Get("error"); errorParam != "" {
		h.logger.Warn("Provider returned error",
			"error", errorParam,
			"description", query.Get("error_description"))
		h.server.Auditor.LogEvent(security.Event{
			Type:      security.EventAuthorizationDenied,
			IPAddress: clientIP,
			Details:   map[string]any{"error": errorParam},
		})
		h.redirectToFrontend(w, r, callbackStatusError, errorParam)
		return
	}

	code := query.Get("code")
	state := query.Get("state")
	if code == "" || state == "" {
		h.server.Auditor.LogAuthFailure("", clientIP, "missing_code_or_state")
		h.redirectToFrontend(w, r, callbackStatusError, "Missing code or state parameter")
		return
	}

	token, err := h.server.ExchangeCodeForToken(ctx, code, state)
	if err != nil {
		kind, _ := domain.KindOf(err)
		h.server.Auditor.LogAuthFailure("", clientIP, kind.String())
		h.redirectToFrontend(w, r, callbackStatusError, NewErrorResponse(err).Message)
		return
	}

	sessionID := h.sessions.NewSessionID()
	if err := h.tokens.StoreToken(ctx, sessionID, token); err != nil {
		h.logger.Error("Failed to store session token", "error", err)
		h.redirectToFrontend(w, r, callbackStatusError, NewErrorResponse(err).Message)
		return
	}

	h.sessions.SetCookie(w, sessionID)
	h.server.Auditor.LogSessionCreated(sessionID, clientIP)
	h.server.Instrumentation().Metrics().RecordSessionCreated(ctx)
	h.redirectToFrontend(w, r, callbackStatusSuccess, "")
}

func (h *Handler) redirectToFrontend(w http.ResponseWriter, r *http.Request, status, message string) {
	target, err := url.Parse(h.config.FrontendURL)
	if err != nil {
		h.writeError(w, fmt.Errorf("invalid frontend URL: %w", err))
		return
	}
	q := target.Query()
	q.Set("status", status)
	if message != "" {
		q.Set("message", message)
	}
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// ServeRefresh runs a refresh grant for the session's token.
func (h *Handler) ServeRefresh(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Session(r)
	if session.ID == "" {
		h.writeError(w, domain.NewAuthenticationError("No active session", "session cookie is missing"))
		return
	}

	token, err := h.server.Refresh(r.Context(), session.ID)
	if err != nil {
		if domain.IsKind(err, domain.KindResourceNotFound) {
			err = domain.NewAuthenticationError("No active session", "session has expired")
		}
		h.server.Auditor.LogAuthFailure(session.ID, h.clientIP(r), "refresh_failed")
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, NewTokenResponse(token))
}

// ServeLogout removes the session's token and expires the cookie.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	session := h.sessions.Session(r)
	if session.ID != "" {
		if err := h.tokens.RemoveToken(r.Context(), session.ID); err != nil {
			h.writeError(w, err)
			return
		}
		h.server.Auditor.LogSessionEnded(session.ID, h.clientIP(r))
	}

	h.sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// ServeSession reports whether the caller is authenticated.
func (h *Handler) ServeSession(w http.ResponseWriter, r *http.Request) {
	token, err := h.tokens.CurrentToken(r.Context(), h.sessions.Session(r))
	if err != nil {
		if domain.IsKind(err, domain.KindAuthentication) {
			h.writeJSON(w, http.StatusOK, SessionStatusResponse{Authenticated: false})
			return
		}
		h.writeError(w, err)
		return
	}

	expiresAt := token.ExpiresAt
	h.writeJSON(w, http.StatusOK, SessionStatusResponse{Authenticated: true, ExpiresAt: &expiresAt})
}

// ServeQuota reports today's quota consumption.
func (h *Handler) ServeQuota(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	usage, err := h.quota.GetCurrentUsage(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	remaining, err := h.quota.GetRemainingQuota(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, QuotaStatusResponse{
		Usage:     usage,
		Limit:     h.quota.Limit(),
		Remaining: remaining,
	})
}

// ServeSearch searches for music videos.
func (h *Handler) ServeSearch(w http.ResponseWriter, r *http.Request) {
	maxResults, err := intQueryParam(r, "maxResults", defaultSearchResults)
	if err != nil {
		h.writeError(w, err)
		return
	}

	results, err := h.youtube.SearchVideos(r.Context(), h.sessions.Session(r), r.URL.Query().Get("q"), maxResults)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, results)
}

// ServeSearchMusic finds the official video of a track.
func (h *Handler) ServeSearchMusic(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := h.youtube.SearchMusicVideo(r.Context(), h.sessions.Session(r), query.Get("track"), query.Get("artist"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// ServeListPlaylists lists the caller's playlists.
func (h *Handler) ServeListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.youtube.ListPlaylists(r.Context(), h.sessions.Session(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, playlists)
}

// ServeCreatePlaylist creates a private playlist.
func (h *Handler) ServeCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req CreatePlaylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	playlist, err := h.youtube.CreatePlaylist(r.Context(), h.sessions.Session(r), req.Title, req.Description)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, playlist)
}

// ServeListPlaylistVideos returns one page of a playlist's videos.
func (h *Handler) ServeListPlaylistVideos(w http.ResponseWriter, r *http.Request) {
	maxResults, err := intQueryParam(r, "maxResults", defaultPlaylistResults)
	if err != nil {
		h.writeError(w, err)
		return
	}

	page, err := h.youtube.ListPlaylistVideos(r.Context(), h.sessions.Session(r),
		r.PathValue("id"), maxResults, r.URL.Query().Get("pageToken"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// ServeAddVideos appends videos to a playlist.
func (h *Handler) ServeAddVideos(w http.ResponseWriter, r *http.Request) {
	var req AddVideosRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.youtube.AddVideosToPlaylist(r.Context(), h.sessions.Session(r), r.PathValue("id"), req.VideoIDs); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.NewInvalidInputError("body", "Request body must be valid JSON")
	}
	return nil
}

func intQueryParam(r *http.Request, name string, defaultValue int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewInvalidInputError(name, name+" must be an integer")
	}
	return v, nil
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
