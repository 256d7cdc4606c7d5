package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/valuablehost/hostpulse/internal/auth"
	"github.com/valuablehost/hostpulse/internal/badge"
	"github.com/valuablehost/hostpulse/internal/cache"
	"github.com/valuablehost/hostpulse/internal/config"
	apierrors "github.com/valuablehost/hostpulse/internal/errors"
	"github.com/valuablehost/hostpulse/internal/evaluation"
	"github.com/valuablehost/hostpulse/internal/host"
	"github.com/valuablehost/hostpulse/internal/ingest"
	"github.com/valuablehost/hostpulse/internal/leaderboard"
	"github.com/valuablehost/hostpulse/internal/logging"
	"github.com/valuablehost/hostpulse/internal/middleware"
	"github.com/valuablehost/hostpulse/internal/monitoring"
	"github.com/valuablehost/hostpulse/internal/sms"
)

// APIServer represents the main API server
type APIServer struct {
	config           *config.Config
	router           *gin.Engine
	db               *pgxpool.Pool
	redis            *cache.Redis
	authService      *auth.Service
	jwtAuthenticator *middleware.JWTAuthenticator
	hostService      *host.Service
	store            *evaluation.Store
	ranker           *leaderboard.Ranker
	ingestService    *ingest.Service
	smsService       *sms.Service
	engine           *badge.Engine
}

// NewAPIServer creates a new API server instance
func NewAPIServer(cfg *config.Config, db *pgxpool.Pool, redisCache *cache.Redis) (*APIServer, error) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	criteria, err := badge.CriteriaFromConfig(&cfg.Badge)
	if err != nil {
		return nil, err
	}
	engine := badge.NewEngine(criteria)

	store := evaluation.NewStore(db)
	hostService := host.NewService(db, store, engine)
	ranker := leaderboard.NewRanker(db, engine)
	ingestService := ingest.NewService(store, hostService)

	var sender sms.Sender
	if cfg.SMS.Enabled {
		sender = sms.NewTwilioSender(&cfg.SMS)
	} else {
		sender = sms.NewLogSender()
	}
	smsService := sms.NewService(sender, hostService, &cfg.SMS)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(monitoring.MetricsMiddleware())
	router.Use(logging.RequestLogger())

	srv := &APIServer{
		config:           cfg,
		router:           router,
		db:               db,
		redis:            redisCache,
		authService:      auth.NewService(db, &cfg.JWT),
		jwtAuthenticator: middleware.NewJWTAuthenticator(&cfg.JWT),
		hostService:      hostService,
		store:            store,
		ranker:           ranker,
		ingestService:    ingestService,
		smsService:       smsService,
		engine:           engine,
	}

	srv.setupRoutes()
	return srv, nil
}

// Router returns the gin router
func (s *APIServer) Router() http.Handler {
	return s.router
}

// setupRoutes configures all API routes
func (s *APIServer) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api")
	{
		// Public routes
		public := api.Group("/public")
		{
			public.GET("/leaderboard", s.handleLeaderboard)
			public.GET("/host/:id", s.handleGetHost)
			public.GET("/host/:id/reviews", s.handleHostReviews)
			public.GET("/badge-criteria", s.handleBadgeCriteria)
			public.GET("/community-stats", s.handleCommunityStats)
		}

		// Auth routes (public)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", s.handleLogin)
			authGroup.POST("/refresh", s.handleRefresh)
		}

		// Admin routes (protected - requires admin role)
		admin := api.Group("/admin")
		admin.Use(s.jwtAuthenticator.JWTAuth())
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("/hosts", s.handleCreateHost)
			admin.GET("/hosts/performance", s.handleHostPerformance)
			admin.PATCH("/hosts/:id/badge-override", s.handleBadgeOverride)
			admin.GET("/hosts/:id/evaluations", s.handleHostEvaluations)
			admin.POST("/evaluations/send", s.handleSendEvaluations)
			admin.GET("/stats/overview", s.handleStatsOverview)
			admin.POST("/users", s.handleRegisterUser)
		}

		// Host portal routes (protected - host accounts only)
		hostGroup := api.Group("/host")
		hostGroup.Use(s.jwtAuthenticator.JWTAuth())
		hostGroup.Use(middleware.RequireHost())
		{
			hostGroup.GET("/me", s.handleMyHost)
			hostGroup.GET("/me/evaluations", s.handleMyEvaluations)
		}

		// Inbound SMS webhook (rate limited per sender)
		twilio := api.Group("/twilio")
		twilio.Use(middleware.WebhookRateLimit(s.redis, &s.config.RateLimit))
		{
			twilio.POST("/webhook/message", s.handleInboundMessage)
		}
	}
}

// healthCheck reports service and dependency health
func (s *APIServer) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	dbStatus := "healthy"
	if err := s.db.Ping(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	stat := s.db.Stat()
	monitoring.SetDBConnections(int(stat.AcquiredConns()), int(stat.IdleConns()))

	redisStatus := "healthy"
	if err := s.redis.Ping(ctx); err != nil {
		redisStatus = "unhealthy"
	}

	status := http.StatusOK
	if dbStatus != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   dbStatus,
		"service":  "api",
		"database": dbStatus,
		"redis":    redisStatus,
	})
}

// handleLogin handles user login
func (s *APIServer) handleLogin(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	resp, err := s.authService.Login(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUserDisabled):
			respondError(c, apierrors.ErrInvalidCredentialsError)
		default:
			respondError(c, apierrors.ErrInternalServerError)
		}
		return
	}

	respondOK(c, http.StatusOK, gin.H{"user": resp.User, "tokens": resp.Tokens})
}

// handleRefresh handles token refresh
func (s *APIServer) handleRefresh(c *gin.Context) {
	var req auth.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	tokens, err := s.authService.RefreshTokens(c.Request.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			respondError(c, apierrors.ErrTokenExpiredError)
		case errors.Is(err, auth.ErrUserNotFound):
			respondError(c, apierrors.ErrUserNotFoundError)
		case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrUserDisabled):
			respondError(c, apierrors.ErrInvalidCredentialsError)
		default:
			respondError(c, apierrors.ErrInternalServerError)
		}
		return
	}

	respondOK(c, http.StatusOK, gin.H{"tokens": tokens})
}

// handleRegisterUser creates an operator account (admin only)
func (s *APIServer) handleRegisterUser(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.NewValidationError(err.Error()))
		return
	}

	user, err := s.authService.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailAlreadyExists):
			respondError(c, apierrors.NewInvalidRequestError("Email already registered"))
		case errors.Is(err, auth.ErrHostRequired):
			respondError(c, apierrors.NewValidationError("Host accounts must include host_id"))
		default:
			respondError(c, apierrors.ErrInternalServerError)
		}
		return
	}

	respondOK(c, http.StatusCreated, gin.H{"user": user})
}

// respondOK sends the success envelope
func respondOK(c *gin.Context, status int, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(status, body)
}

// respondError sends a standardized error response
func respondError(c *gin.Context, err *apierrors.APIError) {
	c.JSON(err.HTTPStatus, apierrors.NewErrorResponse(err, middleware.GetRequestIDFromContext(c)))
}

// windowDays reads an optional trailing-window override from the
// query string, bounded to a year. On an invalid value it writes the
// validation response and reports false.
func (s *APIServer) windowDays(c *gin.Context) (int, bool) {
	raw := c.Query("window_days")
	if raw == "" {
		return s.config.Badge.WindowDays, true
	}
	parsed, err := parsePositiveInt(raw, 366)
	if err != nil {
		respondError(c, apierrors.NewValidationError("window_days must be an integer between 1 and 366"))
		return 0, false
	}
	return parsed, true
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
