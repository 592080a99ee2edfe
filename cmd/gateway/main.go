package main

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veloz-systems/gateway/infrastructure/logging"
	"github.com/veloz-systems/gateway/infrastructure/metrics"
	gwmiddleware "github.com/veloz-systems/gateway/infrastructure/middleware"
	"github.com/veloz-systems/gateway/infrastructure/runtime"
	"github.com/veloz-systems/gateway/internal/audit"
	"github.com/veloz-systems/gateway/internal/auth"
	"github.com/veloz-systems/gateway/internal/bridge"
	"github.com/veloz-systems/gateway/internal/broadcaster"
	"github.com/veloz-systems/gateway/internal/gatewayhttp"
	"github.com/veloz-systems/gateway/internal/handlers"
	"github.com/veloz-systems/gateway/internal/ratelimit"
	"github.com/veloz-systems/gateway/internal/sse"
)

func main() {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("CRITICAL: %v", err)
	}

	logger := logging.NewFromEnv("gateway")

	var m *metrics.Metrics
	if metrics.Enabled() {
		m = metrics.Init("gateway")
	}

	// Auth stack: RBAC role/user stores seeded with the built-in admin
	// role, JWT manager, API key store, credential-priority coordinator.
	roles := auth.NewRoleStore()
	var adminMask auth.Permission
	for _, p := range auth.AllPermissions() {
		adminMask |= p
	}
	roles.SetRole("admin", adminMask)

	users := auth.NewUserStore()
	users.AssignRole(handlers.AdminUserID, "admin")

	rbac := auth.NewRBAC(roles, users)
	decorator := auth.NewDecorator(rbac)

	jwtManager := auth.NewJWTManager(cfg.AccessSecret(), cfg.RefreshSecret())
	jwtManager.SetAccessTokenTTL(cfg.JWTAccessExpiry)
	jwtManager.SetRefreshTokenTTL(cfg.JWTRefreshExpiry)

	apiKeys := auth.NewApiKeyStore()

	var coordinator *auth.Coordinator
	if cfg.AuthEnabled {
		coordinator = auth.NewCoordinator(apiKeys, jwtManager)
	} else {
		coordinator = auth.NewDisabledCoordinator()
	}

	// Event broadcaster and engine bridge.
	bc := broadcaster.New(cfg.SSEHistorySize, m)
	eng := bridge.New(cfg.EnginePath, cfg.EngineArgList(), bc,
		bridge.WithMetrics(m),
		bridge.WithLogger(logger),
	)
	if cfg.EnginePath != "" {
		eng.Start()
	}

	streamHandler := sse.NewHandler(bc,
		sse.WithMaxStreams(cfg.SSEMaxStreams),
		sse.WithKeepAlive(cfg.SSEKeepAlive),
		sse.WithMetrics(m),
		sse.WithLogger(logger),
	)

	limiter := ratelimit.NewLimiter(cfg.RateLimitCapacity, cfg.RateLimitRefill, cfg.RateLimitBucketTTL, m)

	auditLogger := audit.NewLogger(logger, m, audit.WithQueueSize(cfg.AuditQueueSize))

	configStore := handlers.NewConfigStore(map[string]interface{}{
		"rate_limit_capacity": float64(cfg.RateLimitCapacity),
		"rate_limit_refill":   cfg.RateLimitRefill,
	}, []string{"engine_version"})

	h := &handlers.Handlers{
		JWT:           jwtManager,
		APIKeys:       apiKeys,
		RBAC:          rbac,
		Roles:         roles,
		Users:         users,
		Decorator:     decorator,
		Bridge:        eng,
		Config:        configStore,
		Audit:         auditLogger,
		Metrics:       m,
		EngineTimeout: cfg.EngineTimeout,
		StartedAt:     time.Now(),
	}
	h.SetAdminPassword(handlers.NewAdminPassword(cfg.AdminPassword))

	router := gatewayhttp.NewRouter()
	registerRoutes(router, h, streamHandler)

	corsCfg := gatewayhttp.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.CORSOrigins()

	chain := &gatewayhttp.Chain{
		Coordinator: coordinator,
		RateLimiter: limiter,
		CORS:        corsCfg,
		Audit:       auditLogger,
	}

	server := gatewayhttp.NewServer(router, chain)

	validationCfg := gwmiddleware.DefaultValidationConfig()
	validationCfg.AllowedMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions,
	}

	var rootHandler http.Handler = server
	rootHandler = gwmiddleware.NewSecurityHeadersMiddleware(nil).Handler(rootHandler)
	rootHandler = gwmiddleware.NewTimeoutMiddleware(30 * time.Second).Handler(rootHandler)
	rootHandler = gwmiddleware.NewValidationMiddleware(validationCfg).Handler(rootHandler)
	rootHandler = gwmiddleware.NewBodyLimitMiddleware(0).Handler(rootHandler)
	if m != nil {
		rootHandler = gwmiddleware.MetricsMiddleware("gateway", m).Handler(rootHandler)
	}
	rootHandler = gwmiddleware.NewRecoveryMiddleware(logger).Handler(rootHandler)
	rootHandler = gwmiddleware.LoggingMiddleware(logger)(rootHandler)

	if m != nil {
		mux := http.NewServeMux()
		mux.Handle("/", rootHandler)
		mux.Handle("/metrics", promhttp.Handler())
		rootHandler = mux
	}

	httpServer := &http.Server{
		Addr:              cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Handler:           rootHandler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      0, // SSE streams hold connections open indefinitely
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	shutdown := gwmiddleware.NewGracefulShutdown(httpServer, 30*time.Second)
	shutdown.OnShutdown(func() {
		auditLogger.Close()
		limiter.Close()
		if cfg.EnginePath != "" {
			eng.Close()
		}
	})
	shutdown.ListenForSignals()

	go func() {
		log.Printf("gateway starting on %s (env=%s)", httpServer.Addr, runtime.Env())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown.Wait()
}
