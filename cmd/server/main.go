package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kmettler/habitloop/internal/cache"
	"github.com/kmettler/habitloop/internal/config"
	"github.com/kmettler/habitloop/internal/database"
	"github.com/kmettler/habitloop/internal/handlers"
	"github.com/kmettler/habitloop/internal/logger"
	"github.com/kmettler/habitloop/internal/middleware"
	"github.com/kmettler/habitloop/internal/queue"
	"github.com/kmettler/habitloop/internal/services/ai"
	"github.com/kmettler/habitloop/internal/services/chat"
	"github.com/kmettler/habitloop/internal/services/oidc"
	"github.com/kmettler/habitloop/internal/telemetry"
	"github.com/kmettler/habitloop/internal/workers"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.JWTIssuer == "" {
		log.Fatal("JWT_ISSUER is required")
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// OpenTelemetry tracing if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "habitloop-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	redisLimiter, err := middleware.NewRedisRateLimiter(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisLimiter.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	// The routine pattern cache shares the Redis instance with the rate limiter
	routineCache := cache.NewRoutineCacheWithClient(redisLimiter.Client())

	// Connect to RabbitMQ with retries to cover broker startup delays
	jobQueue, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_rabbitmq")

	// Repositories
	habitRepo := database.NewHabitRepository(db)
	tagRepo := database.NewTagRepository(db)
	factRepo := database.NewFactRepository(db)
	chatStore := database.NewChatStore(db, habitRepo, tagRepo, factRepo)

	// Token verification
	jwksURL := cfg.JWKSURL
	if jwksURL == "" {
		discoverCtx, discoverCancel := context.WithTimeout(context.Background(), 10*time.Second)
		jwksURL, err = oidc.DiscoverJWKSURL(discoverCtx, cfg.JWTIssuer)
		discoverCancel()
		if err != nil {
			zapLogger.Fatal("failed_to_discover_jwks_url", zap.Error(err))
		}
	}
	verifier := oidc.NewVerifier(oidc.NewJWKSManager(), cfg.JWTIssuer, jwksURL)
	zapLogger.Info("token_verifier_initialized",
		zap.String("issuer", cfg.JWTIssuer),
		zap.String("jwks_url", jwksURL),
	)

	// AI provider
	aiProvider, err := createAIProvider(cfg, zapLogger, debugMode)
	if err != nil {
		zapLogger.Warn("failed_to_create_ai_provider_chat_disabled", zap.Error(err))
		aiProvider = nil
	}

	// Routine recomputation is debounced through the job queue
	routineNotifier := workers.NewRoutineEnqueuer(jobQueue, workers.DefaultDebounce)

	var chatService *chat.Service
	if aiProvider != nil {
		chatService = chat.NewService(chatStore, aiProvider, aiProvider, aiProvider, routineCache, routineNotifier, zapLogger)
	}

	// Handlers
	habitHandler := handlers.NewHabitHandler(habitRepo, routineNotifier, zapLogger)
	tagHandler := handlers.NewTagHandler(tagRepo)
	factHandler := handlers.NewFactHandler(factRepo)
	healthChecker := handlers.NewHealthChecker(db, routineCache, jobQueue.HealthCheck)

	var chatHandler *handlers.ChatHandler
	if chatService != nil {
		chatHandler = handlers.NewChatHandler(chatService, zapLogger)
	}

	// Router and middleware. gorilla/mux runs middleware in registration
	// order, so the outermost concerns come first.
	r := mux.NewRouter()

	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("habitloop-api"))
		zapLogger.Info("otel_middleware_enabled")
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORSFromEnv(cfg.FrontendURL))
	r.Use(middleware.MaxRequestSize(handlers.MaxImageSize + middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	rateLimitMW, err := middleware.RateLimitFromConfig(redisLimiter.Client(), cfg.RateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	// Public routes
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	// API v1 routes, all authenticated and rate limited
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	authMW := middleware.Auth(db, verifier, zapLogger)

	habitsRouter := apiRouter.PathPrefix("/habits").Subrouter()
	habitsRouter.Use(authMW)
	habitsRouter.Use(rateLimitMW)
	habitHandler.RegisterRoutes(habitsRouter)

	tagsRouter := apiRouter.PathPrefix("/tags").Subrouter()
	tagsRouter.Use(authMW)
	tagsRouter.Use(rateLimitMW)
	tagHandler.RegisterRoutes(tagsRouter)

	factsRouter := apiRouter.PathPrefix("/facts").Subrouter()
	factsRouter.Use(authMW)
	factsRouter.Use(rateLimitMW)
	factHandler.RegisterRoutes(factsRouter)

	if chatHandler != nil {
		chatRouter := apiRouter.PathPrefix("").Subrouter()
		chatRouter.Use(authMW)
		chatRouter.Use(rateLimitMW)
		chatHandler.RegisterRoutes(chatRouter)
	}

	// Catch-all OPTIONS handler so preflight requests succeed on every route
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	// DLQ garbage collection: run every hour, retain messages for 24 hours
	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		dlqGC := queue.NewGarbageCollector(dlqPurger, 1*time.Hour, 24*time.Hour, zapLogger)
		go func() {
			if err := dlqGC.Start(bgCtx); err != nil && err != context.Canceled {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", 1*time.Hour),
			zap.Duration("retention", 24*time.Hour),
		)
	}

	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// connectRabbitMQ dials the broker with exponential backoff
func connectRabbitMQ(amqpURL string, zapLogger *zap.Logger) (queue.JobQueue, error) {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err := queue.NewRabbitMQQueue(amqpURL)
		if err == nil {
			return jobQueue, nil
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	return nil, lastErr
}

// createAIProvider creates an AI provider based on configuration
func createAIProvider(cfg *config.Config, logger *zap.Logger, debugMode bool) (ai.Provider, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}

	providerType := cfg.AIProvider
	if providerType == "" {
		providerType = "openai"
	}

	logger.Info("Initializing AI provider",
		zap.String("provider", providerType),
		zap.String("model", cfg.AIModel),
		zap.String("api_key", ai.SanitizeAPIKey(cfg.OpenAIKey)),
	)

	if providerType == "openai" {
		return ai.NewOpenAIProviderWithLogger(
			cfg.OpenAIKey,
			cfg.AIBaseURL,
			cfg.AIModel,
			logger,
			debugMode,
		), nil
	}

	// Fallback to registry for other providers (without logger)
	registry := ai.NewProviderRegistry()
	ai.RegisterOpenAI(registry)

	config := map[string]string{
		"api_key":  cfg.OpenAIKey,
		"model":    cfg.AIModel,
		"base_url": cfg.AIBaseURL,
	}

	return registry.GetProvider(providerType, config)
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = err
	}
}
