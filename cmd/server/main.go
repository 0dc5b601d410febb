package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"

	"github.com/oumalord/DIGIPESA/internal/auth"
	"github.com/oumalord/DIGIPESA/internal/handler"
	"github.com/oumalord/DIGIPESA/internal/models"
	"github.com/oumalord/DIGIPESA/internal/repository"
	"github.com/oumalord/DIGIPESA/internal/service"
)

type Config struct {
	StoreBackend string
	DBHost       string
	DBPort       string
	DBUser       string
	DBPassword   string
	DBName       string
	DBSSLMode    string
	ServerPort   string
	JWTSecret    string
	TokenTTL     time.Duration
}

func main() {
	// Initialise logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	config := loadConfig()

	// Pick the storage backend
	var (
		txBeginner      repository.TxBeginner
		accountRepo     repository.AccountRepository
		transactionRepo repository.TransactionRepository
		fraudRepo       repository.FraudReportRepository
		alertRepo       repository.SecurityAlertRepository
	)

	switch config.StoreBackend {
	case "memory":
		store := repository.NewMemoryStore()
		txBeginner = store
		accountRepo = store.Accounts()
		transactionRepo = store.Transactions()
		fraudRepo = store.FraudReports()
		alertRepo = store.SecurityAlerts()
		logger.Info("using in-memory store; state is lost on restart")
	default:
		db, err := connectDB(config)
		if err != nil {
			logger.Error("failed to connect to database", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()

		logger.Info("connected to database successfully")

		txBeginner = repository.NewPostgresStore(db)
		accountRepo = repository.NewAccountRepository(db)
		transactionRepo = repository.NewTransactionRepository(db)
		fraudRepo = repository.NewFraudReportRepository(db)
		alertRepo = repository.NewSecurityAlertRepository(db)
	}

	tokens := auth.NewTokenManager(config.JWTSecret, config.TokenTTL)

	// Initialise services
	authService := service.NewAuthService(txBeginner, accountRepo, alertRepo, tokens, logger)
	accountService := service.NewAccountService(txBeginner, accountRepo, fraudRepo, logger)
	transactionService := service.NewTransactionService(txBeginner, accountRepo, transactionRepo, authService, logger)
	fraudService := service.NewFraudService(txBeginner, fraudRepo, accountRepo, logger)
	alertService := service.NewAlertService(alertRepo, accountRepo, logger)

	// Initialise handlers
	authHandler := handler.NewAuthHandler(authService, logger)
	accountHandler := handler.NewAccountHandler(accountService, logger)
	transactionHandler := handler.NewTransactionHandler(transactionService, logger)
	fraudHandler := handler.NewFraudHandler(fraudService, logger)
	alertHandler := handler.NewAlertHandler(alertService, logger)

	// Setup router
	router := mux.NewRouter()

	// Add health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	authHandler.RegisterPublicRoutes(router)

	// Token-protected routes
	api := router.NewRoute().Subrouter()
	api.Use(handler.Authenticate(tokens))
	authHandler.RegisterRoutes(api)
	accountHandler.RegisterRoutes(api)
	transactionHandler.RegisterRoutes(api)
	fraudHandler.RegisterRoutes(api)

	// Operator/admin routes
	operator := api.NewRoute().Subrouter()
	operator.Use(handler.RequireRole(models.RoleOperator, models.RoleAdmin))
	accountHandler.RegisterOperatorRoutes(operator)
	transactionHandler.RegisterOperatorRoutes(operator)
	alertHandler.RegisterAdminRoutes(operator)

	// Admin-only routes
	admin := api.NewRoute().Subrouter()
	admin.Use(handler.RequireRole(models.RoleAdmin))
	fraudHandler.RegisterAdminRoutes(admin)

	// Add middleware for logging
	router.Use(loggingMiddleware(logger))

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + config.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a go routine
	go func() {
		logger.Info("starting server on port " + config.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err.Error())
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err.Error())
	}

	logger.Info("server exited gracefully")
}

// loads config from environment variables
func loadConfig() Config {
	ttl := 24 * time.Hour
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			ttl = parsed
		}
	}

	return Config{
		StoreBackend: getEnv("STORE_BACKEND", "postgres"),
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBUser:       getEnv("DB_USER", "postgres"),
		DBPassword:   getEnv("DB_PASSWORD", "password"),
		DBName:       getEnv("DB_NAME", "digipesa"),
		DBSSLMode:    getEnv("DB_SSLMODE", "disable"),
		ServerPort:   getEnv("SERVER_PORT", "8080"),
		JWTSecret:    getEnv("JWT_SECRET", "change-me"),
		TokenTTL:     ttl,
	}
}

// getEnv fetches environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// connectDB establishes a connection to the Postgres database
func connectDB(cfg Config) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(10 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// loggingMiddleware logs incoming HTTP requests
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Info("incoming request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
