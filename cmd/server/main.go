package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/wordbox/backend/internal/auth"
	"github.com/wordbox/backend/internal/cache"
	"github.com/wordbox/backend/internal/config"
	"github.com/wordbox/backend/internal/database"
	"github.com/wordbox/backend/internal/gamification"
	"github.com/wordbox/backend/internal/generator"
	"github.com/wordbox/backend/internal/hints"
	"github.com/wordbox/backend/internal/httpx"
	"github.com/wordbox/backend/internal/policy"
	"github.com/wordbox/backend/internal/savedwords"
	"github.com/wordbox/backend/internal/scheduler"
	"github.com/wordbox/backend/internal/sessions"
	"github.com/wordbox/backend/internal/vocab"
	"go.uber.org/zap"
)

func setupLogger(env string) *zap.Logger {
	var logger *zap.Logger
	if env == "development" || env == "test" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	return logger
}

func main() {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := setupLogger(cfg.Env)
	defer logger.Sync()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Ephemeral session state
	var store cache.Store
	var memory *cache.Memory
	switch cfg.Cache.Backend {
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddr,
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.KeyPrefix,
		})
		cancel()
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		store = rdb
	default:
		memory = cache.NewMemory(cfg.Cache.Capacity, cfg.Cache.KeyPrefix)
		store = memory
	}
	logger.Info("session cache ready", zap.String("backend", cfg.Cache.Backend))

	// Stores and services
	words := vocab.NewStore(db)
	savedStore := savedwords.NewStore(db)
	sessionStore := sessions.NewStore(db)

	gen := generator.New(words, generator.WithPolicy(generator.RetryPolicy{
		MaxProbeAttempts:      cfg.Generator.MaxProbeAttempts,
		MaxDistractorAttempts: cfg.Generator.MaxDistractorAttempts,
		CategoryFetchFactor:   cfg.Generator.CategoryFetchFactor,
	}))
	gate := policy.NewGate(sessionStore, savedStore)

	engine := sessions.NewEngine(sessionStore, savedStore, gate, gen, store, sessions.Config{
		ActiveQuestionTTL:    cfg.Cache.ActiveQuestionTTL,
		QuizUsedTTL:          cfg.Cache.QuizUsedTTL,
		GameUsedTTL:          cfg.Cache.GameUsedTTL,
		BatchTTL:             cfg.Cache.QuizBatchTTL,
		MaxCandidateAttempts: cfg.Generator.MaxCandidateAttempts,
	}, logger.Named("sessions"))

	savedService := savedwords.NewService(savedStore, words, logger.Named("savedwords"))
	gamificationService := gamification.NewService(gamification.NewStore(db), logger.Named("gamification"))
	hintService := hints.NewService(savedService, hints.NewClient(cfg.Hints, logger.Named("hints")),
		store, cfg.Hints.CacheTTL, logger.Named("hints"))

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	httpLog := logger.Named("http")

	// Handlers
	authHandler := auth.NewHandler(auth.NewStore(db), tokens, httpLog)
	vocabHandler := vocab.NewHandler(words, httpLog)
	savedHandler := savedwords.NewHandler(savedService, httpLog)
	sessionHandler := sessions.NewHandler(engine, httpLog)
	gamificationHandler := gamification.NewHandler(gamificationService, httpLog)
	hintHandler := hints.NewHandler(hintService, httpLog)

	// Setup router
	r := mux.NewRouter()
	r.Use(httpx.RequestLogger(httpLog))
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(tokens.Middleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")

	// Vocabulary
	protected.HandleFunc("/words", vocabHandler.ListWords).Methods("GET")
	protected.HandleFunc("/categories", vocabHandler.ListCategories).Methods("GET")

	// Saved words
	protected.HandleFunc("/saved-words", savedHandler.Add).Methods("POST")
	protected.HandleFunc("/saved-words", savedHandler.List).Methods("GET")
	protected.HandleFunc("/saved-words/{id:[0-9]+}", savedHandler.Get).Methods("GET")
	protected.HandleFunc("/saved-words/{id:[0-9]+}", savedHandler.Edit).Methods("PATCH")
	protected.HandleFunc("/saved-words/{id:[0-9]+}", savedHandler.Delete).Methods("DELETE")
	protected.HandleFunc("/saved-words/{id:[0-9]+}/review", savedHandler.Review).Methods("POST")
	protected.HandleFunc("/saved-words/{id:[0-9]+}/example", hintHandler.GetExample).Methods("GET")

	// Quizzes
	protected.HandleFunc("/quizzes", sessionHandler.StartQuiz).Methods("POST")
	protected.HandleFunc("/quizzes", sessionHandler.ListQuizzes).Methods("GET")
	protected.HandleFunc("/quizzes/{id:[0-9]+}", sessionHandler.GetQuiz).Methods("GET")
	protected.HandleFunc("/quizzes/{id:[0-9]+}", sessionHandler.DeleteQuiz).Methods("DELETE")
	protected.HandleFunc("/quizzes/{id:[0-9]+}/question", sessionHandler.QuizQuestion).Methods("GET")
	protected.HandleFunc("/quizzes/{id:[0-9]+}/answer", sessionHandler.AnswerQuiz).Methods("POST")
	protected.HandleFunc("/quizzes/{id:[0-9]+}/batch", sessionHandler.PrepareBatch).Methods("POST")
	protected.HandleFunc("/quizzes/{id:[0-9]+}/batch/answers", sessionHandler.GradeBatch).Methods("POST")

	// Survival games
	protected.HandleFunc("/games/leaderboard", gamificationHandler.GetLeaderboard).Methods("GET")
	protected.HandleFunc("/games/leaderboard/me", gamificationHandler.GetMyRank).Methods("GET")
	protected.HandleFunc("/games", sessionHandler.StartGame).Methods("POST")
	protected.HandleFunc("/games", sessionHandler.ListGames).Methods("GET")
	protected.HandleFunc("/games/{id:[0-9]+}", sessionHandler.GetGame).Methods("GET")
	protected.HandleFunc("/games/{id:[0-9]+}", sessionHandler.DeleteGame).Methods("DELETE")
	protected.HandleFunc("/games/{id:[0-9]+}/question", sessionHandler.GameQuestion).Methods("GET")
	protected.HandleFunc("/games/{id:[0-9]+}/answer", sessionHandler.AnswerGame).Methods("POST")

	protected.HandleFunc("/dashboard", gamificationHandler.GetDashboard).Methods("GET")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db unavailable"})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	// Background jobs
	jobs := scheduler.New(logger.Named("scheduler"))
	if memory != nil {
		if err := jobs.Every("cache-sweep", cfg.Cache.CleanupInterval,
			scheduler.SweepCache(logger.Named("scheduler"), memory.CleanupExpired)); err != nil {
			logger.Fatal("failed to schedule cache sweep", zap.Error(err))
		}
	}
	jobs.Start()
	defer jobs.Stop()

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      c.Handler(r),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
