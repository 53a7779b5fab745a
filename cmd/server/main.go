package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xeze-org/clinic/backend/internal/auth"
	"github.com/xeze-org/clinic/backend/internal/clinic"
	"github.com/xeze-org/clinic/backend/internal/config"
	"github.com/xeze-org/clinic/backend/internal/middleware"
	"github.com/xeze-org/clinic/backend/internal/store"
)

func main() {
	cfg := config.Load()
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("postgres connect: %v", err)
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.Ping(ctx); err != nil {
		log.Fatalf("postgres ping: %v", err)
	}
	if err := pgStore.Migrate(ctx); err != nil {
		log.Fatalf("postgres migrate: %v", err)
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	activity := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	if err := activity.EnsureIndexes(ctx); err != nil {
		log.Printf("mongo indexes (non-fatal): %v", err)
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()
	sessions := auth.NewSessionStore(rdb)

	// ── MinIO ────────────────────────────────────────────────
	slips, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatalf("minio connect: %v", err)
	}

	// ── Handlers ─────────────────────────────────────────────
	c := clinic.New(pgStore, pgStore, pgStore, activity)
	authHandler := auth.NewHandler(c, sessions, cfg.CookieSecure)
	clinicHandler := clinic.NewHandler(c, slips, activity)
	limiter := middleware.NewRateLimiter(ctx, cfg.AuthRatePerSec, cfg.AuthRateBurst)

	r := newRouter(cfg, pgStore, sessions, limiter, authHandler, clinicHandler)

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("clinic backend listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	stop()
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

func newRouter(
	cfg *config.Config,
	db pinger,
	sessions middleware.SessionResolver,
	limiter *middleware.RateLimiter,
	authHandler *auth.Handler,
	clinicHandler *clinic.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth routes (public)
	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(limiter)).Post("/register", authHandler.Register)
		r.With(middleware.RateLimit(limiter)).Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.With(middleware.RequireAuth(sessions)).Get("/me", authHandler.Me)
	})

	// Clinic routes (protected)
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessions))
		r.Get("/api/profile", clinicHandler.GetProfile)
		r.Post("/api/profile", clinicHandler.CreateProfile)
		r.Put("/api/profile", clinicHandler.UpdateProfile)
		r.Post("/api/appointments", clinicHandler.Schedule)
		r.Get("/api/appointments", clinicHandler.ListAppointments)
		r.Get("/api/appointments/{id}/confirmation", clinicHandler.Confirmation)
		r.Get("/api/activity", clinicHandler.Activity)
	})

	return r
}
