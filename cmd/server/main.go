package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/testforge/suite-service/internal/auth"
	"github.com/testforge/suite-service/internal/config"
	"github.com/testforge/suite-service/internal/handlers"
	"github.com/testforge/suite-service/internal/localstore"
	"github.com/testforge/suite-service/internal/middleware"
	"github.com/testforge/suite-service/internal/service"
	"github.com/testforge/suite-service/internal/shell"
	"github.com/testforge/suite-service/internal/storage"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting TestForge suite service v%s (%s variant)", version, cfg.Variant)
	log.Printf("Server will listen on %s", cfg.Address())

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	// Initialize backend data provider
	var backend storage.Backend
	switch cfg.BackendType {
	case config.BackendMemory:
		backend = storage.NewMemoryBackend()
		log.Println("Using in-memory backend")
	case config.BackendMySQL:
		mysqlBackend, err := storage.NewMySQLBackend(cfg.DSN())
		if err != nil {
			log.Fatalf("Failed to initialize MySQL backend: %v", err)
		}
		closers = append(closers, mysqlBackend)
		backend = mysqlBackend
		log.Printf("Using MySQL backend at %s:%d/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)
	case config.BackendHTTP:
		httpBackend, err := storage.NewHTTPBackend(cfg.BackendURL, cfg.BackendProjectID, cfg.BackendPublicKey)
		if err != nil {
			log.Fatalf("Failed to initialize HTTP backend: %v", err)
		}
		backend = httpBackend
		log.Printf("Using remote backend at %s", cfg.BackendURL)
	default:
		log.Fatalf("Unsupported backend type: %s", cfg.BackendType)
	}

	// Redis is shared by the session store and the local store
	var redisClient *redis.Client
	if cfg.SessionType == config.SessionRedis || cfg.LocalType == config.LocalRedis {
		redisClient, err = localstore.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		closers = append(closers, redisClient)
		log.Println("Connected to Redis")
	}

	// Initialize local persisted state
	var local localstore.Store
	switch cfg.LocalType {
	case config.LocalMemory:
		local = localstore.NewMemoryStore()
		log.Println("Using in-memory local store")
	case config.LocalCSV:
		csvStore, err := localstore.NewCSVStore(cfg.LocalPath)
		if err != nil {
			log.Fatalf("Failed to initialize CSV local store: %v", err)
		}
		local = csvStore
		log.Printf("Using CSV local store at: %s", cfg.LocalPath)
	case config.LocalRedis:
		local = localstore.NewRedisStore(redisClient)
		log.Println("Using Redis local store")
	default:
		log.Fatalf("Unsupported local store type: %s", cfg.LocalType)
	}

	// Initialize sessions
	var sessions auth.SessionStore
	switch cfg.SessionType {
	case config.SessionRedis:
		sessions = auth.NewRedisSessionStore(redisClient, cfg.SessionTTL)
		log.Println("Using Redis session store")
	default:
		sessions = auth.NewMemorySessionStore(cfg.SessionTTL)
		log.Println("Using in-memory session store")
	}

	// Initialize user store from the users file
	users, err := auth.NewFileStore(cfg.UsersFile, auth.DefaultBcryptCost)
	if err != nil {
		log.Fatalf("Failed to load users file: %v", err)
	}
	closers = append(closers, users)
	log.Printf("Users loaded from %s", cfg.UsersFile)

	suites := service.NewSuites(backend)
	cases := service.NewCases(backend)

	sources := handlers.NetworkSources(suites)
	if cfg.Variant == config.VariantOffline {
		sources = handlers.LocalSources(local)
	}

	limiter := middleware.NewPerUserRateLimiter(cfg.RequestsPerMinute)
	defer limiter.Stop()

	pages := handlers.NewPages(sources)
	defer pages.Stop()

	router := handlers.NewRouter(handlers.RouterConfig{
		Version:     version,
		Variant:     cfg.Variant,
		Auth:        auth.NewAuthenticator(users, sessions),
		Suites:      suites,
		Cases:       cases,
		Preferences: shell.NewPreferences(local),
		Pages:       pages,
		Limiter:     limiter,
		Cookie:      auth.CookieOptions{Secure: cfg.CookieSecure || cfg.EnableTLS},
		CORSOrigins: cfg.CORSOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", cfg.Address())

		if cfg.EnableTLS {
			log.Printf("TLS enabled with cert=%s key=%s", cfg.CertFile, cfg.KeyFile)
			if err := srv.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start HTTPS server: %v", err)
			}
		} else {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start HTTP server: %v", err)
			}
		}
	}()

	log.Println("Server started successfully")
	log.Println("Press Ctrl+C to stop")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("ERROR: Server forced to shutdown: %v", err)
		return
	}

	log.Println("Server stopped")
}
