package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/quillhub/quillhub/internal/api"
	"github.com/quillhub/quillhub/internal/auth"
	"github.com/quillhub/quillhub/internal/config"
	"github.com/quillhub/quillhub/internal/content"
	"github.com/quillhub/quillhub/internal/feed"
	"github.com/quillhub/quillhub/internal/identity"
	"github.com/quillhub/quillhub/internal/notify"
	"github.com/quillhub/quillhub/internal/pkg/distlock"
	"github.com/quillhub/quillhub/internal/ratelimit"
	"github.com/quillhub/quillhub/internal/repository/postgres"
	"github.com/quillhub/quillhub/internal/service/ledger"
	"github.com/quillhub/quillhub/internal/service/membership"
	"github.com/quillhub/quillhub/internal/service/newsletter"
	"github.com/quillhub/quillhub/internal/service/registry"
)

// checkPortAvailable verifies that the target port is not already in use.
// Catches stale processes before the server tries to bind.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	configPath := "config/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configPath = v
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.Database.URL == "" {
		log.Fatal("database.url (or DATABASE_URL) is required")
	}
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to reach database: %v", err)
	}
	defer db.Close()
	log.Println("[server] database connected")

	// Redis: rate limiting plus the feed importer lock
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Invalid redis URL: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	limits := map[string]ratelimit.Limit{
		"newsletter": {
			Max:    cfg.RateLimit.CreateMax,
			Window: time.Duration(cfg.RateLimit.CreateWindowSec) * time.Second,
		},
		"newsletter-announce": {
			Max:    cfg.RateLimit.AnnounceMax,
			Window: time.Duration(cfg.RateLimit.AnnounceWindow) * time.Second,
		},
	}
	limiter := ratelimit.NewLimiter(redisClient, limits)
	log.Println("[server] rate limiter ready")

	// Collaborators
	contentClient := content.NewClient(cfg.Content.BaseURL, cfg.Content.Timeout())
	idp := identity.NewProvider(identity.Config{
		BlockedActors: cfg.Identity.BlockedActors,
		Admins:        cfg.Identity.Admins,
		Creators:      cfg.Identity.Creators,
	}, limiter)

	// Services
	members := membership.NewStore(postgres.NewMembershipRepo(db))
	reg := registry.NewService(postgres.NewNewsletterRepo(db), members)
	issues := ledger.NewService(postgres.NewIssueRepo(db), reg)
	audit := postgres.NewAuditRepo(db)

	// Notification dispatchers
	var dispatchers []newsletter.NotificationDispatcher
	if len(cfg.Notify.Webhooks) > 0 {
		dispatchers = append(dispatchers, notify.NewWebhookDispatcher(cfg.Notify.Webhooks))
		log.Printf("[server] webhook notifications enabled (%d endpoints)", len(cfg.Notify.Webhooks))
	}
	if cfg.Notify.Email.Enabled {
		resolver := notify.NewSubscriberRecipients(members)
		emailer, err := notify.NewEmailDispatcher(ctx, cfg.Notify.Email.SESConfig, resolver)
		if err != nil {
			log.Fatalf("Failed to initialize SES dispatcher: %v", err)
		}
		dispatchers = append(dispatchers, emailer)
		log.Println("[server] email notifications enabled")
	}
	var dispatcher newsletter.NotificationDispatcher
	if len(dispatchers) > 0 {
		dispatcher = notify.NewMulti(dispatchers...)
	}

	svc := newsletter.NewService(reg, members, issues, contentClient, idp, audit, dispatcher)

	// RSS issue importer
	if cfg.Feed.Enabled && len(cfg.Feed.Sources) > 0 {
		lock := distlock.New(redisClient, db, "feed-import", cfg.Feed.PollInterval())
		importer := feed.NewImporter(svc, cfg.Feed.Sources).
			WithLock(lock).
			WithSeenStore(postgres.NewFeedItemRepo(db))
		go importer.Run(ctx, cfg.Feed.PollInterval())
		log.Printf("[server] feed importer polling %d sources every %s",
			len(cfg.Feed.Sources), cfg.Feed.PollInterval())
	}

	// Auth
	var authManager *auth.Manager
	var actors api.ActorSource
	if cfg.Auth.Enabled {
		authManager = auth.NewManager(cfg.Auth)
		if err := authManager.ValidateCredentials(ctx); err != nil {
			log.Fatalf("OAuth credential check failed: %v", err)
		}
		authManager.CleanupExpiredSessions()
		actors = authManager
		log.Println("[server] google OAuth enabled")
	} else {
		log.Println("[server] auth disabled; all requests are anonymous")
	}

	handlers := api.NewHandlers(svc, actors, audit)
	var authRoutes api.AuthRoutes
	if authManager != nil {
		authRoutes = authManager
	}
	server := api.NewServer(handlers, authRoutes)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Printf("[server] listening on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("[server] shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] shutdown error: %v", err)
	}
	log.Println("[server] stopped")
}
