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

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/docreplace-portal/internal/config"
	"github.com/iliyamo/docreplace-portal/internal/dashboard"
	"github.com/iliyamo/docreplace-portal/internal/database"
	"github.com/iliyamo/docreplace-portal/internal/handler"
	"github.com/iliyamo/docreplace-portal/internal/mailer"
	"github.com/iliyamo/docreplace-portal/internal/middleware"
	"github.com/iliyamo/docreplace-portal/internal/queue"
	"github.com/iliyamo/docreplace-portal/internal/realtime"
	"github.com/iliyamo/docreplace-portal/internal/repository"
	"github.com/iliyamo/docreplace-portal/internal/router"
	"github.com/iliyamo/docreplace-portal/internal/service"
	"github.com/iliyamo/docreplace-portal/internal/session"
	"github.com/iliyamo/docreplace-portal/internal/storage"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName); err != nil {
			log.Fatalf("db migrate: %v", err)
		}
		log.Printf("db: migrations applied")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := config.NewRedisClient()
	var bus realtime.Bus
	if rdb != nil {
		defer rdb.Close()
		bus = realtime.NewRedisBus(rdb, "portal:rt")
	} else {
		log.Printf("redis unavailable; realtime falls back to in-process fan-out, caches and rate limits disabled")
		bus = realtime.NewMemoryBus(64)
	}

	amqpURL := config.RabbitURL()
	events := queue.NewPublisher(amqpURL)
	defer events.Close()
	go func() {
		logDir := os.Getenv("AUDIT_LOG_DIR")
		if logDir == "" {
			logDir = "logs"
		}
		if err := queue.StartAuditConsumer(ctx, amqpURL, logDir); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("audit-consumer: stopped: %v", err)
		}
	}()

	storeCfg := config.LoadStorageConfig(cfg.Port)
	files := storage.NewDiskStore(storeCfg.Dir, storeCfg.Bucket, storeCfg.PublicURL)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	roles := session.NewCachedRoles(roleRepo, rdb, config.RoleCacheTTL())

	apps := service.NewApplicationService(repository.NewApplicationRepo(db), files, bus, events)
	msgs := service.NewMessageService(repository.NewMessageRepo(db), bus, roleRepo)
	profiles := service.NewProfileService(repository.NewProfileRepo(db))
	settings := service.NewSettingsService(repository.NewSettingsRepo(db))
	views := service.NewPageViewService(repository.NewPageViewRepo(db), bus)

	if cfg.AdminEmail != "" {
		bctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if uid, err := session.PromoteAdmin(bctx, users, roleRepo, cfg.AdminEmail); err != nil {
			log.Printf("admin bootstrap: %s: %v", cfg.AdminEmail, err)
		} else {
			roles.Invalidate(bctx, uid)
			log.Printf("admin bootstrap: %s holds the admin role", cfg.AdminEmail)
		}
		cancel()
	}

	sessions := session.NewManager(cfg, users, tokens, roles)
	sessions.OnChange(roles.Listener())

	dash := &dashboard.Controller{
		Apps:      apps,
		Views:     views,
		Messages:  msgs,
		Settings:  settings,
		Customers: profiles,
		Bus:       bus,
		Location:  cfg.Location,
	}
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.Register(e, router.Deps{
		Auth:          handler.NewAuthHandler(sessions, roles, profiles),
		Public:        handler.NewPublicHandler(apps, views, settings),
		Profile:       handler.NewProfileHandler(profiles, apps, sessions),
		Messages:      handler.NewMessageHandler(msgs, roles),
		Admin:         handler.NewAdminHandler(apps, profiles, settings, dash, cache, storeCfg.MaxBytes),
		Email:         &handler.EmailHandler{Mailer: mailer.New(mailer.SMTPTransport{})},
		Authenticator: sessions,
		Roles:         roles,
		Health:        handler.Health(db),
		RateLimit:     middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:         cache,
		FilesDir:      storeCfg.Dir,
	})

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
