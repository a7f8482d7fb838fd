package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"github.com/Skotchmaster/accounts/internal/config"
	"github.com/Skotchmaster/accounts/internal/db"
	"github.com/Skotchmaster/accounts/internal/directory"
	"github.com/Skotchmaster/accounts/internal/events"
	"github.com/Skotchmaster/accounts/internal/hash"
	"github.com/Skotchmaster/accounts/internal/httpserver"
	"github.com/Skotchmaster/accounts/internal/logging"
	"github.com/Skotchmaster/accounts/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/accounts/internal/middleware/logging"
	"github.com/Skotchmaster/accounts/internal/notify"
	"github.com/Skotchmaster/accounts/internal/repo"
	"github.com/Skotchmaster/accounts/internal/resettoken"
	"github.com/Skotchmaster/accounts/internal/service"
	"github.com/Skotchmaster/accounts/internal/tokens"
)

func main() {
	cfg := config.MustLoad()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}

	accounts := repo.New(gdb)

	tokenSvc, err := tokens.NewTokenService(tokens.Config{Secret: cfg.JWTSecret, TTL: cfg.SessionTTL}, accounts)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	publisher := newPublisher(cfg, logger)
	dir := newDirectory(cfg, accounts, logger)

	svc := service.New(service.Deps{
		Store:     accounts,
		Hasher:    hash.New(cfg.BcryptCost),
		Tokens:    tokenSvc,
		Resets:    resettoken.NewStore(accounts, cfg.ResetTokenTTL),
		Notifier:  newNotifier(cfg, logger),
		Events:    publisher,
		Directory: dir,
		AppURL:    cfg.AppURL,
	})

	if cfg.AdminEmail != "" {
		ctx, cancel := context.WithTimeout(logging.IntoContext(context.Background(), logger), 10*time.Second)
		err := svc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		cancel()
		if err != nil {
			log.Fatalf("ensure admin: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AccountHandler: &httpserver.AccountHTTP{Svc: svc},
		Auth:           auth.NewBearerAuth(tokenSvc, accounts),
		Ready:          pinger(gdb),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)

	if err := publisher.Close(); err != nil {
		logger.Warn("event publisher close", "error", err)
	}
	_ = db.Close(gdb)

	logger.Info("accounts stopped")
}

func newNotifier(cfg config.Config, logger *slog.Logger) notify.Notifier {
	if cfg.PostmarkServerToken == "" {
		logger.Info("postmark not configured, emails go to the log")
		return &notify.LogNotifier{Logger: logger}
	}
	n, err := notify.NewPostmarkNotifier(notify.PostmarkConfig{
		ServerToken:  cfg.PostmarkServerToken,
		AccountToken: cfg.PostmarkAccountToken,
		SenderEmail:  cfg.SenderEmail,
	})
	if err != nil {
		log.Fatalf("postmark: %v", err)
	}
	return n
}

func newPublisher(cfg config.Config, logger *slog.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("kafka not configured, account events are dropped")
		return events.Nop{}
	}
	p, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	return p
}

func newDirectory(cfg config.Config, accounts *repo.GormRepo, logger *slog.Logger) directory.Directory {
	if cfg.ESURL == "" {
		return directory.NewStore(accounts)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	d, err := directory.NewElastic(ctx, directory.ElasticConfig{
		URL:      cfg.ESURL,
		Username: cfg.ESUser,
		Password: cfg.ESPassword,
		Index:    cfg.ESIndex,
	})
	if err != nil {
		logger.Warn("elasticsearch unavailable, searching the account table", "error", err)
		return directory.NewStore(accounts)
	}
	return d
}

func pinger(gdb *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := gdb.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
