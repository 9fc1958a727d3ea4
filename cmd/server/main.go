package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/jackknife/charsheet/internal/auth"
	"github.com/jackknife/charsheet/internal/config"
	"github.com/jackknife/charsheet/internal/logger"
	"github.com/jackknife/charsheet/internal/server"
	"github.com/jackknife/charsheet/internal/sheet"
	"github.com/jackknife/charsheet/internal/store"
	"github.com/jackknife/charsheet/internal/web"
)

// userStore is the users table: credentials plus the sheet column.
type userStore interface {
	auth.UserStore
	sheet.Store
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(!cfg.IsProd())
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// ── Credential store ─────────────────────────────────────
	var users userStore
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pgPool.Close()
		pgStore := store.NewPostgresStore(pgPool)
		if err := pgStore.Migrate(ctx); err != nil {
			log.Fatal("postgres migrate", zap.Error(err))
		}
		users = pgStore
	case config.DriverSQLite:
		sqliteStore, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatal("sqlite open", zap.String("path", cfg.SQLitePath), zap.Error(err))
		}
		defer sqliteStore.Close()
		users = sqliteStore
	}
	log.Info("credential store ready", zap.String("driver", cfg.DatabaseDriver))

	// ── Sessions ─────────────────────────────────────────────
	var sessions auth.SessionStore
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
		sessions = auth.NewRedisSessionStore(rdb, cfg.SessionTTL)
	} else {
		log.Warn("REDIS_ADDR not set, sessions are kept in memory")
		sessions = auth.NewMemorySessionStore(cfg.SessionTTL)
	}

	// ── Sheet documents ──────────────────────────────────────
	var sheets sheet.Store = users
	switch cfg.SheetBackend {
	case config.BackendMongo:
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatal("mongo connect", zap.Error(err))
		}
		defer mongoClient.Disconnect(ctx)
		sheets = store.NewMongoSheetStore(mongoClient.Database(cfg.MongoDB))
	case config.BackendMinio:
		minioStore, err := store.NewMinioSheetStore(
			ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
		)
		if err != nil {
			log.Fatal("minio connect", zap.Error(err))
		}
		sheets = minioStore
	}
	log.Info("sheet backend ready", zap.String("backend", cfg.SheetBackend))

	// ── Handlers ─────────────────────────────────────────────
	hasher, err := auth.NewHasher(cfg.PasswordHash)
	if err != nil {
		log.Fatal("password hasher", zap.Error(err))
	}
	authHandler := auth.NewHandler(
		auth.NewService(users, hasher, log),
		sessions,
		auth.CookieOptions{TTL: cfg.SessionTTL, Secure: cfg.IsProd()},
		log,
	)
	sheetHandler := sheet.NewHandler(sheets, cfg.MaxBodyBytes, log)
	webHandler, err := web.NewHandler(log)
	if err != nil {
		log.Fatal("web assets", zap.Error(err))
	}

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: server.NewRouter(server.Deps{
			Auth:        authHandler,
			Sheets:      sheetHandler,
			Web:         webHandler,
			Sessions:    sessions,
			CORSOrigins: cfg.CORSOrigins,
			Log:         log,
		}),
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Port), zap.String("mode", cfg.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
