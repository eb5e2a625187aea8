package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	auth "github.com/urvue/go-auth"
	"github.com/urvue/go-auth/middleware/gates"
	"github.com/urvue/go-auth/provider/firebase"
	"github.com/urvue/go-auth/store/redistokens"
)

// AppConfig is populated from the environment.
type AppConfig struct {
	Addr string `env:"ADDR" envDefault:":8572"`

	// DatabaseDSN is opened through the sqlite shim; swap the dialect for a
	// real deployment target.
	DatabaseDSN string `env:"DATABASE_DSN" envDefault:"file:urvue.db?cache=shared"`

	SigningKey string   `env:"AUTH_SIGNING_KEY,required"`
	SessionTTL string   `env:"AUTH_SESSION_TTL" envDefault:"24h"`
	Issuer     string   `env:"AUTH_ISSUER" envDefault:"urvue"`
	Audience   []string `env:"AUTH_AUDIENCE" envSeparator:"," envDefault:"urvue-api"`

	// FirebaseCredentialsFile is a service account JSON path; empty uses
	// application default credentials.
	FirebaseCredentialsFile string `env:"FIREBASE_CREDENTIALS_FILE"`

	// RedisAddr switches session storage from SQL to Redis when set.
	RedisAddr string `env:"REDIS_ADDR"`

	APIKey       string `env:"INTERNAL_API_KEY"`
	APIKeyHeader string `env:"INTERNAL_API_KEY_HEADER" envDefault:"X-Api-Key"`

	Debug bool `env:"DEBUG" envDefault:"false"`
}

func main() {
	var appCfg AppConfig
	if err := env.Parse(&appCfg); err != nil {
		log.Fatalf("config: %v", err)
	}

	cfg := auth.SimpleConfig{
		SigningKey:   appCfg.SigningKey,
		SessionTTL:   appCfg.SessionTTL,
		Issuer:       appCfg.Issuer,
		Audience:     appCfg.Audience,
		APIKeyHeader: appCfg.APIKeyHeader,
		APIKey:       appCfg.APIKey,
	}
	if err := auth.ValidateConfig(cfg); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDB(ctx, appCfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	provider, err := firebase.New(ctx, appCfg.FirebaseCredentialsFile)
	if err != nil {
		log.Fatalf("identity provider: %v", err)
	}

	repo := auth.NewRepositoryManager(db)
	if err := repo.Validate(); err != nil {
		log.Fatalf("repositories: %v", err)
	}

	auther := auth.NewAuthenticator(provider, repo, cfg)

	var store auth.TokenStore = repo.SessionTokens()
	if appCfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: appCfg.RedisAddr})
		defer client.Close()
		store = redistokens.NewStore(client, auth.SessionTTL(cfg))
		auther.WithTokenStore(store)
	}

	revoker := auth.NewRevoker(provider, store)

	sweeper := auth.NewTokenSweeper(store, auth.SessionTTL(cfg), auth.DefaultLogger())
	sweeper.Start(ctx)
	defer sweeper.Stop()

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	requireAuth := gates.RequireAuth(gates.Config{
		TokenValidator:  auther.TokenService(),
		SessionResolver: auther,
		ContextKey:      cfg.GetContextKey(),
	})

	controller := auth.NewHTTPController(auther, revoker, auth.HTTPConfig{
		SessionContextKey: cfg.GetContextKey(),
		Debug:             appCfg.Debug,
	})
	controller.RegisterRoutes(srv.Router().Group("/auth"), requireAuth)

	r := srv.Router()

	r.Get("/admin/ping", func(c router.Context) error {
		return c.JSON(router.StatusOK, map[string]any{"success": true})
	}, requireAuth, gates.RequireAdmin(gates.AdminConfig{ContextKey: cfg.GetContextKey()}))

	if cfg.GetAPIKey() != "" {
		r.Get("/internal/ping", func(c router.Context) error {
			return c.JSON(router.StatusOK, map[string]any{"success": true})
		}, gates.APIKey(gates.APIKeyConfig{
			Header: cfg.GetAPIKeyHeader(),
			Key:    cfg.GetAPIKey(),
		}))
	}

	srv.Serve(appCfg.Addr)

	waitExitSignal(ctx)
}

func openDB(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	for _, model := range []any{
		(*auth.User)(nil),
		(*auth.SessionToken)(nil),
		(*auth.SearchProfile)(nil),
	} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

func waitExitSignal(ctx context.Context) {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	select {
	case <-ch:
	case <-ctx.Done():
	}
}
