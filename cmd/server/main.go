// @title                      Product Management API
// @version                    1.0.0
// @description                Product catalog with JWT-protected CRUD endpoints.
// @BasePath                   /api
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/errgroup"

	"github.com/shouryamanekar/product-management-backend/docs"
	"github.com/shouryamanekar/product-management-backend/internal/api"
	"github.com/shouryamanekar/product-management-backend/internal/api/handler"
	"github.com/shouryamanekar/product-management-backend/internal/core/auth"
	"github.com/shouryamanekar/product-management-backend/internal/core/ports"
	"github.com/shouryamanekar/product-management-backend/internal/core/service"
	mongostore "github.com/shouryamanekar/product-management-backend/internal/infrastructure/db/mongo"
	redisstore "github.com/shouryamanekar/product-management-backend/internal/infrastructure/db/redis"
	"github.com/shouryamanekar/product-management-backend/internal/pkg/config"
	"github.com/shouryamanekar/product-management-backend/pkg/logger"
)

const serviceName = "product-management-backend"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})

	// --- MongoDB ---
	client, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")

	users := mongostore.NewUserRepository(db)
	products := mongostore.NewProductRepository(db)
	if err := mongostore.Bootstrap(ctx, users, products); err != nil {
		return err
	}

	readiness := map[string]handler.Pinger{
		"mongodb": handler.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		}),
	}

	// --- Redis (optional) ---
	var keys ports.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, Idempotency-Key support disabled")
		} else {
			defer rdb.Close()
			keys = redisstore.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)
			readiness["redis"] = handler.PingFunc(func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			})
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to redis")
		}
	}

	// --- Services ---
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authService := service.NewAuthService(users, tokens, component(log, "auth"))
	productService := service.NewProductService(products, keys, component(log, "products"))

	if host := hostOf(cfg.BaseURL); host != "" {
		docs.SwaggerInfo.Host = host
	}

	e := api.NewRouter(api.Deps{
		Auth:        authService,
		Products:    productService,
		Readiness:   readiness,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      log,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// hostOf extracts host[:port] from BASE_URL for the Swagger document.
func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Host
}
