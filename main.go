package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"shop-service/config"
	"shop-service/consumers"
	"shop-service/controllers"
	"shop-service/database"
	"shop-service/gateway"
	"shop-service/logger"
	"shop-service/middlewares"
	"shop-service/rabbitmq"
	"shop-service/services"
	"shop-service/store"
	"shop-service/utils"
)

func main() {
	cfg := config.LoadConfig()
	log := logger.NewLogger(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("shop service stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.InitSchema(ctx, db, log); err != nil {
		return err
	}
	st := store.New(db)

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	var limiter *middlewares.RateLimiter
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, rate limiter will fail open", "addr", cfg.RedisAddr, "error", err)
		}
		limiter = middlewares.NewRateLimiter(rdb, log)
	} else {
		log.Warn("REDIS_ADDR not set, rate limiting disabled")
	}

	processor := gateway.Unconfigured()
	if cfg.StripeSecretKey != "" {
		processor = gateway.NewStripe(cfg.StripeSecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, payments disabled")
	}

	var events services.EventPublisher = services.NoopPublisher{}
	var rmq *rabbitmq.RabbitMQ
	if cfg.RabbitMQURL != "" {
		rmq, err = rabbitmq.NewRabbitMQ(cfg, log)
		if err != nil {
			return err
		}
		defer rmq.Close()

		if err := rmq.SetupQueues(); err != nil {
			return err
		}
		events = rmq
	} else {
		log.Warn("RABBITMQ_URL not set, order events disabled")
	}

	orders := services.NewOrderService(st, events, log, cfg.PaymentTimeout)

	if rmq != nil {
		// Consumers get their own channel.
		ch, err := rmq.Conn.Channel()
		if err != nil {
			return err
		}
		defer ch.Close()
		if err := consumers.NewOrderConsumer(orders, log).Start(ctx, ch, cfg); err != nil {
			return err
		}
	}

	if err := controllers.RegisterValidators(); err != nil {
		return err
	}
	h := controllers.NewHandler(controllers.Services{
		Auth:       services.NewAuthService(st, tokens, log),
		Users:      services.NewUserService(st, log),
		Categories: services.NewCategoryService(st, log),
		Products:   services.NewProductService(st, log),
		Orders:     orders,
		Payments:   services.NewPaymentService(st, processor, events, log),
		Carts:      services.NewCartService(st),
	}, log)

	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger(log), middlewares.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	h.RegisterRoutes(r, tokens, st, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("shop service starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
