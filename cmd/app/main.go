package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/wichananm65/chocolate-shop-backend/internal/address"
	"github.com/wichananm65/chocolate-shop-backend/internal/cart"
	"github.com/wichananm65/chocolate-shop-backend/internal/category"
	"github.com/wichananm65/chocolate-shop-backend/internal/config"
	"github.com/wichananm65/chocolate-shop-backend/internal/database"
	"github.com/wichananm65/chocolate-shop-backend/internal/events"
	"github.com/wichananm65/chocolate-shop-backend/internal/favorite"
	"github.com/wichananm65/chocolate-shop-backend/internal/middleware"
	"github.com/wichananm65/chocolate-shop-backend/internal/order"
	"github.com/wichananm65/chocolate-shop-backend/internal/payment"
	"github.com/wichananm65/chocolate-shop-backend/internal/product"
	"github.com/wichananm65/chocolate-shop-backend/internal/recommended"
	"github.com/wichananm65/chocolate-shop-backend/internal/upload"
	"github.com/wichananm65/chocolate-shop-backend/internal/user"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger := newLogger(cfg)
	if cfg.JWTSecret == "" {
		logger.Fatal().Msg("JWT_SECRET is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL, database.Options{MaxOpenConns: 20, MaxIdleConns: 5})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler,
		// leave headroom for multipart framing around the image itself
		BodyLimit: int(cfg.MaxUploadBytes) + 1024*1024,
	})
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	userService := user.NewService(user.NewPostgresRepository(db), user.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL))
	userHandler := user.NewHandler(userService)

	productService := product.NewService(newProductRepository(ctx, cfg, db, logger))
	productHandler := product.NewHandler(productService)

	categoryHandler := category.NewHandler(category.NewService(category.NewPostgresRepository(db)))
	recommendedHandler := recommended.NewHandler(recommended.NewService(recommended.NewPostgresRepository(db)))

	gateway := payment.NewClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	paymentHandler := payment.NewHandler(gateway)

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	orderService := order.NewService(order.NewPostgresRepository(db), gateway, publisher, order.Options{
		StrictPricing:   cfg.StrictPricing,
		Currency:        cfg.Currency,
		VerifySignature: cfg.VerifyPaymentSignature,
	})
	orderHandler := order.NewHandler(orderService)
	go order.NewSweeper(orderService, cfg.PendingOrderTTL, cfg.OrderSweepInterval).Run(ctx)

	favoriteHandler := favorite.NewHandler(favorite.NewService(favorite.NewPostgresRepository(db), productService))
	addressHandler := address.NewHandler(address.NewService(address.NewPostgresRepository(db)))
	cartHandler := cart.NewHandler(cart.NewService(cart.NewPostgresRepository(db)))
	uploadHandler := upload.NewHandler(upload.NewImgHost(cfg.ImageHostURL, cfg.ImageHostKey), cfg.MaxUploadBytes)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// specific product paths go before /api/products/:id
	userHandler.RegisterPublicRoutes(app, middleware.NewRateLimiter(cfg.AuthRatePerMinute).Handler())
	categoryHandler.RegisterPublicRoutes(app)
	recommendedHandler.RegisterPublicRoutes(app)
	productHandler.RegisterPublicRoutes(app)
	paymentHandler.RegisterPublicRoutes(app)

	app.Use(jwtware.New(jwtware.Config{
		SigningKey:    []byte(cfg.JWTSecret),
		SigningMethod: "HS256",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "invalid or expired token"})
		},
	}))

	userHandler.RegisterProtectedRoutes(app)
	favoriteHandler.RegisterProtectedRoutes(app)
	addressHandler.RegisterProtectedRoutes(app)
	cartHandler.RegisterProtectedRoutes(app)
	orderHandler.RegisterProtectedRoutes(app)
	productHandler.RegisterProtectedRoutes(app)
	uploadHandler.RegisterProtectedRoutes(app)

	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	}()

	logger.Info().Str("addr", cfg.Addr).Str("env", cfg.Environment).Msg("server starting")
	if err := app.Listen(cfg.Addr); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if !cfg.IsProduction() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Str("component", "http").Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Str("component", "http").Logger()
}

func newProductRepository(ctx context.Context, cfg config.Config, db *sql.DB, logger zerolog.Logger) product.Repository {
	repo := product.NewPostgresRepository(db)
	if cfg.RedisAddr == "" {
		return repo
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, product cache disabled")
		_ = rdb.Close()
		return repo
	}
	logger.Info().Str("addr", cfg.RedisAddr).Msg("product cache enabled")
	return product.NewCachedRepository(repo, product.NewRedisCache(rdb), cfg.ProductCacheTTL)
}

func newPublisher(cfg config.Config, logger zerolog.Logger) events.Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		return events.NopPublisher{}
	}
	logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.OrderTopic).Msg("publishing order events to kafka")
	return events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.OrderTopic)
}
