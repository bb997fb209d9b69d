package routes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerworks/walletledger/internal/config"
	"github.com/ledgerworks/walletledger/internal/ledger"
	"github.com/ledgerworks/walletledger/internal/middleware"
	"github.com/ledgerworks/walletledger/internal/notification"
	"github.com/ledgerworks/walletledger/internal/payments"
	"github.com/ledgerworks/walletledger/internal/user"
	"github.com/ledgerworks/walletledger/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDev() {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var (
		userRepo   user.Repository
		walletRepo wallet.Repository
		store      ledger.Store
	)
	if d.DB != nil {
		userRepo = user.NewPostgresRepository(d.DB)
		walletRepo = wallet.NewPostgresRepository(d.DB)
		store = ledger.NewPostgresStore(d.DB)
	} else {
		memWallets := wallet.NewMemoryRepository()
		userRepo = user.NewMemoryRepository()
		walletRepo = memWallets
		store = ledger.NewInMemory(memWallets)
	}

	var (
		cache    wallet.Cache
		notifier notification.Notifier = notification.NewLoggerNotifier(d.Logger)
	)
	opts := []ledger.Option{ledger.WithLogger(d.Logger)}
	if d.Cache != nil {
		redisCache := wallet.NewRedisCache(d.Cache, d.Cfg.BalanceCacheTTL)
		cache = redisCache
		notifier = notification.NewRedisNotifier(d.Cache, d.Cfg.EventsChannel)
		opts = append(opts, ledger.WithCache(redisCache))
	}
	opts = append(opts, ledger.WithNotifier(notifier))

	userSvc := user.NewService(userRepo)
	walletSvc := wallet.NewService(walletRepo, userSvc, cache, d.Logger)
	engine := ledger.NewEngine(store, opts...)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals(middleware.RequestIDKey).(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterUserRoutes(api, user.NewHandler(userSvc))
	RegisterWalletRoutes(api, wallet.NewHandler(walletSvc))
	RegisterPaymentRoutes(api, payments.NewHandler(engine),
		middleware.TransferRateLimit(d.Cache, d.Cfg.TransferRateLimit, d.Logger))

	return nil
}

// ErrorHandler renders unhandled errors as {"error": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := http.StatusInternalServerError
	msg := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
