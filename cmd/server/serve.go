package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"formcraft/internal/admin"
	"formcraft/internal/auth"
	"formcraft/internal/builder"
	"formcraft/internal/config"
	"formcraft/internal/engine"
	"formcraft/internal/logging"
	"formcraft/internal/notify"
	"formcraft/internal/store"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log.Info("Config loaded", zap.Int("port", cfg.Server.Port), zap.String("store", cfg.Store.Driver))

	// 2. Open the form store (seeded when store.seed_file is set)
	forms, err := store.New(ctx, cfg.Store, cfg.Publish.BaseURL, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer forms.Close()

	// 3. Builder sessions and the idle janitor
	eval := engine.NewExprLangEvaluator()
	sessions := builder.NewManager(cfg.Sessions.IdleTimeout, eval, log)
	sessions.Start(cfg.Sessions.SweepInterval)
	defer sessions.Stop()

	// 4. Publish notifications
	notifiers := notify.Multi{notify.NewLogNotifier(log)}
	if cfg.Webhook.URL != "" {
		webhook := notify.NewWebhookNotifier(cfg.Webhook, log)
		defer func() {
			drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := webhook.Close(drainCtx); err != nil {
				log.Warn("Pending webhook deliveries abandoned", zap.Error(err))
			}
		}()
		notifiers = append(notifiers, webhook)
		log.Info("Publish webhook enabled", zap.String("url", cfg.Webhook.URL))
	}

	// 5. Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          engine.ErrorHandler(log),
		BodyLimit:             cfg.Server.BodyLimit,
		DisableStartupMessage: true,
	})
	app.Use(recover.New(recover.Config{
		EnableStackTrace: cfg.Log.Development,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "sessions": sessions.Len()})
	})

	// 6. Auth routes (registered before the protected groups)
	auth.RegisterAuthRoutes(app, auth.NewHandler(cfg.Auth, log))
	authMW := auth.Middleware(cfg.Auth)
	if !cfg.Auth.Enabled {
		log.Warn("Authentication disabled, editor routes are open")
	}

	// 7. Stored forms and builder sessions
	admin.RegisterFormRoutes(app, admin.NewHandler(forms, log), authMW)
	builder.RegisterBuilderRoutes(app, builder.NewHandler(sessions, forms, notifiers, log), authMW)

	// 8. Serve until interrupted
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting server", zap.String("addr", addr))
		return app.Listen(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
