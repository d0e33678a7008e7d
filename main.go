package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/theleywin/Framez-Backend/src/auth"
	"github.com/theleywin/Framez-Backend/src/controllers"
	"github.com/theleywin/Framez-Backend/src/feed"
	"github.com/theleywin/Framez-Backend/src/lib"
	"github.com/theleywin/Framez-Backend/src/notify"
	"github.com/theleywin/Framez-Backend/src/routes"
)

func main() {
	if err := godotenv.Load(); err != nil {
		lib.LogJSON("info", "no .env file, using environment", nil)
	}
	cfg := lib.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backends, err := openBackends(ctx, cfg)
	if err != nil {
		lib.LogJSON("fatal", "could not open document store", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	defer backends.close()

	images, err := openImageHost(ctx, cfg)
	if err != nil {
		lib.LogJSON("fatal", "could not configure image host", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}

	posts := feed.NewService(backends.posts, images)
	sessions := auth.NewService(backends.users, cfg.JWTSecret)
	go sessions.WatchRevocations(ctx, cfg.MirrorRetry)

	pusher := notify.NewExpoPusher(cfg.ExpoAccessToken)
	notifier := notify.NewNotifier(backends.notifications, backends.tokens, pusher)

	mirror := controllers.NewMirror(posts, cfg.MirrorRetry)
	mirror.Start(ctx)

	handler := controllers.NewHandler(posts, sessions, backends.users, notifier, mirror)

	app := fiber.New(fiber.Config{
		AppName:   "Framez",
		BodyLimit: 2 * feed.MaxImageSize,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	routes.Register(app, handler, sessions, routes.Options{PostsPerMinute: cfg.PostsPerMinute})

	go func() {
		<-ctx.Done()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	lib.LogJSON("info", "server is running", map[string]interface{}{
		"port":       cfg.Port,
		"store":      cfg.Store,
		"image_host": cfg.ImageHost,
	})
	if err := app.Listen(":" + cfg.Port); err != nil {
		lib.LogJSON("error", "server stopped", map[string]interface{}{"error": err.Error()})
	}
}
