package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/syslog"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/kioskmvp/kiosk"
	"github.com/kioskmvp/kiosk/inmem"
	"github.com/kioskmvp/kiosk/persistent"
	"github.com/kioskmvp/kiosk/transport/rest"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logrusys "github.com/sirupsen/logrus/hooks/syslog"
	"github.com/tidwall/buntdb"
)

const (
	serviceName    = "Kiosk MVP"
	serviceVersion = "1.0.0"
)

type stores struct {
	sessions   kiosk.SessionStore
	activities kiosk.ActivityStore
	closers    []func() error
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logrus.WithError(err).Warningln("Could not close store.")
		}
	}
}

func openStores(ctx context.Context, cfg config) (*stores, error) {
	s := &stores{}

	switch cfg.SessionBackend {
	case backendBuntdb:
		logrus.WithField("path", cfg.BuntdbPath).Infoln("Opening buntdb session store.")
		bdb, err := buntdb.Open(cfg.BuntdbPath)
		if err != nil {
			return nil, fmt.Errorf("buntdb open: %w", err)
		}
		s.closers = append(s.closers, bdb.Close)
		sessionStore, err := persistent.NewSessionStore(bdb, kiosk.SystemClock)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.sessions = sessionStore
	case backendRedis:
		logrus.WithField("addr", cfg.RedisAddr).Infoln("Connecting to redis session store.")
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		s.closers = append(s.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			s.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		s.sessions = persistent.NewRedisSessionStore(client, kiosk.SystemClock)
	default:
		logrus.Infoln("Using in-memory session store.")
		s.sessions = inmem.NewSessionStore(kiosk.SystemClock)
	}

	if cfg.PostgresDsn != "" {
		logrus.Infoln("Opening database.")
		db, err := persistent.PgOpen(ctx, cfg.PostgresDsn)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres open: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		if err := persistent.CreateSchema(ctx, db); err != nil {
			s.Close()
			return nil, err
		}
		s.activities = &persistent.ActivityStore{DB: db}
	} else {
		s.activities = inmem.NewActivityStore(kiosk.SystemClock)
	}
	return s, nil
}

func newApp(cfg config, s *stores) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          rest.ErrorHandler,
		DisableStartupMessage: !cfg.Debug,
	})
	app.Use(recover.New())
	app.Use(rest.LogHandler())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CorsAllowOrigins,
		AllowCredentials: cfg.CorsAllowOrigins != "*",
	}))

	authController := rest.AuthController{
		SessionStore:  s.sessions,
		ActivityStore: s.activities,
		Clock:         kiosk.SystemClock,
	}
	sessionController := rest.SessionController{
		Store:         s.sessions,
		ActivityStore: s.activities,
		Clock:         kiosk.SystemClock,
	}
	activityController := rest.ActivityController{Store: s.activities}
	pageController := rest.PageController{
		FrontendDir: cfg.FrontendDir,
		Service:     serviceName,
		Version:     serviceVersion,
	}

	api := app.Group("/api")
	if cfg.Debug {
		api.Get("/monitor", monitor.New())
	}
	authController.InstallTo(api)
	sessionController.InstallTo(api)
	activityController.InstallTo(rest.RequestAuthorizer(s.sessions), api)
	pageController.InstallTo(app)

	app.Use(pageController.NotFoundHandler)
	return app
}

func setupLogger(verbose bool, useSyslog bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: time.Stamp,
		FullTimestamp:   true,
	})
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if !useSyslog {
		return
	}

	syslogHook, err := logrusys.NewSyslogHook("", "", syslog.LOG_USER, "kiosk")
	if err != nil {
		logrus.WithError(err).Fatalln("Could not create syslog hook.")
		return
	}
	logrus.AddHook(syslogHook)
}

func awaitInterruption() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.WithError(err).Fatalln("Could not load .env file.")
	}
	cfg, err := loadConfig(env.Options{})
	if err != nil {
		logrus.WithError(err).Fatalln("Invalid configuration.")
	}
	setupLogger(cfg.Debug, cfg.Syslog)
	logrus.Infoln("Starting kiosk backend.")

	s, err := openStores(context.Background(), cfg)
	if err != nil {
		logrus.WithError(err).Fatalln("Could not open stores.")
	}

	app := newApp(cfg, s)
	go func() {
		logrus.WithField("addr", cfg.Addr).Infoln("Starting listening... To shut down use ^C")
		if err := app.Listen(cfg.Addr); err != nil {
			logrus.WithError(err).Fatalln("Listen failed.")
		}
	}()

	awaitInterruption()

	logrus.Infoln("Shutting down...")
	if err := app.Shutdown(); err != nil {
		logrus.WithError(err).Warningln("Fiber shutdown failed.")
	}
	s.Close()
	logrus.Exit(0)
}
