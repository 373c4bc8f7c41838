package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/middleware"

	"github.com/appetiteclub/frontdesk/pkg"
	"github.com/appetiteclub/frontdesk/pkg/backend"
	"github.com/appetiteclub/frontdesk/services/frontdesk/internal/frontdesk"
	"github.com/appetiteclub/frontdesk/services/frontdesk/internal/mongo"
	"github.com/appetiteclub/frontdesk/services/frontdesk/internal/redis"
)

const (
	appNamespace = "FRONTDESK"
	appName      = "frontdesk"
	appVersion   = "0.1.0"
)

func main() {
	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup with error: %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	lifecycle := []interface{}{}

	backendURL := config.GetStringOrDef("services.backend.url", "http://localhost:5000")
	backendTimeout, err := time.ParseDuration(config.GetStringOrDef("services.backend.timeout", backend.DefaultTimeout.String()))
	if err != nil {
		log.Fatalf("%s(%s) invalid services.backend.timeout: %v", appName, appVersion, err)
	}
	client := backend.NewClient(backendURL,
		backend.WithTimeout(backendTimeout),
		backend.WithLogger(logger),
	)

	var outcomes frontdesk.OutcomeStore = frontdesk.NewMemoryOutcomeStore(0)
	switch {
	case config.GetStringOrDef("db.mongo.enabled", "false") == "true":
		outcomeRepo := mongo.NewOutcomeRepo(config, logger)
		if err := outcomeRepo.Start(ctx); err != nil {
			log.Fatalf("%s(%s) cannot start outcome repository: %v", appName, appVersion, err)
		}
		lifecycle = append(lifecycle, apt.LifecycleHooks{
			OnStop: outcomeRepo.Stop,
		})
		outcomes = outcomeRepo

	case config.GetStringOrDef("db.redis.enabled", "false") == "true":
		outcomeStore := redis.NewOutcomeStore(config, logger)
		if err := outcomeStore.Start(ctx); err != nil {
			log.Fatalf("%s(%s) cannot start outcome store: %v", appName, appVersion, err)
		}
		lifecycle = append(lifecycle, apt.LifecycleHooks{
			OnStop: outcomeStore.Stop,
		})
		outcomes = outcomeStore
	}

	var publisher events.Publisher
	natsURL := config.GetStringOrDef("nats.url", "nats://localhost:4222")
	switch {
	case config.GetStringOrDef("nats.stream.enabled", "false") == "true":
		streamMaxAge, err := time.ParseDuration(config.GetStringOrDef("nats.stream.max_age", "168h"))
		if err != nil {
			log.Fatalf("%s(%s) invalid nats.stream.max_age: %v", appName, appVersion, err)
		}
		stream, err := pkg.NewNATSStream(ctx, pkg.NATSStreamConfig{
			URL:    natsURL,
			Name:   appName,
			MaxAge: streamMaxAge,
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("%s(%s) cannot create reservation stream: %v", appName, appVersion, err)
		}
		lifecycle = append(lifecycle, apt.LifecycleHooks{
			OnStop: func(context.Context) error {
				return stream.Close()
			},
		})
		publisher = stream

	case config.GetStringOrDef("nats.enabled", "false") == "true":
		natsPublisher, err := pkg.NewNATSPublisher(natsURL, appName)
		if err != nil {
			log.Fatalf("%s(%s) cannot connect to NATS publisher: %v", appName, appVersion, err)
		}
		lifecycle = append(lifecycle, apt.LifecycleHooks{
			OnStop: func(context.Context) error {
				return natsPublisher.Close()
			},
		})
		publisher = natsPublisher
	}

	deps := frontdesk.HandlerDeps{
		Auth: client,
		BackendFor: func(tokens backend.TokenSource) frontdesk.Backend {
			return client.ForSession(tokens)
		},
		Outcomes:  outcomes,
		Publisher: publisher,
	}

	handler := frontdesk.NewHandler(deps, config, logger)

	lifecycle = append(lifecycle, apt.LifecycleHooks{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx); err != nil {
				logger.Info("reservations backend not reachable at startup, availability will degrade", "url", backendURL, "error", err)
			}
			return nil
		},
		OnStop: handler.Stop,
	})

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      logger,
		DisableCORS: false, // browser-facing
	})

	options := []apt.Option{
		apt.WithConfig(config),
		apt.WithLogger(logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", handler),
		apt.WithLifecycle(lifecycle...),
		apt.WithHealthChecks(appName),
	}

	ms := apt.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	if err := ms.Run(ctx); err != nil {
		log.Fatalf("%s(%s) stopped with error: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}
