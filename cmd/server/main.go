package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"posDisplayWs/internal/config"
	handler "posDisplayWs/internal/modules/realtime/application/handler"
	usecase "posDisplayWs/internal/modules/realtime/application/usecase"
	"posDisplayWs/internal/modules/realtime/infrastructure"
	transport "posDisplayWs/internal/modules/realtime/interface"
	"posDisplayWs/internal/platform/broker"
	"posDisplayWs/internal/shared/auth"
	"posDisplayWs/internal/shared/logging"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logFile, logger, err := logging.Setup(logging.FileConfig{
		Config:    logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, AddSource: true},
		Directory: cfg.Logging.Directory,
	}, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(logger)
	slog.Info("logging initialized", slog.String("directory", cfg.Logging.Directory), slog.String("level", cfg.Logging.Level), slog.String("format", cfg.Logging.Format))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := infrastructure.NewMetrics()
	relay := infrastructure.NewRelay(infrastructure.NewRegistry(), metrics)

	var bridge *infrastructure.RedisBridge
	if cfg.Redis.Addr != "" {
		instanceID := uuid.NewString()
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		candidate := infrastructure.NewRedisBridge(client, cfg.Redis.Channel, instanceID)
		if err := candidate.Start(ctx, relay.DeliverRemote); err != nil {
			slog.Error("redis bridge disabled", slog.String("addr", cfg.Redis.Addr), slog.Any("error", err))
		} else {
			bridge = candidate
			relay.WithPublisher(bridge)
		}
	}

	broadcastUC := usecase.NewBroadcastUseCase(relay)

	registry := infrastructure.NewHandlerRegistry()
	for _, topic := range cfg.Kafka.PaymentTopics {
		registry.Register(handler.NewPaymentStatusHandler(topic, broadcastUC))
	}
	slog.Info("kafka config resolved", slog.Any("brokers", cfg.Kafka.Brokers), slog.String("group", cfg.Kafka.GroupID), slog.Any("topics", registry.Topics()))
	broker.StartKafkaConsumers(ctx, registry, cfg.Kafka.Brokers, cfg.Kafka.GroupID)

	var validator auth.TokenValidator
	if cfg.Security.JWTSecret != "" || cfg.Security.JWTPublicKey != "" {
		v, err := auth.NewJWTValidatorWithPublicKey(cfg.Security.JWTSecret, cfg.Security.JWTPublicKey, cfg.Security.AllowedRoles...)
		if err != nil {
			slog.Error("jwt validator setup failed", slog.Any("error", err))
			os.Exit(1)
		}
		validator = v
	} else {
		slog.Warn("display events endpoint is unauthenticated: JWT_SECRET not set")
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetOutput(log.Writer())
	transport.Register(e, transport.Routes{
		Relay:      relay,
		Metrics:    metrics,
		Broadcast:  broadcastUC,
		Validator:  validator,
		WSPath:     cfg.Websocket.Path,
		SendBuffer: cfg.Websocket.SendBuffer,
	})

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", slog.Any("error", err))
			stop()
		}
	}()
	slog.Info("relay listening", slog.String("port", cfg.Server.Port), slog.String("path", cfg.Websocket.Path))

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown incomplete", slog.Any("error", err))
	}
	for _, conn := range relay.Registry().Snapshot() {
		relay.Detach(conn)
	}
	if bridge != nil {
		if err := bridge.Wait(); err != nil {
			slog.Warn("redis bridge wait failed", slog.Any("error", err))
		}
	}
}
