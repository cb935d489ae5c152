// v1
// cmd/solarmon/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"solarmon/internal/app"
	"solarmon/internal/config"
)

func main() {
	bootstrap := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("config_load_failed", slog.Any("err", err))
		os.Exit(1)
	}

	application, err := app.New(cfg)
	if err != nil {
		bootstrap.Error("app_init_failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if cerr := application.Close(); cerr != nil {
			bootstrap.Error("app_close_failed", slog.Any("err", cerr))
		}
	}()

	logger := application.Logger()
	logger.Info("service_boot",
		slog.String("serial_port", cfg.Serial.Port),
		slog.Int("baudrate", cfg.Serial.Baud),
		slog.String("listen_addr", cfg.Server.ListenAddr),
		slog.String("csv_path", cfg.Logging.CSVPath),
		slog.String("log_path", cfg.Logging.LogPath),
		slog.String("config_path", cfg.ConfigPath),
		slog.String("device", cfg.DeviceName),
		slog.Bool("mqtt", cfg.MQTT.Enabled),
		slog.Bool("kafka", cfg.Kafka.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		logger.Error("service_terminated", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("service_stopped")
}
