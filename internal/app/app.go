// v2
// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/handlers"

	"solarmon/internal/api"
	"solarmon/internal/calib"
	"solarmon/internal/collector"
	"solarmon/internal/config"
	"solarmon/internal/energy"
	"solarmon/internal/logging"
	"solarmon/internal/metrics"
	"solarmon/internal/serialport"
	"solarmon/internal/sink"
	"solarmon/internal/state"
)

// Application wires configuration, logging, the collector loop, the sample
// sinks, and the HTTP server into one lifetime-scoped unit with graceful
// shutdown.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	logFile   *os.File
	server    *http.Server
	collector *collector.Collector
	sinks     *sink.Fanout
}

// New prepares a fully wired daemon instance from the supplied
// configuration. Optional sinks that fail to come up are skipped with a
// log entry; everything else is fatal at startup.
func New(cfg config.Config) (*Application, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	logger, logFile, err := logging.Init(cfg.Logging.LogPath, level)
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		_ = logFile.Close()
		return nil, fmt.Errorf("resolve rollover timezone: %w", err)
	}

	mtx := metrics.NewMetrics()

	calStore, err := calib.NewStore(cfg.Calibration)
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}

	stateStore := state.NewStore(cfg.Sampling.MaxBufferPoints, cfg.Sampling.StaleAfter)
	accumulator := energy.NewAccumulator(loc, cfg.Energy.MaxGap)

	sinks, err := buildSinks(cfg, logger, mtx)
	if err != nil {
		_ = logFile.Close()
		return nil, err
	}

	collectorLogger := logger.With(slog.String("component", "collector"))
	coll, err := collector.New(
		collector.Config{
			ReadTimeout: cfg.Serial.ReadTimeout,
			BackoffMin:  time.Second,
			BackoffMax:  30 * time.Second,
		},
		serialport.Dialer{Port: cfg.Serial.Port, Baud: cfg.Serial.Baud},
		calStore,
		accumulator,
		stateStore,
		sinks,
		mtx,
		collectorLogger,
	)
	if err != nil {
		_ = sinks.Close()
		_ = logFile.Close()
		return nil, fmt.Errorf("collector init: %w", err)
	}

	router := api.NewRouter(&api.Handlers{
		Log:         logger.With(slog.String("component", "api")),
		Snapshots:   stateStore,
		Calibration: calStore,
		Metrics:     mtx,
		CSVPath:     cfg.Logging.CSVPath,
		Started:     time.Now(),
	})
	server := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           handlers.LoggingHandler(os.Stdout, router),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	return &Application{
		cfg:       cfg,
		logger:    logger,
		logFile:   logFile,
		server:    server,
		collector: coll,
		sinks:     sinks,
	}, nil
}

// buildSinks assembles the sample fan-out. CSV is always on; MQTT and
// Kafka join when enabled. An optional sink that cannot be constructed is
// logged and skipped rather than failing the daemon.
func buildSinks(cfg config.Config, logger *slog.Logger, mtx *metrics.Metrics) (*sink.Fanout, error) {
	sinkLogger := logger.With(slog.String("component", "sink"))

	csvSink, err := sink.NewCSVSink(cfg.Logging.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("csv sink init: %w", err)
	}
	active := []sink.Sink{csvSink}

	if cfg.MQTT.Enabled {
		mqttSink, err := sink.NewMQTTSink(sink.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
			QoS:      byte(cfg.MQTT.QoS),
			Source:   cfg.DeviceName,
		})
		if err != nil {
			sinkLogger.Warn("mqtt_sink_skipped", slog.Any("err", err))
		} else {
			active = append(active, mqttSink)
		}
	}

	if cfg.Kafka.Enabled {
		active = append(active, sink.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.DeviceName))
		sinkLogger.Info("kafka_sink_enabled",
			slog.String("brokers", strings.Join(cfg.Kafka.Brokers, ",")),
			slog.String("topic", cfg.Kafka.Topic),
		)
	}

	return sink.NewFanout(sinkLogger, mtx, active...), nil
}

// Logger exposes the configured slog logger so main can emit structured
// logs after initialization.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Run blocks until the context is cancelled or the HTTP server terminates
// unexpectedly. The collector outlives transient link failures by design,
// so its only expected exit is cancellation.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpCh := make(chan error, 1)
	go func() {
		a.logger.Info("http_server_listen", slog.String("address", a.cfg.Server.ListenAddr))
		httpCh <- a.server.ListenAndServe()
	}()

	collCh := make(chan error, 1)
	go func() {
		collCh <- a.collector.Run(ctx)
	}()

	var httpErr error
	var collErr error

	for {
		select {
		case err := <-httpCh:
			httpCh = nil
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				httpErr = err
				a.logger.Error("http_server_error", slog.Any("err", err))
			} else {
				a.logger.Info("http_server_closed")
			}
			cancel()
		case err := <-collCh:
			collCh = nil
			if err != nil && !errors.Is(err, context.Canceled) {
				collErr = err
				a.logger.Error("collector_error", slog.Any("err", err))
			} else {
				a.logger.Info("collector_completed")
			}
			cancel()
		case <-ctx.Done():
			a.logger.Info("shutdown_signal")
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				a.logger.Error("server_shutdown_failed", slog.Any("err", err))
				if httpErr == nil {
					httpErr = fmt.Errorf("shutdown: %w", err)
				}
			}
			shutdownCancel()

			if httpCh != nil {
				if err := <-httpCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.logger.Error("server_shutdown_error", slog.Any("err", err))
					if httpErr == nil {
						httpErr = err
					}
				}
			}
			if collCh != nil {
				if err := <-collCh; err != nil && !errors.Is(err, context.Canceled) {
					a.logger.Error("collector_shutdown_error", slog.Any("err", err))
					if collErr == nil {
						collErr = err
					}
				}
			}

			if collErr != nil {
				return collErr
			}
			if httpErr != nil {
				return httpErr
			}
			a.logger.Info("shutdown_complete")
			return nil
		}
	}
}

// Close flushes and closes resources owned by the application instance.
func (a *Application) Close() error {
	if a.sinks != nil {
		if err := a.sinks.Close(); err != nil {
			return err
		}
		a.sinks = nil
	}
	if a.logFile == nil {
		return nil
	}
	if err := a.logFile.Close(); err != nil {
		return err
	}
	a.logFile = nil
	return nil
}
