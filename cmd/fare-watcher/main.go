package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/ozzus/fare-watcher/grpcapp"
	"github.com/ozzus/fare-watcher/internal/application/service"
	"github.com/ozzus/fare-watcher/internal/config"
	derr "github.com/ozzus/fare-watcher/internal/domain/errors"
	"github.com/ozzus/fare-watcher/internal/domain/models"
	"github.com/ozzus/fare-watcher/internal/domain/ports"
	amadeusclient "github.com/ozzus/fare-watcher/internal/infrastructures/amadeus/http/client"
	cacheredis "github.com/ozzus/fare-watcher/internal/infrastructures/db/redis"
	watchertracing "github.com/ozzus/fare-watcher/internal/infrastructures/db/tracing"
	"github.com/ozzus/fare-watcher/internal/infrastructures/notify"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.MustLoad()
	log := setupLogger(cfg.Log)

	code := run(cfg, log)
	_ = log.Sync()
	os.Exit(code)
}

func run(cfg *config.Config, log *zap.Logger) int {
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", zap.Error(err))
		return 2
	}

	shutdownTracer, err := watchertracing.InitTracer("fare-watcher", cfg.Jaeger)
	if err != nil {
		log.Error("failed to init tracer", zap.Error(err))
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Warn("failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	space, err := cfg.Search.Space(time.Now())
	if err != nil {
		log.Error("invalid search space", zap.Error(err))
		return 2
	}
	ceilingPerPax, err := cfg.Search.PriceCeilingPerPax()
	if err != nil {
		log.Error("invalid price ceiling", zap.Error(err))
		return 2
	}

	var tokens ports.TokenProvider = amadeusclient.NewTokenClient(
		cfg.Amadeus.BaseURL,
		cfg.Amadeus.ClientID,
		cfg.Amadeus.ClientSecret,
		cfg.Amadeus.AuthTimeout,
	)
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Warn("failed to close redis client", zap.Error(err))
			}
		}()
		tokens = service.NewCachingTokenProvider(log, tokens, cacheredis.NewTokenCacheRepository(redisClient), cfg.Amadeus.ClientID)
	}

	offerSource := amadeusclient.NewClient(amadeusclient.Options{
		BaseURL:        cfg.Amadeus.BaseURL,
		Currency:       cfg.Search.Currency,
		Limit:          cfg.Amadeus.Limit,
		NonStop:        cfg.Search.NonStop,
		MaxPricePerPax: ceilingPerPax,
		Timeout:        cfg.Amadeus.Timeout,
		MaxAttempts:    cfg.Amadeus.MaxAttempts,
	})

	console := notify.NewConsole(os.Stdout)
	notifier := notify.NewMulti(log, buildSinks(cfg.Notify, console)...)

	scanService := service.NewScanService(log, tokens, offerSource, notifier, service.ScanSettings{
		Space:            space,
		CeilingPerPax:    ceilingPerPax,
		DestinationLabel: cfg.Search.Label(),
		MaxRequests:      cfg.Search.MaxRequestsPerRun,
	})

	log.Info("fare-watcher starting",
		zap.String("env", cfg.Env),
		zap.Strings("origins", space.Origins),
		zap.Strings("destinations", space.Destinations),
		zap.String("window_start", space.Window.Start.Format(models.DateLayout)),
		zap.String("window_end", space.Window.End.Format(models.DateLayout)),
		zap.Int("max_requests_per_run", cfg.Search.MaxRequestsPerRun),
		zap.Int("sinks", notifier.Len()),
		zap.Duration("schedule_interval", cfg.Schedule.Interval),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Schedule.Interval <= 0 {
		return runOnce(ctx, log, scanService, console)
	}

	app := grpcapp.New(log, cfg.GRPC.Host, cfg.GRPC.Port)
	l, err := app.Listen()
	if err != nil {
		log.Error("failed to bind health server", zap.Error(err))
		return 1
	}
	return runScheduled(ctx, log, scanService, console, app, l, cfg.Schedule.Interval)
}

type scanner interface {
	Run(ctx context.Context) (models.RunReport, error)
}

// runOnce scans a single time. A run is never interrupted by a signal.
func runOnce(ctx context.Context, log *zap.Logger, scan scanner, console *notify.Console) int {
	report, err := scan.Run(context.WithoutCancel(ctx))
	if err != nil {
		log.Error("scan aborted", zap.Error(err))
		return 1
	}
	if report.Best == nil {
		console.NoDeals()
	}
	return 0
}

// runScheduled scans back to back, pausing interval between runs, until ctx
// is cancelled or the health server fails. Signals are observed between runs.
func runScheduled(ctx context.Context, log *zap.Logger, scan scanner, console *notify.Console, app *grpcapp.GrpcApp, l net.Listener, interval time.Duration) int {
	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Serve(l)
	}()
	defer app.Stop()

	for {
		report, err := scan.Run(context.WithoutCancel(ctx))
		switch {
		case errors.Is(err, derr.ErrAuth):
			log.Error("scan aborted, credentials rejected", zap.Error(err))
			app.SetServing(false)
		case err != nil:
			log.Error("scan aborted", zap.Error(err))
		default:
			app.SetServing(true)
			if report.Best == nil {
				console.NoDeals()
			}
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("shutdown signal received")
			return 0
		case err := <-errCh:
			timer.Stop()
			if err != nil {
				log.Error("gRPC server stopped", zap.Error(err))
				return 1
			}
			return 0
		case <-timer.C:
		}
	}
}

func buildSinks(cfg config.NotifyConfig, console *notify.Console) []notify.Sink {
	sinks := []notify.Sink{console}

	if strings.TrimSpace(cfg.DiscordWebhook) != "" {
		sinks = append(sinks, notify.NewDiscord(cfg.DiscordWebhook, cfg.Timeout))
	}
	if strings.TrimSpace(cfg.TelegramToken) != "" && strings.TrimSpace(cfg.TelegramChat) != "" {
		sinks = append(sinks, notify.NewTelegram(cfg.TelegramURL, cfg.TelegramToken, cfg.TelegramChat, cfg.Timeout))
	}
	if strings.TrimSpace(cfg.Email.Host) != "" && len(cfg.Email.To) > 0 {
		sinks = append(sinks, notify.NewEmail(notify.EmailOptions{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			To:       cfg.Email.To,
			Timeout:  cfg.Timeout,
		}))
	}

	return sinks
}

func setupLogger(cfg config.LogConfig) *zap.Logger {
	zapLevel := parseLogLevel(cfg.Level)
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(zapLevel)

	log, err := zapCfg.Build()
	if err != nil {
		panic(err)
	}

	if strings.TrimSpace(cfg.File) == "" {
		return log
	}

	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zapCfg.EncoderConfig),
		zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}),
		zapCfg.Level,
	)

	return log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
}

func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
