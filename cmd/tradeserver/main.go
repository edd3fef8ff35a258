package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/efreitasn/tradeserver/internal/beacon"
	"github.com/efreitasn/tradeserver/internal/config"
	"github.com/efreitasn/tradeserver/internal/domain"
	"github.com/efreitasn/tradeserver/internal/handler"
	"github.com/efreitasn/tradeserver/internal/protocol"
	"github.com/efreitasn/tradeserver/internal/server"
	"github.com/efreitasn/tradeserver/internal/service"
	"github.com/efreitasn/tradeserver/internal/session"
	"github.com/efreitasn/tradeserver/internal/store"
	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	envFile := flag.String("env-file", ".env", "Optional dotenv file loaded before reading the environment")
	flag.Parse()

	// A missing env file is not an error; real env vars take precedence.
	_ = godotenv.Load(*envFile)

	// Handle -healthcheck flag: HTTP GET to localhost:ADMIN_PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("ADMIN_PORT")
		if port == "" {
			port = "8080"
		}
		client := http.Client{Timeout: 3 * time.Second}
		resp, err := client.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil {
			return 1
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return 1
		}
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		return 1
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ledger.
	st, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open ledger",
			slog.String("driver", cfg.LedgerDriver),
			slog.String("error", err.Error()),
		)
		return 1
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("ledger close error", slog.String("error", err.Error()))
		}
	}()

	if cfg.SeedDemo {
		n, err := store.Seed(ctx, st, domain.DemoAccounts())
		if err != nil {
			logger.Error("failed to seed ledger", slog.String("error", err.Error()))
			return 1
		}
		if n > 0 {
			logger.Info("seeded demo accounts", slog.Int("accounts", n))
		}
	}

	trading := service.NewTradingService(st)
	registry := session.NewRegistry()
	engine := protocol.NewEngine(trading)

	// Discovery beacon. Failing to open it only disables discovery.
	var b *beacon.Beacon
	beaconConn, err := beacon.Listen(ctx, ":0")
	if err != nil {
		logger.Warn("beacon disabled", slog.String("error", err.Error()))
	} else {
		defer beaconConn.Close()
		target, err := net.ResolveUDPAddr("udp4", cfg.BeaconAddr)
		if err != nil {
			logger.Error("invalid beacon address", slog.String("error", err.Error()))
			return 1
		}
		b = beacon.New(beaconConn, target, []byte(cfg.BeaconMagic), cfg.BeaconInterval, logger)
	}

	srv := server.New(server.Config{
		Addr:           fmt.Sprintf(":%d", cfg.Port),
		ReadBufferSize: cfg.ReadBufferSize,
	}, engine, registry, b, logger)
	if err := srv.Listen(ctx); err != nil {
		logger.Error("failed to bind", slog.Int("port", cfg.Port), slog.String("error", err.Error()))
		return 1
	}

	// Admin HTTP server.
	var admin *http.Server
	if cfg.AdminPort != 0 {
		addr := fmt.Sprintf(":%d", cfg.AdminPort)
		admin = &http.Server{
			Addr:         addr,
			Handler:      handler.NewRouter(trading, registry, logger),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		}
		go func() {
			logger.Info("admin server starting", slog.String("addr", addr))
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("admin server error", slog.String("error", err.Error()))
			}
		}()
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- srv.Run(ctx)
	}()

	// Wait for SIGINT/SIGTERM, a client shutdown command, or a listener failure.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case <-srv.Done():
		logger.Info("shutdown command received")
	case err := <-runErr:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			exitCode = 1
		}
		runErr <- nil
	}

	// Graceful shutdown: stop accepting, release sessions, stop admin server.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	cancel()
	select {
	case <-runErr:
	case <-shutdownCtx.Done():
		logger.Error("server did not stop in time")
		exitCode = 1
	}

	if admin != nil {
		if err := admin.Shutdown(shutdownCtx); err != nil {
			logger.Error("admin shutdown error", slog.String("error", err.Error()))
		}
	}

	logger.Info("shutdown complete")
	return exitCode
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.LedgerDriver {
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	default:
		return store.OpenSQLite(cfg.LedgerPath)
	}
}
