package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nephh/twitter-clone/internal/config"
	"github.com/nephh/twitter-clone/internal/db"
	"github.com/nephh/twitter-clone/internal/logs"
	"github.com/nephh/twitter-clone/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

var log = logs.Get("api")

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() (config.Config, error)
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) *redis.Client
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, <-chan os.Signal, ListenFunc) error
	exit            func(int)
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		notify:          signal.Notify,
		run:             Run,
		exit:            os.Exit,
	}
}

func realMain(deps mainDeps) {
	cfg, err := deps.loadConfig()
	if err != nil {
		logs.Setup("INFO", nil)
		log.Critical("invalid configuration: %v", err)
		deps.exit(1)
		return
	}
	logs.Setup(cfg.LogLevel, nil)

	var pg *pgxpool.Pool
	if usesPostgres(cfg) {
		pg, err = deps.connectPostgres(cfg)
		if err != nil {
			log.Error("postgres connection failed: %v", err)
		}
	}

	rdb := deps.connectRedis(cfg)

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, pg, rdb, signals, nil); err != nil {
		log.Error("server exited with error: %v", err)
	}
}

func usesPostgres(cfg config.Config) bool {
	return cfg.StoreDriver != "memory" || cfg.DirectoryDriver == "postgres"
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, signals <-chan os.Signal, listen ListenFunc) error {
	srv, err := server.NewServer(cfg, pg, rdb)
	if err != nil {
		closeClients(pg, rdb)
		return err
	}

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
		log.Info("shutting down")
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			_ = srv.Close()
			closeClients(pg, rdb)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	if err := srv.Close(); err != nil {
		log.Warning("closing server resources: %v", err)
	}
	closeClients(pg, rdb)
	return nil
}

func closeClients(pg *pgxpool.Pool, rdb *redis.Client) {
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
