// Command relayd is the reference driver spec §6 describes: a
// Configurator-driven process that loads a config file, overlays CLI
// options, starts an App, and serves /metrics until interrupted.
//
//	relayd [--config=relay.conf] [--caf.scheduler.policy=stealing] [--http-addr=:9090]
//
// The first positional argument after flags is this binary's own name
// per spec §6's CLI surface; any remaining ones are this driver's own
// (currently: none beyond --help).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	natsconn "github.com/relaykit/relay/adapters/nats"
	"github.com/relaykit/relay/core/app"
	"github.com/relaykit/relay/ports/config"
	relaynats "github.com/relaykit/relay/ports/transport/nats"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	code := run(log, os.Args[1:])
	os.Exit(code)
}

// run builds the process's Configurator from args, starts an App, serves
// /metrics, and blocks until interrupted. Exit codes follow spec §6:
// 0 success, 1 config error.
func run(log *slog.Logger, args []string) int {
	shortcuts := config.Shortcut{"c": "config", "a": "http-addr"}
	cli, positional := config.ParseCLI(args, shortcuts)

	if v, ok := cli.Get("", "help"); ok {
		if b, err := v.Bool(); err == nil && b {
			printHelp()
			return 0
		}
	}

	cfg := cli
	if path := cli.StringOr("", "config", ""); path != "" {
		fileCfg, err := loadConfigFile(path)
		if err != nil {
			log.Error("failed to load config file", slog.String("path", path), slog.Any("error", err))
			return 1
		}
		cfg = fileCfg.Merge(cli)
	}

	httpAddr := cfg.StringOr("", "http-addr", ":9090")
	natsURL := cfg.StringOr("caf.transport", "nats-url", "")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	appCfg := app.Config{
		Context:      ctx,
		Log:          log,
		Configurator: cfg,
		NodeID:       cfg.StringOr("caf.node", "id", ""),
	}

	if natsURL != "" {
		tr, err := relaynats.New(relaynats.Config{
			Connect:       natsconn.ConnectURL(natsURL),
			Log:           log,
			SubjectPrefix: cfg.StringOr("caf.transport", "subject-prefix", "relay"),
		})
		if err != nil {
			log.Error("failed to connect transport", slog.String("url", natsURL), slog.Any("error", err))
			return 1
		}
		defer tr.Close()
		appCfg.Transport = tr
	}

	a, err := app.New(appCfg)
	if err != nil {
		log.Error("failed to assemble app", slog.Any("error", err))
		return 1
	}
	if err := a.Run(); err != nil {
		log.Error("failed to start app", slog.Any("error", err))
		return 1
	}

	log.Info("relayd ready",
		slog.String("node", a.Node().ID()),
		slog.String("http_addr", httpAddr),
		slog.Any("positional", positional),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: httpAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", slog.Any("error", err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	if err := a.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		return 1
	}
	return 0
}

func loadConfigFile(path string) (*config.Configurator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return config.Parse(string(data))
}

func printHelp() {
	fmt.Println(`relayd — reference driver for a relay actor system

Usage:
  relayd [options] [args...]

Options:
  --config=<path>                   Load caf.*/http-addr options from a config file
  --http-addr=<addr>                 Address the /metrics endpoint listens on (default :9090)
  --caf.scheduler.policy=<policy>    "sharing" or "stealing" (default sharing)
  --caf.scheduler.max-threads=<n>    Worker count (default hardware concurrency)
  --caf.scheduler.max-throughput=<n> Messages per resume (default 5)
  --caf.transport.nats-url=<url>     Connect over NATS instead of the in-process transport
  --caf.node.id=<id>                 This node's identity (default a generated id)
  -c <path>                          Shortcut for --config
  -a <addr>                          Shortcut for --http-addr
  --help                             Print this table and exit`)
}
