package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/prometheus/client_golang/prometheus"

	relayprom "github.com/relaykit/relay/adapters/prometheus"
	"github.com/relaykit/relay/core/actor"
	"github.com/relaykit/relay/core/clock"
	"github.com/relaykit/relay/core/mailbox"
	"github.com/relaykit/relay/core/scheduler"
	"github.com/relaykit/relay/ports/config"
	"github.com/relaykit/relay/ports/transport"
)

// Config bootstraps a System together with the ambient services spec §6
// describes as the Configurator's responsibility: scheduler policy,
// logging, metrics registration and (optionally) a transport.Node/Client
// pair for talking to actors hosted on other processes.
type Config struct {
	Context context.Context
	Log     *slog.Logger

	// Configurator supplies caf.scheduler.*/caf.logger.* options (see
	// SPEC_FULL.md's Configuration section); nil means every ambient
	// setting falls back to its documented default.
	Configurator *config.Configurator

	// Registry receives every Prometheus collector this App registers.
	// Defaults to a fresh, private prometheus.NewRegistry().
	Registry *prometheus.Registry

	NodeID string

	// Transport backs this App's Node/Client pair. Defaults to an
	// in-process transport.NewMemoryTransport(), which is sufficient for
	// single-process deployments and tests.
	Transport transport.Transport

	// RouterSeed disambiguates rendezvous-hash routing across
	// independently deployed clusters sharing a transport. Defaults to
	// NodeID.
	RouterSeed string

	// Spawns registers the remote_spawn factories this node accepts,
	// keyed by the type name a RemoteSpawn caller names.
	Spawns map[string]transport.SpawnFunc
}

// App owns one actor.System and the transport.Node/Client pair bound to
// it, assembled from Config the way a production deployment wires the
// Configurator, logger and metrics together once at startup.
//
// Grounded on the teacher's core/app.App (same New/Run/Shutdown/Stop/Done
// lifecycle shape), rebuilt around actor.System/transport.Node instead of
// the teacher's cluster.Node/cluster.Client.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *slog.Logger

	cfg     *config.Configurator
	metrics *relayprom.AllMetrics

	sys    *actor.System
	node   *transport.Node
	client *transport.Client
	router *transport.Router
	tr     transport.Transport

	stopOnce sync.Once
	done     chan struct{}
}

// New assembles an App from config without starting it; call Run (or
// Node().Serve directly) to begin answering inbound traffic.
func New(cfg Config) (*App, error) {
	a := &App{done: make(chan struct{})}

	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	a.ctx, a.cancel = context.WithCancel(cfg.Context)

	a.cfg = cfg.Configurator
	if a.cfg == nil {
		a.cfg = config.New()
	}

	a.log = cfg.Log
	if a.log == nil {
		a.log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: loggerLevel(a.cfg),
		}))
	}
	a.log = a.log.With(slog.String("node", nodeID(cfg)))

	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	a.metrics = relayprom.NewAllMetrics(reg)

	sched := scheduler.New(scheduler.Options{
		Policy:        schedulerPolicy(a.cfg),
		MaxThreads:    a.cfg.IntOr("caf.scheduler", "max-threads", 0),
		MaxThroughput: a.cfg.IntOr("caf.scheduler", "max-throughput", 0),
		Logger:        a.log,
		Metrics:       a.metrics.Scheduler,
	})
	clk := clock.New(clock.Options{Logger: a.log, Metrics: a.metrics.Clock})

	sys, err := actor.NewSystem(actor.SystemOptions{
		Clock:     clk,
		Scheduler: sched,
		Logger:    a.log,
		Metrics:   a.metrics.Actor,
	})
	if err != nil {
		return nil, fmt.Errorf("app: new system: %w", err)
	}
	a.sys = sys

	a.tr = cfg.Transport
	if a.tr == nil {
		a.tr = transport.NewMemoryTransport()
	}

	id := nodeID(cfg)
	a.node = transport.NewNode(transport.NodeOptions{
		ID:      id,
		System:  sys,
		Logger:  a.log,
		Metrics: a.metrics.Transport,
	})
	for typeName, fn := range cfg.Spawns {
		a.node.RegisterSpawn(typeName, fn)
	}

	seed := cfg.RouterSeed
	if seed == "" {
		seed = id
	}
	a.router = transport.NewRouter(transport.RouterOptions{Seed: seed})
	a.router.AddNode(id)

	a.client = transport.NewClient(transport.ClientOptions{
		Transport: a.tr,
		System:    sys,
		Node:      a.node,
		Router:    a.router,
		Metrics:   a.metrics.Transport,
	})

	return a, nil
}

// Run starts serving inbound transport traffic for this App's Node.
func (a *App) Run() error {
	if err := a.node.Serve(a.ctx, a.tr); err != nil {
		return fmt.Errorf("app: serve: %w", err)
	}
	a.log.Info("app started")
	return nil
}

// Run assembles and starts an App in one call, the common case for a
// cmd/relayd-style entry point.
func Run(cfg Config) (*App, error) {
	a, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := a.Run(); err != nil {
		return nil, err
	}
	return a, nil
}

// System returns the actor.System every actor in this App runs on.
func (a *App) System() *actor.System { return a.sys }

// Node returns the server side of this App's transport binding.
func (a *App) Node() *transport.Node { return a.node }

// Client returns the send side of this App's transport binding, for
// RemoteSpawn/Connect calls to actors on other nodes.
func (a *App) Client() *transport.Client { return a.client }

// Router returns the rendezvous-hash node table backing Client's
// RemoteSpawn placement decisions. AddNode/RemoveNode as cluster
// membership changes.
func (a *App) Router() *transport.Router { return a.router }

// Metrics returns the Prometheus collectors this App registered, for
// wiring into an HTTP /metrics endpoint (promhttp.HandlerFor).
func (a *App) Metrics() *relayprom.AllMetrics { return a.metrics }

// Configurator returns the options this App was bootstrapped with.
func (a *App) Configurator() *config.Configurator { return a.cfg }

// Spawn creates a new actor on this App's System.
func (a *App) Spawn(initial *actor.Behavior, opts actor.SpawnOptions) mailbox.Ref {
	return a.sys.Spawn(initial, opts)
}

// NewAsker returns an Asker bound to this App's System, for issuing
// blocking requests to actors from outside any actor's own dispatch loop
// (an HTTP handler, a CLI command, a test).
func (a *App) NewAsker() *actor.Asker { return actor.NewAsker(a.sys) }

// Shutdown stops accepting new inbound traffic, drains the scheduler so
// every actor sees a final Resume, and releases the clock. Idempotent.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		a.cancel()
		_ = a.node.Close()
		err = a.sys.Shutdown(ctx)
		close(a.done)
	})
	return err
}

// Stop shuts the App down without a caller-supplied deadline, for
// defer-style cleanup. Idempotent.
func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = a.Shutdown(ctx)
}

// Done reports, by closing, that Shutdown or Stop has completed.
func (a *App) Done() <-chan struct{} { return a.done }

func nodeID(cfg Config) string {
	if cfg.NodeID != "" {
		return cfg.NodeID
	}
	return fmt.Sprintf("node-%s", gonanoid.Must(6))
}

// schedulerPolicy maps spec §6's caf.scheduler.policy option ("sharing" or
// "stealing") onto scheduler.Policy, defaulting to Sharing when unset or
// unrecognized.
func schedulerPolicy(cfg *config.Configurator) scheduler.Policy {
	if cfg.StringOr("caf.scheduler", "policy", "") == scheduler.Stealing.String() {
		return scheduler.Stealing
	}
	return scheduler.Sharing
}

// loggerLevel maps spec §6's caf.logger.level option onto slog's level
// scale, defaulting to Info when unset or unrecognized. Only consulted
// when the caller doesn't supply its own *slog.Logger.
func loggerLevel(cfg *config.Configurator) slog.Level {
	switch strings.ToLower(cfg.StringOr("caf.logger", "level", "info")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
