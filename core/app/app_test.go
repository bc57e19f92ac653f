package app

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relaykit/relay/core/actor"
	"github.com/relaykit/relay/core/message"
	"github.com/relaykit/relay/ports/config"
)

type ping struct{ Seq int }
type pong struct{ Seq int }

func pingPongBehavior(t *testing.T, sys *actor.System) *actor.Behavior {
	_, err := actor.RegisterMessageType[ping](sys)
	require.NoError(t, err)
	_, err = actor.RegisterMessageType[pong](sys)
	require.NoError(t, err)
	pingList, err := actor.TypeListOf[ping](sys)
	require.NoError(t, err)

	return actor.NewBehavior().On(pingList, func(ctx *actor.Context, msg *message.Message) (any, error) {
		p := msg.At(0).(*ping)
		return &pong{Seq: p.Seq + 1}, nil
	})
}

func TestApp_RunAndAsk(t *testing.T) {
	a, err := Run(Config{})
	require.NoError(t, err)
	defer a.Stop()

	server := a.Spawn(pingPongBehavior(t, a.System()), actor.SpawnOptions{})

	asker := a.NewAsker()
	defer asker.Stop()

	reply, err := actor.Ask[pong](context.Background(), asker, server, time.Second, &ping{Seq: 1})
	require.NoError(t, err)
	require.Equal(t, 2, reply.Seq)
}

func TestApp_Node(t *testing.T) {
	a, err := Run(Config{})
	require.NoError(t, err)
	defer a.Stop()
	require.NotNil(t, a.Node())
}

func TestApp_SchedulerPolicyFromConfigurator(t *testing.T) {
	cfg := config.New()
	cfg.Set("caf.scheduler", "policy", config.String("stealing"))
	cfg.Set("caf.scheduler", "max-threads", config.Int(2))

	a, err := Run(Config{Configurator: cfg})
	require.NoError(t, err)
	defer a.Stop()

	server := a.Spawn(pingPongBehavior(t, a.System()), actor.SpawnOptions{})
	asker := a.NewAsker()
	defer asker.Stop()

	reply, err := actor.Ask[pong](context.Background(), asker, server, time.Second, &ping{Seq: 5})
	require.NoError(t, err)
	require.Equal(t, 6, reply.Seq)
}

func TestApp_Shutdown(t *testing.T) {
	a, err := Run(Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, a.Shutdown(ctx))

	select {
	case <-a.Done():
	default:
		t.Fatal("Done() should be closed after Shutdown")
	}
}

func TestApp_Stop(t *testing.T) {
	a, err := Run(Config{})
	require.NoError(t, err)

	a.Stop()
	a.Stop() // idempotent

	select {
	case <-a.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() should be closed after Stop")
	}
}

func TestApp_CustomNodeID(t *testing.T) {
	a, err := Run(Config{NodeID: "my-node"})
	require.NoError(t, err)
	defer a.Stop()
	require.Equal(t, "my-node", a.Node().ID())
}

func TestApp_LoggerLevelFromConfigurator(t *testing.T) {
	cfg := config.New()
	cfg.Set("caf.logger", "level", config.String("debug"))

	a, err := Run(Config{Configurator: cfg})
	require.NoError(t, err)
	defer a.Stop()

	require.True(t, a.log.Enabled(context.Background(), slog.LevelDebug))
}

func TestApp_LoggerLevelDefaultsToInfo(t *testing.T) {
	a, err := Run(Config{})
	require.NoError(t, err)
	defer a.Stop()

	require.False(t, a.log.Enabled(context.Background(), slog.LevelDebug))
	require.True(t, a.log.Enabled(context.Background(), slog.LevelInfo))
}
