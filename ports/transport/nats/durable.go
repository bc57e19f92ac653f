package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	relnats "github.com/relaykit/relay/adapters/nats"
	"github.com/relaykit/relay/core/perkey"
	"github.com/relaykit/relay/ports/transport"
)

// deliveryKey identifies one ordered stream of redeliveries: one
// (from-actor, to-actor) pair. JetStream's Consume callback may run
// concurrently across messages, but an actor's mailbox still needs its
// sender's envelopes in wire order, so each pair is routed through its
// own perkey worker while unrelated pairs still run in parallel.
type deliveryKey struct {
	fromActor uint64
	toActor   uint64
}

// DurableConfig configures a DurableTransport.
type DurableConfig struct {
	Connect    relnats.Connector
	Log        *slog.Logger
	StreamName string // default "RELAY"
	Prefix     string // default "relay.durable"
}

// DurableTransport is a ports/transport.ServerTransport backed by a
// JetStream stream with one subject per node: an actor that isn't
// currently resumed (or a node that's briefly disconnected) doesn't lose
// envelopes the way plain core pub/sub would, because JetStream retains
// them for a durable consumer to redeliver once the node reconnects. It
// does not implement ClientTransport's Request — durable delivery only
// makes sense for Notify-style fire-and-forget traffic; use Transport for
// request/reply.
//
// Grounded on adapters/nats/es_store.go's stream/consumer setup,
// generalized from per-aggregate subjects to per-node ones and from
// event envelopes to ports/transport.Envelope.
type DurableTransport struct {
	nc      *natsgo.Conn
	closeNc func()
	js      jetstream.JetStream
	stream  jetstream.Stream
	log     *slog.Logger
	prefix  string
	order   *perkey.Scheduler[deliveryKey]
}

// NewDurable dials cfg.Connect (or the default NATS URL) and ensures the
// backing stream exists.
func NewDurable(cfg DurableConfig) (*DurableTransport, error) {
	connFn := cfg.Connect
	if connFn == nil {
		connFn = relnats.ConnectDefault()
	}
	nc, closeNc, err := connFn()
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, err
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	streamName := strings.ToUpper(cfg.StreamName)
	if streamName == "" {
		streamName = "RELAY"
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "relay.durable"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*natsgo.DefaultTimeout)
	defer cancel()
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{prefix + ".>"},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("nats: ensure durable stream: %w", err)
	}

	return &DurableTransport{
		nc: nc, closeNc: closeNc, js: js, stream: stream,
		log: log.With(slog.String("transport", "nats-durable")), prefix: prefix,
		order: perkey.New[deliveryKey](),
	}, nil
}

func (t *DurableTransport) subjectNode(nodeID string) string {
	return t.prefix + "." + nodeID
}

// Notify publishes env and waits for JetStream to ack the write — the
// call returns once the envelope is durably stored, not once a node has
// consumed it.
func (t *DurableTransport) Notify(ctx context.Context, env transport.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("nats: encode envelope: %w", err)
	}
	_, err = t.js.Publish(ctx, t.subjectNode(env.ToNode), payload)
	return err
}

// SubscribeNode creates (or reattaches to) a durable consumer named after
// nodeID, so redelivery resumes from the last unacked message across
// process restarts rather than only across reconnects within one process.
func (t *DurableTransport) SubscribeNode(ctx context.Context, nodeID string, h transport.ServerHandlerFunc) (transport.Subscription, error) {
	consumer, err := t.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:           "node-" + nodeID,
		DeliverPolicy:     jetstream.DeliverAllPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		FilterSubjects:    []string{t.subjectNode(nodeID)},
		InactiveThreshold: 24 * time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("nats: create durable consumer: %w", err)
	}

	consumeCtx, cancel := context.WithCancel(ctx)
	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		var env transport.Envelope
		if err := json.Unmarshal(msg.Data(), &env); err != nil {
			t.log.Error("failed to decode durable envelope", slog.Any("error", err))
			_ = msg.Nak()
			return
		}
		key := deliveryKey{fromActor: env.FromActor, toActor: env.ToActor}
		go func() {
			err := t.order.Do(key, func() error {
				_, err := h(consumeCtx, env)
				return err
			})
			if err != nil {
				t.log.Error("durable handler failed", slog.Any("error", err))
				_ = msg.Nak()
				return
			}
			_ = msg.Ack()
		}()
	})
	if err != nil {
		cancel()
		return nil, err
	}

	stopOnce := sync.Once{}
	sub := &durableSubscription{stop: func() {
		stopOnce.Do(func() {
			cc.Drain()
			cancel()
		})
	}}
	context.AfterFunc(ctx, sub.stop)
	return sub, nil
}

func (t *DurableTransport) Close() error {
	t.order.Close()
	t.js.CleanupPublisher()
	t.closeNc()
	return nil
}

type durableSubscription struct{ stop func() }

func (s *durableSubscription) Unsubscribe() error { s.stop(); return nil }

var _ transport.ServerTransport = (*DurableTransport)(nil)
