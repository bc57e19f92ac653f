// Package nats implements ports/transport.Transport over NATS core
// pub/sub: each node identity gets a subject, requests use an ephemeral
// reply inbox, notifications are plain publishes.
//
// Adapted from adapters/nats/transport.go, generalized from shard-keyed
// subjects to node-keyed ones and retargeted onto ports/transport's
// Envelope instead of core/cluster's.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	natsgo "github.com/nats-io/nats.go"

	relnats "github.com/relaykit/relay/adapters/nats"
	"github.com/relaykit/relay/ports/transport"
)

// Config configures a Transport.
type Config struct {
	Connect       relnats.Connector // defaults to relnats.ConnectDefault()
	Log           *slog.Logger
	SubjectPrefix string // default "relay"
}

// Transport is a ports/transport.Transport backed by a NATS connection.
type Transport struct {
	nc      *natsgo.Conn
	closeNc func()
	log     *slog.Logger
	prefix  string

	mu   sync.Mutex
	subs map[*natsgo.Subscription]struct{}

	closed atomic.Bool
}

// wireEnvelope adds the NATS-specific reply-inbox address to the
// transport-level Envelope for the duration of one request; the inbox
// itself never appears in ports/transport.Envelope since it is an
// artifact of this backend, not of the domain contract.
type wireEnvelope struct {
	transport.Envelope
	ReplyTo string `json:"replyTo,omitempty"`
}

// New dials cfg.Connect (or the default NATS URL) and returns a ready Transport.
func New(cfg Config) (*Transport, error) {
	connFn := cfg.Connect
	if connFn == nil {
		connFn = relnats.ConnectDefault()
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = "relay"
	}

	nc, closeNc, err := connFn()
	if err != nil {
		return nil, err
	}

	return &Transport{
		nc:      nc,
		closeNc: closeNc,
		log:     log.With(slog.String("transport", "nats")),
		prefix:  prefix,
		subs:    map[*natsgo.Subscription]struct{}{},
	}, nil
}

func (t *Transport) subjectNode(nodeID string) string {
	return t.prefix + ".node." + nodeID
}

func (t *Transport) Notify(ctx context.Context, env transport.Envelope) error {
	if t.closed.Load() {
		return transport.ErrTransportClosed
	}
	payload, err := json.Marshal(wireEnvelope{Envelope: env})
	if err != nil {
		return fmt.Errorf("nats: encode envelope: %w", err)
	}
	return t.nc.Publish(t.subjectNode(env.ToNode), payload)
}

func (t *Transport) Request(ctx context.Context, env transport.Envelope) (transport.Envelope, error) {
	if t.closed.Load() {
		return transport.Envelope{}, transport.ErrTransportClosed
	}

	inbox := natsgo.NewInbox()
	ch := make(chan *natsgo.Msg, 1)
	sub, err := t.nc.ChanSubscribe(inbox, ch)
	if err != nil {
		return transport.Envelope{}, fmt.Errorf("nats: subscribe inbox: %w", err)
	}
	defer func() {
		_ = sub.Unsubscribe()
		close(ch)
	}()

	payload, err := json.Marshal(wireEnvelope{Envelope: env, ReplyTo: inbox})
	if err != nil {
		return transport.Envelope{}, fmt.Errorf("nats: encode envelope: %w", err)
	}
	if err := t.nc.Publish(t.subjectNode(env.ToNode), payload); err != nil {
		return transport.Envelope{}, fmt.Errorf("nats: publish: %w", err)
	}

	select {
	case <-ctx.Done():
		return transport.Envelope{}, ctx.Err()
	case msg, ok := <-ch:
		if !ok {
			return transport.Envelope{}, transport.ErrTransportClosed
		}
		var reply wireEnvelope
		if err := json.Unmarshal(msg.Data, &reply); err != nil {
			return transport.Envelope{}, fmt.Errorf("nats: decode reply: %w", err)
		}
		return reply.Envelope, nil
	}
}

func (t *Transport) SubscribeNode(ctx context.Context, nodeID string, h transport.ServerHandlerFunc) (transport.Subscription, error) {
	if t.closed.Load() {
		return nil, transport.ErrTransportClosed
	}

	sub, err := t.nc.Subscribe(t.subjectNode(nodeID), func(msg *natsgo.Msg) {
		var env wireEnvelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			t.log.Error("failed to decode envelope", slog.Any("error", err))
			return
		}

		reply, err := h(ctx, env.Envelope)
		if err != nil {
			t.log.Error("handler failed", slog.Any("error", err))
		}
		if env.ReplyTo == "" {
			return
		}
		b, err := json.Marshal(wireEnvelope{Envelope: reply})
		if err != nil {
			t.log.Error("failed to encode reply", slog.Any("error", err))
			return
		}
		if err := t.nc.Publish(env.ReplyTo, b); err != nil {
			t.log.Error("failed to publish reply", slog.Any("error", err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats: subscribe node: %w", err)
	}

	t.mu.Lock()
	t.subs[sub] = struct{}{}
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
		t.mu.Lock()
		delete(t.subs, sub)
		t.mu.Unlock()
	}()

	return &subscription{sub: sub, t: t}, nil
}

func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.mu.Lock()
	for s := range t.subs {
		_ = s.Unsubscribe()
	}
	t.subs = map[*natsgo.Subscription]struct{}{}
	t.mu.Unlock()
	if t.nc != nil {
		t.nc.Drain()
		t.closeNc()
	}
	return nil
}

type subscription struct {
	sub *natsgo.Subscription
	t   *Transport
}

func (s *subscription) Unsubscribe() error {
	if s.sub == nil {
		return nil
	}
	err := s.sub.Unsubscribe()
	s.t.mu.Lock()
	delete(s.t.subs, s.sub)
	s.t.mu.Unlock()
	return err
}

var _ transport.Transport = (*Transport)(nil)
