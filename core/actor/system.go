package actor

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/relaykit/relay/core/clock"
	"github.com/relaykit/relay/core/mailbox"
	"github.com/relaykit/relay/core/message"
	"github.com/relaykit/relay/core/scheduler"
	"github.com/relaykit/relay/core/types"
)

// requestTimeoutSignal is an internal message type, registered once per
// System, that a Context.Request timeout posts back into the requester's
// own mailbox so the timeout continuation still runs on the actor's
// single thread instead of the clock goroutine.
type requestTimeoutSignal uint64

// Down is delivered to a monitor's mailbox as an ordinary message when
// the monitored actor exits — a behavior matches it with On(DownType(), ...)
// like any user message type.
//
// (Down itself is defined in exit.go, alongside ExitReason.)

// System owns the shared runtime services every actor in it draws on: the
// process-wide type registry and interner (spec §4.A/§4.B), the clock
// (§4.D) and the scheduler (§4.E). One System corresponds to one CAF
// "actor system".
type System struct {
	reg       *types.Registry
	typeIntrn *types.Interner
	clk       *clock.Clock
	sched     scheduler.Scheduler
	log       *slog.Logger
	metrics   ActorMetrics

	nextID atomic.Uint64

	timeoutSignalType *types.TypeList
	downType          *types.TypeList
}

// SystemOptions configures a System.
type SystemOptions struct {
	Registry  *types.Registry // defaults to a fresh registry
	Interner  *types.Interner // defaults to a fresh interner
	Clock     *clock.Clock    // defaults to clock.New(clock.Options{})
	Scheduler scheduler.Scheduler
	Logger    *slog.Logger
	Metrics   ActorMetrics
}

// NewSystem constructs a System, registering the small set of internal
// message types the runtime itself needs (request timeouts, down
// notifications).
func NewSystem(opts SystemOptions) (*System, error) {
	if opts.Registry == nil {
		opts.Registry = types.NewRegistry()
	}
	if opts.Interner == nil {
		opts.Interner = types.NewInterner()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New(clock.Options{Logger: opts.Logger})
	}
	if opts.Scheduler == nil {
		opts.Scheduler = scheduler.New(scheduler.Options{Logger: opts.Logger})
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NopActorMetrics()
	}

	sys := &System{
		reg:       opts.Registry,
		typeIntrn: opts.Interner,
		clk:       opts.Clock,
		sched:     opts.Scheduler,
		log:       opts.Logger,
		metrics:   opts.Metrics,
	}

	timeoutID, err := types.RegisterDefault[requestTimeoutSignal](sys.reg)
	if err != nil {
		return nil, err
	}
	downID, err := types.RegisterDefault[Down](sys.reg)
	if err != nil {
		return nil, err
	}
	if _, err := types.RegisterDefault[Ack](sys.reg); err != nil {
		return nil, err
	}
	if _, err := types.RegisterDefault[FailureReason](sys.reg); err != nil {
		return nil, err
	}
	sys.timeoutSignalType = sys.typeIntrn.Intern([]types.TypeID{timeoutID})
	sys.downType = sys.typeIntrn.Intern([]types.TypeID{downID})

	return sys, nil
}

func (s *System) registry() *types.Registry      { return s.reg }
func (s *System) interner() *types.Interner      { return s.typeIntrn }
func (s *System) clock() *clock.Clock            { return s.clk }
func (s *System) scheduler() scheduler.Scheduler { return s.sched }

// Registry exposes the system's process-wide type table, for callers that
// need Register/RegisterDefault before spawning any actor.
func (s *System) Registry() *types.Registry { return s.reg }

// Interner exposes the system's type-list interner, for callers (e.g.
// ports/transport decoding an inbound wire message) that need to build a
// message.Message outside of a Context.
func (s *System) Interner() *types.Interner { return s.typeIntrn }

// RegisterMessageType registers T as a plain data message type, the way
// most user message types are registered (spec §4.A's common case).
func RegisterMessageType[T any](s *System) (types.TypeID, error) {
	return types.RegisterDefault[T](s.reg)
}

// TypeListOf returns the interned single-element type list for T, for use
// as a Behavior.On/SkipType key. T must already be registered.
func TypeListOf[T any](s *System) (*types.TypeList, error) {
	id, err := s.reg.LookupByName(types.TypeInfoFor[T]().Name)
	if err != nil {
		return nil, err
	}
	return s.typeIntrn.Intern([]types.TypeID{id}), nil
}

// DownType returns the interned type list a behavior should register
// On(sys.DownType(), ...) against to receive monitor notifications.
func (s *System) DownType() *types.TypeList { return s.downType }

func (s *System) isTimeoutSignal(m *message.Message) bool {
	return types.Equal(m.Types(), s.timeoutSignalType)
}

// typeNameOf renders a message's type list as a metrics label: the sole
// type's registered name, or a joined fallback for multi-value messages.
func (s *System) typeNameOf(m *message.Message) string {
	ids := m.Types().IDs()
	if len(ids) == 1 {
		if meta, err := s.reg.Lookup(ids[0]); err == nil {
			return meta.Name
		}
	}
	name := ""
	for i, id := range ids {
		if i > 0 {
			name += "+"
		}
		if meta, err := s.reg.Lookup(id); err == nil {
			name += meta.Name
		}
	}
	if name == "" {
		return "unknown"
	}
	return name
}

func (s *System) notifyDown(target localRef, who mailbox.ActorID, reason ExitReason) {
	msg, err := message.New(s.reg, s.typeIntrn, &Down{Who: who, Reason: reason})
	if err != nil {
		s.log.Error("failed to build down notification", slog.Any("error", err))
		return
	}
	_ = target.ctrl.mbox.Enqueue(mailbox.Normal, &mailbox.Element{
		Correlation: mailbox.Async,
		Content:     msg,
	})
}

// SpawnOptions configures Spawn.
type SpawnOptions struct {
	Logger *slog.Logger
}

// Spawn creates a new actor running initial and schedules it for its
// first resume cycle. The returned ref is strong.
func (s *System) Spawn(initial *Behavior, opts SpawnOptions) mailbox.Ref {
	log := opts.Logger
	if log == nil {
		log = s.log
	}
	id := mailbox.ActorID(s.nextID.Add(1))
	ctrl := newControl(s, id, initial, log)
	s.sched.Schedule(ctrl)
	return ctrl.Strong()
}

// Shutdown drains the scheduler (every scheduled actor sees at least one
// more Resume call before its worker exits) and stops the clock. Callers
// that also own transport.Node/Client instances over this System should
// close those first, so no new envelopes arrive mid-drain.
func (s *System) Shutdown(ctx context.Context) error {
	err := s.sched.Shutdown(ctx)
	s.clk.Shutdown()
	return err
}
