// Package scheduler implements spec component E: a pool of worker
// threads executing Resumables, under either a work-sharing or a
// work-stealing policy.
package scheduler

import (
	"context"
	"log/slog"
	"math"
	"runtime"
)

// ResumeResult is the outcome of one Resumable.Resume call.
type ResumeResult int

const (
	// Done means the resumable has no more work and may be released.
	Done ResumeResult = iota
	// AwaitingMessage means the resumable is idle; the scheduler releases
	// its reference and relies on the resumable's own wake-up path (e.g.
	// a mailbox enqueue) to reschedule it.
	AwaitingMessage
	// ResumeLater means the resumable's throughput budget was exhausted
	// but it still has work; it is re-enqueued behind later arrivals.
	ResumeLater
	// Shutdown means the resumable is finished for good (e.g. an actor
	// that has terminated) and must never be scheduled again.
	Shutdown
)

// String renders a ResumeResult for logging and metric labels.
func (r ResumeResult) String() string {
	switch r {
	case Done:
		return "done"
	case AwaitingMessage:
		return "awaiting_message"
	case ResumeLater:
		return "resume_later"
	case Shutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Unbounded, passed as a throughput budget, means "no bound" (spec's SIZE_MAX).
const Unbounded = math.MaxInt

// Resumable is anything the scheduler can run: almost always an actor,
// occasionally a one-shot scheduled action.
type Resumable interface {
	// Resume executes up to maxThroughput units of work on worker id and
	// reports what should happen next.
	Resume(worker int, maxThroughput int) ResumeResult
	// Retain/Release implement the strong-reference bookkeeping the
	// scheduler performs around every Resume call (spec §4.C contract).
	Retain()
	Release()
}

// Policy selects the scheduler's worker-pool discipline.
type Policy int

const (
	// Sharing: one shared queue, many workers. Simple, fair, preferred
	// under small core counts.
	Sharing Policy = iota
	// Stealing: per-worker deque with local push/pop and randomized/
	// round-robin stealing. Preferred under many cores.
	Stealing
)

// String renders a Policy for logging and configuration round-tripping.
func (p Policy) String() string {
	switch p {
	case Stealing:
		return "stealing"
	default:
		return "sharing"
	}
}

// Options configures a Scheduler.
type Options struct {
	Policy        Policy
	MaxThreads    int // default: runtime.GOMAXPROCS(0)
	MaxThroughput int // default: 5; Unbounded means no cap
	Logger        *slog.Logger
	Metrics       Metrics // default: NopMetrics()
}

func (o *Options) setDefaults() {
	if o.MaxThreads <= 0 {
		o.MaxThreads = runtime.GOMAXPROCS(0)
	}
	if o.MaxThroughput == 0 {
		o.MaxThroughput = 5
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Metrics == nil {
		o.Metrics = NopMetrics()
	}
}

// Scheduler is the capability schedule(resumable) of spec §4.C.
type Scheduler interface {
	// Schedule strongifies r (Retain) until its Resume call returns a
	// terminal result (Done/Shutdown) or AwaitingMessage.
	Schedule(r Resumable)
	// MaxThroughput returns the configured per-resume message budget.
	MaxThroughput() int
	// Shutdown drains cleanly: every previously scheduled resumable sees
	// at least one more Resume call before its worker exits.
	Shutdown(ctx context.Context) error
}

// New constructs a Scheduler under the given policy.
func New(opts Options) Scheduler {
	opts.setDefaults()
	switch opts.Policy {
	case Stealing:
		return newStealing(opts)
	default:
		return newSharing(opts)
	}
}
