package actor

import (
	"fmt"

	"github.com/relaykit/relay/core/mailbox"
)

// ExitReason records why a control block stopped, delivered to every
// linked actor (as a link failure, if abnormal) and every monitor (as a
// down notification, always).
type ExitReason struct {
	Normal bool
	Err    error // nil when Normal
}

func (e ExitReason) String() string {
	if e.Normal {
		return "normal"
	}
	return fmt.Sprintf("abnormal: %v", e.Err)
}

// ExitNormal is the reason for an orderly stop, e.g. Context.Stop(ExitNormal).
var ExitNormal = ExitReason{Normal: true}

// ExitAbnormal wraps err as an abnormal exit reason.
func ExitAbnormal(err error) ExitReason { return ExitReason{Err: err} }

// Down is delivered to a monitor when the monitored actor exits, for any
// reason.
type Down struct {
	Who    mailbox.ActorID
	Reason ExitReason
}

// Ack is the response payload for a request whose handler returned no
// result and no error.
type Ack struct{}

// FailureReason is the response payload for a request whose handler
// returned a non-nil error.
type FailureReason struct {
	Message string
}
