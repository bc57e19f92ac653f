package clock

import "errors"

// ErrPeriodicActionFailed is delivered to a periodic schedule's onFailure
// callback when the action either returns an error or (under StallFail)
// is still running when the next tick comes due.
var ErrPeriodicActionFailed = errors.New("periodic_action_failed")
