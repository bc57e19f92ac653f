package actor

import (
	"github.com/relaykit/relay/core/message"
	"github.com/relaykit/relay/core/types"
)

// HandlerFunc handles one matched message within a Context. Returning a
// non-nil result replies to a pending request (if the inbound element
// carried one); returning an error both replies with that error and, if
// the error is non-nil, is logged.
type HandlerFunc func(ctx *Context, msg *message.Message) (any, error)

type behaviorCase struct {
	types   *types.TypeList
	handler HandlerFunc
	skip    bool
}

// Behavior is an ordered set of type-list matches plus an optional
// default, dispatched by pointer-equal TypeList comparison (spec §4.G).
// Behaviors are immutable once built; become() installs a different one
// rather than mutating the current one in place.
type Behavior struct {
	cases   []behaviorCase
	defHand HandlerFunc
}

// NewBehavior starts an empty behavior, ready for chained On calls.
func NewBehavior() *Behavior { return &Behavior{} }

// On registers the handler invoked when an inbound message's type list
// equals want. Later calls for the same type list shadow earlier ones.
func (b *Behavior) On(want *types.TypeList, h HandlerFunc) *Behavior {
	b.cases = append(b.cases, behaviorCase{types: want, handler: h})
	return b
}

// SkipType marks want as deferred rather than handled: a matching element
// is moved to the mailbox's delayed lane instead of dispatched, to be
// reconsidered once a different behavior is installed (spec §4.F).
func (b *Behavior) SkipType(want *types.TypeList) *Behavior {
	b.cases = append(b.cases, behaviorCase{types: want, skip: true})
	return b
}

// Default installs the handler used when no case matches. Without one,
// an unmatched message yields ErrNoMatchingHandler.
func (b *Behavior) Default(h HandlerFunc) *Behavior {
	b.defHand = h
	return b
}

// match returns the handler for list (nil if it is a skip case), whether
// the case was a skip, and whether anything matched at all.
func (b *Behavior) match(list *types.TypeList) (h HandlerFunc, skip bool, matched bool) {
	for i := len(b.cases) - 1; i >= 0; i-- {
		if types.Equal(b.cases[i].types, list) {
			return b.cases[i].handler, b.cases[i].skip, true
		}
	}
	if b.defHand != nil {
		return b.defHand, false, true
	}
	return nil, false, false
}
