package transport

import "errors"

var (
	// ErrTransportClosed is returned by any ClientTransport/ServerTransport
	// call made after Close.
	ErrTransportClosed = errors.New("transport: closed")
	// ErrNoSubscriber is returned by Request/Notify when no ServerTransport
	// has subscribed for the envelope's ToNode.
	ErrNoSubscriber = errors.New("transport: no subscriber for node")
	// ErrUnknownNode is returned when a Router is asked to resolve an
	// actor key against an empty or unrecognized node set.
	ErrUnknownNode = errors.New("transport: unknown node")
	// ErrRemoteSpawnFailed wraps a non-nil error returned by the remote
	// node's spawn factory.
	ErrRemoteSpawnFailed = errors.New("transport: remote spawn failed")
	// ErrUnknownSpawnType is returned by a Node when remote_spawn names a
	// type with no registered factory.
	ErrUnknownSpawnType = errors.New("transport: unknown spawn type")
	// ErrActorNotFound is returned when an inbound envelope names an
	// actor id this node no longer has registered locally.
	ErrActorNotFound = errors.New("transport: actor not found on node")
)
