package config

import "errors"

var (
	ErrWrongKind     = errors.New("config: value is not of the requested kind")
	ErrUnknownOption = errors.New("config: unknown option")
	ErrSyntax        = errors.New("config: syntax error")
	ErrNotWatching   = errors.New("config: watcher not started")
)
