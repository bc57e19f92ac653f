package types

import "errors"

var (
	// ErrTypeRegistryConflict is returned by Register when id is already
	// registered with metadata that is not equal to the one supplied.
	ErrTypeRegistryConflict = errors.New("type_registry_conflict")

	// ErrUnknownType is returned when a TypeID has no registered Meta.
	ErrUnknownType = errors.New("unknown_type")
)
