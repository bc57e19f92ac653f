// Package types implements the process-wide identity & type registry
// (spec component A): a lock-free-after-init table from small integer
// type-ids to metadata, plus interning of type-id lists so that two
// messages carrying the same tuple shape compare equal by pointer.
package types
