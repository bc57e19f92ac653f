// Package actor implements the actor runtime (spec component F), its
// behavior stack and typed dispatcher (component G), and request/response
// correlation (component H). An Actor is a control block: a mailbox, a
// behavior stack, link/monitor sets and a request table, driven to
// completion one scheduler.Resume call at a time. Actors never share
// memory directly — every interaction crosses the mailbox.
package actor
