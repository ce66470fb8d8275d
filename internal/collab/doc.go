// Package collab implements the collaborative edit broadcaster and the
// presence tracker.
//
// Each connected actor runs one Session per subscribed sheet. The
// session mirrors local origin mutations onto a per-sheet topic and
// applies inbound edit events from other actors back into the cell
// store tagged as non-origin, which suppresses broadcast echo.
//
// No ordering is enforced across actors: concurrent edits to the same
// cell resolve by last-applied-wins at each receiver. Replicas can
// transiently diverge in arrival order but converge once the edit
// stream quiesces. Cell-granularity edits rarely conflict in practice,
// so this weak-consistency model is a deliberate choice; per-cell
// logical clocks would be the upgrade path if it ever stops holding.
//
// Edits made while disconnected are queued in a bounded outbox and
// replayed on resubscribe rather than dropped. The queue caps memory
// for long offline periods by discarding the oldest entries with a
// logged warning.
//
// Transports are pluggable: an in-process Hub serves tests and the
// demo server, and a websocket transport connects remote actors.
package collab
