// Package audit contains the canonical audit event model, sink
// implementations, and the asynchronous dispatcher used by the
// orchestration core.
//
// # Architecture boundaries
//
// The dispatcher owns a single forwarding goroutine and guarantees that
// Close drains buffered events before returning. Sinks must tolerate
// concurrent Emit calls.
//
// # What this package must NOT do
//
//   - Import the root package (no upward imports).
//   - Block the caller when DropIfFull is set.
package audit
