// Package session implements the client-side NETIPC connection lifecycle.
//
// A Supervisor owns one Session: the endpoint to the peer, the guest
// memory descriptor, the retry timer, and the steady-state dispatcher.
// Its job is the loop
//
//	dial → handshake → dispatch → failure → scheduled retry
//
// with three invariants held at every step:
//
//   - the dispatcher runs if and only if the session is Connected
//   - link status is UP if and only if the session is Connected
//   - the retry timer is armed exactly while no attempt or connection
//     is in flight, and is torn down only by Close
//
// # Handshake
//
// Each attempt dials the peer's socket path, sends an init message
// carrying the guest memory descriptor (backing fd via SCM_RIGHTS),
// waits for the peer's ack, rebinds the session's endpoint to the new
// connection, and sends a reconfigure message to open steady-state
// traffic. Any failure abandons the attempt and re-arms the retry timer
// at the same fixed interval; there is no backoff.
//
// # Concurrency
//
// All session state is mutated by a single supervisor goroutine driven
// by a channel select over timer fires, dispatch failures, and shutdown.
// The dispatcher is a separate read-loop goroutine that never touches
// session state directly; it posts a failure notice and exits. Handshake
// attempts are bounded by a connect timeout so a hung peer cannot stall
// the supervisor forever.
package session
