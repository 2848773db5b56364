// Package transport provides the Unix domain socket client and framing
// layer for NETIPC connections.
//
// # Framing
//
// Messages are framed with a 4-byte big-endian length prefix followed by
// the payload. NETIPC messages are small control messages, so the maximum
// message size defaults to 4 KB.
//
// # File descriptor passing
//
// The init message must hand the peer the guest memory region's backing
// file descriptor. ClientConn.SendWithRights attaches the descriptor as
// SCM_RIGHTS ancillary data on the same sendmsg that carries the frame,
// so payload and descriptor arrive together.
//
// # Connection lifecycle
//
// Client.Connect dials the peer's socket path and returns a ClientConn.
// Reconnection policy lives in the session layer, not here; a ClientConn
// is good for exactly one connection.
package transport
