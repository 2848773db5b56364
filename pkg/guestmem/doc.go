// Package guestmem locates and describes the guest memory region shared
// with the NETIPC peer.
//
// The session layer never scans host memory itself; it is handed a
// Provider at construction and asks it once for a Descriptor. This keeps
// the connection state machine independent of how a particular host
// manages guest memory: a hugetlbfs-backed file, an anonymous memfd, or
// a test fixture all satisfy the same interface.
package guestmem
