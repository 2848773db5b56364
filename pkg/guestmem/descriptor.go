package guestmem

import (
	"errors"
	"os"
)

// DefaultLowMemoryLimit is the below-4G RAM boundary handed to the peer
// when the host does not override it.
const DefaultLowMemoryLimit uint32 = 0xe0000000

// Descriptor describes the guest memory region shared with the peer.
// It is obtained once at session creation and is immutable thereafter.
type Descriptor struct {
	// File is the region's backing file. Its descriptor is passed to
	// the peer via SCM_RIGHTS during the handshake.
	File *os.File

	// Size is the region length in bytes.
	Size uint64

	// LowMemLimit is the below-4G boundary address.
	LowMemLimit uint32
}

// Validate checks that the descriptor is usable for a handshake.
func (d Descriptor) Validate() error {
	if d.File == nil {
		return errors.New("memory descriptor has no backing file")
	}
	if d.Size == 0 {
		return errors.New("memory descriptor has zero size")
	}
	return nil
}

// FD returns the backing file's descriptor number.
func (d Descriptor) FD() int {
	return int(d.File.Fd())
}

// Close releases the backing file. The session layer calls this exactly
// once at teardown.
func (d Descriptor) Close() error {
	if d.File == nil {
		return nil
	}
	return d.File.Close()
}
