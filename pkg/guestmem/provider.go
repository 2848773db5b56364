package guestmem

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Provider locates the guest memory region for a session.
// MemoryDescriptor is called exactly once per session; failure is fatal
// to initialization and is never retried.
type Provider interface {
	MemoryDescriptor() (Descriptor, error)
}

// FileProvider locates guest memory in an existing backing file,
// typically a hugetlbfs or tmpfs mapping created by the VMM.
type FileProvider struct {
	// Path is the backing file location.
	Path string

	// LowMemLimit overrides the below-4G boundary; zero selects
	// DefaultLowMemoryLimit.
	LowMemLimit uint32
}

// MemoryDescriptor opens the backing file and returns its descriptor.
func (p FileProvider) MemoryDescriptor() (Descriptor, error) {
	f, err := os.OpenFile(p.Path, os.O_RDWR, 0)
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to open guest memory backing file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return Descriptor{}, fmt.Errorf("failed to stat guest memory backing file: %w", err)
	}
	if info.Size() <= 0 {
		f.Close()
		return Descriptor{}, fmt.Errorf("guest memory backing file %s is empty", p.Path)
	}

	limit := p.LowMemLimit
	if limit == 0 {
		limit = DefaultLowMemoryLimit
	}

	return Descriptor{
		File:        f,
		Size:        uint64(info.Size()),
		LowMemLimit: limit,
	}, nil
}

// MemfdProvider creates an anonymous memfd-backed region. Used by the
// diagnostic client and tests, where no real guest exists.
type MemfdProvider struct {
	// Name labels the memfd in /proc (debugging aid only).
	Name string

	// Size is the region length in bytes.
	Size uint64

	// LowMemLimit overrides the below-4G boundary; zero selects
	// DefaultLowMemoryLimit.
	LowMemLimit uint32
}

// MemoryDescriptor creates the memfd and sizes it.
func (p MemfdProvider) MemoryDescriptor() (Descriptor, error) {
	if p.Size == 0 {
		return Descriptor{}, fmt.Errorf("memfd provider requires a non-zero size")
	}

	name := p.Name
	if name == "" {
		name = "netipc-guestmem"
	}

	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err != nil {
		return Descriptor{}, fmt.Errorf("memfd_create failed: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(p.Size)); err != nil {
		unix.Close(fd)
		return Descriptor{}, fmt.Errorf("ftruncate failed: %w", err)
	}

	limit := p.LowMemLimit
	if limit == 0 {
		limit = DefaultLowMemoryLimit
	}

	return Descriptor{
		File:        os.NewFile(uintptr(fd), name),
		Size:        p.Size,
		LowMemLimit: limit,
	}, nil
}

// Compile-time interface satisfaction checks.
var (
	_ Provider = FileProvider{}
	_ Provider = MemfdProvider{}
)
