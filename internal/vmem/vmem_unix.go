//go:build !windows

package vmem

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// Alloc acquires a writable anonymous mapping of n bytes.
func Alloc(n int) (*Block, error) {
	buf, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %d bytes", n)
	}
	return &Block{base: uintptr(unsafe.Pointer(&buf[0])), buf: buf}, nil
}

func protectWrite(addr, size uintptr) error {
	return mprotectSpan(addr, size, unix.PROT_EXEC|unix.PROT_READ|unix.PROT_WRITE)
}

func protectExec(addr, size uintptr) error {
	return mprotectSpan(addr, size, unix.PROT_EXEC|unix.PROT_READ)
}

func mprotectSpan(addr, size uintptr, prot int) error {
	start, length := pageSpan(addr, size)
	for i := uintptr(0); i < length; i += pageSize {
		if err := unix.Mprotect(view(start+i, int(pageSize)), prot); err != nil {
			return errors.Wrapf(err, "mprotect page at 0x%x", start+i)
		}
	}
	return nil
}

// CanOverwrite reports whether every page of the span is mapped.
// Msync on an unmapped page fails with ENOMEM, which makes it a cheap
// probe that never touches the contents.
func CanOverwrite(addr uintptr, n int) bool {
	start, length := pageSpan(addr, uintptr(n))
	return unix.Msync(view(start, int(length)), unix.MS_ASYNC) == nil
}
