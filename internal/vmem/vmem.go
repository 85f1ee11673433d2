// Package vmem is the native memory layer: executable-capable region
// acquisition with a writable-then-execute-only lifecycle, and page
// protection round-trips for overwriting live code.
package vmem

import (
	"os"
	"unsafe"

	"github.com/cockroachdb/errors"
)

var pageSize uintptr

func init() {
	pageSize = uintptr(os.Getpagesize())
}

// Block is one acquired region. Writable until Finalize, execute-only
// and immutable afterwards.
type Block struct {
	base   uintptr
	buf    []byte
	sealed bool
}

func (b *Block) Base() uintptr {
	return b.base
}

// Bytes is the writable view; nil once finalized.
func (b *Block) Bytes() []byte {
	if b.sealed {
		return nil
	}
	return b.buf
}

// Finalize downgrades the block to execute-only. One-way.
func (b *Block) Finalize() error {
	if b.sealed {
		return errors.New("region already finalized")
	}
	if err := protectExec(b.base, uintptr(len(b.buf))); err != nil {
		return err
	}
	b.sealed = true
	return nil
}

// view builds a byte view over live memory.
func view(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

// Read copies n bytes of live code at addr.
func Read(addr uintptr, n int) ([]byte, error) {
	out := make([]byte, n)
	copy(out, view(addr, n))
	return out, nil
}

// Patch overwrites live code at addr, making the containing pages
// writable for the duration of the copy and restoring them to
// read-execute afterwards.
func Patch(addr uintptr, data []byte) error {
	size := uintptr(len(data))
	if err := protectWrite(addr, size); err != nil {
		return err
	}
	copy(view(addr, len(data)), data)
	return protectExec(addr, size)
}

// pageSpan widens [addr, addr+size) to whole pages.
func pageSpan(addr, size uintptr) (start, length uintptr) {
	start = pageSize * (addr / pageSize)
	length = pageSize * ((addr + size + pageSize - 1 - start) / pageSize)
	return start, length
}
