package wasip1

import (
	"context"
	"crypto/rand"

	"github.com/wasihost/p1/abi"
	"github.com/wasihost/p1/api"
)

// randomGet implements random_get: fills buf with cryptographically strong
// bytes, read directly into the guest's write-through memory view so no
// intermediate copy is needed.
func (b *Bindings) randomGet(ctx context.Context, mem abi.Memory, _ api.Module, stack []uint64) error {
	buf, bufLen := uint32(stack[0]), uint32(stack[1])

	dst, ok := mem.Read(ctx, buf, bufLen)
	if !ok {
		return errSimple(ErrnoFault)
	}
	if _, err := rand.Read(dst); err != nil {
		return errSimple(ErrnoIo)
	}
	return nil
}
