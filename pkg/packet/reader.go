package packet

import (
	"encoding/binary"
	"math"
)

// reader extracts little endian values at fixed offsets.
// Callers guarantee the buffer length, all offsets are relative to base.
type reader struct {
	buf  []byte
	base int
}

func (r reader) at(offset int) reader {
	return reader{buf: r.buf, base: r.base + offset}
}

func (r reader) u8(off int) uint8 {
	return r.buf[r.base+off]
}

func (r reader) i8(off int) int8 {
	return int8(r.buf[r.base+off])
}

func (r reader) u16(off int) uint16 {
	return binary.LittleEndian.Uint16(r.buf[r.base+off:])
}

func (r reader) i16(off int) int16 {
	return int16(r.u16(off))
}

func (r reader) u32(off int) uint32 {
	return binary.LittleEndian.Uint32(r.buf[r.base+off:])
}

func (r reader) u64(off int) uint64 {
	return binary.LittleEndian.Uint64(r.buf[r.base+off:])
}

func (r reader) f32(off int) float32 {
	return math.Float32frombits(r.u32(off))
}

func (r reader) str(off, n int) string {
	b := r.buf[r.base+off : r.base+off+n]
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func (r reader) corners8(off int) [4]uint8 {
	return [4]uint8{r.u8(off), r.u8(off + 1), r.u8(off + 2), r.u8(off + 3)}
}

func (r reader) cornersF32(off int) [4]float32 {
	return [4]float32{r.f32(off), r.f32(off + 4), r.f32(off + 8), r.f32(off + 12)}
}
