package f1packets

import (
	"encoding/binary"
	"math"
)

type writer struct {
	buf  []byte
	base int
}

func (w writer) at(offset int) writer {
	return writer{buf: w.buf, base: w.base + offset}
}

func (w writer) u8(off int, v uint8) {
	w.buf[w.base+off] = v
}

func (w writer) i8(off int, v int8) {
	w.buf[w.base+off] = uint8(v)
}

func (w writer) bool(off int, v bool) {
	if v {
		w.buf[w.base+off] = 1
	} else {
		w.buf[w.base+off] = 0
	}
}

func (w writer) u16(off int, v uint16) {
	binary.LittleEndian.PutUint16(w.buf[w.base+off:], v)
}

func (w writer) i16(off int, v int16) {
	w.u16(off, uint16(v))
}

func (w writer) u32(off int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[w.base+off:], v)
}

func (w writer) u64(off int, v uint64) {
	binary.LittleEndian.PutUint64(w.buf[w.base+off:], v)
}

func (w writer) f32(off int, v float32) {
	w.u32(off, math.Float32bits(v))
}

func (w writer) str(off, n int, s string) {
	b := w.buf[w.base+off : w.base+off+n]
	copy(b[:n-1], s)
}

// code writes the 4 character event code without terminator
func (w writer) code(s string) {
	copy(w.buf[w.base:w.base+4], s)
}

func (w writer) corners8(off int, v [4]uint8) {
	for i := range v {
		w.u8(off+i, v[i])
	}
}

func (w writer) cornersF32(off int, v [4]float32) {
	for i := range v {
		w.f32(off+4*i, v[i])
	}
}

// splitTime writes ms as a millisecond part followed by a minute part
func (w writer) splitTime(off int, ms uint32) {
	w.u16(off, uint16(ms%60_000))
	w.u8(off+2, uint8(ms/60_000))
}
