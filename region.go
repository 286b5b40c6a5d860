// region.go - memory region contract and the two concrete region shapes
//
// License: GPLv3 or later

package spg290

import "encoding/binary"

// MemoryRegion is the uniform byte/halfword/word access contract that every
// addressable slot behind the MIU implements. Reads and writes are total:
// a region never fails the caller, it only ever returns a value (reads) or
// silently accepts/drops the byte (writes).
type MemoryRegion interface {
	Read8(offset uint32) uint8
	Read16(offset uint32) uint16
	Read32(offset uint32) uint32
	Write8(offset uint32, v uint8)
	Write16(offset uint32, v uint16)
	Write32(offset uint32, v uint32)

	// Size reports the region's addressable byte capacity, used by callers
	// (the VDU scan-out, bounds-checking debuggers) that need to know how
	// far an offset can run before it wraps or is rejected.
	Size() uint32

	// Name identifies the region for debugging/introspection; it carries no
	// architectural meaning.
	Name() string
}

// nextPow4 rounds n up to the next power of four, with a floor of 4. The
// spec requires backing-array regions be sized to a power of four so that
// the overlapping 8/16/32 views never straddle an allocation boundary in a
// way that would require bounds checks on every access.
func nextPow4(n uint32) uint32 {
	if n == 0 {
		return 4
	}
	size := uint32(4)
	for size < n {
		size <<= 2
	}
	return size
}

// ArrayRegion is a backing-array region: a single contiguous buffer viewed
// as overlapping 8/16/32-bit windows, little-endian. DRAM and flash ROM are
// both ArrayRegions; flash is additionally marked read-only from software
// after ROM load completes.
type ArrayRegion struct {
	name     string
	buf      []byte
	readOnly bool
}

// NewArrayRegion allocates a backing-array region of at least size bytes,
// rounded up to the next power of four.
func NewArrayRegion(name string, size uint32) *ArrayRegion {
	return &ArrayRegion{
		name: name,
		buf:  make([]byte, nextPow4(size)),
	}
}

// SetReadOnly toggles write suppression. When read-only, Write8/16/32 and
// Load are silently no-ops; this models flash ROM once a program image has
// been committed.
func (r *ArrayRegion) SetReadOnly(ro bool) { r.readOnly = ro }

func (r *ArrayRegion) Name() string { return r.name }
func (r *ArrayRegion) Size() uint32 { return uint32(len(r.buf)) }

func (r *ArrayRegion) Read8(offset uint32) uint8 {
	off := offset % uint32(len(r.buf))
	return r.buf[off]
}

func (r *ArrayRegion) Read16(offset uint32) uint16 {
	off := (offset &^ 1) % uint32(len(r.buf))
	if off+1 >= uint32(len(r.buf)) {
		return uint16(r.buf[off])
	}
	return binary.LittleEndian.Uint16(r.buf[off : off+2])
}

func (r *ArrayRegion) Read32(offset uint32) uint32 {
	off := (offset &^ 3) % uint32(len(r.buf))
	if off+3 >= uint32(len(r.buf)) {
		var tmp [4]byte
		copy(tmp[:], r.buf[off:])
		return binary.LittleEndian.Uint32(tmp[:])
	}
	return binary.LittleEndian.Uint32(r.buf[off : off+4])
}

func (r *ArrayRegion) Write8(offset uint32, v uint8) {
	if r.readOnly {
		return
	}
	off := offset % uint32(len(r.buf))
	r.buf[off] = v
}

func (r *ArrayRegion) Write16(offset uint32, v uint16) {
	if r.readOnly {
		return
	}
	off := (offset &^ 1) % uint32(len(r.buf))
	if off+1 >= uint32(len(r.buf)) {
		r.buf[off] = byte(v)
		return
	}
	binary.LittleEndian.PutUint16(r.buf[off:off+2], v)
}

func (r *ArrayRegion) Write32(offset uint32, v uint32) {
	if r.readOnly {
		return
	}
	off := (offset &^ 3) % uint32(len(r.buf))
	if off+3 >= uint32(len(r.buf)) {
		var tmp [4]byte
		binary.LittleEndian.PutUint32(tmp[:], v)
		copy(r.buf[off:], tmp[:])
		return
	}
	binary.LittleEndian.PutUint32(r.buf[off:off+4], v)
}

// Load copies data into the buffer starting at offset, truncating at the
// buffer's end. It is a no-op on a read-only region so a committed ROM
// image cannot be clobbered by a stray bulk load.
func (r *ArrayRegion) Load(offset uint32, data []byte) {
	if r.readOnly {
		return
	}
	if offset >= uint32(len(r.buf)) {
		return
	}
	n := copy(r.buf[offset:], data)
	_ = n
}

// Bytes exposes the backing buffer directly. Used by the VDU to stream
// source pixels without going through the region's accessor methods one
// word at a time, and by the debugger for memory-window snapshots.
func (r *ArrayRegion) Bytes() []byte { return r.buf }

// regHandler is the pair of optional read/write callbacks an MmioRegion
// dispatches a word offset to.
type regHandler struct {
	read  func(offset uint32) uint32
	write func(offset uint32, v uint32)
}

// MmioRegion is a handler-dispatching region keyed by word offset. Peripheral
// registers are the normal occupants: registering a handler at a given word
// offset lets the peripheral observe and react to every access to that word.
// Any offset without a registered handler falls back to an internal
// zero-initialized word cell, so unregistered reads within a peripheral's
// nominal span return 0 and unregistered writes are simply stored (and
// otherwise ignored) rather than lost.
type MmioRegion struct {
	name     string
	size     uint32
	handlers map[uint32]regHandler
	cells    map[uint32]uint32
}

// NewMmioRegion creates an MMIO region of the given nominal byte size (used
// only for Size()/bounds reporting; the handler map itself is unbounded).
func NewMmioRegion(name string, size uint32) *MmioRegion {
	return &MmioRegion{
		name:     name,
		size:     size,
		handlers: make(map[uint32]regHandler),
		cells:    make(map[uint32]uint32),
	}
}

// Handle registers read/write callbacks for the word at byteOffset (rounded
// down to a word boundary internally, i.e. word index = byteOffset>>2). A
// nil reader or writer means "no handler for this direction"; the cell
// fallback is not consulted in the handled direction in that case,
// exercising the spec's "reads return 0, writes ignored" default for a
// one-directional register.
func (r *MmioRegion) Handle(byteOffset uint32, read func(uint32) uint32, write func(uint32, uint32)) {
	word := byteOffset >> 2
	r.handlers[word] = regHandler{read: read, write: write}
}

func (r *MmioRegion) Name() string { return r.name }
func (r *MmioRegion) Size() uint32 { return r.size }

func (r *MmioRegion) wordValue(word uint32) uint32 {
	if h, ok := r.handlers[word]; ok {
		if h.read != nil {
			return h.read(word * 4)
		}
		return 0
	}
	return r.cells[word]
}

func (r *MmioRegion) setWord(word uint32, v uint32) {
	if h, ok := r.handlers[word]; ok {
		if h.write != nil {
			h.write(word*4, v)
		}
		return
	}
	r.cells[word] = v
}

func (r *MmioRegion) Read32(offset uint32) uint32 {
	word := (offset &^ 3) / 4
	return r.wordValue(word)
}

func (r *MmioRegion) Write32(offset uint32, v uint32) {
	word := (offset &^ 3) / 4
	r.setWord(word, v)
}

// Read16 and Write16 are implemented as read-modify-write of the containing
// word so peripheral handlers always observe a coherent 32-bit value, per
// spec.md's MMIO region contract.
func (r *MmioRegion) Read16(offset uint32) uint16 {
	aligned := offset &^ 1
	word := (aligned &^ 3) / 4
	shift := (aligned & 2) * 8
	return uint16(r.wordValue(word) >> shift)
}

func (r *MmioRegion) Write16(offset uint32, v uint16) {
	aligned := offset &^ 1
	word := (aligned &^ 3) / 4
	shift := (aligned & 2) * 8
	cur := r.wordValue(word)
	mask := uint32(0xFFFF) << shift
	merged := (cur &^ mask) | (uint32(v) << shift)
	r.setWord(word, merged)
}

func (r *MmioRegion) Read8(offset uint32) uint8 {
	word := (offset &^ 3) / 4
	shift := (offset & 3) * 8
	return uint8(r.wordValue(word) >> shift)
}

func (r *MmioRegion) Write8(offset uint32, v uint8) {
	word := (offset &^ 3) / 4
	shift := (offset & 3) * 8
	cur := r.wordValue(word)
	mask := uint32(0xFF) << shift
	merged := (cur &^ mask) | (uint32(v) << shift)
	r.setWord(word, merged)
}
