// vdu.go - Video Display Unit: framebuffer scan-out, control/status, vblank
//
// License: GPLv3 or later

package spg290

// CTRL/STATUS bit layout, per spec.md §4.6.
const (
	vduCtrlEnable    = 1 << 0
	vduStatusVBlank  = 1 << 0
)

// PixelFormat names the source pixel encoding a framebuffer is written in.
type PixelFormat uint8

const (
	FormatRGBA8888 PixelFormat = iota
	FormatRGB565
	FormatRGB555
	FormatARGB8888
)

// BytesPerPixel reports the source pixel's storage width.
func (f PixelFormat) BytesPerPixel() uint32 {
	switch f {
	case FormatRGB565, FormatRGB555:
		return 2
	default:
		return 4
	}
}

// PixelTarget is the boundary surface the VDU writes a W×H RGBA8888 image
// into, per spec.md §6. It is implemented outside the VDU (videosurface.go
// backs one with an ebiten.Image); the VDU only ever calls SetPixels.
type PixelTarget interface {
	SetPixels(width, height int, rgba []byte)
}

// VDU implements spec.md §4.6: four half-word registers (CTRL, STATUS,
// FB_ADDR_HIGH, FB_ADDR_LOW), a fixed pixel target size, and a source pixel
// format. Scan-out never faults; every error increments a counter and
// aborts only the current frame's render.
type VDU struct {
	ctrl     uint16
	status   uint16
	fbHigh   uint16
	fbLow    uint16

	width  int
	height int
	format PixelFormat

	target PixelTarget

	boundsErrors   uint64
	unmappedErrors uint64

	lastFrame []byte // last successfully rendered RGBA8888 buffer
}

// NewVDU creates a VDU targeting width×height pixels in the given source
// format, writing into target (nil is allowed; render then just updates
// lastFrame without presenting anywhere).
func NewVDU(width, height int, format PixelFormat, target PixelTarget) *VDU {
	v := &VDU{width: width, height: height, format: format, target: target}
	v.Reset()
	return v
}

func (v *VDU) Reset() {
	v.ctrl = 0
	v.status = 0
	v.fbHigh = 0
	v.fbLow = 0
	v.lastFrame = nil
}

func (v *VDU) SetTarget(t PixelTarget) { v.target = t }

// ClearVBlank drops STATUS bit 0; the engine calls this at the start of the
// next frame (spec.md §4.6 step 5's "acceptable" clearing point).
func (v *VDU) ClearVBlank() { v.status &^= vduStatusVBlank }

// FrameAddr computes FB_ADDR = (HIGH<<16)|LOW, the framebuffer base address
// in CPU address space.
func (v *VDU) FrameAddr() uint32 {
	return (uint32(v.fbHigh) << 16) | uint32(v.fbLow)
}

func (v *VDU) Enabled() bool { return v.ctrl&vduCtrlEnable != 0 }

func (v *VDU) BoundsErrors() uint64   { return v.boundsErrors }
func (v *VDU) UnmappedErrors() uint64 { return v.unmappedErrors }

// LastFrame returns the most recently rendered RGBA8888 buffer, or nil if
// nothing has rendered yet.
func (v *VDU) LastFrame() []byte { return v.lastFrame }

func (v *VDU) Read16(offset uint32) uint16 {
	switch offset &^ 1 {
	case 0x00:
		return v.ctrl
	case 0x02:
		return v.status
	case 0x04:
		return v.fbHigh
	case 0x06:
		return v.fbLow
	}
	return 0
}

func (v *VDU) Write16(offset uint32, val uint16) {
	switch offset &^ 1 {
	case 0x00:
		v.ctrl = val
	case 0x02:
		// STATUS is read-only from software
	case 0x04:
		v.fbHigh = val
	case 0x06:
		v.fbLow = val
	}
}

// regionSource abstracts the byte buffer a region exposes for streaming
// pixel data; only *ArrayRegion (DRAM) satisfies it in practice, since MMIO
// regions have no contiguous backing store to scan out of.
type regionSource interface {
	Bytes() []byte
	Size() uint32
}

// Render implements spec.md §4.6's per-frame scan-out algorithm. It never
// faults: any failure increments a counter, aborts this frame's render
// (leaving lastFrame at its previous value), and still asserts vblank.
func (v *VDU) Render(miu *MIU, intc *InterruptController, cpu ExceptionRaiser) bool {
	ok := true
	if v.Enabled() {
		ok = v.scanOut(miu)
	}
	v.status |= vduStatusVBlank
	if intc != nil && cpu != nil {
		intc.Trigger(cpu, IRQVBlank)
	}
	return ok
}

func (v *VDU) scanOut(miu *MIU) bool {
	addr := v.FrameAddr()
	segment, offset := splitAddr(addr)
	region := miu.RegionAt(segment)
	if region == nil {
		v.unmappedErrors++
		return false
	}
	src, ok := region.(regionSource)
	if !ok {
		v.unmappedErrors++
		return false
	}

	bpp := v.format.BytesPerPixel()
	required := uint64(v.width) * uint64(v.height) * uint64(bpp)
	if uint64(offset)+required > uint64(src.Size()) {
		v.boundsErrors++
		return false
	}

	buf := src.Bytes()
	out := make([]byte, v.width*v.height*4)
	pos := offset
	for i := 0; i < v.width*v.height; i++ {
		var r, g, b, a uint8
		switch v.format {
		case FormatRGBA8888:
			r, g, b, a = buf[pos], buf[pos+1], buf[pos+2], buf[pos+3]
		case FormatARGB8888:
			a, r, g, b = buf[pos], buf[pos+1], buf[pos+2], buf[pos+3]
		case FormatRGB565:
			word := uint16(buf[pos]) | uint16(buf[pos+1])<<8
			r5 := (word >> 11) & 0x1F
			g6 := (word >> 5) & 0x3F
			b5 := word & 0x1F
			r = scale5to8(r5)
			g = scale6to8(g6)
			b = scale5to8(b5)
			a = 0xFF
		case FormatRGB555:
			word := uint16(buf[pos]) | uint16(buf[pos+1])<<8
			r5 := (word >> 10) & 0x1F
			g5 := (word >> 5) & 0x1F
			b5 := word & 0x1F
			r = scale5to8(r5)
			g = scale5to8(g5)
			b = scale5to8(b5)
			a = 0xFF
		default:
			v.unmappedErrors++
			return false
		}
		o := i * 4
		out[o], out[o+1], out[o+2], out[o+3] = r, g, b, a
		pos += bpp
	}

	v.lastFrame = out
	if v.target != nil {
		v.target.SetPixels(v.width, v.height, out)
	}
	return true
}

func scale5to8(v uint16) uint8 {
	return uint8((uint32(v)*255 + 15) / 31)
}

func scale6to8(v uint16) uint8 {
	return uint8((uint32(v)*255 + 31) / 63)
}
