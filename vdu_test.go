package spg290

import "testing"

type capturingTarget struct {
	width, height int
	rgba          []byte
	calls         int
}

func (c *capturingTarget) SetPixels(width, height int, rgba []byte) {
	c.width, c.height = width, height
	c.rgba = append([]byte(nil), rgba...)
	c.calls++
}

func TestVDURenderRGB565Conversion(t *testing.T) {
	target := &capturingTarget{}
	vdu := NewVDU(1, 1, FormatRGB565, target)
	vdu.Write16(0x00, vduCtrlEnable)
	vdu.Write16(0x04, 0xA000)
	vdu.Write16(0x06, 0x0000)

	miu := NewMIU()
	dram := NewArrayRegion("dram", 0x1000)
	miu.SetRegion(0xA0, dram, "dram")
	// RGB565 pure red: R=0x1F, G=0, B=0 -> word 0xF800, little-endian bytes.
	dram.Write16(0, 0xF800)

	intc := NewInterruptController()
	intc.Write32(INTCMaskOffset, 1<<IRQVBlank)
	cpu := &recordingRaiser{}
	ok := vdu.Render(miu, intc, cpu)
	if !ok {
		t.Fatalf("Render returned false")
	}
	if target.calls != 1 {
		t.Fatalf("SetPixels called %d times, want 1", target.calls)
	}
	if len(target.rgba) != 4 {
		t.Fatalf("rgba len = %d, want 4", len(target.rgba))
	}
	if target.rgba[0] != 0xFF || target.rgba[1] != 0 || target.rgba[2] != 0 || target.rgba[3] != 0xFF {
		t.Fatalf("converted pixel = %v, want [255 0 0 255]", target.rgba)
	}
	if len(cpu.causes) != 1 || cpu.causes[0] != IRQVBlank {
		t.Fatalf("Render did not trigger IRQVBlank: %v", cpu.causes)
	}
}

func TestVDURenderDisabledSkipsScanOutButStillVBlanks(t *testing.T) {
	target := &capturingTarget{}
	vdu := NewVDU(2, 2, FormatRGBA8888, target)
	// CTRL left at 0: disabled.
	miu := NewMIU()
	intc := NewInterruptController()
	intc.Write32(INTCMaskOffset, 1<<IRQVBlank)
	cpu := &recordingRaiser{}

	vdu.Render(miu, intc, cpu)
	if target.calls != 0 {
		t.Fatalf("SetPixels called while VDU disabled")
	}
	if len(cpu.causes) != 1 {
		t.Fatalf("vblank IRQ not raised even while scan-out is disabled")
	}
}

func TestVDUOutOfBoundsFrameAddrIncrementsErrorCounter(t *testing.T) {
	vdu := NewVDU(4, 4, FormatRGBA8888, nil)
	vdu.Write16(0x00, vduCtrlEnable)
	vdu.Write16(0x04, 0xA0FF)
	vdu.Write16(0x06, 0xFFFF) // address far beyond the tiny DRAM below

	miu := NewMIU()
	dram := NewArrayRegion("dram", 16)
	miu.SetRegion(0xA0, dram, "dram")
	intc := NewInterruptController()
	cpu := &recordingRaiser{}

	ok := vdu.Render(miu, intc, cpu)
	if ok {
		t.Fatalf("Render reported success for an out-of-bounds framebuffer")
	}
	if vdu.BoundsErrors() != 1 {
		t.Fatalf("BoundsErrors() = %d, want 1", vdu.BoundsErrors())
	}
}

func TestVDUClearVBlank(t *testing.T) {
	vdu := NewVDU(1, 1, FormatRGBA8888, nil)
	vdu.Render(NewMIU(), nil, nil)
	if vdu.Read16(0x02)&vduStatusVBlank == 0 {
		t.Fatalf("STATUS vblank bit not set after Render")
	}
	vdu.ClearVBlank()
	if vdu.Read16(0x02)&vduStatusVBlank != 0 {
		t.Fatalf("STATUS vblank bit still set after ClearVBlank")
	}
}
