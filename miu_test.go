package spg290

import "testing"

func TestMIUSegmentDispatch(t *testing.T) {
	m := NewMIU()
	dram := NewArrayRegion("dram", 0x1000)
	m.SetRegion(0xA0, dram, "dram")

	m.Write32(0xA0000010, 0xCAFEBABE)
	if got := m.Read32(0xA0000010); got != 0xCAFEBABE {
		t.Fatalf("Read32 through segment 0xA0 = 0x%X, want 0xCAFEBABE", got)
	}
	// The same offset under a different segment must hit a different (unmapped) region.
	if got := m.Read32(0xA1000010); got != 0 {
		t.Fatalf("Read32 from unmapped segment 0xA1 = 0x%X, want 0", got)
	}
}

func TestMIUUnmappedCounters(t *testing.T) {
	m := NewMIU()
	m.Read8(0x01000000)
	m.Write8(0x01000000, 1)
	if m.UnmappedReads() != 1 || m.UnmappedWrites() != 1 {
		t.Fatalf("unmapped counters = (%d, %d), want (1, 1)", m.UnmappedReads(), m.UnmappedWrites())
	}
	m.Reset()
	if m.UnmappedReads() != 0 || m.UnmappedWrites() != 0 {
		t.Fatalf("counters survived Reset: (%d, %d)", m.UnmappedReads(), m.UnmappedWrites())
	}
}

func TestMIURegionAt(t *testing.T) {
	m := NewMIU()
	if m.RegionAt(SegmentDRAM) != nil {
		t.Fatalf("RegionAt(SegmentDRAM) = non-nil before SetRegion")
	}
	dram := NewArrayRegion("dram", DRAMSize)
	m.SetRegion(SegmentDRAM, dram, "dram")
	if m.RegionAt(SegmentDRAM) != dram {
		t.Fatalf("RegionAt(SegmentDRAM) did not return installed region")
	}
}
