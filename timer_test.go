package spg290

import "testing"

func TestTimerCountUpOverflowWraps(t *testing.T) {
	tm := NewTimer()
	// scale=0 (period 1), enabled, count-up, no compare match expected.
	tm.Write32(0x00, 0xFFFFFFFE) // count
	tm.Write32(0x04, timerCtrlEnable)
	tm.Write32(0x08, 0x5) // cmp, unreachable before wrap

	tm.Advance(3, nil) // three ticks: FFFFFFFE -> FFFFFFFF -> wrap to 0 -> 1
	count, _, _, stat := tm.Channel(0)
	if count != 1 {
		t.Fatalf("count after 3 ticks = %d, want 1", count)
	}
	if stat&timerStatOverflow == 0 {
		t.Fatalf("overflow status bit not set after wraparound")
	}
}

func TestTimerCompareFiresIRQAndDisablesWithoutAutoRepeat(t *testing.T) {
	tm := NewTimer()
	tm.Write32(0x00, 0) // count
	tm.Write32(0x08, 1) // cmp
	tm.Write32(0x04, timerCtrlEnable|timerCtrlIRQEnable)

	fired := 0
	tm.Advance(1, func() { fired++ }) // one tick: count 0 -> 1, matches cmp

	if fired != 1 {
		t.Fatalf("irq fired %d times, want 1", fired)
	}
	_, ctrl, _, stat := tm.Channel(0)
	if ctrl&timerCtrlEnable != 0 {
		t.Fatalf("channel still enabled after non-repeating compare match")
	}
	if stat&timerStatCompare == 0 {
		t.Fatalf("compare status bit not set")
	}
}

func TestTimerAutoRepeatReloadsOnCountDown(t *testing.T) {
	tm := NewTimer()
	tm.Write32(0x00, 2)   // count
	tm.Write32(0x08, 0x3) // cmp, unused on this path (reload value)
	tm.Write32(0x04, timerCtrlEnable|timerCtrlCountDown|timerCtrlAutoRpt)

	tm.Advance(3, nil) // 2->1->0->(underflow: overflow, reload to cmp=3)
	count, ctrl, _, stat := tm.Channel(0)
	if count != 3 {
		t.Fatalf("count after reload = %d, want 3 (reloaded from cmp)", count)
	}
	if ctrl&timerCtrlEnable == 0 {
		t.Fatalf("channel disabled despite auto-repeat")
	}
	if stat&timerStatOverflow == 0 {
		t.Fatalf("overflow status bit not set on countdown underflow")
	}
}

func TestTimerDisabledChannelDoesNotTick(t *testing.T) {
	tm := NewTimer()
	tm.Write32(0x00, 5)
	tm.Advance(100, nil)
	count, _, _, _ := tm.Channel(0)
	if count != 5 {
		t.Fatalf("count changed on a disabled channel: %d", count)
	}
}

func TestTimerChannelAddressing(t *testing.T) {
	tm := NewTimer()
	tm.Write32(TimerChannelStride+0x00, 0x1234) // channel 1's count register
	count, _, _, _ := tm.Channel(1)
	if count != 0x1234 {
		t.Fatalf("channel 1 count = 0x%X, want 0x1234", count)
	}
	count0, _, _, _ := tm.Channel(0)
	if count0 != 0 {
		t.Fatalf("channel 0 count = 0x%X, want 0 (channel addressing bled through)", count0)
	}
}
