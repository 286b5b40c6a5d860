package spg290

import "testing"

func TestUARTTxSinkReceivesWrittenByte(t *testing.T) {
	u := NewUART()
	var got []byte
	u.SetTXSink(func(b byte) { got = append(got, b) })

	u.Write32(0x00, 0x41)
	u.Write32(0x00, 0x42)

	if string(got) != "AB" {
		t.Fatalf("tx sink received %q, want %q", got, "AB")
	}
	if drained := u.DrainTx(); string(drained) != "AB" {
		t.Fatalf("DrainTx = %q, want %q", drained, "AB")
	}
	if drained := u.DrainTx(); len(drained) != 0 {
		t.Fatalf("second DrainTx = %q, want empty", drained)
	}
}

func TestUARTTxStaysIdleAfterSyncCompletion(t *testing.T) {
	u := NewUART()
	u.Write32(0x00, 0x58)
	status := u.Read32(0x0C)
	if status&uartStatusTXEmpty == 0 || status&uartStatusTXIdle == 0 {
		t.Fatalf("STATUS = 0x%X, want TX-empty and TX-idle both still set (synchronous completion)", status)
	}
}

func TestUARTRxFifoOrderAndReadyFlag(t *testing.T) {
	u := NewUART()
	u.EnqueueRx('h')
	u.EnqueueRx('i')

	if status := u.Read32(0x0C); status&uartStatusRXReady == 0 {
		t.Fatalf("RX-ready not set after EnqueueRx")
	}

	if got := u.Read32(0x00); got != 'h' {
		t.Fatalf("first RX read = %q, want 'h'", got)
	}
	if got := u.Read32(0x00); got != 'i' {
		t.Fatalf("second RX read = %q, want 'i'", got)
	}
	if status := u.Read32(0x0C); status&uartStatusRXReady != 0 {
		t.Fatalf("RX-ready still set after draining the fifo")
	}
}

func TestUARTRxOverrun(t *testing.T) {
	u := NewUART()
	for i := 0; i < uartRXQueueMaxSize; i++ {
		u.EnqueueRx(byte(i))
	}
	u.EnqueueRx(0xFF) // one past capacity
	if status := u.Read32(0x0C); status&uartStatusOverrun == 0 {
		t.Fatalf("overrun status bit not set once the RX fifo is full")
	}
}

func TestUARTBaudAndCtrlRoundTrip(t *testing.T) {
	u := NewUART()
	u.Write32(0x08, 0x7)
	u.Write32(0x10, 115200)
	if got := u.Read32(0x08); got != 0x7 {
		t.Fatalf("CTRL = 0x%X, want 0x7", got)
	}
	if got := u.Read32(0x10); got != 115200 {
		t.Fatalf("BAUD = %d, want 115200", got)
	}
}
