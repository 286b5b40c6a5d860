// uart.go - TX byte sink, RX byte queue, status/control registers
//
// License: GPLv3 or later

package spg290

// STATUS bit layout, per spec.md §4.5.
const (
	uartStatusTXEmpty  = 0x80
	uartStatusRXReady  = 0x40
	uartStatusTXIdle   = 0x10
	uartStatusFraming  = 0x08
	uartStatusParity   = 0x04
	uartStatusOverrun  = 0x02
	uartStatusBreak    = 0x01
	uartResetStatus    = uartStatusTXEmpty | uartStatusTXIdle
	uartRXQueueMaxSize = 256
)

// UART implements spec.md §4.5: a single register for TX/RX, plus CTRL,
// STATUS, BAUD. Transmission is modelled synchronously (the "completes
// transmission synchronously" option named in spec.md), so TX-empty stays
// permanently asserted once reset — there is no deferred-completion timer
// to model, which is also the redesign flag in spec.md §9 steering away
// from setTimeout-based retransmission.
type UART struct {
	ctrl   uint32
	status uint32
	baud   uint32

	rxQueue []byte
	rxHead  byte

	txSink func(b byte)
	txLog  []byte // drainable record of everything transmitted so far
}

// NewUART creates a UART with no TX sink attached; SetTXSink wires one in.
func NewUART() *UART {
	u := &UART{}
	u.Reset()
	return u
}

func (u *UART) Reset() {
	u.ctrl = 0
	u.status = uartResetStatus
	u.baud = 0
	u.rxQueue = u.rxQueue[:0]
	u.rxHead = 0
	u.txLog = u.txLog[:0]
}

// SetTXSink installs the external byte sink a transmitted byte is forwarded
// to (spec.md §6's "TX sink" boundary signal). Safe to call with nil to
// detach.
func (u *UART) SetTXSink(sink func(b byte)) { u.txSink = sink }

// EnqueueRx is the external RX-source API (spec.md §6): it appends a
// received byte to the internal FIFO, and if the FIFO was previously empty,
// promotes it to the head byte and sets RX-ready immediately.
func (u *UART) EnqueueRx(b byte) {
	empty := len(u.rxQueue) == 0
	if len(u.rxQueue) >= uartRXQueueMaxSize {
		u.status |= uartStatusOverrun
		return
	}
	u.rxQueue = append(u.rxQueue, b)
	if empty {
		u.rxHead = u.rxQueue[0]
		u.status |= uartStatusRXReady
	}
}

// DrainTx returns and clears everything transmitted since the last drain.
func (u *UART) DrainTx() []byte {
	out := u.txLog
	u.txLog = nil
	return out
}

func (u *UART) popRx() {
	if len(u.rxQueue) == 0 {
		u.status &^= uartStatusRXReady
		return
	}
	u.rxQueue = u.rxQueue[1:]
	if len(u.rxQueue) == 0 {
		u.status &^= uartStatusRXReady
	} else {
		u.rxHead = u.rxQueue[0]
	}
}

func (u *UART) Read32(offset uint32) uint32 {
	switch offset &^ 3 {
	case 0x00:
		v := uint32(u.rxHead)
		u.popRx()
		return v
	case 0x08:
		return u.ctrl
	case 0x0C:
		return u.status
	case 0x10:
		return u.baud
	}
	return 0
}

func (u *UART) Write32(offset uint32, v uint32) {
	switch offset &^ 3 {
	case 0x00:
		b := byte(v)
		u.txLog = append(u.txLog, b)
		if u.txSink != nil {
			u.txSink(b)
		}
		// Transmission completes synchronously: TX-empty/TX-idle remain set.
	case 0x08:
		u.ctrl = v
	case 0x0C:
		// STATUS is read-only from software
	case 0x10:
		u.baud = v
	}
}
