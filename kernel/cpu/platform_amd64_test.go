package cpu

import (
	"bytes"
	"testing"
	"unsafe"
)

func TestPlatformLoadInterruptTable(t *testing.T) {
	defer func() {
		loadIDTFn = LoadIDT
	}()

	var (
		calls int
		got   []byte
	)
	loadIDTFn = func(descriptorAddr uintptr) {
		calls++
		got = append([]byte(nil), (*[10]byte)(unsafe.Pointer(descriptorAddr))[:]...)
	}

	Platform{}.LoadInterruptTable(0xffffffff80123450, 4095)

	if calls != 1 {
		t.Fatalf("expected LoadIDT to be called once; got %d", calls)
	}

	exp := []byte{0xff, 0x0f, 0x50, 0x34, 0x12, 0x80, 0xff, 0xff, 0xff, 0xff}
	if !bytes.Equal(got, exp) {
		t.Fatalf("expected LIDT operand:\n% x\ngot:\n% x", exp, got)
	}
}

func TestPlatformSetInterruptsEnabled(t *testing.T) {
	defer func() {
		enableInterruptsFn = EnableInterrupts
		disableInterruptsFn = DisableInterrupts
	}()

	var log []string
	enableInterruptsFn = func() { log = append(log, "sti") }
	disableInterruptsFn = func() { log = append(log, "cli") }

	Platform{}.SetInterruptsEnabled(true)
	Platform{}.SetInterruptsEnabled(false)

	if len(log) != 2 || log[0] != "sti" || log[1] != "cli" {
		t.Fatalf("expected [sti cli]; got %v", log)
	}
}

func TestPlatformPortIO(t *testing.T) {
	defer func() {
		portWriteByteFn = PortWriteByte
		portReadByteFn = PortReadByte
	}()

	var (
		wrotePort  uint16
		wroteValue uint8
		readPort   uint16
	)
	portWriteByteFn = func(port uint16, val uint8) {
		wrotePort, wroteValue = port, val
	}
	portReadByteFn = func(port uint16) uint8 {
		readPort = port
		return 0x60
	}

	Platform{}.PortWrite8(0xa0, 0x20)
	if wrotePort != 0xa0 || wroteValue != 0x20 {
		t.Errorf("expected write of 0x20 to port 0xa0; got %x to port %x", wroteValue, wrotePort)
	}

	if got := (Platform{}).PortRead8(0x3fd); got != 0x60 || readPort != 0x3fd {
		t.Errorf("expected read of port 0x3fd to return 0x60; got %x from port %x", got, readPort)
	}
}
