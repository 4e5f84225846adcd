package serial

import (
	"bytes"
	"testing"

	"github.com/redknight990/sick-os-64/device"
)

type portWrite struct {
	port  uint16
	value uint8
}

type portIOMock struct {
	writes []portWrite

	// lineStatus is returned for reads of the line status register. If
	// busyReads is non-zero, the first busyReads reads report a busy
	// transmitter.
	lineStatus uint8
	busyReads  int
	statusRead int

	scratch      uint8
	scratchWorks bool
}

func (m *portIOMock) PortWrite8(port uint16, value uint8) {
	m.writes = append(m.writes, portWrite{port, value})
	if port == COM1+regScratch && m.scratchWorks {
		m.scratch = value
	}
}

func (m *portIOMock) PortRead8(port uint16) uint8 {
	switch port {
	case COM1 + regLineStatus:
		m.statusRead++
		if m.statusRead <= m.busyReads {
			return 0
		}
		return m.lineStatus
	case COM1 + regScratch:
		return m.scratch
	}
	return 0xff
}

func (m *portIOMock) dataBytes() []byte {
	var out []byte
	for _, w := range m.writes {
		if w.port == COM1+regData {
			out = append(out, w.value)
		}
	}
	return out
}

func TestUARTWrite(t *testing.T) {
	specs := []struct {
		input string
		exp   string
	}{
		{"", ""},
		{"hello", "hello"},
		{"[irq] ready\n", "[irq] ready\r\n"},
		{"\n\n", "\r\n\r\n"},
		{"a\r\nb", "a\r\r\nb"},
	}

	for specIndex, spec := range specs {
		mock := &portIOMock{lineStatus: lineStatusTHRE}
		u := NewUART(COM1, mock)

		n, err := u.Write([]byte(spec.input))
		if err != nil {
			t.Errorf("[spec %d] unexpected error: %v", specIndex, err)
		}

		if n != len(spec.input) {
			t.Errorf("[spec %d] expected Write to return %d; got %d", specIndex, len(spec.input), n)
		}

		if got := mock.dataBytes(); !bytes.Equal(got, []byte(spec.exp)) {
			t.Errorf("[spec %d] expected transmitted bytes %q; got %q", specIndex, spec.exp, got)
		}
	}
}

func TestUARTWriteWaitsForTransmitter(t *testing.T) {
	mock := &portIOMock{lineStatus: lineStatusTHRE, busyReads: 5}
	u := NewUART(COM1, mock)

	u.Write([]byte{'x'})

	if mock.statusRead != 6 {
		t.Fatalf("expected 6 line status reads; got %d", mock.statusRead)
	}

	if got := mock.dataBytes(); !bytes.Equal(got, []byte{'x'}) {
		t.Fatalf("expected 'x' to be transmitted; got %q", got)
	}
}

func TestUARTWriteGivesUpOnStuckTransmitter(t *testing.T) {
	mock := &portIOMock{}
	u := NewUART(COM1, mock)

	u.Write([]byte{'x'})

	if mock.statusRead != maxSpins {
		t.Fatalf("expected %d line status reads; got %d", maxSpins, mock.statusRead)
	}

	if got := mock.dataBytes(); !bytes.Equal(got, []byte{'x'}) {
		t.Fatalf("expected 'x' to be transmitted anyway; got %q", got)
	}
}

func TestUARTDriverInit(t *testing.T) {
	var (
		mock = &portIOMock{}
		u    = NewUART(COM1, mock)
		log  bytes.Buffer
	)

	if err := u.DriverInit(&log); err != nil {
		t.Fatal(err)
	}

	exp := []portWrite{
		{COM1 + regIntEnable, 0x00},
		{COM1 + regLineControl, 0x80},
		{COM1 + regData, 0x03},
		{COM1 + regIntEnable, 0x00},
		{COM1 + regLineControl, 0x03},
		{COM1 + regFIFOControl, 0xc7},
		{COM1 + regModemCtrl, 0x0b},
	}

	if len(mock.writes) != len(exp) {
		t.Fatalf("expected %d port writes; got %d", len(exp), len(mock.writes))
	}

	for i, w := range exp {
		if mock.writes[i] != w {
			t.Errorf("write %d: expected 0x%x -> port 0x%x; got 0x%x -> port 0x%x", i, w.value, w.port, mock.writes[i].value, mock.writes[i].port)
		}
	}

	if exp, got := "port 0x3f8, 8N1\n", log.String(); got != exp {
		t.Errorf("expected init log %q; got %q", exp, got)
	}

	if err := NewUART(COM1, nil).DriverInit(&log); err != errNoPortIO {
		t.Errorf("expected errNoPortIO; got %v", err)
	}
}

func TestDriverInfo(t *testing.T) {
	u := NewUART(COM1, nil)

	if exp, got := "serial_16550", u.DriverName(); got != exp {
		t.Errorf("expected driver name %q; got %q", exp, got)
	}

	if major, minor, patch := u.DriverVersion(); major != 0 || minor != 0 || patch != 1 {
		t.Errorf("expected driver version 0.0.1; got %d.%d.%d", major, minor, patch)
	}
}

func TestProbeForCOM1(t *testing.T) {
	defer func(orig PortIO) { portIO = orig }(portIO)

	t.Run("UART present", func(t *testing.T) {
		mock := &portIOMock{scratchWorks: true, lineStatus: lineStatusTHRE}
		portIO = mock

		drv := probeForCOM1()
		if drv == nil {
			t.Fatal("expected probe to detect the UART")
		}

		u, ok := drv.(*UART)
		if !ok {
			t.Fatalf("expected probe to return a *UART; got %T", drv)
		}

		if u.base != COM1 {
			t.Fatalf("expected UART base 0x%x; got 0x%x", COM1, u.base)
		}
	})

	t.Run("UART missing", func(t *testing.T) {
		portIO = &portIOMock{}

		if drv := probeForCOM1(); drv != nil {
			t.Fatalf("expected probe to return nil; got %v", drv)
		}
	})
}

func TestProbeRegistered(t *testing.T) {
	var found bool
	for _, info := range device.DriverList() {
		if info == &com1Info {
			found = true
		}
	}

	if !found {
		t.Fatal("expected COM1 probe to be registered with the device package")
	}

	if com1Info.Order != device.DetectOrderEarly {
		t.Fatalf("expected COM1 probe to run early; got order %d", com1Info.Order)
	}
}
