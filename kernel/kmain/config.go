package kmain

import (
	"github.com/redknight990/sick-os-64/kernel/irq"
	"github.com/redknight990/sick-os-64/kernel/kfmt"
	"github.com/redknight990/sick-os-64/multiboot"
)

// Command line arguments recognized by the kernel.
const (
	argIRQOffset = "irqOffset"
	argKernelCS  = "kernelCS"

	defaultIRQOffset = 0x20
)

// bootConfig builds the interrupt manager configuration from the kernel
// command line. Values may be given in decimal or as 0x-prefixed hex.
// Unparsable or out of range values are reported and replaced by the
// defaults.
func bootConfig() irq.Config {
	cfg := irq.Config{
		HardwareOffset: defaultIRQOffset,
		CodeSegment:    irq.DefaultCodeSegment,
	}

	multiboot.VisitBootCmdLine(func(key, value string) bool {
		switch key {
		case argIRQOffset:
			if v, ok := parseNumber(value, 0xff); ok {
				cfg.HardwareOffset = uint8(v)
			} else {
				kfmt.Printf("[kmain] ignoring invalid %s value: %s\n", key, value)
			}
		case argKernelCS:
			if v, ok := parseNumber(value, 0xffff); ok {
				cfg.CodeSegment = uint16(v)
			} else {
				kfmt.Printf("[kmain] ignoring invalid %s value: %s\n", key, value)
			}
		}
		return true
	})

	return cfg
}

// parseNumber parses a decimal or 0x-prefixed hex number that must not
// exceed limit.
func parseNumber(s string, limit uint64) (uint64, bool) {
	base := uint64(10)
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
	}

	if len(s) == 0 {
		return 0, false
	}

	var v uint64
	for i := 0; i < len(s); i++ {
		var digit uint64
		switch ch := s[i]; {
		case ch >= '0' && ch <= '9':
			digit = uint64(ch - '0')
		case base == 16 && ch >= 'a' && ch <= 'f':
			digit = uint64(ch-'a') + 10
		case base == 16 && ch >= 'A' && ch <= 'F':
			digit = uint64(ch-'A') + 10
		default:
			return 0, false
		}

		v = v*base + digit
		if v > limit {
			return 0, false
		}
	}

	return v, true
}
