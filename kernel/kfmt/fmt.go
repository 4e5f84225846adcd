// Package kfmt implements an allocation-free subset of fmt that can be used
// while interrupts are being set up and from within interrupt handlers.
package kfmt

import (
	"io"
	"unsafe"
)

// numBufSize is the size of the scratch buffer used for formatting numbers.
// It also caps the supported padding width.
const numBufSize = 32

const digits = "0123456789abcdef"

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	numBuf [numBufSize]byte

	// singleByte is a shared buffer for emitting one character at a time.
	singleByte = []byte{0}

	// earlyPrintBuffer captures output until an output sink is attached.
	earlyPrintBuffer ringBuffer

	// outputSink receives the output of Printf. If nil, output goes to
	// earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the target for Printf to w and flushes any output that
// has been buffered so far into it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns the writer used by Printf. Before a sink is attached
// this is the early print buffer.
func GetOutputSink() io.Writer {
	if outputSink == nil {
		return &earlyPrintBuffer
	}
	return outputSink
}

// Printf formats according to a format specifier and writes to the active
// output sink. It supports the following verbs:
//
//	%s  string or []byte
//	%d  base 10 integer, left-padded with spaces
//	%x  base 16 integer (lower-case), left-padded with zeroes
//	%o  base 8 integer, left-padded with zeroes
//	%t  bool
//	%%  a literal percent sign
//
// An optional decimal width may precede the verb. Pointers and values
// implementing fmt.Stringer are not supported as handling them would require
// reflection and memory allocations.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves like Printf but writes to w.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		argIndex int
		width    int
		verb     byte
	)

	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			writeByte(w, format[i])
			continue
		}

		width = 0
		for i++; i < len(format) && format[i] >= '0' && format[i] <= '9'; i++ {
			width = width*10 + int(format[i]-'0')
		}

		if i == len(format) {
			doWrite(w, errNoVerb)
			break
		}

		switch verb = format[i]; verb {
		case '%':
			writeByte(w, '%')
			continue
		case 'd', 'x', 'o', 's', 't':
		default:
			doWrite(w, errNoVerb)
			continue
		}

		if argIndex >= len(args) {
			doWrite(w, errMissingArg)
			continue
		}

		switch verb {
		case 'd':
			fmtInt(w, args[argIndex], 10, width)
		case 'x':
			fmtInt(w, args[argIndex], 16, width)
		case 'o':
			fmtInt(w, args[argIndex], 8, width)
		case 's':
			fmtString(w, args[argIndex], width)
		case 't':
			fmtBool(w, args[argIndex])
		}
		argIndex++
	}

	for ; argIndex < len(args); argIndex++ {
		doWrite(w, errExtraArg)
	}
}

func fmtBool(w io.Writer, v interface{}) {
	b, ok := v.(bool)
	switch {
	case !ok:
		doWrite(w, errWrongArgType)
	case b:
		doWrite(w, trueValue)
	default:
		doWrite(w, falseValue)
	}
}

func fmtString(w io.Writer, v interface{}, width int) {
	switch s := v.(type) {
	case string:
		fmtRepeat(w, ' ', width-len(s))
		// Converting s to a []byte would allocate.
		for i := 0; i < len(s); i++ {
			writeByte(w, s[i])
		}
	case []byte:
		fmtRepeat(w, ' ', width-len(s))
		doWrite(w, s)
	default:
		doWrite(w, errWrongArgType)
	}
}

func fmtRepeat(w io.Writer, ch byte, count int) {
	for ; count > 0; count-- {
		writeByte(w, ch)
	}
}

// fmtInt renders v in the requested base. Base 10 values are padded with
// spaces; other bases are padded with zeroes after the sign.
func fmtInt(w io.Writer, v interface{}, base uint64, width int) {
	var (
		mag uint64
		neg bool
	)

	switch n := v.(type) {
	case uint8:
		mag = uint64(n)
	case uint16:
		mag = uint64(n)
	case uint32:
		mag = uint64(n)
	case uint64:
		mag = n
	case uint:
		mag = uint64(n)
	case uintptr:
		mag = uint64(n)
	case int8:
		neg, mag = magnitude(int64(n))
	case int16:
		neg, mag = magnitude(int64(n))
	case int32:
		neg, mag = magnitude(int64(n))
	case int64:
		neg, mag = magnitude(n)
	case int:
		neg, mag = magnitude(int64(n))
	default:
		doWrite(w, errWrongArgType)
		return
	}

	if width >= numBufSize {
		width = numBufSize - 1
	}

	pos := numBufSize
	for {
		pos--
		numBuf[pos] = digits[mag%base]
		if mag /= base; mag == 0 {
			break
		}
	}

	if base == 10 {
		if neg {
			pos--
			numBuf[pos] = '-'
		}
		for numBufSize-pos < width {
			pos--
			numBuf[pos] = ' '
		}
	} else {
		signLen := 0
		if neg {
			signLen = 1
		}
		for numBufSize-pos+signLen < width {
			pos--
			numBuf[pos] = '0'
		}
		if neg {
			pos--
			numBuf[pos] = '-'
		}
	}

	doWrite(w, numBuf[pos:])
}

func magnitude(v int64) (bool, uint64) {
	if v < 0 {
		return true, uint64(-v)
	}
	return false, uint64(v)
}

func writeByte(w io.Writer, ch byte) {
	singleByte[0] = ch
	doWrite(w, singleByte)
}

// doWrite hides p from escape analysis. Without this, the call through the
// io.Writer interface makes the compiler flag p as escaping, which turns every
// Printf call into a heap allocation.
func doWrite(w io.Writer, p []byte) {
	doRealWrite(w, noEscape(unsafe.Pointer(&p)))
}

func doRealWrite(w io.Writer, bufPtr unsafe.Pointer) {
	p := *(*[]byte)(bufPtr)
	if w != nil {
		w.Write(p)
	} else {
		earlyPrintBuffer.Write(p)
	}
}

// noEscape hides a pointer from escape analysis (see runtime/stubs.go).
//
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
