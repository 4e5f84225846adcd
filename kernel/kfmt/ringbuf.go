package kfmt

import "io"

// ringBufferSize is the capacity of the early print buffer. It must be a
// power of 2.
const ringBufferSize = 2048

// ringBuffer keeps the most recent ringBufferSize bytes written to it. Once
// full, new writes overwrite the oldest data.
type ringBuffer struct {
	buffer      [ringBufferSize]byte
	start, size int
}

// Write appends p to the buffer. It never fails.
func (rb *ringBuffer) Write(p []byte) (int, error) {
	for _, b := range p {
		rb.buffer[(rb.start+rb.size)&(ringBufferSize-1)] = b
		if rb.size == ringBufferSize {
			rb.start = (rb.start + 1) & (ringBufferSize - 1)
			continue
		}
		rb.size++
	}

	return len(p), nil
}

// Read drains up to len(p) bytes from the buffer. It returns io.EOF once the
// buffer is empty.
func (rb *ringBuffer) Read(p []byte) (int, error) {
	if rb.size == 0 {
		return 0, io.EOF
	}

	n := rb.size
	if tail := ringBufferSize - rb.start; n > tail {
		n = tail
	}
	if n > len(p) {
		n = len(p)
	}

	copy(p, rb.buffer[rb.start:rb.start+n])
	rb.start = (rb.start + n) & (ringBufferSize - 1)
	rb.size -= n

	return n, nil
}

// WriteTo drains the buffer into w. io.Copy uses it instead of allocating a
// transfer buffer.
func (rb *ringBuffer) WriteTo(w io.Writer) (int64, error) {
	var written int64

	for rb.size != 0 {
		n := rb.size
		if tail := ringBufferSize - rb.start; n > tail {
			n = tail
		}

		wn, err := w.Write(rb.buffer[rb.start : rb.start+n])
		written += int64(wn)
		rb.start = (rb.start + wn) & (ringBufferSize - 1)
		rb.size -= wn
		if err != nil {
			return written, err
		}
		if wn == 0 {
			return written, io.ErrShortWrite
		}
	}

	return written, nil
}
