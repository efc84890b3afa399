package glog

import "fmt"

// cursor is an index over the owned stream buffer. The reader owns the
// cursor exclusively; every header field and frame is consumed through
// it so position accounting stays in one place.
type cursor struct {
	data []byte
	pos  int
}

func newCursor(data []byte) *cursor {
	return &cursor{data: data}
}

// remaining returns the number of unconsumed bytes.
func (c *cursor) remaining() int {
	return len(c.data) - c.pos
}

// take consumes exactly n bytes. The returned slice aliases the stream
// buffer and must not be modified.
func (c *cursor) take(n int) ([]byte, error) {
	if c.remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, c.remaining())
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// takeUint16 consumes a little-endian 16-bit length field.
func (c *cursor) takeUint16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

// takeByte consumes a single byte.
func (c *cursor) takeByte() (byte, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}
