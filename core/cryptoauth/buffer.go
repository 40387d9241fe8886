package cryptoauth

// Buffer is a small front-prepend/front-consume byte buffer, standing in
// for the message-buffer abstraction this package treats as an external
// collaborator. It models the operations the traffic-packet path of
// Session.Encrypt and Session.Decrypt needs: pushing bytes onto the front
// (building a packet back-to-front, header-outward), and popping/discarding
// bytes from the front (stripping a header while decoding).
type Buffer struct {
	data []byte
	pad  int
}

// NewBuffer wraps payload as a Buffer with the given amount of front
// headroom (padding) available for PushFront.
func NewBuffer(payload []byte, pad int) *Buffer {
	b := &Buffer{pad: pad}
	b.data = make([]byte, 0, pad+len(payload))
	b.data = append(b.data, make([]byte, pad)...)
	b.data = append(b.data, payload...)
	b.pad = pad
	return b
}

// PushFront prepends b to the front of the buffer, consuming padding.
func (buf *Buffer) PushFront(b []byte) error {
	if len(b) > buf.pad {
		return encryptErrorf("not enough padding: need %d, have %d", len(b), buf.pad)
	}
	copy(buf.data[buf.pad-len(b):buf.pad], b)
	buf.pad -= len(b)
	return nil
}

// PopFront removes and returns the first n bytes of the buffer, restoring
// them to the padding region.
func (buf *Buffer) PopFront(n int) ([]byte, error) {
	if n > len(buf.data)-buf.pad {
		return nil, encryptErrorf("buffer too short: need %d, have %d", n, len(buf.data)-buf.pad)
	}
	out := make([]byte, n)
	copy(out, buf.data[buf.pad:buf.pad+n])
	buf.pad += n
	return out, nil
}

// DiscardFront removes the first n bytes without returning them.
func (buf *Buffer) DiscardFront(n int) error {
	_, err := buf.PopFront(n)
	return err
}

// Bytes returns the buffer's current content (padding excluded).
func (buf *Buffer) Bytes() []byte {
	return buf.data[buf.pad:]
}

// Len returns the number of content bytes currently held.
func (buf *Buffer) Len() int {
	return len(buf.data) - buf.pad
}

// Pad returns the remaining front headroom.
func (buf *Buffer) Pad() int {
	return buf.pad
}

// IsAlignedTo reports whether the content length is a multiple of n.
func (buf *Buffer) IsAlignedTo(n int) bool {
	return buf.Len()%n == 0
}
