package glog

import "bytes"

// frameScanner turns the byte stream after the header into a sequence
// of length-delimited frames bounded by the sync marker. It owns
// corruption detection and forward resynchronization.
type frameScanner struct {
	c *cursor
}

// next produces the next raw frame payload, still compressed and
// encrypted per the header mode flags.
//
// A stream that ends exactly at a frame boundary is a clean EOF:
// writers may truncate output there. A stream that ends inside a frame
// is indistinguishable from corruption and goes through recovery
// instead, so no trailing valid frame is silently dropped.
func (fs *frameScanner) next() ([]byte, ReadResult) {
	if fs.c.remaining() == 0 {
		return nil, eofResult()
	}

	frameStart := fs.c.pos

	length, err := fs.c.takeUint16()
	if err != nil {
		return nil, fs.resync(frameStart, RecoverTruncated)
	}

	logLength := int(length)
	if logLength == 0 || logLength > SingleLogMaxLength {
		return nil, fs.resync(frameStart, RecoverBadLength)
	}

	payload, err := fs.c.take(logLength)
	if err != nil {
		return nil, fs.resync(frameStart, RecoverTruncated)
	}

	trailer, err := fs.c.take(syncMarkerSize)
	if err != nil {
		return nil, fs.resync(frameStart, RecoverTruncated)
	}
	if !bytes.Equal(trailer, syncMarker[:]) {
		return nil, fs.trailerMismatch(frameStart)
	}

	return payload, successResult(logLength)
}

// trailerMismatch handles a structurally complete frame whose trailing
// marker does not match. Two corruptions look identical here: a damaged
// trailer, or a damaged length field that made us read the trailer at
// the wrong offset. They are told apart by where the next real marker
// sits. If a marker begins inside the bytes just consumed, the length
// field lied about the frame's extent; resume past that marker. If not,
// the length is trusted, only the 8 trailer bytes are bad, and the
// cursor (already past them) sits at the next frame, so the following
// valid frame is not lost.
func (fs *frameScanner) trailerMismatch(frameStart int) ReadResult {
	consumedEnd := fs.c.pos
	idx := bytes.Index(fs.c.data[frameStart+1:], syncMarker[:])
	if idx >= 0 && frameStart+1+idx < consumedEnd {
		fs.c.pos = frameStart + 1 + idx + syncMarkerSize
	}
	return recoverResult(RecoverBadMarker)
}

// resync scans forward for the next sync marker occurrence, starting
// one byte past the claimed frame start. The scan slides over every
// byte offset rather than stepping by the claimed length, so it also
// recovers when corruption changed the effective frame size (a flipped
// length field, dropped bytes). If a marker is found the cursor lands
// just past it and the caller reports one skipped region; if not, no
// further valid frames exist and the stream is at EOF.
func (fs *frameScanner) resync(frameStart int, code RecoverCode) ReadResult {
	idx := bytes.Index(fs.c.data[frameStart+1:], syncMarker[:])
	if idx < 0 {
		fs.c.pos = len(fs.c.data)
		return eofResult()
	}
	fs.c.pos = frameStart + 1 + idx + syncMarkerSize
	return recoverResult(code)
}
