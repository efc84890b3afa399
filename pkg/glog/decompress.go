package glog

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// decompress inflates a frame payload when enabled, and is the
// identity otherwise. The identity path keeps the per-frame pipeline
// uniform whether or not the stream was written with compression.
//
// Output is capped at max: a payload that inflates past it reports
// ErrFrameTooLarge instead of partially filling anything.
func decompress(in []byte, enabled bool, max int) ([]byte, error) {
	if !enabled {
		return in, nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, int64(max)+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecompress, err)
	}
	if len(out) > max {
		return nil, ErrFrameTooLarge
	}
	return out, nil
}
