package glog

import "errors"

// Format errors. All of these abort the read session: a stream with a
// broken header has no sync marker established yet, so there is nothing
// to resynchronize on.
var (
	ErrBadMagic           = errors.New("glog: bad magic number")
	ErrUnsupportedVersion = errors.New("glog: unsupported container version")
	ErrTruncated          = errors.New("glog: unexpected end of stream")
	ErrBadSyncMarker      = errors.New("glog: header sync marker mismatch")
	ErrFrameTooLarge      = errors.New("glog: decoded frame exceeds buffer")
)

// Crypto errors, raised from Open (key setup) or Read (decrypt).
var (
	ErrMissingKey        = errors.New("glog: encrypted stream but no private key supplied")
	ErrInvalidPrivateKey = errors.New("glog: invalid private key")
	ErrInvalidPublicKey  = errors.New("glog: invalid client public key")
	ErrDecryptFailed     = errors.New("glog: decrypt failed")
)

// ErrDecompress reports malformed compressed frame data. A frame that
// framed correctly but does not inflate is payload corruption the sync
// marker cannot detect, so it is fatal rather than a recovery signal.
var ErrDecompress = errors.New("glog: decompress failed")

// ErrClosed is returned by Read after Close.
var ErrClosed = errors.New("glog: reader closed")
