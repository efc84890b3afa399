// Package glog reads the Glog binary log container produced by
// instrumented clients. It recovers individual log records from byte
// streams that may be partially corrupted, zlib-compressed, or
// AES-CFB encrypted behind a secp256k1 ECDH key exchange.
//
// Two container versions exist: V3 ("recovery") frames every record
// with a sync marker so corrupted regions can be skipped, and V4
// ("cipher") adds encryption on top. Both are read through the same
// pull-based Reader.
package glog

import (
	"fmt"
	"io"
	"os"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

type readerState uint8

const (
	stateStreaming readerState = iota
	stateEOF
	stateClosed
)

// Reader is the pull-based facade over one container stream. It owns
// the stream cursor exclusively and is not safe for concurrent use;
// callers sharing a Reader across goroutines must serialize access.
type Reader struct {
	header  *Header
	scanner frameScanner
	session *cryptoSession // nil unless the header is encrypted
	state   readerState
}

// Open reads an unencrypted container from r. Opening an encrypted
// stream without a key fails with ErrMissingKey.
func Open(r io.Reader) (*Reader, error) {
	return open(r, nil)
}

// OpenWithKey reads a container from r, using key (hex string or raw
// 32-byte secp256k1 scalar) to decrypt V4 streams. The key is only
// consulted when the header has encryption set.
func OpenWithKey(r io.Reader, key string) (*Reader, error) {
	priv, err := parsePrivateKey(key)
	if err != nil {
		return nil, err
	}
	return open(r, priv)
}

// OpenFile opens the container file at path.
func OpenFile(path string) (*Reader, error) {
	return openFile(path, "")
}

// OpenFileWithKey opens the container file at path with a decryption
// key.
func OpenFileWithKey(path, key string) (*Reader, error) {
	return openFile(path, key)
}

func openFile(path, key string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if key == "" {
		return Open(f)
	}
	return OpenWithKey(f, key)
}

func open(r io.Reader, priv *secp256k1.PrivateKey) (*Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	c := newCursor(data)
	header, err := parseHeader(c)
	if err != nil {
		return nil, err
	}

	g := &Reader{
		header:  header,
		scanner: frameScanner{c: c},
	}

	// Only V4 carries the IV and public key needed for decryption; the
	// V3 mode byte reserves an encryption nibble but no producer ever
	// wrote it, so it is parsed and ignored.
	if header.Version == VersionCipher && header.Encrypted() {
		if priv == nil {
			return nil, ErrMissingKey
		}
		session, err := newCryptoSession(priv, header)
		if err != nil {
			return nil, err
		}
		g.session = session
	}

	return g, nil
}

// Read produces the next decoded log record into buf and reports the
// outcome. StatusNeedRecover means corrupted bytes were skipped with
// no payload produced; the following Read resumes at the next valid
// frame. After StatusEOF every subsequent call returns StatusEOF.
//
// The per-frame pipeline is scan, then decrypt, then inflate: the
// producer compresses the plaintext before encrypting it, so the
// reader undoes the transforms in the opposite order.
func (g *Reader) Read(buf []byte) (ReadResult, error) {
	switch g.state {
	case stateClosed:
		return ReadResult{}, ErrClosed
	case stateEOF:
		return eofResult(), nil
	}

	payload, res := g.scanner.next()
	if res.Status != StatusSuccess {
		if res.Status == StatusEOF {
			g.state = stateEOF
		}
		return res, nil
	}

	if g.session != nil {
		plain, err := g.session.decrypt(payload)
		if err != nil {
			return ReadResult{}, err
		}
		payload = plain
	}

	decoded, err := decompress(payload, g.header.Compressed(), SingleLogMaxLength)
	if err != nil {
		return ReadResult{}, err
	}

	if len(decoded) > len(buf) {
		return ReadResult{}, fmt.Errorf("%w: frame is %d bytes, buffer is %d", ErrFrameTooLarge, len(decoded), len(buf))
	}
	copy(buf, decoded)

	return successResult(len(decoded)), nil
}

// Header returns the parsed container header.
func (g *Reader) Header() *Header {
	return g.header
}

// Position returns the current cursor offset from the start of the
// stream, useful for corruption diagnostics.
func (g *Reader) Position() int {
	return g.scanner.c.pos
}

// Close releases the stream buffer. Read after Close returns
// ErrClosed. Abandoning a Reader without Close is also safe; no
// external resources are held.
func (g *Reader) Close() error {
	g.state = stateClosed
	g.scanner.c = newCursor(nil)
	g.session = nil
	return nil
}
