package glog

import (
	"bytes"
	"fmt"
)

// Header is the container prologue. It is parsed once at open time and
// immutable afterwards.
type Header struct {
	Version   Version
	Modes     Mode
	RawMode   byte   // wire mode byte, kept verbatim for forward compat
	ProtoName string // payload schema identifier

	// IV and PublicKey are populated only for VersionCipher streams
	// with ModeEncrypted set.
	IV        [16]byte
	PublicKey [33]byte
}

// Compressed reports whether frame payloads are zlib-deflated.
func (h *Header) Compressed() bool { return h.Modes.Has(ModeCompressed) }

// Encrypted reports whether frame payloads are AES-CFB encrypted.
func (h *Header) Encrypted() bool { return h.Modes.Has(ModeEncrypted) }

// parseHeader consumes the container prologue from c. The magic and
// version discriminate the layout; everything after them is
// version-specific. A malformed header is always fatal: no sync marker
// has been established yet, so there is no anchor to resynchronize on.
func parseHeader(c *cursor) (*Header, error) {
	magic, err := c.take(magicSize)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(magic, magicNumber[:]) {
		return nil, ErrBadMagic
	}

	ver, err := c.takeByte()
	if err != nil {
		return nil, err
	}

	switch Version(ver) {
	case VersionRecovery:
		return parseHeaderV3(c)
	case VersionCipher:
		return parseHeaderV4(c)
	default:
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnsupportedVersion, ver)
	}
}

// parseHeaderV3 reads the recovery-format prologue:
//
//	mode(1) | protoNameLen(2) | protoName | syncMarker(8)
func parseHeaderV3(c *cursor) (*Header, error) {
	h := &Header{Version: VersionRecovery}

	ms, err := c.takeByte()
	if err != nil {
		return nil, err
	}
	h.RawMode = ms
	h.Modes = decodeModeV3(ms)

	if err := parseProtoName(c, h); err != nil {
		return nil, err
	}
	if err := expectSyncMarker(c); err != nil {
		return nil, err
	}
	return h, nil
}

// parseHeaderV4 reads the cipher-format prologue:
//
//	protoNameLen(2) | protoName | syncMarker(8) | mode(1) | [iv(16)] | [pubkey(33)]
//
// The IV and the client public key are present iff the mode byte has
// encryption set; they establish the crypto session for every frame
// that follows.
func parseHeaderV4(c *cursor) (*Header, error) {
	h := &Header{Version: VersionCipher}

	if err := parseProtoName(c, h); err != nil {
		return nil, err
	}
	if err := expectSyncMarker(c); err != nil {
		return nil, err
	}

	ms, err := c.takeByte()
	if err != nil {
		return nil, err
	}
	h.RawMode = ms
	h.Modes = decodeModeV4(ms)

	if h.Encrypted() {
		iv, err := c.take(len(h.IV))
		if err != nil {
			return nil, err
		}
		copy(h.IV[:], iv)

		pub, err := c.take(len(h.PublicKey))
		if err != nil {
			return nil, err
		}
		copy(h.PublicKey[:], pub)
	}
	return h, nil
}

func parseProtoName(c *cursor, h *Header) error {
	nameLen, err := c.takeUint16()
	if err != nil {
		return err
	}
	name, err := c.take(int(nameLen))
	if err != nil {
		return err
	}
	h.ProtoName = string(name)
	return nil
}

func expectSyncMarker(c *cursor) error {
	marker, err := c.take(syncMarkerSize)
	if err != nil {
		return err
	}
	if !bytes.Equal(marker, syncMarker[:]) {
		return ErrBadSyncMarker
	}
	return nil
}

// decodeModeV3 maps the V3 wire mode byte to flags. The high nibble
// selects compression (0 plain, 1 zlib), the low nibble encryption
// (0 plain, 1 aes). Unknown nibble values are reserved; they are kept
// on RawMode and otherwise ignored so newer producers stay readable.
func decodeModeV3(ms byte) Mode {
	var m Mode
	if ms>>4 == 1 {
		m |= ModeCompressed
	}
	if ms&0x0F == 1 {
		m |= ModeEncrypted
	}
	return m
}

// decodeModeV4 maps the V4 wire mode byte to flags. V4 shifted the
// encodings by one: high nibble 1 plain / 2 zlib, low nibble 1 plain /
// 2 aes.
func decodeModeV4(ms byte) Mode {
	var m Mode
	if ms>>4 == 2 {
		m |= ModeCompressed
	}
	if ms&0x0F == 2 {
		m |= ModeEncrypted
	}
	return m
}
