package glog

// Container constants fixed by the producer. Changing any of these
// breaks interoperability with existing log files.
const (
	// SingleLogMaxLength is the upper bound on a single decoded log
	// entry (16 KiB).
	SingleLogMaxLength = 16 * 1024

	magicSize      = 4
	versionSize    = 1
	logLengthSize  = 2
	syncMarkerSize = 8
)

// Magic number identifying a Glog container.
var magicNumber = [magicSize]byte{0x1B, 0xAD, 0xC0, 0xDE}

// syncMarker terminates the header and every frame. It doubles as the
// resynchronization anchor when a frame is corrupted.
var syncMarker = [syncMarkerSize]byte{0xB7, 0xDB, 0xE7, 0xDB, 0x80, 0xAD, 0xD9, 0x57}

// Version is the container format version.
type Version uint8

const (
	// VersionInitial and VersionFixPosition are deprecated producer
	// versions. Files using them are rejected as unsupported.
	VersionInitial     Version = 0x01
	VersionFixPosition Version = 0x02

	// VersionRecovery (V3) adds a sync marker to every entry so data
	// after a corrupted region can still be recovered.
	VersionRecovery Version = 0x03

	// VersionCipher (V4) adds ECDH-negotiated AES-CFB encryption.
	VersionCipher Version = 0x04
)

// Mode is the set of payload transform flags carried in the header.
type Mode uint8

const (
	// ModeCompressed marks frame payloads as zlib-deflated.
	ModeCompressed Mode = 1 << iota
	// ModeEncrypted marks frame payloads as AES-128-CFB encrypted.
	ModeEncrypted
)

// Has reports whether all flags in m are set.
func (m Mode) Has(flag Mode) bool { return m&flag == flag }

// Status classifies the outcome of a single Read call.
type Status uint8

const (
	// StatusSuccess means decoded bytes were written to the caller's
	// buffer.
	StatusSuccess Status = iota
	// StatusEOF means the stream ended cleanly. It is terminal.
	StatusEOF
	// StatusNeedRecover means corrupted bytes were skipped and the
	// cursor now sits at the next valid frame boundary. The next Read
	// resumes normal frame production.
	StatusNeedRecover
)

// RecoverCode identifies the nature of a skipped corruption for caller
// diagnostics. Values match the original producer's tooling.
type RecoverCode int

const (
	// RecoverBadLength means the length field was zero or exceeded
	// SingleLogMaxLength.
	RecoverBadLength RecoverCode = -2
	// RecoverBadMarker means the frame trailer did not match the sync
	// marker.
	RecoverBadMarker RecoverCode = -3
	// RecoverTruncated means the stream ended inside a frame.
	RecoverTruncated RecoverCode = -4
)

// ReadResult is the tagged outcome of a Read call. Length is only
// meaningful for StatusSuccess, Code only for StatusNeedRecover.
type ReadResult struct {
	Status Status
	Length int
	Code   RecoverCode
}

func successResult(n int) ReadResult { return ReadResult{Status: StatusSuccess, Length: n} }

func eofResult() ReadResult { return ReadResult{Status: StatusEOF} }

func recoverResult(c RecoverCode) ReadResult {
	return ReadResult{Status: StatusNeedRecover, Code: c}
}
