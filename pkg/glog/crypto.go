package glog

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// aesKeySize is the AES-128 key length. The ECDH shared secret is
// reduced to this many bytes.
const aesKeySize = 16

// privateKeySize is the secp256k1 scalar length.
const privateKeySize = 32

// cryptoSession holds the symmetric state for one encrypted stream.
// The key material is derived once at open time and is immutable for
// the reader's lifetime. The CFB feedback register lives inside stream
// and advances with every decrypted byte; it deliberately persists
// across frame boundaries, so frames must be decrypted in stream order.
type cryptoSession struct {
	key    [aesKeySize]byte
	stream cipher.Stream
}

// parsePrivateKey accepts the server private key as a hex string or as
// a raw 32-byte scalar.
func parsePrivateKey(key string) (*secp256k1.PrivateKey, error) {
	raw := []byte(key)
	if len(raw) != privateKeySize {
		decoded, err := hex.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
		}
		raw = decoded
	}
	if len(raw) != privateKeySize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidPrivateKey, privateKeySize, len(raw))
	}
	return secp256k1.PrivKeyFromBytes(raw), nil
}

// deriveKey performs the ECDH exchange between the server private key
// and the client public key embedded in the header, and reduces the
// shared secret to AES-128 key material.
//
// The reduction is a plain truncation: the first 16 bytes of the
// 32-byte big-endian X coordinate of the shared point. This matches
// the producer; hashing here would silently break interop.
func deriveKey(priv *secp256k1.PrivateKey, compressedPub []byte) ([aesKeySize]byte, error) {
	var key [aesKeySize]byte

	pub, err := secp256k1.ParsePubKey(compressedPub)
	if err != nil {
		return key, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	shared := secp256k1.GenerateSharedSecret(priv, pub)
	copy(key[:], shared[:aesKeySize])
	return key, nil
}

// newCryptoSession derives the session key and seeds the AES-128-CFB
// feedback register with the header IV.
func newCryptoSession(priv *secp256k1.PrivateKey, h *Header) (*cryptoSession, error) {
	key, err := deriveKey(priv, h.PublicKey[:])
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}

	return &cryptoSession{
		key:    key,
		stream: cipher.NewCFBDecrypter(block, h.IV[:]),
	}, nil
}

// decrypt produces the plaintext for one frame, advancing the feedback
// register by len(ciphertext) bytes.
func (s *cryptoSession) decrypt(ciphertext []byte) ([]byte, error) {
	if s == nil || s.stream == nil {
		return nil, ErrDecryptFailed
	}
	plain := make([]byte, len(ciphertext))
	s.stream.XORKeyStream(plain, ciphertext)
	return plain, nil
}
