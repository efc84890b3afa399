package glog

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/klauspost/compress/zlib"
)

// Test-only stream builders. The library itself is read-only; these
// mirror what the instrumented client writes.

func v3Header(mode byte, protoName string) []byte {
	var buf bytes.Buffer
	buf.Write(magicNumber[:])
	buf.WriteByte(byte(VersionRecovery))
	buf.WriteByte(mode)
	writeUint16(&buf, uint16(len(protoName)))
	buf.WriteString(protoName)
	buf.Write(syncMarker[:])
	return buf.Bytes()
}

func v4Header(mode byte, protoName string, iv []byte, pubKey []byte) []byte {
	var buf bytes.Buffer
	buf.Write(magicNumber[:])
	buf.WriteByte(byte(VersionCipher))
	writeUint16(&buf, uint16(len(protoName)))
	buf.WriteString(protoName)
	buf.Write(syncMarker[:])
	buf.WriteByte(mode)
	if iv != nil {
		buf.Write(iv)
	}
	if pubKey != nil {
		buf.Write(pubKey)
	}
	return buf.Bytes()
}

func appendFrame(dst []byte, payload []byte) []byte {
	dst = append(dst, byte(len(payload)), byte(len(payload)>>8))
	dst = append(dst, payload...)
	return append(dst, syncMarker[:]...)
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	buf.WriteByte(byte(v))
	buf.WriteByte(byte(v >> 8))
}

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("compress close: %v", err)
	}
	return buf.Bytes()
}

// testKeyPair holds both ends of the ECDH exchange: the client embeds
// its public key in the stream, the reader supplies the server private
// key.
type testKeyPair struct {
	serverPriv *secp256k1.PrivateKey
	clientPriv *secp256k1.PrivateKey
}

func newTestKeyPair(t *testing.T) testKeyPair {
	t.Helper()
	server, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate server key: %v", err)
	}
	client, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate client key: %v", err)
	}
	return testKeyPair{serverPriv: server, clientPriv: client}
}

func (kp testKeyPair) clientPubCompressed() []byte {
	return kp.clientPriv.PubKey().SerializeCompressed()
}

func (kp testKeyPair) serverPrivHex() string {
	return hex.EncodeToString(kp.serverPriv.Serialize())
}

// newTestEncrypter builds the writer-side CFB stream from the client's
// view of the exchange. Its feedback register spans the whole session,
// matching the reader.
func newTestEncrypter(t *testing.T, kp testKeyPair, iv []byte) cipher.Stream {
	t.Helper()
	shared := secp256k1.GenerateSharedSecret(kp.clientPriv, kp.serverPriv.PubKey())
	block, err := aes.NewCipher(shared[:aesKeySize])
	if err != nil {
		t.Fatalf("aes: %v", err)
	}
	return cipher.NewCFBEncrypter(block, iv)
}

func encryptFrames(t *testing.T, enc cipher.Stream, frames [][]byte) [][]byte {
	t.Helper()
	out := make([][]byte, len(frames))
	for i, f := range frames {
		ct := make([]byte, len(f))
		enc.XORKeyStream(ct, f)
		out[i] = ct
	}
	return out
}
