package discovery

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/blake2b"
)

// contentPrefixBytes bounds how much of a file's head is hashed, so
// fingerprinting a large file never requires a full read.
const contentPrefixBytes = 1024

// fileFingerprint computes a BLAKE2b-256 hash over the file's size (8
// bytes little-endian), its mtime in nanoseconds since the Unix epoch
// (16 bytes little-endian), and the first 1024 bytes of its content.
// The hash changes whenever size, mtime, or the file head changes.
func fileFingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("discovery: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("discovery: stat %s: %w", path, err)
	}

	var header [24]byte
	binary.LittleEndian.PutUint64(header[0:8], uint64(info.Size()))
	mtimeNanos := info.ModTime().UnixNano()
	binary.LittleEndian.PutUint64(header[8:16], uint64(mtimeNanos))
	// header[16:24] stays zero: UnixNano fits an int64, the low 8 of the
	// spec's 16-byte mtime-nanos field.

	prefix := make([]byte, contentPrefixBytes)
	n, err := io.ReadFull(f, prefix)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("discovery: read %s: %w", path, err)
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("discovery: init hash: %w", err)
	}
	h.Write(header[:])
	h.Write(prefix[:n])
	return hex.EncodeToString(h.Sum(nil)), nil
}
