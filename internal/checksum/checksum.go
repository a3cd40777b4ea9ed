package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

const blockSize = 4096

var ErrChecksumMismatch = errors.New("checksum mismatch")

// SHA256 returns the hex encoded SHA-256 digest of everything read from r.
func SHA256(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// SHA256File returns the hex encoded SHA-256 digest of the file at path.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	sum, err := SHA256(f)
	if err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}

	return sum, nil
}

// Verify recomputes the digest of path and compares it with expected.
func Verify(path, expected string) error {
	actual, err := SHA256File(path)
	if err != nil {
		return err
	}

	if actual != expected {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, expected, actual)
	}

	return nil
}
