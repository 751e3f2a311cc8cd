// Package random generates random strings over an alphanumeric charset.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/big"
	mrand "math/rand"
	"time"
)

const charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

func init() {
	// Seed the fast generator from the system's entropy, falling back to
	// the clock when that fails.
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		mrand.Seed(time.Now().UnixNano())
		return
	}
	mrand.Seed(int64(binary.LittleEndian.Uint64(b[:])))
}

// String returns a pseudo-random string of the given length. Use
// StringSecure for anything secret.
func String(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[mrand.Intn(len(charset))]
	}
	return string(b)
}

// StringSecure returns a cryptographically random string of the given
// length.
func StringSecure(length int) (string, error) {
	max := big.NewInt(int64(len(charset)))

	b := make([]byte, length)
	for i := range b {
		num, err := crand.Int(crand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}
