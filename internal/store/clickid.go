package store

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/binary"
	"strings"
	"time"
)

// clickIDEncoding is base32hex without padding, lowercased after encoding.
// base32hex preserves numeric ordering, so ids sort by creation time.
var clickIDEncoding = base32.HexEncoding.WithPadding(base32.NoPadding)

// NewClickID returns a 12-character URL-safe short id. The first 4 bytes are
// the big-endian unix second, the last 3 are random, so ids created in the
// same second differ while lexicographic order still follows time.
func NewClickID(now time.Time) (string, error) {
	var buf [7]byte
	binary.BigEndian.PutUint32(buf[:4], uint32(now.Unix()))
	if _, err := rand.Read(buf[4:]); err != nil {
		return "", err
	}
	return strings.ToLower(clickIDEncoding.EncodeToString(buf[:])), nil
}
