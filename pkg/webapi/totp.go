package webapi

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	totpPeriod = 30 // seconds
	totpDigits = 6
)

// deriveKey turns a secret into the hex-encoded TOTP signing key.
//
// Each byte is XORed with ((i mod version) + 9), the results are written
// out as decimal numbers and concatenated, and the UTF-8 bytes of that
// string are hex-encoded. version must be positive.
func deriveKey(s Secret) string {
	var joined strings.Builder
	for i, b := range s.Key {
		joined.WriteString(strconv.Itoa(int(b) ^ (i%s.Version + 9)))
	}
	return hex.EncodeToString([]byte(joined.String()))
}

// totp computes an RFC 6238 code (HMAC-SHA1, 30 second step, 6 digits)
// for the hex-encoded key at time t.
func totp(hexKey string, t time.Time) (string, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return "", fmt.Errorf("decode totp key: %w", err)
	}

	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], uint64(t.Unix())/totpPeriod)

	mac := hmac.New(sha1.New, key)
	mac.Write(counter[:])
	sum := mac.Sum(nil)

	// Dynamic truncation (RFC 4226 section 5.3).
	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	mod := uint32(1)
	for range totpDigits {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", totpDigits, code%mod), nil
}
