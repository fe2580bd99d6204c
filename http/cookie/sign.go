package cookie

import (
	"crypto/hmac"
	"encoding/hex"
	"errors"

	"github.com/indigo-web/utils/uf"
	json "github.com/json-iterator/go"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrEmptyKey = errors.New("the validation key is empty")
	ErrLongKey  = errors.New("the validation key exceeds 64 bytes")
)

// macHexLen is the length of the hex-encoded MAC prepended to signed values.
const macHexLen = blake2b.Size256 * 2

// Signer signs and validates cookie values with a keyed BLAKE2b-256 MAC.
// The MAC covers the serialized (name, value) tuple, so equal values under
// different names never produce equal signatures. A signed value carries
// the hex MAC prepended to the original value.
type Signer struct {
	key []byte
}

func NewSigner(key string) (Signer, error) {
	switch {
	case len(key) == 0:
		return Signer{}, ErrEmptyKey
	case len(key) > blake2b.Size:
		return Signer{}, ErrLongKey
	}

	return Signer{key: []byte(key)}, nil
}

// Sign returns the value with its MAC prepended.
func (s Signer) Sign(name, value string) string {
	return s.mac(name, value) + value
}

// Verify splits a signed value back into the MAC and the original value and
// recomputes the MAC over it. The comparison is constant-time. Values too
// short to carry a MAC never verify.
func (s Signer) Verify(name, signed string) (value string, ok bool) {
	if len(signed) < macHexLen {
		return "", false
	}

	mac, value := signed[:macHexLen], signed[macHexLen:]
	expected := s.mac(name, value)

	return value, hmac.Equal(uf.S2B(mac), uf.S2B(expected))
}

// Unsign strips the MAC prefix without verifying it. Most callers want
// Verify; this one serves diagnostics over values whose key is long gone.
func (s Signer) Unsign(signed string) (value string, ok bool) {
	if len(signed) < macHexLen {
		return "", false
	}

	return signed[macHexLen:], true
}

func (s Signer) mac(name, value string) string {
	payload, err := json.Marshal([2]string{name, value})
	if err != nil {
		// a pair of plain strings always serializes
		panic(err)
	}

	// the key length is validated at construction, New256 cannot fail here
	h, _ := blake2b.New256(s.key)
	h.Write(payload)

	return hex.EncodeToString(h.Sum(nil))
}
