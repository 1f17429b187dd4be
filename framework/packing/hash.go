package packing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// HashAlgoName names the algorithm a Hash was computed with, it
// prefixes the hex digest in the string form.
type HashAlgoName string

const HashAlgoNameSHA256 HashAlgoName = "sha256"

// Hash holds a digest in raw bytes (not hex encoded)
// together with the name of the algorithm.
type Hash struct {
	AlgoName HashAlgoName
	B        []byte
}

func (h Hash) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", h.String())), nil
}

func (h Hash) String() string {
	return fmt.Sprintf("%s:%x", h.AlgoName, h.B)
}

func (h Hash) ShortStr() string {
	if len(h.B) < 8 {
		return h.String()
	}
	return fmt.Sprintf("%s:%x", h.AlgoName, h.B[0:8])
}

func (h Hash) Bytes() []byte {
	return h.B
}

func NewHash(n HashAlgoName, b []byte) Hash {
	return Hash{n, b}
}

// ParseHash is the inverse of Hash.String.
func ParseHash(str string) (Hash, error) {
	parts := strings.SplitN(str, ":", 2)
	if len(parts) != 2 || parts[0] != string(HashAlgoNameSHA256) {
		return Hash{}, errors.Wrapf(ErrMalformedHash, "parsing %q", str)
	}
	decoded, err := hex.DecodeString(parts[1])
	if err != nil {
		return Hash{}, errors.Wrapf(ErrMalformedHash, "parsing %q: %s", str, err)
	}
	return NewHash(HashAlgoNameSHA256, decoded), nil
}

// HashStr hashes str with sha256.
func HashStr(str string) Hash {
	var s = sha256.Sum256([]byte(str))
	return NewHash(HashAlgoNameSHA256, s[:])
}
