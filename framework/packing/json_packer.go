package packing

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	HeaderContentSepRune = "\u0000"

	objectTypeEvent = "event"
	encodingJSON    = "json"
)

func NewJSONPacker() *JSONPacker {
	return &JSONPacker{
		hashFn: func() hash.Hash { return sha256.New() },
	}
}

// JSONPacker packs events into envelopes including hashing. A new hash
// is taken from hashFn for every envelope so the packer may be shared.
type JSONPacker struct {
	hashFn func() hash.Hash
}

// PackEvent packs an event into an envelope and returns it with a
// hashed payload attached. An event is packed with a header and a hint
// about its type and encoding, followed by a null byte and the raw
// bytes.
//
// See the tests for an example of how the stored format looks.
func (jp *JSONPacker) PackEvent(evName string, ev interface{}) (*PackedEvent, error) {

	var payload bytes.Buffer

	evB, err := json.Marshal(ev)
	if err != nil {
		return nil, errors.WithMessage(err, "packing: can't marshal ev as json")
	}

	payload.WriteString(fmt.Sprintf("%s %s %s %d", objectTypeEvent, encodingJSON, evName, len(evB)))
	payload.WriteString(HeaderContentSepRune)
	payload.Write(evB)

	return &PackedEvent{
		hash:    jp.hash(payload.Bytes()),
		payload: payload.Bytes(),
	}, nil
}

// UnpackEvent splits an envelope produced by PackEvent into the event
// name and the encoded payload.
func (jp *JSONPacker) UnpackEvent(contents []byte) (string, []byte, error) {
	sep := bytes.Index(contents, []byte(HeaderContentSepRune))
	if sep < 0 {
		return "", nil, ErrMissingHeader
	}
	var (
		header  = strings.Fields(string(contents[:sep]))
		payload = contents[sep+1:]
	)
	if len(header) != 4 {
		return "", nil, errors.Wrapf(ErrMalformedHeader, "header %q", contents[:sep])
	}
	if header[0] != objectTypeEvent {
		return "", nil, errors.Wrapf(ErrNotAnEvent, "object type %q", header[0])
	}
	if header[1] != encodingJSON {
		return "", nil, errors.Wrapf(ErrMalformedHeader, "unsupported encoding %q", header[1])
	}
	n, err := strconv.Atoi(header[3])
	if err != nil {
		return "", nil, errors.Wrapf(ErrMalformedHeader, "length %q", header[3])
	}
	if n != len(payload) {
		return "", nil, errors.Wrapf(ErrLengthMismatch, "header says %d, got %d", n, len(payload))
	}
	return header[2], payload, nil
}

// HashOf returns the hash an envelope with the given contents has.
func (jp *JSONPacker) HashOf(contents []byte) Hash {
	return jp.hash(contents)
}

func (jp *JSONPacker) hash(b []byte) Hash {
	h := jp.hashFn()
	h.Write(b)
	return Hash{HashAlgoNameSHA256, h.Sum(nil)}
}
