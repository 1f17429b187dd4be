package packing

import (
	"testing"

	"github.com/pkg/errors"
	test "github.com/retro-framework/go-lottery/framework/test_helper"
	"golang.org/x/xerrors"
)

type DummyEvent struct {
	Foo string `json:"foo"`
	Bar string `json:"bar"`
}

func Test_UnpackPack(t *testing.T) {

	t.Run("exemplary event", func(t *testing.T) {

		// Arrange
		jp := NewJSONPacker()

		// Act
		packed, _ := jp.PackEvent("dummy", DummyEvent{"hello", "world"})
		name, payload, err := jp.UnpackEvent(packed.Contents())

		// Assert
		test.H(t).IsNil(err)
		test.H(t).StringEql(name, "dummy")
		test.H(t).StringEql(string(payload), `{"foo":"hello","bar":"world"}`)
		test.H(t).StringEql(jp.HashOf(packed.Contents()).String(), packed.Hash().String())
	})
}

func Test_Pack(t *testing.T) {

	t.Run("exemplary event", func(t *testing.T) {

		// Arrange
		jp := NewJSONPacker()

		// Act
		res, err := jp.PackEvent("dummy", DummyEvent{"hello", "world"})

		// Assert
		test.H(t).IsNil(err)
		var (
			wantContents = `event json dummy 29` + HeaderContentSepRune + `{"foo":"hello","bar":"world"}`
			wantHash     = `sha256:0756fae7f4a43d60b5532e1d4da5665daeb0f1a5274f363b99a7757511ec88db`
		)
		test.H(t).StringEql(string(res.Contents()), wantContents)
		test.H(t).StringEql(res.Hash().String(), wantHash)
	})

	t.Run("unmarshalable events are an error", func(t *testing.T) {
		_, err := NewJSONPacker().PackEvent("dummy", make(chan int))
		test.H(t).NotNil(err)
	})
}

func Test_Unpack(t *testing.T) {

	var jp = NewJSONPacker()

	for _, tc := range []struct {
		name     string
		contents string
		want     error
	}{
		{"no separator", `event json dummy 2{}`, ErrMissingHeader},
		{"short header", "event json 2" + HeaderContentSepRune + `{}`, ErrMalformedHeader},
		{"other object", "affix json dummy 2" + HeaderContentSepRune + `{}`, ErrNotAnEvent},
		{"other encoding", "event msgpack dummy 2" + HeaderContentSepRune + `{}`, ErrMalformedHeader},
		{"bad length", "event json dummy two" + HeaderContentSepRune + `{}`, ErrMalformedHeader},
		{"truncated", "event json dummy 20" + HeaderContentSepRune + `{}`, ErrLengthMismatch},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := jp.UnpackEvent([]byte(tc.contents))
			if !xerrors.Is(errors.Cause(err), tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
