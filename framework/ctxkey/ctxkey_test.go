package ctxkey

import (
	"context"
	"testing"
)

func Test_ctxkey_RequestID(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		res := RequestID(context.Background())
		if res != "-" {
			t.Fatal("expected default value, got", res)
		}
	})
	t.Run("override", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "4f1c")
		res := RequestID(ctx)
		if res != "4f1c" {
			t.Fatal("expected overridden value, got", res)
		}
	})
	t.Run("blank ids fall back to the default", func(t *testing.T) {
		res := RequestID(WithRequestID(context.Background(), ""))
		if res != "-" {
			t.Fatal("expected default value, got", res)
		}
	})
}
