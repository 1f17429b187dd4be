package matcher

import (
	"testing"

	"github.com/retro-framework/go-lottery/framework/retro"
	test "github.com/retro-framework/go-lottery/framework/test_helper"
)

var _ retro.PatternMatcher = &Glob{}

func Test_Glob(t *testing.T) {

	var g Glob

	for _, tc := range []struct {
		pattern, partition string
		want               bool
	}{
		{"*", "lottery/1", true},
		{"lottery/*", "lottery/123", true},
		{"lottery/*", "raffle/123", false},
		{"lottery/1", "lottery/1", true},
		{"lottery/1", "lottery/12", false},
		{"lottery/?", "lottery/7", true},
		{"lottery/?", "lottery/77", false},
		{"*/L1", "lottery/L1", true},
	} {
		t.Run(tc.pattern+" "+tc.partition, func(t *testing.T) {
			// Act
			got, err := g.DoesMatch(tc.pattern, tc.partition)
			// Assert
			test.H(t).IsNil(err)
			test.H(t).BoolEql(got, tc.want)
		})
	}

	t.Run("compiled patterns are reused", func(t *testing.T) {
		first, _ := g.DoesMatch("lottery/*", "lottery/1")
		again, _ := g.DoesMatch("lottery/*", "lottery/1")
		test.H(t).BoolEql(first, again)
		_, cached := g.compiled.Load("lottery/*")
		test.H(t).BoolEql(cached, true)
	})
}
