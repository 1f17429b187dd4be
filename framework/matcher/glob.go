// Package matcher compares partition names against the glob patterns
// subscribers and tools use, such as `lottery/*`.
package matcher

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/zyedidia/glob"
)

// Glob implements retro.PatternMatcher. Compiled patterns are cached,
// the zero value is ready to use.
type Glob struct {
	compiled sync.Map
}

func (g *Glob) DoesMatch(pattern, partition string) (bool, error) {
	if cached, ok := g.compiled.Load(pattern); ok {
		return cached.(*glob.Glob).MatchString(partition), nil
	}
	compiled, err := glob.Compile(pattern)
	if err != nil {
		return false, errors.Wrapf(err, "can't compile glob pattern %q", pattern)
	}
	g.compiled.Store(pattern, compiled)
	return compiled.MatchString(partition), nil
}
