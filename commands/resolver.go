package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gobuffalo/flect"

	"github.com/retro-framework/go-lottery/framework/retro"
)

// Dirname is the partition dirname every lottery lives under.
const Dirname = "lottery"

type Error struct {
	Op  string
	Err error
}

func (e Error) Error() string {
	return fmt.Sprintf("resolver: op: %q err: %q", e.Op, e.Err)
}

// argsFn builds a command for the id taken from the path and the raw
// args of the description.
type argsFn func(id string, args json.RawMessage) (Command, error)

type nameArgs struct {
	Name string `json:"name"`
}

func withName(build func(id, name string) Command) argsFn {
	return func(id string, raw json.RawMessage) (Command, error) {
		var a nameArgs
		if len(raw) == 0 {
			return nil, fmt.Errorf("args with a name are required")
		}
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
		if strings.TrimSpace(a.Name) == "" {
			return nil, fmt.Errorf("name may not be blank")
		}
		return build(id, a.Name), nil
	}
}

func withoutArgs(build func(id string) Command) argsFn {
	return func(id string, _ json.RawMessage) (Command, error) {
		return build(id), nil
	}
}

// Manifest knows the commands a Resolver accepts by name.
type Manifest map[string]argsFn

// DefaultManifest holds every lottery command under its type name.
var DefaultManifest = Manifest{
	"CreateLottery": withoutArgs(func(id string) Command { return CreateLottery{ID: id} }),
	"AddParticipant": withName(func(id, name string) Command {
		return AddParticipant{ID: id, Name: name}
	}),
	"RemoveParticipant": withName(func(id, name string) Command {
		return RemoveParticipant{ID: id, Name: name}
	}),
	"RemoveAllParticipants": withoutArgs(func(id string) Command { return RemoveAllParticipants{ID: id} }),
	"Run":                   withoutArgs(func(id string) Command { return Run{ID: id} }),
}

func (m Manifest) List() []string {
	var names []string
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var _ retro.ListingCommandManifest = Manifest{}

type commandDesc struct {
	Name string          `json:"name"`
	Path string          `json:"path"`
	Args json.RawMessage `json:"args"`
}

// Resolve uses the byte slice provided and unmarshals it with JSON, the
// object must at least name "name" and "path", e.g
//
//	{"name": "AddParticipant", "path": "lottery/123", "args": {"name": "Alice"}}
//
// Names are accepted in Pascal or snake case ("add_participant").
func (m Manifest) Resolve(b []byte) (Command, error) {
	var desc commandDesc
	if err := json.Unmarshal(b, &desc); err != nil {
		return nil, Error{"json-unmarshal", err}
	}

	path := retro.PartitionName(strings.TrimSpace(desc.Path))
	if strings.Count(path.String(), "/") > 1 {
		return nil, Error{"parse-agg-path", fmt.Errorf("agg path %q contains too many slashes (may not nest)", desc.Path)}
	}
	if !path.Valid() {
		return nil, Error{"parse-agg-path", fmt.Errorf("agg path %q does not split into a name and an id", desc.Path)}
	}
	if path.Dirname() != Dirname {
		return nil, Error{"agg-lookup", fmt.Errorf("no aggregate registered at %q", path.Dirname())}
	}

	build, ok := m[flect.Pascalize(desc.Name)]
	if !ok {
		return nil, Error{"agg-cmd-lookup", fmt.Errorf("no command registered with name %s for aggregate %s", desc.Name, Dirname)}
	}

	cmd, err := build(path.ID(), desc.Args)
	if err != nil {
		return nil, Error{"assign-args", err}
	}
	return cmd, nil
}

// Resolve resolves b with the DefaultManifest.
func Resolve(b []byte) (Command, error) {
	return DefaultManifest.Resolve(b)
}
