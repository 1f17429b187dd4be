package events

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/gobuffalo/flect"

	"github.com/retro-framework/go-lottery/framework/retro"
)

// DefaultManifest knows every lottery event under its default name.
var DefaultManifest = NewManifest()

func init() {
	for _, ev := range []Event{
		LotteryCreated{},
		ParticipantAdded{},
		ParticipantRemoved{},
		WinnerSelected{},
	} {
		if err := DefaultManifest.Register(ev); err != nil {
			panic(err)
		}
	}
}

// Manifest maps event types to the names they are persisted under.
// Events are registered as values (not pointers), Decode returns values
// again so that type switches over the sealed Event set keep working
// after a round trip through storage.
type Manifest struct {
	mu     sync.RWMutex
	byName map[string]reflect.Type
	byType map[reflect.Type]string
}

func NewManifest() *Manifest {
	return &Manifest{
		byName: make(map[string]reflect.Type),
		byType: make(map[reflect.Type]string),
	}
}

// Register registers ev under its underscored type name, e.g.
// ParticipantAdded becomes participant_added.
func (m *Manifest) Register(ev retro.Event) error {
	return m.RegisterAs(flect.Underscore(toType(ev).Name()), ev)
}

func (m *Manifest) RegisterAs(name string, ev retro.Event) error {
	if ev == nil {
		return fmt.Errorf("can't register nil event as %q", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := toType(ev)
	if existing, exists := m.byName[name]; exists {
		return fmt.Errorf("can't register event %s as %q, name already bound to %s", t, name, existing)
	}
	if existing, exists := m.byType[t]; exists {
		return fmt.Errorf("can't register event %s as %q, already registered as %q", t, name, existing)
	}
	m.byName[name] = t
	m.byType[t] = name
	return nil
}

func (m *Manifest) KeyFor(ev retro.Event) (string, error) {
	if ev == nil {
		return "", fmt.Errorf("no name for nil event")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if name, ok := m.byType[toType(ev)]; ok {
		return name, nil
	}
	return "", fmt.Errorf("event %T is not registered", ev)
}

// ForName returns a zero value of the event registered under name.
func (m *Manifest) ForName(name string) (retro.Event, error) {
	m.mu.RLock()
	t, ok := m.byName[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no event registered with name %q", name)
	}
	return reflect.New(t).Elem().Interface(), nil
}

// Decode unmarshals a JSON payload into the event registered under name.
func (m *Manifest) Decode(name string, payload []byte) (retro.Event, error) {
	m.mu.RLock()
	t, ok := m.byName[name]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no event registered with name %q", name)
	}
	ptr := reflect.New(t)
	if err := json.Unmarshal(payload, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("can't decode %q payload: %s", name, err)
	}
	return ptr.Elem().Interface(), nil
}

// List returns a zero value per registered name, for rendering the
// manifest to clients.
func (m *Manifest) List() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var r = make(map[string]interface{}, len(m.byName))
	for name, t := range m.byName {
		r[name] = reflect.New(t).Elem().Interface()
	}
	return r
}

// Names returns the registered names sorted.
func (m *Manifest) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for name := range m.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// toType takes an event (or pointer to event) and returns its
// reflect.Type with any pointer unwrapped.
func toType(ev retro.Event) reflect.Type {
	t := reflect.TypeOf(ev)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
