package driver

import (
	"fmt"
	"sort"
	"sync"

	"github.com/torosent/benchworker/internal/metricsink"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a driver Factory available under name. It is intended to
// be called from an implementation package's init function, the way
// database/sql drivers register themselves. Register panics if name is
// already registered or factory is nil — both are programming errors
// caught at process startup, not something a caller should handle.
func Register(name string, factory Factory) {
	if factory == nil {
		panic("driver: Register factory is nil for " + name)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("driver: Register called twice for driver " + name)
	}
	registry[name] = factory
}

// Lookup returns the Factory registered under name, if any.
func Lookup(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[name]
	return factory, ok
}

// New resolves name via Lookup and invokes the factory with rawConfig and
// sink, returning a descriptive error if no driver is registered under
// name.
func New(name string, rawConfig []byte, sink metricsink.Sink) (Driver, error) {
	factory, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("driver: no driver registered under name %q", name)
	}
	return factory(rawConfig, sink)
}

// Names returns the sorted set of currently registered driver names,
// primarily for CLI help text and diagnostics.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
