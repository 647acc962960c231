package command

import "sync"

// Registry is a process-wide mapping from symbolic command name to its
// canonical two-character wire code. A name absent from the registry
// resolves to itself, and there is no deregistration.
//
// The registry is meant to be fully populated during initialization before
// concurrent endpoints start: Get takes only a read lock, but correctness
// still assumes no concurrent Register calls race with traffic on a live
// endpoint.
type Registry struct {
	mu    sync.RWMutex
	codes map[string]string
}

// NewRegistry returns an empty Registry. Most callers use DefaultRegistry
// instead of creating their own.
func NewRegistry() *Registry {
	return &Registry{codes: make(map[string]string)}
}

// DefaultRegistry is the process-wide registry package-level Encode and
// Register/Get use. Decode does not consult any registry.
var DefaultRegistry = NewRegistry()

// Register associates name with a canonical two-character code. code must
// be exactly two characters or Register returns ErrInvalidMnemonic and
// leaves the registry unchanged.
func (r *Registry) Register(name, code string) error {
	if len(code) != 2 {
		return ErrInvalidMnemonic
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[name] = code
	return nil
}

// Get resolves name through the registry, returning name unchanged if it
// was never registered.
func (r *Registry) Get(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if code, ok := r.codes[name]; ok {
		return code
	}
	return name
}

// Register registers name on the DefaultRegistry.
func Register(name, code string) error {
	return DefaultRegistry.Register(name, code)
}

// Get resolves name through the DefaultRegistry.
func Get(name string) string {
	return DefaultRegistry.Get(name)
}
