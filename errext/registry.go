package errext

import (
	"fmt"
	"sync"
)

// HostRuntimeError is the name of the host error kind the hierarchy is rooted in.
const HostRuntimeError = "RuntimeException"

// KindInfo describes a registered exception kind.
type KindInfo struct {
	Kind   Kind
	Name   string
	Parent Kind // zero means the host runtime error kind
	Final  bool
	Fields []FieldInfo
}

// Registry is the exception hierarchy: kind names, base relationships,
// finality and the structured fields each kind declares.
type Registry struct {
	mu     sync.RWMutex
	kinds  map[Kind]KindInfo
	byName map[string]Kind
	next   Kind
}

//nolint:gochecknoglobals
var (
	registerOnce sync.Once
	hierarchy    *Registry
	registerErr  error
)

// RegisterExceptionHierarchy declares the built-in exception kinds and returns
// the registry. Only the first call does any work, later calls return the same
// registry and error. A non-nil error means the hierarchy is unusable and
// initialization must not proceed.
func RegisterExceptionHierarchy() (*Registry, error) {
	registerOnce.Do(func() {
		hierarchy, registerErr = newHierarchy()
	})
	return hierarchy, registerErr
}

// MustRegister is like RegisterExceptionHierarchy but panics on failure.
func MustRegister() *Registry {
	r, err := RegisterExceptionHierarchy()
	if err != nil {
		panic(err)
	}
	return r
}

func newHierarchy() (*Registry, error) {
	r := &Registry{
		kinds:  make(map[Kind]KindInfo),
		byName: make(map[string]Kind),
		next:   firstCustomKind,
	}

	decls := []KindInfo{
		{Kind: KindEngine, Name: "EngineException"},
		{Kind: KindScript, Name: "ScriptException", Parent: KindEngine, Final: true, Fields: scriptFields()},
		{Kind: KindTimeLimit, Name: "TimeLimitException", Parent: KindEngine, Final: true},
		{Kind: KindMemoryLimit, Name: "MemoryLimitException", Parent: KindEngine, Final: true},
	}
	for _, d := range decls {
		if err := r.declare(d); err != nil {
			return nil, fmt.Errorf("registering exception hierarchy: %w", err)
		}
	}
	return r, nil
}

// declare must be called with mu held for writing or before r is shared.
func (r *Registry) declare(info KindInfo) error {
	if info.Name == "" {
		return fmt.Errorf("exception kind %d has no name", info.Kind)
	}
	if _, ok := r.byName[info.Name]; ok {
		return fmt.Errorf("exception kind %q is already registered", info.Name)
	}
	if _, ok := r.kinds[info.Kind]; ok {
		return fmt.Errorf("exception kind %d (%s) is already registered", info.Kind, info.Name)
	}
	if info.Parent != 0 {
		parent, ok := r.kinds[info.Parent]
		if !ok {
			return fmt.Errorf("unknown parent kind %d for %q", info.Parent, info.Name)
		}
		if parent.Final {
			return fmt.Errorf("%q cannot extend final exception kind %q", info.Name, parent.Name)
		}
	}
	seen := make(map[string]struct{}, len(info.Fields))
	for _, f := range info.Fields {
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("field %q is declared twice on %q", f.Name, info.Name)
		}
		seen[f.Name] = struct{}{}
	}

	r.kinds[info.Kind] = info
	r.byName[info.Name] = info.Kind
	return nil
}

// Extend registers a new exception kind derived from parent. Deriving from a
// final kind fails.
func (r *Registry) Extend(name string, parent Kind) (Kind, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.next == 0 {
		return 0, fmt.Errorf("cannot register %q: no exception kinds left", name)
	}
	kind := r.next
	if err := r.declare(KindInfo{Kind: kind, Name: name, Parent: parent}); err != nil {
		return 0, err
	}
	r.next++
	return kind, nil
}

// Info returns the declaration of the given kind.
func (r *Registry) Info(k Kind) (KindInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.kinds[k]
	return info, ok
}

// Lookup finds a kind by its registered name.
func (r *Registry) Lookup(name string) (KindInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.byName[name]
	if !ok {
		return KindInfo{}, false
	}
	return r.kinds[k], true
}

// IsSubclass reports whether k is parent or derives from it.
func (r *Registry) IsSubclass(k, parent Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for k != 0 {
		if k == parent {
			return true
		}
		info, ok := r.kinds[k]
		if !ok {
			return false
		}
		k = info.Parent
	}
	return false
}

// Fields returns the structured fields declared by k itself.
func (r *Registry) Fields(k Kind) []FieldInfo {
	info, ok := r.Info(k)
	if !ok {
		return nil
	}
	return append([]FieldInfo(nil), info.Fields...)
}
