package scene

import (
	"errors"
	"fmt"
)

// Registry errors.
var (
	ErrDuplicateInstance = errors.New("scene: instance name already registered")
	ErrUnknownInstance   = errors.New("scene: no such instance")
)

// Registry owns instances in insertion order. It is not safe for concurrent
// use.
type Registry struct {
	order  []*Instance
	byName map[string]*Instance
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Instance)}
}

// Add registers inst under its name.
func (r *Registry) Add(inst *Instance) error {
	if _, ok := r.byName[inst.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateInstance, inst.Name())
	}
	r.byName[inst.Name()] = inst
	r.order = append(r.order, inst)
	return nil
}

// Remove drops the named instance.
func (r *Registry) Remove(name string) error {
	if _, ok := r.byName[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownInstance, name)
	}
	delete(r.byName, name)
	for i, inst := range r.order {
		if inst.Name() == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the named instance.
func (r *Registry) Get(name string) (*Instance, bool) {
	inst, ok := r.byName[name]
	return inst, ok
}

// Each calls fn for every instance in insertion order until fn returns
// false.
func (r *Registry) Each(fn func(*Instance) bool) {
	for _, inst := range r.order {
		if !fn(inst) {
			return
		}
	}
}

// Len returns the number of instances.
func (r *Registry) Len() int {
	return len(r.order)
}

// Models returns the distinct models in first-use order.
func (r *Registry) Models() []*Model {
	seen := make(map[*Model]bool)
	var out []*Model
	for _, inst := range r.order {
		if !seen[inst.model] {
			seen[inst.model] = true
			out = append(out, inst.model)
		}
	}
	return out
}
