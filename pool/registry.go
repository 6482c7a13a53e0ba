package pool

import "sync"

// Registry owns pools and resolves the pool ids instances carry.
// Instances only ever hold the id, so a pool and its instances never keep
// each other alive.
type Registry[H comparable] struct {
	mu    sync.RWMutex
	pools []*Pool[H]
	names map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry[H comparable]() *Registry[H] {
	return &Registry[H]{names: make(map[string]int)}
}

// Create registers a new pool for the named prefab. Ids are assigned in
// creation order starting at 1, so the zero id never resolves.
func (r *Registry[H]) Create(name string, factory Factory[H], reset func(H)) *Pool[H] {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := New(len(r.pools)+1, name, factory, reset)
	r.pools = append(r.pools, p)
	r.names[name] = p.id
	return p
}

// Lookup resolves a pool id.
func (r *Registry[H]) Lookup(id int) (*Pool[H], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id < 1 || id > len(r.pools) {
		return nil, false
	}
	return r.pools[id-1], true
}

// ByName resolves a pool by prefab name.
func (r *Registry[H]) ByName(name string) (*Pool[H], bool) {
	r.mu.RLock()
	id, ok := r.names[name]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return r.Lookup(id)
}

// All returns the registered pools in creation order.
func (r *Registry[H]) All() []*Pool[H] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Pool[H], len(r.pools))
	copy(out, r.pools)
	return out
}
