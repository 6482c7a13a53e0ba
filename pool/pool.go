// Package pool recycles simulation instances.
//
// A Pool partitions every handle it ever created into two sets: available
// (parked, FIFO by release order) and in use. Handles are never destroyed;
// releasing one resets it through the pool's reset hook and parks it until
// the next Get.
package pool

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotInUse is reported when releasing a handle the pool has not handed out.
	ErrNotInUse = errors.New("handle not in use")

	// ErrConstruct wraps factory failures. The simulation cannot continue without instances.
	ErrConstruct = errors.New("instance construction failed")
)

// LifecycleError describes a rejected release.
type LifecycleError struct {
	Pool   string
	Handle any
	Err    error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("pool %s: release %v: %v", e.Pool, e.Handle, e.Err)
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// Factory constructs a new instance for p. It receives the pool so the
// instance can record p.ID() as its back-reference.
type Factory[H comparable] func(p *Pool[H]) (H, error)

// Stats is a point-in-time view of a pool's partition.
type Stats struct {
	Available int
	InUse     int
	Created   int
}

// Pool hands out reusable instances of one prefab.
// A single mutex guards available and inUse together.
type Pool[H comparable] struct {
	id      int
	name    string
	factory Factory[H]
	reset   func(H)

	mu        sync.Mutex
	available []H
	inUse     map[H]struct{}
	known     map[H]struct{} // every handle ever constructed
	created   int
}

// New creates an empty pool. reset is called on every release while the pool
// lock is held, so it must not call back into the pool. reset may be nil.
func New[H comparable](id int, name string, factory Factory[H], reset func(H)) *Pool[H] {
	return &Pool[H]{
		id:      id,
		name:    name,
		factory: factory,
		reset:   reset,
		inUse:   make(map[H]struct{}),
		known:   make(map[H]struct{}),
	}
}

// ID returns the pool's registry id.
func (p *Pool[H]) ID() int { return p.id }

// Name returns the prefab name the pool was created for.
func (p *Pool[H]) Name() string { return p.name }

// Container returns the name parked instances are grouped under.
func (p *Pool[H]) Container() string { return "Pool_" + p.name }

// Get returns the oldest released instance, or constructs a new one when
// none is available. The returned handle is in use.
func (p *Pool[H]) Get() (H, error) {
	p.mu.Lock()
	if len(p.available) > 0 {
		h := p.available[0]
		var zero H
		p.available[0] = zero
		p.available = p.available[1:]
		p.inUse[h] = struct{}{}
		p.mu.Unlock()
		return h, nil
	}
	p.mu.Unlock()

	h, err := p.construct()
	if err != nil {
		var zero H
		return zero, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.adopt(h); err != nil {
		var zero H
		return zero, err
	}
	p.inUse[h] = struct{}{}
	return h, nil
}

// Prewarm constructs n instances straight into the available set.
func (p *Pool[H]) Prewarm(n int) error {
	for i := 0; i < n; i++ {
		h, err := p.construct()
		if err != nil {
			return err
		}
		p.mu.Lock()
		if err := p.adopt(h); err != nil {
			p.mu.Unlock()
			return err
		}
		if p.reset != nil {
			p.reset(h)
		}
		p.available = append(p.available, h)
		p.mu.Unlock()
	}
	return nil
}

// Release returns h to the pool. Releasing a handle that is not in use is a
// lifecycle violation: nothing changes and a *LifecycleError is returned.
func (p *Pool[H]) Release(h H) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.inUse[h]; !ok {
		return &LifecycleError{Pool: p.name, Handle: h, Err: ErrNotInUse}
	}
	delete(p.inUse, h)
	if p.reset != nil {
		p.reset(h)
	}
	p.available = append(p.available, h)
	return nil
}

// InUse reports whether h is currently handed out.
func (p *Pool[H]) InUse(h H) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.inUse[h]
	return ok
}

// Available returns a copy of the available handles in reuse order.
func (p *Pool[H]) Available() []H {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]H, len(p.available))
	copy(out, p.available)
	return out
}

// Stats returns the current partition sizes.
func (p *Pool[H]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Available: len(p.available), InUse: len(p.inUse), Created: p.created}
}

func (p *Pool[H]) String() string {
	s := p.Stats()
	return fmt.Sprintf("%s: available=%d inUse=%d created=%d", p.Container(), s.Available, s.InUse, s.Created)
}

// adopt registers a freshly constructed handle. Caller holds p.mu.
func (p *Pool[H]) adopt(h H) error {
	if _, dup := p.known[h]; dup {
		return fmt.Errorf("pool %s: %w: factory returned existing handle %v", p.name, ErrConstruct, h)
	}
	p.known[h] = struct{}{}
	p.created++
	return nil
}

func (p *Pool[H]) construct() (H, error) {
	if p.factory == nil {
		var zero H
		return zero, fmt.Errorf("pool %s: %w: no factory", p.name, ErrConstruct)
	}
	h, err := p.factory(p)
	if err != nil {
		var zero H
		return zero, fmt.Errorf("pool %s: %w: %w", p.name, ErrConstruct, err)
	}
	return h, nil
}
