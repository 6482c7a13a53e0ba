package agent

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/evol/components"
	"github.com/pthm-cable/evol/metrics"
	"github.com/pthm-cable/evol/perception"
	"github.com/pthm-cable/evol/policy"
	"github.com/pthm-cable/evol/pool"
)

var (
	// ErrUnknownSpecies is returned when a kind has no configured species.
	ErrUnknownSpecies = errors.New("unknown species")

	// ErrCapacity is returned by a pool factory once the species capacity is reached.
	ErrCapacity = errors.New("species capacity reached")

	// ErrNoPool is returned when an instance's pool id does not resolve.
	ErrNoPool = errors.New("instance has no pool")
)

// Termination is posted when an episode ends. The owner of the pool
// lifecycle drains these and releases each entity exactly once.
type Termination struct {
	Entity   ecs.Entity
	ID       uint32
	Kind     components.Kind
	PoolID   int
	Reason   components.Transition
	Position components.Position
	Episode  components.Episode
	Life     float32
	Speed    float32
	Age      float32
	Tick     int32
}

// Birth is posted for each offspring created by reproduction.
type Birth struct {
	Child      ecs.Entity
	ChildID    uint32
	ParentID   uint32
	PartnerID  uint32
	Kind       components.Kind
	Generation int
	Speed      float32
	Tick       int32
}

// SensorFunc builds the perception adapter for one observer.
type SensorFunc func(e ecs.Entity, pos components.Position, rot components.Rotation) perception.Adapter

// Options configures a Controller. Zero values are usable.
type Options struct {
	Sink   metrics.Sink // nil uses metrics.Nop
	Rand   *rand.Rand   // nil uses a fixed seed
	Sensor SensorFunc   // nil makes every ray a miss
}

type pairKey struct {
	lo, hi ecs.Entity
}

func makePair(a, b ecs.Entity) pairKey {
	if b.ID() < a.ID() {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// pairEvent is what a pair of entities already did this step.
type pairEvent uint8

const (
	pairReproduced pairEvent = iota + 1
	pairPredation
)

// Controller runs the agent state machine for every pooled instance in one world.
// It is not safe for concurrent use; the simulation drives it from one goroutine.
type Controller struct {
	world   *ecs.World
	species []Species
	pools   *pool.Registry[ecs.Entity]
	sink    metrics.Sink
	rng     *rand.Rand
	sensor  SensorFunc

	agents *ecs.Map7[
		components.Position,
		components.Velocity,
		components.Rotation,
		components.Body,
		components.Identity,
		components.LivingBeing,
		components.Episode,
	]
	passive *ecs.Map3[components.Position, components.Body, components.Identity]

	posMap *ecs.Map[components.Position]
	velMap *ecs.Map[components.Velocity]
	rotMap *ecs.Map[components.Rotation]
	idMap  *ecs.Map[components.Identity]
	lbMap  *ecs.Map[components.LivingBeing]
	epMap  *ecs.Map[components.Episode]

	inst   map[components.Kind]*instruments
	ledger map[pairKey]pairEvent
	nextID uint32
	tick   int32

	terminations []Termination
	births       []Birth
}

// NewController creates a controller and one pool per species, registered in
// species order so pool ids are Kind+1.
func NewController(world *ecs.World, species []Species, opts Options) *Controller {
	c := &Controller{
		world:   world,
		species: species,
		pools:   pool.NewRegistry[ecs.Entity](),
		sink:    opts.Sink,
		rng:     opts.Rand,
		sensor:  opts.Sensor,
		agents: ecs.NewMap7[
			components.Position,
			components.Velocity,
			components.Rotation,
			components.Body,
			components.Identity,
			components.LivingBeing,
			components.Episode,
		](world),
		passive: ecs.NewMap3[components.Position, components.Body, components.Identity](world),
		posMap:  ecs.NewMap[components.Position](world),
		velMap:  ecs.NewMap[components.Velocity](world),
		rotMap:  ecs.NewMap[components.Rotation](world),
		idMap:   ecs.NewMap[components.Identity](world),
		lbMap:   ecs.NewMap[components.LivingBeing](world),
		epMap:   ecs.NewMap[components.Episode](world),
		inst:    make(map[components.Kind]*instruments),
		ledger:  make(map[pairKey]pairEvent),
	}
	if c.sink == nil {
		c.sink = metrics.Nop
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(1))
	}
	for i := range species {
		c.pools.Create(species[i].Label, c.factory(species[i].Kind), c.reset)
	}
	return c
}

// Pools returns the pool registry.
func (c *Controller) Pools() *pool.Registry[ecs.Entity] { return c.pools }

// Species returns the species for kind, or nil.
func (c *Controller) Species(kind components.Kind) *Species {
	if int(kind) >= len(c.species) {
		return nil
	}
	return &c.species[kind]
}

// Pool returns the pool for kind.
func (c *Controller) Pool(kind components.Kind) (*pool.Pool[ecs.Entity], error) {
	p, ok := c.pools.Lookup(int(kind) + 1)
	if !ok {
		return nil, fmt.Errorf("%w: kind %d", ErrUnknownSpecies, kind)
	}
	return p, nil
}

// factory constructs parked entities for one species. Agents get the full
// component set; passive species only position, body and identity.
func (c *Controller) factory(kind components.Kind) pool.Factory[ecs.Entity] {
	return func(p *pool.Pool[ecs.Entity]) (ecs.Entity, error) {
		sp := c.Species(kind)
		if sp == nil {
			return ecs.Entity{}, fmt.Errorf("%w: kind %d", ErrUnknownSpecies, kind)
		}
		if sp.Capacity > 0 && p.Stats().Created >= sp.Capacity {
			return ecs.Entity{}, fmt.Errorf("%w: %s holds %d", ErrCapacity, p.Name(), sp.Capacity)
		}

		c.nextID++
		pos := components.Position{}
		body := components.Body{Radius: sp.Radius}
		id := components.Identity{
			ID:        c.nextID,
			Kind:      kind,
			PoolID:    p.ID(),
			Phase:     components.PhaseIdle,
			Container: p.Container(),
		}
		if !sp.Agent {
			return c.passive.NewEntity(&pos, &body, &id), nil
		}

		vel := components.Velocity{}
		rot := components.Rotation{}
		lb := sp.Defaults
		ep := components.Episode{}
		return c.agents.NewEntity(&pos, &vel, &rot, &body, &id, &lb, &ep), nil
	}
}

// reset parks an entity on release. Runs under the pool lock.
func (c *Controller) reset(e ecs.Entity) {
	id := c.identity(e)
	if id == nil {
		return
	}
	id.Phase = components.PhaseIdle
	id.Last = components.TransitionNone
	if p, ok := c.pools.Lookup(id.PoolID); ok {
		id.Container = p.Container()
	}
	*c.posMap.Get(e) = components.Position{}

	lb := c.living(e)
	if lb == nil {
		return
	}
	if sp := c.Species(id.Kind); sp != nil {
		*lb = sp.Defaults
	}
	*c.velMap.Get(e) = components.Velocity{}
	*c.rotMap.Get(e) = components.Rotation{}
	*c.epMap.Get(e) = components.Episode{}
}

// Acquire takes an instance of kind from its pool and initializes it.
// Must not be called while a query on the world is open.
func (c *Controller) Acquire(kind components.Kind) (ecs.Entity, error) {
	p, err := c.Pool(kind)
	if err != nil {
		return ecs.Entity{}, err
	}
	e, err := p.Get()
	if err != nil {
		return ecs.Entity{}, err
	}
	c.InitializeAgent(e)
	return e, nil
}

// Release returns a terminated or active instance to its pool.
func (c *Controller) Release(e ecs.Entity) error {
	id := c.identity(e)
	if id == nil {
		return fmt.Errorf("%w: entity %v", ErrNoPool, e)
	}
	p, ok := c.pools.Lookup(id.PoolID)
	if !ok {
		return fmt.Errorf("%w: entity %v pool %d", ErrNoPool, e, id.PoolID)
	}
	return p.Release(e)
}

// InitializeAgent prepares a freshly acquired instance for a new episode:
// species default traits, zeroed episode, phase Observing. Metrics are
// registered again, which returns the existing handles.
func (c *Controller) InitializeAgent(e ecs.Entity) {
	id := c.identity(e)
	if id == nil {
		slog.Warn("initialize: not a pooled instance", "entity", e)
		return
	}
	sp := c.Species(id.Kind)
	if sp == nil {
		slog.Warn("initialize: unknown species", "entity", e, "kind", id.Kind)
		return
	}

	id.Phase = components.PhaseObserving
	id.Last = components.TransitionNone
	id.Container = ""
	id.Uses++

	lb := c.living(e)
	if lb == nil {
		return
	}
	*lb = sp.Defaults
	*c.velMap.Get(e) = components.Velocity{}
	c.rotMap.Get(e).AngVel = 0
	*c.epMap.Get(e) = components.Episode{StartTick: c.tick}
	c.inst[id.Kind] = register(c.sink, sp)
}

// BeginStep starts a new simulation step: the pair ledger is cleared.
func (c *Controller) BeginStep(tick int32) {
	c.tick = tick
	clear(c.ledger)
}

// CollectObservations returns the observation vector of an agent. Its length
// is always Species.ObservationSize; nil is returned for non-agents.
func (c *Controller) CollectObservations(e ecs.Entity) []float32 {
	id := c.identity(e)
	lb := c.living(e)
	if id == nil || lb == nil {
		return nil
	}
	sp := c.Species(id.Kind)
	pos, vel, rot := c.posMap.Get(e), c.velMap.Get(e), c.rotMap.Get(e)

	var adapter perception.Adapter = perception.Ray{X: pos.X, Y: pos.Y, Heading: rot.Heading}
	if c.sensor != nil {
		adapter = c.sensor(e, *pos, *rot)
	}

	var reproduction float32
	if lb.ReproductionEnabled {
		reproduction = 1
	}
	want := perception.Size(len(sp.RayAngles), len(sp.Labels), perceptionExtras)
	rays := adapter.Perceive(sp.RayDistance, sp.RayAngles, sp.Labels, 0, 0, reproduction, lb.ReproductionThreshold)
	if len(rays) != want {
		slog.Warn("perception length mismatch", "species", sp.Name, "got", len(rays), "want", want)
	}

	obs := make([]float32, want, sp.ObservationSize())
	copy(obs, rays)
	lateral, forward := rot.Local(*vel)
	return append(obs, lateral, forward, rot.Heading, lb.Life/100)
}

// Act applies a policy action: turn scales the species max turn rate and
// throttle scales the agent's speed trait.
func (c *Controller) Act(e ecs.Entity, a policy.Action, dt float32) {
	id := c.identity(e)
	lb := c.living(e)
	if id == nil || lb == nil || id.Phase != components.PhaseObserving {
		return
	}
	sp := c.Species(id.Kind)
	a = a.Clamp()

	rot := c.rotMap.Get(e)
	rot.AngVel = a.Turn * sp.MaxTurnRate
	rot.Heading = normalizeAngle(rot.Heading + rot.AngVel*dt)

	fx, fy := rot.Forward()
	speed := a.Throttle * lb.Speed
	vel := c.velMap.Get(e)
	vel.X = fx * speed
	vel.Y = fy * speed
}

// Step advances metabolism by dt and grants the per-act reward. An agent
// whose life reaches its minimum ends its episode as starved.
func (c *Controller) Step(e ecs.Entity, dt float32) {
	id := c.identity(e)
	lb := c.living(e)
	if id == nil || lb == nil || id.Phase != components.PhaseObserving {
		return
	}
	sp := c.Species(id.Kind)
	in := c.instruments(sp)

	c.epMap.Get(e).Steps++
	lb.Metabolize(dt, sp.HungerRate, sp.StarveRate)
	in.speed.Set(float64(lb.Speed))

	if lb.Dead() {
		c.AddReward(e, sp.Rewards.OnStarve)
		c.Done(e, components.TransitionStarved)
		return
	}
	in.rewardOnAct.Set(float64(sp.Rewards.OnAct))
	c.AddReward(e, sp.Rewards.OnAct)
}

// AddReward accumulates into the agent's episode reward.
func (c *Controller) AddReward(e ecs.Entity, r float32) {
	id := c.identity(e)
	if id == nil || !c.epMap.Has(e) {
		return
	}
	ep := c.epMap.Get(e)
	ep.Reward += r
	if sp := c.Species(id.Kind); sp != nil {
		c.instruments(sp).cumulativeReward.Set(float64(ep.Reward))
	}
}

// Done ends the current episode of e and posts a Termination. Only the first
// call per episode has an effect.
func (c *Controller) Done(e ecs.Entity, reason components.Transition) {
	id := c.identity(e)
	if id == nil || id.Phase != components.PhaseObserving {
		return
	}
	id.Phase = components.PhaseTerminated
	id.Last = reason

	t := Termination{
		Entity:   e,
		ID:       id.ID,
		Kind:     id.Kind,
		PoolID:   id.PoolID,
		Reason:   reason,
		Position: *c.posMap.Get(e),
		Tick:     c.tick,
	}
	if lb := c.living(e); lb != nil {
		t.Life = lb.Life
		t.Speed = lb.Speed
		t.Age = lb.Age
		t.Episode = *c.epMap.Get(e)
	}
	c.terminations = append(c.terminations, t)
}

// Terminations drains the termination outbox.
func (c *Controller) Terminations() []Termination {
	out := c.terminations
	c.terminations = nil
	return out
}

// Births drains the birth outbox.
func (c *Controller) Births() []Birth {
	out := c.births
	c.births = nil
	return out
}

// Kind returns the species kind of e.
func (c *Controller) Kind(e ecs.Entity) (components.Kind, bool) {
	id := c.identity(e)
	if id == nil {
		return 0, false
	}
	return id.Kind, true
}

func (c *Controller) instruments(sp *Species) *instruments {
	in, ok := c.inst[sp.Kind]
	if !ok {
		in = register(c.sink, sp)
		c.inst[sp.Kind] = in
	}
	return in
}

// identity returns nil for entities that are not pooled instances.
func (c *Controller) identity(e ecs.Entity) *components.Identity {
	if !c.world.Alive(e) || !c.idMap.Has(e) {
		return nil
	}
	return c.idMap.Get(e)
}

// living returns nil for entities without a LivingBeing.
func (c *Controller) living(e ecs.Entity) *components.LivingBeing {
	if !c.world.Alive(e) || !c.lbMap.Has(e) {
		return nil
	}
	return c.lbMap.Get(e)
}

// normalizeAngle wraps angle to [-pi, pi]. Non-finite angles become 0.
func normalizeAngle(a float32) float32 {
	r := math.Remainder(float64(a), 2*math.Pi)
	if math.IsNaN(r) {
		return 0
	}
	return float32(r)
}
