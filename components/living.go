package components

// LivingBeing is the mutable trait record of one agent instance.
// Bounds and reproduction settings come from the species and are fixed
// for the lifetime of an acquisition; Life, Satiety and Speed change.
type LivingBeing struct {
	Life    float32
	Satiety float32
	Speed   float32
	Age     float32 // seconds since acquisition

	MinLife               float32
	MaxLife               float32
	MaxSatiety            float32
	ReproductionThreshold float32
	ReproductionEnabled   bool
	EvolutionEnabled      bool
}

// Dead reports whether life has reached the species minimum.
func (lb *LivingBeing) Dead() bool {
	return lb.Life <= lb.MinLife
}

// AddLife changes life by delta, clamped to [MinLife, MaxLife].
func (lb *LivingBeing) AddLife(delta float32) {
	lb.Life = clamp(lb.Life+delta, lb.MinLife, lb.MaxLife)
}

// Feed adds satiety, capped at MaxSatiety.
func (lb *LivingBeing) Feed(amount float32) {
	lb.Satiety = clamp(lb.Satiety+amount, 0, lb.MaxSatiety)
}

// Metabolize advances hunger by dt seconds. Satiety drains first; once it is
// empty life drains instead. Returns true when the being died this call.
func (lb *LivingBeing) Metabolize(dt, hungerRate, starveRate float32) bool {
	lb.Age += dt
	if lb.Dead() {
		return false
	}

	need := hungerRate * dt
	if lb.Satiety >= need {
		lb.Satiety -= need
		return false
	}

	// Fraction of the tick spent without food
	starving := 1 - lb.Satiety/need
	lb.Satiety = 0
	lb.AddLife(-starveRate * dt * starving)
	return lb.Dead()
}

// Fertile reports whether this being may take part in reproduction.
func (lb *LivingBeing) Fertile() bool {
	return lb.ReproductionEnabled && lb.Life > lb.ReproductionThreshold
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Episode is the learning-loop bookkeeping of an agent for its current acquisition.
type Episode struct {
	Reward            float32 // accumulated since acquisition
	Steps             int32
	StartTick         int32
	EatCount          int
	ReproductionCount int
	Generation        int
}
