package policy

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Mutation controls how offspring brains differ from their parent.
type Mutation struct {
	Rate     float64 // probability each weight mutates
	Sigma    float64 // stddev of a normal perturbation
	BigRate  float64 // probability a mutation is large
	BigSigma float64 // stddev of a large perturbation
}

// DefaultMutation is a sparse mutation with rare large jumps.
var DefaultMutation = Mutation{Rate: 0.05, Sigma: 0.08, BigRate: 0.01, BigSigma: 0.4}

// Brain is a feedforward network with one tanh hidden layer and two outputs,
// turn and throttle. Offspring inherit a mutated copy.
type Brain struct {
	W1 *mat.Dense    // hidden x inputs
	B1 *mat.VecDense // hidden
	W2 *mat.Dense    // 2 x hidden
	B2 *mat.VecDense // 2

	Mutation Mutation

	in     *mat.VecDense
	hidden *mat.VecDense
	out    *mat.VecDense
}

// NewBrain creates a Xavier-initialized network for observations of length
// inputs.
func NewBrain(rng *rand.Rand, inputs, hidden int) *Brain {
	scale1 := math.Sqrt(2.0 / float64(inputs))
	scale2 := math.Sqrt(2.0 / float64(hidden))

	w1 := make([]float64, hidden*inputs)
	for i := range w1 {
		w1[i] = rng.NormFloat64() * scale1
	}
	w2 := make([]float64, 2*hidden)
	for i := range w2 {
		w2[i] = rng.NormFloat64() * scale2
	}

	b := &Brain{
		W1:       mat.NewDense(hidden, inputs, w1),
		B1:       mat.NewVecDense(hidden, nil),
		W2:       mat.NewDense(2, hidden, w2),
		B2:       mat.NewVecDense(2, nil),
		Mutation: DefaultMutation,
	}
	b.alloc()
	return b
}

func (b *Brain) alloc() {
	hidden, inputs := b.W1.Dims()
	b.in = mat.NewVecDense(inputs, nil)
	b.hidden = mat.NewVecDense(hidden, nil)
	b.out = mat.NewVecDense(2, nil)
}

// Inputs returns the expected observation length.
func (b *Brain) Inputs() int {
	_, c := b.W1.Dims()
	return c
}

// Act runs the network. Missing inputs read as zero and extra inputs are
// ignored.
func (b *Brain) Act(obs []float32) Action {
	in := b.in.RawVector().Data
	for i := range in {
		in[i] = 0
		if i < len(obs) {
			in[i] = float64(obs[i])
		}
	}

	b.hidden.MulVec(b.W1, b.in)
	b.hidden.AddVec(b.hidden, b.B1)
	h := b.hidden.RawVector().Data
	for i := range h {
		h[i] = math.Tanh(h[i])
	}

	b.out.MulVec(b.W2, b.hidden)
	b.out.AddVec(b.out, b.B2)

	// raw 0 maps to half throttle
	return Action{
		Turn:     float32(math.Tanh(b.out.AtVec(0))),
		Throttle: float32(b.out.AtVec(1)*0.5 + 0.5),
	}.Clamp()
}

// Clone returns a deep copy.
func (b *Brain) Clone() *Brain {
	c := &Brain{
		W1:       mat.DenseCopyOf(b.W1),
		B1:       mat.VecDenseCopyOf(b.B1),
		W2:       mat.DenseCopyOf(b.W2),
		B2:       mat.VecDenseCopyOf(b.B2),
		Mutation: b.Mutation,
	}
	c.alloc()
	return c
}

// Mutate perturbs weights and biases in place and returns the mean absolute
// delta of the applied mutations. Biases mutate at half the weight rate.
func (b *Brain) Mutate(rng *rand.Rand) float64 {
	m := b.Mutation
	var total float64
	var count int

	perturb := func(data []float64, rate float64) {
		for i := range data {
			if rng.Float64() >= rate {
				continue
			}
			sigma := m.Sigma
			if rng.Float64() < m.BigRate {
				sigma = m.BigSigma
			}
			d := rng.NormFloat64() * sigma
			data[i] += d
			total += math.Abs(d)
			count++
		}
	}
	perturb(b.W1.RawMatrix().Data, m.Rate)
	perturb(b.B1.RawVector().Data, m.Rate*0.5)
	perturb(b.W2.RawMatrix().Data, m.Rate)
	perturb(b.B2.RawVector().Data, m.Rate*0.5)

	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// Inherit implements Heritable.
func (b *Brain) Inherit(rng *rand.Rand) Policy {
	c := b.Clone()
	c.Mutate(rng)
	return c
}

// Heritable is a policy that offspring receive a copy of.
type Heritable interface {
	Policy
	Inherit(rng *rand.Rand) Policy
}
