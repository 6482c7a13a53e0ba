package agent

import "github.com/pthm-cable/evol/metrics"

// instruments are the per-species metric handles.
type instruments struct {
	eat          metrics.Counter
	reproduction metrics.Counter

	cumulativeReward  metrics.Gauge
	lifeGain          metrics.Gauge
	rewardOnAct       metrics.Gauge
	rewardOnEat       metrics.Gauge
	rewardOnReproduce metrics.Gauge
	speed             metrics.Gauge
}

// register gets or creates the species metrics. Safe to call on every
// acquisition: the sink returns existing handles for known names.
func register(sink metrics.Sink, sp *Species) *instruments {
	s, n := sp.MetricSuffix, sp.displayName()
	return &instruments{
		eat:               sink.Counter("eat"+s, "How many times "+n+" has eaten"),
		reproduction:      sink.Counter("reproduction"+s, "How many times "+n+" has reproduced"),
		cumulativeReward:  sink.Gauge("cumulativeReward"+s, "Cumulative reward of "+n),
		lifeGain:          sink.Gauge("lifeGain"+s, "Life gain on eat of "+n),
		rewardOnAct:       sink.Gauge("rewardOnAct"+s, "Reward on act "+n),
		rewardOnEat:       sink.Gauge("rewardOnEat"+s, "Reward on eat "+n),
		rewardOnReproduce: sink.Gauge("rewardOnReproduce"+s, "Reward on reproduce "+n),
		speed:             sink.Gauge("speed"+s, "Speed "+n),
	}
}
