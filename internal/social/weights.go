package social

// WeightPolicy decides the weight delta contributed by one inferred
// relationship change. The default is a fixed +1 per interaction with no
// decay; anything smarter (per-reason weighting, time decay) plugs in here
// without touching inference or the store.
type WeightPolicy interface {
	Delta(reason Reason) float64
}

// FixedWeight adds the same increment for every reason.
type FixedWeight struct {
	Increment float64
}

// Delta implements WeightPolicy.
func (w FixedWeight) Delta(Reason) float64 {
	return w.Increment
}

// DefaultWeights returns the fixed +1 policy.
func DefaultWeights() WeightPolicy {
	return FixedWeight{Increment: 1}
}
