package srs

import (
	"fmt"
	"math/rand"
	"time"
)

// Weights is the parameter vector of the decaying-memory model. The values
// follow the published FSRS v6 parameter set: w[0..3] are the initial
// stabilities per first rating, w[4..7] shape the difficulty update,
// w[8..10] the recall stability gain, w[11..14] the post-lapse stability,
// w[15] and w[16] the hard penalty and easy bonus, w[17..19] the same-day
// review behavior, and w[20] the decay exponent.
type Weights [21]float64

// DefaultWeights is the published FSRS v6 default parameter set.
var DefaultWeights = Weights{
	0.212, 1.2931, 2.3065, 8.2956,
	6.4133, 0.8334, 3.0194, 0.001,
	1.8722, 0.1666, 0.796, 1.4835,
	0.0614, 0.2629, 1.6483, 0.6014,
	1.8729, 0.5425, 0.0912, 0.0658,
	0.1542,
}

// weightLowerBounds and weightUpperBounds delimit the valid range for each weight.
var (
	weightLowerBounds = Weights{
		0.001, 0.001, 0.001, 0.001,
		1.0, 0.001, 0.001, 0.001,
		0.0, 0.0, 0.001, 0.001,
		0.001, 0.001, 0.0, 0.0,
		1.0, 0.0, 0.0, 0.0,
		0.1,
	}
	weightUpperBounds = Weights{
		100.0, 100.0, 100.0, 100.0,
		10.0, 4.0, 4.0, 0.75,
		4.5, 0.8, 3.5, 5.0,
		0.25, 0.9, 4.0, 1.0,
		6.0, 2.0, 2.0, 0.8,
		0.8,
	}
)

// Validate checks that every weight lies within its allowed bounds.
func (w Weights) Validate() error {
	for i := range w {
		if w[i] < weightLowerBounds[i] || w[i] > weightUpperBounds[i] {
			return fmt.Errorf("%w: w[%d] = %f, bounds [%f, %f]",
				ErrInvalidParams, i, w[i], weightLowerBounds[i], weightUpperBounds[i])
		}
	}
	return nil
}

// Default scheduling knobs.
const (
	DefaultDesiredRetention = 0.9
	DefaultMinInterval      = 1     // days
	DefaultMaxInterval      = 36500 // days
	DefaultFuzzFactor       = 0.05
)

// Params defines all configurable parameters for the scheduling engine.
// A Params value is passed explicitly into the scheduler rather than read
// from ambient state, so the engine stays a pure, testable function.
type Params struct {
	// Weights of the memory model. Zero value -> DefaultWeights.
	Weights Weights

	// DesiredRetention is the target recall probability the scheduler aims
	// for when choosing the next interval. Zero -> 0.9.
	DesiredRetention float64

	// MinInterval and MaxInterval bound day-granularity intervals.
	// Zero -> 1 and 36500.
	MinInterval int
	MaxInterval int

	// LearningSteps and RelearningSteps are the short-duration step ladders
	// walked before (re)entering the Review state. Nil -> defaults
	// ([1m, 10m] and [10m]); explicitly empty ladders are honored and cause
	// immediate graduation.
	LearningSteps   []time.Duration
	RelearningSteps []time.Duration

	// FuzzFactor is the fractional jitter applied to day-granularity
	// intervals. Zero -> 0.05; negative disables fuzzing.
	FuzzFactor float64

	// Rand is the random source used for interval fuzz. Nil -> a source
	// seeded from the wall clock. Inject a seeded source for deterministic
	// scheduling in tests.
	Rand *rand.Rand
}

// NewDefaultParams returns a Params with every knob at its default value.
func NewDefaultParams() Params {
	return Params{
		Weights:          DefaultWeights,
		DesiredRetention: DefaultDesiredRetention,
		MinInterval:      DefaultMinInterval,
		MaxInterval:      DefaultMaxInterval,
		LearningSteps:    []time.Duration{time.Minute, 10 * time.Minute},
		RelearningSteps:  []time.Duration{10 * time.Minute},
		FuzzFactor:       DefaultFuzzFactor,
	}
}

// withDefaults fills zero-valued fields and validates the result.
func (p Params) withDefaults() (Params, error) {
	if p.Weights == (Weights{}) {
		p.Weights = DefaultWeights
	}
	if err := p.Weights.Validate(); err != nil {
		return Params{}, err
	}

	if p.DesiredRetention == 0 {
		p.DesiredRetention = DefaultDesiredRetention
	}
	if p.DesiredRetention <= 0 || p.DesiredRetention > 1 {
		return Params{}, fmt.Errorf("%w: desired retention %f out of range (0, 1]",
			ErrInvalidParams, p.DesiredRetention)
	}

	if p.MinInterval == 0 {
		p.MinInterval = DefaultMinInterval
	}
	if p.MaxInterval == 0 {
		p.MaxInterval = DefaultMaxInterval
	}
	if p.MinInterval < 1 || p.MaxInterval < p.MinInterval {
		return Params{}, fmt.Errorf("%w: interval bounds [%d, %d]",
			ErrInvalidParams, p.MinInterval, p.MaxInterval)
	}

	if p.LearningSteps == nil {
		p.LearningSteps = []time.Duration{time.Minute, 10 * time.Minute}
	}
	if p.RelearningSteps == nil {
		p.RelearningSteps = []time.Duration{10 * time.Minute}
	}

	if p.FuzzFactor == 0 {
		p.FuzzFactor = DefaultFuzzFactor
	}
	if p.FuzzFactor >= 1 {
		return Params{}, fmt.Errorf("%w: fuzz factor %f must be below 1",
			ErrInvalidParams, p.FuzzFactor)
	}

	if p.Rand == nil {
		p.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return p, nil
}
