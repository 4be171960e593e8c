// Package sampling draws transaction values and client pairs for experiment runs.
package sampling

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

// Sampler kinds.
const (
	KindUniform   = "uniform"
	KindLogNormal = "lognormal"
)

// Log-normal defaults.
const (
	DefaultLogNormalMean       = 10.0
	DefaultLogNormalSigma      = 0.4
	DefaultLogNormalDesiredMin = 100.0
	DefaultLogNormalDesiredMax = 3.5e6
)

var (
	// ErrUnknownKind is returned for an unrecognized sampler kind.
	ErrUnknownKind = errors.New("unknown sampler kind")
	// ErrInvalidRange is returned when a uniform range is inverted or not finite.
	ErrInvalidRange = errors.New("invalid value range")
	// ErrTooFewItems is returned when a pair cannot be drawn.
	ErrTooFewItems = errors.New("need at least 2 items to draw a pair")
)

// ValueSampler produces transaction values.
type ValueSampler interface {
	Sample(r *rand.Rand) float64
}

// UniformSampler draws values uniformly from [Min, Max).
type UniformSampler struct {
	Min float64
	Max float64
}

// Sample returns a uniform value in [Min, Max).
func (u UniformSampler) Sample(r *rand.Rand) float64 {
	return u.Min + r.Float64()*(u.Max-u.Min)
}

// Validate checks that the range is finite and ordered.
func (u UniformSampler) Validate() error {
	if math.IsNaN(u.Min) || math.IsNaN(u.Max) || math.IsInf(u.Min, 0) || math.IsInf(u.Max, 0) {
		return fmt.Errorf("%w: [%v, %v)", ErrInvalidRange, u.Min, u.Max)
	}
	if u.Min < 0 || u.Max < u.Min {
		return fmt.Errorf("%w: [%v, %v)", ErrInvalidRange, u.Min, u.Max)
	}
	return nil
}

// LogNormalParams shapes a LogNormalSampler.
type LogNormalParams struct {
	Mean       float64 // mean of the underlying normal
	Sigma      float64 // stddev of the underlying normal
	DesiredMin float64 // smallest rescaled value
	DesiredMax float64 // width of the rescaled range
}

// DefaultLogNormalParams returns the heavy-tailed payment distribution used
// by sweeps.
func DefaultLogNormalParams() LogNormalParams {
	return LogNormalParams{
		Mean:       DefaultLogNormalMean,
		Sigma:      DefaultLogNormalSigma,
		DesiredMin: DefaultLogNormalDesiredMin,
		DesiredMax: DefaultLogNormalDesiredMax,
	}
}

// LogNormalSampler serves a pre-drawn, rescaled log-normal sample in order,
// wrapping around at the end.
type LogNormalSampler struct {
	samples []float64
	next    int
}

// NewLogNormalSampler draws size log-normal values and rescales them onto
// [DesiredMin, DesiredMin+DesiredMax].
func NewLogNormalSampler(r *rand.Rand, size int, p LogNormalParams) (*LogNormalSampler, error) {
	if size < 1 {
		return nil, fmt.Errorf("log-normal sample size must be positive, got %d", size)
	}
	if p.Sigma < 0 {
		return nil, fmt.Errorf("log-normal sigma must not be negative, got %v", p.Sigma)
	}

	samples := make([]float64, size)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range samples {
		x := math.Exp(p.Mean + p.Sigma*r.NormFloat64())
		samples[i] = x
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}

	span := hi - lo
	for i, x := range samples {
		scaled := 0.0
		if span > 0 {
			scaled = (x - lo) / span * p.DesiredMax
		}
		samples[i] = scaled + p.DesiredMin
	}

	return &LogNormalSampler{samples: samples}, nil
}

// Sample returns the next pre-drawn value. r is unused.
func (s *LogNormalSampler) Sample(*rand.Rand) float64 {
	v := s.samples[s.next]
	s.next = (s.next + 1) % len(s.samples)
	return v
}

// Samples returns a copy of the rescaled sample.
func (s *LogNormalSampler) Samples() []float64 {
	return append([]float64(nil), s.samples...)
}

// Config selects and shapes a value sampler.
type Config struct {
	Kind string  // "uniform" | "lognormal"
	Min  float64 // uniform lower bound
	Max  float64 // uniform upper bound
	Size int     // log-normal pre-drawn sample size
}

// String describes the distribution, e.g. "uniform[1,10)".
func (c Config) String() string {
	if c.Kind == KindLogNormal {
		return fmt.Sprintf("lognormal(n=%d)", c.Size)
	}
	return fmt.Sprintf("uniform[%g,%g)", c.Min, c.Max)
}

// New builds the sampler described by cfg.
func New(r *rand.Rand, cfg Config) (ValueSampler, error) {
	switch cfg.Kind {
	case KindUniform, "":
		u := UniformSampler{Min: cfg.Min, Max: cfg.Max}
		if err := u.Validate(); err != nil {
			return nil, err
		}
		return u, nil
	case KindLogNormal:
		s, err := NewLogNormalSampler(r, cfg.Size, DefaultLogNormalParams())
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
}

// Pair draws two distinct elements of items uniformly without replacement.
func Pair[T any](r *rand.Rand, items []T) (T, T, error) {
	var zero T
	if len(items) < 2 {
		return zero, zero, fmt.Errorf("%w: got %d", ErrTooFewItems, len(items))
	}

	i := r.IntN(len(items))
	j := r.IntN(len(items) - 1)
	if j >= i {
		j++
	}
	return items[i], items[j], nil
}

var (
	_ ValueSampler = UniformSampler{}
	_ ValueSampler = (*LogNormalSampler)(nil)
)
