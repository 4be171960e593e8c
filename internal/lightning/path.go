package lightning

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
)

// Hop is one directed transfer step along a path.
type Hop struct {
	From NodeID
	To   NodeID
}

// Path is the ordered node sequence of a payment, source client first.
type Path []NodeID

// Hops returns the directed steps of the path.
func (p Path) Hops() []Hop {
	if len(p) < 2 {
		return nil
	}
	hops := make([]Hop, len(p)-1)
	for i := 0; i < len(p)-1; i++ {
		hops[i] = Hop{From: p[i], To: p[i+1]}
	}
	return hops
}

// PathRequest carries everything a path policy may look at.
type PathRequest struct {
	Source       NodeID
	Target       NodeID
	SourceRelays []NodeID // bootstrap relays of the source client
	TargetRelays []NodeID // bootstrap relays of the target client
	Relays       []NodeID // the full relay mesh
	Hops         int      // middle relays to draw
	Rand         *rand.Rand
}

// PathPolicy selects a payment path. The returned path is not guaranteed to
// be liquidity-feasible or simple.
type PathPolicy interface {
	SelectPath(req PathRequest) (Path, error)
}

var errEmptyRelaySet = errors.New("empty relay set")

// RandomWalk draws the first and last relay uniformly from the clients'
// bootstrap sets and the middle relays by a chained random walk over the mesh.
type RandomWalk struct{}

// SelectPath returns [source, first, middle..., targetRelay, target].
func (RandomWalk) SelectPath(req PathRequest) (Path, error) {
	if len(req.SourceRelays) == 0 || len(req.TargetRelays) == 0 || len(req.Relays) == 0 {
		return nil, errEmptyRelaySet
	}

	first := req.SourceRelays[req.Rand.IntN(len(req.SourceRelays))]
	targetRelay := req.TargetRelays[req.Rand.IntN(len(req.TargetRelays))]

	middle := walkMiddleRelays(req.Rand, req.Relays, first, req.Hops)
	middle = trimTrailingTarget(middle, targetRelay)

	return assemblePath(req.Source, first, middle, targetRelay, req.Target), nil
}

// walkMiddleRelays draws hops relays, each uniformly from relays excluding
// the immediately preceding one, starting after start. Non-adjacent repeats
// are allowed.
func walkMiddleRelays(r *rand.Rand, relays []NodeID, start NodeID, hops int) []NodeID {
	if hops <= 0 {
		return nil
	}

	middle := make([]NodeID, 0, hops)
	prev := start
	for i := 0; i < hops; i++ {
		next := drawExcluding(r, relays, prev)
		middle = append(middle, next)
		prev = next
	}
	return middle
}

// drawExcluding samples uniformly from relays without the excluded handle.
// A single-element set that only holds the excluded handle returns it.
func drawExcluding(r *rand.Rand, relays []NodeID, excluded NodeID) NodeID {
	pos := slices.Index(relays, excluded)
	if pos < 0 || len(relays) == 1 {
		return relays[r.IntN(len(relays))]
	}

	idx := r.IntN(len(relays) - 1)
	if idx >= pos {
		idx++
	}
	return relays[idx]
}

// trimTrailingTarget drops a trailing middle relay equal to targetRelay, so
// the path does not step from a relay to itself. At least one middle relay
// is always kept.
func trimTrailingTarget(middle []NodeID, targetRelay NodeID) []NodeID {
	for len(middle) > 1 && middle[len(middle)-1] == targetRelay {
		middle = middle[:len(middle)-1]
	}
	return middle
}

// assemblePath joins the path segments, collapsing an adjacent repeat of the
// target relay left when the single kept middle relay equals it.
func assemblePath(source, first NodeID, middle []NodeID, targetRelay, target NodeID) Path {
	path := make(Path, 0, len(middle)+4)
	path = append(path, source, first)
	path = append(path, middle...)
	if path[len(path)-1] != targetRelay {
		path = append(path, targetRelay)
	}
	return append(path, target)
}

// DefaultUntrimmedAttempts bounds UntrimmedWalk redraws.
const DefaultUntrimmedAttempts = 64

// UntrimmedWalk redraws RandomWalk paths until one keeps all Hops middle
// relays, so every payment crosses exactly Hops+2 fee-bearing relay hops.
type UntrimmedWalk struct {
	MaxAttempts int // zero means DefaultUntrimmedAttempts
}

// SelectPath returns a RandomWalk path of full length.
func (w UntrimmedWalk) SelectPath(req PathRequest) (Path, error) {
	attempts := w.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultUntrimmedAttempts
	}

	for i := 0; i < attempts; i++ {
		path, err := RandomWalk{}.SelectPath(req)
		if err != nil {
			return nil, err
		}
		if len(path) == req.Hops+4 {
			return path, nil
		}
	}
	return nil, fmt.Errorf("%w after %d attempts", ErrNoUntrimmedPath, attempts)
}

var (
	_ PathPolicy = RandomWalk{}
	_ PathPolicy = UntrimmedWalk{}
)
