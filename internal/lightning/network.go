// Package lightning implements the payment-channel network engine: a relay
// mesh with bootstrapped clients, random-walk path selection, liquidity
// verification against a snapshot and hop-by-hop fee-adjusted settlement.
//
// The engine is single-threaded. One Network must not be used from several
// goroutines; independent Networks share no state.
package lightning

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"ln-relay-lab/internal/domain"
)

// FeeAccounting decides whether the fee deducted after the final hop counts
// as relay revenue.
type FeeAccounting int

// Fee accounting policies.
const (
	// ExcludeFinalHop credits relays only for fees they actually keep.
	ExcludeFinalHop FeeAccounting = iota
	// IncludeFinalHop also credits the deduction after delivery to the target.
	IncludeFinalHop
)

func (a FeeAccounting) String() string {
	if a == IncludeFinalHop {
		return "include-final-hop"
	}
	return "exclude-final-hop"
}

// Network is the simulated topology: a fully meshed relay set plus clients
// bootstrapped to a subset of relays.
type Network struct {
	cfg *domain.NetworkConfig

	nodes   []*Node
	relays  []NodeID
	clients []NodeID

	fees       FeeSchedule
	liquidity  LiquidityPolicy
	accounting FeeAccounting
	paths      PathPolicy
	rng        *rand.Rand

	sumRelaysBalances float64
	relaysTotal       float64 // running sum of RelaysBalances
	constructionCost  float64
	channelCount      int
}

// Option configures a Network.
type Option func(*Network)

// WithRand sets the randomness source used for topology and path sampling.
func WithRand(r *rand.Rand) Option {
	return func(n *Network) { n.rng = r }
}

// WithSeed seeds a dedicated PCG source.
func WithSeed(seed uint64) Option {
	return func(n *Network) { n.rng = NewRand(seed) }
}

// WithPathPolicy replaces the random-walk path policy.
func WithPathPolicy(p PathPolicy) Option {
	return func(n *Network) { n.paths = p }
}

// WithLiquidityPolicy overrides the regime selected by IsLiquidityAssumed.
func WithLiquidityPolicy(p LiquidityPolicy) Option {
	return func(n *Network) { n.liquidity = p }
}

// WithFeeAccounting sets the final-hop fee accounting policy.
func WithFeeAccounting(a FeeAccounting) Option {
	return func(n *Network) { n.accounting = a }
}

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// New validates cfg and builds the relay mesh and the client set.
func New(cfg domain.NetworkConfig, opts ...Option) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid network config: %w", err)
	}

	n := &Network{
		cfg:        &cfg,
		fees:       NewFeeSchedule(cfg),
		liquidity:  PolicyFor(cfg.IsLiquidityAssumed),
		accounting: ExcludeFinalHop,
		paths:      RandomWalk{},
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.rng == nil {
		n.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	if err := n.createRelays(); err != nil {
		return nil, fmt.Errorf("create relays: %w", err)
	}
	if err := n.createClients(); err != nil {
		return nil, fmt.Errorf("create clients: %w", err)
	}
	for _, bal := range n.RelaysBalances() {
		n.relaysTotal += bal
	}

	return n, nil
}

// Config returns a copy of the network configuration.
func (n *Network) Config() domain.NetworkConfig { return *n.cfg }

// Fees returns the fee schedule.
func (n *Network) Fees() FeeSchedule { return n.fees }

// Liquidity returns the active liquidity policy.
func (n *Network) Liquidity() LiquidityPolicy { return n.liquidity }

// Accounting returns the fee accounting policy.
func (n *Network) Accounting() FeeAccounting { return n.accounting }

// Rand returns the network's randomness source, for samplers that must
// share the run's seed.
func (n *Network) Rand() *rand.Rand { return n.rng }

// Relays returns the relay handles in creation order.
func (n *Network) Relays() []NodeID {
	return append([]NodeID(nil), n.relays...)
}

// Clients returns the client handles in creation order.
func (n *Network) Clients() []NodeID {
	return append([]NodeID(nil), n.clients...)
}

// Node resolves a handle.
func (n *Network) Node(id NodeID) (*Node, error) {
	if id < 0 || int(id) >= len(n.nodes) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	return n.nodes[id], nil
}

// Channel returns the channel between a and b.
func (n *Network) Channel(a, b NodeID) (*Channel, bool) {
	node, err := n.Node(a)
	if err != nil {
		return nil, false
	}
	return node.Channel(b)
}

func (n *Network) addNode(kind Kind) *Node {
	node := newNode(NodeID(len(n.nodes)), kind, n.cfg)
	n.nodes = append(n.nodes, node)
	return node
}

func (n *Network) openChannel(owner *Node, ownerBalance float64, other *Node, otherBalance float64) error {
	if _, err := owner.CreateChannel(ownerBalance, other, otherBalance); err != nil {
		return err
	}
	n.constructionCost += n.cfg.ChannelCost
	n.channelCount++
	return nil
}

// createRelays builds a full mesh. Each new relay opens (and pays for) a
// channel to every earlier relay.
func (n *Network) createRelays() error {
	balance := n.cfg.DefaultBalanceRelayRelayChannel
	for i := 0; i < n.cfg.NumberOfRelays; i++ {
		relay := n.addNode(KindRelay)
		for _, prev := range n.relays {
			if err := n.openChannel(relay, balance, n.nodes[prev], balance); err != nil {
				return err
			}
		}
		n.relays = append(n.relays, relay.id)
	}

	n.sumRelaysBalances = -n.cfg.MeshConstructionCost()
	return nil
}

// createClients bootstraps each client to NumberOfRelaysPerClient relays
// sampled without replacement.
func (n *Network) createClients() error {
	k := n.cfg.NumberOfRelaysPerClient
	for i := 0; i < n.cfg.NumberOfClients; i++ {
		perm := n.rng.Perm(len(n.relays))
		bootstrap := make([]NodeID, k)
		for j := 0; j < k; j++ {
			bootstrap[j] = n.relays[perm[j]]
		}
		if _, err := n.AddClient(bootstrap...); err != nil {
			return err
		}
	}
	return nil
}

// AddClient creates a client with channels to each bootstrap relay, funded
// with the configured client-relay defaults. Channel failures propagate.
func (n *Network) AddClient(bootstrap ...NodeID) (NodeID, error) {
	if len(bootstrap) == 0 {
		return 0, ErrNoBootstrapRelays
	}
	for _, id := range bootstrap {
		node, err := n.Node(id)
		if err != nil {
			return 0, err
		}
		if node.kind != KindRelay {
			return 0, fmt.Errorf("%w: bootstrap node %s is a %s", ErrUnknownNode, id, node.kind)
		}
	}
	// The new node's handle is known up front, so a repeated relay can be
	// reported before any channel exists.
	next := NodeID(len(n.nodes))
	seen := make(map[NodeID]struct{}, len(bootstrap))
	for _, id := range bootstrap {
		if _, dup := seen[id]; dup {
			return 0, &ChannelError{From: next, To: id, Err: ErrDuplicateChannel}
		}
		seen[id] = struct{}{}
	}

	client := n.addNode(KindClient)
	client.relays = append([]NodeID(nil), bootstrap...)
	for _, id := range bootstrap {
		err := n.openChannel(client, n.cfg.DefaultBalanceClientRelayChannelClient,
			n.nodes[id], n.cfg.DefaultBalanceClientRelayChannelRelay)
		if err != nil {
			return 0, err
		}
	}
	n.clients = append(n.clients, client.id)
	return client.id, nil
}

func (n *Network) client(id NodeID) (*Node, error) {
	node, err := n.Node(id)
	if err != nil {
		return nil, err
	}
	if node.kind != KindClient {
		return nil, fmt.Errorf("%w: %s", ErrNotClient, id)
	}
	return node, nil
}

// FindPath selects a path from source to target with the path policy.
func (n *Network) FindPath(source, target NodeID) (Path, error) {
	src, err := n.client(source)
	if err != nil {
		return nil, err
	}
	dst, err := n.client(target)
	if err != nil {
		return nil, err
	}

	return n.paths.SelectPath(PathRequest{
		Source:       source,
		Target:       target,
		SourceRelays: src.relays,
		TargetRelays: dst.relays,
		Relays:       n.relays,
		Hops:         n.cfg.HopsNumber,
		Rand:         n.rng,
	})
}

// Snapshot copies the live channels traversed by hops.
func (n *Network) Snapshot(hops []Hop) (*Snapshot, error) {
	channels := make([]*Channel, 0, len(hops))
	for i, hop := range hops {
		c, ok := n.Channel(hop.From, hop.To)
		if !ok {
			return nil, &HopError{Index: i, From: hop.From, To: hop.To,
				Err: &ChannelError{From: hop.From, To: hop.To, Err: ErrNoChannel}}
		}
		channels = append(channels, c)
	}
	return NewSnapshot(channels...), nil
}

// VerifyPath checks that path can carry gross under the liquidity policy.
// It never mutates channel state.
func (n *Network) VerifyPath(path Path, gross float64) error {
	if err := checkAmount(gross); err != nil {
		return err
	}
	return n.liquidity.Verify(n, path.Hops(), gross, n.fees)
}

// checkAmount rejects amounts that are negative, NaN or infinite.
func checkAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: amount %g", ErrInvalidValue, v)
	}
	return nil
}

// Transact pays value from source to target. It returns false with a nil
// error when verification rejects the path; any error is fatal.
func (n *Network) Transact(source, target NodeID, value float64) (bool, error) {
	if err := checkAmount(value); err != nil {
		return false, err
	}

	gross := n.fees.GrossUp(value)

	path, err := n.FindPath(source, target)
	if err != nil {
		return false, fmt.Errorf("find path: %w", err)
	}

	if err := n.VerifyPath(path, gross); err != nil {
		if errors.Is(err, ErrPathInfeasible) {
			return false, nil
		}
		return false, fmt.Errorf("verify path: %w", err)
	}

	if err := n.settle(path, gross); err != nil {
		return false, err
	}
	return true, nil
}

// settle executes the hop-by-hop transfer. Every hop's fee except the
// post-delivery one is credited to relay revenue, unless IncludeFinalHop.
func (n *Network) settle(path Path, gross float64) error {
	hops := path.Hops()
	value := gross
	for i, hop := range hops {
		if err := n.nodes[hop.From].Transact(hop.To, value, n.liquidity); err != nil {
			return &HopError{Index: i, From: hop.From, To: hop.To, Value: value, Err: err}
		}
		if n.nodes[hop.From].kind == KindRelay {
			n.relaysTotal -= value
		}
		if n.nodes[hop.To].kind == KindRelay {
			n.relaysTotal += value
		}

		var fee float64
		value, fee = n.fees.Deduct(value)
		if i < len(hops)-1 || n.accounting == IncludeFinalHop {
			n.sumRelaysBalances += fee
		}
	}
	return nil
}

// RelaysBalances returns, per relay in creation order, its off-channel
// balance plus its holdings across all its channels.
func (n *Network) RelaysBalances() []float64 {
	out := make([]float64, len(n.relays))
	for i, id := range n.relays {
		relay := n.nodes[id]
		out[i] = relay.Balance + relay.ChannelHoldings()
	}
	return out
}

// RelaysTotalBalance returns the sum of RelaysBalances, maintained
// incrementally by settlement.
func (n *Network) RelaysTotalBalance() float64 { return n.relaysTotal }

// RelaysMeanTotalBalance returns RelaysTotalBalance per relay.
func (n *Network) RelaysMeanTotalBalance() float64 {
	return n.relaysTotal / float64(n.cfg.NumberOfRelays)
}

// SumRelaysBalances returns accrued relay fee revenue minus mesh cost.
func (n *Network) SumRelaysBalances() float64 { return n.sumRelaysBalances }

// RelaysMeanBalance returns SumRelaysBalances per relay.
func (n *Network) RelaysMeanBalance() float64 {
	return n.sumRelaysBalances / float64(n.cfg.NumberOfRelays)
}

// TotalValue sums every node's off-channel balance and every channel's
// balances. Payments never change it.
func (n *Network) TotalValue() float64 {
	total := 0.0
	for _, node := range n.nodes {
		total += node.Balance
		for _, peer := range node.Peers() {
			c := node.channels[peer]
			if c.node1 == node.id {
				total += c.Total()
			}
		}
	}
	return total
}

// ConstructionCost returns the total channel cost paid so far.
func (n *Network) ConstructionCost() float64 { return n.constructionCost }

// ChannelCount returns the number of channels opened.
func (n *Network) ChannelCount() int { return n.channelCount }
