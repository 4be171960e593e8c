package lightning

import (
	"fmt"
	"sort"

	"ln-relay-lab/internal/domain"
)

// NodeID is a stable handle into the network's node arena.
type NodeID int

func (id NodeID) String() string {
	return fmt.Sprintf("node-%d", int(id))
}

// Kind distinguishes relays from clients.
type Kind uint8

// Node kinds.
const (
	KindRelay Kind = iota
	KindClient
)

func (k Kind) String() string {
	switch k {
	case KindRelay:
		return "relay"
	case KindClient:
		return "client"
	default:
		return "unknown"
	}
}

// Node owns one channel per peer. Balance holds off-channel funds and may
// go negative when channel funding exceeds it.
type Node struct {
	id      NodeID
	kind    Kind
	Balance float64

	cfg      *domain.NetworkConfig
	channels map[NodeID]*Channel

	// relays is the ordered bootstrap set of a client.
	relays []NodeID
}

func newNode(id NodeID, kind Kind, cfg *domain.NetworkConfig) *Node {
	return &Node{
		id:       id,
		kind:     kind,
		cfg:      cfg,
		channels: make(map[NodeID]*Channel),
	}
}

// ID returns the node handle.
func (n *Node) ID() NodeID { return n.id }

// Kind returns whether the node is a relay or a client.
func (n *Node) Kind() Kind { return n.kind }

// Relays returns a copy of a client's bootstrap relays.
func (n *Node) Relays() []NodeID {
	out := make([]NodeID, len(n.relays))
	copy(out, n.relays)
	return out
}

// HasChannel reports whether a channel to peer exists.
func (n *Node) HasChannel(peer NodeID) bool {
	_, ok := n.channels[peer]
	return ok
}

// Channel returns the channel to peer.
func (n *Node) Channel(peer NodeID) (*Channel, bool) {
	c, ok := n.channels[peer]
	return c, ok
}

// Peers returns the channel peers in ascending handle order.
func (n *Node) Peers() []NodeID {
	peers := make([]NodeID, 0, len(n.channels))
	for id := range n.channels {
		peers = append(peers, id)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })
	return peers
}

// ChannelHoldings sums this node's side of every channel it is part of.
func (n *Node) ChannelHoldings() float64 {
	total := 0.0
	for _, peer := range n.Peers() {
		b, _ := n.channels[peer].BalanceOf(n.id)
		total += b
	}
	return total
}

// CreateChannel opens a channel to other, funded with ownerBalance from this
// node and otherBalance from other. This node pays the channel cost.
// The channel is registered in both nodes' channel maps.
func (n *Node) CreateChannel(ownerBalance float64, other *Node, otherBalance float64) (*Channel, error) {
	if other == nil || other.id == n.id {
		return nil, &ChannelError{From: n.id, To: n.id, Err: ErrSelfChannel}
	}
	if n.HasChannel(other.id) || other.HasChannel(n.id) {
		return nil, &ChannelError{From: n.id, To: other.id, Err: ErrDuplicateChannel}
	}

	c := newChannel(n, ownerBalance, other, otherBalance, n.cfg.ChannelCost)
	n.channels[other.id] = c
	other.channels[n.id] = c
	return c, nil
}

// Transact sends value to target over their shared channel.
func (n *Node) Transact(target NodeID, value float64, policy LiquidityPolicy) error {
	c, ok := n.channels[target]
	if !ok {
		return &ChannelError{From: n.id, To: target, Err: ErrNoChannel}
	}
	if err := c.Transact(n.id, value, policy); err != nil {
		return &ChannelError{From: n.id, To: target, Err: err}
	}
	return nil
}
