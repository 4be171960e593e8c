package lightning

import "fmt"

// Channel is a bilateral balance ledger between two nodes.
// Balance1 + Balance2 is invariant under Transact.
type Channel struct {
	node1    NodeID
	node2    NodeID
	balance1 float64
	balance2 float64
}

// newChannel funds a channel from both endpoints' off-channel balances.
// The initiator (n1) additionally pays the channel cost.
func newChannel(n1 *Node, balance1 float64, n2 *Node, balance2, channelCost float64) *Channel {
	n1.Balance -= balance1 + channelCost
	n2.Balance -= balance2

	return &Channel{
		node1:    n1.id,
		node2:    n2.id,
		balance1: balance1,
		balance2: balance2,
	}
}

// Nodes returns the channel endpoints, initiator first.
func (c *Channel) Nodes() (NodeID, NodeID) {
	return c.node1, c.node2
}

// Balances returns the funds each endpoint holds inside the channel.
func (c *Channel) Balances() (float64, float64) {
	return c.balance1, c.balance2
}

// Total returns the channel capacity.
func (c *Channel) Total() float64 {
	return c.balance1 + c.balance2
}

// BalanceOf returns the in-channel balance of the given endpoint.
func (c *Channel) BalanceOf(id NodeID) (float64, bool) {
	switch id {
	case c.node1:
		return c.balance1, true
	case c.node2:
		return c.balance2, true
	default:
		return 0, false
	}
}

// Peer returns the endpoint opposite to id.
func (c *Channel) Peer(id NodeID) (NodeID, bool) {
	switch id {
	case c.node1:
		return c.node2, true
	case c.node2:
		return c.node1, true
	default:
		return 0, false
	}
}

// Transact moves value from sender to the other endpoint. The liquidity
// policy decides whether the sender-side balance is bound-checked; the
// check happens before any mutation.
func (c *Channel) Transact(sender NodeID, value float64, policy LiquidityPolicy) error {
	var available *float64
	var receiving *float64

	switch sender {
	case c.node1:
		available, receiving = &c.balance1, &c.balance2
	case c.node2:
		available, receiving = &c.balance2, &c.balance1
	default:
		return fmt.Errorf("%w: %s is not an endpoint of %s-%s", ErrNoChannel, sender, c.node1, c.node2)
	}

	if err := policy.CheckHop(*available, value); err != nil {
		return err
	}

	*available -= value
	*receiving += value
	return nil
}
