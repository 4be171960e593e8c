package lightning

import (
	"errors"
	"math"
	"testing"

	"ln-relay-lab/internal/domain"
)

const tolerance = 1e-9

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func newTestNodes(cost float64) (*Node, *Node) {
	cfg := &domain.NetworkConfig{ChannelCost: cost}
	return newNode(0, KindRelay, cfg), newNode(1, KindRelay, cfg)
}

func TestChannel_TransactBothDirections(t *testing.T) {
	a, b := newTestNodes(0)
	c, err := a.CreateChannel(10, b, 5)
	if err != nil {
		t.Fatalf("CreateChannel failed: %v", err)
	}

	if err := c.Transact(a.ID(), 4, VerifiedLiquidity{}); err != nil {
		t.Fatalf("Transact a->b failed: %v", err)
	}
	b1, b2 := c.Balances()
	if b1 != 6 || b2 != 9 {
		t.Errorf("after a->b expected (6, 9), got (%v, %v)", b1, b2)
	}

	if err := c.Transact(b.ID(), 9, VerifiedLiquidity{}); err != nil {
		t.Fatalf("Transact b->a failed: %v", err)
	}
	b1, b2 = c.Balances()
	if b1 != 15 || b2 != 0 {
		t.Errorf("after b->a expected (15, 0), got (%v, %v)", b1, b2)
	}
	if c.Total() != 15 {
		t.Errorf("expected total 15, got %v", c.Total())
	}
}

func TestChannel_VerifiedRejectsBeforeMutation(t *testing.T) {
	a, b := newTestNodes(0)
	c, err := a.CreateChannel(3, b, 3)
	if err != nil {
		t.Fatalf("CreateChannel failed: %v", err)
	}

	err = c.Transact(a.ID(), 3.5, VerifiedLiquidity{})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	b1, b2 := c.Balances()
	if b1 != 3 || b2 != 3 {
		t.Errorf("balances changed on failure: (%v, %v)", b1, b2)
	}
}

func TestChannel_AssumedAllowsNegative(t *testing.T) {
	a, b := newTestNodes(0)
	c, err := a.CreateChannel(0, b, 0)
	if err != nil {
		t.Fatalf("CreateChannel failed: %v", err)
	}

	if err := c.Transact(a.ID(), 7, AssumedLiquidity{}); err != nil {
		t.Fatalf("Transact failed: %v", err)
	}
	b1, b2 := c.Balances()
	if b1 != -7 || b2 != 7 {
		t.Errorf("expected (-7, 7), got (%v, %v)", b1, b2)
	}
}

func TestChannel_TransactFromNonEndpoint(t *testing.T) {
	a, b := newTestNodes(0)
	c, err := a.CreateChannel(1, b, 1)
	if err != nil {
		t.Fatalf("CreateChannel failed: %v", err)
	}

	err = c.Transact(NodeID(42), 1, AssumedLiquidity{})
	if !errors.Is(err, ErrNoChannel) {
		t.Errorf("expected ErrNoChannel, got %v", err)
	}
}

func TestChannel_BalanceOfAndPeer(t *testing.T) {
	a, b := newTestNodes(0)
	c, err := a.CreateChannel(2, b, 8)
	if err != nil {
		t.Fatalf("CreateChannel failed: %v", err)
	}

	if got, ok := c.BalanceOf(b.ID()); !ok || got != 8 {
		t.Errorf("BalanceOf(b) = (%v, %v), want (8, true)", got, ok)
	}
	if _, ok := c.BalanceOf(NodeID(9)); ok {
		t.Error("BalanceOf(unknown) should report false")
	}
	if peer, ok := c.Peer(a.ID()); !ok || peer != b.ID() {
		t.Errorf("Peer(a) = (%v, %v), want (%v, true)", peer, ok, b.ID())
	}
}

func TestSnapshot_TransferIsDetached(t *testing.T) {
	a, b := newTestNodes(0)
	c, err := a.CreateChannel(5, b, 5)
	if err != nil {
		t.Fatalf("CreateChannel failed: %v", err)
	}

	snap := NewSnapshot(c)
	if err := snap.Transfer(a.ID(), b.ID(), 4); err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	got, err := snap.Balance(a.ID(), b.ID())
	if err != nil || got != 1 {
		t.Errorf("snapshot sender balance = (%v, %v), want (1, nil)", got, err)
	}
	b1, b2 := c.Balances()
	if b1 != 5 || b2 != 5 {
		t.Errorf("live channel mutated by snapshot: (%v, %v)", b1, b2)
	}

	clone := snap.Clone()
	if err := clone.Transfer(b.ID(), a.ID(), 9); err != nil {
		t.Fatalf("Transfer on clone failed: %v", err)
	}
	if got, _ := snap.Balance(b.ID(), a.ID()); got != 9 {
		t.Errorf("clone shares state with original: %v", got)
	}

	if _, err := snap.Balance(a.ID(), NodeID(7)); !errors.Is(err, ErrNoChannel) {
		t.Errorf("expected ErrNoChannel for missing channel, got %v", err)
	}
}
