package lightning

import "fmt"

// channelKey identifies a channel by its unordered endpoint pair.
type channelKey struct {
	lo NodeID
	hi NodeID
}

func keyOf(a, b NodeID) channelKey {
	if a > b {
		a, b = b, a
	}
	return channelKey{lo: a, hi: b}
}

type channelState struct {
	node1    NodeID
	balance1 float64
	balance2 float64
}

// Snapshot is a detached copy of the balances of a set of channels.
// Transfers applied to it never reach the live channels.
type Snapshot struct {
	states map[channelKey]channelState
}

// NewSnapshot copies the current balances of the given channels.
func NewSnapshot(channels ...*Channel) *Snapshot {
	s := &Snapshot{states: make(map[channelKey]channelState, len(channels))}
	for _, c := range channels {
		s.states[keyOf(c.node1, c.node2)] = channelState{
			node1:    c.node1,
			balance1: c.balance1,
			balance2: c.balance2,
		}
	}
	return s
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{states: make(map[channelKey]channelState, len(s.states))}
	for k, v := range s.states {
		out.states[k] = v
	}
	return out
}

// Balance returns the sender-side balance of the channel from -> to.
func (s *Snapshot) Balance(from, to NodeID) (float64, error) {
	st, ok := s.states[keyOf(from, to)]
	if !ok {
		return 0, &ChannelError{From: from, To: to, Err: ErrNoChannel}
	}
	if from == st.node1 {
		return st.balance1, nil
	}
	return st.balance2, nil
}

// Transfer moves value from -> to inside the snapshot without bound checks.
func (s *Snapshot) Transfer(from, to NodeID, value float64) error {
	k := keyOf(from, to)
	st, ok := s.states[k]
	if !ok {
		return &ChannelError{From: from, To: to, Err: ErrNoChannel}
	}
	if from == st.node1 {
		st.balance1 -= value
		st.balance2 += value
	} else {
		st.balance2 -= value
		st.balance1 += value
	}
	s.states[k] = st
	return nil
}

// Len returns the number of channels captured.
func (s *Snapshot) Len() int {
	return len(s.states)
}

func (s *Snapshot) String() string {
	return fmt.Sprintf("snapshot(%d channels)", len(s.states))
}
