// Package biometric abstracts the fingerprint sensor that gates capture
// sessions. The sensor driver itself is external; this package defines the
// capability the session controller consumes and the slot-to-operator
// roster resolved from configuration.
package biometric

import "context"

// Scanner blocks until a finger matches an enrolled template and returns
// the template slot number.
type Scanner interface {
	WaitForMatch(ctx context.Context) (int, error)
}

// Roster maps sensor template slots to operator names. The operator name is
// the identity field of every envelope the session signs, and the namespace
// of the archive destination, so entries must match the registered contact
// records on the verifier side.
type Roster map[int]string

// Identity resolves a matched slot to an operator name.
func (r Roster) Identity(slot int) (string, bool) {
	name, ok := r[slot]
	return name, ok
}

// ChanScanner feeds matches from a channel. The interactive control surface
// uses it to stand in for the hardware sensor on development rigs.
type ChanScanner struct {
	Matches chan int
}

func NewChanScanner() *ChanScanner {
	return &ChanScanner{Matches: make(chan int)}
}

func (s *ChanScanner) WaitForMatch(ctx context.Context) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case slot := <-s.Matches:
		return slot, nil
	}
}

// Offer submits a match without blocking; it reports whether anything was
// waiting for one.
func (s *ChanScanner) Offer(slot int) bool {
	select {
	case s.Matches <- slot:
		return true
	default:
		return false
	}
}
