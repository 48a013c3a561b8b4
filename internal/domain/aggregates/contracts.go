package aggregates

// Contract states the write policy an aggregate implementation honours.
type Contract struct {
	Name string
	// OwnsTx means write methods open and commit their own transaction.
	OwnsTx bool
	// Events are the kinds write methods publish, only after commit.
	Events []string
	Notes  string
}

type Aggregate interface {
	Contract() Contract
}

// Declares reports whether kind is one of the contract's events.
func (c Contract) Declares(kind string) bool {
	for _, e := range c.Events {
		if e == kind {
			return true
		}
	}
	return false
}
