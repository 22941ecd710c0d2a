package trigger

import "time"

type CooldownState int

const (
	Armed CooldownState = iota
	Cooling
)

func (s CooldownState) String() string {
	if s == Cooling {
		return "cooling"
	}
	return "armed"
}

// Cooldown is the per (rule, driver) firing state.
// A rule fired at T with cooldown D is armed again at T+D.
type Cooldown struct {
	State   CooldownState
	FiredAt time.Time
	ArmedAt time.Time
}

// Ready reports whether the rule may fire at now.
// An expired cooling period transitions back to Armed.
func (c *Cooldown) Ready(now time.Time) bool {
	if c.State == Cooling && !now.Before(c.ArmedAt) {
		c.State = Armed
	}
	return c.State == Armed
}

// Fire records a firing at now
func (c *Cooldown) Fire(now time.Time, d time.Duration) {
	c.FiredAt = now
	c.ArmedAt = now.Add(d)
	if d > 0 {
		c.State = Cooling
	}
}
