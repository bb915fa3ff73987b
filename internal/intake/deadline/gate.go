// Package deadline decides whether the form still accepts submissions.
package deadline

import "time"

// IsOpen reports whether now is strictly before cutoff. Both values are
// compared as instants, so their locations do not matter.
func IsOpen(now, cutoff time.Time) bool {
	return now.Before(cutoff)
}

// TimeRemaining returns the duration until cutoff and true while the gate is
// open; zero and false once it has closed.
func TimeRemaining(now, cutoff time.Time) (time.Duration, bool) {
	if !IsOpen(now, cutoff) {
		return 0, false
	}
	return cutoff.Sub(now), true
}

// Clock supplies the current time.
type Clock func() time.Time

// Gate binds a cutoff and a clock. The cutoff is fixed at construction.
type Gate struct {
	cutoff time.Time
	now    Clock
}

// NewGate returns a Gate for cutoff. A nil clock means time.Now.
func NewGate(cutoff time.Time, clock Clock) *Gate {
	if clock == nil {
		clock = time.Now
	}
	return &Gate{cutoff: cutoff, now: clock}
}

// Cutoff returns the instant at which the gate closes.
func (g *Gate) Cutoff() time.Time { return g.cutoff }

// Now returns the current time according to the gate's clock.
func (g *Gate) Now() time.Time { return g.now() }

// IsOpen reports whether the gate's clock is still before the cutoff.
func (g *Gate) IsOpen() bool {
	return IsOpen(g.now(), g.cutoff)
}

// TimeRemaining is the package-level TimeRemaining evaluated at the gate's clock.
func (g *Gate) TimeRemaining() (time.Duration, bool) {
	return TimeRemaining(g.now(), g.cutoff)
}
