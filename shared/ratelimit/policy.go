package ratelimit

import "time"

// Policy is the per-platform call budget.
type Policy struct {
	WindowCalls    int           // calls allowed inside the rolling window
	Window         time.Duration // rolling window length
	DailyCap       int64         // calls per day; 0 disables the cap
	BufferFraction float64       // usage ratio at which adaptive slowdown starts
}

// DefaultBufferFraction is applied when a policy leaves BufferFraction zero.
const DefaultBufferFraction = 0.8

// SteamPolicy is the published Steam Web API budget.
var SteamPolicy = Policy{
	WindowCalls:    100,
	Window:         300 * time.Second,
	DailyCap:       100_000,
	BufferFraction: 0.8,
}

func (p Policy) bufferFraction() float64 {
	if p.BufferFraction <= 0 || p.BufferFraction >= 1 {
		return DefaultBufferFraction
	}
	return p.BufferFraction
}
