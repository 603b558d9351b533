package services

import (
	"time"

	"dkpauction/config"
)

// SnipePolicy decides when a late bid pushes an auction's close time out
type SnipePolicy struct {
	Threshold    time.Duration // bids with at most this much time left trigger an extension
	Extension    time.Duration // added to ends_at per triggering bid
	MaxExtension time.Duration // cap on ends_at minus the original end
}

// NewSnipePolicy builds the policy from configuration
func NewSnipePolicy(cfg *config.Config) SnipePolicy {
	return SnipePolicy{
		Threshold:    cfg.SnipeThreshold,
		Extension:    cfg.SnipeExtension,
		MaxExtension: cfg.MaxSnipeExtension,
	}
}

// Evaluate returns the new close time and true when a bid at now extends the auction.
// An extension that would push past the cap is skipped entirely, not truncated.
func (p SnipePolicy) Evaluate(endsAt, originalEndsAt, now time.Time) (time.Time, bool) {
	remaining := endsAt.Sub(now)
	if remaining <= 0 || remaining > p.Threshold {
		return endsAt, false
	}

	candidate := endsAt.Add(p.Extension)
	if candidate.Sub(originalEndsAt) > p.MaxExtension {
		return endsAt, false
	}
	return candidate, true
}
