package services

import (
	"time"
)

// ResendCooldown is the minimum gap between OTP dispatches for one email.
const ResendCooldown = 60 * time.Second

// ResendLimiter throttles OTP dispatches per email using the keyed store.
// The check and the record are separate calls, so two truly concurrent
// resends for the same email can both pass. Contention that low is tolerated
// here.
type ResendLimiter struct {
	Store KeyedStore

	// Now overrides the clock; nil means time.Now. Tests use it to step
	// past the cooldown window.
	Now func() time.Time
}

func (rl *ResendLimiter) clock() time.Time {
	if rl.Now != nil {
		return rl.Now()
	}
	return time.Now()
}

func cooldownKey(email string) string {
	return "cooldown:" + email
}

// Allow reports whether an OTP may be dispatched for the email right now.
// When the cooldown is still running it returns the remaining wait in whole
// seconds, rounded up.
func (rl *ResendLimiter) Allow(email string) (retryAfterSeconds int, ok bool) {
	last, found := rl.Store.Get(cooldownKey(email))
	if !found {
		return 0, true
	}

	lastTime, isTime := last.(time.Time)
	if !isTime {
		return 0, true
	}

	elapsed := rl.clock().Sub(lastTime)
	if elapsed >= ResendCooldown {
		return 0, true
	}

	remaining := ResendCooldown - elapsed
	return int((remaining + time.Second - 1) / time.Second), false
}

// Record marks a dispatch for the email, starting a new cooldown window.
func (rl *ResendLimiter) Record(email string) {
	rl.Store.Set(cooldownKey(email), rl.clock(), ResendCooldown)
}
