package playback

import (
	"strings"
	"sync"
	"time"
)

// CooldownGate rate-limits the play command globally. Authorized users bypass
// it entirely. The check and the last-trigger update happen under one lock so
// two near-simultaneous play commands cannot both pass.
type CooldownGate struct {
	mu     sync.Mutex
	last   time.Time
	window time.Duration

	authorized map[string]struct{}
}

// NewCooldownGate builds a gate. Usernames are matched case-insensitively
// against chat-reported logins.
func NewCooldownGate(window time.Duration, authorizedUsers []string) *CooldownGate {
	auth := make(map[string]struct{}, len(authorizedUsers))
	for _, u := range authorizedUsers {
		auth[strings.ToLower(u)] = struct{}{}
	}
	return &CooldownGate{window: window, authorized: auth}
}

// Authorized reports whether username is on the privileged list.
func (g *CooldownGate) Authorized(username string) bool {
	_, ok := g.authorized[strings.ToLower(username)]
	return ok
}

// Allow reports whether a play command from username may proceed at now.
// Authorized users always pass and never consume the cooldown. For everyone
// else, a true result atomically consumes the window; a false result returns
// the remaining wait.
func (g *CooldownGate) Allow(username string, now time.Time) (bool, time.Duration) {
	if g.Authorized(username) {
		return true, 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last.IsZero() || now.Sub(g.last) >= g.window {
		// last never moves backwards even if callers hand in a skewed clock
		if now.After(g.last) {
			g.last = now
		}
		return true, 0
	}
	return false, g.window - now.Sub(g.last)
}

// Remaining returns how much cooldown is left at now, zero if expired.
func (g *CooldownGate) Remaining(now time.Time) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.last.IsZero() {
		return 0
	}
	if rem := g.window - now.Sub(g.last); rem > 0 {
		return rem
	}
	return 0
}
