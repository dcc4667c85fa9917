package cooldown

import (
	"sync"
	"time"

	"sentinel-support/internal/config"
	"sentinel-support/internal/utils"
)

// Limiter throttles command use per guild, user and command.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*utils.SlidingWindow
	limit   int
	window  time.Duration
}

func New(cfg config.CooldownConfig) *Limiter {
	return &Limiter{
		windows: make(map[string]*utils.SlidingWindow),
		limit:   cfg.Commands,
		window:  time.Duration(cfg.WindowSeconds) * time.Second,
	}
}

func Key(guildID, userID, command string) string {
	return guildID + ":" + userID + ":" + command
}

// Allow records an attempt and reports whether it fits the budget. When it
// does not, the returned duration is how long until the next slot frees.
// A zero limit or window disables throttling.
func (l *Limiter) Allow(key string, now time.Time) (bool, time.Duration) {
	if l == nil || l.limit <= 0 || l.window <= 0 {
		return true, 0
	}
	return l.getWindow(key).TryAdd(now, l.limit)
}

// Prune drops windows with no recent hits.
func (l *Limiter) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, window := range l.windows {
		if window.Count(now) == 0 {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) getWindow(key string) *utils.SlidingWindow {
	l.mu.Lock()
	defer l.mu.Unlock()
	window := l.windows[key]
	if window == nil {
		window = utils.NewSlidingWindow(l.window)
		l.windows[key] = window
	}
	return window
}
