package globaltime

import (
	"sync"
	"time"
)

var (
	mu      sync.RWMutex
	nowFunc = time.Now
)

func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return nowFunc()
}

func UTC() time.Time {
	return Now().UTC()
}

// Since is time.Since against the mockable clock.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}

// DaysAgo returns the UTC instant n days before now.
func DaysAgo(n int) time.Time {
	if n < 0 {
		n = 0
	}
	return UTC().AddDate(0, 0, -n)
}

func SetMockTime(t time.Time) {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = func() time.Time { return t }
}

func ResetTime() {
	mu.Lock()
	defer mu.Unlock()
	nowFunc = time.Now
}
