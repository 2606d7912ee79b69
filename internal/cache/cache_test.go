package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock returns a clock function and a way to advance it.
func fakeClock(start time.Time) (func() time.Time, func(time.Duration)) {
	current := start
	return func() time.Time { return current },
		func(d time.Duration) { current = current.Add(d) }
}

func TestTTL_GetSet(t *testing.T) {
	now, _ := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := New[string](45*time.Minute, now)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("news", "payload")
	got, ok := c.Get("news")
	assert.True(t, ok)
	assert.Equal(t, "payload", got)
}

func TestTTL_Expiry(t *testing.T) {
	now, advance := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := New[int](45*time.Minute, now)

	c.Set("k", 7)
	advance(44 * time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok)

	advance(2 * time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestTTL_Extend(t *testing.T) {
	now, advance := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := New[int](10*time.Minute, now)

	c.Set("k", 1)
	assert.True(t, c.Extend("k", 30*time.Minute))
	assert.False(t, c.Extend("absent", time.Minute))

	advance(35 * time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok)
}

func TestTTL_Sweep(t *testing.T) {
	now, advance := fakeClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := New[int](time.Minute, now)

	c.Set("a", 1)
	c.Set("b", 2)
	advance(2 * time.Minute)
	c.Set("c", 3)

	assert.Equal(t, 2, c.Sweep())
	_, ok := c.Get("c")
	assert.True(t, ok)
}
