package assembly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_Advance(t *testing.T) {
	var (
		c     Clock
		fired []string
	)
	c.After(200*time.Millisecond, func() { fired = append(fired, "b") })
	c.After(100*time.Millisecond, func() { fired = append(fired, "a") })
	c.After(200*time.Millisecond, func() {
		fired = append(fired, "c")
		c.After(0, func() { fired = append(fired, "d") })
	})
	c.After(time.Second, func() { fired = append(fired, "late") })

	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 200 * time.Millisecond, time.Second}, c.due())

	c.Advance(99 * time.Millisecond)
	assert.Empty(t, fired)

	c.Advance(time.Millisecond)
	assert.Equal(t, []string{"a"}, fired)

	c.Advance(100 * time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c", "d"}, fired)
	assert.Equal(t, 1, c.Pending())
	assert.Equal(t, 200*time.Millisecond, c.Now())

	c.Drop()
	c.Advance(time.Hour)
	assert.Equal(t, []string{"a", "b", "c", "d"}, fired)
}

func TestClock_After_negative(t *testing.T) {
	var c Clock
	ran := false
	c.Advance(time.Second)
	c.After(-time.Minute, func() { ran = true })
	c.Advance(0)
	assert.True(t, ran)
}
