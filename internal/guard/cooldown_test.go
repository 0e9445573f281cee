package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldownPassThenFail(t *testing.T) {
	clock := newFakeClock()
	g := NewCooldownGuard(30*time.Second, clock)

	v := g.Check("weth-usdc")
	assert.True(t, v.OK)

	v = g.Check("weth-usdc")
	assert.False(t, v.OK)
	assert.Equal(t, ReasonCooldownActive, v.Reason)
	assert.EqualValues(t, 30_000, v.Details["msRemaining"])
}

func TestCooldownFailedCheckDoesNotResetTimer(t *testing.T) {
	clock := newFakeClock()
	g := NewCooldownGuard(30*time.Second, clock)

	assert.True(t, g.Check("route").OK)

	clock.advance(20 * time.Second)
	v := g.Check("route")
	assert.False(t, v.OK)
	assert.EqualValues(t, 10_000, v.Details["msRemaining"])

	// The failed check above must not have restarted the window
	clock.advance(10 * time.Second)
	assert.True(t, g.Check("route").OK)
}

func TestCooldownExpires(t *testing.T) {
	clock := newFakeClock()
	g := NewCooldownGuard(30*time.Second, clock)

	assert.True(t, g.Check("route").OK)
	clock.advance(30 * time.Second)
	assert.True(t, g.Check("route").OK)
}

func TestCooldownRoutesIndependent(t *testing.T) {
	clock := newFakeClock()
	g := NewCooldownGuard(30*time.Second, clock)

	assert.True(t, g.Check("a").OK)
	assert.True(t, g.Check("b").OK)
	assert.False(t, g.Check("a").OK)
}
