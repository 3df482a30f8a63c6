package borzoi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// A constant input must converge to itself: the low-pass has unity DC
// gain, and after T60 periods the pole envelope is down by 60 dB, which
// leaves the step response within 1%.
func TestDLLConvergesToConstant(t *testing.T) {
	for _, x0 := range []float64{160, -1000, 42} {
		var f = new_dll_filter(DLL_DEFAULT_T60_PERIODS)

		var y float64
		for i := 0; i < DLL_DEFAULT_T60_PERIODS; i++ {
			y = f.tick(x0)
		}
		assert.InDelta(t, x0, y, math.Abs(0.01*x0), "input %v", x0)

		// The step response trails the pole envelope a little; give it
		// half a T60 more and it is inside 0.1%.
		for i := 0; i < DLL_DEFAULT_T60_PERIODS/2; i++ {
			y = f.tick(x0)
		}
		assert.InDelta(t, x0, y, math.Abs(0.001*x0), "input %v", x0)
	}
}

func TestDLLZeroInputStaysZero(t *testing.T) {
	var f = new_dll_filter(100)
	for i := 0; i < 1000; i++ {
		assert.Zero(t, f.tick(0))
	}
}

// The step response must be monotone-ish and smooth: no single tick jumps
// to the final value, which is the whole point of filtering the raw
// timing error.
func TestDLLSmoothsStep(t *testing.T) {
	var f = new_dll_filter(100)

	var first = f.tick(1000)
	assert.Less(t, first, 10.0, "first output should be a small fraction of the step")
	assert.GreaterOrEqual(t, first, 0.0)

	var prev = first
	var rising = 0
	for i := 0; i < 100; i++ {
		var y = f.tick(1000)
		if y > prev {
			rising++
		}
		prev = y
	}
	assert.Greater(t, rising, 90, "response should climb toward the step")
}

func TestDLLReset(t *testing.T) {
	var f = new_dll_filter(100)
	for i := 0; i < 50; i++ {
		f.tick(500)
	}
	f.reset()
	assert.Zero(t, f.tick(0))
}

func TestDLLBogusT60FallsBack(t *testing.T) {
	var f = new_dll_filter(0)
	var g = new_dll_filter(DLL_DEFAULT_T60_PERIODS)
	assert.Equal(t, g.b0, f.b0)
	assert.Equal(t, g.a2, f.a2)
}
