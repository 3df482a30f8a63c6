package borzoi

/*------------------------------------------------------------------
 *
 * Purpose:	Second-order IIR low-pass used to smooth the raw timing
 *		error the driver reports on SYNC platforms, before it is
 *		handed back as a nanosecond clock correction.
 *
 *		Coefficients follow the usual RBJ bilinear low-pass with
 *		the cutoff derived from a -60 dB settling time expressed
 *		in periods: w = ln(1000) / t60.  State is two unit delays
 *		in Direct Form II transposed.  DC gain is unity, so a
 *		constant input converges to itself.
 *
 *		Owned by the RT thread.  tick() is O(1) and allocation
 *		free; the coefficients are computed once at configuration.
 *
 *---------------------------------------------------------------*/

import "math"

/* Default settling time and how often a non-zero correction is actually
   returned to the driver.  Computing every period but reporting one in
   sixteen bounds the control-loop bandwidth the kernel sees. */

const DLL_DEFAULT_T60_PERIODS = 100
const DLL_CORRECTION_DOWNSAMPLING = 16

type dll_filter struct {
	b0, b1, b2 float64
	a1, a2     float64
	z1, z2     float64
}

func new_dll_filter(t60_periods float64) *dll_filter {
	if t60_periods <= 0 {
		t60_periods = DLL_DEFAULT_T60_PERIODS
	}

	// ln(1000) is the 60 dB point expressed in nepers.
	var w = math.Log(1000) / t60_periods
	var cosw = math.Cos(w)
	var alpha = math.Sin(w)
	var a0 = 1 + alpha

	var f = &dll_filter{}
	f.b0 = (1 - cosw) / 2 / a0
	f.b1 = (1 - cosw) / a0
	f.b2 = f.b0
	f.a1 = -2 * cosw / a0
	f.a2 = (1 - alpha) / a0
	return f
}

// tick advances the filter by one period and returns the smoothed value.
func (f *dll_filter) tick(x float64) float64 {
	var y = f.b0*x + f.z1
	f.z1 = f.b1*x - f.a1*y + f.z2
	f.z2 = f.b2*x - f.a2*y
	return y
}

func (f *dll_filter) reset() {
	f.z1 = 0
	f.z2 = 0
}
