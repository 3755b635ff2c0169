package coherence

import "math"

// MemorySamples converts a memory window in seconds to a sample count:
// max(1, round(tau/dt)).
func MemorySamples(tau, dt float64) int {
	n := int(math.Round(tau / dt))
	if n < 1 {
		return 1
	}
	return n
}

// windowStart returns the first index of the causal window ending at t.
func windowStart(t, nMem int) int {
	if t-nMem < 0 {
		return 0
	}
	return t - nMem
}

// Simpson integrates uniformly spaced samples y with spacing h.
//
// One sample integrates to zero and two samples use the trapezoid rule. An
// odd count uses composite Simpson. An even count applies composite Simpson
// to all but the last interval and closes it with the quadratic through the
// final three samples, so no sample of the window is ever dropped.
func Simpson(y []float64, h float64) float64 {
	n := len(y)
	switch {
	case n < 2:
		return 0
	case n == 2:
		return 0.5 * h * (y[0] + y[1])
	case n%2 == 1:
		return simpsonOdd(y, h)
	default:
		head := simpsonOdd(y[:n-1], h)
		return head + h*(5*y[n-1]+8*y[n-2]-y[n-3])/12
	}
}

// simpsonOdd is composite Simpson's 1/3 rule; len(y) must be odd and ≥ 3.
func simpsonOdd(y []float64, h float64) float64 {
	n := len(y)
	sum := y[0] + y[n-1]
	for i := 1; i < n-1; i++ {
		if i%2 == 1 {
			sum += 4 * y[i]
		} else {
			sum += 2 * y[i]
		}
	}
	return sum * h / 3
}

// derivative fills out with dy/dh. Interior points use central differences,
// the two ends one-sided first differences. len(y) must be at least 2.
func derivative(y []float64, h float64, out []float64) {
	n := len(y)
	out[0] = (y[1] - y[0]) / h
	out[n-1] = (y[n-1] - y[n-2]) / h
	for i := 1; i < n-1; i++ {
		out[i] = (y[i+1] - y[i-1]) / (2 * h)
	}
}

// clip01 clamps v to [0,1]. NaN maps to 0.
func clip01(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v >= 0:
		return v
	default:
		return 0
	}
}
