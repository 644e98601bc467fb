package chart

// FitFontSize returns the largest size in [min, max] whose measured width is below
// 2*innerRadius. measure must grow monotonically with size. If not even min fits,
// min is returned.
//
// This is the bisection form of "grow by one until it overshoots, then step back one".
func FitFontSize(measure func(size int) float64, innerRadius float64, min, max int) int {
	if max < min {
		max = min
	}
	limit := innerRadius * 2
	fits := func(size int) bool {
		return measure(size) < limit
	}
	if !fits(min) {
		return min
	}
	lo, hi := min, max // fits(lo) holds throughout
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
