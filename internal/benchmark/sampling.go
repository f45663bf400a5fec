package benchmark

import (
	"fmt"
	"math"
)

// SampleSizes returns n corpus sizes spaced evenly on a log scale between
// min and max inclusive, rounded to the nearest integer. A single run
// samples only min.
func SampleSizes(min, max, n int) ([]int, error) {
	if min < 1 {
		return nil, fmt.Errorf("minimum size must be positive, got %d", min)
	}
	if max < min {
		return nil, fmt.Errorf("maximum size %d is below minimum size %d", max, min)
	}
	if n < 1 {
		return nil, fmt.Errorf("number of runs must be positive, got %d", n)
	}
	if n == 1 {
		return []int{min}, nil
	}

	lo, hi := math.Log(float64(min)), math.Log(float64(max))
	step := (hi - lo) / float64(n-1)

	sizes := make([]int, n)
	for i := range sizes {
		sizes[i] = int(math.Round(math.Exp(lo + step*float64(i))))
	}
	// pin the end points against rounding drift
	sizes[0], sizes[n-1] = min, max
	return sizes, nil
}
