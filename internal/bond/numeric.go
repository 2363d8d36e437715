package bond

import "math"

// OutputPlaces is the number of decimals kept in every reported figure.
const OutputPlaces = 6

// Round rounds x to the given number of decimal places, ties to even.
func Round(x float64, places int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(x*scale) / scale
}

// Linspace returns n evenly spaced values over [start, stop], both ends included.
// A single sample is start.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	values := make([]float64, n)
	if n == 1 {
		values[0] = start
		return values
	}
	step := (stop - start) / float64(n-1)
	for i := range values {
		values[i] = start + float64(i)*step
	}
	values[n-1] = stop
	return values
}

// sum calculates the sum of a slice of float64.
func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
