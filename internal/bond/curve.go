package bond

import (
	"context"
	"sync"

	apperrors "bondval/internal/errors"
)

// Curve defaults for the price/yield chart.
const (
	DefaultCurveLow     = 0.001
	DefaultCurveHigh    = 0.25
	DefaultCurveSamples = 60
)

// CurvePoint is one sample of the price/yield curve.
type CurvePoint struct {
	Yield float64 `json:"yield"`
	Price float64 `json:"price"`
}

func checkCurve(low, high float64, samples int) error {
	if samples <= 0 {
		return apperrors.Wrapf(apperrors.ErrInvalidCurve, "samples must be positive, got %d", samples)
	}
	if !isFinite(low) || !isFinite(high) {
		return apperrors.Wrapf(apperrors.ErrInvalidCurve, "bounds must be finite, got [%g, %g]", low, high)
	}
	if high < low {
		return apperrors.Wrapf(apperrors.ErrInvalidCurve, "low %g exceeds high %g", low, high)
	}
	return nil
}

// Curve reprices the instrument at samples evenly spaced yields over
// [low, high], in ascending yield order; high < low is an ErrInvalidCurve.
// Cash flows keep the sizes fixed at construction; only the discount yield
// moves.
func (i *Instrument) Curve(low, high float64, samples int) ([]CurvePoint, error) {
	if err := checkCurve(low, high, samples); err != nil {
		return nil, err
	}

	yields := Linspace(low, high, samples)
	points := make([]CurvePoint, len(yields))
	for k, y := range yields {
		points[k] = CurvePoint{Yield: y, Price: i.DirtyPrice(y)}
	}
	return points, nil
}

// CurveParallel computes the same points as Curve using a pool of workers.
// It stops early and returns ctx.Err() when the context is cancelled.
func (i *Instrument) CurveParallel(ctx context.Context, low, high float64, samples, workers int) ([]CurvePoint, error) {
	if err := checkCurve(low, high, samples); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = 4
	}
	if workers > samples {
		workers = samples
	}

	yields := Linspace(low, high, samples)
	points := make([]CurvePoint, len(yields))

	work := make(chan int, len(yields))
	for k := range yields {
		work <- k
	}
	close(work)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range work {
				select {
				case <-ctx.Done():
					return
				default:
					// each worker owns distinct indexes
					points[k] = CurvePoint{Yield: yields[k], Price: i.DirtyPrice(yields[k])}
				}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return points, nil
}
