package bond

import "math"

// Schedule is the coupon timing of a bond: one time factor per coupon
// event, measured in coupon periods from the valuation date.
//
// When the maturity is not a whole number of periods the first event is a
// short stub and every factor carries the same fractional part:
//
//	factors = frac, frac+1, ..., frac+n
//
// otherwise factors are 1..n.
type Schedule struct {
	PeriodDays int
	Fraction   float64 // fractional part of maturity / period, zero when it divides evenly
	Factors    []float64
}

// NewSchedule derives the schedule for a maturity and a positive coupon period.
func NewSchedule(maturityDays, periodDays int) Schedule {
	total := float64(maturityDays) / float64(periodDays)
	full := int(math.Floor(total))

	s := Schedule{PeriodDays: periodDays}

	if total > float64(full) {
		s.Fraction = total - float64(full)
		s.Factors = make([]float64, full+1)
		for i := range s.Factors {
			s.Factors[i] = s.Fraction + float64(i)
		}
		return s
	}

	s.Factors = make([]float64, full)
	for i := range s.Factors {
		s.Factors[i] = float64(i + 1)
	}
	return s
}

// Fractional reports whether the first event is a short stub period.
func (s Schedule) Fractional() bool {
	return s.Fraction > 0
}

// Len returns the number of coupon events.
func (s Schedule) Len() int {
	return len(s.Factors)
}

// Days returns the days from valuation to each event.
func (s Schedule) Days() []int {
	days := make([]int, len(s.Factors))
	for i, f := range s.Factors {
		days[i] = int(math.RoundToEven(f * float64(s.PeriodDays)))
	}
	return days
}
