package bond

import apperrors "bondval/internal/errors"

// CashFlows returns the gross payment due at each event of the schedule.
// The last event always includes the face value. Only the coupon sizing
// differs between kinds:
//
//   - ZeroCoupon pays nothing before maturity.
//   - FixedCoupon pays the contractual coupon at every event.
//   - FloatingCoupon pays the contractual coupon at the first event and a
//     coupon sized from the term sheet's yield afterwards.
func CashFlows(t TermSheet, kind Kind, s Schedule) ([]float64, error) {
	n := s.Len()
	if n == 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidTermSheet, "schedule has no events")
	}

	flows := make([]float64, n)

	switch kind {
	case ZeroCoupon:
		// principal only
	case FixedCoupon:
		coupon := t.PeriodCoupon(t.CouponRate)
		for i := range flows {
			flows[i] = coupon
		}
	case FloatingCoupon:
		reset := t.PeriodCoupon(t.YieldRate)
		for i := range flows {
			flows[i] = reset
		}
		flows[0] = t.PeriodCoupon(t.CouponRate)
	default:
		return nil, apperrors.Wrapf(apperrors.ErrUnsupportedKind, "%q", string(kind))
	}

	flows[n-1] += t.FaceValue
	return flows, nil
}

// AccruedInterest returns the interest already earned at each event.
// Only the stub of a fractional schedule accrues, always at the contractual
// coupon rate.
func AccruedInterest(t TermSheet, s Schedule) []float64 {
	accrued := make([]float64, s.Len())
	if s.Fractional() && len(accrued) > 0 {
		accrued[0] = (1 - s.Fraction) * float64(t.CouponPeriodDays) * t.FaceValue * t.CouponRate / float64(t.DaysPerYear)
	}
	return accrued
}
