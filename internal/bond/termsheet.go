// Package bond values fixed-income instruments from their contractual terms
// and a market yield: payment calendar, risk measures and price/yield curve.
package bond

import (
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "bondval/internal/errors"
)

// TermSheet holds the contractual parameters of a bond.
//
// Rates are fractions per annum (0.05 is five percent). Day counts are
// measured from the valuation date. A TermSheet is a value; copy it freely.
type TermSheet struct {
	FaceValue        float64 `json:"face_value" mapstructure:"face_value" validate:"finite,gt=0"`
	CouponRate       float64 `json:"coupon_rate" mapstructure:"coupon_rate" validate:"finite"`
	YieldRate        float64 `json:"yield_rate" mapstructure:"yield_rate" validate:"finite"`
	Spread           float64 `json:"spread" mapstructure:"spread" validate:"finite"`
	CouponPeriodDays int     `json:"coupon_period_days" mapstructure:"coupon_period_days" validate:"gte=0"`
	MaturityDays     int     `json:"maturity_days" mapstructure:"maturity_days" validate:"gt=0"`
	DaysPerYear      int     `json:"days_per_year" mapstructure:"days_per_year" validate:"gt=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

// Validate checks the term sheet and returns apperrors.ValidationErrors
// (which unwraps to ErrInvalidTermSheet) listing every offending field.
func (t TermSheet) Validate() error {
	err := validate.Struct(t)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !apperrors.As(err, &fieldErrs) {
		return apperrors.Wrap(apperrors.ErrInvalidTermSheet, err.Error())
	}

	out := make(apperrors.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apperrors.NewValidationError(fe.Field(), fe.Value(), fieldMessage(fe)))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "finite":
		return "must be a finite number"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	default:
		return "failed validation: " + fe.Tag()
	}
}

// normalized returns the term sheet with a zero coupon period replaced by
// the maturity, which turns the bond into a single bullet period.
func (t TermSheet) normalized() TermSheet {
	if t.CouponPeriodDays == 0 {
		t.CouponPeriodDays = t.MaturityDays
	}
	return t
}

// PeriodYearFraction is the length of one coupon period in years.
func (t TermSheet) PeriodYearFraction() float64 {
	return float64(t.CouponPeriodDays) / float64(t.DaysPerYear)
}

// PeriodCoupon is the coupon paid over one full period at the given rate.
func (t TermSheet) PeriodCoupon(rate float64) float64 {
	return t.FaceValue * rate * float64(t.CouponPeriodDays) / float64(t.DaysPerYear)
}
