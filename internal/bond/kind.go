package bond

import (
	"strings"

	apperrors "bondval/internal/errors"
)

// Kind selects how coupon payments are sized.
type Kind string

// Bond kinds
const (
	ZeroCoupon     Kind = "zero"
	FixedCoupon    Kind = "fixed"
	FloatingCoupon Kind = "floating"
)

// Kinds lists the supported kinds in display order.
func Kinds() []Kind {
	return []Kind{ZeroCoupon, FixedCoupon, FloatingCoupon}
}

// ParseKind parses a kind name. Spanish aliases (cero, fijo, variable) are
// accepted for compatibility with existing input files.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "zero", "zero-coupon", "cero":
		return ZeroCoupon, nil
	case "fixed", "fixed-coupon", "fijo":
		return FixedCoupon, nil
	case "floating", "floating-coupon", "float", "variable":
		return FloatingCoupon, nil
	default:
		return "", apperrors.Wrapf(apperrors.ErrUnsupportedKind, "%q", s)
	}
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case ZeroCoupon, FixedCoupon, FloatingCoupon:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}
