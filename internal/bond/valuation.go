package bond

import (
	"math"

	apperrors "bondval/internal/errors"
)

// ConvexityBump is the yield shift used for the finite-difference convexity.
const ConvexityBump = 0.0001

// Instrument is a validated bond ready for valuation. Cash flows and
// accrued interest are computed once in New; every method afterwards only
// reads them, so an Instrument is safe for concurrent use.
type Instrument struct {
	terms    TermSheet
	kind     Kind
	schedule Schedule
	flows    []float64
	accrued  []float64
}

// New validates the term sheet and builds an instrument of the given kind.
func New(t TermSheet, kind Kind) (*Instrument, error) {
	if !kind.Valid() {
		return nil, apperrors.Wrapf(apperrors.ErrUnsupportedKind, "%q", string(kind))
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	t = t.normalized()
	s := NewSchedule(t.MaturityDays, t.CouponPeriodDays)

	flows, err := CashFlows(t, kind, s)
	if err != nil {
		return nil, err
	}

	return &Instrument{
		terms:    t,
		kind:     kind,
		schedule: s,
		flows:    flows,
		accrued:  AccruedInterest(t, s),
	}, nil
}

// Terms returns the normalized term sheet.
func (i *Instrument) Terms() TermSheet {
	return i.terms
}

// Kind returns the instrument's kind.
func (i *Instrument) Kind() Kind {
	return i.kind
}

// Schedule returns a copy of the coupon schedule.
func (i *Instrument) Schedule() Schedule {
	s := i.schedule
	s.Factors = append([]float64(nil), i.schedule.Factors...)
	return s
}

// CashFlows returns a copy of the gross payment per event.
func (i *Instrument) CashFlows() []float64 {
	return append([]float64(nil), i.flows...)
}

// periodGrowth is one plus the per-period discount rate at yield y.
func (i *Instrument) periodGrowth(y float64) float64 {
	return 1 + (y+i.terms.Spread)*i.terms.PeriodYearFraction()
}

// PresentValues discounts every cash flow at yield y (the spread is added).
func (i *Instrument) PresentValues(y float64) []float64 {
	base := i.periodGrowth(y)
	pv := make([]float64, len(i.flows))
	for k, f := range i.schedule.Factors {
		pv[k] = i.flows[k] * math.Pow(base, -f)
	}
	return pv
}

// DirtyPrice is the sum of the present values at yield y.
func (i *Instrument) DirtyPrice(y float64) float64 {
	return sum(i.PresentValues(y))
}

// CalendarRow is one line of the payment calendar.
type CalendarRow struct {
	Days    int     `json:"days"`
	Flow    float64 `json:"flow"`
	GrossPV float64 `json:"gross_pv"`
	Accrued float64 `json:"accrued_interest"`
	NetPV   float64 `json:"net_pv"`
}

// Calendar is the payment calendar with its total line.
type Calendar struct {
	Rows  []CalendarRow `json:"rows"`
	Total CalendarRow   `json:"total"`
}

// Calendar builds the payment calendar at the term sheet's yield.
// Every figure is rounded to OutputPlaces; totals are summed before rounding.
func (i *Instrument) Calendar() Calendar {
	days := i.schedule.Days()
	pv := i.PresentValues(i.terms.YieldRate)

	cal := Calendar{Rows: make([]CalendarRow, len(pv))}
	var flowSum, pvSum, accruedSum, netSum float64
	for k := range pv {
		net := pv[k] - i.accrued[k]
		cal.Rows[k] = CalendarRow{
			Days:    days[k],
			Flow:    Round(i.flows[k], OutputPlaces),
			GrossPV: Round(pv[k], OutputPlaces),
			Accrued: Round(i.accrued[k], OutputPlaces),
			NetPV:   Round(net, OutputPlaces),
		}
		flowSum += i.flows[k]
		pvSum += pv[k]
		accruedSum += i.accrued[k]
		netSum += net
	}

	cal.Total = CalendarRow{
		Days:    days[len(days)-1],
		Flow:    Round(flowSum, OutputPlaces),
		GrossPV: Round(pvSum, OutputPlaces),
		Accrued: Round(accruedSum, OutputPlaces),
		NetPV:   Round(netSum, OutputPlaces),
	}
	return cal
}

// Measures holds the summary risk measures of an instrument.
// Values are unrounded; use Rows for the reported table.
type Measures struct {
	DirtyPrice       float64 `json:"dirty_price"`
	AccruedInterest  float64 `json:"accrued_interest"`
	CleanPrice       float64 `json:"clean_price"`
	MacaulayDuration float64 `json:"macaulay_duration"`
	ModifiedDuration float64 `json:"modified_duration"`
	Convexity        float64 `json:"convexity"`
}

// MeasureRow is one named line of the measures table.
type MeasureRow struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Measure names in reporting order
const (
	MeasureDirtyPrice       = "Dirty Price"
	MeasureAccruedInterest  = "Accrued Interest"
	MeasureCleanPrice       = "Clean Price"
	MeasureMacaulayDuration = "Macaulay Duration"
	MeasureModifiedDuration = "Modified Duration"
	MeasureConvexity        = "Convexity"
)

// Rows returns the six measures in reporting order, rounded to OutputPlaces.
func (m Measures) Rows() []MeasureRow {
	return []MeasureRow{
		{MeasureDirtyPrice, Round(m.DirtyPrice, OutputPlaces)},
		{MeasureAccruedInterest, Round(m.AccruedInterest, OutputPlaces)},
		{MeasureCleanPrice, Round(m.CleanPrice, OutputPlaces)},
		{MeasureMacaulayDuration, Round(m.MacaulayDuration, OutputPlaces)},
		{MeasureModifiedDuration, Round(m.ModifiedDuration, OutputPlaces)},
		{MeasureConvexity, Round(m.Convexity, OutputPlaces)},
	}
}

// Measures computes every risk measure at the term sheet's yield in one pass.
// A zero or non-finite dirty price returns a ComputationError wrapping
// ErrDegeneratePrice, since durations and convexity divide by it.
func (i *Instrument) Measures() (Measures, error) {
	y := i.terms.YieldRate
	pv := i.PresentValues(y)
	dirty := sum(pv)

	if dirty == 0 || !isFinite(dirty) {
		return Measures{}, apperrors.NewComputationError("dirty_price", dirty, apperrors.ErrDegeneratePrice)
	}

	accrued := sum(i.accrued)

	var weighted float64
	for k, f := range i.schedule.Factors {
		weighted += pv[k] / dirty * f
	}
	macaulay := weighted * i.terms.PeriodYearFraction()

	growth := i.periodGrowth(y)
	if growth == 0 {
		return Measures{}, apperrors.NewComputationError("modified_duration", growth, apperrors.ErrDegeneratePrice)
	}

	up := i.DirtyPrice(y + ConvexityBump)
	down := i.DirtyPrice(y - ConvexityBump)
	convexity := (down + up - 2*dirty) / (ConvexityBump * ConvexityBump * dirty)

	return Measures{
		DirtyPrice:       dirty,
		AccruedInterest:  accrued,
		CleanPrice:       dirty - accrued,
		MacaulayDuration: macaulay,
		ModifiedDuration: macaulay / growth,
		Convexity:        convexity,
	}, nil
}
