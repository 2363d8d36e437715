// Package portfolio values many term sheets from a CSV file at once.
package portfolio

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/gocarina/gocsv"

	"bondval/internal/bond"
	apperrors "bondval/internal/errors"
)

// Row is one line of a batch input file, ready for valuation.
type Row struct {
	ID               string
	Label            string
	Kind             string
	FaceValue        float64
	CouponRate       float64
	YieldRate        float64
	Spread           float64
	CouponPeriodDays int
	MaturityDays     int
	DaysPerYear      int
}

// csvRow is the raw decoded line. Defaulted numeric columns are read as text
// so that a blank cell can be told apart from an explicit zero.
type csvRow struct {
	ID               string  `csv:"id"`
	Label            string  `csv:"label"`
	Kind             string  `csv:"kind" default:"fixed"`
	FaceValue        string  `csv:"face_value" default:"100"`
	CouponRate       float64 `csv:"coupon_rate"`
	YieldRate        float64 `csv:"yield_rate"`
	Spread           float64 `csv:"spread"`
	CouponPeriodDays int     `csv:"coupon_period_days"`
	MaturityDays     int     `csv:"maturity_days"`
	DaysPerYear      string  `csv:"days_per_year" default:"360"`
}

func (c *csvRow) row(n int) (*Row, error) {
	c.Kind = strings.TrimSpace(c.Kind)
	c.FaceValue = strings.TrimSpace(c.FaceValue)
	c.DaysPerYear = strings.TrimSpace(c.DaysPerYear)
	if err := defaults.Set(c); err != nil {
		return nil, err
	}

	face, err := strconv.ParseFloat(c.FaceValue, 64)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInputValidation, fmt.Sprintf("face_value %q", c.FaceValue))
	}
	dpy, err := strconv.Atoi(c.DaysPerYear)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInputValidation, fmt.Sprintf("days_per_year %q", c.DaysPerYear))
	}

	id := c.ID
	if id == "" {
		id = fmt.Sprintf("row-%d", n)
	}
	return &Row{
		ID:               id,
		Label:            c.Label,
		Kind:             c.Kind,
		FaceValue:        face,
		CouponRate:       c.CouponRate,
		YieldRate:        c.YieldRate,
		Spread:           c.Spread,
		CouponPeriodDays: c.CouponPeriodDays,
		MaturityDays:     c.MaturityDays,
		DaysPerYear:      dpy,
	}, nil
}

// TermSheet converts the row to engine inputs.
func (r *Row) TermSheet() bond.TermSheet {
	return bond.TermSheet{
		FaceValue:        r.FaceValue,
		CouponRate:       r.CouponRate,
		YieldRate:        r.YieldRate,
		Spread:           r.Spread,
		CouponPeriodDays: r.CouponPeriodDays,
		MaturityDays:     r.MaturityDays,
		DaysPerYear:      r.DaysPerYear,
	}
}

// ReadRows parses a batch file. Blank kind, face_value and days_per_year
// cells take the defaults fixed, 100 and 360; an explicit value, zero
// included, is kept and checked at valuation.
func ReadRows(r io.Reader) ([]*Row, error) {
	var raw []*csvRow
	if err := gocsv.Unmarshal(r, &raw); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInputValidation, fmt.Sprintf("parse batch csv: %v", err))
	}

	rows := make([]*Row, 0, len(raw))
	for i, c := range raw {
		row, err := c.row(i + 1)
		if err != nil {
			return nil, &apperrors.RowError{Row: i + 1, ID: c.ID, Err: err}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ResultRow is one line of the batch output file.
type ResultRow struct {
	Row              int     `csv:"row" json:"row"`
	ID               string  `csv:"id" json:"id"`
	Label            string  `csv:"label" json:"label,omitempty"`
	Kind             string  `csv:"kind" json:"kind"`
	DirtyPrice       float64 `csv:"dirty_price" json:"dirty_price"`
	AccruedInterest  float64 `csv:"accrued_interest" json:"accrued_interest"`
	CleanPrice       float64 `csv:"clean_price" json:"clean_price"`
	MacaulayDuration float64 `csv:"macaulay_duration" json:"macaulay_duration"`
	ModifiedDuration float64 `csv:"modified_duration" json:"modified_duration"`
	Convexity        float64 `csv:"convexity" json:"convexity"`
	Error            string  `csv:"error" json:"error,omitempty"`
}

func round(v float64) float64 {
	return bond.Round(v, bond.OutputPlaces)
}

func newResultRow(res Result) *ResultRow {
	out := &ResultRow{
		Row:   res.Row,
		ID:    res.ID,
		Label: res.Label,
		Kind:  res.Kind,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
		return out
	}

	m := res.Measures
	out.DirtyPrice = round(m.DirtyPrice)
	out.AccruedInterest = round(m.AccruedInterest)
	out.CleanPrice = round(m.CleanPrice)
	out.MacaulayDuration = round(m.MacaulayDuration)
	out.ModifiedDuration = round(m.ModifiedDuration)
	out.Convexity = round(m.Convexity)
	return out
}

// ResultRows flattens a report for CSV or JSON output, in input order.
func (r *Report) ResultRows() []*ResultRow {
	rows := make([]*ResultRow, 0, len(r.Results))
	for _, res := range r.Results {
		rows = append(rows, newResultRow(res))
	}
	return rows
}

// WriteCSV writes the report as CSV.
func (r *Report) WriteCSV(w io.Writer) error {
	rows := r.ResultRows()
	if err := gocsv.Marshal(&rows, w); err != nil {
		return apperrors.Wrap(err, "write batch csv")
	}
	return nil
}
