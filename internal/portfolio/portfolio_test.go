package portfolio

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/gocarina/gocsv"

	"bondval/internal/bond"
	apperrors "bondval/internal/errors"
	"bondval/internal/models"
)

const sampleCSV = `id,label,kind,face_value,coupon_rate,yield_rate,spread,coupon_period_days,maturity_days,days_per_year
ex,desk-a,fixed,100,0.05,0.1007,0,182,366,
zc,desk-a,zero,100,0,0.05,0,360,360,360
bad,desk-b,fixed,-5,0.05,0.05,0,180,360,360
fl,desk-b,floating,,0.04,0.06,0.001,90,720,365
odd,desk-b,perpetual,100,0.05,0.05,0,180,360,360
`

func TestReadRowsDefaults(t *testing.T) {
	rows, err := ReadRows(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadRows() error = %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("len(rows) = %d, want 5", len(rows))
	}

	if rows[0].DaysPerYear != 360 {
		t.Errorf("blank days_per_year = %d, want default 360", rows[0].DaysPerYear)
	}
	if rows[3].FaceValue != 100 {
		t.Errorf("blank face_value = %v, want default 100", rows[3].FaceValue)
	}
	if rows[3].DaysPerYear != 365 {
		t.Errorf("explicit days_per_year = %d, want 365", rows[3].DaysPerYear)
	}
	if rows[0].CouponPeriodDays != 182 || rows[0].MaturityDays != 366 {
		t.Errorf("row 0 = %+v", rows[0])
	}
}

func TestReadRowsFillsIDAndKind(t *testing.T) {
	in := "id,kind,face_value,coupon_rate,yield_rate,coupon_period_days,maturity_days\n,,100,0.05,0.05,180,360\n"
	rows, err := ReadRows(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].ID != "row-1" {
		t.Errorf("ID = %q, want row-1", rows[0].ID)
	}
	if rows[0].Kind != "fixed" {
		t.Errorf("Kind = %q, want fixed", rows[0].Kind)
	}
}

func TestReadRowsKeepsExplicitZeros(t *testing.T) {
	in := "id,kind,face_value,coupon_rate,yield_rate,spread,coupon_period_days,maturity_days,days_per_year\n" +
		"zf,fixed,0,0.05,0.1,0,182,366,360\n" +
		"zd,fixed,100,0.05,0.1,0,182,366,0\n" +
		"blank,fixed, ,0.05,0.1,0,182,366,\n"
	rows, err := ReadRows(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadRows() error = %v", err)
	}

	if rows[0].FaceValue != 0 {
		t.Errorf("explicit face_value 0 became %v", rows[0].FaceValue)
	}
	if rows[1].DaysPerYear != 0 {
		t.Errorf("explicit days_per_year 0 became %d", rows[1].DaysPerYear)
	}
	if rows[2].FaceValue != 100 || rows[2].DaysPerYear != 360 {
		t.Errorf("blank cells = %v/%d, want defaults 100/360", rows[2].FaceValue, rows[2].DaysPerYear)
	}

	report, err := Value(context.Background(), rows, Options{Workers: 2})
	if err != nil {
		t.Fatal(err)
	}
	for _, res := range report.Results[:2] {
		var rowErr *apperrors.RowError
		if !errors.As(res.Err, &rowErr) || rowErr.ID != res.ID {
			t.Errorf("%s: error = %v, want RowError", res.ID, res.Err)
			continue
		}
		if !apperrors.Is(res.Err, apperrors.ErrInvalidTermSheet) {
			t.Errorf("%s: error = %v, want ErrInvalidTermSheet", res.ID, res.Err)
		}
	}
	if report.Results[2].Err != nil {
		t.Errorf("defaulted row failed: %v", report.Results[2].Err)
	}
}

func TestReadRowsRejectsMalformedNumbers(t *testing.T) {
	in := "id,face_value,coupon_rate,yield_rate,coupon_period_days,maturity_days,days_per_year\n" +
		"x,abc,0.05,0.1,182,366,360\n"
	_, err := ReadRows(strings.NewReader(in))

	var rowErr *apperrors.RowError
	if !errors.As(err, &rowErr) || rowErr.Row != 1 {
		t.Fatalf("error = %v, want RowError for row 1", err)
	}
	if !apperrors.Is(err, apperrors.ErrInputValidation) {
		t.Errorf("error = %v, want ErrInputValidation", err)
	}
}

func TestValueReportsRowErrors(t *testing.T) {
	rows, err := ReadRows(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}

	report, err := Value(context.Background(), rows, Options{Workers: 3})
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}

	if len(report.Results) != 5 {
		t.Fatalf("len(Results) = %d, want 5", len(report.Results))
	}
	if report.Failed != 2 || report.Succeeded() != 3 {
		t.Errorf("failed/succeeded = %d/%d, want 2/3", report.Failed, report.Succeeded())
	}
	if len(report.Valuations) != 3 {
		t.Errorf("len(Valuations) = %d, want 3", len(report.Valuations))
	}

	for i, res := range report.Results {
		if res.Row != i+1 {
			t.Errorf("Results[%d].Row = %d, want input order", i, res.Row)
		}
	}

	ex := report.Results[0]
	if ex.Err != nil {
		t.Fatalf("example row error = %v", ex.Err)
	}
	if got := bond.Round(ex.Measures.DirtyPrice, bond.OutputPlaces); got != 97.714599 {
		t.Errorf("example dirty price = %v, want 97.714599", got)
	}

	var rowErr *apperrors.RowError
	if !errors.As(report.Results[2].Err, &rowErr) || rowErr.ID != "bad" {
		t.Errorf("bad row error = %v, want RowError for bad", report.Results[2].Err)
	}
	if !apperrors.Is(report.Results[2].Err, apperrors.ErrInvalidTermSheet) {
		t.Errorf("bad row should wrap ErrInvalidTermSheet: %v", report.Results[2].Err)
	}
	if !apperrors.Is(report.Results[4].Err, apperrors.ErrUnsupportedKind) {
		t.Errorf("odd row should wrap ErrUnsupportedKind: %v", report.Results[4].Err)
	}
	if len(report.Errors()) != 2 {
		t.Errorf("Errors() = %v", report.Errors())
	}
}

func TestValueSinksValuationsInBatches(t *testing.T) {
	rows := make([]*Row, 0, 7)
	for i := 0; i < 7; i++ {
		rows = append(rows, &Row{
			ID: "r", Kind: "fixed", FaceValue: 100, CouponRate: 0.05, YieldRate: 0.05,
			CouponPeriodDays: 180, MaturityDays: 360 * (i + 1), DaysPerYear: 360,
		})
	}

	var (
		mu      sync.Mutex
		batches []int
		saved   []models.Valuation
	)
	sink := func(vs []models.Valuation) error {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, len(vs))
		saved = append(saved, vs...)
		return nil
	}

	report, err := Value(context.Background(), rows, Options{Workers: 2, Sink: sink, SinkBatch: 3})
	if err != nil {
		t.Fatal(err)
	}
	if report.Failed != 0 {
		t.Fatalf("unexpected failures: %v", report.Errors())
	}
	if len(saved) != 7 {
		t.Errorf("saved %d valuations, want 7", len(saved))
	}
	if len(batches) != 3 || batches[2] != 1 {
		t.Errorf("batches = %v, want [3 3 1]", batches)
	}
}

func TestValueSinkError(t *testing.T) {
	rows := []*Row{{ID: "a", Kind: "zero", FaceValue: 100, YieldRate: 0.05, CouponPeriodDays: 360, MaturityDays: 360, DaysPerYear: 360}}
	boom := errors.New("disk full")

	report, err := Value(context.Background(), rows, Options{Sink: func([]models.Valuation) error { return boom }})
	if !errors.Is(err, boom) {
		t.Errorf("Value() error = %v, want sink error", err)
	}
	if report.Succeeded() != 1 {
		t.Errorf("valuation itself should succeed, report = %+v", report)
	}
}

func TestValueCancelled(t *testing.T) {
	rows, err := ReadRows(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Value(ctx, rows, Options{Workers: 1})
	if err == nil {
		// Every row fit in the queue before the cancellation was observed.
		if len(report.Results) != len(rows) {
			t.Errorf("len(Results) = %d", len(report.Results))
		}
		return
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Value() error = %v, want context.Canceled", err)
	}
	for _, res := range report.Results {
		if res.Row == 0 {
			t.Errorf("unfilled result: %+v", res)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	rows, err := ReadRows(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}
	report, err := Value(context.Background(), rows, Options{})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := report.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	var out []*ResultRow
	if err := gocsv.UnmarshalBytes(buf.Bytes(), &out); err != nil {
		t.Fatalf("output is not readable csv: %v", err)
	}
	if len(out) != 5 {
		t.Fatalf("len(out) = %d, want 5", len(out))
	}
	if out[0].ID != "ex" || out[0].CleanPrice != 95.214599 || out[0].AccruedInterest != 2.5 {
		t.Errorf("first output row = %+v", out[0])
	}
	if out[2].Error == "" || out[2].DirtyPrice != 0 {
		t.Errorf("failed row should carry only the error: %+v", out[2])
	}
	if out[1].Kind != "zero" {
		t.Errorf("kind = %q, want zero", out[1].Kind)
	}
}
