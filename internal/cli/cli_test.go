package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"

	"bondval/internal/bond"
	apperrors "bondval/internal/errors"
	"bondval/internal/models"
	"bondval/internal/portfolio"
)

// run executes the CLI against a private config directory.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd, app := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", dir}, args...))

	err := cmd.ExecuteContext(context.Background())
	if closeErr := app.Close(); closeErr != nil {
		t.Errorf("Close() error = %v", closeErr)
	}
	return out.String(), err
}

func TestPriceJSONUsesConfiguredDefaults(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, "price", "--json")
	if err != nil {
		t.Fatalf("price error = %v", err)
	}

	var got struct {
		Kind     bond.Kind         `json:"kind"`
		Calendar bond.Calendar     `json:"calendar"`
		Measures []bond.MeasureRow `json:"measures"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}

	if got.Kind != bond.FixedCoupon {
		t.Errorf("kind = %q, want fixed", got.Kind)
	}
	if len(got.Calendar.Rows) != 3 {
		t.Errorf("calendar rows = %d, want 3", len(got.Calendar.Rows))
	}
	want := map[string]float64{
		bond.MeasureDirtyPrice:      97.714599,
		bond.MeasureAccruedInterest: 2.5,
		bond.MeasureCleanPrice:      95.214599,
	}
	for _, row := range got.Measures {
		if w, ok := want[row.Name]; ok && row.Value != w {
			t.Errorf("%s = %v, want %v", row.Name, row.Value, w)
		}
	}
}

func TestCalendarTable(t *testing.T) {
	out, err := run(t, t.TempDir(), "calendar")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Payment Calendar", "Total", "107.583333", "97.714599", "95.214599"} {
		if !strings.Contains(out, want) {
			t.Errorf("calendar output missing %q:\n%s", want, out)
		}
	}
}

func TestFlagsOverrideDefaults(t *testing.T) {
	out, err := run(t, t.TempDir(), "measures", "--json", "--kind", "zero", "--maturity", "360", "--period", "360", "--yield", "0.05")
	if err != nil {
		t.Fatal(err)
	}
	var rows []bond.MeasureRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatal(err)
	}
	// 100 / (1 + 0.05)
	if rows[0].Value != 95.238095 {
		t.Errorf("zero-coupon dirty price = %v, want 95.238095", rows[0].Value)
	}
	if rows[1].Value != 0 {
		t.Errorf("accrued = %v, want 0", rows[1].Value)
	}
}

func TestInvalidTermSheetFails(t *testing.T) {
	_, err := run(t, t.TempDir(), "price", "--face=-1")
	if !apperrors.Is(err, apperrors.ErrInvalidTermSheet) {
		t.Errorf("error = %v, want ErrInvalidTermSheet", err)
	}

	_, err = run(t, t.TempDir(), "price", "--kind", "perpetual")
	if !apperrors.Is(err, apperrors.ErrUnsupportedKind) {
		t.Errorf("error = %v, want ErrUnsupportedKind", err)
	}
}

func TestCurveCommand(t *testing.T) {
	out, err := run(t, t.TempDir(), "curve", "--json", "--low", "0.01", "--high", "0.2", "--samples", "5", "--parallel")
	if err != nil {
		t.Fatal(err)
	}
	var points []bond.CurvePoint
	if err := json.Unmarshal([]byte(out), &points); err != nil {
		t.Fatal(err)
	}
	if len(points) != 5 {
		t.Fatalf("len(points) = %d, want 5", len(points))
	}
	if points[0].Yield != 0.01 || points[4].Yield != 0.2 {
		t.Errorf("yield ends = %v, %v", points[0].Yield, points[4].Yield)
	}
	for i := 1; i < len(points); i++ {
		if points[i].Price >= points[i-1].Price {
			t.Errorf("price not decreasing at %d: %v", i, points)
		}
	}

	_, err = run(t, t.TempDir(), "curve", "--samples", "0")
	if !apperrors.Is(err, apperrors.ErrInvalidCurve) {
		t.Errorf("error = %v, want ErrInvalidCurve", err)
	}

	_, err = run(t, t.TempDir(), "curve", "--low", "0.2", "--high", "0.01")
	if !apperrors.Is(err, apperrors.ErrInvalidCurve) {
		t.Errorf("inverted bounds error = %v, want ErrInvalidCurve", err)
	}
}

func TestHistoryRecordsValuations(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(t, dir, "price", "--label", "desk-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, dir, "measures", "--kind", "zero", "--label", "desk-b"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, dir, "--no-history", "measures", "--label", "skipped"); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, dir, "history", "list", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var list []models.Valuation
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("history has %d entries, want 2", len(list))
	}

	out, err = run(t, dir, "history", "show", list[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, list[0].ID) || !strings.Contains(out, "Dirty Price") {
		t.Errorf("show output:\n%s", out)
	}

	out, err = run(t, dir, "history", "clear", "--label", "desk-a", "--json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"deleted": 1`) {
		t.Errorf("clear output = %s", out)
	}

	_, err = run(t, dir, "history", "show", "VAL-missing")
	if !apperrors.Is(err, apperrors.ErrDataNotFound) {
		t.Errorf("error = %v, want ErrDataNotFound", err)
	}
}

func TestBatchCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "book.csv")
	csv := "id,label,kind,face_value,coupon_rate,yield_rate,coupon_period_days,maturity_days,days_per_year\n" +
		"ex,book,fixed,100,0.05,0.1007,182,366,360\n" +
		"bad,book,fixed,100,0.05,0.05,180,0,360\n"
	if err := os.WriteFile(in, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	outFile := filepath.Join(dir, "valued.csv")

	if _, err := run(t, dir, "batch", in, "--out", outFile); err != nil {
		t.Fatalf("batch error = %v", err)
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatal(err)
	}
	var rows []*portfolio.ResultRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].DirtyPrice != 97.714599 || rows[0].Error != "" {
		t.Errorf("row 1 = %+v", rows[0])
	}
	if rows[1].Error == "" {
		t.Errorf("row 2 should report an error: %+v", rows[1])
	}

	out, err := run(t, dir, "history", "list", "--label", "book", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var list []models.Valuation
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Errorf("batch recorded %d valuations, want 1", len(list))
	}
}

func TestMetricsTextfileWrittenOnClose(t *testing.T) {
	dir := t.TempDir()
	prom := filepath.Join(dir, "bondval.prom")
	t.Setenv("BONDVAL_METRICS_TEXTFILE", prom)

	if _, err := run(t, dir, "price"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(prom)
	if err != nil {
		t.Fatalf("textfile not written: %v", err)
	}
	if !strings.Contains(string(data), `bondval_valuations_total{kind="fixed",outcome="ok"} 1`) {
		t.Errorf("textfile:\n%s", data)
	}
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "config", "validate")
	if err != nil {
		t.Fatalf("validate error = %v", err)
	}
	if !strings.Contains(out, "Configuration is valid") {
		t.Errorf("validate output = %s", out)
	}

	out, err = run(t, dir, "config", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != dir {
		t.Errorf("path = %q, want %q", out, dir)
	}

	out, err = run(t, dir, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Term Sheet Defaults", "10.0700%", "182 days"} {
		if !strings.Contains(out, want) {
			t.Errorf("show output missing %q:\n%s", want, out)
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[curve]\nsamples = 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = run(t, dir, "config", "validate")
	if !apperrors.Is(err, apperrors.ErrConfigInvalid) {
		t.Errorf("error = %v, want ErrConfigInvalid", err)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, t.TempDir(), "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, Version) {
		t.Errorf("version output = %q", out)
	}
}
