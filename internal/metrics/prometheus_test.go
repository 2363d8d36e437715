package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.RecordValuation("fixed", "ok")
	r.RecordValuation("fixed", "ok")
	r.RecordValuation("zero", "error")
	r.RecordError("invalid_term_sheet")
	r.RecordLastPrice("fixed", 97.71)

	if got := testutil.ToFloat64(r.valuations.WithLabelValues("fixed", "ok")); got != 2 {
		t.Errorf("fixed ok = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.valuations.WithLabelValues("zero", "error")); got != 1 {
		t.Errorf("zero error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.lastPrice.WithLabelValues("fixed")); got != 97.71 {
		t.Errorf("last price = %v, want 97.71", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.RecordValuation("floating", "ok")
	r.RecordLatency("measures", 0.0002)

	path := filepath.Join(t.TempDir(), "bondval.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`bondval_valuations_total{kind="floating",outcome="ok"} 1`,
		`bondval_operation_duration_seconds_count{operation="measures"} 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q:\n%s", want, text)
		}
	}

	if err := r.WriteTextfile(""); err != nil {
		t.Errorf("empty path should be a no-op, got %v", err)
	}
}
