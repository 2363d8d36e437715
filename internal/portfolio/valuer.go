package portfolio

import (
	"context"
	"sync"
	"time"

	"bondval/internal/bond"
	apperrors "bondval/internal/errors"
	"bondval/internal/logging"
	"bondval/internal/models"
	"bondval/internal/performance"
)

// DefaultSinkBatch is how many valuations are handed to a Sink at once.
const DefaultSinkBatch = 50

// Sink receives successful valuations in batches, typically the history store.
type Sink func([]models.Valuation) error

// Options configures a batch run.
type Options struct {
	Workers   int
	Sink      Sink
	SinkBatch int
}

// Result is the outcome of valuing one row. Err is a *errors.RowError when
// the row could not be valued.
type Result struct {
	Row      int
	ID       string
	Label    string
	Kind     string
	Measures bond.Measures
	Err      error
}

// Report collects the results of a batch run in input order.
type Report struct {
	Results    []Result
	Valuations []models.Valuation
	Failed     int
	Elapsed    time.Duration
}

// Succeeded returns the number of rows valued without error.
func (r *Report) Succeeded() int {
	return len(r.Results) - r.Failed
}

// Errors returns the per-row errors in input order.
func (r *Report) Errors() []error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errs
}

// Value values every row on a worker pool. A row that fails validation or
// pricing is reported in its Result and does not stop the run. The returned
// error is non-nil only for cancellation or a failing sink.
func Value(ctx context.Context, rows []*Row, opts Options) (*Report, error) {
	logger := logging.WithOperation(logging.FromContext(ctx), "batch")
	start := time.Now()

	report := &Report{Results: make([]Result, len(rows))}
	valuations := make([]*models.Valuation, len(rows))

	var (
		sinkMu  sync.Mutex
		sinkErr error
		batcher *performance.BatchProcessor[models.Valuation]
	)
	if opts.Sink != nil {
		size := opts.SinkBatch
		if size <= 0 {
			size = DefaultSinkBatch
		}
		batcher = performance.NewBatchProcessor(size, func(batch []models.Valuation) error {
			return opts.Sink(batch)
		})
	}
	recordSinkErr := func(err error) {
		sinkMu.Lock()
		defer sinkMu.Unlock()
		if sinkErr == nil {
			sinkErr = err
		}
	}

	pool := performance.NewWorkerPool(opts.Workers)
	pool.Start()

	var submitErr error
	for i, row := range rows {
		i, row := i, row
		err := pool.Submit(ctx, func() {
			res, v := valueRow(i+1, row)
			report.Results[i] = res
			if v == nil {
				return
			}
			valuations[i] = v
			if batcher != nil {
				if err := batcher.Add(*v); err != nil {
					recordSinkErr(err)
				}
			}
		})
		if err != nil {
			submitErr = err
			break
		}
	}
	pool.Stop()

	if batcher != nil {
		if err := batcher.Flush(); err != nil {
			recordSinkErr(err)
		}
	}

	for i := range report.Results {
		res := &report.Results[i]
		if res.Row == 0 {
			// Never submitted because the run was cancelled.
			res.Row, res.ID, res.Label, res.Kind = i+1, rows[i].ID, rows[i].Label, rows[i].Kind
			res.Err = &apperrors.RowError{Row: i + 1, ID: rows[i].ID, Err: submitErr}
		}
		if res.Err != nil {
			report.Failed++
			continue
		}
		report.Valuations = append(report.Valuations, *valuations[i])
	}
	report.Elapsed = time.Since(start)

	logger.Info().
		Int("rows", len(rows)).
		Int("failed", report.Failed).
		Dur("duration", report.Elapsed).
		Msg("Batch valued")

	if submitErr != nil {
		return report, submitErr
	}
	if sinkErr != nil {
		return report, apperrors.Wrap(sinkErr, "save batch valuations")
	}
	return report, nil
}

func valueRow(n int, row *Row) (Result, *models.Valuation) {
	res := Result{Row: n, ID: row.ID, Label: row.Label, Kind: row.Kind}

	kind, err := bond.ParseKind(row.Kind)
	if err != nil {
		res.Err = &apperrors.RowError{Row: n, ID: row.ID, Err: err}
		return res, nil
	}
	res.Kind = kind.String()

	inst, err := bond.New(row.TermSheet(), kind)
	if err != nil {
		res.Err = &apperrors.RowError{Row: n, ID: row.ID, Err: err}
		return res, nil
	}

	m, err := inst.Measures()
	if err != nil {
		res.Err = &apperrors.RowError{Row: n, ID: row.ID, Err: err}
		return res, nil
	}
	res.Measures = m

	v := models.NewValuation(row.Label, inst, m)
	return res, &v
}
