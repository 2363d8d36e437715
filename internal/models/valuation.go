// Package models defines the records shared between the CLI, batch runner and store.
package models

import (
	"fmt"
	"sync/atomic"
	"time"

	"bondval/internal/bond"
)

// Valuation is a stored valuation: the inputs and the measures they produced.
type Valuation struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Label     string         `json:"label,omitempty"`
	Kind      bond.Kind      `json:"kind"`
	Terms     bond.TermSheet `json:"terms"`
	Measures  bond.Measures  `json:"measures"`
}

var idSeq atomic.Uint64

// NewValuationID returns a unique identifier for a valuation record.
func NewValuationID() string {
	return fmt.Sprintf("VAL-%d-%d", time.Now().UnixNano(), idSeq.Add(1))
}

// NewValuation builds a record for an instrument and its measures.
func NewValuation(label string, inst *bond.Instrument, m bond.Measures) Valuation {
	return Valuation{
		ID:        NewValuationID(),
		CreatedAt: time.Now().UTC(),
		Label:     label,
		Kind:      inst.Kind(),
		Terms:     inst.Terms(),
		Measures:  m,
	}
}
