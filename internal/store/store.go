// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"bondval/internal/bond"
	"bondval/internal/models"
)

// DataStore defines the interface for valuation history persistence.
type DataStore interface {
	SaveValuation(ctx context.Context, v *models.Valuation) error
	SaveValuations(ctx context.Context, vs []models.Valuation) error
	GetValuation(ctx context.Context, id string) (*models.Valuation, error)
	GetValuations(ctx context.Context, filter ValuationFilter) ([]models.Valuation, error)
	DeleteValuations(ctx context.Context, filter ValuationFilter) (int64, error)

	// Lifecycle
	Close() error
}

// ValuationFilter represents filters for querying valuations.
type ValuationFilter struct {
	Kind  bond.Kind
	Label string
	Since time.Time
	Until time.Time
	Limit int
}
