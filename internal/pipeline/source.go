package pipeline

import (
	"context"
	"errors"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// ErrUnknownStation is returned when a catalog has no source for a station.
var ErrUnknownStation = errors.New("unknown station")

// Source supplies the raw rows of one station.
type Source interface {
	// ID identifies the current version of the data. It changes whenever the
	// underlying rows change, so it doubles as the store key.
	ID() string
	Station() string
	Extract(ctx context.Context) ([]domain.RawRecord, error)
}

// Catalog resolves station names to sources.
type Catalog interface {
	Stations(ctx context.Context) ([]string, error)
	Source(ctx context.Context, station string) (Source, error)
}
