package ingest

import (
	"context"
	"fmt"

	"github.com/raolivei/swimTO-sub000/internal/contracts"
)

// Source is an upstream program listing adapter. Every source, whether a
// structured feed, a per-location JSON API or a best-effort scraper,
// normalizes its payload into RawRecords behind this interface so the
// orchestrator can treat them identically.
type Source interface {
	// Name identifies the source; it becomes the SourceID on every
	// record the source produces.
	Name() string

	// Fetch retrieves and normalizes the source's current listings.
	Fetch(ctx context.Context) ([]contracts.RawRecord, error)
}

// FetchError wraps a per-source fetch failure. The orchestrator recovers
// from it by skipping the source for the run.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
