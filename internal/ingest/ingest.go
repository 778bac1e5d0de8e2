// Package ingest defines the boundary to provider billing exports. The
// core never talks to cloud APIs itself; an Adapter produces normalized
// daily cost records for a subscription and the credential handling
// stays on the adapter's side of the line.
package ingest

import (
	"context"
	"time"

	"github.com/costwatch/costwatch/internal/domain/cost"
	"github.com/costwatch/costwatch/internal/domain/subscription"
)

// Adapter fetches daily cost records for one subscription over a date
// range. Implementations resolve the subscription's credential_ref
// themselves.
type Adapter interface {
	FetchCosts(ctx context.Context, sub *subscription.Subscription, from, to time.Time) ([]cost.Record, error)
}

// Static is an in-memory adapter serving pre-loaded records, used in
// tests and local development.
type Static struct {
	records map[string][]cost.Record
	err     error
}

// NewStatic creates an empty static adapter
func NewStatic() *Static {
	return &Static{records: make(map[string][]cost.Record)}
}

// Load adds records for a subscription
func (s *Static) Load(subscriptionID string, records ...cost.Record) {
	s.records[subscriptionID] = append(s.records[subscriptionID], records...)
}

// Fail makes every subsequent fetch return err
func (s *Static) Fail(err error) {
	s.err = err
}

func (s *Static) FetchCosts(_ context.Context, sub *subscription.Subscription, from, to time.Time) ([]cost.Record, error) {
	if s.err != nil {
		return nil, s.err
	}

	var out []cost.Record
	for _, rec := range s.records[sub.ID] {
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
