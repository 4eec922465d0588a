// Package report turns raw suggestions into a short reviewer-style
// narrative via an external language model. Enrichment is strictly
// best-effort: the analysis result stands on its own and any enrichment
// failure degrades to the raw suggestions.
package report

import (
	"context"

	"advisor/internal/rules"
)

// Report is the enriched summary attached to an analysis result.
type Report struct {
	Narrative string `json:"narrative"`
	Model     string `json:"model"`
}

// Enricher produces a report for a snippet's suggestions.
type Enricher interface {
	Enrich(ctx context.Context, code string, suggestions []rules.Suggestion) (*Report, error)

	// Enabled reports whether Enrich can produce anything at all, so
	// callers can skip the call entirely.
	Enabled() bool
}

// NoopEnricher is the disabled enricher.
type NoopEnricher struct{}

func (NoopEnricher) Enrich(ctx context.Context, code string, suggestions []rules.Suggestion) (*Report, error) {
	return nil, nil
}

func (NoopEnricher) Enabled() bool { return false }
