// Package analyzer orchestrates the full analysis pipeline: fingerprint,
// cache lookup, lease-guarded parse and rule evaluation, cache
// write-through, and best-effort history recording.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"advisor/internal/cache"
	advisorerrors "advisor/internal/errors"
	"advisor/internal/fingerprint"
	"advisor/internal/history"
	"advisor/internal/logging"
	"advisor/internal/parser"
	"advisor/internal/rules"
)

// SourceUnit is one snippet submitted for analysis. Immutable per request.
type SourceUnit struct {
	Code            string
	LanguageVersion string
}

// AnalysisResult is the outcome of analyzing one source unit. Suggestions
// are in the engine's stable order. Cached reports whether the result was
// served from the cache; AnalysisTimeMs always carries the wall-clock
// duration of the original analysis pass, not of this request.
type AnalysisResult struct {
	Fingerprint    string             `json:"fingerprint"`
	Suggestions    []rules.Suggestion `json:"suggestions"`
	AnalysisTimeMs int64              `json:"analysis_time_ms"`
	Cached         bool               `json:"cached"`
}

// Service runs analyses. Safe for concurrent use.
type Service struct {
	parser    *parser.Adapter
	engine    *rules.Engine
	cache     *cache.Facade
	history   *history.Store
	resultTTL time.Duration
	logger    *logging.Logger
}

// Options carries the optional collaborators of a Service.
type Options struct {
	// History enables best-effort persistence of each fresh analysis.
	History *history.Store
}

// NewService wires the analysis pipeline.
func NewService(p *parser.Adapter, engine *rules.Engine, facade *cache.Facade, resultTTL time.Duration, logger *logging.Logger, opts Options) *Service {
	return &Service{
		parser:    p,
		engine:    engine,
		cache:     facade,
		history:   opts.History,
		resultTTL: resultTTL,
		logger:    logger,
	}
}

// Analyze analyzes one source unit. Identical input yields an identical
// result; concurrent identical requests share a single analysis pass via
// the cache facade's dedup lease. Syntactically invalid code is not an
// error: it yields a single syntax_error suggestion, which is cached like
// any other result.
func (s *Service) Analyze(ctx context.Context, unit SourceUnit) (*AnalysisResult, error) {
	if unit.Code == "" {
		return nil, advisorerrors.New(advisorerrors.InvalidRequest, "code must not be empty", nil)
	}

	fp := fingerprint.Compute([]byte(unit.Code), unit.LanguageVersion).String()

	if cached, ok, err := s.cache.Get(ctx, fp); err == nil && ok {
		result, decodeErr := decodeResult(cached, fp)
		if decodeErr == nil {
			result.Cached = true
			return result, nil
		}
		// A corrupt cache entry falls through to recomputation.
		s.logger.Warn("Discarding undecodable cache entry", map[string]interface{}{
			"fingerprint": fp,
			"error":       decodeErr.Error(),
		})
	}

	payload, fromCache, err := s.cache.Do(ctx, fp, s.resultTTL, func(ctx context.Context) ([]byte, error) {
		return s.compute(ctx, unit, fp)
	})
	if err != nil {
		return nil, err
	}

	result, err := decodeResult(payload, fp)
	if err != nil {
		return nil, advisorerrors.New(advisorerrors.InternalError, "failed to decode analysis result", err)
	}
	result.Cached = fromCache
	return result, nil
}

// AnalyzeUncached runs the pipeline bypassing the cache entirely. Used by
// the CLI's --no-cache path.
func (s *Service) AnalyzeUncached(ctx context.Context, unit SourceUnit) (*AnalysisResult, error) {
	if unit.Code == "" {
		return nil, advisorerrors.New(advisorerrors.InvalidRequest, "code must not be empty", nil)
	}

	fp := fingerprint.Compute([]byte(unit.Code), unit.LanguageVersion).String()
	payload, err := s.compute(ctx, unit, fp)
	if err != nil {
		return nil, advisorerrors.New(advisorerrors.LeaseFailed, "analysis computation failed", err)
	}
	result, err := decodeResult(payload, fp)
	if err != nil {
		return nil, advisorerrors.New(advisorerrors.InternalError, "failed to decode analysis result", err)
	}
	return result, nil
}

// compute performs one full analysis pass and returns the encoded result
// snapshot for the cache.
func (s *Service) compute(ctx context.Context, unit SourceUnit, fp string) ([]byte, error) {
	start := time.Now()

	tree, failure, err := s.parser.Parse(ctx, []byte(unit.Code))
	if err != nil {
		return nil, err
	}

	var suggestions []rules.Suggestion
	if failure != nil {
		suggestions = []rules.Suggestion{syntaxErrorSuggestion(failure)}
	} else {
		suggestions = s.engine.Evaluate(tree)
	}

	result := &AnalysisResult{
		Fingerprint:    fp,
		Suggestions:    suggestions,
		AnalysisTimeMs: time.Since(start).Milliseconds(),
		Cached:         false,
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis result: %w", err)
	}

	if s.history != nil {
		s.history.RecordAsync(fp, []byte(unit.Code), suggestions, result.AnalysisTimeMs, unit.LanguageVersion)
	}

	return payload, nil
}

// RuleIDs exposes the registered rule identity for health reporting.
func (s *Service) RuleIDs() []string {
	return s.engine.RuleIDs()
}

// CacheState reports the cache facade's serving mode for health output.
func (s *Service) CacheState(ctx context.Context) string {
	return s.cache.State(ctx)
}

// syntaxErrorSuggestion converts a parse failure into the single
// suggestion emitted for unparseable snippets.
func syntaxErrorSuggestion(failure *parser.ParseFailure) rules.Suggestion {
	return rules.Suggestion{
		RuleID:   rules.SyntaxErrorID,
		Message:  failure.Message,
		Severity: rules.SeverityError,
		Line:     failure.Line,
		Column:   failure.Column,
		Metadata: map[string]interface{}{},
	}
}

// decodeResult decodes a cached snapshot into a fresh result value so
// callers never share or mutate cached state.
func decodeResult(payload []byte, fp string) (*AnalysisResult, error) {
	var result AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, err
	}
	if result.Fingerprint == "" {
		result.Fingerprint = fp
	}
	if result.Suggestions == nil {
		result.Suggestions = []rules.Suggestion{}
	}
	return &result, nil
}
