package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"advisor/internal/analyzer"
	"advisor/internal/report"
	"advisor/internal/version"
)

// maxRequestBytes bounds the analyze request body.
const maxRequestBytes = 1 << 20

// AnalyzeRequest is the POST /analyze request body.
type AnalyzeRequest struct {
	Code            string `json:"code"`
	LanguageVersion string `json:"language_version"`
	UseCache        *bool  `json:"use_cache,omitempty"`
	Enrich          bool   `json:"enrich,omitempty"`
}

// AnalyzeResponse is the analysis result plus the optional enrichment
// report.
type AnalyzeResponse struct {
	*analyzer.AnalysisResult
	Report *report.Report `json:"report,omitempty"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w)
		return
	}

	var req AnalyzeRequest
	body := io.LimitReader(r.Body, maxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		BadRequest(w, "invalid JSON request body")
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		BadRequest(w, "code must not be empty")
		return
	}
	if req.LanguageVersion == "" {
		req.LanguageVersion = "3"
	}

	unit := analyzer.SourceUnit{
		Code:            req.Code,
		LanguageVersion: req.LanguageVersion,
	}

	var result *analyzer.AnalysisResult
	var err error
	if req.UseCache != nil && !*req.UseCache {
		result, err = s.service.AnalyzeUncached(r.Context(), unit)
	} else {
		result, err = s.service.Analyze(r.Context(), unit)
	}
	if err != nil {
		s.logger.Error("Analysis failed", map[string]interface{}{
			"error":     err.Error(),
			"requestID": GetRequestID(r.Context()),
		})
		WriteError(w, err)
		return
	}

	resp := AnalyzeResponse{AnalysisResult: result}
	if req.Enrich && s.enricher.Enabled() {
		if rep, enrichErr := s.enricher.Enrich(r.Context(), req.Code, result.Suggestions); enrichErr != nil {
			s.logger.Warn("Report enrichment failed, returning raw suggestions", map[string]interface{}{
				"error":     enrichErr.Error(),
				"requestID": GetRequestID(r.Context()),
			})
		} else {
			resp.Report = rep
		}
	}

	WriteJSON(w, resp, http.StatusOK)
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status      string   `json:"status"`
	Cache       string   `json:"cache"`
	RulesLoaded int      `json:"rules_loaded"`
	Rules       []string `json:"rules"`
	Version     string   `json:"version"`
	Timestamp   string   `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}

	ruleIDs := s.service.RuleIDs()
	WriteJSON(w, HealthResponse{
		Status:      "ok",
		Cache:       s.service.CacheState(r.Context()),
		RulesLoaded: len(ruleIDs),
		Rules:       ruleIDs,
		Version:     version.Info(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// ReadyResponse is the GET /ready body.
type ReadyResponse struct {
	Ready bool   `json:"ready"`
	Cache string `json:"cache"`
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}

	// The fallback backend keeps the service usable during a primary
	// outage, so readiness only degrades, it never fails.
	WriteJSON(w, ReadyResponse{
		Ready: true,
		Cache: s.service.CacheState(r.Context()),
	}, http.StatusOK)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w)
		return
	}
	if s.history == nil {
		WriteJSON(w, map[string]interface{}{"entries": []interface{}{}, "enabled": false}, http.StatusOK)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 500 {
			BadRequest(w, "limit must be an integer between 1 and 500")
			return
		}
		limit = parsed
	}

	entries, err := s.history.List(r.URL.Query().Get("fingerprint"), limit)
	if err != nil {
		s.logger.Error("Failed to list history", map[string]interface{}{
			"error":     err.Error(),
			"requestID": GetRequestID(r.Context()),
		})
		InternalError(w, "failed to list history")
		return
	}

	WriteJSON(w, map[string]interface{}{"entries": entries, "enabled": true}, http.StatusOK)
}
