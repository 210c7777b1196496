package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/savegress/remitmatch/internal/matching"
	"github.com/savegress/remitmatch/internal/storage"
	"github.com/savegress/remitmatch/pkg/models"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	matcher *matching.Matcher
	store   *storage.ClaimStore

	requestsTotal   atomic.Int64
	matchesFound    atomic.Int64
	requestsNoMatch atomic.Int64
}

// NewHandlers creates new handlers
func NewHandlers(matcher *matching.Matcher, store *storage.ClaimStore) *Handlers {
	return &Handlers{
		matcher: matcher,
		store:   store,
	}
}

// MatchRequest is the payload for a match lookup. CachedClaims, when
// present, replaces the local claim cache for this request.
type MatchRequest struct {
	Criteria         models.SearchCriteria `json:"criteria"`
	CachedClaims     []models.Claim        `json:"cached_claims,omitempty"`
	SkipRemote       bool                  `json:"skip_remote,omitempty"`
	SkipSupplemental bool                  `json:"skip_supplemental,omitempty"`
}

// MatchResponse carries the matches for one remittance line.
type MatchResponse struct {
	RequestID string              `json:"request_id"`
	Matches   []models.ClaimMatch `json:"matches"`
	Count     int                 `json:"count"`
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "remitmatch",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// MatchClaims matches one remittance line against cached and live claims
func (h *Handlers) MatchClaims(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	h.requestsTotal.Add(1)

	cached := req.CachedClaims
	if cached == nil {
		var err error
		cached, err = h.store.ClaimsForDate(r.Context(), req.Criteria.DateOfService)
		if err != nil {
			log.Printf("claim cache lookup failed: %v", err)
			cached = nil
		}
	}

	matches, err := h.matcher.Match(r.Context(), &req.Criteria, cached, matching.Options{
		SkipRemote:       req.SkipRemote,
		SkipSupplemental: req.SkipSupplemental,
	})
	if err != nil {
		if errors.Is(err, matching.ErrInvalidDate) {
			respondError(w, http.StatusBadRequest, "date_of_service must be YYYY-MM-DD")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if len(matches) > 0 {
		h.matchesFound.Add(int64(len(matches)))
	} else {
		h.requestsNoMatch.Add(1)
		matches = []models.ClaimMatch{}
	}

	respond(w, http.StatusOK, MatchResponse{
		RequestID: uuid.New().String(),
		Matches:   matches,
		Count:     len(matches),
	})
}

// BatchMatchResult is the outcome for one line of a batch match.
type BatchMatchResult struct {
	Matches []models.ClaimMatch `json:"matches"`
	Count   int                 `json:"count"`
	Error   string              `json:"error,omitempty"`
}

// BatchMatchResponse carries per-line results in request order.
type BatchMatchResponse struct {
	RequestID string             `json:"request_id"`
	Results   []BatchMatchResult `json:"results"`
}

// MatchClaimsBatch matches every line of a multi-line EOB in one call
func (h *Handlers) MatchClaimsBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&reqs); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(reqs) == 0 {
		respondError(w, http.StatusBadRequest, "No lines to match")
		return
	}

	h.requestsTotal.Add(int64(len(reqs)))

	batch := make([]matching.BatchRequest, len(reqs))
	var opts matching.Options
	for i := range reqs {
		cached := reqs[i].CachedClaims
		if cached == nil {
			var err error
			cached, err = h.store.ClaimsForDate(r.Context(), reqs[i].Criteria.DateOfService)
			if err != nil {
				log.Printf("claim cache lookup failed: %v", err)
				cached = nil
			}
		}
		batch[i] = matching.BatchRequest{Criteria: &reqs[i].Criteria, Cached: cached}
		// One flag set anywhere applies to the whole batch.
		opts.SkipRemote = opts.SkipRemote || reqs[i].SkipRemote
		opts.SkipSupplemental = opts.SkipSupplemental || reqs[i].SkipSupplemental
	}

	results := h.matcher.MatchBatch(r.Context(), batch, opts, 0)

	out := make([]BatchMatchResult, len(results))
	for i, res := range results {
		matches := res.Matches
		if len(matches) > 0 {
			h.matchesFound.Add(int64(len(matches)))
		} else {
			h.requestsNoMatch.Add(1)
			matches = []models.ClaimMatch{}
		}
		out[i] = BatchMatchResult{Matches: matches, Count: len(matches)}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
		}
	}

	respond(w, http.StatusOK, BatchMatchResponse{
		RequestID: uuid.New().String(),
		Results:   out,
	})
}

// SyncClaims stores claims in the local cache
func (h *Handlers) SyncClaims(w http.ResponseWriter, r *http.Request) {
	var claims []models.Claim
	if err := json.NewDecoder(r.Body).Decode(&claims); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(claims) == 0 {
		respondError(w, http.StatusBadRequest, "No claims to sync")
		return
	}

	if err := h.store.SaveClaims(r.Context(), claims); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respond(w, http.StatusOK, map[string]int{"synced": len(claims)})
}

// ListCachedClaims lists cached claims for a service date
func (h *Handlers) ListCachedClaims(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		respondError(w, http.StatusBadRequest, "date query parameter is required")
		return
	}

	claims, err := h.store.ClaimsForDate(r.Context(), date)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if claims == nil {
		claims = []models.Claim{}
	}

	respond(w, http.StatusOK, claims)
}

// GetStats returns matching statistics
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	cachedClaims, err := h.store.Count(r.Context())
	if err != nil {
		log.Printf("claim count failed: %v", err)
	}

	respond(w, http.StatusOK, map[string]int64{
		"requests_total":    h.requestsTotal.Load(),
		"matches_found":     h.matchesFound.Load(),
		"requests_no_match": h.requestsNoMatch.Load(),
		"cached_claims":     cachedClaims,
	})
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{"error": message})
}
