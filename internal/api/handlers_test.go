package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/savegress/remitmatch/internal/matching"
	"github.com/savegress/remitmatch/internal/storage"
	"github.com/savegress/remitmatch/pkg/models"
)

// stubSource is a ClaimSource with no data, so matching is cache-only.
type stubSource struct{}

func (stubSource) PatientsByName(ctx context.Context, lastName, firstName string) ([]models.Patient, error) {
	return nil, nil
}

func (stubSource) Patient(ctx context.Context, patNum int64) (*models.Patient, error) {
	return nil, nil
}

func (stubSource) ClaimsByPatient(ctx context.Context, patNum int64) ([]models.Claim, error) {
	return nil, nil
}

func (stubSource) ClaimsBySubscription(ctx context.Context, insSubNum int64) ([]models.Claim, error) {
	return nil, nil
}

func (stubSource) SubscriptionsBySubscriber(ctx context.Context, patNum int64) ([]models.InsSub, error) {
	return nil, nil
}

func (stubSource) ProceduresByClaim(ctx context.Context, claimNum int64) ([]models.ClaimProcedure, error) {
	return nil, nil
}

func (stubSource) PlansByPatient(ctx context.Context, patNum int64) ([]models.PatPlan, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*Server, *storage.ClaimStore) {
	t.Helper()
	store, err := storage.NewClaimStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	matcher := matching.New(&stubSource{}, nil, nil)
	return NewServer(matcher, store), store
}

func doJSON(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func cachedClaim(claimNum int64) models.Claim {
	return models.Claim{
		ClaimNum:         claimNum,
		PatNum:           7,
		DateService:      "2026-03-15",
		ClaimStatus:      models.ClaimStatusSent,
		ClaimFee:         decimal.NewFromInt(120),
		PatientFirstName: "William",
		PatientLastName:  "Smith",
		Procedures: []models.ClaimProcedure{
			{ClaimProcNum: 1, CodeSent: "D0120", FeeBilled: decimal.NewFromInt(120)},
		},
	}
}

func matchRequest() MatchRequest {
	return MatchRequest{
		Criteria: models.SearchCriteria{
			DateOfService:    "2026-03-15",
			PatientFirstName: "William",
			PatientLastName:  "Smith",
			PaymentInfo: models.PaymentInfo{
				Procedures: []models.ProcedurePayment{
					{ProcCode: "D0120", SubmittedAmt: decimal.NewFromInt(120), AmountPaid: decimal.NewFromInt(96)},
				},
			},
		},
		SkipRemote: true,
	}
}

func TestHealthCheck(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["status"] != "healthy" || body["service"] != "remitmatch" {
		t.Errorf("body = %v", body)
	}
}

func TestMatchClaimsFromCache(t *testing.T) {
	server, store := newTestServer(t)
	if err := store.SaveClaims(context.Background(), []models.Claim{cachedClaim(101)}); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	rec := doJSON(t, server, http.MethodPost, "/api/v1/remitmatch/match", matchRequest())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp MatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.RequestID == "" {
		t.Error("missing request id")
	}
	if resp.Count != 1 || len(resp.Matches) != 1 {
		t.Fatalf("matches = %+v", resp.Matches)
	}
	if resp.Matches[0].ClaimNum != 101 {
		t.Errorf("claim num = %d", resp.Matches[0].ClaimNum)
	}
	if resp.Matches[0].MatchSource != models.SourceCacheStrict {
		t.Errorf("source = %q", resp.Matches[0].MatchSource)
	}
}

func TestMatchClaimsNoMatches(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/remitmatch/match", matchRequest())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp MatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.Count != 0 || resp.Matches == nil {
		t.Errorf("resp = %+v", resp)
	}
}

func TestMatchClaimsBadDate(t *testing.T) {
	server, _ := newTestServer(t)

	req := matchRequest()
	req.Criteria.DateOfService = "03/15/2026"
	rec := doJSON(t, server, http.MethodPost, "/api/v1/remitmatch/match", req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestMatchClaimsBadBody(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/remitmatch/match", bytes.NewBufferString("not json"))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestMatchClaimsBatch(t *testing.T) {
	server, store := newTestServer(t)
	if err := store.SaveClaims(context.Background(), []models.Claim{cachedClaim(101)}); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	miss := matchRequest()
	miss.Criteria.PatientLastName = "Nguyen"
	rec := doJSON(t, server, http.MethodPost, "/api/v1/remitmatch/match/batch", []MatchRequest{matchRequest(), miss})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp BatchMatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if resp.RequestID == "" {
		t.Error("missing request id")
	}
	if len(resp.Results) != 2 {
		t.Fatalf("results = %+v", resp.Results)
	}
	if resp.Results[0].Count != 1 || resp.Results[0].Error != "" {
		t.Errorf("first result = %+v", resp.Results[0])
	}
	if resp.Results[1].Count != 0 || resp.Results[1].Matches == nil {
		t.Errorf("second result = %+v", resp.Results[1])
	}
}

func TestMatchClaimsBatchEmpty(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/remitmatch/match/batch", []MatchRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestSyncClaims(t *testing.T) {
	server, store := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/remitmatch/claims/sync", []models.Claim{cachedClaim(101), cachedClaim(102)})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["synced"] != 2 {
		t.Errorf("synced = %d", body["synced"])
	}

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("cached claims = %d", n)
	}
}

func TestSyncClaimsEmpty(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/remitmatch/claims/sync", []models.Claim{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestListCachedClaims(t *testing.T) {
	server, store := newTestServer(t)
	if err := store.SaveClaims(context.Background(), []models.Claim{cachedClaim(101)}); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	rec := doJSON(t, server, http.MethodGet, "/api/v1/remitmatch/claims/?date=2026-03-15", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var claims []models.Claim
	if err := json.Unmarshal(rec.Body.Bytes(), &claims); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(claims) != 1 || claims[0].ClaimNum != 101 {
		t.Errorf("claims = %+v", claims)
	}
}

func TestListCachedClaimsRequiresDate(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server, http.MethodGet, "/api/v1/remitmatch/claims/", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestGetStats(t *testing.T) {
	server, store := newTestServer(t)
	if err := store.SaveClaims(context.Background(), []models.Claim{cachedClaim(101)}); err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	// One request that matches, one that does not.
	doJSON(t, server, http.MethodPost, "/api/v1/remitmatch/match", matchRequest())
	miss := matchRequest()
	miss.Criteria.PatientLastName = "Nguyen"
	doJSON(t, server, http.MethodPost, "/api/v1/remitmatch/match", miss)

	rec := doJSON(t, server, http.MethodGet, "/api/v1/remitmatch/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var stats map[string]int64
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if stats["requests_total"] != 2 {
		t.Errorf("requests_total = %d", stats["requests_total"])
	}
	if stats["matches_found"] != 1 {
		t.Errorf("matches_found = %d", stats["matches_found"])
	}
	if stats["requests_no_match"] != 1 {
		t.Errorf("requests_no_match = %d", stats["requests_no_match"])
	}
	if stats["cached_claims"] != 1 {
		t.Errorf("cached_claims = %d", stats["cached_claims"])
	}
}
