package matching

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/savegress/remitmatch/pkg/models"
)

func TestMatchBatchEmpty(t *testing.T) {
	m := New(&fakeSource{}, nil, nil)
	results := m.MatchBatch(context.Background(), nil, Options{}, 4)
	if len(results) != 0 {
		t.Errorf("results = %+v", results)
	}
}

func TestMatchBatchOrderPreserved(t *testing.T) {
	m := New(smithSource(), nil, nil)

	hit := remitCriteria("D0120")
	miss := remitCriteria("D0120")
	miss.PatientLastName = "Nguyen"
	bad := remitCriteria("D0120")
	bad.DateOfService = "03/15/2026"

	results := m.MatchBatch(context.Background(), []BatchRequest{
		{Criteria: hit},
		{Criteria: miss},
		{Criteria: bad},
	}, Options{}, 2)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || len(results[0].Matches) != 1 {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].Err != nil || len(results[1].Matches) != 0 {
		t.Errorf("second result = %+v", results[1])
	}
	if results[2].Err != ErrInvalidDate {
		t.Errorf("third result err = %v", results[2].Err)
	}
}

func TestMatchBatchCachedOnly(t *testing.T) {
	m := New(&fakeSource{}, nil, nil)

	criteria := remitCriteria("D0120")
	cached := []models.Claim{{
		ClaimNum:         301,
		PatNum:           7,
		DateService:      "2026-03-15",
		ClaimStatus:      models.ClaimStatusSent,
		ClaimType:        models.ClaimTypePrimary,
		PatientFirstName: "William",
		PatientLastName:  "Smith",
		Procedures: []models.ClaimProcedure{
			{CodeSent: "D0120", FeeBilled: decimal.NewFromInt(120)},
		},
	}}

	results := m.MatchBatch(context.Background(), []BatchRequest{
		{Criteria: criteria, Cached: cached},
	}, Options{SkipRemote: true}, 1)

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Err != nil || len(results[0].Matches) != 1 {
		t.Fatalf("result = %+v", results[0])
	}
	if results[0].Matches[0].MatchSource != models.SourceCacheStrict {
		t.Errorf("source = %q", results[0].Matches[0].MatchSource)
	}
}

func TestMatchBatchMoreWorkersThanRequests(t *testing.T) {
	m := New(smithSource(), nil, nil)

	results := m.MatchBatch(context.Background(), []BatchRequest{
		{Criteria: remitCriteria("D0120")},
	}, Options{}, 16)

	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("results = %+v", results)
	}
}
