package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/savegress/remitmatch/pkg/models"
)

func newTestStore(t *testing.T) *ClaimStore {
	t.Helper()
	store, err := NewClaimStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleClaim(claimNum int64, dateService string) models.Claim {
	return models.Claim{
		ClaimNum:         claimNum,
		PatNum:           7,
		DateService:      dateService,
		ClaimStatus:      models.ClaimStatusSent,
		ClaimType:        models.ClaimTypePrimary,
		ClaimFee:         decimal.NewFromFloat(185.50),
		PatientFirstName: "William",
		PatientLastName:  "Smith",
		Procedures: []models.ClaimProcedure{
			{ClaimProcNum: 1, CodeSent: "D0120", FeeBilled: decimal.NewFromInt(60)},
			{ClaimProcNum: 2, CodeSent: "D1110", FeeBilled: decimal.NewFromFloat(125.50)},
		},
	}
}

func TestNewClaimStore(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewClaimStore(tmpDir)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	if store.db == nil {
		t.Error("expected db to be initialized")
	}

	dbPath := filepath.Join(tmpDir, "claims.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewClaimStore_InvalidPath(t *testing.T) {
	file := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewClaimStore(filepath.Join(file, "sub")); err == nil {
		t.Error("expected error when data path cannot be created")
	}
}

func TestSaveAndLoadClaims(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveClaims(ctx, []models.Claim{sampleClaim(101, "2026-03-15")}); err != nil {
		t.Fatalf("failed to save claims: %v", err)
	}

	claims, err := store.ClaimsForDate(ctx, "2026-03-15")
	if err != nil {
		t.Fatalf("failed to load claims: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(claims))
	}

	claim := claims[0]
	if claim.ClaimNum != 101 || claim.PatNum != 7 {
		t.Errorf("claim = %+v", claim)
	}
	if claim.PatientFirstName != "William" || claim.PatientLastName != "Smith" {
		t.Errorf("names = %q %q", claim.PatientFirstName, claim.PatientLastName)
	}
	if !claim.ClaimFee.Equal(decimal.NewFromFloat(185.50)) {
		t.Errorf("fee = %s", claim.ClaimFee)
	}
	if len(claim.Procedures) != 2 {
		t.Fatalf("expected 2 procs, got %d", len(claim.Procedures))
	}
	if claim.Procedures[0].CodeSent != "D0120" {
		t.Errorf("first proc = %+v", claim.Procedures[0])
	}
	if !claim.Procedures[1].FeeBilled.Equal(decimal.NewFromFloat(125.50)) {
		t.Errorf("second proc fee = %s", claim.Procedures[1].FeeBilled)
	}
}

func TestClaimsForDateFiltersByDate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveClaims(ctx, []models.Claim{
		sampleClaim(101, "2026-03-15"),
		sampleClaim(102, "2026-03-16"),
	})
	if err != nil {
		t.Fatalf("failed to save claims: %v", err)
	}

	claims, err := store.ClaimsForDate(ctx, "2026-03-16")
	if err != nil {
		t.Fatalf("failed to load claims: %v", err)
	}
	if len(claims) != 1 || claims[0].ClaimNum != 102 {
		t.Errorf("claims = %+v", claims)
	}
}

func TestSaveClaimsReplacesProcedures(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	claim := sampleClaim(101, "2026-03-15")
	if err := store.SaveClaims(ctx, []models.Claim{claim}); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	claim.ClaimStatus = models.ClaimStatusReceived
	claim.Procedures = claim.Procedures[:1]
	if err := store.SaveClaims(ctx, []models.Claim{claim}); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	claims, err := store.ClaimsForDate(ctx, "2026-03-15")
	if err != nil {
		t.Fatalf("failed to load claims: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(claims))
	}
	if claims[0].ClaimStatus != models.ClaimStatusReceived {
		t.Errorf("status = %q", claims[0].ClaimStatus)
	}
	if len(claims[0].Procedures) != 1 {
		t.Errorf("expected procs replaced, got %d", len(claims[0].Procedures))
	}
}

func TestClaimsForDateEmpty(t *testing.T) {
	store := newTestStore(t)

	claims, err := store.ClaimsForDate(context.Background(), "2026-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(claims) != 0 {
		t.Errorf("claims = %+v", claims)
	}
}

func TestDeleteBefore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SaveClaims(ctx, []models.Claim{
		sampleClaim(101, "2026-01-10"),
		sampleClaim(102, "2026-03-15"),
	})
	if err != nil {
		t.Fatalf("failed to save claims: %v", err)
	}

	if err := store.DeleteBefore(ctx, "2026-02-01"); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}

	old, err := store.ClaimsForDate(ctx, "2026-01-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(old) != 0 {
		t.Errorf("old claims survived: %+v", old)
	}

	recent, err := store.ClaimsForDate(ctx, "2026-03-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recent) != 1 {
		t.Errorf("recent claims = %+v", recent)
	}
}

func TestCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d", n)
	}

	err = store.SaveClaims(ctx, []models.Claim{
		sampleClaim(101, "2026-03-15"),
		sampleClaim(102, "2026-03-16"),
	})
	if err != nil {
		t.Fatalf("failed to save claims: %v", err)
	}

	n, err = store.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d", n)
	}
}
