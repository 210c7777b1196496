// Package storage persists a local cache of practice-management claims so
// matching can run without hitting the remote API for every remittance.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/savegress/remitmatch/pkg/models"

	_ "github.com/mattn/go-sqlite3"
)

// ClaimStore is a SQLite-backed claim cache.
type ClaimStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// NewClaimStore creates a claim store under dataPath.
func NewClaimStore(dataPath string) (*ClaimStore, error) {
	// Ensure directory exists
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "claims.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &ClaimStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

func (s *ClaimStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS claims (
		claim_num INTEGER PRIMARY KEY,
		pat_num INTEGER NOT NULL,
		date_service TEXT NOT NULL,
		date_sent TEXT,
		date_received TEXT,
		claim_status TEXT NOT NULL,
		claim_type TEXT,
		claim_fee TEXT NOT NULL DEFAULT '0',
		claim_note TEXT,
		plan_num INTEGER DEFAULT 0,
		plan_num2 INTEGER DEFAULT 0,
		ins_sub_num INTEGER DEFAULT 0,
		ins_sub_num2 INTEGER DEFAULT 0,
		is_ortho INTEGER DEFAULT 0,
		ortho_remain_m INTEGER DEFAULT 0,
		ortho_total_m INTEGER DEFAULT 0,
		ortho_date TEXT,
		carrier_name TEXT,
		patient_first_name TEXT,
		patient_last_name TEXT,
		subscriber_first_name TEXT,
		subscriber_last_name TEXT,
		updated_at INTEGER DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_claims_date_service ON claims(date_service);
	CREATE INDEX IF NOT EXISTS idx_claims_pat_num ON claims(pat_num);

	CREATE TABLE IF NOT EXISTS claim_procs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		claim_num INTEGER NOT NULL,
		claim_proc_num INTEGER NOT NULL,
		code_sent TEXT NOT NULL,
		fee_billed TEXT NOT NULL DEFAULT '0',
		write_off TEXT NOT NULL DEFAULT '0',
		ins_pay_amt TEXT NOT NULL DEFAULT '0',
		ded_applied TEXT NOT NULL DEFAULT '0',
		status TEXT,
		tooth_num TEXT,
		remarks TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_claim_procs_claim ON claim_procs(claim_num);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveClaims upserts claims along with their procedure lines. Procedure
// lines are replaced wholesale so re-syncing a claim never duplicates them.
func (s *ClaimStore) SaveClaims(ctx context.Context, claims []models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	claimStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO claims (
			claim_num, pat_num, date_service, date_sent, date_received,
			claim_status, claim_type, claim_fee, claim_note,
			plan_num, plan_num2, ins_sub_num, ins_sub_num2,
			is_ortho, ortho_remain_m, ortho_total_m, ortho_date, carrier_name,
			patient_first_name, patient_last_name,
			subscriber_first_name, subscriber_last_name
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(claim_num) DO UPDATE SET
			pat_num = excluded.pat_num,
			date_service = excluded.date_service,
			date_sent = excluded.date_sent,
			date_received = excluded.date_received,
			claim_status = excluded.claim_status,
			claim_type = excluded.claim_type,
			claim_fee = excluded.claim_fee,
			claim_note = excluded.claim_note,
			plan_num = excluded.plan_num,
			plan_num2 = excluded.plan_num2,
			ins_sub_num = excluded.ins_sub_num,
			ins_sub_num2 = excluded.ins_sub_num2,
			is_ortho = excluded.is_ortho,
			ortho_remain_m = excluded.ortho_remain_m,
			ortho_total_m = excluded.ortho_total_m,
			ortho_date = excluded.ortho_date,
			carrier_name = excluded.carrier_name,
			patient_first_name = excluded.patient_first_name,
			patient_last_name = excluded.patient_last_name,
			subscriber_first_name = excluded.subscriber_first_name,
			subscriber_last_name = excluded.subscriber_last_name,
			updated_at = strftime('%s', 'now')
	`)
	if err != nil {
		return err
	}
	defer claimStmt.Close()

	procStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO claim_procs (
			claim_num, claim_proc_num, code_sent, fee_billed,
			write_off, ins_pay_amt, ded_applied, status, tooth_num, remarks
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer procStmt.Close()

	for _, claim := range claims {
		_, err := claimStmt.ExecContext(ctx,
			claim.ClaimNum, claim.PatNum, claim.DateService, claim.DateSent, claim.DateReceived,
			claim.ClaimStatus, claim.ClaimType, claim.ClaimFee.String(), claim.ClaimNote,
			claim.PlanNum, claim.PlanNum2, claim.InsSubNum, claim.InsSubNum2,
			claim.IsOrtho, claim.OrthoRemainM, claim.OrthoTotalM, claim.OrthoDate, claim.CarrierName,
			claim.PatientFirstName, claim.PatientLastName,
			claim.SubscriberFirstName, claim.SubscriberLastName,
		)
		if err != nil {
			return fmt.Errorf("failed to save claim %d: %w", claim.ClaimNum, err)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM claim_procs WHERE claim_num = ?", claim.ClaimNum); err != nil {
			return err
		}
		for _, proc := range claim.Procedures {
			_, err := procStmt.ExecContext(ctx,
				claim.ClaimNum, proc.ClaimProcNum, proc.CodeSent, proc.FeeBilled.String(),
				proc.WriteOff.String(), proc.InsPayAmt.String(), proc.DedApplied.String(),
				proc.Status, proc.ToothNum, proc.Remarks,
			)
			if err != nil {
				return fmt.Errorf("failed to save proc for claim %d: %w", claim.ClaimNum, err)
			}
		}
	}

	return tx.Commit()
}

// ClaimsForDate returns cached claims for a service date, procedure lines
// included.
func (s *ClaimStore) ClaimsForDate(ctx context.Context, dateService string) ([]models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT claim_num, pat_num, date_service, date_sent, date_received,
			claim_status, claim_type, claim_fee, claim_note,
			plan_num, plan_num2, ins_sub_num, ins_sub_num2,
			is_ortho, ortho_remain_m, ortho_total_m, ortho_date, carrier_name,
			patient_first_name, patient_last_name,
			subscriber_first_name, subscriber_last_name
		FROM claims WHERE date_service = ?
		ORDER BY claim_num
	`, dateService)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []models.Claim
	for rows.Next() {
		var claim models.Claim
		var fee string
		err := rows.Scan(
			&claim.ClaimNum, &claim.PatNum, &claim.DateService, &claim.DateSent, &claim.DateReceived,
			&claim.ClaimStatus, &claim.ClaimType, &fee, &claim.ClaimNote,
			&claim.PlanNum, &claim.PlanNum2, &claim.InsSubNum, &claim.InsSubNum2,
			&claim.IsOrtho, &claim.OrthoRemainM, &claim.OrthoTotalM, &claim.OrthoDate, &claim.CarrierName,
			&claim.PatientFirstName, &claim.PatientLastName,
			&claim.SubscriberFirstName, &claim.SubscriberLastName,
		)
		if err != nil {
			return nil, err
		}
		claim.ClaimFee = parseDecimal(fee)

		procs, err := s.procsForClaim(ctx, claim.ClaimNum)
		if err != nil {
			return nil, err
		}
		claim.Procedures = procs
		claims = append(claims, claim)
	}

	return claims, rows.Err()
}

func (s *ClaimStore) procsForClaim(ctx context.Context, claimNum int64) ([]models.ClaimProcedure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT claim_proc_num, code_sent, fee_billed, write_off,
			ins_pay_amt, ded_applied, status, tooth_num, remarks
		FROM claim_procs WHERE claim_num = ?
		ORDER BY id
	`, claimNum)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var procs []models.ClaimProcedure
	for rows.Next() {
		var proc models.ClaimProcedure
		var feeBilled, writeOff, insPay, dedApplied string
		err := rows.Scan(
			&proc.ClaimProcNum, &proc.CodeSent, &feeBilled, &writeOff,
			&insPay, &dedApplied, &proc.Status, &proc.ToothNum, &proc.Remarks,
		)
		if err != nil {
			return nil, err
		}
		proc.FeeBilled = parseDecimal(feeBilled)
		proc.WriteOff = parseDecimal(writeOff)
		proc.InsPayAmt = parseDecimal(insPay)
		proc.DedApplied = parseDecimal(dedApplied)
		procs = append(procs, proc)
	}

	return procs, rows.Err()
}

// DeleteBefore removes claims with a service date earlier than cutoff. Dates
// sort lexically because they are stored as YYYY-MM-DD.
func (s *ClaimStore) DeleteBefore(ctx context.Context, cutoff string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM claim_procs WHERE claim_num IN
			(SELECT claim_num FROM claims WHERE date_service < ?)
	`, cutoff); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM claims WHERE date_service < ?", cutoff); err != nil {
		return err
	}

	return tx.Commit()
}

// Count returns the number of cached claims.
func (s *ClaimStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM claims").Scan(&n)
	return n, err
}

// Close closes the store.
func (s *ClaimStore) Close() error {
	return s.db.Close()
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
