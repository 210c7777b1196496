package models

import (
	"github.com/shopspring/decimal"
)

// ClaimStatus codes as stored by the practice-management system.
const (
	ClaimStatusSent     = "S"
	ClaimStatusHeld     = "H"
	ClaimStatusReceived = "R"
)

// ClaimType codes. "S" marks a claim submitted to a secondary plan.
const (
	ClaimTypePrimary   = "P"
	ClaimTypeSecondary = "S"
)

// MatchSource tags how a ClaimMatch was found.
type MatchSource string

const (
	SourceCacheStrict           MatchSource = "cache_strict"
	SourceCacheAlternateBenefit MatchSource = "cache_alternate_benefit"
	SourceCacheCountMatch       MatchSource = "cache_count_match"
	SourceAPIStrict             MatchSource = "api_strict"
	SourceAPIAlternateBenefit   MatchSource = "api_alternate_benefit"
	SourceAPICountMatch         MatchSource = "api_count_match"
	SourceAPISupplemental       MatchSource = "api_supplemental"
)

// ProcedurePayment is one remittance line from an EOB. ProcCode is expected
// to already be in canonical form (see procedures.NormalizeCode).
type ProcedurePayment struct {
	ProcCode          string          `json:"proc_code"`
	SubmittedAmt      decimal.Decimal `json:"submitted_amt"`
	AmountPaid        decimal.Decimal `json:"amount_paid"`
	Remarks           string          `json:"remarks,omitempty"`
	Deductible        decimal.Decimal `json:"deductible"`
	WriteOff          decimal.Decimal `json:"writeoff"`
	MarkAsNotReceived bool            `json:"mark_as_not_received,omitempty"`
}

// PaymentInfo is the remittance payload of an EOB.
type PaymentInfo struct {
	Procedures  []ProcedurePayment `json:"procedures"`
	CheckNumber string             `json:"check_number,omitempty"`
	CheckAmount decimal.Decimal    `json:"check_amount"`
	DateIssued  string             `json:"date_issued,omitempty"`
	BankBranch  string             `json:"bank_branch,omitempty"`
	CarrierName string             `json:"carrier_name,omitempty"`
	PayType     int                `json:"pay_type,omitempty"`
	Note        string             `json:"note,omitempty"`
}

// SearchCriteria is the matching input for one remittance line.
type SearchCriteria struct {
	DateOfService       string      `json:"date_of_service"`
	PatientFirstName    string      `json:"patient_first_name"`
	PatientLastName     string      `json:"patient_last_name"`
	SubscriberFirstName string      `json:"subscriber_first_name,omitempty"`
	SubscriberLastName  string      `json:"subscriber_last_name,omitempty"`
	PaymentInfo         PaymentInfo `json:"payment_info"`
}

// Patient is a practice-management patient record.
type Patient struct {
	PatNum    int64  `json:"PatNum"`
	FirstName string `json:"FName"`
	LastName  string `json:"LName"`
	PatStatus string `json:"PatStatus,omitempty"`
}

// InsSub is an insurance subscription held by a subscriber.
// DateTerm "0001-01-01" means the subscription has no termination date.
type InsSub struct {
	InsSubNum  int64  `json:"InsSubNum"`
	Subscriber int64  `json:"Subscriber"`
	PlanNum    int64  `json:"PlanNum"`
	DateTerm   string `json:"DateTerm,omitempty"`
}

// PatPlan links a patient to one of their insurance plans.
type PatPlan struct {
	PatPlanNum int64 `json:"PatPlanNum"`
	PatNum     int64 `json:"PatNum"`
	InsSubNum  int64 `json:"InsSubNum"`
	Ordinal    int   `json:"Ordinal,omitempty"`
}

// ClaimProcedure is one billed service line within a claim.
type ClaimProcedure struct {
	ClaimProcNum     int64           `json:"ClaimProcNum"`
	CodeSent         string          `json:"CodeSent"`
	FeeBilled        decimal.Decimal `json:"FeeBilled"`
	WriteOff         decimal.Decimal `json:"WriteOff"`
	InsPayAmt        decimal.Decimal `json:"InsPayAmt"`
	DedApplied       decimal.Decimal `json:"DedApplied"`
	Status           string          `json:"Status,omitempty"`
	DateInsFinalized string          `json:"DateInsFinalized,omitempty"`
	ToothNum         string          `json:"ToothNum,omitempty"`
	Remarks          string          `json:"Remarks,omitempty"`
	MatchesUCR       bool            `json:"matchesUCR,omitempty"`
	UCRAmount        decimal.Decimal `json:"ucr_amount"`
}

// Claim is a practice-management claim record. The patient / subscriber name
// fields are only populated on cached records; live records resolve names
// through separate patient lookups.
type Claim struct {
	ClaimNum     int64           `json:"ClaimNum"`
	PatNum       int64           `json:"PatNum"`
	DateService  string          `json:"DateService"`
	DateSent     string          `json:"DateSent,omitempty"`
	DateReceived string          `json:"DateReceived,omitempty"`
	ClaimStatus  string          `json:"ClaimStatus"`
	ClaimType    string          `json:"ClaimType,omitempty"`
	ClaimFee     decimal.Decimal `json:"ClaimFee"`
	ClaimNote    string          `json:"ClaimNote,omitempty"`
	PlanNum      int64           `json:"PlanNum,omitempty"`
	PlanNum2     int64           `json:"PlanNum2,omitempty"`
	InsSubNum    int64           `json:"InsSubNum,omitempty"`
	InsSubNum2   int64           `json:"InsSubNum2,omitempty"`
	IsOrtho      bool            `json:"IsOrtho,omitempty"`
	OrthoRemainM int             `json:"OrthoRemainM,omitempty"`
	OrthoTotalM  int             `json:"OrthoTotalM,omitempty"`
	OrthoDate    string          `json:"OrthoDate,omitempty"`
	CarrierName  string          `json:"carrier_name,omitempty"`

	// Cache-only fields.
	PatientFirstName    string           `json:"patient_first_name,omitempty"`
	PatientLastName     string           `json:"patient_last_name,omitempty"`
	SubscriberFirstName string           `json:"subscriber_first_name,omitempty"`
	SubscriberLastName  string           `json:"subscriber_last_name,omitempty"`
	Procedures          []ClaimProcedure `json:"procedures,omitempty"`
}

// IsSecondary reports whether the claim was submitted to a secondary plan.
func (c *Claim) IsSecondary() bool {
	return c.ClaimType == ClaimTypeSecondary
}

// OrthoDetails carries orthodontic treatment progress for ortho claims.
type OrthoDetails struct {
	RemainingMonths int    `json:"ortho_remain_m"`
	TotalMonths     int    `json:"ortho_total_m"`
	StartDate       string `json:"ortho_date"`
}

// ClaimMatch is one matched claim returned to the caller. MatchScore is nil
// for supplemental matches, which bypass scoring entirely.
type ClaimMatch struct {
	ClaimNum            int64            `json:"claim_num"`
	PatNum              int64            `json:"pat_num"`
	ClaimFee            decimal.Decimal  `json:"claim_fee"`
	DateOfService       string           `json:"date_of_service"`
	DateSent            string           `json:"date_sent,omitempty"`
	DateReceived        string           `json:"date_received,omitempty"`
	ClaimNote           string           `json:"claim_note,omitempty"`
	IsSecondary         bool             `json:"is_secondary"`
	HasSecondaryPlan    bool             `json:"has_secondary_plan"`
	HasPendingSecondary bool             `json:"has_pending_secondary"`
	MatchScore          *int             `json:"match_score,omitempty"`
	MatchSource         MatchSource      `json:"match_source,omitempty"`
	Procedures          []ClaimProcedure `json:"claim_procs,omitempty"`
	IsOrtho             bool             `json:"isOrtho,omitempty"`
	Ortho               *OrthoDetails    `json:"ortho_details,omitempty"`
	IsSupplemental      bool             `json:"is_supplemental,omitempty"`
	CarrierName         string           `json:"carrier_name,omitempty"`
	ClaimStatus         string           `json:"claim_status,omitempty"`
}
