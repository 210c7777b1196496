// Package matching scores practice-management claims against insurance
// remittance data and picks the claims a payment can be posted to.
package matching

import (
	"context"
	"errors"

	"github.com/savegress/remitmatch/pkg/models"
)

// ErrInvalidDate is returned when the criteria date of service cannot
// be parsed.
var ErrInvalidDate = errors.New("matching: invalid date of service")

// ClaimSource is the practice management system read surface the matcher
// queries for candidates. Implementations wrap the OpenDental REST API.
type ClaimSource interface {
	// PatientsByName lists active patients whose names match the given
	// last and first name. firstName may be empty for last-name-only
	// lookups.
	PatientsByName(ctx context.Context, lastName, firstName string) ([]models.Patient, error)

	// Patient fetches a single patient record.
	Patient(ctx context.Context, patNum int64) (*models.Patient, error)

	// ClaimsByPatient lists all claims belonging to a patient.
	ClaimsByPatient(ctx context.Context, patNum int64) ([]models.Claim, error)

	// ClaimsBySubscription lists all claims filed under an insurance
	// subscription.
	ClaimsBySubscription(ctx context.Context, insSubNum int64) ([]models.Claim, error)

	// SubscriptionsBySubscriber lists the insurance subscriptions a
	// patient holds as subscriber.
	SubscriptionsBySubscriber(ctx context.Context, patNum int64) ([]models.InsSub, error)

	// ProceduresByClaim lists the procedures attached to a claim.
	ProceduresByClaim(ctx context.Context, claimNum int64) ([]models.ClaimProcedure, error)

	// PlansByPatient lists the patient's insurance plan links.
	PlansByPatient(ctx context.Context, patNum int64) ([]models.PatPlan, error)
}

// CarrierResolver resolves the insurance carrier name for a claim. Lookups
// are best effort; an unresolvable carrier yields an empty string.
type CarrierResolver interface {
	CarrierName(ctx context.Context, claim *models.Claim) string
}
