// Package opendental is a read client for the OpenDental REST API,
// covering the patient, claim, and insurance resources the matcher needs.
package opendental

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/savegress/remitmatch/pkg/models"
)

// Client talks to an OpenDental API gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
	authHeader string
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	BaseURL     string
	DevKey      string
	CustomerKey string
	Timeout     time.Duration
}

// NewClient creates a new OpenDental client.
func NewClient(config *ClientConfig) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		authHeader: fmt.Sprintf("ODFHIR %s/%s", config.DevKey, config.CustomerKey),
	}
}

// APIError represents an OpenDental API error response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("opendental error %d: %s", e.StatusCode, e.Message)
}

// get performs a GET request and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.authHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s response: %w", path, err)
	}
	return nil
}

// PatientsByName lists active patients by last name, optionally filtered by
// first name.
func (c *Client) PatientsByName(ctx context.Context, lastName, firstName string) ([]models.Patient, error) {
	params := url.Values{}
	params.Set("LName", lastName)
	if firstName != "" {
		params.Set("FName", firstName)
	}
	params.Set("PatStatus", "Patient")

	var patients []models.Patient
	if err := c.get(ctx, "/patients/Simple?"+params.Encode(), &patients); err != nil {
		return nil, err
	}
	return patients, nil
}

// Patient fetches a single patient by number.
func (c *Client) Patient(ctx context.Context, patNum int64) (*models.Patient, error) {
	var patient models.Patient
	if err := c.get(ctx, fmt.Sprintf("/patients/%d", patNum), &patient); err != nil {
		return nil, err
	}
	return &patient, nil
}

// ClaimsByPatient lists a patient's claims.
func (c *Client) ClaimsByPatient(ctx context.Context, patNum int64) ([]models.Claim, error) {
	var claims []models.Claim
	if err := c.get(ctx, fmt.Sprintf("/claims?PatNum=%d", patNum), &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// ClaimsBySubscription lists the claims filed under an insurance
// subscription.
func (c *Client) ClaimsBySubscription(ctx context.Context, insSubNum int64) ([]models.Claim, error) {
	var claims []models.Claim
	if err := c.get(ctx, fmt.Sprintf("/claims?InsSubNum=%d", insSubNum), &claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// SubscriptionsBySubscriber lists the insurance subscriptions a patient
// holds as subscriber.
func (c *Client) SubscriptionsBySubscriber(ctx context.Context, patNum int64) ([]models.InsSub, error) {
	var subs []models.InsSub
	if err := c.get(ctx, fmt.Sprintf("/inssubs?Subscriber=%d", patNum), &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// ProceduresByClaim lists the procedures attached to a claim.
func (c *Client) ProceduresByClaim(ctx context.Context, claimNum int64) ([]models.ClaimProcedure, error) {
	var procs []models.ClaimProcedure
	if err := c.get(ctx, fmt.Sprintf("/claimprocs?ClaimNum=%d", claimNum), &procs); err != nil {
		return nil, err
	}
	return procs, nil
}

// PlansByPatient lists a patient's insurance plan links.
func (c *Client) PlansByPatient(ctx context.Context, patNum int64) ([]models.PatPlan, error) {
	var plans []models.PatPlan
	if err := c.get(ctx, fmt.Sprintf("/patplans?PatNum=%d", patNum), &plans); err != nil {
		return nil, err
	}
	return plans, nil
}
