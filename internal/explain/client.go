// Package explain provides an HTTP client for the advisory explanation
// service. Explanations never alter an assessment; any failure here
// degrades to an empty narrative.
package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/maternal-risk-server/internal/domain"
)

// Client calls the explanation service with a circuit breaker so a
// failing narrative backend cannot slow down assessments.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *logrus.Logger
}

// NewClient creates a new explanation service client.
func NewClient(cfg domain.ExplanationConfig, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = 60 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ExplanationService",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		log:        logger,
	}
}

// explainRequest is the wire format sent to the explanation service.
type explainRequest struct {
	PatientID        string   `json:"patient_id"`
	RiskCategory     string   `json:"risk_category"`
	ReferralRequired bool     `json:"referral_required"`
	TriggerReason    string   `json:"trigger_reason"`
	EvidenceSummary  string   `json:"evidence_summary,omitempty"`
	ConfidenceTier   string   `json:"confidence_tier,omitempty"`
	Findings         []string `json:"findings,omitempty"`
}

type explainResponse struct {
	Explanation string `json:"explanation"`
}

// Explain requests a narrative for a completed assessment.
func (c *Client) Explain(ctx context.Context, resp *domain.AssessmentResponse) (string, error) {
	if resp == nil || resp.Assessment == nil {
		return "", fmt.Errorf("assessment is required")
	}

	req := explainRequest{
		PatientID:        resp.PatientID,
		RiskCategory:     string(resp.Assessment.RiskCategory),
		ReferralRequired: resp.Assessment.ReferralRequired,
		TriggerReason:    resp.Assessment.TriggerReason,
	}
	if resp.Evidence != nil {
		req.EvidenceSummary = resp.Evidence.Summary
		for _, item := range resp.Evidence.Items {
			req.Findings = append(req.Findings, item.Detail)
		}
	}
	if resp.Confidence != nil {
		req.ConfidenceTier = string(resp.Confidence.Tier)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState {
			return "", fmt.Errorf("explanation service unavailable (circuit breaker open)")
		}
		return "", fmt.Errorf("explanation request failed: %w", err)
	}

	return result.(string), nil
}

func (c *Client) post(ctx context.Context, req explainRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/explain", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("calling explanation service: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, httpResp.Body)
		return "", fmt.Errorf("explanation service returned status %d", httpResp.StatusCode)
	}

	var parsed explainResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return parsed.Explanation, nil
}

// BreakerState reports the current circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}
