package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"trichmind.app/backend/internal/analytics"
)

// ErrScorerUnavailable covers every way the ML service can fail: transport
// errors, timeouts, non-2xx statuses, and malformed response bodies. The
// orchestrator recovers from all of them with the heuristic fallback.
var ErrScorerUnavailable = errors.New("scorer unavailable")

// ScorerService is the client for the ML inference API. One synchronous
// call per overview request, bounded timeout, no retries.
type ScorerService struct {
	baseURL string
	client  *http.Client
}

func NewScorerService(baseURL string, timeout time.Duration) *ScorerService {
	return &ScorerService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// scorerResponse is the subset of the inference API's prediction payload
// the engine consumes. RiskScore is a pointer so a missing field can be
// told apart from a zero score during validation.
type scorerResponse struct {
	RiskScore    *float64 `json:"risk_score"`
	RiskBucket   string   `json:"risk_bucket"`
	Confidence   float64  `json:"confidence"`
	ModelVersion string   `json:"model_version"`
}

// PredictRelapseOverview posts the feature vector to the ML service and
// normalizes the prediction into a RiskSummary. The response shape is
// validated before it is trusted: a numeric risk_score in [0,1] must be
// present, else the call counts as a failure.
func (s *ScorerService) PredictRelapseOverview(ctx context.Context, fv *analytics.FeatureVector) (*analytics.RiskSummary, error) {
	body, err := json.Marshal(fv)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal features: %v", ErrScorerUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/predict_relapse_overview", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrScorerUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScorerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrScorerUnavailable, resp.StatusCode)
	}

	var pred scorerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pred); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrScorerUnavailable, err)
	}
	if pred.RiskScore == nil || *pred.RiskScore < 0 || *pred.RiskScore > 1 {
		return nil, fmt.Errorf("%w: response missing valid risk_score", ErrScorerUnavailable)
	}

	bucket := pred.RiskBucket
	if bucket == "" {
		bucket = analytics.BucketFromScore(*pred.RiskScore)
	}
	version := pred.ModelVersion
	if version == "" {
		version = "unknown"
	}

	return &analytics.RiskSummary{
		RiskScore:    *pred.RiskScore,
		RiskBucket:   bucket,
		Confidence:   pred.Confidence,
		ModelVersion: version,
		ServedBy:     analytics.ServedByModel,
	}, nil
}
