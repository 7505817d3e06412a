package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trichmind.app/backend/internal/analytics"
)

func testFeatures() *analytics.FeatureVector {
	return &analytics.FeatureVector{
		Age:                25,
		AgeOfOnset:         15,
		PullingSeverity:    7,
		PullingFrequency:   "daily",
		PullingAwareness:   "sometimes",
		HowLongStoppedDays: 10,
		Emotion:            "stressed",
		AvgUrge7d:          6.5,
	}
}

func TestPredictRelapseOverview_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/predict_relapse_overview", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, 25.0, payload["age"])
		require.Equal(t, "daily", payload["pulling_frequency"])
		require.Contains(t, payload, "avg_urge_7d")

		json.NewEncoder(w).Encode(map[string]any{
			"risk_score":    0.72,
			"risk_bucket":   "high",
			"confidence":    0.44,
			"model_version": "xgb-2024-05",
			"runtime_sec":   0.012, // extra fields are ignored
		})
	}))
	defer srv.Close()

	scorer := NewScorerService(srv.URL, 5*time.Second)
	summary, err := scorer.PredictRelapseOverview(context.Background(), testFeatures())
	require.NoError(t, err)
	require.Equal(t, 0.72, summary.RiskScore)
	require.Equal(t, "high", summary.RiskBucket)
	require.Equal(t, 0.44, summary.Confidence)
	require.Equal(t, "xgb-2024-05", summary.ModelVersion)
	require.Equal(t, analytics.ServedByModel, summary.ServedBy)
}

func TestPredictRelapseOverview_MissingRiskScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"risk_bucket": "medium"})
	}))
	defer srv.Close()

	scorer := NewScorerService(srv.URL, 5*time.Second)
	_, err := scorer.PredictRelapseOverview(context.Background(), testFeatures())
	require.ErrorIs(t, err, ErrScorerUnavailable)
}

func TestPredictRelapseOverview_OutOfRangeScore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"risk_score": 3.5})
	}))
	defer srv.Close()

	scorer := NewScorerService(srv.URL, 5*time.Second)
	_, err := scorer.PredictRelapseOverview(context.Background(), testFeatures())
	require.ErrorIs(t, err, ErrScorerUnavailable)
}

func TestPredictRelapseOverview_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	scorer := NewScorerService(srv.URL, 5*time.Second)
	_, err := scorer.PredictRelapseOverview(context.Background(), testFeatures())
	require.ErrorIs(t, err, ErrScorerUnavailable)
}

func TestPredictRelapseOverview_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	scorer := NewScorerService(srv.URL, 5*time.Second)
	_, err := scorer.PredictRelapseOverview(context.Background(), testFeatures())
	require.ErrorIs(t, err, ErrScorerUnavailable)
}

func TestPredictRelapseOverview_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	scorer := NewScorerService(srv.URL, 20*time.Millisecond)
	_, err := scorer.PredictRelapseOverview(context.Background(), testFeatures())
	require.ErrorIs(t, err, ErrScorerUnavailable)
}

func TestPredictRelapseOverview_ConnectionRefused(t *testing.T) {
	scorer := NewScorerService("http://127.0.0.1:1", time.Second)
	_, err := scorer.PredictRelapseOverview(context.Background(), testFeatures())
	require.True(t, errors.Is(err, ErrScorerUnavailable))
}

func TestPredictRelapseOverview_MissingBucketDerived(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"risk_score": 0.2})
	}))
	defer srv.Close()

	scorer := NewScorerService(srv.URL, 5*time.Second)
	summary, err := scorer.PredictRelapseOverview(context.Background(), testFeatures())
	require.NoError(t, err)
	require.Equal(t, "low", summary.RiskBucket)
	require.Equal(t, "unknown", summary.ModelVersion)
}
