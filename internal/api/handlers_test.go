package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trichmind.app/backend/internal/analytics"
	"trichmind.app/backend/internal/config"
	"trichmind.app/backend/internal/core"
	"trichmind.app/backend/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	config.AppConfig = config.Config{
		JWTSecret:            "test-secret",
		MLAPIURL:             "http://127.0.0.1:1", // unreachable: heuristic path
		ScorerTimeoutSeconds: 1,
		MinJournalEntries:    5,
		MinHealthLogs:        3,
	}

	dbStore, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbStore.Close() })

	scorer := core.NewScorerService(config.AppConfig.MLAPIURL, 100*time.Millisecond)
	overviewService := core.NewOverviewService(dbStore, scorer, config.AppConfig.MinJournalEntries, config.AppConfig.MinHealthLogs)

	handler := NewAPIHandler(dbStore, overviewService)
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func signupAndLogin(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/signup", "", map[string]string{
		"user_id": "alice", "password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/login", "", map[string]string{
		"user_id": "alice", "password": "hunter22",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out["token"])
	return out["token"]
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/relapse-overview")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv := newTestServer(t)
	signupAndLogin(t, srv)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/login", "", map[string]string{
		"user_id": "alice", "password": "wrong",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCheckInUpsertAndDailyProgress(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv)

	for _, day := range []string{"2024-06-12", "2024-06-13", "2024-06-14"} {
		resp := doJSON(t, http.MethodPut, srv.URL+"/api/checkins", token, map[string]any{
			"day_key": day, "relapsed": false,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	// Re-submit the last day with the flag flipped: upsert, not append.
	resp := doJSON(t, http.MethodPut, srv.URL+"/api/checkins", token, map[string]any{
		"day_key": "2024-06-14", "relapsed": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/daily-progress", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var stats analytics.StreakStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Equal(t, 0, stats.CurrentStreak) // last day relapsed
	require.Equal(t, 2, stats.PreviousStreak)
	require.Equal(t, 2, stats.LongestStreak)
	require.Equal(t, 1, stats.RelapseCount)
	require.Len(t, stats.RecentWindow, 3)
}

func TestCheckInValidation(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/checkins", token, map[string]any{
		"day_key": "2024-06-14",
	})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "relapsed is required")

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/checkins", token, map[string]any{
		"day_key": "14/06/2024", "relapsed": false,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "malformed day key")
}

func TestRelapseOverviewGatedWithoutData(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/relapse-overview", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var overview core.RelapseOverview
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&overview))
	require.True(t, overview.OK)
	require.False(t, overview.EnoughData)
	require.Nil(t, overview.RelapseSummary)
}

func TestJournalValidation(t *testing.T) {
	srv := newTestServer(t)
	token := signupAndLogin(t, srv)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/journal", token, map[string]any{
		"urge_intensity": 12,
	})
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/journal", token, map[string]any{
		"urge_intensity": 6, "mood": "stressed", "triggers": []string{"boredom"},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var entry store.JournalEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entry))
	require.NotEmpty(t, entry.ID)
	require.Equal(t, 6.0, *entry.UrgeIntensity)
}
