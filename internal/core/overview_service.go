package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"trichmind.app/backend/internal/analytics"
	"trichmind.app/backend/internal/dates"
	"trichmind.app/backend/internal/store"
)

const (
	// Bounded-recency fetch size for journal and health reads.
	recentFetchLimit = 50
	// Maximum points in the informational risk-history series.
	riskHistoryLimit = 30
)

// RelapseScorer is the external model behind a network call. ScorerService
// implements it; tests substitute stubs.
type RelapseScorer interface {
	PredictRelapseOverview(ctx context.Context, fv *analytics.FeatureVector) (*analytics.RiskSummary, error)
}

type RiskHistoryPoint struct {
	Date  string  `json:"date"`  // day key
	Score float64 `json:"score"` // normalized urge, 0-1
}

type StreakPair struct {
	Current  int `json:"current"`
	Previous int `json:"previous"`
}

type CopingEcho struct {
	Worked    []string `json:"worked"`
	NotWorked []string `json:"notWorked"`
}

type DataCounts struct {
	JournalEntries   int `json:"journalEntries"`
	HealthLogs       int `json:"healthLogs"`
	MinJournalNeeded int `json:"minJournalNeeded"`
	MinHealthNeeded  int `json:"minHealthNeeded"`
}

// RelapseOverview is the output contract consumed by the UI and the
// weekly-digest reporting job.
type RelapseOverview struct {
	OK             bool                   `json:"ok"`
	EnoughData     bool                   `json:"enoughData"`
	RelapseSummary *analytics.RiskSummary `json:"relapseSummary"` // nil when gated
	RiskHistory    []RiskHistoryPoint     `json:"riskHistory"`
	Streak         StreakPair             `json:"streak"`
	Coping         CopingEcho             `json:"coping"`
	DataCounts     DataCounts             `json:"dataCounts"`
}

// OverviewService orchestrates the risk overview: data-sufficiency gating,
// feature aggregation, external scoring with heuristic fallback, the
// best-effort audit snapshot, and streak statistics.
type OverviewService struct {
	dbStore    *store.SQLiteStore
	scorer     RelapseScorer
	minJournal int
	minHealth  int
	now        func() time.Time // injectable reference instant
}

func NewOverviewService(db *store.SQLiteStore, scorer RelapseScorer, minJournal, minHealth int) *OverviewService {
	return &OverviewService{
		dbStore:    db,
		scorer:     scorer,
		minJournal: minJournal,
		minHealth:  minHealth,
		now:        time.Now,
	}
}

// GetRelapseOverview builds the full overview for one user. The only
// error it returns is a failed read of the user's own logs; scorer and
// snapshot failures degrade sub-fields instead.
func (s *OverviewService) GetRelapseOverview(ctx context.Context, userID int64) (*RelapseOverview, error) {
	now := s.now()

	// Gather. The three reads are independent and run concurrently.
	var journal []store.JournalEntry
	var health []store.HealthLog
	var profile *store.Profile
	var checkIns []store.DailyCheckIn

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		journal, err = s.dbStore.GetRecentJournalEntries(userID, recentFetchLimit)
		return err
	})
	g.Go(func() (err error) {
		health, err = s.dbStore.GetRecentHealthLogs(userID, recentFetchLimit)
		return err
	})
	g.Go(func() (err error) {
		profile, err = s.dbStore.GetProfile(userID)
		return err
	})
	g.Go(func() (err error) {
		checkIns, err = s.dbStore.GetCheckInsByUserID(userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to read user logs: %w", err)
	}

	streaks := analytics.ComputeStreaks(checkIns)

	overview := &RelapseOverview{
		OK:          true,
		RiskHistory: []RiskHistoryPoint{},
		Streak:      StreakPair{Current: streaks.CurrentStreak, Previous: streaks.PreviousStreak},
		Coping:      copingEcho(profile),
		DataCounts: DataCounts{
			JournalEntries:   len(journal),
			HealthLogs:       len(health),
			MinJournalNeeded: s.minJournal,
			MinHealthNeeded:  s.minHealth,
		},
	}

	// Gate. Insufficient data is a normal terminal state, not an error.
	features := analytics.BuildFeatureVector(profile, journal, health, now)
	if features == nil || len(journal) < s.minJournal || len(health) < s.minHealth {
		return overview, nil
	}
	overview.EnoughData = true

	// Score, falling back to the heuristic on any scorer failure. The
	// scorer call survives caller disconnects so the snapshot still gets
	// a real prediction; the client timeout bounds it regardless.
	summary, err := s.scorer.PredictRelapseOverview(context.WithoutCancel(ctx), features)
	if err != nil {
		log.Printf("Scorer unavailable for user %d, serving heuristic: %v", userID, err)
		fallback := analytics.HeuristicScore(features.PullingSeverity, features.HowLongStoppedDays, recentUrges(journal))
		summary = &fallback
	}
	overview.RelapseSummary = summary

	// Snapshot, best effort and off the request path.
	go s.writeSnapshot(userID, features, summary)

	overview.RiskHistory = buildRiskHistory(journal)
	return overview, nil
}

// GetDailyProgress returns the streak statistics on their own, for the
// daily check-in screen. Same calculator as the overview path.
func (s *OverviewService) GetDailyProgress(userID int64) (*analytics.StreakStats, error) {
	checkIns, err := s.dbStore.GetCheckInsByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read check-ins: %w", err)
	}
	stats := analytics.ComputeStreaks(checkIns)
	return &stats, nil
}

// writeSnapshot persists an audit record of the vector and summary.
// Loss is acceptable; failures are logged and swallowed.
func (s *OverviewService) writeSnapshot(userID int64, fv *analytics.FeatureVector, summary *analytics.RiskSummary) {
	featuresJSON, err := json.Marshal(fv)
	if err != nil {
		log.Printf("Failed to marshal feature snapshot for user %d: %v", userID, err)
		return
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		log.Printf("Failed to marshal summary snapshot for user %d: %v", userID, err)
		return
	}
	snap := store.RiskSnapshot{
		UserID:       userID,
		FeaturesJSON: string(featuresJSON),
		SummaryJSON:  string(summaryJSON),
	}
	if err := s.dbStore.CreateRiskSnapshot(&snap); err != nil {
		log.Printf("Failed to write risk snapshot for user %d: %v", userID, err)
	}
}

// buildRiskHistory derives the informational trend series from journal
// urge intensities, normalized to 0-1, oldest first so the newest point
// is last, bounded to riskHistoryLimit points. This is trend data for the
// chart, not the authoritative score.
func buildRiskHistory(journal []store.JournalEntry) []RiskHistoryPoint {
	// Journal arrives newest-first from the store.
	points := []RiskHistoryPoint{}
	for i := len(journal) - 1; i >= 0; i-- {
		entry := journal[i]
		if entry.UrgeIntensity == nil {
			continue
		}
		points = append(points, RiskHistoryPoint{
			Date:  dates.DayKey(entry.Timestamp),
			Score: *entry.UrgeIntensity / 10,
		})
	}
	if len(points) > riskHistoryLimit {
		points = points[len(points)-riskHistoryLimit:]
	}
	return points
}

// recentUrges collects the known urge intensities from the fetched
// journal window for the heuristic fallback.
func recentUrges(journal []store.JournalEntry) []float64 {
	var urges []float64
	for _, entry := range journal {
		if entry.UrgeIntensity != nil {
			urges = append(urges, *entry.UrgeIntensity)
		}
	}
	return urges
}

func copingEcho(profile *store.Profile) CopingEcho {
	echo := CopingEcho{Worked: []string{}, NotWorked: []string{}}
	if profile == nil {
		return echo
	}
	if profile.CopingWorked != nil {
		echo.Worked = profile.CopingWorked
	}
	if profile.CopingNotWorked != nil {
		echo.NotWorked = profile.CopingNotWorked
	}
	return echo
}
