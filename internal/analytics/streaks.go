package analytics

import (
	"trichmind.app/backend/internal/dates"
	"trichmind.app/backend/internal/store"
)

const recentWindowSize = 14

// StreakStats summarizes a user's daily check-in history. All streaks are
// runs of consecutive calendar days marked not-relapsed: a relapsed day or
// a gap in the calendar both end a run.
type StreakStats struct {
	CurrentStreak   int                  `json:"current_streak"`
	PreviousStreak  int                  `json:"previous_streak"`
	LongestStreak   int                  `json:"longest_streak"`
	RelapseCount    int                  `json:"relapse_count"`
	LastEntryDate   *string              `json:"last_entry_date"`
	LastRelapseDate *string              `json:"last_relapse_date"`
	RecentWindow    []store.DailyCheckIn `json:"recent_window"`
}

// ComputeStreaks scans check-ins ordered ascending by day key in a single
// pass. Output is fully determined by the input sequence; no wall clock.
func ComputeStreaks(checkIns []store.DailyCheckIn) StreakStats {
	stats := StreakStats{RecentWindow: []store.DailyCheckIn{}}
	if len(checkIns) == 0 {
		return stats
	}

	run := 0
	var lastRelapseDay *string
	for i, ci := range checkIns {
		consecutive := false
		if i > 0 {
			d, err := dates.DayDiff(checkIns[i-1].DayKey, ci.DayKey)
			consecutive = err == nil && d == 1
		}

		if ci.Relapsed {
			stats.RelapseCount++
			// The run that had accumulated up to (not including) this
			// relapse day is the "previous streak" for the most recent
			// relapse seen so far.
			if consecutive {
				stats.PreviousStreak = run
			} else {
				stats.PreviousStreak = 0
			}
			day := ci.DayKey
			lastRelapseDay = &day
			run = 0
		} else if consecutive {
			run++
		} else {
			// First record, or a calendar gap: the run restarts here.
			run = 1
		}

		if run > stats.LongestStreak {
			stats.LongestStreak = run
		}
	}

	stats.CurrentStreak = run
	last := checkIns[len(checkIns)-1].DayKey
	stats.LastEntryDate = &last
	stats.LastRelapseDate = lastRelapseDay

	start := len(checkIns) - recentWindowSize
	if start < 0 {
		start = 0
	}
	stats.RecentWindow = append(stats.RecentWindow, checkIns[start:]...)
	return stats
}
