// Package analytics implements the relapse risk & streak analytics engine:
// fixed-window feature aggregation over journal and health logs, calendar
// streak statistics over daily check-ins, and the deterministic heuristic
// scorer used when the ML service is unreachable.
package analytics

import (
	"time"

	"trichmind.app/backend/internal/dates"
	"trichmind.app/backend/internal/store"
)

// FeatureVector is the flat aggregate snapshot sent to the external scorer.
// Field names and JSON tags mirror the ML service's RelapseFeatures schema,
// so the struct marshals directly into the /predict_relapse_overview payload.
type FeatureVector struct {
	// Profile
	Age                 float64  `json:"age"`
	AgeOfOnset          float64  `json:"age_of_onset"`
	YearsSinceOnset     *float64 `json:"years_since_onset,omitempty"`
	PullingSeverity     float64  `json:"pulling_severity"`
	PullingFrequency    string   `json:"pulling_frequency"`
	PullingAwareness    string   `json:"pulling_awareness"`
	SuccessfullyStopped bool     `json:"successfully_stopped"`
	HowLongStoppedDays  float64  `json:"how_long_stopped_days"`
	Emotion             string   `json:"emotion"`

	// Journal - urges
	AvgUrge7d            float64 `json:"avg_urge_7d"`
	AvgUrge30d           float64 `json:"avg_urge_30d"`
	MaxUrge7d            float64 `json:"max_urge_7d"`
	HighUrgeEvents7d     int     `json:"high_urge_events_7d"`
	NumJournalEntries7d  int     `json:"num_journal_entries_7d"`
	NumJournalEntries30d int     `json:"num_journal_entries_30d"`
	DaysSinceLastEntry   int     `json:"days_since_last_entry"`

	// Journal - moods
	PctStressMoods30d float64 `json:"pct_stress_moods_30d"`
	PctCalmMoods30d   float64 `json:"pct_calm_moods_30d"`
	PctHappyMoods30d  float64 `json:"pct_happy_moods_30d"`

	// Journal - triggers
	CountTriggerStress30d     int `json:"count_trigger_stress_30d"`
	CountTriggerBoredom30d    int `json:"count_trigger_boredom_30d"`
	CountTriggerAnxiety30d    int `json:"count_trigger_anxiety_30d"`
	CountTriggerFatigue30d    int `json:"count_trigger_fatigue_30d"`
	CountTriggerBodyfocus30d  int `json:"count_trigger_bodyfocus_30d"`
	CountTriggerScreentime30d int `json:"count_trigger_screentime_30d"`
	CountTriggerSocial30d     int `json:"count_trigger_social_30d"`
	CountTriggerOther30d      int `json:"count_trigger_other_30d"`

	// Health - sleep
	AvgSleep7d         float64 `json:"avg_sleep_7d"`
	AvgSleep30d        float64 `json:"avg_sleep_30d"`
	MinSleep7d         float64 `json:"min_sleep_7d"`
	ShortSleepNights7d int     `json:"short_sleep_nights_7d"`

	// Health - stress
	AvgHealthStress7d  float64 `json:"avg_health_stress_7d"`
	AvgHealthStress30d float64 `json:"avg_health_stress_30d"`
	MaxHealthStress7d  float64 `json:"max_health_stress_7d"`
	HighStressDays7d   int     `json:"high_stress_days_7d"`

	// Health - exercise
	AvgExercise7d          float64 `json:"avg_exercise_7d"`
	AvgExercise30d         float64 `json:"avg_exercise_30d"`
	DaysWithAnyExercise7d  int     `json:"days_with_any_exercise_7d"`
	NumHealthLogs7d        int     `json:"num_health_logs_7d"`
	NumHealthLogs30d       int     `json:"num_health_logs_30d"`
	DaysSinceLastHealthLog int     `json:"days_since_last_health_log"`

	// Combined
	HighUrgeAndHighStressDays7d int `json:"high_urge_and_high_stress_days_7d"`
}

const (
	highUrgeThreshold   = 7.0
	highStressThreshold = 7.0
	shortSleepThreshold = 6.0

	// Sentinel for "never logged", matching the scorer schema default.
	noRecencyDays = 999
)

// moodCategories partitions the fixed mood vocabulary into the three
// coarse buckets the scorer understands. Unknown moods count toward the
// denominator but no bucket.
var moodCategories = map[string]string{
	"stressed":    "stress",
	"anxious":     "stress",
	"overwhelmed": "stress",
	"frustrated":  "stress",
	"angry":       "stress",
	"sad":         "stress",
	"calm":        "calm",
	"relaxed":     "calm",
	"neutral":     "calm",
	"tired":       "calm",
	"happy":       "happy",
	"excited":     "happy",
	"content":     "happy",
	"proud":       "happy",
	"grateful":    "happy",
}

// triggerBuckets maps known trigger tags to their counter; anything not
// listed here lands in "other".
var triggerBuckets = map[string]string{
	"stress":     "stress",
	"boredom":    "boredom",
	"anxiety":    "anxiety",
	"fatigue":    "fatigue",
	"bodyfocus":  "bodyfocus",
	"screentime": "screentime",
	"social":     "social",
}

// BuildFeatureVector aggregates a user's journal entries and health logs
// into the fixed 7d/30d windows relative to now. It returns nil when the
// profile is missing any field the scorer requires: a partially known
// identity must disable scoring entirely, never default to zeros.
func BuildFeatureVector(profile *store.Profile, journal []store.JournalEntry, health []store.HealthLog, now time.Time) *FeatureVector {
	fv := profileFeatures(profile)
	if fv == nil {
		return nil
	}

	aggregateJournal(fv, journal, now)
	aggregateHealth(fv, health, now)
	fv.HighUrgeAndHighStressDays7d = countCoOccurrenceDays(journal, health, now)
	return fv
}

// profileFeatures copies the required profile fields, or returns nil if
// any of them is absent. The days-stopped value prefers the raw answer
// over the estimate.
func profileFeatures(p *store.Profile) *FeatureVector {
	if p == nil {
		return nil
	}
	if p.Age == nil || p.AgeOfOnset == nil || p.PullingSeverity == nil ||
		p.PullingFrequency == nil || *p.PullingFrequency == "" ||
		p.PullingAwareness == nil || *p.PullingAwareness == "" ||
		p.SuccessfullyStopped == nil ||
		p.Emotion == nil || *p.Emotion == "" {
		return nil
	}

	var stoppedDays float64
	switch {
	case p.HowLongStoppedDays != nil:
		stoppedDays = *p.HowLongStoppedDays
	case p.HowLongStoppedDaysEst != nil:
		stoppedDays = *p.HowLongStoppedDaysEst
	default:
		return nil
	}

	fv := &FeatureVector{
		Age:                 *p.Age,
		AgeOfOnset:          *p.AgeOfOnset,
		PullingSeverity:     *p.PullingSeverity,
		PullingFrequency:    *p.PullingFrequency,
		PullingAwareness:    *p.PullingAwareness,
		SuccessfullyStopped: *p.SuccessfullyStopped,
		HowLongStoppedDays:  stoppedDays,
		Emotion:             *p.Emotion,

		DaysSinceLastEntry:     noRecencyDays,
		DaysSinceLastHealthLog: noRecencyDays,
	}
	if *p.Age >= *p.AgeOfOnset {
		yso := *p.Age - *p.AgeOfOnset
		fv.YearsSinceOnset = &yso
	}
	return fv
}

// inWindow reports whether ts falls inside the trailing window of n days
// ending at now. The boundary is inclusive: an instant exactly n*24h old
// is still in the window.
func inWindow(ts, now time.Time, days int) bool {
	elapsed := now.Sub(ts)
	return elapsed >= 0 && elapsed <= time.Duration(days)*24*time.Hour
}

// safeAvg is 0 for an empty sample, never NaN.
func safeAvg(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func aggregateJournal(fv *FeatureVector, journal []store.JournalEntry, now time.Time) {
	var sumUrge7, sumUrge30 float64
	var nUrge7, nUrge30 int
	var moodTotal30, moodStress30, moodCalm30, moodHappy30 int
	var lastEntry time.Time

	for _, entry := range journal {
		if entry.Timestamp.After(lastEntry) {
			lastEntry = entry.Timestamp
		}
		if !inWindow(entry.Timestamp, now, 30) {
			continue
		}
		fv.NumJournalEntries30d++

		if entry.UrgeIntensity != nil {
			sumUrge30 += *entry.UrgeIntensity
			nUrge30++
		}
		if entry.Mood != nil && *entry.Mood != "" {
			moodTotal30++
			switch moodCategories[*entry.Mood] {
			case "stress":
				moodStress30++
			case "calm":
				moodCalm30++
			case "happy":
				moodHappy30++
			}
		}
		for _, tag := range entry.Triggers {
			switch triggerBuckets[tag] {
			case "stress":
				fv.CountTriggerStress30d++
			case "boredom":
				fv.CountTriggerBoredom30d++
			case "anxiety":
				fv.CountTriggerAnxiety30d++
			case "fatigue":
				fv.CountTriggerFatigue30d++
			case "bodyfocus":
				fv.CountTriggerBodyfocus30d++
			case "screentime":
				fv.CountTriggerScreentime30d++
			case "social":
				fv.CountTriggerSocial30d++
			default:
				fv.CountTriggerOther30d++
			}
		}

		if !inWindow(entry.Timestamp, now, 7) {
			continue
		}
		fv.NumJournalEntries7d++
		if entry.UrgeIntensity != nil {
			sumUrge7 += *entry.UrgeIntensity
			nUrge7++
			if *entry.UrgeIntensity > fv.MaxUrge7d {
				fv.MaxUrge7d = *entry.UrgeIntensity
			}
			if *entry.UrgeIntensity >= highUrgeThreshold {
				fv.HighUrgeEvents7d++
			}
		}
	}

	fv.AvgUrge7d = safeAvg(sumUrge7, nUrge7)
	fv.AvgUrge30d = safeAvg(sumUrge30, nUrge30)
	fv.PctStressMoods30d = safeAvg(float64(moodStress30)*100, moodTotal30)
	fv.PctCalmMoods30d = safeAvg(float64(moodCalm30)*100, moodTotal30)
	fv.PctHappyMoods30d = safeAvg(float64(moodHappy30)*100, moodTotal30)

	if !lastEntry.IsZero() {
		if d, err := dates.DayDiff(dates.DayKey(lastEntry), dates.DayKey(now)); err == nil && d >= 0 {
			fv.DaysSinceLastEntry = d
		}
	}
}

func aggregateHealth(fv *FeatureVector, health []store.HealthLog, now time.Time) {
	var sumSleep7, sumSleep30, sumStress7, sumStress30, sumExercise7, sumExercise30 float64
	var lastLog time.Time
	exerciseDays7 := map[string]bool{}
	highStressDays7 := map[string]bool{}
	minSleepSet := false

	for _, hl := range health {
		if hl.Timestamp.After(lastLog) {
			lastLog = hl.Timestamp
		}
		if !inWindow(hl.Timestamp, now, 30) {
			continue
		}
		fv.NumHealthLogs30d++
		sumSleep30 += hl.SleepHours
		sumStress30 += hl.StressLevel
		sumExercise30 += hl.ExerciseMinutes

		if !inWindow(hl.Timestamp, now, 7) {
			continue
		}
		fv.NumHealthLogs7d++
		sumSleep7 += hl.SleepHours
		sumStress7 += hl.StressLevel
		sumExercise7 += hl.ExerciseMinutes

		if !minSleepSet || hl.SleepHours < fv.MinSleep7d {
			fv.MinSleep7d = hl.SleepHours
			minSleepSet = true
		}
		if hl.SleepHours < shortSleepThreshold {
			fv.ShortSleepNights7d++
		}
		if hl.StressLevel > fv.MaxHealthStress7d {
			fv.MaxHealthStress7d = hl.StressLevel
		}
		if hl.StressLevel >= highStressThreshold {
			highStressDays7[dates.DayKey(hl.Timestamp)] = true
		}
		if hl.ExerciseMinutes > 0 {
			exerciseDays7[dates.DayKey(hl.Timestamp)] = true
		}
	}

	fv.AvgSleep7d = safeAvg(sumSleep7, fv.NumHealthLogs7d)
	fv.AvgSleep30d = safeAvg(sumSleep30, fv.NumHealthLogs30d)
	fv.AvgHealthStress7d = safeAvg(sumStress7, fv.NumHealthLogs7d)
	fv.AvgHealthStress30d = safeAvg(sumStress30, fv.NumHealthLogs30d)
	fv.AvgExercise7d = safeAvg(sumExercise7, fv.NumHealthLogs7d)
	fv.AvgExercise30d = safeAvg(sumExercise30, fv.NumHealthLogs30d)
	fv.DaysWithAnyExercise7d = len(exerciseDays7)
	fv.HighStressDays7d = len(highStressDays7)

	if !lastLog.IsZero() {
		if d, err := dates.DayDiff(dates.DayKey(lastLog), dates.DayKey(now)); err == nil && d >= 0 {
			fv.DaysSinceLastHealthLog = d
		}
	}
}

// countCoOccurrenceDays counts calendar days in the trailing 7-day window
// with both a high-urge journal event and a high-stress health log.
// Matching is by day key, not timestamp equality.
func countCoOccurrenceDays(journal []store.JournalEntry, health []store.HealthLog, now time.Time) int {
	highUrgeDays := map[string]bool{}
	for _, entry := range journal {
		if entry.UrgeIntensity != nil && *entry.UrgeIntensity >= highUrgeThreshold && inWindow(entry.Timestamp, now, 7) {
			highUrgeDays[dates.DayKey(entry.Timestamp)] = true
		}
	}

	count := 0
	counted := map[string]bool{}
	for _, hl := range health {
		if hl.StressLevel < highStressThreshold || !inWindow(hl.Timestamp, now, 7) {
			continue
		}
		day := dates.DayKey(hl.Timestamp)
		if highUrgeDays[day] && !counted[day] {
			counted[day] = true
			count++
		}
	}
	return count
}
