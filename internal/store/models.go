package store

import "time"

type User struct {
	ID             int64     `json:"id"`
	ExternalUserID string    `json:"external_user_id"`
	PasswordHash   string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt      time.Time `json:"created_at"`
}

// JournalEntry is a self-report written when the user notices an urge.
// Urge intensity and mood are optional; triggers is a set of tag strings.
type JournalEntry struct {
	ID            string    `json:"id"` // UUID
	UserID        int64     `json:"user_id"`
	Timestamp     time.Time `json:"timestamp"`
	UrgeIntensity *float64  `json:"urge_intensity"` // 0-10, nullable
	Mood          *string   `json:"mood"`           // fixed vocabulary, nullable
	Triggers      []string  `json:"triggers"`       // stored as a JSON array
}

// HealthLog is one health check-in event; multiple per day are allowed.
type HealthLog struct {
	ID              string    `json:"id"` // UUID
	UserID          int64     `json:"user_id"`
	Timestamp       time.Time `json:"timestamp"`
	SleepHours      float64   `json:"sleep_hours"`      // 0-24
	StressLevel     float64   `json:"stress_level"`     // 0-10
	ExerciseMinutes float64   `json:"exercise_minutes"` // 0-1440
}

// DailyCheckIn records whether the user relapsed on a given calendar day.
// At most one row exists per (user, day_key); writes are upserts.
type DailyCheckIn struct {
	ID       string  `json:"id"` // UUID
	UserID   int64   `json:"user_id"`
	DayKey   string  `json:"day_key"` // YYYY-MM-DD
	Relapsed bool    `json:"relapsed"`
	Note     *string `json:"note"`
}

// Profile holds demographic and self-reported severity fields. Scoring is
// disabled until the required fields are filled in.
type Profile struct {
	UserID                int64    `json:"user_id"`
	Age                   *float64 `json:"age"`
	AgeOfOnset            *float64 `json:"age_of_onset"`
	PullingSeverity       *float64 `json:"pulling_severity"` // 0-10
	PullingFrequency      *string  `json:"pulling_frequency"`
	PullingAwareness      *string  `json:"pulling_awareness"`
	SuccessfullyStopped   *bool    `json:"successfully_stopped"`
	HowLongStoppedDays    *float64 `json:"how_long_stopped_days"`     // raw, preferred
	HowLongStoppedDaysEst *float64 `json:"how_long_stopped_days_est"` // estimated fallback
	Emotion               *string  `json:"emotion"`
	CopingWorked          []string `json:"coping_worked"`     // stored as JSON arrays
	CopingNotWorked       []string `json:"coping_not_worked"` //
}

// RiskSnapshot is the best-effort audit record written after each scored
// overview: the feature vector and resulting summary as JSON blobs.
type RiskSnapshot struct {
	ID           string    `json:"id"` // UUID
	UserID       int64     `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	FeaturesJSON string    `json:"-"`
	SummaryJSON  string    `json:"-"`
}
