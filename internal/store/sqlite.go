package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        external_user_id TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS profiles (
        user_id INTEGER PRIMARY KEY,
        age REAL,
        age_of_onset REAL,
        pulling_severity REAL,
        pulling_frequency TEXT,
        pulling_awareness TEXT,
        successfully_stopped BOOLEAN,
        how_long_stopped_days REAL,
        how_long_stopped_days_est REAL,
        emotion TEXT,
        coping_worked_json TEXT,
        coping_not_worked_json TEXT,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS journal_entries (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        timestamp DATETIME NOT NULL,
        urge_intensity REAL,
        mood TEXT,
        triggers_json TEXT,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS health_logs (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        timestamp DATETIME NOT NULL,
        sleep_hours REAL NOT NULL,
        stress_level REAL NOT NULL,
        exercise_minutes REAL NOT NULL,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS daily_checkins (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        day_key TEXT NOT NULL, -- YYYY-MM-DD
        relapsed BOOLEAN NOT NULL,
        note TEXT,
        UNIQUE (user_id, day_key),
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE TABLE IF NOT EXISTS risk_snapshots (
        id TEXT PRIMARY KEY, -- UUID
        user_id INTEGER NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        features_json TEXT NOT NULL,
        summary_json TEXT NOT NULL,
        FOREIGN KEY (user_id) REFERENCES users (id)
    );

    CREATE INDEX IF NOT EXISTS idx_journal_user_ts ON journal_entries (user_id, timestamp DESC);
    CREATE INDEX IF NOT EXISTS idx_health_user_ts ON health_logs (user_id, timestamp DESC);
    CREATE INDEX IF NOT EXISTS idx_checkins_user_day ON daily_checkins (user_id, day_key ASC);
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods
func (s *SQLiteStore) GetUserByExternalID(externalUserID string) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, external_user_id, password_hash, created_at FROM users WHERE external_user_id = ?", externalUserID).Scan(&user.ID, &user.ExternalUserID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) CreateUser(externalUserID, passwordHash string) (*User, error) {
	res, err := s.db.Exec("INSERT INTO users (external_user_id, password_hash) VALUES (?, ?)", externalUserID, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.getUserByID(id)
}

func (s *SQLiteStore) getUserByID(id int64) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, external_user_id, password_hash, created_at FROM users WHERE id = ?", id).Scan(&user.ID, &user.ExternalUserID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Profile methods
func (s *SQLiteStore) GetProfile(userID int64) (*Profile, error) {
	var p Profile
	var stopped sql.NullBool
	var freq, aware, emotion sql.NullString
	var copingWorked, copingNotWorked sql.NullString
	err := s.db.QueryRow(`
        SELECT user_id, age, age_of_onset, pulling_severity, pulling_frequency,
               pulling_awareness, successfully_stopped, how_long_stopped_days,
               how_long_stopped_days_est, emotion, coping_worked_json, coping_not_worked_json
        FROM profiles WHERE user_id = ?`, userID).Scan(
		&p.UserID, &p.Age, &p.AgeOfOnset, &p.PullingSeverity, &freq,
		&aware, &stopped, &p.HowLongStoppedDays,
		&p.HowLongStoppedDaysEst, &emotion, &copingWorked, &copingNotWorked)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No profile yet
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	if freq.Valid {
		p.PullingFrequency = &freq.String
	}
	if aware.Valid {
		p.PullingAwareness = &aware.String
	}
	if emotion.Valid {
		p.Emotion = &emotion.String
	}
	if stopped.Valid {
		p.SuccessfullyStopped = &stopped.Bool
	}
	p.CopingWorked = decodeStringList(copingWorked, "coping_worked", userID)
	p.CopingNotWorked = decodeStringList(copingNotWorked, "coping_not_worked", userID)
	return &p, nil
}

func (s *SQLiteStore) UpsertProfile(p *Profile) error {
	copingWorked, err := json.Marshal(p.CopingWorked)
	if err != nil {
		return fmt.Errorf("failed to marshal coping_worked: %w", err)
	}
	copingNotWorked, err := json.Marshal(p.CopingNotWorked)
	if err != nil {
		return fmt.Errorf("failed to marshal coping_not_worked: %w", err)
	}

	_, err = s.db.Exec(`
        INSERT INTO profiles (user_id, age, age_of_onset, pulling_severity, pulling_frequency,
                              pulling_awareness, successfully_stopped, how_long_stopped_days,
                              how_long_stopped_days_est, emotion, coping_worked_json, coping_not_worked_json)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (user_id) DO UPDATE SET
            age = excluded.age,
            age_of_onset = excluded.age_of_onset,
            pulling_severity = excluded.pulling_severity,
            pulling_frequency = excluded.pulling_frequency,
            pulling_awareness = excluded.pulling_awareness,
            successfully_stopped = excluded.successfully_stopped,
            how_long_stopped_days = excluded.how_long_stopped_days,
            how_long_stopped_days_est = excluded.how_long_stopped_days_est,
            emotion = excluded.emotion,
            coping_worked_json = excluded.coping_worked_json,
            coping_not_worked_json = excluded.coping_not_worked_json`,
		p.UserID, p.Age, p.AgeOfOnset, p.PullingSeverity, p.PullingFrequency,
		p.PullingAwareness, p.SuccessfullyStopped, p.HowLongStoppedDays,
		p.HowLongStoppedDaysEst, p.Emotion, string(copingWorked), string(copingNotWorked))
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

// Journal methods
func (s *SQLiteStore) CreateJournalEntry(entry *JournalEntry) error {
	entry.ID = uuid.NewString()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	triggersJSON, err := json.Marshal(entry.Triggers)
	if err != nil {
		return fmt.Errorf("failed to marshal triggers: %w", err)
	}

	_, err = s.db.Exec(
		"INSERT INTO journal_entries (id, user_id, timestamp, urge_intensity, mood, triggers_json) VALUES (?, ?, ?, ?, ?, ?)",
		entry.ID, entry.UserID, entry.Timestamp, entry.UrgeIntensity, entry.Mood, string(triggersJSON))
	if err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}
	return nil
}

// GetRecentJournalEntries returns the user's most recent n entries ordered
// by timestamp descending.
func (s *SQLiteStore) GetRecentJournalEntries(userID int64, n int) ([]JournalEntry, error) {
	rows, err := s.db.Query(`
        SELECT id, user_id, timestamp, urge_intensity, mood, triggers_json
        FROM journal_entries
        WHERE user_id = ?
        ORDER BY timestamp DESC
        LIMIT ?`, userID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal entries: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var entry JournalEntry
		var triggersJSON sql.NullString
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Timestamp, &entry.UrgeIntensity, &entry.Mood, &triggersJSON); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry row: %w", err)
		}
		entry.Triggers = decodeStringList(triggersJSON, "triggers", userID)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Health log methods
func (s *SQLiteStore) CreateHealthLog(hl *HealthLog) error {
	hl.ID = uuid.NewString()
	if hl.Timestamp.IsZero() {
		hl.Timestamp = time.Now()
	}

	_, err := s.db.Exec(
		"INSERT INTO health_logs (id, user_id, timestamp, sleep_hours, stress_level, exercise_minutes) VALUES (?, ?, ?, ?, ?, ?)",
		hl.ID, hl.UserID, hl.Timestamp, hl.SleepHours, hl.StressLevel, hl.ExerciseMinutes)
	if err != nil {
		return fmt.Errorf("failed to insert health log: %w", err)
	}
	return nil
}

// GetRecentHealthLogs returns the user's most recent n health logs ordered
// by timestamp descending.
func (s *SQLiteStore) GetRecentHealthLogs(userID int64, n int) ([]HealthLog, error) {
	rows, err := s.db.Query(`
        SELECT id, user_id, timestamp, sleep_hours, stress_level, exercise_minutes
        FROM health_logs
        WHERE user_id = ?
        ORDER BY timestamp DESC
        LIMIT ?`, userID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query health logs: %w", err)
	}
	defer rows.Close()

	var logs []HealthLog
	for rows.Next() {
		var hl HealthLog
		if err := rows.Scan(&hl.ID, &hl.UserID, &hl.Timestamp, &hl.SleepHours, &hl.StressLevel, &hl.ExerciseMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan health log row: %w", err)
		}
		logs = append(logs, hl)
	}
	return logs, rows.Err()
}

// Check-in methods

// UpsertDailyCheckIn inserts or replaces the check-in for (user, day_key).
// The uniqueness constraint keeps at most one row per calendar day; the
// latest write wins.
func (s *SQLiteStore) UpsertDailyCheckIn(ci *DailyCheckIn) error {
	if ci.ID == "" {
		ci.ID = uuid.NewString()
	}

	_, err := s.db.Exec(`
        INSERT INTO daily_checkins (id, user_id, day_key, relapsed, note)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (user_id, day_key) DO UPDATE SET
            relapsed = excluded.relapsed,
            note = excluded.note`,
		ci.ID, ci.UserID, ci.DayKey, ci.Relapsed, ci.Note)
	if err != nil {
		return fmt.Errorf("failed to upsert check-in: %w", err)
	}
	return nil
}

// GetCheckInsByUserID returns all of a user's check-ins ordered by day_key
// ascending, the order the streak calculator expects.
func (s *SQLiteStore) GetCheckInsByUserID(userID int64) ([]DailyCheckIn, error) {
	rows, err := s.db.Query(`
        SELECT id, user_id, day_key, relapsed, note
        FROM daily_checkins
        WHERE user_id = ?
        ORDER BY day_key ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query check-ins: %w", err)
	}
	defer rows.Close()

	var checkIns []DailyCheckIn
	for rows.Next() {
		var ci DailyCheckIn
		if err := rows.Scan(&ci.ID, &ci.UserID, &ci.DayKey, &ci.Relapsed, &ci.Note); err != nil {
			return nil, fmt.Errorf("failed to scan check-in row: %w", err)
		}
		checkIns = append(checkIns, ci)
	}
	return checkIns, rows.Err()
}

// Snapshot methods
func (s *SQLiteStore) CreateRiskSnapshot(snap *RiskSnapshot) error {
	snap.ID = uuid.NewString()
	snap.CreatedAt = time.Now()

	_, err := s.db.Exec(
		"INSERT INTO risk_snapshots (id, user_id, created_at, features_json, summary_json) VALUES (?, ?, ?, ?, ?)",
		snap.ID, snap.UserID, snap.CreatedAt, snap.FeaturesJSON, snap.SummaryJSON)
	if err != nil {
		return fmt.Errorf("failed to insert risk snapshot: %w", err)
	}
	return nil
}

func decodeStringList(raw sql.NullString, field string, userID int64) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		log.Printf("Warning: failed to unmarshal %s for user %d: %v. Treating as empty.", field, userID, err)
		return nil
	}
	return out
}
