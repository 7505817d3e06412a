package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"trichmind.app/backend/internal/auth"
	"trichmind.app/backend/internal/core"
	"trichmind.app/backend/internal/dates"
	"trichmind.app/backend/internal/store"
)

type APIHandler struct {
	dbStore         *store.SQLiteStore
	overviewService *core.OverviewService
}

func NewAPIHandler(db *store.SQLiteStore, os *core.OverviewService) *APIHandler {
	return &APIHandler{dbStore: db, overviewService: os}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		externalUserID, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := h.dbStore.GetUserByExternalID(externalUserID)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for user %s: %v", externalUserID, err)
			http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
			return
		}

		if user == nil {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type SignupRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.UserID == "" || req.Password == "" {
		http.Error(w, "User ID and password are required", http.StatusBadRequest)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for user %s: %v", req.UserID, err)
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	user, err := h.dbStore.CreateUser(req.UserID, hashedPassword)
	if err != nil {
		log.Printf("Error creating user %s: %v", req.UserID, err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

type LoginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.UserID == "" || req.Password == "" {
		http.Error(w, "User ID and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.dbStore.GetUserByExternalID(req.UserID)
	if err != nil {
		log.Printf("Error getting user %s: %v", req.UserID, err)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(req.UserID)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", req.UserID, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

type CreateJournalEntryRequest struct {
	Timestamp     *time.Time `json:"timestamp,omitempty"` // defaults to now
	UrgeIntensity *float64   `json:"urge_intensity,omitempty"`
	Mood          *string    `json:"mood,omitempty"`
	Triggers      []string   `json:"triggers,omitempty"`
}

func (h *APIHandler) CreateJournalEntryHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req CreateJournalEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.UrgeIntensity != nil && (*req.UrgeIntensity < 0 || *req.UrgeIntensity > 10) {
		http.Error(w, "urge_intensity must be between 0 and 10", http.StatusBadRequest)
		return
	}

	entry := store.JournalEntry{
		UserID:        userID,
		UrgeIntensity: req.UrgeIntensity,
		Mood:          req.Mood,
		Triggers:      req.Triggers,
	}
	if req.Timestamp != nil {
		entry.Timestamp = *req.Timestamp
	}

	if err := h.dbStore.CreateJournalEntry(&entry); err != nil {
		log.Printf("Error creating journal entry for user %d: %v", userID, err)
		http.Error(w, "Failed to create journal entry", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

func (h *APIHandler) ListJournalEntriesHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	entries, err := h.dbStore.GetRecentJournalEntries(userID, 50)
	if err != nil {
		log.Printf("Error listing journal entries for user %d: %v", userID, err)
		http.Error(w, "Failed to list journal entries", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []store.JournalEntry{}
	}
	json.NewEncoder(w).Encode(entries)
}

type CreateHealthLogRequest struct {
	Timestamp       *time.Time `json:"timestamp,omitempty"` // defaults to now
	SleepHours      float64    `json:"sleep_hours"`
	StressLevel     float64    `json:"stress_level"`
	ExerciseMinutes float64    `json:"exercise_minutes"`
}

func (h *APIHandler) CreateHealthLogHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req CreateHealthLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.SleepHours < 0 || req.SleepHours > 24 {
		http.Error(w, "sleep_hours must be between 0 and 24", http.StatusBadRequest)
		return
	}
	if req.StressLevel < 0 || req.StressLevel > 10 {
		http.Error(w, "stress_level must be between 0 and 10", http.StatusBadRequest)
		return
	}
	if req.ExerciseMinutes < 0 || req.ExerciseMinutes > 1440 {
		http.Error(w, "exercise_minutes must be between 0 and 1440", http.StatusBadRequest)
		return
	}

	hl := store.HealthLog{
		UserID:          userID,
		SleepHours:      req.SleepHours,
		StressLevel:     req.StressLevel,
		ExerciseMinutes: req.ExerciseMinutes,
	}
	if req.Timestamp != nil {
		hl.Timestamp = *req.Timestamp
	}

	if err := h.dbStore.CreateHealthLog(&hl); err != nil {
		log.Printf("Error creating health log for user %d: %v", userID, err)
		http.Error(w, "Failed to create health log", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(hl)
}

func (h *APIHandler) ListHealthLogsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	logs, err := h.dbStore.GetRecentHealthLogs(userID, 50)
	if err != nil {
		log.Printf("Error listing health logs for user %d: %v", userID, err)
		http.Error(w, "Failed to list health logs", http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []store.HealthLog{}
	}
	json.NewEncoder(w).Encode(logs)
}

type UpsertCheckInRequest struct {
	DayKey   string  `json:"day_key"`
	Relapsed *bool   `json:"relapsed"`
	Note     *string `json:"note,omitempty"`
}

func (h *APIHandler) UpsertCheckInHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var req UpsertCheckInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Relapsed == nil {
		http.Error(w, "relapsed is required", http.StatusBadRequest)
		return
	}
	if req.DayKey == "" {
		req.DayKey = dates.DayKey(time.Now())
	} else if _, err := dates.ParseDayKey(req.DayKey); err != nil {
		http.Error(w, "day_key must be formatted YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	ci := store.DailyCheckIn{
		UserID:   userID,
		DayKey:   req.DayKey,
		Relapsed: *req.Relapsed,
		Note:     req.Note,
	}
	if err := h.dbStore.UpsertDailyCheckIn(&ci); err != nil {
		log.Printf("Error upserting check-in for user %d: %v", userID, err)
		http.Error(w, "Failed to save check-in", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(ci)
}

func (h *APIHandler) ListCheckInsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	checkIns, err := h.dbStore.GetCheckInsByUserID(userID)
	if err != nil {
		log.Printf("Error listing check-ins for user %d: %v", userID, err)
		http.Error(w, "Failed to list check-ins", http.StatusInternalServerError)
		return
	}
	if checkIns == nil {
		checkIns = []store.DailyCheckIn{}
	}
	json.NewEncoder(w).Encode(checkIns)
}

func (h *APIHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	profile, err := h.dbStore.GetProfile(userID)
	if err != nil {
		log.Printf("Error getting profile for user %d: %v", userID, err)
		http.Error(w, "Failed to get profile", http.StatusInternalServerError)
		return
	}
	if profile == nil {
		http.Error(w, "Profile not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(profile)
}

func (h *APIHandler) UpsertProfileHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var profile store.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if profile.PullingSeverity != nil && (*profile.PullingSeverity < 0 || *profile.PullingSeverity > 10) {
		http.Error(w, "pulling_severity must be between 0 and 10", http.StatusBadRequest)
		return
	}
	profile.UserID = userID

	if err := h.dbStore.UpsertProfile(&profile); err != nil {
		log.Printf("Error upserting profile for user %d: %v", userID, err)
		http.Error(w, "Failed to save profile", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(profile)
}

func (h *APIHandler) RelapseOverviewHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	overview, err := h.overviewService.GetRelapseOverview(r.Context(), userID)
	if err != nil {
		log.Printf("Error building relapse overview for user %d: %v", userID, err)
		http.Error(w, "Failed to build relapse overview", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(overview)
}

func (h *APIHandler) DailyProgressHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	stats, err := h.overviewService.GetDailyProgress(userID)
	if err != nil {
		log.Printf("Error computing daily progress for user %d: %v", userID, err)
		http.Error(w, "Failed to compute daily progress", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(stats)
}
