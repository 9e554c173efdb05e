package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/healthmate/backend/internal/storage/models"
	"github.com/healthmate/backend/pkg/logger"
)

// ErrNotFound is returned when a row does not exist or is owned by another
// user; the two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("row not found")

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) Ping() error {
	return c.db.Ping()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS symptom_reports (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		symptoms TEXT NOT NULL,
		details TEXT,
		profile TEXT,
		followup_answers TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reports_user ON symptom_reports(user_id);

	CREATE TABLE IF NOT EXISTS diagnosis_logs (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		report_id TEXT NOT NULL,
		analysis TEXT NOT NULL,
		urgency TEXT,
		confidence REAL,
		is_refined INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (report_id) REFERENCES symptom_reports(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_diagnosis_user ON diagnosis_logs(user_id);
	CREATE INDEX IF NOT EXISTS idx_diagnosis_report ON diagnosis_logs(report_id);

	CREATE TABLE IF NOT EXISTS prescription_analyses (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		raw_text TEXT NOT NULL,
		analysis TEXT NOT NULL,
		profile TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_prescriptions_user ON prescription_analyses(user_id);

	CREATE TABLE IF NOT EXISTS medication_searches (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		info TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_med_searches_user ON medication_searches(user_id);

	CREATE TABLE IF NOT EXISTS mood_entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		entry_date TEXT NOT NULL,
		mood INTEGER NOT NULL,
		emotions TEXT,
		activities TEXT,
		notes TEXT,
		sleep_hours REAL,
		energy_level INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_mood_user_date ON mood_entries(user_id, entry_date);

	CREATE TABLE IF NOT EXISTS health_reports (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		report_type TEXT NOT NULL,
		data TEXT NOT NULL,
		generated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_health_reports_user ON health_reports(user_id);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertSymptomReport(report *models.SymptomReport) error {
	symptoms, _ := json.Marshal(report.Symptoms)
	details, _ := json.Marshal(report.Details)
	profile, _ := json.Marshal(report.Profile)
	answers, _ := json.Marshal(report.FollowUpAnswers)

	query := `
		INSERT INTO symptom_reports (id, user_id, symptoms, details, profile, followup_answers, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		report.ID,
		report.UserID,
		string(symptoms),
		string(details),
		string(profile),
		string(answers),
		report.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert symptom report: %w", err)
	}

	logger.Debug("Symptom report inserted", zap.String("report_id", report.ID))
	return nil
}

// UpdateFollowUpAnswers attaches follow-up answers to an existing report.
// This is the only mutation a report sees after creation.
func (c *Client) UpdateFollowUpAnswers(reportID, userID string, answers map[string]bool) error {
	data, _ := json.Marshal(answers)

	res, err := c.db.Exec(
		`UPDATE symptom_reports SET followup_answers = ? WHERE id = ? AND user_id = ?`,
		string(data), reportID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update follow-up answers: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *Client) InsertDiagnosisLog(log *models.DiagnosisLog) error {
	analysis, _ := json.Marshal(log.Analysis)

	refined := 0
	if log.IsRefined {
		refined = 1
	}

	query := `
		INSERT INTO diagnosis_logs (id, user_id, report_id, analysis, urgency, confidence, is_refined, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		log.ID,
		log.UserID,
		log.ReportID,
		string(analysis),
		log.Urgency,
		log.Confidence,
		refined,
		log.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert diagnosis log: %w", err)
	}

	logger.Debug("Diagnosis log inserted",
		zap.String("log_id", log.ID),
		zap.String("report_id", log.ReportID),
		zap.Bool("is_refined", log.IsRefined),
	)
	return nil
}

func (c *Client) ListDiagnosisLogs(userID string, limit int) ([]models.DiagnosisLog, error) {
	query := `
		SELECT id, report_id, analysis, urgency, confidence, is_refined, created_at
		FROM diagnosis_logs
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnosis logs: %w", err)
	}
	defer rows.Close()

	var logs []models.DiagnosisLog
	for rows.Next() {
		var l models.DiagnosisLog
		var analysisJSON string
		var refined int
		var createdAt int64

		if err := rows.Scan(&l.ID, &l.ReportID, &analysisJSON, &l.Urgency, &l.Confidence, &refined, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		json.Unmarshal([]byte(analysisJSON), &l.Analysis)
		l.UserID = userID
		l.IsRefined = refined == 1
		l.CreatedAt = time.Unix(createdAt, 0)
		logs = append(logs, l)
	}

	return logs, rows.Err()
}

func (c *Client) DeleteSymptomReport(id, userID string) error {
	return c.deleteOwned("symptom_reports", id, userID)
}

func (c *Client) InsertPrescriptionAnalysis(p *models.PrescriptionAnalysis) error {
	analysis, _ := json.Marshal(p.Analysis)
	profile, _ := json.Marshal(p.Profile)

	query := `
		INSERT INTO prescription_analyses (id, user_id, raw_text, analysis, profile, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(query, p.ID, p.UserID, p.RawText, string(analysis), string(profile), p.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert prescription analysis: %w", err)
	}

	logger.Debug("Prescription analysis inserted", zap.String("id", p.ID))
	return nil
}

func (c *Client) ListPrescriptionAnalyses(userID string, limit int) ([]models.PrescriptionAnalysis, error) {
	query := `
		SELECT id, raw_text, analysis, profile, created_at
		FROM prescription_analyses
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescription analyses: %w", err)
	}
	defer rows.Close()

	var out []models.PrescriptionAnalysis
	for rows.Next() {
		var p models.PrescriptionAnalysis
		var analysisJSON, profileJSON string
		var createdAt int64

		if err := rows.Scan(&p.ID, &p.RawText, &analysisJSON, &profileJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		json.Unmarshal([]byte(analysisJSON), &p.Analysis)
		json.Unmarshal([]byte(profileJSON), &p.Profile)
		p.UserID = userID
		p.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, p)
	}

	return out, rows.Err()
}

func (c *Client) DeletePrescriptionAnalysis(id, userID string) error {
	return c.deleteOwned("prescription_analyses", id, userID)
}

func (c *Client) InsertMedicationSearch(s *models.MedicationSearch) error {
	info, _ := json.Marshal(s.Info)

	query := `INSERT INTO medication_searches (id, user_id, name, info, created_at) VALUES (?, ?, ?, ?, ?)`

	_, err := c.db.Exec(query, s.ID, s.UserID, s.Name, string(info), s.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert medication search: %w", err)
	}
	return nil
}

func (c *Client) ListMedicationSearches(userID string, limit int) ([]models.MedicationSearch, error) {
	query := `
		SELECT id, name, info, created_at
		FROM medication_searches
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list medication searches: %w", err)
	}
	defer rows.Close()

	var out []models.MedicationSearch
	for rows.Next() {
		var s models.MedicationSearch
		var infoJSON string
		var createdAt int64

		if err := rows.Scan(&s.ID, &s.Name, &infoJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		json.Unmarshal([]byte(infoJSON), &s.Info)
		s.UserID = userID
		s.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, s)
	}

	return out, rows.Err()
}

func (c *Client) DeleteMedicationSearch(id, userID string) error {
	return c.deleteOwned("medication_searches", id, userID)
}

func (c *Client) GetMoodEntryByDate(userID, date string) (*models.MoodEntry, error) {
	query := `
		SELECT id, entry_date, mood, emotions, activities, notes, sleep_hours, energy_level, created_at, updated_at
		FROM mood_entries
		WHERE user_id = ? AND entry_date = ?
		ORDER BY created_at ASC
		LIMIT 1
	`

	row := c.db.QueryRow(query, userID, date)
	entry, err := scanMoodEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get mood entry: %w", err)
	}
	entry.UserID = userID
	return entry, nil
}

func (c *Client) InsertMoodEntry(e *models.MoodEntry) error {
	emotions, _ := json.Marshal(e.Emotions)
	activities, _ := json.Marshal(e.Activities)

	query := `
		INSERT INTO mood_entries (id, user_id, entry_date, mood, emotions, activities, notes, sleep_hours, energy_level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		e.ID,
		e.UserID,
		e.Date,
		e.Mood,
		string(emotions),
		string(activities),
		e.Notes,
		e.SleepHours,
		e.EnergyLevel,
		e.CreatedAt.Unix(),
		e.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert mood entry: %w", err)
	}
	return nil
}

func (c *Client) UpdateMoodEntry(e *models.MoodEntry) error {
	emotions, _ := json.Marshal(e.Emotions)
	activities, _ := json.Marshal(e.Activities)

	query := `
		UPDATE mood_entries
		SET mood = ?, emotions = ?, activities = ?, notes = ?, sleep_hours = ?, energy_level = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`

	res, err := c.db.Exec(
		query,
		e.Mood,
		string(emotions),
		string(activities),
		e.Notes,
		e.SleepHours,
		e.EnergyLevel,
		e.UpdatedAt.Unix(),
		e.ID,
		e.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update mood entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveMoodEntry is the one-per-day upsert: look up the user's entry for the
// date, update it if found, insert otherwise. The check and the write are
// two separate statements; concurrent savers can race into duplicate rows,
// which the product accepts.
func (c *Client) SaveMoodEntry(e *models.MoodEntry) (*models.MoodEntry, error) {
	now := time.Now()

	existing, err := c.GetMoodEntryByDate(e.UserID, e.Date)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		e.ID = existing.ID
		e.CreatedAt = existing.CreatedAt
		e.UpdatedAt = now
		if err := c.UpdateMoodEntry(e); err != nil {
			return nil, err
		}
		logger.Debug("Mood entry updated", zap.String("id", e.ID), zap.String("date", e.Date))
		return e, nil
	}

	e.CreatedAt = now
	e.UpdatedAt = now
	if err := c.InsertMoodEntry(e); err != nil {
		return nil, err
	}
	logger.Debug("Mood entry inserted", zap.String("id", e.ID), zap.String("date", e.Date))
	return e, nil
}

func (c *Client) ListMoodEntries(userID string, from, to string, limit int) ([]models.MoodEntry, error) {
	query := `
		SELECT id, entry_date, mood, emotions, activities, notes, sleep_hours, energy_level, created_at, updated_at
		FROM mood_entries
		WHERE user_id = ?
	`
	args := []interface{}{userID}

	if from != "" {
		query += ` AND entry_date >= ?`
		args = append(args, from)
	}
	if to != "" {
		query += ` AND entry_date <= ?`
		args = append(args, to)
	}
	query += ` ORDER BY entry_date ASC LIMIT ?`
	args = append(args, limit)

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list mood entries: %w", err)
	}
	defer rows.Close()

	var out []models.MoodEntry
	for rows.Next() {
		entry, err := scanMoodEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		entry.UserID = userID
		out = append(out, *entry)
	}

	return out, rows.Err()
}

func (c *Client) DeleteMoodEntry(id, userID string) error {
	return c.deleteOwned("mood_entries", id, userID)
}

func (c *Client) InsertHealthReport(r *models.HealthReport) error {
	data, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal report data: %w", err)
	}

	query := `INSERT INTO health_reports (id, user_id, report_type, data, generated_at) VALUES (?, ?, ?, ?, ?)`

	_, err = c.db.Exec(query, r.ID, r.UserID, r.ReportType, string(data), r.GeneratedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert health report: %w", err)
	}

	logger.Debug("Health report inserted", zap.String("id", r.ID), zap.String("type", r.ReportType))
	return nil
}

func (c *Client) GetHealthReport(id, userID string) (*models.HealthReport, error) {
	query := `SELECT id, report_type, data, generated_at FROM health_reports WHERE id = ? AND user_id = ?`

	var r models.HealthReport
	var dataJSON string
	var generatedAt int64

	err := c.db.QueryRow(query, id, userID).Scan(&r.ID, &r.ReportType, &dataJSON, &generatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get health report: %w", err)
	}

	json.Unmarshal([]byte(dataJSON), &r.Data)
	r.UserID = userID
	r.GeneratedAt = time.Unix(generatedAt, 0)
	return &r, nil
}

func (c *Client) ListHealthReports(userID string, limit int) ([]models.HealthReport, error) {
	query := `
		SELECT id, report_type, data, generated_at
		FROM health_reports
		WHERE user_id = ?
		ORDER BY generated_at DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list health reports: %w", err)
	}
	defer rows.Close()

	var out []models.HealthReport
	for rows.Next() {
		var r models.HealthReport
		var dataJSON string
		var generatedAt int64

		if err := rows.Scan(&r.ID, &r.ReportType, &dataJSON, &generatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		json.Unmarshal([]byte(dataJSON), &r.Data)
		r.UserID = userID
		r.GeneratedAt = time.Unix(generatedAt, 0)
		out = append(out, r)
	}

	return out, rows.Err()
}

func (c *Client) DeleteHealthReport(id, userID string) error {
	return c.deleteOwned("health_reports", id, userID)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMoodEntry(row scanner) (*models.MoodEntry, error) {
	var e models.MoodEntry
	var emotionsJSON, activitiesJSON string
	var sleepHours sql.NullFloat64
	var energyLevel sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(
		&e.ID,
		&e.Date,
		&e.Mood,
		&emotionsJSON,
		&activitiesJSON,
		&e.Notes,
		&sleepHours,
		&energyLevel,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(emotionsJSON), &e.Emotions)
	json.Unmarshal([]byte(activitiesJSON), &e.Activities)
	if sleepHours.Valid {
		v := sleepHours.Float64
		e.SleepHours = &v
	}
	if energyLevel.Valid {
		v := int(energyLevel.Int64)
		e.EnergyLevel = &v
	}
	e.CreatedAt = time.Unix(createdAt, 0)
	e.UpdatedAt = time.Unix(updatedAt, 0)
	return &e, nil
}

func (c *Client) deleteOwned(table, id, userID string) error {
	res, err := c.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE id = ? AND user_id = ?", table), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
