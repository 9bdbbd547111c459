package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/gavel/internal/models"
)

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// SQLite works best with a single connection; it also keeps :memory: databases alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS committees (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			settings TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS countries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			committee_id INTEGER NOT NULL,
			member_id TEXT,
			name TEXT NOT NULL,
			code TEXT NOT NULL COLLATE NOCASE,
			flag_query TEXT,
			attendance TEXT DEFAULT 'present',
			position INTEGER NOT NULL,
			FOREIGN KEY (committee_id) REFERENCES committees(id) ON DELETE CASCADE,
			UNIQUE(committee_id, code)
		)`,
		`CREATE TABLE IF NOT EXISTS motions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			committee_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL,
			proposing_country TEXT NOT NULL,
			status TEXT NOT NULL,
			duration REAL DEFAULT 0,
			speaking_time INTEGER DEFAULT 0,
			total_speakers INTEGER DEFAULT 0,
			total_time INTEGER DEFAULT 0,
			votes_for INTEGER DEFAULT 0,
			votes_against INTEGER DEFAULT 0,
			abstentions INTEGER DEFAULT 0,
			display_order INTEGER DEFAULT 0,
			parent_motion_id INTEGER,
			extension TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (committee_id) REFERENCES committees(id) ON DELETE CASCADE,
			FOREIGN KEY (parent_motion_id) REFERENCES motions(id) ON DELETE SET NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			committee_id INTEGER PRIMARY KEY,
			data TEXT NOT NULL,
			saved_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (committee_id) REFERENCES committees(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS activity_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			committee_id INTEGER NOT NULL,
			action TEXT NOT NULL,
			detail TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (committee_id) REFERENCES committees(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_countries_committee ON countries(committee_id)`,
		`CREATE INDEX IF NOT EXISTS idx_motions_committee ON motions(committee_id)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_committee ON activity_log(committee_id)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	// base_url is not seeded here; the app sets it from the detected LAN address
	defaultSettings := map[string]string{
		"roster_url": "",
	}

	for key, value := range defaultSettings {
		_, err := r.db.Exec(`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, value)
		if err != nil {
			return err
		}
	}

	return nil
}

// ==================== Committee Methods ====================

// CreateCommittee inserts a committee without members
func (r *Repository) CreateCommittee(ctx context.Context, name string, settings models.CommitteeSettings) (int64, error) {
	data, _ := json.Marshal(settings) // plain struct, marshal never fails
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO committees (name, settings, created_at) VALUES (?, ?, ?)`,
		name, string(data), time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// CommitteeExists checks if a committee with the given name exists
func (r *Repository) CommitteeExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM committees WHERE name = ?)`, name).Scan(&exists)
	return exists, err
}

// GetCommittee returns a committee and its roster in roster order
func (r *Repository) GetCommittee(ctx context.Context, id int64) (*models.Committee, error) {
	var c models.Committee
	var settings string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, settings, created_at FROM committees WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &settings, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.Settings = decodeSettings(settings)

	countries, err := r.ListCountries(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Countries = countries
	return &c, nil
}

// ListCommittees returns every committee without its roster
func (r *Repository) ListCommittees(ctx context.Context) ([]models.Committee, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, settings, created_at FROM committees ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	committees := []models.Committee{}
	for rows.Next() {
		var c models.Committee
		var settings string
		if err := rows.Scan(&c.ID, &c.Name, &settings, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Settings = decodeSettings(settings)
		c.Countries = []models.Country{}
		committees = append(committees, c)
	}
	return committees, rows.Err()
}

// UpdateCommitteeSettings replaces the feature toggles of a committee
func (r *Repository) UpdateCommitteeSettings(ctx context.Context, id int64, settings models.CommitteeSettings) error {
	data, _ := json.Marshal(settings)
	result, err := r.db.ExecContext(ctx, `UPDATE committees SET settings = ? WHERE id = ?`, string(data), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// DeleteCommittee removes a committee; members, motions, snapshots and activity cascade
func (r *Repository) DeleteCommittee(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM committees WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// decodeSettings falls back to defaults for rows written before a field existed
func decodeSettings(data string) models.CommitteeSettings {
	settings := models.DefaultSettings()
	_ = json.Unmarshal([]byte(data), &settings)
	return settings
}

// ==================== Country Methods ====================

// ListCountries returns a committee roster in position order
func (r *Repository) ListCountries(ctx context.Context, committeeID int64) ([]models.Country, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT member_id, name, code, flag_query, attendance
		FROM countries
		WHERE committee_id = ?
		ORDER BY position
	`, committeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	countries := []models.Country{}
	for rows.Next() {
		var c models.Country
		var memberID, flagQuery, attendance sql.NullString
		if err := rows.Scan(&memberID, &c.Name, &c.Code, &flagQuery, &attendance); err != nil {
			return nil, err
		}
		c.ID = memberID.String
		c.FlagQuery = flagQuery.String
		c.Attendance = models.Attendance(attendance.String)
		countries = append(countries, c)
	}
	return countries, rows.Err()
}

// ReplaceCountries swaps the whole roster of a committee in one transaction
func (r *Repository) ReplaceCountries(ctx context.Context, committeeID int64, countries []models.Country) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM countries WHERE committee_id = ?`, committeeID); err != nil {
		return err
	}
	for i, c := range countries {
		attendance := c.Attendance
		if attendance == "" {
			attendance = models.AttendancePresent
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO countries (committee_id, member_id, name, code, flag_query, attendance, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, committeeID, c.ID, c.Name, c.Code, c.FlagQuery, string(attendance), i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetAttendance records roll call for one member
func (r *Repository) SetAttendance(ctx context.Context, committeeID int64, code string, attendance models.Attendance) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE countries SET attendance = ? WHERE committee_id = ? AND code = ?`,
		string(attendance), committeeID, code)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// ==================== Motion Methods ====================

const motionColumns = `id, committee_id, name, type, proposing_country, status, duration, speaking_time,
	total_speakers, total_time, votes_for, votes_against, abstentions, display_order, extension, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMotion(s rowScanner) (models.Motion, error) {
	var m models.Motion
	var typ, status string
	var extension sql.NullString
	err := s.Scan(&m.ID, &m.CommitteeID, &m.Name, &typ, &m.ProposingCountry, &status, &m.Duration,
		&m.SpeakingTime, &m.TotalSpeakers, &m.TotalTime, &m.VotesFor, &m.VotesAgainst, &m.Abstentions,
		&m.DisplayOrder, &extension, &m.CreatedAt)
	if err != nil {
		return m, err
	}
	m.Type = models.MotionType(typ)
	m.Status = models.MotionStatus(status)
	if extension.Valid && extension.String != "" {
		var details models.ExtensionDetails
		if err := json.Unmarshal([]byte(extension.String), &details); err != nil {
			return m, err
		}
		m.Extension = &details
	}
	return m, nil
}

func encodeExtension(m models.Motion) (sql.NullString, sql.NullInt64) {
	if m.Extension == nil {
		return sql.NullString{}, sql.NullInt64{}
	}
	data, _ := json.Marshal(m.Extension)
	return sql.NullString{String: string(data), Valid: true},
		sql.NullInt64{Int64: m.Extension.ParentMotionID, Valid: m.Extension.ParentMotionID > 0}
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateMotion inserts a motion at the end of the committee's display order
func (r *Repository) CreateMotion(ctx context.Context, m models.Motion) (int64, error) {
	return insertMotion(ctx, r.db, m)
}

func insertMotion(ctx context.Context, db execer, m models.Motion) (int64, error) {
	extension, parentID := encodeExtension(m)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	result, err := db.ExecContext(ctx, `
		INSERT INTO motions (committee_id, name, type, proposing_country, status, duration, speaking_time,
			total_speakers, total_time, votes_for, votes_against, abstentions, display_order,
			parent_motion_id, extension, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(display_order) + 1, 0) FROM motions WHERE committee_id = ?),
			?, ?, ?)
	`, m.CommitteeID, m.Name, string(m.Type), m.ProposingCountry, string(m.Status), m.Duration, m.SpeakingTime,
		m.TotalSpeakers, m.TotalTime, m.VotesFor, m.VotesAgainst, m.Abstentions,
		m.CommitteeID, parentID, extension, m.CreatedAt)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetMotion retrieves a motion by id
func (r *Repository) GetMotion(ctx context.Context, id int64) (*models.Motion, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+motionColumns+` FROM motions WHERE id = ?`, id)
	m, err := scanMotion(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMotions returns a committee's motions in display order
func (r *Repository) ListMotions(ctx context.Context, committeeID int64) ([]models.Motion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+motionColumns+` FROM motions WHERE committee_id = ? ORDER BY display_order, id`, committeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	motions := []models.Motion{}
	for rows.Next() {
		m, err := scanMotion(rows)
		if err != nil {
			return nil, err
		}
		motions = append(motions, m)
	}
	return motions, rows.Err()
}

// UpdateMotion writes every mutable field of a motion
func (r *Repository) UpdateMotion(ctx context.Context, m models.Motion) error {
	return updateMotion(ctx, r.db, m)
}

func updateMotion(ctx context.Context, db execer, m models.Motion) error {
	extension, parentID := encodeExtension(m)
	result, err := db.ExecContext(ctx, `
		UPDATE motions SET name = ?, status = ?, duration = ?, speaking_time = ?, total_speakers = ?,
			total_time = ?, votes_for = ?, votes_against = ?, abstentions = ?, display_order = ?,
			parent_motion_id = ?, extension = ?
		WHERE id = ?
	`, m.Name, string(m.Status), m.Duration, m.SpeakingTime, m.TotalSpeakers,
		m.TotalTime, m.VotesFor, m.VotesAgainst, m.Abstentions, m.DisplayOrder,
		parentID, extension, m.ID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// SettleMotion writes a decided motion together with the motions its outcome
// changed, all or nothing. A motion without an id is inserted. Returns the
// decided motion as stored.
func (r *Repository) SettleMotion(ctx context.Context, m models.Motion, related ...models.Motion) (*models.Motion, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	id := m.ID
	if id == 0 {
		if id, err = insertMotion(ctx, tx, m); err != nil {
			return nil, err
		}
	} else if err := updateMotion(ctx, tx, m); err != nil {
		return nil, err
	}
	for _, other := range related {
		if err := updateMotion(ctx, tx, other); err != nil {
			return nil, err
		}
	}

	stored, err := scanMotion(tx.QueryRowContext(ctx, `SELECT `+motionColumns+` FROM motions WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &stored, nil
}

// UpdateMotionOrder sets display_order to each id's index in ids
func (r *Repository) UpdateMotionOrder(ctx context.Context, committeeID int64, ids []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`UPDATE motions SET display_order = ? WHERE id = ? AND committee_id = ?`, i, id, committeeID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ==================== Snapshot Methods ====================

// SaveSnapshot replaces the committee's cached session state
func (r *Repository) SaveSnapshot(ctx context.Context, committeeID int64, snap models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (committee_id, data, saved_at) VALUES (?, ?, ?)`,
		committeeID, string(data), snap.SavedAt)
	return err
}

// GetSnapshot returns the cached session state for a committee
func (r *Repository) GetSnapshot(ctx context.Context, committeeID int64) (*models.Snapshot, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE committee_id = ?`, committeeID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var snap models.Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, err
	}
	snap.ID = committeeID
	return &snap, nil
}

// DeleteSnapshot drops the cached session state
func (r *Repository) DeleteSnapshot(ctx context.Context, committeeID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE committee_id = ?`, committeeID)
	return err
}

// ==================== Activity Methods ====================

// AddActivity appends an entry to the activity log
func (r *Repository) AddActivity(ctx context.Context, entry models.ActivityEntry) (int64, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_log (committee_id, action, detail, created_at) VALUES (?, ?, ?, ?)`,
		entry.CommitteeID, entry.Action, entry.Detail, entry.CreatedAt)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListActivity returns the latest entries for a committee, newest first
func (r *Repository) ListActivity(ctx context.Context, committeeID int64, limit int) ([]models.ActivityEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, committee_id, action, detail, created_at
		FROM activity_log
		WHERE committee_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, committeeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.ActivityEntry{}
	for rows.Next() {
		var e models.ActivityEntry
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.CommitteeID, &e.Action, &detail, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Detail = detail.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting updates a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// ==================== Database Management Methods ====================

// validTables defines which tables can be safely cleared
var validTables = map[string]bool{
	"activity_log": true, "snapshots": true, "motions": true, "countries": true, "committees": true,
}

// ClearTable clears all data from a table
// Only allows clearing whitelisted tables to prevent SQL injection
func (r *Repository) ClearTable(ctx context.Context, table string) error {
	if !validTables[table] {
		return ErrInvalidTable
	}

	// Safe to use string concatenation now that we've validated the table name
	_, err := r.db.ExecContext(ctx, "DELETE FROM "+table)
	return err
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
