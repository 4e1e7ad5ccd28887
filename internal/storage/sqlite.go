package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/scaramou4/rereminder-bot-sub000/internal/logger"
	"github.com/scaramou4/rereminder-bot-sub000/internal/reminder"
	"github.com/scaramou4/rereminder-bot-sub000/internal/settings"
)

//go:embed schema.sql
var schemaFS embed.FS

const reminderColumns = `id, user_id, chat_id, description, normalized_description, datetime, repeat,
	completed, postponed_count, series_anchor, message_id, inertia_message_id, initial_message_edited,
	inertia_instance, created_at, updated_at, version`

// SQLiteStore keeps reminders in a single SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger *logger.Logger
	now    func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and applies the schema.
func OpenSQLite(path string, busyTimeoutSeconds int, log *logger.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// один писатель, иначе SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if busyTimeoutSeconds > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutSeconds*1000))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if log == nil {
		log = logger.Nop()
	}
	s := &SQLiteStore{db: db, logger: log.Component("storage"), now: time.Now}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Info("sqlite store opened", logger.Field{Key: "path", Value: path})
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	b, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, string(b)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	// базы, созданные до появления series_anchor
	_, err = s.db.ExecContext(ctx, `ALTER TABLE reminders ADD COLUMN series_anchor INTEGER NOT NULL DEFAULT 0`)
	if err != nil && !strings.Contains(err.Error(), "duplicate column name") {
		return fmt.Errorf("add series_anchor column: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create inserts a new reminder with Version 1.
func (s *SQLiteStore) Create(ctx context.Context, r *reminder.Reminder) error {
	now := s.now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	r.Version = 1

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(`+reminderColumns+`) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.UserID, r.ChatID, r.Description, r.NormalizedDescription, r.Datetime.UnixMilli(), r.Repeat,
		r.Completed, r.PostponedCount, anchorMillis(r.SeriesAnchor), r.MessageID, r.InertiaMessageID, r.InitialMessageEdited,
		r.InertiaInstance, r.CreatedAt.UnixMilli(), r.UpdatedAt.UnixMilli(), r.Version,
	)
	if isUniqueViolation(err) {
		return reminder.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

// Get returns the reminder or reminder.ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*reminder.Reminder, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reminder.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder %s: %w", id, err)
	}
	return r, nil
}

// Update writes r if the stored version still equals r.Version, then bumps it.
func (s *SQLiteStore) Update(ctx context.Context, r *reminder.Reminder) error {
	updatedAt := s.now()
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET
			chat_id = ?, description = ?, normalized_description = ?, datetime = ?, repeat = ?,
			completed = ?, postponed_count = ?, series_anchor = ?, message_id = ?, inertia_message_id = ?,
			initial_message_edited = ?, inertia_instance = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`,
		r.ChatID, r.Description, r.NormalizedDescription, r.Datetime.UnixMilli(), r.Repeat,
		r.Completed, r.PostponedCount, anchorMillis(r.SeriesAnchor), r.MessageID, r.InertiaMessageID,
		r.InitialMessageEdited, r.InertiaInstance, updatedAt.UnixMilli(),
		r.ID, r.Version,
	)
	if isUniqueViolation(err) {
		return reminder.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("update reminder %s: %w", r.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reminder %s: %w", r.ID, err)
	}
	if n == 0 {
		if _, err := s.Get(ctx, r.ID); err != nil {
			return err
		}
		return reminder.ErrConflict
	}

	r.Version++
	r.UpdatedAt = updatedAt
	return nil
}

// Delete removes the reminder and returns the removed record.
func (s *SQLiteStore) Delete(ctx context.Context, id string) (*reminder.Reminder, error) {
	r, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete reminder %s: %w", id, err)
	}
	return r, nil
}

// DeleteByUser removes every reminder of the user and returns them.
func (s *SQLiteStore) DeleteByUser(ctx context.Context, userID int64) ([]reminder.Reminder, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders of %d: %w", userID, err)
	}
	removed, err := collect(rows)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM reminders WHERE user_id = ?`, userID); err != nil {
		return nil, fmt.Errorf("delete reminders of %d: %w", userID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return removed, nil
}

// ListByUser returns the user's reminders ordered by next trigger.
func (s *SQLiteStore) ListByUser(ctx context.Context, userID int64, activeOnly bool) ([]reminder.Reminder, error) {
	q := `SELECT ` + reminderColumns + ` FROM reminders WHERE user_id = ?`
	if activeOnly {
		q += ` AND completed = 0`
	}
	q += ` ORDER BY datetime ASC, created_at ASC`

	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders of %d: %w", userID, err)
	}
	return collect(rows)
}

// FindActiveByDescription looks up the active reminder with the same
// normalized description.
func (s *SQLiteStore) FindActiveByDescription(ctx context.Context, userID int64, normalized string) (*reminder.Reminder, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE user_id = ? AND normalized_description = ? AND completed = 0`,
		userID, normalized)
	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, reminder.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find reminder: %w", err)
	}
	return r, nil
}

// ListActive returns every non-completed reminder.
func (s *SQLiteStore) ListActive(ctx context.Context) ([]reminder.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE completed = 0 ORDER BY datetime ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active reminders: %w", err)
	}
	return collect(rows)
}

// PurgeCompleted removes completed reminders last updated before cutoff.
func (s *SQLiteStore) PurgeCompleted(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE completed = 1 AND updated_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge completed reminders: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// GetSettings returns stored overrides or settings.ErrNotFound.
func (s *SQLiteStore) GetSettings(ctx context.Context, userID int64) (*settings.UserSettings, error) {
	var us settings.UserSettings
	err := s.db.QueryRowContext(ctx,
		`SELECT timezone, morning_time, evening_time, auto_postpone_minutes
		 FROM user_settings WHERE user_id = ?`, userID,
	).Scan(&us.Timezone, &us.MorningTime, &us.EveningTime, &us.AutoPostponeMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, settings.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get settings of %d: %w", userID, err)
	}
	return &us, nil
}

// SaveSettings upserts the user's overrides.
func (s *SQLiteStore) SaveSettings(ctx context.Context, userID int64, us settings.UserSettings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_settings(user_id, timezone, morning_time, evening_time, auto_postpone_minutes, updated_at)
		 VALUES(?,?,?,?,?,?)
		 ON CONFLICT(user_id) DO UPDATE SET
			timezone = excluded.timezone,
			morning_time = excluded.morning_time,
			evening_time = excluded.evening_time,
			auto_postpone_minutes = excluded.auto_postpone_minutes,
			updated_at = excluded.updated_at`,
		userID, us.Timezone, us.MorningTime, us.EveningTime, us.AutoPostponeMinutes, s.now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save settings of %d: %w", userID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*reminder.Reminder, error) {
	var (
		r                       reminder.Reminder
		at, anchor              int64
		created, updated        int64
		completed, editedOrigin bool
	)
	err := row.Scan(
		&r.ID, &r.UserID, &r.ChatID, &r.Description, &r.NormalizedDescription, &at, &r.Repeat,
		&completed, &r.PostponedCount, &anchor, &r.MessageID, &r.InertiaMessageID, &editedOrigin,
		&r.InertiaInstance, &created, &updated, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	r.Completed = completed
	r.InitialMessageEdited = editedOrigin
	r.Datetime = time.UnixMilli(at).UTC()
	if anchor != 0 {
		r.SeriesAnchor = time.UnixMilli(anchor).UTC()
	}
	r.CreatedAt = time.UnixMilli(created).UTC()
	r.UpdatedAt = time.UnixMilli(updated).UTC()
	return &r, nil
}

func collect(rows *sql.Rows) ([]reminder.Reminder, error) {
	defer rows.Close()

	var out []reminder.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// 0 = нет якоря
func anchorMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
