package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"coursegen/internal/course"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection serializes parallel
	// module saves instead of failing them with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS modules (
			id TEXT PRIMARY KEY,
			course_id TEXT NOT NULL DEFAULT '',
			title TEXT,
			exam_type TEXT,
			content TEXT,
			summary TEXT,
			subsections JSON,
			updated_at TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_modules_course ON modules(course_id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

const upsertModule = `
	INSERT INTO modules (id, course_id, title, exam_type, content, summary, subsections, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		course_id=excluded.course_id,
		title=excluded.title,
		exam_type=excluded.exam_type,
		content=excluded.content,
		summary=excluded.summary,
		subsections=excluded.subsections,
		updated_at=excluded.updated_at
`

const selectModule = `SELECT id, course_id, title, exam_type, content, summary, subsections, updated_at FROM modules`

func (s *SQLiteStore) SaveModule(ctx context.Context, m *course.Module) error {
	args, err := s.moduleArgs(m)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, upsertModule, args...)
	return err
}

func (s *SQLiteStore) SaveModules(ctx context.Context, modules []*course.Module) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertModule)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range modules {
		args, err := s.moduleArgs(m)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to save module %s: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// moduleArgs stamps UpdatedAt and encodes subsections in the persisted
// document shape.
func (s *SQLiteStore) moduleArgs(m *course.Module) ([]any, error) {
	if m == nil || strings.TrimSpace(m.ID) == "" {
		return nil, fmt.Errorf("module id is required")
	}
	subs := m.Subsections
	if subs == nil {
		subs = []course.Subsection{}
	}
	raw, err := json.Marshal(subs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode subsections of %s: %w", m.ID, err)
	}
	m.UpdatedAt = s.now().UTC()
	return []any{m.ID, m.CourseID, m.Title, m.ExamType, m.Content, m.Summary, string(raw), m.UpdatedAt.Format(time.RFC3339Nano)}, nil
}

func (s *SQLiteStore) GetModule(ctx context.Context, id string) (*course.Module, error) {
	row := s.db.QueryRowContext(ctx, selectModule+` WHERE id = ?`, id)
	m, err := scanModule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return m, err
}

func (s *SQLiteStore) ListModules(ctx context.Context, courseID string) ([]*course.Module, error) {
	query := selectModule + ` ORDER BY id`
	var args []any
	if courseID != "" {
		query = selectModule + ` WHERE course_id = ? ORDER BY id`
		args = append(args, courseID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var modules []*course.Module
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

func (s *SQLiteStore) DeleteModule(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM modules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanModule(sc scanner) (*course.Module, error) {
	var (
		m                    course.Module
		title, exam, content sql.NullString
		summary, subs, stamp sql.NullString
	)
	if err := sc.Scan(&m.ID, &m.CourseID, &title, &exam, &content, &summary, &subs, &stamp); err != nil {
		return nil, err
	}
	m.Title, m.ExamType, m.Content, m.Summary = title.String, exam.String, content.String, summary.String

	if subs.Valid && subs.String != "" {
		if err := json.Unmarshal([]byte(subs.String), &m.Subsections); err != nil {
			return nil, fmt.Errorf("failed to decode subsections of %s: %w", m.ID, err)
		}
	}
	if stamp.Valid && stamp.String != "" {
		if t, err := time.Parse(time.RFC3339Nano, stamp.String); err == nil {
			m.UpdatedAt = t
		}
	}
	return &m, nil
}
