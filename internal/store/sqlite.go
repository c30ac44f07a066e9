package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/brandintel/internal/model"
)

// SQLiteStore implements SubjectStore, UnitStore, and DocumentStore on a
// single SQLite database. Use ":memory:" for tests.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (or creates) the database and initializes the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS subjects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		owner_id TEXT NOT NULL DEFAULT '',
		content_updated_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS extraction_units (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		subject_id TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		unit_type TEXT NOT NULL,
		status TEXT NOT NULL,
		raw_output TEXT NOT NULL DEFAULT '',
		parsed BLOB,
		error_message TEXT NOT NULL DEFAULT '',
		retry_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		started_at INTEGER,
		completed_at INTEGER,
		UNIQUE(subject_id, unit_type)
	);
	CREATE INDEX IF NOT EXISTS idx_units_subject ON extraction_units(subject_id);
	CREATE TABLE IF NOT EXISTS documents (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		subject_id TEXT NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
		template_id TEXT NOT NULL,
		status TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		content BLOB,
		markdown TEXT NOT NULL DEFAULT '',
		inputs BLOB,
		error_message TEXT NOT NULL DEFAULT '',
		external_ref TEXT NOT NULL DEFAULT '',
		exported_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_subject ON documents(subject_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// --- subjects ---

func (s *SQLiteStore) Insert(ctx context.Context, sub *model.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subjects (id, name, content, owner_id, content_updated_at, updated_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.Name, sub.Content, sub.OwnerID,
		sub.ContentUpdatedAt.UnixNano(), sub.UpdatedAt.UnixNano(), sub.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert subject: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, content, owner_id, content_updated_at, updated_at, created_at
		 FROM subjects WHERE id = ?`, id)

	var sub model.Subject
	var contentUpdated, updated, created int64
	err := row.Scan(&sub.ID, &sub.Name, &sub.Content, &sub.OwnerID, &contentUpdated, &updated, &created)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("subject %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan subject: %w", err)
	}
	sub.ContentUpdatedAt = time.Unix(0, contentUpdated)
	sub.UpdatedAt = time.Unix(0, updated)
	sub.CreatedAt = time.Unix(0, created)
	return &sub, nil
}

func (s *SQLiteStore) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, content, owner_id, content_updated_at, updated_at, created_at
		 FROM subjects ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	var subjects []model.Subject
	for rows.Next() {
		var sub model.Subject
		var contentUpdated, updated, created int64
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Content, &sub.OwnerID, &contentUpdated, &updated, &created); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		sub.ContentUpdatedAt = time.Unix(0, contentUpdated)
		sub.UpdatedAt = time.Unix(0, updated)
		sub.CreatedAt = time.Unix(0, created)
		subjects = append(subjects, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return subjects, nil
}

func (s *SQLiteStore) Touch(ctx context.Context, id, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixNano()
	var res sql.Result
	var err error
	if content == "" {
		res, err = s.db.ExecContext(ctx,
			"UPDATE subjects SET updated_at = ? WHERE id = ?", now, id)
	} else {
		res, err = s.db.ExecContext(ctx,
			"UPDATE subjects SET content = ?, content_updated_at = ?, updated_at = ? WHERE id = ?",
			content, now, now, id)
	}
	if err != nil {
		return fmt.Errorf("touch subject: %w", err)
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM subjects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return requireRow(res, id)
}

// --- extraction units ---

func (s *SQLiteStore) SeedUnits(ctx context.Context, subjectID string, unitTypes []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixNano()
	for _, ut := range unitTypes {
		// Upsert over the natural key: existing units are left untouched so
		// re-seeding never resets in-flight or completed work.
		_, err := tx.ExecContext(ctx,
			`INSERT INTO extraction_units (id, subject_id, unit_type, status, created_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(subject_id, unit_type) DO NOTHING`,
			newUnitID(subjectID, ut), subjectID, ut, string(model.UnitStatusQueued), now,
		)
		if err != nil {
			return fmt.Errorf("seed unit %s: %w", ut, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, u *model.ExtractionUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE extraction_units
		 SET status = ?, raw_output = ?, parsed = ?, error_message = ?, retry_count = ?,
		     started_at = ?, completed_at = ?
		 WHERE subject_id = ? AND unit_type = ?`,
		string(u.Status), u.RawOutput, []byte(u.Parsed), u.ErrorMessage, u.RetryCount,
		nanosOrNil(u.StartedAt), nanosOrNil(u.CompletedAt),
		u.SubjectID, u.UnitType,
	)
	if err != nil {
		return fmt.Errorf("update unit %s/%s: %w", u.SubjectID, u.UnitType, err)
	}
	return requireRow(res, u.UnitType)
}

func (s *SQLiteStore) GetUnit(ctx context.Context, subjectID, unitType string) (*model.ExtractionUnit, error) {
	units, err := s.queryUnits(ctx,
		"WHERE subject_id = ? AND unit_type = ?", subjectID, unitType)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("unit %s/%s: %w", subjectID, unitType, ErrNotFound)
	}
	return &units[0], nil
}

func (s *SQLiteStore) ListBySubject(ctx context.Context, subjectID string) ([]model.ExtractionUnit, error) {
	return s.queryUnits(ctx, "WHERE subject_id = ? ORDER BY seq", subjectID)
}

func (s *SQLiteStore) queryUnits(ctx context.Context, where string, args ...any) ([]model.ExtractionUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject_id, unit_type, status, raw_output, parsed, error_message,
		        retry_count, created_at, started_at, completed_at
		 FROM extraction_units `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	var units []model.ExtractionUnit
	for rows.Next() {
		var u model.ExtractionUnit
		var status string
		var created int64
		var started, completed sql.NullInt64
		var parsed []byte
		err := rows.Scan(&u.ID, &u.SubjectID, &u.UnitType, &status, &u.RawOutput, &parsed,
			&u.ErrorMessage, &u.RetryCount, &created, &started, &completed)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		u.Status = model.UnitStatus(status)
		u.Parsed = parsed
		u.CreatedAt = time.Unix(0, created)
		u.StartedAt = timeOrNil(started)
		u.CompletedAt = timeOrNil(completed)
		units = append(units, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate units: %w", err)
	}
	return units, nil
}

// --- documents ---

func (s *SQLiteStore) InsertDocument(ctx context.Context, d *model.GeneratedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, subject_id, template_id, status, title, content, markdown,
		                        inputs, error_message, external_ref, exported_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.SubjectID, d.TemplateID, string(d.Status), d.Title, []byte(d.Content), d.Markdown,
		[]byte(d.Inputs), d.ErrorMsg, d.ExternalRef, nanosOrNil(d.ExportedAt),
		d.CreatedAt.UnixNano(), d.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateDocument(ctx context.Context, d *model.GeneratedDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents
		 SET status = ?, title = ?, content = ?, markdown = ?, inputs = ?, error_message = ?,
		     external_ref = ?, exported_at = ?, updated_at = ?
		 WHERE id = ?`,
		string(d.Status), d.Title, []byte(d.Content), d.Markdown, []byte(d.Inputs), d.ErrorMsg,
		d.ExternalRef, nanosOrNil(d.ExportedAt), time.Now().UnixNano(), d.ID,
	)
	if err != nil {
		return fmt.Errorf("update document %s: %w", d.ID, err)
	}
	return requireRow(res, d.ID)
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return requireRow(res, id)
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*model.GeneratedDocument, error) {
	docs, err := s.queryDocuments(ctx, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return &docs[0], nil
}

func (s *SQLiteStore) ListDocumentsBySubject(ctx context.Context, subjectID string) ([]model.GeneratedDocument, error) {
	return s.queryDocuments(ctx, "WHERE subject_id = ? ORDER BY seq DESC", subjectID)
}

func (s *SQLiteStore) queryDocuments(ctx context.Context, where string, args ...any) ([]model.GeneratedDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, subject_id, template_id, status, title, content, markdown, inputs,
		        error_message, external_ref, exported_at, created_at, updated_at
		 FROM documents `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []model.GeneratedDocument
	for rows.Next() {
		var d model.GeneratedDocument
		var status string
		var content, inputs []byte
		var exported sql.NullInt64
		var created, updated int64
		err := rows.Scan(&d.ID, &d.SubjectID, &d.TemplateID, &status, &d.Title, &content,
			&d.Markdown, &inputs, &d.ErrorMsg, &d.ExternalRef, &exported, &created, &updated)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Status = model.DocumentStatus(status)
		d.Content = content
		d.Inputs = inputs
		d.ExportedAt = timeOrNil(exported)
		d.CreatedAt = time.Unix(0, created)
		d.UpdatedAt = time.Unix(0, updated)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// --- helpers ---

func requireRow(res sql.Result, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return nil
}

func nanosOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func timeOrNil(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64)
	return &t
}
