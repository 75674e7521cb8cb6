package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/gongdo-labs/deungdae/internal/extract"
)

// ErrNotFound is returned when a student or record does not exist.
var ErrNotFound = errors.New("store: not found")

// Student is a row in the students table.
type Student struct {
	ID             string `json:"id"`
	DocumentID     string `json:"document_id"`
	Name           string `json:"name"`
	School         string `json:"school"`
	Department     string `json:"department"`
	GraduationYear int    `json:"graduation_year"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// Record is a row in the records table. Evaluation holds the metadata
// payload as stored; it is nil for text-only records, and ContentText is
// empty for evaluation records that never matched extracted text.
type Record struct {
	ID          int64          `json:"id"`
	StudentID   string         `json:"student_id"`
	SectionType string         `json:"section_type"`
	Grade       int            `json:"grade"`
	UnitKey     string         `json:"unit_key"`
	ContentText string         `json:"content_text"`
	Evaluation  map[string]any `json:"evaluation,omitempty"`
}

// Store wraps one SQLite database holding students and their records.
// Reference and client data live in separate Store instances backed by
// separate database files.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path, applies the
// pragmas, creates the schema and runs pending migrations.
func New(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	// Pragmas ride on the DSN so every pooled connection gets them;
	// foreign_keys in particular is per-connection state.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// SaveDocument persists one extraction result. Saving the same document ID
// again replaces the student's records wholesale; partial results never
// survive, the whole save happens in one transaction. Unmatched evaluation
// records are stored alongside merged ones with empty content text.
func (s *Store) SaveDocument(ctx context.Context, result *extract.DocumentResult) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	studentID, err := upsertStudent(ctx, tx, result)
	if err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE student_id = ?", studentID); err != nil {
		return "", fmt.Errorf("clearing previous records: %w", err)
	}

	for _, rec := range result.Records {
		var payload any
		if rec.Evaluation != nil {
			payload, err = marshalPayload(rec.Evaluation.Payload)
			if err != nil {
				return "", err
			}
		}
		if err := insertRecord(ctx, tx, studentID, string(rec.SectionType),
			rec.Grade, rec.UnitKey, rec.ContentText, payload); err != nil {
			return "", err
		}
	}

	for _, eval := range result.UnmatchedMetadata {
		payload, err := marshalPayload(eval.Payload)
		if err != nil {
			return "", err
		}
		if err := insertRecord(ctx, tx, studentID, string(eval.SectionType),
			eval.Grade, eval.UnitKey, "", payload); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing save: %w", err)
	}
	return studentID, nil
}

func upsertStudent(ctx context.Context, tx *sql.Tx, result *extract.DocumentResult) (string, error) {
	var studentID string
	err := tx.QueryRowContext(ctx,
		"SELECT id FROM students WHERE document_id = ?", result.DocumentID).Scan(&studentID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		studentID = uuid.NewString()
		info := studentInfo(result)
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO students (id, document_id, name, school, department, graduation_year)
			VALUES (?, ?, ?, ?, ?, ?)
		`, studentID, result.DocumentID, info.Name, info.School, info.Department, info.GraduationYear); err != nil {
			return "", fmt.Errorf("inserting student: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("looking up student: %w", err)
	default:
		info := studentInfo(result)
		if _, err := tx.ExecContext(ctx, `
			UPDATE students
			SET name = ?, school = ?, department = ?, graduation_year = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, info.Name, info.School, info.Department, info.GraduationYear, studentID); err != nil {
			return "", fmt.Errorf("updating student: %w", err)
		}
	}
	return studentID, nil
}

func studentInfo(result *extract.DocumentResult) extract.StudentInfo {
	if result.Student != nil {
		return *result.Student
	}
	return extract.StudentInfo{}
}

func insertRecord(ctx context.Context, tx *sql.Tx, studentID, section string, grade int, unitKey, content string, payload any) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO records (student_id, section_type, grade, unit_key, content_text, evaluation)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(student_id, section_type, grade, unit_key) DO UPDATE SET
			content_text = excluded.content_text,
			evaluation = COALESCE(excluded.evaluation, records.evaluation)
	`, studentID, section, grade, unitKey, content, payload)
	if err != nil {
		return fmt.Errorf("inserting record %s/%d/%s: %w", section, grade, unitKey, err)
	}
	return nil
}

func marshalPayload(payload map[string]any) (any, error) {
	if payload == nil {
		return nil, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding evaluation payload: %w", err)
	}
	return string(data), nil
}

// GetStudent returns a student by ID.
func (s *Store) GetStudent(ctx context.Context, id string) (*Student, error) {
	st := &Student{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, name, school, department, graduation_year, created_at, updated_at
		FROM students WHERE id = ?
	`, id).Scan(&st.ID, &st.DocumentID, &st.Name, &st.School,
		&st.Department, &st.GraduationYear, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// GetStudentByDocumentID returns a student by the document ID it was
// ingested under.
func (s *Store) GetStudentByDocumentID(ctx context.Context, documentID string) (*Student, error) {
	st := &Student{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, document_id, name, school, department, graduation_year, created_at, updated_at
		FROM students WHERE document_id = ?
	`, documentID).Scan(&st.ID, &st.DocumentID, &st.Name, &st.School,
		&st.Department, &st.GraduationYear, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// ListStudents returns all students, newest first.
func (s *Store) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, name, school, department, graduation_year, created_at, updated_at
		FROM students ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []Student
	for rows.Next() {
		var st Student
		if err := rows.Scan(&st.ID, &st.DocumentID, &st.Name, &st.School,
			&st.Department, &st.GraduationYear, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// ListRecords returns all records of a student in a stable section, grade,
// unit order.
func (s *Store) ListRecords(ctx context.Context, studentID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, student_id, section_type, grade, unit_key, content_text, evaluation
		FROM records WHERE student_id = ?
		ORDER BY section_type, grade, unit_key
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var evaluation sql.NullString
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.SectionType,
			&rec.Grade, &rec.UnitKey, &rec.ContentText, &evaluation); err != nil {
			return nil, err
		}
		if evaluation.Valid && evaluation.String != "" {
			if err := json.Unmarshal([]byte(evaluation.String), &rec.Evaluation); err != nil {
				return nil, fmt.Errorf("decoding evaluation payload for record %d: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteStudent removes a student and, through the foreign key cascade, all
// of their records.
func (s *Store) DeleteStudent(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM students WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
