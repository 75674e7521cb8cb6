package store

// schemaSQL is the DDL for the record store. Records hang off students and
// disappear with them; one logical record per (student, section, grade,
// unit) key.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS students (
    id TEXT PRIMARY KEY,
    document_id TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL DEFAULT '',
    school TEXT NOT NULL DEFAULT '',
    department TEXT NOT NULL DEFAULT '',
    graduation_year INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS records (
    id INTEGER PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    section_type TEXT NOT NULL,
    grade INTEGER NOT NULL,
    unit_key TEXT NOT NULL DEFAULT '',
    content_text TEXT NOT NULL DEFAULT '',
    evaluation JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(student_id, section_type, grade, unit_key)
);

CREATE INDEX IF NOT EXISTS idx_records_student ON records(student_id);
CREATE INDEX IF NOT EXISTS idx_records_section ON records(section_type);
`
