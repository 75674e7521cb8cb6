package extract

import "fmt"

// SectionType identifies which sub-pipeline produced a record and which
// merge key shape applies.
type SectionType string

const (
	// SectionActivity covers table-sourced 창의적 체험활동상황 entries.
	SectionActivity SectionType = "ACTIVITY"
	// SectionSubject covers text-sourced 세부능력 및 특기사항 notes.
	SectionSubject SectionType = "SUBJECT"
	// SectionBehavior covers text-sourced 행동특성 및 종합의견 notes.
	SectionBehavior SectionType = "BEHAVIOR"
)

// Key is the merge key shared by raw and evaluation records. Within one
// document both sides carry the same document ID, so the key itself only
// holds the section-scoped fields.
type Key struct {
	Section SectionType
	Grade   int
	Unit    string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d/%s", k.Section, k.Grade, k.Unit)
}

// RawRecord is one attributed text fragment extracted from a PDF.
type RawRecord struct {
	DocumentID  string      `json:"document_id"`
	SectionType SectionType `json:"section_type"`
	Grade       int         `json:"grade"`
	// UnitKey distinguishes sibling records within the same grade: the
	// semester label for ACTIVITY, the subject name for SUBJECT, empty for
	// BEHAVIOR.
	UnitKey     string `json:"unit_key"`
	ContentText string `json:"content_text"`
}

// Key returns the merge key for the record.
func (r RawRecord) Key() Key {
	return Key{Section: r.SectionType, Grade: r.Grade, Unit: r.UnitKey}
}

// EvaluationRecord is one evaluation payload parsed from a metadata file.
// The payload is opaque to the engine beyond key well-formedness; unknown
// keys are preserved for forward compatibility.
type EvaluationRecord struct {
	DocumentID  string         `json:"document_id"`
	SectionType SectionType    `json:"section_type"`
	Grade       int            `json:"grade"`
	UnitKey     string         `json:"unit_key"`
	Payload     map[string]any `json:"payload"`
}

// Key returns the merge key for the record.
func (e EvaluationRecord) Key() Key {
	return Key{Section: e.SectionType, Grade: e.Grade, Unit: e.UnitKey}
}

// Evaluation returns the conventional 평가내용 payload field, if present.
func (e EvaluationRecord) Evaluation() string {
	s, _ := e.Payload["평가내용"].(string)
	return s
}

// Reason returns the conventional 이유 payload field, if present.
func (e EvaluationRecord) Reason() string {
	s, _ := e.Payload["이유"].(string)
	return s
}

// MergedRecord is a RawRecord joined with its evaluation counterpart.
// Evaluation is nil for text-only records.
type MergedRecord struct {
	RawRecord
	Evaluation *EvaluationRecord `json:"evaluation,omitempty"`
}

// StudentInfo holds the 학생정보 block of an evaluation metadata file.
type StudentInfo struct {
	Name           string `json:"name"`
	School         string `json:"school"`
	Department     string `json:"department"`
	GraduationYear int    `json:"graduation_year"`
	// CareerHopes maps grade to the student's declared 희망분야 for that year.
	CareerHopes map[int]string `json:"career_hopes,omitempty"`
	// Extra preserves 학생정보 keys without a typed destination.
	Extra map[string]any `json:"extra,omitempty"`
}

// EvaluationSet is the parsed form of one evaluation metadata file.
type EvaluationSet struct {
	DocumentID string
	Student    StudentInfo
	Records    map[Key]EvaluationRecord
}

// DocumentResult is the final per-document record set handed to persistence.
// UnmatchedMetadata holds evaluation records with no PDF counterpart; they
// are reported, never dropped.
type DocumentResult struct {
	DocumentID        string             `json:"document_id"`
	Student           *StudentInfo       `json:"student,omitempty"`
	Records           []MergedRecord     `json:"records"`
	UnmatchedMetadata []EvaluationRecord `json:"unmatched_metadata,omitempty"`
	Diagnostics       []Diagnostic       `json:"diagnostics,omitempty"`
}

// DiagnosticCode classifies a recoverable extraction finding.
type DiagnosticCode string

const (
	// DiagNoExtractableText marks a document rejected as image-only.
	DiagNoExtractableText DiagnosticCode = "no_extractable_text"
	// DiagNoSectionsFound marks a section type with zero recognized boundaries.
	DiagNoSectionsFound DiagnosticCode = "no_sections_found"
	// DiagMalformedTable marks a table skipped for structural reasons.
	DiagMalformedTable DiagnosticCode = "malformed_table"
	// DiagOrphanContinuation marks a continuation row seen before any lead row.
	DiagOrphanContinuation DiagnosticCode = "orphan_continuation"
	// DiagDuplicateKey marks sibling fragments merged under one key.
	DiagDuplicateKey DiagnosticCode = "duplicate_key"
	// DiagEmptySection marks a recognized header whose body normalized to nothing.
	DiagEmptySection DiagnosticCode = "empty_section"
	// DiagRedactedValue marks a 비공개 metadata value that was skipped.
	DiagRedactedValue DiagnosticCode = "redacted_value"
	// DiagAggregateKey marks a _전체 aggregate key skipped in a keyed section.
	DiagAggregateKey DiagnosticCode = "aggregate_key"
	// DiagUnmatchedMetadata marks an evaluation record with no raw counterpart.
	DiagUnmatchedMetadata DiagnosticCode = "unmatched_metadata"
	// DiagUnknownField marks a metadata section or key the parser does not
	// recognize and therefore ignored.
	DiagUnknownField DiagnosticCode = "unknown_field"
	// DiagPageUnreadable marks a page whose text stream could not be decoded.
	DiagPageUnreadable DiagnosticCode = "page_unreadable"
)

// Diagnostic records a recoverable finding scoped to one section, table,
// page or key. Diagnostics accompany whatever partial record set could still
// be produced; nothing is silently swallowed.
type Diagnostic struct {
	Code    DiagnosticCode `json:"code"`
	Section SectionType    `json:"section,omitempty"`
	Message string         `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Section != "" {
		return fmt.Sprintf("[%s] %s: %s", d.Code, d.Section, d.Message)
	}
	return fmt.Sprintf("[%s] %s", d.Code, d.Message)
}
