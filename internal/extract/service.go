package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Section gating markers for the activity table pipeline. The activity
// section runs from the page carrying its title until the page where the
// volunteering or academic development sections begin.
var (
	activityStart = regexp.MustCompile(`창\s*의\s*적\s*체\s*험\s*활\s*동\s*상\s*황`)
	activityEnd   = regexp.MustCompile(`봉\s*사\s*활\s*동\s*실\s*적|교\s*과\s*학\s*습\s*발\s*달\s*상\s*황`)

	// activityLeadPattern matches the textual rendering of an activity lead
	// row when grid detection fails and the table collapses into the page
	// text: an optional grade digit followed by a semester label at the
	// start of a line.
	activityLeadPattern = regexp.MustCompile(`(?m)^[ \t]*([1-9])?[ \t]*([12])[ \t]*학[ \t]*기[ \t]+`)
)

// Service is the per-document extraction engine: it composes the document
// accessor, the table reconstructor, the text segmenter, the metadata
// parser and the reconciler. A Service holds no per-document state and is
// safe to use concurrently across independent documents.
type Service struct {
	accessor  *Accessor
	tables    *TableReconstructor
	segmenter *TextSegmenter
	metadata  *MetadataParser
}

// NewService creates an extraction service with the given PDF size limit.
func NewService(maxFileSize int64) *Service {
	return &Service{
		accessor:  NewAccessor(maxFileSize),
		tables:    NewTableReconstructor(),
		segmenter: NewTextSegmenter(),
		metadata:  NewMetadataParser(),
	}
}

// ExtractActivityRecords extracts the table-sourced ACTIVITY records from a
// PDF byte stream.
func (s *Service) ExtractActivityRecords(documentID string, pdfData []byte) ([]RawRecord, []Diagnostic, error) {
	doc, err := s.accessor.ReadDocument(pdfData)
	if err != nil {
		return nil, fatalDiagnostics(err), err
	}
	diags := pageDiagnostics(doc)
	records, actDiags := s.activityRecords(documentID, doc, fullText(doc))
	return records, append(diags, actDiags...), nil
}

// ExtractTextRecords extracts the text-sourced SUBJECT and BEHAVIOR records
// from a PDF byte stream.
func (s *Service) ExtractTextRecords(documentID string, pdfData []byte) ([]RawRecord, []Diagnostic, error) {
	doc, err := s.accessor.ReadDocument(pdfData)
	if err != nil {
		return nil, fatalDiagnostics(err), err
	}
	diags := pageDiagnostics(doc)
	records, segDiags := s.segmenter.Segment(documentID, fullText(doc))
	return records, append(diags, segDiags...), nil
}

// ExtractRecords runs both pipelines over a single document read.
func (s *Service) ExtractRecords(documentID string, pdfData []byte) ([]RawRecord, []Diagnostic, error) {
	doc, err := s.accessor.ReadDocument(pdfData)
	if err != nil {
		return nil, fatalDiagnostics(err), err
	}
	records, diags := s.documentRecords(documentID, doc)
	return records, diags, nil
}

// documentRecords runs both extraction pipelines over an opened document.
func (s *Service) documentRecords(documentID string, doc *Document) ([]RawRecord, []Diagnostic) {
	diags := pageDiagnostics(doc)
	text := fullText(doc)

	activity, actDiags := s.activityRecords(documentID, doc, text)
	diags = append(diags, actDiags...)

	segRecords, segDiags := s.segmenter.Segment(documentID, text)
	diags = append(diags, segDiags...)

	return append(activity, segRecords...), diags
}

// activityRecords reconstructs the ACTIVITY records, preferring the table
// grids. When the section title is present but no grid produced a record,
// the collapsed text of the section is retried through the same row
// protocol; a document whose activity section resists both paths still
// surfaces a diagnostic rather than an unexplained empty set.
func (s *Service) activityRecords(documentID string, doc *Document, text string) ([]RawRecord, []Diagnostic) {
	records, diags := s.tables.Reconstruct(documentID, activityTables(doc))
	if len(records) > 0 || !activityStart.MatchString(text) {
		return records, diags
	}

	rows := activityTextRows(text)
	if len(rows) == 0 {
		return records, append(diags, Diagnostic{
			Code:    DiagNoSectionsFound,
			Section: SectionActivity,
			Message: "activity section title present but no entries recognized",
		})
	}
	fbRecords, fbDiags := s.tables.Reconstruct(documentID, [][][]string{rows})
	return append(records, fbRecords...), append(diags, fbDiags...)
}

// ParseEvaluationMetadata parses one evaluation metadata file.
func (s *Service) ParseEvaluationMetadata(documentID string, data []byte) (*EvaluationSet, []Diagnostic, error) {
	return s.metadata.Parse(documentID, data)
}

// ProcessDocument runs the whole pipeline for one document: PDF extraction,
// metadata parsing and reconciliation. Either input may be nil (but not
// both). When both are present and the PDF turns out unreadable or
// image-only, processing degrades to metadata-only with a diagnostic
// instead of failing, matching the pairing semantics of the ingest flows.
func (s *Service) ProcessDocument(documentID string, pdfData, metadataData []byte) (*DocumentResult, error) {
	if pdfData == nil && metadataData == nil {
		return nil, fmt.Errorf("document %s: no inputs supplied", documentID)
	}

	result := &DocumentResult{DocumentID: documentID}

	var evalSet *EvaluationSet
	if metadataData != nil {
		set, diags, err := s.ParseEvaluationMetadata(documentID, metadataData)
		if err != nil {
			return nil, err
		}
		evalSet = set
		student := set.Student
		result.Student = &student
		result.Diagnostics = append(result.Diagnostics, diags...)
	}

	var raws []RawRecord
	if pdfData != nil {
		doc, err := s.accessor.ReadDocument(pdfData)
		if err != nil {
			result.Diagnostics = append(result.Diagnostics, fatalDiagnostics(err)...)
			if metadataData == nil {
				return nil, err
			}
			// Keep the metadata-only flow alive; the failure stays visible
			// through the diagnostics.
			if !errors.Is(err, ErrNoExtractableText) {
				result.Diagnostics = append(result.Diagnostics, Diagnostic{
					Code:    DiagPageUnreadable,
					Message: fmt.Sprintf("document skipped: %v", err),
				})
			}
		} else {
			records, diags := s.documentRecords(documentID, doc)
			raws = records
			result.Diagnostics = append(result.Diagnostics, diags...)
			if name := scanStudentName(doc); name != "" {
				if result.Student == nil {
					result.Student = &StudentInfo{Name: name}
				} else if result.Student.Name == "" {
					result.Student.Name = name
				}
			}
		}
	}

	var evalRecords map[Key]EvaluationRecord
	if evalSet != nil {
		evalRecords = evalSet.Records
	}
	merged, unmatched, diags := Reconcile(raws, evalRecords)
	result.Records = merged
	result.UnmatchedMetadata = unmatched
	result.Diagnostics = append(result.Diagnostics, diags...)
	return result, nil
}

// activityTables collects the table grids of the activity section, in page
// order, so that an entry split across a page boundary is reconstructed
// from one concatenated row stream. Tables with no parseable grade lead at
// all are discarded as non-activity furniture.
func activityTables(doc *Document) [][][]string {
	inSection := false
	var tables [][][]string
	for _, page := range doc.Pages {
		if !inSection && activityStart.MatchString(page.Text) {
			inSection = true
		}
		if !inSection {
			continue
		}
		for _, table := range page.Tables {
			if hasGradeLead(table) || (len(tables) > 0 && isContinuationTail(table)) {
				tables = append(tables, table)
			}
		}
		if activityEnd.MatchString(page.Text) {
			inSection = false
		}
	}
	return tables
}

func hasGradeLead(table [][]string) bool {
	for _, row := range table {
		if len(row) > 0 && parseLeadGrade(normalizeWhitespace(row[0])) != 0 {
			return true
		}
	}
	return false
}

// isContinuationTail reports whether every row of a table carries blank
// grade and unit lead cells. Such a table is the page-split tail of an
// entry opened on an earlier page.
func isContinuationTail(table [][]string) bool {
	for _, row := range table {
		if len(row) > 0 && normalizeWhitespace(row[0]) != "" {
			return false
		}
		if len(row) > 1 && normalizeWhitespace(row[1]) != "" {
			return false
		}
	}
	return len(table) > 0
}

// activityTextRows converts the flowing text of the activity section into
// synthesized table rows. The collapsed lead markers still carry the grade
// digit and semester label, so the accumulator's row protocol applies
// unchanged: one lead row per marker, one continuation row per body line.
func activityTextRows(text string) [][]string {
	loc := activityStart.FindStringIndex(text)
	if loc == nil {
		return nil
	}
	block := text[loc[1]:]
	if end := activityEnd.FindStringIndex(block); end != nil {
		block = block[:end[0]]
	}

	matches := activityLeadPattern.FindAllStringSubmatchIndex(block, -1)
	var rows [][]string
	for i, m := range matches {
		grade := submatchText(block, m, 1)
		semester := submatchText(block, m, 2) + "학기"
		end := len(block)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		lines := strings.Split(block[m[1]:end], "\n")
		rows = append(rows, []string{grade, semester, lines[0]})
		for _, line := range lines[1:] {
			rows = append(rows, []string{"", "", line})
		}
	}
	return rows
}

func submatchText(s string, idx []int, n int) string {
	if idx[2*n] < 0 {
		return ""
	}
	return s[idx[2*n]:idx[2*n+1]]
}

// scanStudentName looks for the cover-sheet 이름 cell across all table
// grids and returns the cell to its right. A PDF-only ingest has no
// metadata to name the student, so this is its only name source.
func scanStudentName(doc *Document) string {
	for _, page := range doc.Pages {
		for _, table := range page.Tables {
			for _, row := range table {
				for i, cell := range row {
					if normalizeWhitespace(cell) != "이름" || i+1 >= len(row) {
						continue
					}
					if name := normalizeWhitespace(row[i+1]); name != "" {
						return name
					}
				}
			}
		}
	}
	return ""
}

// fullText joins all page text into one stream. Page boundaries collapse to
// newlines, which keeps entries split across pages contiguous for the
// segmenter.
func fullText(doc *Document) string {
	var b []byte
	for i, page := range doc.Pages {
		if i > 0 {
			b = append(b, '\n')
		}
		b = append(b, page.Text...)
	}
	return string(b)
}

func fatalDiagnostics(err error) []Diagnostic {
	if errors.Is(err, ErrNoExtractableText) {
		return []Diagnostic{{Code: DiagNoExtractableText, Message: err.Error()}}
	}
	return nil
}

func pageDiagnostics(doc *Document) []Diagnostic {
	var diags []Diagnostic
	for _, w := range doc.Warnings {
		diags = append(diags, Diagnostic{Code: DiagPageUnreadable, Message: w})
	}
	return diags
}
