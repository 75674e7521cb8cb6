package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// subjectAnnotation strips bracketed course annotations from subject names,
// e.g. "물리학Ⅰ[과학중점]" -> "물리학Ⅰ".
var subjectAnnotation = regexp.MustCompile(`\s*[\[【][^】\]]*[\]】]\s*`)

// TextSegmenter splits one continuous text stream into SUBJECT and BEHAVIOR
// records. Section boundaries are plain Korean header lines with no markup,
// located by the ordered rule set; the text between two consecutive
// recognized boundaries is the content of the section the first one opened.
type TextSegmenter struct {
	rules []BoundaryRule
}

// NewTextSegmenter creates a segmenter with the default boundary rules.
func NewTextSegmenter() *TextSegmenter {
	return &TextSegmenter{rules: DefaultBoundaryRules()}
}

// segmentRegion tracks which document region the walk is inside.
type segmentRegion int

const (
	regionNone segmentRegion = iota
	regionSubject
	regionBehavior
)

// segmentState is the walk state for one Segment call: the current region
// and grade trackers plus the open record. Local to one invocation.
type segmentState struct {
	documentID string
	region     segmentRegion
	grade      int

	open      bool
	openKey   Key
	openStart int

	sawSubject  bool
	sawBehavior bool

	records []RawRecord
	index   map[Key]int
	diags   []Diagnostic
}

// Segment emits one record per recognized section with non-empty content.
// Zero recognized boundaries for a section type produces a NoSectionsFound
// diagnostic for that type; the other type is still processed.
func (s *TextSegmenter) Segment(documentID, text string) ([]RawRecord, []Diagnostic) {
	st := &segmentState{
		documentID: documentID,
		grade:      1,
		index:      make(map[Key]int),
	}

	for _, m := range matchBoundaries(s.rules, text) {
		if !st.applicable(m.rule.Kind) {
			// Not a boundary in the current region; the running span is
			// not cut here.
			continue
		}
		st.closeOpen(text, m.start)

		switch m.rule.Kind {
		case BoundarySubjectRegion:
			st.region = regionSubject
			st.sawSubject = true
		case BoundaryBehaviorRegion:
			st.region = regionBehavior
			st.sawBehavior = true
		case BoundaryRegionEnd:
			st.region = regionNone
		case BoundaryGradeHeader:
			st.grade, _ = strconv.Atoi(m.groups[0])
		case BoundarySubjectItem:
			st.region = regionSubject
			st.sawSubject = true
			st.openSubject(m)
		case BoundaryBehaviorGrade:
			grade, _ := strconv.Atoi(m.groups[0])
			st.openRecord(Key{Section: SectionBehavior, Grade: grade}, m.end)
		}
	}
	st.closeOpen(text, len(text))

	if !st.sawSubject {
		st.diags = append(st.diags, Diagnostic{
			Code:    DiagNoSectionsFound,
			Section: SectionSubject,
			Message: "no subject boundaries recognized in text stream",
		})
	}
	if !st.sawBehavior {
		st.diags = append(st.diags, Diagnostic{
			Code:    DiagNoSectionsFound,
			Section: SectionBehavior,
			Message: "no behavior boundaries recognized in text stream",
		})
	}
	return st.records, st.diags
}

// applicable reports whether a boundary kind cuts the stream in the current
// region. Grade markers are only boundaries inside the behavior region; a
// bare digit at line start anywhere else is ordinary content.
func (s *segmentState) applicable(kind BoundaryKind) bool {
	if kind == BoundaryBehaviorGrade {
		return s.region == regionBehavior
	}
	return true
}

func (s *segmentState) openSubject(m boundaryMatch) {
	name := normalizeWhitespace(subjectAnnotation.ReplaceAllString(m.groups[1], " "))
	if name == "" {
		s.diags = append(s.diags, Diagnostic{
			Code:    DiagEmptySection,
			Section: SectionSubject,
			Message: fmt.Sprintf("semester %s header carries no subject name", m.groups[0]),
		})
		return
	}
	s.openRecord(Key{Section: SectionSubject, Grade: s.grade, Unit: name}, m.end)
}

func (s *segmentState) openRecord(key Key, start int) {
	s.open = true
	s.openKey = key
	s.openStart = start
}

// closeOpen emits the open record with the span content ending at end.
// Sections whose content normalizes to nothing are dropped with a
// diagnostic; a second span for an already-seen key (the two semesters of
// one subject, or a behavior block split by a page break) is merged into
// the earlier record.
func (s *segmentState) closeOpen(text string, end int) {
	if !s.open {
		return
	}
	s.open = false
	content := cleanContent(text[s.openStart:end])
	key := s.openKey

	if content == "" {
		s.diags = append(s.diags, Diagnostic{
			Code:    DiagEmptySection,
			Section: key.Section,
			Message: fmt.Sprintf("section %s has no content after normalization", key),
		})
		return
	}

	if idx, ok := s.index[key]; ok {
		merged := s.records[idx].ContentText
		if !strings.Contains(merged, content) {
			s.records[idx].ContentText = normalizeWhitespace(merged + " " + content)
		}
		s.diags = append(s.diags, Diagnostic{
			Code:    DiagDuplicateKey,
			Section: key.Section,
			Message: fmt.Sprintf("section %s seen more than once, content merged", key),
		})
		return
	}

	s.index[key] = len(s.records)
	s.records = append(s.records, RawRecord{
		DocumentID:  s.documentID,
		SectionType: key.Section,
		Grade:       key.Grade,
		UnitKey:     key.Unit,
		ContentText: content,
	})
}
