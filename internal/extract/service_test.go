package extract

import (
	"errors"
	"strings"
	"testing"
)

func TestActivityTables_SectionGating(t *testing.T) {
	activityTable := [][]string{
		{"1", "1학기", "자율활동", "34", "내용"},
		{"", "", "", "", "이어짐"},
	}
	subjectGrid := [][]string{
		{"국어", "수학", "영어"},
		{"수", "우", "수"},
	}

	doc := &Document{
		Pages: []PageContent{
			{Index: 0, Text: "인적사항 페이지"},
			{Index: 1, Text: "6. 창의적 체험활동상황", Tables: [][][]string{activityTable}},
			{Index: 2, Text: "7. 봉사활동 실적", Tables: [][][]string{activityTable}},
			{Index: 3, Text: "8. 교과학습발달상황", Tables: [][][]string{subjectGrid}},
		},
	}

	tables := activityTables(doc)
	if len(tables) != 2 {
		t.Fatalf("Expected 2 tables (section pages only), got %d", len(tables))
	}
}

func TestActivityTables_ContinuationTailKept(t *testing.T) {
	leadTable := [][]string{
		{"2", "1학기", "동아리활동", "40", "과학 동아리 활동을"},
	}
	tailTable := [][]string{
		{"", "", "", "", "다음 페이지에서 이어감."},
	}
	furniture := [][]string{
		{"반", "번호", "이름"},
		{"이", "름", "표"},
	}

	doc := &Document{
		Pages: []PageContent{
			{Index: 0, Text: "6. 창 의 적 체 험 활 동 상 황", Tables: [][][]string{leadTable}},
			{Index: 1, Text: "이어지는 페이지", Tables: [][][]string{tailTable, furniture}},
		},
	}

	tables := activityTables(doc)
	if len(tables) != 2 {
		t.Fatalf("Expected lead and tail tables, got %d", len(tables))
	}

	records, _ := NewTableReconstructor().Reconstruct("doc-1", tables)
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if !strings.Contains(records[0].ContentText, "다음 페이지에서 이어감") {
		t.Errorf("Cross-page continuation lost: %q", records[0].ContentText)
	}
}

func TestActivityTables_NothingBeforeSection(t *testing.T) {
	table := [][]string{
		{"1", "1학기", "자율활동", "10", "내용"},
	}
	doc := &Document{
		Pages: []PageContent{
			{Index: 0, Text: "인적사항", Tables: [][][]string{table}},
		},
	}
	if got := activityTables(doc); len(got) != 0 {
		t.Errorf("Expected no tables outside the activity section, got %d", len(got))
	}
}

func TestFullText_JoinsPages(t *testing.T) {
	doc := &Document{
		Pages: []PageContent{
			{Index: 0, Text: "첫 페이지 끝문장"},
			{Index: 1, Text: "둘째 페이지 시작"},
		},
	}
	got := fullText(doc)
	want := "첫 페이지 끝문장\n둘째 페이지 시작"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestIsContinuationTail(t *testing.T) {
	tests := []struct {
		name     string
		table    [][]string
		expected bool
	}{
		{"blank leads", [][]string{{"", "", "", "", "본문"}}, true},
		{"grade lead", [][]string{{"1", "1학기", "자율활동", "10", "본문"}}, false},
		{"semester lead only", [][]string{{"", "2학기", "자율활동", "10", "본문"}}, false},
		{"empty table", [][]string{}, false},
	}
	for _, tt := range tests {
		if got := isContinuationTail(tt.table); got != tt.expected {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.expected, got)
		}
	}
}

func TestProcessDocument_MetadataOnly(t *testing.T) {
	s := NewService(10 * 1024 * 1024)
	result, err := s.ProcessDocument("doc-1", nil, []byte(sampleMetadata))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Student == nil || result.Student.Name != "김민준" {
		t.Errorf("Student info lost: %+v", result.Student)
	}
	if len(result.Records) != 0 {
		t.Errorf("Expected no merged records without a PDF, got %d", len(result.Records))
	}
	// Every evaluation surfaces as unmatched, none are dropped.
	if len(result.UnmatchedMetadata) != 4 {
		t.Errorf("Expected 4 unmatched evaluations, got %d", len(result.UnmatchedMetadata))
	}
	count := 0
	for _, d := range result.Diagnostics {
		if d.Code == DiagUnmatchedMetadata {
			count++
		}
	}
	if count != len(result.UnmatchedMetadata) {
		t.Errorf("Expected one diagnostic per unmatched record, got %d for %d",
			count, len(result.UnmatchedMetadata))
	}
}

func TestProcessDocument_BadPDFWithMetadataDegrades(t *testing.T) {
	s := NewService(10 * 1024 * 1024)
	result, err := s.ProcessDocument("doc-1", []byte("not a pdf"), []byte(sampleMetadata))
	if err != nil {
		t.Fatalf("Expected metadata-only degradation, got error: %v", err)
	}
	if len(result.UnmatchedMetadata) == 0 {
		t.Error("Expected the evaluations to surface as unmatched")
	}
	if !hasDiag(result.Diagnostics, DiagPageUnreadable) {
		t.Errorf("Expected a diagnostic recording the skipped PDF, got %v", result.Diagnostics)
	}
}

func TestProcessDocument_BadPDFAlone(t *testing.T) {
	s := NewService(10 * 1024 * 1024)
	_, err := s.ProcessDocument("doc-1", []byte("not a pdf"), nil)
	if !errors.Is(err, ErrUnreadableDocument) {
		t.Errorf("Expected ErrUnreadableDocument, got %v", err)
	}
}

func TestProcessDocument_NoInputs(t *testing.T) {
	s := NewService(10 * 1024 * 1024)
	if _, err := s.ProcessDocument("doc-1", nil, nil); err == nil {
		t.Error("Expected an error when both inputs are nil")
	}
}

func TestProcessDocument_MalformedMetadata(t *testing.T) {
	s := NewService(10 * 1024 * 1024)
	_, err := s.ProcessDocument("doc-1", nil, []byte("성명: 이름뿐\n"))
	if !errors.Is(err, ErrMalformedMetadata) {
		t.Errorf("Expected ErrMalformedMetadata, got %v", err)
	}
}

func TestActivityRecords_TextFallback(t *testing.T) {
	text := strings.Join([]string{
		"6. 창의적 체험활동상황",
		"1 1학기 자율활동 53 학급 회의를 주도하며 의견을 조율함.",
		"이어지는 줄의 내용도 같은 항목에 귀속됨.",
		"2학기 동아리활동 40 과학 동아리에서 실험을 설계함.",
		"7. 봉사활동 실적",
	}, "\n")
	doc := &Document{Pages: []PageContent{{Index: 0, Text: text}}}

	s := NewService(0)
	records, diags := s.activityRecords("doc-1", doc, fullText(doc))
	if len(records) != 2 {
		t.Fatalf("Expected 2 records from the text fallback, got %d (diags: %v)", len(records), diags)
	}
	first := records[0]
	if first.Grade != 1 || first.UnitKey != "1학기" {
		t.Errorf("Expected key 1/1학기, got %d/%s", first.Grade, first.UnitKey)
	}
	if !strings.Contains(first.ContentText, "이어지는 줄의 내용") {
		t.Errorf("Continuation line lost: %q", first.ContentText)
	}
	second := records[1]
	if second.Grade != 1 || second.UnitKey != "2학기" {
		t.Errorf("Expected inherited grade 1 and unit 2학기, got %d/%s", second.Grade, second.UnitKey)
	}
}

func TestActivityRecords_TablesPreferred(t *testing.T) {
	table := [][]string{{"1", "1학기", "자율활동", "10", "표에서 복원된 내용"}}
	text := "6. 창의적 체험활동상황\n1 1학기 자율활동 10 본문에도 같은 내용"
	doc := &Document{Pages: []PageContent{{Index: 0, Text: text, Tables: [][][]string{table}}}}

	records, _ := NewService(0).activityRecords("doc-1", doc, fullText(doc))
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if !strings.Contains(records[0].ContentText, "표에서 복원된 내용") {
		t.Errorf("Table content should win over the text rendering: %q", records[0].ContentText)
	}
}

func TestActivityRecords_TitleWithoutEntries(t *testing.T) {
	doc := &Document{Pages: []PageContent{
		{Index: 0, Text: "6. 창의적 체험활동상황\n영역 시간 특기사항"},
	}}

	records, diags := NewService(0).activityRecords("doc-1", doc, fullText(doc))
	if len(records) != 0 {
		t.Fatalf("Expected no records, got %d", len(records))
	}
	if !hasDiag(diags, DiagNoSectionsFound) {
		t.Errorf("Expected a no-sections diagnostic for the empty activity section, got %v", diags)
	}
}

func TestScanStudentName(t *testing.T) {
	doc := &Document{Pages: []PageContent{{
		Index: 0,
		Tables: [][][]string{{
			{"반", "3"},
			{"이름", ""},
			{"이름", "김민준"},
		}},
	}}}
	if got := scanStudentName(doc); got != "김민준" {
		t.Errorf("Expected 김민준, got %q", got)
	}
	if got := scanStudentName(&Document{}); got != "" {
		t.Errorf("Expected empty name for a document without tables, got %q", got)
	}
}
