package extract

import (
	"fmt"
	"strconv"
	"strings"
)

// minActivityColumns is the narrowest layout an activity table can have:
// grade, semester and at least one content column.
const minActivityColumns = 3

// TableReconstructor rebuilds logical activity entries from table grids
// whose rows may split a single entry across lines. A row that populates the
// grade or semester lead columns starts a new entry; a row with blank lead
// columns continues the previous one. The running state lives in an
// accumulator threaded across tables, so an entry split by a page break is
// reconstructed exactly as if the table had been supplied whole.
type TableReconstructor struct{}

// NewTableReconstructor creates a table reconstructor.
func NewTableReconstructor() *TableReconstructor {
	return &TableReconstructor{}
}

// Reconstruct walks the given tables in order and emits one ACTIVITY record
// per closed logical entry. Tables must be supplied in page order; the
// caller concatenates tables belonging to the same section before calling.
func (t *TableReconstructor) Reconstruct(documentID string, tables [][][]string) ([]RawRecord, []Diagnostic) {
	acc := newActivityAccumulator(documentID)
	for i, table := range tables {
		if len(table) == 0 {
			continue
		}
		if widestRow(table) < minActivityColumns {
			acc.diags = append(acc.diags, Diagnostic{
				Code:    DiagMalformedTable,
				Section: SectionActivity,
				Message: fmt.Sprintf("table %d has fewer than %d columns, skipped", i, minActivityColumns),
			})
			continue
		}
		for _, row := range table {
			acc.consume(row)
		}
	}
	acc.closeEntry()
	return acc.records, acc.diags
}

// activityAccumulator carries the reconstruction state between rows and
// across table boundaries: the current grade/semester trackers and the open
// entry's accumulated content. All state is local to one extraction run.
type activityAccumulator struct {
	documentID string
	grade      int
	semester   string
	open       bool
	parts      []string

	records []RawRecord
	index   map[Key]int
	diags   []Diagnostic
}

func newActivityAccumulator(documentID string) *activityAccumulator {
	return &activityAccumulator{
		documentID: documentID,
		index:      make(map[Key]int),
	}
}

func (a *activityAccumulator) consume(row []string) {
	cells := make([]string, len(row))
	for i, c := range row {
		cells[i] = normalizeWhitespace(c)
	}
	if allBlank(cells) {
		return
	}

	leadGrade := parseLeadGrade(cells[0])
	leadSemester := ""
	if len(cells) > 1 {
		leadSemester = cells[1]
	}

	if leadGrade == 0 && leadSemester == "" {
		// Continuation row: content belongs to the open entry.
		content := pickContent(cells)
		if !a.open {
			if content != "" {
				a.diags = append(a.diags, Diagnostic{
					Code:    DiagOrphanContinuation,
					Section: SectionActivity,
					Message: fmt.Sprintf("continuation row before any lead row: %q", truncate(content, 60)),
				})
			}
			return
		}
		if content != "" {
			a.parts = append(a.parts, content)
		}
		return
	}

	a.closeEntry()
	if leadGrade != 0 {
		a.grade = leadGrade
	}
	if leadSemester != "" {
		a.semester = leadSemester
	}
	a.open = true
	if content := pickContent(cells); content != "" {
		a.parts = append(a.parts, content)
	}
}

// closeEntry emits the open entry, merging into an earlier record when the
// (grade, semester) key was already seen. Entries whose content normalizes
// to nothing are dropped with a diagnostic.
func (a *activityAccumulator) closeEntry() {
	if !a.open {
		return
	}
	content := cleanContent(strings.Join(a.parts, "\n"))
	a.open = false
	a.parts = nil

	key := Key{Section: SectionActivity, Grade: a.grade, Unit: a.semester}
	if content == "" {
		a.diags = append(a.diags, Diagnostic{
			Code:    DiagEmptySection,
			Section: SectionActivity,
			Message: fmt.Sprintf("entry %s has no content after normalization", key),
		})
		return
	}

	if idx, ok := a.index[key]; ok {
		a.records[idx].ContentText = normalizeWhitespace(a.records[idx].ContentText + " " + content)
		a.diags = append(a.diags, Diagnostic{
			Code:    DiagDuplicateKey,
			Section: SectionActivity,
			Message: fmt.Sprintf("entry %s seen more than once, content merged", key),
		})
		return
	}

	a.index[key] = len(a.records)
	a.records = append(a.records, RawRecord{
		DocumentID:  a.documentID,
		SectionType: SectionActivity,
		Grade:       a.grade,
		UnitKey:     a.semester,
		ContentText: content,
	})
}

// pickContent selects the narrative cell of a row: the longest trailing cell
// that is not a bare number (hour counts and similar).
func pickContent(cells []string) string {
	best := ""
	for _, c := range cells[min(2, len(cells)):] {
		if c == "" || isBareNumber(c) {
			continue
		}
		if len(c) > len(best) {
			best = c
		}
	}
	return best
}

func parseLeadGrade(cell string) int {
	n, err := strconv.Atoi(cell)
	if err != nil || n < 1 || n > 9 {
		return 0
	}
	return n
}

func isBareNumber(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.Atoi(s)
	return err == nil
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func widestRow(table [][]string) int {
	widest := 0
	for _, row := range table {
		if len(row) > widest {
			widest = len(row)
		}
	}
	return widest
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
