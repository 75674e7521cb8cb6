package extract

import "testing"

func TestDefaultBoundaryRules_Patterns(t *testing.T) {
	rules := DefaultBoundaryRules()
	byName := make(map[string]BoundaryRule, len(rules))
	for _, r := range rules {
		byName[r.Name] = r
	}

	tests := []struct {
		rule    string
		input   string
		matches bool
	}{
		{"subject-region", "과 목  세 부 능 력 및 특 기 사 항", true},
		{"subject-region", "과목 세부능력 및 특기사항", true},
		{"subject-region", "행동특성 및 종합의견", false},
		{"behavior-region", "10. 행 동 특 성 및 종 합 의 견", true},
		{"behavior-region", "행동특성 및 종합의견", false},
		{"region-end", "\n11. 독서활동상황", true},
		{"region-end", "\n7. 봉사활동 실적", true},
		{"region-end", "독서활동상황", false},
		{"grade-header", "[2학년]", true},
		{"grade-header", "[0학년]", false},
		{"grade-header", "2학년", false},
		{"subject-item", "(1학기) 수학: 내용", true},
		{"subject-item", "(2학기) 물리학Ⅰ[과학중점]： 내용", true},
		{"subject-item", "(1학기) 수학 내용", false},
		{"behavior-grade", "1 성실함", true},
		{"behavior-grade", "10. 다음 절", false},
		{"behavior-grade", "학년 1", false},
	}

	for _, tt := range tests {
		rule, ok := byName[tt.rule]
		if !ok {
			t.Fatalf("Rule %q not in default set", tt.rule)
		}
		if got := rule.Pattern.MatchString(tt.input); got != tt.matches {
			t.Errorf("Rule %q on %q: expected match=%v, got %v", tt.rule, tt.input, tt.matches, got)
		}
	}
}

func TestMatchBoundaries_PriorityClaimsSpan(t *testing.T) {
	rules := DefaultBoundaryRules()
	// The digit in the behavior region header must belong to the region rule,
	// not the per-grade rule.
	text := "\n10. 행동특성 및 종합의견\n1 성실함\n"

	matches := matchBoundaries(rules, text)
	var names []string
	for _, m := range matches {
		names = append(names, m.rule.Name)
	}

	if len(matches) < 2 {
		t.Fatalf("Expected at least 2 matches, got %v", names)
	}
	if matches[0].rule.Name != "behavior-region" {
		t.Errorf("Expected behavior-region first, got %v", names)
	}
	for _, m := range matches {
		if m.rule.Name == "behavior-grade" && m.start < matches[0].end {
			t.Errorf("behavior-grade claimed a span inside the region header: %v", names)
		}
	}
}

func TestMatchBoundaries_SortedByPosition(t *testing.T) {
	rules := DefaultBoundaryRules()
	matches := matchBoundaries(rules, sampleTextStream)

	for i := 1; i < len(matches); i++ {
		if matches[i].start < matches[i-1].start {
			t.Fatalf("Matches out of order at %d: %d after %d",
				i, matches[i].start, matches[i-1].start)
		}
	}
}

func TestMatchBoundaries_CaptureGroups(t *testing.T) {
	rules := DefaultBoundaryRules()
	matches := matchBoundaries(rules, "(2학기) 한국사: 사료 분석 능력이 우수함.")

	if len(matches) != 1 {
		t.Fatalf("Expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.rule.Name != "subject-item" {
		t.Fatalf("Expected subject-item, got %s", m.rule.Name)
	}
	if len(m.groups) != 2 || m.groups[0] != "2" || m.groups[1] != "한국사" {
		t.Errorf("Expected groups [2 한국사], got %v", m.groups)
	}
}
