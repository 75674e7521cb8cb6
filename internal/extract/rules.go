package extract

import (
	"regexp"
	"sort"
)

// BoundaryKind describes the effect a matched boundary has on the
// segmentation walk.
type BoundaryKind int

const (
	// BoundarySubjectRegion opens the 세부능력 및 특기사항 region.
	BoundarySubjectRegion BoundaryKind = iota
	// BoundaryBehaviorRegion opens the 행동특성 및 종합의견 region.
	BoundaryBehaviorRegion
	// BoundaryRegionEnd closes whatever region and record are open (the
	// next numbered section of the document starts here).
	BoundaryRegionEnd
	// BoundaryGradeHeader is a [N학년] header; it updates the running grade.
	BoundaryGradeHeader
	// BoundarySubjectItem is a (N학기)과목명: header; it opens a SUBJECT record.
	BoundarySubjectItem
	// BoundaryBehaviorGrade is a per-grade marker inside the behavior
	// region; it opens a BEHAVIOR record. Ignored outside that region.
	BoundaryBehaviorGrade
)

// BoundaryRule is one named boundary pattern. Subject and behavior headers
// can be lexically similar, so rules are applied in a fixed priority order:
// the first rule matching a span claims it and later rules are not retried
// on a claimed span.
type BoundaryRule struct {
	Name    string
	Kind    BoundaryKind
	Pattern *regexp.Regexp
}

// DefaultBoundaryRules returns the rule set for 생활기록부 text streams, in
// priority order. The patterns tolerate the spacing variants the document
// generator produces between syllables.
func DefaultBoundaryRules() []BoundaryRule {
	return []BoundaryRule{
		{
			Name:    "subject-region",
			Kind:    BoundarySubjectRegion,
			Pattern: regexp.MustCompile(`과[\s\r]*목[\s\r]+세[\s\r]*부[\s\r]*능[\s\r]*력[\s\r]*및[\s\r]*특[\s\r]*기[\s\r]*사[\s\r]*항`),
		},
		{
			Name:    "behavior-region",
			Kind:    BoundaryBehaviorRegion,
			Pattern: regexp.MustCompile(`\d+\.\s*행\s*동\s*특\s*성\s*및\s*종\s*합\s*의\s*견`),
		},
		{
			Name:    "region-end",
			Kind:    BoundaryRegionEnd,
			Pattern: regexp.MustCompile(`\n\d+\.\s*(?:독서활동|봉사활동|교과학습|수상경력)`),
		},
		{
			Name:    "grade-header",
			Kind:    BoundaryGradeHeader,
			Pattern: regexp.MustCompile(`\[([1-9])학년\]`),
		},
		{
			Name:    "subject-item",
			Kind:    BoundarySubjectItem,
			Pattern: regexp.MustCompile(`\(([1-9])학기\)\s*([^:：\n]{1,40}?)\s*[:：]`),
		},
		{
			Name:    "behavior-grade",
			Kind:    BoundaryBehaviorGrade,
			Pattern: regexp.MustCompile(`(?m)^([1-9])(?:\s*$|\s+)`),
		},
	}
}

// boundaryMatch is one accepted rule match within the text stream.
type boundaryMatch struct {
	rule       *BoundaryRule
	start, end int
	groups     []string
}

// matchBoundaries applies the rules in priority order and returns the
// accepted matches sorted by position. A match overlapping a span already
// claimed by a higher-priority rule is discarded.
func matchBoundaries(rules []BoundaryRule, text string) []boundaryMatch {
	var accepted []boundaryMatch
	for i := range rules {
		rule := &rules[i]
		for _, idx := range rule.Pattern.FindAllStringSubmatchIndex(text, -1) {
			start, end := idx[0], idx[1]
			if overlapsAccepted(accepted, start, end) {
				continue
			}
			groups := make([]string, 0, len(idx)/2-1)
			for g := 2; g < len(idx); g += 2 {
				if idx[g] < 0 {
					groups = append(groups, "")
					continue
				}
				groups = append(groups, text[idx[g]:idx[g+1]])
			}
			accepted = append(accepted, boundaryMatch{rule: rule, start: start, end: end, groups: groups})
		}
	}
	sort.SliceStable(accepted, func(i, j int) bool { return accepted[i].start < accepted[j].start })
	return accepted
}

func overlapsAccepted(accepted []boundaryMatch, start, end int) bool {
	for _, m := range accepted {
		if start < m.end && end > m.start {
			return true
		}
	}
	return false
}

