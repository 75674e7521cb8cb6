package extract

import (
	"fmt"
	"sort"
)

// Reconcile joins raw records with evaluation records on exact key match.
// Every raw record is returned (text-only when no evaluation shares its
// key); evaluation records with no raw counterpart are returned as the
// unmatched set with one diagnostic each, never discarded. The join is a
// pure function of its inputs: no fuzzy matching, no hidden state, and the
// key fields of a raw record are never rewritten.
func Reconcile(raws []RawRecord, evals map[Key]EvaluationRecord) ([]MergedRecord, []EvaluationRecord, []Diagnostic) {
	merged := make([]MergedRecord, 0, len(raws))
	matched := make(map[Key]bool, len(raws))

	for _, raw := range raws {
		rec := MergedRecord{RawRecord: raw}
		if eval, ok := evals[raw.Key()]; ok {
			e := eval
			rec.Evaluation = &e
			matched[raw.Key()] = true
		}
		merged = append(merged, rec)
	}

	var unmatched []EvaluationRecord
	var diags []Diagnostic
	for key, eval := range evals {
		if matched[key] {
			continue
		}
		unmatched = append(unmatched, eval)
	}
	sort.Slice(unmatched, func(i, j int) bool { return lessKey(unmatched[i].Key(), unmatched[j].Key()) })
	for _, eval := range unmatched {
		diags = append(diags, Diagnostic{
			Code:    DiagUnmatchedMetadata,
			Section: eval.SectionType,
			Message: fmt.Sprintf("evaluation %s has no extracted counterpart", eval.Key()),
		})
	}
	return merged, unmatched, diags
}

func lessKey(a, b Key) bool {
	if a.Section != b.Section {
		return a.Section < b.Section
	}
	if a.Grade != b.Grade {
		return a.Grade < b.Grade
	}
	return a.Unit < b.Unit
}
