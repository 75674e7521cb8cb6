package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Top-level section keys of an evaluation metadata file.
const (
	metaStudentInfo = "학생정보"
	metaActivity    = "창의적_체험활동상황"
	metaSubject     = "세부능력_및_특기사항"
	metaBehavior    = "행동특성_및_종합의견"
)

// redactedValue marks evaluation content the file author withheld.
const redactedValue = "비공개"

var gradeKeyPattern = regexp.MustCompile(`^([1-9])(?:학년)?$`)

// MetadataParser parses evaluation metadata files (YAML) into a record map
// keyed by (section type, grade, unit key). Parsing is a pure
// transformation; it performs no PDF access.
type MetadataParser struct{}

// NewMetadataParser creates a metadata parser.
func NewMetadataParser() *MetadataParser {
	return &MetadataParser{}
}

// Parse decodes one evaluation file. It fails with ErrMalformedMetadata
// when the document is not YAML, contains none of the known sections, or a
// grade key is not representable as a positive integer. Unknown keys inside
// a payload are preserved; unknown sections are ignored with a diagnostic.
func (p *MetadataParser) Parse(documentID string, data []byte) (*EvaluationSet, []Diagnostic, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedMetadata, err)
	}
	if root == nil {
		return nil, nil, fmt.Errorf("%w: empty document", ErrMalformedMetadata)
	}

	set := &EvaluationSet{
		DocumentID: documentID,
		Records:    make(map[Key]EvaluationRecord),
	}
	var diags []Diagnostic
	known := 0

	for section, value := range root {
		var err error
		switch section {
		case metaStudentInfo:
			set.Student = parseStudentInfo(value, &diags)
		case metaActivity:
			known++
			err = p.parseKeyed(set, SectionActivity, value, &diags)
		case metaSubject:
			known++
			err = p.parseKeyed(set, SectionSubject, value, &diags)
		case metaBehavior:
			known++
			err = p.parseBehavior(set, value, &diags)
		default:
			diags = append(diags, Diagnostic{
				Code:    DiagUnknownField,
				Message: fmt.Sprintf("unknown section %q ignored", section),
			})
		}
		if err != nil {
			return nil, nil, err
		}
	}

	if known == 0 {
		return nil, nil, fmt.Errorf("%w: none of %s, %s, %s present",
			ErrMalformedMetadata, metaActivity, metaSubject, metaBehavior)
	}
	return set, diags, nil
}

// parseKeyed handles the two-level sections: grade -> unit key -> payload.
// For ACTIVITY the unit keys are semester labels, for SUBJECT subject names.
func (p *MetadataParser) parseKeyed(set *EvaluationSet, section SectionType, value any, diags *[]Diagnostic) error {
	grades, err := asMapping(section, value)
	if err != nil {
		return err
	}
	for gradeKey, units := range grades {
		grade, err := parseGradeKey(section, gradeKey)
		if err != nil {
			return err
		}
		unitMap, err := asMapping(section, units)
		if err != nil {
			return err
		}
		for unit, payload := range unitMap {
			if strings.HasSuffix(unit, "_전체") {
				// Aggregate keys carry no per-unit evaluation.
				*diags = append(*diags, Diagnostic{
					Code:    DiagAggregateKey,
					Section: section,
					Message: fmt.Sprintf("aggregate key %q at grade %d skipped", unit, grade),
				})
				continue
			}
			p.addRecord(set, Key{Section: section, Grade: grade, Unit: normalizeWhitespace(unit)}, payload, diags)
		}
	}
	return nil
}

// parseBehavior handles the one-level section: grade -> payload.
func (p *MetadataParser) parseBehavior(set *EvaluationSet, value any, diags *[]Diagnostic) error {
	grades, err := asMapping(SectionBehavior, value)
	if err != nil {
		return err
	}
	for gradeKey, payload := range grades {
		grade, err := parseGradeKey(SectionBehavior, gradeKey)
		if err != nil {
			return err
		}
		p.addRecord(set, Key{Section: SectionBehavior, Grade: grade}, payload, diags)
	}
	return nil
}

// addRecord converts one payload value into an EvaluationRecord. Redacted
// values are skipped with a diagnostic, never stored.
func (p *MetadataParser) addRecord(set *EvaluationSet, key Key, value any, diags *[]Diagnostic) {
	var payload map[string]any
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == redactedValue {
			*diags = append(*diags, Diagnostic{
				Code:    DiagRedactedValue,
				Section: key.Section,
				Message: fmt.Sprintf("record %s is redacted, skipped", key),
			})
			return
		}
		payload = map[string]any{"평가내용": strings.TrimSpace(v)}
	default:
		m, ok := stringKeyed(value)
		if !ok {
			*diags = append(*diags, Diagnostic{
				Code:    DiagUnknownField,
				Section: key.Section,
				Message: fmt.Sprintf("record %s has unsupported payload type %T, skipped", key, value),
			})
			return
		}
		if s, _ := m["평가내용"].(string); strings.TrimSpace(s) == redactedValue {
			*diags = append(*diags, Diagnostic{
				Code:    DiagRedactedValue,
				Section: key.Section,
				Message: fmt.Sprintf("record %s is redacted, skipped", key),
			})
			return
		}
		payload = m
	}

	set.Records[key] = EvaluationRecord{
		DocumentID:  set.DocumentID,
		SectionType: key.Section,
		Grade:       key.Grade,
		UnitKey:     key.Unit,
		Payload:     payload,
	}
}

// parseStudentInfo reads the 학생정보 block. The four identity fields have
// typed destinations, 희망분야 is the per-grade career-hope map, and any
// other key survives on the Extra map rather than vanishing.
func parseStudentInfo(value any, diags *[]Diagnostic) StudentInfo {
	info, ok := stringKeyed(value)
	if !ok {
		return StudentInfo{}
	}
	s := StudentInfo{}
	for key, v := range info {
		switch key {
		case "성명":
			s.Name, _ = v.(string)
		case "학교":
			s.School, _ = v.(string)
		case "학과":
			s.Department, _ = v.(string)
		case "졸업연도":
			switch y := v.(type) {
			case int:
				s.GraduationYear = y
			case string:
				s.GraduationYear, _ = strconv.Atoi(strings.TrimSpace(y))
			}
		case "희망분야":
			s.CareerHopes = parseCareerHopes(v, diags)
		default:
			if s.Extra == nil {
				s.Extra = make(map[string]any)
			}
			s.Extra[key] = v
		}
	}
	return s
}

// parseCareerHopes reads the per-grade 희망분야 map. Redacted hopes are
// skipped with a diagnostic like any other 비공개 value.
func parseCareerHopes(value any, diags *[]Diagnostic) map[int]string {
	m, ok := stringKeyed(value)
	if !ok {
		*diags = append(*diags, Diagnostic{
			Code:    DiagUnknownField,
			Message: fmt.Sprintf("희망분야 is %T, expected a grade mapping", value),
		})
		return nil
	}
	hopes := make(map[int]string, len(m))
	for gradeKey, v := range m {
		gm := gradeKeyPattern.FindStringSubmatch(strings.TrimSpace(gradeKey))
		if gm == nil {
			*diags = append(*diags, Diagnostic{
				Code:    DiagUnknownField,
				Message: fmt.Sprintf("희망분야 grade key %q ignored", gradeKey),
			})
			continue
		}
		grade, _ := strconv.Atoi(gm[1])
		hope := ""
		switch h := v.(type) {
		case string:
			hope = strings.TrimSpace(h)
		case int:
			hope = strconv.Itoa(h)
		}
		if hope == "" {
			continue
		}
		if hope == redactedValue {
			*diags = append(*diags, Diagnostic{
				Code:    DiagRedactedValue,
				Message: fmt.Sprintf("희망분야 grade %d is redacted, skipped", grade),
			})
			continue
		}
		hopes[grade] = hope
	}
	if len(hopes) == 0 {
		return nil
	}
	return hopes
}

func parseGradeKey(section SectionType, key string) (int, error) {
	m := gradeKeyPattern.FindStringSubmatch(strings.TrimSpace(key))
	if m == nil {
		return 0, fmt.Errorf("%w: %s grade key %q is not a positive integer",
			ErrMalformedMetadata, section, key)
	}
	grade, _ := strconv.Atoi(m[1])
	return grade, nil
}

// stringKeyed views a decoded YAML mapping through string keys. yaml.v3
// hands back map[string]any only when every key is a string; a bare integer
// grade key demotes the whole mapping to map[any]any, so scalar keys are
// stringified here instead of rejected.
func stringKeyed(value any) (map[string]any, bool) {
	switch m := value.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	}
	return nil, false
}

func asMapping(section SectionType, value any) (map[string]any, error) {
	m, ok := stringKeyed(value)
	if !ok {
		return nil, fmt.Errorf("%w: %s section is %T, expected a mapping",
			ErrMalformedMetadata, section, value)
	}
	return m, nil
}
