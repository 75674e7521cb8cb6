package extract

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeWhitespace collapses runs of whitespace to single spaces and
// trims the result.
func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// documentTailPatterns match the noise lines the document generator prints
// at the bottom of every page: school name + issue date, issue numbers, IP
// addresses, phone numbers, clerk info, the document title and the principal
// signature block. These lines must never leak into record content.
var documentTailPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(고등학교|학교)\s+\d{4}년\s+\d+월`),
	regexp.MustCompile(`발급번호\s*:`),
	regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`),
	regexp.MustCompile(`전화번호\s+\d{2,3}-`),
	regexp.MustCompile(`담\s*당\s*자|담당부서`),
	regexp.MustCompile(`학\s*교\s*생\s*활\s*기\s*록\s*부`),
	regexp.MustCompile(`주민등록번호`),
	regexp.MustCompile(`고\s*등\s*학\s*교\s*장`),
}

// headerEchoPatterns match table header fragments and section title echoes
// that page breaks can push into a content region.
var headerEchoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(학년|학기|영역|시간|특기사항|창의적|창 의 적)\s*$`),
	regexp.MustCompile(`창\s*의\s*적\s*체\s*험\s*활\s*동\s*상\s*황`),
	regexp.MustCompile(`^(반|번호|이름|\d+\s*반)\s*$`),
	regexp.MustCompile(`영역\s+시간\s+특기사항`),
	regexp.MustCompile(`^\s*(과\s*목|세\s*부\s*능\s*력)\s*$`),
	regexp.MustCompile(`^학\s*년\s+행\s*동\s*특\s*성\s*및\s*종\s*합\s*의\s*견`),
	regexp.MustCompile(`^행\s*동\s*특\s*성\s*및\s*종\s*합\s*의\s*견\s*$`),
}

// isDocumentTail reports whether a line is page-footer noise.
func isDocumentTail(line string) bool {
	for _, p := range documentTailPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// isRedacted reports whether a line carries a privacy-redaction marker.
func isRedacted(line string) bool {
	return strings.Contains(line, "공공기관의 정보공개") || strings.Contains(line, "비공개")
}

// isHeaderEcho reports whether a line is a repeated table or section header.
func isHeaderEcho(line string) bool {
	for _, p := range headerEchoPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// cleanContent strips noise lines from a raw content span and joins what
// remains into one whitespace-normalized string. The empty string means the
// span had no usable content.
func cleanContent(raw string) string {
	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.ReplaceAll(line, "\r", ""))
		if line == "" {
			continue
		}
		if strings.Contains(line, "당해학년도") || strings.Contains(line, "내부검토 중") {
			continue
		}
		if isRedacted(line) || isDocumentTail(line) || isHeaderEcho(line) {
			continue
		}
		kept = append(kept, line)
	}
	return normalizeWhitespace(strings.Join(kept, " "))
}
