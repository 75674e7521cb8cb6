package extract

import "testing"

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"   ", ""},
		{"학급  회장", "학급 회장"},
		{"줄\n바꿈\t포함", "줄 바꿈 포함"},
		{"  양끝 공백  ", "양끝 공백"},
	}
	for _, tt := range tests {
		if got := normalizeWhitespace(tt.input); got != tt.expected {
			t.Errorf("normalizeWhitespace(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestCleanContent_FiltersNoise(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "issue number line",
			input:    "성실한 태도가 돋보임.\n발급번호 : 2023-001234\n",
			expected: "성실한 태도가 돋보임.",
		},
		{
			name:     "ip and phone footer",
			input:    "내용 유지.\n192.168.0.11\n전화번호 02-1234-5678\n",
			expected: "내용 유지.",
		},
		{
			name:     "document title echo",
			input:    "학 교 생 활 기 록 부\n본문은 남는다.",
			expected: "본문은 남는다.",
		},
		{
			name:     "principal signature",
			input:    "본문.\n서울 고 등 학 교 장",
			expected: "본문.",
		},
		{
			name:     "redaction marker",
			input:    "공개 내용.\n비공개 항목입니다.\n",
			expected: "공개 내용.",
		},
		{
			name:     "table header echo",
			input:    "영역 시간 특기사항\n자율활동 내용.",
			expected: "자율활동 내용.",
		},
		{
			name:     "school and date footer",
			input:    "본문 내용.\n한성고등학교 2023년 9월",
			expected: "본문 내용.",
		},
		{
			name:     "resident registration number label",
			input:    "주민등록번호 990101-1234567\n내용.",
			expected: "내용.",
		},
		{
			name:     "only noise",
			input:    "발급번호 : 1\n담당자 김철수\n",
			expected: "",
		},
		{
			name:     "wrapped lines joined",
			input:    "긴 문장이 줄바꿈으로\n나뉘어 있어도 하나로 합쳐진다.",
			expected: "긴 문장이 줄바꿈으로 나뉘어 있어도 하나로 합쳐진다.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanContent(tt.input); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestIsRedacted(t *testing.T) {
	if !isRedacted("공공기관의 정보공개에 관한 법률에 따라 비공개") {
		t.Error("Expected redaction marker to be recognized")
	}
	if isRedacted("공개 수업에 참여함") {
		t.Error("Ordinary content flagged as redacted")
	}
}
