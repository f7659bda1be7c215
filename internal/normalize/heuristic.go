package normalize

import (
	"regexp"
	"strings"
)

// 휴리스틱 정규화기의 내장 테이블. 규칙 파일의 축소판으로, 규칙 로드 실패 시에도
// 파이프라인의 핵심 동작(괄호 제거, 구분자 절단, 세대/USB-C 치환, 색상 제거,
// 경계 공백 삽입)이 유지되도록 합니다.
var (
	heuristicGenerationRe = regexp.MustCompile(`(\d+)\s*세대`)
	heuristicUSBCRe       = regexp.MustCompile(`(?i)USB[- ]?C(?:\s*타입)?|C\s*타입`)

	heuristicNoiseRe = compileTermsRe([]string{
		"스페이스블랙", "스페이스그레이", "미드나이트", "스타라이트",
		"실버", "블랙", "화이트", "그레이", "골드",
		"윈도우11", "윈도우10", "win11", "win10",
	})

	heuristicProtectedTerms = []string{"블루투스", "블랙박스"}

	heuristicITSignals = []string{
		"노트북", "맥북", "모니터", "태블릿", "아이패드", "아이폰", "갤럭시",
		"그램", "이어폰", "그래픽카드", "macbook", "ipad", "iphone", "laptop",
	}

	heuristicSubstitutions = map[string]string{
		"노트북": "laptop",
		"맥북":  "macbook",
		"에어":  "air",
		"프로":  "pro",
		"아이폰": "iphone",
		"아이패드": "ipad",
		"갤럭시": "galaxy",
	}
)

// HeuristicNormalizer 규칙 파일 없이 동작하는 내장 정규화기.
type HeuristicNormalizer struct{}

// NewHeuristicNormalizer 내장 휴리스틱 정규화기를 생성합니다.
func NewHeuristicNormalizer() *HeuristicNormalizer {
	return &HeuristicNormalizer{}
}

// Normalize 내장 테이블만으로 정규화 파이프라인을 적용합니다.
func (n *HeuristicNormalizer) Normalize(raw string) string {
	s := collapseWhitespace(foldWidth(raw))
	if s == "" {
		return ""
	}

	s = stripBrackets(s)
	s = truncateAtSeparators(s)
	s = heuristicGenerationRe.ReplaceAllString(s, "$1")
	s = heuristicUSBCRe.ReplaceAllString(s, " C ")
	s = removeTermsProtected(s, heuristicProtectedTerms, heuristicNoiseRe)
	s = insertBoundarySpaces(s)
	s = dropIsolatedCapitals(s)
	return collapseWhitespace(s)
}

// Candidates 정규화 결과로부터 검색 후보 목록을 생성합니다.
func (n *HeuristicNormalizer) Candidates(raw string) []string {
	return buildCandidates(n.Normalize(raw), heuristicSubstitutions)
}

// DetectCategory 내장 IT 시그널로 전자제품 여부만 판별합니다.
func (n *HeuristicNormalizer) DetectCategory(raw string) string {
	lower := strings.ToLower(collapseWhitespace(raw))
	for _, sig := range heuristicITSignals {
		if strings.Contains(lower, sig) {
			return categoryElectronics
		}
	}
	return categoryGeneral
}

// ExtractBrand 정규화된 검색어의 첫 토큰(연도 제외)을 브랜드로 간주합니다.
func (n *HeuristicNormalizer) ExtractBrand(normalized string) string {
	return extractBrandToken(normalized)
}

// ExtractModel 브랜드 토큰 이후의 토큰(최대 3개, 연도 제외)을 모델로 간주합니다.
func (n *HeuristicNormalizer) ExtractModel(normalized string) string {
	return extractModelTokens(normalized)
}
