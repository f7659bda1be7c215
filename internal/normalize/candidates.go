package normalize

import (
	"strings"
)

// maxCandidates 후보 목록의 상한. 패스트패스가 앞쪽 일부만 사용하더라도
// 슬로우패스 재시도를 위해 여유 있게 생성합니다.
const maxCandidates = 8

// buildCandidates 정규화된 검색어로부터 구체적인 후보에서 일반적인 후보 순으로
// 검색 후보 사다리를 생성합니다.
//
//  1. 연도 제거본 (연도가 있는 경우)
//  2. 정규화 전체
//  3. 브랜드 + 모델
//  4. 브랜드 + 모델 + 칩
//  5. 모델 토큰만
//  6. 브랜드만
//  7. 한국어 → 영어 대체본
//
// 대소문자를 무시하고 중복을 제거하며, 최대 maxCandidates개까지 생성합니다.
func buildCandidates(normalized string, substitutions map[string]string) []string {
	norm := collapseWhitespace(normalized)
	if norm == "" {
		return nil
	}

	seen := make(map[string]struct{}, maxCandidates)
	out := make([]string, 0, maxCandidates)
	add := func(c string) {
		c = collapseWhitespace(c)
		if c == "" || len(out) >= maxCandidates {
			return
		}
		key := strings.ToLower(c)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}

	if stripped := stripYearTokens(norm); stripped != "" && !strings.EqualFold(stripped, norm) {
		add(stripped)
	}
	add(norm)

	brand := extractBrandToken(norm)
	model := extractModelTokens(norm)
	chip := firstChipToken(norm)

	if brand != "" && model != "" {
		add(brand + " " + model)
		// 모델 토큰에 칩이 이미 포함되어 있으면 중복 부착하지 않는다.
		if chip != "" && !strings.Contains(strings.ToLower(model), strings.ToLower(chip)) {
			add(brand + " " + model + " " + chip)
		}
	}
	if model != "" {
		add(model)
	}
	if brand != "" {
		add(brand)
	}

	if sub := applySubstitutions(norm, substitutions); !strings.EqualFold(sub, norm) {
		add(sub)
	}

	return out
}

// extractBrandToken 첫 토큰을 브랜드로 간주합니다. 연도 토큰은 건너뜁니다.
func extractBrandToken(normalized string) string {
	for _, tok := range strings.Fields(normalized) {
		if isYearToken(tok) {
			continue
		}
		return tok
	}
	return ""
}

// extractModelTokens 브랜드 토큰 이후의 토큰을 최대 3개까지 모델로 간주합니다.
// 연도 토큰은 건너뜁니다.
func extractModelTokens(normalized string) string {
	fields := strings.Fields(normalized)

	brandSeen := false
	out := make([]string, 0, 3)
	for _, tok := range fields {
		if isYearToken(tok) {
			continue
		}
		if !brandSeen {
			brandSeen = true
			continue
		}
		out = append(out, tok)
		if len(out) == 3 {
			break
		}
	}
	return strings.Join(out, " ")
}

// firstChipToken 첫 번째 칩 세대 토큰(M1~M9)을 반환합니다.
func firstChipToken(normalized string) string {
	return chipTokenRe.FindString(normalized)
}

// stripYearTokens 연도 토큰을 제거한 문자열을 반환합니다.
func stripYearTokens(normalized string) string {
	fields := strings.Fields(normalized)
	out := fields[:0]
	for _, tok := range fields {
		if isYearToken(tok) {
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

// applySubstitutions 토큰 단위로 대체 테이블을 적용합니다.
func applySubstitutions(normalized string, substitutions map[string]string) string {
	if len(substitutions) == 0 {
		return normalized
	}

	fields := strings.Fields(normalized)
	for i, tok := range fields {
		if sub, ok := substitutions[strings.ToLower(tok)]; ok {
			fields[i] = sub
		}
	}
	return strings.Join(fields, " ")
}
