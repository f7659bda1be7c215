// Package match 검색어와 카탈로그 상품명 간의 일치도를 가중 시그널로 채점합니다.
//
// 채점기는 상태를 갖지 않는 순수 함수로, 패스트패스의 검색 결과 순위 결정과
// 슬로우패스의 DOM 링크 선별 두 곳에서 사용됩니다. 점수는 [0, 100] 범위입니다.
package match

import "strings"

// 시그널별 가중치
//
// 값은 실제 검색 로그에 대한 보정 결과이므로 임의로 조정하지 않습니다.
const (
	variantPenalty = 45

	chipMatchBonus = 5

	screenMatchBonus = 8

	modelCodeDisjointPenalty  = 40
	modelCodeOverlapBonus     = 10
	modelCodeQueryOnlyPenalty = 18

	unitNumberDisjointPenalty = 22
	unitNumberOverlapBonus    = 6

	bigNumberDisjointPenalty = 15
	bigNumberOverlapBonus    = 3

	namedNumberMismatchPenalty = 28
	namedNumberMatchBonus      = 8

	yearMismatchPenalty = 6
	yearMatchBonus      = 2
)

// Score 검색어(query)에 대한 상품명(title)의 일치 점수를 [0, 100] 범위로 계산합니다.
//
// 동일한 문자열 쌍은 항상 100점입니다. 칩 세대(M1~M9)나 화면 크기(10~17인치)가
// 양쪽에 존재하면서 서로 다르면 즉시 0점으로 실격 처리합니다. 검색어가 본품을
// 가리키는데 상품명이 액세서리(케이스, 필름 등)이면 역시 0점입니다.
func Score(query, title string) float64 {
	q := strings.TrimSpace(query)
	t := strings.TrimSpace(title)
	if q == "" || t == "" {
		return 0
	}

	// 1. 액세서리 함정: 본품을 찾는 검색어에 액세서리 상품이 매칭되는 것을 차단
	if isAccessoryTrap(q, t) {
		return 0
	}

	// 2. 기본 유사도
	score := baseSimilarity(q, t)

	// 3. 제품 라인(pro/air/max/...) 불일치 감점
	qVariants := extractVariants(q)
	tVariants := extractVariants(t)
	if len(qVariants) > 0 && len(tVariants) > 0 && !setsEqual(qVariants, tVariants) {
		score -= variantPenalty
	}

	// 4. 칩 세대 실격 판정
	qChips := extractChips(q)
	tChips := extractChips(t)
	if len(qChips) > 0 && len(tChips) > 0 {
		if setsDisjoint(qChips, tChips) {
			return 0
		}
		score += chipMatchBonus
	}

	// 5. 화면 크기 실격 판정
	qScreens := extractScreenSizes(q)
	tScreens := extractScreenSizes(t)
	if len(qScreens) > 0 && len(tScreens) > 0 {
		if setsDisjoint(qScreens, tScreens) {
			return 0
		}
		score += screenMatchBonus
	}

	// 6. 모델 코드 시그널
	qCodes := extractModelCodes(q)
	tCodes := extractModelCodes(t)
	switch {
	case len(qCodes) > 0 && len(tCodes) > 0:
		if setsDisjoint(qCodes, tCodes) {
			score -= modelCodeDisjointPenalty
		} else {
			score += modelCodeOverlapBonus
		}
	case len(qCodes) > 0 && len(tCodes) == 0:
		score -= modelCodeQueryOnlyPenalty
	}

	// 7. 단위 수치 시그널 (256GB, 144Hz 등)
	qUnits := extractUnitNumbers(q)
	tUnits := extractUnitNumbers(t)
	if len(qUnits) > 0 && len(tUnits) > 0 {
		if setsDisjoint(qUnits, tUnits) {
			score -= unitNumberDisjointPenalty
		} else {
			score += unitNumberOverlapBonus
		}
	}

	// 8. 3~6자리 독립 숫자 시그널
	qBigs := extractBigNumbers(q)
	tBigs := extractBigNumbers(t)
	if len(qBigs) > 0 && len(tBigs) > 0 {
		if setsDisjoint(qBigs, tBigs) {
			score -= bigNumberDisjointPenalty
		} else {
			score += bigNumberOverlapBonus
		}
	}

	// 9. 이름+숫자 쌍 시그널 (아이폰 15 vs 아이폰 16)
	qNamed := extractNamedNumbers(q)
	tNamed := extractNamedNumbers(t)
	if len(qNamed) > 0 && len(tNamed) > 0 {
		mismatch, matched := compareNamedNumbers(qNamed, tNamed)
		if mismatch {
			score -= namedNumberMismatchPenalty
		} else if matched {
			score += namedNumberMatchBonus
		}
	}

	// 10. 연도 시그널
	qYears := extractYears(q)
	tYears := extractYears(t)
	if len(qYears) > 0 && len(tYears) > 0 {
		if setsDisjoint(qYears, tYears) {
			score -= yearMismatchPenalty
		} else {
			score += yearMatchBonus
		}
	}

	return clamp(score)
}

// isAccessoryTrap 검색어는 본품을 가리키는데 상품명은 액세서리인 경우를 판별합니다.
//
// 상품명에만 존재하는 액세서리 키워드가 있고, 검색어에 본품 힌트가 포함되어
// 있으면 함정으로 간주합니다. 검색어 자체가 액세서리를 찾는 경우는 함정이 아닙니다.
func isAccessoryTrap(query, title string) bool {
	lowerQuery := strings.ToLower(query)
	lowerTitle := strings.ToLower(title)

	titleHasAccessory := false
	for _, kw := range accessoryTokens {
		if strings.Contains(lowerTitle, kw) && !strings.Contains(lowerQuery, kw) {
			titleHasAccessory = true
			break
		}
	}
	if !titleHasAccessory {
		return false
	}

	return containsAny(lowerQuery, mainProductHints)
}

// compareNamedNumbers 공유 키에 대한 숫자 불일치 여부와 일치 여부를 반환합니다.
func compareNamedNumbers(q, t map[string]string) (mismatch, matched bool) {
	for name, qNum := range q {
		if tNum, ok := t[name]; ok {
			if qNum != tNum {
				return true, false
			}
			matched = true
		}
	}
	return false, matched
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
