package normalize

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/width"
)

var (
	// bracketRe 대괄호/소괄호 구간 (프로모션 문구가 주로 들어감)
	bracketRe = regexp.MustCompile(`[\[(]([^\])\[(]*)[\])]`)

	// chipTokenRe 칩 세대 토큰. 괄호 안에 있더라도 보존해야 합니다.
	chipTokenRe = regexp.MustCompile(`(?i)\bM\d\b`)

	// separatorRe 상품명 뒤에 붙는 부가 설명 구분자. 첫 구분자 이후는 버립니다.
	separatorRe = regexp.MustCompile(`[·•|]`)

	// yearTokenRe 연도 토큰 (2010 ~ 2029)
	yearTokenRe = regexp.MustCompile(`^20[12]\d$`)

	// 한글과 영문/숫자 경계에 공백 삽입
	hangulThenLatinRe = regexp.MustCompile(`([가-힣])([A-Za-z0-9])`)
	latinThenHangulRe = regexp.MustCompile(`([A-Za-z0-9])([가-힣])`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// foldWidth 전각 영숫자/기호를 반각으로 접습니다. (예: "ＬＧ" → "LG")
func foldWidth(s string) string {
	return width.Narrow.String(s)
}

// collapseWhitespace 연속 공백을 하나로 합치고 양끝 공백을 제거합니다.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// stripBrackets 괄호 구간을 제거합니다. 단, 괄호 안에 칩 세대 토큰이 있으면
// 괄호만 벗기고 내용은 보존합니다. (예: "맥북 에어(M4)" → "맥북 에어 M4")
func stripBrackets(s string) string {
	return bracketRe.ReplaceAllStringFunc(s, func(m string) string {
		inner := m[1 : len(m)-1]
		if chipTokenRe.MatchString(inner) {
			return " " + inner + " "
		}
		return " "
	})
}

// truncateAtSeparators 첫 구분자(·, •, |) 이후를 잘라냅니다.
func truncateAtSeparators(s string) string {
	if loc := separatorRe.FindStringIndex(s); loc != nil {
		return s[:loc[0]]
	}
	return s
}

// insertBoundarySpaces 한글과 영문/숫자가 붙어 있는 경계에 공백을 삽입합니다.
// (예: "아이폰15프로" → "아이폰 15 프로")
func insertBoundarySpaces(s string) string {
	s = hangulThenLatinRe.ReplaceAllString(s, "$1 $2")
	s = latinThenHangulRe.ReplaceAllString(s, "$1 $2")
	return s
}

// dropIsolatedCapitals 독립된 단일 대문자 토큰을 제거합니다.
// USB-C 태그 정규화의 산출물인 "C"는 예외로 보존합니다.
func dropIsolatedCapitals(s string) string {
	fields := strings.Fields(s)
	out := fields[:0]
	for _, f := range fields {
		if len(f) == 1 && f[0] >= 'A' && f[0] <= 'Z' && f != "C" {
			continue
		}
		out = append(out, f)
	}
	return strings.Join(out, " ")
}

// isYearToken 토큰이 연도인지 판별합니다.
func isYearToken(tok string) bool {
	return yearTokenRe.MatchString(tok)
}

// compileTermsRe 용어 목록을 대소문자 무시 단일 패턴으로 컴파일합니다.
// 긴 용어를 먼저 매칭하도록 정렬합니다. ("스페이스블랙"이 "블랙"보다 우선)
func compileTermsRe(terms []string) *regexp.Regexp {
	if len(terms) == 0 {
		return nil
	}
	sorted := make([]string, len(terms))
	copy(sorted, terms)
	sort.Slice(sorted, func(i, j int) bool {
		return len([]rune(sorted[i])) > len([]rune(sorted[j]))
	})

	quoted := make([]string, 0, len(sorted))
	for _, t := range sorted {
		quoted = append(quoted, regexp.QuoteMeta(t))
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
}

// removeTermsProtected 보호 용어를 임시 치환한 상태에서 제거 패턴들을 적용합니다.
// "블루" 색상 제거가 "블루투스"를 훼손하는 것을 막습니다.
func removeTermsProtected(s string, protected []string, removers ...*regexp.Regexp) string {
	placeholders := make([]string, len(protected))
	for i, term := range protected {
		ph := "\x00P" + string(rune('0'+i)) + "\x00"
		placeholders[i] = ph
		s = strings.ReplaceAll(s, term, ph)
	}

	for _, re := range removers {
		if re == nil {
			continue
		}
		s = re.ReplaceAllString(s, " ")
	}

	for i, term := range protected {
		s = strings.ReplaceAll(s, placeholders[i], term)
	}
	return s
}
