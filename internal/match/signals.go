package match

import (
	"regexp"
	"strings"
)

// 시그널 추출에 사용하는 정규식 모음
var (
	// chipRe 업스트림 카탈로그의 칩 세대 토큰 (M1 ~ M9)
	chipRe = regexp.MustCompile(`(?i)\bM(\d)\b`)

	// screenRe 화면 크기 토큰 (10~17, 소수점 허용, 단위는 선택)
	screenRe = regexp.MustCompile(`\b(1[0-7])(?:\.\d)?\s*(?:인치|inch|형)?\b`)

	// mixedCodeRe 영문과 숫자가 섞인 모델 코드 후보 (길이 3 이상)
	mixedCodeRe = regexp.MustCompile(`\b[A-Za-z0-9][A-Za-z0-9\-_]{2,}\b`)

	// unitNumberRe 단위가 붙은 수치 토큰 (256GB, 13인치, 144Hz 등)
	// \b는 ASCII 전용이라 한글 단위 뒤에서는 성립하지 않으므로 분기한다.
	unitNumberRe = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*(?:(gb|tb|mb|hz|w|inch|cm|mm|kg|g|ml|l)\b|(인치))`)

	// bigNumberRe 3~6자리 독립 숫자 토큰
	bigNumberRe = regexp.MustCompile(`\b(\d{3,6})\b`)

	// namedNumberRe 제품명 뒤에 붙는 1~2자리 수 (아이폰 15, 갤럭시 24 등)
	namedNumberRe = regexp.MustCompile(`([A-Za-z가-힣]{2,}(?:\s+[A-Za-z가-힣]{2,})?)\s*(\d{1,2})\b`)

	// yearRe 연도 토큰 (2010 ~ 2029)
	yearRe = regexp.MustCompile(`\b(20[12]\d)\b`)

	hasDigitRe  = regexp.MustCompile(`\d`)
	hasLetterRe = regexp.MustCompile(`[A-Za-z]`)
)

// modelCodeBlacklist 모델 코드로 오인하기 쉬운 OS/사양 토큰
var modelCodeBlacklist = map[string]struct{}{
	"WIN10": {}, "WIN11": {}, "WINDOWS": {}, "HOME": {}, "PRO": {},
	"SSD": {}, "HDD": {}, "NVME": {}, "RAM": {}, "PCIE": {}, "DDR4": {}, "DDR5": {},
	"USB": {}, "WIFI": {}, "FHD": {}, "QHD": {}, "UHD": {},
}

// namedNumberStopPrefixes 이름+숫자 쌍에서 제외할 접두 명사
var namedNumberStopPrefixes = map[string]struct{}{
	"windows": {}, "윈도우": {}, "win": {}, "usb": {}, "ddr": {},
	"pcie": {}, "wifi": {}, "와이파이": {}, "세대": {},
}

// variantTokens 제품 라인 구분자 (한국어 표기는 영문 표준형으로 정규화)
var variantTokens = map[string]string{
	"pro": "pro", "air": "air", "max": "max", "mini": "mini", "ultra": "ultra", "fe": "fe",
	"프로": "pro", "에어": "air", "맥스": "max", "미니": "mini", "울트라": "ultra",
}

// accessoryTokens 액세서리 판별 키워드
var accessoryTokens = []string{
	"케이스", "필름", "보호필름", "커버", "파우치", "거치대", "스탠드", "독", "스킨", "키스킨",
	"스트랩", "충전기", "케이블", "어댑터", "허브", "가방", "슬리브",
	"case", "film", "cover", "pouch", "dock", "skin", "strap", "sleeve", "stand",
}

// mainProductHints 본품(기기) 판별 키워드
var mainProductHints = []string{
	"노트북", "맥북", "이어폰", "헤드폰", "모니터", "태블릿", "아이패드", "아이폰",
	"갤럭시", "스마트폰", "데스크탑", "워치", "스피커", "키보드", "마우스",
	"laptop", "macbook", "earphone", "headphone", "monitor", "tablet", "ipad",
	"iphone", "galaxy", "watch", "speaker",
}

// extractChips 문자열에서 칩 세대 토큰 집합을 추출합니다.
func extractChips(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range chipRe.FindAllStringSubmatch(s, -1) {
		out["M"+m[1]] = struct{}{}
	}
	return out
}

// extractScreenSizes 문자열에서 화면 크기 토큰 집합을 추출합니다.
// 연도(2015 등)의 일부로 등장한 수치는 bigNumberRe가 아닌 독립 토큰만 매칭되므로 제외됩니다.
func extractScreenSizes(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range screenRe.FindAllStringSubmatch(s, -1) {
		out[m[1]] = struct{}{}
	}
	return out
}

// extractModelCodes 영문+숫자가 혼합된 모델 코드 토큰 집합을 추출합니다.
// 칩 토큰, 단위 수치, 블랙리스트 단어는 제외합니다.
func extractModelCodes(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range mixedCodeRe.FindAllString(s, -1) {
		if !hasDigitRe.MatchString(tok) || !hasLetterRe.MatchString(tok) {
			continue
		}
		upper := strings.ToUpper(tok)
		if _, blocked := modelCodeBlacklist[upper]; blocked {
			continue
		}
		if chipRe.MatchString(tok) && len(tok) == 2 {
			continue
		}
		if unitNumberRe.MatchString(tok) {
			continue
		}
		out[upper] = struct{}{}
	}
	return out
}

// extractUnitNumbers 단위가 붙은 수치 토큰 집합을 추출합니다. (예: "256gb", "13인치")
func extractUnitNumbers(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range unitNumberRe.FindAllStringSubmatch(s, -1) {
		unit := strings.ToLower(m[2])
		if unit == "" {
			unit = m[3]
		}
		if unit == "inch" {
			unit = "인치"
		}
		out[m[1]+unit] = struct{}{}
	}
	return out
}

// extractBigNumbers 3~6자리 독립 숫자 토큰 집합을 추출합니다. 연도는 제외합니다.
func extractBigNumbers(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range bigNumberRe.FindAllStringSubmatch(s, -1) {
		if yearRe.MatchString(m[1]) {
			continue
		}
		out[m[1]] = struct{}{}
	}
	return out
}

// extractNamedNumbers 이름+숫자 쌍을 추출하여 이름(소문자) → 숫자로 반환합니다.
func extractNamedNumbers(s string) map[string]string {
	out := make(map[string]string)
	for _, m := range namedNumberRe.FindAllStringSubmatch(s, -1) {
		name := strings.ToLower(strings.TrimSpace(m[1]))
		fields := strings.Fields(name)
		if len(fields) == 0 {
			continue
		}
		last := fields[len(fields)-1]
		if _, stop := namedNumberStopPrefixes[last]; stop {
			continue
		}
		// 두 단어 이름은 마지막 단어로도 색인하여 브랜드 접두어 차이를 흡수한다.
		// (예: "Apple 아이폰 15"와 "아이폰 15"가 같은 키를 공유)
		out[name] = m[2]
		out[last] = m[2]
	}
	return out
}

// extractYears 연도 토큰 집합을 추출합니다.
func extractYears(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, m := range yearRe.FindAllStringSubmatch(s, -1) {
		out[m[1]] = struct{}{}
	}
	return out
}

// extractVariants 제품 라인 구분 토큰 집합을 추출합니다. (표준형으로 정규화)
func extractVariants(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		if canonical, ok := variantTokens[tok]; ok {
			out[canonical] = struct{}{}
		}
	}
	return out
}

// containsAny 문자열에 키워드 목록 중 하나라도 포함되어 있는지 확인합니다.
func containsAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// setsDisjoint 두 집합에 공통 원소가 없으면 true를 반환합니다.
func setsDisjoint(a, b map[string]struct{}) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return false
		}
	}
	return true
}

// setsEqual 두 집합이 동일하면 true를 반환합니다.
func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
