package match

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// diceMetric 바이그램 기반 Sorensen-Dice 유사도 측정기입니다.
// 상태를 갖지 않으므로 전역으로 공유해도 안전합니다.
var diceMetric = func() *metrics.SorensenDice {
	m := metrics.NewSorensenDice()
	m.CaseSensitive = false
	m.NgramSize = 2
	return m
}()

// hangulTermReplacer 카탈로그에서 자주 혼용되는 한국어 제품 용어를 영문 표기로
// 치환합니다. 긴 용어를 먼저 나열해야 부분 치환을 피할 수 있습니다.
var hangulTermReplacer = strings.NewReplacer(
	"에어팟", "airpods",
	"아이패드", "ipad",
	"아이폰", "iphone",
	"갤럭시", "galaxy",
	"울트라", "ultra",
	"플러스", "plus",
	"맥북", "macbook",
	"프로", "pro",
	"맥스", "max",
	"미니", "mini",
	"에어", "air",
	"그램", "gram",
	"워치", "watch",
	"버즈", "buds",
	"삼성", "samsung",
	"애플", "apple",
)

// romanize 한국어 제품 용어를 영문 표기로 바꾼 소문자 문자열을 반환합니다.
func romanize(s string) string {
	return hangulTermReplacer.Replace(strings.ToLower(s))
}

// baseSimilarity 두 문자열의 기본 유사도를 0~100 범위로 계산합니다.
//
// 외부 라이브러리의 바이그램 유사도와 자체 토큰/바이그램 자카드 폴백 중
// 높은 값을 사용합니다. 띄어쓰기 차이가 큰 한국어 상품명에서는 공백 제거
// 폴백이 더 정확한 경우가 많습니다. 한국어 검색어와 영문 상품명처럼 표기
// 체계가 다른 쌍은 영문 치환 후 한 번 더 비교하여 높은 값을 사용합니다.
func baseSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if strings.EqualFold(a, b) {
		return 100
	}

	best := rawSimilarity(a, b)

	ra, rb := romanize(a), romanize(b)
	if ra != strings.ToLower(a) || rb != strings.ToLower(b) {
		if cross := rawSimilarity(ra, rb); cross > best {
			best = cross
		}
	}
	return best
}

// rawSimilarity 치환 없이 두 문자열의 유사도를 0~100 범위로 계산합니다.
func rawSimilarity(a, b string) float64 {
	fuzzy := strutil.Similarity(a, b, diceMetric) * 100
	fallback := fallbackSimilarity(a, b) * 100

	if fallback > fuzzy {
		return fallback
	}
	return fuzzy
}

// fallbackSimilarity 토큰 자카드와 공백 제거 바이그램 자카드 중 큰 값을 0~1 범위로 반환합니다.
func fallbackSimilarity(a, b string) float64 {
	token := tokenJaccard(a, b)
	bigram := nospaceBigramSimilarity(a, b)
	if bigram > token {
		return bigram
	}
	return token
}

// tokenJaccard 공백 기준 토큰 집합의 자카드 유사도를 계산합니다.
func tokenJaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	inter := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// nospaceBigramSimilarity 공백을 제거한 문자열의 바이그램 자카드 유사도를 계산합니다.
//
// 한쪽이 다른 쪽의 부분 문자열(6자 이상)이면 0.98로 간주하고,
// 그 외에는 바이그램 자카드에 0.85를 곱해 과대평가를 억제합니다.
func nospaceBigramSimilarity(a, b string) float64 {
	na := stripSpaces(strings.ToLower(a))
	nb := stripSpaces(strings.ToLower(b))
	if na == "" || nb == "" {
		return 0
	}

	shorter, longer := na, nb
	if len([]rune(shorter)) > len([]rune(longer)) {
		shorter, longer = longer, shorter
	}
	if len([]rune(shorter)) >= 6 && strings.Contains(longer, shorter) {
		return 0.98
	}

	bigramsA := bigramSet(na)
	bigramsB := bigramSet(nb)
	if len(bigramsA) == 0 || len(bigramsB) == 0 {
		return 0
	}

	inter := 0
	for bg := range bigramsA {
		if _, ok := bigramsB[bg]; ok {
			inter++
		}
	}
	union := len(bigramsA) + len(bigramsB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union) * 0.85
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		out[tok] = struct{}{}
	}
	return out
}

func bigramSet(s string) map[string]struct{} {
	runes := []rune(s)
	out := make(map[string]struct{})
	for i := 0; i+1 < len(runes); i++ {
		out[string(runes[i:i+2])] = struct{}{}
	}
	return out
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
