package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRuleNormalizerForTest(t *testing.T) *RuleNormalizer {
	t.Helper()

	n, err := NewRuleNormalizer()
	require.NoError(t, err)
	return n
}

func TestNew_FallsBackToHeuristic(t *testing.T) {
	// 임베드된 규칙이 정상이므로 규칙 기반 정규화기가 반환되어야 한다.
	n := New()
	_, ok := n.(*RuleNormalizer)
	assert.True(t, ok)

	// 규칙 파싱 실패 시 생성자는 에러를 반환해야 한다.
	_, err := newRuleNormalizerFrom([]byte("classification: [broken"))
	assert.Error(t, err)

	// 임계값이 비어 있는 규칙도 거부해야 한다.
	_, err = newRuleNormalizerFrom([]byte("categories: {}"))
	assert.Error(t, err)
}

func TestRuleNormalizer_Normalize(t *testing.T) {
	n := newRuleNormalizerForTest(t)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "괄호 프로모션 문구 제거",
			input:    "[공식인증점] 맥북 에어 M4 (사은품 증정)",
			expected: "맥북 에어 M4",
		},
		{
			name:     "전각 영숫자 반각 변환",
			input:    "ＬＧ 그램",
			expected: "LG 그램",
		},
		{
			name:     "괄호 안의 칩 토큰은 보존",
			input:    "맥북 에어 (M4) 13",
			expected: "맥북 에어 M4 13",
		},
		{
			name:     "구분자 이후 절단",
			input:    "LG 그램 17인치 · 무료배송 당일출고",
			expected: "LG 그램 17 인치",
		},
		{
			name:     "세대 표기 치환",
			input:    "에어팟 프로 2세대",
			expected: "에어팟 프로 2",
		},
		{
			name:     "USB-C 표기 통일",
			input:    "충전 케이블 USB-C 타입",
			expected: "충전 케이블 C",
		},
		{
			name:     "전자제품 색상 제거",
			input:    "맥북 에어 M4 미드나이트",
			expected: "맥북 에어 M4",
		},
		{
			name:     "전자제품 OS/사양 제거",
			input:    "LG 그램 노트북 WIN11 16GB 512GB",
			expected: "LG 그램 노트북",
		},
		{
			name:     "비전자제품은 색상을 보존",
			input:    "블랙 후추 통후추",
			expected: "블랙 후추 통후추",
		},
		{
			name:     "보호 용어는 색상 제거에서 제외",
			input:    "블루투스 이어폰 블루",
			expected: "블루투스 이어폰",
		},
		{
			name:     "한글/영문 경계 공백 삽입",
			input:    "아이폰15프로",
			expected: "아이폰 15 프로",
		},
		{
			name:     "하드 매핑 치환",
			input:    "맥북에어 m4",
			expected: "맥북 에어 M4",
		},
		{
			name:     "액세서리 검색어는 하드 매핑을 건너뜀",
			input:    "맥북에어 m4 케이스",
			expected: "맥북에어 m4 케이스",
		},
		{
			name:     "공백 정리",
			input:    "  신라면   멀티  ",
			expected: "신라면 멀티",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.Normalize(tt.input))
		})
	}
}

func TestRuleNormalizer_NormalizeIdempotent(t *testing.T) {
	n := newRuleNormalizerForTest(t)

	inputs := []string{
		"[공식] 맥북 에어 (M4) 13 미드나이트 · 당일출고",
		"아이폰15프로 256GB",
		"LG 그램 17인치 2024 WIN11",
		"블루투스 이어폰 블루",
		"신라면 멀티 5개입",
	}

	for _, input := range inputs {
		once := n.Normalize(input)
		twice := n.Normalize(once)
		assert.Equal(t, once, twice, "input: %s", input)
	}
}

func TestRuleNormalizer_Candidates(t *testing.T) {
	n := newRuleNormalizerForTest(t)

	t.Run("구체적인 후보가 앞에 온다", func(t *testing.T) {
		candidates := n.Candidates("Apple 맥북 에어 M4 2024")
		require.NotEmpty(t, candidates)

		// 연도 제거본이 첫 후보
		assert.NotContains(t, candidates[0], "2024")
		// 브랜드 단독 후보는 뒤쪽에 위치
		assert.Contains(t, candidates, "Apple")
		assert.LessOrEqual(t, len(candidates), maxCandidates)
	})

	t.Run("중복은 대소문자 무시로 제거", func(t *testing.T) {
		candidates := n.Candidates("맥북")
		seen := make(map[string]int)
		for _, c := range candidates {
			seen[c]++
			assert.Equal(t, 1, seen[c])
		}
	})

	t.Run("빈 검색어는 빈 목록", func(t *testing.T) {
		assert.Empty(t, n.Candidates("   "))
	})

	t.Run("대체 테이블 후보 포함", func(t *testing.T) {
		candidates := n.Candidates("맥북 에어")
		assert.Contains(t, candidates, "macbook air")
	})
}

func TestRuleNormalizer_DetectCategory(t *testing.T) {
	n := newRuleNormalizerForTest(t)

	tests := []struct {
		input    string
		expected string
	}{
		{"LG 그램 노트북", categoryElectronics},
		{"신라면 멀티", categoryFood},
		{"헤드앤숄더 샴푸", categoryCosmetics},
		{"면도기 날", categoryGeneral},
		{"RTX 4070 SSD 조합", categoryElectronics},
		{"", categoryGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.DetectCategory(tt.input))
		})
	}
}

func TestRuleNormalizer_ExtractBrandAndModel(t *testing.T) {
	n := newRuleNormalizerForTest(t)

	t.Run("브랜드는 첫 토큰", func(t *testing.T) {
		assert.Equal(t, "Apple", n.ExtractBrand("Apple 맥북 에어 M4"))
	})

	t.Run("연도 토큰은 브랜드가 아님", func(t *testing.T) {
		assert.Equal(t, "맥북", n.ExtractBrand("2024 맥북 에어"))
	})

	t.Run("모델은 브랜드 이후 최대 3개 토큰", func(t *testing.T) {
		assert.Equal(t, "맥북 에어 M4", n.ExtractModel("Apple 맥북 에어 M4 13"))
	})

	t.Run("빈 입력", func(t *testing.T) {
		assert.Equal(t, "", n.ExtractBrand(""))
		assert.Equal(t, "", n.ExtractModel(""))
	})
}

func TestHeuristicNormalizer(t *testing.T) {
	n := NewHeuristicNormalizer()

	t.Run("핵심 파이프라인 유지", func(t *testing.T) {
		assert.Equal(t, "맥북 에어 M4", n.Normalize("[공식] 맥북 에어 (M4) 실버"))
		assert.Equal(t, "아이폰 15 프로", n.Normalize("아이폰15프로"))
		assert.Equal(t, "에어팟 2", n.Normalize("에어팟 2세대"))
	})

	t.Run("보호 용어 유지", func(t *testing.T) {
		assert.Equal(t, "블루투스 이어폰", n.Normalize("블루투스 이어폰"))
	})

	t.Run("멱등성", func(t *testing.T) {
		once := n.Normalize("[공식] 맥북 에어 (M4) 실버 · 당일출고")
		assert.Equal(t, once, n.Normalize(once))
	})

	t.Run("후보 생성", func(t *testing.T) {
		candidates := n.Candidates("Apple 맥북 에어 M4")
		assert.NotEmpty(t, candidates)
		assert.Contains(t, candidates, "Apple 맥북 에어 M4")
	})

	t.Run("카테고리 판별", func(t *testing.T) {
		assert.Equal(t, categoryElectronics, n.DetectCategory("LG 그램 노트북"))
		assert.Equal(t, categoryGeneral, n.DetectCategory("신라면 멀티"))
	})
}
