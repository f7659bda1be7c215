// Package normalize 쇼핑몰에서 수집한 잡음 섞인 상품 검색어를 카탈로그 검색에
// 적합한 형태로 정규화합니다.
//
// 정규화기는 두 가지 구현을 제공합니다. RuleNormalizer는 임베드된 YAML 규칙
// (resources/rules.yaml)을 따르고, HeuristicNormalizer는 규칙 로드에 실패했을 때
// 사용하는 내장 휴리스틱입니다. 두 구현 모두 같은 후보 생성 사다리를 공유하며,
// Normalize는 멱등성을 보장합니다. 즉 Normalize(Normalize(x)) == Normalize(x)
// 입니다.
package normalize

import (
	log "github.com/sirupsen/logrus"
)

// Normalizer 검색어 정규화와 파생 정보 추출 연산 묶음.
type Normalizer interface {
	// Normalize 원본 검색어를 정규화된 검색어로 변환합니다.
	Normalize(raw string) string

	// Candidates 정규화 결과로부터 검색 후보 목록(1~8개)을 생성합니다.
	// 구체적인 후보가 앞에, 일반적인 후보가 뒤에 위치합니다.
	Candidates(raw string) []string

	// DetectCategory 검색어의 상품 카테고리를 판별합니다. (electronics, food, cosmetics, general)
	DetectCategory(raw string) string

	// ExtractBrand 정규화된 검색어에서 브랜드 토큰을 추출합니다.
	ExtractBrand(normalized string) string

	// ExtractModel 정규화된 검색어에서 모델 토큰(최대 3개)을 추출합니다.
	ExtractModel(normalized string) string
}

// New 임베드된 규칙 기반 정규화기를 생성합니다.
// 규칙 로드에 실패하면 내장 휴리스틱 정규화기로 대체합니다.
func New() Normalizer {
	n, err := NewRuleNormalizer()
	if err != nil {
		log.Warnf("정규화 규칙 로드에 실패하여 휴리스틱 정규화기로 대체합니다. (error:%s)", err)
		return NewHeuristicNormalizer()
	}
	return n
}
