package normalize

import (
	_ "embed"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/darkkaiser/price-search-server/internal/pkg/errors"
)

//go:embed resources/rules.yaml
var embeddedRules []byte

// Rules resources/rules.yaml의 스키마.
type Rules struct {
	Classification ClassificationRules `yaml:"classification"`
	Categories     map[string][]string `yaml:"categories"`
	Tags           []TagRule           `yaml:"tags"`
	Removal        RemovalRules        `yaml:"removal"`
	HardMappings   HardMappingRules    `yaml:"hard_mappings"`
	Substitutions  map[string]string   `yaml:"substitutions"`
}

// ClassificationRules IT(전자제품) 판정 가중치와 시그널 목록.
type ClassificationRules struct {
	Threshold      int      `yaml:"threshold"`
	ITSignalWeight int      `yaml:"it_signal_weight"`
	NonITWeight    int      `yaml:"non_it_weight"`
	ITSignals      []string `yaml:"it_signals"`
	NonITStrong    []string `yaml:"non_it_strong"`
	ProtectedTerms []string `yaml:"protected_terms"`
}

// TagRule 패턴 매칭 기반 치환 규칙.
type TagRule struct {
	Name    string `yaml:"name"`
	Pattern string `yaml:"pattern"`
	Replace string `yaml:"replace"`
}

// RemovalRules 전자제품으로 분류된 검색어에서 제거할 용어/패턴 목록.
type RemovalRules struct {
	Colors         []string `yaml:"colors"`
	OSTerms        []string `yaml:"os_terms"`
	SpecPatterns   []string `yaml:"spec_patterns"`
	AccessoryTerms []string `yaml:"accessory_terms"`
	UIPhrases      []string `yaml:"ui_phrases"`
}

// HardMappingRules 정규화 전에 통째로 치환하는 매핑 테이블.
type HardMappingRules struct {
	SkipKeywords []string          `yaml:"skip_keywords"`
	Mappings     map[string]string `yaml:"mappings"`
}

type compiledTag struct {
	name    string
	pattern *regexp.Regexp
	replace string
}

// RuleNormalizer 임베드된 YAML 규칙을 따르는 정규화기.
type RuleNormalizer struct {
	rules *Rules

	tags        []compiledTag
	colorsRe    *regexp.Regexp
	osRe        *regexp.Regexp
	accessoryRe *regexp.Regexp
	uiRe        *regexp.Regexp
	specRes     []*regexp.Regexp

	// 긴 키부터 매칭하기 위한 정렬된 하드 매핑 키 목록
	hardKeys []string
}

// NewRuleNormalizer 임베드된 규칙을 로드하여 정규화기를 생성합니다.
func NewRuleNormalizer() (*RuleNormalizer, error) {
	return newRuleNormalizerFrom(embeddedRules)
}

func newRuleNormalizerFrom(data []byte) (*RuleNormalizer, error) {
	var rules Rules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, apperrors.Wrap(err, apperrors.Internal, "정규화 규칙 파싱이 실패하였습니다.")
	}
	if rules.Classification.Threshold <= 0 {
		return nil, apperrors.New(apperrors.Internal, "정규화 규칙의 분류 임계값이 유효하지 않습니다.")
	}

	n := &RuleNormalizer{
		rules:       &rules,
		colorsRe:    compileTermsRe(rules.Removal.Colors),
		osRe:        compileTermsRe(rules.Removal.OSTerms),
		accessoryRe: compileTermsRe(rules.Removal.AccessoryTerms),
		uiRe:        compileTermsRe(rules.Removal.UIPhrases),
	}

	for _, tag := range rules.Tags {
		re, err := regexp.Compile(tag.Pattern)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.Internal, "태그 규칙(%s)의 패턴이 유효하지 않습니다.", tag.Name)
		}
		n.tags = append(n.tags, compiledTag{name: tag.Name, pattern: re, replace: tag.Replace})
	}

	for _, p := range rules.Removal.SpecPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.Internal, "사양 제거 패턴(%s)이 유효하지 않습니다.", p)
		}
		n.specRes = append(n.specRes, re)
	}

	for key := range rules.HardMappings.Mappings {
		n.hardKeys = append(n.hardKeys, key)
	}
	sort.Slice(n.hardKeys, func(i, j int) bool {
		if len(n.hardKeys[i]) != len(n.hardKeys[j]) {
			return len(n.hardKeys[i]) > len(n.hardKeys[j])
		}
		return n.hardKeys[i] < n.hardKeys[j]
	})

	return n, nil
}

// Normalize 규칙 파이프라인을 적용하여 검색어를 정규화합니다.
//
// 하드 매핑 → 괄호 제거 → 구분자 절단 → UI 문구 제거 → 태그 치환 →
// (전자제품인 경우) 도메인 제거 규칙 → 한글/영문 경계 공백 삽입 →
// 단일 대문자 정리 → 공백 정리 순으로 진행합니다.
func (n *RuleNormalizer) Normalize(raw string) string {
	s := collapseWhitespace(foldWidth(raw))
	if s == "" {
		return ""
	}

	s = n.applyHardMapping(s)
	s = stripBrackets(s)
	s = truncateAtSeparators(s)
	s = removeTermsProtected(s, n.rules.Classification.ProtectedTerms, n.uiRe)

	for _, tag := range n.tags {
		s = tag.pattern.ReplaceAllString(s, tag.replace)
	}

	if n.isElectronics(s) {
		removers := append([]*regexp.Regexp{n.colorsRe, n.osRe, n.accessoryRe}, n.specRes...)
		s = removeTermsProtected(s, n.rules.Classification.ProtectedTerms, removers...)
	}

	s = insertBoundarySpaces(s)
	s = dropIsolatedCapitals(s)
	return collapseWhitespace(s)
}

// applyHardMapping 하드 매핑 테이블을 조회하여 일치 구간을 치환합니다.
// 액세서리 키워드가 포함된 검색어는 본품 매핑을 건너뜁니다.
func (n *RuleNormalizer) applyHardMapping(s string) string {
	lower := strings.ToLower(s)

	for _, kw := range n.rules.HardMappings.SkipKeywords {
		if strings.Contains(lower, kw) {
			return s
		}
	}

	if mapped, ok := n.rules.HardMappings.Mappings[lower]; ok {
		return mapped
	}
	for _, key := range n.hardKeys {
		if idx := strings.Index(lower, key); idx >= 0 {
			return s[:idx] + n.rules.HardMappings.Mappings[key] + s[idx+len(key):]
		}
	}
	return s
}

// isElectronics 시그널 점수 합산으로 전자제품 여부를 판정합니다.
func (n *RuleNormalizer) isElectronics(s string) bool {
	lower := strings.ToLower(s)

	score := 0
	for _, sig := range n.rules.Classification.ITSignals {
		if strings.Contains(lower, sig) {
			score += n.rules.Classification.ITSignalWeight
		}
	}
	for _, sig := range n.rules.Classification.NonITStrong {
		if strings.Contains(lower, sig) {
			score += n.rules.Classification.NonITWeight
		}
	}
	return score >= n.rules.Classification.Threshold
}

// DetectCategory 카테고리 키워드 테이블을 우선 조회하고, 없으면 분류 점수로 판정합니다.
func (n *RuleNormalizer) DetectCategory(raw string) string {
	lower := strings.ToLower(collapseWhitespace(raw))
	if lower == "" {
		return categoryGeneral
	}

	for _, category := range categoryPriority(n.rules.Categories) {
		for _, kw := range n.rules.Categories[category] {
			if strings.Contains(lower, kw) {
				return category
			}
		}
	}

	if n.isElectronics(lower) {
		return categoryElectronics
	}
	return categoryGeneral
}

// Candidates 정규화 결과로부터 검색 후보 목록을 생성합니다.
func (n *RuleNormalizer) Candidates(raw string) []string {
	return buildCandidates(n.Normalize(raw), n.rules.Substitutions)
}

// ExtractBrand 정규화된 검색어의 첫 토큰(연도 제외)을 브랜드로 간주합니다.
func (n *RuleNormalizer) ExtractBrand(normalized string) string {
	return extractBrandToken(normalized)
}

// ExtractModel 브랜드 토큰 이후의 토큰(최대 3개, 연도 제외)을 모델로 간주합니다.
func (n *RuleNormalizer) ExtractModel(normalized string) string {
	return extractModelTokens(normalized)
}

const (
	categoryElectronics = "electronics"
	categoryFood        = "food"
	categoryCosmetics   = "cosmetics"
	categoryGeneral     = "general"
)

// categoryPriority 카테고리 판정 순서를 고정합니다. 정의된 우선순위에 없는
// 카테고리는 이름순으로 뒤에 붙습니다.
func categoryPriority(categories map[string][]string) []string {
	known := []string{categoryElectronics, categoryFood, categoryCosmetics}

	out := make([]string, 0, len(categories))
	for _, c := range known {
		if _, ok := categories[c]; ok {
			out = append(out, c)
		}
	}

	var extras []string
	for c := range categories {
		found := false
		for _, k := range known {
			if c == k {
				found = true
				break
			}
		}
		if !found {
			extras = append(extras, c)
		}
	}
	sort.Strings(extras)
	return append(out, extras...)
}
