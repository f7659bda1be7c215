// Package danawa 가격비교 카탈로그에 대한 패스트패스(HTTP)와
// 슬로우패스(헤드리스 브라우저) 검색 실행기를 제공합니다.
package danawa

import (
	"net/url"
	"regexp"
	"strings"
)

// pcodeRe 상품 링크에서 상품 코드를 추출하는 패턴
var pcodeRe = regexp.MustCompile(`(?:pcode|prod_id)=(\d+)`)

// URLBuilder 카탈로그 URL을 생성합니다.
type URLBuilder struct {
	base string
}

// NewURLBuilder 업스트림 기본 URL로 빌더를 생성합니다.
func NewURLBuilder(base string) *URLBuilder {
	return &URLBuilder{base: strings.TrimRight(base, "/")}
}

// SearchURL 검색 페이지 URL을 생성합니다.
func (b *URLBuilder) SearchURL(query string) string {
	escaped := url.QueryEscape(query)
	return b.base + "/search?query=" + escaped + "&originalQuery=" + escaped
}

// ProductURL 상품 상세 페이지 URL을 생성합니다.
func (b *URLBuilder) ProductURL(pcode, keyword string) string {
	return b.base + "/info/?pcode=" + pcode + "&keyword=" + url.QueryEscape(keyword)
}

// ResolveLink 상대 경로나 프로토콜 생략 링크를 절대 URL로 변환합니다.
func (b *URLBuilder) ResolveLink(href string) string {
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return b.base + href
	default:
		return href
	}
}

// ExtractPCode 링크에서 상품 코드를 추출합니다. 없으면 빈 문자열을 반환합니다.
func ExtractPCode(link string) string {
	m := pcodeRe.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}
