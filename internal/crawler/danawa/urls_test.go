package danawa

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLBuilder_SearchURL(t *testing.T) {
	b := NewURLBuilder("https://prod.example.com/")

	url := b.SearchURL("맥북 에어 M4")
	assert.Contains(t, url, "https://prod.example.com/search?query=")
	assert.Contains(t, url, "&originalQuery=")
	assert.NotContains(t, url, " ")
}

func TestURLBuilder_ProductURL(t *testing.T) {
	b := NewURLBuilder("https://prod.example.com")

	url := b.ProductURL("12345678", "맥북")
	assert.Contains(t, url, "/info/?pcode=12345678")
	assert.Contains(t, url, "keyword=")
}

func TestURLBuilder_ResolveLink(t *testing.T) {
	b := NewURLBuilder("https://prod.example.com")

	tests := []struct {
		name     string
		href     string
		expected string
	}{
		{"프로토콜 생략 링크", "//mall.example.com/p/1", "https://mall.example.com/p/1"},
		{"상대 경로", "/info/?pcode=123", "https://prod.example.com/info/?pcode=123"},
		{"절대 URL은 그대로", "https://other.example.com/x", "https://other.example.com/x"},
		{"빈 링크", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, b.ResolveLink(tt.href))
		})
	}
}

func TestExtractPCode(t *testing.T) {
	tests := []struct {
		name     string
		link     string
		expected string
	}{
		{"pcode 파라미터", "/info/?pcode=12345678&keyword=x", "12345678"},
		{"prod_id 파라미터", "https://example.com/view?prod_id=999", "999"},
		{"상품 코드 없음", "/search?query=맥북", ""},
		{"숫자가 아닌 값", "/info/?pcode=abc", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractPCode(tt.link))
		})
	}
}
