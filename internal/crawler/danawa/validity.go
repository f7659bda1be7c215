package danawa

import (
	"strings"

	apperrors "github.com/darkkaiser/price-search-server/internal/pkg/errors"
)

// noResultsMarker 검색 결과가 비어 있을 때 페이지에 포함되는 문구
const noResultsMarker = "검색 결과가 없습니다"

// blockKeywords 봇 차단 페이지에 나타나는 문구 목록
var blockKeywords = []string{
	"access denied",
	"captcha",
	"cloudflare challenge",
	"just a moment",
	"verify you are human",
	"접속이 차단되었습니다",
}

// fingerprintMarkers 정상적인 카탈로그 페이지에만 존재하는 지문 문자열 목록
var fingerprintMarkers = []string{
	"prod_item",
	"pcode=",
	"lowPriceCompanyArea",
	"prod_tit",
}

// checkHTMLValidity 응답 HTML이 정상적인 카탈로그 페이지인지 검사합니다.
//
// 본문이 너무 짧으면 무효, 페이지 지문이 확인되면 즉시 유효, 차단 문구가 있으면
// Blocked, 지문 없이도 충분히 크면 유효로 간주합니다. 지문 검사가 차단 문구
// 검사보다 앞서므로 정상 페이지 본문에 우연히 포함된 차단 문구는 무시됩니다.
// minLength와 trustLargeSize는 설정에서 주입됩니다.
func checkHTMLValidity(html string, minLength, trustLargeSize int) error {
	if strings.TrimSpace(html) == "" {
		return apperrors.New(apperrors.ParsingFailed, "빈 응답을 수신하였습니다.")
	}

	if len(html) < minLength {
		return apperrors.Newf(apperrors.ParsingFailed, "응답 본문이 너무 짧습니다. (length:%d)", len(html))
	}

	for _, marker := range fingerprintMarkers {
		if strings.Contains(html, marker) {
			return nil
		}
	}

	lower := strings.ToLower(html)
	for _, kw := range blockKeywords {
		if strings.Contains(lower, kw) {
			return apperrors.Newf(apperrors.Blocked, "차단 페이지가 감지되었습니다. (keyword:%s)", kw)
		}
	}

	if len(html) > trustLargeSize {
		return nil
	}
	return apperrors.New(apperrors.ParsingFailed, "카탈로그 페이지 지문을 확인하지 못했습니다.")
}

// hasNoResultsMarker 검색 결과 없음 문구가 포함되어 있는지 확인합니다.
func hasNoResultsMarker(html string) bool {
	return strings.Contains(html, noResultsMarker)
}
