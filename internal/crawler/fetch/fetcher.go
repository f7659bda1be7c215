// Package fetch 크롤링 경로가 공용으로 사용하는 HTTP 클라이언트를 제공합니다.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	apperrors "github.com/darkkaiser/price-search-server/internal/pkg/errors"
)

// defaultUserAgent 봇 차단 회피를 위한 기본 User-Agent(Chrome) 값
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxBodyBytes 응답 본문 읽기 상한. 비정상적으로 큰 응답으로부터 보호합니다.
const maxBodyBytes = 4 << 20 // 4MB

// Fetcher HTTP 요청을 수행하는 인터페이스
type Fetcher interface {
	Get(ctx context.Context, url string) (*http.Response, error)
	Do(req *http.Request) (*http.Response, error)
}

// HTTPFetcher 커넥션 풀과 브라우저 유사 헤더 자동 추가 기능이 내장된 HTTP 클라이언트 구현체입니다.
type HTTPFetcher struct {
	client  *http.Client
	referer string
}

// NewHTTPFetcher 커넥션 풀이 설정된 새로운 HTTPFetcher 인스턴스를 생성합니다.
// referer는 모든 요청에 자동으로 추가됩니다. (빈 문자열이면 생략)
func NewHTTPFetcher(timeout time.Duration, referer string) *HTTPFetcher {
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		referer: referer,
	}
}

// Get 지정된 URL로 HTTP GET 요청을 전송합니다.
func (h *HTTPFetcher) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return h.Do(req)
}

// Do 커스텀 HTTP 요청을 실행합니다.
// 요청 헤더에 User-Agent가 없는 경우, 기본값(Chrome)을 자동으로 추가하여 봇 차단을 방지합니다.
func (h *HTTPFetcher) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", defaultUserAgent)
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8")
	}
	if h.referer != "" && req.Header.Get("Referer") == "" {
		req.Header.Set("Referer", h.referer)
	}
	return h.client.Do(req)
}

// GetText 지정된 URL의 응답 본문을 UTF-8 문자열로 가져옵니다.
// 응답 헤더의 Content-Type을 분석하여, 비 UTF-8 인코딩(예: EUC-KR) 페이지도 자동으로 변환합니다.
func GetText(ctx context.Context, fetcher Fetcher, url string) (string, error) {
	resp, err := fetcher.Get(ctx, url)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", apperrors.Wrap(err, apperrors.Timeout, fmt.Sprintf("페이지(%s) 요청이 시간 초과되었습니다.", url))
		}
		return "", apperrors.Wrap(err, apperrors.Unavailable, fmt.Sprintf("페이지(%s) 요청 중 네트워크 또는 클라이언트 에러가 발생했습니다.", url))
	}
	defer resp.Body.Close() // 응답을 받은 즉시 defer 설정하여 메모리 누수 방지

	if err := checkStatus(resp, url); err != nil {
		return "", err
	}

	utf8Reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ExecutionFailed, fmt.Sprintf("페이지(%s)의 인코딩 변환이 실패하였습니다.", url))
	}

	body, err := io.ReadAll(utf8Reader)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ExecutionFailed, fmt.Sprintf("페이지(%s)의 본문 읽기가 실패하였습니다.", url))
	}
	return string(body), nil
}

// ParseHTML HTML 문자열을 goquery.Document로 파싱합니다.
func ParseHTML(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ParsingFailed, "HTML 파싱이 실패하였습니다.")
	}
	return doc, nil
}

// FetchHTMLDocument 지정된 URL로 HTTP 요청을 보내 HTML 문서를 가져오고, goquery.Document로 파싱합니다.
func FetchHTMLDocument(ctx context.Context, fetcher Fetcher, url string) (*goquery.Document, error) {
	body, err := GetText(ctx, fetcher, url)
	if err != nil {
		return nil, err
	}

	doc, err := ParseHTML(body)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ParsingFailed, fmt.Sprintf("불러온 페이지(%s)의 데이터 파싱이 실패하였습니다.", url))
	}
	return doc, nil
}

// checkStatus 응답 상태 코드를 에러 유형으로 변환합니다.
//
//	403, 429 → Blocked (봇 차단 의심)
//	5xx      → Unavailable
//	그 외     → ExecutionFailed
func checkStatus(resp *http.Response, url string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	errType := apperrors.ExecutionFailed
	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		errType = apperrors.Blocked
	case resp.StatusCode >= 500:
		errType = apperrors.Unavailable
	}
	return apperrors.New(errType, fmt.Sprintf("페이지(%s) 요청이 실패했습니다. 상태 코드: %s", url, resp.Status))
}
