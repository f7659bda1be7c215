package danawa

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/darkkaiser/price-search-server/internal/crawler/fetch"
	"github.com/darkkaiser/price-search-server/internal/engine"
	apperrors "github.com/darkkaiser/price-search-server/internal/pkg/errors"
)

// FastPathConfig 패스트패스 실행기의 동작 설정.
type FastPathConfig struct {
	MinHTMLLength      int
	TrustLargeHTMLSize int
	RequestTimeout     time.Duration
	ProductTimeout     time.Duration
	MaxCandidates      int
	MaxProducts        int
}

// FastPath HTTP 요청만으로 검색과 상품 확인을 수행하는 빠른 경로입니다.
type FastPath struct {
	fetcher fetch.Fetcher
	urls    *URLBuilder
	cfg     FastPathConfig
}

// NewFastPath 패스트패스 실행기를 생성합니다.
func NewFastPath(fetcher fetch.Fetcher, urls *URLBuilder, cfg FastPathConfig) *FastPath {
	return &FastPath{
		fetcher: fetcher,
		urls:    urls,
		cfg:     cfg,
	}
}

// pcodeHit 검색 단계에서 확보한 상품 코드와 그 코드를 찾은 후보 검색어.
type pcodeHit struct {
	pcode     string
	candidate string
}

// Search 후보 검색어로 검색 페이지를 조회하여 상품 코드를 수집하고,
// 상품 상세 페이지를 확인하여 검색어와 일치하는 상품을 반환합니다.
//
// 검색어 일치 판정은 검색 페이지의 링크 텍스트 채점으로 끝나며, 상세 단계는
// 채점 순서대로 조회하여 처음으로 해석에 성공한 상품을 그대로 반환합니다.
// 전체 타임아웃의 60%는 검색 단계에, 나머지는 상품 확인 단계에 배분합니다.
// 차단 페이지가 감지되면 즉시 중단합니다. 상품 코드를 확보한 뒤 확인 단계에서
// 실패하면 ProductFetchError로 상품 코드를 보존하여 반환합니다.
func (f *FastPath) Search(ctx context.Context, query string, candidates []string, timeout time.Duration) (*engine.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if len(candidates) == 0 {
		candidates = []string{query}
	}
	if len(candidates) > f.cfg.MaxCandidates {
		candidates = candidates[:f.cfg.MaxCandidates]
	}

	searchDeadline := time.Now().Add(timeout * 6 / 10)

	hits, noResultCount, searchErr := f.collectPCodes(ctx, candidates, searchDeadline)
	if len(hits) == 0 {
		switch {
		case searchErr != nil && apperrors.Is(searchErr, apperrors.Blocked):
			return nil, searchErr
		case noResultCount > 0 && noResultCount == len(candidates):
			return nil, apperrors.Newf(apperrors.NotFound, "검색 결과가 없습니다. (query:%s)", query)
		case searchErr != nil:
			return nil, searchErr
		default:
			return nil, apperrors.Newf(apperrors.ParsingFailed, "검색 결과에서 상품 코드를 찾지 못했습니다. (query:%s)", query)
		}
	}

	return f.verifyProducts(ctx, hits)
}

// collectPCodes 후보 검색어들을 순회하며 상품 코드를 수집합니다.
func (f *FastPath) collectPCodes(ctx context.Context, candidates []string, deadline time.Time) (hits []pcodeHit, noResultCount int, lastErr error) {
	seen := make(map[string]struct{})

	for _, candidate := range candidates {
		if len(hits) >= f.cfg.MaxProducts {
			break
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}

		reqCtx, cancel := context.WithTimeout(ctx, minDuration(f.cfg.RequestTimeout, remaining))
		html, err := fetch.GetText(reqCtx, f.fetcher, f.urls.SearchURL(candidate))
		cancel()
		if err != nil {
			lastErr = err
			if apperrors.Is(err, apperrors.Blocked) {
				return nil, 0, lastErr
			}
			continue
		}

		// 결과 없음 문구는 확정 신호이므로 페이지 지문 검사보다 먼저 확인
		if hasNoResultsMarker(html) {
			noResultCount++
			continue
		}

		if err := checkHTMLValidity(html, f.cfg.MinHTMLLength, f.cfg.TrustLargeHTMLSize); err != nil {
			lastErr = err
			if apperrors.Is(err, apperrors.Blocked) {
				return nil, 0, lastErr
			}
			continue
		}

		doc, err := fetch.ParseHTML(html)
		if err != nil {
			lastErr = err
			continue
		}

		for _, pcode := range parseSearchPCodes(doc, candidate, maxSearchLinks) {
			if _, ok := seen[pcode]; ok {
				continue
			}
			seen[pcode] = struct{}{}
			hits = append(hits, pcodeHit{pcode: pcode, candidate: candidate})
			if len(hits) >= f.cfg.MaxProducts {
				break
			}
		}
	}

	return hits, noResultCount, lastErr
}

// verifyProducts 수집한 상품 코드를 채점 순서대로 상세 페이지에서 확인합니다.
// 처음으로 해석에 성공한 상품을 반환합니다.
func (f *FastPath) verifyProducts(ctx context.Context, hits []pcodeHit) (*engine.Product, error) {
	var detailErr error

	for _, hit := range hits {
		productTimeout := f.cfg.ProductTimeout
		if deadline, ok := ctx.Deadline(); ok {
			productTimeout = minDuration(productTimeout, time.Until(deadline))
		}
		if productTimeout <= 0 {
			break
		}

		productURL := f.urls.ProductURL(hit.pcode, hit.candidate)

		pctx, cancel := context.WithTimeout(ctx, productTimeout)
		html, err := fetch.GetText(pctx, f.fetcher, productURL)
		cancel()
		if err != nil {
			detailErr = err
			if apperrors.Is(err, apperrors.Blocked) {
				break
			}
			continue
		}

		if err := checkHTMLValidity(html, f.cfg.MinHTMLLength, f.cfg.TrustLargeHTMLSize); err != nil {
			detailErr = err
			if apperrors.Is(err, apperrors.Blocked) {
				break
			}
			continue
		}

		doc, err := fetch.ParseHTML(html)
		if err != nil {
			detailErr = err
			continue
		}

		product, err := parseProduct(doc, f.urls, hit.pcode, productURL)
		if err != nil {
			detailErr = err
			continue
		}

		if isAccessoryBrandTrap(hit.candidate, product.Name) {
			log.Debugf("액세서리 브랜드 상품을 제외합니다. (name:%s)", product.Name)
			continue
		}

		return product, nil
	}

	// 확보한 상품 코드는 슬로우패스 힌트로 재사용할 수 있도록 보존
	if detailErr != nil {
		return nil, &engine.ProductFetchError{PCode: hits[0].pcode, Reason: detailErr}
	}
	return nil, &engine.ProductFetchError{
		PCode:  hits[0].pcode,
		Reason: apperrors.New(apperrors.ExecutionFailed, "상세 페이지에서 상품을 확정하지 못했습니다."),
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
