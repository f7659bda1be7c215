package danawa

import (
	"context"
	"math/rand"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/darkkaiser/price-search-server/internal/crawler/fetch"
	"github.com/darkkaiser/price-search-server/internal/engine"
	"github.com/darkkaiser/price-search-server/internal/match"
	apperrors "github.com/darkkaiser/price-search-server/internal/pkg/errors"
)

// 슬로우패스 채점 기준
const (
	// slowPathMaxLinks 검색 페이지에서 확인할 상품 링크 수 상한
	slowPathMaxLinks = 12

	// slowPathLinkScore 링크 텍스트가 이 점수 이상이면 확신을 가지고 선택합니다.
	slowPathLinkScore = 30.0

	// slowPathLowConfidenceScore 확신 기준에 미달하더라도 이 점수 이상이면
	// 낮은 확신으로 선택하여 상세 페이지에서 재검증합니다.
	slowPathLowConfidenceScore = 10.0

	// slowPathVerifyScore 상세 페이지의 상품명 재검증 기준
	slowPathVerifyScore = 45.0

	// slowPathMaxCandidates 브라우저로 시도할 후보 검색어 수 상한
	slowPathMaxCandidates = 3

	// slowPathSelectorWait 페이지 이동 후 핵심 요소 렌더링을 기다리는 시간
	slowPathSelectorWait = 3 * time.Second
)

// 페이지 렌더링 완료 판정에 사용하는 셀렉터
const (
	searchReadySelector = `.prod_item, a[href*="pcode="]`
	priceReadySelector  = "#lowPriceCompanyArea, .lowest_area"
)

// SlowPathConfig 슬로우패스 실행기의 동작 설정.
type SlowPathConfig struct {
	Concurrency      int64
	RateLimitMin     time.Duration
	RateLimitMax     time.Duration
	SemaphoreCushion time.Duration
}

// SlowPath 헤드리스 브라우저로 검색과 상품 확인을 수행하는 느린 경로입니다.
//
// 브라우저는 비용이 큰 자원이므로 세마포어로 동시 실행 수를 제한하고,
// 상세 페이지 조회 사이에는 무작위 지연을 두어 요청 패턴을 분산합니다.
type SlowPath struct {
	browser *Browser
	urls    *URLBuilder
	sem     *semaphore.Weighted
	cfg     SlowPathConfig
}

// NewSlowPath 슬로우패스 실행기를 생성합니다.
func NewSlowPath(browser *Browser, urls *URLBuilder, cfg SlowPathConfig) *SlowPath {
	return &SlowPath{
		browser: browser,
		urls:    urls,
		sem:     semaphore.NewWeighted(cfg.Concurrency),
		cfg:     cfg,
	}
}

// Search 후보 검색어로 브라우저 검색을 수행합니다.
//
// 이전 단계에서 확보한 상품 코드 힌트가 있으면 상세 페이지를 먼저 시도합니다.
// 세마포어 획득 대기 시간은 단계 타임아웃에 약간의 여유를 더한 값으로 제한됩니다.
func (s *SlowPath) Search(ctx context.Context, candidates []string, timeout time.Duration, hint *engine.ProductHint) (*engine.Product, error) {
	acquireCtx, cancelAcquire := context.WithTimeout(ctx, timeout+s.cfg.SemaphoreCushion)
	err := s.sem.Acquire(acquireCtx, 1)
	cancelAcquire()
	if err != nil {
		// 브라우저가 모두 사용 중이면 이번 검색은 결과 없음으로 처리
		return nil, apperrors.Wrap(err, apperrors.NotFound, "브라우저 동시 실행 한도에 도달하였습니다. (reason:busy)")
	}
	defer s.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// 상세 페이지 조회 사이에만 무작위 지연을 둔다
	detailFetches := 0
	fetchDetail := func(pcode, keyword string) (*engine.Product, error) {
		if detailFetches > 0 {
			s.sleepJitter(ctx)
		}
		detailFetches++
		return s.fetchProduct(ctx, pcode, keyword)
	}

	// 힌트로 확보한 상품 코드가 있으면 검색을 건너뛰고 상세 페이지를 먼저 시도
	if hint != nil && hint.PCode != "" {
		keyword := ""
		if len(candidates) > 0 {
			keyword = candidates[0]
		}
		if product, err := fetchDetail(hint.PCode, keyword); err == nil {
			return product, nil
		} else {
			log.Debugf("힌트 상품 코드 확인이 실패하였습니다. (pcode:%s, error:%s)", hint.PCode, err)
		}
	}

	if len(candidates) > slowPathMaxCandidates {
		candidates = candidates[:slowPathMaxCandidates]
	}

	var lastErr error
	noResultCount := 0

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}

		pcode, noResults, err := s.findBestLink(ctx, candidate)
		if err != nil {
			lastErr = err
			if apperrors.Is(err, apperrors.Blocked) {
				return nil, err
			}
			continue
		}
		if noResults {
			noResultCount++
			continue
		}
		if pcode == "" {
			continue
		}

		product, err := fetchDetail(pcode, candidate)
		if err != nil {
			lastErr = err
			if apperrors.Is(err, apperrors.Blocked) {
				return nil, err
			}
			continue
		}

		// 상세 페이지의 상품명으로 재검증
		if score := match.Score(candidate, product.Name); score >= slowPathVerifyScore {
			return product, nil
		}
		log.Debugf("상품명 재검증 점수가 낮아 제외합니다. (candidate:%s, name:%s)", candidate, product.Name)
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		return nil, apperrors.New(apperrors.Timeout, "브라우저 검색이 시간 초과되었습니다.")
	case noResultCount > 0 && noResultCount == len(candidates):
		return nil, apperrors.New(apperrors.NotFound, "검색 결과가 없습니다.")
	case lastErr != nil:
		return nil, lastErr
	default:
		return nil, apperrors.New(apperrors.NotFound, "검색어와 일치하는 상품을 찾지 못했습니다.")
	}
}

// findBestLink 검색 페이지에서 후보 검색어와 가장 유사한 상품 링크를 찾습니다.
func (s *SlowPath) findBestLink(ctx context.Context, candidate string) (pcode string, noResults bool, err error) {
	page, router, err := s.browser.NewPage()
	if err != nil {
		return "", false, err
	}
	defer func() {
		router.Stop()
		page.Close()
	}()

	page = page.Context(ctx)

	if err := s.navigate(page, s.urls.SearchURL(candidate)); err != nil {
		return "", false, err
	}

	// 검색 결과 목록은 스크립트로 렌더링되므로 상품 링크가 나타날 때까지 대기
	if err := waitForSelector(page, searchReadySelector); err != nil {
		html, htmlErr := page.HTML()
		if htmlErr == nil && hasNoResultsMarker(html) {
			return "", true, nil
		}
		log.Debugf("검색 결과 렌더링 대기가 시간 초과되었습니다. (candidate:%s)", candidate)
		return "", false, nil
	}

	elements, err := page.Elements(`a[href*="pcode="]`)
	if err != nil {
		return "", false, apperrors.Wrap(err, apperrors.ExecutionFailed, "검색 결과 링크 조회가 실패하였습니다.")
	}

	if len(elements) == 0 {
		html, htmlErr := page.HTML()
		if htmlErr == nil && hasNoResultsMarker(html) {
			return "", true, nil
		}
		return "", false, nil
	}

	bestScore := 0.0
	bestPCode := ""
	for i, el := range elements {
		if i >= slowPathMaxLinks {
			break
		}

		href, err := el.Attribute("href")
		if err != nil || href == nil {
			continue
		}
		code := ExtractPCode(*href)
		if code == "" {
			continue
		}

		text, err := el.Text()
		if err != nil {
			continue
		}

		if score := match.Score(candidate, text); score > bestScore {
			bestScore, bestPCode = score, code
		}
	}

	switch {
	case bestScore >= slowPathLinkScore:
		return bestPCode, false, nil
	case bestScore >= slowPathLowConfidenceScore:
		log.Debugf("낮은 확신으로 상품 링크를 선택합니다. (candidate:%s, score:%.0f)", candidate, bestScore)
		return bestPCode, false, nil
	default:
		return "", false, nil
	}
}

// fetchProduct 상품 상세 페이지를 열어 상품 정보를 추출합니다.
func (s *SlowPath) fetchProduct(ctx context.Context, pcode, keyword string) (*engine.Product, error) {
	page, router, err := s.browser.NewPage()
	if err != nil {
		return nil, err
	}
	defer func() {
		router.Stop()
		page.Close()
	}()

	page = page.Context(ctx)

	productURL := s.urls.ProductURL(pcode, keyword)
	if err := s.navigate(page, productURL); err != nil {
		return nil, err
	}

	// 가격 영역이 나타날 때까지 대기. 단종 상품 페이지에는 가격 영역이 없으므로
	// 시간 초과는 해석 단계에서 판정하도록 넘어간다.
	if err := waitForSelector(page, priceReadySelector); err != nil {
		log.Debugf("가격 영역 렌더링 대기가 시간 초과되었습니다. (pcode:%s)", pcode)
	}

	// 배송비 포함 가격 토글이 있으면 펼친다
	if has, el, err := page.Has("#add_delivery"); err == nil && has {
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			log.Debugf("배송비 토글 클릭이 실패하였습니다. (pcode:%s, error:%s)", pcode, err)
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.ExecutionFailed, "상품 페이지(pcode:%s) HTML 추출이 실패하였습니다.", pcode)
	}

	doc, err := fetch.ParseHTML(html)
	if err != nil {
		return nil, err
	}
	return parseProduct(doc, s.urls, pcode, productURL)
}

// navigate DOMContentLoaded 시점까지 페이지 이동을 기다립니다.
func (s *SlowPath) navigate(page *rod.Page, url string) error {
	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := page.Navigate(url); err != nil {
		return apperrors.Wrapf(err, apperrors.ExecutionFailed, "페이지(%s) 이동이 실패하였습니다.", url)
	}
	wait()
	return nil
}

// waitForSelector 셀렉터에 해당하는 요소가 나타날 때까지 대기합니다.
func waitForSelector(page *rod.Page, selector string) error {
	_, err := page.Timeout(slowPathSelectorWait).Element(selector)
	return err
}

// sleepJitter 요청 패턴 분산을 위해 무작위 시간만큼 대기합니다.
func (s *SlowPath) sleepJitter(ctx context.Context) {
	spread := s.cfg.RateLimitMax - s.cfg.RateLimitMin
	delay := s.cfg.RateLimitMin
	if spread > 0 {
		delay += time.Duration(rand.Int63n(int64(spread)))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
