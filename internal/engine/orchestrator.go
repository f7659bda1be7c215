package engine

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	apperrors "github.com/darkkaiser/price-search-server/internal/pkg/errors"
)

const noResultsMessage = "검색 결과가 없습니다."

// Options 오케스트레이터의 예산/캐시 정책.
type Options struct {
	TotalBudget time.Duration
	Stages      StageBudgets
	PositiveTTL time.Duration
	NegativeTTL time.Duration
}

// Dependencies 오케스트레이터가 사용하는 협력 객체 묶음.
type Dependencies struct {
	Cache      Cache
	Normalizer Normalizer
	FastPath   FastPathExecutor
	SlowPath   SlowPathExecutor
	Breaker    *CircuitBreaker
	Recorder   FailureRecorder
}

// Orchestrator 캐시 → 패스트패스 → 슬로우패스 순서의 다단계 검색을 조정합니다.
type Orchestrator struct {
	opts Options
	deps Dependencies
}

// NewOrchestrator 오케스트레이터를 생성합니다.
func NewOrchestrator(opts Options, deps Dependencies) *Orchestrator {
	return &Orchestrator{
		opts: opts,
		deps: deps,
	}
}

// Metrics 누적 지표의 사본을 반환합니다.
func (o *Orchestrator) Metrics() Metrics {
	return o.deps.Breaker.Snapshot()
}

// Search 검색어 한 건을 시간 예산 안에서 처리합니다.
//
// 흐름은 다음과 같습니다.
//
//  1. 검색어 정규화. 빈 검색어는 즉시 결과 없음으로 종료합니다.
//  2. 결과 없음 마커(네거티브 캐시) 선조회. 히트 시 즉시 종료합니다.
//  3. 캐시 조회. 히트 시 즉시 종료합니다.
//  4. 패스트패스(HTTP). 차단기가 열려 있거나 예산이 부족하면 건너뜁니다.
//     결과 없음 응답은 확정으로 간주하여 네거티브 캐시에 기록하고 종료합니다.
//  5. 슬로우패스(헤드리스 브라우저). 예산이 부족하면 budget_exhausted로
//     종료합니다. 패스트패스에서 확보한 상품 코드는 힌트로 전달합니다.
//
// 성공한 결과는 캐시에 저장되고, 실패한 검색은 진단 정보가 기록됩니다.
func (o *Orchestrator) Search(ctx context.Context, query string) *SearchResult {
	budget := NewBudgetManager(o.opts.TotalBudget, o.opts.Stages)
	normalized := o.deps.Normalizer.Normalize(query)

	result := &SearchResult{
		Query:           query,
		NormalizedQuery: normalized,
	}

	finish := func(status SearchStatus, message string) *SearchResult {
		result.Status = status
		result.Source = sourceFor(status)
		result.Message = message
		result.Elapsed = budget.Elapsed()
		result.ElapsedMS = result.Elapsed.Milliseconds()
		result.Budget = budget.Report()
		return result
	}

	if normalized == "" {
		return finish(StatusNoResults, "검색어가 비어 있습니다.")
	}

	// 결과 없음 마커 선조회
	if message, ok := o.deps.Cache.GetNegative(ctx, normalized); ok {
		budget.Checkpoint("negative_cache_hit")
		if message == "" {
			message = noResultsMessage
		}
		return finish(StatusNoResults, message)
	}

	// 1단계: 캐시
	if entry := o.deps.Cache.Get(ctx, normalized, budget.TimeoutFor(StageCache)); entry != nil {
		budget.Checkpoint("cache_hit")
		result.Product = productFromEntry(entry)
		return finish(StatusCacheHit, "")
	}
	budget.Checkpoint("cache_miss")

	candidates := o.deps.Normalizer.Candidates(query)
	var hint *ProductHint

	// 2단계: 패스트패스
	switch {
	case o.deps.Breaker.IsOpen():
		budget.Checkpoint("fastpath_skipped_breaker")
		log.Debugf("차단기가 열려 있어 패스트패스를 건너뜁니다. (query:%s)", normalized)

	case !budget.CanExecute(StageFastPath):
		budget.Checkpoint("fastpath_skipped_budget")

	default:
		product, err := o.deps.FastPath.Search(ctx, normalized, candidates, budget.TimeoutFor(StageFastPath))

		switch {
		case err == nil && product != nil:
			o.deps.Breaker.RecordSuccess()
			budget.Checkpoint("fastpath_success")
			o.storePositive(ctx, normalized, product)
			result.Product = product
			return finish(StatusFastPathSuccess, "")

		case apperrors.Is(err, apperrors.NotFound):
			// 카탈로그에 상품이 없다는 확정 응답. 슬로우패스로 진행하지 않습니다.
			budget.Checkpoint("fastpath_no_results")
			o.deps.Cache.SetNegative(ctx, normalized, noResultsMessage, o.opts.NegativeTTL)
			o.recordFailure(query, normalized, candidates, err, StatusNoResults)
			return finish(StatusNoResults, noResultsMessage)

		default:
			o.deps.Breaker.RecordFailure()
			budget.Checkpoint("fastpath_failed")
			log.Warnf("패스트패스 검색이 실패하였습니다. (query:%s, error:%s)", normalized, err)

			// 상세 조회 단계에서 실패한 경우 확보한 상품 코드를 힌트로 전달
			var fetchErr *ProductFetchError
			if apperrors.As(err, &fetchErr) && fetchErr.PCode != "" {
				hint = &ProductHint{PCode: fetchErr.PCode}
			}
		}
	}

	// 3단계: 슬로우패스
	if !budget.CanExecute(StageSlowPath) {
		budget.Checkpoint("slowpath_skipped_budget")
		err := apperrors.New(apperrors.Exhausted, "시간 예산이 소진되어 검색을 중단합니다.")
		o.recordFailure(query, normalized, candidates, err, StatusBudgetExhausted)
		return finish(StatusBudgetExhausted, err.Error())
	}

	product, err := o.deps.SlowPath.Search(ctx, candidates, budget.TimeoutFor(StageSlowPath), hint)
	if err == nil && product != nil {
		o.deps.Breaker.RecordSlowPathSuccess()
		budget.Checkpoint("slowpath_success")
		o.storePositive(ctx, normalized, product)
		result.Product = product
		return finish(StatusSlowPathSuccess, "")
	}

	o.deps.Breaker.RecordSlowPathFailure()
	budget.Checkpoint("slowpath_failed")
	log.Warnf("슬로우패스 검색이 실패하였습니다. (query:%s, error:%s)", normalized, err)

	switch {
	case apperrors.Is(err, apperrors.NotFound), apperrors.Is(err, apperrors.Unavailable):
		// 결과 없음 마커는 패스트패스의 확정 응답에만 기록합니다.
		// 슬로우패스의 결과 없음은 브라우저 상태에 따라 달라질 수 있습니다.
		o.recordFailure(query, normalized, candidates, err, StatusNoResults)
		return finish(StatusNoResults, noResultsMessage)

	case apperrors.Is(err, apperrors.Timeout), apperrors.Is(err, apperrors.Exhausted):
		o.recordFailure(query, normalized, candidates, err, StatusTimeout)
		return finish(StatusTimeout, "검색 시간이 초과되었습니다.")

	case apperrors.Is(err, apperrors.Blocked):
		o.recordFailure(query, normalized, candidates, err, StatusBlocked)
		return finish(StatusBlocked, "업스트림 접근이 차단되었습니다.")

	default:
		o.recordFailure(query, normalized, candidates, err, StatusParseError)
		return finish(StatusParseError, "검색 결과 해석에 실패하였습니다.")
	}
}

// storePositive 확보한 상품 정보를 캐시에 저장합니다.
func (o *Orchestrator) storePositive(ctx context.Context, key string, product *Product) {
	o.deps.Cache.Set(ctx, key, &CacheEntry{
		ProductURL:   product.URL,
		Price:        product.Price,
		ProductName:  product.Name,
		Mall:         product.Mall,
		FreeShipping: product.FreeShipping,
	}, o.opts.PositiveTTL)
}

// recordFailure 실패 진단 정보를 기록합니다.
func (o *Orchestrator) recordFailure(query, normalized string, candidates []string, err error, status SearchStatus) {
	if o.deps.Recorder == nil {
		return
	}

	message := ""
	if err != nil {
		message = err.Error()
	}

	o.deps.Recorder.RecordFailure(FailureRecord{
		Timestamp:       time.Now(),
		OriginalQuery:   query,
		NormalizedQuery: normalized,
		Candidates:      candidates,
		ErrorMessage:    message,
		Status:          string(status),
		Category:        o.deps.Normalizer.DetectCategory(query),
		Brand:           o.deps.Normalizer.ExtractBrand(normalized),
		Model:           o.deps.Normalizer.ExtractModel(normalized),
		AttemptedCount:  len(candidates),
	})
}

// productFromEntry 캐시 항목을 상품 정보로 복원합니다.
func productFromEntry(entry *CacheEntry) *Product {
	return &Product{
		URL:          entry.ProductURL,
		Price:        entry.Price,
		Name:         entry.ProductName,
		Mall:         entry.Mall,
		FreeShipping: entry.FreeShipping,
	}
}
