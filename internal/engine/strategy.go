package engine

import (
	"context"
	"time"
)

// Cache 검색 결과 캐시 어댑터.
//
// 캐시 연산은 파이프라인을 중단시키지 않아야 하므로 에러를 반환하지 않습니다.
// 구현체는 실패를 내부에서 로깅하고 미스(nil)로 처리합니다.
type Cache interface {
	// Get 정규화된 검색어에 대한 캐시 항목을 조회합니다. 미스이면 nil을 반환합니다.
	Get(ctx context.Context, key string, timeout time.Duration) *CacheEntry

	// Set 검색 결과를 캐시에 저장합니다.
	Set(ctx context.Context, key string, entry *CacheEntry, ttl time.Duration)

	// GetNegative 결과 없음 마커를 조회합니다.
	GetNegative(ctx context.Context, key string) (message string, ok bool)

	// SetNegative 결과 없음 마커를 저장합니다.
	SetNegative(ctx context.Context, key string, message string, ttl time.Duration)

	// Delete 캐시 항목을 삭제합니다. 항목이 존재했으면 true를 반환합니다.
	Delete(ctx context.Context, key string) bool
}

// Normalizer 검색어 정규화와 파생 정보 추출 연산.
type Normalizer interface {
	Normalize(raw string) string
	Candidates(raw string) []string
	DetectCategory(raw string) string
	ExtractBrand(normalized string) string
	ExtractModel(normalized string) string
}

// FastPathExecutor HTTP 기반 빠른 검색 경로.
type FastPathExecutor interface {
	// Search 후보 검색어 목록으로 상품을 검색합니다.
	Search(ctx context.Context, query string, candidates []string, timeout time.Duration) (*Product, error)
}

// SlowPathExecutor 헤드리스 브라우저 기반 느린 검색 경로.
type SlowPathExecutor interface {
	// Search 후보 검색어 목록으로 상품을 검색합니다.
	// hint가 nil이 아니면 이전 단계에서 확보한 상품 코드를 우선 시도합니다.
	Search(ctx context.Context, candidates []string, timeout time.Duration, hint *ProductHint) (*Product, error)
}

// FailureRecorder 검색 실패 진단 정보를 기록합니다.
type FailureRecorder interface {
	RecordFailure(record FailureRecord)
}
