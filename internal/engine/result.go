// Package engine 예산 기반 다단계 가격 검색 파이프라인의 핵심 오케스트레이션을
// 담당합니다.
//
// 검색은 캐시 → 패스트패스(HTTP) → 슬로우패스(헤드리스 브라우저) 순으로
// 진행되며, 전체 흐름은 BudgetManager가 관리하는 시간 예산 안에서만 실행됩니다.
// 패스트패스의 연속 실패는 CircuitBreaker가 감지하여 일정 시간 동안 해당 단계를
// 건너뜁니다.
package engine

import (
	"fmt"
	"time"
)

// SearchStatus 검색 결과의 종료 상태.
type SearchStatus string

const (
	StatusCacheHit        SearchStatus = "cache_hit"
	StatusFastPathSuccess SearchStatus = "fastpath_success"
	StatusSlowPathSuccess SearchStatus = "slowpath_success"
	StatusTimeout         SearchStatus = "timeout"
	StatusParseError      SearchStatus = "parse_error"
	StatusBlocked         SearchStatus = "blocked"
	StatusNoResults       SearchStatus = "no_results"
	StatusBudgetExhausted SearchStatus = "budget_exhausted"
)

// 파이프라인 단계 이름. 예산 체크포인트와 로그에 사용됩니다.
const (
	StageCache    = "cache"
	StageFastPath = "fastpath"
	StageSlowPath = "slowpath"
)

// MallOffer 가격비교 테이블의 판매처 단위 항목.
type MallOffer struct {
	Mall         string `json:"mall"`
	Price        int    `json:"price"`
	FreeShipping bool   `json:"free_shipping"`
	Delivery     string `json:"delivery,omitempty"`
	URL          string `json:"url,omitempty"`
}

// Product 카탈로그에서 확인된 상품 정보.
type Product struct {
	PCode        string      `json:"pcode"`
	URL          string      `json:"url"`
	Price        int         `json:"price"`
	Name         string      `json:"name"`
	Mall         string      `json:"mall,omitempty"`
	FreeShipping bool        `json:"free_shipping"`
	Offers       []MallOffer `json:"offers,omitempty"`
}

// CacheEntry 캐시에 저장되는 검색 결과의 축약형.
type CacheEntry struct {
	ProductURL   string `json:"product_url"`
	Price        int    `json:"price"`
	ProductName  string `json:"product_name"`
	Mall         string `json:"mall,omitempty"`
	FreeShipping bool   `json:"free_shipping"`
}

// SearchResult 한 번의 검색 요청에 대한 최종 결과.
type SearchResult struct {
	Status          SearchStatus  `json:"status"`
	Query           string        `json:"query"`
	NormalizedQuery string        `json:"normalized_query"`
	Source          string        `json:"source,omitempty"`
	Product         *Product      `json:"product,omitempty"`
	Message         string        `json:"message,omitempty"`
	Elapsed         time.Duration `json:"-"`
	ElapsedMS       int64         `json:"elapsed_ms"`
	Budget          *BudgetReport `json:"budget,omitempty"`
}

// sourceFor 성공 상태가 어느 단계에서 확보되었는지를 나타내는 태그를 반환합니다.
func sourceFor(status SearchStatus) string {
	switch status {
	case StatusCacheHit:
		return "cache"
	case StatusFastPathSuccess:
		return "fastpath"
	case StatusSlowPathSuccess:
		return "slowpath"
	default:
		return ""
	}
}

// IsSuccess 상품 정보를 확보한 상태인지 여부를 반환합니다.
func (r *SearchResult) IsSuccess() bool {
	switch r.Status {
	case StatusCacheHit, StatusFastPathSuccess, StatusSlowPathSuccess:
		return true
	default:
		return false
	}
}

// ProductHint 패스트패스가 실패하더라도 슬로우패스에 전달할 수 있는 단서.
type ProductHint struct {
	PCode string
}

// ProductFetchError 상품 코드를 확보한 뒤 상세 조회 단계에서 실패한 경우의
// 에러입니다. 실패하더라도 상품 코드는 다음 단계의 힌트로 재사용됩니다.
type ProductFetchError struct {
	PCode  string
	Reason error
}

func (e *ProductFetchError) Error() string {
	return fmt.Sprintf("상품(pcode:%s) 상세 조회가 실패하였습니다. (error:%s)", e.PCode, e.Reason)
}

func (e *ProductFetchError) Unwrap() error {
	return e.Reason
}

// FailureRecord 검색 실패 시 기록되는 진단 정보.
type FailureRecord struct {
	Timestamp       time.Time `json:"timestamp"`
	OriginalQuery   string    `json:"original_query"`
	NormalizedQuery string    `json:"normalized_query"`
	Candidates      []string  `json:"candidates,omitempty"`
	ErrorMessage    string    `json:"error_message"`
	Status          string    `json:"status"`
	Category        string    `json:"category,omitempty"`
	Brand           string    `json:"brand,omitempty"`
	Model           string    `json:"model,omitempty"`
	AttemptedCount  int       `json:"attempted_count"`
}
