package api

import (
	"context"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/labstack/echo/v4"

	"github.com/darkkaiser/price-search-server/internal/engine"
	"github.com/darkkaiser/price-search-server/internal/pkg/version"
)

// Searcher 검색 파이프라인의 진입점.
type Searcher interface {
	Search(ctx context.Context, query string) *engine.SearchResult
	Metrics() engine.Metrics
}

// CachePinger 캐시 백엔드의 연결 상태를 확인합니다.
type CachePinger interface {
	Ping(ctx context.Context) error
}

// Handler 가격 검색 API의 요청 핸들러입니다.
type Handler struct {
	searcher Searcher
	cache    CachePinger
}

// NewHandler Handler 인스턴스를 생성합니다.
func NewHandler(searcher Searcher, cache CachePinger) *Handler {
	return &Handler{
		searcher: searcher,
		cache:    cache,
	}
}

// SearchRequest 가격 검색 요청 본문.
type SearchRequest struct {
	Query string `json:"query" validate:"required,max=500"`
}

// injectionMarkers 검색어에 허용하지 않는 스크립트/SQL 구문 조각
var injectionMarkers = []string{
	"<script", "javascript:", "union select", "drop table", "insert into", "delete from",
}

// Search POST /api/v1/price/search
//
// 검색어를 받아 파이프라인을 실행하고 결과를 반환합니다.
// HTTP 상태 코드는 검색 종료 상태에 따라 결정됩니다.
func (h *Handler) Search(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "요청 본문이 유효하지 않습니다.")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "query는 1자 이상 500자 이하여야 합니다.")
	}
	if err := validateQueryText(req.Query); err != nil {
		return err
	}

	result := h.searcher.Search(c.Request().Context(), req.Query)
	return c.JSON(httpStatusFor(result.Status), result)
}

// HealthResponse GET /health 응답 본문.
type HealthResponse struct {
	Status  string         `json:"status"`
	Version string         `json:"version"`
	Cache   string         `json:"cache"`
	Metrics engine.Metrics `json:"metrics"`
}

// Health GET /health
//
// 서버 상태와 캐시 연결 여부, 파이프라인 누적 지표를 반환합니다.
// 캐시 장애는 파이프라인을 중단시키지 않으므로 상태 코드는 항상 200입니다.
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second)
	defer cancel()

	cacheStatus := "ok"
	if err := h.cache.Ping(ctx); err != nil {
		cacheStatus = "unavailable"
	}

	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.Get().Version,
		Cache:   cacheStatus,
		Metrics: h.searcher.Metrics(),
	})
}

// validateQueryText 검색어에 제어 문자나 인젝션 구문이 없는지 검사합니다.
func validateQueryText(query string) error {
	for _, r := range query {
		if unicode.IsControl(r) {
			return echo.NewHTTPError(http.StatusBadRequest, "query에 제어 문자를 포함할 수 없습니다.")
		}
	}

	lower := strings.ToLower(query)
	for _, marker := range injectionMarkers {
		if strings.Contains(lower, marker) {
			return echo.NewHTTPError(http.StatusBadRequest, "query에 허용되지 않는 구문이 포함되어 있습니다.")
		}
	}
	return nil
}

// httpStatusFor 검색 종료 상태를 HTTP 상태 코드로 변환합니다.
func httpStatusFor(status engine.SearchStatus) int {
	switch status {
	case engine.StatusCacheHit, engine.StatusFastPathSuccess, engine.StatusSlowPathSuccess:
		return http.StatusOK
	case engine.StatusNoResults:
		return http.StatusNotFound
	case engine.StatusTimeout, engine.StatusBudgetExhausted:
		return http.StatusGatewayTimeout
	case engine.StatusBlocked, engine.StatusParseError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
