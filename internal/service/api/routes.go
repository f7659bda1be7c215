package api

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes API 서비스의 라우트를 등록합니다.
//
//   - GET  /health               서비스 상태 확인 (인증 불필요)
//   - POST /api/v1/price/search  가격 검색
func RegisterRoutes(e *echo.Echo, h *Handler) {
	e.GET("/health", h.Health)

	v1 := e.Group("/api/v1")
	v1.POST("/price/search", h.Search)
}
