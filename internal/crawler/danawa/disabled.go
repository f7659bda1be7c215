package danawa

import (
	"context"
	"time"

	"github.com/darkkaiser/price-search-server/internal/engine"
	apperrors "github.com/darkkaiser/price-search-server/internal/pkg/errors"
)

// DisabledSlowPath 슬로우패스 백엔드를 비활성화했을 때 사용하는 실행기.
// 브라우저 없이 운영하는 환경에서는 패스트패스 실패가 곧 검색 실패가 됩니다.
type DisabledSlowPath struct{}

// Search 항상 NotFound 에러를 반환합니다. 오케스트레이터는 이를 정직한
// 결과 없음과 동일하게 처리합니다.
func (DisabledSlowPath) Search(context.Context, []string, time.Duration, *engine.ProductHint) (*engine.Product, error) {
	return nil, apperrors.New(apperrors.NotFound, "슬로우패스 백엔드가 비활성화되어 있습니다. (reason:disabled)")
}
