package danawa

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/darkkaiser/price-search-server/internal/pkg/errors"
)

func testSlowPathConfig() SlowPathConfig {
	return SlowPathConfig{
		Concurrency:      1,
		RateLimitMin:     time.Millisecond,
		RateLimitMax:     2 * time.Millisecond,
		SemaphoreCushion: 10 * time.Millisecond,
	}
}

func TestSlowPath_SemaphoreAcquireTimeout(t *testing.T) {
	s := NewSlowPath(NewBrowser(true), NewURLBuilder("https://prod.example.com"), testSlowPathConfig())

	// 유일한 슬롯을 선점하여 다음 요청이 대기하도록 만든다
	require.NoError(t, s.sem.Acquire(context.Background(), 1))
	defer s.sem.Release(1)

	_, err := s.Search(context.Background(), []string{"맥북"}, 20*time.Millisecond, nil)
	require.Error(t, err)

	// 브라우저가 모두 사용 중이면 결과 없음으로 처리된다
	assert.True(t, apperrors.Is(err, apperrors.NotFound))
	assert.Contains(t, err.Error(), "busy")
}

func TestSlowPath_SleepJitter(t *testing.T) {
	s := NewSlowPath(NewBrowser(true), NewURLBuilder("https://prod.example.com"), SlowPathConfig{
		Concurrency:  1,
		RateLimitMin: 50 * time.Millisecond,
		RateLimitMax: 60 * time.Millisecond,
	})

	t.Run("지연 범위 준수", func(t *testing.T) {
		start := time.Now()
		s.sleepJitter(context.Background())
		elapsed := time.Since(start)

		assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
		assert.Less(t, elapsed, 200*time.Millisecond)
	})

	t.Run("취소된 컨텍스트는 즉시 반환", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		start := time.Now()
		s.sleepJitter(ctx)
		assert.Less(t, time.Since(start), 20*time.Millisecond)
	})
}

func TestDisabledSlowPath(t *testing.T) {
	_, err := DisabledSlowPath{}.Search(context.Background(), []string{"맥북"}, time.Second, nil)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.NotFound))
}
