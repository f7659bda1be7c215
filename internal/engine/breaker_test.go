package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	assert.False(t, cb.IsOpen())

	cb.RecordFailure()
	assert.True(t, cb.IsOpen())

	metrics := cb.Snapshot()
	assert.True(t, metrics.BreakerOpen)
	assert.Equal(t, uint64(1), metrics.BreakerOpenCount)
	assert.Equal(t, uint64(3), metrics.FastPathMisses)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Minute)

	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()

	// 성공 이후에는 실패 카운터가 초기화되어 다시 임계값만큼 실패해야 열린다
	cb.RecordFailure()
	cb.RecordFailure()
	assert.False(t, cb.IsOpen())

	cb.RecordFailure()
	assert.True(t, cb.IsOpen())
}

func TestCircuitBreaker_AutoClosesAfterOpenDuration(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)

	now := time.Now()
	cb.nowFunc = func() time.Time { return now }

	cb.RecordFailure()
	assert.True(t, cb.IsOpen())

	// 열림 유지 시간 경과 후에는 자동으로 닫힌다
	cb.nowFunc = func() time.Time { return now.Add(time.Minute + time.Second) }
	assert.False(t, cb.IsOpen())
	assert.False(t, cb.Snapshot().BreakerOpen)

	// 닫힌 후에는 실패 카운터도 초기화된 상태여야 한다
	assert.Equal(t, 0, cb.Snapshot().ConsecutiveErrors)
}

func TestCircuitBreaker_SlowPathMetrics(t *testing.T) {
	cb := NewCircuitBreaker(5, time.Minute)

	cb.RecordSlowPathSuccess()
	cb.RecordSlowPathSuccess()
	cb.RecordSlowPathFailure()

	metrics := cb.Snapshot()
	assert.Equal(t, uint64(2), metrics.SlowPathHits)
	assert.Equal(t, uint64(1), metrics.SlowPathFailures)

	// 슬로우패스 실패는 차단기를 열지 않는다
	assert.False(t, cb.IsOpen())
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	cb := NewCircuitBreaker(100, time.Minute)

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				cb.RecordFailure()
				cb.IsOpen()
				cb.Snapshot()
			}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}

	assert.Equal(t, uint64(200), cb.Snapshot().FastPathMisses)
}
