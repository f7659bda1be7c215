package engine

import (
	"sync"
	"time"
)

// Metrics 파이프라인 단계별 누적 지표.
type Metrics struct {
	FastPathHits      uint64 `json:"fastpath_hits"`
	FastPathMisses    uint64 `json:"fastpath_misses"`
	SlowPathHits      uint64 `json:"slowpath_hits"`
	SlowPathFailures  uint64 `json:"slowpath_failures"`
	BreakerOpenCount  uint64 `json:"breaker_open_count"`
	BreakerOpen       bool   `json:"breaker_open"`
	ConsecutiveErrors int    `json:"consecutive_errors"`
}

// CircuitBreaker 패스트패스의 연속 실패를 감지하여 일정 시간 차단합니다.
//
// 연속 실패가 임계값에 도달하면 열림 상태가 되어 IsOpen이 true를 반환하고,
// 열림 유지 시간이 지나면 자동으로 닫힙니다. 성공이 한 번이라도 기록되면
// 실패 카운터는 초기화됩니다. 동시에 여러 고루틴에서 접근해도 안전합니다.
type CircuitBreaker struct {
	failThreshold int
	openDuration  time.Duration

	mu           sync.Mutex
	failures     int
	openedAt     time.Time
	open         bool
	metrics      Metrics
	nowFunc      func() time.Time
}

// NewCircuitBreaker 실패 임계값과 열림 유지 시간으로 차단기를 생성합니다.
func NewCircuitBreaker(failThreshold int, openDuration time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failThreshold: failThreshold,
		openDuration:  openDuration,
		nowFunc:       time.Now,
	}
}

// IsOpen 차단기가 열림 상태인지 확인합니다.
// 열림 유지 시간이 지난 경우 자동으로 닫고 false를 반환합니다.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.open {
		return false
	}
	if cb.nowFunc().Sub(cb.openedAt) >= cb.openDuration {
		cb.open = false
		cb.failures = 0
		cb.metrics.BreakerOpen = false
		cb.metrics.ConsecutiveErrors = 0
		return false
	}
	return true
}

// RecordSuccess 패스트패스 성공을 기록합니다. 실패 카운터를 초기화합니다.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.open = false
	cb.metrics.FastPathHits++
	cb.metrics.BreakerOpen = false
	cb.metrics.ConsecutiveErrors = 0
}

// RecordFailure 패스트패스 실패를 기록합니다.
// 연속 실패가 임계값에 도달하면 차단기를 엽니다.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.metrics.FastPathMisses++
	cb.metrics.ConsecutiveErrors = cb.failures

	if cb.failures >= cb.failThreshold && !cb.open {
		cb.open = true
		cb.openedAt = cb.nowFunc()
		cb.metrics.BreakerOpen = true
		cb.metrics.BreakerOpenCount++
	}
}

// RecordSlowPathSuccess 슬로우패스 성공을 기록합니다.
func (cb *CircuitBreaker) RecordSlowPathSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.metrics.SlowPathHits++
}

// RecordSlowPathFailure 슬로우패스 실패를 기록합니다.
// 슬로우패스의 실패는 차단기 상태에 영향을 주지 않습니다.
func (cb *CircuitBreaker) RecordSlowPathFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.metrics.SlowPathFailures++
}

// Snapshot 현재 지표의 사본을 반환합니다.
func (cb *CircuitBreaker) Snapshot() Metrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	snapshot := cb.metrics
	snapshot.BreakerOpen = cb.open && cb.nowFunc().Sub(cb.openedAt) < cb.openDuration
	return snapshot
}
