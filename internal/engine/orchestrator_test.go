package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperrors "github.com/darkkaiser/price-search-server/internal/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

//
// 테스트 협력 객체
//

type fakeCache struct {
	mu        sync.Mutex
	entries   map[string]*CacheEntry
	negatives map[string]string
	setCalls  int
	negCalls  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries:   make(map[string]*CacheEntry),
		negatives: make(map[string]string),
	}
}

func (c *fakeCache) Get(_ context.Context, key string, _ time.Duration) *CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[key]
}

func (c *fakeCache) Set(_ context.Context, key string, entry *CacheEntry, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	c.setCalls++
}

func (c *fakeCache) GetNegative(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg, ok := c.negatives[key]
	return msg, ok
}

func (c *fakeCache) SetNegative(_ context.Context, key string, message string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.negatives[key] = message
	c.negCalls++
}

func (c *fakeCache) Delete(_ context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

type fakeNormalizer struct{}

func (fakeNormalizer) Normalize(raw string) string { return strings.TrimSpace(raw) }
func (n fakeNormalizer) Candidates(raw string) []string {
	norm := n.Normalize(raw)
	if norm == "" {
		return nil
	}
	return []string{norm}
}
func (fakeNormalizer) DetectCategory(string) string { return "electronics" }
func (fakeNormalizer) ExtractBrand(normalized string) string {
	fields := strings.Fields(normalized)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
func (fakeNormalizer) ExtractModel(normalized string) string {
	fields := strings.Fields(normalized)
	if len(fields) < 2 {
		return ""
	}
	return strings.Join(fields[1:], " ")
}

type fakeFastPath struct {
	mu    sync.Mutex
	calls int
	fn    func() (*Product, error)
}

func (f *fakeFastPath) Search(_ context.Context, _ string, _ []string, _ time.Duration) (*Product, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn()
}

func (f *fakeFastPath) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSlowPath struct {
	mu       sync.Mutex
	calls    int
	lastHint *ProductHint
	fn       func() (*Product, error)
}

func (s *fakeSlowPath) Search(_ context.Context, _ []string, _ time.Duration, hint *ProductHint) (*Product, error) {
	s.mu.Lock()
	s.calls++
	s.lastHint = hint
	s.mu.Unlock()
	return s.fn()
}

func (s *fakeSlowPath) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []FailureRecord
}

func (r *fakeRecorder) RecordFailure(record FailureRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
}

func (r *fakeRecorder) all() []FailureRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]FailureRecord(nil), r.records...)
}

//
// 테스트 픽스처
//

type fixture struct {
	orchestrator *Orchestrator
	cache        *fakeCache
	fastPath     *fakeFastPath
	slowPath     *fakeSlowPath
	breaker      *CircuitBreaker
	recorder     *fakeRecorder
}

func newFixture(totalBudget time.Duration) *fixture {
	f := &fixture{
		cache:    newFakeCache(),
		fastPath: &fakeFastPath{fn: func() (*Product, error) { return nil, apperrors.New(apperrors.NotFound, "none") }},
		slowPath: &fakeSlowPath{fn: func() (*Product, error) { return nil, apperrors.New(apperrors.NotFound, "none") }},
		breaker:  NewCircuitBreaker(5, time.Minute),
		recorder: &fakeRecorder{},
	}

	f.orchestrator = NewOrchestrator(Options{
		TotalBudget: totalBudget,
		Stages: StageBudgets{
			Cache:        100 * time.Millisecond,
			FastPath:     time.Second,
			SlowPath:     2 * time.Second,
			MinRemaining: 10 * time.Millisecond,
		},
		PositiveTTL: time.Hour,
		NegativeTTL: time.Minute,
	}, Dependencies{
		Cache:      f.cache,
		Normalizer: fakeNormalizer{},
		FastPath:   f.fastPath,
		SlowPath:   f.slowPath,
		Breaker:    f.breaker,
		Recorder:   f.recorder,
	})
	return f
}

func testProduct() *Product {
	return &Product{
		PCode: "12345678",
		URL:   "https://prod.example.com/info/?pcode=12345678",
		Price: 1590000,
		Name:  "맥북 에어 M4",
	}
}

//
// 시나리오
//

func TestOrchestrator_EmptyQuery(t *testing.T) {
	f := newFixture(5 * time.Second)

	result := f.orchestrator.Search(context.Background(), "   ")

	assert.Equal(t, StatusNoResults, result.Status)
	assert.Zero(t, f.fastPath.callCount())
	assert.Zero(t, f.slowPath.callCount())
}

func TestOrchestrator_CacheHit(t *testing.T) {
	f := newFixture(5 * time.Second)
	f.cache.entries["맥북 에어 M4"] = &CacheEntry{
		ProductURL:  "https://prod.example.com/info/?pcode=12345678",
		Price:       1590000,
		ProductName: "맥북 에어 M4",
	}

	result := f.orchestrator.Search(context.Background(), "맥북 에어 M4")

	assert.Equal(t, StatusCacheHit, result.Status)
	assert.Equal(t, "cache", result.Source)
	assert.True(t, result.IsSuccess())
	require.NotNil(t, result.Product)
	assert.Equal(t, 1590000, result.Product.Price)

	// 캐시 히트 시에는 크롤링 경로가 실행되지 않는다
	assert.Zero(t, f.fastPath.callCount())
	assert.Zero(t, f.slowPath.callCount())
}

func TestOrchestrator_NegativeCacheSuppresses(t *testing.T) {
	f := newFixture(5 * time.Second)
	f.cache.negatives["단종된 상품"] = "검색 결과가 없습니다."

	result := f.orchestrator.Search(context.Background(), "단종된 상품")

	assert.Equal(t, StatusNoResults, result.Status)
	assert.Equal(t, "검색 결과가 없습니다.", result.Message)
	assert.Zero(t, f.fastPath.callCount())
	assert.Zero(t, f.slowPath.callCount())
}

func TestOrchestrator_FastPathSuccess(t *testing.T) {
	f := newFixture(5 * time.Second)
	f.fastPath.fn = func() (*Product, error) { return testProduct(), nil }

	result := f.orchestrator.Search(context.Background(), "맥북 에어 M4")

	assert.Equal(t, StatusFastPathSuccess, result.Status)
	assert.Equal(t, "fastpath", result.Source)
	require.NotNil(t, result.Product)
	assert.Zero(t, f.slowPath.callCount())

	// 성공 결과는 캐시에 저장된다
	assert.Equal(t, 1, f.cache.setCalls)
	cached := f.cache.entries["맥북 에어 M4"]
	require.NotNil(t, cached)
	assert.Equal(t, testProduct().URL, cached.ProductURL)

	// 성공 지표 반영
	assert.Equal(t, uint64(1), f.orchestrator.Metrics().FastPathHits)
}

func TestOrchestrator_FastPathNotFoundIsTerminal(t *testing.T) {
	f := newFixture(5 * time.Second)
	f.fastPath.fn = func() (*Product, error) {
		return nil, apperrors.New(apperrors.NotFound, "검색 결과가 없습니다.")
	}

	result := f.orchestrator.Search(context.Background(), "존재하지 않는 상품")

	// 결과 없음은 확정 응답이므로 슬로우패스로 진행하지 않는다
	assert.Equal(t, StatusNoResults, result.Status)
	assert.Zero(t, f.slowPath.callCount())

	// 결과 없음 마커가 기록된다
	assert.Equal(t, 1, f.cache.negCalls)
	_, ok := f.cache.negatives["존재하지 않는 상품"]
	assert.True(t, ok)

	// 실패 진단 정보가 기록된다
	records := f.recorder.all()
	require.Len(t, records, 1)
	assert.Equal(t, string(StatusNoResults), records[0].Status)
}

func TestOrchestrator_FastPathFailureFallsBackToSlowPath(t *testing.T) {
	f := newFixture(5 * time.Second)
	f.fastPath.fn = func() (*Product, error) {
		return nil, apperrors.New(apperrors.Timeout, "검색 요청이 시간 초과되었습니다.")
	}
	f.slowPath.fn = func() (*Product, error) { return testProduct(), nil }

	result := f.orchestrator.Search(context.Background(), "맥북 에어 M4")

	assert.Equal(t, StatusSlowPathSuccess, result.Status)
	assert.Equal(t, 1, f.fastPath.callCount())
	assert.Equal(t, 1, f.slowPath.callCount())

	// 패스트패스 실패는 차단기에 기록된다
	metrics := f.orchestrator.Metrics()
	assert.Equal(t, uint64(1), metrics.FastPathMisses)
	assert.Equal(t, uint64(1), metrics.SlowPathHits)
}

func TestOrchestrator_ProductHintHandoff(t *testing.T) {
	f := newFixture(5 * time.Second)
	f.fastPath.fn = func() (*Product, error) {
		return nil, &ProductFetchError{
			PCode:  "87654321",
			Reason: apperrors.New(apperrors.Timeout, "상세 조회가 시간 초과되었습니다."),
		}
	}
	f.slowPath.fn = func() (*Product, error) { return testProduct(), nil }

	f.orchestrator.Search(context.Background(), "맥북 에어 M4")

	// 패스트패스에서 확보한 상품 코드가 슬로우패스 힌트로 전달된다
	require.NotNil(t, f.slowPath.lastHint)
	assert.Equal(t, "87654321", f.slowPath.lastHint.PCode)
}

func TestOrchestrator_BreakerOpenSkipsFastPath(t *testing.T) {
	f := newFixture(5 * time.Second)
	for i := 0; i < 5; i++ {
		f.breaker.RecordFailure()
	}
	require.True(t, f.breaker.IsOpen())

	f.slowPath.fn = func() (*Product, error) { return testProduct(), nil }

	result := f.orchestrator.Search(context.Background(), "맥북 에어 M4")

	assert.Equal(t, StatusSlowPathSuccess, result.Status)
	assert.Zero(t, f.fastPath.callCount())
	assert.Equal(t, 1, f.slowPath.callCount())
}

func TestOrchestrator_BudgetExhaustedSkipsStages(t *testing.T) {
	f := newFixture(time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	result := f.orchestrator.Search(context.Background(), "맥북 에어 M4")

	assert.Equal(t, StatusBudgetExhausted, result.Status)
	assert.Zero(t, f.fastPath.callCount())
	assert.Zero(t, f.slowPath.callCount())

	records := f.recorder.all()
	require.Len(t, records, 1)
	assert.Equal(t, string(StatusBudgetExhausted), records[0].Status)
}

func TestOrchestrator_SlowPathErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected SearchStatus
	}{
		{
			name:     "시간 초과",
			err:      apperrors.New(apperrors.Timeout, "시간 초과"),
			expected: StatusTimeout,
		},
		{
			name:     "차단 감지",
			err:      apperrors.New(apperrors.Blocked, "접근 차단"),
			expected: StatusBlocked,
		},
		{
			name:     "해석 실패",
			err:      apperrors.New(apperrors.ParsingFailed, "해석 실패"),
			expected: StatusParseError,
		},
		{
			name:     "결과 없음",
			err:      apperrors.New(apperrors.NotFound, "결과 없음"),
			expected: StatusNoResults,
		},
		{
			name:     "백엔드 비활성화",
			err:      apperrors.New(apperrors.Unavailable, "슬로우패스가 비활성화되어 있습니다."),
			expected: StatusNoResults,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(5 * time.Second)
			f.fastPath.fn = func() (*Product, error) {
				return nil, apperrors.New(apperrors.ExecutionFailed, "실패")
			}
			f.slowPath.fn = func() (*Product, error) { return nil, tt.err }

			result := f.orchestrator.Search(context.Background(), "맥북 에어 M4")

			assert.Equal(t, tt.expected, result.Status)
			assert.False(t, result.IsSuccess())

			// 모든 실패는 진단 정보로 기록된다
			assert.NotEmpty(t, f.recorder.all())
		})
	}
}

func TestOrchestrator_SlowPathNoResultsNotNegativeCached(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"결과 없음", apperrors.New(apperrors.NotFound, "검색 결과가 없습니다.")},
		{"백엔드 비활성화", apperrors.New(apperrors.Unavailable, "슬로우패스가 비활성화되어 있습니다.")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(5 * time.Second)
			f.fastPath.fn = func() (*Product, error) {
				return nil, apperrors.New(apperrors.ExecutionFailed, "실패")
			}
			f.slowPath.fn = func() (*Product, error) { return nil, tt.err }

			result := f.orchestrator.Search(context.Background(), "맥북 에어 M4")

			assert.Equal(t, StatusNoResults, result.Status)

			// 결과 없음 마커는 패스트패스의 확정 응답에만 기록된다
			assert.Zero(t, f.cache.negCalls)
			_, ok := f.cache.negatives["맥북 에어 M4"]
			assert.False(t, ok)
		})
	}
}

func TestOrchestrator_ElapsedWithinBudget(t *testing.T) {
	total := 2 * time.Second
	f := newFixture(total)
	f.fastPath.fn = func() (*Product, error) { return testProduct(), nil }

	result := f.orchestrator.Search(context.Background(), "맥북 에어 M4")

	require.NotNil(t, result.Budget)
	assert.LessOrEqual(t, result.Elapsed, total)
	assert.False(t, result.Budget.Exhausted)

	// 체크포인트에 cache_miss가 기록되어 있어야 한다
	names := make([]string, 0, len(result.Budget.Checkpoints))
	for _, cp := range result.Budget.Checkpoints {
		names = append(names, cp.Name)
	}
	assert.Contains(t, names, "cache_miss")
	assert.Contains(t, names, "fastpath_success")
}

func TestOrchestrator_FailureRecordFields(t *testing.T) {
	f := newFixture(5 * time.Second)
	f.fastPath.fn = func() (*Product, error) {
		return nil, apperrors.New(apperrors.ExecutionFailed, "실패")
	}
	f.slowPath.fn = func() (*Product, error) {
		return nil, apperrors.New(apperrors.ParsingFailed, "해석 실패")
	}

	f.orchestrator.Search(context.Background(), "Apple 맥북 에어")

	records := f.recorder.all()
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "Apple 맥북 에어", record.OriginalQuery)
	assert.Equal(t, "Apple 맥북 에어", record.NormalizedQuery)
	assert.Equal(t, "Apple", record.Brand)
	assert.Equal(t, "맥북 에어", record.Model)
	assert.Equal(t, "electronics", record.Category)
	assert.Equal(t, 1, record.AttemptedCount)
	assert.NotEmpty(t, record.ErrorMessage)
	assert.False(t, record.Timestamp.IsZero())
}
