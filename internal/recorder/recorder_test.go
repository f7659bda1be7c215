package recorder

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/darkkaiser/price-search-server/internal/engine"
)

func TestJSONLRecorder_RecordFailure(t *testing.T) {
	dir := t.TempDir()

	r, err := NewJSONLRecorder(dir)
	require.NoError(t, err)

	r.RecordFailure(engine.FailureRecord{
		Timestamp:       time.Now(),
		OriginalQuery:   "맥북 에어 M4",
		NormalizedQuery: "맥북 에어 M4",
		Candidates:      []string{"맥북 에어 M4", "맥북 에어"},
		ErrorMessage:    "검색 요청이 시간 초과되었습니다.",
		Status:          "timeout",
		Category:        "electronics",
		Brand:           "맥북",
		Model:           "에어 M4",
		AttemptedCount:  2,
	})
	r.RecordFailure(engine.FailureRecord{
		Timestamp:     time.Now(),
		OriginalQuery: "신라면",
		ErrorMessage:  "검색 결과가 없습니다.",
		Status:        "no_results",
	})
	require.NoError(t, r.Close())

	data, err := os.ReadFile(filepath.Join(dir, failureFileName))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	first := gjson.Parse(lines[0])
	assert.Equal(t, "맥북 에어 M4", first.Get("original_query").String())
	assert.Equal(t, "timeout", first.Get("status").String())
	assert.Equal(t, int64(2), first.Get("attempted_count").Int())
	assert.Len(t, first.Get("candidates").Array(), 2)

	second := gjson.Parse(lines[1])
	assert.Equal(t, "신라면", second.Get("original_query").String())
	assert.Equal(t, "no_results", second.Get("status").String())
}

func TestJSONLRecorder_ConcurrentWrites(t *testing.T) {
	dir := t.TempDir()

	r, err := NewJSONLRecorder(dir)
	require.NoError(t, err)

	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 25; j++ {
				r.RecordFailure(engine.FailureRecord{
					Timestamp:     time.Now(),
					OriginalQuery: "동시 기록 테스트",
					Status:        "timeout",
				})
			}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	require.NoError(t, r.Close())

	data, err := os.ReadFile(filepath.Join(dir, failureFileName))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 100)

	// 동시 기록에도 모든 줄이 온전한 JSON이어야 한다
	for _, line := range lines {
		assert.True(t, gjson.Valid(line))
	}
}

func TestNewJSONLRecorder_InvalidDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	// 일반 파일이 자리를 차지하고 있으면 디렉토리 생성이 실패해야 한다
	_, err := NewJSONLRecorder(filepath.Join(file, "sub"))
	assert.Error(t, err)
}

func TestNopRecorder(t *testing.T) {
	assert.NotPanics(t, func() {
		NopRecorder{}.RecordFailure(engine.FailureRecord{OriginalQuery: "무시됨"})
	})
}
