package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/darkkaiser/price-search-server/internal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfigFile 테스트용 설정 파일을 생성하고 경로를 반환합니다.
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFilename)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadWithFile_Defaults(t *testing.T) {
	// 설정 파일이 없어도 기본값만으로 로드에 성공해야 한다.
	cfg, err := LoadWithFile(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.False(t, cfg.Debug)
	assert.Equal(t, 12.0, cfg.Budget.TotalS)
	assert.Equal(t, 500*time.Millisecond, cfg.Budget.Cache())
	assert.Equal(t, 4*time.Second, cfg.Budget.FastPath())
	assert.Equal(t, 6500*time.Millisecond, cfg.Budget.SlowPath())
	assert.Equal(t, time.Second, cfg.Budget.MinRemaining())

	assert.Equal(t, "127.0.0.1:6379", cfg.Cache.Addr)
	assert.Equal(t, 6*time.Hour, cfg.Cache.TTLPositive())
	assert.Equal(t, time.Minute, cfg.Cache.TTLNegative())

	assert.Equal(t, 5, cfg.Breaker.FailThreshold)
	assert.Equal(t, time.Minute, cfg.Breaker.OpenDuration())

	assert.Equal(t, 5000, cfg.FastPath.MinHTMLLength)
	assert.Equal(t, 50000, cfg.FastPath.TrustLargeHTMLSize)
	assert.Equal(t, 3, cfg.FastPath.MaxCandidates)
	assert.Equal(t, 4, cfg.FastPath.MaxProducts)

	assert.Equal(t, SlowPathBackendRod, cfg.SlowPath.Backend)
	assert.Equal(t, 2, cfg.SlowPath.BrowserConcurrency)
	assert.Equal(t, 500*time.Millisecond, cfg.SlowPath.RateLimitMin())
	assert.Equal(t, 1500*time.Millisecond, cfg.SlowPath.RateLimitMax())

	assert.Equal(t, "https://prod.danawa.com", cfg.Upstream.BaseURL)
	assert.Equal(t, 8080, cfg.API.ListenPort)
	assert.Equal(t, []string{"*"}, cfg.API.CORS.AllowOrigins)
}

func TestLoadWithFile_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `{
		"debug": true,
		"budget": {"total_s": 10.0, "fastpath_timeout_s": 3.0},
		"slowpath": {"backend": "disabled"},
		"api": {"listen_port": 9090}
	}`)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, 10.0, cfg.Budget.TotalS)
	assert.Equal(t, 3.0, cfg.Budget.FastPathS)
	assert.Equal(t, 6.5, cfg.Budget.SlowPathS) // 파일에 없는 값은 기본값 유지
	assert.Equal(t, SlowPathBackendDisabled, cfg.SlowPath.Backend)
	assert.Equal(t, 9090, cfg.API.ListenPort)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `{"api": {"listen_port": 9090}}`)

	t.Setenv("PRICESEARCH_API__LISTEN_PORT", "7070")
	t.Setenv("PRICESEARCH_CACHE__ADDR", "redis.internal:6379")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.API.ListenPort)
	assert.Equal(t, "redis.internal:6379", cfg.Cache.Addr)
}

func TestLoadWithFile_UnknownFieldRejected(t *testing.T) {
	path := writeConfigFile(t, `{"no_such_field": 1}`)

	_, err := LoadWithFile(path)
	assert.Error(t, err)
}

func TestLoadWithFile_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			"단계 타임아웃의 합이 전체 예산 초과",
			`{"budget": {"total_s": 5.0, "cache_timeout_s": 0.5, "fastpath_timeout_s": 4.0, "slowpath_timeout_s": 6.5}}`,
		},
		{
			"잘못된 슬로우패스 백엔드",
			`{"slowpath": {"backend": "playwright"}}`,
		},
		{
			"rate_limit 최소값이 최대값보다 큼",
			`{"slowpath": {"rate_limit_min_s": 2.0, "rate_limit_max_s": 1.0}}`,
		},
		{
			"세마포어 쿠션이 2초 초과",
			`{"slowpath": {"semaphore_cushion_s": 5.0}}`,
		},
		{
			"포트 범위 초과",
			`{"api": {"listen_port": 70000}}`,
		},
		{
			"잘못된 업스트림 URL",
			`{"upstream": {"base_url": "not-a-url"}}`,
		},
		{
			"min_html_length가 신뢰 임계값 이상",
			`{"fastpath": {"min_html_length": 60000}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			_, err := LoadWithFile(path)
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, apperrors.InvalidInput), "got: %v", err)
		})
	}
}

func TestVerifyRecommendations(t *testing.T) {
	path := writeConfigFile(t, `{"api": {"listen_port": 443}, "slowpath": {"browser_concurrency": 8}}`)

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	warnings := cfg.VerifyRecommendations()
	assert.Len(t, warnings, 2)
}
