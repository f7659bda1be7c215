// Package config 애플리케이션 설정의 로드와 검증을 담당합니다.
//
// 설정은 세 단계로 병합됩니다 (뒤로 갈수록 우선순위가 높음):
//  1. 코드에 정의된 기본값
//  2. JSON 설정 파일 (price-search-server.json)
//  3. 환경 변수 (접두사 PRICESEARCH_, 이중 언더스코어(__)는 점(.)으로 변환)
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	apperrors "github.com/darkkaiser/price-search-server/internal/pkg/errors"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// AppName 애플리케이션의 전역 고유 식별자입니다.
	AppName string = "price-search-server"

	// DefaultFilename 애플리케이션 초기화 시 참조하는 기본 설정 파일명입니다.
	DefaultFilename = AppName + ".json"

	// envPrefix 환경 변수 오버라이드에 사용하는 접두사입니다.
	envPrefix = "PRICESEARCH_"
)

// 슬로우패스 백엔드 식별자
const (
	SlowPathBackendRod      = "rod"
	SlowPathBackendDisabled = "disabled"
)

var validate = validator.New()

// AppConfig 애플리케이션의 모든 설정을 관장하는 최상위 루트 구조체
type AppConfig struct {
	Debug    bool           `json:"debug"`
	Budget   BudgetConfig   `json:"budget"`
	Cache    CacheConfig    `json:"cache"`
	Breaker  BreakerConfig  `json:"breaker"`
	FastPath FastPathConfig `json:"fastpath"`
	SlowPath SlowPathConfig `json:"slowpath"`
	Upstream UpstreamConfig `json:"upstream"`
	Recorder RecorderConfig `json:"recorder"`
	API      APIConfig      `json:"api"`
}

// validate 설정 파일 로드 직후, 각 설정 항목의 정합성과 필수 값의 유효성을 검증합니다.
func (c *AppConfig) validate() error {
	if err := c.Budget.validate(); err != nil {
		return err
	}
	if err := c.Cache.validate(); err != nil {
		return err
	}
	if err := c.Breaker.validate(); err != nil {
		return err
	}
	if err := c.FastPath.validate(); err != nil {
		return err
	}
	if err := c.SlowPath.validate(); err != nil {
		return err
	}
	if err := c.Upstream.validate(); err != nil {
		return err
	}
	if err := c.API.validate(); err != nil {
		return err
	}
	return nil
}

// VerifyRecommendations 서비스 운영의 안정성을 위해 권장되는 설정 준수 여부를 진단합니다.
// 강제적인 에러를 발생시키지는 않으나, 잠재적 위험 요소에 대한 경고 메시지를 반환합니다.
func (c *AppConfig) VerifyRecommendations() []string {
	var warnings []string

	// 시스템 예약 포트(1024 미만) 사용 경고
	if c.API.ListenPort < 1024 {
		warnings = append(warnings, fmt.Sprintf("시스템 예약 포트(1-1023)를 사용하도록 설정되었습니다(port: %d). 서버 구동 시 관리자 권한이 필요할 수 있습니다", c.API.ListenPort))
	}

	// 브라우저 백엔드는 상주 메모리를 약 250MB 사용하므로 저사양 환경에서는 disabled 권장
	if c.SlowPath.Backend == SlowPathBackendRod && c.SlowPath.BrowserConcurrency > 4 {
		warnings = append(warnings, fmt.Sprintf("브라우저 동시 실행 수(%d)가 높게 설정되었습니다. 메모리가 제한된 환경에서는 슬로우패스 백엔드를 'disabled'로 전환하는 것을 고려하세요", c.SlowPath.BrowserConcurrency))
	}

	return warnings
}

// BudgetConfig 검색 한 건의 전체 시간 예산과 단계별 타임아웃을 정의하는 설정 구조체
//
// 불변 조건: 단계별 타임아웃의 합은 전체 예산을 초과할 수 없습니다.
type BudgetConfig struct {
	TotalS        float64 `json:"total_s" validate:"gt=0"`
	CacheS        float64 `json:"cache_timeout_s" validate:"gt=0"`
	FastPathS     float64 `json:"fastpath_timeout_s" validate:"gt=0"`
	SlowPathS     float64 `json:"slowpath_timeout_s" validate:"gt=0"`
	MinRemainingS float64 `json:"min_remaining_s" validate:"gt=0"`
}

func (c *BudgetConfig) validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.Wrap(err, apperrors.InvalidInput, "시간 예산(budget) 설정값은 모두 0보다 커야 합니다")
	}
	if sum := c.CacheS + c.FastPathS + c.SlowPathS; sum > c.TotalS {
		return apperrors.New(apperrors.InvalidInput, fmt.Sprintf("단계별 타임아웃의 합(%.1fs)이 전체 예산(%.1fs)을 초과합니다", sum, c.TotalS))
	}
	return nil
}

// Total 전체 예산을 time.Duration으로 반환합니다.
func (c *BudgetConfig) Total() time.Duration { return secondsToDuration(c.TotalS) }

// Cache 캐시 단계 타임아웃을 time.Duration으로 반환합니다.
func (c *BudgetConfig) Cache() time.Duration { return secondsToDuration(c.CacheS) }

// FastPath 패스트패스 단계 타임아웃을 time.Duration으로 반환합니다.
func (c *BudgetConfig) FastPath() time.Duration { return secondsToDuration(c.FastPathS) }

// SlowPath 슬로우패스 단계 타임아웃을 time.Duration으로 반환합니다.
func (c *BudgetConfig) SlowPath() time.Duration { return secondsToDuration(c.SlowPathS) }

// MinRemaining 예산 소진 판정 기준값을 time.Duration으로 반환합니다.
func (c *BudgetConfig) MinRemaining() time.Duration { return secondsToDuration(c.MinRemainingS) }

// CacheConfig Redis 캐시 백엔드 연결 및 TTL 정책을 정의하는 설정 구조체
type CacheConfig struct {
	Addr         string `json:"addr" validate:"required"`
	Password     string `json:"password"`
	DB           int    `json:"db" validate:"min=0"`
	KeyPrefix    string `json:"key_prefix"`
	TTLPositiveS int    `json:"ttl_positive_s" validate:"gt=0"`
	TTLNegativeS int    `json:"ttl_negative_s" validate:"gt=0"`
}

func (c *CacheConfig) validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.Wrap(err, apperrors.InvalidInput, "캐시(cache) 설정이 올바르지 않습니다")
	}
	return nil
}

// TTLPositive 정상 결과 캐시의 TTL을 반환합니다.
func (c *CacheConfig) TTLPositive() time.Duration { return time.Duration(c.TTLPositiveS) * time.Second }

// TTLNegative 부정 캐시(검색 실패 마커)의 TTL을 반환합니다.
func (c *CacheConfig) TTLNegative() time.Duration { return time.Duration(c.TTLNegativeS) * time.Second }

// BreakerConfig 패스트패스 서킷브레이커의 동작 기준을 정의하는 설정 구조체
type BreakerConfig struct {
	FailThreshold int     `json:"fail_threshold" validate:"gt=0"`
	OpenDurationS float64 `json:"open_duration_s" validate:"gt=0"`
}

func (c *BreakerConfig) validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.Wrap(err, apperrors.InvalidInput, "서킷브레이커(breaker) 설정이 올바르지 않습니다")
	}
	return nil
}

// OpenDuration 차단 유지 시간을 time.Duration으로 반환합니다.
func (c *BreakerConfig) OpenDuration() time.Duration { return secondsToDuration(c.OpenDurationS) }

// FastPathConfig HTTP 기반 패스트패스 실행기의 동작 파라미터를 정의하는 설정 구조체
type FastPathConfig struct {
	MinHTMLLength      int     `json:"min_html_length" validate:"gt=0"`
	TrustLargeHTMLSize int     `json:"trust_large_html_size" validate:"gt=0"`
	RequestTimeoutS    float64 `json:"request_timeout_s" validate:"gt=0"`
	ProductTimeoutS    float64 `json:"product_timeout_s" validate:"gt=0"`
	MaxCandidates      int     `json:"max_candidates" validate:"min=1,max=8"`
	MaxProducts        int     `json:"max_products" validate:"min=1,max=12"`
}

func (c *FastPathConfig) validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.Wrap(err, apperrors.InvalidInput, "패스트패스(fastpath) 설정이 올바르지 않습니다")
	}
	if c.MinHTMLLength >= c.TrustLargeHTMLSize {
		return apperrors.New(apperrors.InvalidInput, "최소 HTML 길이(min_html_length)는 신뢰 임계값(trust_large_html_size)보다 작아야 합니다")
	}
	return nil
}

// RequestTimeout 검색 요청 1건의 타임아웃을 반환합니다.
func (c *FastPathConfig) RequestTimeout() time.Duration { return secondsToDuration(c.RequestTimeoutS) }

// ProductTimeout 상품 상세 요청 1건의 타임아웃을 반환합니다.
func (c *FastPathConfig) ProductTimeout() time.Duration { return secondsToDuration(c.ProductTimeoutS) }

// SlowPathConfig 헤드리스 브라우저 기반 슬로우패스 실행기의 동작 파라미터를 정의하는 설정 구조체
type SlowPathConfig struct {
	Backend            string  `json:"backend" validate:"oneof=rod disabled"`
	BrowserConcurrency int     `json:"browser_concurrency" validate:"min=1"`
	Headless           bool    `json:"headless"`
	RateLimitMinS      float64 `json:"rate_limit_min_s" validate:"min=0"`
	RateLimitMaxS      float64 `json:"rate_limit_max_s" validate:"min=0"`
	SemaphoreCushionS  float64 `json:"semaphore_cushion_s" validate:"gt=0"`
}

func (c *SlowPathConfig) validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.Wrap(err, apperrors.InvalidInput, "슬로우패스(slowpath) 설정이 올바르지 않습니다 (backend: rod | disabled)")
	}
	if c.RateLimitMinS > c.RateLimitMaxS {
		return apperrors.New(apperrors.InvalidInput, "요청 간격(rate_limit)의 최소값이 최대값보다 큽니다")
	}
	// 세마포어 대기 시간이 단계 타임아웃을 크게 벗어나면 전체 예산이 깨지므로 쿠션을 제한한다.
	if c.SemaphoreCushionS > 2.0 {
		return apperrors.New(apperrors.InvalidInput, "세마포어 획득 쿠션(semaphore_cushion_s)은 2초를 초과할 수 없습니다")
	}
	return nil
}

// RateLimitMin 상세 페이지 요청 간 최소 대기 시간을 반환합니다.
func (c *SlowPathConfig) RateLimitMin() time.Duration { return secondsToDuration(c.RateLimitMinS) }

// RateLimitMax 상세 페이지 요청 간 최대 대기 시간을 반환합니다.
func (c *SlowPathConfig) RateLimitMax() time.Duration { return secondsToDuration(c.RateLimitMaxS) }

// SemaphoreCushion 세마포어 획득 대기 시간의 추가 여유분을 반환합니다.
func (c *SlowPathConfig) SemaphoreCushion() time.Duration {
	return secondsToDuration(c.SemaphoreCushionS)
}

// UpstreamConfig 업스트림 가격비교 사이트의 접속 정보를 정의하는 설정 구조체
type UpstreamConfig struct {
	BaseURL string `json:"base_url" validate:"required,url"`
}

func (c *UpstreamConfig) validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.Wrap(err, apperrors.InvalidInput, "업스트림(upstream) base_url 설정이 올바르지 않습니다")
	}
	return nil
}

// RecorderConfig 검색 실패 기록 사이트의 저장 정책을 정의하는 설정 구조체
type RecorderConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`
}

// APIConfig REST API 서버의 포트 및 CORS 정책을 정의하는 설정 구조체
type APIConfig struct {
	ListenPort int        `json:"listen_port" validate:"min=1,max=65535"`
	CORS       CORSConfig `json:"cors"`
}

func (c *APIConfig) validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.New(apperrors.InvalidInput, "API 서버 포트(listen_port)는 1에서 65535 사이의 값이어야 합니다")
	}
	if len(c.CORS.AllowOrigins) == 0 {
		return apperrors.New(apperrors.InvalidInput, "CORS 허용 도메인(allow_origins) 목록이 비어있습니다")
	}
	return nil
}

// CORSConfig 웹 브라우저의 교차 출처 리소스 공유(CORS) 정책을 설정하는 구조체
type CORSConfig struct {
	AllowOrigins []string `json:"allow_origins"`
}

// Load 기본 설정 파일을 읽어 애플리케이션 설정을 로드합니다.
// 설정 파일이 존재하지 않으면 기본값과 환경 변수만으로 구성합니다.
func Load() (*AppConfig, error) {
	return LoadWithFile(DefaultFilename)
}

// LoadWithFile 지정된 경로의 설정 파일을 읽어 AppConfig 객체를 생성합니다.
func LoadWithFile(filename string) (*AppConfig, error) {
	k := koanf.New(".")

	// 1. 기본값 로드 (가장 낮은 우선순위)
	err := k.Load(confmap.Provider(map[string]interface{}{
		"debug": false,

		"budget.total_s":            12.0,
		"budget.cache_timeout_s":    0.5,
		"budget.fastpath_timeout_s": 4.0,
		"budget.slowpath_timeout_s": 6.5,
		"budget.min_remaining_s":    1.0,

		"cache.addr":           "127.0.0.1:6379",
		"cache.password":       "",
		"cache.db":             0,
		"cache.key_prefix":     "price-search",
		"cache.ttl_positive_s": 21600,
		"cache.ttl_negative_s": 60,

		"breaker.fail_threshold":  5,
		"breaker.open_duration_s": 60.0,

		"fastpath.min_html_length":       5000,
		"fastpath.trust_large_html_size": 50000,
		"fastpath.request_timeout_s":     4.0,
		"fastpath.product_timeout_s":     6.0,
		"fastpath.max_candidates":        3,
		"fastpath.max_products":          4,

		"slowpath.backend":             SlowPathBackendRod,
		"slowpath.browser_concurrency": 2,
		"slowpath.headless":            true,
		"slowpath.rate_limit_min_s":    0.5,
		"slowpath.rate_limit_max_s":    1.5,
		"slowpath.semaphore_cushion_s": 2.0,

		"upstream.base_url": "https://prod.danawa.com",

		"recorder.enabled": true,
		"recorder.dir":     "data",

		"api.listen_port":        8080,
		"api.cors.allow_origins": []string{"*"},
	}, "."), nil)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "애플리케이션 기본 설정 로드에 실패했습니다")
	}

	// 2. JSON 설정 파일 로드 (기본값 덮어쓰기)
	// 파일이 없는 경우는 에러가 아니며, 기본값과 환경 변수만으로 동작합니다.
	if err := k.Load(file.Provider(filename), json.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("설정 파일 로드 중 오류가 발생했습니다: '%s'", filename))
		}
	}

	// 3. 환경 변수 로드 (최우선 순위, JSON 설정 덮어쓰기)
	// 접두사: PRICESEARCH_
	// 구분자: 이중 언더스코어(__)를 점(.)으로 변환 (계층 구조 표현)
	// 예: PRICESEARCH_BUDGET__TOTAL_S -> budget.total_s
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "환경 변수 로드에 실패했습니다")
	}

	// 4. 구조체 언마샬링 (Strict Validation 적용)
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			ErrorUnused:      true, // 파일에 존재하지만 구조체에 없는 필드가 있을 경우 에러를 발생시킴
			WeaklyTypedInput: true,
		},
	}
	var appConfig AppConfig
	if err := k.UnmarshalWithConf("", &appConfig, unmarshalConf); err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "설정 데이터를 애플리케이션 구조체로 변환하는데 실패했습니다")
	}

	// 5. 유효성 검사 수행 (정합성 체크)
	if err := appConfig.validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.InvalidInput, fmt.Sprintf("설정('%s')의 유효성 검증에 실패했습니다", filename))
	}

	return &appConfig, nil
}

// secondsToDuration float 초 단위를 time.Duration으로 변환합니다.
func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
