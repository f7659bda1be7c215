package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/darkkaiser/price-search-server/internal/cache"
	"github.com/darkkaiser/price-search-server/internal/config"
	"github.com/darkkaiser/price-search-server/internal/crawler/danawa"
	"github.com/darkkaiser/price-search-server/internal/crawler/fetch"
	"github.com/darkkaiser/price-search-server/internal/engine"
	"github.com/darkkaiser/price-search-server/internal/normalize"
	"github.com/darkkaiser/price-search-server/internal/pkg/version"
	"github.com/darkkaiser/price-search-server/internal/recorder"
	"github.com/darkkaiser/price-search-server/internal/service/api"
	applog "github.com/darkkaiser/price-search-server/pkg/log"
)

const (
	banner = `
  ____   _               ____                       _
 |  _ \ (_)  ___  ___   / ___|   ___   __ _  _ __  ___ | |__
 | |_) || | / __|/ _ \  \___ \  / _ \ / _' || '__|/ __|| '_ \
 |  __/ | || (__|  __/   ___) ||  __/| (_| || |  | (__ | | | |
 |_|    |_| \___|\___|  |____/  \___| \__,_||_|   \___||_| |_|
                                                              %s
--------------------------------------------------------------------------------
`
)

func main() {
	// 1. 환경설정 로드 (로그 설정에 필요하므로 가장 먼저 수행한다)
	appConfig, err := config.Load()
	if err != nil {
		// 로거 초기화 전이므로 표준 에러에 출력
		fmt.Fprintf(os.Stderr, "[FATAL] 환경설정 로드 실패: %v\n", err)
		os.Exit(1)
	}

	// 2. 로그 시스템 초기화
	var logOpts applog.Options
	if appConfig.Debug {
		logOpts = applog.NewDevelopmentOptions(config.AppName)
	} else {
		logOpts = applog.NewProductionOptions(config.AppName)
	}

	appLogCloser, err := applog.Setup(logOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FATAL] 로그 시스템 초기화 실패. 서버 구동을 중단합니다. (Cause: %v)\n", err)
		os.Exit(1)
	}
	defer appLogCloser.Close()

	applog.SetDebugMode(appConfig.Debug)

	buildInfo := version.Get()
	fmt.Printf(banner, buildInfo.Version)

	applog.WithComponentAndFields("main", log.Fields{
		"version": buildInfo.String(),
		"env":     map[bool]string{true: "development", false: "production"}[appConfig.Debug],
	}).Info("서버 초기화 시작")

	for _, warning := range appConfig.VerifyRecommendations() {
		log.Warn(warning)
	}

	// 3. 검색 파이프라인 구성 요소를 생성한다.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     appConfig.Cache.Addr,
		Password: appConfig.Cache.Password,
		DB:       appConfig.Cache.DB,
	})
	defer redisClient.Close()

	searchCache := cache.NewRedisCache(redisClient, appConfig.Cache.KeyPrefix)
	if err := searchCache.Ping(context.Background()); err != nil {
		// 캐시 장애는 파이프라인을 중단시키지 않으므로 경고만 남기고 계속 진행한다.
		log.Warnf("Redis 서버 연결이 실패하였습니다. 캐시 없이 서버를 시작합니다. (addr:%s, error:%s)", appConfig.Cache.Addr, err)
	}

	normalizer := normalize.New()

	urls := danawa.NewURLBuilder(appConfig.Upstream.BaseURL)

	fetcher := fetch.NewHTTPFetcher(appConfig.FastPath.RequestTimeout(), appConfig.Upstream.BaseURL)
	fastPath := danawa.NewFastPath(fetcher, urls, danawa.FastPathConfig{
		MinHTMLLength:      appConfig.FastPath.MinHTMLLength,
		TrustLargeHTMLSize: appConfig.FastPath.TrustLargeHTMLSize,
		RequestTimeout:     appConfig.FastPath.RequestTimeout(),
		ProductTimeout:     appConfig.FastPath.ProductTimeout(),
		MaxCandidates:      appConfig.FastPath.MaxCandidates,
		MaxProducts:        appConfig.FastPath.MaxProducts,
	})

	var slowPath engine.SlowPathExecutor
	var browser *danawa.Browser
	switch appConfig.SlowPath.Backend {
	case config.SlowPathBackendRod:
		browser = danawa.NewBrowser(appConfig.SlowPath.Headless)
		defer browser.Close()

		slowPath = danawa.NewSlowPath(browser, urls, danawa.SlowPathConfig{
			Concurrency:      int64(appConfig.SlowPath.BrowserConcurrency),
			RateLimitMin:     appConfig.SlowPath.RateLimitMin(),
			RateLimitMax:     appConfig.SlowPath.RateLimitMax(),
			SemaphoreCushion: appConfig.SlowPath.SemaphoreCushion(),
		})

	default:
		log.Warn("슬로우패스 백엔드가 비활성화되었습니다. 패스트패스 실패 시 검색이 종료됩니다.")
		slowPath = danawa.DisabledSlowPath{}
	}

	var failureRecorder engine.FailureRecorder = recorder.NopRecorder{}
	if appConfig.Recorder.Enabled {
		jsonlRecorder, err := recorder.NewJSONLRecorder(appConfig.Recorder.Dir)
		if err != nil {
			log.Fatalf("검색 실패 기록 파일 초기화가 실패하였습니다. (dir:%s, error:%s)", appConfig.Recorder.Dir, err)
		}
		defer jsonlRecorder.Close()

		failureRecorder = jsonlRecorder
	}

	orchestrator := engine.NewOrchestrator(
		engine.Options{
			TotalBudget: appConfig.Budget.Total(),
			Stages: engine.StageBudgets{
				Cache:        appConfig.Budget.Cache(),
				FastPath:     appConfig.Budget.FastPath(),
				SlowPath:     appConfig.Budget.SlowPath(),
				MinRemaining: appConfig.Budget.MinRemaining(),
			},
			PositiveTTL: appConfig.Cache.TTLPositive(),
			NegativeTTL: appConfig.Cache.TTLNegative(),
		},
		engine.Dependencies{
			Cache:      searchCache,
			Normalizer: normalizer,
			FastPath:   fastPath,
			SlowPath:   slowPath,
			Breaker:    engine.NewCircuitBreaker(appConfig.Breaker.FailThreshold, appConfig.Breaker.OpenDuration()),
			Recorder:   failureRecorder,
		},
	)

	// 4. API 서비스를 생성하고 시작한다.
	apiService := api.NewService(appConfig, api.NewHandler(orchestrator, searchCache))

	serviceStopCtx, cancel := context.WithCancel(context.Background())
	serviceStopWG := &sync.WaitGroup{}

	serviceStopWG.Add(1)
	if err := apiService.Start(serviceStopCtx, serviceStopWG); err != nil {
		cancel()
		serviceStopWG.Wait()

		log.Fatal("서비스 초기화 실패로 프로그램을 종료합니다")
	}

	termC := make(chan os.Signal, 1)
	signal.Notify(termC, syscall.SIGINT, syscall.SIGTERM)

	applog.WithComponent("main").Info("서버 가동 완료")

	<-termC // Blocks here until interrupted

	applog.WithComponent("main").Info("Shutdown signal received")
	cancel()             // Signal cancellation to context.Context
	serviceStopWG.Wait() // Block here until are workers are done
}
