package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/darkkaiser/price-search-server/internal/config"
)

// shutdownTimeout Graceful Shutdown 시 최대 대기 시간
const shutdownTimeout = 5 * time.Second

// Service 가격 검색 API 서버의 생명주기를 관리하는 서비스입니다.
//
// Echo 기반 HTTP 서버의 시작/종료, 미들웨어와 라우트 구성, Graceful Shutdown을
// 담당합니다. 서비스는 고루틴으로 실행되며, context 취소로 종료 신호를 받습니다.
type Service struct {
	appConfig *config.AppConfig
	handler   *Handler

	running   bool
	runningMu sync.Mutex
}

// NewService Service 인스턴스를 생성합니다.
func NewService(appConfig *config.AppConfig, handler *Handler) *Service {
	if appConfig == nil {
		panic("AppConfig 객체가 초기화되지 않았습니다.")
	}
	if handler == nil {
		panic("Handler 객체가 초기화되지 않았습니다.")
	}

	return &Service{
		appConfig: appConfig,
		handler:   handler,
	}
}

// Start API 서비스를 시작합니다.
//
// 이 함수는 즉시 반환되며, 실제 서버는 고루틴에서 실행됩니다.
// serviceStopCtx가 취소되면 Graceful Shutdown을 수행한 뒤 serviceStopWG에
// 완료를 알립니다.
func (s *Service) Start(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	log.Debug("API 서비스 시작중...")

	if s.running {
		defer serviceStopWG.Done()
		log.Warn("API 서비스가 이미 시작된 상태입니다.")
		return nil
	}

	s.running = true

	go s.runServiceLoop(serviceStopCtx, serviceStopWG)

	log.Debug("API 서비스 시작됨")

	return nil
}

// runServiceLoop 서비스의 메인 실행 루프입니다.
// 서버 설정, HTTP 서버 시작, Shutdown 대기를 순차적으로 수행합니다.
func (s *Service) runServiceLoop(serviceStopCtx context.Context, serviceStopWG *sync.WaitGroup) {
	defer serviceStopWG.Done()

	e := s.setupServer()

	httpServerDone := make(chan struct{})
	go s.startHTTPServer(e, httpServerDone)

	s.waitForShutdown(serviceStopCtx, e, httpServerDone)
}

// setupServer Echo 서버 인스턴스를 생성하고 라우트를 등록합니다.
func (s *Service) setupServer() *echo.Echo {
	e := NewHTTPServer(HTTPServerConfig{
		Debug:        s.appConfig.Debug,
		AllowOrigins: s.appConfig.API.CORS.AllowOrigins,
		// 검색 파이프라인 예산에 응답 직렬화 여유를 더한 값
		RequestTimeout: s.appConfig.Budget.Total() + 3*time.Second,
	})

	RegisterRoutes(e, s.handler)

	return e
}

// startHTTPServer HTTP 서버를 시작합니다.
// 서버가 종료되면 done 채널을 닫아 대기 중인 고루틴에 신호를 보냅니다.
func (s *Service) startHTTPServer(e *echo.Echo, done chan struct{}) {
	defer close(done)

	port := s.appConfig.API.ListenPort
	log.Debugf("API 서비스의 HTTP 서버 시작중...(Port:%d)", port)

	err := e.Start(fmt.Sprintf(":%d", port))

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("API 서비스의 HTTP 서버 구동이 실패하였습니다. (error:%s)", err)
	}
}

// waitForShutdown 종료 신호를 대기하고 Graceful Shutdown을 수행합니다.
func (s *Service) waitForShutdown(serviceStopCtx context.Context, e *echo.Echo, httpServerDone chan struct{}) {
	select {
	case <-serviceStopCtx.Done():
		log.Debug("API 서비스 중지중...")

	case <-httpServerDone:
		// HTTP 서버가 예기치 않게 종료됨 (포트 바인딩 실패 등)
		log.Error("API 서비스의 HTTP 서버가 예기치 않게 종료되었습니다.")
		s.cleanup()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Errorf("API 서비스의 HTTP 서버 종료 중에 에러가 발생하였습니다. (error:%s)", err)
	}

	<-httpServerDone

	s.cleanup()
}

// cleanup 서비스 종료 후 상태를 정리합니다.
func (s *Service) cleanup() {
	s.runningMu.Lock()
	s.running = false
	s.runningMu.Unlock()

	log.Debug("API 서비스 중지됨")
}
