package danawa

import (
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	apperrors "github.com/darkkaiser/price-search-server/internal/pkg/errors"
)

// Browser 슬로우패스 전체가 공유하는 헤드리스 브라우저입니다.
// 브라우저 프로세스는 첫 사용 시점에 지연 실행됩니다.
type Browser struct {
	mu       sync.Mutex
	headless bool
	browser  *rod.Browser
	launch   *launcher.Launcher
}

// NewBrowser 브라우저 관리자를 생성합니다. 프로세스는 아직 실행되지 않습니다.
func NewBrowser(headless bool) *Browser {
	return &Browser{headless: headless}
}

// instance 브라우저 인스턴스를 반환합니다. 아직 실행되지 않았으면 실행합니다.
func (b *Browser) instance() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		return b.browser, nil
	}

	l := launcher.New().Headless(b.headless)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.System, "헤드리스 브라우저 실행이 실패하였습니다.")
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, apperrors.Wrap(err, apperrors.System, "헤드리스 브라우저 연결이 실패하였습니다.")
	}

	b.launch = l
	b.browser = browser
	return b.browser, nil
}

// NewPage 리소스 차단이 설정된 새 페이지를 생성합니다.
// 이미지/폰트/스타일시트/미디어 요청은 차단하여 페이지 로드를 가볍게 유지합니다.
// 반환된 라우터는 페이지 사용이 끝나면 Stop해야 합니다.
func (b *Browser) NewPage() (*rod.Page, *rod.HijackRouter, error) {
	browser, err := b.instance()
	if err != nil {
		return nil, nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ExecutionFailed, "브라우저 페이지 생성이 실패하였습니다.")
	}

	router := page.HijackRequests()
	err = router.Add("*", "", func(h *rod.Hijack) {
		switch h.Request.Type() {
		case proto.NetworkResourceTypeImage,
			proto.NetworkResourceTypeFont,
			proto.NetworkResourceTypeStylesheet,
			proto.NetworkResourceTypeMedia:
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		default:
			h.ContinueRequest(&proto.FetchContinueRequest{})
		}
	})
	if err != nil {
		page.Close()
		return nil, nil, apperrors.Wrap(err, apperrors.ExecutionFailed, "리소스 차단 설정이 실패하였습니다.")
	}
	go router.Run()

	return page, router, nil
}

// Close 브라우저 프로세스를 종료합니다.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		b.browser.Close()
		b.browser = nil
	}
	if b.launch != nil {
		b.launch.Kill()
		b.launch = nil
	}
}
