package errors

import "strconv"

// ErrorType 에러의 종류를 나타내는 타입입니다.
type ErrorType int

// 에러 타입 상수
//
// 검색 파이프라인의 각 단계(캐시 조회, HTTP 크롤링, 브라우저 렌더링)에서
// 발생하는 에러를 분류합니다. 오케스트레이터는 이 타입을 기준으로
// 최종 검색 상태(SearchStatus)와 폴백 여부를 결정합니다.
const (
	// Unknown 알 수 없는 에러 (기본값, 사용 지양)
	Unknown ErrorType = iota

	// Internal 내부 로직 오류 (버그 등)
	Internal

	// System 시스템 또는 인프라 오류 (디스크, 네트워크, Redis 연결 등)
	System

	// InvalidInput 잘못된 입력값 (유효성 검사 실패)
	InvalidInput

	// NotFound 상품을 찾을 수 없음 (검색 결과 없음 확정 포함)
	NotFound

	// ExecutionFailed 크롤링 또는 외부 프로세스 수행 실패
	ExecutionFailed

	// ParsingFailed HTML 파싱 또는 필수 요소 추출 실패
	ParsingFailed

	// Timeout 단계별 또는 전체 예산 시간 초과
	Timeout

	// Blocked 업스트림의 봇 차단 응답 감지 (캡차, Cloudflare 등)
	Blocked

	// Exhausted 단계 진입 전 시간 예산 소진
	Exhausted

	// Unavailable 기능 비활성화 또는 일시적 사용 불가 (브라우저 미기동 등)
	Unavailable
)

// String ErrorType의 문자열 표현을 반환합니다.
func (t ErrorType) String() string {
	switch t {
	case Unknown:
		return "Unknown"
	case Internal:
		return "Internal"
	case System:
		return "System"
	case InvalidInput:
		return "InvalidInput"
	case NotFound:
		return "NotFound"
	case ExecutionFailed:
		return "ExecutionFailed"
	case ParsingFailed:
		return "ParsingFailed"
	case Timeout:
		return "Timeout"
	case Blocked:
		return "Blocked"
	case Exhausted:
		return "Exhausted"
	case Unavailable:
		return "Unavailable"
	default:
		return "ErrorType(" + strconv.Itoa(int(t)) + ")"
	}
}
