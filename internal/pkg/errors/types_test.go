package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// definedTypes 테스트에서 사용하는 전체 ErrorType 상수 목록입니다.
var definedTypes = []struct {
	errType ErrorType
	str     string
}{
	{Unknown, "Unknown"},
	{Internal, "Internal"},
	{System, "System"},
	{InvalidInput, "InvalidInput"},
	{NotFound, "NotFound"},
	{ExecutionFailed, "ExecutionFailed"},
	{ParsingFailed, "ParsingFailed"},
	{Timeout, "Timeout"},
	{Blocked, "Blocked"},
	{Exhausted, "Exhausted"},
	{Unavailable, "Unavailable"},
}

func TestErrorType_String(t *testing.T) {
	for _, tt := range definedTypes {
		t.Run(tt.str, func(t *testing.T) {
			assert.Equal(t, tt.str, tt.errType.String())
		})
	}

	t.Run("정의되지 않은 값은 숫자 표현으로 폴백", func(t *testing.T) {
		assert.Equal(t, "ErrorType(99)", ErrorType(99).String())
		assert.Equal(t, "ErrorType(-1)", ErrorType(-1).String())
	})
}

func TestErrorType_Uniqueness(t *testing.T) {
	seen := make(map[ErrorType]string, len(definedTypes))
	for _, tt := range definedTypes {
		prev, dup := seen[tt.errType]
		assert.Falsef(t, dup, "중복된 ErrorType 값: %s와 %s", prev, tt.str)
		seen[tt.errType] = tt.str
	}
}
