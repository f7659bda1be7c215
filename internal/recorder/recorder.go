// Package recorder 검색 실패 진단 정보를 JSONL 파일로 기록합니다.
//
// 기록된 파일은 정규화 규칙과 채점 가중치를 보정하는 오프라인 분석의 입력으로
// 사용됩니다. 기록 실패는 검색 파이프라인에 영향을 주지 않습니다.
package recorder

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/darkkaiser/price-search-server/internal/engine"
	apperrors "github.com/darkkaiser/price-search-server/internal/pkg/errors"
)

const failureFileName = "search_failures.jsonl"

// JSONLRecorder 실패 기록을 줄 단위 JSON으로 누적하는 기록기.
// 파일 로테이션은 lumberjack이 담당합니다.
type JSONLRecorder struct {
	mu     sync.Mutex
	writer io.WriteCloser
}

// NewJSONLRecorder 지정한 디렉토리에 실패 기록 파일을 생성합니다.
func NewJSONLRecorder(dir string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Wrapf(err, apperrors.System, "실패 기록 디렉토리(%s) 생성이 실패하였습니다.", dir)
	}

	return &JSONLRecorder{
		writer: &lumberjack.Logger{
			Filename:   filepath.Join(dir, failureFileName),
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		},
	}, nil
}

// RecordFailure 실패 기록 한 건을 JSONL 한 줄로 기록합니다.
func (r *JSONLRecorder) RecordFailure(record engine.FailureRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		log.Warnf("실패 기록 직렬화가 실패하였습니다. (query:%s, error:%s)", record.OriginalQuery, err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.writer.Write(append(data, '\n')); err != nil {
		log.Warnf("실패 기록 저장이 실패하였습니다. (query:%s, error:%s)", record.OriginalQuery, err)
	}
}

// Close 기록 파일을 닫습니다.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writer.Close()
}

// NopRecorder 기록을 비활성화했을 때 사용하는 기록기.
type NopRecorder struct{}

// RecordFailure 아무것도 기록하지 않습니다.
func (NopRecorder) RecordFailure(engine.FailureRecord) {}
