package engine

import (
	"sync"
	"time"
)

// Checkpoint 파이프라인 진행 중 기록된 이벤트와 그 시점의 경과 시간.
type Checkpoint struct {
	Name    string        `json:"name"`
	Elapsed time.Duration `json:"elapsed"`
}

// BudgetReport 검색 종료 시점의 예산 사용 내역.
type BudgetReport struct {
	Total       time.Duration `json:"total"`
	Elapsed     time.Duration `json:"elapsed"`
	Remaining   time.Duration `json:"remaining"`
	Exhausted   bool          `json:"exhausted"`
	Checkpoints []Checkpoint  `json:"checkpoints,omitempty"`
}

// StageBudgets 단계별 예산 상한.
type StageBudgets struct {
	Cache    time.Duration
	FastPath time.Duration
	SlowPath time.Duration

	// MinRemaining 의미 있는 작업을 시작할 수 있는 최소 잔여 예산.
	// 잔여 예산이 이보다 작으면 소진 상태로 판정합니다.
	MinRemaining time.Duration
}

// BudgetManager 검색 한 건의 시간 예산을 관리합니다.
//
// 요청마다 새로 생성하며, 파이프라인의 각 단계는 실행 전에 CanExecute로
// 잔여 예산을 확인하고 TimeoutFor로 단계 타임아웃을 할당받습니다.
// 동시에 여러 고루틴에서 접근해도 안전합니다.
type BudgetManager struct {
	total  time.Duration
	stages StageBudgets
	start  time.Time

	mu          sync.Mutex
	checkpoints []Checkpoint
}

// NewBudgetManager 주어진 총 예산과 단계별 예산으로 관리자를 생성하고
// 즉시 계측을 시작합니다.
func NewBudgetManager(total time.Duration, stages StageBudgets) *BudgetManager {
	return &BudgetManager{
		total:  total,
		stages: stages,
		start:  time.Now(),
	}
}

// Elapsed 시작 이후 경과 시간을 반환합니다.
func (b *BudgetManager) Elapsed() time.Duration {
	return time.Since(b.start)
}

// Remaining 잔여 예산을 반환합니다. 예산을 초과한 경우 0을 반환합니다.
func (b *BudgetManager) Remaining() time.Duration {
	remaining := b.total - b.Elapsed()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsExhausted 잔여 예산이 최소치 미만으로 내려갔는지 여부를 반환합니다.
func (b *BudgetManager) IsExhausted() bool {
	return b.Remaining() < b.stages.MinRemaining
}

// CanExecute 해당 단계의 예산을 온전히 쓸 만큼 잔여 예산이 남아 있는지
// 확인합니다. 단계 예산보다 잔여 예산이 작으면 실행하지 않습니다.
func (b *BudgetManager) CanExecute(stage string) bool {
	remaining := b.Remaining()
	if remaining <= 0 {
		return false
	}
	return remaining >= b.stageBudget(stage)
}

// TimeoutFor 단계에 할당할 타임아웃을 반환합니다.
// 단계별 예산과 잔여 예산 중 작은 값을 사용합니다.
func (b *BudgetManager) TimeoutFor(stage string) time.Duration {
	stageBudget := b.stageBudget(stage)
	if stageBudget <= 0 {
		stageBudget = b.Remaining()
	}

	remaining := b.Remaining()
	if stageBudget > remaining {
		return remaining
	}
	return stageBudget
}

func (b *BudgetManager) stageBudget(stage string) time.Duration {
	switch stage {
	case StageCache:
		return b.stages.Cache
	case StageFastPath:
		return b.stages.FastPath
	case StageSlowPath:
		return b.stages.SlowPath
	default:
		return 0
	}
}

// Checkpoint 현재 경과 시간과 함께 이벤트를 기록합니다.
// 같은 이름으로 다시 기록하면 기존 항목의 경과 시간을 갱신합니다.
func (b *BudgetManager) Checkpoint(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := b.Elapsed()
	for i := range b.checkpoints {
		if b.checkpoints[i].Name == name {
			b.checkpoints[i].Elapsed = elapsed
			return
		}
	}
	b.checkpoints = append(b.checkpoints, Checkpoint{
		Name:    name,
		Elapsed: elapsed,
	})
}

// Report 현재 시점의 예산 사용 내역을 반환합니다.
func (b *BudgetManager) Report() *BudgetReport {
	b.mu.Lock()
	checkpoints := make([]Checkpoint, len(b.checkpoints))
	copy(checkpoints, b.checkpoints)
	b.mu.Unlock()

	elapsed := b.Elapsed()
	return &BudgetReport{
		Total:       b.total,
		Elapsed:     elapsed,
		Remaining:   b.Remaining(),
		Exhausted:   b.IsExhausted(),
		Checkpoints: checkpoints,
	}
}
